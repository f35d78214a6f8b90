package domain

// FailureRecord is a diagnostics entry for a turn that ended in the graceful
// error message. It never carries message content.
type FailureRecord struct {
	PK         string
	SK         string
	SessionID  string
	TurnID     string
	Kind       string
	Detail     string
	StatusCode int
	OccurredAt string
	TTL        int64
}
