// Package conversation holds the message list of one chat session and the
// state machine that allows a single turn in flight at a time.
package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"webhook-chat/internal/domain"
)

const (
	WelcomeMessage  = "Hello! How can I help you today?"
	GracefulMessage = "I'm sorry, I am unable to fetch this information right now. Please try again in a moment or check your connection."
)

var (
	ErrEmptyMessage = errors.New("conversation: message must not be empty")
	ErrTurnInFlight = errors.New("conversation: a turn is already in flight")
	ErrStaleTurn    = errors.New("conversation: turn is not the pending turn")
)

// TurnState is the position of the conversation in the current turn.
type TurnState string

const (
	StateIdle    TurnState = "idle"
	StateSending TurnState = "sending"
	StateSettled TurnState = "settled"
	StateFailed  TurnState = "failed"
)

// Turn identifies the pending user message of an in-flight turn.
type Turn struct {
	MessageID  string
	Text       string
	Generation uint64
}

// Snapshot is a point-in-time copy of a conversation.
type Snapshot struct {
	Messages    []domain.Message `json:"messages"`
	State       TurnState        `json:"state"`
	IsLoading   bool             `json:"isLoading"`
	Suggestions []string         `json:"suggestions"`
	Generation  uint64           `json:"generation"`
}

// Conversation is safe for concurrent use.
type Conversation struct {
	mu          sync.Mutex
	messages    []domain.Message
	state       TurnState
	pending     *Turn
	suggestions []string
	generation  uint64
	lastActive  time.Time
}

// New returns a conversation seeded with the assistant welcome message.
func New() *Conversation {
	now := clock()
	return &Conversation{
		messages: []domain.Message{{
			ID:        newID(),
			Role:      domain.RoleAssistant,
			Content:   WelcomeMessage,
			Timestamp: now,
		}},
		state:       StateIdle,
		suggestions: []string{},
		lastActive:  now,
	}
}

// Begin starts a turn for text. It fails while another turn is in flight.
func (c *Conversation) Begin(text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		return Turn{}, ErrTurnInFlight
	}

	now := clock()
	c.generation++
	turn := Turn{MessageID: newID(), Text: text, Generation: c.generation}
	c.messages = append(c.messages, domain.Message{
		ID:        turn.MessageID,
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: now,
		Status:    domain.StatusSending,
	})
	c.suggestions = []string{}
	c.state = StateSending
	c.pending = &turn
	c.lastActive = now
	return turn, nil
}

// Settle completes turn with the assistant reply and returns the history the
// follow-up suggestions should be computed from.
func (c *Conversation) Settle(turn Turn, reply string) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkPendingLocked(turn); err != nil {
		return nil, err
	}

	c.finishLocked(turn, domain.StatusSent, reply, StateSettled)
	return append([]domain.Message(nil), c.messages...), nil
}

// Fail completes turn with the graceful apology and installs fallback as the
// suggestion set.
func (c *Conversation) Fail(turn Turn, fallback []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkPendingLocked(turn); err != nil {
		return err
	}

	c.finishLocked(turn, domain.StatusError, GracefulMessage, StateFailed)
	c.suggestions = append([]string{}, fallback...)
	return nil
}

// ApplySuggestions installs suggestions computed for generation. Generation 0
// covers the welcome message of a conversation with no turns yet. Results for
// an older turn, or arriving while a turn is in flight, are discarded and the
// call reports false.
func (c *Conversation) ApplySuggestions(generation uint64, suggestions []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	if c.state != StateSettled && c.state != StateIdle {
		return false
	}
	c.suggestions = append([]string{}, suggestions...)
	return true
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages:    append([]domain.Message(nil), c.messages...),
		State:       c.state,
		IsLoading:   c.state == StateSending,
		Suggestions: append([]string{}, c.suggestions...),
		Generation:  c.generation,
	}
}

// Touch marks the conversation as in use.
func (c *Conversation) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = clock()
}

// LastActive reports when the conversation was last used.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Conversation) checkPendingLocked(turn Turn) error {
	if c.state != StateSending || c.pending == nil || c.pending.MessageID != turn.MessageID {
		return ErrStaleTurn
	}
	return nil
}

func (c *Conversation) finishLocked(turn Turn, status domain.Status, reply string, next TurnState) {
	now := clock()
	for i := range c.messages {
		if c.messages[i].ID == turn.MessageID {
			c.messages[i].Status = status
			break
		}
	}
	c.messages = append(c.messages, domain.Message{
		ID:        newID(),
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: now,
	})
	c.state = next
	c.pending = nil
	c.lastActive = now
}

var clock = func() time.Time {
	return time.Now()
}

var newID = func() string {
	return uuid.NewString()
}
