package usecase

import (
	"context"
	"sync"

	"webhook-chat/internal/domain"
)

type fakeRelay struct {
	mu       sync.Mutex
	reply    string
	err      error
	question string
	calls    int
	block    chan struct{}
}

func (f *fakeRelay) SendMessage(_ context.Context, question string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.question = question
	return f.reply, f.err
}

type fakeSuggester struct {
	mu       sync.Mutex
	out      []string
	history  []domain.Message
	calls    int
	fallback []string
}

func (f *fakeSuggester) GetSuggestions(_ context.Context, history []domain.Message) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = history
	return f.out
}

func (f *fakeSuggester) Fallback() []string {
	if f.fallback != nil {
		return f.fallback
	}
	return []string{"Try again", "How can you help?", "Tell me a joke"}
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordedFailure struct {
	sessionID, turnID, kind, detail string
	statusCode                      int
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedFailure
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, sessionID, turnID, kind, detail string, statusCode int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedFailure{sessionID, turnID, kind, detail, statusCode})
	return f.err
}
