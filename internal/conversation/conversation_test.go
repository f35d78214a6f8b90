package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"webhook-chat/internal/domain"
)

var fallback = []string{"Try again", "How can you help?", "Tell me a joke"}

func TestNew_SeedsWelcome(t *testing.T) {
	snap := New().Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, domain.RoleAssistant, snap.Messages[0].Role)
	require.Equal(t, WelcomeMessage, snap.Messages[0].Content)
	require.Equal(t, StateIdle, snap.State)
	require.False(t, snap.IsLoading)
	require.Empty(t, snap.Suggestions)
}

func TestBegin_AppendsSendingMessage(t *testing.T) {
	c := New()
	turn, err := c.Begin("  hello  ")
	require.NoError(t, err)
	require.Equal(t, "hello", turn.Text)
	require.Equal(t, uint64(1), turn.Generation)

	snap := c.Snapshot()
	require.Equal(t, StateSending, snap.State)
	require.True(t, snap.IsLoading)
	last := snap.Messages[len(snap.Messages)-1]
	require.Equal(t, turn.MessageID, last.ID)
	require.Equal(t, domain.RoleUser, last.Role)
	require.Equal(t, "hello", last.Content)
	require.Equal(t, domain.StatusSending, last.Status)
}

func TestBegin_RejectsBlankText(t *testing.T) {
	_, err := New().Begin(" \n\t ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestBegin_RejectsWhileInFlight(t *testing.T) {
	c := New()
	_, err := c.Begin("first")
	require.NoError(t, err)

	_, err = c.Begin("second")
	require.ErrorIs(t, err, ErrTurnInFlight)
	require.Len(t, c.Snapshot().Messages, 2)
}

func TestBegin_ConcurrentCallsAdmitOne(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Begin("race"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, admitted)
}

func TestSettle(t *testing.T) {
	c := New()
	turn, err := c.Begin("hi")
	require.NoError(t, err)

	history, err := c.Settle(turn, "hello back")
	require.NoError(t, err)
	require.Len(t, history, 3)

	snap := c.Snapshot()
	require.Equal(t, StateSettled, snap.State)
	require.False(t, snap.IsLoading)
	require.Equal(t, domain.StatusSent, snap.Messages[1].Status)
	require.Equal(t, domain.RoleAssistant, snap.Messages[2].Role)
	require.Equal(t, "hello back", snap.Messages[2].Content)
	require.Equal(t, domain.StatusNone, snap.Messages[2].Status)

	_, err = c.Begin("next")
	require.NoError(t, err)
}

func TestFail_InstallsFallbackAndApology(t *testing.T) {
	c := New()
	turn, err := c.Begin("hi")
	require.NoError(t, err)
	require.NoError(t, c.Fail(turn, fallback))

	snap := c.Snapshot()
	require.Equal(t, StateFailed, snap.State)
	require.Equal(t, domain.StatusError, snap.Messages[1].Status)
	require.Equal(t, GracefulMessage, snap.Messages[2].Content)
	require.Equal(t, fallback, snap.Suggestions)

	// generated suggestions never replace the fallback set of a failed turn
	require.False(t, c.ApplySuggestions(turn.Generation, []string{"generated"}))
	require.Equal(t, fallback, c.Snapshot().Suggestions)

	_, err = c.Begin("again")
	require.NoError(t, err)
}

func TestSettleAndFail_RejectStaleTurn(t *testing.T) {
	c := New()
	turn, err := c.Begin("hi")
	require.NoError(t, err)
	_, err = c.Settle(turn, "ok")
	require.NoError(t, err)

	_, err = c.Settle(turn, "again")
	require.ErrorIs(t, err, ErrStaleTurn)
	require.ErrorIs(t, c.Fail(turn, fallback), ErrStaleTurn)
	require.Len(t, c.Snapshot().Messages, 3)
}

func TestApplySuggestions_StaleGuard(t *testing.T) {
	c := New()
	first, err := c.Begin("one")
	require.NoError(t, err)
	_, err = c.Settle(first, "reply one")
	require.NoError(t, err)

	second, err := c.Begin("two")
	require.NoError(t, err)
	require.Empty(t, c.Snapshot().Suggestions)

	// the first turn's suggestions arrive while the second turn is in flight
	require.False(t, c.ApplySuggestions(first.Generation, []string{"old"}))
	require.Empty(t, c.Snapshot().Suggestions)

	_, err = c.Settle(second, "reply two")
	require.NoError(t, err)
	require.False(t, c.ApplySuggestions(first.Generation, []string{"old"}))
	require.True(t, c.ApplySuggestions(second.Generation, []string{"new"}))
	require.Equal(t, []string{"new"}, c.Snapshot().Suggestions)
}

func TestBegin_ClearsSuggestions(t *testing.T) {
	c := New()
	turn, err := c.Begin("hi")
	require.NoError(t, err)
	require.NoError(t, c.Fail(turn, fallback))
	require.NotEmpty(t, c.Snapshot().Suggestions)

	_, err = c.Begin("Try again")
	require.NoError(t, err)
	require.Empty(t, c.Snapshot().Suggestions)
}

func TestApplySuggestions_WelcomeGeneration(t *testing.T) {
	c := New()
	require.True(t, c.ApplySuggestions(0, []string{"Hello!"}))
	require.Equal(t, []string{"Hello!"}, c.Snapshot().Suggestions)

	turn, err := c.Begin("hi")
	require.NoError(t, err)
	require.Empty(t, c.Snapshot().Suggestions)
	require.False(t, c.ApplySuggestions(0, []string{"late welcome"}))

	_, err = c.Settle(turn, "ok")
	require.NoError(t, err)
	require.False(t, c.ApplySuggestions(0, []string{"late welcome"}))
	require.Empty(t, c.Snapshot().Suggestions)
}

func TestTouch_AdvancesLastActive(t *testing.T) {
	prev := clock
	t.Cleanup(func() { clock = prev })
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock = func() time.Time { return start }
	c := New()

	clock = func() time.Time { return start.Add(time.Minute) }
	c.Touch()
	require.Equal(t, start.Add(time.Minute), c.LastActive())
}
