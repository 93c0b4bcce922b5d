package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edumarques81/stellar-remote/internal/message"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	types []message.Type
}

func (r *recorder) Send(msg message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msg.Type())
}

func (r *recorder) sent() []message.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Type(nil), r.types...)
}

func TestRefreshSendsCommands(t *testing.T) {
	rec := &recorder{}
	New(rec, nil).Refresh()
	assert.Equal(t, []message.Type{message.ListPlaylists, message.FetchTracklist}, rec.sent())
}

func TestRefreshSkippedWhileDisconnected(t *testing.T) {
	rec := &recorder{}
	New(rec, func() bool { return false }).Refresh()
	assert.Empty(t, rec.sent())
}

func TestReschedule(t *testing.T) {
	s := New(&recorder{}, nil)

	require.NoError(t, s.Reschedule("*/5 * * * *"))
	first := s.entry
	assert.NotZero(t, first)
	require.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Reschedule("*/5 * * * *"))
	assert.Equal(t, first, s.entry, "same spec keeps the entry")

	require.NoError(t, s.Reschedule("@hourly"))
	assert.NotEqual(t, first, s.entry)
	assert.Len(t, s.cron.Entries(), 1)

	assert.Error(t, s.Reschedule("every hour"))
	assert.Equal(t, "@hourly", s.spec, "a bad spec keeps the schedule")

	require.NoError(t, s.Reschedule(""))
	assert.Empty(t, s.cron.Entries())
}

func TestRunFiresJob(t *testing.T) {
	rec := &recorder{}
	s := New(rec, nil)
	require.NoError(t, s.Reschedule("@every 1s"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.sent()) >= 2 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
