// Package scheduler periodically asks the controllers to refresh state that
// the server does not announce reliably.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// refreshed lists the commands sent on every tick.
var refreshed = []message.Type{message.ListPlaylists, message.FetchTracklist}

// Scheduler runs the refresh job on a cron schedule.
type Scheduler struct {
	sender    bus.Sender
	connected func() bool
	cron      *cron.Cron

	mu    sync.Mutex
	spec  string
	entry cron.EntryID
}

// New creates a scheduler. connected gates the job so nothing is queued
// while the server is unreachable; nil means always.
func New(sender bus.Sender, connected func() bool) *Scheduler {
	return &Scheduler{
		sender:    sender,
		connected: connected,
		cron:      cron.New(cron.WithLogger(cronLogger{})),
	}
}

// Reschedule replaces the refresh schedule. An empty spec disables it.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec {
		return nil
	}
	if spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("parse schedule %q: %w", spec, err)
		}
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.spec = spec
	if spec == "" {
		log.Info().Msg("Scheduled refresh disabled")
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.Refresh)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entry = id
	log.Info().Str("schedule", spec).Msg("Scheduled refresh configured")
	return nil
}

// Refresh queues the refresh commands now.
func (s *Scheduler) Refresh() {
	if s.connected != nil && !s.connected() {
		log.Debug().Msg("Scheduled refresh skipped, not connected")
		return
	}
	for _, t := range refreshed {
		s.sender.Send(message.New(t, nil))
	}
}

// Run starts the cron loop and stops it when ctx is done, waiting for a
// running job to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// cronLogger routes cron's own diagnostics to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
