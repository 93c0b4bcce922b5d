package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/message"
)

const (
	DefaultTrackPeriod   = time.Second
	DefaultSyncThreshold = 10 * time.Second
	DefaultSyncTimeout   = 2 * time.Second
)

// TimeTracker estimates the playback position between server updates. While
// the server is connected and playing it adds one period per tick and asks
// the server for the real position once the last sync is older than the
// threshold.
type TimeTracker struct {
	env Env
	now func() time.Time

	mu        sync.Mutex
	period    time.Duration
	threshold time.Duration
	timeout   time.Duration
	tracking  bool
	lastSync  time.Time
}

// TimeTrackerOption configures a TimeTracker.
type TimeTrackerOption func(*TimeTracker)

// WithPeriod sets the tick period.
func WithPeriod(d time.Duration) TimeTrackerOption {
	return func(t *TimeTracker) { t.period = d }
}

// WithSyncThreshold sets the age after which the position is re-synced.
func WithSyncThreshold(d time.Duration) TimeTrackerOption {
	return func(t *TimeTracker) { t.threshold = d }
}

// WithSyncTimeout bounds the position request.
func WithSyncTimeout(d time.Duration) TimeTrackerOption {
	return func(t *TimeTracker) { t.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TimeTrackerOption {
	return func(t *TimeTracker) { t.now = now }
}

// NewTimeTracker creates the tracker and starts following the connection and
// playback state of the model.
func NewTimeTracker(env Env, opts ...TimeTrackerOption) *TimeTracker {
	t := &TimeTracker{
		env:       env,
		now:       time.Now,
		period:    DefaultTrackPeriod,
		threshold: DefaultSyncThreshold,
		timeout:   DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}

	m := env.Model
	m.Connected.Observe(func(_, _ bool) { t.evaluate() })
	m.Playback.State.Observe(func(_, _ model.PlaybackState) { t.evaluate() })
	t.evaluate()
	return t
}

func (t *TimeTracker) Name() string { return "time_tracker" }

func (t *TimeTracker) Registrations() []bus.Registration {
	return []bus.Registration{
		{Types: []message.Type{message.Seeked, message.TrackPlaybackStarted}, Handler: t.synced},
		{Types: []message.Type{message.SettingsChanged}, Handler: t.settingsChanged},
	}
}

// Tracking reports whether the tracker is estimating the position.
func (t *TimeTracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// evaluate switches between idle and tracking. Leaving tracking forgets the
// last sync so the next tracking phase starts with a sync.
func (t *TimeTracker) evaluate() {
	m := t.env.Model
	tracking := m.Connected.Get() && m.Playback.State.Get() == model.StatePlaying

	t.mu.Lock()
	defer t.mu.Unlock()
	if tracking == t.tracking {
		return
	}
	t.tracking = tracking
	if !tracking {
		t.lastSync = time.Time{}
	}
	log.Debug().Bool("tracking", tracking).Msg("Time tracker state")
}

// synced records that the server just reported the position.
func (t *TimeTracker) synced(_ context.Context, _ message.Message) error {
	t.mu.Lock()
	t.lastSync = t.now()
	t.mu.Unlock()
	return nil
}

func (t *TimeTracker) settingsChanged(_ context.Context, msg message.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := durationSetting(msg, message.KeySyncInterval); ok {
		t.threshold = d
	}
	if d, ok := durationSetting(msg, message.KeySyncTimeout); ok {
		t.timeout = d
	}
	return nil
}

func durationSetting(msg message.Message, key string) (time.Duration, bool) {
	if !msg.Has(key) {
		return 0, false
	}
	d := msg.Duration(key, 0)
	return d, d > 0
}

// Run ticks until ctx is done.
func (t *TimeTracker) Run(ctx context.Context) error {
	t.mu.Lock()
	period := t.period
	t.mu.Unlock()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Info().Dur("period", period).Msg("Time tracker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Time tracker stopped")
			return ctx.Err()
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick performs one tracking step.
func (t *TimeTracker) Tick(ctx context.Context) {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	now := t.now()
	due := t.lastSync.IsZero() || now.Sub(t.lastSync) > t.threshold
	period, timeout := t.period, t.timeout
	t.mu.Unlock()

	pb := t.env.Model.Playback
	if due {
		t.sync(ctx, timeout)
		return
	}

	// The increment is applied on the executor against the position current
	// at that time; server positions queued before it are not lost.
	pb.AdvanceTimePosition(period.Milliseconds())
}

// sync asks the server for the position. On failure the position becomes
// unknown and the last sync is kept, so the next tick retries.
func (t *TimeTracker) sync(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pb := t.env.Model.Playback
	pos, ok := t.env.Core.TimePosition(ctx)
	if !ok || pos < 0 {
		log.Debug().Msg("Time position sync failed")
		pb.SetTimePosition(-1)
		return
	}

	pb.SetTimePosition(pos)
	t.mu.Lock()
	if t.tracking {
		t.lastSync = t.now()
	}
	t.mu.Unlock()

	t.env.send(message.TimePositionSynced, message.Data{message.KeyTimePosition: pos})
}
