// Package config loads the runtime settings of the remote from an optional
// YAML file and keeps them current while the file changes.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/edumarques81/stellar-remote/internal/domain/backend"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Snapshot is one immutable view of the settings.
type Snapshot struct {
	MopidyURL          string        `yaml:"mopidy_url"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	RPCTimeout         time.Duration `yaml:"rpc_timeout"`
	SyncInterval       time.Duration `yaml:"sync_interval"`
	SyncTimeout        time.Duration `yaml:"sync_timeout"`
	LookupSliceSize    int           `yaml:"lookup_slice_size"`
	ImageDir           string        `yaml:"image_dir"`
	CacheDB            string        `yaml:"cache_db"`
	DisabledBackends   []string      `yaml:"disabled_backends"`
	PreloadAlbumTracks bool          `yaml:"preload_album_tracks"`
	RefreshSchedule    string        `yaml:"refresh_schedule"`
	Listen             string        `yaml:"listen"`
	MaxExternalClients int           `yaml:"max_external_clients"`
	HistorySize        int           `yaml:"history_size"`
}

// Defaults returns the settings used when no file overrides them.
func Defaults() Snapshot {
	return Snapshot{
		MopidyURL:          "http://localhost:6680",
		RetryDelay:         5 * time.Second,
		RPCTimeout:         10 * time.Second,
		SyncInterval:       10 * time.Second,
		SyncTimeout:        2 * time.Second,
		LookupSliceSize:    20,
		ImageDir:           "data/images",
		CacheDB:            "data/images.db",
		RefreshSchedule:    "@every 15m",
		Listen:             ":3000",
		MaxExternalClients: 8,
		HistorySize:        50,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Snapshot, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate checks the values that would otherwise fail much later.
func (s Snapshot) Validate() error {
	u, err := url.Parse(s.MopidyURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: mopidy_url %q", ErrInvalid, s.MopidyURL)
	}
	for name, d := range map[string]time.Duration{
		"retry_delay":   s.RetryDelay,
		"rpc_timeout":   s.RPCTimeout,
		"sync_interval": s.SyncInterval,
		"sync_timeout":  s.SyncTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	if s.LookupSliceSize < 1 {
		return fmt.Errorf("%w: lookup_slice_size must be at least 1", ErrInvalid)
	}
	if s.HistorySize < 0 || s.MaxExternalClients < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalid)
	}
	for _, name := range s.DisabledBackends {
		if _, ok := backend.ParseKind(name); !ok {
			return fmt.Errorf("%w: unknown backend %q", ErrInvalid, name)
		}
	}
	if s.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(s.RefreshSchedule); err != nil {
			return fmt.Errorf("%w: refresh_schedule: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Changes returns the runtime adjustable fields that differ from prev, keyed
// like the SettingsChanged payload. Nil means nothing changed.
func (s Snapshot) Changes(prev Snapshot) message.Data {
	data := message.Data{}
	if s.PreloadAlbumTracks != prev.PreloadAlbumTracks {
		data[message.KeyPreloadAlbumTracks] = s.PreloadAlbumTracks
	}
	if !slices.Equal(s.DisabledBackends, prev.DisabledBackends) {
		data[message.KeyDisabledBackends] = append([]string(nil), s.DisabledBackends...)
	}
	if s.SyncInterval != prev.SyncInterval {
		data[message.KeySyncInterval] = s.SyncInterval
	}
	if s.SyncTimeout != prev.SyncTimeout {
		data[message.KeySyncTimeout] = s.SyncTimeout
	}
	if s.LookupSliceSize != prev.LookupSliceSize {
		data[message.KeyLookupSliceSize] = s.LookupSliceSize
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// Settings holds the current snapshot and notifies subscribers of changes.
type Settings struct {
	path     string
	override func(*Snapshot)

	mu          sync.RWMutex
	current     Snapshot
	subscribers []func(Snapshot)
}

// New wraps an already loaded snapshot. path is the file reloaded by Watch.
func New(path string, initial Snapshot) *Settings {
	return &Settings{path: path, current: initial}
}

// SetOverride installs fn, typically command line flags, to adjust the
// current snapshot and every reloaded one. Call it before Watch.
func (s *Settings) SetOverride(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = fn
	fn(&s.current)
}

// Path returns the watched file.
func (s *Settings) Path() string {
	return s.path
}

// Get returns the current snapshot.
func (s *Settings) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for every later change. fn runs on the watcher
// goroutine and must not block.
func (s *Settings) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Apply replaces the snapshot and notifies subscribers when it differs.
// It reports whether anything changed.
func (s *Settings) Apply(next Snapshot) bool {
	s.mu.Lock()
	if s.override != nil {
		next.DisabledBackends = append([]string(nil), next.DisabledBackends...)
		s.override(&next)
	}
	if equalSnapshots(s.current, next) {
		s.mu.Unlock()
		return false
	}
	s.current = next
	subs := append(([]func(Snapshot))(nil), s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return true
}

func equalSnapshots(a, b Snapshot) bool {
	if !slices.Equal(a.DisabledBackends, b.DisabledBackends) {
		return false
	}
	a.DisabledBackends, b.DisabledBackends = nil, nil
	return reflect.DeepEqual(a, b)
}
