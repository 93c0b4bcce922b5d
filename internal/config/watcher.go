package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/message"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the settings file whenever it changes, until ctx is done.
// The parent directory is watched so that files replaced by rename are
// picked up. Invalid files are logged and leave the current settings intact.
func (s *Settings) Watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	log.Info().Str("path", abs).Msg("Watching settings file")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Settings watcher error")
		case <-timer.C:
			s.reload()
		}
	}
}

func (s *Settings) reload() {
	next, err := Load(s.path)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Settings file rejected, keeping current settings")
		return
	}
	if s.Apply(next) {
		log.Info().Str("path", s.path).Msg("Settings reloaded")
	}
}

// Forward enqueues a SettingsChanged message for every change of a runtime
// adjustable field.
func (s *Settings) Forward(sender bus.Sender) {
	var mu sync.Mutex
	prev := s.Get()
	s.Subscribe(func(next Snapshot) {
		mu.Lock()
		changes := next.Changes(prev)
		prev = next
		mu.Unlock()

		if changes != nil {
			sender.Send(message.New(message.SettingsChanged, changes))
		}
	})
}
