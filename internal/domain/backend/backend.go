// Package backend describes the content sources a Mopidy server exposes and
// selects the one responsible for a URI.
package backend

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Kind identifies a backend descriptor.
type Kind string

const (
	KindLocal    Kind = "local"
	KindPodcast  Kind = "podcast"
	KindBandcamp Kind = "bandcamp"
	KindSomaFM   Kind = "somafm"
	KindGeneric  Kind = "generic"
)

// Backend is a logical content source with its capabilities.
type Backend struct {
	Kind Kind
	// Root is the browse root of the backend, empty for the catch-all.
	Root string

	// StaticAlbums is set when album listings fully describe the albums.
	StaticAlbums bool
	// PreloadTracks asks for album tracks while browsing.
	PreloadTracks bool
	// ExcludeFromRandom keeps the backend's albums out of random picks.
	ExcludeFromRandom bool

	responsible func(uri string) bool
	hides       func(uri string) bool
}

// Responsible reports whether the backend handles uri.
func (b *Backend) Responsible(uri string) bool {
	return b.responsible(uri)
}

// Hides reports whether the child uri must not be listed.
func (b *Backend) Hides(uri string) bool {
	if b.hides == nil {
		return false
	}
	return b.hides(uri)
}

func prefix(schemes ...string) func(string) bool {
	return func(uri string) bool {
		return lo.SomeBy(schemes, func(s string) bool {
			return strings.HasPrefix(uri, s+":")
		})
	}
}

// Defaults returns the descriptor table in priority order. The generic
// backend is the catch-all and always comes last.
func Defaults() []*Backend {
	return []*Backend{
		{
			Kind:        KindLocal,
			Root:        "local:directory",
			responsible: prefix("local"),
			// The flat listings duplicate the browse tree.
			hides: func(uri string) bool {
				return uri == "local:directory?type=track" || uri == "local:directory?type=date"
			},
		},
		{
			Kind:              KindPodcast,
			Root:              "podcast:",
			StaticAlbums:      true,
			ExcludeFromRandom: true,
			responsible:       prefix("podcast", "podcast+http", "podcast+https", "podcast+file", "podcast+itunes"),
		},
		{
			Kind:          KindBandcamp,
			Root:          "bandcamp:browse",
			PreloadTracks: true,
			responsible:   prefix("bandcamp"),
		},
		{
			Kind:              KindSomaFM,
			Root:              "somafm:",
			StaticAlbums:      true,
			ExcludeFromRandom: true,
			responsible:       prefix("somafm"),
		},
		{
			Kind:        KindGeneric,
			responsible: func(string) bool { return true },
		},
	}
}

// Registry resolves URIs to backends.
type Registry struct {
	backends []*Backend

	mu       sync.RWMutex
	disabled map[Kind]bool
}

// NewRegistry builds a registry over backends. Kinds listed in disabled are
// administratively deactivated.
func NewRegistry(backends []*Backend, disabled ...Kind) *Registry {
	r := &Registry{backends: backends}
	r.SetDisabled(disabled...)
	return r
}

// SetDisabled replaces the set of deactivated kinds.
func (r *Registry) SetDisabled(kinds ...Kind) {
	disabled := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		disabled[k] = true
	}
	r.mu.Lock()
	r.disabled = disabled
	r.mu.Unlock()
}

func (r *Registry) isDisabled(k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[k]
}

// Lookup returns the first backend responsible for uri. A deactivated match
// yields no backend; later entries are not consulted.
func (r *Registry) Lookup(uri string) (*Backend, bool) {
	for _, b := range r.backends {
		if !b.Responsible(uri) {
			continue
		}
		if r.isDisabled(b.Kind) {
			log.Debug().Str("uri", uri).Str("backend", string(b.Kind)).Msg("Backend deactivated")
			return nil, false
		}
		return b, true
	}
	return nil, false
}

// Active returns the enabled backends in priority order.
func (r *Registry) Active() []*Backend {
	return lo.Filter(r.backends, func(b *Backend, _ int) bool {
		return !r.isDisabled(b.Kind)
	})
}

// RandomCandidate reports whether albums at uri may be picked at random.
func (r *Registry) RandomCandidate(uri string) bool {
	b, ok := r.Lookup(uri)
	return ok && !b.ExcludeFromRandom
}

// ParseKind resolves one configured name.
func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	_, ok := lo.Find(Defaults(), func(b *Backend) bool { return b.Kind == k })
	return k, ok
}

// ParseKinds converts configured names, ignoring unknown ones.
func ParseKinds(names []string) []Kind {
	var kinds []Kind
	for _, n := range names {
		if k, ok := ParseKind(n); ok {
			kinds = append(kinds, k)
		} else {
			log.Warn().Str("backend", n).Msg("Unknown backend name ignored")
		}
	}
	return kinds
}
