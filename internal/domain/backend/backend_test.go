package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	r := NewRegistry(Defaults())

	tests := []struct {
		uri  string
		want Kind
	}{
		{"local:album:md5:abc", KindLocal},
		{"podcast+https://example.com/feed.xml", KindPodcast},
		{"bandcamp:album:123", KindBandcamp},
		{"somafm:channel:/groovesalad", KindSomaFM},
		{"spotify:track:1", KindGeneric},
		{"", KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			b, ok := r.Lookup(tt.uri)
			require.True(t, ok)
			assert.Equal(t, tt.want, b.Kind)
		})
	}
}

func TestDeactivatedBackendDoesNotFallThrough(t *testing.T) {
	r := NewRegistry(Defaults(), KindBandcamp)

	b, ok := r.Lookup("bandcamp:album:1")
	assert.False(t, ok)
	assert.Nil(t, b)

	b, ok = r.Lookup("local:track:1")
	require.True(t, ok)
	assert.Equal(t, KindLocal, b.Kind)
}

func TestHides(t *testing.T) {
	r := NewRegistry(Defaults())
	local, _ := r.Lookup("local:directory")

	assert.True(t, local.Hides("local:directory?type=track"))
	assert.False(t, local.Hides("local:directory?type=album"))

	generic, _ := r.Lookup("file:///music")
	assert.False(t, generic.Hides("file:///music/a"))
}

func TestActiveAndRandomCandidates(t *testing.T) {
	r := NewRegistry(Defaults(), KindSomaFM)

	kinds := make([]Kind, 0)
	for _, b := range r.Active() {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []Kind{KindLocal, KindPodcast, KindBandcamp, KindGeneric}, kinds)

	assert.True(t, r.RandomCandidate("local:album:1"))
	assert.False(t, r.RandomCandidate("podcast:feed"))
	assert.False(t, r.RandomCandidate("somafm:channel"))
}

func TestParseKinds(t *testing.T) {
	assert.Equal(t, []Kind{KindPodcast, KindLocal}, ParseKinds([]string{" Podcast", "local", "nope"}))
	assert.Empty(t, ParseKinds(nil))
}
