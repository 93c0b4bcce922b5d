package mopidy

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// DefaultSliceSize is the number of URIs sent per batched lookup.
const DefaultSliceSize = 20

// FetchFunc performs one batched call for a slice of URIs.
type FetchFunc[V any] func(ctx context.Context, uris []string) (map[string]V, bool)

// InSlices calls fetch for consecutive slices of at most size URIs and merges
// the results. notify, when set, receives the cumulative number of processed
// URIs after each slice. If any slice fails the whole result is empty, even
// when earlier slices succeeded.
func InSlices[V any](ctx context.Context, uris []string, size int, fetch FetchFunc[V], notify func(done int)) map[string]V {
	result := make(map[string]V, len(uris))
	if len(uris) == 0 {
		return result
	}
	if size < 1 {
		size = len(uris)
	}

	done := 0
	for _, slice := range lo.Chunk(uris, size) {
		part, ok := fetch(ctx, slice)
		if !ok {
			log.Warn().
				Int("slice", len(slice)).
				Int("processed", done).
				Int("total", len(uris)).
				Msg("Batched lookup failed, discarding results")
			return map[string]V{}
		}
		for k, v := range part {
			result[k] = v
		}
		done += len(slice)
		if notify != nil {
			notify(done)
		}
	}
	return result
}
