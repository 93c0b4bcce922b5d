package artwork

import (
	"context"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/infra/cache"
)

// DefaultMemoryEntries bounds the in-memory path cache.
const DefaultMemoryEntries = 2048

// Index persists which file holds the image of a URI.
type Index interface {
	Put(e cache.Entry) error
	Get(uri string) (cache.Entry, bool, error)
	FindByImageURI(imageURI string) (cache.Entry, bool, error)
	Delete(uri string) error
	Clear() error
}

// Fetcher downloads image bytes.
type Fetcher interface {
	Download(ctx context.Context, imageURI string) ([]byte, error)
}

// Store resolves library URIs to local image files, downloading on demand.
type Store struct {
	index   Index
	fetcher Fetcher
	thumbs  *Thumbnailer
	paths   *lru.Cache[string, string]
}

// NewStore creates a store.
func NewStore(index Index, fetcher Fetcher, thumbs *Thumbnailer) (*Store, error) {
	paths, err := lru.New[string, string](DefaultMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create path cache: %w", err)
	}
	return &Store{index: index, fetcher: fetcher, thumbs: thumbs, paths: paths}, nil
}

// Lookup returns the local file of uri when it is already known.
func (s *Store) Lookup(uri string) (string, bool) {
	if path, ok := s.paths.Get(uri); ok {
		return path, true
	}

	e, ok, err := s.index.Get(uri)
	if err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("Image index lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}
	if _, err := os.Stat(e.FilePath); err != nil {
		log.Debug().Str("uri", uri).Str("path", e.FilePath).Msg("Indexed image file is gone")
		if err := s.index.Delete(uri); err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("Failed to drop stale image entry")
		}
		return "", false
	}

	s.paths.Add(uri, e.FilePath)
	return e.FilePath, true
}

// Fetch stores the image imageURI for uri and returns its local file. Files
// already downloaded for the same image are reused.
func (s *Store) Fetch(ctx context.Context, uri, imageURI string) (string, error) {
	if e, ok, err := s.index.FindByImageURI(imageURI); err == nil && ok {
		if _, statErr := os.Stat(e.FilePath); statErr == nil {
			e.URI = uri
			if err := s.index.Put(e); err != nil {
				log.Warn().Err(err).Str("uri", uri).Msg("Failed to index shared image")
			}
			s.paths.Add(uri, e.FilePath)
			return e.FilePath, nil
		}
	}

	data, err := s.fetcher.Download(ctx, imageURI)
	if err != nil {
		return "", err
	}

	thumb, err := s.thumbs.Generate(data, imageURI)
	if err != nil {
		return "", err
	}

	if err := s.index.Put(cache.Entry{
		URI:      uri,
		ImageURI: imageURI,
		FilePath: thumb.Path,
		Width:    thumb.Width,
		Height:   thumb.Height,
		FileSize: thumb.Size,
	}); err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("Failed to index image")
	}

	s.paths.Add(uri, thumb.Path)
	return thumb.Path, nil
}

// Clear forgets every stored image and deletes the thumbnail files.
func (s *Store) Clear() error {
	if err := s.index.Clear(); err != nil {
		return fmt.Errorf("failed to clear image index: %w", err)
	}
	s.paths.Purge()
	removed, err := s.thumbs.Clear()
	if err != nil {
		return fmt.Errorf("failed to remove thumbnails: %w", err)
	}
	log.Info().Int("files", removed).Msg("Image cache cleared")
	return nil
}
