package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	// DefaultRate is the number of downloads started per second.
	DefaultRate = 4

	// DefaultMaxBytes caps one downloaded image.
	DefaultMaxBytes = 8 << 20

	downloadTimeout = 30 * time.Second
)

var (
	// ErrTooLarge is returned for images above the size cap.
	ErrTooLarge = errors.New("image too large")

	// ErrNotImage is returned when the server did not send an image.
	ErrNotImage = errors.New("response is not an image")
)

// Downloader fetches image bytes at a bounded pace. Relative image URIs are
// resolved against the Mopidy server URL.
type Downloader struct {
	http     *resty.Client
	limiter  *rate.Limiter
	base     *url.URL
	maxBytes int
}

// NewDownloader creates a downloader for images served relative to baseURL.
func NewDownloader(baseURL string, perSecond float64) (*Downloader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	return &Downloader{
		http:     resty.New().SetTimeout(downloadTimeout),
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		base:     base,
		maxBytes: DefaultMaxBytes,
	}, nil
}

// Close releases idle connections.
func (d *Downloader) Close() error {
	return d.http.Close()
}

// Resolve returns the absolute URL of imageURI.
func (d *Downloader) Resolve(imageURI string) (string, error) {
	ref, err := url.Parse(imageURI)
	if err != nil {
		return "", fmt.Errorf("invalid image uri %q: %w", imageURI, err)
	}
	return d.base.ResolveReference(ref).String(), nil
}

// Download waits for its turn and fetches imageURI.
func (d *Downloader) Download(ctx context.Context, imageURI string) ([]byte, error) {
	target, err := d.Resolve(imageURI)
	if err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	res, err := d.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", target, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("download %s: HTTP %d", target, res.StatusCode())
	}

	ct := res.Header().Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	data := res.Bytes()
	if len(data) > d.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	return data, nil
}
