// Package artwork downloads the images the server advertises for albums and
// tracks and keeps scaled copies on disk.
package artwork

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// ThumbnailSize is the bounding box of a thumbnail side, in pixels.
type ThumbnailSize int

const (
	// ThumbSmall is used for list views.
	ThumbSmall ThumbnailSize = 150
	// ThumbMedium is used for grid views.
	ThumbMedium ThumbnailSize = 300
	// ThumbLarge is used for the now playing view.
	ThumbLarge ThumbnailSize = 500
)

// Thumbnail describes a generated file.
type Thumbnail struct {
	Path   string
	Width  int
	Height int
	Size   int64
}

// Thumbnailer writes JPEG thumbnails into a directory.
type Thumbnailer struct {
	dir  string
	size ThumbnailSize
}

// NewThumbnailer creates a thumbnailer writing into dir.
func NewThumbnailer(dir string, size ThumbnailSize) *Thumbnailer {
	if size <= 0 {
		size = ThumbLarge
	}
	return &Thumbnailer{dir: dir, size: size}
}

// FileName returns the thumbnail file name used for key.
func (g *Thumbnailer) FileName(key string) string {
	sum := md5.Sum([]byte(key))
	return fmt.Sprintf("%s_%d.jpg", hex.EncodeToString(sum[:]), g.size)
}

// Generate decodes data and stores a thumbnail for key. An existing thumbnail
// is reused.
func (g *Thumbnailer) Generate(data []byte, key string) (Thumbnail, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return Thumbnail{}, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	thumbPath := filepath.Join(g.dir, g.FileName(key))
	if info, err := os.Stat(thumbPath); err == nil {
		return g.describe(thumbPath, info.Size())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to decode image: %w", err)
	}

	log.Debug().
		Str("key", key).
		Str("format", format).
		Int("size", int(g.size)).
		Msg("Generating thumbnail")

	thumb := resize(img, int(g.size))

	// Write then rename, so readers never see a partial file.
	tmp, err := os.CreateTemp(g.dir, "thumb-*.tmp")
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := jpeg.Encode(tmp, thumb, &jpeg.Options{Quality: 85}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Thumbnail{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Thumbnail{}, err
	}
	if err := os.Rename(tmp.Name(), thumbPath); err != nil {
		os.Remove(tmp.Name())
		return Thumbnail{}, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	info, err := os.Stat(thumbPath)
	if err != nil {
		return Thumbnail{}, err
	}
	b := thumb.Bounds()
	return Thumbnail{Path: thumbPath, Width: b.Dx(), Height: b.Dy(), Size: info.Size()}, nil
}

func (g *Thumbnailer) describe(path string, size int64) (Thumbnail, error) {
	f, err := os.Open(path)
	if err != nil {
		return Thumbnail{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return Thumbnail{Path: path, Width: cfg.Width, Height: cfg.Height, Size: size}, nil
}

// Clear deletes every thumbnail of this size and returns how many were
// removed. A missing directory holds nothing to clear.
func (g *Thumbnailer) Clear() (int, error) {
	paths, err := filepath.Glob(filepath.Join(g.dir, fmt.Sprintf("*_%d.jpg", g.size)))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// resize scales src to fit within maxSize, keeping the aspect ratio. Smaller
// images are not enlarged.
func resize(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= maxSize && srcH <= maxSize {
		dst := image.NewRGBA(image.Rect(0, 0, srcW, srcH))
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
		return dst
	}

	var newW, newH int
	if srcW > srcH {
		newW = maxSize
		newH = int(float64(srcH) * float64(maxSize) / float64(srcW))
	} else {
		newH = maxSize
		newW = int(float64(srcW) * float64(maxSize) / float64(srcH))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
