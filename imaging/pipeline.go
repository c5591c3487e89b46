// Package imaging converts uploaded images into WebP variants. Every
// upload produces three files sharing one relative path, each written
// under its own tier root and capped at that tier's maximum width.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp"
)

// Tier widths. Images narrower than the cap are stored as is.
const (
	LargeMaxWidth  = 2500
	MediumMaxWidth = 1920
	SmallMaxWidth  = 1200
)

// AllowedTypes maps the accepted upload MIME types.
var AllowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Pipeline writes WebP variants into three size-tiered directory roots.
type Pipeline struct {
	largeRoot  string
	mediumRoot string
	smallRoot  string
	quality    float32
	now        func() time.Time
}

type Option func(*Pipeline)

// WithClock overrides the timestamp used to build storage paths.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New builds a pipeline over the large, medium and small roots. Quality
// is the WebP encoder quality, 0 to 100.
func New(largeRoot, mediumRoot, smallRoot string, quality float32, opts ...Option) *Pipeline {
	p := &Pipeline{
		largeRoot:  largeRoot,
		mediumRoot: mediumRoot,
		smallRoot:  smallRoot,
		quality:    quality,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type tier struct {
	root     string
	maxWidth int
}

func (p *Pipeline) tiers() []tier {
	return []tier{
		{p.largeRoot, LargeMaxWidth},
		{p.mediumRoot, MediumMaxWidth},
		{p.smallRoot, SmallMaxWidth},
	}
}

// Process decodes data, writes the three variants, and returns the
// relative path shared by all of them, e.g. "2026/08/<uuid>.webp".
func (p *Pipeline) Process(data []byte) (string, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "could not decode image")
	}

	now := p.now().UTC()
	relDir := filepath.Join(
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
	)
	relPath := filepath.Join(relDir, uuid.New().String()+".webp")

	for _, t := range p.tiers() {
		variant := fit(src, t.maxWidth)
		if err := p.write(filepath.Join(t.root, relPath), variant); err != nil {
			return "", err
		}
	}

	return filepath.ToSlash(relPath), nil
}

// fit scales src down to maxWidth using Lanczos resampling, keeping the
// aspect ratio. Smaller images pass through untouched.
func fit(src image.Image, maxWidth int) image.Image {
	if src.Bounds().Dx() <= maxWidth {
		return src
	}
	return imaging.Resize(src, maxWidth, 0, imaging.Lanczos)
}

func (p *Pipeline) write(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not create image directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not create image file")
	}
	defer f.Close()

	if err := webp.Encode(f, img, &webp.Options{Quality: p.quality}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not encode image")
	}

	return nil
}
