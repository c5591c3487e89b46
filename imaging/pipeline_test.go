package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoicu/catalog-cms/imaging"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestPipeline(t *testing.T) (*imaging.Pipeline, string) {
	t.Helper()

	root := t.TempDir()
	p := imaging.New(
		filepath.Join(root, "large"),
		filepath.Join(root, "medium"),
		filepath.Join(root, "small"),
		85,
	)
	return p, root
}

func variantWidth(t *testing.T, path string) int {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	return img.Bounds().Dx()
}

func TestPipelineProcess(t *testing.T) {
	t.Run("wide image is resized into every tier cap", func(t *testing.T) {
		p, root := newTestPipeline(t)

		rel, err := p.Process(testPNG(t, 3000, 1500))
		require.NoError(t, err)

		assert.Equal(t, 2500, variantWidth(t, filepath.Join(root, "large", rel)))
		assert.Equal(t, 1920, variantWidth(t, filepath.Join(root, "medium", rel)))
		assert.Equal(t, 1200, variantWidth(t, filepath.Join(root, "small", rel)))
	})

	t.Run("small image is never upscaled", func(t *testing.T) {
		p, root := newTestPipeline(t)

		rel, err := p.Process(testPNG(t, 800, 600))
		require.NoError(t, err)

		for _, tier := range []string{"large", "medium", "small"} {
			assert.Equal(t, 800, variantWidth(t, filepath.Join(root, tier, rel)))
		}
	})

	t.Run("medium sized image only shrinks where it exceeds the cap", func(t *testing.T) {
		p, root := newTestPipeline(t)

		rel, err := p.Process(testPNG(t, 2000, 1000))
		require.NoError(t, err)

		assert.Equal(t, 2000, variantWidth(t, filepath.Join(root, "large", rel)))
		assert.Equal(t, 1920, variantWidth(t, filepath.Join(root, "medium", rel)))
		assert.Equal(t, 1200, variantWidth(t, filepath.Join(root, "small", rel)))
	})

	t.Run("paths are year month uuid and unique per upload", func(t *testing.T) {
		fixed := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
		root := t.TempDir()
		p := imaging.New(
			filepath.Join(root, "large"),
			filepath.Join(root, "medium"),
			filepath.Join(root, "small"),
			85,
			imaging.WithClock(func() time.Time { return fixed }),
		)

		first, err := p.Process(testPNG(t, 100, 100))
		require.NoError(t, err)
		second, err := p.Process(testPNG(t, 100, 100))
		require.NoError(t, err)

		pattern := regexp.MustCompile(`^2026/03/[0-9a-f-]{36}\.webp$`)
		assert.Regexp(t, pattern, first)
		assert.Regexp(t, pattern, second)
		assert.NotEqual(t, first, second)
	})

	t.Run("garbage input fails before any file is written", func(t *testing.T) {
		p, root := newTestPipeline(t)

		_, err := p.Process([]byte("definitely not an image"))
		assert.Error(t, err)

		_, statErr := os.Stat(filepath.Join(root, "large"))
		assert.True(t, os.IsNotExist(statErr))
	})
}
