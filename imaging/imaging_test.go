package imaging

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-screen-monitor/screenshot"
)

func testImage(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestCrop(t *testing.T) {
	img := testImage(200, 100)

	t.Run("inside bounds", func(t *testing.T) {
		out, err := Crop(img, screenshot.Region{X: 10, Y: 20, Width: 50, Height: 30})
		require.NoError(t, err)
		assert.Equal(t, 50, out.Bounds().Dx())
		assert.Equal(t, 30, out.Bounds().Dy())
	})

	t.Run("exact bounds", func(t *testing.T) {
		out, err := Crop(img, screenshot.Region{X: 0, Y: 0, Width: 200, Height: 100})
		require.NoError(t, err)
		assert.Equal(t, img.Bounds().Size(), out.Bounds().Size())
	})

	t.Run("outside bounds", func(t *testing.T) {
		_, err := Crop(img, screenshot.Region{X: 180, Y: 0, Width: 50, Height: 30})
		assert.Error(t, err)
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		_, err := Crop(img, screenshot.Region{X: 0, Y: 0, Width: 0, Height: 30})
		assert.Error(t, err)
	})
}

func TestResizeForModel(t *testing.T) {
	t.Run("downscales longer side to max", func(t *testing.T) {
		out := ResizeForModel(testImage(2000, 1000), 1288)
		assert.Equal(t, 1288, out.Bounds().Dx())
		assert.LessOrEqual(t, out.Bounds().Dy(), 1288)
	})

	t.Run("portrait orientation", func(t *testing.T) {
		out := ResizeForModel(testImage(500, 2000), 640)
		assert.Equal(t, 640, out.Bounds().Dy())
		assert.LessOrEqual(t, out.Bounds().Dx(), 640)
	})

	t.Run("never upscales", func(t *testing.T) {
		img := testImage(300, 200)
		out := ResizeForModel(img, 1288)
		assert.Equal(t, img.Bounds(), out.Bounds())
	})

	t.Run("preserves aspect ratio", func(t *testing.T) {
		out := ResizeForModel(testImage(1600, 800), 800)
		assert.Equal(t, 800, out.Bounds().Dx())
		assert.Equal(t, 400, out.Bounds().Dy())
	})
}

func TestThumbnail(t *testing.T) {
	out := Thumbnail(testImage(1000, 500), 320)
	assert.Equal(t, 320, out.Bounds().Dx())

	small := testImage(100, 50)
	assert.Equal(t, small.Bounds(), Thumbnail(small, 320).Bounds())
}

func TestEncode(t *testing.T) {
	img := testImage(10, 10)

	pngData, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, pngData[:4])

	jpegData, err := EncodeJPEG(img, 70)
	require.NoError(t, err)
	assert.NotEmpty(t, jpegData)
}
