package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"chat-screen-monitor/screenshot"
)

// Crop extracts the region from the captured frame. The rectangle must lie
// fully inside the image bounds; the caller clamps upstream.
func Crop(img image.Image, r screenshot.Region) (image.Image, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("crop: invalid region dimensions: width=%d, height=%d", r.Width, r.Height)
	}
	rect := r.Bounds()
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("crop: region %v outside image bounds %v", rect, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}

// ResizeForModel proportionally downscales so the longer side is at most
// maxSide. It never upscales. Oversized images make the vision endpoint fail
// to decode, so this runs before every model call.
func ResizeForModel(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		return resize.Resize(uint(maxSide), 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, uint(maxSide), img, resize.Lanczos3)
}

// Thumbnail produces a small preview for UI feedback. Never upscales.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return resize.Resize(uint(maxWidth), 0, img, resize.Bilinear)
}

// EncodePNG encodes the image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes the image as JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
