package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Region is a screen rectangle in full-screen pixel coordinates, as produced
// by the selection overlay.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the region has positive dimensions.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Bounds converts the region to an image.Rectangle.
func (r Region) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Capturer captures the primary display. The monitor loop depends on this
// interface so tests can substitute canned frames.
type Capturer interface {
	CaptureFullScreen() (*image.RGBA, error)
}

// OSCapturer captures via the OS screenshot facility.
type OSCapturer struct{}

// CaptureFullScreen grabs the entire primary display. Cropping to the
// monitored region happens downstream.
func (OSCapturer) CaptureFullScreen() (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("capture failed: no active displays found")
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("capture failed: empty frame")
	}
	return img, nil
}

// DisplayBounds returns the bounds of the primary display, used to clamp
// selection rectangles before a session starts.
func DisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}
