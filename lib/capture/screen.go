package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenSurface is a Surface backed by one of the active displays.
type ScreenSurface struct {
	display int
	bounds  image.Rectangle
}

func NewScreenSurface(display int) (*ScreenSurface, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return nil, fmt.Errorf("display %v not found, %v active", display, n)
	}
	return &ScreenSurface{display: display, bounds: screenshot.GetDisplayBounds(display)}, nil
}

func (s *ScreenSurface) Size() image.Point { return s.bounds.Size() }

// Attached reports whether the display is still connected with the same bounds.
func (s *ScreenSurface) Attached() bool {
	if s.display >= screenshot.NumActiveDisplays() {
		return false
	}
	return screenshot.GetDisplayBounds(s.display) == s.bounds
}

func (s *ScreenSurface) Snapshot(deliver func(*image.RGBA, error)) {
	go func() {
		img, err := screenshot.CaptureRect(s.bounds)
		if err == nil {
			// normalize to surface coordinates
			img.Rect = img.Rect.Sub(img.Rect.Min)
		}
		deliver(img, err)
	}()
}

func (s *ScreenSurface) String() string {
	return fmt.Sprintf("display %v %v", s.display, s.bounds)
}
