package capture

import (
	"fmt"
	"image"
	"math"
)

// Region is a capture rectangle relative to the top-left corner of a Surface.
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func RegionOf(r image.Rectangle) Region {
	return Region{
		Left:   float64(r.Min.X),
		Top:    float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}

func (r Region) Validate() error {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidArea
		}
	}
	if math.Round(r.Width) < 1 || math.Round(r.Height) < 1 {
		return ErrInvalidArea
	}
	return nil
}

// Rect truncates the origin and rounds the extents.
func (r Region) Rect() image.Rectangle {
	x, y := int(r.Left), int(r.Top)
	return image.Rect(x, y, x+int(math.Round(r.Width)), y+int(math.Round(r.Height)))
}

func (r Region) String() string {
	return fmt.Sprintf("(%v,%v %vx%v)", r.Left, r.Top, r.Width, r.Height)
}
