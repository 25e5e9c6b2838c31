package capture

import (
	"fmt"
	"image"
	"time"
)

// Frame is one captured raster. The image is owned by the frame and must not
// be modified once captured.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

func (f Frame) Width() int  { return f.Image.Rect.Dx() }
func (f Frame) Height() int { return f.Image.Rect.Dy() }

// FrameSequence holds the frames of one capture session in capture order.
type FrameSequence []Frame

// snapshot returns a view of seq that later appends cannot write into.
func (seq FrameSequence) snapshot() FrameSequence {
	return seq[:len(seq):len(seq)]
}

func (seq FrameSequence) String() string {
	if len(seq) == 0 {
		return "[]"
	}
	return fmt.Sprintf("[%v frames %vx%v]", len(seq), seq[0].Width(), seq[0].Height())
}
