package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/nvlled/gifburst/lib/failure"
	"github.com/nvlled/gifburst/lib/logger"
	"github.com/nvlled/gifburst/lib/task"
	"golang.org/x/image/draw"
)

var (
	ErrInvalidArea   = failure.New(failure.InvalidInput, "Invalid capture area.")
	ErrInvalidSource = failure.New(failure.InvalidInput, "Invalid capture source.")
	ErrSnapshot      = failure.New(failure.CaptureFailure, "An error occurred while taking the snapshot.")
)

// Surface is a live visual source.
//
// Snapshot asks for a copy of the whole surface and returns immediately; deliver
// is called once, from any goroutine, with either an image of Size() pixels or
// an error.
type Surface interface {
	Size() image.Point
	Attached() bool
	Snapshot(deliver func(img *image.RGBA, err error))
}

// Capturer takes single frames from a Surface.
type Capturer struct {
	clock func() time.Time
	log   *logger.Logger
}

func NewCapturer(log *logger.Logger) *Capturer {
	return &Capturer{clock: time.Now, log: logger.OrNop(log)}
}

// Capture snapshots surface and crops the snapshot to region. It waits for the
// snapshot callback or for ctx; a callback arriving after ctx is done is dropped.
// Failures are never retried here.
func (c *Capturer) Capture(ctx context.Context, region Region, surface Surface) (Frame, error) {
	if surface == nil || !surface.Attached() {
		return Frame{}, ErrInvalidSource
	}
	if err := region.Validate(); err != nil {
		return Frame{}, err
	}
	size := surface.Size()
	rect := region.Rect()
	if !rect.In(image.Rect(0, 0, size.X, size.Y)) {
		return Frame{}, ErrInvalidArea
	}

	shot := task.New[*image.RGBA]()
	surface.Snapshot(func(img *image.RGBA, err error) {
		if !shot.Resolve(img, err) {
			c.log.Debug().Msg("dropped duplicate snapshot callback")
		}
	})

	img, err := shot.Await(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Frame{}, err
		}
		return Frame{}, ErrSnapshot.With(err)
	}
	if img == nil || !rect.Add(img.Rect.Min).In(img.Rect) {
		return Frame{}, ErrSnapshot
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Rect, img, rect.Min.Add(img.Rect.Min), draw.Src)

	return Frame{Image: cropped, CapturedAt: c.clock()}, nil
}
