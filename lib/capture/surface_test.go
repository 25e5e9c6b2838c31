package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"
)

// fakeSurface paints every snapshot with a solid color and can be told to
// fail on a given snapshot (1-based).
type fakeSurface struct {
	mu       sync.Mutex
	size     image.Point
	color    color.RGBA
	failOn   int
	detached bool
	silent   bool
	calls    int
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{size: image.Pt(w, h), color: color.RGBA{200, 40, 40, 255}}
}

func (s *fakeSurface) Size() image.Point { return s.size }
func (s *fakeSurface) Attached() bool    { return !s.detached }

func (s *fakeSurface) Snapshot(deliver func(*image.RGBA, error)) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.silent {
		return
	}
	if s.failOn > 0 && call >= s.failOn {
		go deliver(nil, errors.New("copy failed"))
		return
	}
	img := image.NewRGBA(image.Rectangle{Max: s.size})
	for y := 0; y < s.size.Y; y++ {
		for x := 0; x < s.size.X; x++ {
			img.SetRGBA(x, y, s.color)
		}
	}
	go deliver(img, nil)
}

func (s *fakeSurface) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gradientSurface delivers a snapshot whose pixel at (x, y) encodes its coordinates.
type gradientSurface struct {
	size image.Point
}

func (s gradientSurface) Size() image.Point { return s.size }
func (s gradientSurface) Attached() bool    { return true }

func (s gradientSurface) Snapshot(deliver func(*image.RGBA, error)) {
	img := image.NewRGBA(image.Rectangle{Max: s.size})
	for y := 0; y < s.size.Y; y++ {
		for x := 0; x < s.size.X; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	deliver(img, nil)
}

// logicalClock is a Sleeper that advances virtual time instantly.
type logicalClock struct {
	mu      sync.Mutex
	elapsed time.Duration
	onSleep func(n int)
	sleeps  int
}

func (c *logicalClock) Sleep(ctx context.Context, d time.Duration, stop <-chan struct{}) error {
	c.mu.Lock()
	c.sleeps++
	n := c.sleeps
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	default:
	}

	c.mu.Lock()
	c.elapsed += d
	c.mu.Unlock()
	return nil
}

func (c *logicalClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}
