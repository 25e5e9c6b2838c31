package capture

import (
	"context"
	"errors"
	"time"

	"github.com/nvlled/gifburst/lib/envelope"
	"github.com/nvlled/gifburst/lib/failure"
	"github.com/nvlled/gifburst/lib/framerate"
	"github.com/nvlled/gifburst/lib/logger"
)

var ErrCaptureFrames = failure.New(failure.CaptureFailure, "An error occurred while capturing the bitmaps.")

// Sleeper waits for d. It returns nil when d has elapsed or stop is closed,
// and ctx.Err() when ctx ends first.
type Sleeper func(ctx context.Context, d time.Duration, stop <-chan struct{}) error

type LoopOptions struct {
	Cadence framerate.Cadence
	Sleeper Sleeper
	Log     *logger.Logger
}

// Loop captures frames at a fixed cadence.
type Loop struct {
	capturer *Capturer
	cadence  framerate.Cadence
	sleep    Sleeper
	log      *logger.Logger
}

func NewLoop(capturer *Capturer, opts LoopOptions) (*Loop, error) {
	if capturer == nil {
		return nil, errors.New("capturer must not be nil")
	}
	if err := opts.Cadence.Validate(); err != nil {
		return nil, err
	}
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = defaultSleeper
	}
	return &Loop{
		capturer: capturer,
		cadence:  opts.Cadence,
		sleep:    sleep,
		log:      logger.OrNop(opts.Log),
	}, nil
}

func (l *Loop) Cadence() framerate.Cadence { return l.cadence }

// Run starts a capture session and returns its updates. Every wait of one
// interval is followed by a Loading envelope and a capture; each captured frame
// produces a Data envelope holding all frames so far. The session ends with
// Error on the first failed capture, or with Idle once the cadence's total
// duration has elapsed. Idle(true) means the session ended early because stop
// was signalled or ctx ended; the frames already sent are still valid.
//
// The caller must read the channel until it is closed.
func (l *Loop) Run(ctx context.Context, region Region, surface Surface, stop *StopSignal) <-chan envelope.Envelope[FrameSequence] {
	if stop == nil {
		stop = NewStopSignal()
	}
	out := make(chan envelope.Envelope[FrameSequence])
	go l.run(ctx, region, surface, stop, out)
	return out
}

func (l *Loop) run(ctx context.Context, region Region, surface Surface, stop *StopSignal, out chan<- envelope.Envelope[FrameSequence]) {
	defer close(out)

	if surface == nil || !surface.Attached() {
		out <- envelope.Error[FrameSequence](ErrInvalidSource.Message)
		return
	}
	if err := region.Validate(); err != nil {
		out <- envelope.Error[FrameSequence](failure.Message(err, ErrInvalidArea.Message))
		return
	}

	log := l.log.Extend(l.log.With().Str("region", region.String()))
	log.Debug().Str("cadence", l.cadence.String()).Int("expected", l.cadence.Frames()).Msg("capture started")

	out <- envelope.Loading[FrameSequence](0)

	var frames FrameSequence
	var elapsed time.Duration
	cancelled := false

	for elapsed < l.cadence.Total {
		if stop.Stopped() || ctx.Err() != nil {
			cancelled = true
			break
		}
		if err := l.sleep(ctx, l.cadence.Interval, stop.Done()); err != nil || stop.Stopped() {
			cancelled = true
			break
		}
		elapsed += l.cadence.Interval
		out <- envelope.Loading[FrameSequence](l.cadence.Progress(elapsed))

		frame, err := l.capturer.Capture(ctx, region, surface)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				cancelled = true
				break
			}
			log.Error().Err(err).Int("frames", len(frames)).Msg("capture failed")
			if failure.KindOf(err) == failure.InvalidInput {
				out <- envelope.Error[FrameSequence](failure.Message(err, ErrCaptureFrames.Message))
			} else {
				out <- envelope.Error[FrameSequence](ErrCaptureFrames.Message)
			}
			return
		}

		frames = append(frames, frame)
		out <- envelope.Data(frames.snapshot())
	}

	log.Debug().Int("frames", len(frames)).Bool("cancelled", cancelled).Msg("capture finished")
	out <- envelope.Idle[FrameSequence](cancelled)
}

func defaultSleeper(ctx context.Context, wait time.Duration, stop <-chan struct{}) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	case <-timer.C:
		return nil
	}
}
