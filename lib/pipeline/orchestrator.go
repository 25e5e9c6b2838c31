// Package pipeline runs capture sessions: capture a burst of frames, encode
// them into a GIF and persist it in the cache, reporting every phase change
// to the caller.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvlled/gifburst/lib/cache"
	"github.com/nvlled/gifburst/lib/capture"
	"github.com/nvlled/gifburst/lib/envelope"
	"github.com/nvlled/gifburst/lib/failure"
	"github.com/nvlled/gifburst/lib/gifenc"
	"github.com/nvlled/gifburst/lib/logger"
	"github.com/nvlled/gifburst/lib/monitoring"
	"github.com/nvlled/gifburst/lib/queue"
	"github.com/nvlled/gifburst/lib/task"
)

var (
	ErrBusy    = failure.New(failure.InvalidInput, "A capture is already in progress.")
	ErrNotIdle = failure.New(failure.InvalidInput, "Discard the current result before starting a new capture.")
)

type Looper interface {
	Run(ctx context.Context, region capture.Region, surface capture.Surface, stop *capture.StopSignal) <-chan envelope.Envelope[capture.FrameSequence]
}

type Encoder interface {
	Encode(frames capture.FrameSequence) (gifenc.Artifact, error)
}

type Store interface {
	Persist(data []byte) (cache.Handle, error)
	Purge() (int, error)
}

type Options struct {
	Loop    Looper
	Encoder Encoder
	Store   Store
	Metrics *monitoring.Metrics
	Log     *logger.Logger
}

// Notification is one phase change of one session.
type Notification struct {
	Session  uint64
	Phase    Phase
	Envelope envelope.Envelope[cache.Handle]
}

// ErrorEvent is a failure reported to the user. Every failure gets a new
// event, identical messages are not merged.
type ErrorEvent struct {
	ID      string
	Message string
	Kind    failure.Kind
	At      time.Time

	seq uint64
}

// Orchestrator runs at most one session at a time. Notifications are queued
// in order and read with Poll or Drain.
type Orchestrator struct {
	loop    Looper
	encoder Encoder
	store   Store
	metrics *monitoring.Metrics
	log     *logger.Logger

	mu      sync.Mutex
	phase   Phase
	session uint64
	stop    *capture.StopSignal
	done    chan struct{}
	purge   *task.Task[int]

	notifications *queue.Queue[Notification]
	errors        map[string]ErrorEvent
	errorSeq      uint64
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Loop == nil || opts.Encoder == nil || opts.Store == nil {
		return nil, errors.New("pipeline needs a loop, an encoder and a store")
	}
	return &Orchestrator{
		loop:          opts.Loop,
		encoder:       opts.Encoder,
		store:         opts.Store,
		metrics:       opts.Metrics,
		log:           logger.OrNop(opts.Log),
		phase:         Idle{},
		notifications: queue.New[Notification](32),
		errors:        make(map[string]ErrorEvent),
	}, nil
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Start begins a new session in the background and returns its id. ctx
// bounds the whole session: once it ends the session is abandoned and
// nothing is persisted. Use Stop to end the capture early and keep the frames.
func (o *Orchestrator) Start(ctx context.Context, region capture.Region, surface capture.Surface) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if IsActive(o.phase) {
		return 0, ErrBusy
	}
	if _, idle := o.phase.(Idle); !idle {
		return 0, ErrNotIdle
	}

	o.session++
	id := o.session
	stop := capture.NewStopSignal()
	done := make(chan struct{})
	o.stop, o.done = stop, done
	o.setPhase(Capturing{})

	log := o.log.Extend(o.log.With().Uint64("session", id))
	log.Info().Str("region", region.String()).Msg("session started")

	go o.run(ctx, id, region, surface, stop, o.purge, done, log)
	return id, nil
}

// Stop asks the running capture to finish early. The frames captured so
// far are still encoded. It is a no-op when nothing is capturing.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	stop := o.stop
	o.mu.Unlock()
	if stop != nil {
		stop.Stop()
	}
}

// Discard returns a finished session to Idle. Discarding a persisted
// artifact purges the cache in the background; the next session will not
// persist before that purge is over.
func (o *Orchestrator) Discard() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.phase.(type) {
	case Idle:
		return nil
	case Capturing, Encoding:
		return ErrBusy
	case Persisted:
		o.purge = task.Go(o.purgeCache)
	}
	o.setPhase(Idle{})
	return nil
}

func (o *Orchestrator) purgeCache() (int, error) {
	removed, err := o.store.Purge()
	o.metrics.Purged(removed, err)
	if err != nil {
		o.log.Warn().Err(err).Int("removed", removed).Msg("cache purge incomplete")
	}
	return removed, nil
}

// Wait blocks until the current session has finished and returns the
// resulting phase.
func (o *Orchestrator) Wait(ctx context.Context) (Phase, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return o.Phase(), ctx.Err()
		}
	}
	return o.Phase(), nil
}

// WaitPurge blocks until the last scheduled cache purge is over.
func (o *Orchestrator) WaitPurge(ctx context.Context) error {
	o.mu.Lock()
	purge := o.purge
	o.mu.Unlock()
	if purge == nil {
		return nil
	}
	_, err := purge.Await(ctx)
	return err
}

func (o *Orchestrator) Poll() (Notification, bool) { return o.notifications.Pop() }

func (o *Orchestrator) Drain() []Notification { return o.notifications.Drain() }

// ErrorEvents returns the pending error events, oldest first.
func (o *Orchestrator) ErrorEvents() []ErrorEvent {
	o.mu.Lock()
	defer o.mu.Unlock()

	events := make([]ErrorEvent, 0, len(o.errors))
	for _, event := range o.errors {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].seq < events[j].seq })
	return events
}

// DismissErrorEvent removes one event and reports whether it was pending.
func (o *Orchestrator) DismissErrorEvent(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.errors[id]
	delete(o.errors, id)
	return ok
}

func (o *Orchestrator) ClearErrorEvents() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = make(map[string]ErrorEvent)
}

// setPhase must be called with o.mu held.
func (o *Orchestrator) setPhase(next Phase) {
	if !canTransition(o.phase, next) {
		o.log.Error().Str("from", o.phase.String()).Str("to", next.String()).Msg("invalid phase transition")
		return
	}
	o.phase = next
	o.notifications.Push(Notification{Session: o.session, Phase: next, Envelope: envelopeOf(next)})
}

// transition moves session id to next, ignoring stale sessions.
func (o *Orchestrator) transition(id uint64, next Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id != o.session {
		return
	}
	o.setPhase(next)
}

func (o *Orchestrator) fail(id uint64, err error, fallback string, log *logger.Logger) {
	reason := failure.Message(err, fallback)
	kind := failure.KindOf(err)
	entry := log.Error().Err(err).Str("kind", kind.String())
	var detailed *failure.Error
	if errors.As(err, &detailed) {
		entry = entry.Str("detail", detailed.Detail())
	}
	entry.Msg("session failed")

	o.mu.Lock()
	defer o.mu.Unlock()
	if id != o.session {
		return
	}
	o.errorSeq++
	event := ErrorEvent{ID: uuid.NewString(), Message: reason, Kind: kind, At: time.Now(), seq: o.errorSeq}
	o.errors[event.ID] = event
	o.setPhase(Failed{Reason: reason, Kind: kind})
	o.metrics.SessionFinished(monitoring.OutcomeFailed)
}

// abandon ends session id without a result. Cancellation is not a failure
// and records no error event.
func (o *Orchestrator) abandon(id uint64) {
	o.transition(id, Idle{Cancelled: true})
	o.metrics.SessionFinished(monitoring.OutcomeEmpty)
}

func (o *Orchestrator) finish(id uint64, done chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id == o.session {
		o.stop = nil
	}
	close(done)
}

func (o *Orchestrator) run(
	ctx context.Context,
	id uint64,
	region capture.Region,
	surface capture.Surface,
	stop *capture.StopSignal,
	purge *task.Task[int],
	done chan struct{},
	log *logger.Logger,
) {
	defer o.finish(id, done)

	frames, cause := o.capture(ctx, id, region, surface, stop)
	if cause != nil {
		o.fail(id, cause, capture.ErrCaptureFrames.Message, log)
		return
	}
	if ctx.Err() != nil || len(frames) == 0 {
		log.Info().Int("frames", len(frames)).Bool("aborted", ctx.Err() != nil).Msg("session ended without a gif")
		o.abandon(id)
		return
	}

	o.transition(id, Encoding{Frames: len(frames)})
	start := time.Now()
	artifact, err := o.encoder.Encode(frames)
	o.metrics.Encoded(time.Since(start))
	if err != nil {
		o.fail(id, err, gifenc.ErrEncode.Message, log)
		return
	}

	if purge != nil {
		if _, err := purge.Await(ctx); err != nil {
			log.Info().Err(err).Msg("session abandoned while waiting for the cache")
			o.abandon(id)
			return
		}
	}
	if ctx.Err() != nil {
		log.Info().Int("frames", len(frames)).Msg("session abandoned after encoding")
		o.abandon(id)
		return
	}

	handle, err := o.store.Persist(artifact.Bytes)
	if err != nil {
		o.fail(id, err, cache.ErrPersist.Message, log)
		return
	}
	o.metrics.Persisted(handle.Size)
	log.Info().Int("frames", len(frames)).Str("path", handle.Path).Int64("size", handle.Size).Msg("gif persisted")
	o.transition(id, Persisted{Handle: handle})
	o.metrics.SessionFinished(monitoring.OutcomePersisted)
}

// capture drains the loop and returns the last frame sequence it reported,
// or the failure it ended with.
func (o *Orchestrator) capture(
	ctx context.Context,
	id uint64,
	region capture.Region,
	surface capture.Surface,
	stop *capture.StopSignal,
) (capture.FrameSequence, error) {
	var frames capture.FrameSequence
	var failed error
	progress := 0.0

	for env := range o.loop.Run(ctx, region, surface, stop) {
		envelope.Match(env,
			func(state envelope.LoadingState) struct{} {
				if state.Active {
					progress = state.Progress
					o.transition(id, Capturing{Progress: progress, Frames: len(frames)})
				}
				return struct{}{}
			},
			func(seq capture.FrameSequence) struct{} {
				frames = seq
				o.metrics.FrameCaptured()
				o.transition(id, Capturing{Progress: progress, Frames: len(frames)})
				return struct{}{}
			},
			func(message string) struct{} {
				failed = failureOf(message)
				return struct{}{}
			},
		)
	}
	return frames, failed
}

// failureOf restores the error kind of a loop diagnostic.
func failureOf(message string) error {
	for _, known := range []*failure.Error{capture.ErrInvalidArea, capture.ErrInvalidSource, capture.ErrCaptureFrames} {
		if known.Message == message {
			return known
		}
	}
	return failure.New(failure.CaptureFailure, message)
}
