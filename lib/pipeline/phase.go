package pipeline

import (
	"fmt"

	"github.com/nvlled/gifburst/lib/cache"
	"github.com/nvlled/gifburst/lib/envelope"
	"github.com/nvlled/gifburst/lib/failure"
)

// Phase is the state of an Orchestrator. The set of phases is closed:
// Idle, Capturing, Encoding, Persisted and Failed.
type Phase interface {
	isPhase()
	String() string
}

// Idle waits for Start. Cancelled is set when the last session was
// stopped before it captured anything.
type Idle struct {
	Cancelled bool
}

type Capturing struct {
	Progress float64
	Frames   int
}

type Encoding struct {
	Frames int
}

type Persisted struct {
	Handle cache.Handle
}

type Failed struct {
	Reason string
	Kind   failure.Kind
}

func (Idle) isPhase()      {}
func (Capturing) isPhase() {}
func (Encoding) isPhase()  {}
func (Persisted) isPhase() {}
func (Failed) isPhase()    {}

func (p Idle) String() string {
	if p.Cancelled {
		return "idle(cancelled)"
	}
	return "idle"
}
func (p Capturing) String() string { return fmt.Sprintf("capturing(%.2f, %v frames)", p.Progress, p.Frames) }
func (p Encoding) String() string  { return fmt.Sprintf("encoding(%v frames)", p.Frames) }
func (p Persisted) String() string { return fmt.Sprintf("persisted(%v, %v bytes)", p.Handle.Path, p.Handle.Size) }
func (p Failed) String() string    { return fmt.Sprintf("failed(%v)", p.Reason) }

// IsActive reports whether a session is running in phase p.
func IsActive(p Phase) bool {
	switch p.(type) {
	case Idle, Persisted, Failed:
		return false
	case Capturing, Encoding:
		return true
	}
	panic(fmt.Sprintf("pipeline: unknown phase %T", p))
}

// canTransition lists the edges of the phase graph.
func canTransition(from, to Phase) bool {
	switch from.(type) {
	case Idle:
		_, ok := to.(Capturing)
		return ok
	case Capturing:
		switch to.(type) {
		case Capturing, Encoding, Failed, Idle:
			return true
		}
		return false
	case Encoding:
		switch to.(type) {
		case Persisted, Failed, Idle:
			return true
		}
		return false
	case Persisted, Failed:
		_, ok := to.(Idle)
		return ok
	}
	panic(fmt.Sprintf("pipeline: unknown phase %T", from))
}

// envelopeOf reports p on the caller facing channel.
func envelopeOf(p Phase) envelope.Envelope[cache.Handle] {
	switch p := p.(type) {
	case Idle:
		return envelope.Idle[cache.Handle](p.Cancelled)
	case Capturing:
		return envelope.Loading[cache.Handle](p.Progress)
	case Encoding:
		return envelope.Loading[cache.Handle](1)
	case Persisted:
		return envelope.Data(p.Handle)
	case Failed:
		return envelope.Error[cache.Handle](p.Reason)
	}
	panic(fmt.Sprintf("pipeline: unknown phase %T", p))
}
