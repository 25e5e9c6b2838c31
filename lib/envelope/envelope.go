// Package envelope is the status channel shared by every asynchronous operation:
// a producer sends any number of Loading and Data envelopes and finishes with
// exactly one terminal envelope, either Error or an idle Loading.
package envelope

import "fmt"

type Kind uint8

const (
	KindLoading Kind = iota + 1
	KindData
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindData:
		return "data"
	case KindError:
		return "error"
	}
	return "invalid-kind"
}

// LoadingState is the payload of a Loading envelope.
// An inactive state marks the end of the operation; Cancelled tells
// whether it ended because the caller asked it to stop.
type LoadingState struct {
	Active    bool
	Progress  float64
	Cancelled bool
}

type Envelope[T any] struct {
	Kind    Kind
	Loading LoadingState
	Data    T
	Message string
}

// Loading reports work in progress. Progress is clamped to [0, 1].
func Loading[T any](progress float64) Envelope[T] {
	if progress < 0 || progress != progress {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	return Envelope[T]{Kind: KindLoading, Loading: LoadingState{Active: true, Progress: progress}}
}

// Idle reports that the operation has completed without error.
func Idle[T any](cancelled bool) Envelope[T] {
	return Envelope[T]{Kind: KindLoading, Loading: LoadingState{Cancelled: cancelled}}
}

func Data[T any](value T) Envelope[T] {
	return Envelope[T]{Kind: KindData, Data: value}
}

func Error[T any](message string) Envelope[T] {
	return Envelope[T]{Kind: KindError, Message: message}
}

// IsTerminal reports whether no further envelope follows e.
func (e Envelope[T]) IsTerminal() bool {
	switch e.Kind {
	case KindError:
		return true
	case KindLoading:
		return !e.Loading.Active
	case KindData:
		return false
	}
	panic(fmt.Sprintf("envelope: unknown kind %d", e.Kind))
}

func (e Envelope[T]) String() string {
	switch e.Kind {
	case KindLoading:
		if !e.Loading.Active {
			if e.Loading.Cancelled {
				return "idle(cancelled)"
			}
			return "idle"
		}
		return fmt.Sprintf("loading(%.2f)", e.Loading.Progress)
	case KindData:
		return fmt.Sprintf("data(%v)", e.Data)
	case KindError:
		return fmt.Sprintf("error(%v)", e.Message)
	}
	return e.Kind.String()
}

// Match calls the handler for the kind of e and returns its result.
// An envelope of unknown kind is a programming error and panics.
func Match[T, R any](
	e Envelope[T],
	loading func(LoadingState) R,
	data func(T) R,
	failed func(message string) R,
) R {
	switch e.Kind {
	case KindLoading:
		return loading(e.Loading)
	case KindData:
		return data(e.Data)
	case KindError:
		return failed(e.Message)
	}
	panic(fmt.Sprintf("envelope: unknown kind %d", e.Kind))
}
