package capture

import "sync"

// StopSignal is a caller-owned request to end a capture early. Stopping is not
// a failure: the loop finishes normally with the frames it already has.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop may be called any number of times.
func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.ch) })
}

func (s *StopSignal) Stopped() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *StopSignal) Done() <-chan struct{} { return s.ch }
