package failure

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

var errSample = New(EncodeFailure, "sample failed")

func TestSentinelSurvivesWith(t *testing.T) {
	err := fmt.Errorf("outer: %w", errSample.With(io.ErrShortWrite))

	if !errors.Is(err, errSample) {
		t.Error("expected errors.Is to match the sentinel")
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Error("expected errors.Is to reach the cause")
	}
	if KindOf(err) != EncodeFailure {
		t.Errorf("expected: %v | got %v", EncodeFailure, KindOf(err))
	}
	if Message(err, "fallback") != "sample failed" {
		t.Errorf("unexpected message %q", Message(err, "fallback"))
	}
}

func TestDifferentKindDoesNotMatch(t *testing.T) {
	other := New(PersistFailure, "sample failed")
	if errors.Is(other, errSample) {
		t.Error("errors of different kinds must not match")
	}
}

func TestMessageFallback(t *testing.T) {
	if KindOf(io.EOF) != Unknown {
		t.Errorf("expected unknown kind for a plain error")
	}
	if Message(io.EOF, "fallback") != "fallback" {
		t.Errorf("expected fallback message")
	}
}

func TestDetail(t *testing.T) {
	if errSample.Detail() != "sample failed" {
		t.Errorf("unexpected detail %q", errSample.Detail())
	}
	expected := "sample failed: unexpected EOF"
	if actual := errSample.With(io.ErrUnexpectedEOF).Detail(); actual != expected {
		t.Errorf("expected: %v | got %v", expected, actual)
	}
}
