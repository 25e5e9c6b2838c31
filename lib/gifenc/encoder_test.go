package gifenc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"testing"
	"time"

	"github.com/nvlled/gifburst/lib/capture"
	"github.com/nvlled/gifburst/lib/failure"
)

func solidFrame(w, h int, c color.RGBA) capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return capture.Frame{Image: img}
}

func stripedFrame(w, h, shift int) capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8((x + shift) * 16), uint8(y * 16), 0x80, 0xff})
		}
	}
	return capture.Frame{Image: img}
}

func testFrames() capture.FrameSequence {
	return capture.FrameSequence{
		stripedFrame(10, 20, 0),
		stripedFrame(10, 20, 1),
		stripedFrame(10, 20, 2),
		stripedFrame(10, 20, 3),
	}
}

func newTestEncoder(t *testing.T, opts Options) *Encoder {
	t.Helper()
	enc, err := New(opts)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	return enc
}

func TestEncodeFraming(t *testing.T) {
	enc := newTestEncoder(t, Options{Delay: 250 * time.Millisecond})

	artifact, err := enc.Encode(testFrames())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(artifact.Bytes, []byte("GIF89a")) {
		t.Errorf("expected GIF89a header, got %q", artifact.Bytes[:6])
	}
	if last := artifact.Bytes[artifact.Size()-1]; last != 0x3b {
		t.Errorf("expected: %#x | got %#x", 0x3b, last)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := newTestEncoder(t, Options{Delay: 100 * time.Millisecond})
	a, err := enc.Encode(testFrames())
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.Encode(testFrames())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes, b.Bytes) {
		t.Error("same frames must encode to the same bytes")
	}
}

func TestEncodeDecodes(t *testing.T) {
	for _, mode := range []PaletteMode{PaletteMedianCut, PalettePalgen} {
		for _, dither := range []bool{false, true} {
			enc := newTestEncoder(t, Options{Delay: 250 * time.Millisecond, Palette: mode, Dither: dither})
			artifact, err := enc.Encode(testFrames())
			if err != nil {
				t.Fatalf("%v: %v", mode, err)
			}

			decoded, err := gif.DecodeAll(bytes.NewReader(artifact.Bytes))
			if err != nil {
				t.Fatalf("%v: decode: %v", mode, err)
			}
			if len(decoded.Image) != 4 {
				t.Errorf("%v: expected: %v | got %v", mode, 4, len(decoded.Image))
			}
			if decoded.Config.Width != 10 || decoded.Config.Height != 20 {
				t.Errorf("%v: expected: 10x20 | got %vx%v", mode, decoded.Config.Width, decoded.Config.Height)
			}
			if decoded.LoopCount != 0 {
				t.Errorf("%v: expected: %v | got %v", mode, 0, decoded.LoopCount)
			}
			global, ok := decoded.Config.ColorModel.(color.Palette)
			if !ok || len(global) == 0 {
				t.Fatalf("%v: expected a global color table, got %T", mode, decoded.Config.ColorModel)
			}
			for i := range decoded.Image {
				if decoded.Delay[i] != 25 {
					t.Errorf("%v: frame %v: expected delay %v | got %v", mode, i, 25, decoded.Delay[i])
				}
				if decoded.Disposal[i] != gif.DisposalBackground {
					t.Errorf("%v: frame %v: expected: %v | got %v", mode, i, gif.DisposalBackground, decoded.Disposal[i])
				}
				if len(decoded.Image[i].Palette) != len(global) {
					t.Errorf("%v: frame %v: expected the global table, got %v colors", mode, i, len(decoded.Image[i].Palette))
				}
				if decoded.Image[i].Bounds() != image.Rect(0, 0, 10, 20) {
					t.Errorf("%v: frame %v: unexpected bounds %v", mode, i, decoded.Image[i].Bounds())
				}
			}
		}
	}
}

func TestEncodeSolidColorRoundTrip(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	enc := newTestEncoder(t, Options{Delay: 40 * time.Millisecond, LoopCount: 3})

	artifact, err := enc.Encode(capture.FrameSequence{solidFrame(300, 4, red), solidFrame(300, 4, red)})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := gif.DecodeAll(bytes.NewReader(artifact.Bytes))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.LoopCount != 3 {
		t.Errorf("expected: %v | got %v", 3, decoded.LoopCount)
	}
	if decoded.Delay[0] != 4 {
		t.Errorf("expected: %v | got %v", 4, decoded.Delay[0])
	}
	r, g, b, _ := decoded.Image[0].At(299, 3).RGBA()
	if r>>8 != 0xff || g != 0 || b != 0 {
		t.Errorf("expected red pixel, got %v %v %v", r>>8, g>>8, b>>8)
	}
}

func TestEncodeEmpty(t *testing.T) {
	enc := newTestEncoder(t, Options{})

	artifact, err := enc.Encode(nil)
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected: %v | got %v", ErrNoFrames, err)
	}
	if artifact.Size() != 0 {
		t.Errorf("no artifact expected, got %v bytes", artifact.Size())
	}
	if err.Error() != "You can't build a gif when there are no frames!" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.after {
		return 0, errors.New("disk full")
	}
	w.n += len(p)
	return len(p), nil
}

func TestEncodeWriteFailure(t *testing.T) {
	enc := newTestEncoder(t, Options{})

	err := enc.EncodeTo(&failingWriter{after: 10}, testFrames())
	if !errors.Is(err, ErrEncode) {
		t.Errorf("expected: %v | got %v", ErrEncode, err)
	}
	if failure.KindOf(err) != failure.EncodeFailure {
		t.Errorf("expected encode failure, got %v", failure.KindOf(err))
	}
}

func TestNewRejectsUnknownPalette(t *testing.T) {
	if _, err := New(Options{Palette: "octree"}); err == nil {
		t.Error("expected error for unknown palette mode")
	}
}

func TestPadPalette(t *testing.T) {
	for _, entry := range []struct {
		colors   int
		expected int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 4},
		{17, 32},
		{256, 256},
	} {
		pal := make(color.Palette, entry.colors)
		for i := range pal {
			pal[i] = color.RGBA{uint8(i), 0, 0, 0xff}
		}
		padded := padPalette(pal)
		if len(padded) != entry.expected {
			t.Errorf("%v colors: expected: %v | got %v", entry.colors, entry.expected, len(padded))
		}
		for i := entry.colors; i < len(padded); i++ {
			if padded[i] != (color.RGBA{0, 0, 0, 0xff}) {
				t.Errorf("%v colors: padding entry %v is %v", entry.colors, i, padded[i])
			}
		}
	}
}
