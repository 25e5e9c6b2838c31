// Package gifenc turns a captured frame sequence into an animated GIF.
//
// All frames share one global color table derived from the first frame,
// the animation loops LoopCount times (forever when 0), every frame is shown for the same delay and is disposed to the background
// color before the next one is drawn. Encoding is deterministic: the same
// frames always produce the same bytes.
package gifenc

import (
	"bytes"
	"image"
	"io"
	"time"

	"github.com/nvlled/gifburst/lib/capture"
	"github.com/nvlled/gifburst/lib/failure"
	"github.com/nvlled/gifburst/lib/logger"
	gif "github.com/nvlled/gogif"
	"golang.org/x/image/draw"
)

var (
	ErrNoFrames = failure.New(failure.InvalidInput, "You can't build a gif when there are no frames!")
	ErrEncode   = failure.New(failure.EncodeFailure, "An error occurred while building the gif.")
)

type Options struct {
	// Delay is how long each frame is shown. GIF stores it in
	// hundredths of a second.
	Delay time.Duration
	// LoopCount is the number of repetitions, 0 loops forever.
	LoopCount int
	Palette   PaletteMode
	Dither    bool
	Log       *logger.Logger
}

// Artifact is an encoded GIF.
type Artifact struct {
	Bytes []byte
}

func (a Artifact) Size() int { return len(a.Bytes) }

type Encoder struct {
	delayCs   int
	loopCount int
	palette   PaletteMode
	drawer    draw.Drawer
	log       *logger.Logger
}

func New(opts Options) (*Encoder, error) {
	if opts.Palette == "" {
		opts.Palette = PaletteMedianCut
	}
	if err := opts.Palette.Validate(); err != nil {
		return nil, err
	}
	if opts.LoopCount < 0 || opts.LoopCount > 0xffff {
		opts.LoopCount = 0
	}
	delayCs := int(opts.Delay / (10 * time.Millisecond))
	if delayCs > 0xffff {
		delayCs = 0xffff
	}
	var drawer draw.Drawer = draw.Src
	if opts.Dither {
		drawer = draw.FloydSteinberg
	}
	return &Encoder{
		delayCs:   delayCs,
		loopCount: opts.LoopCount,
		palette:   opts.Palette,
		drawer:    drawer,
		log:       logger.OrNop(opts.Log),
	}, nil
}

// Encode returns the GIF for frames. No artifact is returned on error.
func (enc *Encoder) Encode(frames capture.FrameSequence) (Artifact, error) {
	var buf bytes.Buffer
	if err := enc.EncodeTo(&buf, frames); err != nil {
		return Artifact{}, err
	}
	return Artifact{Bytes: buf.Bytes()}, nil
}

// EncodeTo streams the GIF for frames into w. The canvas takes the size of
// the first frame; all frames are expected to have that size.
func (enc *Encoder) EncodeTo(w io.Writer, frames capture.FrameSequence) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	first := frames[0].Image
	if first == nil {
		return ErrNoFrames
	}
	canvas := image.Rect(0, 0, first.Rect.Dx(), first.Rect.Dy())

	pal, err := buildPalette(enc.palette, first)
	if err != nil {
		enc.log.Error().Err(err).Str("palette", string(enc.palette)).Msg("palette generation failed")
		return ErrEncode.With(err)
	}
	encoder := gif.NewStreamEncoder(w, &gif.StreamEncoderOptions{
		LoopCount: enc.loopCount,
		Config:    image.Config{ColorModel: pal, Width: canvas.Dx(), Height: canvas.Dy()},
	})
	for i, frame := range frames {
		paletted := image.NewPaletted(canvas, pal)
		enc.drawer.Draw(paletted, canvas, frame.Image, frame.Image.Rect.Min)
		if err := encoder.Encode(paletted, enc.delayCs, gif.DisposalBackground); err != nil {
			enc.log.Error().Err(err).Int("frame", i).Msg("gif frame failed")
			return ErrEncode.With(err)
		}
	}
	if err := encoder.Close(); err != nil {
		enc.log.Error().Err(err).Int("frames", len(frames)).Msg("gif write failed")
		return ErrEncode.With(err)
	}
	enc.log.Debug().Int("frames", len(frames)).Int("colors", len(pal)).Msg("gif encoded")
	return nil
}
