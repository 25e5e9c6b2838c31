package gifenc

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/xyproto/palgen"
)

type PaletteMode string

const (
	PaletteMedianCut PaletteMode = "mediancut"
	PalettePalgen    PaletteMode = "palgen"
)

const maxColors = 256

func (mode PaletteMode) Validate() error {
	switch mode {
	case PaletteMedianCut, PalettePalgen:
		return nil
	}
	return fmt.Errorf("unknown palette mode %q", string(mode))
}

// buildPalette derives the global color table from img. The result has a
// power-of-two length between 2 and 256.
func buildPalette(mode PaletteMode, img image.Image) (color.Palette, error) {
	var pal color.Palette
	switch mode {
	case PaletteMedianCut:
		quantizer := quantize.MedianCutQuantizer{}
		pal = quantizer.Quantize(make(color.Palette, 0, maxColors), img)
	case PalettePalgen:
		generated, err := palgen.Generate(img, maxColors)
		if err != nil {
			return nil, err
		}
		pal = generated
	default:
		return nil, mode.Validate()
	}
	return padPalette(pal), nil
}

// padPalette fills pal with opaque black up to the next power of two.
func padPalette(pal color.Palette) color.Palette {
	if len(pal) > maxColors {
		pal = pal[:maxColors]
	}
	size := 2
	for size < len(pal) {
		size <<= 1
	}
	padded := make(color.Palette, size)
	for i := range padded {
		if i < len(pal) {
			r, g, b, _ := pal[i].RGBA()
			padded[i] = color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xff}
		} else {
			padded[i] = color.RGBA{0, 0, 0, 0xff}
		}
	}
	return padded
}
