package imaging

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
)

const (
	// MaxInputDim is the largest width or height accepted by Preprocess.
	MaxInputDim = 4096

	// TargetWidth is the width small captures are upscaled towards. OCR
	// accuracy degrades sharply on text rendered below this size.
	TargetWidth = 1000

	// MinScale and MaxScale clamp the upscale factor.
	MinScale = 1.5
	MaxScale = 4.0

	// MaxUpscaleDim skips the upscale entirely when the result would
	// exceed this in either dimension.
	MaxUpscaleDim = 3000
)

// StageError reports which pipeline stage rejected the frame.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("preprocess stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Preprocess prepares a captured frame for text recognition. Stages run in a
// fixed order: size check, grayscale conversion, conditional upscale,
// histogram equalization, 3x3 median denoise, 3x3 unsharp. The pipeline is
// deterministic: the same input pixels always produce the same output.
//
// The input is never modified; every stage writes into a fresh buffer.
func Preprocess(src image.Image) (*image.Gray, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &StageError{Stage: "size", Err: fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())}
	}
	if b.Dx() > MaxInputDim || b.Dy() > MaxInputDim {
		return nil, &StageError{Stage: "size",
			Err: fmt.Errorf("image %dx%d exceeds maximum dimension %d", b.Dx(), b.Dy(), MaxInputDim)}
	}

	gray := toGray(src)
	gray = upscale(gray)
	gray = equalize(gray)
	gray = medianDenoise(gray)
	return sharpen(gray), nil
}

// toGray converts any image to 8-bit grayscale using the library's
// luminance weighting.
func toGray(src image.Image) *image.Gray {
	return flatten(imaging.Grayscale(src))
}

// flatten converts an NRGBA image whose channels are already equal into
// *image.Gray by taking the red channel.
func flatten(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride:]
		outRow := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			outRow[x] = srcRow[x*4]
		}
	}
	return out
}

// upscale enlarges images narrower than TargetWidth using Lanczos
// resampling. The scale factor is clamped to [MinScale, MaxScale], and the
// stage is skipped when the result would exceed MaxUpscaleDim.
func upscale(g *image.Gray) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w >= TargetWidth {
		return g
	}

	scale := float64(TargetWidth) / float64(w)
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}

	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw > MaxUpscaleDim || nh > MaxUpscaleDim {
		return g
	}
	return flatten(imaging.Resize(g, nw, nh, imaging.Lanczos))
}

// equalize spreads the gray-level histogram across the full 0-255 range.
// Each value v is remapped to round(255 * cdf(v)) where cdf is the
// cumulative pixel-count distribution. Low-contrast captures (light gray
// text on white) gain most from this.
func equalize(g *image.Gray) *image.Gray {
	// A grayscale image has identical channels, so any one histogram
	// channel carries the full distribution.
	cum := histogram.NewRGBAHistogram(g).R.Cumulative()
	total := cum.Bins[len(cum.Bins)-1]
	if total == 0 {
		return g
	}

	var lut [256]uint8
	for v, count := range cum.Bins {
		lut[v] = uint8(math.Round(255 * float64(count) / float64(total)))
	}

	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i, v := range g.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// medianDenoise replaces each interior pixel with the median of its 3x3
// neighborhood. The one-pixel border ring is copied through untouched, and
// all neighborhood reads come from the input buffer.
func medianDenoise(g *image.Gray) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	copy(out.Pix, g.Pix)
	if w < 3 || h < 3 {
		return out
	}

	var window [9]int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				row := g.Pix[(y+dy)*g.Stride:]
				for dx := -1; dx <= 1; dx++ {
					window[i] = int(row[x+dx])
					i++
				}
			}
			sort.Ints(window[:])
			out.Pix[y*out.Stride+x] = uint8(window[4])
		}
	}
	return out
}

// sharpen applies the unsharp kernel
//
//	 0 -1  0
//	-1  5 -1
//	 0 -1  0
//
// to interior pixels, clamping results to [0,255]. Border pixels are copied
// through unchanged and neighborhood reads come from the input buffer.
func sharpen(g *image.Gray) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	copy(out.Pix, g.Pix)
	if w < 3 || h < 3 {
		return out
	}

	for y := 1; y < h-1; y++ {
		above := g.Pix[(y-1)*g.Stride:]
		row := g.Pix[y*g.Stride:]
		below := g.Pix[(y+1)*g.Stride:]
		for x := 1; x < w-1; x++ {
			v := 5*int(row[x]) - int(row[x-1]) - int(row[x+1]) - int(above[x]) - int(below[x])
			out.Pix[y*out.Stride+x] = clampByte(v)
		}
	}
	return out
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
