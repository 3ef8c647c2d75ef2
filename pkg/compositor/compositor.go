// Package compositor implements the deterministic conversion from a
// finalized time bin plus decay/residue state into a pixel grid, per
// spec.md §4.F. It has no I/O and no rendering-library dependency so its
// invariants can be checked without a display; pkg/render is the thin
// ebiten-backed driver that feeds it real bins and writes the result out.
package compositor

import (
	"time"

	"github.com/greywire/curvewatch/pkg/decay"
	"github.com/greywire/curvewatch/pkg/mask"
	"github.com/greywire/curvewatch/pkg/timebin"
)

// timestampStripHeight and timestampStripScale match spec.md §4.F's
// optional timestamp overlay: a fixed 30-pixel strip appended below the
// image, rendered with the 5x7 bitmap font at scale 2.
const (
	timestampStripHeight = 30
	timestampStripScale  = 2
)

// Input bundles everything the compositor needs to render one frame.
type Input struct {
	Dimension     uint32
	Heatmap       []uint64
	MaxIntensity  uint64
	Residue       []uint32   // parallel n^2 grid; nil is treated as all-zero
	Mask          *mask.Mask
	Width, Height int

	// ShowTimestamp appends a 30px strip below the rendered frame
	// stamped with Timestamp, per spec.md §4.F/§6 (the output frame
	// height becomes Height+30).
	ShowTimestamp bool
	Timestamp     time.Time
}

// Frame is the rendered output: a flat row-major RGB pixel grid at
// (Width, Height), ready for pkg/compositor.WritePPM or an ebiten.Image.
type Frame struct {
	Width, Height int
	Pix           []byte // len == Width*Height*3
}

// Render converts in into a centered, colorized pixel grid.
//
// The n x n curve is rendered into the largest centered square that fits
// the requested (Width, Height); pixels outside that square are black.
// Within it, spec.md §4.F's priority order applies per source cell: the
// residue branch (dark gray, when the cell is currently quiet but has ever
// had traffic) wins over both the intensity gradient and the non-routable
// overlay; otherwise the gradient color is used, optionally blended with
// the non-routable dim-blue baseline.
func Render(in Input) Frame {
	n := in.Dimension
	scale := minFloat(float64(in.Width)/float64(n), float64(in.Height)/float64(n))
	scaledSide := int(float64(n) * scale)
	offsetX := (in.Width - scaledSide) / 2
	offsetY := (in.Height - scaledSide) / 2

	frame := Frame{Width: in.Width, Height: in.Height, Pix: make([]byte, in.Width*in.Height*3)}

	for py := 0; py < in.Height; py++ {
		for px := 0; px < in.Width; px++ {
			c := colorBlack
			if inCenteredSquare(px, py, offsetX, offsetY, scaledSide) {
				srcX := int(float64(px-offsetX) / scale)
				srcY := int(float64(py-offsetY) / scale)
				if srcX >= int(n) {
					srcX = int(n) - 1
				}
				if srcY >= int(n) {
					srcY = int(n) - 1
				}
				c = pixelColor(in, uint32(srcX), uint32(srcY))
			}
			idx := (py*in.Width + px) * 3
			frame.Pix[idx] = c.R
			frame.Pix[idx+1] = c.G
			frame.Pix[idx+2] = c.B
		}
	}
	if in.ShowTimestamp {
		frame = appendTimestampStrip(frame, in.Timestamp)
	}
	return frame
}

// appendTimestampStrip grows frame by timestampStripHeight rows and stamps
// the bin_start timestamp (YYYY-MM-DD HH:MM:SS) into the new strip, per
// spec.md §4.F. The strip lives below the original image rather than over
// it, so the PPM header's reported height must also grow (spec.md §6's
// H' = H + 30).
func appendTimestampStrip(frame Frame, ts time.Time) Frame {
	out := Frame{
		Width:  frame.Width,
		Height: frame.Height + timestampStripHeight,
		Pix:    make([]byte, frame.Width*(frame.Height+timestampStripHeight)*3),
	}
	copy(out.Pix, frame.Pix)

	textY := frame.Height + (timestampStripHeight-glyphHeight*timestampStripScale)/2
	DrawText(&out, ts.Format("2006-01-02 15:04:05"), 4, textY, timestampStripScale, RGB{R: 255, G: 255, B: 255})
	return out
}

func inCenteredSquare(px, py, offsetX, offsetY, side int) bool {
	return px >= offsetX && px < offsetX+side && py >= offsetY && py < offsetY+side
}

func pixelColor(in Input, srcX, srcY uint32) RGB {
	i := int(srcY)*int(in.Dimension) + int(srcX)
	intensity := in.Heatmap[i]

	var residueVal uint32
	if in.Residue != nil {
		residueVal = in.Residue[i]
	}

	var nonRoutable bool
	if in.Mask != nil {
		nonRoutable = in.Mask.At(srcX, srcY) == 1
	}

	if intensity == 0 && residueVal > 0 {
		return colorResidue // residue wins over both gradient and overlay
	}

	color := Gradient(intensity, in.MaxIntensity)

	if nonRoutable {
		if intensity == 0 {
			return colorDimBlue
		}
		return blend(color, colorDimBlue, 0.6)
	}
	return color
}

// InputFromBin assembles an Input from a finalized bin plus the run's
// residue map and non-routable mask, flattening the residue grid into the
// same row-major layout as bin.Heatmap. If showTimestamp is set, ts (the
// bin's start time in local time, per the PPM filename convention) is
// stamped into the appended strip.
func InputFromBin(bin *timebin.Bin, residue *decay.ResidueMap, m *mask.Mask, width, height int, showTimestamp bool, ts time.Time) Input {
	n := bin.Dimension
	flat := make([]uint32, int(n)*int(n))
	for y := uint32(0); y < n; y++ {
		for x := uint32(0); x < n; x++ {
			flat[int(y)*int(n)+int(x)] = residue.At(x, y)
		}
	}
	return Input{
		Dimension:     n,
		Heatmap:       bin.Heatmap,
		MaxIntensity:  bin.MaxIntensity,
		Residue:       flat,
		Mask:          m,
		Width:         width,
		Height:        height,
		ShowTimestamp: showTimestamp,
		Timestamp:     ts,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
