package compositor

import "math"

// RGB is a plain 3-byte pixel; compositor stays independent of any
// particular image library so it can be tested without a display.
type RGB struct {
	R, G, B byte
}

var (
	colorBlack    = RGB{0, 0, 0}
	colorResidue  = RGB{54, 54, 54}
	colorDimBlue  = RGB{0, 0, 30}
)

// Gradient implements spec.md §4.F's two-segment white->yellow->red ramp
// with a 50% brightness floor: any nonzero intensity is visible against
// black, and volume carries through hue rather than brightness.
func Gradient(intensity, maxIntensity uint64) RGB {
	if intensity == 0 {
		return colorBlack
	}
	denom := maxIntensity
	if denom < 1 {
		denom = 1
	}
	r := float64(intensity) / float64(denom)
	e := clamp(0.5+0.5*r, 0.5, 1.0)
	tt := (e - 0.5) / 0.5

	if tt < 0.5 {
		return RGB{
			R: 255,
			G: 255,
			B: byte(math.Floor(255 * (1 - 2*tt))),
		}
	}
	return RGB{
		R: 255,
		G: byte(math.Floor(255 * (2 - 2*tt))),
		B: 0,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// blend mixes a*aWeight + b*(1-aWeight), matching the 60/40 non-routable
// overlay blend in spec.md §4.F.
func blend(a, b RGB, aWeight float64) RGB {
	mix := func(x, y byte) byte {
		return byte(math.Round(float64(x)*aWeight + float64(y)*(1-aWeight)))
	}
	return RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}
