package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/greywire/curvewatch/pkg/compositor"
)

// Viewer implements ebiten.Game over a directory of PPM frames written
// by cmd/curvewatch, advancing one frame per tick the way the teacher's
// bgp-viewer advances its own simulation state per Update call.
type Viewer struct {
	dir  string
	loop bool

	paths []string
	index int
	image *ebiten.Image
}

// NewViewer constructs a Viewer over dir. Call Refresh before running it
// to pick up whatever frames already exist.
func NewViewer(dir string, loop bool) *Viewer {
	return &Viewer{dir: dir, loop: loop}
}

// Refresh rescans dir for PPM files, preserving the current playback
// position when possible.
func (v *Viewer) Refresh() error {
	matches, err := filepath.Glob(filepath.Join(v.dir, "*.ppm"))
	if err != nil {
		return fmt.Errorf("glob %s: %w", v.dir, err)
	}
	sort.Strings(matches)
	v.paths = matches
	if v.index >= len(v.paths) {
		v.index = len(v.paths) - 1
	}
	return nil
}

func (v *Viewer) Update() error {
	if len(v.paths) == 0 {
		return v.Refresh()
	}
	if v.index < len(v.paths)-1 {
		v.index++
	} else if v.loop {
		v.index = 0
	} else {
		// At the tail: check for newly-written frames without
		// resetting playback position.
		before := len(v.paths)
		if err := v.Refresh(); err != nil {
			return err
		}
		if len(v.paths) > before {
			v.index++
		}
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if len(v.paths) == 0 {
		return
	}
	frame, err := v.loadFrame(v.paths[v.index])
	if err != nil {
		return
	}
	if v.image == nil || v.image.Bounds().Dx() != frame.Width || v.image.Bounds().Dy() != frame.Height {
		v.image = ebiten.NewImage(frame.Width, frame.Height)
	}
	v.image.WritePixels(rgbToRGBA(frame.Pix))

	op := &ebiten.DrawImageOptions{}
	sx := float64(screen.Bounds().Dx()) / float64(frame.Width)
	sy := float64(screen.Bounds().Dy()) / float64(frame.Height)
	op.GeoM.Scale(sx, sy)
	screen.DrawImage(v.image, op)
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func (v *Viewer) loadFrame(path string) (compositor.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return compositor.Frame{}, err
	}
	defer f.Close()
	return compositor.ReadPPM(f)
}

func rgbToRGBA(rgb []byte) []byte {
	rgba := make([]byte, len(rgb)/3*4)
	for i, j := 0, 0; i+2 < len(rgb); i, j = i+3, j+4 {
		rgba[j] = rgb[i]
		rgba[j+1] = rgb[i+1]
		rgba[j+2] = rgb[i+2]
		rgba[j+3] = 255
	}
	return rgba
}
