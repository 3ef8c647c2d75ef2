package compositor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// WritePPM writes frame to dir/<prefix>_<YYYYMMDD_HHMMSS>_<NNNN>.ppm in
// binary PPM (P6) form, matching spec.md §4.F's output framing. The
// directory is created if missing, mirroring the teacher's captureFrame
// FrameCaptureDir convention; unlike captureFrame this isn't fired off in
// a background goroutine, since frame order (via seq) is part of the
// encoder's contract with ffmpeg downstream.
func WritePPM(frame Frame, dir, prefix string, ts time.Time, seq int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("compositor: create output dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%04d.ppm", prefix, ts.Format("20060102_150405"), seq)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("compositor: create frame file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", frame.Width, frame.Height); err != nil {
		return "", fmt.Errorf("compositor: write PPM header: %w", err)
	}
	if _, err := w.Write(frame.Pix); err != nil {
		return "", fmt.Errorf("compositor: write PPM body: %w", err)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("compositor: flush PPM file: %w", err)
	}
	return path, nil
}

// ReadPPM decodes a binary P6 PPM stream, the counterpart to WritePPM
// used by cmd/heatmap-viewer to tail a frame directory without shelling
// out to an image library for a format this simple.
func ReadPPM(r io.Reader) (Frame, error) {
	br := bufio.NewReader(r)

	var magic string
	var w, h, maxVal int
	if _, err := fmt.Fscan(br, &magic, &w, &h, &maxVal); err != nil {
		return Frame{}, fmt.Errorf("compositor: read PPM header: %w", err)
	}
	if magic != "P6" {
		return Frame{}, fmt.Errorf("compositor: unsupported PPM magic %q", magic)
	}
	if _, err := br.ReadByte(); err != nil { // the single whitespace byte after maxVal
		return Frame{}, fmt.Errorf("compositor: read PPM header separator: %w", err)
	}

	pix := make([]byte, w*h*3)
	if _, err := io.ReadFull(br, pix); err != nil {
		return Frame{}, fmt.Errorf("compositor: read PPM body: %w", err)
	}
	return Frame{Width: w, Height: h, Pix: pix}, nil
}
