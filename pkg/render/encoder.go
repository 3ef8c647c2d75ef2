package render

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Encoder wraps an ffmpeg subprocess fed raw RGBA frames on stdin,
// mirroring cmd/bgp-streamer/main.go's initFFmpeg. curvewatch is a batch
// tool, not a 24/7 stream, so unlike the teacher there's no VA-API or
// VideoToolbox hardware-encoder probing here — software libx264 only.
type Encoder struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewEncoder starts ffmpeg writing to outputPath, expecting width x
// height raw RGBA frames at fps on stdin. bitrate is derived by the
// caller from target_video_duration and the observed frame count
// (spec.md §6).
func NewEncoder(outputPath string, width, height, fps int, bitrate string) (*Encoder, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-b:v", bitrate,
		"-g", "60",
		"-preset", "veryfast",
		outputPath,
	}
	cmd := exec.Command("ffmpeg", args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("render: ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("render: ffmpeg start: %w", err)
	}
	return &Encoder{cmd: cmd, stdin: stdin}, nil
}

// Bitrate derives a target -b:v value from target_video_duration and the
// observed frame count (spec.md §6): fps = frameCount/targetDuration, and
// bitrate scales linearly off autoscale's 3 FPS baseline at 4 Mbps, so a
// denser encode (more frames squeezed into the same target length) gets a
// proportionally higher bitrate rather than a fixed one that would blur
// out the extra motion.
func Bitrate(targetDurationSeconds, frameCount int) string {
	const baselineKbps = 4000
	const baselineFPS = 3.0
	if frameCount == 0 || targetDurationSeconds <= 0 {
		return fmt.Sprintf("%dk", baselineKbps)
	}
	fps := float64(frameCount) / float64(targetDurationSeconds)
	kbps := int(baselineKbps * fps / baselineFPS)
	if kbps < 500 {
		kbps = 500
	}
	if kbps > 25000 {
		kbps = 25000
	}
	return fmt.Sprintf("%dk", kbps)
}

// WriteFrame writes one raw RGBA frame to ffmpeg's stdin. A write error
// here is an EncoderFailure warning upstream (spec.md §7): it never
// aborts the run, since PPM frames on disk are independent of encoding
// success.
func (e *Encoder) WriteFrame(rgba []byte) error {
	_, err := e.stdin.Write(rgba)
	return err
}

// Close closes ffmpeg's stdin and waits for the subprocess to exit. A
// non-zero exit is reported as an error for the caller to log as an
// EncoderFailure; it is never fatal to the run.
func (e *Encoder) Close() error {
	if err := e.stdin.Close(); err != nil {
		return fmt.Errorf("render: close ffmpeg stdin: %w", err)
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("render: ffmpeg exited non-zero: %w", err)
	}
	return nil
}
