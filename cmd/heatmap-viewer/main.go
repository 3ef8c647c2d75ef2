// Command heatmap-viewer tails a directory of curvewatch PPM frames and
// plays them back in a window, for eyeballing a run without waiting for
// the ffmpeg encode step.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"
)

var (
	dirFlag         = flag.String("dir", "./frames", "Directory of PPM frames to tail.")
	windowWidthFlag  = flag.Int("window-width", 1280, "Initial window width.")
	windowHeightFlag = flag.Int("window-height", 540, "Initial window height.")
	tpsFlag         = flag.Int("tps", 10, "Frames advanced per second.")
	headlessFlag    = flag.Bool("headless", false, "Run without a local window.")
	loopFlag        = flag.Bool("loop", false, "Loop back to the first frame after the last.")
)

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	v := NewViewer(*dirFlag, *loopFlag)
	if err := v.Refresh(); err != nil {
		log.Printf("warning: initial scan of %s failed: %v", *dirFlag, err)
	}

	ebiten.SetTPS(*tpsFlag)
	if *headlessFlag {
		log.Println("running in headless mode")
		if err := ebiten.RunGame(v); err != nil {
			log.Fatal(err)
		}
		return
	}

	ebiten.SetWindowSize(*windowWidthFlag, *windowHeightFlag)
	ebiten.SetWindowTitle("curvewatch heatmap viewer")
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
