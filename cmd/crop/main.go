// Command crop batch-processes captured PNGs: it cuts fixed pixel margins
// from each edge (browser chrome, attribution bars) and resizes the result
// to a uniform square, writing the output under a separate directory.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tilewalk/pkg/imaging"
)

func main() {
	inDir := flag.String("in", "captures", "Directory of source PNGs")
	outDir := flag.String("out", "cropped", "Directory for processed PNGs")
	left := flag.Int("left", 520, "Pixels cut from the left edge")
	right := flag.Int("right", 80, "Pixels cut from the right edge")
	top := flag.Int("top", 80, "Pixels cut from the top edge")
	bottom := flag.Int("bottom", 200, "Pixels cut from the bottom edge")
	width := flag.Int("width", 1080, "Output width (0 keeps the cropped size)")
	height := flag.Int("height", 1080, "Output height (0 keeps the cropped size)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	insets := imaging.Insets{Left: *left, Right: *right, Top: *top, Bottom: *bottom}
	target := image.Point{X: *width, Y: *height}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", *outDir).Msg("cannot create output directory")
	}

	entries, err := os.ReadDir(*inDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *inDir).Msg("cannot read input directory")
	}

	start := time.Now()
	processed, skipped := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		src := filepath.Join(*inDir, entry.Name())
		dst := filepath.Join(*outDir, entry.Name())
		if err := processOne(src, dst, insets, target); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping")
			skipped++
			continue
		}
		log.Debug().Str("file", entry.Name()).Msg("processed")
		processed++
	}

	log.Info().
		Int("processed", processed).
		Int("skipped", skipped).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Str("out", *outDir).
		Msg("done")
	if processed == 0 && skipped > 0 {
		os.Exit(1)
	}
}

func processOne(src, dst string, in imaging.Insets, target image.Point) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	out, err := imaging.CropResize(img, in, target)
	if err != nil {
		return fmt.Errorf("crop %s: %w", src, err)
	}

	g, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := png.Encode(g, out); err != nil {
		g.Close()
		os.Remove(dst)
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return g.Close()
}
