package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tilewalk/pkg/geo"
)

// ErrInvalidGrid is returned for a grid size below 1.
var ErrInvalidGrid = errors.New("grid size must be >= 1")

// defaultFanOut bounds concurrent tile fetches within one composite.
const defaultFanOut = 4

// CompositorConfig configures the grid compositor.
type CompositorConfig struct {
	// MaxParallel is the tile-fetch fan-out limit per composite. Default 4.
	MaxParallel int
	Logger      zerolog.Logger
}

// Compositor stitches a square grid of tiles centered on one tile index
// into a single canvas.
type Compositor struct {
	src         TileSource
	maxParallel int
	log         zerolog.Logger
}

// NewCompositor creates a Compositor over the given tile source.
func NewCompositor(src TileSource, cfg CompositorConfig) *Compositor {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultFanOut
	}
	return &Compositor{src: src, maxParallel: cfg.MaxParallel, log: cfg.Logger}
}

// Composite fetches the gridSize-wide square of tiles around center and
// pastes them onto a white canvas of side gridSize*TileSidePixels.
//
// Per-tile failures never abort the composite: the failed cell stays white
// and the error is logged. A fully blank canvas is still a valid result —
// one flaky tile must not lose a whole capture.
//
// Tiles are fetched concurrently up to the fan-out limit. Every tile writes
// to a disjoint canvas region, so the only synchronization needed is the
// group wait.
func (c *Compositor) Composite(ctx context.Context, center geo.Tile, gridSize int) (*image.RGBA, error) {
	if gridSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrid, gridSize)
	}

	side := gridSize * TileSidePixels
	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	half := gridSize / 2

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxParallel)

	for dx := -half; dx <= half; dx++ {
		for dy := -half; dy <= half; dy++ {
			tile := geo.Tile{X: center.X + dx, Y: center.Y + dy, Zoom: center.Zoom}
			// Cell origin on the canvas. For even grid sizes the outermost
			// row and column fall past the edge and are clipped by Draw.
			origin := image.Pt((dx+half)*TileSidePixels, (dy+half)*TileSidePixels)

			g.Go(func() error {
				img, err := c.src.Fetch(ctx, tile)
				if err != nil {
					c.log.Warn().
						Int("x", tile.X).
						Int("y", tile.Y).
						Int("zoom", int(tile.Zoom)).
						Err(err).
						Msg("tile fetch failed, leaving cell blank")
					return nil
				}
				rect := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(TileSidePixels, TileSidePixels))}
				draw.Draw(canvas, rect, img, img.Bounds().Min, draw.Src)
				return nil
			})
		}
	}

	// Workers swallow fetch errors, so the group never fails.
	g.Wait()

	return canvas, nil
}
