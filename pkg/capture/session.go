package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"tilewalk/pkg/geo"
	"tilewalk/pkg/walk"
)

// ErrInvalidCount is returned for a negative capture count.
var ErrInvalidCount = errors.New("capture count must be >= 0")

// ErrInvalidCap is returned for a non-positive total capture cap.
var ErrInvalidCap = errors.New("total capture cap must be > 0")

// DefaultMaxTotal caps how many captures a walk accumulates across sessions.
const DefaultMaxTotal = 100

// Compositor produces the composite raster for one center tile.
type Compositor interface {
	Composite(ctx context.Context, center geo.Tile, gridSize int) (*image.RGBA, error)
}

// Config holds the per-session scalars.
type Config struct {
	Zoom        geo.Zoom
	GridSize    int
	MinInterval time.Duration // pacing between captures, not between tiles
	MaxTotal    int           // cross-session cap on NextIndex; default DefaultMaxTotal
	Logger      zerolog.Logger
}

// Session drives paced, strictly sequential capture runs.
type Session struct {
	comp  Compositor
	store Store
	cfg   Config
}

// NewSession validates the configuration and builds a session. Invalid
// configuration is rejected here, never mid-run.
func NewSession(comp Compositor, store Store, cfg Config) (*Session, error) {
	if err := cfg.Zoom.Validate(); err != nil {
		return nil, err
	}
	if cfg.GridSize < 1 {
		return nil, fmt.Errorf("grid size must be >= 1, got %d", cfg.GridSize)
	}
	if cfg.MinInterval < 0 {
		return nil, fmt.Errorf("pacing interval must be >= 0, got %v", cfg.MinInterval)
	}
	if cfg.MaxTotal == 0 {
		cfg.MaxTotal = DefaultMaxTotal
	}
	if cfg.MaxTotal < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCap, cfg.MaxTotal)
	}
	return &Session{comp: comp, store: store, cfg: cfg}, nil
}

// Run draws up to count positions from a fresh walk over state and captures
// each in order. The walk starts at the anchor itself, so the first capture
// after a re-anchor reproduces the anchor location.
//
// Run returns the updated NextIndex in every case. Cancellation is not an
// error: the in-flight capture completes and persists, the loop stops, and
// already-written files are never rolled back. Only persistence and
// projection failures abort the run with an error.
func (s *Session) Run(ctx context.Context, state WalkState, count int) (int, error) {
	if count < 0 {
		return state.NextIndex, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	w, err := walk.New(state.Anchor, state.StepMeters, state.Direction)
	if err != nil {
		return state.NextIndex, err
	}

	log := s.cfg.Logger.With().
		Float64("anchor_lat", state.Anchor.Lat).
		Float64("anchor_lon", state.Anchor.Lon).
		Str("direction", state.Direction.String()).
		Logger()

	for captured := 0; captured < count; captured++ {
		if state.NextIndex >= s.cfg.MaxTotal {
			log.Info().Int("cap", s.cfg.MaxTotal).Msg("total capture cap reached")
			break
		}
		if ctx.Err() != nil {
			log.Info().Int("next_index", state.NextIndex).Msg("capture run canceled")
			return state.NextIndex, nil
		}
		if captured > 0 {
			if !s.pace(ctx) {
				log.Info().Int("next_index", state.NextIndex).Msg("capture run canceled during pacing")
				return state.NextIndex, nil
			}
		}

		pos := w.Next()
		req := Request{
			Position:      pos,
			Zoom:          s.cfg.Zoom,
			SequenceIndex: state.NextIndex + 1,
		}

		center, err := geo.TileAt(pos, s.cfg.Zoom)
		if err != nil {
			// The walk left the projectable domain (e.g. marched past a pole).
			return state.NextIndex, fmt.Errorf("capture %d: %w", req.SequenceIndex, err)
		}

		img, err := s.comp.Composite(ctx, center, s.cfg.GridSize)
		if err != nil {
			return state.NextIndex, fmt.Errorf("capture %d: composite: %w", req.SequenceIndex, err)
		}

		path, err := s.store.Save(req, img)
		if err != nil {
			return state.NextIndex, fmt.Errorf("capture %d: %w", req.SequenceIndex, err)
		}
		state.NextIndex++

		log.Info().
			Int("seq", req.SequenceIndex).
			Float64("lat", pos.Lat).
			Float64("lon", pos.Lon).
			Str("path", path).
			Msg("capture saved")
	}

	return state.NextIndex, nil
}

// pace blocks for the configured minimum interval between captures.
// Returns false if the context was canceled while waiting.
func (s *Session) pace(ctx context.Context) bool {
	if s.cfg.MinInterval <= 0 {
		return true
	}
	t := time.NewTimer(s.cfg.MinInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
