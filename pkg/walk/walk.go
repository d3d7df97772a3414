// Package walk produces the ordered positions of a directional ground walk:
// an anchor point advanced one fixed metric step at a time along a single
// compass direction.
package walk

import (
	"errors"
	"fmt"
	"strings"

	"tilewalk/pkg/geo"
)

// ErrInvalidStep is returned for a non-positive step size.
var ErrInvalidStep = errors.New("step must be positive meters")

// ErrUnknownDirection is returned by ParseDirection for unrecognized input.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is one of the four cardinal walk directions.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// ParseDirection maps a case-insensitive direction name to its Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n":
		return North, nil
	case "south", "s":
		return South, nil
	case "east", "e":
		return East, nil
	case "west", "w":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Walker is a pull-based, unbounded position sequence. The first Next call
// returns the anchor itself; each later call advances by one step delta.
//
// The per-step delta is computed once from the anchor latitude, not
// recomputed as the walk moves. That is a deliberate local-linear
// approximation: it keeps steps exactly uniform in degrees and is accurate
// only for short total excursions.
type Walker struct {
	pos     geo.GeoPoint
	dLat    float64
	dLon    float64
	started bool
}

// New creates a Walker from an anchor, a step size in meters, and a
// direction. The anchor and step are validated up front; a Walker is never
// constructed in a state that can emit invalid positions.
func New(anchor geo.GeoPoint, stepMeters float64, dir Direction) (*Walker, error) {
	if err := anchor.Validate(); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	if stepMeters <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, stepMeters)
	}

	dLat, dLon := geo.MetersToDegrees(anchor.Lat, stepMeters)

	w := &Walker{pos: anchor}
	switch dir {
	case North:
		w.dLat = dLat
	case South:
		w.dLat = -dLat
	case East:
		w.dLon = dLon
	case West:
		w.dLon = -dLon
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	return w, nil
}

// Next returns the next position of the walk. The sequence is infinite;
// restart by constructing a new Walker with the same anchor.
func (w *Walker) Next() geo.GeoPoint {
	if !w.started {
		w.started = true
		return w.pos
	}
	w.pos.Lat += w.dLat
	w.pos.Lon += w.dLon
	return w.pos
}
