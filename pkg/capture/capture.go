// Package capture runs bounded, resumable capture sessions: it walks
// positions, composites a tile grid per position, and persists the results
// under index-and-coordinate-derived names.
package capture

import (
	"fmt"

	"tilewalk/pkg/geo"
	"tilewalk/pkg/walk"
)

// WalkState is the resumable state of a directional capture walk. NextIndex
// is the count of captures already persisted (0-based); anchor, step, and
// direction are replaced wholesale when a human re-anchors, never mutated
// in place.
type WalkState struct {
	Anchor     geo.GeoPoint
	StepMeters float64
	Direction  walk.Direction
	NextIndex  int
}

// Request describes one capture at one walk position. SequenceIndex is the
// 1-based index embedded in the output filename.
type Request struct {
	Position      geo.GeoPoint
	Zoom          geo.Zoom
	SequenceIndex int
}

// Filename returns the canonical output name for a capture:
// cap_<seq:03d>_<lat:.6f>_<lon:.6f>.png. Indices grow monotonically within
// and across sessions, so no two captures ever share a name.
func Filename(r Request) string {
	return fmt.Sprintf("cap_%03d_%.6f_%.6f.png", r.SequenceIndex, r.Position.Lat, r.Position.Lon)
}
