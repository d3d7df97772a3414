// Package geo provides the coordinate math for the capture pipeline:
// metric offsets to degree offsets, and lat/lon to Web-Mercator tile indices.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// MaxZoom is the deepest tile pyramid level accepted by the pipeline.
const MaxZoom = 24

var (
	// ErrLatOutOfRange is returned for latitudes outside [-90, 90].
	ErrLatOutOfRange = errors.New("latitude out of range [-90, 90]")
	// ErrLonOutOfRange is returned for longitudes outside [-180, 180].
	ErrLonOutOfRange = errors.New("longitude out of range [-180, 180]")
	// ErrZoomOutOfRange is returned for zoom levels outside [0, MaxZoom].
	ErrZoomOutOfRange = errors.New("zoom out of range [0, 24]")
	// ErrPolarLatitude is returned when tile math is requested at |lat| >= 90,
	// where the Mercator projection diverges.
	ErrPolarLatitude = errors.New("latitude too close to pole for tile projection")
)

// GeoPoint is a geographic coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Validate rejects non-finite or out-of-range coordinates. Out-of-range
// values are rejected rather than wrapped so that a bad anchor never
// silently walks the far side of the planet.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: %v", ErrLatOutOfRange, p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: %v", ErrLonOutOfRange, p.Lon)
	}
	return nil
}

// Zoom is a tile pyramid depth. Higher means finer detail.
type Zoom int

// Validate rejects zoom levels the tile pyramid cannot serve.
func (z Zoom) Validate() error {
	if z < 0 || z > MaxZoom {
		return fmt.Errorf("%w: %d", ErrZoomOutOfRange, z)
	}
	return nil
}

// Tile identifies one Web-Mercator tile cell.
type Tile struct {
	X    int
	Y    int
	Zoom Zoom
}
