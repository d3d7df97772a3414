// Package anchor parses a slippy-map viewer's state URL back into the
// coordinate triple the human steered it to.
//
// Viewers encode their center as a URL fragment of the form
// "#/<v1>,<v2>,<zoom>[/...]" . Whether v1 is latitude or longitude is a
// property of the viewer, not of this package, so the caller picks the
// order explicitly.
package anchor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tilewalk/pkg/geo"
)

// ErrNoAnchor is returned when the expected fragment or its numeric tokens
// are absent or malformed. Callers should keep their previous anchor.
var ErrNoAnchor = errors.New("map state has no parsable anchor")

// CoordOrder declares which coordinate comes first in the fragment.
type CoordOrder int

const (
	// OrderLatLon reads the fragment as lat,lon,zoom. This is the order
	// OpenAerialMap uses and the canonical default here.
	OrderLatLon CoordOrder = iota
	// OrderLonLat reads the fragment as lon,lat,zoom.
	OrderLonLat
)

// Parse extracts the anchor point and zoom from a map-state URL. Extra
// fragment segments after the coordinate triple and any query string are
// ignored. Out-of-range coordinates are rejected, never wrapped.
func Parse(mapURL string, order CoordOrder) (geo.GeoPoint, geo.Zoom, error) {
	_, frag, ok := strings.Cut(mapURL, "#/")
	if !ok {
		return geo.GeoPoint{}, 0, fmt.Errorf("%w: no #/ fragment in %q", ErrNoAnchor, mapURL)
	}

	// Drop a query string and keep only the first path segment.
	frag, _, _ = strings.Cut(frag, "?")
	frag, _, _ = strings.Cut(frag, "/")

	tokens := strings.Split(frag, ",")
	if len(tokens) < 3 {
		return geo.GeoPoint{}, 0, fmt.Errorf("%w: fragment %q has %d tokens, want 3", ErrNoAnchor, frag, len(tokens))
	}

	vals := make([]float64, 3)
	for i, tok := range tokens[:3] {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return geo.GeoPoint{}, 0, fmt.Errorf("%w: token %q: %v", ErrNoAnchor, tok, err)
		}
		vals[i] = v
	}

	var p geo.GeoPoint
	switch order {
	case OrderLonLat:
		p = geo.GeoPoint{Lat: vals[1], Lon: vals[0]}
	default:
		p = geo.GeoPoint{Lat: vals[0], Lon: vals[1]}
	}
	if err := p.Validate(); err != nil {
		return geo.GeoPoint{}, 0, fmt.Errorf("%w: %v", ErrNoAnchor, err)
	}

	// Viewers report fractional zooms; the tile pyramid wants an integer.
	z := geo.Zoom(math.Floor(vals[2]))
	if err := z.Validate(); err != nil {
		return geo.GeoPoint{}, 0, fmt.Errorf("%w: %v", ErrNoAnchor, err)
	}

	return p, z, nil
}

// FormatState is the inverse of Parse for the canonical lat,lon order:
// it builds the viewer URL centered on the given point.
func FormatState(baseURL string, p geo.GeoPoint, z geo.Zoom) string {
	return fmt.Sprintf("%s#/%v,%v,%d", baseURL, p.Lat, p.Lon, z)
}
