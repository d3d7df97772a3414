package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const earthRadiusMeters = 6_371_000.0

// metersPerDegreeLat is the approximate meridional arc length of one degree.
const metersPerDegreeLat = 111_320.0

// poleEpsilon guards the longitude conversion against division blow-up
// where cos(lat) approaches zero.
const poleEpsilon = 1e-12

// MetersToDegrees converts a metric offset at the given latitude into a
// (dLat, dLon) degree offset under a local equirectangular approximation.
// The result is exact enough for short excursions only; it is not geodesic.
// Odd in meters: MetersToDegrees(lat, -m) == -MetersToDegrees(lat, m).
func MetersToDegrees(latDeg, meters float64) (dLat, dLon float64) {
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(latDeg*math.Pi/180)
	dLat = meters / metersPerDegreeLat
	dLon = meters / (metersPerDegreeLon + poleEpsilon)
	return dLat, dLon
}

// TileAt projects a coordinate onto the Web-Mercator tile grid at the given
// zoom. The projection diverges at the poles, so |lat| >= 90 is rejected
// up front along with invalid zooms and longitudes.
func TileAt(p GeoPoint, z Zoom) (Tile, error) {
	if err := z.Validate(); err != nil {
		return Tile{}, err
	}
	if err := p.Validate(); err != nil {
		return Tile{}, err
	}
	if p.Lat <= -90 || p.Lat >= 90 {
		return Tile{}, ErrPolarLatitude
	}
	f := maptile.Fraction(orb.Point{p.Lon, p.Lat}, maptile.Zoom(z))
	n := 1 << z
	return Tile{
		X:    clampTileIndex(int(math.Floor(f[0])), n),
		Y:    clampTileIndex(int(math.Floor(f[1])), n),
		Zoom: z,
	}, nil
}

// clampTileIndex keeps an index inside [0, n). Latitudes beyond the Mercator
// cutoff (~85.05°) and the lon=180 seam project just outside the grid.
func clampTileIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b GeoPoint) float64 {
	lat1r := a.Lat * math.Pi / 180
	lat2r := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
