// Package manifest indexes an output directory of captures spatially, by
// inverting the capture filename scheme. It is read-only review tooling:
// the capture pipeline itself never consults it.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/rtree"

	"tilewalk/pkg/geo"
)

// ErrBadName is returned for filenames that do not follow the capture
// naming scheme.
var ErrBadName = errors.New("not a capture filename")

const (
	namePrefix = "cap_"
	nameSuffix = ".png"
)

// Entry is one indexed capture.
type Entry struct {
	SequenceIndex int
	Position      geo.GeoPoint
	Name          string
}

// ParseFilename inverts capture.Filename: cap_<seq>_<lat>_<lon>.png.
func ParseFilename(name string) (Entry, error) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)

	parts := strings.Split(body, "_")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	seq, err := strconv.Atoi(parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: sequence in %q: %v", ErrBadName, name, err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: latitude in %q: %v", ErrBadName, name, err)
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: longitude in %q: %v", ErrBadName, name, err)
	}

	p := geo.GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Entry{}, fmt.Errorf("%w: %q: %v", ErrBadName, name, err)
	}

	return Entry{SequenceIndex: seq, Position: p, Name: name}, nil
}

// BBox is a geographic query window.
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Contains reports whether the point lies inside the box.
func (b BBox) Contains(p geo.GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Index is a spatial index over capture entries. Safe for concurrent use.
type Index struct {
	mu sync.RWMutex
	tr rtree.RTreeG[Entry]
}

// Add inserts one entry.
func (ix *Index) Add(e Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pt := [2]float64{e.Position.Lon, e.Position.Lat}
	ix.tr.Insert(pt, pt, e)
}

// Len returns the number of indexed captures.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tr.Len()
}

// Within returns every capture inside the box, ordered by sequence index.
func (ix *Index) Within(b BBox) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Entry
	ix.tr.Search(
		[2]float64{b.MinLon, b.MinLat},
		[2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, e Entry) bool {
			out = append(out, e)
			return true
		},
	)
	sort.Slice(out, func(i, j int) bool {
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out
}

// Bounds returns the bounding box enclosing all entries, and false when the
// index is empty.
func (ix *Index) Bounds() (BBox, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.tr.Len() == 0 {
		return BBox{}, false
	}
	b := BBox{MinLat: 91, MinLon: 181, MaxLat: -91, MaxLon: -181}
	ix.tr.Scan(func(_, _ [2]float64, e Entry) bool {
		if e.Position.Lat < b.MinLat {
			b.MinLat = e.Position.Lat
		}
		if e.Position.Lat > b.MaxLat {
			b.MaxLat = e.Position.Lat
		}
		if e.Position.Lon < b.MinLon {
			b.MinLon = e.Position.Lon
		}
		if e.Position.Lon > b.MaxLon {
			b.MaxLon = e.Position.Lon
		}
		return true
	})
	return b, true
}

// LoadDir indexes every capture file in a directory, ignoring files that do
// not match the naming scheme.
func LoadDir(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read capture dir: %w", err)
	}

	ix := &Index{}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		e, err := ParseFilename(de.Name())
		if err != nil {
			continue
		}
		ix.Add(e)
	}
	return ix, nil
}
