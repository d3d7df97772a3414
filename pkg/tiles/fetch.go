// Package tiles fetches Web-Mercator raster tiles over HTTP and composites
// a square grid of them around a center tile into one image.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	// Tile servers answer with PNG or JPEG depending on layer.
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"tilewalk/pkg/geo"
)

// TileSidePixels is the fixed edge length of one map tile.
const TileSidePixels = 256

// DefaultURLTemplate points at the ArcGIS World Imagery tile pyramid.
// Placeholders: {z}, {y}, {x}.
const DefaultURLTemplate = "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"

// defaultUserAgent mirrors a desktop browser; some tile servers refuse
// requests without one.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

const maxTileBytes = 4 << 20

// ErrTileUnavailable wraps every per-tile failure mode: transport errors,
// non-2xx statuses, and undecodable payloads. Callers treat all of them as
// a missing tile.
var ErrTileUnavailable = errors.New("tile unavailable")

// TileSource fetches a single decoded tile image.
type TileSource interface {
	Fetch(ctx context.Context, t geo.Tile) (image.Image, error)
}

// FetcherConfig configures the HTTP tile fetcher.
type FetcherConfig struct {
	URLTemplate string        // default: DefaultURLTemplate
	UserAgent   string        // default: a desktop browser UA
	Timeout     time.Duration // per-request; default 10s
	Logger      zerolog.Logger
}

// Fetcher retrieves tiles from a templated tile-pyramid URL.
type Fetcher struct {
	client    *http.Client
	template  string
	userAgent string
	log       zerolog.Logger
}

// NewFetcher creates a Fetcher, applying defaults for unset config fields.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		template:  cfg.URLTemplate,
		userAgent: cfg.UserAgent,
		log:       cfg.Logger,
	}
}

// URL expands the tile URL template for one tile.
func (f *Fetcher) URL(t geo.Tile) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Zoom)),
		"{y}", strconv.Itoa(t.Y),
		"{x}", strconv.Itoa(t.X),
	)
	return r.Replace(f.template)
}

// Fetch retrieves and decodes one tile. Any failure is reported as
// ErrTileUnavailable; the composite layer treats it as a blank cell.
func (f *Fetcher) Fetch(ctx context.Context, t geo.Tile) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(t), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTileUnavailable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTileUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxTileBytes))
		return nil, fmt.Errorf("%w: HTTP %d", ErrTileUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTileUnavailable, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTileUnavailable, err)
	}
	return img, nil
}
