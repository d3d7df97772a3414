// Package viewer drives a live slippy-map browser session so a human can
// pick the walk anchor: open the map, let the user pan and zoom, then read
// the coordinate triple back out of the page URL.
//
// The browser handle is owned by the caller and reused across capture
// batches; this package never closes it between selections.
package viewer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"tilewalk/pkg/anchor"
	"tilewalk/pkg/geo"
)

// DefaultBaseURL is the slippy-map viewer the reference workflow uses.
const DefaultBaseURL = "https://map.openaerialmap.org/"

const navigateTimeout = 60 * time.Second

// Config configures the interactive viewer.
type Config struct {
	BaseURL string            // default DefaultBaseURL
	Order   anchor.CoordOrder // coordinate order of the viewer's URL fragment

	// ControlURL attaches to an already-running browser (DevTools websocket).
	// Empty launches a local one.
	ControlURL string

	// Headful shows the browser window. Interactive anchoring needs it;
	// headless exists for smoke runs.
	Headful bool

	// Prompt is where human confirmations (Enter presses) are read from.
	// Default os.Stdin.
	Prompt io.Reader
	// Out is where instructions for the human are written. Default os.Stderr.
	Out io.Writer

	Logger zerolog.Logger
}

// Viewer is a live browser session on the map page.
type Viewer struct {
	cfg     Config
	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

// New creates a Viewer. Call Start to launch and connect the browser.
func New(cfg Config) *Viewer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Prompt == nil {
		cfg.Prompt = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	return &Viewer{cfg: cfg}
}

// Start launches (or attaches to) the browser and opens an empty tab.
func (v *Viewer) Start(ctx context.Context) error {
	controlURL := v.cfg.ControlURL
	if controlURL == "" {
		v.lnch = launcher.New().Headless(!v.cfg.Headful)
		u, err := v.lnch.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("viewer: launch browser: %w", err)
		}
		controlURL = u
	}

	v.browser = rod.New().Context(ctx).ControlURL(controlURL)
	if err := v.browser.Connect(); err != nil {
		return fmt.Errorf("viewer: connect browser: %w", err)
	}

	var page *rod.Page
	var err error
	if v.cfg.Headful {
		page, err = v.browser.Page(proto.TargetCreateTarget{})
	} else {
		page, err = stealth.Page(v.browser)
	}
	if err != nil {
		return fmt.Errorf("viewer: open tab: %w", err)
	}
	v.page = page
	return nil
}

// Open navigates the map to the given center. Load timeouts are logged, not
// fatal: the human can keep interacting with a half-loaded map.
func (v *Viewer) Open(ctx context.Context, p geo.GeoPoint, z geo.Zoom) error {
	if v.page == nil {
		return fmt.Errorf("viewer: not started")
	}
	url := anchor.FormatState(v.cfg.BaseURL, p, z)

	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	if err := v.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("viewer: navigate %s: %w", url, err)
	}
	if err := v.page.Context(navCtx).WaitLoad(); err != nil {
		v.cfg.Logger.Warn().Str("url", url).Err(err).Msg("map load timed out, continuing")
	}
	return nil
}

// AwaitSelection blocks until the human confirms a position (Enter on the
// prompt reader), then resolves the live page URL into an anchor. Parse
// failures degrade to the previous anchor rather than erroring: a garbled
// URL must never crash a session or walk garbage coordinates.
func (v *Viewer) AwaitSelection(ctx context.Context, prev geo.GeoPoint, prevZoom geo.Zoom) (geo.GeoPoint, geo.Zoom, error) {
	if v.page == nil {
		return prev, prevZoom, fmt.Errorf("viewer: not started")
	}

	fmt.Fprintln(v.cfg.Out, "Position the map on the desired start point (pan/zoom freely), then press Enter.")
	if err := awaitEnter(ctx, v.cfg.Prompt); err != nil {
		return prev, prevZoom, err
	}

	info, err := v.page.Info()
	if err != nil {
		return prev, prevZoom, fmt.Errorf("viewer: read page info: %w", err)
	}

	p, z := resolveSelection(info.URL, v.cfg.Order, prev, prevZoom, v.cfg.Logger)
	return p, z, nil
}

// resolveSelection parses a live page URL, falling back to the previous
// anchor when the URL does not carry one.
func resolveSelection(rawURL string, order anchor.CoordOrder, prev geo.GeoPoint, prevZoom geo.Zoom, log zerolog.Logger) (geo.GeoPoint, geo.Zoom) {
	p, z, err := anchor.Parse(rawURL, order)
	if err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("anchor parse failed, keeping previous anchor")
		return prev, prevZoom
	}
	return p, z
}

// Close shuts the browser down. Safe to call after a failed Start.
func (v *Viewer) Close() {
	if v.browser != nil {
		if err := v.browser.Close(); err != nil {
			v.cfg.Logger.Warn().Err(err).Msg("browser close failed")
		}
	}
	if v.lnch != nil {
		v.lnch.Cleanup()
	}
}

// awaitEnter waits for one line on the reader, honoring cancellation.
func awaitEnter(ctx context.Context, r io.Reader) error {
	lineCh := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		lineCh <- err
	}()
	select {
	case err := <-lineCh:
		if err != nil {
			return fmt.Errorf("viewer: read confirmation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
