// Command capture walks a coordinate in a compass direction and saves a
// stitched satellite composite at every step. Batch mode runs unattended
// and is resumable via --start-index; --manual opens a live map so a human
// picks the anchor and direction between batches.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"tilewalk/pkg/anchor"
	"tilewalk/pkg/capture"
	"tilewalk/pkg/geo"
	"tilewalk/pkg/tiles"
	"tilewalk/pkg/viewer"
	"tilewalk/pkg/walk"
)

// envConfig carries the environment-settable defaults; flags override.
type envConfig struct {
	TileURL   string `env:"TILEWALK_TILE_URL"`
	UserAgent string `env:"TILEWALK_USER_AGENT"`
	MapURL    string `env:"TILEWALK_MAP_URL"`
	OutDir    string `env:"TILEWALK_OUTDIR" envDefault:"captures"`
	LogLevel  string `env:"TILEWALK_LOG_LEVEL" envDefault:"info"`
}

func main() {
	ec, err := env.ParseAs[envConfig]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing environment: %v\n", err)
		os.Exit(1)
	}

	captures := flag.Int("captures", 8, "Number of images to capture this run")
	stepMeters := flag.Float64("step", 100.0, "Walk step in meters")
	centerLat := flag.Float64("center-lat", 9.840486, "Anchor latitude")
	centerLon := flag.Float64("center-lon", 37.248504, "Anchor longitude")
	zoomFlag := flag.Int("zoom", 18, "Tile pyramid zoom level")
	outDir := flag.String("outdir", ec.OutDir, "Output directory")
	startIndex := flag.Int("start-index", 0, "Resume index (count of captures already on disk)")
	directionFlag := flag.String("direction", "east", "Walk direction: north|south|east|west")
	interval := flag.Duration("interval", 2*time.Second, "Minimum pause between captures")
	gridSize := flag.Int("grid", 4, "Tile grid size per composite (canvas side = grid*256 px)")
	fanOut := flag.Int("fanout", 4, "Concurrent tile fetches per composite")
	maxTotal := flag.Int("max-total", capture.DefaultMaxTotal, "Total capture cap across runs")
	manual := flag.Bool("manual", false, "Pick the anchor interactively on a live map")
	orderFlag := flag.String("coord-order", "latlon", "Map URL coordinate order: latlon|lonlat")
	mapURL := flag.String("map-url", ec.MapURL, "Slippy-map viewer base URL (default OpenAerialMap)")
	flag.Parse()

	log := newLogger(ec.LogLevel)

	direction, err := walk.ParseDirection(*directionFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid --direction")
	}
	order, err := parseOrder(*orderFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid --coord-order")
	}

	state := capture.WalkState{
		Anchor:     geo.GeoPoint{Lat: *centerLat, Lon: *centerLon},
		StepMeters: *stepMeters,
		Direction:  direction,
		NextIndex:  *startIndex,
	}
	zoom := geo.Zoom(*zoomFlag)

	// Fail on bad configuration before any network or browser work.
	if err := state.Anchor.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid anchor")
	}
	if err := zoom.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid zoom")
	}

	fetcher := tiles.NewFetcher(tiles.FetcherConfig{
		URLTemplate: ec.TileURL,
		UserAgent:   ec.UserAgent,
		Logger:      log,
	})
	compositor := tiles.NewCompositor(fetcher, tiles.CompositorConfig{
		MaxParallel: *fanOut,
		Logger:      log,
	})
	store := capture.DirStore{Dir: *outDir}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runBatch := func(st capture.WalkState, z geo.Zoom, count int) (int, error) {
		session, err := capture.NewSession(compositor, store, capture.Config{
			Zoom:        z,
			GridSize:    *gridSize,
			MinInterval: *interval,
			MaxTotal:    *maxTotal,
			Logger:      log,
		})
		if err != nil {
			return st.NextIndex, err
		}
		return session.Run(ctx, st, count)
	}

	if !*manual {
		next, err := runBatch(state, zoom, *captures)
		if err != nil {
			log.Fatal().Err(err).Msg("capture run failed")
		}
		log.Info().Int("next_index", next).Str("outdir", *outDir).Msg("run complete")
		fmt.Println(next)
		return
	}

	if err := runManual(ctx, log, state, zoom, *captures, *maxTotal, order, *mapURL, runBatch); err != nil {
		log.Fatal().Err(err).Msg("manual session failed")
	}
}

// runManual drives the human-in-the-loop loop: anchor on the live map, walk
// a batch, ask to continue, re-anchor from wherever the map was left.
func runManual(
	ctx context.Context,
	log zerolog.Logger,
	state capture.WalkState,
	zoom geo.Zoom,
	batch, maxTotal int,
	order anchor.CoordOrder,
	mapURL string,
	runBatch func(capture.WalkState, geo.Zoom, int) (int, error),
) error {
	v := viewer.New(viewer.Config{
		BaseURL: mapURL,
		Order:   order,
		Headful: true,
		Logger:  log,
	})
	if err := v.Start(ctx); err != nil {
		return err
	}
	defer v.Close()

	if err := v.Open(ctx, state.Anchor, zoom); err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)

	for {
		p, z, err := v.AwaitSelection(ctx, state.Anchor, zoom)
		if err != nil {
			return err
		}
		// Anchor and zoom are replaced wholesale on every re-anchor.
		state.Anchor, zoom = p, z
		log.Info().
			Float64("lat", p.Lat).
			Float64("lon", p.Lon).
			Int("zoom", int(z)).
			Msg("anchor selected")

		dir, err := promptDirection(stdin)
		if err != nil {
			return err
		}
		state.Direction = dir

		next, err := runBatch(state, zoom, batch)
		if err != nil {
			return err
		}
		state.NextIndex = next

		if ctx.Err() != nil || next >= maxTotal {
			break
		}
		fmt.Fprintf(os.Stderr, "\n%d images captured. Continue with %d more? (y/n): ", next, batch)
		line, err := stdin.ReadString('\n')
		if err != nil || strings.HasPrefix(strings.TrimSpace(strings.ToLower(line)), "n") {
			break
		}
		fmt.Fprintln(os.Stderr, "Reposition the map for the next batch.")
	}

	log.Info().Int("total", state.NextIndex).Msg("manual session complete")
	return nil
}

// promptDirection asks for a 1-4 menu choice, defaulting to east.
func promptDirection(r *bufio.Reader) (walk.Direction, error) {
	fmt.Fprintln(os.Stderr, "Direction: 1=east 2=west 3=north 4=south")
	fmt.Fprint(os.Stderr, "Choice (1-4): ")
	line, err := r.ReadString('\n')
	if err != nil {
		return walk.East, fmt.Errorf("read direction: %w", err)
	}
	switch strings.TrimSpace(line) {
	case "2":
		return walk.West, nil
	case "3":
		return walk.North, nil
	case "4":
		return walk.South, nil
	default:
		return walk.East, nil
	}
}

func parseOrder(s string) (anchor.CoordOrder, error) {
	switch strings.ToLower(s) {
	case "latlon", "":
		return anchor.OrderLatLon, nil
	case "lonlat":
		return anchor.OrderLonLat, nil
	}
	return 0, fmt.Errorf("unknown coordinate order %q", s)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
