// Command serve exposes a capture directory over HTTP: a JSON manifest
// queryable by bounding box, aggregate stats, and the image files themselves.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tilewalk/pkg/api"
	"tilewalk/pkg/manifest"
)

func main() {
	dir := flag.String("dir", "captures", "Capture directory to index and serve")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	start := time.Now()

	log.Info().Str("dir", *dir).Msg("indexing captures")
	index, err := manifest.LoadDir(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to index capture directory")
	}
	log.Info().
		Int("captures", index.Len()).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("index ready")

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin
	cfg.CapturesDir = *dir
	cfg.Logger = log

	handlers := api.NewHandlers(index)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
