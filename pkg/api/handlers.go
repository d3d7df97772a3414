package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tilewalk/pkg/manifest"
)

// CaptureIndex is the read side of the capture manifest the handlers query.
type CaptureIndex interface {
	Within(b manifest.BBox) []manifest.Entry
	Bounds() (manifest.BBox, bool)
	Len() int
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	index CaptureIndex
}

// NewHandlers creates handlers over the given capture index.
func NewHandlers(index CaptureIndex) *Handlers {
	return &Handlers{index: index}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"}) //nolint:errcheck
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{NumCaptures: h.index.Len()}
	if b, ok := h.index.Bounds(); ok {
		resp.Bounds = &BBoxJSON{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// HandleCaptures handles GET /api/v1/captures?bbox=minLat,minLon,maxLat,maxLon.
// Without a bbox parameter it returns every indexed capture.
func (h *Handlers) HandleCaptures(w http.ResponseWriter, r *http.Request) {
	box := manifest.BBox{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}

	if raw := r.URL.Query().Get("bbox"); raw != "" {
		parsed, err := parseBBox(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bbox", "bbox")
			return
		}
		box = parsed
	}

	entries := h.index.Within(box)
	resp := CapturesResponse{Count: len(entries), Captures: make([]CaptureJSON, len(entries))}
	for i, e := range entries {
		resp.Captures[i] = CaptureJSON{
			SequenceIndex: e.SequenceIndex,
			Lat:           e.Position.Lat,
			Lon:           e.Position.Lon,
			File:          e.Name,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// parseBBox parses "minLat,minLon,maxLat,maxLon".
func parseBBox(raw string) (manifest.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return manifest.BBox{}, fmt.Errorf("bbox needs 4 components, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return manifest.BBox{}, fmt.Errorf("bbox component %d: %w", i, err)
		}
		vals[i] = v
	}
	b := manifest.BBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return manifest.BBox{}, fmt.Errorf("bbox min exceeds max")
	}
	return b, nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field}) //nolint:errcheck
}
