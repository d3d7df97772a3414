package api

// CaptureJSON is one indexed capture in a query response.
type CaptureJSON struct {
	SequenceIndex int     `json:"sequence_index"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	File          string  `json:"file"`
}

// CapturesResponse is the JSON response for GET /api/v1/captures.
type CapturesResponse struct {
	Count    int           `json:"count"`
	Captures []CaptureJSON `json:"captures"`
}

// BBoxJSON is a bounding box in stats responses.
type BBoxJSON struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumCaptures int       `json:"num_captures"`
	Bounds      *BBoxJSON `json:"bounds,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
