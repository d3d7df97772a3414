package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"tilewalk/pkg/geo"
	"tilewalk/pkg/walk"
)

var testAnchor = geo.GeoPoint{Lat: 9.840486, Lon: 37.248504}

// stubCompositor returns a tiny blank canvas and records the centers it was
// asked for. cancelAfter, when > 0, cancels the context during that call.
type stubCompositor struct {
	centers     []geo.Tile
	cancelAfter int
	cancel      context.CancelFunc
	err         error
}

func (s *stubCompositor) Composite(ctx context.Context, center geo.Tile, gridSize int) (*image.RGBA, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.centers = append(s.centers, center)
	if s.cancelAfter > 0 && len(s.centers) == s.cancelAfter {
		s.cancel()
	}
	return image.NewRGBA(image.Rect(0, 0, gridSize*256, gridSize*256)), nil
}

// memStore records saved requests without touching disk.
type memStore struct {
	saved []Request
	err   error
}

func (m *memStore) Save(req Request, img image.Image) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, req)
	return Filename(req), nil
}

func newTestSession(t *testing.T, comp Compositor, store Store, cfg Config) *Session {
	t.Helper()
	if cfg.Zoom == 0 {
		cfg.Zoom = 18
	}
	if cfg.GridSize == 0 {
		cfg.GridSize = 3
	}
	s, err := NewSession(comp, store, cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	comp := &stubCompositor{}
	s := newTestSession(t, comp, DirStore{Dir: dir}, Config{})

	state := WalkState{
		Anchor:     testAnchor,
		StepMeters: 100,
		Direction:  walk.East,
	}

	next, err := s.Run(context.Background(), state, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if next != 3 {
		t.Errorf("next index = %d, want 3", next)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("persisted %d files, want 3", len(entries))
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	// First capture reproduces the anchor exactly.
	wantFirst := fmt.Sprintf("cap_001_%.6f_%.6f.png", testAnchor.Lat, testAnchor.Lon)
	if names[0] != wantFirst {
		t.Errorf("first file = %q, want %q", names[0], wantFirst)
	}

	// Sequence indices 1..3 with strictly increasing longitude.
	prevLon := -1e9
	for i, name := range names {
		wantPrefix := fmt.Sprintf("cap_%03d_", i+1)
		if !strings.HasPrefix(name, wantPrefix) {
			t.Errorf("file %d = %q, want prefix %q", i, name, wantPrefix)
		}
		var seq int
		var lat, lon float64
		// The suffix is stripped first: a trailing %f would swallow the
		// dot of ".png" and the literal suffix would never match. The "_"
		// separators become spaces because %f treats an underscore between
		// digits as a digit separator and would swallow the next field.
		body := strings.TrimSuffix(name, ".png")
		body = strings.ReplaceAll(body, "_", " ")
		if _, err := fmt.Sscanf(body, "cap %d %f %f", &seq, &lat, &lon); err != nil {
			t.Fatalf("unparsable name %q: %v", name, err)
		}
		if seq != i+1 {
			t.Errorf("file %q: sequence = %d, want %d", name, seq, i+1)
		}
		if lat != testAnchor.Lat {
			t.Errorf("file %q: lat = %v, want constant %v", name, lat, testAnchor.Lat)
		}
		if lon <= prevLon {
			t.Errorf("file %q: lon %v not strictly increasing", name, lon)
		}
		prevLon = lon
	}
}

func TestRun_CancellationPreservesProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	comp := &stubCompositor{cancelAfter: 2, cancel: cancel}
	store := &memStore{}
	s := newTestSession(t, comp, store, Config{})

	state := WalkState{Anchor: testAnchor, StepMeters: 100, Direction: walk.East, NextIndex: 0}
	next, err := s.Run(ctx, state, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if next != 2 {
		t.Errorf("next index = %d, want startIndex+2 = 2", next)
	}
	if len(store.saved) != 2 {
		t.Errorf("persisted %d captures, want 2", len(store.saved))
	}
}

func TestRun_ResumeContinuesSequence(t *testing.T) {
	comp := &stubCompositor{}
	store := &memStore{}
	s := newTestSession(t, comp, store, Config{})

	state := WalkState{Anchor: testAnchor, StepMeters: 50, Direction: walk.North, NextIndex: 7}
	next, err := s.Run(context.Background(), state, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if next != 9 {
		t.Errorf("next index = %d, want 9", next)
	}
	if store.saved[0].SequenceIndex != 8 || store.saved[1].SequenceIndex != 9 {
		t.Errorf("sequence indices = %d,%d, want 8,9",
			store.saved[0].SequenceIndex, store.saved[1].SequenceIndex)
	}
	// A resumed walk still starts at the anchor itself.
	if store.saved[0].Position != testAnchor {
		t.Errorf("first position = %+v, want anchor", store.saved[0].Position)
	}
}

func TestRun_TotalCapStopsEarly(t *testing.T) {
	comp := &stubCompositor{}
	store := &memStore{}
	s := newTestSession(t, comp, store, Config{MaxTotal: 10})

	state := WalkState{Anchor: testAnchor, StepMeters: 50, Direction: walk.South, NextIndex: 8}
	next, err := s.Run(context.Background(), state, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if next != 10 {
		t.Errorf("next index = %d, want 10 (capped)", next)
	}
	if len(store.saved) != 2 {
		t.Errorf("persisted %d captures, want 2", len(store.saved))
	}
}

func TestRun_PacingBetweenCaptures(t *testing.T) {
	comp := &stubCompositor{}
	store := &memStore{}
	s := newTestSession(t, comp, store, Config{MinInterval: 30 * time.Millisecond})

	state := WalkState{Anchor: testAnchor, StepMeters: 50, Direction: walk.East}
	start := time.Now()
	if _, err := s.Run(context.Background(), state, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Two gaps between three captures.
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("run took %v, want >= 60ms of pacing", elapsed)
	}
}

func TestRun_StoreFailureAborts(t *testing.T) {
	comp := &stubCompositor{}
	store := &memStore{err: errors.New("disk full")}
	s := newTestSession(t, comp, store, Config{})

	state := WalkState{Anchor: testAnchor, StepMeters: 50, Direction: walk.East}
	next, err := s.Run(context.Background(), state, 3)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if next != 0 {
		t.Errorf("next index = %d, want 0", next)
	}
}

func TestRun_CompositeFailureAborts(t *testing.T) {
	comp := &stubCompositor{err: errors.New("tile backend down")}
	store := &memStore{}
	s := newTestSession(t, comp, store, Config{})

	state := WalkState{Anchor: testAnchor, StepMeters: 50, Direction: walk.West, NextIndex: 3}
	next, err := s.Run(context.Background(), state, 2)
	if err == nil {
		t.Fatal("expected composite error")
	}
	if next != 3 {
		t.Errorf("next index = %d, want unchanged 3", next)
	}
	if len(store.saved) != 0 {
		t.Errorf("persisted %d captures, want 0", len(store.saved))
	}
}

func TestRun_ZeroCountIsNoop(t *testing.T) {
	store := &memStore{}
	s := newTestSession(t, &stubCompositor{}, store, Config{})

	next, err := s.Run(context.Background(), WalkState{Anchor: testAnchor, StepMeters: 1, Direction: walk.East, NextIndex: 4}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if next != 4 || len(store.saved) != 0 {
		t.Errorf("next = %d, saved = %d; want 4, 0", next, len(store.saved))
	}
}

func TestRun_NegativeCountRejected(t *testing.T) {
	s := newTestSession(t, &stubCompositor{}, &memStore{}, Config{})
	if _, err := s.Run(context.Background(), WalkState{Anchor: testAnchor, StepMeters: 1, Direction: walk.East}, -1); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("err = %v, want ErrInvalidCount", err)
	}
}

func TestNewSession_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad zoom", Config{Zoom: 30, GridSize: 3}},
		{"bad grid", Config{Zoom: 18, GridSize: 0}},
		{"negative interval", Config{Zoom: 18, GridSize: 3, MinInterval: -time.Second}},
		{"negative cap", Config{Zoom: 18, GridSize: 3, MaxTotal: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSession(&stubCompositor{}, &memStore{}, tt.cfg); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestFilename(t *testing.T) {
	req := Request{
		Position:      geo.GeoPoint{Lat: 9.840486, Lon: 37.248504},
		Zoom:          18,
		SequenceIndex: 7,
	}
	want := "cap_007_9.840486_37.248504.png"
	if got := Filename(req); got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}

func TestDirStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "captures")
	store := DirStore{Dir: dir}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	path, err := store.Save(Request{Position: testAnchor, Zoom: 18, SequenceIndex: 1}, img)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}
