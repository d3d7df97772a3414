package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"tilewalk/pkg/geo"
)

// encodeTile returns a PNG of a solid-color square tile.
func encodeTile(t *testing.T, c color.Color, side int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode tile: %v", err)
	}
	return buf.Bytes()
}

func TestFetcher_URL(t *testing.T) {
	f := NewFetcher(FetcherConfig{URLTemplate: "http://tiles.example/{z}/{y}/{x}.png"})
	got := f.URL(geo.Tile{X: 158, Y: 123, Zoom: 18})
	want := "http://tiles.example/18/123/158.png"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	tileData := encodeTile(t, color.RGBA{R: 200, G: 40, B: 40, A: 255}, TileSidePixels)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/18/123914/158195":
			w.Header().Set("Content-Type", "image/png")
			w.Write(tileData) //nolint:errcheck
		case "/18/0/0":
			http.NotFound(w, r)
		case "/18/1/1":
			w.Write([]byte("not an image")) //nolint:errcheck
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{URLTemplate: srv.URL + "/{z}/{y}/{x}"})

	t.Run("success", func(t *testing.T) {
		img, err := f.Fetch(context.Background(), geo.Tile{X: 158195, Y: 123914, Zoom: 18})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != TileSidePixels || b.Dy() != TileSidePixels {
			t.Errorf("tile size = %dx%d, want %dx%d", b.Dx(), b.Dy(), TileSidePixels, TileSidePixels)
		}
	})

	t.Run("404 is a missing tile", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), geo.Tile{X: 0, Y: 0, Zoom: 18})
		if !errors.Is(err, ErrTileUnavailable) {
			t.Errorf("err = %v, want ErrTileUnavailable", err)
		}
	})

	t.Run("malformed payload is a missing tile", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), geo.Tile{X: 1, Y: 1, Zoom: 18})
		if !errors.Is(err, ErrTileUnavailable) {
			t.Errorf("err = %v, want ErrTileUnavailable", err)
		}
	})

	t.Run("server error is a missing tile", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), geo.Tile{X: 9, Y: 9, Zoom: 18})
		if !errors.Is(err, ErrTileUnavailable) {
			t.Errorf("err = %v, want ErrTileUnavailable", err)
		}
	})
}

func TestFetcher_FetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	f := NewFetcher(FetcherConfig{URLTemplate: srv.URL + "/{z}/{y}/{x}"})
	_, err := f.Fetch(context.Background(), geo.Tile{X: 0, Y: 0, Zoom: 1})
	if !errors.Is(err, ErrTileUnavailable) {
		t.Errorf("err = %v, want ErrTileUnavailable", err)
	}
}

func TestFetcher_Defaults(t *testing.T) {
	f := NewFetcher(FetcherConfig{})
	got := f.URL(geo.Tile{X: 3, Y: 2, Zoom: 1})
	want := "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/1/2/3"
	if got != want {
		t.Errorf("default URL = %q, want %q", got, want)
	}
}
