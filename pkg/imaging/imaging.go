// Package imaging post-processes captured composites: cutting fixed UI
// margins and resizing to a uniform training resolution.
package imaging

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// ErrEmptyCrop is returned when the insets leave no pixels.
var ErrEmptyCrop = errors.New("crop insets leave an empty image")

// Insets are pixel margins cut from each edge.
type Insets struct {
	Left, Right, Top, Bottom int
}

// Crop returns the sub-image that remains after cutting the insets.
func Crop(src image.Image, in Insets) (image.Image, error) {
	b := src.Bounds()
	// Built as a literal, not image.Rect: Rect swaps min/max on inverted
	// input, which would turn an over-cropped image into a bogus non-empty
	// rectangle instead of failing the Empty check below.
	r := image.Rectangle{
		Min: image.Pt(b.Min.X+in.Left, b.Min.Y+in.Top),
		Max: image.Pt(b.Max.X-in.Right, b.Max.Y-in.Bottom),
	}
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v from %v", ErrEmptyCrop, in, b)
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := src.(subImager); ok {
		return s.SubImage(r), nil
	}

	// Fallback for sources without SubImage support.
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, r.Min, xdraw.Src)
	return dst, nil
}

// Resize scales the image to the target size with bilinear interpolation.
func Resize(src image.Image, target image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, target.X, target.Y))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// CropResize applies Crop then Resize. A zero target skips the resize and
// returns the cropped pixels re-rendered at origin.
func CropResize(src image.Image, in Insets, target image.Point) (*image.RGBA, error) {
	cropped, err := Crop(src, in)
	if err != nil {
		return nil, err
	}
	if target.X <= 0 || target.Y <= 0 {
		b := cropped.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(dst, dst.Bounds(), cropped, b.Min, xdraw.Src)
		return dst, nil
	}
	return Resize(cropped, target), nil
}
