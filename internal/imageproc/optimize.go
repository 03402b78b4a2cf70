// Package imageproc prepares downloaded and generated dish images for
// storage: one canonical encoding so identical content hashes to
// identical bytes.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxWidth caps stored image width; anything wider is
	// downscaled preserving aspect ratio.
	DefaultMaxWidth = 1920
	// JPEGQuality is the single encode quality for every stored image.
	JPEGQuality = 85
)

// Result is an optimized image ready for hashing and upload.
type Result struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Optimize decodes data, flattens any alpha channel onto a white
// background, downscales to maxWidth when wider, and re-encodes as
// JPEG. The output is deterministic for a given input, which makes the
// content hash of Result.Data a stable dedup key.
func Optimize(data []byte, maxWidth int) (Result, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("imageproc: decode: %w", err)
	}

	img = flattenAlpha(img)

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return Result{}, fmt.Errorf("imageproc: encode: %w", err)
	}

	b := img.Bounds()
	return Result{
		Data:        buf.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: "image/jpeg",
	}, nil
}

type opaquer interface {
	Opaque() bool
}

// flattenAlpha composites transparent images onto white. JPEG has no
// alpha channel; without this, transparent PNG logos turn black.
func flattenAlpha(img image.Image) image.Image {
	if o, ok := img.(opaquer); ok && o.Opaque() {
		return img
	}
	bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
