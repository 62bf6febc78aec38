package importer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	// Texture payloads in VRM files are PNG or JPEG.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// minTextureSize is the smallest texel buffer the engine accepts.
const minTextureSize = 2

// DecodeTexels turns encoded image bytes into a texel buffer. An empty
// buffer is not an error: it yields a default blank texture. Images
// smaller than the engine minimum are scaled up.
func DecodeTexels(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return BlankTexels(), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	return toTexels(img), nil
}

// BlankTexels is the default texture: opaque white at the minimum size.
func BlankTexels() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, minTextureSize, minTextureSize))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func toTexels(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() >= minTextureSize && b.Dy() >= minTextureSize {
		if n, ok := img.(*image.NRGBA); ok && b.Min == image.Pt(0, 0) {
			return n
		}
		n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
		return n
	}

	w, h := b.Dx(), b.Dy()
	if w < minTextureSize {
		w = minTextureSize
	}
	if h < minTextureSize {
		h = minTextureSize
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if b.Empty() {
		fill(dst, color.NRGBA{0xff, 0xff, 0xff, 0xff})
		return dst
	}
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func fill(img *image.NRGBA, c color.NRGBA) {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}
