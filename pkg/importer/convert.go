package importer

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// RepackNormal converts a glTF normal map into the engine layout:
// X stays in R, Y stays in G, Z is recomputed from the unit-length
// constraint and alpha is forced opaque. The transform is pure; the
// input buffer is not modified.
func RepackNormal(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		x := float64(src.Pix[i])/127.5 - 1
		y := float64(src.Pix[i+1])/127.5 - 1
		z := math.Sqrt(math.Max(0, 1-x*x-y*y))

		out.Pix[i] = src.Pix[i]
		out.Pix[i+1] = src.Pix[i+1]
		out.Pix[i+2] = uint8((z + 1) * 127.5)
		out.Pix[i+3] = 0xff
	}
	return out
}

// PackStandard combines a metallic-roughness source and an occlusion
// source into one standard map:
//
//	R = metallic  (mr blue channel x metallic factor)
//	G = occlusion (occ red channel, 1.0 when absent)
//	B = 0
//	A = smoothness (1 - mr green channel x roughness factor)
//
// Either source may be nil; a nil metallic-roughness source behaves as
// a white texture so the factors pass through unchanged. Mismatched
// sizes are resolved by scaling the smaller source up.
func PackStandard(mr, occ *image.NRGBA, metallic, roughness float32) *image.NRGBA {
	if mr == nil {
		mr = BlankTexels()
	}

	w, h := mr.Rect.Dx(), mr.Rect.Dy()
	if occ != nil {
		if occ.Rect.Dx() > w {
			w = occ.Rect.Dx()
		}
		if occ.Rect.Dy() > h {
			h = occ.Rect.Dy()
		}
	}
	mr = scaleTo(mr, w, h)
	if occ != nil {
		occ = scaleTo(occ, w, h)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampByte(float32(mr.Pix[i+2]) * metallic)
		if occ != nil {
			out.Pix[i+1] = occ.Pix[i]
		} else {
			out.Pix[i+1] = 0xff
		}
		out.Pix[i+2] = 0
		out.Pix[i+3] = clampByte(255 - float32(mr.Pix[i+1])*roughness)
	}
	return out
}

func scaleTo(src *image.NRGBA, w, h int) *image.NRGBA {
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
