package importer

import (
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// ImportKind selects how raw texture bytes become an engine texture.
type ImportKind int

const (
	// KindSRGB decodes a plain color texture with sRGB interpretation.
	KindSRGB ImportKind = iota
	// KindNormalMap decodes linearly, then repacks into the engine
	// normal-map layout.
	KindNormalMap
	// KindStandardMap packs occlusion, metallic and roughness sources
	// into one standard map.
	KindStandardMap
)

// TextureImportParam is one texture request. Identity is carried by the
// raw name and, for converted kinds, a distinct converted name.
type TextureImportParam struct {
	Name          string
	ConvertedName string
	Kind          ImportKind
	Sampler       vrm.SamplerParams

	// Fetch provides the primary source bytes: the color image for
	// KindSRGB/KindNormalMap, the metallic-roughness image for
	// KindStandardMap. May be nil.
	Fetch vrm.ByteProvider
	// FetchOcclusion provides the occlusion source of a standard map.
	FetchOcclusion vrm.ByteProvider

	// Pack factors, used only by KindStandardMap.
	MetallicFactor  float32
	RoughnessFactor float32
}

// Key returns the cache identity of the request: the converted name for
// converted kinds, the raw name otherwise.
func (p *TextureImportParam) Key() string {
	if p.Kind == KindSRGB || p.ConvertedName == "" {
		return p.Name
	}
	return p.ConvertedName
}

// NormalKey derives the converted identity of a normal-map request.
func NormalKey(raw string) string { return raw + ".normal" }

// StandardKey derives the converted identity of a standard-map request
// from both source identities, so distinct source combinations never
// collide.
func StandardKey(mrName, occName string) string {
	if mrName == "" {
		mrName = "-"
	}
	if occName == "" {
		occName = "-"
	}
	return mrName + "+" + occName + ".standard"
}

// SRGBParam builds the request for a plain color texture.
func SRGBParam(src *vrm.TextureSource) TextureImportParam {
	return TextureImportParam{
		Name:    src.Name,
		Kind:    KindSRGB,
		Sampler: src.Sampler,
		Fetch:   src.Fetch,
	}
}

// NormalParam builds the request for a normal map.
func NormalParam(src *vrm.TextureSource) TextureImportParam {
	return TextureImportParam{
		Name:          src.Name,
		ConvertedName: NormalKey(src.Name),
		Kind:          KindNormalMap,
		Sampler:       src.Sampler,
		Fetch:         src.Fetch,
	}
}

// StandardParam builds the request for a packed standard map. Either
// source may be nil.
func StandardParam(mr, occ *vrm.TextureSource, metallic, roughness float32) TextureImportParam {
	p := TextureImportParam{
		Kind:            KindStandardMap,
		Sampler:         vrm.DefaultSampler(),
		MetallicFactor:  metallic,
		RoughnessFactor: roughness,
	}
	var mrName, occName string
	if mr != nil {
		mrName = mr.Name
		p.Name = mr.Name
		p.Fetch = mr.Fetch
		p.Sampler = mr.Sampler
	}
	if occ != nil {
		occName = occ.Name
		p.FetchOcclusion = occ.Fetch
		if mr == nil {
			p.Name = occ.Name
			p.Sampler = occ.Sampler
		}
	}
	p.ConvertedName = StandardKey(mrName, occName)
	return p
}
