package importer

import (
	"context"
	"fmt"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// MaterialImporter is the collaborator that produces the ordered
// material asset list during the first import phase. Implementations
// resolve their textures through the shared cache.
type MaterialImporter interface {
	Import(ctx context.Context, cache *TextureCache) ([]runtime.Material, error)
}

// TextureMaterialImporter is the default collaborator: it resolves each
// source material's textures through the cache (base color as sRGB,
// normal map converted, occlusion/metallic/roughness packed) and
// creates a material asset per source material. Shader parameter
// mapping is a host concern and is not performed here.
type TextureMaterialImporter struct {
	Engine    runtime.Engine
	Materials []*vrm.Material
}

func (t *TextureMaterialImporter) Import(ctx context.Context, cache *TextureCache) ([]runtime.Material, error) {
	out := make([]runtime.Material, 0, len(t.Materials))
	for i, m := range t.Materials {
		desc := runtime.MaterialDescription{Name: m.Name}

		if m.BaseColor != nil {
			tex, err := cache.GetTexture(ctx, SRGBParam(m.BaseColor))
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", m.Name, err)
			}
			desc.BaseColor = tex
		}
		if m.Normal != nil {
			tex, err := cache.GetTexture(ctx, NormalParam(m.Normal))
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", m.Name, err)
			}
			desc.Normal = tex
		}
		if m.MetallicRoughness != nil || m.Occlusion != nil {
			tex, err := cache.GetTexture(ctx, StandardParam(m.MetallicRoughness, m.Occlusion, m.MetallicFactor, m.RoughnessFactor))
			if err != nil {
				return nil, fmt.Errorf("material %q: %w", m.Name, err)
			}
			desc.Standard = tex
		}

		mat, err := t.Engine.CreateMaterial(desc)
		if err != nil {
			return nil, fmt.Errorf("material %d %q: %w", i, m.Name, err)
		}
		out = append(out, mat)
	}
	return out, nil
}
