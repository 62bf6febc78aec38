package importer

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// TextureLoadInfo is one cache entry: a created texture handle plus the
// ownership flags that drive disposal and ownership transfer.
type TextureLoadInfo struct {
	Texture runtime.Texture
	// Used marks entries referenced by at least one material.
	Used bool
	// External marks host-supplied textures. They are never destroyed
	// by the cache.
	External bool

	// Decoded texels, retained while the entry may serve as conversion
	// input.
	texels *image.NRGBA
}

// IsSubAsset reports whether the cache owns this entry: used and not
// supplied by the host.
func (i *TextureLoadInfo) IsSubAsset() bool { return i.Used && !i.External }

// TextureCache resolves texture requests against the engine, decoding
// and converting on miss and deduplicating by identity key. It is
// accessed from the single import task only; no locking.
type TextureCache struct {
	eng      runtime.Engine
	external map[string]runtime.Texture
	entries  map[string]*TextureLoadInfo
	order    []string
	log      *zap.Logger

	hits, misses int
}

// NewTextureCache creates a cache over the given engine. external maps
// identity keys to pre-existing host textures consulted before any
// decode; it may be nil.
func NewTextureCache(eng runtime.Engine, external map[string]runtime.Texture, log *zap.Logger) *TextureCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &TextureCache{
		eng:      eng,
		external: external,
		entries:  map[string]*TextureLoadInfo{},
		log:      log,
	}
}

// GetTexture resolves one texture request. It is idempotent per
// identity key: repeated requests return the same handle and run the
// decode/convert path exactly once.
func (c *TextureCache) GetTexture(ctx context.Context, param TextureImportParam) (runtime.Texture, error) {
	key := param.Key()

	if tex, ok := c.external[key]; ok {
		if e, ok := c.entries[key]; ok {
			c.hits++
			return e.Texture, nil
		}
		c.insert(key, &TextureLoadInfo{Texture: tex, Used: true, External: true})
		c.log.Debug("external texture", zap.String("key", key))
		return tex, nil
	}

	switch param.Kind {
	case KindSRGB:
		e, err := c.rawEntry(ctx, param.Name, param.Fetch, param.Sampler, false)
		if err != nil {
			return nil, err
		}
		e.Used = true
		return e.Texture, nil

	case KindNormalMap:
		if e, ok := c.entries[param.ConvertedName]; ok {
			c.hits++
			return e.Texture, nil
		}
		// The raw base stays cached but unused, eligible for cleanup.
		base, err := c.rawEntry(ctx, param.Name, param.Fetch, param.Sampler, true)
		if err != nil {
			return nil, err
		}
		return c.converted(param, RepackNormal(base.texels))

	case KindStandardMap:
		if e, ok := c.entries[param.ConvertedName]; ok {
			c.hits++
			return e.Texture, nil
		}
		mr, err := c.fetchTexels(ctx, param.Fetch)
		if err != nil {
			return nil, fmt.Errorf("standard map %q: metallic roughness: %w", param.ConvertedName, err)
		}
		occ, err := c.fetchTexels(ctx, param.FetchOcclusion)
		if err != nil {
			return nil, fmt.Errorf("standard map %q: occlusion: %w", param.ConvertedName, err)
		}
		return c.converted(param, PackStandard(mr, occ, param.MetallicFactor, param.RoughnessFactor))

	default:
		return nil, fmt.Errorf("texture import kind %d: %w", param.Kind, ErrNotImplemented)
	}
}

// rawEntry resolves or creates the cache entry for an unconverted
// texture. Created entries start unused; user-facing requests flip the
// flag at the call site.
func (c *TextureCache) rawEntry(ctx context.Context, name string, fetch vrm.ByteProvider, sampler vrm.SamplerParams, linear bool) (*TextureLoadInfo, error) {
	if e, ok := c.entries[name]; ok {
		// External entries carry no texels. When one is reused as a
		// conversion base, decode the source bytes now.
		if e.texels == nil {
			texels, err := c.fetchTexels(ctx, fetch)
			if err != nil {
				return nil, fmt.Errorf("texture %q: %w", name, err)
			}
			if texels == nil {
				texels = BlankTexels()
			}
			e.texels = texels
		}
		c.hits++
		return e, nil
	}
	c.misses++

	texels, err := c.fetchTexels(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}
	if texels == nil {
		texels = BlankTexels()
	}

	settings, err := ResolveSampler(sampler)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}

	tex, err := c.eng.CreateTexture(texels, runtime.TextureOptions{
		Name:    name,
		Linear:  linear,
		Sampler: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}

	e := &TextureLoadInfo{Texture: tex, texels: texels}
	c.insert(name, e)
	c.log.Debug("texture decoded",
		zap.String("key", name),
		zap.Bool("linear", linear),
	)
	return e, nil
}

// converted creates and caches the result of a conversion.
func (c *TextureCache) converted(param TextureImportParam, texels *image.NRGBA) (runtime.Texture, error) {
	c.misses++

	settings, err := ResolveSampler(param.Sampler)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", param.ConvertedName, err)
	}
	tex, err := c.eng.CreateTexture(texels, runtime.TextureOptions{
		Name:    param.ConvertedName,
		Linear:  true,
		Sampler: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", param.ConvertedName, err)
	}

	c.insert(param.ConvertedName, &TextureLoadInfo{Texture: tex, Used: true, texels: texels})
	c.log.Debug("texture converted", zap.String("key", param.ConvertedName))
	return tex, nil
}

func (c *TextureCache) fetchTexels(ctx context.Context, fetch vrm.ByteProvider) (*image.NRGBA, error) {
	if fetch == nil {
		return nil, nil
	}
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeTexels(data)
}

func (c *TextureCache) insert(key string, e *TextureLoadInfo) {
	c.entries[key] = e
	c.order = append(c.order, key)
}

// Entry exposes a cache entry for inspection. Returns nil when absent.
func (c *TextureCache) Entry(key string) *TextureLoadInfo {
	return c.entries[key]
}

// Stats returns the hit/miss counters of this session.
func (c *TextureCache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// TransferOwnership offers every used, non-external entry to the host.
// Entries the predicate accepts are removed from the cache so a later
// Dispose cannot destroy them. Must run before Dispose.
func (c *TextureCache) TransferOwnership(take func(runtime.Texture) bool) {
	for _, key := range c.order {
		e, ok := c.entries[key]
		if !ok || !e.IsSubAsset() {
			continue
		}
		if take(e.Texture) {
			delete(c.entries, key)
			c.log.Debug("texture ownership transferred", zap.String("key", key))
		}
	}
}

// Dispose destroys every non-external entry's texture exactly once and
// clears the cache. External entries are left untouched; the host owns
// their lifetime.
func (c *TextureCache) Dispose() {
	for _, key := range c.order {
		e, ok := c.entries[key]
		if !ok || e.External {
			continue
		}
		c.eng.DestroyTexture(e.Texture)
	}
	c.entries = map[string]*TextureLoadInfo{}
	c.order = nil
}
