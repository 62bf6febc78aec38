package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

// LoadExternalTextures decodes every image file in dir into a host
// texture, keyed by the file name without its extension. The returned
// map plugs into Options.External; a model texture whose identity key
// matches a file name uses the override instead of its embedded data.
func LoadExternalTextures(eng runtime.Engine, dir string, log *zap.Logger) (map[string]runtime.Texture, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("override directory: %w", err)
	}

	settings, err := ResolveSampler(vrm.DefaultSampler())
	if err != nil {
		return nil, err
	}

	out := map[string]runtime.Texture{}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}
		texels, err := DecodeTexels(data)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}

		key := strings.TrimSuffix(name, filepath.Ext(name))
		tex, err := eng.CreateTexture(texels, runtime.TextureOptions{Name: key, Sampler: settings})
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}
		out[key] = tex
		log.Debug("texture override loaded", zap.String("key", key))
	}
	return out, nil
}
