// Package main is the headless VRM import tool. It parses a model,
// runs the full import against the in-memory engine and reports what
// was built.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/internal/config"
	"github.com/azwjp/UniVRM/internal/logger"
	"github.com/azwjp/UniVRM/pkg/importer"
	"github.com/azwjp/UniVRM/pkg/runtime"
	"github.com/azwjp/UniVRM/pkg/runtime/headless"
	"github.com/azwjp/UniVRM/pkg/vrm"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	path := config.ModelPath()
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: vrmimport [flags] <model.vrm>")
		os.Exit(2)
	}

	if err := run(cfg, log, path); err != nil {
		log.Error("import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("parsing model", zap.String("path", path))
	model, err := vrm.ParseFile(path)
	if err != nil {
		return err
	}

	eng := headless.New()

	var external map[string]runtime.Texture
	if cfg.Import.TextureDir != "" {
		external, err = importer.LoadExternalTextures(eng, cfg.Import.TextureDir, log)
		if err != nil {
			return err
		}
		log.Info("texture overrides loaded",
			zap.String("dir", cfg.Import.TextureDir),
			zap.Int("count", len(external)),
		)
	}

	im := importer.New(eng, model, &importer.TextureMaterialImporter{
		Engine:    eng,
		Materials: model.Materials,
	}, importer.Options{
		External: external,
		Logger:   log,
	})

	asset, err := im.Load(ctx)
	if err != nil {
		return err
	}

	roles := 0
	for _, n := range model.Nodes {
		if n.Role != vrm.RoleUnknown {
			roles++
		}
	}
	hits, misses := im.Textures().Stats()
	log.Info("model imported",
		zap.String("name", model.Name),
		zap.String("root", asset.Root.Name()),
		zap.Int("nodes", len(model.Nodes)),
		zap.Int("meshGroups", len(model.MeshGroups)),
		zap.Int("materials", len(model.Materials)),
		zap.Int("renderers", len(asset.Renderers)),
		zap.Int("boneRoles", roles),
		zap.Int("textureHits", hits),
		zap.Int("textureMisses", misses),
	)

	im.Textures().Dispose()
	return nil
}
