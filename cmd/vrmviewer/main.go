// Package main is the VRM viewer. It imports a model into the OpenGL
// engine cooperatively, rendering one frame per import step, so the
// avatar appears progressively while the window stays responsive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/azwjp/UniVRM/internal/config"
	"github.com/azwjp/UniVRM/internal/logger"
	"github.com/azwjp/UniVRM/internal/viewer"
	"github.com/azwjp/UniVRM/pkg/importer"
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
		fmt.Fprintln(os.Stderr, "Usage: vrmviewer [flags] <model.vrm>")
		os.Exit(2)
	}

	if err := run(cfg, log, path); err != nil {
		log.Error("viewer failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, path string) error {
	log.Info("parsing model", zap.String("path", path))
	model, err := vrm.ParseFile(path)
	if err != nil {
		return err
	}

	v, err := viewer.New(viewer.WindowConfig{
		Title:      "UniVRM - " + model.Name,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	}, log)
	if err != nil {
		return err
	}
	defer v.Close()

	eng := v.Engine()

	opts := importer.Options{Logger: log}
	if cfg.Import.TextureDir != "" {
		opts.External, err = importer.LoadExternalTextures(eng, cfg.Import.TextureDir, log)
		if err != nil {
			return err
		}
	}
	if !cfg.Import.Synchronous {
		// Each import suspension point renders one frame, keeping all
		// GL work on the locked main thread.
		opts.Awaiter = v.FrameAwaiter()
	}

	im := importer.New(eng, model, &importer.TextureMaterialImporter{
		Engine:    eng,
		Materials: model.Materials,
	}, opts)

	asset, err := im.Load(context.Background())
	if errors.Is(err, viewer.ErrClosed) {
		return nil
	}
	if err != nil {
		return err
	}

	hits, misses := im.Textures().Stats()
	log.Info("model imported",
		zap.String("name", model.Name),
		zap.String("root", asset.Root.Name()),
		zap.Int("renderers", len(asset.Renderers)),
		zap.Int("textureHits", hits),
		zap.Int("textureMisses", misses),
	)

	v.Run()

	if !cfg.Import.KeepTextures {
		im.Textures().Dispose()
	}
	return nil
}
