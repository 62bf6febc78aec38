// Package config handles tool configuration loading and management.
package config

// Config holds all importer and viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings for the viewer.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// ImportConfig holds model import settings.
type ImportConfig struct {
	// TextureDir points at a directory of override images. Files named
	// after a texture's identity key are used instead of the embedded
	// image data.
	TextureDir string `yaml:"texture_dir"`
	// Synchronous disables frame-by-frame yielding and runs the whole
	// import in one go.
	Synchronous bool `yaml:"synchronous"`
	// KeepTextures skips texture ownership transfer so the cache
	// disposes everything when the model is unloaded.
	KeepTextures bool `yaml:"keep_textures"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Import: ImportConfig{
			TextureDir:   "",
			Synchronous:  false,
			KeepTextures: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
