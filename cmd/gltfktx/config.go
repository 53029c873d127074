package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// settings are the tunables shared by every pipeline.
type settings struct {
	ToolsDir    string
	Compression string
	Quality     int
	GenMipmaps  bool
	FaceSize    int
	OutputWidth int
}

func defaultSettings() settings {
	return settings{
		Compression: "etc1s",
		GenMipmaps:  true,
	}
}

// gltfktx config.toml key mapping to pipeline settings.
type fileConfig struct {
	ToolsDir    string `toml:"tools_dir"`
	Compression string `toml:"compression"`
	Quality     int    `toml:"quality"`
	GenMipmaps  bool   `toml:"generate_mipmaps"`
	FaceSize    int    `toml:"face_size"`
	OutputWidth int    `toml:"output_width"`
}

// loadSettings reads a TOML config with default overlay: only keys
// present in the file override the defaults.
func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("tools_dir") {
		cfg.ToolsDir = strings.TrimSpace(raw.ToolsDir)
	}
	if meta.IsDefined("compression") {
		cfg.Compression = strings.TrimSpace(raw.Compression)
	}
	if meta.IsDefined("quality") {
		cfg.Quality = raw.Quality
	}
	if meta.IsDefined("generate_mipmaps") {
		cfg.GenMipmaps = raw.GenMipmaps
	}
	if meta.IsDefined("face_size") {
		cfg.FaceSize = raw.FaceSize
	}
	if meta.IsDefined("output_width") {
		cfg.OutputWidth = raw.OutputWidth
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return cfg, nil
}
