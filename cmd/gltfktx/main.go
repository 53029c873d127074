// Package main provides a command-line tool for patching KTX2 images
// into glTF containers and converting equirectangular environment
// maps to and from cubemap KTX2 textures.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var (
	mode        string
	inputPath   string
	outputPath  string
	configPath  string
	toolsDir    string
	compression string
	quality     int
	genMipmaps  bool
	faceSize    int
	outputWidth int
	verbose     bool
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: patch, encode, decode, envmap-export, envmap-import")
	flag.StringVar(&inputPath, "input", "", "Input file")
	flag.StringVar(&outputPath, "output", "", "Output file (defaults derived from input)")
	flag.StringVar(&configPath, "config", "", "Path to TOML config file")
	flag.StringVar(&toolsDir, "tools-dir", "", "Directory containing the toktx and ktx executables")
	flag.StringVar(&compression, "compression", "etc1s", "KTX2 compression: etc1s, uastc")
	flag.IntVar(&quality, "quality", 0, "Compression quality (tool default if 0)")
	flag.BoolVar(&genMipmaps, "mipmaps", true, "Generate mipmaps when encoding")
	flag.IntVar(&faceSize, "face-size", 0, "Cubemap face edge length (source width / 4 if 0)")
	flag.IntVar(&outputWidth, "width", 0, "Equirectangular output width (4 * face size if 0)")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	log := newLogger()
	cfg, err := resolveSettings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch mode {
	case "patch":
		return runPatch(log)
	case "encode":
		return runEncode(ctx, log, cfg)
	case "decode":
		return runDecode(ctx, log, cfg)
	case "envmap-export":
		return runEnvmapExport(ctx, log, cfg)
	case "envmap-import":
		return runEnvmapImport(ctx, log, cfg)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if inputPath == "" {
		return fmt.Errorf("input file is required")
	}

	switch mode {
	case "patch", "encode", "decode", "envmap-export", "envmap-import":
	default:
		return fmt.Errorf("mode must be one of patch, encode, decode, envmap-export, envmap-import")
	}
	return nil
}

// resolveSettings layers config file values over the defaults and
// explicitly set flags over both.
func resolveSettings() (settings, error) {
	cfg := defaultSettings()
	if configPath != "" {
		loaded, err := loadSettings(configPath)
		if err != nil {
			return settings{}, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tools-dir":
			cfg.ToolsDir = toolsDir
		case "compression":
			cfg.Compression = compression
		case "quality":
			cfg.Quality = quality
		case "mipmaps":
			cfg.GenMipmaps = genMipmaps
		case "face-size":
			cfg.FaceSize = faceSize
		case "width":
			cfg.OutputWidth = outputWidth
		}
	})
	return cfg, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
