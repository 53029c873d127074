// Package ktxtools wraps the external KTX-Software command line tools
// (toktx, ktx) for encoding images to KTX2 and extracting them back.
package ktxtools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
)

// Mode selects the KTX2 compression scheme toktx applies.
type Mode int

const (
	ModeETC1S Mode = iota
	ModeUASTC
)

func (m Mode) String() string {
	switch m {
	case ModeETC1S:
		return "etc1s"
	case ModeUASTC:
		return "uastc"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a user-facing compression name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "etc1s":
		return ModeETC1S, nil
	case "uastc":
		return ModeUASTC, nil
	}
	return 0, fmt.Errorf("ktxtools: unknown compression mode %q", s)
}

// EncodeOptions controls a toktx invocation.
type EncodeOptions struct {
	Mode       Mode
	Quality    int // etc1s: 1-255 qlevel; uastc: rescaled to 0-4
	GenMipmaps bool
}

// args renders the option flags. toktx's uastc quality knob runs 0-4
// while etc1s runs 1-255, so a single user-facing quality value gets
// rescaled for uastc.
func (o EncodeOptions) args() []string {
	var args []string
	switch o.Mode {
	case ModeUASTC:
		q := o.Quality
		if q > 4 {
			q = q / 64
			if q > 4 {
				q = 4
			}
		}
		if q <= 0 {
			q = 2
		}
		args = append(args, "--uastc", "--uastc_quality", strconv.Itoa(q), "--uastc_rdo")
	default:
		q := o.Quality
		if q <= 0 {
			q = 128
		}
		args = append(args, "--bcmp", "--qlevel", strconv.Itoa(q))
	}
	if o.GenMipmaps {
		args = append(args, "--genmipmap")
	}
	return args
}

// Tools locates and runs the KTX-Software executables. A non-empty
// directory is searched before PATH, so a bundled tool distribution
// wins over whatever the host has installed.
type Tools struct {
	dir string
	log zerolog.Logger
}

func New(dir string, log zerolog.Logger) *Tools {
	return &Tools{dir: dir, log: log}
}

// Lookup resolves a tool name to an executable path.
func (t *Tools) Lookup(name string) (string, error) {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if t.dir != "" {
		candidate := filepath.Join(t.dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("ktxtools: %s not found in %q or PATH: %w", name, t.dir, err)
	}
	return path, nil
}

// Available reports whether both toktx and ktx can be resolved.
func (t *Tools) Available() bool {
	if _, err := t.Lookup("toktx"); err != nil {
		return false
	}
	_, err := t.Lookup("ktx")
	return err == nil
}

// env returns the process environment with the tool directory and its
// lib/ subdirectory added to the shared-library search path, so
// bundled tools can find the libktx they ship with.
func (t *Tools) env() []string {
	env := os.Environ()
	if t.dir == "" {
		return env
	}
	var key string
	switch runtime.GOOS {
	case "darwin":
		key = "DYLD_LIBRARY_PATH"
	case "windows":
		key = "PATH"
	default:
		key = "LD_LIBRARY_PATH"
	}
	sep := string(os.PathListSeparator)
	search := t.dir + sep + filepath.Join(t.dir, "lib") + sep + os.Getenv(key)
	return append(env, key+"="+search)
}

// Encode compresses a single image file into a KTX2 texture.
func (t *Tools) Encode(ctx context.Context, output, input string, opts EncodeOptions) error {
	args := append(opts.args(), output, input)
	return t.run(ctx, "toktx", args...)
}

// EncodeCubemap compresses six face image files, in canonical
// +X -X +Y -Y +Z -Z order, into a single cubemap KTX2 texture.
func (t *Tools) EncodeCubemap(ctx context.Context, output string, faces [6]string, opts EncodeOptions) error {
	args := append(opts.args(), "--cubemap", output)
	args = append(args, faces[:]...)
	return t.run(ctx, "toktx", args...)
}

// Extract decodes a KTX2 texture to an image file.
func (t *Tools) Extract(ctx context.Context, input, output string) error {
	return t.run(ctx, "ktx", "extract", input, output)
}

// ExtractFaces decodes all faces of a cubemap KTX2 texture as RGBA8
// images named after base. Depending on the ktx version the outputs
// land either next to base or in a subdirectory named after it, so
// the paths of the files actually produced are returned.
func (t *Tools) ExtractFaces(ctx context.Context, input, base string) ([]string, error) {
	if err := t.run(ctx, "ktx", "extract", "--face", "all", "--transcode", "rgba8", input, base); err != nil {
		return nil, err
	}

	dir, prefix := filepath.Split(base)
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		info, statErr := os.Stat(m)
		if statErr != nil {
			continue
		}
		if info.IsDir() {
			nested, globErr := filepath.Glob(filepath.Join(m, "*"))
			if globErr != nil {
				return nil, globErr
			}
			files = append(files, nested...)
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("ktxtools: extract produced no face files under %q", base)
	}
	return files, nil
}

func (t *Tools) run(ctx context.Context, name string, args ...string) error {
	path, err := t.Lookup(name)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = t.env()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.Debug().Str("tool", name).Strs("args", args).Msg("running external tool")
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("ktxtools: %s failed: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return fmt.Errorf("ktxtools: %s failed: %w", name, err)
	}
	return nil
}
