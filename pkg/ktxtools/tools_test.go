package ktxtools

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEncodeOptionsArgs(t *testing.T) {
	cases := []struct {
		name string
		opts EncodeOptions
		want []string
	}{
		{
			name: "ETC1SDefaults",
			opts: EncodeOptions{Mode: ModeETC1S},
			want: []string{"--bcmp", "--qlevel", "128"},
		},
		{
			name: "ETC1SQuality",
			opts: EncodeOptions{Mode: ModeETC1S, Quality: 200},
			want: []string{"--bcmp", "--qlevel", "200"},
		},
		{
			name: "UASTCDefaults",
			opts: EncodeOptions{Mode: ModeUASTC},
			want: []string{"--uastc", "--uastc_quality", "2", "--uastc_rdo"},
		},
		{
			name: "UASTCRescaled",
			opts: EncodeOptions{Mode: ModeUASTC, Quality: 192},
			want: []string{"--uastc", "--uastc_quality", "3", "--uastc_rdo"},
		},
		{
			name: "UASTCClamped",
			opts: EncodeOptions{Mode: ModeUASTC, Quality: 9999},
			want: []string{"--uastc", "--uastc_quality", "4", "--uastc_rdo"},
		},
		{
			name: "UASTCDirect",
			opts: EncodeOptions{Mode: ModeUASTC, Quality: 3},
			want: []string{"--uastc", "--uastc_quality", "3", "--uastc_rdo"},
		},
		{
			name: "Mipmaps",
			opts: EncodeOptions{Mode: ModeETC1S, Quality: 64, GenMipmaps: true},
			want: []string{"--bcmp", "--qlevel", "64", "--genmipmap"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.opts.args()
			if strings.Join(got, " ") != strings.Join(tc.want, " ") {
				t.Errorf("args: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("etc1s"); err != nil || m != ModeETC1S {
		t.Errorf("etc1s: got %v, %v", m, err)
	}
	if m, err := ParseMode("uastc"); err != nil || m != ModeUASTC {
		t.Errorf("uastc: got %v, %v", m, err)
	}
	if _, err := ParseMode("astc"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLookup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables are unix-only")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "toktx")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}

	t.Run("ToolDirFirst", func(t *testing.T) {
		tools := New(dir, zerolog.Nop())
		path, err := tools.Lookup("toktx")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if path != fake {
			t.Errorf("got %q, want %q", path, fake)
		}
	})

	t.Run("MissingTool", func(t *testing.T) {
		tools := New(dir, zerolog.Nop())
		t.Setenv("PATH", dir)
		if _, err := tools.Lookup("ktx"); err == nil {
			t.Error("expected error for missing tool")
		}
		if tools.Available() {
			t.Error("Available should be false without ktx")
		}
	})
}

func TestEnvAddsLibraryPath(t *testing.T) {
	tools := New("/opt/ktx/bin", zerolog.Nop())
	var key string
	switch runtime.GOOS {
	case "darwin":
		key = "DYLD_LIBRARY_PATH"
	case "windows":
		key = "PATH"
	default:
		key = "LD_LIBRARY_PATH"
	}
	libDir := filepath.Join("/opt/ktx/bin", "lib")
	found := false
	for _, kv := range tools.env() {
		if strings.HasPrefix(kv, key+"=") && strings.Contains(kv, "/opt/ktx/bin") && strings.Contains(kv, libDir) {
			found = true
		}
	}
	if !found {
		t.Errorf("%s not augmented with tool directory and its lib subdirectory", key)
	}

	bare := New("", zerolog.Nop())
	if len(bare.env()) != len(os.Environ()) {
		t.Error("empty tool directory should leave environment alone")
	}
}
