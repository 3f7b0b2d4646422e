package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pragmax/internal/accel"
	"pragmax/internal/xio"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestResolveWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
[accelerator]
dialect = "openmp"
target = "gpu"

[output]
format = "msgpack"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Resolve(nested)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("path = %q", cfg.Path)
	}
	if cfg.Output.Indent != 2 || cfg.Diagnostics.Max != 100 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	gen, err := cfg.Generator()
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	if gen.Dialect() != accel.DialectOpenMP || gen.Target() != accel.TargetGPU {
		t.Fatalf("generator = %s/%s", gen.Dialect(), gen.Target())
	}
	if cfg.Format() != xio.FormatMsgpack {
		t.Fatalf("format = %s", cfg.Format())
	}
}

func TestResolveWithoutFile(t *testing.T) {
	cfg, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Path != "" || cfg.Accelerator.Dialect != "none" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "[output]\ncolour = true\n", "unknown keys"},
		{"bad dialect", "[accelerator]\ndialect = \"cuda\"\n", "[accelerator].dialect"},
		{"negative indent", "[output]\nindent = -1\n", "indent"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"file\"\n", "[trace].mode"},
		{"syntax", "[output\n", "failed to parse TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tc.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}
