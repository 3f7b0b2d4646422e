package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetLoadStripsBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.json")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBF{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "{}" {
		t.Fatalf("expected BOM to be stripped, got %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 {
		t.Fatalf("expected FileHadBOM flag")
	}
	if _, ok := fs.GetByPath(path); !ok {
		t.Fatalf("expected lookup by path to succeed")
	}
}

func TestFileSetPathUnknown(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("<mem>", nil)
	if got := fs.Path(7); got != "<unknown>" {
		t.Fatalf("expected <unknown>, got %q", got)
	}
	if got := fs.Path(0); got != "<mem>" {
		t.Fatalf("expected <mem>, got %q", got)
	}
}

func TestSpanOrdering(t *testing.T) {
	a := At(0, 3)
	b := At(0, 10)
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %v before %v", a, b)
	}
	if (Span{}).Known() {
		t.Fatalf("zero span must be unknown")
	}
}
