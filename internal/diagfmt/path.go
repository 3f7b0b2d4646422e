package diagfmt

import (
	"path/filepath"

	"pragmax/internal/source"
)

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode, base string) string {
	if fs == nil {
		return "<unknown>"
	}
	path := fs.Path(id)
	if path == "" || path == "<unknown>" {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if base != "" {
			if rel, err := filepath.Rel(base, path); err == nil {
				return filepath.ToSlash(rel)
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return filepath.ToSlash(path)
}
