package source

import (
	"fmt"
)

// Span anchors a node or diagnostic to the original program source.
// Line is 1-based; zero means the location is unknown.
type Span struct {
	File FileID
	Line uint32
	Col  uint32
}

// At builds a span for a line in the given file.
func At(file FileID, line uint32) Span {
	return Span{File: file, Line: line}
}

// Known reports whether the span carries a line number.
func (s Span) Known() bool {
	return s.Line != 0
}

func (s Span) String() string {
	if s.Col != 0 {
		return fmt.Sprintf("%d:%d:%d", s.File, s.Line, s.Col)
	}
	return fmt.Sprintf("%d:%d", s.File, s.Line)
}

// Before orders spans by file, then line, then column.
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Col < other.Col
}
