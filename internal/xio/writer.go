package xio

// writer accumulates printed source and tracks indentation.
type writer struct {
	buf         []byte
	indentWidth int
	indentLevel int
	atLineStart bool
}

func newWriter(indentWidth int) *writer {
	if indentWidth <= 0 {
		indentWidth = 2
	}
	return &writer{indentWidth: indentWidth, atLineStart: true}
}

func (w *writer) Bytes() []byte { return w.buf }

func (w *writer) writeIndent() {
	if !w.atLineStart {
		return
	}
	for range w.indentLevel * w.indentWidth {
		w.buf = append(w.buf, ' ')
	}
	w.atLineStart = false
}

// WriteString writes s, indenting it when it starts a line.
func (w *writer) WriteString(s string) {
	if s == "" {
		return
	}
	w.writeIndent()
	w.buf = append(w.buf, s...)
	w.atLineStart = s[len(s)-1] == '\n'
}

// Line writes s followed by a newline.
func (w *writer) Line(s string) {
	w.WriteString(s)
	w.Newline()
}

// Newline ends the current line; at a line start it writes an empty line.
func (w *writer) Newline() {
	w.buf = append(w.buf, '\n')
	w.atLineStart = true
}

func (w *writer) IndentPush() { w.indentLevel++ }

func (w *writer) IndentPop() {
	if w.indentLevel > 0 {
		w.indentLevel--
	}
}
