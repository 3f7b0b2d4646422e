package xio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	"pragmax/internal/diag"
	"pragmax/internal/program"
	"pragmax/internal/source"
)

// Format selects the document encoding.
type Format uint8

const (
	// FormatAuto picks the encoding from the file extension.
	FormatAuto Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "xmp":
		return FormatMsgpack, nil
	default:
		return FormatAuto, fmt.Errorf("unknown document format %q (want auto, json, msgpack)", s)
	}
}

// FormatForPath maps .xmp to msgpack and everything else to JSON.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xmp") {
		return FormatMsgpack
	}
	return FormatJSON
}

// WriteOptions controls document output.
type WriteOptions struct {
	Format Format
	// Indent is the JSON indentation width; 0 writes compact JSON.
	Indent int
}

// Marshal encodes doc.
func Marshal(doc *Document, opts WriteOptions) ([]byte, error) {
	switch opts.Format {
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		enc.UseCompactInts(true)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		if opts.Indent <= 0 {
			return json.Marshal(doc)
		}
		out, err := json.MarshalIndent(doc, "", strings.Repeat(" ", opts.Indent))
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}

// Unmarshal decodes a document in the given format.
func Unmarshal(data []byte, format Format) (*Document, error) {
	doc := new(Document)
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ReadFile loads the document at path into fs and decodes it. Load and
// decode failures are also recorded in bag as IO diagnostics.
func ReadFile(path string, fs *source.FileSet, bag *diag.Bag) (*program.Program, error) {
	file, err := fs.Load(path)
	if err != nil {
		report(bag, diag.IOLoadFileError, source.Span{}, fmt.Sprintf("cannot read %s: %v", path, err))
		return nil, err
	}
	doc, err := Unmarshal(fs.Get(file).Content, FormatForPath(path))
	if err == nil {
		var prog *program.Program
		if prog, err = Decode(doc, file, bag); err == nil {
			return prog, nil
		}
	}
	report(bag, diag.IODecodeError, source.At(file, 0), fmt.Sprintf("cannot decode %s: %v", path, err))
	return nil, fmt.Errorf("%s: %w", path, err)
}

// WriteFile encodes prog and replaces path atomically.
func WriteFile(path string, prog *program.Program, opts WriteOptions) error {
	if opts.Format == FormatAuto {
		opts.Format = FormatForPath(path)
	}
	data, err := Marshal(Encode(prog), opts)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".pragmax-*")
	if err != nil {
		return err
	}
	// removing fails once the rename succeeded
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func report(bag *diag.Bag, code diag.Code, sp source.Span, msg string) {
	if bag != nil {
		diag.ReportError(diag.BagReporter{Bag: bag}, code, sp, msg).Emit()
	}
}
