package xio

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"pragmax/internal/diag"
	"pragmax/internal/program"
	"pragmax/internal/source"
	"pragmax/internal/symbols"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// SchemaVersion is bumped whenever the Document layout changes.
const SchemaVersion uint16 = 1

var (
	// ErrSchema reports a document written with another schema version.
	ErrSchema = errors.New("xio: unsupported document schema")
	// ErrMalformed reports a document that does not describe a program.
	ErrMalformed = errors.New("xio: malformed document")
)

// Document is the serialized program.
type Document struct {
	Schema  uint16         `json:"schema"`
	Source  string         `json:"source"`
	Types   []TypeRecord   `json:"types,omitempty"`
	Globals []SymbolRecord `json:"globals,omitempty"`
	Program NodeRecord     `json:"program"`
}

// TypeRecord is one generated type. Intrinsic types are implicit.
type TypeRecord struct {
	Key       string        `json:"key"`
	Kind      string        `json:"kind"`
	Ref       string        `json:"ref,omitempty"`
	Dims      int           `json:"dims,omitempty"`
	Intent    string        `json:"intent,omitempty"`
	Return    string        `json:"return,omitempty"`
	Params    []ParamRecord `json:"params,omitempty"`
	IsProgram bool          `json:"is_program,omitempty"`
	Recursive bool          `json:"recursive,omitempty"`
	Internal  bool          `json:"internal,omitempty"`
}

// ParamRecord is a named dummy argument of a function type.
type ParamRecord struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SymbolRecord is a symbol table entry.
type SymbolRecord struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Kind string `json:"sclass"`
}

// NodeRecord is one tree node. Function definitions carry their symbols.
type NodeRecord struct {
	Op       string         `json:"op"`
	Value    string         `json:"value,omitempty"`
	Type     string         `json:"type,omitempty"`
	Line     uint32         `json:"lineno,omitempty"`
	Symbols  []SymbolRecord `json:"symbols,omitempty"`
	Children []NodeRecord   `json:"children,omitempty"`
}

// Encode captures the live part of prog as a document.
func Encode(prog *program.Program) *Document {
	doc := &Document{Schema: SchemaVersion, Source: prog.Source}
	for _, id := range prog.Types.Generated() {
		doc.Types = append(doc.Types, typeRecord(prog.Types, id))
	}
	doc.Globals = symbolRecords(prog.Types, prog.Globals)
	doc.Program = encodeNode(prog, prog.Root())
	return doc
}

func typeRecord(tt *types.Table, id types.TypeID) TypeRecord {
	desc := tt.MustLookup(id)
	rec := TypeRecord{
		Key:       tt.Key(id),
		Kind:      desc.Kind.String(),
		Ref:       tt.Key(desc.Ref),
		Dims:      desc.Dims,
		Intent:    desc.Intent,
		Return:    tt.Key(desc.Return),
		IsProgram: desc.Program,
		Recursive: desc.Recursive,
		Internal:  desc.Internal,
	}
	for _, p := range desc.Params {
		rec.Params = append(rec.Params, ParamRecord{Name: p.Name, Type: tt.Key(p.Type)})
	}
	return rec
}

func symbolRecords(tt *types.Table, table *symbols.Table) []SymbolRecord {
	all := table.All()
	out := make([]SymbolRecord, 0, len(all))
	for _, sym := range all {
		out = append(out, SymbolRecord{Name: sym.Name, Type: tt.Key(sym.Type), Kind: sym.Kind.String()})
	}
	return out
}

func encodeNode(prog *program.Program, id tree.NodeID) NodeRecord {
	t := prog.Tree
	rec := NodeRecord{
		Op:    t.Op(id).String(),
		Value: t.Value(id),
		Type:  prog.Types.Key(t.TypeOf(id)),
		Line:  t.SpanOf(id).Line,
	}
	if fn := prog.FunctionOf(id); fn != nil && t.Op(id) == tree.OpFunctionDefinition {
		rec.Symbols = symbolRecords(prog.Types, fn.Symbols)
	}
	for _, child := range t.Children(id) {
		rec.Children = append(rec.Children, encodeNode(prog, child))
	}
	return rec
}

// decoder rebuilds a program; keys maps document type keys to ids of the
// new type table.
type decoder struct {
	prog *program.Program
	keys map[string]types.TypeID
}

// Decode rebuilds a program from doc. Nodes are anchored in file; a nil bag
// gets an unlimited one.
func Decode(doc *Document, file source.FileID, bag *diag.Bag) (*program.Program, error) {
	if doc.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchema, doc.Schema)
	}
	if doc.Program.Op != tree.OpProgram.String() {
		return nil, fmt.Errorf("%w: root is %q", ErrMalformed, doc.Program.Op)
	}
	d := &decoder{prog: program.New(doc.Source, file, bag), keys: make(map[string]types.TypeID)}
	if err := d.types(doc.Types); err != nil {
		return nil, err
	}
	for _, rec := range doc.Globals {
		sym, err := d.symbol(rec)
		if err != nil {
			return nil, err
		}
		if err := d.prog.Globals.Add(sym); err != nil {
			return nil, fmt.Errorf("%w: global %s: %v", ErrMalformed, rec.Name, err)
		}
	}
	for _, child := range doc.Program.Children {
		if child.Op != tree.OpGlobalDeclarations.String() {
			return nil, fmt.Errorf("%w: unexpected %q under the program", ErrMalformed, child.Op)
		}
		for _, def := range child.Children {
			id, err := d.node(def)
			if err != nil {
				return nil, err
			}
			if err := d.prog.Tree.Append(d.prog.GlobalDeclarations(), id); err != nil {
				return nil, err
			}
		}
	}
	return d.prog, nil
}

// types publishes the records in key order; a record whose references are
// not yet known is retried until no progress is made.
func (d *decoder) types(records []TypeRecord) error {
	pending := slices.Clone(records)
	slices.SortStableFunc(pending, func(a, b TypeRecord) int { return cmp.Compare(keyOrder(a.Key), keyOrder(b.Key)) })
	for len(pending) > 0 {
		var next []TypeRecord
		for _, rec := range pending {
			desc, ok, err := d.typeDesc(rec)
			if err != nil {
				return err
			}
			if !ok {
				next = append(next, rec)
				continue
			}
			if _, dup := d.keys[rec.Key]; dup {
				return fmt.Errorf("%w: duplicate type %s", ErrMalformed, rec.Key)
			}
			d.keys[rec.Key] = d.prog.Types.Generate(desc)
		}
		if len(next) == len(pending) {
			return fmt.Errorf("%w: unresolved type references in %s", ErrMalformed, next[0].Key)
		}
		pending = next
	}
	return nil
}

// keyOrder drops the kind prefix so keys sort by issue order.
func keyOrder(key string) string {
	if len(key) > 1 {
		return key[1:]
	}
	return key
}

// typeDesc converts a record; ok is false while a referenced type is unknown.
func (d *decoder) typeDesc(rec TypeRecord) (types.Type, bool, error) {
	kind, err := parseTypeKind(rec.Kind)
	if err != nil {
		return types.Type{}, false, err
	}
	desc := types.Type{
		Kind:      kind,
		Dims:      rec.Dims,
		Intent:    rec.Intent,
		Program:   rec.IsProgram,
		Recursive: rec.Recursive,
		Internal:  rec.Internal,
	}
	var ok bool
	if desc.Ref, ok = d.lookup(rec.Ref); !ok {
		return desc, false, nil
	}
	if desc.Return, ok = d.lookup(rec.Return); !ok {
		return desc, false, nil
	}
	for _, p := range rec.Params {
		typ, ok := d.lookup(p.Type)
		if !ok {
			return desc, false, nil
		}
		desc.Params = append(desc.Params, types.Param{Name: p.Name, Type: typ})
	}
	return desc, true, nil
}

// lookup resolves an intrinsic name or an already published key. The empty
// key is NoTypeID.
func (d *decoder) lookup(key string) (types.TypeID, bool) {
	if key == "" {
		return types.NoTypeID, true
	}
	if id, ok := d.prog.Types.Intrinsic(key); ok {
		return id, true
	}
	id, ok := d.keys[key]
	return id, ok
}

func (d *decoder) typeOf(key string) (types.TypeID, error) {
	id, ok := d.lookup(key)
	if !ok {
		return types.NoTypeID, fmt.Errorf("%w: unknown type %q", ErrMalformed, key)
	}
	return id, nil
}

func (d *decoder) symbol(rec SymbolRecord) (symbols.Symbol, error) {
	kind, ok := symbols.ParseKind(rec.Kind)
	if !ok {
		return symbols.Symbol{}, fmt.Errorf("%w: symbol %s has storage class %q", ErrMalformed, rec.Name, rec.Kind)
	}
	typ, err := d.typeOf(rec.Type)
	if err != nil {
		return symbols.Symbol{}, err
	}
	return symbols.Symbol{Name: rec.Name, Type: typ, Kind: kind}, nil
}

func (d *decoder) node(rec NodeRecord) (tree.NodeID, error) {
	op, ok := tree.ParseOpcode(rec.Op)
	if !ok {
		return tree.NoNodeID, fmt.Errorf("%w: unknown node %q at line %d", ErrMalformed, rec.Op, rec.Line)
	}
	typ, err := d.typeOf(rec.Type)
	if err != nil {
		return tree.NoNodeID, err
	}
	t := d.prog.Tree
	id := t.NewLeaf(op, rec.Value, typ, d.prog.Span(rec.Line))
	for _, child := range rec.Children {
		c, err := d.node(child)
		if err != nil {
			return tree.NoNodeID, err
		}
		if err := t.Append(id, c); err != nil {
			return tree.NoNodeID, err
		}
	}
	if op != tree.OpFunctionDefinition {
		return id, nil
	}
	local := symbols.NewTable()
	for _, s := range rec.Symbols {
		sym, err := d.symbol(s)
		if err != nil {
			return tree.NoNodeID, err
		}
		if err := local.Add(sym); err != nil {
			return tree.NoNodeID, fmt.Errorf("%w: symbol %s: %v", ErrMalformed, s.Name, err)
		}
	}
	if _, err := d.prog.Register(id, local); err != nil {
		return tree.NoNodeID, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return id, nil
}

func parseTypeKind(s string) (types.Kind, error) {
	for _, k := range []types.Kind{types.KindBasic, types.KindFunction} {
		if k.String() == s {
			return k, nil
		}
	}
	return types.KindInvalid, fmt.Errorf("%w: type kind %q", ErrMalformed, s)
}
