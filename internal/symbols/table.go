package symbols

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pragmax/internal/tree"
	"pragmax/internal/types"
)

var (
	// ErrDuplicate is returned when a name is already bound in the table.
	ErrDuplicate = errors.New("symbols: duplicate name")
	// ErrNotFound is returned when a name is not bound in the table.
	ErrNotFound = errors.New("symbols: name not found")
)

// Key folds an identifier to the form used by the table indexes. Fortran
// names are case-insensitive.
func Key(name string) string { return strings.ToLower(name) }

// Table is an insertion-ordered symbol table. Names are unique up to case
// and keep the spelling they were bound with.
type Table struct {
	entries []Symbol
	index   map[string]uint32
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]uint32)}
}

// Add binds a new symbol.
func (t *Table) Add(sym Symbol) error {
	if sym.Name == "" {
		return fmt.Errorf("symbols: empty name")
	}
	if _, ok := t.index[Key(sym.Name)]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, sym.Name)
	}
	t.entries = append(t.entries, sym)
	t.index[Key(sym.Name)] = position(len(t.entries) - 1)
	return nil
}

// Get returns the symbol bound to name.
func (t *Table) Get(name string) (Symbol, bool) {
	pos, ok := t.index[Key(name)]
	if !ok {
		return Symbol{}, false
	}
	return t.entries[pos], true
}

// Has reports whether name is bound.
func (t *Table) Has(name string) bool {
	_, ok := t.index[Key(name)]
	return ok
}

// SetType rebinds the type of an existing symbol.
func (t *Table) SetType(name string, typ types.TypeID) error {
	pos, ok := t.index[Key(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	t.entries[pos].Type = typ
	return nil
}

// Remove unbinds name. Removing an unknown name is a no-op.
func (t *Table) Remove(name string) {
	pos, ok := t.index[Key(name)]
	if !ok {
		return
	}
	t.entries = append(t.entries[:pos], t.entries[pos+1:]...)
	delete(t.index, Key(name))
	for i := int(pos); i < len(t.entries); i++ {
		t.index[Key(t.entries[i].Name)] = position(i)
	}
}

// Rename moves the symbol bound to from under the name to, keeping its position.
func (t *Table) Rename(from, to string) error {
	pos, ok := t.index[Key(from)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if Key(from) != Key(to) {
		if _, taken := t.index[Key(to)]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicate, to)
		}
		delete(t.index, Key(from))
		t.index[Key(to)] = pos
	}
	t.entries[pos].Name = to
	return nil
}

// Len reports the number of bound symbols.
func (t *Table) Len() int { return len(t.entries) }

// All returns a copy of the symbols in insertion order.
func (t *Table) All() []Symbol {
	out := make([]Symbol, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clone returns an independent copy with r applied to names and types. It
// fails when r maps two names onto one.
func (t *Table) Clone(r tree.Rename) (*Table, error) {
	out := NewTable()
	for _, sym := range t.entries {
		sym.Name = r.Name(sym.Name)
		sym.Type = r.Type(sym.Type)
		if err := out.Add(sym); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func position(i int) uint32 {
	pos, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("symbol table overflow: %w", err))
	}
	return pos
}
