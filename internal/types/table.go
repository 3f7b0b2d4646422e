package types

import (
	"errors"
	"fmt"
	"strconv"

	"fortio.org/safecast"
)

// ErrUnknownType is returned when an operation refers to an id the table never issued.
var ErrUnknownType = errors.New("types: unknown type id")

// Builtins stores TypeIDs for the intrinsic types.
type Builtins struct {
	Int       TypeID
	Real      TypeID
	Logical   TypeID
	Character TypeID
	Void      TypeID
}

// Table is the global, append-only type table of a program. Every call to
// Generate or Derive yields a fresh id; ids are never reused.
type Table struct {
	types     []Type
	builtins  Builtins
	intrinsic map[string]TypeID
}

// NewTable constructs a table seeded with the intrinsic types.
func NewTable() *Table {
	t := &Table{
		types:     make([]Type, 1, 64), // slot 0 reserved for NoTypeID
		intrinsic: make(map[string]TypeID, 8),
	}
	t.builtins.Int = t.addIntrinsic(NameInt)
	t.builtins.Real = t.addIntrinsic(NameReal)
	t.builtins.Logical = t.addIntrinsic(NameLogical)
	t.builtins.Character = t.addIntrinsic(NameCharacter)
	t.builtins.Void = t.addIntrinsic(NameVoid)
	return t
}

func (t *Table) addIntrinsic(name string) TypeID {
	id := t.append(Type{Kind: KindIntrinsic, Name: name})
	t.intrinsic[name] = id
	return id
}

func (t *Table) append(desc Type) TypeID {
	value, err := safecast.Conv[uint32](len(t.types))
	if err != nil {
		panic(fmt.Errorf("type table overflow: %w", err))
	}
	t.types = append(t.types, desc.clone())
	return TypeID(value)
}

// Builtins returns TypeIDs for the intrinsic types.
func (t *Table) Builtins() Builtins {
	return t.builtins
}

// Generate publishes a new descriptor under a fresh id.
func (t *Table) Generate(desc Type) TypeID {
	if desc.Kind == KindInvalid || desc.Kind == KindIntrinsic {
		panic(fmt.Sprintf("types: cannot generate %s descriptor", desc.Kind))
	}
	return t.append(desc)
}

// Derive publishes a copy of an existing descriptor, optionally edited, under
// a fresh id. The original descriptor stays valid for its other users.
func (t *Table) Derive(id TypeID, edit func(*Type)) (TypeID, error) {
	desc, ok := t.Lookup(id)
	if !ok {
		return NoTypeID, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	if desc.Kind == KindIntrinsic {
		return NoTypeID, fmt.Errorf("types: cannot derive intrinsic %s", desc.Name)
	}
	if edit != nil {
		edit(&desc)
	}
	return t.append(desc), nil
}

// Array is a shorthand for a basic type of the given rank over elem.
func (t *Table) Array(elem TypeID, dims int) TypeID {
	return t.Generate(Type{Kind: KindBasic, Ref: elem, Dims: dims})
}

// Function is a shorthand for a function type.
func (t *Table) Function(ret TypeID, params ...Param) TypeID {
	return t.Generate(Type{Kind: KindFunction, Return: ret, Params: params})
}

// Lookup returns a copy of the descriptor for id.
func (t *Table) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(t.types) {
		return Type{}, false
	}
	return t.types[id].clone(), true
}

// MustLookup panics when id is invalid.
func (t *Table) MustLookup(id TypeID) Type {
	desc, ok := t.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return desc
}

// Has reports whether id was issued by this table.
func (t *Table) Has(id TypeID) bool {
	return id != NoTypeID && int(id) < len(t.types)
}

// Dimensions reports the array rank of id; scalars and unknown ids have rank 0.
func (t *Table) Dimensions(id TypeID) int {
	desc, ok := t.Lookup(id)
	if !ok || desc.Kind != KindBasic {
		return 0
	}
	return desc.Dims
}

// Element returns the element type of a basic type, or id itself otherwise.
func (t *Table) Element(id TypeID) TypeID {
	desc, ok := t.Lookup(id)
	if !ok || desc.Kind != KindBasic || desc.Ref == NoTypeID {
		return id
	}
	return desc.Ref
}

// Intrinsic resolves a builtin by name.
func (t *Table) Intrinsic(name string) (TypeID, bool) {
	id, ok := t.intrinsic[name]
	return id, ok
}

// Len reports the number of issued ids.
func (t *Table) Len() int { return len(t.types) - 1 }

// NextID returns the id the next Generate or Derive call will issue.
func (t *Table) NextID() TypeID {
	return TypeID(len(t.types))
}

// Generated lists every non-intrinsic id in issue order.
func (t *Table) Generated() []TypeID {
	out := make([]TypeID, 0, len(t.types))
	for i := 1; i < len(t.types); i++ {
		if t.types[i].Kind != KindIntrinsic {
			out = append(out, TypeID(i))
		}
	}
	return out
}

// Key renders the stable textual key of id: the intrinsic name, or a kind
// prefix followed by the hexadecimal id.
func (t *Table) Key(id TypeID) string {
	desc, ok := t.Lookup(id)
	if !ok {
		return ""
	}
	switch desc.Kind {
	case KindIntrinsic:
		return desc.Name
	case KindFunction:
		return fmt.Sprintf("F%07x", uint32(id))
	default:
		return fmt.Sprintf("A%07x", uint32(id))
	}
}

// Resolve maps a key produced by Key back to its id.
func (t *Table) Resolve(key string) (TypeID, bool) {
	if key == "" {
		return NoTypeID, false
	}
	if id, ok := t.intrinsic[key]; ok {
		return id, true
	}
	if len(key) < 2 || (key[0] != 'A' && key[0] != 'F') {
		return NoTypeID, false
	}
	raw, err := strconv.ParseUint(key[1:], 16, 32)
	if err != nil {
		return NoTypeID, false
	}
	id := TypeID(raw)
	desc, ok := t.Lookup(id)
	if !ok {
		return NoTypeID, false
	}
	if (key[0] == 'F') != (desc.Kind == KindFunction) {
		return NoTypeID, false
	}
	return id, true
}
