package types

import "fmt"

// TypeID uniquely identifies a type inside the program-wide Table.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// IsValid reports whether the id refers to an allocated type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind enumerates the type descriptor families.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindIntrinsic is a language builtin (Fint, Freal, ...).
	KindIntrinsic
	// KindBasic wraps an element type, optionally with array dimensions.
	KindBasic
	// KindFunction describes a function or subroutine signature.
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindIntrinsic:
		return "intrinsic"
	case KindBasic:
		return "basic"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Intrinsic type names as they appear in documents.
const (
	NameInt       = "Fint"
	NameReal      = "Freal"
	NameLogical   = "Flogical"
	NameCharacter = "Fcharacter"
	NameVoid      = "Fvoid"
)

// Param is a named dummy argument of a function type.
type Param struct {
	Name string
	Type TypeID
}

// Type is a descriptor stored in the Table. Descriptors are values: once a
// descriptor is published under an id it is never changed.
type Type struct {
	Kind Kind
	Name string // intrinsic name, empty for generated types

	// Basic types.
	Ref    TypeID // element type
	Dims   int    // array rank, 0 for scalars
	Intent string // in, out, inout for dummy arguments

	// Function types.
	Return    TypeID
	Params    []Param
	Program   bool
	Recursive bool
	Internal  bool
}

// IsArray reports whether the descriptor carries array dimensions.
func (t Type) IsArray() bool {
	return t.Kind == KindBasic && t.Dims > 0
}

func (t Type) clone() Type {
	if t.Params != nil {
		t.Params = append([]Param(nil), t.Params...)
	}
	return t
}
