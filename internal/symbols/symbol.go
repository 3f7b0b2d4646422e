package symbols

import (
	"fmt"

	"pragmax/internal/types"
)

// Kind classifies a symbol by storage class.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindLocal is an automatic variable of a function.
	KindLocal
	// KindParam is a dummy argument.
	KindParam
	// KindFunction names a function defined in the program.
	KindFunction
	// KindExternDef names a function defined elsewhere in the same document.
	KindExternDef
	// KindExtern names an external procedure.
	KindExtern
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindLocal:     "auto",
	KindParam:     "param",
	KindFunction:  "ffunc",
	KindExternDef: "extern_def",
	KindExtern:    "extern",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind maps a storage class label back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s && Kind(i) != KindInvalid {
			return Kind(i), true
		}
	}
	return KindInvalid, false
}

// Symbol is the table record of an identifier.
type Symbol struct {
	Name string
	Type types.TypeID
	Kind Kind
}
