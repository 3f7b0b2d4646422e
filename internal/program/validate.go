package program

import (
	"errors"
	"fmt"

	"pragmax/internal/tree"
)

// Validate checks the consistency between the tree and its tables: parent
// links, identifier resolution in every function body, liveness of indexed
// declarations and existence of every referenced type.
func (p *Program) Validate() error {
	var errs []error
	if err := p.Tree.Validate(p.Root()); err != nil {
		errs = append(errs, err)
	}
	p.Tree.Walk(p.Root(), func(id tree.NodeID) bool {
		if typ := p.Tree.TypeOf(id); typ.IsValid() && !p.Types.Has(typ) {
			errs = append(errs, fmt.Errorf("%s %d references unknown type %d", p.Tree.Op(id), id, typ))
		}
		return true
	})
	for _, fn := range p.Functions() {
		for _, name := range fn.Decls.Names() {
			if !fn.Symbols.Has(name) {
				errs = append(errs, fmt.Errorf("%s: declaration %s has no symbol", fn.Name(), name))
			}
		}
		for _, v := range p.Tree.MatchAll(fn.Body(), tree.OpVar) {
			name := p.Tree.Value(v)
			if !fn.Symbols.Has(name) && !p.Globals.Has(name) {
				errs = append(errs, fmt.Errorf("%s: variable %s does not resolve", fn.Name(), name))
			}
		}
		for _, call := range p.Tree.MatchAll(fn.Body(), tree.OpFunctionCall) {
			name := p.Tree.Value(p.CallName(call))
			if !fn.Symbols.Has(name) && !p.Globals.Has(name) {
				errs = append(errs, fmt.Errorf("%s: callee %s does not resolve", fn.Name(), name))
			}
		}
	}
	return errors.Join(errs...)
}
