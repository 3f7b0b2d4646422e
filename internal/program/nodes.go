package program

import (
	"pragmax/internal/source"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// NewName builds a detached name node.
func (p *Program) NewName(value string, typ types.TypeID, sp source.Span) tree.NodeID {
	return p.Tree.NewLeaf(tree.OpName, value, typ, sp)
}

// NewVar builds a detached variable reference.
func (p *Program) NewVar(name string, typ types.TypeID, sp source.Span) tree.NodeID {
	return p.Tree.NewLeaf(tree.OpVar, name, typ, sp)
}

// NewVarDecl builds a detached varDecl with a single name child.
func (p *Program) NewVarDecl(name string, typ types.TypeID, sp source.Span) tree.NodeID {
	decl := p.Tree.New(tree.OpVarDecl, sp)
	p.mustAppend(decl, p.NewName(name, typ, sp))
	return decl
}

// NewPragma builds a detached pragma statement carrying raw directive text.
func (p *Program) NewPragma(text string, sp source.Span) tree.NodeID {
	return p.Tree.NewLeaf(tree.OpPragma, text, types.NoTypeID, sp)
}

// NewDoStatement builds a detached loop [induction, indexRange, body] with an
// empty body.
func (p *Program) NewDoStatement(induction, indexRange tree.NodeID, sp source.Span) tree.NodeID {
	do := p.Tree.New(tree.OpDoStatement, sp)
	p.mustAppend(do, induction)
	p.mustAppend(do, indexRange)
	p.mustAppend(do, p.Tree.New(tree.OpBody, sp))
	return do
}

// NewIndexRange builds indexRange [lowerBound, upperBound, step?] around the
// given bound expressions. A missing step is omitted.
func (p *Program) NewIndexRange(lower, upper, step tree.NodeID, sp source.Span) tree.NodeID {
	rng := p.Tree.New(tree.OpIndexRange, sp)
	for _, part := range []struct {
		op   tree.Opcode
		expr tree.NodeID
	}{
		{tree.OpLowerBound, lower},
		{tree.OpUpperBound, upper},
		{tree.OpStep, step},
	} {
		if !part.expr.IsValid() {
			continue
		}
		bound := p.Tree.New(part.op, sp)
		p.mustAppend(bound, part.expr)
		p.mustAppend(rng, bound)
	}
	return rng
}

// NewArrayRef builds FarrayRef [varRef [base], arrayIndex [idx]...] typed
// with the element type.
func (p *Program) NewArrayRef(base tree.NodeID, elem types.TypeID, indices []tree.NodeID, sp source.Span) tree.NodeID {
	ref := p.Tree.NewLeaf(tree.OpArrayRef, "", elem, sp)
	varRef := p.Tree.NewLeaf(tree.OpVarRef, "", p.Tree.TypeOf(base), sp)
	p.mustAppend(varRef, base)
	p.mustAppend(ref, varRef)
	for _, idx := range indices {
		ai := p.Tree.New(tree.OpArrayIndex, sp)
		p.mustAppend(ai, idx)
		p.mustAppend(ref, ai)
	}
	return ref
}

// ArrayRefBase returns the Var under the varRef of an FarrayRef.
func (p *Program) ArrayRefBase(ref tree.NodeID) tree.NodeID {
	return p.Tree.MatchSeq(ref, tree.OpVarRef, tree.OpVar)
}

// CallName returns the name child of a functionCall.
func (p *Program) CallName(call tree.NodeID) tree.NodeID {
	return p.Tree.MatchDirectDescendant(call, tree.OpName)
}

// CallArguments returns the argument expressions of a functionCall.
func (p *Program) CallArguments(call tree.NodeID) []tree.NodeID {
	return p.Tree.Children(p.Tree.MatchDirectDescendant(call, tree.OpArguments))
}

// LoopBody returns the body of a do statement.
func (p *Program) LoopBody(do tree.NodeID) tree.NodeID {
	return p.Tree.MatchDirectDescendant(do, tree.OpBody)
}

// mustAppend links freshly built nodes; failure means a factory bug.
func (p *Program) mustAppend(parent, child tree.NodeID) {
	if err := p.Tree.Append(parent, child); err != nil {
		panic(err)
	}
}
