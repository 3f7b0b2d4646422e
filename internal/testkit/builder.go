// Package testkit builds small programs for package tests.
package testkit

import (
	"strconv"
	"testing"

	"pragmax/internal/program"
	"pragmax/internal/source"
	"pragmax/internal/symbols"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// Param describes a real dummy argument; Dims 0 is a scalar.
type Param struct {
	Name string
	Dims int
}

// Builder appends statements to a program and fails the test on any
// construction error.
type Builder struct {
	TB   testing.TB
	Prog *program.Program
}

// New starts an empty program named "test.json".
func New(tb testing.TB) *Builder {
	tb.Helper()
	return &Builder{TB: tb, Prog: program.New("test.json", 0, nil)}
}

func (b *Builder) span(line uint32) source.Span {
	return b.Prog.Span(line)
}

func (b *Builder) realType(dims int) types.TypeID {
	elem := b.Prog.Types.Builtins().Real
	if dims == 0 {
		return elem
	}
	return b.Prog.Types.Array(elem, dims)
}

func (b *Builder) append(parent, child tree.NodeID) {
	b.TB.Helper()
	if err := b.Prog.Tree.Append(parent, child); err != nil {
		b.TB.Fatalf("append %s to %s: %v", b.Prog.Tree.Op(child), b.Prog.Tree.Op(parent), err)
	}
}

// Subroutine defines a subroutine with real parameters.
func (b *Builder) Subroutine(name string, line uint32, params ...Param) *program.Function {
	b.TB.Helper()
	paramTypes := make([]types.TypeID, len(params))
	sig := make([]types.Param, len(params))
	for i, p := range params {
		paramTypes[i] = b.realType(p.Dims)
		sig[i] = types.Param{Name: p.Name, Type: paramTypes[i]}
	}
	fnType := b.Prog.Types.Function(b.Prog.Types.Builtins().Void, sig...)
	fn, err := b.Prog.AddFunction(name, fnType, b.span(line))
	if err != nil {
		b.TB.Fatalf("add function %s: %v", name, err)
	}
	for i, p := range params {
		if _, err := fn.Declare(p.Name, paramTypes[i], symbols.KindParam, b.span(line)); err != nil {
			b.TB.Fatalf("declare %s: %v", p.Name, err)
		}
	}
	return fn
}

// Real declares a local real variable, an array when dims > 0.
func (b *Builder) Real(fn *program.Function, name string, dims int) {
	b.TB.Helper()
	if _, err := fn.Declare(name, b.realType(dims), symbols.KindLocal, b.Prog.Tree.SpanOf(fn.Node)); err != nil {
		b.TB.Fatalf("declare %s: %v", name, err)
	}
}

// Integer declares a local integer scalar.
func (b *Builder) Integer(fn *program.Function, name string) {
	b.TB.Helper()
	if _, err := fn.Declare(name, b.Prog.Types.Builtins().Int, symbols.KindLocal, b.Prog.Tree.SpanOf(fn.Node)); err != nil {
		b.TB.Fatalf("declare %s: %v", name, err)
	}
}

// Var builds a variable reference typed from fn's declarations.
func (b *Builder) Var(fn *program.Function, name string, line uint32) tree.NodeID {
	b.TB.Helper()
	typ, ok := fn.DeclaredType(name)
	if !ok {
		b.TB.Fatalf("variable %s not declared in %s", name, fn.Name())
	}
	return b.Prog.NewVar(name, typ, b.span(line))
}

// Expr builds an integer constant for numeric text and a variable otherwise.
func (b *Builder) Expr(fn *program.Function, text string, line uint32) tree.NodeID {
	b.TB.Helper()
	if _, err := strconv.Atoi(text); err == nil {
		return b.Prog.Tree.NewLeaf(tree.OpIntConstant, text, b.Prog.Types.Builtins().Int, b.span(line))
	}
	return b.Var(fn, text, line)
}

// Pragma appends a pragma statement to parent.
func (b *Builder) Pragma(parent tree.NodeID, text string, line uint32) tree.NodeID {
	b.TB.Helper()
	p := b.Prog.NewPragma(text, b.span(line))
	b.append(parent, p)
	return p
}

// Call appends "call callee(args...)" to parent and returns the statement and
// the functionCall node.
func (b *Builder) Call(parent tree.NodeID, fn *program.Function, callee string, line uint32, args ...string) (stmt, call tree.NodeID) {
	b.TB.Helper()
	calleeType := types.NoTypeID
	if sym, ok := b.Prog.Globals.Get(callee); ok {
		calleeType = sym.Type
	}
	sp := b.span(line)
	stmt = b.Prog.Tree.New(tree.OpExprStatement, sp)
	call = b.Prog.Tree.New(tree.OpFunctionCall, sp)
	arguments := b.Prog.Tree.New(tree.OpArguments, sp)
	b.append(call, b.Prog.NewName(callee, calleeType, sp))
	b.append(call, arguments)
	for _, a := range args {
		b.append(arguments, b.Expr(fn, a, line))
	}
	b.append(stmt, call)
	b.append(parent, stmt)
	return stmt, call
}

// Loop appends "do ind = lower, upper" to parent and returns the loop.
func (b *Builder) Loop(parent tree.NodeID, fn *program.Function, ind, lower, upper string, line uint32) tree.NodeID {
	b.TB.Helper()
	sp := b.span(line)
	rng := b.Prog.NewIndexRange(b.Expr(fn, lower, line), b.Expr(fn, upper, line), tree.NoNodeID, sp)
	do := b.Prog.NewDoStatement(b.Var(fn, ind, line), rng, sp)
	b.append(parent, do)
	return do
}

// ArrayRef builds name(idx...) typed with the element type.
func (b *Builder) ArrayRef(fn *program.Function, name string, line uint32, idx ...string) tree.NodeID {
	b.TB.Helper()
	base := b.Var(fn, name, line)
	indices := make([]tree.NodeID, len(idx))
	for i, ix := range idx {
		indices[i] = b.Expr(fn, ix, line)
	}
	return b.Prog.NewArrayRef(base, b.Prog.Types.Element(b.Prog.Tree.TypeOf(base)), indices, b.span(line))
}

// Increment appends "lhs = lhs + 1.0" where lhs is built by ref.
func (b *Builder) Increment(parent tree.NodeID, line uint32, ref func() tree.NodeID) tree.NodeID {
	b.TB.Helper()
	sp := b.span(line)
	lhs := ref()
	assign := b.Prog.Tree.New(tree.OpAssignStatement, sp)
	plus := b.Prog.Tree.NewLeaf(tree.OpPlusExpr, "", b.Prog.Tree.TypeOf(lhs), sp)
	b.append(plus, ref())
	b.append(plus, b.Prog.Tree.NewLeaf(tree.OpRealConstant, "1.0", b.Prog.Types.Builtins().Real, sp))
	b.append(assign, lhs)
	b.append(assign, plus)
	b.append(parent, assign)
	return assign
}
