package xio

import (
	"fmt"
	"io"
	"strings"

	"pragmax/internal/program"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

var intrinsicNames = map[string]string{
	types.NameInt:       "integer",
	types.NameReal:      "real",
	types.NameLogical:   "logical",
	types.NameCharacter: "character",
}

type printer struct {
	prog *program.Program
	t    *tree.Tree
	out  *writer
}

// Print renders prog as Fortran-like source, indenting nested blocks by
// indent spaces.
func Print(w io.Writer, prog *program.Program, indent int) error {
	p := &printer{prog: prog, t: prog.Tree, out: newWriter(indent)}
	for i, fn := range prog.Functions() {
		if i > 0 {
			p.out.Newline()
		}
		p.function(fn)
	}
	_, err := w.Write(p.out.Bytes())
	return err
}

func (p *printer) function(fn *program.Function) {
	desc, _ := p.prog.Types.Lookup(fn.Type())
	keyword := "subroutine"
	switch {
	case desc.Program:
		keyword = "program"
	case desc.Return.IsValid() && desc.Return != p.prog.Types.Builtins().Void:
		keyword = "function"
	}
	header := keyword + " " + fn.Name()
	if !desc.Program {
		names := make([]string, len(desc.Params))
		for i, param := range desc.Params {
			names[i] = param.Name
		}
		header += "(" + strings.Join(names, ", ") + ")"
	}
	p.out.Line(header)
	p.out.IndentPush()
	for _, decl := range p.t.Children(fn.Declarations()) {
		switch p.t.Op(decl) {
		case tree.OpVarDecl:
			p.declaration(decl)
		case tree.OpPragma:
			p.out.Line("!$" + p.t.Value(decl))
		}
	}
	p.block(fn.Body())
	p.out.IndentPop()
	p.out.Line("end " + keyword + " " + fn.Name())
}

func (p *printer) declaration(decl tree.NodeID) {
	name := p.t.MatchDirectDescendant(decl, tree.OpName)
	p.out.Line(p.typeName(p.t.TypeOf(name)) + " :: " + p.t.Value(name))
}

// typeName renders a variable type, e.g. "real, dimension(:,:)".
func (p *printer) typeName(id types.TypeID) string {
	desc, ok := p.prog.Types.Lookup(id)
	if !ok {
		return "type(unknown)"
	}
	switch desc.Kind {
	case types.KindIntrinsic:
		if name, ok := intrinsicNames[desc.Name]; ok {
			return name
		}
		return desc.Name
	case types.KindBasic:
		out := p.typeName(desc.Ref)
		if desc.Dims > 0 {
			out += ", dimension(" + strings.TrimSuffix(strings.Repeat(":,", desc.Dims), ",") + ")"
		}
		if desc.Intent != "" {
			out += ", intent(" + desc.Intent + ")"
		}
		return out
	default:
		return "procedure"
	}
}

func (p *printer) block(id tree.NodeID) {
	for _, stmt := range p.t.Children(id) {
		p.statement(stmt)
	}
}

func (p *printer) statement(id tree.NodeID) {
	t := p.t
	switch t.Op(id) {
	case tree.OpPragma:
		p.out.Line("!$" + t.Value(id))
	case tree.OpExprStatement:
		expr := t.Child(id, 0)
		if t.Op(expr) == tree.OpFunctionCall {
			p.out.Line("call " + program.ExprText(t, expr))
			return
		}
		p.out.Line(program.ExprText(t, expr))
	case tree.OpAssignStatement:
		p.out.Line(fmt.Sprintf("%s = %s",
			program.ExprText(t, t.Child(id, 0)), program.ExprText(t, t.Child(id, 1))))
	case tree.OpDoStatement:
		p.loop(id)
	case tree.OpIfStatement:
		p.out.Line("if (" + program.ExprText(t, t.MatchDirectDescendant(id, tree.OpCondition)) + ") then")
		p.nested(t.MatchDirectDescendant(id, tree.OpThen))
		if els := t.MatchDirectDescendant(id, tree.OpElse); els.IsValid() {
			p.out.Line("else")
			p.nested(els)
		}
		p.out.Line("end if")
	default:
		p.out.Line(program.ExprText(t, id))
	}
}

func (p *printer) loop(do tree.NodeID) {
	t := p.t
	rng := t.MatchDirectDescendant(do, tree.OpIndexRange)
	header := fmt.Sprintf("do %s = %s, %s",
		t.Value(t.MatchDirectDescendant(do, tree.OpVar)),
		program.ExprText(t, t.MatchDirectDescendant(rng, tree.OpLowerBound)),
		program.ExprText(t, t.MatchDirectDescendant(rng, tree.OpUpperBound)))
	if step := t.MatchDirectDescendant(rng, tree.OpStep); step.IsValid() {
		header += ", " + program.ExprText(t, step)
	}
	p.out.Line(header)
	p.nested(p.prog.LoopBody(do))
	p.out.Line("end do")
}

// nested prints a statement list one level deeper. A then or else node
// holds its statements directly or under a body.
func (p *printer) nested(id tree.NodeID) {
	if body := p.t.MatchDirectDescendant(id, tree.OpBody); body.IsValid() {
		id = body
	}
	p.out.IndentPush()
	p.block(id)
	p.out.IndentPop()
}
