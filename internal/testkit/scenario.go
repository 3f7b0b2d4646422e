package testkit

import (
	"testing"

	"pragmax/internal/program"
	"pragmax/internal/tree"
)

// Extraction is the canonical loop-extraction fixture:
//
//	subroutine main
//	  real :: x(10)
//	  !$<directive>            (line 3)
//	  call f(x)                (line 4)
//	end
//	subroutine f(y)
//	  real :: y(:)
//	  integer :: i
//	  do i = 1, 10             (line 9)
//	    y(i) = y(i) + 1.0      (line 10)
//	  end do
//	end
type Extraction struct {
	*Builder
	Main, Callee *program.Function
	Pragma       tree.NodeID
	CallStmt     tree.NodeID
	Call         tree.NodeID
	Loop         tree.NodeID
}

// NewExtraction builds the fixture with directive as the pragma text.
func NewExtraction(tb testing.TB, directive string) *Extraction {
	tb.Helper()
	b := New(tb)
	callee := b.Subroutine("f", 6, Param{Name: "y", Dims: 1})
	b.Integer(callee, "i")
	loop := b.Loop(callee.Body(), callee, "i", "1", "10", 9)
	b.Increment(b.Prog.LoopBody(loop), 10, func() tree.NodeID {
		return b.ArrayRef(callee, "y", 10, "i")
	})

	main := b.Subroutine("main", 1)
	b.Real(main, "x", 1)
	pragma := b.Pragma(main.Body(), directive, 3)
	stmt, call := b.Call(main.Body(), main, "f", 4, "x")

	// main precedes f in document order
	if err := b.Prog.Tree.InsertBefore(callee.Node, main.Node); err != nil {
		tb.Fatalf("reorder: %v", err)
	}
	return &Extraction{
		Builder:  b,
		Main:     main,
		Callee:   callee,
		Pragma:   pragma,
		CallStmt: stmt,
		Call:     call,
		Loop:     loop,
	}
}
