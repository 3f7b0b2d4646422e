package program

import (
	"strings"

	"pragmax/internal/tree"
)

var binaryOps = map[tree.Opcode]string{
	tree.OpPlusExpr:  "+",
	tree.OpMinusExpr: "-",
	tree.OpMulExpr:   "*",
	tree.OpDivExpr:   "/",
	tree.OpLogEQExpr: "==",
	tree.OpLogLTExpr: "<",
	tree.OpLogGTExpr: ">",
}

// ExprText renders an expression subtree in source form without spaces.
// Unknown nodes render as their opcode name.
func ExprText(t *tree.Tree, id tree.NodeID) string {
	var sb strings.Builder
	writeExpr(&sb, t, id)
	return sb.String()
}

func writeExpr(sb *strings.Builder, t *tree.Tree, id tree.NodeID) {
	op := t.Op(id)
	switch op {
	case tree.OpVar, tree.OpName, tree.OpIntConstant, tree.OpRealConstant:
		sb.WriteString(t.Value(id))
	case tree.OpVarRef, tree.OpLowerBound, tree.OpUpperBound, tree.OpStep,
		tree.OpArrayIndex, tree.OpCondition:
		writeExpr(sb, t, t.Child(id, 0))
	case tree.OpArrayRef:
		children := t.Children(id)
		if len(children) == 0 {
			return
		}
		writeExpr(sb, t, children[0])
		sb.WriteByte('(')
		for i, c := range children[1:] {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeExpr(sb, t, c)
		}
		sb.WriteByte(')')
	case tree.OpFunctionCall:
		writeExpr(sb, t, t.MatchDirectDescendant(id, tree.OpName))
		sb.WriteByte('(')
		args := t.Children(t.MatchDirectDescendant(id, tree.OpArguments))
		for i, a := range args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeExpr(sb, t, a)
		}
		sb.WriteByte(')')
	default:
		if sym, ok := binaryOps[op]; ok && t.NumChildren(id) == 2 {
			writeExpr(sb, t, t.Child(id, 0))
			sb.WriteString(sym)
			writeExpr(sb, t, t.Child(id, 1))
			return
		}
		sb.WriteString(op.String())
	}
}
