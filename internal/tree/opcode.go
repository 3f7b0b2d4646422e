package tree

import "fmt"

// Opcode tags the kind of a node. Names follow the XcodeML element names.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpProgram
	OpGlobalDeclarations
	OpFunctionDefinition
	OpName
	OpDeclarations
	OpVarDecl
	OpBody
	OpPragma
	OpExprStatement
	OpFunctionCall
	OpArguments
	OpVar
	OpVarRef
	OpArrayRef
	OpArrayIndex
	OpDoStatement
	OpIndexRange
	OpLowerBound
	OpUpperBound
	OpStep
	OpIntConstant
	OpRealConstant
	OpAssignStatement
	OpIfStatement
	OpCondition
	OpThen
	OpElse
	OpPlusExpr
	OpMinusExpr
	OpMulExpr
	OpDivExpr
	OpLogEQExpr
	OpLogLTExpr
	OpLogGTExpr

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpInvalid:            "invalid",
	OpProgram:            "XcodeProgram",
	OpGlobalDeclarations: "globalDeclarations",
	OpFunctionDefinition: "FfunctionDefinition",
	OpName:               "name",
	OpDeclarations:       "declarations",
	OpVarDecl:            "varDecl",
	OpBody:               "body",
	OpPragma:             "FpragmaStatement",
	OpExprStatement:      "exprStatement",
	OpFunctionCall:       "functionCall",
	OpArguments:          "arguments",
	OpVar:                "Var",
	OpVarRef:             "varRef",
	OpArrayRef:           "FarrayRef",
	OpArrayIndex:         "arrayIndex",
	OpDoStatement:        "FdoStatement",
	OpIndexRange:         "indexRange",
	OpLowerBound:         "lowerBound",
	OpUpperBound:         "upperBound",
	OpStep:               "step",
	OpIntConstant:        "FintConstant",
	OpRealConstant:       "FrealConstant",
	OpAssignStatement:    "FassignStatement",
	OpIfStatement:        "FifStatement",
	OpCondition:          "condition",
	OpThen:               "then",
	OpElse:               "else",
	OpPlusExpr:           "plusExpr",
	OpMinusExpr:          "minusExpr",
	OpMulExpr:            "mulExpr",
	OpDivExpr:            "divExpr",
	OpLogEQExpr:          "logEQExpr",
	OpLogLTExpr:          "logLTExpr",
	OpLogGTExpr:          "logGTExpr",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := OpProgram; op < opcodeCount; op++ {
		m[opcodeNames[op]] = op
	}
	return m
}()

func (op Opcode) String() string {
	if op < opcodeCount {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// ParseOpcode maps an element name back to its opcode.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// IsIdentifier reports whether the node's value is a program identifier
// subject to renaming.
func (op Opcode) IsIdentifier() bool {
	return op == OpName || op == OpVar
}

// IsStatement reports whether op may appear directly inside a body.
func (op Opcode) IsStatement() bool {
	switch op {
	case OpPragma, OpExprStatement, OpDoStatement, OpAssignStatement, OpIfStatement:
		return true
	}
	return false
}
