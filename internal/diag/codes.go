package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Directive parsing and pairing
	DirInfo             Code = 2000
	DirIllegal          Code = 2001
	DirUnknown          Code = 2002
	DirUnpairedEnd      Code = 2003
	DirMissingEnd       Code = 2004
	DirDuplicateMapping Code = 2005
	DirMissingRange     Code = 2006
	DirBadClause        Code = 2007

	// Transformation analysis and application
	TrInfo                Code = 3000
	TrIllegal             Code = 3001
	TrNoCall              Code = 3002
	TrNoEnclosingFunction Code = 3003
	TrNoDefinition        Code = 3004
	TrNoLoop              Code = 3005
	TrRangeMismatch       Code = 3006
	TrMappedVarNotFound   Code = 3007
	TrDimensionMismatch   Code = 3008
	TrDirectiveRemoved    Code = 3009
	TrUndeclaredIndex     Code = 3010
	TrFusionUnmatched     Code = 3011

	// Input and output
	IOLoadFileError  Code = 4001
	IODecodeError    Code = 4002
	IOWriteFileError Code = 4003
	IOConfigError    Code = 4004

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		DirInfo:               "Directive information",
		DirIllegal:            "Illegal directive",
		DirUnknown:            "Unknown directive",
		DirUnpairedEnd:        "End directive without start",
		DirMissingEnd:         "Block directive without end",
		DirDuplicateMapping:   "Duplicate mapping variable",
		DirMissingRange:       "Missing range clause",
		DirBadClause:          "Malformed directive clause",
		TrInfo:                "Transformation information",
		TrIllegal:             "Illegal transformation",
		TrNoCall:              "No function call after directive",
		TrNoEnclosingFunction: "No function around the call",
		TrNoDefinition:        "Function definition not found",
		TrNoLoop:              "No loop found in function",
		TrRangeMismatch:       "Iteration range mismatch",
		TrMappedVarNotFound:   "Mapped variable not found",
		TrDimensionMismatch:   "Mapping exceeds argument dimensions",
		TrDirectiveRemoved:    "Directive removed by an earlier transformation",
		TrUndeclaredIndex:     "Index variable not declared",
		TrFusionUnmatched:     "Loop fusion without partner",
		IOLoadFileError:       "I/O load file error",
		IODecodeError:         "Document decode error",
		IOWriteFileError:      "I/O write file error",
		IOConfigError:         "Configuration error",
		ObsInfo:               "Observability information",
		ObsTimings:            "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DIR%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
