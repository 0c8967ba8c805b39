package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexUnterminatedBlock  Code = 1003
	LexBadNumber          Code = 1004

	// Syntax
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynExpectSemicolon   Code = 2002
	SynExpectIdentifier  Code = 2003
	SynExpectExpression  Code = 2004
	SynExpectType        Code = 2005
	SynUnclosedDelimiter Code = 2006
	SynBadVersion        Code = 2007
	SynForMissingIn      Code = 2008
	SynForBadHeader      Code = 2009
	SynBadDesignator     Code = 2010

	// Lowering
	LowInfo                Code = 3000
	LowBreakOutsideLoop    Code = 3001
	LowContinueOutsideLoop Code = 3002
	LowBadLoopSignature    Code = 3003
	LowRangeStart          Code = 3004
	LowRangeStep           Code = 3005
	LowRangeEnd            Code = 3006
	LowNotConstant         Code = 3007
	LowUndefined           Code = 3008
	LowRedeclared          Code = 3009
	LowAssignLoopVar       Code = 3010
	LowType                Code = 3011
	LowUnsupported         Code = 3012
	LowInvalidIR           Code = 3013

	// I/O
	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002

	// Project
	ProjInfo             Code = 5000
	ProjManifestInvalid  Code = 5001
	ProjToolchainVersion Code = 5002
	ProjNoSources        Code = 5003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	LexInfo:                "Lexical information",
	LexUnknownChar:         "Unknown character",
	LexUnterminatedString:  "Unterminated string literal",
	LexUnterminatedBlock:   "Unterminated block comment",
	LexBadNumber:           "Malformed number literal",
	SynInfo:                "Syntax information",
	SynUnexpectedToken:     "Unexpected token",
	SynExpectSemicolon:     "Expected ';'",
	SynExpectIdentifier:    "Expected identifier",
	SynExpectExpression:    "Expected expression",
	SynExpectType:          "Expected type",
	SynUnclosedDelimiter:   "Unclosed delimiter",
	SynBadVersion:          "Unsupported OPENQASM version",
	SynForMissingIn:        "Expected 'in' in for loop",
	SynForBadHeader:        "Malformed for loop header",
	SynBadDesignator:       "Malformed size designator",
	LowInfo:                "Lowering information",
	LowBreakOutsideLoop:    "break outside of a loop",
	LowContinueOutsideLoop: "continue outside of a loop",
	LowBadLoopSignature:    "Unsupported loop signature",
	LowRangeStart:          "Invalid range start",
	LowRangeStep:           "Invalid range step",
	LowRangeEnd:            "Invalid range end",
	LowNotConstant:         "Expression is not a compile-time constant",
	LowUndefined:           "Undefined identifier",
	LowRedeclared:          "Identifier already declared in this scope",
	LowAssignLoopVar:       "Cannot assign to a loop variable",
	LowType:                "Type mismatch",
	LowUnsupported:         "Unsupported construct",
	LowInvalidIR:           "Generated IR failed validation",
	IOLoadFileError:        "I/O load file error",
	IOWriteFileError:       "I/O write file error",
	ProjInfo:               "Project information",
	ProjManifestInvalid:    "Invalid qlower.toml",
	ProjToolchainVersion:   "Toolchain version does not satisfy the manifest",
	ProjNoSources:          "No source files found",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
