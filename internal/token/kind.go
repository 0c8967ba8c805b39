// Package token defines lexical token kinds and trivia.
//
// Token.Text is a slice of the input text and Token.Span matches it
// exactly. Gate names (h, cx, rx, ...) and builtin calls such as print are
// identifiers; the lowerer decides what they mean.
package token

// Kind represents the category of a source token.
type Kind uint8

const (
	Invalid Kind = iota
	EOF

	Ident
	IntLit
	FloatLit
	StringLit

	// keywords
	KwOpenQASM
	KwInclude
	KwQubit
	KwQreg
	KwBit
	KwCreg
	KwInt
	KwUint
	KwFloat
	KwBool
	KwConst
	KwIf
	KwElse
	KwFor
	KwIn
	KwWhile
	KwBreak
	KwContinue
	KwReturn
	KwDef
	KwMeasure
	KwReset
	KwBarrier
	KwTrue
	KwFalse

	// operators and punctuation
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	PlusAssign
	MinusAssign
	EqEq
	Bang
	BangEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
	Arrow
	Colon
	Semicolon
	Comma
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
)

var kindNames = [...]string{
	Invalid:     "Invalid",
	EOF:         "EOF",
	Ident:       "Ident",
	IntLit:      "IntLit",
	FloatLit:    "FloatLit",
	StringLit:   "StringLit",
	KwOpenQASM:  "KwOpenQASM",
	KwInclude:   "KwInclude",
	KwQubit:     "KwQubit",
	KwQreg:      "KwQreg",
	KwBit:       "KwBit",
	KwCreg:      "KwCreg",
	KwInt:       "KwInt",
	KwUint:      "KwUint",
	KwFloat:     "KwFloat",
	KwBool:      "KwBool",
	KwConst:     "KwConst",
	KwIf:        "KwIf",
	KwElse:      "KwElse",
	KwFor:       "KwFor",
	KwIn:        "KwIn",
	KwWhile:     "KwWhile",
	KwBreak:     "KwBreak",
	KwContinue:  "KwContinue",
	KwReturn:    "KwReturn",
	KwDef:       "KwDef",
	KwMeasure:   "KwMeasure",
	KwReset:     "KwReset",
	KwBarrier:   "KwBarrier",
	KwTrue:      "KwTrue",
	KwFalse:     "KwFalse",
	Plus:        "Plus",
	Minus:       "Minus",
	Star:        "Star",
	Slash:       "Slash",
	Percent:     "Percent",
	Assign:      "Assign",
	PlusAssign:  "PlusAssign",
	MinusAssign: "MinusAssign",
	EqEq:        "EqEq",
	Bang:        "Bang",
	BangEq:      "BangEq",
	Lt:          "Lt",
	LtEq:        "LtEq",
	Gt:          "Gt",
	GtEq:        "GtEq",
	AndAnd:      "AndAnd",
	OrOr:        "OrOr",
	Arrow:       "Arrow",
	Colon:       "Colon",
	Semicolon:   "Semicolon",
	Comma:       "Comma",
	LParen:      "LParen",
	RParen:      "RParen",
	LBrace:      "LBrace",
	RBrace:      "RBrace",
	LBracket:    "LBracket",
	RBracket:    "RBracket",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}
