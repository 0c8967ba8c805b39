package token

import "qlower/internal/source"

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}

// IsTypeKeyword reports whether the token starts a classical or quantum type.
func (t Token) IsTypeKeyword() bool {
	switch t.Kind {
	case KwQubit, KwQreg, KwBit, KwCreg, KwInt, KwUint, KwFloat, KwBool:
		return true
	default:
		return false
	}
}
