package token

var keywords = map[string]Kind{
	"OPENQASM": KwOpenQASM,
	"include":  KwInclude,
	"qubit":    KwQubit,
	"qreg":     KwQreg,
	"bit":      KwBit,
	"creg":     KwCreg,
	"int":      KwInt,
	"uint":     KwUint,
	"float":    KwFloat,
	"bool":     KwBool,
	"const":    KwConst,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"in":       KwIn,
	"while":    KwWhile,
	"break":    KwBreak,
	"continue": KwContinue,
	"return":   KwReturn,
	"def":      KwDef,
	"measure":  KwMeasure,
	"reset":    KwReset,
	"barrier":  KwBarrier,
	"true":     KwTrue,
	"false":    KwFalse,
}

// LookupKeyword reports the keyword kind for ident. Matching is case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
