// Package fuzztests holds fuzz harnesses for the front end and the lowering
// pipeline (source -> lexer -> parser -> MIR). They guard against panics
// and hangs on arbitrary input; diagnostics are expected and ignored.
package fuzztests
