// Package ast is the syntax tree of the supported OpenQASM 3 subset.
//
// Statements, expressions and loop signatures are closed sets of tagged
// variants: a Kind plus a Data payload whose concrete type is fixed by the
// Kind. Consumers switch on Kind and type-assert Data.
package ast

import "qlower/internal/source"

// Program is one parsed source file.
type Program struct {
	File     source.FileID
	Version  string   // from the OPENQASM header, "" when absent
	Includes []string // include paths in source order
	Stmts    []*Stmt
}

// Param is a subroutine parameter.
type Param struct {
	Name string
	Type *Type
	Span source.Span
}
