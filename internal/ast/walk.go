package ast

// Inspect visits stmts depth-first in source order. Returning false from fn
// skips the children of that statement.
func Inspect(stmts []*Stmt, fn func(*Stmt) bool) {
	for _, s := range stmts {
		if s == nil || !fn(s) {
			continue
		}
		switch d := s.Data.(type) {
		case IfData:
			Inspect(d.Then, fn)
			Inspect(d.Else, fn)
		case LoopData:
			Inspect(d.Body, fn)
		case BlockData:
			Inspect(d.Stmts, fn)
		case DefData:
			Inspect(d.Body, fn)
		}
	}
}
