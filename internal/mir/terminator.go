package mir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermUnreachable
)

func (k TermKind) String() string {
	switch k {
	case TermNone:
		return "none"
	case TermReturn:
		return "return"
	case TermGoto:
		return "goto"
	case TermIf:
		return "if"
	case TermUnreachable:
		return "unreachable"
	}
	return "?"
}

type Terminator struct {
	Kind TermKind

	Return ReturnTerm
	Goto   GotoTerm
	If     IfTerm
}

type ReturnTerm struct {
	HasValue bool
	Value    ValueID
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond ValueID
	Then BlockID
	Else BlockID
}

// Goto builds an unconditional branch.
func Goto(target BlockID) Terminator {
	return Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}}
}

// If builds a conditional branch on cond.
func If(cond ValueID, then, els BlockID) Terminator {
	return Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: then, Else: els}}
}

// Return builds a return without value.
func Return() Terminator {
	return Terminator{Kind: TermReturn}
}

// ReturnValue builds a return of v.
func ReturnValue(v ValueID) Terminator {
	return Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: v}}
}

// Successors lists the blocks control can reach next.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermGoto:
		return []BlockID{t.Goto.Target}
	case TermIf:
		return []BlockID{t.If.Then, t.If.Else}
	}
	return nil
}
