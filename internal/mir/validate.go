package mir

import (
	"errors"
	"fmt"
)

// Validate checks MIR module invariants.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(m *Module, f *Func) error {
	var errs []error
	if f.Block(f.Entry) == nil {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}
	if err := validateBlocks(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateValues(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateCalls(m, f); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateBlocks checks that every block is terminated and branches only
// to blocks of the same function.
func validateBlocks(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if int(bb.ID) != i {
			errs = append(errs, fmt.Errorf("bb%d: stored id bb%d", i, bb.ID))
		}
		switch bb.Term.Kind {
		case TermNone:
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		case TermReturn:
			if bb.Term.Return.HasValue != (f.Result != TypeVoid) {
				errs = append(errs, fmt.Errorf("bb%d: return does not match result type %s", i, f.Result))
			} else if bb.Term.Return.HasValue && f.ValueType(bb.Term.Return.Value) != f.Result {
				errs = append(errs, fmt.Errorf("bb%d: return value %%%d is not %s", i, bb.Term.Return.Value, f.Result))
			}
		case TermIf:
			if f.ValueType(bb.Term.If.Cond) != TypeBool {
				errs = append(errs, fmt.Errorf("bb%d: if condition %%%d is not i1", i, bb.Term.If.Cond))
			}
		}
		for _, succ := range bb.Term.Successors() {
			if f.Block(succ) == nil {
				errs = append(errs, fmt.Errorf("bb%d: %s target bb%d does not exist", i, bb.Term.Kind, succ))
			}
		}
	}
	return errors.Join(errs...)
}

// validateValues checks that results are allocated and operands refer to
// existing values.
func validateValues(f *Func) error {
	var errs []error
	exists := func(id ValueID) bool {
		return id >= 0 && int(id) < len(f.Values)
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			if (ins.Type == TypeVoid) != (ins.Dst == NoValueID) {
				errs = append(errs, fmt.Errorf("bb%d instr %d: %s result does not match type %s", i, j, ins.Kind, ins.Type))
			} else if ins.Dst != NoValueID && (!exists(ins.Dst) || f.Values[ins.Dst].Type != ins.Type) {
				errs = append(errs, fmt.Errorf("bb%d instr %d: bad result %%%d", i, j, ins.Dst))
			}
			for _, op := range ins.Operands() {
				if !exists(op) {
					errs = append(errs, fmt.Errorf("bb%d instr %d: %s operand %%%d does not exist", i, j, ins.Kind, op))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// validateCalls checks that direct calls name functions of the module with
// a matching arity.
func validateCalls(m *Module, f *Func) error {
	var errs []error
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			ins := &f.Blocks[i].Instrs[j]
			if ins.Kind != InstrCall {
				continue
			}
			callee, ok := m.Func(ins.Call.Callee)
			if !ok {
				errs = append(errs, fmt.Errorf("bb%d instr %d: call to unknown function %s", i, j, ins.Call.Callee))
				continue
			}
			if len(callee.Params) != len(ins.Call.Args) {
				errs = append(errs, fmt.Errorf("bb%d instr %d: %s expects %d arguments, got %d",
					i, j, callee.Name, len(callee.Params), len(ins.Call.Args)))
			}
		}
	}
	return errors.Join(errs...)
}
