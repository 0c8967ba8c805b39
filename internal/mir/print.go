package mir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DumpOptions configures MIR module dumping.
type DumpOptions struct {
	// Spans appends the source span of each instruction.
	Spans bool
}

// DumpModule writes a human-readable representation of a MIR module.
// Functions are written in creation order.
func DumpModule(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "module %s funcs=%d\n", m.Name, len(m.Funcs)); err != nil {
		return err
	}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := dumpFunc(w, f, opts); err != nil {
			return err
		}
	}
	return nil
}

func dumpFunc(w io.Writer, f *Func, opts DumpOptions) error {
	var sb strings.Builder
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, fmt.Sprintf("%%%d %s %s", p.Value, p.Name, p.Type))
	}
	fmt.Fprintf(&sb, "\nfn %s(%s) -> %s entry=bb%d:\n", f.Name, strings.Join(params, ", "), f.Result, f.Entry)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&sb, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			sb.WriteString("    ")
			sb.WriteString(FormatInstr(ins))
			if opts.Spans {
				fmt.Fprintf(&sb, "  @%s", ins.Span)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("    ")
		sb.WriteString(FormatTerm(&bb.Term))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func v(id ValueID) string {
	if id == NoValueID {
		return "_"
	}
	return "%" + strconv.Itoa(int(id))
}

func vs(ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = v(id)
	}
	return strings.Join(parts, ", ")
}

// FormatInstr renders one instruction.
func FormatInstr(ins *Instr) string {
	if ins == nil {
		return "<nil>"
	}
	prefix := ""
	if ins.Dst != NoValueID {
		prefix = fmt.Sprintf("%s: %s = ", v(ins.Dst), ins.Type)
	}
	var body string
	switch ins.Kind {
	case InstrConst:
		switch ins.Type {
		case TypeFloat:
			body = "const " + strconv.FormatFloat(ins.Const.Float, 'g', -1, 64)
		case TypeBool:
			body = "const " + strconv.FormatBool(ins.Const.Bool)
		case TypeString:
			body = "const " + strconv.Quote(ins.Const.Str)
		default:
			body = "const " + strconv.FormatInt(ins.Const.Int, 10)
		}
	case InstrAlloc:
		body = fmt.Sprintf("alloc %s x %d", ins.Alloc.Elem, ins.Alloc.Count)
	case InstrLoad:
		body = fmt.Sprintf("load %s[%s]", v(ins.Load.Mem), v(ins.Load.Index))
	case InstrStore:
		body = fmt.Sprintf("store %s[%s] <- %s", v(ins.Store.Mem), v(ins.Store.Index), v(ins.Store.Value))
	case InstrBinary:
		body = fmt.Sprintf("%s %s, %s", ins.Binary.Op, v(ins.Binary.Left), v(ins.Binary.Right))
	case InstrUnary:
		body = fmt.Sprintf("%s %s", ins.Unary.Op, v(ins.Unary.Operand))
	case InstrCompare:
		body = fmt.Sprintf("cmp %s %s, %s", ins.Compare.Pred, v(ins.Compare.Left), v(ins.Compare.Right))
	case InstrCast:
		body = fmt.Sprintf("cast %s", v(ins.Cast.Value))
	case InstrCall:
		body = fmt.Sprintf("call %s(%s)", ins.Call.Callee, vs(ins.Call.Args))
	case InstrQAlloc:
		body = fmt.Sprintf("qalloc %d %q", ins.QAlloc.Size, ins.QAlloc.Name)
	case InstrQDealloc:
		body = "qdealloc " + v(ins.QDealloc.Reg)
	case InstrQExtract:
		body = fmt.Sprintf("qextract %s[%s]", v(ins.QExtract.Reg), v(ins.QExtract.Index))
	case InstrGate:
		if len(ins.Gate.Params) > 0 {
			body = fmt.Sprintf("gate %s(%s) %s", ins.Gate.Name, vs(ins.Gate.Params), vs(ins.Gate.Qubits))
		} else {
			body = fmt.Sprintf("gate %s %s", ins.Gate.Name, vs(ins.Gate.Qubits))
		}
	case InstrMeasure:
		body = "measure " + v(ins.Measure.Qubit)
	case InstrReset:
		body = "reset " + v(ins.Reset.Qubit)
	case InstrRuntime:
		body = fmt.Sprintf("runtime %s(%s)", ins.Runtime.Op, vs(ins.Runtime.Args))
	case InstrPrint:
		body = fmt.Sprintf("print(%s)", vs(ins.Print.Args))
	default:
		body = "<" + ins.Kind.String() + ">"
	}
	return prefix + body
}

// FormatTerm renders a terminator.
func FormatTerm(t *Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return "return " + v(t.Return.Value)
		}
		return "return"
	case TermGoto:
		return fmt.Sprintf("goto bb%d", t.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", v(t.If.Cond), t.If.Then, t.If.Else)
	case TermUnreachable:
		return "unreachable"
	}
	return "<open>"
}
