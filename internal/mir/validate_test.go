package mir_test

import (
	"strings"
	"testing"

	"qlower/internal/mir"
	"qlower/internal/source"
)

func TestValidateAcceptsWellFormed(t *testing.T) {
	m, _, b := newFunc(t, "f")
	body := b.NewBlock()
	exit := b.NewBlock()
	cond := b.ConstBool(true, source.Span{})
	b.If(cond, body, exit)
	b.SetInsertionPoint(body)
	b.Goto(exit)
	b.SetInsertionPoint(exit)
	b.Terminate(mir.Return())
	if err := mir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *mir.Builder)
		want  string
	}{
		{
			name:  "unterminated",
			build: func(b *mir.Builder) {},
			want:  "unterminated block",
		},
		{
			name: "missing target",
			build: func(b *mir.Builder) {
				b.Goto(7)
			},
			want: "goto target bb7 does not exist",
		},
		{
			name: "non-bool condition",
			build: func(b *mir.Builder) {
				c := b.ConstInt(1, source.Span{})
				b.If(c, 0, 0)
			},
			want: "is not i1",
		},
		{
			name: "unknown callee",
			build: func(b *mir.Builder) {
				b.Emit(mir.Instr{Kind: mir.InstrCall, Call: mir.CallInstr{Callee: "nope"}})
				b.Terminate(mir.Return())
			},
			want: "unknown function nope",
		},
		{
			name: "bad operand",
			build: func(b *mir.Builder) {
				b.Emit(mir.Instr{Kind: mir.InstrReset, Reset: mir.ResetInstr{Qubit: 99}})
				b.Terminate(mir.Return())
			},
			want: "operand %99 does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, b := newFunc(t, "f")
			tt.build(b)
			err := mir.Validate(m)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) || !strings.Contains(err.Error(), "function f") {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
