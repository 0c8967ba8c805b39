package trace_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"qlower/internal/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    trace.Level
		wantErr bool
	}{
		{"off", trace.LevelOff, false},
		{"PHASE", trace.LevelPhase, false},
		{"detail", trace.LevelDetail, false},
		{"debug", trace.LevelDebug, false},
		{"loud", trace.LevelOff, true},
	}
	for _, tt := range tests {
		got, err := trace.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	if !trace.LevelPhase.ShouldEmit(trace.ScopePass) {
		t.Fatal("phase must emit pass events")
	}
	if trace.LevelPhase.ShouldEmit(trace.ScopeFunc) {
		t.Fatal("phase must not emit func events")
	}
	if !trace.LevelDetail.ShouldEmit(trace.ScopeFunc) {
		t.Fatal("detail must emit func events")
	}
	if trace.LevelDetail.ShouldEmit(trace.ScopeNode) {
		t.Fatal("detail must not emit node events")
	}
	if !trace.LevelDebug.ShouldEmit(trace.ScopeNode) {
		t.Fatal("debug emits everything")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelPhase, trace.FormatText)
	span := trace.Begin(tr, trace.ScopePass, "lower", 0)
	span.WithExtra("funcs", "2").End("ok")
	trace.Begin(tr, trace.ScopeFunc, "hidden", span.ID()).End("")

	out := buf.String()
	if !strings.Contains(out, "\u2192 lower") || !strings.Contains(out, "\u2190 lower (ok) {funcs=2}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("func scope leaked at phase level:\n%s", out)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatNDJSON)
	trace.Point(tr, trace.ScopeNode, "stmt", "for", 0)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["name"] != "stmt" || got["detail"] != "for" {
		t.Fatalf("unexpected event: %v", got)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := trace.NewRingTracer(2, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		trace.Point(tr, trace.ScopeNode, name, "", 0)
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("snapshot = %+v", events)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := trace.New(trace.Config{Level: trace.LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatal("off tracer must be disabled")
	}
	span := trace.Begin(tr, trace.ScopeDriver, "build", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatal("span on nop tracer must be inert")
	}
}

func TestContextPropagation(t *testing.T) {
	if trace.FromContext(context.Background()) != trace.Nop {
		t.Fatal("empty context must yield Nop")
	}
	tr := trace.NewRingTracer(4, trace.LevelPhase)
	ctx := trace.WithSpan(trace.WithTracer(context.Background(), tr), 7)
	if trace.FromContext(ctx) != trace.Tracer(tr) {
		t.Fatal("tracer not propagated")
	}
	if trace.CurrentSpan(ctx) != 7 {
		t.Fatal("span id not propagated")
	}
}
