package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{"": true, "info": true, "DEBUG": true, "warning": true, "error": true, "loud": false}
	for in, ok := range cases {
		_, err := parseLevel(in)
		if ok && err != nil {
			t.Errorf("parseLevel(%q) unexpected error: %v", in, err)
		}
		if !ok && err == nil {
			t.Errorf("parseLevel(%q) expected error", in)
		}
	}
}

func TestZapLogger_WithCarriesFields(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	child := l.With(Field{Key: "component", Value: "orchestrator"})
	child.Warn("analyzer failed", Field{Key: "error", Value: errors.New("boom")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "orchestrator" {
		t.Errorf("expected component field, got %v", ctx)
	}
	if ctx["error"] != "boom" {
		t.Errorf("expected error field 'boom', got %v", ctx["error"])
	}
}

func TestNop_DoesNotPanic(t *testing.T) {
	t.Parallel()
	l := Nop().With(Field{Key: "k", Value: 1})
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
