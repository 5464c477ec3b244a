package tools

import (
	"context"
	"testing"
)

type stubTool struct {
	name string
}

func (s stubTool) Name() string            { return s.name }
func (s stubTool) Description() string     { return "stub " + s.name }
func (s stubTool) ParameterSchema() string { return `{"type":"object"}` }
func (s stubTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return "ok", nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "alpha"})

	if _, ok := r.Get("alpha"); !ok {
		t.Fatalf("expected alpha to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing lookup to fail")
	}
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "zeta"})
	r.Register(stubTool{name: "alpha"})
	r.Register(stubTool{name: "mid"})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(all))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, tool := range all {
		if tool.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], tool.Name())
		}
	}
	if names := r.ToolNames(); names != "alpha, mid, zeta" {
		t.Errorf("unexpected ToolNames: %q", names)
	}
}

func TestRegistrySpecs(t *testing.T) {
	r := NewRegistry()
	r.Register(stubTool{name: "alpha"})

	specs := r.Specs()
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].Name != "alpha" || specs[0].ParametersJSON == "" {
		t.Errorf("unexpected spec: %+v", specs[0])
	}
}
