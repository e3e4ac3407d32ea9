package ingestion

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJSONLoader_Load(t *testing.T) {
	path := writeDataFile(t, `{
		"series": [
			{"name": "motor/velocity", "group": "motor", "points": [[0.0, 1.5], [0.1, 1.7]]},
			{"name": "state", "kind": "string", "points": [[0.0, "IDLE"], [0.2, "RUNNING"]]}
		]
	}`)

	sm, err := NewJSONLoader(nil).Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	v, ok := sm.Numeric("motor/velocity")
	if !ok || v.Len() != 2 {
		t.Fatalf("expected numeric series with 2 points")
	}
	if v.At(1).Value != 1.7 {
		t.Errorf("expected 1.7, got %g", v.At(1).Value)
	}
	if v.Group() != "motor" {
		t.Errorf("expected group motor, got %q", v.Group())
	}

	s, ok := sm.String("state")
	if !ok || s.Len() != 2 {
		t.Fatalf("expected string series with 2 points")
	}
	if s.At(1).Value != "RUNNING" {
		t.Errorf("expected RUNNING, got %q", s.At(1).Value)
	}
}

func TestJSONLoader_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"series": [`},
		{"empty name", `{"series": [{"name": "", "points": []}]}`},
		{"unknown kind", `{"series": [{"name": "a", "kind": "blob", "points": []}]}`},
		{"bad pair", `{"series": [{"name": "a", "points": [[1.0]]}]}`},
		{"value type", `{"series": [{"name": "a", "points": [[0.0, "nope"]]}]}`},
		{"unsorted", `{"series": [{"name": "a", "points": [[1.0, 1], [0.5, 2]]}]}`},
	}

	loader := NewJSONLoader(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loader.Load(writeDataFile(t, tc.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJSONLoader_MissingFile(t *testing.T) {
	if _, err := NewJSONLoader(nil).Load("/nonexistent/data.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
