package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteJSON marshals v into path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	WriteFile(t, path, string(data))
}

// WriteBundle lays out a Bundles/items directory under installDir with one
// definition and icon per entry, keyed by shortname.
func WriteBundle(t testing.TB, installDir string, defs map[string]map[string]any) string {
	t.Helper()

	dir := filepath.Join(installDir, "Bundles", "items")
	for shortname, def := range defs {
		WriteJSON(t, filepath.Join(dir, shortname+".json"), def)
		WriteFile(t, filepath.Join(dir, shortname+".png"), "png:"+shortname)
	}
	return dir
}
