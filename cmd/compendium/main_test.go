package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"worst-ever headache", "-field", "redFlags"},
			expected: []string{"-field", "redFlags", "worst-ever headache"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-field", "redFlags", "worst-ever headache"},
			expected: []string{"-field", "redFlags", "worst-ever headache"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"worst-ever headache"},
			expected: []string{"worst-ever headache"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "--output", "json"},
			expected: []string{"--output", "json", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"onset"}, "onset"},
		{"multiple words", []string{"depression", "screening"}, "depression screening"},
		{"single quoted phrase", []string{"depression screening"}, "depression screening"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
debug: true
server:
  host: "localhost"
  port: 8080
`)
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
server:
  host: "127.0.0.1"
  port: 9000
`)
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicit missing config should fail")
	}
}

// runCmd runs the CLI against a config with no content path, so the
// embedded bundle is used.
func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "export:\n  sqlite_path: ./snap.db\n  inventory_path: ./inventory.xlsx\n")
	var stdout, stderr bytes.Buffer
	full := append([]string{args[0], "--config", cfgPath}, args[1:]...)
	code := run(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_search(t *testing.T) {
	code, out, errOut := runCmd(t, "search", "--output", "json", "thunderclap")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var decoded struct {
		Total   int `json:"total"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if decoded.Total == 0 {
		t.Errorf("expected hits for thunderclap:\n%s", out)
	}

	code, out, _ = runCmd(t, "search", "--field", "redFlags", "thunderclap")
	if code != 0 || !strings.Contains(out, "headache-history") {
		t.Errorf("field search exit %d:\n%s", code, out)
	}

	if code, _, _ := runCmd(t, "search", "--field", "nope", "x"); code == 0 {
		t.Error("unknown field should fail")
	}
	if code, _, _ := runCmd(t, "search"); code == 0 {
		t.Error("missing query should fail")
	}
}

func TestRun_get(t *testing.T) {
	code, out, errOut := runCmd(t, "get", "hpi-oldcarts")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "ID: hpi-oldcarts") {
		t.Errorf("got:\n%s", out)
	}

	code, _, errOut = runCmd(t, "get", "does-not-exist")
	if code == 0 || !strings.Contains(errOut, "not found") {
		t.Errorf("missing id: exit %d, stderr %q", code, errOut)
	}
}

func TestRun_listAndCounts(t *testing.T) {
	code, out, _ := runCmd(t, "list", "--category", "screening-tool")
	if code != 0 || !strings.Contains(out, "phq9-depression-screen") || !strings.Contains(out, "2 entries") {
		t.Errorf("list exit %d:\n%s", code, out)
	}

	code, out, _ = runCmd(t, "counts", "--kind", "leveled-topic", "--output", "json")
	if code != 0 {
		t.Fatalf("counts exit %d", code)
	}
	var counts map[string]int
	if err := json.Unmarshal([]byte(out), &counts); err != nil {
		t.Fatal(err)
	}
	if counts["condition"] != 2 || len(counts) != 7 {
		t.Errorf("counts = %v", counts)
	}

	if code, _, _ := runCmd(t, "counts", "--kind", "essay"); code == 0 {
		t.Error("unknown kind should fail")
	}
}

func TestRun_refs(t *testing.T) {
	code, out, _ := runCmd(t, "refs", "mental-health-tdah-adhd")
	if code != 0 || !strings.Contains(out, "(unresolved)") || !strings.Contains(out, "gad7-anxiety-screen") {
		t.Errorf("refs exit %d:\n%s", code, out)
	}
	code, out, _ = runCmd(t, "refs", "--dangling")
	if code != 0 || !strings.Contains(out, "mental-health-tdah-adhd -> anatomy-prefrontal-cortex") {
		t.Errorf("dangling exit %d:\n%s", code, out)
	}

	code, out, _ = runCmd(t, "refs", "--dangling", "--output", "json")
	if code != 0 {
		t.Fatalf("dangling json exit %d", code)
	}
	var dangling struct {
		Total    int `json:"total"`
		Dangling []struct {
			SourceID string `json:"source_id"`
			TargetID string `json:"target_id"`
		} `json:"dangling"`
	}
	if err := json.Unmarshal([]byte(out), &dangling); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if dangling.Total != 1 || dangling.Dangling[0].TargetID != "anatomy-prefrontal-cortex" {
		t.Errorf("dangling json = %+v", dangling)
	}

	code, out, _ = runCmd(t, "refs", "--related", "--relationship", "related", "mental-health-tdah-adhd")
	if code != 0 || !strings.Contains(out, "gad7-anxiety-screen") ||
		!strings.Contains(out, "(references mental-health-tdah-adhd)") || strings.Contains(out, "unresolved") {
		t.Errorf("related exit %d:\n%s", code, out)
	}
}

func TestRun_validate(t *testing.T) {
	code, out, _ := runCmd(t, "validate")
	if code != 0 || !strings.Contains(out, "0 error(s), 1 warning(s)") {
		t.Errorf("seed validate exit %d:\n%s", code, out)
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	content := `
module: broken
entries:
  - id: x
    kind: flat-reference
    category: not-a-category
    name: X
    description: d
`
	if err := os.WriteFile(bad, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	code, out, _ = runCmd(t, "validate", bad)
	if code != 1 || !strings.Contains(out, "error   x: category") {
		t.Errorf("bad bundle exit %d:\n%s", code, out)
	}
}

func TestRun_export(t *testing.T) {
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "inventory.xlsx")
	db := filepath.Join(dir, "snap.db")
	code, out, errOut := runCmd(t, "export", "--xlsx", xlsx, "--sqlite", db)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Snapshot") || !strings.Contains(out, "Inventory: 9 entries") {
		t.Errorf("got:\n%s", out)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Entries")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Errorf("inventory rows = %d, want header plus 9 entries", len(rows))
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("snapshot database missing: %v", err)
	}

	code, out, errOut = runCmd(t, "export", "--list", "--tag", "mental-health", "--sqlite", db, "--output", "json")
	if code != 0 {
		t.Fatalf("list exit %d: %s", code, errOut)
	}
	var listed struct {
		Total     int `json:"total"`
		Snapshots []struct {
			ID         string `json:"id"`
			EntryCount int    `json:"entry_count"`
			Tagged     *int64 `json:"tagged"`
		} `json:"snapshots"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if listed.Total != 1 || listed.Snapshots[0].EntryCount != 9 ||
		listed.Snapshots[0].Tagged == nil || *listed.Snapshots[0].Tagged != 3 {
		t.Fatalf("listed = %+v", listed)
	}

	code, out, errOut = runCmd(t, "export", "--show", listed.Snapshots[0].ID, "--sqlite", db)
	if code != 0 {
		t.Fatalf("show exit %d: %s", code, errOut)
	}
	ids := strings.Fields(out)
	if len(ids) != 9 || ids[0] != "hpi-oldcarts" {
		t.Errorf("snapshot ids = %v", ids)
	}

	if code, _, _ := runCmd(t, "export", "--show", "no-such-snapshot", "--sqlite", db); code == 0 {
		t.Error("unknown snapshot should fail")
	}
	if code, _, _ := runCmd(t, "export", "--list", "--sqlite", filepath.Join(dir, "absent.db")); code == 0 {
		t.Error("listing a missing database should fail")
	}
}

func TestRun_unknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"frobnicate"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit %d", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command") {
		t.Errorf("stderr = %q", stderr.String())
	}
	stdout.Reset()
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 || !strings.HasPrefix(stdout.String(), "compendium version") {
		t.Errorf("version: exit %d, %q", code, stdout.String())
	}
}
