package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/schema"
)

func TestSeed(t *testing.T) {
	b, err := Seed()
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if b.Module != "clinical-reference" {
		t.Errorf("module = %q", b.Module)
	}
	if len(b.Entries) != 9 {
		t.Fatalf("entries = %d, want 9", len(b.Entries))
	}
	if b.Entries[0].ID != "hpi-oldcarts" {
		t.Errorf("first entry = %q, want hpi-oldcarts", b.Entries[0].ID)
	}

	entries, report := schema.ValidateAll(b.Entries, models.DefaultKinds())
	if err := report.Err(); err != nil {
		t.Fatalf("seed bundle does not validate: %v", err)
	}
	if len(entries) != len(b.Entries) {
		t.Errorf("validated %d of %d entries", len(entries), len(b.Entries))
	}
	warnings := report.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "anatomy-prefrontal-cortex") {
		t.Errorf("want one cross-module dangling warning, got %v", warnings)
	}
}

func TestSeed_BilingualText(t *testing.T) {
	b, err := Seed()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range b.Entries {
		if e.ID != "mental-health-tdah-adhd" {
			continue
		}
		if e.Name.Secondary == "" {
			t.Error("expected secondary name")
		}
		if len(e.Levels) != 5 {
			t.Errorf("levels = %d", len(e.Levels))
		}
		if e.CreatedAt.IsZero() {
			t.Error("createdAt not decoded")
		}
		return
	}
	t.Fatal("ADHD topic missing from seed")
}

const oneEntry = `
module: test
entries:
  - id: a
    kind: flat-reference
    category: framework
    name: Alpha
    description: first
`

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"bundle/02-b.yaml":  {Data: []byte("module: test\nentries:\n  - id: b\n    kind: flat-reference\n    category: framework\n    name: Beta\n    description: second\n")},
		"bundle/01-a.yml":   {Data: []byte(oneEntry)},
		"bundle/notes.txt":  {Data: []byte("ignored")},
		"bundle/empty.yaml": {Data: nil},
	}
	b, err := LoadFS(fsys, "bundle")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if len(b.Entries) != 2 || b.Entries[0].ID != "a" || b.Entries[1].ID != "b" {
		t.Errorf("entries out of order: %+v", b.Entries)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr string
	}{
		{
			name: "unknown field",
			files: fstest.MapFS{
				"x.yaml": {Data: []byte("module: test\nentries:\n  - id: a\n    colour: red\n")},
			},
			wantErr: "colour",
		},
		{
			name: "module mismatch",
			files: fstest.MapFS{
				"a.yaml": {Data: []byte("module: one\n")},
				"b.yaml": {Data: []byte("module: two\n")},
			},
			wantErr: "does not match",
		},
		{
			name: "bad text",
			files: fstest.MapFS{
				"x.yaml": {Data: []byte("entries:\n  - id: a\n    name: [1, 2]\n")},
			},
			wantErr: "x.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.files, ".")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(file, []byte(oneEntry), 0o644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := Load(file)
	if err != nil {
		t.Fatalf("Load(file): %v", err)
	}
	fromDir, err := Load(dir)
	if err != nil {
		t.Fatalf("Load(dir): %v", err)
	}
	if len(fromFile.Entries) != 1 || len(fromDir.Entries) != 1 || fromDir.Module != "test" {
		t.Errorf("file=%+v dir=%+v", fromFile, fromDir)
	}

	if _, err := Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestIsBundleFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.yaml": true, "a.YML": true, "a.json": false, "yaml": false,
	} {
		if got := IsBundleFile(name); got != want {
			t.Errorf("IsBundleFile(%q) = %v", name, got)
		}
	}
}
