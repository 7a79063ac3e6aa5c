package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/registry"
	"github.com/hyperjump/compendium/internal/schema"
	"github.com/hyperjump/compendium/internal/storage"
	"github.com/xuri/excelize/v2"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	raws := []schema.RawEntry{
		{
			ID: "hpi-oldcarts", Kind: models.KindFlatReference, Category: "framework",
			Name: models.Text{Primary: "OLDCARTS", Secondary: "OLDCARTS (es)"}, Description: models.T("Onset"),
			Tags:     []string{"hpi", "pain"},
			RedFlags: []models.Text{models.T("Thunderclap"), models.T("Syncope")},
			CrossReferences: []models.CrossReference{
				{TargetID: "adhd", Relationship: models.RelRelated},
				{TargetID: "missing", Relationship: models.RelSeeAlso},
			},
		},
	}
	adhd := schema.RawEntry{ID: "adhd", Kind: models.KindLeveledTopic, Category: "condition", Name: models.T("ADHD")}
	for l := 1; l <= 5; l++ {
		adhd.Levels = append(adhd.Levels, schema.RawLevel{
			Level: l, Summary: models.T("s"), Body: models.T("b"),
			KeyTerms: []schema.RawKeyTerm{{Term: models.T("t"), Definition: models.T("d")}},
		})
	}
	raws = append(raws, adhd)
	reg, _, err := registry.Build(raws, registry.WithName("clinical"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", sheet, err)
	}
	return rows
}

func TestWriteInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "inventory.xlsx")
	if err := WriteInventory(testRegistry(t), path); err != nil {
		t.Fatal(err)
	}

	entries := readSheet(t, path, SheetEntries)
	if len(entries) != 3 {
		t.Fatalf("entries sheet: got %d rows", len(entries))
	}
	if entries[0][0] != "ID" || entries[0][11] != "Unresolved" {
		t.Errorf("header: got %v", entries[0])
	}
	oldcarts := entries[1]
	want := []string{"hpi-oldcarts", "flat-reference", "framework", "OLDCARTS", "OLDCARTS (es)", "published", "1", "hpi, pain", "0", "2", "2", "1"}
	for i, w := range want {
		if oldcarts[i] != w {
			t.Errorf("entries[1][%d] = %q, want %q", i, oldcarts[i], w)
		}
	}
	if entries[2][0] != "adhd" || entries[2][8] != "5" {
		t.Errorf("topic row: got %v", entries[2])
	}

	categories := readSheet(t, path, SheetCategories)
	if len(categories) != 1+len(models.DefaultKinds().Categories()) {
		t.Errorf("categories sheet: got %d rows", len(categories))
	}
	for _, row := range categories[1:] {
		if row[1] == "framework" && row[2] != "1" {
			t.Errorf("framework count: got %v", row)
		}
	}

	refs := readSheet(t, path, SheetReferences)
	if len(refs) != 3 {
		t.Fatalf("references sheet: got %d rows", len(refs))
	}
	if refs[1][1] != "adhd" || refs[1][3] != "clinical" || refs[1][4] != "yes" {
		t.Errorf("resolved reference row: got %v", refs[1])
	}
	if refs[2][1] != "missing" || refs[2][4] != "no" {
		t.Errorf("dangling reference row: got %v", refs[2])
	}
}

func TestWriteInventory_defaultRegistry(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "seed.xlsx")
	if err := WriteInventory(reg, path); err != nil {
		t.Fatal(err)
	}
	if rows := readSheet(t, path, SheetEntries); len(rows) != reg.Len()+1 {
		t.Errorf("entries sheet: got %d rows for %d entries", len(rows), reg.Len())
	}
}

func TestSnapshot(t *testing.T) {
	db, err := storage.NewSQLiteSnapshot(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	info, err := Snapshot(ctx, testRegistry(t), db)
	if err != nil {
		t.Fatal(err)
	}
	if info.Module != "clinical" || info.EntryCount != 2 {
		t.Errorf("got %+v", info)
	}
	ids, err := db.SnapshotEntryIDs(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "hpi-oldcarts" || ids[1] != "adhd" {
		t.Errorf("snapshot ids: got %v", ids)
	}
}
