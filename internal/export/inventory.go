// Package export publishes registry contents as one-way artifacts: an XLSX
// inventory for content reviewers and SQLite snapshots for site generators.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/storage"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the inventory workbook.
const (
	SheetEntries    = "Entries"
	SheetCategories = "Categories"
	SheetReferences = "References"
)

// Source is the read surface an export needs.
type Source interface {
	Name() string
	All() []models.Entry
	Kinds() models.KindSet
	CountsByKind(kind models.Kind) (models.CategoryCounts, bool)
	ResolveCrossReferences(entry models.Entry) []models.Resolution
}

var entryHeader = []interface{}{
	"ID", "Kind", "Category", "Name", "Name (secondary)", "Status", "Version",
	"Tags", "Levels", "Red flags", "References", "Unresolved",
}

var categoryHeader = []interface{}{"Kind", "Category", "Entries"}

var referenceHeader = []interface{}{"Source", "Target", "Relationship", "Module", "Resolved"}

// WriteInventory writes an XLSX workbook describing every entry of src to path.
func WriteInventory(src Source, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetEntries); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetReferences} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	entries := src.All()
	entryRows := make([][]interface{}, 0, len(entries))
	var refRows [][]interface{}
	for _, e := range entries {
		res := src.ResolveCrossReferences(e)
		unresolved := 0
		for _, r := range res {
			if !r.Resolved() {
				unresolved++
			}
			refRows = append(refRows, []interface{}{e.ID, r.TargetID, r.Relationship, r.Module, yesNo(r.Resolved())})
		}
		entryRows = append(entryRows, []interface{}{
			e.ID, string(e.Kind), string(e.Category), e.Name.Primary, e.Name.Secondary,
			string(e.Status), e.Version, strings.Join(e.Tags, ", "),
			levelCount(e), redFlagCount(e), len(res), unresolved,
		})
	}

	var categoryRows [][]interface{}
	for _, spec := range src.Kinds() {
		counts, _ := src.CountsByKind(spec.Kind)
		for _, c := range spec.Categories {
			categoryRows = append(categoryRows, []interface{}{string(spec.Kind), string(c), counts[c]})
		}
	}

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{SheetEntries, entryHeader, entryRows},
		{SheetCategories, categoryHeader, categoryRows},
		{SheetReferences, referenceHeader, refRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, bold); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func levelCount(e models.Entry) int {
	if e.Topic == nil {
		return 0
	}
	return len(e.Topic.Levels)
}

func redFlagCount(e models.Entry) int {
	if e.Reference == nil {
		return 0
	}
	return len(e.Reference.RedFlags)
}

// Snapshot writes every entry of src to w as a new snapshot.
func Snapshot(ctx context.Context, src Source, w storage.SnapshotWriter) (*storage.SnapshotInfo, error) {
	info, err := w.WriteSnapshot(ctx, src.Name(), src.All())
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", src.Name(), err)
	}
	return info, nil
}
