// Package cli provides output formatting for the compendium command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/schema"
	"github.com/hyperjump/compendium/internal/storage"
	"github.com/hyperjump/compendium/internal/xref"
	"github.com/hyperjump/compendium/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

const rule = "─────────────────────────────────────────────────────────"

// Hit is one search result with a display snippet.
type Hit struct {
	ID       string          `json:"id"`
	Kind     models.Kind     `json:"kind"`
	Category models.Category `json:"category"`
	Name     models.Text     `json:"name"`
	Snippet  string          `json:"snippet"`
}

type searchOutput struct {
	Query   string `json:"query"`
	Total   int    `json:"total"`
	Results []Hit  `json:"results"`
}

// WriteSearchResults writes search hits to w in the given format.
func WriteSearchResults(w io.Writer, query string, hits []Hit, format OutputFormat) error {
	if hits == nil {
		hits = []Hit{}
	}
	if format == OutputJSON {
		return writeJSON(w, searchOutput{Query: query, Total: len(hits), Results: hits})
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s [%s/%s]\n", i+1, h.ID, h.Kind, h.Category)
		fmt.Fprintf(w, "Name: %s\n", formatText(h.Name))
		if h.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", utils.OneLine(h.Snippet))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteEntries writes one line per entry, or the entries as a JSON array.
func WriteEntries(w io.Writer, entries []models.Entry, format OutputFormat) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	if format == OutputJSON {
		return writeJSON(w, entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-32s %-16s %-20s %s\n", e.ID, e.Kind, e.Category, utils.Truncate(e.Name.Primary, 60))
	}
	fmt.Fprintf(w, "\n%d entries\n", len(entries))
	return nil
}

// WriteEntry writes a full entry.
func WriteEntry(w io.Writer, e models.Entry, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, e)
	}
	fmt.Fprintf(w, "ID: %s\n", e.ID)
	fmt.Fprintf(w, "Kind: %s\nCategory: %s\n", e.Kind, e.Category)
	fmt.Fprintf(w, "Name: %s\n", formatText(e.Name))
	if len(e.AlternateNames) > 0 {
		fmt.Fprintf(w, "Also: %s\n", joinTexts(e.AlternateNames))
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(w, "Status: %s (v%d)\n", e.Status, e.Version)

	if r := e.Reference; r != nil {
		writeSection(w, "Description", r.Description)
		writeList(w, "Key questions", r.KeyQuestions)
		writeSection(w, "Mnemonic", r.Mnemonic)
		writeList(w, "Red flags", r.RedFlags)
		writeList(w, "Clinical pearls", r.ClinicalPearls)
		writeList(w, "Findings", r.Findings)
		writeSection(w, "Approach", r.Approach)
		writeSection(w, "Treatment", r.Treatment)
		writeSection(w, "Documentation", r.DocumentationTips)
	}
	if t := e.Topic; t != nil {
		for _, l := range t.Levels {
			fmt.Fprintln(w, rule)
			fmt.Fprintf(w, "Level %d: %s\n", l.Level, formatText(l.Summary))
			fmt.Fprintf(w, "\n%s\n", formatText(l.Body))
			for _, kt := range l.KeyTerms {
				fmt.Fprintf(w, "  * %s: %s\n", formatText(kt.Term), formatText(kt.Definition))
			}
			if !l.ClinicalNotes.IsZero() {
				fmt.Fprintf(w, "  Notes: %s\n", formatText(l.ClinicalNotes))
			}
		}
	}
	if len(e.CrossReferences) > 0 {
		fmt.Fprintln(w, "\nSee also:")
		for _, ref := range e.CrossReferences {
			fmt.Fprintf(w, "  - %s (%s)\n", ref.TargetID, ref.Relationship)
		}
	}
	return nil
}

// WriteCounts writes category counts in the order given.
func WriteCounts(w io.Writer, counts models.CategoryCounts, order []models.Category, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, counts)
	}
	for _, c := range order {
		fmt.Fprintf(w, "%-24s %d\n", c, counts[c])
	}
	fmt.Fprintf(w, "%-24s %d\n", "total", counts.Total())
	return nil
}

// WriteResolutions writes the resolved cross-references of id.
func WriteResolutions(w io.Writer, id string, res []models.Resolution, format OutputFormat) error {
	if res == nil {
		res = []models.Resolution{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"id": id, "references": res})
	}
	if len(res) == 0 {
		fmt.Fprintf(w, "%s declares no cross-references\n", id)
		return nil
	}
	for _, r := range res {
		switch {
		case r.Incoming:
			fmt.Fprintf(w, "%-10s %-32s %s [%s] (references %s)\n", r.Relationship, r.TargetID, r.Entry.Name.Primary, r.Module, id)
		case r.Resolved():
			fmt.Fprintf(w, "%-10s %-32s %s [%s]\n", r.Relationship, r.TargetID, r.Entry.Name.Primary, r.Module)
		default:
			fmt.Fprintf(w, "%-10s %-32s (unresolved)\n", r.Relationship, r.TargetID)
		}
	}
	return nil
}

// WriteDangling writes every unresolved reference.
func WriteDangling(w io.Writer, dangling []xref.Dangling, format OutputFormat) error {
	if dangling == nil {
		dangling = []xref.Dangling{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"total": len(dangling), "dangling": dangling})
	}
	for _, d := range dangling {
		fmt.Fprintf(w, "%s -> %s (%s)\n", d.SourceID, d.TargetID, d.Relationship)
	}
	fmt.Fprintf(w, "%d unresolved reference(s)\n", len(dangling))
	return nil
}

// SnapshotRow is one stored snapshot. Tagged is set when a tag count was
// requested.
type SnapshotRow struct {
	storage.SnapshotInfo
	Tagged *int64 `json:"tagged,omitempty"`
}

// WriteSnapshots writes the snapshots stored in a database, newest first.
func WriteSnapshots(w io.Writer, rows []SnapshotRow, format OutputFormat) error {
	if rows == nil {
		rows = []SnapshotRow{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"total": len(rows), "snapshots": rows})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No snapshots.")
		return nil
	}
	for _, r := range rows {
		line := fmt.Sprintf("%s  %-24s %4d entries  %s", r.ID, r.Module, r.EntryCount, r.CreatedAt.Format("2006-01-02 15:04:05"))
		if r.Tagged != nil {
			line += fmt.Sprintf("  %d tagged", *r.Tagged)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteSnapshotIDs writes the entry ids stored in one snapshot.
func WriteSnapshotIDs(w io.Writer, snapshotID string, ids []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"snapshot": snapshotID, "ids": ids})
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// WriteReport writes validation issues, errors first.
func WriteReport(w io.Writer, report *schema.Report, format OutputFormat) error {
	errs, warns := report.Errors(), report.Warnings()
	if format == OutputJSON {
		issues := append(append([]schema.Issue{}, errs...), warns...)
		return writeJSON(w, map[string]interface{}{
			"errors":   len(errs),
			"warnings": len(warns),
			"issues":   issues,
		})
	}
	for _, i := range errs {
		fmt.Fprintf(w, "error   %s\n", i)
	}
	for _, i := range warns {
		fmt.Fprintf(w, "warning %s\n", i)
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", len(errs), len(warns))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSection(w io.Writer, title string, t models.Text) {
	if t.IsZero() {
		return
	}
	fmt.Fprintf(w, "\n%s:\n  %s\n", title, formatText(t))
}

func writeList(w io.Writer, title string, ts []models.Text) {
	if len(ts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, t := range ts {
		fmt.Fprintf(w, "  - %s\n", formatText(t))
	}
}

// formatText renders "primary / secondary" when a translation is present.
func formatText(t models.Text) string {
	if t.Secondary == "" {
		return t.Primary
	}
	return t.Primary + " / " + t.Secondary
}

func joinTexts(ts []models.Text) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = formatText(t)
	}
	return strings.Join(parts, ", ")
}
