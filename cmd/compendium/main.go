// Package main is the compendium CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/compendium/internal/cli"
	"github.com/hyperjump/compendium/internal/config"
	"github.com/hyperjump/compendium/internal/content"
	"github.com/hyperjump/compendium/internal/export"
	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/registry"
	"github.com/hyperjump/compendium/internal/schema"
	"github.com/hyperjump/compendium/internal/server"
	"github.com/hyperjump/compendium/internal/storage"
	"github.com/hyperjump/compendium/internal/watcher"
	"github.com/hyperjump/compendium/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/compendium/config.yaml"

// errValidation marks a failed validate run whose report was already printed.
var errValidation = errors.New("content has validation errors")

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config is not an error: defaults apply and the embedded
// content is served. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "serve", "server":
		err = runServe(rest, stderr)
	case "search":
		err = runSearch(rest, stdout, stderr)
	case "get":
		err = runGet(rest, stdout, stderr)
	case "list":
		err = runList(rest, stdout, stderr)
	case "counts":
		err = runCounts(rest, stdout, stderr)
	case "refs":
		err = runRefs(rest, stdout, stderr)
	case "validate":
		err = runValidate(rest, stdout, stderr)
	case "export":
		err = runExport(rest, stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "compendium version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errValidation):
		return 1
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// reorderArgs moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "compendium get hpi-oldcarts
// --output json" would otherwise leave --output unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// commonFlags are shared by every command that opens the registry.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// env is what a command needs after flags are parsed.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	format   cli.OutputFormat
	reg      *registry.Registry
	siblings []*registry.Registry
}

func (e *env) Close() {
	if e.reg != nil {
		_ = e.reg.Close()
	}
	for _, s := range e.siblings {
		_ = s.Close()
	}
	_ = e.logger.Sync()
}

// setup loads config and logging, and builds the registry when withRegistry is set.
func setup(flags commonFlags, withRegistry bool) (*env, error) {
	format, err := cli.ParseFormat(*flags.output)
	if err != nil {
		return nil, err
	}
	cfg, resolvedConfigPath, err := loadConfig(*flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *flags.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("content_path", cfg.Content.Path),
	)
	e := &env{cfg: cfg, logger: logger, format: format}
	if withRegistry {
		if err := e.openRegistry(); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// openRegistry builds every sibling bundle, then the primary bundle with the
// siblings attached for cross-reference resolution.
func (e *env) openRegistry() error {
	opts := []registry.Option{
		registry.WithLogger(e.logger),
		registry.WithTokenIndex(e.cfg.Search.TokenIndexOrDefault()),
	}
	for _, s := range e.cfg.Content.Siblings {
		b, err := content.Load(s.Path)
		if err != nil {
			return fmt.Errorf("load sibling %s: %w", s.Path, err)
		}
		sibOpts := opts
		if s.Name != "" {
			sibOpts = append(append([]registry.Option(nil), opts...), registry.WithName(s.Name))
		}
		sib, _, err := registry.FromBundle(b, sibOpts...)
		if err != nil {
			return err
		}
		e.siblings = append(e.siblings, sib)
		opts = append(opts, registry.WithSiblings(sib.Module()))
	}

	b, err := loadBundle(e.cfg.Content.Path)
	if err != nil {
		return err
	}
	reg, _, err := registry.FromBundle(b, opts...)
	if err != nil {
		return err
	}
	e.reg = reg
	return nil
}

// loadBundle reads the bundle at path, or the embedded seed when path is empty.
func loadBundle(path string) (*content.Bundle, error) {
	if path == "" {
		return content.Seed()
	}
	return content.Load(path)
}

func runServe(args []string, stderr io.Writer) error {
	fs, flags := newFlagSet("serve", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	srv := server.NewServer(e.reg, &e.cfg.Server, e.cfg.Search.SnippetLength, e.logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	e.logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: compendium search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Matching is a case-insensitive substring match.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  compendium search onset
  compendium search --field redFlags thunderclap
  compendium search --output json "depression screening"
`)
}

func runSearch(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("search", stderr)
	fieldName := fs.String("field", "", "search a single field (e.g. redFlags, body, treatment)")
	snippet := fs.Int("snippet", 0, "snippet length (default from config)")
	fs.Usage = func() { printSearchUsage(fs) }
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	query := buildSearchQuery(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		return errors.New("search query is required")
	}
	var field models.Field
	if *fieldName != "" {
		f, ok := models.ParseField(*fieldName)
		if !ok {
			return fmt.Errorf("unknown field %q", *fieldName)
		}
		field = f
	}

	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	var entries []models.Entry
	if field != "" {
		entries = e.reg.SearchField(field, query)
	} else {
		entries = e.reg.Search(query)
	}
	maxLen := e.cfg.Search.SnippetLength
	if *snippet > 0 {
		maxLen = *snippet
	}
	hits := make([]cli.Hit, 0, len(entries))
	for _, entry := range entries {
		hits = append(hits, cli.Hit{
			ID:       entry.ID,
			Kind:     entry.Kind,
			Category: entry.Category,
			Name:     entry.Name,
			Snippet:  e.reg.Snippet(entry.ID, query, maxLen),
		})
	}
	return cli.WriteSearchResults(stdout, query, hits, e.format)
}

func runGet(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("get", stderr)
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: compendium get [flags] <id>")
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	entry, ok := e.reg.GetByID(fs.Arg(0))
	if !ok {
		return fmt.Errorf("entry %q not found", fs.Arg(0))
	}
	return cli.WriteEntry(stdout, entry, e.format)
}

func runList(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("list", stderr)
	category := fs.String("category", "", "comma-separated categories")
	keyword := fs.String("keyword", "", "tag to filter by")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	var categories []models.Category
	for _, c := range strings.Split(*category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, models.Category(c))
		}
	}

	var entries []models.Entry
	switch {
	case len(categories) > 0:
		entries = e.reg.FilterByCategory(categories...)
		if *keyword != "" {
			entries = intersect(entries, e.reg.FilterByKeyword(*keyword))
		}
	case *keyword != "":
		entries = e.reg.FilterByKeyword(*keyword)
	default:
		entries = e.reg.All()
	}
	return cli.WriteEntries(stdout, entries, e.format)
}

// intersect keeps the entries of a that also appear in b, in a's order.
func intersect(a, b []models.Entry) []models.Entry {
	in := make(map[string]bool, len(b))
	for _, e := range b {
		in[e.ID] = true
	}
	out := []models.Entry{}
	for _, e := range a {
		if in[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func runCounts(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("counts", stderr)
	kind := fs.String("kind", "", "restrict to one kind (flat-reference or leveled-topic)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	if *kind == "" {
		return cli.WriteCounts(stdout, e.reg.CountsByCategory(), e.reg.Kinds().Categories(), e.format)
	}
	spec, ok := e.reg.Kinds().Spec(models.Kind(*kind))
	if !ok {
		return fmt.Errorf("unknown kind %q", *kind)
	}
	counts, _ := e.reg.CountsByKind(spec.Kind)
	return cli.WriteCounts(stdout, counts, spec.Categories, e.format)
}

func runRefs(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("refs", stderr)
	dangling := fs.Bool("dangling", false, "list every unresolved reference instead")
	related := fs.Bool("related", false, "list linked entries in both directions")
	relationship := fs.String("relationship", "", "with --related, keep only this relationship")
	targetType := fs.String("type", "", "with --related, keep only this target type or category")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if !*dangling && fs.NArg() != 1 {
		return errors.New("usage: compendium refs [flags] <id> | compendium refs --dangling")
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.Close()

	if *dangling {
		return cli.WriteDangling(stdout, e.reg.Dangling(), e.format)
	}
	if *related || *relationship != "" || *targetType != "" {
		res, ok := e.reg.RelatedByID(fs.Arg(0), *relationship, *targetType)
		if !ok {
			return fmt.Errorf("entry %q not found", fs.Arg(0))
		}
		return cli.WriteResolutions(stdout, fs.Arg(0), res, e.format)
	}
	res, ok := e.reg.ResolveByID(fs.Arg(0))
	if !ok {
		return fmt.Errorf("entry %q not found", fs.Arg(0))
	}
	return cli.WriteResolutions(stdout, fs.Arg(0), res, e.format)
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("validate", stderr)
	watch := fs.Bool("watch", false, "re-validate whenever a bundle file changes")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.Close()

	path := e.cfg.Content.Path
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	validate := func() error {
		report, err := validatePath(path)
		if err != nil {
			return err
		}
		if err := cli.WriteReport(stdout, report, e.format); err != nil {
			return err
		}
		if report.Err() != nil {
			return errValidation
		}
		return nil
	}

	if !*watch {
		return validate()
	}
	if path == "" {
		return errors.New("nothing to watch: no content path given and the embedded bundle cannot change")
	}
	if err := validate(); err != nil && !errors.Is(err, errValidation) {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	w := watcher.NewWatcher([]string{path}, e.cfg.Watch.Extensions,
		func(changed string) {
			fmt.Fprintf(stdout, "\n%s changed, re-validating\n", changed)
			if err := validate(); err != nil && !errors.Is(err, errValidation) {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
		},
		watcher.WithDebounce(e.cfg.Watch.Debounce()),
		watcher.WithLogger(e.logger),
	)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	fmt.Fprintf(stdout, "Watching %s (Ctrl-C to stop)\n", path)
	<-ctx.Done()
	return nil
}

// validatePath decodes the bundle at path and validates it without building
// a registry. Decode failures are returned as errors.
func validatePath(path string) (*schema.Report, error) {
	b, err := loadBundle(path)
	if err != nil {
		return nil, err
	}
	_, report := schema.ValidateAll(b.Entries, models.DefaultKinds())
	return report, nil
}

func runExport(args []string, stdout, stderr io.Writer) error {
	fs, flags := newFlagSet("export", stderr)
	sqlitePath := fs.String("sqlite", "", "write a SQLite snapshot to this path")
	xlsxPath := fs.String("xlsx", "", "write an XLSX inventory to this path")
	list := fs.Bool("list", false, "list the snapshots in the SQLite database instead of writing")
	tag := fs.String("tag", "", "with --list, count the entries carrying this tag in each snapshot")
	show := fs.String("show", "", "print the entry ids stored in this snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reading := *list || *show != ""
	e, err := setup(flags, !reading)
	if err != nil {
		return err
	}
	defer e.Close()

	if reading {
		path := *sqlitePath
		if path == "" {
			path = e.cfg.Export.SQLitePath
		}
		return readSnapshots(context.Background(), path, *show, *tag, stdout, e.format)
	}

	// With neither flag, both artifacts go to their configured paths.
	if *sqlitePath == "" && *xlsxPath == "" {
		*sqlitePath = e.cfg.Export.SQLitePath
		*xlsxPath = e.cfg.Export.InventoryPath
	}

	if *sqlitePath != "" {
		db, err := storage.NewSQLiteSnapshot(*sqlitePath)
		if err != nil {
			return err
		}
		info, err := export.Snapshot(context.Background(), e.reg, db)
		_ = db.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Snapshot %s: %d entries from %s -> %s\n", info.ID, info.EntryCount, info.Module, *sqlitePath)
	}
	if *xlsxPath != "" {
		if err := export.WriteInventory(e.reg, *xlsxPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Inventory: %d entries -> %s\n", e.reg.Len(), *xlsxPath)
	}
	return nil
}

// readSnapshots lists the snapshots in the database at path, or prints the
// entry ids of one snapshot when show is set.
func readSnapshots(ctx context.Context, path, show, tag string, stdout io.Writer, format cli.OutputFormat) error {
	if path == "" {
		return errors.New("no snapshot database: pass --sqlite or set export.sqlite_path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no snapshot database at %s: %w", path, err)
	}
	db, err := storage.NewSQLiteSnapshot(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if show != "" {
		ids, err := db.SnapshotEntryIDs(ctx, show)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("snapshot %q not found", show)
		}
		return cli.WriteSnapshotIDs(stdout, show, ids, format)
	}

	infos, err := db.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	rows := make([]cli.SnapshotRow, len(infos))
	for i, info := range infos {
		rows[i] = cli.SnapshotRow{SnapshotInfo: *info}
		if tag != "" {
			n, err := db.CountTagged(ctx, info.ID, tag)
			if err != nil {
				return fmt.Errorf("failed to count tag %q: %w", tag, err)
			}
			rows[i].Tagged = &n
		}
	}
	return cli.WriteSnapshots(stdout, rows, format)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `compendium - Typed clinical content registry

Usage:
  compendium serve [flags]             Start the read-only HTTP server
  compendium search [flags] <query>    Substring search over searchable fields
  compendium get [flags] <id>          Show one entry
  compendium list [flags]              List entries, optionally filtered
  compendium counts [flags]            Entry counts per category
  compendium refs [flags] <id>         Resolve an entry's cross-references
  compendium validate [flags] [path]   Validate a bundle file or directory
  compendium export [flags]            Write a SQLite snapshot and/or XLSX inventory
  compendium version                   Show version
  compendium help                      Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/compendium/config.yaml)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Search Flags:
  --field string     Search a single field instead of the kind's searchable fields
  --snippet int      Snippet length (default from config)

List Flags:
  --category string  Comma-separated categories (union)
  --keyword string   Tag to filter by (intersects with --category)

Counts Flags:
  --kind string      Restrict to one kind's categories

Refs Flags:
  --dangling         List every unresolved reference
  --related          List linked entries in both directions
  --relationship     With --related, keep only this relationship
  --type string      With --related, keep only this target type or category

Validate Flags:
  --watch            Re-validate whenever a bundle file changes

Export Flags:
  --sqlite string    SQLite snapshot path
  --xlsx string      XLSX inventory path
                     With neither flag, both are written to the configured paths.
  --list             List stored snapshots (reads --sqlite or the configured path)
  --tag string       With --list, count entries carrying this tag per snapshot
  --show string      Print the entry ids stored in a snapshot

Examples:
  compendium serve
  compendium search thunderclap
  compendium search --field redFlags "worst-ever"
  compendium get --output json hpi-oldcarts
  compendium list --category framework,screening-tool
  compendium refs mental-health-tdah-adhd
  compendium refs --related --relationship related mental-health-tdah-adhd
  compendium validate --watch ./content
  compendium export --xlsx inventory.xlsx`)
}
