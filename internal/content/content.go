// Package content loads literal entry definitions from YAML bundles, either
// the seed bundle compiled into the binary or bundles on disk.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/compendium/internal/schema"
	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// Bundle is one content module: a name and its entries in declaration order.
type Bundle struct {
	Module  string            `yaml:"module"`
	Entries []schema.RawEntry `yaml:"entries"`
}

// Extensions lists the file extensions treated as bundle files.
var Extensions = []string{".yaml", ".yml"}

// IsBundleFile reports whether name has a bundle extension.
func IsBundleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Seed returns the bundle compiled into the binary.
func Seed() (*Bundle, error) {
	return LoadFS(seedFS, "seed")
}

// Load reads a bundle from p, which may be a single file or a directory.
func Load(p string) (*Bundle, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat content path: %w", err)
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(p), ".")
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()
	b, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return b, nil
}

// LoadFS reads every bundle file directly under dir, in lexical file order,
// and concatenates their entries. All files must name the same module.
func LoadFS(fsys fs.FS, dir string) (*Bundle, error) {
	dirEntries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir: %w", err)
	}
	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || !IsBundleFile(de.Name()) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	out := &Bundle{}
	for _, name := range names {
		p := path.Join(dir, name)
		f, err := fsys.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open bundle: %w", err)
		}
		b, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if b.Module != "" {
			if out.Module != "" && out.Module != b.Module {
				return nil, fmt.Errorf("%s: module %q does not match %q", name, b.Module, out.Module)
			}
			out.Module = b.Module
		}
		out.Entries = append(out.Entries, b.Entries...)
	}
	return out, nil
}

// Decode parses one bundle document. Unknown fields are rejected.
func Decode(r io.Reader) (*Bundle, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return &Bundle{}, nil
		}
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &b, nil
}
