// Package catalog loads script catalogs from YAML or TOML files and from the
// profiles compiled into the binary.
//
// A catalog reference is either the name of a built-in profile ("twitter",
// "2ch") or a path to a .yaml/.yml/.toml file. Every catalog is validated
// before it is returned; a catalog that violates the schema never reaches a
// session.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"bunseki/internal/schema"
)

//go:embed builtin
var builtinFS embed.FS

// Format is a catalog file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("catalog %s: unsupported extension (want .yaml, .yml or .toml)", name)
	}
}

// Decode parses and validates a catalog. Unknown fields are rejected so a
// misspelled key does not silently drop an item property.
func Decode(data []byte, format Format) (*schema.Catalog, error) {
	var c schema.Catalog
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parse yaml catalog: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parse toml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %q: %w", c.Name, err)
	}
	return &c, nil
}

// Load reads a catalog file from disk.
func Load(file string) (*schema.Catalog, error) {
	format, err := FormatFor(file)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", file, err)
	}
	c, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}

// Builtins returns the names of the embedded profiles, sorted.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the embedded profile called name.
func Builtin(name string) (*schema.Catalog, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin catalogs: %w", err)
	}
	for _, e := range entries {
		if strings.TrimSuffix(e.Name(), path.Ext(e.Name())) != name {
			continue
		}
		format, err := FormatFor(e.Name())
		if err != nil {
			return nil, err
		}
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read builtin catalog %q: %w", name, err)
		}
		return Decode(data, format)
	}
	return nil, fmt.Errorf("no builtin catalog %q (available: %s)", name, strings.Join(Builtins(), ", "))
}

// Open resolves ref as a catalog file when it has a catalog extension or
// exists on disk, and as a built-in profile name otherwise.
func Open(ref string) (*schema.Catalog, error) {
	if _, err := FormatFor(ref); err == nil {
		return Load(ref)
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return Load(ref)
	}
	return Builtin(ref)
}
