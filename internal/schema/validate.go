package schema

// validate.go — load-time checks. Rendering assumes what these checks
// guarantee (one repeating item per script, unique argument tokens), so a
// catalog that fails here is never handed to a session.

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrSchemaViolation is wrapped by every error returned from Validate.
var ErrSchemaViolation = errors.New("schema violation")

// Issue is a single problem found in a catalog.
type Issue struct {
	// Script is the script the issue belongs to; empty for catalog-level issues.
	Script string
	// Item is the offending item's index, or -1.
	Item    int
	Message string
}

func (i Issue) String() string {
	switch {
	case i.Script == "":
		return i.Message
	case i.Item < 0:
		return fmt.Sprintf("script %q: %s", i.Script, i.Message)
	default:
		return fmt.Sprintf("script %q item %d: %s", i.Script, i.Item, i.Message)
	}
}

// ValidationError lists every issue found in one validation pass.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(lines, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrSchemaViolation }

type issues []Issue

func (is *issues) add(script string, item int, format string, args ...any) {
	*is = append(*is, Issue{Script: script, Item: item, Message: fmt.Sprintf(format, args...)})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Issues: is}
}

// Validate checks the whole catalog and returns a *ValidationError listing
// every issue, or nil.
func (c *Catalog) Validate() error {
	var found issues
	if c.Name == "" {
		found.add("", -1, "catalog name is empty")
	}
	if c.ArchiveName == "" {
		found.add("", -1, "archive_name is empty")
	} else if !isPathComponent(c.ArchiveName) {
		found.add("", -1, "archive_name %q must be a single path component", c.ArchiveName)
	}
	if c.ConfigurationName != "" && !isPathComponent(c.ConfigurationName) {
		found.add("", -1, "configuration_name %q must be a single path component", c.ConfigurationName)
	}

	seen := make(map[string]bool, len(c.Scripts))
	for _, s := range c.Scripts {
		if s.Name != "" && seen[s.Name] {
			found.add("", -1, "duplicate script name %q", s.Name)
		}
		seen[s.Name] = true
		found = append(found, s.issues()...)
	}

	templates := 0
	for _, f := range c.StaticFiles {
		if f.Filename == "" {
			found.add("", -1, "static file with src %q has no filename", f.Src)
		} else if !isPathComponent(f.Filename) {
			found.add("", -1, "static file name %q must be a single path component", f.Filename)
		}
		if f.SettingsTemplate {
			templates++
		}
	}
	if templates > 1 {
		found.add("", -1, "%d static files are marked settings_template, at most one allowed", templates)
	}
	found = append(found, c.pathIssues()...)
	return found.err()
}

// pathIssues reports archive entries that two catalog entries would both
// write. Script sources, static files and generated artifacts share one
// folder per export; the settings template only appears in export-all,
// where the generated files do not.
func (c *Catalog) pathIssues() issues {
	var found issues
	owners := make(map[string]string)
	claim := func(path, owner string) {
		if path == "" {
			return
		}
		if prev, ok := owners[path]; ok {
			found.add("", -1, "archive path %q is used by both %s and %s", path, prev, owner)
			return
		}
		owners[path] = owner
	}

	for _, s := range c.Scripts {
		claim(s.Filename, fmt.Sprintf("script %q source", s.Name))
	}
	for _, f := range c.StaticFiles {
		if !f.SettingsTemplate {
			claim(f.Filename, fmt.Sprintf("static file %q", f.Src))
		}
	}
	for _, f := range c.StaticFiles {
		if !f.SettingsTemplate || f.Filename == "" {
			continue
		}
		if prev, ok := owners[f.Filename]; ok {
			found.add("", -1, "archive path %q is used by both %s and settings template %q", f.Filename, prev, f.Src)
		}
	}

	claim(SettingsFilename, "the generated settings file")
	for _, s := range c.Scripts {
		if s.Name == "" {
			continue
		}
		claim(s.Name+CommandSuffix, fmt.Sprintf("script %q command file", s.Name))
		claim(s.Name+ConfigSuffix, fmt.Sprintf("script %q config file", s.Name))
	}
	return found
}

// isPathComponent reports whether name can be used as one file or folder
// name inside an archive: relative, no separators, no dot segments.
func isPathComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.IsLocal(name)
}

// Validate checks a single script descriptor.
func (s ScriptDescriptor) Validate() error {
	return issues(s.issues()).err()
}

func (s ScriptDescriptor) issues() issues {
	var found issues
	if s.Name == "" {
		found.add("", -1, "script with filename %q has no name", s.Filename)
	}
	if s.Name != "" && !isPathComponent(s.Name) {
		found.add("", -1, "script name %q must be a single path component", s.Name)
	}
	if s.Filename == "" {
		found.add(s.Name, -1, "filename is empty")
	} else if !isPathComponent(s.Filename) {
		found.add(s.Name, -1, "filename %q must be a single path component", s.Filename)
	}

	tokens := make(map[string]int, len(s.Items))
	repeating := 0
	for i, it := range s.Items {
		if it.Arg == "" {
			found.add(s.Name, i, "argument token is empty")
		} else if prev, dup := tokens[it.Arg]; dup {
			found.add(s.Name, i, "argument token %q already used by item %d", it.Arg, prev)
		} else {
			tokens[it.Arg] = i
		}

		switch it.Kind {
		case KindSettings, KindCommand, KindConfig:
		default:
			found.add(s.Name, i, "unknown kind %q", it.Kind)
		}

		if it.Input == "" {
			found.add(s.Name, i, "input shape is empty")
		}

		if it.Repeating() {
			repeating++
			if it.Input != ShapeRow {
				found.add(s.Name, i, "repeating item must use input %q, got %q", ShapeRow, it.Input)
			}
			if len(it.Columns) != RowWidth {
				found.add(s.Name, i, "repeating item needs exactly %d columns, got %d", RowWidth, len(it.Columns))
			}
		} else if it.Input == ShapeRow {
			found.add(s.Name, i, "input %q is only valid for %q items", ShapeRow, KindConfig)
		}

		if it.Input == ShapeSelect && len(it.Options) == 0 {
			found.add(s.Name, i, "select item has no options")
		}
	}
	if repeating > 1 {
		found.add(s.Name, -1, "%d repeating items, at most one allowed", repeating)
	}
	return found
}
