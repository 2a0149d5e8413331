// Package schema describes the scripts bunseki can configure: each script's
// ordered configuration items, the kind of artifact every item renders into,
// and the input shape its value takes.
package schema

import (
	"fmt"
	"strings"
)

// Kind selects which artifact a ConfigItem renders into.
type Kind string

const (
	// KindSettings renders as a TOKEN='value' line in the settings file.
	KindSettings Kind = "settings"
	// KindCommand renders as a flag on the command line.
	KindCommand Kind = "command"
	// KindConfig is a repeating table rendered into the JSON config document.
	KindConfig Kind = "config"
)

// UnmarshalText implements encoding.TextUnmarshaler so catalogs in any
// supported format decode straight into a Kind.
func (k *Kind) UnmarshalText(text []byte) error {
	switch v := Kind(strings.TrimSpace(string(text))); v {
	case KindSettings, KindCommand, KindConfig:
		*k = v
		return nil
	default:
		return fmt.Errorf("unknown item kind %q", string(text))
	}
}

// InputShape is the form control an item is edited with. It decides how a
// raw value is coerced and how it is formatted on the command line.
type InputShape string

const (
	ShapeText     InputShape = "text"
	ShapeNumber   InputShape = "number"
	ShapeDateTime InputShape = "datetime-local"
	ShapeDate     InputShape = "date"
	ShapeBoolean  InputShape = "checkbox"
	ShapeSelect   InputShape = "select"
	ShapeRow      InputShape = "row"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InputShape) UnmarshalText(text []byte) error {
	switch v := InputShape(strings.TrimSpace(string(text))); v {
	case ShapeText, ShapeNumber, ShapeDateTime, ShapeDate, ShapeBoolean, ShapeSelect, ShapeRow:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown input shape %q", string(text))
	}
}

// RowWidth is the number of sub-fields in a repeating-table row: a label and
// a comma-separated list.
const RowWidth = 2

// Option is one choice of a select item.
type Option struct {
	Value string `yaml:"value" toml:"value"`
	Name  string `yaml:"name" toml:"name"`
}

// Column describes one sub-field of a repeating-table row.
type Column struct {
	Placeholder string `yaml:"placeholder,omitempty" toml:"placeholder,omitempty"`
}

// ConfigItem is one configurable parameter of a script.
type ConfigItem struct {
	Name        string     `yaml:"name" toml:"name"`
	Description string     `yaml:"desc,omitempty" toml:"desc,omitempty"`
	Required    bool       `yaml:"required,omitempty" toml:"required,omitempty"`
	Kind        Kind       `yaml:"type" toml:"type"`
	Arg         string     `yaml:"arg" toml:"arg"`
	Input       InputShape `yaml:"input" toml:"input"`
	Placeholder string     `yaml:"placeholder,omitempty" toml:"placeholder,omitempty"`
	Options     []Option   `yaml:"options,omitempty" toml:"options,omitempty"`
	Columns     []Column   `yaml:"columns,omitempty" toml:"columns,omitempty"`
	// Default seeds the item's value when a session starts. Nil means absent.
	Default any `yaml:"default,omitempty" toml:"default,omitempty"`
}

// Repeating reports whether the item holds a growable list of rows.
func (c ConfigItem) Repeating() bool {
	return c.Kind == KindConfig
}

// ScriptDescriptor is the static definition of one script.
type ScriptDescriptor struct {
	Name        string       `yaml:"name" toml:"name"`
	Description string       `yaml:"desc,omitempty" toml:"desc,omitempty"`
	Filename    string       `yaml:"filename" toml:"filename"`
	Src         string       `yaml:"src" toml:"src"`
	Items       []ConfigItem `yaml:"config" toml:"config"`
}

// RepeatingItem returns the index of the script's repeating-table item, or -1.
func (s ScriptDescriptor) RepeatingItem() int {
	for i, it := range s.Items {
		if it.Repeating() {
			return i
		}
	}
	return -1
}

// StaticFile is a file shipped with every archive regardless of configuration.
type StaticFile struct {
	Filename string `yaml:"filename" toml:"filename"`
	Src      string `yaml:"src" toml:"src"`
	// SettingsTemplate marks the example settings file that a generated
	// settings file supersedes in configured exports.
	SettingsTemplate bool `yaml:"settings_template,omitempty" toml:"settings_template,omitempty"`
}

// SettingsFilename is the name of the generated settings file.
const SettingsFilename = "settings.py"

// File name suffixes of the artifacts generated per script.
const (
	CommandSuffix = ".bat"
	ConfigSuffix  = ".config.json"
)

// DefaultInterpreter prefixes every rendered command unless the catalog or
// the caller picks another.
const DefaultInterpreter = "python"

// Catalog is a named profile: the scripts a page offers and the files that
// travel with them.
type Catalog struct {
	Name              string             `yaml:"name" toml:"name"`
	Title             string             `yaml:"title,omitempty" toml:"title,omitempty"`
	Description       string             `yaml:"desc,omitempty" toml:"desc,omitempty"`
	ArchiveName       string             `yaml:"archive_name" toml:"archive_name"`
	ConfigurationName string             `yaml:"configuration_name,omitempty" toml:"configuration_name,omitempty"`
	Interpreter       string             `yaml:"interpreter,omitempty" toml:"interpreter,omitempty"`
	Scripts           []ScriptDescriptor `yaml:"scripts" toml:"scripts"`
	StaticFiles       []StaticFile       `yaml:"other_files,omitempty" toml:"other_files,omitempty"`
}

// Script returns the descriptor named name.
func (c *Catalog) Script(name string) (ScriptDescriptor, bool) {
	for _, s := range c.Scripts {
		if s.Name == name {
			return s, true
		}
	}
	return ScriptDescriptor{}, false
}

// ConfiguredFolder is the archive root for configured exports.
func (c *Catalog) ConfiguredFolder(includeScripts bool) string {
	if includeScripts {
		return c.ArchiveName + "_configured"
	}
	if c.ConfigurationName != "" {
		return c.ConfigurationName
	}
	return c.ArchiveName + "_configuration"
}

// CommandInterpreter returns the catalog's interpreter or the default.
func (c *Catalog) CommandInterpreter() string {
	if c.Interpreter != "" {
		return c.Interpreter
	}
	return DefaultInterpreter
}
