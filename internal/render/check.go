package render

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"bunseki/internal/schema"
)

// ErrMissingRequiredValue is wrapped by *MissingValueError.
var ErrMissingRequiredValue = errors.New("missing required value")

// MissingValueError names the required item that has no usable value.
type MissingValueError struct {
	Script string
	Item   int
	Name   string
	Arg    string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("%s: script %q item %q (%s)", ErrMissingRequiredValue, e.Script, e.Name, e.Arg)
}

func (e *MissingValueError) Unwrap() error { return ErrMissingRequiredValue }

// CheckRequired returns a *MissingValueError for the first required item of
// script that would not render anything.
func CheckRequired(script schema.ScriptDescriptor, values []schema.Value) error {
	for i, item := range script.Items {
		if !item.Required {
			continue
		}
		var v schema.Value
		if i < len(values) {
			v = values[i]
		}
		if !provided(v) {
			return &MissingValueError{Script: script.Name, Item: i, Name: item.Name, Arg: item.Arg}
		}
	}
	return nil
}

func provided(v schema.Value) bool {
	if !v.IsSet() {
		return false
	}
	switch v.Kind {
	case schema.ValueString:
		return strings.TrimSpace(v.Str) != ""
	case schema.ValueRows:
		for _, row := range v.Rows {
			if _, ok := row.Cell(1); ok {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// LintCommand parses cmd as a POSIX shell command line. A value that slipped
// an unbalanced backtick or a stray "$(" into a double-quoted argument makes
// the generated command unusable even though rendering succeeded.
//
// Only the POSIX sh reading of the command is checked. cmd.exe, which runs
// the exported .bat file, quotes and expands differently, and a command
// can pass here and still misbehave there.
func LintCommand(cmd string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(cmd), "command"); err != nil {
		return fmt.Errorf("generated command does not parse: %w", err)
	}
	return nil
}
