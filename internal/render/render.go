// Package render turns a script's current item values into the three
// artifacts a user takes away: the command line, the settings block and the
// JSON config document.
//
// Render is a pure function. Calling it twice with the same values yields
// byte-identical artifacts.
package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"bunseki/internal/schema"
)

// Artifacts are the rendered outputs of one script.
type Artifacts struct {
	Command string
	// Settings is empty when the script has no visible settings items.
	Settings string
	// JSON is empty when no repeating-table row was complete.
	JSON string
}

// Options tune the parts of the output that are not derived from values.
type Options struct {
	// Interpreter prefixes the command; schema.DefaultInterpreter when empty.
	Interpreter string
}

// Render produces the artifacts for script from values, which must be
// aligned with script.Items.
//
// A table row with keywords but no label renders under the empty key "",
// not under "null".
func Render(script schema.ScriptDescriptor, values []schema.Value, opts Options) Artifacts {
	var (
		settings []string
		args     []string
		entries  []map[string][]string
		jsonKey  string
	)

	for i, item := range script.Items {
		if i >= len(values) || !values[i].IsSet() {
			continue
		}
		v := values[i]

		switch {
		case item.Kind == schema.KindSettings:
			if len(settings) > 0 {
				settings = append(settings, "")
			}
			settings = append(settings, item.Arg+"='"+v.Text()+"'")

		case item.Repeating():
			jsonKey = item.Arg
			for _, row := range v.Rows {
				list, ok := row.Cell(1)
				if !ok {
					continue
				}
				label, _ := row.Cell(0)
				entries = append(entries, map[string][]string{label: splitKeywords(list)})
			}

		case v.Kind == schema.ValueBool:
			// Only true survives IsSet: a presence flag.
			args = append(args, item.Arg)

		case item.Input == schema.ShapeDateTime && v.Str != "":
			args = append(args, item.Arg+` "`+v.Text()+`:00Z"`)

		case v.Kind == schema.ValueString && v.Str != "":
			args = append(args, item.Arg+` "`+strings.ReplaceAll(v.Str, `"`, `'`)+`"`)

		case v.Kind == schema.ValueNumber:
			args = append(args, item.Arg+" "+v.Text())
		}
	}

	interpreter := opts.Interpreter
	if interpreter == "" {
		interpreter = schema.DefaultInterpreter
	}

	out := Artifacts{
		Command:  interpreter + " " + script.Filename + " " + strings.Join(args, " "),
		Settings: strings.Join(settings, "\n"),
	}
	if len(entries) > 0 {
		doc, err := indent(map[string][]map[string][]string{jsonKey: entries})
		if err == nil {
			out.JSON = doc
		}
	}
	return out
}

func splitKeywords(list string) []string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// indent encodes v with two-space indentation and without HTML escaping so
// keywords such as "R&D" survive as typed.
func indent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
