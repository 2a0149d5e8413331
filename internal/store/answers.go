package store

// answers.go — values supplied as a YAML file instead of through the form.
//
// Layout:
//
//	selected: [search, categorize]
//	scripts:
//	  search:
//	    BEARER_TOKEN: abc        # keyed by argument token
//	    -q: golang
//	    --no-keep-rt: true
//	  categorize:
//	    categories:              # repeating item: [label, keywords] rows
//	      - [news, "breaking, urgent"]
//	      - [sports]

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bunseki/internal/schema"
)

// Answers is the decoded content of an answers file.
type Answers struct {
	Selected []string                  `yaml:"selected,omitempty"`
	Scripts  map[string]map[string]any `yaml:"scripts,omitempty"`
}

// ParseAnswers decodes an answers document.
func ParseAnswers(data []byte) (*Answers, error) {
	var a Answers
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return &a, nil
}

// LoadAnswers reads an answers file from disk.
func LoadAnswers(path string) (*Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers %s: %w", path, err)
	}
	a, err := ParseAnswers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Events translates the answers into session events, in catalog and item
// order. Nothing is applied; an unknown script or token fails the whole
// translation.
func (a *Answers) Events(s *Session) ([]Event, error) {
	var events []Event
	for _, name := range a.Selected {
		if _, ok := s.catalog.Script(name); !ok {
			return nil, fmt.Errorf("selected: %w %q", ErrUnknownScript, name)
		}
		events = append(events, SetChecked{Script: name, Checked: true})
	}

	for name := range a.Scripts {
		if _, ok := s.catalog.Script(name); !ok {
			return nil, fmt.Errorf("scripts: %w %q", ErrUnknownScript, name)
		}
	}

	for _, d := range s.catalog.Scripts {
		given, ok := a.Scripts[d.Name]
		if !ok {
			continue
		}
		used := 0
		for i, item := range d.Items {
			raw, ok := given[item.Arg]
			if !ok {
				continue
			}
			used++
			if !item.Repeating() {
				if _, err := schema.Coerce(item, raw); err != nil {
					return nil, fmt.Errorf("script %q: %w", d.Name, err)
				}
				events = append(events, SetScalar{Script: d.Name, Item: i, Value: raw})
				continue
			}
			rowEvents, err := s.rowEvents(d.Name, i, raw)
			if err != nil {
				return nil, fmt.Errorf("script %q %s: %w", d.Name, item.Arg, err)
			}
			events = append(events, rowEvents...)
		}
		if used != len(given) {
			for token := range given {
				if !hasArg(d, token) {
					return nil, fmt.Errorf("script %q has no item with argument %q", d.Name, token)
				}
			}
		}
	}
	return events, nil
}

// rowEvents replays "add row, then type" for every row in raw, starting
// from the session's current counter.
func (s *Session) rowEvents(script string, index int, raw any) ([]Event, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list of [label, keywords] rows, got %T", raw)
	}
	st := s.scripts[script]
	counter := st.counters[index]
	rows := len(st.values[index].Rows)

	var events []Event
	for n, r := range list {
		cells, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: want a list, got %T", n+1, r)
		}
		if len(cells) > schema.RowWidth {
			return nil, fmt.Errorf("row %d: %d cells, at most %d", n+1, len(cells), schema.RowWidth)
		}
		if rows >= counter {
			events = append(events, IncrementRowCounter{Script: script, Item: index})
			counter++
		}
		for sub, c := range cells {
			if c == nil {
				continue
			}
			events = append(events, AppendOrUpdateRow{
				Script:   script,
				Item:     index,
				RowCount: counter,
				Subfield: sub,
				Value:    fmt.Sprint(c),
			})
		}
		// Every listed row holds its slot, blank ones included.
		rows = max(rows, counter)
	}
	return events, nil
}

func hasArg(d schema.ScriptDescriptor, token string) bool {
	for _, it := range d.Items {
		if it.Arg == token {
			return true
		}
	}
	return false
}

// Answers captures the session as an answers document: the selection and
// every item value keyed by argument token. Absent scalars are written as
// null so that applying the document clears them again.
func (s *Session) Answers() *Answers {
	a := &Answers{Scripts: make(map[string]map[string]any)}
	for _, d := range s.Selected() {
		a.Selected = append(a.Selected, d.Name)
	}
	for _, d := range s.catalog.Scripts {
		st := s.scripts[d.Name]
		if len(d.Items) == 0 {
			continue
		}
		given := make(map[string]any, len(d.Items))
		for i, item := range d.Items {
			v := st.values[i]
			if item.Repeating() {
				if len(v.Rows) == 0 {
					continue
				}
				rows := make([]any, len(v.Rows))
				for n, r := range v.Rows {
					cells := make([]any, schema.RowWidth)
					for c := range cells {
						if text, ok := r.Cell(c); ok {
							cells[c] = text
						}
					}
					rows[n] = cells
				}
				given[item.Arg] = rows
				continue
			}
			switch v.Kind {
			case schema.ValueString:
				given[item.Arg] = v.Str
			case schema.ValueNumber:
				given[item.Arg] = v.Num
			case schema.ValueBool:
				given[item.Arg] = v.Bool
			default:
				given[item.Arg] = nil
			}
		}
		a.Scripts[d.Name] = given
	}
	return a
}

// Save writes a to path as YAML.
func (a *Answers) Save(path string) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write answers %s: %w", path, err)
	}
	return nil
}

// ApplyAnswers translates a into events and applies them.
func (s *Session) ApplyAnswers(a *Answers) error {
	events, err := a.Events(s)
	if err != nil {
		return err
	}
	return s.Apply(events...)
}
