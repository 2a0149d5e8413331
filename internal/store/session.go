// Package store holds one user's in-progress configuration: the current
// value of every item of every script in a catalog, the row counters that
// drive repeating tables, which scripts are selected for export, and a cache
// of the last render per script.
//
// A Session is mutated only through Apply. Every successful mutation drops
// the cached render of the script it touched; a failed event leaves the
// session exactly as it was. Sessions are owned by a single goroutine.
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bunseki/internal/render"
	"bunseki/internal/schema"
)

// ErrUnknownScript is returned for events naming a script the catalog lacks.
var ErrUnknownScript = errors.New("unknown script")

// scriptState is the mutable state of one script.
type scriptState struct {
	values   []schema.Value
	counters []int
	checked  bool
	cached   *render.Artifacts
}

// Session is the Value Store for one catalog.
type Session struct {
	ID      string
	catalog *schema.Catalog
	opts    render.Options
	scripts map[string]*scriptState
}

// NewSession creates a session with every item at its initial value. The
// catalog must already be validated.
func NewSession(c *schema.Catalog) (*Session, error) {
	s := &Session{
		ID:      uuid.NewString(),
		catalog: c,
		opts:    render.Options{Interpreter: c.CommandInterpreter()},
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Catalog returns the catalog the session was created for.
func (s *Session) Catalog() *schema.Catalog { return s.catalog }

// SetRenderOptions changes how artifacts are rendered and drops every cached
// render.
func (s *Session) SetRenderOptions(opts render.Options) {
	s.opts = opts
	for _, st := range s.scripts {
		st.cached = nil
	}
}

// Reset restores every item to its initial value, every row counter to 1
// and clears the selection.
func (s *Session) Reset() error {
	scripts := make(map[string]*scriptState, len(s.catalog.Scripts))
	for _, d := range s.catalog.Scripts {
		st := &scriptState{
			values:   make([]schema.Value, len(d.Items)),
			counters: make([]int, len(d.Items)),
		}
		for i, item := range d.Items {
			v, err := schema.InitialValue(item)
			if err != nil {
				return fmt.Errorf("script %q: %w", d.Name, err)
			}
			st.values[i] = v
			st.counters[i] = 1
		}
		scripts[d.Name] = st
	}
	s.scripts = scripts
	return nil
}

func (s *Session) lookup(script string) (schema.ScriptDescriptor, *scriptState, error) {
	d, ok := s.catalog.Script(script)
	if !ok {
		return schema.ScriptDescriptor{}, nil, fmt.Errorf("%w %q", ErrUnknownScript, script)
	}
	return d, s.scripts[script], nil
}

func (s *Session) item(script string, index int) (schema.ConfigItem, *scriptState, error) {
	d, st, err := s.lookup(script)
	if err != nil {
		return schema.ConfigItem{}, nil, err
	}
	if index < 0 || index >= len(d.Items) {
		return schema.ConfigItem{}, nil, fmt.Errorf("script %q has no item %d", script, index)
	}
	return d.Items[index], st, nil
}

// Value returns a copy of one item's current value.
func (s *Session) Value(script string, index int) (schema.Value, error) {
	_, st, err := s.item(script, index)
	if err != nil {
		return schema.Value{}, err
	}
	return st.values[index].Clone(), nil
}

// Values returns a copy of every item value of script, in item order.
func (s *Session) Values(script string) ([]schema.Value, error) {
	_, st, err := s.lookup(script)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Value, len(st.values))
	for i, v := range st.values {
		out[i] = v.Clone()
	}
	return out, nil
}

// RowCounter returns the row number the next row edit of a repeating item
// should use.
func (s *Session) RowCounter(script string, index int) (int, error) {
	_, st, err := s.item(script, index)
	if err != nil {
		return 0, err
	}
	return st.counters[index], nil
}

// Checked reports whether script is selected for export.
func (s *Session) Checked(script string) bool {
	st, ok := s.scripts[script]
	return ok && st.checked
}

// Selected returns the selected scripts in catalog order.
func (s *Session) Selected() []schema.ScriptDescriptor {
	var out []schema.ScriptDescriptor
	for _, d := range s.catalog.Scripts {
		if s.scripts[d.Name].checked {
			out = append(out, d)
		}
	}
	return out
}

// Artifacts renders script, reusing the cached result until the next
// mutation of that script.
func (s *Session) Artifacts(script string) (render.Artifacts, error) {
	d, st, err := s.lookup(script)
	if err != nil {
		return render.Artifacts{}, err
	}
	if st.cached == nil {
		a := render.Render(d, st.values, s.opts)
		st.cached = &a
	}
	return *st.cached, nil
}

// CheckRequired reports the first required item of script without a value.
func (s *Session) CheckRequired(script string) error {
	d, st, err := s.lookup(script)
	if err != nil {
		return err
	}
	return render.CheckRequired(d, st.values)
}
