package store

// events.go — the only ways a Session changes. Form edits, "add row"
// presses and answers files are all translated into these events, so row
// growth follows one policy no matter where the edit came from.

import (
	"errors"
	"fmt"

	"bunseki/internal/schema"
)

// ErrWrongItemKind is returned when an event targets an item that cannot
// hold the kind of value the event carries.
var ErrWrongItemKind = errors.New("wrong item kind")

// Event is a single user action against a Session.
type Event interface {
	apply(s *Session) error
}

// SetScalar overwrites the value of a non-repeating item. Value is coerced
// to the item's input shape; nil clears it.
type SetScalar struct {
	Script string
	Item   int
	Value  any
}

func (e SetScalar) apply(s *Session) error {
	item, st, err := s.item(e.Script, e.Item)
	if err != nil {
		return err
	}
	if item.Repeating() {
		return fmt.Errorf("%w: %q is a repeating item, use AppendOrUpdateRow", ErrWrongItemKind, item.Name)
	}
	v, err := schema.Coerce(item, e.Value)
	if err != nil {
		return err
	}
	st.values[e.Item] = v
	st.cached = nil
	return nil
}

// AppendOrUpdateRow sets one sub-field of a repeating item's row. RowCount
// is the 1-based row being edited; missing rows up to it are appended with
// every sub-field absent. Rows are never removed or reordered.
type AppendOrUpdateRow struct {
	Script   string
	Item     int
	RowCount int
	Subfield int
	Value    string
}

func (e AppendOrUpdateRow) apply(s *Session) error {
	item, st, err := s.item(e.Script, e.Item)
	if err != nil {
		return err
	}
	if !item.Repeating() {
		return fmt.Errorf("%w: %q does not hold rows", ErrWrongItemKind, item.Name)
	}
	if e.RowCount < 1 {
		return fmt.Errorf("row count %d: rows are numbered from 1", e.RowCount)
	}
	if e.Subfield < 0 || e.Subfield >= schema.RowWidth {
		return fmt.Errorf("sub-field %d out of range [0,%d)", e.Subfield, schema.RowWidth)
	}

	v := &st.values[e.Item]
	v.Kind = schema.ValueRows
	for len(v.Rows) < e.RowCount {
		v.Rows = append(v.Rows, make(schema.Row, schema.RowWidth))
	}
	text := e.Value
	v.Rows[e.RowCount-1][e.Subfield] = &text
	st.cached = nil
	return nil
}

// IncrementRowCounter advances the row counter of a repeating item. The
// item's rows are untouched until a row edit arrives.
type IncrementRowCounter struct {
	Script string
	Item   int
}

func (e IncrementRowCounter) apply(s *Session) error {
	item, st, err := s.item(e.Script, e.Item)
	if err != nil {
		return err
	}
	if !item.Repeating() {
		return fmt.Errorf("%w: %q does not hold rows", ErrWrongItemKind, item.Name)
	}
	st.counters[e.Item]++
	return nil
}

// SetChecked selects or deselects a script for configured exports.
type SetChecked struct {
	Script  string
	Checked bool
}

func (e SetChecked) apply(s *Session) error {
	_, st, err := s.lookup(e.Script)
	if err != nil {
		return err
	}
	st.checked = e.Checked
	return nil
}

// Apply applies events in order and stops at the first failure. Events
// before the failing one stay applied.
func (s *Session) Apply(events ...Event) error {
	for _, e := range events {
		if err := e.apply(s); err != nil {
			return err
		}
	}
	return nil
}
