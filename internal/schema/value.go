package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags which field of a Value is meaningful.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueRows
)

// Row is one entry of a repeating-table item. A nil cell is a sub-field the
// user has not filled in.
type Row []*string

// Cell returns sub-field i and whether it is set.
func (r Row) Cell(i int) (string, bool) {
	if i < 0 || i >= len(r) || r[i] == nil {
		return "", false
	}
	return *r[i], true
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for i, c := range r {
		if c != nil {
			v := *c
			out[i] = &v
		}
	}
	return out
}

// Value is the current value of one configuration item.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Rows []Row
}

// StringValue, NumberValue and BoolValue build scalar values.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IsSet reports whether the value takes part in rendering: absent values and
// false are "not set"; a repeating item with no rows is not set either.
func (v Value) IsSet() bool {
	switch v.Kind {
	case ValueAbsent:
		return false
	case ValueBool:
		return v.Bool
	case ValueRows:
		return len(v.Rows) > 0
	default:
		return true
	}
}

// Text formats a scalar the way it is spliced into an artifact.
func (v Value) Text() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.Rows == nil {
		return v
	}
	rows := make([]Row, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = r.clone()
	}
	v.Rows = rows
	return v
}

// Coerce converts a raw form or file value into the item's shape. A nil raw
// value clears the item.
func Coerce(item ConfigItem, raw any) (Value, error) {
	if raw == nil {
		return Value{}, nil
	}
	if item.Repeating() {
		return Value{}, fmt.Errorf("item %q holds rows, not a scalar", item.Name)
	}
	switch item.Input {
	case ShapeNumber:
		switch n := raw.(type) {
		case int:
			return NumberValue(float64(n)), nil
		case int64:
			return NumberValue(float64(n)), nil
		case uint64:
			return NumberValue(float64(n)), nil
		case float64:
			return NumberValue(n), nil
		case string:
			if strings.TrimSpace(n) == "" {
				return Value{}, nil
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return Value{}, fmt.Errorf("item %q: %q is not a number", item.Name, n)
			}
			return NumberValue(f), nil
		}
	case ShapeBoolean:
		switch b := raw.(type) {
		case bool:
			return BoolValue(b), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return Value{}, fmt.Errorf("item %q: %q is not a boolean", item.Name, b)
			}
			return BoolValue(parsed), nil
		}
	default:
		switch s := raw.(type) {
		case string:
			return StringValue(s), nil
		case bool:
			return BoolValue(s), nil
		case int, int64, uint64, float64:
			return StringValue(fmt.Sprint(s)), nil
		}
	}
	return Value{}, fmt.Errorf("item %q: cannot use %T as %s", item.Name, raw, item.Input)
}

// InitialValue is the value an item starts a session with: its default, or
// an empty row list for repeating items.
func InitialValue(item ConfigItem) (Value, error) {
	if item.Repeating() {
		return Value{Kind: ValueRows}, nil
	}
	return Coerce(item, item.Default)
}
