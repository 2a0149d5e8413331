package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"bunseki/internal/schema"
	"bunseki/internal/store"
)

// ---------------------------------------------------------------------------
// form
// ---------------------------------------------------------------------------

func runForm(ctx context.Context, a *app, args []string) error {
	c, err := a.openCatalog(a.cfg.Catalog)
	if err != nil {
		return err
	}
	s, err := a.newSession(c, a.opts.values)
	if err != nil {
		return err
	}

	scripts := c.Scripts
	if len(args) > 0 {
		scripts = nil
		for _, name := range args {
			d, ok := c.Script(name)
			if !ok {
				return fmt.Errorf("catalog %q has no script %q", c.Name, name)
			}
			scripts = append(scripts, d)
		}
	}
	var selection []store.Event
	for _, d := range scripts {
		selection = append(selection, store.SetChecked{Script: d.Name, Checked: true})
	}
	if err := s.Apply(selection...); err != nil {
		return err
	}

	if err := runFormProgram(s, scripts); err != nil {
		return err
	}

	for _, d := range s.Selected() {
		art, err := s.Artifacts(d.Name)
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, plainPreview(d, art))
	}

	if a.opts.save != "" {
		if err := s.Answers().Save(a.opts.save); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", okStyle.Render("saved"), a.opts.save)
	}
	if a.cfg.Output != "" {
		return a.export(ctx, c, s, a.opts.includeScripts)
	}
	return nil
}

func runFormProgram(s *store.Session, scripts []schema.ScriptDescriptor) error {
	m := newFormModel(s, scripts)
	if len(m.fields) == 0 {
		return nil
	}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	final, ok := result.(formModel)
	if !ok || !final.done {
		return fmt.Errorf("form cancelled")
	}
	return nil
}

// ---------------------------------------------------------------------------
// TUI model
// ---------------------------------------------------------------------------

// field is one item of one script.
type field struct {
	script schema.ScriptDescriptor
	index  int
}

func (f field) item() schema.ConfigItem { return f.script.Items[f.index] }

// Row editing steps of a repeating item.
const (
	stepLabel = iota
	stepKeywords
	stepRowDone
)

// formModel asks for one item at a time and applies every answer to the
// session as it is entered. A rejected answer keeps the prompt open.
type formModel struct {
	session *store.Session
	fields  []field
	idx     int
	input   textinput.Model

	// Repeating items only.
	row  int
	step int

	err  error
	done bool
}

func newFormModel(s *store.Session, scripts []schema.ScriptDescriptor) formModel {
	var fields []field
	for _, d := range scripts {
		for i := range d.Items {
			fields = append(fields, field{script: d, index: i})
		}
	}
	ti := textinput.New()
	ti.CharLimit = 512
	m := formModel{session: s, fields: fields, input: ti}
	if len(fields) > 0 {
		m.enterField()
	}
	return m
}

func (m formModel) current() field { return m.fields[m.idx] }

// enterField prepares the input for the current field.
func (m *formModel) enterField() {
	f := m.current()
	item := f.item()
	m.err = nil
	m.input.Reset()
	m.input.Focus()

	if !item.Repeating() {
		m.input.Placeholder = placeholder(item.Placeholder, item.Name)
		if v, err := m.session.Value(f.script.Name, f.index); err == nil && v.Kind != schema.ValueAbsent {
			text := v.Text()
			if item.Input == schema.ShapeSelect {
				text = optionLabel(item, text)
			}
			m.input.SetValue(text)
		}
		return
	}

	// New rows go after any rows already present.
	v, _ := m.session.Value(f.script.Name, f.index)
	counter, _ := m.session.RowCounter(f.script.Name, f.index)
	m.row = len(v.Rows) + 1
	for ; counter < m.row; counter++ {
		_ = m.session.Apply(store.IncrementRowCounter{Script: f.script.Name, Item: f.index})
	}
	m.startRow()
}

func (m *formModel) startRow() {
	m.step = stepLabel
	m.input.Reset()
	m.input.Focus()
	m.input.Placeholder = placeholder(columnPlaceholder(m.current().item(), 0), "label")
}

func columnPlaceholder(item schema.ConfigItem, col int) string {
	if col < len(item.Columns) {
		return item.Columns[col].Placeholder
	}
	return ""
}

func placeholder(p, fallback string) string {
	if p != "" {
		return p
	}
	return fallback
}

// next moves to the following field, or finishes the form.
func (m formModel) next() (tea.Model, tea.Cmd) {
	m.idx++
	if m.idx >= len(m.fields) {
		m.done = true
		m.input.Blur()
		return m, tea.Quit
	}
	m.enterField()
	return m, textinput.Blink
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlN:
			if m.current().item().Repeating() && m.step == stepRowDone {
				f := m.current()
				if err := m.session.Apply(store.IncrementRowCounter{Script: f.script.Name, Item: f.index}); err != nil {
					m.err = err
					return m, nil
				}
				m.row++
				m.startRow()
				return m, textinput.Blink
			}
			return m, nil
		case tea.KeyEnter:
			if m.current().item().Repeating() {
				return m.submitRow()
			}
			return m.submitScalar()
		}
	}
	if m.step == stepRowDone && m.current().item().Repeating() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m formModel) submitScalar() (tea.Model, tea.Cmd) {
	f := m.current()
	item := f.item()
	raw := strings.TrimSpace(m.input.Value())

	var value any = m.input.Value()
	switch item.Input {
	case schema.ShapeBoolean:
		value = yesNo(raw)
	case schema.ShapeSelect:
		if raw == "" {
			value = nil
			break
		}
		opt, ok := matchOption(item, raw)
		if !ok {
			m.err = fmt.Errorf("choose one of: %s", optionList(item))
			return m, nil
		}
		value = opt.Value
	}
	if item.Required && raw == "" && item.Input != schema.ShapeBoolean {
		m.err = fmt.Errorf("%s is required", item.Name)
		return m, nil
	}
	if err := m.session.Apply(store.SetScalar{Script: f.script.Name, Item: f.index, Value: value}); err != nil {
		m.err = err
		return m, nil
	}
	return m.next()
}

func (m formModel) submitRow() (tea.Model, tea.Cmd) {
	f := m.current()
	text := m.input.Value()

	switch m.step {
	case stepLabel:
		if strings.TrimSpace(text) == "" {
			return m.next()
		}
		if err := m.session.Apply(store.AppendOrUpdateRow{
			Script: f.script.Name, Item: f.index, RowCount: m.row, Subfield: 0, Value: text,
		}); err != nil {
			m.err = err
			return m, nil
		}
		m.step = stepKeywords
		m.input.Reset()
		m.input.Placeholder = placeholder(columnPlaceholder(f.item(), 1), "keywords, comma separated")
		return m, nil

	case stepKeywords:
		if strings.TrimSpace(text) != "" {
			if err := m.session.Apply(store.AppendOrUpdateRow{
				Script: f.script.Name, Item: f.index, RowCount: m.row, Subfield: 1, Value: text,
			}); err != nil {
				m.err = err
				return m, nil
			}
		}
		m.step = stepRowDone
		m.input.Blur()
		return m, nil
	}
	return m.next()
}

func yesNo(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "true", "1", "on":
		return true
	}
	return false
}

// matchOption finds the option the user meant by raw: its value, its
// name (any case) or its 1-based position in the list. Values such as a
// tab cannot be typed, so the position always works.
func matchOption(item schema.ConfigItem, raw string) (schema.Option, bool) {
	for _, o := range item.Options {
		if o.Value == raw {
			return o, true
		}
	}
	for _, o := range item.Options {
		if o.Name != "" && strings.EqualFold(o.Name, raw) {
			return o, true
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(item.Options) {
		return item.Options[n-1], true
	}
	return schema.Option{}, false
}

// optionLabel returns the text shown for the option holding value.
func optionLabel(item schema.ConfigItem, value string) string {
	for _, o := range item.Options {
		if o.Value == value && o.Name != "" {
			return o.Name
		}
	}
	return value
}

func optionList(item schema.ConfigItem) string {
	vals := make([]string, len(item.Options))
	for i, o := range item.Options {
		vals[i] = fmt.Sprintf("%d) %s", i+1, optionLabel(item, o.Value))
	}
	return strings.Join(vals, ", ")
}

func (m formModel) View() string {
	if m.done || len(m.fields) == 0 {
		return ""
	}
	f := m.current()
	item := f.item()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n",
		scriptStyle.Render(f.script.Name),
		item.Name,
		argStyle.Render(item.Arg))
	if item.Description != "" {
		fmt.Fprintf(&sb, "%s\n", hintStyle.Render(item.Description))
	}

	switch {
	case item.Repeating() && m.step == stepRowDone:
		fmt.Fprintf(&sb, "row %d saved\n", m.row)
		sb.WriteString(hintStyle.Render("ctrl+n: add row • enter: next item"))
	case item.Repeating():
		col := "label"
		if m.step == stepKeywords {
			col = "keywords"
		}
		fmt.Fprintf(&sb, "row %d %s: %s\n", m.row, col, m.input.View())
		sb.WriteString(hintStyle.Render("enter on an empty label: next item"))
	case item.Input == schema.ShapeSelect:
		fmt.Fprintf(&sb, "%s\n", m.input.View())
		sb.WriteString(hintStyle.Render("options: " + optionList(item)))
	case item.Input == schema.ShapeBoolean:
		fmt.Fprintf(&sb, "%s\n", m.input.View())
		sb.WriteString(hintStyle.Render("y/n"))
	default:
		fmt.Fprintf(&sb, "%s\n", m.input.View())
	}
	sb.WriteString("\n")
	if m.err != nil {
		fmt.Fprintf(&sb, "%s\n", errorStyle.Render(m.err.Error()))
	}
	return sb.String()
}
