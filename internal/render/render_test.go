package render_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bunseki/internal/render"
	"bunseki/internal/schema"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func strp(s string) *string { return &s }

func rows(pairs ...[2]*string) schema.Value {
	v := schema.Value{Kind: schema.ValueRows}
	for _, p := range pairs {
		v.Rows = append(v.Rows, schema.Row{p[0], p[1]})
	}
	return v
}

// searchScript mirrors the shape of the Twitter search/categorize scripts:
// one item per input shape plus a repeating table.
func searchScript() schema.ScriptDescriptor {
	return schema.ScriptDescriptor{
		Name:     "search",
		Filename: "twitter_search.py",
		Items: []schema.ConfigItem{
			{Name: "Token", Kind: schema.KindSettings, Arg: "BEARER_TOKEN", Input: schema.ShapeText, Required: true},
			{Name: "Query", Kind: schema.KindCommand, Arg: "-q", Input: schema.ShapeText, Required: true},
			{Name: "Max", Kind: schema.KindCommand, Arg: "-m", Input: schema.ShapeNumber},
			{Name: "From", Kind: schema.KindCommand, Arg: "-fd", Input: schema.ShapeDateTime},
			{Name: "Exclude RTs", Kind: schema.KindCommand, Arg: "--no-keep-rt", Input: schema.ShapeBoolean},
			{Name: "Categories", Kind: schema.KindConfig, Arg: "categories", Input: schema.ShapeRow,
				Columns: []schema.Column{{}, {}}},
			{Name: "Region", Kind: schema.KindSettings, Arg: "REGION", Input: schema.ShapeText},
		},
	}
}

func emptyValues(s schema.ScriptDescriptor) []schema.Value {
	vals := make([]schema.Value, len(s.Items))
	for i, it := range s.Items {
		vals[i], _ = schema.InitialValue(it)
	}
	return vals
}

// ---------------------------------------------------------------------------
// Command rendering
// ---------------------------------------------------------------------------

func TestRenderEmpty(t *testing.T) {
	s := searchScript()
	got := render.Render(s, emptyValues(s), render.Options{})
	want := render.Artifacts{Command: "python twitter_search.py "}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBooleanFlag(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)

	vals[4] = schema.BoolValue(true)
	if got := render.Render(s, vals, render.Options{}).Command; got != "python twitter_search.py --no-keep-rt" {
		t.Errorf("true flag: got %q", got)
	}

	vals[4] = schema.BoolValue(false)
	if got := render.Render(s, vals, render.Options{}).Command; got != "python twitter_search.py " {
		t.Errorf("false flag: got %q", got)
	}
}

func TestRenderDateTime(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[3] = schema.StringValue("2022-01-01T00:00")

	got := render.Render(s, vals, render.Options{}).Command
	want := `python twitter_search.py -fd "2022-01-01T00:00:00Z"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderEmptyDateTimeIsSkipped(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[3] = schema.StringValue("")

	if got := render.Render(s, vals, render.Options{}).Command; got != "python twitter_search.py " {
		t.Errorf("got %q", got)
	}
}

func TestRenderReplacesDoubleQuotes(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[1] = schema.StringValue(`say "hi"`)

	got := render.Render(s, vals, render.Options{}).Command
	want := `python twitter_search.py -q "say 'hi'"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderNumberUnquoted(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[2] = schema.NumberValue(500)

	if got := render.Render(s, vals, render.Options{}).Command; got != "python twitter_search.py -m 500" {
		t.Errorf("got %q", got)
	}
}

func TestRenderEmptyTextIsSkipped(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[1] = schema.StringValue("")

	if got := render.Render(s, vals, render.Options{}).Command; got != "python twitter_search.py " {
		t.Errorf("got %q", got)
	}
}

func TestRenderArgumentOrderFollowsItems(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[4] = schema.BoolValue(true)
	vals[1] = schema.StringValue("golang")
	vals[2] = schema.NumberValue(100)

	got := render.Render(s, vals, render.Options{Interpreter: "python3"}).Command
	want := `python3 twitter_search.py -q "golang" -m 100 --no-keep-rt`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Settings rendering
// ---------------------------------------------------------------------------

func TestRenderSettings(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[0] = schema.StringValue("abc'def")
	vals[6] = schema.StringValue("jp")

	got := render.Render(s, vals, render.Options{})
	want := "BEARER_TOKEN='abc'def'\n\nREGION='jp'"
	if got.Settings != want {
		t.Errorf("settings = %q, want %q", got.Settings, want)
	}
	if got.Command != "python twitter_search.py " {
		t.Errorf("settings leaked into command: %q", got.Command)
	}
}

func TestRenderEmptySettingValueStillRenders(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[0] = schema.StringValue("")

	if got := render.Render(s, vals, render.Options{}).Settings; got != "BEARER_TOKEN=''" {
		t.Errorf("settings = %q", got)
	}
}

// ---------------------------------------------------------------------------
// JSON rendering
// ---------------------------------------------------------------------------

func TestRenderJSONDropsIncompleteRows(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[5] = rows(
		[2]*string{strp("news"), strp("breaking, urgent")},
		[2]*string{strp("sports"), nil},
	)

	got := render.Render(s, vals, render.Options{}).JSON
	want := `{
  "categories": [
    {
      "news": [
        "breaking",
        "urgent"
      ]
    }
  ]
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSONKeepsRowOrderAndHTML(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[5] = rows(
		[2]*string{strp("zeta"), strp("R&D")},
		[2]*string{strp("alpha"), strp("a,,b")},
	)

	got := render.Render(s, vals, render.Options{}).JSON
	want := `{
  "categories": [
    {
      "zeta": [
        "R&D"
      ]
    },
    {
      "alpha": [
        "a",
        "",
        "b"
      ]
    }
  ]
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSONUnlabelledRowUsesEmptyKey(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[5] = rows([2]*string{nil, strp("go")})

	got := render.Render(s, vals, render.Options{}).JSON
	want := `{
  "categories": [
    {
      "": [
        "go"
      ]
    }
  ]
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSONAbsentWithoutCompleteRows(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[5] = rows([2]*string{strp("sports"), nil})

	if got := render.Render(s, vals, render.Options{}).JSON; got != "" {
		t.Errorf("expected no JSON, got %q", got)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)
	vals[0] = schema.StringValue("tok")
	vals[1] = schema.StringValue(`"quoted"`)
	vals[3] = schema.StringValue("2022-01-01T00:00")
	vals[5] = rows([2]*string{strp("news"), strp("a,b")})

	first := render.Render(s, vals, render.Options{})
	second := render.Render(s, vals, render.Options{})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second render differs (-first +second):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Checks
// ---------------------------------------------------------------------------

func TestCheckRequired(t *testing.T) {
	s := searchScript()
	vals := emptyValues(s)

	err := render.CheckRequired(s, vals)
	var missing *render.MissingValueError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingValueError, got %v", err)
	}
	if missing.Arg != "BEARER_TOKEN" || missing.Item != 0 {
		t.Errorf("missing = %+v", missing)
	}
	if !errors.Is(err, render.ErrMissingRequiredValue) {
		t.Error("error does not wrap ErrMissingRequiredValue")
	}

	vals[0] = schema.StringValue("tok")
	vals[1] = schema.StringValue("  ")
	if err := render.CheckRequired(s, vals); !errors.As(err, &missing) || missing.Arg != "-q" {
		t.Fatalf("blank query should be missing, got %v", err)
	}

	vals[1] = schema.StringValue("golang")
	if err := render.CheckRequired(s, vals); err != nil {
		t.Fatalf("CheckRequired: %v", err)
	}
}

func TestCheckRequiredRows(t *testing.T) {
	s := searchScript()
	s.Items[5].Required = true
	vals := emptyValues(s)
	vals[0] = schema.StringValue("tok")
	vals[1] = schema.StringValue("golang")
	vals[5] = rows([2]*string{strp("news"), nil})

	if err := render.CheckRequired(s, vals); !errors.Is(err, render.ErrMissingRequiredValue) {
		t.Fatalf("incomplete rows should be missing, got %v", err)
	}
	vals[5] = rows([2]*string{strp("news"), strp("a")})
	if err := render.CheckRequired(s, vals); err != nil {
		t.Fatalf("CheckRequired: %v", err)
	}
}

func TestLintCommand(t *testing.T) {
	if err := render.LintCommand(`python twitter_search.py -q "say 'hi'" --no-keep-rt`); err != nil {
		t.Errorf("valid command rejected: %v", err)
	}
	if err := render.LintCommand("python twitter_search.py "); err != nil {
		t.Errorf("bare command rejected: %v", err)
	}
	if err := render.LintCommand("python twitter_search.py -q \"a`b\""); err == nil {
		t.Error("unbalanced backtick accepted")
	}
}
