package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bunseki/internal/catalog"
)

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// TestHelpContainsAllCommands checks that the help listing derives from the
// commands table: every name and short description appears.
func TestHelpContainsAllCommands(t *testing.T) {
	help, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("--help: %v", err)
	}
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) {
			t.Errorf("help output missing command %q", cmd.name)
		}
		if !strings.Contains(help, cmd.short) {
			t.Errorf("help output missing short description %q", cmd.short)
		}
	}
}

// TestLongHelpForKnownCommands checks each command's help shows its long text.
func TestLongHelpForKnownCommands(t *testing.T) {
	for _, cmd := range commands {
		t.Run(cmd.name, func(t *testing.T) {
			out, err := execute(t, "help", cmd.name)
			if err != nil {
				t.Fatalf("help %s: %v", cmd.name, err)
			}
			firstLine := strings.SplitN(cmd.long, "\n", 2)[0]
			if !strings.Contains(out, firstLine) {
				t.Errorf("help for %q missing %q\ngot: %s", cmd.name, firstLine, out)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "no-such-command-xyz")
	if err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected 'unknown command' in error, got: %v", err)
	}
}

// TestSubcommandBadArgs checks commands with required arguments reject a
// bare invocation instead of running.
func TestSubcommandBadArgs(t *testing.T) {
	for _, name := range []string{"render", "export"} {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, name); err == nil {
				t.Errorf("%s with no args should return error", name)
			}
		})
	}
}

func TestCommandsHaveRequiredFields(t *testing.T) {
	if len(commands) == 0 {
		t.Fatal("commands slice is empty")
	}
	for _, cmd := range commands {
		if cmd.name == "" || cmd.short == "" || cmd.usage == "" || cmd.run == nil {
			t.Errorf("command %+v is missing a required field", cmd.name)
		}
		if !strings.HasPrefix(cmd.usage, "bunseki "+cmd.name) {
			t.Errorf("usage %q does not start with the command name", cmd.usage)
		}
	}
}

// ---------------------------------------------------------------------------
// Subcommands
// ---------------------------------------------------------------------------

func TestCatalogCommand(t *testing.T) {
	out, err := execute(t, "catalog", "2ch")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	for _, want := range []string{"twitter", "2ch", "extract", "-fp"} {
		if !strings.Contains(out, want) {
			t.Errorf("catalog output missing %q\ngot: %s", want, out)
		}
	}
}

func TestValidateBuiltins(t *testing.T) {
	out, err := execute(t, "validate", "twitter", "2ch")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if strings.Count(out, "ok") < 2 {
		t.Errorf("expected two ok lines, got:\n%s", out)
	}
}

func TestValidateReportsBadCatalog(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "name: bad\narchive_name: bad\nscripts:\n  - name: a\n    filename: a.py\n    config:\n      - {name: x, type: command, arg: '', input: text}\n"
	if err := os.WriteFile(bad, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "validate", "twitter", bad)
	if err == nil {
		t.Fatal("expected validate to fail")
	}
	if !strings.Contains(out, "FAIL") {
		t.Errorf("expected a FAIL line, got:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	answers := filepath.Join(dir, "answers.yaml")
	doc := "scripts:\n  search:\n    BEARER_TOKEN: abc\n    -q: golang\n    --no-keep-rt: true\n"
	if err := os.WriteFile(answers, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "render", "search", "--catalog", "twitter", "--values", answers)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`python twitter_search.py -q "golang" --no-keep-rt`,
		"BEARER_TOKEN='abc'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q\ngot: %s", want, out)
		}
	}
}

func TestRenderUnknownScript(t *testing.T) {
	_, err := execute(t, "render", "nope", "--catalog", "twitter")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("err = %v, want unknown script error", err)
	}
}

// seedSources writes every file the catalog refers to under dir.
func seedSources(t *testing.T, ref, dir string) {
	t.Helper()
	c, err := catalog.Open(ref)
	if err != nil {
		t.Fatal(err)
	}
	var srcs []string
	for _, s := range c.Scripts {
		srcs = append(srcs, s.Src)
	}
	for _, f := range c.StaticFiles {
		srcs = append(srcs, f.Src)
	}
	for _, src := range srcs {
		p := filepath.Join(dir, filepath.FromSlash(src))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("# "+src+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExportConfiguredToDir(t *testing.T) {
	src := t.TempDir()
	seedSources(t, "twitter", src)
	out := t.TempDir()

	_, err := execute(t, "export", "configured",
		"--catalog", "twitter",
		"--sources", src,
		"--select", "search,categorize",
		"--dir", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	root := filepath.Join(out, "twbunseki_configuration")
	for _, name := range []string{"search.bat", "categorize.bat", "settings.py"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "filter.bat")); err == nil {
		t.Error("unselected script filter was exported")
	}
}

func TestExportAllToZip(t *testing.T) {
	src := t.TempDir()
	seedSources(t, "2ch", src)
	zipPath := filepath.Join(t.TempDir(), "out.zip")

	_, err := execute(t, "export", "all", "--catalog", "2ch", "--sources", src, "-o", zipPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(zipPath)
	if err != nil {
		t.Fatalf("stat zip: %v", err)
	}
	if info.Size() == 0 {
		t.Error("zip is empty")
	}
}

func TestExportMissingSourceWritesNothing(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "out.zip")
	_, err := execute(t, "export", "all", "--catalog", "2ch", "--sources", t.TempDir(), "-o", zipPath)
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	if _, statErr := os.Stat(zipPath); statErr == nil {
		t.Error("a failed export left an archive behind")
	}
}

func TestExportUnknownMode(t *testing.T) {
	_, err := execute(t, "export", "some", "--catalog", "2ch")
	if err == nil || !strings.Contains(err.Error(), "unknown export mode") {
		t.Errorf("err = %v, want unknown export mode", err)
	}
}
