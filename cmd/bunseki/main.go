package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bunseki/internal/catalog"
	"bunseki/internal/config"
	"bunseki/internal/render"
	"bunseki/internal/schema"
	"bunseki/internal/source"
	"bunseki/internal/store"
)

// Version is set with -ldflags at release time.
var Version = "dev"

// command describes a CLI subcommand. The table below is the only place
// subcommands are declared; cobra commands and help text derive from it.
type command struct {
	name  string
	short string
	usage string
	long  string
	args  cobra.PositionalArgs
	flags func(fs *pflag.FlagSet, o *options)
	run   func(ctx context.Context, a *app, args []string) error
}

// options holds every subcommand flag. Only the flags a command registers
// are meaningful for it.
type options struct {
	values         string
	pretty         bool
	output         string
	dir            string
	includeScripts bool
	selected       []string
	save           string
}

var commands = []command{
	{
		name:  "catalog",
		short: "List built-in catalogs and the scripts of the current one",
		usage: "bunseki catalog [catalog]",
		long: `List the built-in catalogs, then every script of the selected catalog
with its configuration items in order.

The catalog is a built-in name (twitter, 2ch) or a YAML/TOML catalog file.
Without an argument the configured catalog is shown.
`,
		args: cobra.MaximumNArgs(1),
		run:  runCatalog,
	},
	{
		name:  "render",
		short: "Print the command, settings and JSON config of a script",
		usage: "bunseki render <script> [--values answers.yaml] [--pretty]",
		long: `Render the three artifacts of one script from its defaults, or from
the values in an answers file.

--pretty renders the preview as styled markdown.
`,
		args: cobra.ExactArgs(1),
		flags: func(fs *pflag.FlagSet, o *options) {
			fs.StringVar(&o.values, "values", "", "answers file with item values")
			fs.BoolVar(&o.pretty, "pretty", false, "render the preview as markdown")
		},
		run: runRender,
	},
	{
		name:  "form",
		short: "Fill in script values interactively",
		usage: "bunseki form [script...] [--values answers.yaml] [--save answers.yaml] [-o archive.zip]",
		long: `Walk through the items of the named scripts (all scripts when none are
named) one prompt at a time. Named scripts are selected for export.

In a table, enter the label and then the keywords of a row; ctrl+n adds
another row and enter moves on. Esc or ctrl+c cancels.

--save writes the collected values as an answers file. -o exports a
configured archive.
`,
		flags: func(fs *pflag.FlagSet, o *options) {
			fs.StringVar(&o.values, "values", "", "answers file to start from")
			fs.StringVar(&o.save, "save", "", "write the collected values to this answers file")
			fs.StringVarP(&o.output, "output", "o", "", "export a configured zip archive to this path")
			fs.BoolVar(&o.includeScripts, "include-scripts", false, "include script sources in the archive")
		},
		run: runForm,
	},
	{
		name:  "export",
		short: "Build a zip archive of scripts or generated configuration",
		usage: "bunseki export <all|configured> [-o archive.zip | --dir out/] [--select a,b] [--values answers.yaml] [--include-scripts]",
		long: `Build an archive.

  all         every script source and static file of the catalog
  configured  the generated .bat, .config.json and settings.py files of the
              selected scripts, with their sources when --include-scripts
              is set

Files are fetched from --sources (a directory or an http(s) URL). Any
missing file aborts the export and nothing is written.
`,
		args: cobra.ExactArgs(1),
		flags: func(fs *pflag.FlagSet, o *options) {
			fs.StringVarP(&o.output, "output", "o", "", "zip file to write (default <archive root>.zip)")
			fs.StringVar(&o.dir, "dir", "", "write the archive tree into this directory instead of a zip")
			fs.BoolVar(&o.includeScripts, "include-scripts", false, "include script sources in a configured archive")
			fs.StringSliceVar(&o.selected, "select", nil, "scripts to select, in addition to the answers file")
			fs.StringVar(&o.values, "values", "", "answers file with item values")
		},
		run: runExport,
	},
	{
		name:  "validate",
		short: "Check catalogs and the commands their defaults render to",
		usage: "bunseki validate [catalog...]",
		long: `Load each catalog (the configured one when none are given), report
every schema problem, then render every script with its defaults and
check that a POSIX shell could parse the command.
`,
		run: runValidate,
	},
}

// ---------------------------------------------------------------------------
// Application state shared by subcommands
// ---------------------------------------------------------------------------

type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
	opts   *options
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          "bunseki",
		ReportTimestamp: false,
	})
}

// catalogRef returns args[0] when given, otherwise the configured catalog.
func (a *app) catalogRef(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Catalog
}

func (a *app) openCatalog(ref string) (*schema.Catalog, error) {
	c, err := catalog.Open(ref)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("catalog loaded", "ref", ref, "name", c.Name, "scripts", len(c.Scripts))
	return c, nil
}

// newSession opens a session on c with the configured interpreter and the
// values of the answers file, if any.
func (a *app) newSession(c *schema.Catalog, answersPath string) (*store.Session, error) {
	s, err := store.NewSession(c)
	if err != nil {
		return nil, err
	}
	if a.cfg.Interpreter != "" {
		s.SetRenderOptions(render.Options{Interpreter: a.cfg.Interpreter})
	}
	if answersPath == "" {
		return s, nil
	}
	answers, err := store.LoadAnswers(answersPath)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyAnswers(answers); err != nil {
		return nil, fmt.Errorf("%s: %w", answersPath, err)
	}
	a.logger.Debug("answers applied", "file", answersPath, "session", s.ID)
	return s, nil
}

func (a *app) fetcher() (source.Fetcher, error) {
	return source.Auto(a.cfg.Sources)
}

// ---------------------------------------------------------------------------
// Command tree
// ---------------------------------------------------------------------------

func newRootCmd(out io.Writer) *cobra.Command {
	var cfgFile string
	opts := &options{}
	a := &app{out: out, opts: opts, logger: newLogger(os.Stderr)}

	root := &cobra.Command{
		Use:   "bunseki",
		Short: "Configure analysis scripts and package them for download",
		Long: `bunseki renders command lines, settings files and JSON config documents
for the scripts of a catalog, and packages them into a zip archive.

Settings are read from .bunseki/settings.yaml, BUNSEKI_* environment
variables and flags, in rising order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.Load(config.Options{File: cfgFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger.SetLevel(cfg.Level())
			if path != "" {
				a.logger.Debug("settings loaded", "file", path)
			}
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "settings file (default .bunseki/settings.yaml)")
	pf.String("catalog", "", "built-in catalog name or catalog file")
	pf.String("interpreter", "", "command interpreter prefix")
	pf.String("sources", "", "directory or http(s) URL holding script sources")
	pf.Bool("strict", false, "refuse to export scripts with missing required values")
	pf.String("log-level", "", "debug, info, warn or error")

	for _, c := range commands {
		cmd := &cobra.Command{
			Use:   strings.TrimPrefix(c.usage, "bunseki "),
			Short: c.short,
			Long:  c.long,
			Args:  c.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd.Context(), a, args)
			},
		}
		if c.flags != nil {
			c.flags(cmd.Flags(), opts)
		}
		root.AddCommand(cmd)
	}
	return root
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(os.Stdout),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
