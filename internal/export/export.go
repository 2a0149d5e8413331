package export

// export.go — archive assembly: turns a catalog, a session and fetched files
// into a Bundle, then serializes the bundle.
//
// Archive layout (export-all):
//   <archive_name>/<script filename>      one per script
//   <archive_name>/<static filename>      one per static file
//
// Archive layout (export-configured):
//   <folder>/<script filename>            selected scripts, only with includeScripts
//   <folder>/<static filename>            static files except the settings template
//   <folder>/<script>.bat                 rendered command per selected script
//   <folder>/<script>.config.json         JSON config when rows were collected
//   <folder>/settings.py                  joined settings blocks, always present
//
// Every file is fetched before the bundle is built; a single failed fetch
// aborts the export and no bundle is returned.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"bunseki/internal/render"
	"bunseki/internal/schema"
	"bunseki/internal/source"
	"bunseki/internal/store"
)

// maxConcurrentFetches bounds the number of in-flight fetches per export.
const maxConcurrentFetches = 8

// ErrFileFetch is wrapped by *FetchError.
var ErrFileFetch = errors.New("file fetch failed")

// FetchError names the location that could not be retrieved.
type FetchError struct {
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFileFetch, e.Location, e.Err)
}

// Unwrap exposes both ErrFileFetch and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFileFetch, e.Err} }

// Assembler builds bundles for one catalog.
type Assembler struct {
	catalog *schema.Catalog
	fetcher source.Fetcher
	logger  *log.Logger
	strict  bool
	opts    *render.Options
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithStrict makes configured exports fail when a selected script has a
// required item without a value.
func WithStrict(strict bool) Option {
	return func(a *Assembler) { a.strict = strict }
}

// WithRenderOptions renders configured exports with opts instead of the
// session's own options. The session's cache is left alone.
func WithRenderOptions(opts render.Options) Option {
	return func(a *Assembler) { a.opts = &opts }
}

// NewAssembler returns an Assembler reading files through fetcher.
func NewAssembler(c *schema.Catalog, fetcher source.Fetcher, opts ...Option) *Assembler {
	a := &Assembler{catalog: c, fetcher: fetcher, logger: log.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ---------------------------------------------------------------------------
// Export modes
// ---------------------------------------------------------------------------

// All bundles every script source and every static file. Selection and
// generated artifacts are ignored.
func (a *Assembler) All(ctx context.Context) (*Bundle, error) {
	var wanted []fetchRequest
	for _, s := range a.catalog.Scripts {
		wanted = append(wanted, fetchRequest{name: s.Filename, location: s.Src})
	}
	for _, f := range a.catalog.StaticFiles {
		wanted = append(wanted, fetchRequest{name: f.Filename, location: f.Src})
	}

	files, err := a.fetchAll(ctx, wanted)
	if err != nil {
		return nil, err
	}
	b := newBundle(a.catalog.ArchiveName)
	for _, r := range wanted {
		b.add(r.name, files[r.name])
	}
	a.logger.Info("bundle assembled", "mode", "all", "root", b.Root, "files", len(b.files))
	return b, nil
}

// Configured bundles the generated artifacts of the scripts selected in
// session, the static files a configured setup needs and, with
// includeScripts, the selected scripts' sources.
func (a *Assembler) Configured(ctx context.Context, session *store.Session, includeScripts bool) (*Bundle, error) {
	selected := session.Selected()

	if a.strict {
		for _, s := range selected {
			if err := session.CheckRequired(s.Name); err != nil {
				return nil, err
			}
		}
	}

	artifacts := make(map[string]render.Artifacts, len(selected))
	for _, s := range selected {
		art, err := a.artifacts(session, s.Name)
		if err != nil {
			return nil, err
		}
		artifacts[s.Name] = art
		if err := render.LintCommand(art.Command); err != nil {
			a.logger.Warn("command may not run in a shell", "script", s.Name, "err", err)
		}
	}

	var wanted []fetchRequest
	if includeScripts {
		for _, s := range selected {
			wanted = append(wanted, fetchRequest{name: s.Filename, location: s.Src})
		}
	}
	for _, f := range a.catalog.StaticFiles {
		if f.SettingsTemplate {
			continue
		}
		wanted = append(wanted, fetchRequest{name: f.Filename, location: f.Src})
	}

	files, err := a.fetchAll(ctx, wanted)
	if err != nil {
		return nil, err
	}

	b := newBundle(a.catalog.ConfiguredFolder(includeScripts))
	for _, r := range wanted {
		b.add(r.name, files[r.name])
	}

	var settings []string
	for _, s := range selected {
		art := artifacts[s.Name]
		b.add(s.Name+schema.CommandSuffix, []byte(art.Command))
		if art.JSON != "" {
			b.add(s.Name+schema.ConfigSuffix, []byte(art.JSON))
		}
		if art.Settings != "" {
			settings = append(settings, art.Settings)
		}
	}
	b.add(schema.SettingsFilename, []byte(strings.Join(settings, "\n")))

	a.logger.Info("bundle assembled",
		"mode", "configured",
		"root", b.Root,
		"session", session.ID,
		"selected", len(selected),
		"files", len(b.files))
	return b, nil
}

func (a *Assembler) artifacts(session *store.Session, script string) (render.Artifacts, error) {
	if a.opts == nil {
		return session.Artifacts(script)
	}
	d, _ := a.catalog.Script(script)
	values, err := session.Values(script)
	if err != nil {
		return render.Artifacts{}, err
	}
	return render.Render(d, values, *a.opts), nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

type fetchRequest struct {
	name     string
	location string
}

// fetchAll retrieves every request concurrently and returns the contents
// keyed by archive name. The first failure cancels the rest.
func (a *Assembler) fetchAll(ctx context.Context, wanted []fetchRequest) (map[string][]byte, error) {
	results := make([][]byte, len(wanted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, r := range wanted {
		g.Go(func() error {
			a.logger.Debug("fetching", "location", r.location, "as", r.name)
			data, err := a.fetcher.Fetch(gctx, r.location)
			if err != nil {
				return &FetchError{Location: r.location, Err: err}
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("export aborted", "err", err)
		return nil, err
	}

	files := make(map[string][]byte, len(wanted))
	for i, r := range wanted {
		files[r.name] = results[i]
	}
	return files, nil
}
