package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bunseki/internal/catalog"
	"bunseki/internal/export"
	"bunseki/internal/render"
	"bunseki/internal/schema"
	"bunseki/internal/store"
)

// ---------------------------------------------------------------------------
// catalog
// ---------------------------------------------------------------------------

func runCatalog(_ context.Context, a *app, args []string) error {
	fmt.Fprintf(a.out, "%s %s\n\n", hintStyle.Render("built-in:"), strings.Join(catalog.Builtins(), ", "))
	c, err := a.openCatalog(a.catalogRef(args))
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, describeCatalog(c))
	return nil
}

// ---------------------------------------------------------------------------
// render
// ---------------------------------------------------------------------------

func runRender(_ context.Context, a *app, args []string) error {
	c, err := a.openCatalog(a.cfg.Catalog)
	if err != nil {
		return err
	}
	script, ok := c.Script(args[0])
	if !ok {
		return fmt.Errorf("catalog %q has no script %q", c.Name, args[0])
	}
	s, err := a.newSession(c, a.opts.values)
	if err != nil {
		return err
	}
	art, err := s.Artifacts(script.Name)
	if err != nil {
		return err
	}
	if err := render.LintCommand(art.Command); err != nil {
		a.logger.Warn("command may not run in a shell", "script", script.Name, "err", err)
	}
	if err := s.CheckRequired(script.Name); err != nil {
		a.logger.Warn("incomplete", "err", err)
	}

	if a.opts.pretty {
		fmt.Fprint(a.out, renderMarkdown(previewMarkdown(script, art)))
		return nil
	}
	fmt.Fprint(a.out, plainPreview(script, art))
	return nil
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func runExport(ctx context.Context, a *app, args []string) error {
	mode := args[0]
	if mode != "all" && mode != "configured" {
		return fmt.Errorf("unknown export mode %q (want all or configured)", mode)
	}

	c, err := a.openCatalog(a.cfg.Catalog)
	if err != nil {
		return err
	}

	var s *store.Session
	if mode == "configured" {
		s, err = a.newSession(c, a.opts.values)
		if err != nil {
			return err
		}
		if err := selectScripts(s, a.opts.selected); err != nil {
			return err
		}
	}
	return a.export(ctx, c, s, a.opts.includeScripts)
}

// selectScripts marks every name as checked.
func selectScripts(s *store.Session, names []string) error {
	events := make([]store.Event, 0, len(names))
	for _, n := range names {
		events = append(events, store.SetChecked{Script: strings.TrimSpace(n), Checked: true})
	}
	return s.Apply(events...)
}

// export builds the archive for s, or every file of c when s is nil, and
// writes it as a zip or a directory tree.
func (a *app) export(ctx context.Context, c *schema.Catalog, s *store.Session, includeScripts bool) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	asm := export.NewAssembler(c, fetcher,
		export.WithLogger(a.logger),
		export.WithStrict(a.cfg.Strict))

	var b *export.Bundle
	if s == nil {
		b, err = asm.All(ctx)
	} else {
		if len(s.Selected()) == 0 {
			a.logger.Warn("no scripts selected; the archive holds only static files")
		}
		b, err = asm.Configured(ctx, s, includeScripts)
	}
	if err != nil {
		return err
	}

	if a.opts.dir != "" {
		if err := b.WriteDir(a.opts.dir); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", okStyle.Render("wrote"), filepath.Join(a.opts.dir, b.Root))
		return nil
	}

	out := a.cfg.Output
	if out == "" {
		out = b.Root + ".zip"
	}
	return writeZip(b, out, a)
}

// writeZip writes b to a temporary file next to path and renames it into
// place, so a failed export never leaves a truncated archive behind.
func writeZip(b *export.Bundle, path string, a *app) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bunseki-*.zip")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if err := b.WriteZip(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "%s %s (%d files)\n", okStyle.Render("wrote"), path, len(b.Paths()))
	return nil
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func runValidate(_ context.Context, a *app, args []string) error {
	refs := args
	if len(refs) == 0 {
		refs = []string{a.cfg.Catalog}
	}

	var failed []string
	for _, ref := range refs {
		if err := a.validateOne(ref); err != nil {
			fmt.Fprintf(a.out, "%s %s\n%v\n", errorStyle.Render("FAIL"), ref, err)
			failed = append(failed, ref)
			continue
		}
		fmt.Fprintf(a.out, "%s %s\n", okStyle.Render("ok"), ref)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d catalogs failed: %s", len(failed), len(refs), strings.Join(failed, ", "))
	}
	return nil
}

func (a *app) validateOne(ref string) error {
	c, err := a.openCatalog(ref)
	if err != nil {
		return err
	}
	s, err := a.newSession(c, "")
	if err != nil {
		return err
	}
	var errs []error
	for _, d := range c.Scripts {
		art, err := s.Artifacts(d.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := render.LintCommand(art.Command); err != nil {
			errs = append(errs, fmt.Errorf("script %q: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}
