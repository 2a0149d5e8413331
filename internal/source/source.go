// Package source fetches the raw bytes of script sources and static files.
//
// A location is the src string from a catalog ("scripts/filter.py"). It is
// resolved against a root: a directory on a billy filesystem or an HTTP base
// URL. A missing file is an error; callers never receive partial content.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrNotFound is wrapped when a location does not exist at the root.
var ErrNotFound = errors.New("not found")

// Fetcher returns the content stored at location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FS reads locations from a billy filesystem.
type FS struct {
	root billy.Filesystem
}

// NewFS serves locations relative to the root of a billy filesystem.
func NewFS(root billy.Filesystem) *FS {
	return &FS{root: root}
}

// NewDir serves locations relative to dir on the local disk.
func NewDir(dir string) *FS {
	return &FS{root: osfs.New(dir)}
}

// Fetch implements Fetcher.
func (f *FS) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(location, "/"))
	file, err := f.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w: %w", location, ErrNotFound, err)
		}
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

// HTTP fetches locations relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP serves locations relative to base. A nil client uses
// http.DefaultClient.
func NewHTTP(base string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source url %q: scheme must be http or https", base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: u, client: client}, nil
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimPrefix(location, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse location %q: %w", location, err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", target, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("get %s: %w", target, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: unexpected status %s", target, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

// Auto picks HTTP for http(s):// roots and the local disk otherwise.
func Auto(root string) (Fetcher, error) {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return NewHTTP(root, nil)
	}
	if root == "" {
		root = "."
	}
	return NewDir(root), nil
}
