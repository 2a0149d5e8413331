package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// ErrSerialization is wrapped when a bundle cannot be encoded.
var ErrSerialization = errors.New("archive serialization failed")

// Bundle is an assembled archive held in memory. Paths are relative to Root
// and use forward slashes.
type Bundle struct {
	Root  string
	files map[string][]byte
}

func newBundle(root string) *Bundle {
	return &Bundle{Root: root, files: make(map[string][]byte)}
}

func (b *Bundle) add(name string, data []byte) {
	b.files[name] = data
}

// Paths returns every file path in the bundle, sorted, without the root.
func (b *Bundle) Paths() []string {
	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// File returns the content stored at p.
func (b *Bundle) File(p string) ([]byte, bool) {
	data, ok := b.files[p]
	return data, ok
}

// WriteZip encodes the bundle as a zip archive with every entry under Root.
// Entries are written in sorted order with a fixed timestamp, so equal
// bundles produce equal archives.
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, p := range b.Paths() {
		hdr := &zip.FileHeader{
			Name:     path.Join(b.Root, p),
			Method:   zip.Deflate,
			Modified: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSerialization, p, err)
		}
		if _, err := fw.Write(b.files[p]); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSerialization, p, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return nil
}

// WriteDir writes the bundle under dir/Root in sorted path order. Existing
// files are overwritten.
func (b *Bundle) WriteDir(dir string) error {
	base := filepath.Join(dir, b.Root)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", base, err)
	}
	for _, p := range b.Paths() {
		if err := writeFile(filepath.Join(base, filepath.FromSlash(p)), b.files[p]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
