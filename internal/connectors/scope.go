package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// DescriptorFile is the fixed name of a connector descriptor resource.
const DescriptorFile = "connector.properties"

// Locator identifies one descriptor resource. Two locators are the same
// resource when their URLs are equal.
type Locator struct {
	URL  string
	open func() (io.ReadCloser, error)
}

func (l Locator) String() string { return l.URL }

// Open returns the descriptor contents.
func (l Locator) Open() (io.ReadCloser, error) {
	if l.open == nil {
		return nil, fmt.Errorf("locator %s cannot be opened", l.URL)
	}
	return l.open()
}

// NewLocator builds a Locator from a URL and an opener.
func NewLocator(rawURL string, open func() (io.ReadCloser, error)) Locator {
	return Locator{URL: rawURL, open: open}
}

// Scope enumerates descriptor resources from one resolution scope.
type Scope interface {
	Name() string
	Locate(ctx context.Context) ([]Locator, error)
}

// FSScope finds descriptors inside an fs.FS, such as the descriptors
// embedded in the binary.
type FSScope struct {
	name string
	base string
	fsys fs.FS
}

// NewFSScope returns a scope over fsys. base prefixes every locator URL,
// for example "builtin://tidewire".
func NewFSScope(name, base string, fsys fs.FS) *FSScope {
	return &FSScope{name: name, base: strings.TrimRight(base, "/"), fsys: fsys}
}

func (s *FSScope) Name() string { return s.name }

func (s *FSScope) Locate(ctx context.Context) ([]Locator, error) {
	var out []Locator
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || d.Name() != DescriptorFile {
			return nil
		}
		out = append(out, NewLocator(s.base+"/"+p, func() (io.ReadCloser, error) {
			return s.fsys.Open(p)
		}))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", s.name, err)
	}
	slices.SortFunc(out, func(a, b Locator) int { return strings.Compare(a.URL, b.URL) })
	return out, nil
}

// DirScope finds descriptors under a list of filesystem directories.
// Directories that do not exist are skipped.
type DirScope struct {
	name string
	dirs []string
}

func NewDirScope(name string, dirs ...string) *DirScope {
	return &DirScope{name: name, dirs: slices.Clone(dirs)}
}

func (s *DirScope) Name() string { return s.name }

func (s *DirScope) Locate(ctx context.Context) ([]Locator, error) {
	var out []Locator
	for _, dir := range s.dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", s.name, err)
		}
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("connector directory does not exist", "scope", s.name, "dir", abs)
			continue
		}

		var found []Locator
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || d.Name() != DescriptorFile {
				return nil
			}
			found = append(found, NewLocator(fileURL(p), func() (io.ReadCloser, error) {
				return os.Open(p)
			}))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", s.name, err)
		}
		slices.SortFunc(found, func(a, b Locator) int { return strings.Compare(a.URL, b.URL) })
		out = append(out, found...)
	}
	return out, nil
}

func fileURL(p string) string {
	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: path.Clean(slashed)}).String()
}
