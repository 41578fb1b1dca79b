// Package classpath resolves class names to class files from directories and
// jar/zip archives.
package classpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/classhull/internal/classfile"
)

// ErrNotFound reports that no classpath entry holds the requested class.
var ErrNotFound = errors.New("class not found")

// DefaultCacheSize is the number of lookups Path remembers.
const DefaultCacheSize = 4096

// IgnoreFile is the gitignore-style file honored at the root of directory entries.
const IgnoreFile = ".hullignore"

// entry is one element of a classpath.
type entry interface {
	// read returns the bytes of the class file at rel (slash-separated) and a
	// description of where it came from, or ErrNotFound.
	read(rel string) ([]byte, string, error)
	// list returns the slash-separated paths of all class files, sorted.
	list() ([]string, error)
	close() error
	String() string
}

type lookup struct {
	cf  *classfile.ClassFile
	err error
}

// Path is an ordered list of classpath entries. The first entry holding a
// class wins. Resolve results, including misses, are cached.
type Path struct {
	entries []entry
	cache   *lru.Cache[string, lookup]
	logger  *slog.Logger
}

type options struct {
	cacheSize int
	logger    *slog.Logger
}

// Option configures a Path.
type Option func(*options)

// WithCacheSize sets how many lookups are cached.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open builds a Path from directory and archive (.jar, .zip) locations.
func Open(locations []string, opts ...Option) (*Path, error) {
	o := options{cacheSize: DefaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, lookup](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	p := &Path{cache: cache, logger: o.logger}
	for _, loc := range locations {
		e, err := openEntry(loc)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.entries = append(p.entries, e)
	}
	return p, nil
}

func openEntry(loc string) (entry, error) {
	info, err := os.Stat(loc)
	if err != nil {
		return nil, fmt.Errorf("classpath entry: %w", err)
	}
	if info.IsDir() {
		return newDirEntry(loc), nil
	}
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".jar", ".zip":
		return openArchive(loc)
	}
	return nil, fmt.Errorf("classpath entry %s: not a directory, .jar or .zip", loc)
}

// SplitList splits an OS path list (as in $CLASSPATH), dropping empty elements.
func SplitList(s string) []string {
	var out []string
	for _, p := range filepath.SplitList(s) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Entries returns the classpath locations in search order.
func (p *Path) Entries() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.String()
	}
	return out
}

// Resolve returns the class file for a dot-separated class name.
func (p *Path) Resolve(ctx context.Context, name string) (*classfile.ClassFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l, ok := p.cache.Get(name); ok {
		return l.cf, l.err
	}

	cf, err := p.load(name)
	p.cache.Add(name, lookup{cf: cf, err: err})
	return cf, err
}

func (p *Path) load(name string) (*classfile.ClassFile, error) {
	if name == "" {
		return nil, ErrNotFound
	}
	rel := classfile.InternalName(name) + ".class"

	for _, e := range p.entries {
		data, source, err := e.read(rel)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		cf, err := classfile.ParseBytes(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", source, err)
		}
		if cf.Name() != name {
			p.logger.Warn("class file name does not match its location",
				"expected", name, "found", cf.Name(), "source", source)
		}
		cf.Source = source
		return cf, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Classes lists the dot-separated names of every class on the path, in
// classpath order with shadowed duplicates removed. module-info and
// package-info are skipped.
func (p *Path) Classes() ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range p.entries {
		rels, err := e.list()
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", e, err)
		}
		for _, rel := range rels {
			base := strings.TrimSuffix(rel, ".class")
			if strings.HasSuffix(base, "module-info") || strings.HasSuffix(base, "package-info") {
				continue
			}
			name := classfile.DottedName(base)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names, nil
}

// Close releases open archives.
func (p *Path) Close() error {
	var errs []error
	for _, e := range p.entries {
		if err := e.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFile parses a standalone class file.
func LoadFile(path string) (*classfile.ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cf.Source = path
	return cf, nil
}
