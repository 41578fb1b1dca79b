package classpath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"META-INF": {},
	".git":     {},
	".hg":      {},
	".svn":     {},
}

// dirEntry is a directory of class files laid out by package.
type dirEntry struct {
	root string
	gi   *ignore.GitIgnore
}

func newDirEntry(root string) *dirEntry {
	return &dirEntry{root: root, gi: loadIgnore(root)}
}

func loadIgnore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	return gi
}

func (d *dirEntry) String() string { return d.root }

func (d *dirEntry) ignored(rel string) bool {
	return d.gi != nil && d.gi.MatchesPath(rel)
}

func (d *dirEntry) read(rel string) ([]byte, string, error) {
	if d.ignored(rel) {
		return nil, "", ErrNotFound
	}
	path := filepath.Join(d.root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, path, nil
}

func (d *dirEntry) list() ([]string, error) {
	var results []string

	err := filepath.WalkDir(d.root, func(path string, de os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := de.Name()

		if de.IsDir() {
			if path == d.root {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if de.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if !strings.HasSuffix(name, ".class") {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.ignored(rel) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

func (d *dirEntry) close() error { return nil }
