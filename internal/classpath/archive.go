package classpath

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// archiveEntry is a jar or zip file. Its central directory is indexed once
// at open time.
type archiveEntry struct {
	path  string
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

func openArchive(path string) (*archiveEntry, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	a := &archiveEntry{path: path, rc: rc, files: make(map[string]*zip.File)}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		a.files[f.Name] = f
	}
	return a, nil
}

func (a *archiveEntry) String() string { return a.path }

func (a *archiveEntry) read(rel string) ([]byte, string, error) {
	f, ok := a.files[rel]
	if !ok {
		return nil, "", ErrNotFound
	}
	r, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	return data, a.path + "!/" + rel, nil
}

func (a *archiveEntry) list() ([]string, error) {
	out := make([]string, 0, len(a.files))
	for name := range a.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (a *archiveEntry) close() error {
	return a.rc.Close()
}
