package classpath

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/classhull/internal/classfile/classfiletest"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeClass(t *testing.T, root, name string) {
	t.Helper()
	rel := strings.ReplaceAll(name, ".", "/") + ".class"
	writeFile(t, root, rel, classfiletest.New(name).Bytes())
}

func writeJar(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	_, err = w.Write([]byte("Manifest-Version: 1.0\n"))
	require.NoError(t, err)

	for _, name := range names {
		w, err := zw.Create(strings.ReplaceAll(name, ".", "/") + ".class")
		require.NoError(t, err)
		_, err = w.Write(classfiletest.New(name).Bytes())
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestResolveDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeClass(t, dir, "com.acme.Widget")

	p, err := Open([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	cf, err := p.Resolve(context.Background(), "com.acme.Widget")
	require.NoError(t, err)
	assert.Equal(t, "com.acme.Widget", cf.Name())
	assert.Equal(t, filepath.Join(dir, "com", "acme", "Widget.class"), cf.Source)

	_, err = p.Resolve(context.Background(), "com.acme.Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jar := filepath.Join(dir, "lib.jar")
	writeJar(t, jar, "org.lib.Util", "org.lib.inner.Helper$1")

	p, err := Open([]string{jar})
	require.NoError(t, err)
	defer p.Close()

	cf, err := p.Resolve(context.Background(), "org.lib.inner.Helper$1")
	require.NoError(t, err)
	assert.Equal(t, "org.lib.inner.Helper$1", cf.Name())
	assert.Equal(t, jar+"!/org/lib/inner/Helper$1.class", cf.Source)

	names, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"org.lib.Util", "org.lib.inner.Helper$1"}, names)
}

func TestResolveFirstEntryWins(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	writeClass(t, first, "a.Shared")
	writeClass(t, second, "a.Shared")
	writeClass(t, second, "a.OnlySecond")

	p, err := Open([]string{first, second})
	require.NoError(t, err)
	defer p.Close()

	cf, err := p.Resolve(context.Background(), "a.Shared")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cf.Source, first))

	_, err = p.Resolve(context.Background(), "a.OnlySecond")
	require.NoError(t, err)

	names, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.Shared", "a.OnlySecond"}, names)
	assert.Equal(t, []string{first, second}, p.Entries())
}

func TestResolveCached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeClass(t, dir, "a.B")

	p, err := Open([]string{dir}, WithCacheSize(8))
	require.NoError(t, err)
	defer p.Close()

	first, err := p.Resolve(context.Background(), "a.B")
	require.NoError(t, err)

	// Once cached, the file is no longer consulted.
	require.NoError(t, os.Remove(filepath.Join(dir, "a", "B.class")))
	second, err := p.Resolve(context.Background(), "a.B")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestResolveCorruptClass(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a/Bad.class", []byte("not a class file"))

	p, err := Open([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Resolve(context.Background(), "a.Bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolveCanceled(t *testing.T) {
	t.Parallel()

	p, err := Open(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Resolve(ctx, "a.B")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHullIgnoreFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeClass(t, dir, "app.Main")
	writeClass(t, dir, "app.MainTest")
	writeClass(t, dir, "app.gen.Stub")
	writeFile(t, dir, "META-INF/versions/11/app/Main.class", classfiletest.New("app.Main").Bytes())
	writeFile(t, dir, "app/package-info.class", classfiletest.New("app.package-info").Bytes())
	writeFile(t, dir, IgnoreFile, []byte("*Test.class\napp/gen/\n"))

	p, err := Open([]string{dir})
	require.NoError(t, err)
	defer p.Close()

	names, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"app.Main"}, names)

	_, err = p.Resolve(context.Background(), "app.MainTest")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Open([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, dir, "notes.txt", []byte("hi"))
	_, err = Open([]string{txt})
	assert.ErrorContains(t, err, "not a directory, .jar or .zip")

	bad := filepath.Join(dir, "bad.jar")
	writeFile(t, dir, "bad.jar", []byte("not a zip"))
	_, err = Open([]string{bad})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	sep := string(os.PathListSeparator)
	assert.Equal(t, []string{"a", "b.jar"}, SplitList("a"+sep+sep+" b.jar "))
	assert.Nil(t, SplitList(""))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Main.class", classfiletest.New("app.Main").Bytes())

	cf, err := LoadFile(filepath.Join(dir, "Main.class"))
	require.NoError(t, err)
	assert.Equal(t, "app.Main", cf.Name())
	assert.Equal(t, filepath.Join(dir, "Main.class"), cf.Source)
}
