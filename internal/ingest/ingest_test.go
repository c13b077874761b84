package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitag/docvec/internal/store"
)

// memStore records puts in memory.
type memStore struct {
	store.Store
	docs map[string]string
	fail map[string]bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]string), fail: make(map[string]bool)}
}

func (m *memStore) Put(ctx context.Context, name, text string) error {
	if m.fail[name] {
		return assert.AnError
	}
	m.docs[name] = text
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, name string) (*store.DocumentRecord, error) {
	if _, ok := m.docs[name]; ok {
		return &store.DocumentRecord{Name: name}, nil
	}
	return nil, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWalkerAcceptsTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha document")
	writeFile(t, dir, "sub/b.md", "beta document")

	w, err := NewWalker(WalkOptions{Root: dir, Extensions: []string{".txt", ".md"}})
	require.NoError(t, err)

	var found []string
	err = w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		assert.NotEmpty(t, info.Hash)
		assert.Positive(t, info.Size)
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.txt", filepath.Join("sub", "b.md")}, found)
	assert.Equal(t, 2, w.Stats().FilesFound)
}

func TestWalkerExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "kept")
	writeFile(t, dir, "drop.json", "{}")

	w, err := NewWalker(WalkOptions{Root: dir, Extensions: []string{"txt"}})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))

	// Extensions normalize to a leading dot.
	assert.Equal(t, []string{"keep.txt"}, found)
	assert.Equal(t, 1, w.Stats().FilesSkipped)
}

func TestWalkerSkipsHiddenAndGitDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.txt", "visible")
	writeFile(t, dir, ".hidden.txt", "hidden")
	writeFile(t, dir, ".git/config", "git config")
	writeFile(t, dir, ".cache/data.txt", "cached")

	w, err := NewWalker(WalkOptions{Root: dir})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))

	assert.Equal(t, []string{"visible.txt"}, found)
}

func TestWalkerRespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "ignored/\n*.tmp\n")
	writeFile(t, dir, "keep.txt", "kept")
	writeFile(t, dir, "scratch.tmp", "temp")
	writeFile(t, dir, "ignored/file.txt", "ignored")

	w, err := NewWalker(WalkOptions{Root: dir, UseGitignore: true})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))

	assert.Equal(t, []string{"keep.txt"}, found)
}

func TestWalkerIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "kept")
	writeFile(t, dir, "notes.log", "log line")

	w, err := NewWalker(WalkOptions{Root: dir, IgnorePatterns: []string{"*.log"}})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))

	assert.Equal(t, []string{"keep.txt"}, found)
}

func TestWalkerSkipsBinaryAndOversize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "text.txt", "plain text")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.txt"), []byte{0x00, 0x01, 0x02}, 0o644))
	writeFile(t, dir, "big.txt", "this file is larger than the limit")

	w, err := NewWalker(WalkOptions{Root: dir, MaxFileSize: 20})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))

	assert.Equal(t, []string{"text.txt"}, found)
}

func TestWalkerMaxFileCount(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, dir, name, "content")
	}

	w, err := NewWalker(WalkOptions{Root: dir, MaxFileCount: 2})
	require.NoError(t, err)

	count := 0
	require.NoError(t, w.Walk(func(info FileInfo) error {
		count++
		return nil
	}))

	assert.Equal(t, 2, count)
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(WalkOptions{Root: filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestIsBinaryContent(t *testing.T) {
	assert.False(t, isBinaryContent(nil))
	assert.False(t, isBinaryContent([]byte("plain text\nwith lines\n")))
	assert.True(t, isBinaryContent([]byte{0x00, 'a', 'b'}))
	assert.True(t, isBinaryContent([]byte{0x01, 0x02, 0x03, 0x04, 'a'}))
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "readme.md", DocumentName("readme.md"))
	assert.Equal(t, "docs__guide.md", DocumentName(filepath.Join("docs", "guide.md")))
	assert.Equal(t, "a__b__c.txt", DocumentName("a/b/c.txt"))
}

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "document body")

	st := newMemStore()
	ing := New(st, WalkOptions{})

	added, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "document body", st.docs["doc.txt"])

	// Second ingest of the same file is skipped.
	added, err = ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "first")
	writeFile(t, dir, "sub/b.txt", "second")
	writeFile(t, dir, "skip.json", "{}")

	st := newMemStore()
	st.docs["a.txt"] = "already stored"

	ing := New(st, WalkOptions{Extensions: []string{".txt"}})

	var seen []string
	summary, err := ing.IngestDirectory(context.Background(), dir, func(name string) {
		seen = append(seen, name)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 2, summary.Skipped) // a.txt already stored, skip.json filtered
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "second", st.docs["sub__b.txt"])
	assert.Contains(t, seen, "a.txt")
}

func TestIngestDirectoryCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "fine")
	writeFile(t, dir, "bad.txt", "will fail")

	st := newMemStore()
	st.fail["bad.txt"] = true

	ing := New(st, WalkOptions{Extensions: []string{".txt"}})

	summary, err := ing.IngestDirectory(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)
}
