package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func TestDiscover_FiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")
	touch(t, dir, "b.jpeg")
	touch(t, dir, "c.png")
	touch(t, dir, "d.bmp")
	touch(t, dir, "e.gif")
	touch(t, dir, "f.tiff")
	touch(t, dir, "g.webp")
	touch(t, dir, "notes.txt")
	touch(t, dir, "h.tif")
	touch(t, dir, "noext")

	items, err := Discover(dir, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpeg", "c.png", "d.bmp", "e.gif", "f.tiff", "g.webp"}, basenames(items))
}

func TestDiscover_CaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "photo.JPG")
	touch(t, dir, "photo.jpg")
	touch(t, dir, "Shot.PnG")

	items, err := Discover(dir, false)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestDiscover_NonRecursiveIgnoresSubdirs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "top.png")
	touch(t, filepath.Join(dir, "sub"), "nested.png")
	touch(t, filepath.Join(dir, "sub", "deeper"), "deep.png")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "folder.png"), 0o755))

	items, err := Discover(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"top.png"}, basenames(items))
	assert.Equal(t, "top.png", items[0].RelPath)
}

func TestDiscover_RecursiveFindsAllDepths(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "top.png")
	touch(t, filepath.Join(dir, "sub"), "nested.jpg")
	touch(t, filepath.Join(dir, "sub", "deeper", "deepest"), "deep.webp")
	touch(t, filepath.Join(dir, "sub"), "skip.txt")

	items, err := Discover(dir, true)
	require.NoError(t, err)
	require.Len(t, items, 3)

	rels := make([]string, 0, len(items))
	for _, it := range items {
		assert.True(t, filepath.IsAbs(it.SourcePath))
		rels = append(rels, it.RelPath)
	}
	assert.ElementsMatch(t, []string{
		"top.png",
		filepath.Join("sub", "nested.jpg"),
		filepath.Join("sub", "deeper", "deepest", "deep.webp"),
	}, rels)
}

func TestDiscover_FollowsSymlinkToFile(t *testing.T) {
	dir := t.TempDir()
	target := touch(t, t.TempDir(), "real.png")
	if err := os.Symlink(target, filepath.Join(dir, "link.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	items, err := Discover(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.png"}, basenames(items))
}

func TestDiscover_EmptyDir(t *testing.T) {
	items, err := Discover(t.TempDir(), true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDiscover_RootIsFile(t *testing.T) {
	file := touch(t, t.TempDir(), "a.png")

	_, err := Discover(file, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func basenames(items []model.WorkItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = filepath.Base(it.SourcePath)
	}
	return out
}
