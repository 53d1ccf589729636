package convert

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"heic-toolkit-go/pkg/codec"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.heic", "b.HEIC", "c/d.heif", "c/e/f.HeIf", "notes.txt", "g.jpg", "h.heic.bak")

	files, err := Discover(root, []string{".heic", "HEIF"})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		rel = append(rel, f.RelPath)
	}
	assert.Equal(t, []string{"a.heic", "b.HEIC", "c/d.heif", "c/e/f.HeIf"}, rel)

	b := files[1]
	assert.Equal(t, "b", b.Stem)
	assert.Equal(t, ".HEIC", b.Ext)
	assert.Equal(t, "b.HEIC", b.Name())
	assert.Equal(t, int64(len("heic-bytes")), b.Size)
	assert.True(t, filepath.IsAbs(b.Path))
	assert.Equal(t, filepath.Join(b.Dir, "b.jpg"), b.Destination(codec.TargetJPEG))

	nested := files[3]
	assert.Equal(t, "c/e/f.jpg", nested.RelDestination(codec.TargetJPEG))
}

func TestDiscoverDeduplicatesLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFiles(t, root, "a.heic")
	require.NoError(t, os.Symlink(filepath.Join(root, "a.heic"), filepath.Join(root, "z.HEIC")))

	files, err := Discover(root, []string{".heic"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.heic", files[0].RelPath)
}

func TestDiscoverRootErrors(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), []string{".heic"})
	assert.ErrorIs(t, err, ErrDirectoryNotFound)

	file := filepath.Join(t.TempDir(), "a.heic")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Discover(file, []string{".heic"})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestDiscoverEmpty(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "readme.md")

	files, err := Discover(root, []string{".heic"})
	require.NoError(t, err)
	assert.Empty(t, files)
}
