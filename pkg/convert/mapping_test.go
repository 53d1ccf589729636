package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"heic-toolkit-go/pkg/codec"
)

func TestWriteMappingSortsAndQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversion_mapping.csv")
	outcomes := []Outcome{
		{OriginalFilename: "z.heic", OriginalPath: "p/z.heic", Status: StatusSkipped,
			Paths: map[codec.Target]string{codec.TargetWebP: "p/z.webp"}},
		{OriginalFilename: "a, b.heic", OriginalPath: "p/a, b.heic", Status: Status("jpeg_failed"),
			Paths: map[codec.Target]string{}},
		{OriginalFilename: "写真.HEIC", OriginalPath: "p/m/写真.HEIC", Status: StatusSuccess,
			Paths: map[codec.Target]string{codec.TargetJPEG: "p/m/写真.jpg", codec.TargetWebP: "p/m/写真.webp"}},
	}
	require.NoError(t, WriteMapping(path, outcomes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"original_filename,original_path,jpeg_path,webp_path,status\n"+
			"\"a, b.heic\",\"p/a, b.heic\",,,jpeg_failed\n"+
			"写真.HEIC,p/m/写真.HEIC,p/m/写真.jpg,p/m/写真.webp,success\n"+
			"z.heic,p/z.heic,,p/z.webp,skipped\n",
		string(data))

	rows, err := ReadMapping(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a, b.heic", rows[0].OriginalFilename)
	assert.Equal(t, []string{"p/m/写真.jpg", "p/m/写真.webp"}, rows[1].OutputPaths())
	assert.Equal(t, []string{"p/z.webp"}, rows[2].OutputPaths())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestReadMappingRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := ReadMapping(empty)
	assert.Error(t, err)

	wrong := filepath.Join(dir, "wrong.csv")
	require.NoError(t, os.WriteFile(wrong, []byte("id,name\n1,x\n"), 0o644))
	_, err = ReadMapping(wrong)
	assert.Error(t, err)

	_, err = ReadMapping(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestReadMappingSkipsShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	content := "original_filename,original_path,jpeg_path,webp_path,status\n" +
		"broken,row\n" +
		"a.heic,a.heic,a.jpg,,success\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadMapping(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.jpg", rows[0].JPEGPath)
}

func TestRewritePrefix(t *testing.T) {
	rows := []MappingRow{
		{OriginalFilename: "a.heic", OriginalPath: "./a.heic", JPEGPath: "./a.jpg", Status: "success"},
		{OriginalFilename: "b.heic", OriginalPath: "uploads/images/b.heic", JPEGPath: "uploads/images/b.jpg", WebPPath: "uploads/images/b.webp", Status: "success"},
		{OriginalFilename: "c.heic", OriginalPath: "/c/c.heic", WebPPath: "c/c.webp", Status: "jpeg_failed"},
	}

	fixed, changed := RewritePrefix(rows, "uploads/images")
	assert.Equal(t, 2, changed)

	assert.Equal(t, "uploads/images/a.heic", fixed[0].OriginalPath)
	assert.Equal(t, "uploads/images/a.jpg", fixed[0].JPEGPath)
	assert.Empty(t, fixed[0].WebPPath)

	assert.Equal(t, rows[1], fixed[1])

	assert.Equal(t, "uploads/images/c/c.heic", fixed[2].OriginalPath)
	assert.Empty(t, fixed[2].JPEGPath)
	assert.Equal(t, "uploads/images/c/c.webp", fixed[2].WebPPath)

	assert.Equal(t, "./a.heic", rows[0].OriginalPath, "input rows are not modified")
}

func TestBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	backup, err := BackupFile(path, "20260101120000")
	require.NoError(t, err)
	assert.Equal(t, path+".backup.20260101120000", backup)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	_, err = BackupFile(path, "20260101120000")
	assert.Error(t, err, "existing backups are never overwritten")
}
