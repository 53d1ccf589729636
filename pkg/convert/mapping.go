package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/utils"
)

// MappingHeader is the fixed column order of the mapping artifact
var MappingHeader = []string{"original_filename", "original_path", "jpeg_path", "webp_path", "status"}

// MappingRow is one line of the mapping artifact
type MappingRow struct {
	OriginalFilename string
	OriginalPath     string
	JPEGPath         string
	WebPPath         string
	Status           string
}

// RowFromOutcome converts an outcome into its mapping row
func RowFromOutcome(o Outcome) MappingRow {
	return MappingRow{
		OriginalFilename: o.OriginalFilename,
		OriginalPath:     o.OriginalPath,
		JPEGPath:         o.Path(codec.TargetJPEG),
		WebPPath:         o.Path(codec.TargetWebP),
		Status:           string(o.Status),
	}
}

// OutputPaths returns the non-empty produced paths of the row
func (r MappingRow) OutputPaths() []string {
	var paths []string
	for _, p := range []string{r.JPEGPath, r.WebPPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (r MappingRow) record() []string {
	return []string{r.OriginalFilename, r.OriginalPath, r.JPEGPath, r.WebPPath, r.Status}
}

// WriteMapping writes one row per outcome, sorted by original path,
// replacing any previous file at path
func WriteMapping(path string, outcomes []Outcome) error {
	rows := make([]MappingRow, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, RowFromOutcome(o))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OriginalPath != rows[j].OriginalPath {
			return rows[i].OriginalPath < rows[j].OriginalPath
		}
		return rows[i].OriginalFilename < rows[j].OriginalFilename
	})

	return WriteMappingRows(path, rows)
}

// WriteMappingRows writes rows in the given order. The file is written next
// to path and renamed into place so readers never see a partial artifact.
func WriteMappingRows(path string, rows []MappingRow) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return utils.WrapError(err, "failed to create mapping file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(MappingHeader); err != nil {
		tmp.Close()
		return utils.WrapError(err, "failed to write mapping header")
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			tmp.Close()
			return utils.WrapErrorf(err, "failed to write mapping row for %s", row.OriginalPath)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return utils.WrapError(err, "failed to flush mapping file")
	}

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return utils.WrapError(err, "failed to set mapping permissions")
	}
	if err := tmp.Close(); err != nil {
		return utils.WrapError(err, "failed to close mapping file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return utils.WrapErrorf(err, "failed to replace %s", path)
	}
	return nil
}

// ReadMapping parses a mapping artifact. Rows with fewer than five columns
// are ignored.
func ReadMapping(path string) ([]MappingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapErrorf(err, "failed to open mapping %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("mapping %s is empty", path)
	}
	if err != nil {
		return nil, utils.WrapErrorf(err, "failed to read mapping header from %s", path)
	}
	if len(header) < len(MappingHeader) || !strings.EqualFold(strings.TrimPrefix(header[0], "\ufeff"), MappingHeader[0]) {
		return nil, fmt.Errorf("mapping %s has unexpected header %v", path, header)
	}

	var rows []MappingRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.WrapErrorf(err, "failed to parse mapping %s", path)
		}
		if len(record) < len(MappingHeader) {
			continue
		}
		rows = append(rows, MappingRow{
			OriginalFilename: record[0],
			OriginalPath:     record[1],
			JPEGPath:         record[2],
			WebPPath:         record[3],
			Status:           record[4],
		})
	}
	return rows, nil
}

// RewritePrefix makes every non-empty path in rows start with prefix.
// Paths already carrying it are kept; others lose leading "." and "/" and
// get the prefix prepended. It returns the rewritten rows and how many rows
// changed.
func RewritePrefix(rows []MappingRow, prefix string) ([]MappingRow, int) {
	prefix = utils.NormalizePrefix(prefix)

	fix := func(p string) string {
		if p == "" || strings.HasPrefix(p, prefix) {
			return p
		}
		return prefix + strings.TrimLeft(p, "./")
	}

	out := make([]MappingRow, len(rows))
	changed := 0
	for i, row := range rows {
		fixed := row
		fixed.OriginalPath = fix(row.OriginalPath)
		fixed.JPEGPath = fix(row.JPEGPath)
		fixed.WebPPath = fix(row.WebPPath)
		if fixed != row {
			changed++
		}
		out[i] = fixed
	}
	return out, changed
}

// BackupFile copies path to a sibling named path.backup.<suffix> and returns
// the backup path
func BackupFile(path, suffix string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", utils.WrapErrorf(err, "failed to open %s", path)
	}
	defer src.Close()

	backup := path + ".backup." + suffix
	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", utils.WrapErrorf(err, "failed to create backup %s", backup)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", utils.WrapErrorf(err, "failed to copy %s", path)
	}
	if err := dst.Close(); err != nil {
		return "", utils.WrapErrorf(err, "failed to close backup %s", backup)
	}
	return backup, nil
}
