package convert

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"heic-toolkit-go/pkg/utils"
)

// Discover walks root recursively and returns every regular file whose
// extension matches one of exts, compared case-insensitively. Files reached
// through more than one path are returned once. The result is sorted by
// relative path.
func Discover(root string, exts []string) ([]SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}
		return nil, utils.WrapErrorf(err, "failed to access %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, utils.WrapError(err, "failed to resolve root")
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	accepted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		accepted[utils.NormalizeExtension(ext)] = true
	}

	seen := make(map[string]bool)
	var files []SourceFile

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			// Unreadable subtrees are left out of the run
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if !accepted[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		// Stat follows symlinks so linked files are checked for what they point at
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if seen[resolved] {
			return nil
		}
		seen[resolved] = true

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		name := d.Name()
		files = append(files, SourceFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Dir:     filepath.Dir(path),
			Stem:    utils.TrimExtension(name),
			Ext:     filepath.Ext(name),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, utils.WrapErrorf(err, "failed to walk %s", absRoot)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return files, nil
}
