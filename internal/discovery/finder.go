package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

// Finder locates compose files below a root directory.
//
// A Finder holds no state between calls; it only carries the file name to
// match and the paths to leave out.
type Finder struct {
	// FileName is matched exactly against each file's base name.
	FileName string

	// exclude holds canonical paths (see canonicalPath) of files that must
	// never be returned, typically the output file of the current run.
	exclude map[string]bool
}

// NewFinder creates a Finder for fileName. Paths in exclude are skipped
// wherever they appear below the root.
func NewFinder(fileName string, exclude ...string) *Finder {
	f := &Finder{FileName: fileName, exclude: make(map[string]bool, len(exclude))}
	for _, p := range exclude {
		if canonical, err := canonicalPath(p); err == nil {
			f.exclude[canonical] = true
		}
	}
	return f
}

// Find walks root and returns every file named f.FileName that lives in a
// subdirectory of root, at any depth.
//
// A match directly in root is skipped, since that is where the combined
// file is written. Results are in filepath.WalkDir order, which is
// lexical, so the same tree always yields the same order. A symlinked root
// is followed; symbolic links to directories below it are not.
//
// Returns an error if root or any directory below it cannot be read.
func (f *Finder) Find(root string) ([]model.ComposeSource, error) {
	var sources []model.ComposeSource

	// WalkDir does not descend into a root that is itself a symlink, so
	// the resolved directory is walked and paths are reported under root.
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}

	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != f.FileName {
			return nil
		}

		dir := filepath.Dir(path)
		rel, err := filepath.Rel(walkRoot, dir)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}
		if f.isExcluded(path) {
			return nil
		}

		sources = append(sources, model.ComposeSource{
			Path:  filepath.Join(root, rel, d.Name()),
			Dir:   rel,
			Token: DirectoryToken(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return sources, nil
}

func (f *Finder) isExcluded(path string) bool {
	if len(f.exclude) == 0 {
		return false
	}
	canonical, err := canonicalPath(path)
	if err != nil {
		return false
	}
	return f.exclude[canonical]
}

// canonicalPath returns the absolute path of p with symbolic links
// resolved, so one file reached through different directories compares
// equal. A file that does not exist yet is resolved through its parent
// directory; if that fails too, the plain absolute path is used.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return abs, nil
}

// DirectoryToken flattens a relative directory path into a single name
// component by replacing each path separator with "_":
//
//	DirectoryToken("api")        → "api"
//	DirectoryToken("backend/db") → "backend_db"
func DirectoryToken(rel string) string {
	return strings.ReplaceAll(rel, string(filepath.Separator), model.TokenSeparator)
}
