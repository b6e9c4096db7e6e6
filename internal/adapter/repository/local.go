// Package repository collects the files a review runs against, either
// from the filesystem or from a git diff.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

const defaultMaxFileSize = 1 << 20 // 1 MiB

// Directories that never contain reviewable first-party code.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// Collector loads review candidates from a directory tree. All paths are
// resolved relative to the root; traversal outside it is rejected.
type Collector struct {
	root        string
	maxFileSize int64
}

// NewCollector creates a collector rooted at the given directory.
func NewCollector(root string) *Collector {
	return &Collector{root: root, maxFileSize: defaultMaxFileSize}
}

// Collect loads the given paths as CodeFiles. Directories are walked
// recursively. Binary files, oversized files, and files in build or VCS
// directories are skipped. Results are sorted by path.
func (c *Collector) Collect(paths []string) ([]domain.CodeFile, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []domain.CodeFile
	for _, path := range paths {
		resolved, err := c.resolvePath(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", path, err)
		}

		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", path, err)
		}

		if !info.IsDir() {
			file, ok, err := c.load(resolved)
			if err != nil {
				return nil, err
			}
			if ok && !seen[file.Path] {
				seen[file.Path] = true
				files = append(files, file)
			}
			continue
		}

		err = filepath.WalkDir(resolved, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible paths
			}
			if d.IsDir() {
				if skippedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			file, ok, err := c.load(path)
			if err != nil {
				return err
			}
			if ok && !seen[file.Path] {
				seen[file.Path] = true
				files = append(files, file)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %q: %w", path, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// load reads one file into a CodeFile, reporting ok=false for files that
// should be silently skipped.
func (c *Collector) load(absPath string) (domain.CodeFile, bool, error) {
	if isBinaryFile(absPath) {
		return domain.CodeFile{}, false, nil
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return domain.CodeFile{}, false, nil
	}
	if info.Size() > c.maxFileSize {
		return domain.CodeFile{}, false, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return domain.CodeFile{}, false, fmt.Errorf("failed to read %q: %w", absPath, err)
	}

	rel, err := filepath.Rel(c.root, absPath)
	if err != nil {
		rel = absPath
	}
	return domain.NewCodeFile(filepath.ToSlash(rel), string(content)), true, nil
}

// resolvePath joins a path with the root and rejects escapes. Symlinks are
// resolved first so a link cannot smuggle reads outside the root.
func (c *Collector) resolvePath(path string) (string, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		resolved = filepath.Join(c.root, path)
	}
	resolved = filepath.Clean(resolved)

	realRoot, err := filepath.EvalSymlinks(c.root)
	if err != nil {
		realRoot = filepath.Clean(c.root)
	}

	realPath, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		realPath = resolved
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes repository root")
	}
	return realPath, nil
}

// isBinaryFile checks if a file is likely binary based on its extension.
func isBinaryFile(path string) bool {
	binaryExtensions := map[string]bool{
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".zip": true, ".tar": true, ".gz": true, ".rar": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
		".pdf": true, ".doc": true, ".docx": true,
		".o": true, ".a": true, ".obj": true, ".db": true, ".sqlite": true,
	}
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}
