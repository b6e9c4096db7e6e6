package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// GitCollector loads only the files changed since a base ref, so a review
// of a branch covers exactly what the branch touched.
type GitCollector struct {
	repoDir     string
	maxFileSize int64
}

// NewGitCollector creates a collector for the given repository directory.
func NewGitCollector(repoDir string) *GitCollector {
	return &GitCollector{repoDir: repoDir, maxFileSize: defaultMaxFileSize}
}

// ChangedFiles returns the files added or modified between baseRef and
// HEAD, with their current working tree content. Deleted and binary files
// are excluded. Results are sorted by path.
func (g *GitCollector) ChangedFiles(baseRef string) ([]domain.CodeFile, error) {
	repo, err := goGit.PlainOpenWithOptions(g.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base ref %q: %w", baseRef, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}

	patch, err := baseCommit.Patch(headCommit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}

	var files []domain.CodeFile
	for _, fp := range patch.FilePatches() {
		_, to := fp.Files()
		if to == nil {
			continue // deleted
		}
		path := to.Path()
		if isBinaryFile(path) || fp.IsBinary() {
			continue
		}

		absPath := filepath.Join(g.repoDir, filepath.FromSlash(path))
		info, err := os.Stat(absPath)
		if err != nil || info.Size() > g.maxFileSize {
			continue
		}
		content, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		files = append(files, domain.NewCodeFile(path, string(content)))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// resolveCommit resolves a ref, trying the bare name, local branch, and
// origin-remote forms in order.
func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}
