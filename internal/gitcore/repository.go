package gitcore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when no git directory can be found for a path.
var ErrNotRepository = errors.New("not a git repository")

// Repository is a located and validated git repository. It holds no commit
// data; every call to Log asks git again.
type Repository struct {
	gitDir  string
	workDir string
	gitBin  string
}

// NewRepository locates the repository containing path.
// path can be either:
//   - The working directory (will find .git within)
//   - The .git directory itself
//   - Any directory below the working directory
func NewRepository(path string) (*Repository, error) {
	gitDir, workDir, err := findGitDirectory(path)
	if err != nil {
		return nil, err
	}

	if err := validateGitDirectory(gitDir); err != nil {
		return nil, err
	}

	return &Repository{
		gitDir:  gitDir,
		workDir: workDir,
		gitBin:  "git",
	}, nil
}

// Name returns the repository's directory name.
func (r *Repository) Name() string {
	return filepath.Base(r.workDir)
}

func (r *Repository) GitDir() string { return r.gitDir }

func (r *Repository) WorkDir() string { return r.workDir }

// SetGitBinary overrides the git executable used by Log.
func (r *Repository) SetGitBinary(path string) {
	if path != "" {
		r.gitBin = path
	}
}

// findGitDirectory locates the .git directory starting from the given path.
// Returns both the .git directory and the working directory.
func findGitDirectory(startPath string) (gitDir string, workDir string, err error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if filepath.Base(absPath) == ".git" {
		info, err := os.Stat(absPath)
		if err == nil && info.IsDir() {
			return absPath, filepath.Dir(absPath), nil
		}
	}

	currentPath := absPath
	for {
		gitPath := filepath.Join(currentPath, ".git")

		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return gitPath, currentPath, nil
			}
			return handleGitFile(gitPath, currentPath)
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return "", "", fmt.Errorf("%w (or any parent up to mount point): %s", ErrNotRepository, startPath)
		}
		currentPath = parentPath
	}
}

// handleGitFile handles the case where .git is a file (worktrees, submodules).
// .git file format: "gitdir: /path/to/actual/.git"
func handleGitFile(gitFilePath string, workDir string) (string, string, error) {
	content, err := os.ReadFile(gitFilePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read .git file: %w", err)
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return "", "", fmt.Errorf("invalid .git file format: %s", gitFilePath)
	}

	gitDir := strings.TrimPrefix(line, "gitdir: ")
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(gitFilePath), gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	if _, err := os.Stat(gitDir); err != nil {
		return "", "", fmt.Errorf("gitdir points to non-existent directory: %s", gitDir)
	}

	return gitDir, workDir, nil
}

// validateGitDirectory checks if the directory is a valid Git repository.
// Linked worktrees keep objects and refs in the common dir, so a commondir
// file satisfies those requirements.
func validateGitDirectory(gitDir string) error {
	info, err := os.Stat(gitDir)
	if err != nil {
		return fmt.Errorf("git directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("git path is not a directory: %s", gitDir)
	}

	if _, err := os.Stat(filepath.Join(gitDir, "HEAD")); err != nil {
		return fmt.Errorf("%w, missing: HEAD", ErrNotRepository)
	}
	if _, err := os.Stat(filepath.Join(gitDir, "commondir")); err == nil {
		return nil
	}

	for _, required := range []string{"objects", "refs"} {
		if _, err := os.Stat(filepath.Join(gitDir, required)); err != nil {
			return fmt.Errorf("%w, missing: %s", ErrNotRepository, required)
		}
	}

	return nil
}
