package gitcore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func fakeGitDir(t *testing.T) (workDir, gitDir string) {
	t.Helper()
	workDir = t.TempDir()
	gitDir = filepath.Join(workDir, ".git")
	for _, dir := range []string{"objects", "refs/heads"} {
		if err := os.MkdirAll(filepath.Join(gitDir, dir), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	writeFile(t, filepath.Join(gitDir, "HEAD"), "ref: refs/heads/main\n")
	return workDir, gitDir
}

func TestNewRepositoryFromSubdirectory(t *testing.T) {
	workDir, gitDir := fakeGitDir(t)
	sub := filepath.Join(workDir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	repo, err := NewRepository(sub)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.GitDir() != gitDir {
		t.Fatalf("unexpected git dir: %s", repo.GitDir())
	}
	if repo.Name() != filepath.Base(workDir) {
		t.Fatalf("unexpected name: %s", repo.Name())
	}
}

func TestNewRepositoryFromGitDir(t *testing.T) {
	workDir, gitDir := fakeGitDir(t)
	repo, err := NewRepository(gitDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.WorkDir() != workDir {
		t.Fatalf("unexpected work dir: %s", repo.WorkDir())
	}
}

func TestNewRepositoryGitFile(t *testing.T) {
	_, gitDir := fakeGitDir(t)
	linked := t.TempDir()
	writeFile(t, filepath.Join(linked, ".git"), "gitdir: "+gitDir+"\n")

	repo, err := NewRepository(linked)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.GitDir() != gitDir {
		t.Fatalf("unexpected git dir: %s", repo.GitDir())
	}
}

func TestNewRepositoryMissingObjects(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, ".git", "HEAD"), "ref: refs/heads/main\n")

	_, err := NewRepository(workDir)
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("expected ErrNotRepository, got %v", err)
	}
}

func TestResolveRefDirectHash(t *testing.T) {
	tempDir := t.TempDir()
	repo := &Repository{gitDir: tempDir}

	hash := "0123456789abcdef0123456789abcdef01234567"
	refPath := filepath.Join(tempDir, "refs", "heads", "main")
	writeFile(t, refPath, hash+"\n")

	resolved, err := repo.resolveRef(refPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolved != Hash(hash) {
		t.Fatalf("unexpected resolved hash: %s", resolved)
	}
}

func TestResolveRefSymbolic(t *testing.T) {
	tempDir := t.TempDir()
	repo := &Repository{gitDir: tempDir}

	headHash := "89abcdef0123456789abcdef0123456789abcdef"
	writeFile(t, filepath.Join(tempDir, "refs", "heads", "main"), headHash+"\n")

	symbolicPath := filepath.Join(tempDir, "HEAD")
	writeFile(t, symbolicPath, "ref: refs/heads/main\n")

	resolved, err := repo.resolveRef(symbolicPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolved != Hash(headHash) {
		t.Fatalf("unexpected resolved hash: %s", resolved)
	}
}

func TestHeadPackedRef(t *testing.T) {
	_, gitDir := fakeGitDir(t)
	repo := &Repository{gitDir: gitDir}

	hash := "fedcba9876543210fedcba9876543210fedcba98"
	writeFile(t, filepath.Join(gitDir, "packed-refs"),
		"# pack-refs with: peeled fully-peeled sorted\n"+hash+" refs/heads/main\n")

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if head.Hash != Hash(hash) || head.Branch() != "main" || head.Detached {
		t.Fatalf("unexpected head: %+v", head)
	}
}

func TestHeadUnborn(t *testing.T) {
	_, gitDir := fakeGitDir(t)
	repo := &Repository{gitDir: gitDir}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if head.Hash != "" || head.Ref != "refs/heads/main" {
		t.Fatalf("unexpected head: %+v", head)
	}
}

func TestHeadDetached(t *testing.T) {
	_, gitDir := fakeGitDir(t)
	hash := "0123456789abcdef0123456789abcdef01234567"
	writeFile(t, filepath.Join(gitDir, "HEAD"), hash+"\n")
	repo := &Repository{gitDir: gitDir}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !head.Detached || head.Hash != Hash(hash) || head.Branch() != "" {
		t.Fatalf("unexpected head: %+v", head)
	}
}
