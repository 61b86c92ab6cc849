package gitcore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeadState describes what HEAD currently points at.
type HeadState struct {
	Hash     Hash   `json:"hash,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Detached bool   `json:"detached"`
}

// Branch returns the short branch name HEAD is on, or "" when detached.
func (h HeadState) Branch() string {
	return strings.TrimPrefix(h.Ref, "refs/heads/")
}

// Head reads HEAD. It is read on every call since the repository may change
// underneath a long-running server.
func (r *Repository) Head() (HeadState, error) {
	content, err := os.ReadFile(filepath.Join(r.gitDir, "HEAD"))
	if err != nil {
		return HeadState{}, fmt.Errorf("failed to read HEAD: %w", err)
	}

	line := strings.TrimSpace(string(content))
	if strings.HasPrefix(line, "ref: ") {
		ref := strings.TrimPrefix(line, "ref: ")
		hash, err := r.resolveRefName(ref)
		if err != nil {
			// Unborn branch in a new repository, this is ok.
			return HeadState{Ref: ref}, nil
		}
		return HeadState{Hash: hash, Ref: ref}, nil
	}

	hash, err := NewHash(line)
	if err != nil {
		return HeadState{}, fmt.Errorf("invalid HEAD: %w", err)
	}
	return HeadState{Hash: hash, Detached: true}, nil
}

// resolveRefName resolves a ref such as refs/heads/main, checking the loose
// file first and packed-refs second.
func (r *Repository) resolveRefName(ref string) (Hash, error) {
	hash, err := r.resolveRef(filepath.Join(r.commonDir(), filepath.FromSlash(ref)))
	if err == nil {
		return hash, nil
	}
	if packed, perr := r.lookupPackedRef(ref); perr == nil {
		return packed, nil
	}
	return "", err
}

// resolveRef reads a single ref file and returns its hash.
// Handles both direct hashes and symbolic refs.
func (r *Repository) resolveRef(path string) (Hash, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		return r.resolveRefName(strings.TrimPrefix(line, "ref: "))
	}

	hash, err := NewHash(line)
	if err != nil {
		return "", fmt.Errorf("invalid hash in ref file %s: %w", path, err)
	}
	return hash, nil
}

func (r *Repository) lookupPackedRef(ref string) (Hash, error) {
	f, err := os.Open(filepath.Join(r.commonDir(), "packed-refs"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		hash, name, ok := strings.Cut(line, " ")
		if ok && name == ref {
			return NewHash(hash)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("ref not found: %s", ref)
}

// commonDir is where shared refs live; it differs from gitDir for linked worktrees.
func (r *Repository) commonDir() string {
	data, err := os.ReadFile(filepath.Join(r.gitDir, "commondir"))
	if err != nil {
		return r.gitDir
	}
	dir := strings.TrimSpace(string(data))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.gitDir, dir)
	}
	return filepath.Clean(dir)
}
