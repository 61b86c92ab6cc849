package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTime = 100 * time.Millisecond
)

// startWatcher initializes filesystem monitoring for the Git repository.
// It watches the git dir itself (HEAD, packed-refs) and every directory
// under refs/ for changes and triggers a forced reload.
func (s *Server) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	gitDir := s.repo.GitDir()
	if err := watcher.Add(gitDir); err != nil {
		watcher.Close()
		return err
	}
	if err := addRefDirs(watcher, filepath.Join(gitDir, "refs")); err != nil {
		s.logger.Warn("watching refs failed", "err", err)
	}

	s.wg.Add(1)
	go s.watchLoop(watcher)

	s.logger.Info("watching git repository for changes", "gitDir", gitDir)
	return nil
}

// addRefDirs adds root and all of its subdirectories. fsnotify is not
// recursive, and branch names with slashes live in nested directories.
func addRefDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (s *Server) watchLoop(watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	defer watcher.Close()

	// A pending reload holds a wg slot until it runs or is stopped, so Close
	// never returns while a reload is in flight.
	var debounceTimer *time.Timer
	cancelPending := func() {
		if debounceTimer != nil && debounceTimer.Stop() {
			s.wg.Done()
		}
	}
	defer cancelPending()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(event) {
				continue
			}

			// New ref namespaces (e.g. refs/heads/feature/) need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRefDirs(watcher, event.Name)
				}
			}

			s.logger.Debug("change detected", "file", filepath.Base(event.Name), "op", event.Op.String())

			cancelPending()
			s.wg.Add(1)
			debounceTimer = time.AfterFunc(debounceTime, func() {
				defer s.wg.Done()
				s.reloadAfterChange()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "err", err)
		}
	}
}

// invalidator is implemented by commit sources that cache.
type invalidator interface {
	Invalidate()
}

// reloadAfterChange drops cached history and rebuilds the layout.
func (s *Server) reloadAfterChange() {
	if s.ctx.Err() != nil {
		return
	}
	force := true
	if inv, ok := s.source.(invalidator); ok {
		inv.Invalidate()
		force = false
	}
	if _, _, err := s.refresh(s.ctx, force); err != nil {
		s.logger.Error("reload after change failed", "err", err)
	}
}

func shouldIgnoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	path := filepath.ToSlash(event.Name)

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	if strings.Contains(path, "/logs/") || base == "logs" {
		return true
	}
	if base == "config" {
		return true
	}

	return false
}
