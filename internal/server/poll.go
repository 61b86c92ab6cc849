package server

import "time"

// pollRepo periodically re-runs the pipeline as a fallback for changes the
// watcher misses (network filesystems, disabled watcher).
func (s *Server) pollRepo() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollPeriod)
	defer ticker.Stop()

	s.logger.Debug("repository polling started", "period", s.opts.PollPeriod)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("repository polling stopped")
			return

		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce runs a single refresh. It goes through the commit cache, so git is
// only re-read once the cached history expires. A panic from a corrupted
// repository is logged and the loop keeps going.
func (s *Server) pollOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in poll loop", "panic", r)
		}
	}()
	if _, _, err := s.refresh(s.ctx, false); err != nil {
		s.logger.Warn("poll refresh failed", "err", err)
	}
}
