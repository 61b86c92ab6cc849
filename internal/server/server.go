package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/rybkr/gitlane/internal/gitcore"
	"github.com/rybkr/gitlane/internal/layout"
	"github.com/rybkr/gitlane/internal/logging"
)

const (
	defaultPollPeriod = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Repository is what the server needs to know about the repository it shows.
type Repository interface {
	Name() string
	GitDir() string
	Head() (gitcore.HeadState, error)
}

// RepositoryInfo is served at /api/repository.
type RepositoryInfo struct {
	Name   string             `json:"name"`
	GitDir string             `json:"gitDir"`
	Head   *gitcore.HeadState `json:"head,omitempty"`
}

type MessageType string

const (
	MessageTypeRepository MessageType = "repository"
	MessageTypeGraph      MessageType = "graph"
)

type UpdateMessage struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type Options struct {
	Addr string
	// PollPeriod is how often the repository is re-read when no watcher
	// event arrives. Zero means the default; negative disables polling.
	PollPeriod time.Duration
	// WebDir, when set, is served at /.
	WebDir string
	// Watch enables the filesystem watcher on the git directory.
	Watch bool
}

// Server serves a repository's commit layout over HTTP and pushes new
// layouts to websocket clients whenever history changes.
type Server struct {
	repo   Repository
	source gitcore.CommitSource
	opts   Options
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// refreshMu serializes pipeline runs so concurrent triggers cannot
	// publish results out of order.
	refreshMu sync.Mutex

	mu     sync.RWMutex
	cached struct {
		info  *RepositoryInfo
		graph *layout.Result
	}

	hub *hub
}

func NewServer(repo Repository, source gitcore.CommitSource, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.PollPeriod == 0 {
		opts.PollPeriod = defaultPollPeriod
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		repo:   repo,
		source: source,
		opts:   opts,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		hub:    newHub(logger),
	}
}

// Handler returns the HTTP routes without starting background work.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.WebDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.WebDir)))
	}
	mux.HandleFunc("GET /api/repository", s.handleRepository)
	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/graph.svg", s.handleGraphSVG)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return mux
}

// Start loads the initial layout, starts polling and watching, and serves
// until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if _, _, err := s.refresh(ctx, false); err != nil {
		s.logger.Warn("initial layout failed", "err", err)
	}

	if s.opts.Watch {
		if err := s.startWatcher(); err != nil {
			s.logger.Warn("filesystem watcher unavailable, relying on polling", "err", err)
		}
	}
	if s.opts.PollPeriod > 0 {
		s.wg.Add(1)
		go s.pollRepo()
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr, "repo", s.repo.Name())
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	case err = <-errCh:
	}

	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops background goroutines and disconnects websocket clients.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.hub.closeAll()
}

// refresh re-reads commits, recomputes the layout and publishes it if it
// changed. force bypasses the commit cache.
func (s *Server) refresh(ctx context.Context, force bool) (*layout.Result, bool, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	done := logging.Op(s.logger, "refresh", "force", force)

	info := s.repositoryInfo()
	s.mu.Lock()
	infoChanged := !reflect.DeepEqual(s.cached.info, info)
	s.cached.info = info
	s.mu.Unlock()
	if infoChanged {
		s.hub.broadcast(UpdateMessage{Type: MessageTypeRepository, Data: info})
	}

	commits, err := s.source.LoadCommits(ctx, force)
	if err != nil {
		done(err)
		return nil, false, err
	}
	res := layout.Compute(commits)

	s.mu.RLock()
	changed := !graphEqual(s.cached.graph, &res)
	s.mu.RUnlock()

	if changed {
		s.mu.Lock()
		s.cached.graph = &res
		s.mu.Unlock()
		s.hub.broadcast(UpdateMessage{Type: MessageTypeGraph, Data: &res})
		s.logger.Info("repository graph changed, broadcasting update", "commits", res.CommitCount(), "branches", res.BranchCount())
	}

	done(nil, "commits", res.CommitCount(), "changed", changed)
	return &res, changed, nil
}

func (s *Server) repositoryInfo() *RepositoryInfo {
	info := &RepositoryInfo{Name: s.repo.Name(), GitDir: s.repo.GitDir()}
	head, err := s.repo.Head()
	if err != nil {
		s.logger.Warn("reading HEAD failed", "err", err)
		return info
	}
	info.Head = &head
	return info
}

func (s *Server) cachedGraph() *layout.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached.graph
}

func (s *Server) cachedInfo() *RepositoryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached.info
}

// graphEqual compares layouts by their JSON form, which is what clients see.
func graphEqual(a, b *layout.Result) bool {
	if a == nil || b == nil {
		return a == b
	}
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(aJSON) == string(bJSON)
}
