package gitcore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rybkr/gitlane/internal/layout"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 64
)

// CommitSource delivers commits for layout. force bypasses any cache.
type CommitSource interface {
	LoadCommits(ctx context.Context, force bool) ([]layout.Commit, error)
}

// Loader fetches commits without caching.
type Loader func(ctx context.Context) ([]layout.Commit, error)

// RepositoryLoader adapts Repository.Log to a Loader.
func RepositoryLoader(repo *Repository, opts LogOptions) Loader {
	return func(ctx context.Context) ([]layout.Commit, error) {
		return repo.Log(ctx, opts)
	}
}

// CommitCache holds recent commit loads, expiring entries after a TTL. One
// cache can back several sources.
type CommitCache struct {
	lru *expirable.LRU[string, []layout.Commit]
}

func NewCommitCache(size int, ttl time.Duration) *CommitCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CommitCache{lru: expirable.NewLRU[string, []layout.Commit](size, nil, ttl)}
}

func (c *CommitCache) Len() int { return c.lru.Len() }

// CachedSource is a CommitSource backed by a Loader and a CommitCache.
type CachedSource struct {
	key    string
	load   Loader
	cache  *CommitCache
	logger *log.Logger
}

// NewCachedSource returns a source caching load's results under key.
func NewCachedSource(key string, load Loader, cache *CommitCache, logger *log.Logger) *CachedSource {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedSource{key: key, load: load, cache: cache, logger: logger}
}

// NewRepositorySource caches git log results for repo.
func NewRepositorySource(repo *Repository, opts LogOptions, cache *CommitCache, logger *log.Logger) *CachedSource {
	key := fmt.Sprintf("%s:%d:%t", repo.GitDir(), opts.Limit, opts.All)
	return NewCachedSource(key, RepositoryLoader(repo, opts), cache, logger)
}

func (s *CachedSource) LoadCommits(ctx context.Context, force bool) ([]layout.Commit, error) {
	if !force {
		if commits, ok := s.cache.lru.Get(s.key); ok {
			s.logger.Debug("commit cache hit", "key", s.key, "commits", len(commits))
			return cloneCommits(commits), nil
		}
	}

	start := time.Now()
	commits, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading commits: %w", err)
	}
	s.cache.lru.Add(s.key, cloneCommits(commits))
	s.logger.Debug("commits loaded", "key", s.key, "commits", len(commits), "force", force, "cached", s.cache.Len(), "duration", time.Since(start).String())
	return commits, nil
}

// Invalidate drops this source's cached entry.
func (s *CachedSource) Invalidate() {
	s.cache.lru.Remove(s.key)
}

func cloneCommits(commits []layout.Commit) []layout.Commit {
	out := make([]layout.Commit, len(commits))
	for i, c := range commits {
		c.Parents = slices.Clone(c.Parents)
		c.Branches = slices.Clone(c.Branches)
		c.Tags = slices.Clone(c.Tags)
		out[i] = c
	}
	return out
}
