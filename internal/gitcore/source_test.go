package gitcore

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rybkr/gitlane/internal/layout"
)

type fakeLoader struct {
	mu      sync.Mutex
	calls   int
	commits []layout.Commit
	err     error
}

func (f *fakeLoader) load(_ context.Context) ([]layout.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return cloneCommits(f.commits), nil
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func sampleCommits() []layout.Commit {
	c := layout.NewCommit("abc1234567", []string{"def7654321"}, "Jane", 10, "change")
	c.Branches = []string{"main"}
	return []layout.Commit{c}
}

func TestCachedSourceServesFromCache(t *testing.T) {
	loader := &fakeLoader{commits: sampleCommits()}
	src := NewCachedSource("repo", loader.load, NewCommitCache(4, time.Minute), quietLogger())

	first, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	second, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.callCount())
	assert.Equal(t, first, second)
}

func TestCachedSourceForceBypassesCache(t *testing.T) {
	loader := &fakeLoader{commits: sampleCommits()}
	src := NewCachedSource("repo", loader.load, NewCommitCache(4, time.Minute), quietLogger())

	_, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)

	loader.mu.Lock()
	loader.commits[0].Message = "amended"
	loader.mu.Unlock()

	forced, err := src.LoadCommits(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.callCount())
	assert.Equal(t, "amended", forced[0].Message)

	cached, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.callCount())
	assert.Equal(t, "amended", cached[0].Message)
}

func TestCachedSourceReturnsCopies(t *testing.T) {
	loader := &fakeLoader{commits: sampleCommits()}
	src := NewCachedSource("repo", loader.load, NewCommitCache(4, time.Minute), quietLogger())

	got, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	got[0].Branches[0] = "mutated"
	got[0].Parents = nil

	again, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, again[0].Branches)
	assert.Equal(t, []string{"def7654321"}, again[0].Parents)
}

func TestCachedSourceExpires(t *testing.T) {
	loader := &fakeLoader{commits: sampleCommits()}
	src := NewCachedSource("repo", loader.load, NewCommitCache(4, 20*time.Millisecond), quietLogger())

	_, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = src.LoadCommits(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, loader.callCount())
}

func TestCachedSourceInvalidate(t *testing.T) {
	loader := &fakeLoader{commits: sampleCommits()}
	cache := NewCommitCache(4, time.Minute)
	src := NewCachedSource("repo", loader.load, cache, quietLogger())
	other := NewCachedSource("other", loader.load, cache, quietLogger())

	_, err := src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	_, err = other.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	src.Invalidate()
	assert.Equal(t, 1, cache.Len())

	_, err = src.LoadCommits(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, loader.callCount())
}

func TestCachedSourceError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("boom")}
	cache := NewCommitCache(4, time.Minute)
	src := NewCachedSource("repo", loader.load, cache, quietLogger())

	_, err := src.LoadCommits(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.err)
	assert.Equal(t, 0, cache.Len())
}
