package board_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qepting91/redditboard/internal/board"
	"github.com/qepting91/redditboard/internal/cache"
	"github.com/qepting91/redditboard/internal/domain"
	"github.com/qepting91/redditboard/internal/storage"
)

func TestBoard_RestoreKeepsPersistedOrder(t *testing.T) {
	ctx := context.Background()
	fastDone := make(chan struct{})

	f := &stubFetcher{fn: func(_ context.Context, name string, _ domain.SortMode, _ domain.TimeWindow) (domain.FetchResult, error) {
		switch name {
		case "slow":
			// resolves only after "fast" has finished
			<-fastDone
		case "fast":
			defer close(fastDone)
		}
		return domain.FetchResult{Posts: postsFor(name, 2), Trace: []string{"fetched " + name}}, nil
	}}
	fx := newFixture(f)

	cachedEntry, err := fx.cache.Put(ctx, "cached", domain.CacheEntry{
		Posts:      postsFor("cached", 1),
		SortBy:     domain.SortTop,
		TimeFilter: domain.TimeYear,
	})
	require.NoError(t, err)
	require.NoError(t, fx.board.SaveLayout(ctx, []string{"slow", "cached", "fast"}))

	failures, err := fx.board.Restore(ctx)
	require.NoError(t, err)
	require.Empty(t, failures)

	state := fx.board.Snapshot()
	require.Equal(t, []string{"slow", "cached", "fast"}, fx.board.Names())
	require.Equal(t, domain.NewColumn("cached", cachedEntry), state.Columns[1])
	require.Equal(t, domain.SortHot, state.Columns[0].SortBy)
	require.Equal(t, domain.TimeDay, state.Columns[0].TimeFilter)
	require.Empty(t, state.Loading)
	require.ElementsMatch(t, []string{"fetched slow", "fetched fast"}, state.Logs)

	// the cached column is not fetched, misses use the defaults
	require.ElementsMatch(t, []fetchCall{
		{"slow", domain.SortHot, domain.TimeDay},
		{"fast", domain.SortHot, domain.TimeDay},
	}, f.Calls())

	// fetched columns are written through to the cache
	_, ok := fx.cache.Get(ctx, "slow")
	require.True(t, ok)
	_, ok = fx.cache.Get(ctx, "fast")
	require.True(t, ok)
}

func TestBoard_RestoreOmitsFailures(t *testing.T) {
	ctx := context.Background()
	f := &stubFetcher{fn: func(_ context.Context, name string, _ domain.SortMode, _ domain.TimeWindow) (domain.FetchResult, error) {
		if name == "private" {
			return domain.FetchResult{}, failure("HTTP error! status: 403")
		}
		return domain.FetchResult{Posts: postsFor(name, 1)}, nil
	}}
	fx := newFixture(f)
	require.NoError(t, fx.board.SaveLayout(ctx, []string{"a", "private", "b", "a"}))

	failures, err := fx.board.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.EqualError(t, failures["private"], "HTTP error! status: 403")

	require.Equal(t, []string{"a", "b"}, fx.board.Names())
	state := fx.board.Snapshot()
	require.Equal(t, "Failed to load r/private: HTTP error! status: 403", state.Errors["private"])
	require.Contains(t, state.Logs, "Error: HTTP error! status: 403")

	// a failed restore does not rewrite the saved layout
	layout, err := fx.board.Layout(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "private", "b", "a"}, layout)
}

func TestBoard_RestoreStaleCacheRefetches(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	now := time.Now()
	clk := func() time.Time { return now }
	c := cache.New(kv, cache.WithClock(clk))

	_, err := c.Put(ctx, "golang", domain.CacheEntry{Posts: postsFor("old", 1), SortBy: domain.SortNew, TimeFilter: domain.TimeDay})
	require.NoError(t, err)
	now = now.Add(cache.TTL + time.Second)

	f := okFetcher()
	b := board.New(f, c, kv)
	require.NoError(t, b.SaveLayout(ctx, []string{"golang"}))

	_, err = b.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, f.Calls(), 1)

	col, err := b.Column(0)
	require.NoError(t, err)
	require.Equal(t, "golang_0", col.Posts[0].ID)
	require.Equal(t, domain.SortHot, col.SortBy)
	require.Equal(t, now.UnixMilli(), col.LastRefreshed)
}

func TestBoard_RestoreEmptyAndCorruptLayout(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(okFetcher())

	failures, err := fx.board.Restore(ctx)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Empty(t, fx.board.Snapshot().Columns)

	require.NoError(t, fx.kv.Set(ctx, board.LayoutKey, []byte("{oops")))
	_, err = fx.board.Restore(ctx)
	require.ErrorContains(t, err, "decode layout")
	require.Equal(t, "Failed to load saved subreddits", fx.board.Snapshot().Error)
	require.Empty(t, fx.fetcher.Calls())
}

func TestBoard_RestoreThenAddPersists(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(okFetcher())
	require.NoError(t, fx.board.SaveLayout(ctx, []string{"golang"}))

	_, err := fx.board.Restore(ctx)
	require.NoError(t, err)
	_, err = fx.board.AddColumn(ctx, "rust")
	require.NoError(t, err)

	layout, err := fx.board.Layout(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"golang", "rust"}, layout)

	// a second board over the same store comes back in the same shape, from cache
	again := board.New(okFetcher(), fx.cache, fx.kv)
	_, err = again.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"golang", "rust"}, again.Names())
}

func TestBoard_RestoreFailureDroppedOnNextPersist(t *testing.T) {
	ctx := context.Background()
	f := &stubFetcher{fn: func(_ context.Context, name string, _ domain.SortMode, _ domain.TimeWindow) (domain.FetchResult, error) {
		if name == "private" {
			return domain.FetchResult{}, failure("HTTP error! status: 403")
		}
		return domain.FetchResult{Posts: postsFor(name, 1)}, nil
	}}
	fx := newFixture(f)
	require.NoError(t, fx.board.SaveLayout(ctx, []string{"a", "private", "b"}))

	_, err := fx.board.Restore(ctx)
	require.NoError(t, err)

	layout, err := fx.board.Layout(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "private", "b"}, layout)

	// the next add writes the live columns only
	_, err = fx.board.AddColumn(ctx, "c")
	require.NoError(t, err)
	layout, err = fx.board.Layout(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, layout)
}
