// Package board owns the ordered set of subreddit columns and reconciles fetch
// results, the TTL cache and the persisted layout into one state.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/qepting91/redditboard/internal/cache"
	"github.com/qepting91/redditboard/internal/domain"
	"github.com/qepting91/redditboard/internal/ingest"
	"github.com/qepting91/redditboard/internal/storage"
)

// LayoutKey holds the JSON array of column names, in column order.
const LayoutKey = "reddit-board-subreddits"

var (
	ErrAlreadyAdded   = errors.New("this subreddit is already added")
	ErrColumnNotFound = errors.New("column not found")
	// ErrInProgress rejects a second fetch for a subreddit whose previous one has not resolved.
	ErrInProgress = errors.New("a refresh is already in progress for this subreddit")
)

// OpError is a failed add or refresh. Message is what the user sees.
type OpError struct {
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }

// State is a point-in-time copy of the board
type State struct {
	Columns []domain.Column   `json:"columns"`
	Loading map[string]bool   `json:"loading"`
	Errors  map[string]string `json:"errors"`
	Error   string            `json:"error,omitempty"`
	Logs    []string          `json:"logs"`
}

// Board is safe for concurrent use. Fetches run outside the lock.
type Board struct {
	fetcher domain.Fetcher
	cache   *cache.Cache
	kv      storage.KV
	sink    chan<- storage.FetchRecord
	// sinkMu guards sink against CloseTraceSink while a send is in flight.
	sinkMu  sync.RWMutex

	mu      sync.Mutex
	columns []domain.Column
	loading map[string]bool
	errs    map[string]string
	err     string
	logs    []string
}

type Option func(*Board)

// WithTraceSink sends a record of every fetch attempt to ch.
func WithTraceSink(ch chan<- storage.FetchRecord) Option {
	return func(b *Board) { b.sink = ch }
}

func New(fetcher domain.Fetcher, c *cache.Cache, kv storage.KV, opts ...Option) *Board {
	b := &Board{
		fetcher: fetcher,
		cache:   c,
		kv:      kv,
		loading: make(map[string]bool),
		errs:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := State{
		Columns: slices.Clone(b.columns),
		Loading: make(map[string]bool, len(b.loading)),
		Errors:  make(map[string]string, len(b.errs)),
		Error:   b.err,
		Logs:    slices.Clone(b.logs),
	}
	for k, v := range b.loading {
		s.Loading[k] = v
	}
	for k, v := range b.errs {
		s.Errors[k] = v
	}
	if s.Columns == nil {
		s.Columns = []domain.Column{}
	}
	return s
}

// Column returns the column at index.
func (b *Board) Column(index int) (domain.Column, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.columns) {
		return domain.Column{}, ErrColumnNotFound
	}
	return b.columns[index], nil
}

// Names returns the column names in order.
func (b *Board) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.namesLocked()
}

func (b *Board) namesLocked() []string {
	names := make([]string, len(b.columns))
	for i, c := range b.columns {
		names[i] = c.Name
	}
	return names
}

func (b *Board) indexLocked(name string) int {
	return slices.IndexFunc(b.columns, func(c domain.Column) bool { return c.Name == name })
}

// Layout reads the persisted column order. A missing key is an empty layout.
func (b *Board) Layout(ctx context.Context) ([]string, error) {
	raw, ok, err := b.kv.Get(ctx, LayoutKey)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return names, nil
}

// SaveLayout overwrites the persisted column order.
func (b *Board) SaveLayout(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := b.kv.Set(ctx, LayoutKey, raw); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	return nil
}

// persistLocked writes the current column order. Called with mu held so
// concurrent add/delete calls land in the store in the same order as in memory.
func (b *Board) persistLocked(ctx context.Context) {
	if err := b.SaveLayout(ctx, b.namesLocked()); err != nil {
		slog.Error("Persist layout failed", "err", err)
	}
}

// fetch runs one fetch and reports it to the trace sink.
func (b *Board) fetch(ctx context.Context, name string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	res, err := b.fetcher.Fetch(ctx, name, sort, window)

	rec := storage.FetchRecord{
		ID:        uuid.NewString(),
		Subreddit: name,
		Sort:      string(sort),
		Window:    string(window),
		At:        time.Now().UTC(),
		Posts:     len(res.Posts),
		Trace:     res.Trace,
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Trace = domain.TraceOf(err)
		slog.Warn("Fetch failed", "sub", name, "sort", sort, "err", err)
	} else {
		slog.Debug("Fetch complete", "sub", name, "sort", sort, "count", len(res.Posts))
	}

	b.sinkMu.RLock()
	if b.sink != nil {
		select {
		case b.sink <- rec:
		case <-ctx.Done():
		}
	}
	b.sinkMu.RUnlock()
	return res, err
}

// CloseTraceSink closes the trace sink once pending sends have finished.
// Fetches that complete afterwards are not recorded. Safe to call more than once.
func (b *Board) CloseTraceSink() {
	b.sinkMu.Lock()
	defer b.sinkMu.Unlock()
	if b.sink != nil {
		close(b.sink)
		b.sink = nil
	}
}

// store caches a successful fetch and returns the column built from it.
func (b *Board) store(ctx context.Context, name string, posts []domain.Post, sort domain.SortMode, window domain.TimeWindow) domain.Column {
	entry, err := b.cache.Put(ctx, name, domain.CacheEntry{Posts: posts, SortBy: sort, TimeFilter: window})
	if err != nil {
		slog.Warn("Cache write failed", "sub", name, "err", err)
	}
	return domain.NewColumn(name, entry)
}

// Restore rebuilds the board from the persisted layout. Each name is served from the
// cache when fresh and fetched otherwise; all names are processed concurrently and
// the columns keep the persisted order. Names that fail are left out and their
// errors returned. The persisted layout itself is not rewritten.
func (b *Board) Restore(ctx context.Context) (map[string]error, error) {
	names, err := b.Layout(ctx)
	if err != nil {
		b.mu.Lock()
		b.err = "Failed to load saved subreddits"
		b.mu.Unlock()
		return nil, err
	}
	names = compact(names)

	b.mu.Lock()
	b.err = ""
	b.logs = nil
	for _, name := range names {
		b.loading[name] = true
		delete(b.errs, name)
	}
	b.mu.Unlock()

	loaded := make([]*domain.Column, len(names))
	failures := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			col, trace, err := b.restoreOne(ctx, name)
			b.mu.Lock()
			defer b.mu.Unlock()
			b.logs = append(b.logs, trace...)
			b.loading[name] = false
			if err != nil {
				failures[i] = err
				b.errs[name] = fmt.Sprintf("Failed to load r/%s: %v", name, err)
				return nil
			}
			loaded[i] = &col
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]error)
	columns := make([]domain.Column, 0, len(names))
	for i, name := range names {
		if failures[i] != nil {
			result[name] = failures[i]
			continue
		}
		columns = append(columns, *loaded[i])
	}

	b.mu.Lock()
	b.columns = columns
	for _, name := range names {
		delete(b.loading, name)
	}
	b.mu.Unlock()

	slog.Info("Board restored", "columns", len(columns), "failed", len(result))
	return result, nil
}

func (b *Board) restoreOne(ctx context.Context, name string) (domain.Column, []string, error) {
	if entry, ok := b.cache.Get(ctx, name); ok {
		return domain.NewColumn(name, entry), nil, nil
	}

	res, err := b.fetch(ctx, name, domain.DefaultSort, domain.DefaultWindow)
	if err != nil {
		return domain.Column{}, domain.TraceOf(err), err
	}
	return b.store(ctx, name, res.Posts, domain.DefaultSort, domain.DefaultWindow), res.Trace, nil
}

func compact(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// AddColumn normalizes raw, fetches the subreddit with the default sort and appends
// a column for it. Duplicates are rejected before any fetch.
func (b *Board) AddColumn(ctx context.Context, raw string) (domain.Column, error) {
	name, err := ingest.Normalize(raw)
	if err != nil {
		b.mu.Lock()
		b.err = err.Error()
		b.mu.Unlock()
		return domain.Column{}, err
	}

	b.mu.Lock()
	if b.indexLocked(name) >= 0 {
		b.err = "This subreddit is already added"
		b.mu.Unlock()
		return domain.Column{}, ErrAlreadyAdded
	}
	if b.loading[name] {
		b.mu.Unlock()
		return domain.Column{}, ErrInProgress
	}
	b.loading[name] = true
	b.err = ""
	b.logs = nil
	b.mu.Unlock()

	res, err := b.fetch(ctx, name, domain.DefaultSort, domain.DefaultWindow)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.loading, name)

	if err != nil {
		msg := fmt.Sprintf("Failed to load r/%s: %v", name, err)
		b.logs = domain.TraceOf(err)
		b.err = msg
		b.errs[name] = msg
		return domain.Column{}, &OpError{Message: msg, Err: err}
	}

	col := b.store(ctx, name, res.Posts, domain.DefaultSort, domain.DefaultWindow)
	b.logs = res.Trace
	b.columns = append(b.columns, col)
	delete(b.errs, name)
	b.persistLocked(ctx)

	slog.Info("Column added", "sub", name, "count", len(col.Posts))
	return col, nil
}

// RefreshColumn re-fetches the column at index with the given sort and window and
// replaces its posts wholesale. On failure the column keeps its previous posts and
// an error is recorded for it. A refresh of a column that already has one in
// flight is rejected with ErrInProgress.
func (b *Board) RefreshColumn(ctx context.Context, index int, sort domain.SortMode, window domain.TimeWindow) (domain.Column, error) {
	b.mu.Lock()
	if index < 0 || index >= len(b.columns) {
		b.mu.Unlock()
		return domain.Column{}, ErrColumnNotFound
	}
	name := b.columns[index].Name
	if b.loading[name] {
		b.mu.Unlock()
		return domain.Column{}, ErrInProgress
	}
	b.loading[name] = true
	b.err = ""
	b.logs = nil
	b.mu.Unlock()

	res, err := b.fetch(ctx, name, sort, window)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.loading, name)

	// the column may have moved or been deleted while the fetch was running
	current := b.indexLocked(name)

	if err != nil {
		msg := fmt.Sprintf("Failed to refresh r/%s: %v", name, err)
		b.logs = domain.TraceOf(err)
		b.err = msg
		if current >= 0 {
			b.errs[name] = msg
		}
		return domain.Column{}, &OpError{Message: msg, Err: err}
	}

	b.logs = res.Trace
	if current < 0 {
		return domain.Column{}, ErrColumnNotFound
	}

	col := b.store(ctx, name, res.Posts, sort, window)
	b.columns[current] = col
	delete(b.errs, name)

	slog.Info("Column refreshed", "sub", name, "sort", sort, "window", window, "count", len(col.Posts))
	return col, nil
}

// ChangeSort refreshes the column with a new sort mode and its current time window.
func (b *Board) ChangeSort(ctx context.Context, index int, sort domain.SortMode) (domain.Column, error) {
	col, err := b.Column(index)
	if err != nil {
		return domain.Column{}, err
	}
	return b.RefreshColumn(ctx, index, sort, col.TimeFilter)
}

// ChangeTimeWindow refreshes the column with a new time window and its current sort mode.
func (b *Board) ChangeTimeWindow(ctx context.Context, index int, window domain.TimeWindow) (domain.Column, error) {
	col, err := b.Column(index)
	if err != nil {
		return domain.Column{}, err
	}
	return b.RefreshColumn(ctx, index, col.SortBy, window)
}

// DeleteColumn removes the column at index together with its cache entry and error.
func (b *Board) DeleteColumn(ctx context.Context, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.columns) {
		return ErrColumnNotFound
	}
	name := b.columns[index].Name
	b.columns = slices.Delete(b.columns, index, index+1)
	delete(b.errs, name)

	if err := b.cache.Delete(ctx, name); err != nil {
		slog.Warn("Cache delete failed", "sub", name, "err", err)
	}
	b.persistLocked(ctx)

	slog.Info("Column deleted", "sub", name)
	return nil
}
