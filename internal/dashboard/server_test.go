package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qepting91/redditboard/internal/board"
	"github.com/qepting91/redditboard/internal/cache"
	"github.com/qepting91/redditboard/internal/collector"
	"github.com/qepting91/redditboard/internal/dashboard"
	"github.com/qepting91/redditboard/internal/domain"
	"github.com/qepting91/redditboard/internal/storage"
)

// notFoundFor wraps a fetcher and fails for one subreddit.
type notFoundFor struct {
	domain.Fetcher
	name string
}

func (f notFoundFor) Fetch(ctx context.Context, name string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	if name == f.name {
		return domain.FetchResult{}, &domain.FetchError{
			Err:   errors.New("HTTP error! status: 404"),
			Trace: []string{"Response status: 404", "Error: HTTP error! status: 404"},
		}
	}
	return f.Fetcher.Fetch(ctx, name, sort, window)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	kv := storage.NewMemoryKV()
	fetcher := notFoundFor{Fetcher: &collector.MockClient{Count: 3}, name: "missing"}
	b := board.New(fetcher, cache.New(kv), kv)
	srv := httptest.NewServer(dashboard.NewServer(b).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_ColumnLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"r/GoLang"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	col := decode[domain.Column](t, resp)
	require.Equal(t, "golang", col.Name)
	require.Len(t, col.Posts, 3)
	require.Equal(t, domain.SortHot, col.SortBy)

	resp = do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"golang"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/columns/0/refresh", `{"sort":"top","time":"week"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	col = decode[domain.Column](t, resp)
	require.Equal(t, domain.SortTop, col.SortBy)
	require.Equal(t, domain.TimeWeek, col.TimeFilter)

	resp = do(t, http.MethodPut, srv.URL+"/api/columns/0/sort", `{"sort":"new"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	col = decode[domain.Column](t, resp)
	require.Equal(t, domain.SortNew, col.SortBy)
	require.Equal(t, domain.TimeWeek, col.TimeFilter)

	resp = do(t, http.MethodPut, srv.URL+"/api/columns/0/time", `{"time":"all"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	col = decode[domain.Column](t, resp)
	require.Equal(t, domain.SortNew, col.SortBy)
	require.Equal(t, domain.TimeAll, col.TimeFilter)

	// empty refresh body keeps current settings
	resp = do(t, http.MethodPost, srv.URL+"/api/columns/0/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	col = decode[domain.Column](t, resp)
	require.Equal(t, domain.TimeAll, col.TimeFilter)

	resp = do(t, http.MethodGet, srv.URL+"/api/columns/0/posts?order=ups", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[[]domain.Post](t, resp)
	require.Len(t, posts, 3)
	for i := 1; i < len(posts); i++ {
		require.GreaterOrEqual(t, posts[i-1].Ups, posts[i].Ups)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/columns/0", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/board", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[map[string]json.RawMessage](t, resp)
	require.JSONEq(t, `[]`, string(state["columns"]))
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"foo!"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid subreddit name", decode[map[string]any](t, resp)["error"])

	resp = do(t, http.MethodPost, srv.URL+"/api/columns", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"missing"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Equal(t, "Failed to load r/missing: HTTP error! status: 404", body["error"])
	require.Equal(t, "not_found", body["kind"])
	require.Len(t, body["logs"], 2)

	resp = do(t, http.MethodGet, srv.URL+"/api/board", "")
	state := decode[struct {
		Errors map[string]struct {
			Message string `json:"message"`
			Kind    string `json:"kind"`
		} `json:"errors"`
		Error string `json:"error"`
	}](t, resp)
	require.Equal(t, "not_found", state.Errors["missing"].Kind)
	require.Equal(t, "Failed to load r/missing: HTTP error! status: 404", state.Error)

	resp = do(t, http.MethodDelete, srv.URL+"/api/columns/7", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/columns/abc", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"golang"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/columns/0/sort", `{"sort":"best"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/columns/0/refresh", `{"time":"decade"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/columns/0/posts?order=karma", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Overview(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/columns", `{"input":"golang"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "Posts per Column")
	require.Contains(t, string(page), "r/golang")
}
