package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qepting91/redditboard/internal/board"
	"github.com/qepting91/redditboard/internal/domain"
)

// Server exposes the board over HTTP
type Server struct {
	board  *board.Board
	router chi.Router
}

func NewServer(b *board.Board) *Server {
	s := &Server{board: b}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleOverview)

	r.Route("/api", func(r chi.Router) {
		r.Get("/board", s.handleBoard)
		r.Post("/columns", s.handleAddColumn)
		r.Route("/columns/{index}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteColumn)
			r.Get("/posts", s.handlePosts)
			r.Post("/refresh", s.handleRefresh)
			r.Put("/sort", s.handleChangeSort)
			r.Put("/time", s.handleChangeTime)
		})
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// StartServer serves the board on port until ctx is cancelled.
func StartServer(ctx context.Context, b *board.Board, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewServer(b).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
	Logs  []string         `json:"logs,omitempty"`
}

type columnError struct {
	Message string           `json:"message"`
	Kind    domain.ErrorKind `json:"kind"`
}

type boardResponse struct {
	Columns []domain.Column        `json:"columns"`
	Loading map[string]bool        `json:"loading"`
	Errors  map[string]columnError `json:"errors"`
	Error   string                 `json:"error,omitempty"`
	Logs    []string               `json:"logs"`
}

type addColumnRequest struct {
	Input string `json:"input"`
}

type refreshRequest struct {
	Sort string `json:"sort"`
	Time string `json:"time"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Encode response failed", "err", err)
	}
}

func writeBoardError(w http.ResponseWriter, err error) {
	var opErr *board.OpError
	switch {
	case errors.As(err, &opErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: opErr.Message,
			Kind:  domain.ClassifyError(opErr.Message),
			Logs:  domain.TraceOf(err),
		})
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSort),
		errors.Is(err, domain.ErrInvalidWindow):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, board.ErrAlreadyAdded), errors.Is(err, board.ErrInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, board.ErrColumnNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		slog.Error("Board operation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func parseIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, board.ErrColumnNotFound
	}
	return idx, nil
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	state := s.board.Snapshot()

	resp := boardResponse{
		Columns: state.Columns,
		Loading: state.Loading,
		Errors:  make(map[string]columnError, len(state.Errors)),
		Error:   state.Error,
		Logs:    state.Logs,
	}
	for name, msg := range state.Errors {
		resp.Errors[name] = columnError{Message: msg, Kind: domain.ClassifyError(msg)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	col, err := s.board.AddColumn(r.Context(), req.Input)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, col)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	if err := s.board.DeleteColumn(r.Context(), idx); err != nil {
		writeBoardError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	order, err := domain.ParseLocalSort(r.URL.Query().Get("order"))
	if err != nil {
		writeBoardError(w, err)
		return
	}
	col, err := s.board.Column(idx)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SortPosts(col.Posts, order))
}

// handleRefresh re-fetches a column. Missing fields keep the column's current setting.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	col, err := s.board.Column(idx)
	if err != nil {
		writeBoardError(w, err)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
			return
		}
	}

	sort, window := col.SortBy, col.TimeFilter
	if req.Sort != "" {
		if sort, err = domain.ParseSortMode(req.Sort); err != nil {
			writeBoardError(w, err)
			return
		}
	}
	if req.Time != "" {
		if window, err = domain.ParseTimeWindow(req.Time); err != nil {
			writeBoardError(w, err)
			return
		}
	}

	updated, err := s.board.RefreshColumn(r.Context(), idx, sort, window)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleChangeSort(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	sort, err := domain.ParseSortMode(req.Sort)
	if err != nil {
		writeBoardError(w, err)
		return
	}

	col, err := s.board.ChangeSort(r.Context(), idx, sort)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

func (s *Server) handleChangeTime(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	window, err := domain.ParseTimeWindow(req.Time)
	if err != nil {
		writeBoardError(w, err)
		return
	}

	col, err := s.board.ChangeTimeWindow(r.Context(), idx, window)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

// requestLogger logs every request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			slog.Error("http request", attrs...)
		case status >= 400:
			slog.Warn("http request", attrs...)
		default:
			slog.Debug("http request", attrs...)
		}
	})
}
