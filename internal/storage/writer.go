package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// FetchRecord describes one fetch attempt and the trace it produced
type FetchRecord struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Sort      string    `json:"sort"`
	Window    string    `json:"window"`
	At        time.Time `json:"at"`
	Posts     int       `json:"posts"`
	Error     string    `json:"error,omitempty"`
	Trace     []string  `json:"trace"`
}

// WriterService implements the Monitor Pattern for thread safety
type WriterService struct {
	FilePath string
}

// Start drains input into the trace log until input is closed.
func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan FetchRecord) {
	defer wg.Done()

	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("Trace log unavailable", "path", w.FilePath, "err", err)
		// keep draining so producers never block
		for range input {
		}
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)

	for rec := range input {
		// Write as NDJSON
		if err := enc.Encode(rec); err != nil {
			slog.Warn("Trace log write failed", "sub", rec.Subreddit, "err", err)
		}
	}
}
