package collector

import (
	"fmt"

	"github.com/qepting91/redditboard/internal/domain"
)

// HTTPStatusError is returned when reddit answers with a non-2xx status
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// trace collects the human readable steps of one fetch attempt.
type trace []string

func (t *trace) addf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

// fail records err as the last step and wraps it together with the trace.
func (t *trace) fail(err error) error {
	t.addf("Error: %v", err)
	return &domain.FetchError{Err: err, Trace: *t}
}

func listingURL(base, sub string, sort domain.SortMode, window domain.TimeWindow) string {
	u := fmt.Sprintf("%s/r/%s/%s.json?limit=%d", base, sub, sort, ListingLimit)
	if sort == domain.SortTop {
		u += "&t=" + string(window)
	}
	return u
}
