package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/qepting91/redditboard/internal/domain"
)

// MockClient implements domain.Fetcher but returns fake data
type MockClient struct {
	Latency time.Duration
	Count   int
}

func NewMockClient() *MockClient {
	return &MockClient{Latency: 200 * time.Millisecond, Count: 10}
}

func (mc *MockClient) Fetch(ctx context.Context, sub string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	var tr trace
	tr.addf("Fetching %s posts for r/%s (mock)", sort, sub)

	// Simulate network latency (nice for testing concurrency)
	select {
	case <-time.After(mc.Latency):
	case <-ctx.Done():
		return domain.FetchResult{}, tr.fail(ctx.Err())
	}

	now := time.Now()
	posts := make([]domain.Post, 0, mc.Count)
	for i := 0; i < mc.Count; i++ {
		// Scores are derived from the position so local sorting has something to do
		posts = append(posts, domain.Post{
			ID:          fmt.Sprintf("mock_%s_%d", sub, i),
			Title:       fmt.Sprintf("[%s] Simulated %s post #%d (%s)", sub, sort, i, window),
			URL:         fmt.Sprintf("https://www.reddit.com/r/%s/comments/mock_%d/", sub, i),
			Author:      "simulated_user",
			Created:     now.Add(-time.Duration(i) * time.Minute).UnixMilli(),
			Ups:         (i * 37) % 500,
			NumComments: (i * 13) % 50,
		})
	}

	tr.addf("Processed %d posts", len(posts))
	return domain.FetchResult{Posts: posts, Trace: tr}, nil
}
