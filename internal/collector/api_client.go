package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/redditboard/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient reads listings through the authenticated OAuth API
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(id, secret, user, pass, userAgent string) (*APIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min (safe buffer)
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) Fetch(ctx context.Context, sub string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	var tr trace
	tr.addf("Fetching %s posts for r/%s via authenticated API", sort, sub)

	if err := ac.limiter.Wait(ctx); err != nil {
		return domain.FetchResult{}, tr.fail(err)
	}

	list := reddit.ListOptions{Limit: ListingLimit}
	var (
		posts []*reddit.Post
		resp  *reddit.Response
		err   error
	)
	switch sort {
	case domain.SortNew:
		posts, resp, err = ac.client.Subreddit.NewPosts(ctx, sub, &list)
	case domain.SortTop:
		tr.addf("Time window: %s", window)
		posts, resp, err = ac.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{ListOptions: list, Time: string(window)})
	case domain.SortRising:
		posts, resp, err = ac.client.Subreddit.RisingPosts(ctx, sub, &list)
	default:
		posts, resp, err = ac.client.Subreddit.HotPosts(ctx, sub, &list)
	}
	if resp != nil && resp.Response != nil {
		tr.addf("Response status: %d", resp.StatusCode)
	}
	if err != nil {
		if resp != nil && resp.Response != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
			return domain.FetchResult{}, tr.fail(&HTTPStatusError{StatusCode: resp.StatusCode})
		}
		return domain.FetchResult{}, tr.fail(fmt.Errorf("authenticated api error: %w", err))
	}

	now := time.Now()
	result := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		post := domain.Post{
			ID:          p.ID,
			Title:       p.Title,
			URL:         p.URL,
			Author:      p.Author,
			Selftext:    p.Body,
			Ups:         p.Score,
			NumComments: p.NumberOfComments,
			Created:     now.UnixMilli(),
		}
		if p.Created != nil {
			post.Created = p.Created.Time.UnixMilli()
		}
		if post.URL == "" {
			post.URL = "https://www.reddit.com" + p.Permalink
		}
		result = append(result, post)
	}

	tr.addf("Processed %d posts", len(result))
	return domain.FetchResult{Posts: result, Trace: tr}, nil
}
