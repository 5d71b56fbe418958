package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/qepting91/redditboard/internal/domain"
)

// PublicClient reads the unauthenticated JSON listings
type PublicClient struct {
	opts clientOptions
}

type redditJSONResponse struct {
	Data *struct {
		Children json.RawMessage `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Permalink   string          `json:"permalink"`
	Author      string          `json:"author"`
	CreatedUTC  float64         `json:"created_utc"`
	Selftext    string          `json:"selftext"`
	Ups         int             `json:"ups"`
	NumComments int             `json:"num_comments"`
	Thumbnail   string          `json:"thumbnail"`
	PostHint    string          `json:"post_hint"`
	IsVideo     bool            `json:"is_video"`
	Preview     *domain.Preview `json:"preview"`
	Media       *domain.Media   `json:"media"`
}

func NewPublicClient(userAgent string, opts ...Option) (*PublicClient, error) {
	return &PublicClient{opts: newClientOptions(userAgent, opts)}, nil
}

func (pc *PublicClient) Fetch(ctx context.Context, sub string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	var tr trace
	tr.addf("Fetching %s posts for r/%s", sort, sub)

	url := listingURL(pc.opts.baseURL, sub, sort, window)
	tr.addf("URL: %s", url)

	if err := pc.opts.wait(ctx); err != nil {
		return domain.FetchResult{}, tr.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FetchResult{}, tr.fail(err)
	}
	req.Header.Set("User-Agent", pc.opts.userAgent)

	resp, err := pc.opts.httpClient.Do(req)
	if err != nil {
		return domain.FetchResult{}, tr.fail(fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	tr.addf("Response status: %d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FetchResult{}, tr.fail(&HTTPStatusError{StatusCode: resp.StatusCode})
	}

	var rResp redditJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&rResp); err != nil {
		return domain.FetchResult{}, tr.fail(fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err))
	}
	tr.addf("Response received. Parsing JSON data.")

	if rResp.Data == nil {
		return domain.FetchResult{}, tr.fail(domain.ErrInvalidResponse)
	}
	var children []redditChild
	if len(rResp.Data.Children) == 0 || rResp.Data.Children[0] != '[' {
		return domain.FetchResult{}, tr.fail(domain.ErrInvalidResponse)
	}
	if err := json.Unmarshal(rResp.Data.Children, &children); err != nil {
		return domain.FetchResult{}, tr.fail(fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err))
	}

	now := time.Now()
	posts := make([]domain.Post, 0, len(children))
	for _, child := range children {
		posts = append(posts, toPost(child.Data, now))
	}

	tr.addf("Processed %d posts", len(posts))
	return domain.FetchResult{Posts: posts, Trace: tr}, nil
}

func toPost(d redditPost, now time.Time) domain.Post {
	p := domain.Post{
		ID:          d.ID,
		Title:       d.Title,
		URL:         d.URL,
		Author:      d.Author,
		Created:     int64(d.CreatedUTC * 1000),
		Selftext:    d.Selftext,
		Ups:         d.Ups,
		NumComments: d.NumComments,
		Thumbnail:   d.Thumbnail,
		Preview:     d.Preview,
		IsVideo:     d.IsVideo,
		Media:       d.Media,
	}
	if p.URL == "" {
		p.URL = "https://www.reddit.com" + d.Permalink
	}
	if p.Created == 0 {
		p.Created = now.UnixMilli()
	}

	switch {
	case d.IsVideo && d.Media != nil && d.Media.RedditVideo != nil:
		p.VideoURL = strPtr(d.Media.RedditVideo.FallbackURL)
	case d.PostHint == "hosted:video" && d.Preview != nil && d.Preview.RedditVideoPreview != nil:
		p.VideoURL = strPtr(d.Preview.RedditVideoPreview.FallbackURL)
	}

	if d.Preview != nil && len(d.Preview.Images) > 0 {
		if v := d.Preview.Images[0].Variants; v != nil && v.GIF != nil {
			p.GIFURL = strPtr(v.GIF.Source.URL)
		}
	}
	return p
}

func strPtr(s string) *string {
	return &s
}
