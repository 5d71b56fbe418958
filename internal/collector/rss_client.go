package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/qepting91/redditboard/internal/domain"
)

// RSSClient reads the Atom listings. They carry no vote or comment counts,
// so those fields stay zero.
type RSSClient struct {
	opts   clientOptions
	parser *gofeed.Parser
}

func NewRSSClient(userAgent string, opts ...Option) (*RSSClient, error) {
	return &RSSClient{
		opts:   newClientOptions(userAgent, opts),
		parser: gofeed.NewParser(),
	}, nil
}

func rssURL(base, sub string, sort domain.SortMode, window domain.TimeWindow) string {
	u := fmt.Sprintf("%s/r/%s/%s/.rss?limit=%d", base, sub, sort, ListingLimit)
	if sort == domain.SortTop {
		u += "&t=" + string(window)
	}
	return u
}

func (rc *RSSClient) Fetch(ctx context.Context, sub string, sort domain.SortMode, window domain.TimeWindow) (domain.FetchResult, error) {
	var tr trace
	tr.addf("Fetching %s posts for r/%s", sort, sub)

	url := rssURL(rc.opts.baseURL, sub, sort, window)
	tr.addf("URL: %s", url)

	if err := rc.opts.wait(ctx); err != nil {
		return domain.FetchResult{}, tr.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FetchResult{}, tr.fail(err)
	}
	req.Header.Set("User-Agent", rc.opts.userAgent)

	resp, err := rc.opts.httpClient.Do(req)
	if err != nil {
		return domain.FetchResult{}, tr.fail(fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	tr.addf("Response status: %d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FetchResult{}, tr.fail(&HTTPStatusError{StatusCode: resp.StatusCode})
	}

	feed, err := rc.parser.Parse(resp.Body)
	if err != nil {
		return domain.FetchResult{}, tr.fail(fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err))
	}
	tr.addf("Response received. Parsing feed data.")

	now := time.Now()
	posts := make([]domain.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		posts = append(posts, itemToPost(item, now))
	}

	tr.addf("Processed %d posts", len(posts))
	return domain.FetchResult{Posts: posts, Trace: tr}, nil
}

func itemToPost(item *gofeed.Item, now time.Time) domain.Post {
	p := domain.Post{
		ID:       strings.TrimPrefix(item.GUID, "t3_"),
		Title:    item.Title,
		URL:      item.Link,
		Selftext: item.Content,
		Created:  now.UnixMilli(),
	}
	switch {
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		p.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
	case item.Author != nil:
		p.Author = strings.TrimPrefix(item.Author.Name, "/u/")
	}
	if item.PublishedParsed != nil {
		p.Created = item.PublishedParsed.UnixMilli()
	} else if item.UpdatedParsed != nil {
		p.Created = item.UpdatedParsed.UnixMilli()
	}
	if item.Image != nil {
		p.Thumbnail = item.Image.URL
	}
	return p
}
