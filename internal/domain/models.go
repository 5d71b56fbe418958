package domain

import (
	"context"
	"errors"
	"fmt"
)

// SortMode is the server-side ordering requested from reddit
type SortMode string

const (
	SortHot    SortMode = "hot"
	SortNew    SortMode = "new"
	SortTop    SortMode = "top"
	SortRising SortMode = "rising"
)

// TimeWindow restricts the scoring period of the top listing
type TimeWindow string

const (
	TimeHour  TimeWindow = "hour"
	TimeDay   TimeWindow = "day"
	TimeWeek  TimeWindow = "week"
	TimeMonth TimeWindow = "month"
	TimeYear  TimeWindow = "year"
	TimeAll   TimeWindow = "all"
)

const (
	DefaultSort   = SortHot
	DefaultWindow = TimeDay
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSort     = errors.New("invalid sort mode")
	ErrInvalidWindow   = errors.New("invalid time window")
	ErrInvalidResponse = errors.New("invalid response format")
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(s); m {
	case SortHot, SortNew, SortTop, SortRising:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

func ParseTimeWindow(s string) (TimeWindow, error) {
	switch w := TimeWindow(s); w {
	case TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

// Post is one normalized listing item. Produced by a Fetcher and never mutated afterwards.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Author      string   `json:"author"`
	Created     int64    `json:"created"`
	Selftext    string   `json:"selftext,omitempty"`
	Ups         int      `json:"ups"`
	NumComments int      `json:"num_comments"`
	Thumbnail   string   `json:"thumbnail"`
	Preview     *Preview `json:"preview,omitempty"`
	IsVideo     bool     `json:"is_video"`
	Media       *Media   `json:"media,omitempty"`
	VideoURL    *string  `json:"videoUrl"`
	GIFURL      *string  `json:"gifUrl"`
}

type Preview struct {
	Images             []PreviewImage `json:"images"`
	RedditVideoPreview *RedditVideo   `json:"reddit_video_preview,omitempty"`
}

type PreviewImage struct {
	Source   ImageSource    `json:"source"`
	Variants *ImageVariants `json:"variants,omitempty"`
}

type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ImageVariants struct {
	GIF *ImageVariant `json:"gif,omitempty"`
	MP4 *ImageVariant `json:"mp4,omitempty"`
}

type ImageVariant struct {
	Source ImageSource `json:"source"`
}

type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video,omitempty"`
}

type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
}

// Column is one monitored subreddit on the board
type Column struct {
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Posts         []Post     `json:"posts"`
	LastRefreshed int64      `json:"lastRefreshed"`
	SortBy        SortMode   `json:"sortBy"`
	TimeFilter    TimeWindow `json:"timeFilter"`
}

// CacheEntry is the persisted form of a fetch result
type CacheEntry struct {
	Posts         []Post     `json:"posts"`
	LastRefreshed int64      `json:"lastRefreshed"`
	SortBy        SortMode   `json:"sortBy"`
	TimeFilter    TimeWindow `json:"timeFilter"`
}

// ColumnURL returns the canonical subreddit address for name.
func ColumnURL(name string) string {
	return "https://reddit.com/r/" + name
}

// NewColumn builds a column from a cache entry.
func NewColumn(name string, e CacheEntry) Column {
	return Column{
		Name:          name,
		URL:           ColumnURL(name),
		Posts:         e.Posts,
		LastRefreshed: e.LastRefreshed,
		SortBy:        e.SortBy,
		TimeFilter:    e.TimeFilter,
	}
}

// Entry strips the column down to what gets cached.
func (c Column) Entry() CacheEntry {
	return CacheEntry{
		Posts:         c.Posts,
		LastRefreshed: c.LastRefreshed,
		SortBy:        c.SortBy,
		TimeFilter:    c.TimeFilter,
	}
}

// FetchResult is a successful fetch together with its trace
type FetchResult struct {
	Posts []Post
	Trace []string
}

// FetchError carries the cause of a failed fetch and the trace collected up to it
type FetchError struct {
	Err   error
	Trace []string
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TraceOf returns the trace attached to err, if any.
func TraceOf(err error) []string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Trace
	}
	return nil
}

// Fetcher defines the interface for retrieving a subreddit listing.
// Failures are returned as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, subreddit string, sort SortMode, window TimeWindow) (FetchResult, error)
}
