package collector

import (
	"fmt"

	"github.com/qepting91/redditboard/internal/config"
	"github.com/qepting91/redditboard/internal/domain"
)

// NewFetcher selects the correct implementation based on the mode
func NewFetcher(cfg config.RedditConfig) (domain.Fetcher, error) {
	var opts []Option
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, WithProxy(cfg.ProxyURL))
	}
	if cfg.RateInterval > 0 {
		opts = append(opts, WithRateInterval(cfg.RateInterval))
	}

	switch cfg.Mode {
	case "public", "":
		return NewPublicClient(cfg.UserAgent, opts...)
	case "rss":
		return NewRSSClient(cfg.UserAgent, opts...)
	case "api":
		return NewAPIClient(cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.UserAgent)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'public', 'api', 'rss', or 'mock')", cfg.Mode)
	}
}
