package collector

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public reddit host used for listings.
const DefaultBaseURL = "https://www.reddit.com"

// DefaultUserAgent identifies the board to reddit.
const DefaultUserAgent = "Mozilla/5.0 (compatible; RedditBoard/1.0; +http://example.com/bot)"

// ListingLimit is the number of posts requested per listing.
const ListingLimit = 50

type clientOptions struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*clientOptions)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(base, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRateInterval allows one request per interval. Zero disables throttling.
func WithRateInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithProxy routes requests through an HTTP(S) or SOCKS5 proxy.
func WithProxy(proxyURL string) Option {
	return func(o *clientOptions) {
		if proxyURL != "" {
			o.httpClient = &http.Client{Transport: newTransportWithProxy(proxyURL)}
		}
	}
}

func newClientOptions(userAgent string, opts []Option) clientOptions {
	o := clientOptions{
		baseURL:   DefaultBaseURL,
		userAgent: userAgent,
		// No client timeout: a request is bounded only by the caller's context.
		httpClient: &http.Client{},
	}
	if o.userAgent == "" {
		o.userAgent = DefaultUserAgent
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o clientOptions) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

// newTransportWithProxy creates an http.Transport with proxy support.
// SOCKS proxies go through golang.org/x/net/proxy, anything else through http.ProxyURL.
func newTransportWithProxy(proxyURL string) *http.Transport {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return &http.Transport{}
	}

	if strings.HasPrefix(parsed.Scheme, "socks") {
		var auth *proxy.Auth
		if parsed.User != nil {
			auth = &proxy.Auth{User: parsed.User.Username()}
			if password, ok := parsed.User.Password(); ok {
				auth.Password = password
			}
		}

		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return &http.Transport{}
		}

		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	}

	return &http.Transport{Proxy: http.ProxyURL(parsed)}
}
