package odds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"betai/internal/logger"
	"betai/internal/metrics"
)

const (
	defaultTimeout  = 12 * time.Second
	defaultCacheTTL = 60 * time.Second
	maxBodyBytes    = 8 << 20
	cachePrefix     = "betai:odds:"
)

// Options configures a Client. Only APIKey and BaseURL are required.
type Options struct {
	BaseURL    string
	APIKey     string
	Regions    string
	Timeout    time.Duration
	CacheTTL   time.Duration
	Cache      Cache
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the-odds-api v4.
type Client struct {
	baseURL  string
	apiKey   string
	regions  string
	ttl      time.Duration
	timeout  time.Duration
	cache    Cache
	http     *http.Client
	log      *zap.Logger
	inflight singleflight.Group
}

// NewClient builds a gateway from opts.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Regions == "" {
		opts.Regions = "us"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  strings.TrimSpace(opts.APIKey),
		regions: opts.Regions,
		ttl:     opts.CacheTTL,
		timeout: opts.Timeout,
		cache:   opts.Cache,
		http:    httpClient,
		log:     logger.OrNop(opts.Logger),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// FetchOdds returns the events for sportKey. markets defaults to moneyline.
func (c *Client) FetchOdds(ctx context.Context, sportKey string, markets ...string) ([]Event, error) {
	if !c.Configured() {
		return nil, &Error{Kind: KindConfig, Message: "odds API key not configured"}
	}
	key := ResolveSportKey(sportKey)
	if len(markets) == 0 {
		markets = []string{MarketH2H}
	}

	q := url.Values{}
	q.Set("regions", c.regions)
	q.Set("markets", strings.Join(markets, ","))
	q.Set("oddsFormat", "decimal")

	return load(ctx, c, "/sports/"+url.PathEscape(key)+"/odds/", q, parseEvents)
}

// ListSports returns the provider's sports listing.
func (c *Client) ListSports(ctx context.Context) ([]Sport, error) {
	if !c.Configured() {
		return nil, &Error{Kind: KindConfig, Message: "odds API key not configured"}
	}
	return load(ctx, c, "/sports/", url.Values{}, parseSports)
}

func parseEvents(body []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, decodeError(err)
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, decodeError(err)
		}
	}
	return events, nil
}

func parseSports(body []byte) ([]Sport, error) {
	var sports []Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, decodeError(err)
	}
	return sports, nil
}

// load serves path from the cache when possible, otherwise fetches it once
// for all concurrent callers. Only bodies that parse cleanly are cached.
// The shared fetch is detached from any single caller's context and bounded
// by the client timeout; each caller stops waiting when its own ctx ends.
func load[T any](ctx context.Context, c *Client, path string, q url.Values, parse func([]byte) (T, error)) (T, error) {
	cacheKey := cachePrefix + path + "?" + q.Encode()

	if body, ok := c.cacheGet(ctx, cacheKey); ok {
		if v, err := parse(body); err == nil {
			return v, nil
		}
		c.log.Warn("discarding undecodable cached odds", zap.String("key", cacheKey))
	}

	ch := c.inflight.DoChan(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		body, err := c.get(fetchCtx, path, q)
		if err != nil {
			return nil, err
		}
		if _, err := parse(body); err != nil {
			return nil, err
		}
		c.cacheSet(fetchCtx, cacheKey, body)
		return body, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.log.Debug("odds fetch shared", zap.String("path", path))
		}
		return parse(res.Val.([]byte))
	case <-ctx.Done():
		return zero, transportError(ctx.Err())
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("odds", start, err) }()

	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("odds request failed", zap.String("path", path), zap.Error(redact(err)))
		return nil, transportError(redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.log.Warn("odds request rejected", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, statusError(resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read odds response: %w", err))
	}
	return body, nil
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("odds cache read failed", zap.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return body, true
}

func (c *Client) cacheSet(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		c.log.Warn("odds cache write failed", zap.Error(err))
	}
}

// redact strips the query string from url errors so the API key never reaches logs or replies.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
		}
	}
	return err
}
