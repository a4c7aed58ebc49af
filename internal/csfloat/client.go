package csfloat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"floatwatch/pkg/logx"
)

type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	// RatePerSec bounds outgoing requests. 0 selects 2, negative disables.
	RatePerSec int
}

// ErrStatus wraps non-200 responses.
var ErrStatus = errors.New("unexpected http status")

const maxBody = 8 << 20

type Client struct {
	mu      sync.RWMutex
	cfg     Config
	limiter *rate.Limiter

	hc  *http.Client
	log logx.Logger
}

// New returns a client. hc may be nil.
func New(cfg Config, hc *http.Client, log logx.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	c := &Client{hc: hc, log: log}
	c.Apply(cfg)
	return c
}

func (c *Client) Apply(cfg Config) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "floatwatch/1"
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 2
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	c.mu.Lock()
	c.cfg, c.limiter = cfg, lim
	c.mu.Unlock()
}

// Fetch queries the listings endpoint with q as the query string.
func (c *Client) Fetch(ctx context.Context, q QueryParams) FetchResult {
	c.mu.RLock()
	cfg, lim := c.cfg, c.limiter
	c.mu.RUnlock()

	start := time.Now()
	res := c.fetch(ctx, cfg, lim, q)
	res.Took = time.Since(start)
	if res.Err != nil {
		res.Status, res.Listings = StatusDegraded, nil
		c.log.Warn("csfloat fetch degraded",
			logx.String("query", q.Encode()),
			logx.Stringer("status", res.Status),
			logx.Int("http_status", res.HTTPStatus),
			logx.Duration("took", res.Took),
			logx.Err(res.Err),
		)
		return res
	}
	c.log.Debug("csfloat fetch", logx.String("query", q.Encode()), logx.Int("listings", len(res.Listings)), logx.Duration("took", res.Took))
	return res
}

func (c *Client) fetch(ctx context.Context, cfg Config, lim *rate.Limiter, q QueryParams) FetchResult {
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return FetchResult{Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	u := cfg.BaseURL
	if enc := q.Encode(); enc != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + enc
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return FetchResult{Err: fmt.Errorf("could not create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", cfg.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return FetchResult{Err: fmt.Errorf("could not perform request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return FetchResult{
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var env struct {
		Data []Listing `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&env); err != nil {
		return FetchResult{HTTPStatus: resp.StatusCode, Err: fmt.Errorf("could not json-decode response: %w", err)}
	}
	if env.Data == nil {
		env.Data = []Listing{}
	}
	return FetchResult{Listings: env.Data, Status: StatusOK, HTTPStatus: resp.StatusCode}
}
