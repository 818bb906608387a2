// Package dexscreener fetches token pairs from the DexScreener search API.
package dexscreener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	xhttp "TokenPull/pkg/http"
	applogger "TokenPull/pkg/logger"
	xutil "TokenPull/pkg/util"
)

const Name = "dexscreener"

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithChainID keeps only pairs on the given chain. Empty keeps all.
func WithChainID(id string) Option {
	return func(c *Client) {
		c.chainID = id
	}
}

// WithQueries sets the search terms issued on each fetch.
func WithQueries(q []string) Option {
	return func(c *Client) {
		if len(q) > 0 {
			c.queries = q
		}
	}
}

// WithQueryDelay sets the pause between consecutive search requests.
func WithQueryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.queryDelay = d
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client implements repository.TokenProvider.
type Client struct {
	http       *xhttp.Client
	baseURL    string
	chainID    string
	queries    []string
	queryDelay time.Duration
	logger     *applogger.Logger
	now        func() time.Time
}

func New(opts ...Option) *Client {
	c := &Client{
		http:       xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		baseURL:    "https://api.dexscreener.com",
		queries:    []string{"solana"},
		queryDelay: 250 * time.Millisecond,
		logger:     applogger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// FetchAll runs every configured search query, pausing between them. A query
// that fails is skipped; the call only fails when every query failed.
func (c *Client) FetchAll(ctx context.Context) ([]models.RawRecord, error) {
	var (
		out     []models.RawRecord
		lastErr error
		ok      int
	)
	for i, q := range c.queries {
		if i > 0 && c.queryDelay > 0 {
			if err := sleep(ctx, c.queryDelay); err != nil {
				return out, err
			}
		}
		pairs, err := c.search(ctx, q)
		if err != nil {
			lastErr = err
			c.logger.Warn("dexscreener: search failed", applogger.String("query", q), applogger.Error(err))
			continue
		}
		ok++
		for _, p := range pairs {
			if c.chainID != "" && !strings.EqualFold(p.ChainID, c.chainID) {
				continue
			}
			if rec, valid := c.toRaw(p); valid {
				out = append(out, rec)
			}
		}
	}
	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, q string) ([]pair, error) {
	var resp searchResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/latest/dex/search",
		QueryParams: map[string][]string{"q": {q}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("dexscreener search %q: %w", q, err)
	}
	return resp.Pairs, nil
}

func (c *Client) toRaw(p pair) (models.RawRecord, bool) {
	if p.BaseToken.Address == "" {
		return models.RawRecord{}, false
	}

	changes := make(map[models.Period]float64, 2)
	if v, ok := p.PriceChange["h1"]; ok {
		changes[models.Period1h] = v
	}
	if v, ok := p.PriceChange["h24"]; ok {
		changes[models.Period24h] = v
	}

	volume := p.Volume["h24"]
	mv := p.MarketCap
	if mv <= 0 {
		mv = p.FDV
	}
	if mv <= 0 {
		mv = models.EstimateMarketValue(volume)
	}

	tx := p.Txns["h24"]
	price := xutil.ParseFloatDefault(p.PriceUSD, 0)
	return models.RawRecord{
		Address:     p.BaseToken.Address,
		Name:        p.BaseToken.Name,
		Ticker:      p.BaseToken.Symbol,
		Price:       price,
		MarketValue: mv,
		Volume:      volume,
		Liquidity:   p.Liquidity.USD,
		TxCount:     tx.Buys + tx.Sells,
		PriceChange: changes,
		Protocol:    p.DexID,
		Source:      Name,
		UpdatedAt:   c.now(),
	}, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ drepo.TokenProvider = (*Client)(nil)
