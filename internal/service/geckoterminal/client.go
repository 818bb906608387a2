// Package geckoterminal fetches trending pools from the GeckoTerminal API.
package geckoterminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	xhttp "TokenPull/pkg/http"
	applogger "TokenPull/pkg/logger"
	xutil "TokenPull/pkg/util"
)

const Name = "geckoterminal"

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithNetwork(n string) Option {
	return func(c *Client) {
		if n != "" {
			c.network = n
		}
	}
}

// WithPages sets how many trending_pools pages are read per fetch.
func WithPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pages = n
		}
	}
}

func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		c.pageDelay = d
	}
}

func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client implements repository.TokenProvider over trending pools.
type Client struct {
	http      *xhttp.Client
	baseURL   string
	network   string
	pages     int
	pageDelay time.Duration
	logger    *applogger.Logger
	now       func() time.Time
}

func New(opts ...Option) *Client {
	c := &Client{
		http:      xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		baseURL:   "https://api.geckoterminal.com/api/v2",
		network:   "solana",
		pages:     1,
		pageDelay: 500 * time.Millisecond,
		logger:    applogger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// FetchAll reads pages 1..N. A failing page stops pagination; records from
// earlier pages are still returned. The first page failing fails the call.
func (c *Client) FetchAll(ctx context.Context) ([]models.RawRecord, error) {
	var out []models.RawRecord
	for page := 1; page <= c.pages; page++ {
		if page > 1 && c.pageDelay > 0 {
			if err := sleep(ctx, c.pageDelay); err != nil {
				return out, err
			}
		}
		pools, err := c.trending(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("geckoterminal: page failed", applogger.Int("page", page), applogger.Error(err))
			break
		}
		if len(pools) == 0 {
			break
		}
		for _, p := range pools {
			if rec, ok := c.toRaw(p); ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (c *Client) trending(ctx context.Context, page int) ([]pool, error) {
	var resp poolsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/networks/%s/trending_pools", c.baseURL, c.network),
		QueryParams: map[string][]string{"page": {strconv.Itoa(page)}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("geckoterminal trending page %d: %w", page, err)
	}
	return resp.Data, nil
}

func (c *Client) toRaw(p pool) (models.RawRecord, bool) {
	addr := strings.TrimPrefix(p.Relationships.BaseToken.Data.ID, c.network+"_")
	if addr == "" {
		return models.RawRecord{}, false
	}
	a := p.Attributes

	name, ticker := splitPoolName(a.Name)

	changes := make(map[models.Period]float64, 2)
	if v := xutil.ParseFloatOptional(a.PriceChangePercentage["h1"]); v != nil {
		changes[models.Period1h] = *v
	}
	if v := xutil.ParseFloatOptional(a.PriceChangePercentage["h24"]); v != nil {
		changes[models.Period24h] = *v
	}

	volume := xutil.ParseFloatDefault(a.VolumeUSD["h24"], 0)
	mv := optionalFloat(a.MarketCapUSD)
	if mv <= 0 {
		mv = optionalFloat(a.FDVUSD)
	}
	if mv <= 0 {
		mv = models.EstimateMarketValue(volume)
	}

	tx := a.Transactions["h24"]
	return models.RawRecord{
		Address:     addr,
		Name:        name,
		Ticker:      ticker,
		Price:       xutil.ParseFloatDefault(a.BaseTokenPriceUSD, 0),
		MarketValue: mv,
		Volume:      volume,
		Liquidity:   xutil.ParseFloatDefault(a.ReserveInUSD, 0),
		TxCount:     tx.Buys + tx.Sells,
		PriceChange: changes,
		Protocol:    p.Relationships.Dex.Data.ID,
		Source:      Name,
		UpdatedAt:   c.now(),
	}, true
}

// splitPoolName turns "BONK / SOL" into ("BONK", "BONK").
func splitPoolName(s string) (string, string) {
	base, _, _ := strings.Cut(s, " / ")
	base = strings.TrimSpace(base)
	return base, strings.ToUpper(base)
}

func optionalFloat(s *string) float64 {
	if s == nil {
		return 0
	}
	return xutil.ParseFloatDefault(*s, 0)
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
