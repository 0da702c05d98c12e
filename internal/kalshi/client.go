package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hetulpatel/arbscan/internal/logging"
)

const (
	defaultBaseURL     = "https://api.elections.kalshi.com/trade-api/v2/markets"
	defaultPageSize    = 100
	defaultStatus      = "open"
	defaultMaxAttempts = 5
)

// Client lists markets from the Kalshi trade API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	pages       int
	pageSize    int
	status      string
	maxAttempts int
}

// Config controls optional overrides for the client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Pages       int
	PageSize    int
	Status      string
	MaxAttempts int
}

// NewClient builds a configured Kalshi API client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL:     base,
		pages:       cfg.Pages,
		pageSize:    cfg.PageSize,
		status:      cfg.Status,
		maxAttempts: cfg.MaxAttempts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if c.pages <= 0 {
		c.pages = 1
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.status == "" {
		c.status = defaultStatus
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	return c
}

// FetchMarkets walks up to the configured number of cursor pages.
func (c *Client) FetchMarkets(ctx context.Context) ([]Market, error) {
	var (
		out    []Market
		cursor string
	)
	for page := 0; page < c.pages; page++ {
		resp, err := c.listMarkets(ctx, cursor)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("kalshi list markets: %w", err)
			}
			logging.Errorf("[kalshi] page %d failed, keeping %d markets: %v", page+1, len(out), err)
			break
		}
		for i, item := range resp.Markets {
			var m Market
			if err := json.Unmarshal(item, &m); err != nil {
				logging.Debugf("[kalshi] skip record %d on page %d: %v", i, page+1, err)
				continue
			}
			out = append(out, m)
		}
		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}
	logging.Debugf("[kalshi] fetched %d markets", len(out))
	return out, nil
}

func (c *Client) listMarkets(ctx context.Context, cursor string) (*marketsResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("status", c.status)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var resp marketsResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, dst any) error {
	for attempt := 1; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if c.retryable(attempt, 0) && sleep(ctx, attempt) == nil {
				continue
			}
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(dst)
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()

		if c.retryable(attempt, resp.StatusCode) {
			if err := sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}
		return fmt.Errorf("kalshi API %s: %s", resp.Status, string(body))
	}
}

func (c *Client) retryable(attempt int, status int) bool {
	if attempt >= c.maxAttempts {
		return false
	}
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func sleep(ctx context.Context, attempt int) error {
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

type marketsResponse struct {
	Markets []json.RawMessage `json:"markets"`
	Cursor  string            `json:"cursor"`
}

// Market is one Kalshi listing. Quotes are in cents.
type Market struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	MarketType     string  `json:"market_type"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	Status         string  `json:"status"`
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// MidPrice is the bid/ask midpoint for a side, in cents.
func MidPrice(m Market, side Side) float64 {
	if side == SideNo {
		return (m.NoBid + m.NoAsk) / 2
	}
	return (m.YesBid + m.YesAsk) / 2
}
