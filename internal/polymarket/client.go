package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/arbscan/internal/logging"
)

const (
	defaultBaseURL     = "https://clob.polymarket.com/simplified-markets"
	defaultMaxAttempts = 5
	// endCursor is the CLOB sentinel for "no further pages".
	endCursor = "LTE="
)

// Client lists markets from the Polymarket CLOB.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	pages       int
	maxAttempts int
}

// Config controls optional overrides for the client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Pages       int
	MaxAttempts int
}

// NewClient builds a Polymarket client with sane defaults.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	pages := cfg.Pages
	if pages <= 0 {
		pages = 1
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Client{
		baseURL:     base,
		pages:       pages,
		maxAttempts: attempts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchMarkets walks up to the configured number of cursor pages. Records that
// fail to decode are skipped. A failure after the first page keeps what was
// already collected.
func (c *Client) FetchMarkets(ctx context.Context) ([]Market, error) {
	var (
		out    []Market
		cursor string
	)
	for page := 0; page < c.pages; page++ {
		resp, err := c.listMarkets(ctx, cursor)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("polymarket list markets: %w", err)
			}
			logging.Errorf("[polymarket] page %d failed, keeping %d markets: %v", page+1, len(out), err)
			break
		}
		out = append(out, decodeMarkets(resp.Data)...)

		cursor = resp.NextCursor
		if cursor == "" || cursor == endCursor {
			break
		}
	}
	logging.Debugf("[polymarket] fetched %d markets", len(out))
	return out, nil
}

func (c *Client) listMarkets(ctx context.Context, cursor string) (*marketsPage, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	if cursor != "" {
		q := u.Query()
		q.Set("next_cursor", cursor)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var page marketsPage
	if err := c.do(ctx, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func decodeMarkets(raw []json.RawMessage) []Market {
	out := make([]Market, 0, len(raw))
	for i, item := range raw {
		var m Market
		if err := json.Unmarshal(item, &m); err != nil {
			logging.Debugf("[polymarket] skip record %d: %v", i, err)
			continue
		}
		out = append(out, m)
	}
	return out
}

func (c *Client) do(ctx context.Context, req *http.Request, dst any) error {
	var attempt int
	for {
		attempt++
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if c.shouldRetry(attempt, 0) {
				if werr := sleep(ctx, attempt); werr != nil {
					return err
				}
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

		if c.shouldRetry(attempt, resp.StatusCode) {
			if werr := sleep(ctx, attempt); werr != nil {
				return werr
			}
			continue
		}
		return fmt.Errorf("polymarket API %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
}

func (c *Client) shouldRetry(attempt int, status int) bool {
	if attempt >= c.maxAttempts {
		return false
	}
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func sleep(ctx context.Context, attempt int) error {
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type marketsPage struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor string            `json:"next_cursor"`
	Limit      int               `json:"limit"`
	Count      int               `json:"count"`
}

// Market is one CLOB listing as returned by the API.
type Market struct {
	ConditionID string  `json:"condition_id"`
	Question    string  `json:"question"`
	Description string  `json:"description"`
	EndDateISO  string  `json:"end_date_iso"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
	Tokens      []Token `json:"tokens"`
}

type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Price   Price  `json:"price"`
}

// Price accepts both JSON numbers and quoted decimals.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*p = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("price %q: not finite", s)
	}
	*p = Price(f)
	return nil
}
