package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/httputil"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// DefaultBaseURL is the public Yahoo Finance API host
const DefaultBaseURL = "https://query2.finance.yahoo.com"

// modules requested from quoteSummary
var modules = []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData", "assetProfile"}

// errNotFound marks a symbol Yahoo does not know. It is a per-symbol
// failure and does not count against the circuit breaker.
var errNotFound = errors.New("symbol not found")

// Options configures the Yahoo client
type Options struct {
	BaseURL string

	// circuit breaker
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

// DefaultOptions trips after 5 consecutive provider failures and probes again after 30s
func DefaultOptions() Options {
	return Options{
		BaseURL:                DefaultBaseURL,
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
	}
}

// Client fetches fundamentals from Yahoo Finance quoteSummary
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
	baseURL    string
}

var _ contracts.MetricSource = (*Client)(nil)

// NewClient creates a new Yahoo Finance client.
// Retries are disabled on httpClient: a failed symbol is retried on a later
// run once its failure marker expires.
func NewClient(httpClient *httputil.Client, opts Options, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxConsecutiveFailures == 0 {
		opts.MaxConsecutiveFailures = DefaultOptions().MaxConsecutiveFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOptions().OpenTimeout
	}

	c := &Client{
		httpClient: httpClient.DisableRetry(),
		logger:     log.WithComponent("yahoo"),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
	}

	maxFailures := opts.MaxConsecutiveFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// 종목 단위 실패와 호출자 취소는 공급자 장애로 보지 않음
			return err == nil ||
				errors.Is(err, errNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return c
}

// BreakerState reports the circuit breaker state (closed, half-open, open)
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Fetch returns the normalized metric snapshot for symbol.
// Every error wraps contracts.ErrDataUnavailable.
func (c *Client) Fetch(ctx context.Context, symbol string) (contracts.MetricSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return contracts.MetricSnapshot{}, fmt.Errorf("%w: empty symbol", contracts.ErrDataUnavailable)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.quoteSummary(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return contracts.MetricSnapshot{}, fmt.Errorf("%w: %s: yahoo circuit %s", contracts.ErrDataUnavailable, symbol, err)
		}
		return contracts.MetricSnapshot{}, fmt.Errorf("%w: %s: %w", contracts.ErrDataUnavailable, symbol, err)
	}

	result := out.(quoteSummaryResult)
	snap := result.toRaw(symbol).Snapshot()

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"sector": snap.Sector,
	}).Debug("Fetched quote summary")

	return snap, nil
}

// quoteSummary performs one request and unwraps the envelope
func (c *Client) quoteSummary(ctx context.Context, symbol string) (quoteSummaryResult, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(modules, ","))
	fullURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var resp quoteSummaryResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return quoteSummaryResult{}, errNotFound
		}
		return quoteSummaryResult{}, err
	}

	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return quoteSummaryResult{}, fmt.Errorf("%w: %s", errNotFound, e.Description)
		}
		return quoteSummaryResult{}, fmt.Errorf("quoteSummary error %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return quoteSummaryResult{}, errNotFound
	}

	return resp.QuoteSummary.Result[0], nil
}
