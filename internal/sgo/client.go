// Package sgo is the HTTP client for the SGO budget API.
package sgo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rateios/internal/core"
	"rateios/internal/log"

	"golang.org/x/time/rate"
)

const (
	DefaultBudgetsPath      = "/budgets/get-all"
	DefaultBudgetMonthsPath = "/budget-months/get-by-budget-id"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryBaseDelay   = 2 * time.Second
	DefaultPaceInterval     = time.Second
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Observer receives fetch outcomes. metrics.Recorder satisfies it.
type Observer interface {
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
	ObserveRateLimited(budgetID string, attempt int)
}

// Options configures a Client. Zero durations and counts fall back to the
// package defaults, except PaceInterval where a negative value disables
// pacing.
type Options struct {
	BaseURL          string
	Token            string
	BudgetsPath      string
	BudgetMonthsPath string
	Timeout          time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	PaceInterval     time.Duration

	// Transport is the innermost round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
	Sleep     SleepFunc
	Observer  Observer
	Logger    *log.Logger
}

// Client fetches budgets and budget months.
type Client struct {
	baseURL          string
	budgetsPath      string
	budgetMonthsPath string
	maxRetries       int
	retryBaseDelay   time.Duration

	http     *http.Client
	limiter  *rate.Limiter
	sleep    SleepFunc
	observer Observer
	logger   *log.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("sgo: base url is required")
	}
	if opts.Token == "" {
		return nil, errors.New("sgo: token is required")
	}
	if opts.BudgetsPath == "" {
		opts.BudgetsPath = DefaultBudgetsPath
	}
	if opts.BudgetMonthsPath == "" {
		opts.BudgetMonthsPath = DefaultBudgetMonthsPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.PaceInterval == 0 {
		opts.PaceInterval = DefaultPaceInterval
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	logger := opts.Logger.WithComponent(log.ComponentSGO)

	limit := rate.Inf
	if opts.PaceInterval > 0 {
		limit = rate.Every(opts.PaceInterval)
	}

	transport := NewAuthTransport(opts.Token, &log.Transport{Base: opts.Transport, Logger: logger})

	return &Client{
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		budgetsPath:      opts.BudgetsPath,
		budgetMonthsPath: opts.BudgetMonthsPath,
		maxRetries:       opts.MaxRetries,
		retryBaseDelay:   opts.RetryBaseDelay,
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		limiter:  rate.NewLimiter(limit, 1),
		sleep:    opts.Sleep,
		observer: opts.Observer,
		logger:   logger,
	}, nil
}

// FetchAllBudgets lists every budget. Failures are not retried.
func (c *Client) FetchAllBudgets(ctx context.Context) ([]map[string]any, error) {
	endpoint := c.budgetsPath
	status, body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, &core.APIError{Kind: core.ErrConnection, Endpoint: endpoint, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &core.APIError{Kind: core.KindForStatus(status), Endpoint: endpoint, StatusCode: status}
	}
	budgets, err := decode(body)
	if err != nil {
		return nil, &core.APIError{Kind: core.ErrDecode, Endpoint: endpoint, StatusCode: status, Err: err}
	}
	c.logger.InfoContext(ctx, "Budgets fetched", "count", len(budgets))
	return budgets, nil
}

// FetchBudgetMonths returns the apportionment months of one budget.
//
// A 429 is retried up to MaxRetries attempts in total, waiting
// RetryBaseDelay*attempt between attempts; exhaustion yields an
// *core.APIError wrapping core.ErrRateLimitExhausted. Any other non-200
// status or a transport failure is returned as a fatal *core.APIError.
// Requests are spaced by at least PaceInterval.
func (c *Client) FetchBudgetMonths(ctx context.Context, budgetID string) ([]map[string]any, error) {
	endpoint := c.budgetMonthsPath
	query := url.Values{"budgetId": {budgetID}}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		status, body, err := c.get(ctx, endpoint, query)
		if err != nil {
			return nil, &core.APIError{Kind: core.ErrConnection, Endpoint: endpoint, BudgetID: budgetID, Attempts: attempt, Err: err}
		}

		switch status {
		case http.StatusOK:
			months, err := decode(body)
			if err != nil {
				return nil, &core.APIError{Kind: core.ErrDecode, Endpoint: endpoint, StatusCode: status, BudgetID: budgetID, Err: err}
			}
			c.logger.InfoContext(ctx, "Budget months fetched",
				log.FieldBudgetID, budgetID, "count", len(months), log.FieldAttempt, attempt)
			return months, nil

		case http.StatusTooManyRequests:
			c.observer.ObserveRateLimited(budgetID, attempt)
			if attempt >= c.maxRetries {
				return nil, &core.APIError{
					Kind:       core.ErrRateLimitExhausted,
					Endpoint:   endpoint,
					StatusCode: status,
					BudgetID:   budgetID,
					Attempts:   attempt,
				}
			}
			delay := c.retryBaseDelay * time.Duration(attempt)
			c.logger.WarnContext(ctx, "Rate limited, retrying",
				log.FieldBudgetID, budgetID,
				log.FieldAttempt, attempt,
				log.FieldAttempts, c.maxRetries,
				log.FieldDelay, delay.String())
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, &core.APIError{
				Kind:       core.KindForStatus(status),
				Endpoint:   endpoint,
				StatusCode: status,
				BudgetID:   budgetID,
				Attempts:   attempt,
			}
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.ObserveRequest(path, 0, time.Since(start))
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observer.ObserveRequest(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func decode(body []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}
func (nopObserver) ObserveRateLimited(string, int)            {}
