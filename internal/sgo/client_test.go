package sgo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rateios/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

// scripted answers each request with the next status in the script; 200
// responses carry body.
type scripted struct {
	mu       sync.Mutex
	statuses []int
	body     string
	calls    int
	requests []*http.Request
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Clone(context.Background()))
	status := s.statuses[len(s.statuses)-1]
	if s.calls < len(s.statuses) {
		status = s.statuses[s.calls]
	}
	s.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(s.body))
	}
}

func newTestClient(t *testing.T, h http.Handler, sleep *sleepRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:      srv.URL,
		Token:        "secret-token",
		PaceInterval: -1,
		Sleep:        sleep.Sleep,
	})
	require.NoError(t, err)
	return c
}

func TestFetchBudgetMonthsRetriesOnRateLimit(t *testing.T) {
	h := &scripted{
		statuses: []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK},
		body:     `[{"budgetId": 42, "january": 100}]`,
	}
	sleep := &sleepRecorder{}
	c := newTestClient(t, h, sleep)

	months, err := c.FetchBudgetMonths(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, json.Number("100"), months[0]["january"])

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleep.delays)
	assert.Equal(t, "42", h.requests[0].URL.Query().Get("budgetId"))
	assert.Equal(t, DefaultBudgetMonthsPath, h.requests[0].URL.Path)
}

func TestFetchBudgetMonthsRateLimitExhausted(t *testing.T) {
	h := &scripted{statuses: []int{429, 429, 429, 429}}
	sleep := &sleepRecorder{}
	c := newTestClient(t, h, sleep)

	_, err := c.FetchBudgetMonths(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRateLimitExhausted))

	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "7", apiErr.BudgetID)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, 3, h.calls)
	assert.Len(t, sleep.delays, 2)
}

func TestFetchBudgetMonthsFatalStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, core.ErrAuth},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusInternalServerError, core.ErrServer},
		{http.StatusBadGateway, core.ErrHTTP},
		{http.StatusNoContent, core.ErrHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			h := &scripted{statuses: []int{tt.status}}
			sleep := &sleepRecorder{}
			c := newTestClient(t, h, sleep)

			_, err := c.FetchBudgetMonths(context.Background(), "1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.False(t, errors.Is(err, core.ErrRateLimitExhausted))
			assert.Equal(t, 1, h.calls)
			assert.Empty(t, sleep.delays)
		})
	}
}

func TestFetchAllBudgetsClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, core.ErrAuth},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusInternalServerError, core.ErrServer},
		{http.StatusTooManyRequests, core.ErrHTTP},
		{http.StatusForbidden, core.ErrHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			h := &scripted{statuses: []int{tt.status}}
			c := newTestClient(t, h, &sleepRecorder{})

			_, err := c.FetchAllBudgets(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, 1, h.calls)
		})
	}
}

func TestFetchAllBudgetsDecodesNumbersExactly(t *testing.T) {
	h := &scripted{
		statuses: []int{http.StatusOK},
		body:     `[{"id": 1, "value": 1234.567, "supplier": {"code": 10}}]`,
	}
	c := newTestClient(t, h, &sleepRecorder{})

	budgets, err := c.FetchAllBudgets(context.Background())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, json.Number("1234.567"), budgets[0]["value"])
	assert.IsType(t, map[string]any{}, budgets[0]["supplier"])
	assert.Equal(t, DefaultBudgetsPath, h.requests[0].URL.Path)
}

func TestFetchAllBudgetsInvalidBody(t *testing.T) {
	h := &scripted{statuses: []int{http.StatusOK}, body: `{"not": "an array"`}
	c := newTestClient(t, h, &sleepRecorder{})

	_, err := c.FetchAllBudgets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDecode))
}

func TestFetchAllBudgetsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: url, Token: "t", PaceInterval: -1})
	require.NoError(t, err)

	_, err = c.FetchAllBudgets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConnection))
	assert.Equal(t, "SGO_CONNECTION", core.ErrorCode(err))
}

func TestRequestsCarryTokenAndAccept(t *testing.T) {
	h := &scripted{statuses: []int{http.StatusOK}, body: `[]`}
	c := newTestClient(t, h, &sleepRecorder{})

	_, err := c.FetchAllBudgets(context.Background())
	require.NoError(t, err)
	_, err = c.FetchBudgetMonths(context.Background(), "3")
	require.NoError(t, err)

	require.Len(t, h.requests, 2)
	for _, r := range h.requests {
		assert.Equal(t, "secret-token", r.Header.Get("Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
	}
}

func TestNewClientRequiresBaseURLAndToken(t *testing.T) {
	_, err := NewClient(Options{Token: "t"})
	assert.Error(t, err)

	_, err = NewClient(Options{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestFetchBudgetMonthsStopsOnCancelledSleep(t *testing.T) {
	h := &scripted{statuses: []int{429}}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:      srv.URL,
		Token:        "t",
		PaceInterval: -1,
		Sleep: func(context.Context, time.Duration) error {
			return context.Canceled
		},
	})
	require.NoError(t, err)

	_, err = c.FetchBudgetMonths(context.Background(), "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.calls)
}

func TestFetchBudgetMonthsPacesRequests(t *testing.T) {
	const interval = 100 * time.Millisecond
	var (
		mu       sync.Mutex
		arrivals []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, Token: "secret-token", PaceInterval: interval})
	require.NoError(t, err)

	start := time.Now()
	for _, id := range []string{"1", "2", "3"} {
		_, err := c.FetchBudgetMonths(context.Background(), id)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 2*interval, "three requests span two intervals")
	require.Len(t, arrivals, 3)
	for i := 1; i < len(arrivals); i++ {
		gap := arrivals[i].Sub(arrivals[i-1])
		assert.GreaterOrEqual(t, gap, interval-20*time.Millisecond, "gap before request %d", i+1)
	}
}
