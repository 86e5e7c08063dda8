package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rateios/internal/core"
	"rateios/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	exchangeErr error
	publishErr  error
	declared    []string
	bound       [3]string
	published   []amqp091.Publishing
	keys        []string
	closed      bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.declared = append(f.declared, "exchange:"+name+":"+kind)
	return f.exchangeErr
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	f.declared = append(f.declared, "queue:"+name)
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	f.bound = [3]string{name, key, exchange}
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleSummary() core.RunSummary {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return core.RunSummary{
		RunID:           "run-1",
		StartedAt:       start,
		FinishedAt:      start.Add(time.Minute),
		Budgets:         3,
		FailedBudgetIDs: []string{"7"},
		DetailRows:      10,
		GroupedRows:     4,
		Files: []core.FileResult{
			{Kind: core.FileDetail, Path: "/out/d.xlsx", Rows: 10},
			{Kind: core.FileContract, Path: "/out/c.xlsx", BudgetID: "1", Rows: 2, Err: errors.New("disk full")},
		},
	}
}

func TestSetupDeclaresTopology(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := newClient(ch, "sgo", "report_ready", log.Discard()); err != nil {
		t.Fatalf("newClient: %v", err)
	}

	want := []string{"exchange:sgo:direct", "queue:report_ready"}
	if fmt.Sprint(ch.declared) != fmt.Sprint(want) {
		t.Errorf("declared = %v, want %v", ch.declared, want)
	}
	if ch.bound != [3]string{"report_ready", "report_ready", "sgo"} {
		t.Errorf("bound = %v", ch.bound)
	}
}

func TestSetupFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{exchangeErr: errors.New("access refused")}
	_, err := newClient(ch, "sgo", "report_ready", log.Discard())
	if err == nil || !strings.Contains(err.Error(), "declare exchange") {
		t.Fatalf("expected declare error, got %v", err)
	}
	if !ch.closed {
		t.Error("channel should be closed after setup failure")
	}
}

func TestPublishReportReady(t *testing.T) {
	ch := &fakeChannel{}
	c, err := newClient(ch, "sgo", "report_ready", log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	msg := NewReportReadyMessage(sampleSummary(), map[string]string{"/out/d.xlsx": "https://blob/run-1/d.xlsx"})
	if err := c.PublishReportReady(context.Background(), msg); err != nil {
		t.Fatalf("PublishReportReady: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("published %d messages", len(ch.published))
	}
	p := ch.published[0]
	if ch.keys[0] != "sgo/report_ready" {
		t.Errorf("routing = %s", ch.keys[0])
	}
	if p.ContentType != "application/json" || p.DeliveryMode != amqp091.Persistent {
		t.Errorf("unexpected publishing properties: %+v", p)
	}
	if p.MessageId != "run-1" || p.Type != MessageTypeReportReady {
		t.Errorf("unexpected id/type: %q %q", p.MessageId, p.Type)
	}

	got, err := ReportReadyMessageFromJSON(p.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.RunID != "run-1" || got.Budgets != 3 || len(got.Files) != 2 {
		t.Errorf("unexpected message: %+v", got)
	}
	if got.Files[0].Location != "https://blob/run-1/d.xlsx" || !got.Files[0].OK {
		t.Errorf("unexpected first file: %+v", got.Files[0])
	}
	if got.Files[1].OK || got.Files[1].BudgetID != "1" {
		t.Errorf("unexpected second file: %+v", got.Files[1])
	}
}

func TestPublishReportReadyErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	c, err := newClient(ch, "sgo", "q", log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	msg := NewReportReadyMessage(sampleSummary(), nil)
	if err := c.PublishReportReady(context.Background(), msg); err == nil || !strings.Contains(err.Error(), "publish message") {
		t.Errorf("expected publish error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.PublishReportReady(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewReportReadyMessageEmptyFailures(t *testing.T) {
	s := sampleSummary()
	s.FailedBudgetIDs = nil

	body, err := NewReportReadyMessage(s, nil).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"failed_budget_ids":[]`) {
		t.Errorf("failed ids should encode as empty array: %s", body)
	}
}

func TestReportReadyMessage_InvalidJSON(t *testing.T) {
	if _, err := ReportReadyMessageFromJSON([]byte(`{"run_id": 5}`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed", amqp091.ErrClosed, true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"auth", errors.New("Exception (403) Reason: \"username or password not allowed\""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestDialInvalidURL(t *testing.T) {
	_, err := Dial(context.Background(), "not-a-url", "sgo", "q", 1, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}
