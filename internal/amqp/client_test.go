package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"corpdash/internal/audit"
)

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
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{70, 30 * time.Second}, // no shift overflow
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
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestPublisher_CircuitBreaker(t *testing.T) {
	p := &Publisher{exchangeName: "test_exchange", routingKey: EventUploadProcessed}

	t.Run("initial state is closed", func(t *testing.T) {
		if p.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("failures below threshold keep it closed", func(t *testing.T) {
		for i := 0; i < maxFailures-1; i++ {
			p.recordFailure()
		}
		if p.isCircuitOpen() {
			t.Error("circuit opened before reaching maxFailures")
		}
	})

	t.Run("threshold opens circuit", func(t *testing.T) {
		p.recordFailure()
		if !p.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("success resets", func(t *testing.T) {
		p.recordSuccess()
		if p.isCircuitOpen() {
			t.Error("circuit should be closed after success")
		}
		if atomic.LoadInt64(&p.failureCount) != 0 {
			t.Error("failure count should be reset")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&p.state, StateOpen)
		p.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if p.isCircuitOpen() {
			t.Error("circuit should allow a trial after the timeout")
		}
		if atomic.LoadInt32(&p.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failure in half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&p.failureCount, 0)
		p.recordFailure()
		if !p.isCircuitOpen() {
			t.Error("a failed trial should reopen the circuit")
		}
	})
}

func TestPublisher_RecordShortCircuits(t *testing.T) {
	e := audit.Event{SessionID: "s", Filename: "a.xlsx", Outcome: audit.OutcomeAccepted, At: time.Now()}

	t.Run("open circuit", func(t *testing.T) {
		p := &Publisher{state: StateOpen, lastFailure: time.Now()}
		err := p.Record(context.Background(), e)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("Record() error = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := &Publisher{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Record(ctx, e); err != context.Canceled {
			t.Errorf("Record() error = %v, want context.Canceled", err)
		}
	})
}

func TestUploadProcessedMessage(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := NewUploadProcessedMessage(audit.Event{
		SessionID:      "s1",
		Filename:       "bad.xlsx",
		Outcome:        audit.OutcomeRejected,
		MissingColumns: []string{"Gender"},
		Error:          "missing columns",
		At:             at,
	})
	if msg.Type != EventUploadProcessed {
		t.Errorf("Type = %q", msg.Type)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(body), `"outcome":"rejected"`) {
		t.Errorf("body = %s", body)
	}
	parsed, err := UploadProcessedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if !parsed.Timestamp.Equal(at) || parsed.MissingColumns[0] != "Gender" {
		t.Errorf("parsed = %+v", parsed)
	}

	if _, err := UploadProcessedMessageFromJSON([]byte(`{"rows_read":"many"}`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
