package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"corpdash/internal/audit"
	"corpdash/internal/log"
)

func TestConsumer_Settle(t *testing.T) {
	c := &Consumer{logger: log.Discard()}
	valid, err := NewUploadProcessedMessage(audit.Event{
		SessionID: "s1",
		Filename:  "a.xlsx",
		Outcome:   audit.OutcomeAccepted,
		At:        time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
	}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"handled", valid, nil, true, false},
		{"malformed body", []byte("{not json"), nil, false, false},
		{"transient failure", valid, errors.New("database is locked"), false, true},
		{"rejected", valid, fmt.Errorf("bad event: %w", ErrReject), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			ack, requeue := c.settle(context.Background(), tt.body, func(_ context.Context, m *UploadProcessedMessage) error {
				called = true
				if m.SessionID != "s1" {
					t.Errorf("handler got session %q", m.SessionID)
				}
				return tt.handlerErr
			})
			if ack != tt.wantAck || requeue != tt.wantRequeue {
				t.Errorf("settle() = (%v, %v), want (%v, %v)", ack, requeue, tt.wantAck, tt.wantRequeue)
			}
			if tt.name == "malformed body" && called {
				t.Error("handler called for malformed body")
			}
		})
	}
}

func TestUploadProcessedMessage_EventRoundTrip(t *testing.T) {
	e := audit.Event{
		SessionID:      "s1",
		Filename:       "b.xlsx",
		SizeBytes:      2048,
		Outcome:        audit.OutcomeRejected,
		MissingColumns: []string{"DOB", "Gender"},
		Error:          "missing columns",
		At:             time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
	}
	got := NewUploadProcessedMessage(e).Event()
	if got.SessionID != e.SessionID || got.Outcome != e.Outcome || !got.At.Equal(e.At) {
		t.Errorf("Event() = %+v, want %+v", got, e)
	}
	if len(got.MissingColumns) != 2 || got.MissingColumns[1] != "Gender" {
		t.Errorf("Event() missing columns = %v", got.MissingColumns)
	}
}
