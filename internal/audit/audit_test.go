package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memRecorder) Record(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func validEvent() Event {
	return Event{
		SessionID: "s1",
		Filename:  "report.xlsx",
		Outcome:   OutcomeAccepted,
		RowsRead:  3,
		RowsKept:  2,
		At:        time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid", func(*Event) {}, false},
		{"rejected is valid", func(e *Event) { e.Outcome = OutcomeRejected }, false},
		{"missing session", func(e *Event) { e.SessionID = "" }, true},
		{"missing time", func(e *Event) { e.At = time.Time{} }, true},
		{"bad outcome", func(e *Event) { e.Outcome = "maybe" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("error %v does not wrap ErrInvalidEvent", err)
			}
		})
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	ok1, ok2 := &memRecorder{}, &memRecorder{}
	broken := &memRecorder{err: errors.New("broker down")}

	err := Multi{ok1, broken, ok2}.Record(context.Background(), validEvent())
	if err == nil || err.Error() != "broker down" {
		t.Fatalf("Record() error = %v, want broker down", err)
	}
	if len(ok1.events) != 1 || len(ok2.events) != 1 {
		t.Errorf("healthy recorders got %d and %d events, want 1 each", len(ok1.events), len(ok2.events))
	}
}

func TestMulti_RejectsInvalidEvent(t *testing.T) {
	rec := &memRecorder{}
	e := validEvent()
	e.SessionID = ""
	if err := (Multi{rec}).Record(context.Background(), e); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("Record() error = %v", err)
	}
	if len(rec.events) != 0 {
		t.Error("invalid event reached a recorder")
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Record(context.Background(), Event{}); err != nil {
		t.Errorf("Nop.Record() = %v", err)
	}
	if err := (Multi{}).Record(context.Background(), validEvent()); err != nil {
		t.Errorf("empty Multi.Record() = %v", err)
	}
}
