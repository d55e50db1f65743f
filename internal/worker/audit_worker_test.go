package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"corpdash/internal/amqp"
	"corpdash/internal/audit"
)

type recorderFunc func(context.Context, audit.Event) error

func (f recorderFunc) Record(ctx context.Context, e audit.Event) error { return f(ctx, e) }

func validMessage() *amqp.UploadProcessedMessage {
	return amqp.NewUploadProcessedMessage(audit.Event{
		SessionID: "0b8f6d36-8d0c-4a4e-9e0c-0e3c3f3d9a11",
		Filename:  "january.xlsx",
		Outcome:   audit.OutcomeAccepted,
		RowsRead:  3,
		RowsKept:  3,
		At:        time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
	})
}

func TestHandleUploadProcessed_Records(t *testing.T) {
	var got []audit.Event
	w := NewAuditWorker(recorderFunc(func(_ context.Context, e audit.Event) error {
		got = append(got, e)
		return nil
	}), nil)

	if err := w.HandleUploadProcessed(context.Background(), validMessage()); err != nil {
		t.Fatalf("HandleUploadProcessed() error = %v", err)
	}
	if len(got) != 1 || got[0].Filename != "january.xlsx" || got[0].RowsKept != 3 {
		t.Fatalf("recorded %+v", got)
	}
}

func TestHandleUploadProcessed_RejectsInvalid(t *testing.T) {
	w := NewAuditWorker(recorderFunc(func(context.Context, audit.Event) error {
		t.Fatal("recorder must not be called")
		return nil
	}), nil)

	wrongType := validMessage()
	wrongType.Type = "upload.deleted"
	noSession := validMessage()
	noSession.SessionID = ""

	for name, msg := range map[string]*amqp.UploadProcessedMessage{"wrong type": wrongType, "no session": noSession} {
		t.Run(name, func(t *testing.T) {
			err := w.HandleUploadProcessed(context.Background(), msg)
			if !errors.Is(err, amqp.ErrReject) {
				t.Fatalf("expected ErrReject, got %v", err)
			}
		})
	}
}

func TestHandleUploadProcessed_TransientFailureIsRetried(t *testing.T) {
	dbErr := errors.New("database is locked")
	w := NewAuditWorker(recorderFunc(func(context.Context, audit.Event) error { return dbErr }), nil)

	err := w.HandleUploadProcessed(context.Background(), validMessage())
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, amqp.ErrReject) {
		t.Fatal("transient failure must not reject the message")
	}
}
