// Package worker persists upload events consumed from the message broker.
package worker

import (
	"context"
	"errors"
	"fmt"

	"corpdash/internal/amqp"
	"corpdash/internal/audit"
	"corpdash/internal/log"
)

// AuditWorker writes upload events published by dashboard instances into
// the audit log.
type AuditWorker struct {
	recorder audit.Recorder
	logger   *log.Logger
}

func NewAuditWorker(recorder audit.Recorder, logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{recorder: recorder, logger: logger.WithComponent(log.ComponentAudit)}
}

// HandleUploadProcessed records one message. Messages of another type or
// carrying an invalid event are rejected so they are not redelivered.
func (w *AuditWorker) HandleUploadProcessed(ctx context.Context, msg *amqp.UploadProcessedMessage) error {
	if msg.Type != amqp.EventUploadProcessed {
		return fmt.Errorf("%w: unexpected type %q", amqp.ErrReject, msg.Type)
	}
	e := msg.Event()
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", amqp.ErrReject, err)
	}
	if err := w.recorder.Record(ctx, e); err != nil {
		if errors.Is(err, audit.ErrInvalidEvent) {
			return fmt.Errorf("%w: %w", amqp.ErrReject, err)
		}
		return fmt.Errorf("record upload event: %w", err)
	}

	w.logger.InfoContext(ctx, "Upload event recorded",
		log.FieldOperation, log.OpRecord,
		log.FieldSessionID, e.SessionID,
		log.FieldFilename, e.Filename,
		"outcome", e.Outcome)
	return nil
}
