// Package audit records the outcome of upload attempts. The uploaded table
// itself is never part of an event.
package audit

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome of an upload attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Event describes one upload attempt.
type Event struct {
	ID             int64     `json:"id,omitempty"`
	SessionID      string    `json:"session_id"`
	Filename       string    `json:"filename"`
	SizeBytes      int64     `json:"size_bytes"`
	Outcome        Outcome   `json:"outcome"`
	RowsRead       int       `json:"rows_read"`
	RowsKept       int       `json:"rows_kept"`
	RowsDropped    int       `json:"rows_dropped"`
	MissingColumns []string  `json:"missing_columns,omitempty"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
}

var ErrInvalidEvent = errors.New("invalid audit event")

// Validate checks the fields every sink relies on.
func (e Event) Validate() error {
	switch {
	case e.SessionID == "":
		return errors.Join(ErrInvalidEvent, errors.New("missing session id"))
	case e.At.IsZero():
		return errors.Join(ErrInvalidEvent, errors.New("missing timestamp"))
	case e.Outcome != OutcomeAccepted && e.Outcome != OutcomeRejected:
		return errors.Join(ErrInvalidEvent, errors.New("unknown outcome "+string(e.Outcome)))
	}
	return nil
}

// Recorder persists or forwards upload events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// History lists earlier events of one session, newest first.
type History interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]Event, error)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// Multi fans an event out to several recorders concurrently. Every recorder
// runs even when another fails; the errors are joined.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, r := range m {
		g.Go(func() error {
			errs[i] = r.Record(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
