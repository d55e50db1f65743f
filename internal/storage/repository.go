package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"corpdash/internal/audit"
	"corpdash/internal/log"
)

// SQLiteRepository keeps the upload audit trail.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}
	r.logger.Info("Audit database ready", log.FieldOperation, log.OpMigrate, "path", dbPath, "schema_version", version)
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by /readyz.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Record implements audit.Recorder.
func (r *SQLiteRepository) Record(ctx context.Context, e audit.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	id, err := r.queries.CreateUpload(ctx, CreateUploadParams{
		SessionID:      e.SessionID,
		Filename:       e.Filename,
		SizeBytes:      e.SizeBytes,
		Outcome:        string(e.Outcome),
		RowsRead:       int64(e.RowsRead),
		RowsKept:       int64(e.RowsKept),
		RowsDropped:    int64(e.RowsDropped),
		MissingColumns: strings.Join(e.MissingColumns, ","),
		Error:          e.Error,
		CreatedAt:      e.At.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	r.logger.DebugContext(ctx, "Upload recorded", "id", id, log.FieldFilename, e.Filename)
	return nil
}

// Recent implements audit.History.
func (r *SQLiteRepository) Recent(ctx context.Context, sessionID string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.queries.ListUploadsBySession(ctx, sessionID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	events := make([]audit.Event, len(rows))
	for i, u := range rows {
		events[i] = audit.Event{
			ID:          u.ID,
			SessionID:   u.SessionID,
			Filename:    u.Filename,
			SizeBytes:   u.SizeBytes,
			Outcome:     audit.Outcome(u.Outcome),
			RowsRead:    int(u.RowsRead),
			RowsKept:    int(u.RowsKept),
			RowsDropped: int(u.RowsDropped),
			Error:       u.Error,
			At:          time.UnixMilli(u.CreatedAt).UTC(),
		}
		if u.MissingColumns != "" {
			events[i].MissingColumns = strings.Split(u.MissingColumns, ",")
		}
	}
	return events, nil
}

// Prune deletes events older than cutoff and returns how many went.
func (r *SQLiteRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.queries.DeleteUploadsBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune uploads: %w", err)
	}
	return n, nil
}
