package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the queries inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Upload struct {
	ID             int64
	SessionID      string
	Filename       string
	SizeBytes      int64
	Outcome        string
	RowsRead       int64
	RowsKept       int64
	RowsDropped    int64
	MissingColumns string
	Error          string
	CreatedAt      int64
}

const createUpload = `
INSERT INTO uploads (
    session_id, filename, size_bytes, outcome,
    rows_read, rows_kept, rows_dropped, missing_columns, error, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateUploadParams struct {
	SessionID      string
	Filename       string
	SizeBytes      int64
	Outcome        string
	RowsRead       int64
	RowsKept       int64
	RowsDropped    int64
	MissingColumns string
	Error          string
	CreatedAt      int64
}

func (q *Queries) CreateUpload(ctx context.Context, arg CreateUploadParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUpload,
		arg.SessionID,
		arg.Filename,
		arg.SizeBytes,
		arg.Outcome,
		arg.RowsRead,
		arg.RowsKept,
		arg.RowsDropped,
		arg.MissingColumns,
		arg.Error,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listUploadsBySession = `
SELECT id, session_id, filename, size_bytes, outcome,
       rows_read, rows_kept, rows_dropped, missing_columns, error, created_at
FROM uploads
WHERE session_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListUploadsBySession(ctx context.Context, sessionID string, limit int64) ([]Upload, error) {
	rows, err := q.db.QueryContext(ctx, listUploadsBySession, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Upload
	for rows.Next() {
		var i Upload
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Filename,
			&i.SizeBytes,
			&i.Outcome,
			&i.RowsRead,
			&i.RowsKept,
			&i.RowsDropped,
			&i.MissingColumns,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteUploadsBefore = `DELETE FROM uploads WHERE created_at < ?`

func (q *Queries) DeleteUploadsBefore(ctx context.Context, createdAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUploadsBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
