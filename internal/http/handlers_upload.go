package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"corpdash/internal/audit"
	"corpdash/internal/ingest"
	"corpdash/internal/log"
)

const auditTimeout = 5 * time.Second

// handleUpload ingests the posted spreadsheet. Only a successful upload
// replaces the session table; every attempt is audited.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessions.EnsureID(w, r)

	up, err := readUpload(w, r, s.maxUpload)
	if err != nil {
		s.uploadFailed(w, r, id, uploadedFile{}, err)
		return
	}
	defer up.Close()

	res, err := ingest.Ingest(ctx, up.Filename, up.File, s.now())
	if err != nil {
		s.uploadFailed(w, r, id, up, err)
		return
	}

	s.sessions.Set(id, res.Table, res.Report)
	s.events.LogUploadProcessed(ctx, up.Filename, up.Size, res.Report.RowsRead, res.Report.RowsKept, res.Report.RowsDropped, nil)
	s.audit(ctx, audit.Event{
		SessionID:   id,
		Filename:    up.Filename,
		SizeBytes:   up.Size,
		Outcome:     audit.OutcomeAccepted,
		RowsRead:    res.Report.RowsRead,
		RowsKept:    res.Report.RowsKept,
		RowsDropped: res.Report.RowsDropped,
		At:          s.now(),
	})

	page := s.newIndexPage(r)
	page.Success = &uploadSummary{Filename: up.Filename, Report: res.Report}
	page.Current = &loadedTable{Source: res.Table.Source(), LoadedAt: res.Table.LoadedAt(), Rows: res.Table.Len()}
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, sessionID string, up uploadedFile, err error) {
	ctx := r.Context()
	status, msg := uploadError(err)

	ev := audit.Event{
		SessionID: sessionID,
		Filename:  up.Filename,
		SizeBytes: up.Size,
		Outcome:   audit.OutcomeRejected,
		Error:     err.Error(),
		At:        s.now(),
	}
	var missing *ingest.MissingColumnsError
	if errors.As(err, &missing) {
		ev.MissingColumns = missing.Columns
	}
	s.events.LogUploadProcessed(ctx, up.Filename, up.Size, 0, 0, 0, err)
	s.audit(ctx, ev)

	page := s.newIndexPage(r)
	page.Error = msg
	page.MissingColumns = ev.MissingColumns
	s.render(w, r, status, "index.html", page)
}

func (s *Server) handleUploadLimited(w http.ResponseWriter, r *http.Request) {
	page := s.newIndexPage(r)
	page.Error = "Too many uploads. Please wait a minute and try again."
	s.render(w, r, http.StatusTooManyRequests, "index.html", page)
}

// audit records e without letting a slow or failing sink affect the
// response.
func (s *Server) audit(ctx context.Context, e audit.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.recorder.Record(ctx, e); err != nil {
		s.events.LogError(ctx, "Failed to record upload", err, log.ComponentAudit, log.OpRecord,
			log.NewFields().WithUpload(e.Filename, e.SizeBytes, e.RowsRead, e.RowsKept, e.RowsDropped))
	}
}

// uploadError maps an upload failure to a status code and the message shown
// on the page.
func uploadError(err error) (int, string) {
	var (
		tooLarge *http.MaxBytesError
		missing  *ingest.MissingColumnsError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "The file is too large."
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "Please choose a file to upload."
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file type. Please upload an .xlsx or .xls file."
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, missing.Error()
	case errors.Is(err, ingest.ErrUnreadable), errors.Is(err, ingest.ErrEmptyWorkbook):
		return http.StatusUnprocessableEntity, "Error processing file: " + err.Error()
	}
	return http.StatusInternalServerError, "Error processing file: " + err.Error()
}
