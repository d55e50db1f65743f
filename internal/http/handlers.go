package http

import (
	"context"
	"net/http"
	"time"

	"corpdash/internal/audit"
	"corpdash/internal/log"
	"corpdash/internal/session"
)

const recentUploads = 5

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 when templates are missing or a dependency check
// fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["sessions"] = map[string]any{"active": s.sessions.Size()}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.GetMetrics().Rejected,
	}
	tm := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":           tm.TotalRequests,
		"avg_duration_ms": tm.AverageResponseTime.Milliseconds(),
		"suspicious":      s.detector.SuspiciousRequests(),
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.newIndexPage(r))
}

// newIndexPage fills the parts of the upload page that do not depend on the
// current request's outcome.
func (s *Server) newIndexPage(r *http.Request) indexPage {
	page := indexPage{
		Title:       "Upload transactions",
		Accept:      acceptedExtensions,
		MaxUploadMB: s.maxUpload >> 20,
	}
	id, ok := session.ID(r)
	if !ok {
		return page
	}
	if slot, ok := s.sessions.Get(id); ok {
		page.Current = &loadedTable{
			Source:   slot.Table.Source(),
			LoadedAt: slot.Table.LoadedAt(),
			Rows:     slot.Table.Len(),
		}
	}
	page.Recent = s.recentUploads(r.Context(), id)
	return page
}

func (s *Server) recentUploads(ctx context.Context, sessionID string) []audit.Event {
	if s.history == nil {
		return nil
	}
	events, err := s.history.Recent(ctx, sessionID, recentUploads)
	if err != nil {
		s.events.LogError(ctx, "Failed to list recent uploads", err, log.ComponentAudit, log.OpRecord, nil)
		return nil
	}
	return events
}

// handleReset drops the session table and returns to the upload page.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if id, ok := session.ID(r); ok {
		s.sessions.Clear(id)
		log.FromContext(r.Context()).InfoContext(r.Context(), "Session table cleared",
			log.FieldOperation, log.OpReset, log.FieldSessionID, id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
