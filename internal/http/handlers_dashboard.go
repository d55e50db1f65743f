package http

import (
	"errors"
	"net/http"

	"corpdash/internal/analytics"
	"corpdash/internal/core"
	"corpdash/internal/log"
	"corpdash/internal/session"
)

// sessionTable returns the table uploaded in this browser session, if any.
func (s *Server) sessionTable(r *http.Request) (*core.Table, bool) {
	id, ok := session.ID(r)
	if !ok {
		return nil, false
	}
	slot, ok := s.sessions.Get(id)
	if !ok || slot.Table == nil {
		return nil, false
	}
	return slot.Table, true
}

// handleDashboard renders the charts for the selected service type.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := cohortParam(r)
	page := dashboardPage{Title: "Analytics dashboard", Cohort: c}
	if err != nil {
		page.Cohort = analytics.Wellness
		page.Options = newCohortOptions(page.Cohort)
		page.Error = err.Error()
		s.render(w, r, http.StatusBadRequest, "dashboard.html", page)
		return
	}
	page.Options = newCohortOptions(c)

	table, ok := s.sessionTable(r)
	if !ok {
		page.NoData = true
		s.render(w, r, http.StatusOK, "dashboard.html", page)
		return
	}
	page.Source = table.Source()
	page.LoadedAt = table.LoadedAt()

	d, err := analytics.Build(table, c)
	switch {
	case errors.Is(err, analytics.ErrEmptyCohort):
		page.Empty = true
		s.render(w, r, http.StatusOK, "dashboard.html", page)
		return
	case err != nil:
		s.events.LogError(r.Context(), "Failed to build dashboard", err, log.ComponentDashboard, log.OpBuild, nil)
		page.Error = "Error building dashboard: " + err.Error()
		s.render(w, r, http.StatusInternalServerError, "dashboard.html", page)
		return
	}

	page.Headline = newHeadlineView(d.Headline)
	page.Charts = newChartData(d)
	s.render(w, r, http.StatusOK, "dashboard.html", page)
}

// handleDashboardAPI serves the same aggregates as JSON.
func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	c, err := cohortParam(r)
	if err != nil {
		ErrorJSON(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	table, ok := s.sessionTable(r)
	if !ok {
		ErrorJSON(http.StatusNotFound, analytics.ErrNoData.Error()).Write(w)
		return
	}

	d, err := analytics.Build(table, c)
	switch {
	case errors.Is(err, analytics.ErrEmptyCohort):
		NewResponse().JSON(chartData{Cohort: c, Empty: true}).Write(w)
		return
	case err != nil:
		s.events.LogError(r.Context(), "Failed to build dashboard", err, log.ComponentDashboard, log.OpBuild, nil)
		ErrorJSON(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}
	NewResponse().JSON(newChartData(d)).Write(w)
}
