package http

import (
	"errors"
	"net/http"
	"time"

	"unidiary/internal/aggregate"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports not ready while any collection's last failure was a
// transport error. Rejected requests do not affect readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, httpStatus := "ready", http.StatusOK
	checks := make(map[string]string, 3)
	for name, err := range map[string]error{
		"expenses": s.tracker.Expenses.Err(),
		"budgets":  s.tracker.Budgets.Err(),
		"profile":  s.tracker.Profile.Err(),
	} {
		if errors.Is(err, gateway.ErrTransport) {
			checks[name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

type dashboardResponse struct {
	core.DashboardSummary
	Display dashboardDisplay `json:"display"`
}

// dashboardDisplay carries preformatted captions for clients that render
// the dashboard as text.
type dashboardDisplay struct {
	TotalExpenses   string          `json:"totalExpenses"`
	MonthlyExpenses string          `json:"monthlyExpenses"`
	RemainingBudget string          `json:"remainingBudget"`
	Upcoming        []upcomingLabel `json:"upcoming"`
}

type upcomingLabel struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Label  string `json:"label"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary := s.tracker.Dashboard(s.now())
	display := dashboardDisplay{
		TotalExpenses:   aggregate.FormatCurrency(summary.TotalExpenses),
		MonthlyExpenses: aggregate.FormatCurrency(summary.MonthlyExpenses),
		RemainingBudget: aggregate.FormatCurrency(summary.RemainingBudget),
		Upcoming:        make([]upcomingLabel, 0, len(summary.Upcoming)),
	}
	for _, u := range summary.Upcoming {
		display.Upcoming = append(display.Upcoming, upcomingLabel{
			ID:     u.ID,
			Amount: aggregate.FormatCurrency(u.Amount),
			Label:  aggregate.UrgencyLabel(u),
		})
	}
	writeJSON(w, http.StatusOK, dashboardResponse{DashboardSummary: summary, Display: display})
}

// handleReload refetches every collection from the gateway.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Load(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"expenses": len(s.tracker.Expenses.Items()),
		"budgets":  len(s.tracker.Budgets.Items()),
	})
}
