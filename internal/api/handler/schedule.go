package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
)

const defaultUpcomingDays = 30

type Schedule struct {
	scheduler *core.SchedulerService
}

func NewSchedule(scheduler *core.SchedulerService) *Schedule {
	return &Schedule{scheduler: scheduler}
}

// Upcoming reconciles the account's schedule and returns the entries
// firing within the requested window.
func (h *Schedule) Upcoming(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := defaultUpcomingDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.WriteError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	entries, err := h.scheduler.ScheduleUpcoming(r.Context(), accountID, days)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, entries)
}

// Reconcile forces a full reschedule of the account's open invoices.
func (h *Schedule) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.scheduler.ReconcileAccount(r.Context(), accountID); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
