package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/model"
)

type Policy struct {
	svc       *core.ReminderPolicyService
	scheduler *core.SchedulerService
}

func NewPolicy(svc *core.ReminderPolicyService, scheduler *core.SchedulerService) *Policy {
	return &Policy{svc: svc, scheduler: scheduler}
}

func (h *Policy) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.Get(r.Context(), accountID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

// Put saves the policy and reconciles every open invoice so existing
// schedule entries move to the new offsets.
func (h *Policy) Put(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		FirstOffsetDays   *int `json:"first_offset_days" validate:"omitempty,min=0,max=365"`
		SecondOffsetDays  *int `json:"second_offset_days" validate:"omitempty,min=0,max=365"`
		FinalOffsetDays   *int `json:"final_offset_days" validate:"omitempty,min=0,max=365"`
		AutoEnabled       bool `json:"auto_enabled"`
		BusinessHoursOnly bool `json:"business_hours_only"`
		WeekdaysOnly      bool `json:"weekdays_only"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy := &model.ReminderPolicy{
		AccountID:         accountID,
		FirstOffsetDays:   req.FirstOffsetDays,
		SecondOffsetDays:  req.SecondOffsetDays,
		FinalOffsetDays:   req.FinalOffsetDays,
		AutoEnabled:       req.AutoEnabled,
		BusinessHoursOnly: req.BusinessHoursOnly,
		WeekdaysOnly:      req.WeekdaysOnly,
	}

	if err := h.svc.Put(r.Context(), policy); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.scheduler.ReconcileAccount(r.Context(), accountID); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}
