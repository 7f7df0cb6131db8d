package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/platform"
)

type Invoice struct {
	svc        *core.InvoiceService
	scheduler  *core.SchedulerService
	dispatcher *core.DispatcherService
	entries    *core.ScheduleEntryService
}

func NewInvoice(svc *core.InvoiceService, scheduler *core.SchedulerService, dispatcher *core.DispatcherService, entries *core.ScheduleEntryService) *Invoice {
	return &Invoice{svc: svc, scheduler: scheduler, dispatcher: dispatcher, entries: entries}
}

func (h *Invoice) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := request.ParsePagination(r)

	invoices, hasMore, err := h.svc.ListByAccount(r.Context(), accountID, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	nextCursor := ""
	if hasMore && len(invoices) > 0 {
		nextCursor = invoices[len(invoices)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, invoices, nextCursor, hasMore)
}

func (h *Invoice) Create(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		CustomerID  string    `json:"customer_id" validate:"required"`
		Number      string    `json:"number" validate:"required"`
		AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
		Currency    string    `json:"currency" validate:"required,len=3"`
		Description *string   `json:"description"`
		IssueDate   time.Time `json:"issue_date" validate:"required"`
		DueDate     time.Time `json:"due_date" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	inv := &model.Invoice{
		ID:          platform.NewID(),
		AccountID:   accountID,
		CustomerID:  req.CustomerID,
		Number:      req.Number,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Description: req.Description,
		IssueDate:   req.IssueDate,
		DueDate:     req.DueDate,
		Status:      model.InvoicePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), inv); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.scheduler.Reconcile(r.Context(), inv); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Invoice) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, inv)
}

// Update moves the due date and/or status, then reconciles the
// schedule so reminder times follow.
func (h *Invoice) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		DueDate *time.Time `json:"due_date"`
		Status  *string    `json:"status" validate:"omitempty,oneof=pending sent viewed overdue"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.DueDate != nil {
		if err := h.svc.SetDueDate(r.Context(), id, *req.DueDate); err != nil {
			response.WriteServiceError(w, err)
			return
		}
	}
	if req.Status != nil {
		if err := h.svc.SetStatus(r.Context(), id, *req.Status); err != nil {
			response.WriteServiceError(w, err)
			return
		}
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.scheduler.Reconcile(r.Context(), inv); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, inv)
}

// MarkPaid settles the invoice and cancels its pending reminders.
func (h *Invoice) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.MarkPaid(r.Context(), id, time.Now()); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.scheduler.Reconcile(r.Context(), inv); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, inv)
}

// SendNow triggers an immediate manual reminder for the invoice.
func (h *Invoice) SendNow(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.dispatcher.SendNow(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, entry)
}

// Schedule lists every schedule entry for the invoice, terminal ones
// included.
func (h *Invoice) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.entries.ListByInvoice(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, entries)
}

func (h *Invoice) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.entries.CancelForInvoice(r.Context(), id); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
