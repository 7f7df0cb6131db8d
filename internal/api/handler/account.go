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

type Account struct {
	svc      *core.AccountService
	branding *core.BrandingService
}

func NewAccount(svc *core.AccountService, branding *core.BrandingService) *Account {
	return &Account{svc: svc, branding: branding}
}

func (h *Account) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	accounts, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	nextCursor := ""
	if hasMore && len(accounts) > 0 {
		nextCursor = accounts[len(accounts)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, accounts, nextCursor, hasMore)
}

func (h *Account) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required"`
		CompanyName string `json:"company_name" validate:"required"`
		Timezone    string `json:"timezone" validate:"omitempty,tz"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	now := time.Now()
	account := &model.Account{
		ID:          platform.NewID(),
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Tier:        model.TierFree,
		Timezone:    req.Timezone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), account); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, account)
}

func (h *Account) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, account)
}

func (h *Account) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Name        string `json:"name"`
		CompanyName string `json:"company_name"`
		Timezone    string `json:"timezone" validate:"omitempty,tz"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	if req.Name != "" {
		account.Name = req.Name
	}
	if req.CompanyName != "" {
		account.CompanyName = req.CompanyName
	}
	if req.Timezone != "" {
		account.Timezone = req.Timezone
	}

	if err := h.svc.Update(r.Context(), id, account.Name, account.CompanyName, account.Timezone); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, account)
}

// SetTier is the hook the billing side calls on subscription changes.
// Downgrading to free also clears any hide-footer preference.
func (h *Account) SetTier(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Tier string `json:"tier" validate:"required,oneof=free pro enterprise"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.branding.OnTierChanged(r.Context(), id, req.Tier); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	account, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, account)
}
