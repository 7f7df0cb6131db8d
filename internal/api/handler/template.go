package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/model"
)

type Template struct {
	svc *core.TemplateService
}

func NewTemplate(svc *core.TemplateService) *Template {
	return &Template{svc: svc}
}

// Get returns the effective template for a reminder kind, built-in or
// overridden.
func (h *Template) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := chi.URLParam(r, "kind")

	tmpl, err := h.svc.Get(r.Context(), accountID, kind)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, tmpl)
}

func (h *Template) Put(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := chi.URLParam(r, "kind")

	var req struct {
		Subject  string `json:"subject" validate:"required"`
		HTMLBody string `json:"html_body" validate:"required"`
		TextBody string `json:"text_body" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := &model.Template{
		AccountID: accountID,
		Kind:      kind,
		Subject:   req.Subject,
		HTMLBody:  req.HTMLBody,
		TextBody:  req.TextBody,
	}
	if err := h.svc.Put(r.Context(), tmpl); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, tmpl)
}

// Delete removes an override, restoring the built-in template.
func (h *Template) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := chi.URLParam(r, "kind")

	if err := h.svc.Delete(r.Context(), accountID, kind); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
