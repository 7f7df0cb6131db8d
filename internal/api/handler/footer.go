package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
)

type Footer struct {
	svc *core.BrandingService
}

func NewFooter(svc *core.BrandingService) *Footer {
	return &Footer{svc: svc}
}

func (h *Footer) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.FooterConfig(r.Context(), accountID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Footer) Put(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Hide bool `json:"hide"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetFooterPreference(r.Context(), accountID, req.Hide); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	cfg, err := h.svc.FooterConfig(r.Context(), accountID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cfg)
}
