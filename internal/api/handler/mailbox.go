package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/provider"
)

type Mailbox struct {
	svc        *core.MailboxService
	dispatcher *core.DispatcherService
	providers  *provider.Registry
}

func NewMailbox(svc *core.MailboxService, dispatcher *core.DispatcherService, providers *provider.Registry) *Mailbox {
	return &Mailbox{svc: svc, dispatcher: dispatcher, providers: providers}
}

// Providers lists the mailbox vendors this deployment is configured
// for.
func (h *Mailbox) Providers(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string][]string{"providers": h.providers.Names()})
}

// Connect starts the OAuth flow and returns the consent URL the user
// should be sent to.
func (h *Mailbox) Connect(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Provider string `json:"provider" validate:"required,oneof=google microsoft"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	authURL, err := h.svc.BeginConnect(r.Context(), accountID, req.Provider)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"auth_url": authURL})
}

// Callback is the OAuth redirect target. The provider appends state and
// code as query parameters.
func (h *Mailbox) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		response.WriteError(w, http.StatusBadRequest, "missing state or code")
		return
	}

	conn, err := h.svc.CompleteConnect(r.Context(), state, code)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, conn)
}

func (h *Mailbox) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conns, err := h.svc.ListByAccount(r.Context(), accountID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, conns)
}

func (h *Mailbox) Disconnect(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	connID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Disconnect(r.Context(), accountID, connID); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Test sends a verification message through the active connection.
func (h *Mailbox) Test(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.dispatcher.TestSend(r.Context(), accountID); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
