package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbakke/nudge/internal/api/request"
	"github.com/mbakke/nudge/internal/api/response"
	"github.com/mbakke/nudge/internal/core"
)

type Activity struct {
	svc *core.ActivityService
}

func NewActivity(svc *core.ActivityService) *Activity {
	return &Activity{svc: svc}
}

func (h *Activity) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := request.ParsePagination(r)

	activities, hasMore, err := h.svc.ListByAccount(r.Context(), accountID, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	nextCursor := ""
	if hasMore && len(activities) > 0 {
		nextCursor = activities[len(activities)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, activities, nextCursor, hasMore)
}
