package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mbakke/nudge/internal/core"
)

func TestAccountCreateMissingName(t *testing.T) {
	db := &mockDB{}
	h := NewAccount(core.NewAccountService(db), core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/accounts", map[string]any{"company_name": "Acme"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountCreateInvalidTimezone(t *testing.T) {
	db := &mockDB{}
	h := NewAccount(core.NewAccountService(db), core.NewBrandingService(db, "", ""))

	body := map[string]any{"name": "acme", "company_name": "Acme", "timezone": "Mars/Olympus"}
	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/accounts", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountSetTierInvalidTier(t *testing.T) {
	db := &mockDB{}
	h := NewAccount(core.NewAccountService(db), core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPut, "/accounts/"+validID+"/tier", map[string]any{"tier": "platinum"}), "id", validID)
	h.SetTier(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountGetMissingID(t *testing.T) {
	db := &mockDB{}
	h := NewAccount(core.NewAccountService(db), core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/accounts/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorResponse(rec)
	assert.NotEmpty(t, body["error"])
}
