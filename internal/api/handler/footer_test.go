package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/model"
)

func accountRow(tier string, hideRequested bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = validID
		*dest[1].(*string) = tier
		*dest[2].(*bool) = hideRequested
		return nil
	}}
}

// ---------- Get ----------

func TestFooterGetMissingAccountID(t *testing.T) {
	h := NewFooter(core.NewBrandingService(&mockDB{}, "", ""))

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/footer", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFooterGetFreeTier(t *testing.T) {
	db := &mockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(accountRow(model.TierFree, false))

	h := NewFooter(core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/footer", nil), "accountID", validID)
	h.Get(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"should_include":true`)
	assert.Contains(t, rec.Body.String(), `"can_toggle":false`)
}

// ---------- Put ----------

func TestFooterPutFreeTierRejected(t *testing.T) {
	db := &mockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(accountRow(model.TierFree, false))

	h := NewFooter(core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPut, "/footer", map[string]any{"hide": true}), "accountID", validID)
	h.Put(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestFooterPutProTier(t *testing.T) {
	db := &mockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(accountRow(model.TierPro, false)).Once()
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(accountRow(model.TierPro, true))

	h := NewFooter(core.NewBrandingService(db, "", ""))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPut, "/footer", map[string]any{"hide": true}), "accountID", validID)
	h.Put(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"should_include":false`)
}

func TestFooterPutBadJSON(t *testing.T) {
	h := NewFooter(core.NewBrandingService(&mockDB{}, "", ""))

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequestRaw(http.MethodPut, "/footer", `{"hide":`), "accountID", validID)
	h.Put(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
