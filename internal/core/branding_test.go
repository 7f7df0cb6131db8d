package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mbakke/nudge/internal/model"
)

// ---------- Footer policy ----------

func TestShouldIncludeFooter(t *testing.T) {
	tests := []struct {
		name string
		tier string
		hide bool
		want bool
	}{
		{"free always includes", model.TierFree, false, true},
		{"free ignores hide request", model.TierFree, true, true},
		{"pro default includes", model.TierPro, false, true},
		{"pro can hide", model.TierPro, true, false},
		{"enterprise can hide", model.TierEnterprise, true, false},
		{"unrecognized tier ignores hide request", "platinum", true, true},
		{"empty tier ignores hide request", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &model.Account{Tier: tt.tier, HideFooterRequested: tt.hide}
			assert.Equal(t, tt.want, ShouldIncludeFooter(a))
		})
	}
}

func TestCanToggleFooter(t *testing.T) {
	assert.False(t, CanToggleFooter(&model.Account{Tier: model.TierFree}))
	assert.True(t, CanToggleFooter(&model.Account{Tier: model.TierPro}))
	assert.True(t, CanToggleFooter(&model.Account{Tier: model.TierEnterprise}))
	assert.False(t, CanToggleFooter(&model.Account{Tier: "platinum"}))
}

// ---------- FooterConfig ----------

func TestBrandingService_FooterConfig(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "<p>footer</p>", "footer")
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-account-1"
		*(dest[1].(*string)) = model.TierPro
		*(dest[2].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	cfg, err := svc.FooterConfig(ctx, "test-account-1")
	require.NoError(t, err)
	assert.False(t, cfg.ShouldInclude)
	assert.True(t, cfg.CanToggle)
	assert.True(t, cfg.CurrentSetting)
	assert.Equal(t, model.TierPro, cfg.Tier)
	db.AssertExpectations(t)
}

// ---------- SetFooterPreference ----------

func TestBrandingService_SetFooterPreference_FreeTierRejected(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-account-1"
		*(dest[1].(*string)) = model.TierFree
		*(dest[2].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.SetFooterPreference(ctx, "test-account-1", true)
	assert.True(t, errors.Is(err, ErrUpgradeRequired))
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestBrandingService_SetFooterPreference_PaidTier(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-account-1"
		*(dest[1].(*string)) = model.TierPro
		*(dest[2].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(tagRows(1), nil)

	err := svc.SetFooterPreference(ctx, "test-account-1", true)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBrandingService_SetFooterPreference_DowngradeRace(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")
	ctx := context.Background()

	// The read sees pro, but billing downgrades the account before the
	// write lands. The tier-guarded UPDATE touches no rows.
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-account-1"
		*(dest[1].(*string)) = model.TierPro
		*(dest[2].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(tagRows(0), nil)

	err := svc.SetFooterPreference(ctx, "test-account-1", true)
	assert.True(t, errors.Is(err, ErrUpgradeRequired))
	db.AssertExpectations(t)
}

func TestBrandingService_SetFooterPreference_ShowAlwaysAllowed(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-account-1"
		*(dest[1].(*string)) = model.TierFree
		*(dest[2].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(tagRows(1), nil)

	err := svc.SetFooterPreference(ctx, "test-account-1", false)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- OnTierChanged ----------

func TestBrandingService_OnTierChanged_UnknownTier(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")

	err := svc.OnTierChanged(context.Background(), "test-account-1", "platinum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")
}

func TestBrandingService_OnTierChanged_Downgrade(t *testing.T) {
	db := &mockDB{}
	svc := NewBrandingService(db, "", "")
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(tagRows(1), nil)

	err := svc.OnTierChanged(ctx, "test-account-1", model.TierFree)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- Finalize ----------

func TestBrandingService_Finalize(t *testing.T) {
	svc := NewBrandingService(&mockDB{}, "<p>f</p>", "\nf")

	free := &model.Account{Tier: model.TierFree}
	html, text := svc.Finalize(free, "<p>body</p>", "body")
	assert.Equal(t, "<p>body</p><p>f</p>", html)
	assert.Equal(t, "body\nf", text)

	pro := &model.Account{Tier: model.TierPro, HideFooterRequested: true}
	html, text = svc.Finalize(pro, "<p>body</p>", "body")
	assert.Equal(t, "<p>body</p>", html)
	assert.Equal(t, "body", text)
}

func TestBrandingService_Finalize_FullDocument(t *testing.T) {
	svc := NewBrandingService(&mockDB{}, "<p>f</p>", "\nf")
	free := &model.Account{Tier: model.TierFree}

	// The footer lands inside the document, not after it.
	html, _ := svc.Finalize(free, "<html><body><p>pay me</p></body></html>", "pay me")
	assert.Equal(t, "<html><body><p>pay me</p><p>f</p></body></html>", html)

	// Closing tag case does not matter.
	html, _ = svc.Finalize(free, "<HTML><BODY>x</BODY></HTML>", "x")
	assert.Equal(t, "<HTML><BODY>x<p>f</p></BODY></HTML>", html)
}
