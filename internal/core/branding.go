package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbakke/nudge/internal/model"
)

// BrandingService decides whether outgoing reminders carry the platform
// footer. Free-tier mail always carries it; paid tiers may opt out.
type BrandingService struct {
	db         DB
	footerHTML string
	footerText string
}

func NewBrandingService(db DB, footerHTML, footerText string) *BrandingService {
	return &BrandingService{db: db, footerHTML: footerHTML, footerText: footerText}
}

// ShouldIncludeFooter is the single source of truth for footer
// inclusion. The stored preference only takes effect on known paid
// tiers; anything else, including a tier value this build does not
// recognize, keeps the footer.
func ShouldIncludeFooter(a *model.Account) bool {
	if !CanToggleFooter(a) {
		return true
	}
	return !a.HideFooterRequested
}

// CanToggleFooter reports whether the account's tier allows hiding the
// footer at all.
func CanToggleFooter(a *model.Account) bool {
	return a.Tier == model.TierPro || a.Tier == model.TierEnterprise
}

// FooterConfig resolves the effective footer settings for an account.
func (s *BrandingService) FooterConfig(ctx context.Context, accountID string) (*model.FooterConfig, error) {
	a, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &model.FooterConfig{
		ShouldInclude:  ShouldIncludeFooter(a),
		CanToggle:      CanToggleFooter(a),
		CurrentSetting: a.HideFooterRequested,
		Tier:           a.Tier,
	}, nil
}

// SetFooterPreference stores the hide-footer preference. The UPDATE is
// guarded on tier so a concurrent downgrade can never leave a free
// account with the footer hidden.
func (s *BrandingService) SetFooterPreference(ctx context.Context, accountID string, hide bool) error {
	a, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if hide && !CanToggleFooter(a) {
		return ErrUpgradeRequired
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET hide_footer_requested = $2, updated_at = now()
		 WHERE id = $1 AND ($2 = false OR tier IN ($3, $4))`,
		accountID, hide, model.TierPro, model.TierEnterprise,
	)
	if err != nil {
		return fmt.Errorf("set footer preference for account %s: %w", accountID, err)
	}
	if hide && tag.RowsAffected() == 0 {
		return ErrUpgradeRequired
	}
	return nil
}

// OnTierChanged applies a tier change from the billing side. Dropping to
// the free tier clears the hide preference in the same statement, so a
// later re-upgrade starts with the footer visible again.
func (s *BrandingService) OnTierChanged(ctx context.Context, accountID, newTier string) error {
	if !model.ValidTier(newTier) {
		return fmt.Errorf("unknown tier %q", newTier)
	}
	_, err := s.db.Exec(ctx,
		`UPDATE accounts SET tier = $2,
		   hide_footer_requested = CASE WHEN $2 = $3 THEN false ELSE hide_footer_requested END,
		   updated_at = now()
		 WHERE id = $1`,
		accountID, newTier, model.TierFree,
	)
	if err != nil {
		return fmt.Errorf("change tier for account %s: %w", accountID, err)
	}
	return nil
}

// Finalize adds the platform footer to rendered bodies when the
// account's settings require it. The HTML block goes inside the
// document when one exists; a footer after </body> is invalid markup
// some clients drop.
func (s *BrandingService) Finalize(a *model.Account, html, text string) (string, string) {
	if !ShouldIncludeFooter(a) {
		return html, text
	}
	return insertBeforeBodyClose(html, s.footerHTML), text + s.footerText
}

func insertBeforeBodyClose(html, footer string) string {
	idx := strings.LastIndex(strings.ToLower(html), "</body>")
	if idx == -1 {
		return html + footer
	}
	return html[:idx] + footer + html[idx:]
}

func (s *BrandingService) getAccount(ctx context.Context, accountID string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, tier, hide_footer_requested FROM accounts WHERE id = $1`, accountID,
	).Scan(&a.ID, &a.Tier, &a.HideFooterRequested)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return &a, nil
}
