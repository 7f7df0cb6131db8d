package model

import "time"

type Account struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	CompanyName         string    `json:"company_name" db:"company_name"`
	Tier                string    `json:"tier" db:"tier"`
	HideFooterRequested bool      `json:"hide_footer_requested" db:"hide_footer_requested"`
	Timezone            string    `json:"timezone" db:"timezone"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// FooterConfig describes the effective branding-footer policy for an
// account, as surfaced to the settings UI.
type FooterConfig struct {
	ShouldInclude  bool   `json:"should_include"`
	CanToggle      bool   `json:"can_toggle"`
	CurrentSetting bool   `json:"current_setting"`
	Tier           string `json:"tier"`
}
