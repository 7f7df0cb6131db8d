package model

import "time"

// ReminderPolicy is the per-account reminder timing configuration.
// Offsets are days after the invoice due date; a nil offset disables
// that reminder kind.
type ReminderPolicy struct {
	AccountID         string    `json:"account_id" db:"account_id"`
	FirstOffsetDays   *int      `json:"first_offset_days" db:"first_offset_days"`
	SecondOffsetDays  *int      `json:"second_offset_days" db:"second_offset_days"`
	FinalOffsetDays   *int      `json:"final_offset_days" db:"final_offset_days"`
	AutoEnabled       bool      `json:"auto_enabled" db:"auto_enabled"`
	BusinessHoursOnly bool      `json:"business_hours_only" db:"business_hours_only"`
	WeekdaysOnly      bool      `json:"weekdays_only" db:"weekdays_only"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// OffsetFor returns the configured offset for a reminder kind, or nil
// when the kind is disabled or unknown.
func (p *ReminderPolicy) OffsetFor(kind string) *int {
	switch kind {
	case ReminderFirst:
		return p.FirstOffsetDays
	case ReminderSecond:
		return p.SecondOffsetDays
	case ReminderFinal:
		return p.FinalOffsetDays
	}
	return nil
}
