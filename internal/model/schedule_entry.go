package model

import "time"

// ScheduleEntry is one planned reminder for one invoice. The pair
// (invoice_id, kind) is the idempotency key for scheduler-created
// entries; manual entries are exempt.
type ScheduleEntry struct {
	ID            string     `json:"id" db:"id"`
	InvoiceID     string     `json:"invoice_id" db:"invoice_id"`
	AccountID     string     `json:"account_id" db:"account_id"`
	Kind          string     `json:"kind" db:"kind"`
	FireAt        time.Time  `json:"fire_at" db:"fire_at"`
	State         string     `json:"state" db:"state"`
	Attempts      int        `json:"attempts" db:"attempts"`
	FailureReason *string    `json:"failure_reason,omitempty" db:"failure_reason"`
	SentAt        *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
