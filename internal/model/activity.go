package model

import "time"

// Activity is one row of the append-only account activity feed. The
// reminder core only writes these; it never reads them back.
type Activity struct {
	ID          string    `json:"id" db:"id"`
	AccountID   string    `json:"account_id" db:"account_id"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	InvoiceID   *string   `json:"invoice_id,omitempty" db:"invoice_id"`
	CustomerID  *string   `json:"customer_id,omitempty" db:"customer_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
