package model

import "time"

type Invoice struct {
	ID          string     `json:"id" db:"id"`
	AccountID   string     `json:"account_id" db:"account_id"`
	CustomerID  string     `json:"customer_id" db:"customer_id"`
	Number      string     `json:"number" db:"number"`
	AmountCents int64      `json:"amount_cents" db:"amount_cents"`
	Currency    string     `json:"currency" db:"currency"`
	Description *string    `json:"description,omitempty" db:"description"`
	IssueDate   time.Time  `json:"issue_date" db:"issue_date"`
	DueDate     time.Time  `json:"due_date" db:"due_date"`
	Status      string     `json:"status" db:"status"`
	PaidDate    *time.Time `json:"paid_date,omitempty" db:"paid_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Paid reports whether the invoice has been settled. Both signals are
// checked because the status transition and the paid stamp come from the
// invoicing side, not from the reminder core.
func (i *Invoice) Paid() bool {
	return i.Status == InvoicePaid || i.PaidDate != nil
}
