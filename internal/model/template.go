package model

import "time"

// Template is a per-account override of the built-in reminder template
// for one reminder kind. Bodies may contain merge fields such as
// {{customerName}} and {{amount}}.
type Template struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Kind      string    `json:"kind" db:"kind"`
	Subject   string    `json:"subject" db:"subject"`
	HTMLBody  string    `json:"html_body" db:"html_body"`
	TextBody  string    `json:"text_body" db:"text_body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
