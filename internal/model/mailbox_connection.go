package model

import "time"

// MailboxConnection is an OAuth-authorized grant to send mail as the
// user's own address. Token columns hold sealed ciphertext, never the
// raw tokens. Connections are deactivated on irrecoverable auth
// failure or explicit disconnect, never deleted.
type MailboxConnection struct {
	ID           string     `json:"id" db:"id"`
	AccountID    string     `json:"account_id" db:"account_id"`
	Provider     string     `json:"provider" db:"provider"`
	Address      string     `json:"address" db:"address"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken *string    `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Active       bool       `json:"active" db:"active"`
	LastTestAt   *time.Time `json:"last_test_at,omitempty" db:"last_test_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
