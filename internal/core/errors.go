package core

import "errors"

var (
	// ErrUpgradeRequired is returned when a free-tier account tries to
	// hide the branding footer.
	ErrUpgradeRequired = errors.New("hiding the footer requires a paid plan")

	// ErrNoConnection is returned when an account has no active mailbox
	// connection to send through.
	ErrNoConnection = errors.New("no active mailbox connection")

	// ErrReauthorizationRequired is returned when a connection's tokens
	// cannot be refreshed; the connection has been deactivated and the
	// user must reconnect.
	ErrReauthorizationRequired = errors.New("mailbox connection requires reauthorization")

	// ErrPolicyConflict is returned when a reminder policy write would
	// produce out-of-order reminder times.
	ErrPolicyConflict = errors.New("reminder offsets must increase from first to final")

	// ErrInvoicePaid is returned when a reminder is requested for an
	// invoice that has already been settled.
	ErrInvoicePaid = errors.New("invoice is already paid")
)
