package model

// Schedule entry states. Scheduled is the only non-terminal state.
const (
	EntryScheduled = "scheduled"
	EntrySent      = "sent"
	EntryCancelled = "cancelled"
	EntryFailed    = "failed"
)

// Invoice statuses. Paid freezes all reminder activity for the invoice.
const (
	InvoicePending = "pending"
	InvoiceSent    = "sent"
	InvoiceViewed  = "viewed"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// Subscription tiers.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Reminder kinds. ReminderKinds lists the scheduled kinds in firing order;
// ReminderManual is reserved for operator-triggered sends and is never
// produced by the scheduler.
const (
	ReminderFirst  = "first"
	ReminderSecond = "second"
	ReminderFinal  = "final"
	ReminderManual = "manual"
)

var ReminderKinds = []string{ReminderFirst, ReminderSecond, ReminderFinal}

// Mailbox providers.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// Failure reason categories recorded on failed schedule entries.
const (
	FailureNoConnection   = "no_connection"
	FailureAuth           = "auth"
	FailurePermanent      = "permanent"
	FailureRetryExhausted = "retry_exhausted"
)

// Activity types.
const (
	ActivityReminderSent      = "reminder_sent"
	ActivityReminderFailed    = "reminder_failed"
	ActivityReminderCancelled = "reminder_cancelled"
	ActivityMailboxConnected  = "mailbox_connected"
	ActivityMailboxRevoked    = "mailbox_revoked"
	ActivityTestSend          = "test_send"
)

// ValidTier reports whether s is a known subscription tier.
func ValidTier(s string) bool {
	switch s {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// ValidInvoiceStatus reports whether s is a known invoice status.
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoicePending, InvoiceSent, InvoiceViewed, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}
