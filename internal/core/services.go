// Package core implements the reminder domain services on top of a
// narrow database interface. Handlers and the sweeper compose these
// services; none of them reach into the database directly.
package core

import (
	"github.com/rs/zerolog"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/crypto"
	"github.com/mbakke/nudge/internal/provider"
)

// Services bundles every domain service over one shared DB handle.
type Services struct {
	Accounts   *AccountService
	Customers  *CustomerService
	Invoices   *InvoiceService
	Policies   *ReminderPolicyService
	Entries    *ScheduleEntryService
	Scheduler  *SchedulerService
	Mailboxes  *MailboxService
	Tokens     *TokenService
	Templates  *TemplateService
	Branding   *BrandingService
	Activity   *ActivityService
	Dispatcher *DispatcherService
	APIKeys    *APIKeyService
}

func NewServices(db DB, providers *provider.Registry, sealer *crypto.Sealer, cfg *config.Config, logger zerolog.Logger) *Services {
	accounts := NewAccountService(db)
	customers := NewCustomerService(db)
	invoices := NewInvoiceService(db)
	policies := NewReminderPolicyService(db)
	entries := NewScheduleEntryService(db)
	activity := NewActivityService(db, logger)
	templates := NewTemplateService(db)
	branding := NewBrandingService(db, cfg.FooterHTML, cfg.FooterText)
	mailboxes := NewMailboxService(db, providers, sealer, activity)
	tokens := NewTokenService(providers, mailboxes, sealer, logger)
	scheduler := NewSchedulerService(entries, invoices, policies, accounts, activity, logger)
	dispatcher := NewDispatcherService(entries, invoices, customers, accounts, mailboxes, tokens,
		templates, branding, activity, providers, logger)

	return &Services{
		Accounts:   accounts,
		Customers:  customers,
		Invoices:   invoices,
		Policies:   policies,
		Entries:    entries,
		Scheduler:  scheduler,
		Mailboxes:  mailboxes,
		Tokens:     tokens,
		Templates:  templates,
		Branding:   branding,
		Activity:   activity,
		Dispatcher: dispatcher,
		APIKeys:    NewAPIKeyService(db),
	}
}
