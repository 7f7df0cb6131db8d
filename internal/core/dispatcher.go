package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/provider"
)

// maxAttempts bounds transient-failure retries per schedule entry.
const maxAttempts = 5

// sendTimeout caps one provider send call so a hung upstream cannot
// stall a sweep worker.
const sendTimeout = 15 * time.Second

// DispatcherService delivers due schedule entries. The state machine is
// enforced through CAS transitions on the entry row, so any number of
// dispatchers can run against the same table.
type DispatcherService struct {
	entries   *ScheduleEntryService
	invoices  *InvoiceService
	customers *CustomerService
	accounts  *AccountService
	mailboxes *MailboxService
	tokens    *TokenService
	templates *TemplateService
	branding  *BrandingService
	activity  *ActivityService
	providers *provider.Registry
	logger    zerolog.Logger
}

func NewDispatcherService(entries *ScheduleEntryService, invoices *InvoiceService, customers *CustomerService,
	accounts *AccountService, mailboxes *MailboxService, tokens *TokenService, templates *TemplateService,
	branding *BrandingService, activity *ActivityService, providers *provider.Registry, logger zerolog.Logger) *DispatcherService {
	return &DispatcherService{
		entries:   entries,
		invoices:  invoices,
		customers: customers,
		accounts:  accounts,
		mailboxes: mailboxes,
		tokens:    tokens,
		templates: templates,
		branding:  branding,
		activity:  activity,
		providers: providers,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch attempts delivery of one Scheduled entry. It always resolves
// the entry's fate itself (Sent, Cancelled, Failed, or left Scheduled
// for a retry); a non-nil return means the attempt could not even be
// classified and should be surfaced to the sweep log.
func (s *DispatcherService) Dispatch(ctx context.Context, entry *model.ScheduleEntry) error {
	inv, err := s.invoices.GetByID(ctx, entry.InvoiceID)
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}

	// Payment may have landed between scheduling and firing.
	if inv.Paid() {
		ok, err := s.entries.MarkCancelled(ctx, entry.ID)
		if err != nil {
			return err
		}
		if ok {
			s.activity.Record(ctx, entry.AccountID, model.ActivityReminderCancelled,
				fmt.Sprintf("Skipped %s reminder for invoice %s: already paid", entry.Kind, inv.Number), &inv.ID, nil)
		}
		return nil
	}

	conn, err := s.mailboxes.Active(ctx, entry.AccountID)
	if errors.Is(err, ErrNoConnection) {
		return s.fail(ctx, entry, inv, model.FailureNoConnection, "no active mailbox connection")
	}
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}

	accessToken, err := s.tokens.AccessToken(ctx, conn)
	if errors.Is(err, ErrReauthorizationRequired) {
		return s.fail(ctx, entry, inv, model.FailureAuth, "mailbox authorization expired")
	}
	if err != nil {
		return s.retry(ctx, entry, inv, err)
	}

	customer, err := s.customers.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}
	account, err := s.accounts.GetByID(ctx, entry.AccountID)
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}
	tmpl, err := s.templates.Get(ctx, entry.AccountID, entry.Kind)
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}

	rendered := Render(tmpl, inv, customer, account)
	html, text := s.branding.Finalize(account, rendered.HTML, rendered.Text)

	p, err := s.providers.For(conn.Provider)
	if err != nil {
		return fmt.Errorf("dispatch entry %s: %w", entry.ID, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	sendErr := p.Send(sendCtx, accessToken, provider.Message{
		From:     conn.Address,
		FromName: account.CompanyName,
		To:       customer.Email,
		Subject:  rendered.Subject,
		HTML:     html,
		Text:     text,
	})
	switch {
	case sendErr == nil:
		// Fallthrough to the sent transition below.
	case provider.IsAuthError(sendErr):
		if derr := s.mailboxes.Deactivate(ctx, conn.ID, conn.AccountID); derr != nil {
			s.logger.Error().Err(derr).Str("connection_id", conn.ID).Msg("failed to deactivate connection")
		}
		return s.fail(ctx, entry, inv, model.FailureAuth, "provider rejected authorization")
	case provider.IsPermanent(sendErr):
		return s.fail(ctx, entry, inv, model.FailurePermanent, sendErr.Error())
	default:
		return s.retry(ctx, entry, inv, sendErr)
	}

	ok, err := s.entries.MarkSent(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Another worker resolved the entry while we were sending. The
		// customer may receive a duplicate; log it rather than hide it.
		s.logger.Warn().Str("entry_id", entry.ID).Msg("entry resolved concurrently after send")
		return nil
	}

	s.activity.Record(ctx, entry.AccountID, model.ActivityReminderSent,
		fmt.Sprintf("Sent %s reminder for invoice %s to %s", entry.Kind, inv.Number, customer.Email),
		&inv.ID, &customer.ID)
	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("invoice_id", inv.ID).
		Str("kind", entry.Kind).
		Msg("reminder sent")
	return nil
}

// SendNow creates and immediately dispatches a manual reminder,
// bypassing the scheduler's timing rules but not the delivery state
// machine.
func (s *DispatcherService) SendNow(ctx context.Context, invoiceID string) (*model.ScheduleEntry, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Paid() {
		return nil, ErrInvoicePaid
	}

	entry, err := s.entries.CreateManual(ctx, invoiceID, inv.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.Dispatch(ctx, entry); err != nil {
		return nil, err
	}
	return s.entries.GetByID(ctx, entry.ID)
}

// fail moves the entry to Failed with a reason category and records it.
func (s *DispatcherService) fail(ctx context.Context, entry *model.ScheduleEntry, inv *model.Invoice, reason, detail string) error {
	ok, err := s.entries.MarkFailed(ctx, entry.ID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.activity.Record(ctx, entry.AccountID, model.ActivityReminderFailed,
		fmt.Sprintf("Failed to send %s reminder for invoice %s: %s", entry.Kind, inv.Number, detail), &inv.ID, nil)
	s.logger.Warn().
		Str("entry_id", entry.ID).
		Str("invoice_id", inv.ID).
		Str("reason", reason).
		Str("detail", detail).
		Msg("reminder failed")
	return nil
}

// retry counts a transient failure against the entry's attempt budget.
// Under budget the entry stays Scheduled and a later sweep picks it up
// again; over budget it fails as retry_exhausted.
func (s *DispatcherService) retry(ctx context.Context, entry *model.ScheduleEntry, inv *model.Invoice, cause error) error {
	attempts, err := s.entries.BumpAttempts(ctx, entry.ID)
	if err != nil {
		return err
	}
	if attempts >= maxAttempts {
		return s.fail(ctx, entry, inv, model.FailureRetryExhausted,
			fmt.Sprintf("gave up after %d attempts: %v", attempts, cause))
	}
	s.logger.Warn().Err(cause).
		Str("entry_id", entry.ID).
		Int("attempts", attempts).
		Msg("transient send failure, will retry")
	return nil
}

// TestSend delivers a short verification message to the connected
// mailbox itself.
func (s *DispatcherService) TestSend(ctx context.Context, accountID string) error {
	conn, err := s.mailboxes.Active(ctx, accountID)
	if err != nil {
		return err
	}
	accessToken, err := s.tokens.AccessToken(ctx, conn)
	if err != nil {
		return err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	p, err := s.providers.For(conn.Provider)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err = p.Send(sendCtx, accessToken, provider.Message{
		From:     conn.Address,
		FromName: account.CompanyName,
		To:       conn.Address,
		Subject:  "Your mailbox connection is working",
		HTML:     "<p>This is a test message confirming your mailbox connection can send reminders.</p>",
		Text:     "This is a test message confirming your mailbox connection can send reminders.",
	})
	if err != nil {
		return fmt.Errorf("test send: %w", err)
	}

	if err := s.mailboxes.MarkTested(ctx, conn.ID); err != nil {
		return err
	}
	s.activity.Record(ctx, accountID, model.ActivityTestSend,
		fmt.Sprintf("Test message sent to %s", conn.Address), nil, nil)
	return nil
}
