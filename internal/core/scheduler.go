package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbakke/nudge/internal/model"
)

// sendHour is the local hour reminders are aimed at. Offsets are whole
// days past the due date; the clock component always starts here.
const sendHour = 9

// businessOpen and businessClose bound the business-hours window.
const (
	businessOpen  = 9
	businessClose = 17
)

// SchedulerService derives schedule entries from invoices and reminder
// policies. Reconcile is idempotent: running it twice against unchanged
// inputs leaves the schedule untouched.
type SchedulerService struct {
	entries  *ScheduleEntryService
	invoices *InvoiceService
	policies *ReminderPolicyService
	accounts *AccountService
	activity *ActivityService
	logger   zerolog.Logger
}

func NewSchedulerService(entries *ScheduleEntryService, invoices *InvoiceService, policies *ReminderPolicyService,
	accounts *AccountService, activity *ActivityService, logger zerolog.Logger) *SchedulerService {
	return &SchedulerService{
		entries:  entries,
		invoices: invoices,
		policies: policies,
		accounts: accounts,
		activity: activity,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Reconcile brings the schedule for one invoice in line with its due
// date and the account's policy. Paid invoices get their pending
// reminders cancelled; otherwise each configured reminder kind is
// upserted at its computed fire time.
func (s *SchedulerService) Reconcile(ctx context.Context, inv *model.Invoice) error {
	if inv.Paid() {
		return s.cancelPending(ctx, inv)
	}

	policy, err := s.policies.Get(ctx, inv.AccountID)
	if err != nil {
		return fmt.Errorf("reconcile invoice %s: %w", inv.ID, err)
	}
	if !policy.AutoEnabled {
		return s.cancelPending(ctx, inv)
	}

	loc, err := s.accounts.Location(ctx, inv.AccountID)
	if err != nil {
		return fmt.Errorf("reconcile invoice %s: %w", inv.ID, err)
	}

	var prev time.Time
	for _, kind := range model.ReminderKinds {
		offset := policy.OffsetFor(kind)
		if offset == nil {
			continue
		}

		fireAt := fireTime(inv.DueDate, *offset, loc)
		fireAt = adjustFireTime(fireAt, policy)

		// Adjustments can push a later reminder onto or before an
		// earlier one. Skip rather than send out of order.
		if !prev.IsZero() && !fireAt.After(prev) {
			s.logger.Warn().
				Str("invoice_id", inv.ID).
				Str("kind", kind).
				Time("fire_at", fireAt).
				Time("previous", prev).
				Msg("reminder ordering conflict, skipping")
			continue
		}
		prev = fireAt

		if err := s.entries.Upsert(ctx, inv.ID, inv.AccountID, kind, fireAt.UTC()); err != nil {
			return fmt.Errorf("reconcile invoice %s: %w", inv.ID, err)
		}
	}
	return nil
}

func (s *SchedulerService) cancelPending(ctx context.Context, inv *model.Invoice) error {
	n, err := s.entries.CancelForInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("reconcile invoice %s: %w", inv.ID, err)
	}
	if n > 0 {
		s.activity.Record(ctx, inv.AccountID, model.ActivityReminderCancelled,
			fmt.Sprintf("Cancelled %d pending reminder(s) for invoice %s", n, inv.Number), &inv.ID, nil)
	}
	return nil
}

// ReconcileAccount reconciles every open invoice on the account. Used
// after policy or timezone changes, where one edit moves many entries.
func (s *SchedulerService) ReconcileAccount(ctx context.Context, accountID string) error {
	invoices, err := s.invoices.ListOpenByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("reconcile account %s: %w", accountID, err)
	}
	for i := range invoices {
		if err := s.Reconcile(ctx, &invoices[i]); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleUpcoming reconciles the account and returns the entries due to
// fire within the window.
func (s *SchedulerService) ScheduleUpcoming(ctx context.Context, accountID string, withinDays int) ([]model.ScheduleEntry, error) {
	if err := s.ReconcileAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.entries.UpcomingByAccount(ctx, accountID, withinDays)
}

// fireTime places the reminder offset days after the due date, at the
// send hour in the account's timezone. A reminder never fires before
// the due moment itself: a zero offset on an invoice due late in the
// day aims at the due time instead of that morning.
func fireTime(dueDate time.Time, offsetDays int, loc *time.Location) time.Time {
	d := dueDate.In(loc)
	t := time.Date(d.Year(), d.Month(), d.Day()+offsetDays, sendHour, 0, 0, 0, loc)
	if t.Before(d) {
		return d
	}
	return t
}

// adjustFireTime applies the policy's weekday and business-hours
// constraints. Weekends move forward to Monday keeping the clock;
// out-of-window clocks move to the next opening, which may itself land
// on a weekend and get pushed again.
func adjustFireTime(t time.Time, policy *model.ReminderPolicy) time.Time {
	if policy.WeekdaysOnly {
		t = skipWeekend(t)
	}
	if policy.BusinessHoursOnly {
		switch {
		case t.Hour() < businessOpen:
			t = time.Date(t.Year(), t.Month(), t.Day(), businessOpen, 0, 0, 0, t.Location())
		case t.Hour() >= businessClose:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, businessOpen, 0, 0, 0, t.Location())
			if policy.WeekdaysOnly {
				t = skipWeekend(t)
			}
		}
	}
	return t
}

func skipWeekend(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}
