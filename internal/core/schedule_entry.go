package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/platform"
)

const entryColumns = `id, invoice_id, account_id, kind, fire_at, state, attempts, failure_reason, sent_at, created_at, updated_at`

// ScheduleEntryService owns the schedule_entries table. Every state
// transition is compare-and-swap on the current state so concurrent
// sweeps and manual sends can never double-process an entry.
type ScheduleEntryService struct {
	db DB
}

func NewScheduleEntryService(db DB) *ScheduleEntryService {
	return &ScheduleEntryService{db: db}
}

func (s *ScheduleEntryService) GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	err := s.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries WHERE id = $1`, id,
	).Scan(&e.ID, &e.InvoiceID, &e.AccountID, &e.Kind, &e.FireAt, &e.State, &e.Attempts,
		&e.FailureReason, &e.SentAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get schedule entry %s: %w", id, err)
	}
	return &e, nil
}

// Upsert creates or retimes the entry for (invoice, kind). Entries that
// already reached a terminal Sent or Cancelled state are left alone;
// Failed entries are revived only when the computed fire time moved,
// which means the invoice or policy changed underneath them.
func (s *ScheduleEntryService) Upsert(ctx context.Context, invoiceID, accountID, kind string, fireAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO schedule_entries (id, invoice_id, account_id, kind, fire_at, state, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, now(), now())
		 ON CONFLICT (invoice_id, kind) WHERE kind <> 'manual' DO UPDATE SET
		   fire_at = EXCLUDED.fire_at,
		   state = $6,
		   attempts = 0,
		   failure_reason = NULL,
		   updated_at = now()
		 WHERE schedule_entries.state IN ($6, $7)
		   AND schedule_entries.fire_at IS DISTINCT FROM EXCLUDED.fire_at`,
		platform.NewID(), invoiceID, accountID, kind, fireAt, model.EntryScheduled, model.EntryFailed,
	)
	if err != nil {
		return fmt.Errorf("upsert schedule entry (%s, %s): %w", invoiceID, kind, err)
	}
	return nil
}

// CreateManual inserts an immediate one-off entry for a manual send.
// Manual entries sit outside the (invoice, kind) idempotency key.
func (s *ScheduleEntryService) CreateManual(ctx context.Context, invoiceID, accountID string) (*model.ScheduleEntry, error) {
	now := time.Now().UTC()
	e := &model.ScheduleEntry{
		ID:        platform.NewID(),
		InvoiceID: invoiceID,
		AccountID: accountID,
		Kind:      model.ReminderManual,
		FireAt:    now,
		State:     model.EntryScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO schedule_entries (id, invoice_id, account_id, kind, fire_at, state, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`,
		e.ID, e.InvoiceID, e.AccountID, e.Kind, e.FireAt, e.State, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert manual schedule entry for invoice %s: %w", invoiceID, err)
	}
	return e, nil
}

// Due returns Scheduled entries whose fire time has passed, oldest
// first.
func (s *ScheduleEntryService) Due(ctx context.Context, now time.Time, limit int) ([]model.ScheduleEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries
		 WHERE state = $1 AND fire_at <= $2
		 ORDER BY fire_at ASC
		 LIMIT $3`,
		model.EntryScheduled, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select due schedule entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// UpcomingByAccount lists Scheduled entries firing within the window,
// for the upcoming-reminders view.
func (s *ScheduleEntryService) UpcomingByAccount(ctx context.Context, accountID string, withinDays int) ([]model.ScheduleEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries
		 WHERE account_id = $1 AND state = $2 AND fire_at <= now() + make_interval(days => $3)
		 ORDER BY fire_at ASC`,
		accountID, model.EntryScheduled, withinDays,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming schedule entries for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByInvoice returns all entries for an invoice, newest kind order
// preserved by fire time.
func (s *ScheduleEntryService) ListByInvoice(ctx context.Context, invoiceID string) ([]model.ScheduleEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+` FROM schedule_entries WHERE invoice_id = $1 ORDER BY fire_at ASC`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedule entries for invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkSent transitions Scheduled -> Sent. Returns false when the entry
// was no longer Scheduled, meaning another worker won the race.
func (s *ScheduleEntryService) MarkSent(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedule_entries SET state = $2, sent_at = now(), updated_at = now()
		 WHERE id = $1 AND state = $3`,
		id, model.EntrySent, model.EntryScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("mark schedule entry %s sent: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed transitions Scheduled -> Failed with a reason category.
func (s *ScheduleEntryService) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedule_entries SET state = $2, failure_reason = $3, updated_at = now()
		 WHERE id = $1 AND state = $4`,
		id, model.EntryFailed, reason, model.EntryScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("mark schedule entry %s failed: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCancelled transitions Scheduled -> Cancelled.
func (s *ScheduleEntryService) MarkCancelled(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedule_entries SET state = $2, updated_at = now()
		 WHERE id = $1 AND state = $3`,
		id, model.EntryCancelled, model.EntryScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("mark schedule entry %s cancelled: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelForInvoice cancels every still-Scheduled entry for an invoice.
// Sent, Failed and already-Cancelled entries are untouched.
func (s *ScheduleEntryService) CancelForInvoice(ctx context.Context, invoiceID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedule_entries SET state = $2, updated_at = now()
		 WHERE invoice_id = $1 AND state = $3`,
		invoiceID, model.EntryCancelled, model.EntryScheduled,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel schedule entries for invoice %s: %w", invoiceID, err)
	}
	return tag.RowsAffected(), nil
}

// BumpAttempts increments the delivery attempt counter and returns the
// new count. Only Scheduled entries are counted; a concurrent terminal
// transition leaves the counter alone and returns 0 rows.
func (s *ScheduleEntryService) BumpAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.db.QueryRow(ctx,
		`UPDATE schedule_entries SET attempts = attempts + 1, updated_at = now()
		 WHERE id = $1 AND state = $2
		 RETURNING attempts`,
		id, model.EntryScheduled,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("bump attempts for schedule entry %s: %w", id, err)
	}
	return attempts, nil
}

func scanEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.AccountID, &e.Kind, &e.FireAt, &e.State, &e.Attempts,
			&e.FailureReason, &e.SentAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule entries: %w", err)
	}
	return entries, nil
}
