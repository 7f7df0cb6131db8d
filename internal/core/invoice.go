package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mbakke/nudge/internal/model"
)

const invoiceColumns = `id, account_id, customer_id, number, amount_cents, currency, description,
	issue_date, due_date, status, paid_date, created_at, updated_at`

type InvoiceService struct {
	db DB
}

func NewInvoiceService(db DB) *InvoiceService {
	return &InvoiceService{db: db}
}

func (s *InvoiceService) Create(ctx context.Context, inv *model.Invoice) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO invoices (id, account_id, customer_id, number, amount_cents, currency, description,
		                       issue_date, due_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.AccountID, inv.CustomerID, inv.Number, inv.AmountCents, inv.Currency, inv.Description,
		inv.IssueDate, inv.DueDate, inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.AccountID, &inv.CustomerID, &inv.Number, &inv.AmountCents, &inv.Currency,
		&inv.Description, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.PaidDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

func (s *InvoiceService) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]model.Invoice, bool, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list invoices for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.CustomerID, &inv.Number, &inv.AmountCents, &inv.Currency,
			&inv.Description, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.PaidDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate invoices: %w", err)
	}

	hasMore := len(invoices) > limit
	if hasMore {
		invoices = invoices[:limit]
	}
	return invoices, hasMore, nil
}

// ListOpenByAccount returns unpaid invoices, the scheduler's working set.
func (s *InvoiceService) ListOpenByAccount(ctx context.Context, accountID string) ([]model.Invoice, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE account_id = $1 AND status <> $2 AND paid_date IS NULL
		 ORDER BY due_date ASC`,
		accountID, model.InvoicePaid,
	)
	if err != nil {
		return nil, fmt.Errorf("list open invoices for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.CustomerID, &inv.Number, &inv.AmountCents, &inv.Currency,
			&inv.Description, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.PaidDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

// SetDueDate moves an invoice's due date. Reminder times are derived
// from the due date, so callers should reconcile the invoice afterwards.
func (s *InvoiceService) SetDueDate(ctx context.Context, id string, dueDate time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE invoices SET due_date = $2, updated_at = now() WHERE id = $1`,
		id, dueDate,
	)
	if err != nil {
		return fmt.Errorf("set due date for invoice %s: %w", id, err)
	}
	return nil
}

func (s *InvoiceService) SetStatus(ctx context.Context, id, status string) error {
	if !model.ValidInvoiceStatus(status) {
		return fmt.Errorf("unknown invoice status %q", status)
	}
	_, err := s.db.Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("set status for invoice %s: %w", id, err)
	}
	return nil
}

// MarkPaid stamps the invoice paid. Pending reminders are cancelled by
// the caller through the scheduler so the cancellation is logged.
func (s *InvoiceService) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE invoices SET status = $2, paid_date = $3, updated_at = now() WHERE id = $1`,
		id, model.InvoicePaid, paidAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice %s paid: %w", id, err)
	}
	return nil
}

func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	return nil
}
