package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/platform"
)

// ActivityService appends to the account activity feed. Recording is
// best-effort: a failed insert is logged and swallowed so it can never
// fail the operation being recorded.
type ActivityService struct {
	db     DB
	logger zerolog.Logger
}

func NewActivityService(db DB, logger zerolog.Logger) *ActivityService {
	return &ActivityService{db: db, logger: logger.With().Str("component", "activity").Logger()}
}

func (s *ActivityService) Record(ctx context.Context, accountID, activityType, description string, invoiceID, customerID *string) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO activities (id, account_id, type, description, invoice_id, customer_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		platform.NewID(), accountID, activityType, description, invoiceID, customerID,
	)
	if err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("type", activityType).
			Msg("failed to record activity")
	}
}

func (s *ActivityService) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]model.Activity, bool, error) {
	query := `SELECT id, account_id, type, description, invoice_id, customer_id, created_at
	          FROM activities WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list activities for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Type, &a.Description, &a.InvoiceID, &a.CustomerID, &a.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate activities: %w", err)
	}

	hasMore := len(activities) > limit
	if hasMore {
		activities = activities[:limit]
	}
	return activities, hasMore, nil
}
