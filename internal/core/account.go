package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mbakke/nudge/internal/model"
)

type AccountService struct {
	db DB
}

func NewAccountService(db DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) Create(ctx context.Context, a *model.Account) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO accounts (id, name, company_name, tier, hide_footer_requested, timezone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Name, a.CompanyName, a.Tier, a.HideFooterRequested, a.Timezone, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, name, company_name, tier, hide_footer_requested, timezone, created_at, updated_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.CompanyName, &a.Tier, &a.HideFooterRequested, &a.Timezone, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &a, nil
}

func (s *AccountService) Update(ctx context.Context, id, name, companyName, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", timezone)
	}
	_, err := s.db.Exec(ctx,
		`UPDATE accounts SET name = $2, company_name = $3, timezone = $4, updated_at = now() WHERE id = $1`,
		id, name, companyName, timezone,
	)
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	return nil
}

func (s *AccountService) List(ctx context.Context, limit int, cursor string) ([]model.Account, bool, error) {
	query := `SELECT id, name, company_name, tier, hide_footer_requested, timezone, created_at, updated_at FROM accounts`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CompanyName, &a.Tier, &a.HideFooterRequested, &a.Timezone, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate accounts: %w", err)
	}

	hasMore := len(accounts) > limit
	if hasMore {
		accounts = accounts[:limit]
	}
	return accounts, hasMore, nil
}

// Location resolves the account's IANA timezone, falling back to UTC
// when the stored name no longer loads.
func (s *AccountService) Location(ctx context.Context, accountID string) (*time.Location, error) {
	var tz string
	err := s.db.QueryRow(ctx, `SELECT timezone FROM accounts WHERE id = $1`, accountID).Scan(&tz)
	if err != nil {
		return nil, fmt.Errorf("get account timezone: %w", err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}
