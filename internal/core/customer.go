package core

import (
	"context"
	"fmt"

	"github.com/mbakke/nudge/internal/model"
)

type CustomerService struct {
	db DB
}

func NewCustomerService(db DB) *CustomerService {
	return &CustomerService{db: db}
}

func (s *CustomerService) Create(ctx context.Context, c *model.Customer) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO customers (id, account_id, name, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.AccountID, c.Name, c.Email, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRow(ctx,
		`SELECT id, account_id, name, email, created_at, updated_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.AccountID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}

func (s *CustomerService) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]model.Customer, bool, error) {
	query := `SELECT id, account_id, name, email, created_at, updated_at FROM customers WHERE account_id = $1`
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
		return nil, false, fmt.Errorf("list customers for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate customers: %w", err)
	}

	hasMore := len(customers) > limit
	if hasMore {
		customers = customers[:limit]
	}
	return customers, hasMore, nil
}

func (s *CustomerService) Update(ctx context.Context, id, name, email string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE customers SET name = $2, email = $3, updated_at = now() WHERE id = $1`,
		id, name, email,
	)
	if err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	return nil
}

func (s *CustomerService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}
