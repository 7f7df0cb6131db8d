package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mbakke/nudge/internal/model"
)

// Default offsets applied when an account has never saved a policy.
// Auto-sending stays off until the account opts in.
var defaultPolicy = model.ReminderPolicy{
	FirstOffsetDays:  intPtr(3),
	SecondOffsetDays: intPtr(7),
	FinalOffsetDays:  intPtr(14),
}

func intPtr(n int) *int { return &n }

type ReminderPolicyService struct {
	db DB
}

func NewReminderPolicyService(db DB) *ReminderPolicyService {
	return &ReminderPolicyService{db: db}
}

// Get returns the account's reminder policy, or the platform default
// (with auto-sending disabled) when none has been saved yet.
func (s *ReminderPolicyService) Get(ctx context.Context, accountID string) (*model.ReminderPolicy, error) {
	var p model.ReminderPolicy
	err := s.db.QueryRow(ctx,
		`SELECT account_id, first_offset_days, second_offset_days, final_offset_days,
		        auto_enabled, business_hours_only, weekdays_only, updated_at
		 FROM reminder_policies WHERE account_id = $1`, accountID,
	).Scan(&p.AccountID, &p.FirstOffsetDays, &p.SecondOffsetDays, &p.FinalOffsetDays,
		&p.AutoEnabled, &p.BusinessHoursOnly, &p.WeekdaysOnly, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		d := defaultPolicy
		d.AccountID = accountID
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder policy for account %s: %w", accountID, err)
	}
	return &p, nil
}

// Put validates and saves the account's policy. Validation happens here,
// at the write boundary, so the scheduler can assume a well-formed
// policy.
func (s *ReminderPolicyService) Put(ctx context.Context, p *model.ReminderPolicy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO reminder_policies (account_id, first_offset_days, second_offset_days, final_offset_days,
		                                auto_enabled, business_hours_only, weekdays_only, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (account_id) DO UPDATE SET
		   first_offset_days = EXCLUDED.first_offset_days,
		   second_offset_days = EXCLUDED.second_offset_days,
		   final_offset_days = EXCLUDED.final_offset_days,
		   auto_enabled = EXCLUDED.auto_enabled,
		   business_hours_only = EXCLUDED.business_hours_only,
		   weekdays_only = EXCLUDED.weekdays_only,
		   updated_at = now()`,
		p.AccountID, p.FirstOffsetDays, p.SecondOffsetDays, p.FinalOffsetDays,
		p.AutoEnabled, p.BusinessHoursOnly, p.WeekdaysOnly,
	)
	if err != nil {
		return fmt.Errorf("save reminder policy for account %s: %w", p.AccountID, err)
	}
	return nil
}

func validatePolicy(p *model.ReminderPolicy) error {
	prev := -1
	configured := 0
	for _, kind := range model.ReminderKinds {
		offset := p.OffsetFor(kind)
		if offset == nil {
			continue
		}
		configured++
		if *offset < 0 {
			return fmt.Errorf("%s reminder offset must not be negative", kind)
		}
		if *offset <= prev {
			return ErrPolicyConflict
		}
		prev = *offset
	}
	if p.AutoEnabled && configured == 0 {
		return fmt.Errorf("automatic reminders need at least one offset configured")
	}
	return nil
}
