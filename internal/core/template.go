package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/platform"
)

// Built-in reminder templates, keyed by reminder kind. Accounts may
// override any of them per kind.
var defaultTemplates = map[string]model.Template{
	model.ReminderFirst: {
		Subject: "Friendly reminder: invoice {{invoiceNumber}} is due",
		HTMLBody: "<p>Hi {{customerName}},</p>" +
			"<p>Just a friendly reminder that invoice {{invoiceNumber}} for {{amount}} was due on {{dueDate}}.</p>" +
			"<p>If you've already paid, please disregard this message.</p>" +
			"<p>Thanks,<br>{{companyName}}</p>",
		TextBody: "Hi {{customerName}},\n\n" +
			"Just a friendly reminder that invoice {{invoiceNumber}} for {{amount}} was due on {{dueDate}}.\n\n" +
			"If you've already paid, please disregard this message.\n\n" +
			"Thanks,\n{{companyName}}",
	},
	model.ReminderSecond: {
		Subject: "Second notice: invoice {{invoiceNumber}} is overdue",
		HTMLBody: "<p>Hi {{customerName}},</p>" +
			"<p>Invoice {{invoiceNumber}} for {{amount}} was due on {{dueDate}} and remains unpaid.</p>" +
			"<p>Please arrange payment at your earliest convenience.</p>" +
			"<p>Thanks,<br>{{companyName}}</p>",
		TextBody: "Hi {{customerName}},\n\n" +
			"Invoice {{invoiceNumber}} for {{amount}} was due on {{dueDate}} and remains unpaid.\n\n" +
			"Please arrange payment at your earliest convenience.\n\n" +
			"Thanks,\n{{companyName}}",
	},
	model.ReminderFinal: {
		Subject: "Final notice: invoice {{invoiceNumber}}",
		HTMLBody: "<p>Hi {{customerName}},</p>" +
			"<p>This is a final notice for invoice {{invoiceNumber}} for {{amount}}, due {{dueDate}}.</p>" +
			"<p>Please settle the outstanding balance to avoid further action.</p>" +
			"<p>Regards,<br>{{companyName}}</p>",
		TextBody: "Hi {{customerName}},\n\n" +
			"This is a final notice for invoice {{invoiceNumber}} for {{amount}}, due {{dueDate}}.\n\n" +
			"Please settle the outstanding balance to avoid further action.\n\n" +
			"Regards,\n{{companyName}}",
	},
	model.ReminderManual: {
		Subject: "Reminder: invoice {{invoiceNumber}}",
		HTMLBody: "<p>Hi {{customerName}},</p>" +
			"<p>A reminder that invoice {{invoiceNumber}} for {{amount}} is outstanding (due {{dueDate}}).</p>" +
			"<p>Thanks,<br>{{companyName}}</p>",
		TextBody: "Hi {{customerName}},\n\n" +
			"A reminder that invoice {{invoiceNumber}} for {{amount}} is outstanding (due {{dueDate}}).\n\n" +
			"Thanks,\n{{companyName}}",
	},
}

type TemplateService struct {
	db DB
}

func NewTemplateService(db DB) *TemplateService {
	return &TemplateService{db: db}
}

// Get returns the account's template for a reminder kind, falling back
// to the built-in one when no override exists.
func (s *TemplateService) Get(ctx context.Context, accountID, kind string) (*model.Template, error) {
	if _, ok := defaultTemplates[kind]; !ok {
		return nil, fmt.Errorf("unknown reminder kind %q", kind)
	}

	var t model.Template
	err := s.db.QueryRow(ctx,
		`SELECT id, account_id, kind, subject, html_body, text_body, created_at, updated_at
		 FROM templates WHERE account_id = $1 AND kind = $2`,
		accountID, kind,
	).Scan(&t.ID, &t.AccountID, &t.Kind, &t.Subject, &t.HTMLBody, &t.TextBody, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		d := defaultTemplates[kind]
		d.AccountID = accountID
		d.Kind = kind
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template (%s, %s): %w", accountID, kind, err)
	}
	return &t, nil
}

// Put saves a per-account override for one reminder kind.
func (s *TemplateService) Put(ctx context.Context, t *model.Template) error {
	if _, ok := defaultTemplates[t.Kind]; !ok {
		return fmt.Errorf("unknown reminder kind %q", t.Kind)
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO templates (id, account_id, kind, subject, html_body, text_body, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (account_id, kind) DO UPDATE SET
		   subject = EXCLUDED.subject,
		   html_body = EXCLUDED.html_body,
		   text_body = EXCLUDED.text_body,
		   updated_at = now()`,
		platform.NewID(), t.AccountID, t.Kind, t.Subject, t.HTMLBody, t.TextBody,
	)
	if err != nil {
		return fmt.Errorf("save template (%s, %s): %w", t.AccountID, t.Kind, err)
	}
	return nil
}

// Delete removes an override, restoring the built-in template.
func (s *TemplateService) Delete(ctx context.Context, accountID, kind string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM templates WHERE account_id = $1 AND kind = $2`, accountID, kind)
	if err != nil {
		return fmt.Errorf("delete template (%s, %s): %w", accountID, kind, err)
	}
	return nil
}

// RenderedMessage is a template with its merge fields substituted.
type RenderedMessage struct {
	Subject string
	HTML    string
	Text    string
}

// Render substitutes the merge fields into the template. Fields without
// a value are left verbatim so a typo is visible instead of silently
// blanked.
func Render(t *model.Template, inv *model.Invoice, customer *model.Customer, account *model.Account) RenderedMessage {
	description := ""
	if inv.Description != nil {
		description = *inv.Description
	}
	r := strings.NewReplacer(
		"{{customerName}}", customer.Name,
		"{{invoiceNumber}}", inv.Number,
		"{{amount}}", formatAmount(inv.AmountCents, inv.Currency),
		"{{dueDate}}", inv.DueDate.Format("January 2, 2006"),
		"{{issueDate}}", inv.IssueDate.Format("January 2, 2006"),
		"{{description}}", description,
		"{{companyName}}", account.CompanyName,
	)
	return RenderedMessage{
		Subject: r.Replace(t.Subject),
		HTML:    r.Replace(t.HTMLBody),
		Text:    r.Replace(t.TextBody),
	}
}

func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, cents/100, cents%100)
}
