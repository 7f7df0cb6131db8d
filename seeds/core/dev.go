package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbakke/nudge/internal/crypto"
)

const (
	devAccountID   = "acct_dev_000000000000000001"
	devCustomerID  = "cust_dev_000000000000000001"
	devCustomer2ID = "cust_dev_000000000000000002"
	devInvoiceID   = "inv_dev_0000000000000000001"
	devInvoice2ID  = "inv_dev_0000000000000000002"
	devAPIKeyID    = "key_dev_0000000000000000001"

	// Plaintext dev key, referenced by the e2e suite.
	devAPIKeySecret = "nudge_dev_e2e_test_key_00000000"
)

func main() {
	databaseURL := os.Getenv("CORE_DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "CORE_DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("Seeding core database...")

	fmt.Println("  Inserting account...")
	_, err = pool.Exec(ctx,
		`INSERT INTO accounts (id, name, company_name, tier, timezone) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET tier = EXCLUDED.tier`,
		devAccountID, "acme-consulting", "Acme Consulting", "pro", "Europe/Oslo")
	exitOn(err, "insert account")

	fmt.Println("  Inserting customers...")
	_, err = pool.Exec(ctx,
		`INSERT INTO customers (id, account_id, name, email) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		devCustomerID, devAccountID, "Globex Corp", "ap@globex.test")
	exitOn(err, "insert customer")
	_, err = pool.Exec(ctx,
		`INSERT INTO customers (id, account_id, name, email) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		devCustomer2ID, devAccountID, "Initech LLC", "billing@initech.test")
	exitOn(err, "insert customer")

	fmt.Println("  Inserting invoices...")
	now := time.Now().UTC()
	_, err = pool.Exec(ctx,
		`INSERT INTO invoices (id, account_id, customer_id, number, amount_cents, currency, issue_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING`,
		devInvoiceID, devAccountID, devCustomerID, "INV-1001", int64(250000), "USD",
		now.AddDate(0, 0, -30), now.AddDate(0, 0, -5), "overdue")
	exitOn(err, "insert invoice")
	_, err = pool.Exec(ctx,
		`INSERT INTO invoices (id, account_id, customer_id, number, amount_cents, currency, issue_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING`,
		devInvoice2ID, devAccountID, devCustomer2ID, "INV-1002", int64(480000), "USD",
		now.AddDate(0, 0, -2), now.AddDate(0, 0, 12), "pending")
	exitOn(err, "insert invoice")

	fmt.Println("  Inserting reminder policy...")
	_, err = pool.Exec(ctx,
		`INSERT INTO reminder_policies (account_id, first_offset_days, second_offset_days, final_offset_days,
		                                auto_enabled, business_hours_only, weekdays_only)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account_id) DO UPDATE SET auto_enabled = EXCLUDED.auto_enabled`,
		devAccountID, 3, 7, 14, true, true, true)
	exitOn(err, "insert reminder policy")

	fmt.Println("  Inserting API key...")
	_, err = pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		devAPIKeyID, "dev-e2e", crypto.HashSecret(devAPIKeySecret))
	exitOn(err, "insert api key")

	fmt.Println("Done.")
	fmt.Printf("Dev API key: %s\n", devAPIKeySecret)
}

func exitOn(err error, what string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
		os.Exit(1)
	}
}
