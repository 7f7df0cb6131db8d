package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbakke/nudge/internal/crypto"
	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/platform"
	"github.com/mbakke/nudge/internal/provider"
)

const connectionColumns = `id, account_id, provider, address, access_token, refresh_token,
	expires_at, active, last_test_at, created_at, updated_at`

// MailboxService manages OAuth mailbox connections. Tokens are sealed
// before storage; the OAuth state parameter is sealed too, which makes
// it both tamper-proof and self-describing.
type MailboxService struct {
	db        DB
	providers *provider.Registry
	sealer    *crypto.Sealer
	activity  *ActivityService
}

func NewMailboxService(db DB, providers *provider.Registry, sealer *crypto.Sealer, activity *ActivityService) *MailboxService {
	return &MailboxService{db: db, providers: providers, sealer: sealer, activity: activity}
}

// BeginConnect starts the OAuth flow and returns the provider's consent
// URL.
func (s *MailboxService) BeginConnect(ctx context.Context, accountID, providerName string) (string, error) {
	p, err := s.providers.For(providerName)
	if err != nil {
		return "", err
	}
	state, err := s.sealer.Seal(accountID + "|" + providerName)
	if err != nil {
		return "", fmt.Errorf("seal oauth state: %w", err)
	}
	return p.AuthURL(state), nil
}

// CompleteConnect finishes the OAuth flow: it unpacks the state,
// exchanges the code, resolves the mailbox address, and stores the
// sealed tokens. An account holds at most one connection per provider;
// reconnecting replaces the stored grant.
func (s *MailboxService) CompleteConnect(ctx context.Context, state, code string) (*model.MailboxConnection, error) {
	opened, err := s.sealer.Open(state)
	if err != nil {
		return nil, fmt.Errorf("open oauth state: %w", err)
	}
	accountID, providerName, ok := strings.Cut(opened, "|")
	if !ok {
		return nil, fmt.Errorf("malformed oauth state")
	}

	p, err := s.providers.For(providerName)
	if err != nil {
		return nil, err
	}

	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	identity, err := p.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("resolve mailbox identity: %w", err)
	}

	sealedAccess, err := s.sealer.Seal(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	var sealedRefresh *string
	if token.RefreshToken != "" {
		sr, err := s.sealer.Seal(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("seal refresh token: %w", err)
		}
		sealedRefresh = &sr
	}

	now := time.Now().UTC()
	conn := &model.MailboxConnection{
		ID:           platform.NewID(),
		AccountID:    accountID,
		Provider:     providerName,
		Address:      identity.Address,
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		conn.ExpiresAt = &expiry
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO mailbox_connections (id, account_id, provider, address, access_token, refresh_token,
		                                  expires_at, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $8)
		 ON CONFLICT (account_id, provider) DO UPDATE SET
		   address = EXCLUDED.address,
		   access_token = EXCLUDED.access_token,
		   refresh_token = COALESCE(EXCLUDED.refresh_token, mailbox_connections.refresh_token),
		   expires_at = EXCLUDED.expires_at,
		   active = true,
		   updated_at = now()`,
		conn.ID, conn.AccountID, conn.Provider, conn.Address, conn.AccessToken, conn.RefreshToken,
		conn.ExpiresAt, now,
	)
	if err != nil {
		return nil, fmt.Errorf("store mailbox connection: %w", err)
	}

	s.activity.Record(ctx, accountID, model.ActivityMailboxConnected,
		fmt.Sprintf("Connected %s mailbox %s", providerName, identity.Address), nil, nil)
	return conn, nil
}

// Active returns the account's active mailbox connection, or
// ErrNoConnection when none exists. With multiple active connections
// the most recently updated wins.
func (s *MailboxService) Active(ctx context.Context, accountID string) (*model.MailboxConnection, error) {
	var c model.MailboxConnection
	err := s.db.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM mailbox_connections
		 WHERE account_id = $1 AND active = true
		 ORDER BY updated_at DESC
		 LIMIT 1`, accountID,
	).Scan(&c.ID, &c.AccountID, &c.Provider, &c.Address, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.Active, &c.LastTestAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoConnection
	}
	if err != nil {
		return nil, fmt.Errorf("get active mailbox connection for account %s: %w", accountID, err)
	}
	return &c, nil
}

// ListByAccount returns every connection on the account, active or not.
func (s *MailboxService) ListByAccount(ctx context.Context, accountID string) ([]model.MailboxConnection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+connectionColumns+` FROM mailbox_connections
		 WHERE account_id = $1 ORDER BY created_at ASC`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list mailbox connections for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var conns []model.MailboxConnection
	for rows.Next() {
		var c model.MailboxConnection
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Provider, &c.Address, &c.AccessToken, &c.RefreshToken,
			&c.ExpiresAt, &c.Active, &c.LastTestAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mailbox connection: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mailbox connections: %w", err)
	}
	return conns, nil
}

// Disconnect deactivates a connection. The row is kept for audit; the
// tokens stay sealed and unusable.
func (s *MailboxService) Disconnect(ctx context.Context, accountID, connectionID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE mailbox_connections SET active = false, updated_at = now()
		 WHERE id = $1 AND account_id = $2 AND active = true`,
		connectionID, accountID,
	)
	if err != nil {
		return fmt.Errorf("disconnect mailbox connection %s: %w", connectionID, err)
	}
	if tag.RowsAffected() > 0 {
		s.activity.Record(ctx, accountID, model.ActivityMailboxRevoked, "Mailbox disconnected", nil, nil)
	}
	return nil
}

// Deactivate marks a connection unusable after an irrecoverable auth
// failure.
func (s *MailboxService) Deactivate(ctx context.Context, connectionID, accountID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE mailbox_connections SET active = false, updated_at = now() WHERE id = $1`,
		connectionID,
	)
	if err != nil {
		return fmt.Errorf("deactivate mailbox connection %s: %w", connectionID, err)
	}
	s.activity.Record(ctx, accountID, model.ActivityMailboxRevoked,
		"Mailbox authorization expired; reconnection required", nil, nil)
	return nil
}

// SaveTokens persists a refreshed token pair, sealed. A blank refresh
// token means the provider did not rotate it; the stored one is kept.
func (s *MailboxService) SaveTokens(ctx context.Context, connectionID string, token *provider.Token) error {
	sealedAccess, err := s.sealer.Seal(token.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	var sealedRefresh *string
	if token.RefreshToken != "" {
		sr, err := s.sealer.Seal(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
		sealedRefresh = &sr
	}
	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiresAt = &e
	}

	_, err = s.db.Exec(ctx,
		`UPDATE mailbox_connections SET
		   access_token = $2,
		   refresh_token = COALESCE($3, refresh_token),
		   expires_at = $4,
		   updated_at = now()
		 WHERE id = $1`,
		connectionID, sealedAccess, sealedRefresh, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("save tokens for mailbox connection %s: %w", connectionID, err)
	}
	return nil
}

// MarkTested stamps a successful test send on the connection.
func (s *MailboxService) MarkTested(ctx context.Context, connectionID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE mailbox_connections SET last_test_at = now(), updated_at = now() WHERE id = $1`,
		connectionID,
	)
	if err != nil {
		return fmt.Errorf("mark mailbox connection %s tested: %w", connectionID, err)
	}
	return nil
}
