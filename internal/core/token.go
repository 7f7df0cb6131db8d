package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mbakke/nudge/internal/crypto"
	"github.com/mbakke/nudge/internal/model"
	"github.com/mbakke/nudge/internal/provider"
)

// refreshMargin refreshes tokens slightly before their reported expiry
// so a send never races the cutoff.
const refreshMargin = 60 * time.Second

// refreshTimeout caps one token-endpoint round trip. A hung endpoint
// must not stall the sweep worker, or the singleflight group would pin
// every other dispatch for the connection behind it.
const refreshTimeout = 15 * time.Second

// TokenService hands out usable access tokens for mailbox connections,
// refreshing them when needed. Concurrent refreshes for one connection
// collapse into a single provider round trip.
type TokenService struct {
	providers *provider.Registry
	mailboxes *MailboxService
	sealer    *crypto.Sealer
	group     singleflight.Group
	logger    zerolog.Logger
}

func NewTokenService(providers *provider.Registry, mailboxes *MailboxService, sealer *crypto.Sealer, logger zerolog.Logger) *TokenService {
	return &TokenService{
		providers: providers,
		mailboxes: mailboxes,
		sealer:    sealer,
		logger:    logger.With().Str("component", "token").Logger(),
	}
}

// AccessToken returns a valid plaintext access token for the
// connection. On an irrecoverable refresh failure the connection is
// deactivated and ErrReauthorizationRequired is returned.
func (s *TokenService) AccessToken(ctx context.Context, conn *model.MailboxConnection) (string, error) {
	if conn.ExpiresAt == nil || time.Until(*conn.ExpiresAt) > refreshMargin {
		access, err := s.sealer.Open(conn.AccessToken)
		if err != nil {
			return "", fmt.Errorf("unseal access token: %w", err)
		}
		return access, nil
	}

	v, err, _ := s.group.Do(conn.ID, func() (any, error) {
		return s.refresh(ctx, conn)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenService) refresh(ctx context.Context, conn *model.MailboxConnection) (string, error) {
	if conn.RefreshToken == nil {
		s.deactivate(ctx, conn)
		return "", ErrReauthorizationRequired
	}
	refreshToken, err := s.sealer.Open(*conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("unseal refresh token: %w", err)
	}

	p, err := s.providers.For(conn.Provider)
	if err != nil {
		return "", err
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	token, err := p.Refresh(refreshCtx, refreshToken)
	if err != nil {
		if provider.IsAuthError(err) {
			s.logger.Warn().Err(err).
				Str("connection_id", conn.ID).
				Str("provider", conn.Provider).
				Msg("refresh rejected, deactivating connection")
			s.deactivate(ctx, conn)
			return "", ErrReauthorizationRequired
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	if err := s.mailboxes.SaveTokens(ctx, conn.ID, token); err != nil {
		return "", err
	}
	conn.ExpiresAt = nil
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		conn.ExpiresAt = &e
	}
	return token.AccessToken, nil
}

func (s *TokenService) deactivate(ctx context.Context, conn *model.MailboxConnection) {
	if err := s.mailboxes.Deactivate(ctx, conn.ID, conn.AccountID); err != nil {
		s.logger.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to deactivate connection")
	}
}
