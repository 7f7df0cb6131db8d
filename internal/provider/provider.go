// Package provider implements the mailbox provider capability surface:
// OAuth authorization, token refresh, identity lookup, and message
// delivery through the user's own connected mailbox.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/model"
)

// Token is a provider-issued credential pair. Expiry is zero when the
// provider did not report a lifetime.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Identity is the mailbox address a grant sends as.
type Identity struct {
	Address string
}

// Message is one outgoing reminder in provider-neutral form.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
	Text     string
}

// Provider is implemented once per mailbox vendor. Implementations are
// selected by the provider tag stored on the mailbox connection.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Token, error)
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
	FetchIdentity(ctx context.Context, accessToken string) (*Identity, error)
	Send(ctx context.Context, accessToken string, msg Message) error
}

// SendError is a provider-level delivery failure. Permanent failures
// (invalid recipient, revoked grant) must not be retried; everything
// else is retried on later sweeps.
type SendError struct {
	StatusCode int
	Permanent  bool
	Body       string
}

func (e *SendError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("provider send failed (%s, status %d): %s", kind, e.StatusCode, e.Body)
}

// IsPermanent reports whether err is a delivery failure that retrying
// cannot fix.
func IsPermanent(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent
}

// AuthError indicates the grant itself is expired or revoked; the user
// must reconnect the mailbox.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authorization failed: " + e.Reason
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Registry holds the configured providers keyed by tag.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	if cfg.GoogleClientID != "" {
		r.Register(NewGoogle(cfg))
	}
	if cfg.MicrosoftClientID != "" {
		r.Register(NewMicrosoft(cfg))
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) For(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", name)
	}
	return p, nil
}

// Names returns the configured provider tags.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, k := range []string{model.ProviderGoogle, model.ProviderMicrosoft} {
		if _, ok := r.providers[k]; ok {
			names = append(names, k)
		}
	}
	return names
}
