package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// classifyTokenError maps an oauth2 token-endpoint failure onto the
// provider error taxonomy. An invalid_grant (or any 4xx rejection of
// the refresh token) means the user must reconnect; other failures are
// transient.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" {
			return &AuthError{Reason: "refresh token revoked or expired"}
		}
		if re.Response != nil && re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 &&
			re.Response.StatusCode != http.StatusTooManyRequests {
			return &AuthError{Reason: fmt.Sprintf("token endpoint rejected grant (%s)", re.ErrorCode)}
		}
	}
	return fmt.Errorf("refresh token: %w", err)
}

// withClient routes oauth2's token-endpoint calls through the
// provider's own timeout-bearing HTTP client instead of
// http.DefaultClient.
func withClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

func refreshWithConfig(ctx context.Context, cfg *oauth2.Config, client *http.Client, refreshToken string) (*Token, error) {
	ctx = withClient(ctx, client)
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	// Providers often omit the refresh token on refresh responses; the
	// caller keeps the one it already has.
	if out.RefreshToken == refreshToken {
		out.RefreshToken = ""
	}
	return out, nil
}

func exchangeWithConfig(ctx context.Context, cfg *oauth2.Config, client *http.Client, code string) (*Token, error) {
	tok, err := cfg.Exchange(withClient(ctx, client), code)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}
