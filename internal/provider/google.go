package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/model"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1/users/me"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

type Google struct {
	oauth   *oauth2.Config
	client  *http.Client
	apiBase string
}

func NewGoogle(cfg *config.Config) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.send",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: googleEndpoint,
		},
		client:  &http.Client{Timeout: 20 * time.Second},
		apiBase: gmailAPIBase,
	}
}

func (g *Google) Name() string { return model.ProviderGoogle }

func (g *Google) AuthURL(state string) string {
	// prompt=consent forces Google to reissue a refresh token on
	// reconnect; without it only the first grant carries one.
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (g *Google) Exchange(ctx context.Context, code string) (*Token, error) {
	return exchangeWithConfig(ctx, g.oauth, g.client, code)
}

func (g *Google) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return refreshWithConfig(ctx, g.oauth, g.client, refreshToken)
}

func (g *Google) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gmail profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch gmail profile: status %d: %s", resp.StatusCode, body)
	}

	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode gmail profile: %w", err)
	}
	return &Identity{Address: profile.EmailAddress}, nil
}

func (g *Google) Send(ctx context.Context, accessToken string, msg Message) error {
	raw := base64.URLEncoding.EncodeToString(buildMIME(msg))
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return fmt.Errorf("marshal gmail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/messages/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create gmail send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &SendError{StatusCode: 0, Permanent: false, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &SendError{
		StatusCode: resp.StatusCode,
		Permanent:  sendStatusPermanent(resp.StatusCode),
		Body:       string(body),
	}
}

// sendStatusPermanent classifies an HTTP send failure. Rate limits and
// server errors are worth retrying; everything else in the 4xx range
// (bad recipient, revoked grant, malformed message) is not.
func sendStatusPermanent(status int) bool {
	if status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}

const mimeBoundary = "nudge-alt-boundary"

// buildMIME renders a multipart/alternative RFC 2822 message for the
// Gmail raw-send endpoint.
func buildMIME(msg Message) []byte {
	var b bytes.Buffer
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.Bytes()
}
