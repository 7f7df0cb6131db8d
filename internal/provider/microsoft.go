package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/model"
)

const graphAPIBase = "https://graph.microsoft.com/v1.0"

var microsoftEndpoint = oauth2.Endpoint{
	AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
	TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
}

type Microsoft struct {
	oauth   *oauth2.Config
	client  *http.Client
	apiBase string
}

func NewMicrosoft(cfg *config.Config) *Microsoft {
	return &Microsoft{
		oauth: &oauth2.Config{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			RedirectURL:  cfg.MicrosoftRedirectURL,
			Scopes:       []string{"offline_access", "Mail.Send", "User.Read"},
			Endpoint:     microsoftEndpoint,
		},
		client:  &http.Client{Timeout: 20 * time.Second},
		apiBase: graphAPIBase,
	}
}

func (m *Microsoft) Name() string { return model.ProviderMicrosoft }

func (m *Microsoft) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (m *Microsoft) Exchange(ctx context.Context, code string) (*Token, error) {
	return exchangeWithConfig(ctx, m.oauth, m.client, code)
}

func (m *Microsoft) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return refreshWithConfig(ctx, m.oauth, m.client, refreshToken)
}

func (m *Microsoft) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.apiBase+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch graph profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch graph profile: status %d: %s", resp.StatusCode, body)
	}

	var me struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("decode graph profile: %w", err)
	}
	address := me.Mail
	if address == "" {
		address = me.UserPrincipalName
	}
	return &Identity{Address: address}, nil
}

// graphMessage is the JSON payload for the Graph sendMail endpoint.
type graphMessage struct {
	Message struct {
		Subject      string           `json:"subject"`
		Body         graphBody        `json:"body"`
		ToRecipients []graphRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Address string `json:"address"`
}

func (m *Microsoft) Send(ctx context.Context, accessToken string, msg Message) error {
	var payload graphMessage
	payload.Message.Subject = msg.Subject
	payload.Message.Body = graphBody{ContentType: "HTML", Content: msg.HTML}
	if msg.HTML == "" {
		payload.Message.Body = graphBody{ContentType: "Text", Content: msg.Text}
	}
	payload.Message.ToRecipients = []graphRecipient{{EmailAddress: graphAddress{Address: msg.To}}}
	payload.SaveToSentItems = true

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal graph message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiBase+"/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create graph send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return &SendError{StatusCode: 0, Permanent: false, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	return &SendError{
		StatusCode: resp.StatusCode,
		Permanent:  sendStatusPermanent(resp.StatusCode),
		Body:       string(respBody),
	}
}
