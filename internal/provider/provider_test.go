package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleClientID:        "google-client",
		GoogleClientSecret:    "google-secret",
		GoogleRedirectURL:     "https://app.example.com/mailbox/callback",
		MicrosoftClientID:     "ms-client",
		MicrosoftClientSecret: "ms-secret",
		MicrosoftRedirectURL:  "https://app.example.com/mailbox/callback",
	}
}

// ---------- Registry ----------

func TestRegistry_ConfiguredProviders(t *testing.T) {
	reg := NewRegistry(testConfig())

	g, err := reg.For(model.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGoogle, g.Name())

	m, err := reg.For(model.ProviderMicrosoft)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderMicrosoft, m.Name())

	assert.Equal(t, []string{model.ProviderGoogle, model.ProviderMicrosoft}, reg.Names())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry(&config.Config{})
	_, err := reg.For("fastmail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

// ---------- Error taxonomy ----------

func TestClassifyTokenError_InvalidGrant(t *testing.T) {
	err := classifyTokenError(&oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest},
		ErrorCode: "invalid_grant",
	})
	assert.True(t, IsAuthError(err))
}

func TestClassifyTokenError_ServerError(t *testing.T) {
	err := classifyTokenError(&oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusBadGateway},
	})
	assert.False(t, IsAuthError(err))
}

func TestClassifyTokenError_RateLimited(t *testing.T) {
	err := classifyTokenError(&oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusTooManyRequests},
	})
	assert.False(t, IsAuthError(err))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(&SendError{StatusCode: 400, Permanent: true}))
	assert.False(t, IsPermanent(&SendError{StatusCode: 503}))
	assert.False(t, IsPermanent(errors.New("dial tcp: timeout")))
}

func TestSendStatusPermanent(t *testing.T) {
	assert.True(t, sendStatusPermanent(http.StatusBadRequest))
	assert.True(t, sendStatusPermanent(http.StatusForbidden))
	assert.False(t, sendStatusPermanent(http.StatusTooManyRequests))
	assert.False(t, sendStatusPermanent(http.StatusInternalServerError))
	assert.False(t, sendStatusPermanent(http.StatusBadGateway))
}

// ---------- Google ----------

func TestGoogle_AuthURLRequestsOfflineAccess(t *testing.T) {
	g := NewGoogle(testConfig())
	url := g.AuthURL("state-123")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "state=state-123")
}

func TestGoogle_SendSuccess(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/send", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRaw = body.Raw
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogle(testConfig())
	g.apiBase = srv.URL

	err := g.Send(context.Background(), "tok", Message{
		From:     "alice@studio.example",
		FromName: "Alice Studio",
		To:       "bob@client.example",
		Subject:  "Invoice INV-7 is overdue",
		HTML:     "<p>please pay</p>",
		Text:     "please pay",
	})
	require.NoError(t, err)

	mime, err := base64.URLEncoding.DecodeString(gotRaw)
	require.NoError(t, err)
	assert.Contains(t, string(mime), "To: bob@client.example")
	assert.Contains(t, string(mime), "multipart/alternative")
	assert.Contains(t, string(mime), "<p>please pay</p>")
}

func TestGoogle_SendRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogle(testConfig())
	g.apiBase = srv.URL

	err := g.Send(context.Background(), "tok", Message{To: "bob@client.example"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestGoogle_SendInvalidRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid To header"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGoogle(testConfig())
	g.apiBase = srv.URL

	err := g.Send(context.Background(), "tok", Message{To: "not-an-address"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestGoogle_FetchIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		io.WriteString(w, `{"emailAddress":"alice@studio.example"}`)
	}))
	defer srv.Close()

	g := NewGoogle(testConfig())
	g.apiBase = srv.URL

	id, err := g.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice@studio.example", id.Address)
}

// ---------- Microsoft ----------

func TestMicrosoft_SendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/sendMail", r.URL.Path)
		var payload graphMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "HTML", payload.Message.Body.ContentType)
		assert.Equal(t, "bob@client.example", payload.Message.ToRecipients[0].EmailAddress.Address)
		assert.True(t, payload.SaveToSentItems)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewMicrosoft(testConfig())
	m.apiBase = srv.URL

	err := m.Send(context.Background(), "tok", Message{
		To:      "bob@client.example",
		Subject: "Invoice INV-7 is overdue",
		HTML:    "<p>please pay</p>",
		Text:    "please pay",
	})
	require.NoError(t, err)
}

func TestMicrosoft_SendThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewMicrosoft(testConfig())
	m.apiBase = srv.URL

	err := m.Send(context.Background(), "tok", Message{To: "bob@client.example"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestMicrosoft_FetchIdentityFallsBackToUPN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"mail":"","userPrincipalName":"alice@studio.example"}`)
	}))
	defer srv.Close()

	m := NewMicrosoft(testConfig())
	m.apiBase = srv.URL

	id, err := m.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice@studio.example", id.Address)
}
