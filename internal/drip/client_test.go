package drip

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = domain.Credentials{APIToken: "test-token", AccountID: "123456"}

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		baseURL:        server.URL,
		userAgent:      "drip-forwarder/test",
		validationPath: "subscribers?limit=1",
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		readClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

func expectedAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("test-token:"))
}

func TestNewClient(t *testing.T) {
	cfg := config.DripConfig{
		BaseURL:        "https://api.getdrip.com/v2/",
		TimeoutSeconds: 15,
		ValidationPath: "/subscribers?limit=1",
		UserAgent:      "drip-forwarder/1.0.0",
	}

	client := NewClient(cfg)

	assert.NotNil(t, client)
	assert.Equal(t, "https://api.getdrip.com/v2", client.baseURL)
	assert.Equal(t, "subscribers?limit=1", client.validationPath)
	assert.Equal(t, "https://api.getdrip.com/v2/123456/subscribers", client.endpoint("123456", "subscribers"))
}

func TestTestConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/123456/subscribers", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, expectedAuth(), r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "drip-forwarder/test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subscribers":[]}`))
	}))
	defer server.Close()

	err := newTestClient(server).TestConnection(context.Background(), testCreds)
	assert.NoError(t, err)
}

func TestTestConnection_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"Invalid API Key"}]}`))
	}))
	defer server.Close()

	err := newTestClient(server).TestConnection(context.Background(), testCreds)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidCredentials, domain.KindOf(err))
	assert.Equal(t, "Invalid API Key", domain.MessageOf(err))
}

func TestTestConnection_InvalidWithoutBodyUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html>nope</html>`))
	}))
	defer server.Close()

	err := newTestClient(server).TestConnection(context.Background(), testCreds)
	assert.Equal(t, domain.KindInvalidCredentials, domain.KindOf(err))
	assert.Equal(t, msgInvalidFallback, domain.MessageOf(err))
}

func TestTestConnection_MissingCredentials(t *testing.T) {
	client := &Client{baseURL: "http://unused", httpClient: http.DefaultClient}

	err := client.TestConnection(context.Background(), domain.Credentials{APIToken: "x"})
	assert.Equal(t, domain.KindMissingCredentials, domain.KindOf(err))

	err = client.TestConnection(context.Background(), domain.Credentials{AccountID: "1"})
	assert.Equal(t, domain.KindMissingCredentials, domain.KindOf(err))
}

func TestTestConnection_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	err := client.TestConnection(context.Background(), testCreds)
	assert.Equal(t, domain.KindConnectionError, domain.KindOf(err))
	assert.Equal(t, msgConnectionFailed, domain.MessageOf(err))
}

func TestSendSubscriber_Created(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/123456/subscribers", r.URL.Path)
		assert.Equal(t, expectedAuth(), r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"subscribers":[{"email":"user@example.com","tags":["vip"],"custom_fields":{"plan":"pro"}}]}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"subscribers":[{"id":"abc123"}]}`))
	}))
	defer server.Close()

	record := domain.SubscriberRecord{
		Email:        "user@example.com",
		Tags:         []string{"vip"},
		CustomFields: map[string]string{"plan": "pro"},
	}
	id, err := newTestClient(server).SendSubscriber(context.Background(), testCreds, record)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestSendSubscriber_OKWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	id, err := newTestClient(server).SendSubscriber(context.Background(), testCreds, domain.SubscriberRecord{Email: "a@b.co"})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSendSubscriber_PercentEncodesAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme%20co/subscribers", r.RequestURI)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	creds := domain.Credentials{APIToken: "test-token", AccountID: "acme co"}
	_, err := newTestClient(server).SendSubscriber(context.Background(), creds, domain.SubscriberRecord{Email: "a@b.co"})
	assert.NoError(t, err)
}

func TestSendSubscriber_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"code": "presence_error", "message": "Email is invalid"}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server).SendSubscriber(context.Background(), testCreds, domain.SubscriberRecord{Email: "a@b.co"})
	assert.Equal(t, domain.KindAPIError, domain.KindOf(err))
	assert.Equal(t, "Email is invalid", domain.MessageOf(err))
}

func TestSendSubscriber_UnknownError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).SendSubscriber(context.Background(), testCreds, domain.SubscriberRecord{Email: "a@b.co"})
	assert.Equal(t, domain.KindUnknownError, domain.KindOf(err))
	assert.Equal(t, "Unknown error occurred (HTTP 502).", domain.MessageOf(err))
}

func TestSendSubscriber_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.SendSubscriber(context.Background(), testCreds, domain.SubscriberRecord{Email: "a@b.co"})
	assert.Equal(t, domain.KindConnectionError, domain.KindOf(err))
}

func TestCustomFieldIdentifiers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123456/custom_field_identifiers", r.URL.Path)
		w.Write([]byte(`{"custom_field_identifiers":["plan","", {"id":"score"}, {"name":"x"}, 7, " company "]}`))
	}))
	defer server.Close()

	ids, err := newTestClient(server).CustomFieldIdentifiers(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan", "score", "company"}, ids)
}

func TestCustomFieldIdentifiers_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"Account not found"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).CustomFieldIdentifiers(context.Background(), testCreds)
	assert.Equal(t, domain.KindAPIError, domain.KindOf(err))
	assert.Equal(t, "Account not found", domain.MessageOf(err))
}
