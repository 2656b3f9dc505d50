// Package drip is a client for the Drip v2 REST API: credential probing,
// custom field discovery and subscriber create/update.
package drip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/drip-forwarder/internal/config"
	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/httpretry"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Client is a Drip API client. Credentials are passed per call so settings
// changes never require rebuilding the client.
type Client struct {
	baseURL        string
	userAgent      string
	validationPath string
	httpClient     httpretry.HTTPDoer // checks and writes: exactly one attempt
	readClient     httpretry.HTTPDoer // custom field discovery: retried
}

// NewClient creates a new Drip API client
func NewClient(cfg config.DripConfig) *Client {
	base := &http.Client{Timeout: cfg.Timeout()}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      cfg.UserAgent,
		validationPath: strings.TrimLeft(cfg.ValidationPath, "/"),
		httpClient:     base,
		readClient:     httpretry.NewRetryClient(base, cfg.CustomFieldRetries),
	}
}

// SetHTTPClient sets a custom HTTP client for every call (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
	c.readClient = client
}

// endpoint embeds the account ID, percent-encoded, ahead of path.
func (c *Client) endpoint(accountID, path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(accountID), path)
}

func (c *Client) newRequest(ctx context.Context, method string, creds domain.Credentials, path string, body any) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(creds.AccountID, path), reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(creds.APIToken, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// do executes req and returns the status code and body.
func do(client httpretry.HTTPDoer, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// TestConnection performs one authenticated read scoped to the account and
// reports whether Drip accepts the credentials.
func (c *Client) TestConnection(ctx context.Context, creds domain.Credentials) error {
	if !creds.Complete() {
		return domain.NewError(domain.KindMissingCredentials, msgMissingCredentials)
	}

	req, err := c.newRequest(ctx, http.MethodGet, creds, c.validationPath, nil)
	if err != nil {
		return &domain.Error{Kind: domain.KindConnectionError, Message: msgConnectionFailed, Err: err}
	}

	status, body, err := do(c.httpClient, req)
	if err != nil {
		logger.Error("drip: connection test failed", "account_id", creds.AccountID, "error", err)
		return &domain.Error{Kind: domain.KindConnectionError, Message: msgConnectionFailed, Err: err}
	}

	logger.Debug("drip: connection test response", "account_id", creds.AccountID, "status", status)

	if status != http.StatusOK {
		msg := errorMessage(body)
		if msg == "" {
			msg = msgInvalidFallback
		}
		logger.Error("drip: credentials rejected", "account_id", creds.AccountID, "status", status, "message", msg)
		return domain.NewError(domain.KindInvalidCredentials, "%s", msg)
	}

	return nil
}

// CustomFieldIdentifiers lists the custom field identifiers defined in the
// account. The read is retried on transient failures.
func (c *Client) CustomFieldIdentifiers(ctx context.Context, creds domain.Credentials) ([]string, error) {
	if !creds.Complete() {
		return nil, domain.NewError(domain.KindMissingCredentials, msgMissingCredentials)
	}

	req, err := c.newRequest(ctx, http.MethodGet, creds, "custom_field_identifiers", nil)
	if err != nil {
		return nil, err
	}

	status, body, err := do(c.readClient, req)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindConnectionError, Message: err.Error(), Err: err}
	}
	if status != http.StatusOK {
		msg := errorMessage(body)
		if msg == "" {
			return nil, domain.NewError(domain.KindUnknownError, msgUnknownStatus, status)
		}
		return nil, domain.NewError(domain.KindAPIError, "%s", msg)
	}

	ids := customFieldIdentifiers(body)
	logger.Debug("drip: loaded custom field identifiers", "account_id", creds.AccountID, "count", len(ids))
	return ids, nil
}

// SendSubscriber creates or updates one subscriber. It returns the
// Drip-assigned subscriber id when the response carries one.
func (c *Client) SendSubscriber(ctx context.Context, creds domain.Credentials, record domain.SubscriberRecord) (string, error) {
	if !creds.Complete() {
		return "", domain.NewError(domain.KindMissingCredentials, msgMissingCredentials)
	}

	req, err := c.newRequest(ctx, http.MethodPost, creds, "subscribers",
		SubscribersRequest{Subscribers: []domain.SubscriberRecord{record}})
	if err != nil {
		return "", &domain.Error{Kind: domain.KindConnectionError, Message: err.Error(), Err: err}
	}

	logger.Debug("drip: sending subscriber", "account_id", creds.AccountID, "email", record.Email)

	status, body, err := do(c.httpClient, req)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindConnectionError, Message: err.Error(), Err: err}
	}

	if status != http.StatusOK && status != http.StatusCreated {
		msg := errorMessage(body)
		if msg == "" {
			return "", domain.NewError(domain.KindUnknownError, msgUnknownStatus, status)
		}
		return "", domain.NewError(domain.KindAPIError, "%s", msg)
	}

	return subscriberID(body), nil
}
