package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
)

// TokenSource supplies bearer tokens for platform calls. Implemented by the
// auth package (client-credentials flow with a redis cache).
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the remote platform's payment API.
type Client struct {
	BaseURL    string
	ProjectKey string
	HTTP       *http.Client
	Tokens     TokenSource
	Logger     *logger.Logger
}

func NewClient(baseURL, projectKey string, httpClient *http.Client, tokens TokenSource, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:    baseURL,
		ProjectKey: projectKey,
		HTTP:       httpClient,
		Tokens:     tokens,
		Logger:     log,
	}
}

type pagedPayments struct {
	Count   int              `json:"count"`
	Results []models.Payment `json:"results"`
}

type platformError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Errors     []struct {
		Code           string `json:"code"`
		Message        string `json:"message"`
		CurrentVersion int64  `json:"currentVersion"`
	} `json:"errors"`
}

func (c *Client) FetchPaymentByKeys(ctx context.Context, keys []string) (*models.Payment, error) {
	where := "key in ("
	for i, key := range keys {
		if i > 0 {
			where += ","
		}
		where += fmt.Sprintf("%q", key)
	}
	where += ")"

	query := url.Values{}
	query.Set("where", where)
	query.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/%s/payments?%s", c.BaseURL, c.ProjectKey, query.Encode())
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.asError(status, body, "fetch payment by keys")
	}

	var page pagedPayments
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode payment query response: %w", err)
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	return &page.Results[0], nil
}

func (c *Client) FetchPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	endpoint := fmt.Sprintf("%s/%s/payments/%s", c.BaseURL, c.ProjectKey, url.PathEscape(id))
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, c.asError(status, body, "fetch payment by id")
	}

	var payment models.Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &payment, nil
}

func (c *Client) UpdatePayment(ctx context.Context, id string, version int64, actions []models.UpdateAction) (*models.Payment, error) {
	payload, err := json.Marshal(struct {
		Version int64                `json:"version"`
		Actions []models.UpdateAction `json:"actions"`
	}{Version: version, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("encode update payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/payments/%s", c.BaseURL, c.ProjectKey, url.PathEscape(id))
	body, status, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var payment models.Payment
		if err := json.Unmarshal(body, &payment); err != nil {
			return nil, fmt.Errorf("decode updated payment: %w", err)
		}
		return &payment, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusConflict:
		conflict := &ConflictError{SubmittedVersion: version}
		var perr platformError
		if err := json.Unmarshal(body, &perr); err == nil {
			for _, e := range perr.Errors {
				if e.Code == "ConcurrentModification" {
					conflict.CurrentVersion = e.CurrentVersion
				}
			}
		}
		return nil, conflict
	default:
		return nil, c.asError(status, body, "update payment")
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s request: %w", method, err)
	}
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("get platform token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call platform: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && c.Logger != nil {
			c.Logger.Warn("PLATFORM", "error closing response body: "+cerr.Error())
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read platform response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) asError(status int, body []byte, op string) error {
	var perr platformError
	if err := json.Unmarshal(body, &perr); err == nil && perr.Message != "" {
		return fmt.Errorf("%s: status %d: %s", op, status, perr.Message)
	}
	return fmt.Errorf("%s: status %d: %s", op, status, string(body))
}
