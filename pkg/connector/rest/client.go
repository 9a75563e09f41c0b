package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Endpoint paths per response time format.
var commandPaths = map[tdtypes.TimeFormat]string{
	tdtypes.TimeLocal: "/rest/sql",
	tdtypes.TimeUTC:   "/rest/sqlutc",
	tdtypes.TimeEpoch: "/rest/sqlt",
}

// Client speaks the engine's REST protocol: a login GET followed by
// authenticated command POSTs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for cfg. A host without scheme is reached over plain HTTP.
func NewClient(cfg connector.Config) *Client {
	host := strings.TrimRight(cfg.Host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		}
	}

	return &Client{
		baseURL:    fmt.Sprintf("%s:%d", host, cfg.Port),
		httpClient: httpClient,
	}
}

// BaseURL returns "scheme://host:port".
func (c *Client) BaseURL() string {
	return c.baseURL
}

type loginResponse struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Desc   string `json:"desc"`
}

// Login performs the handshake and returns the session token. Transport and
// decoding failures are returned as plain errors; an engine rejection is a
// *connector.LoginError.
func (c *Client) Login(ctx context.Context, user, password string) (string, error) {
	loginURL := fmt.Sprintf("%s/rest/login/%s/%s", c.baseURL, url.PathEscape(user), url.PathEscape(password))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", fmt.Errorf("login response is empty (http status %d)", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", fmt.Errorf("failed to parse login response (http status %d): %w", resp.StatusCode, err)
	}

	if lr.Code != 0 || (lr.Status != "" && lr.Status != connector.StatusSucceeded) {
		return "", &connector.LoginError{User: user, EngineCode: lr.Code, Description: lr.Desc}
	}
	if lr.Desc == "" {
		return "", fmt.Errorf("login response carries no token")
	}
	return lr.Desc, nil
}

// CommandURL returns the endpoint for a time format, suffixed with /db when db is set.
func (c *Client) CommandURL(format tdtypes.TimeFormat, db string) string {
	path, ok := commandPaths[format]
	if !ok {
		path = commandPaths[tdtypes.DefaultTimeFormat]
	}
	u := c.baseURL + path
	if db != "" {
		u += "/" + url.PathEscape(db)
	}
	return u
}

// Send posts command verbatim and decodes the response. It never returns nil.
func (c *Client) Send(ctx context.Context, token, endpoint, command string) *connector.Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(command))
	if err != nil {
		return connector.NewLocalFailure(connector.CodeNetwork, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Authorization", "Taosd "+token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connector.NewLocalFailure(connector.CodeNetwork, fmt.Sprintf("network request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return connector.NewLocalFailure(connector.CodeNetwork, fmt.Sprintf("failed to read response: %v", err))
	}

	result := connector.ParseResponse(body)
	if result.ErrorCode() == connector.CodeNullResult && resp.StatusCode != http.StatusOK {
		return connector.NewLocalFailure(connector.CodeNullResult,
			fmt.Sprintf("http status %d: %s", resp.StatusCode, result.Description()))
	}
	return result
}
