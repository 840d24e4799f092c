package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/mailclient/internal/credential"
	"github.com/nhle/mailclient/internal/model"
)

// Doer sends an HTTP request and returns its response. *http.Client
// satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for every request.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithRegisterKey sets the pre-shared authorization value sent with
// registration requests.
func WithRegisterKey(key string) Option {
	return func(c *Client) { c.registerKey = key }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is a thin HTTP client for the mail-indexing service. It attaches
// the stored bearer credential to authorized requests, owns the credential
// side effects of login and logout, and normalizes every failure into an
// *Error. Requests are never retried.
type Client struct {
	baseURL     string
	creds       credential.Store
	httpClient  Doer
	registerKey string
	logger      *slog.Logger
}

// NewClient creates a Client for the service rooted at baseURL
// (e.g., http://127.0.0.1:8000/api). No timeout is applied unless the
// transport passed with WithHTTPClient has one.
func NewClient(baseURL string, creds credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates an account. It does not touch the credential store.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	if err := requireFields(OpRegister, "email", email, "password", password); err != nil {
		return "", err
	}

	header := make(http.Header)
	if c.registerKey != "" {
		header.Set("Authorization", c.registerKey)
	}

	resp, err := c.do(ctx, OpRegister, http.MethodPost, "/register",
		credentials{Email: email, Password: password}, header)
	if err != nil {
		return "", err
	}

	var out messageResponse
	if err := resp.decode(OpRegister, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges email and password for an access credential and writes
// it to the credential store.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := requireFields(OpLogin, "email", email, "password", password); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, OpLogin, http.MethodPost, "/login",
		credentials{Email: email, Password: password}, nil)
	if err != nil {
		return nil, err
	}

	var out LoginResult
	if err := resp.decode(OpLogin, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{
			Op:         OpLogin,
			StatusCode: resp.status,
			Message:    FallbackMessage(OpLogin),
			Err:        fmt.Errorf("response has no access_token"),
		}
	}

	err = c.creds.Set(model.Credential{
		Token: out.AccessToken,
		Type:  model.TokenTypeBearer,
	})
	if err != nil {
		return nil, &Error{
			Op:         OpLogin,
			StatusCode: resp.status,
			Message:    FallbackMessage(OpLogin),
			Err:        fmt.Errorf("storing credential: %w", err),
		}
	}

	return &out, nil
}

// Logout ends the remote session. The local credential is cleared before
// the response is inspected and even when no response arrives, so a
// failed logout never leaves the client holding a credential.
func (c *Client) Logout(ctx context.Context) (string, error) {
	header := credential.BuildHeaders(c.creds)
	clearErr := c.creds.Clear()
	if clearErr != nil {
		c.logger.Warn("clearing credential on logout", "error", clearErr)
	}

	resp, err := c.do(ctx, OpLogout, http.MethodPost, "/logout", nil, header)
	if err != nil {
		return "", err
	}
	if clearErr != nil {
		return "", &Error{
			Op:         OpLogout,
			StatusCode: resp.status,
			Message:    FallbackMessage(OpLogout),
			Err:        fmt.Errorf("clearing credential: %w", clearErr),
		}
	}

	var out messageResponse
	if err := resp.decode(OpLogout, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListEmails returns the inbox in the order the service sent it.
func (c *Client) ListEmails(ctx context.Context) ([]model.EmailSummary, error) {
	resp, err := c.do(ctx, OpListEmails, http.MethodGet, "/emails", nil,
		credential.BuildHeaders(c.creds))
	if err != nil {
		return nil, err
	}

	var out []model.EmailSummary
	if err := resp.decode(OpListEmails, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.EmailSummary{}
	}
	return out, nil
}

// GetProfile returns the profile of the authenticated user.
func (c *Client) GetProfile(ctx context.Context) (*model.UserProfile, error) {
	resp, err := c.do(ctx, OpGetProfile, http.MethodGet, "/user/profile", nil,
		credential.BuildHeaders(c.creds))
	if err != nil {
		return nil, err
	}

	var out model.UserProfile
	if err := resp.decode(OpGetProfile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadAttachment fetches the raw payload of one attachment. The
// filename is trusted to belong to the email.
func (c *Client) DownloadAttachment(
	ctx context.Context,
	emailID string,
	filename string,
) (*model.Attachment, error) {
	if err := requireFields(OpDownloadAttachment,
		"email id", emailID, "filename", filename); err != nil {
		return nil, err
	}

	header := credential.BuildHeaders(c.creds)
	header.Set("Accept", "*/*")

	path := "/emails/" + url.PathEscape(emailID) +
		"/attachments/" + url.PathEscape(filename)

	resp, err := c.do(ctx, OpDownloadAttachment, http.MethodGet, path, nil, header)
	if err != nil {
		return nil, err
	}

	return attachmentFromResponse(filename, resp.header, resp.body), nil
}

// response is a fully read 2xx response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// decode unmarshals the JSON body into out. A malformed success body is
// reported with the operation's fallback message.
func (r *response) decode(op Op, out interface{}) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return &Error{
			Op:         op,
			StatusCode: r.status,
			Message:    FallbackMessage(op),
			Err:        fmt.Errorf("unmarshaling response: %w", err),
		}
	}
	return nil
}

// do is the core HTTP method: it builds the request, sends it once, reads
// the body, and classifies the outcome. Non-2xx responses and transport
// failures come back as *Error.
func (c *Client) do(
	ctx context.Context,
	op Op,
	method string,
	path string,
	body interface{},
	header http.Header,
) (*response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{
				Op:      op,
				Message: FallbackMessage(op),
				Err:     fmt.Errorf("marshaling request body: %w", err),
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, &Error{
			Op:      op,
			Message: FallbackMessage(op),
			Err:     fmt.Errorf("creating request: %w", err),
		}
	}

	for k, vs := range header {
		req.Header[k] = vs
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"op", string(op), "method", method, "path", path,
			"request_id", requestID, "error", err)
		return nil, &Error{
			Op:      op,
			Message: MsgUnreachable,
			Err:     fmt.Errorf("executing request %s %s: %w", method, path, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Op:      op,
			Message: MsgUnreachable,
			Err:     fmt.Errorf("reading response body: %w", err),
		}
	}

	c.logger.Debug("request completed",
		"op", string(op), "method", method, "path", path,
		"status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejection(op, resp.StatusCode, respBody)
	}

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   respBody,
	}, nil
}

// rejection builds the error for a non-2xx response, preferring a string
// "detail" field from a JSON body.
func rejection(op Op, status int, body []byte) *Error {
	msg := FallbackMessage(op)

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			msg = detail
		}
	}

	return &Error{Op: op, StatusCode: status, Message: msg}
}
