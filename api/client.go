package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const requestIDHeader = "X-Request-ID"

// RequestError is returned for transport failures (Status 0) and non-2xx
// responses.
type RequestError struct {
	Status  int    // HTTP status, 0 when no response arrived
	Message string // Server message, or a synthesized "HTTP <status>"
	Err     error  // Transport error, if any
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// CallOptions describes one REST call. Method defaults to GET.
type CallOptions struct {
	Method      string
	Body        any    // Serialized as JSON when non-nil
	BearerToken string // Attached as Authorization when non-empty
}

// Client issues JSON requests against the Smart Cane REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call performs a request against path (relative to the base URL).
func (c *Client) Call(ctx context.Context, path string, opts CallOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	setBearer(req, opts.BearerToken)

	logger := log.With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	logger.Debug().Msg("HTTP request")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("HTTP request failed")
		return nil, &RequestError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}

	response := newResponse(resp.StatusCode, data)
	logger.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("HTTP response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response, &RequestError{Status: resp.StatusCode, Message: response.errorMessage()}
	}
	return response, nil
}

// setBearer writes the Authorization header without double-prefixing a
// token that already starts with "Bearer ".
func setBearer(req *http.Request, token string) {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	tok.SetAuthHeader(req)
}
