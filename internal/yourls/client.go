// Package yourls talks to a YOURLS link-shortening service over its HTTP API.
package yourls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

const (
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize bounds how much of a response body is read.
	MaxResponseSize = 1 << 20

	statusSuccess = "success"

	fallbackFailMessage  = "An unknown error occurred."
	fallbackErrorMessage = "An error occurred."
)

// apiResponse is the JSON body returned by the shorturl action.
type apiResponse struct {
	Status   string `json:"status"`
	ShortURL string `json:"shorturl"`
	Message  string `json:"message"`
}

// Client issues shorten requests. It makes a single attempt per call.
type Client struct {
	endpoint   *url.URL
	signature  string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	Endpoint   string // API endpoint, e.g. "https://sho.rt/yourls-api.php"
	Signature  string
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
	Logger     *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	const op = "yourls.NewClient"

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("invalid endpoint: %w", err))
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, errx.E(op, errx.Invalid, errors.New("endpoint scheme must be http or https"))
	}
	if endpoint.Host == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("endpoint must include host"))
	}
	if cfg.Signature == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("signature token cannot be empty"))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:   endpoint,
		signature:  cfg.Signature,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Shorten asks the service for a short URL. Every outcome, including
// transport failures, is reported as a Result.
func (c *Client) Shorten(ctx context.Context, req Request) Result {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return UnexpectedError{Detail: err.Error()}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "shorten request failed",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return NetworkError{Err: err}
	}

	result := interpret(resp.StatusCode, body)

	c.logger.DebugContext(ctx, "shorten request completed",
		"status", resp.StatusCode,
		"outcome", Outcome(result),
		"custom_keyword", req.Keyword != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("signature", c.signature)
	q.Set("action", "shorturl")
	q.Set("format", "json")
	q.Set("url", req.LongURL)
	if req.Keyword != "" {
		q.Set("keyword", req.Keyword)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// interpret maps a status code and body to a Result.
func interpret(status int, body []byte) Result {
	switch status {
	case http.StatusOK:
		var data apiResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return UnexpectedError{Detail: fmt.Sprintf("malformed response body: %v", err)}
		}
		if data.Status != statusSuccess {
			msg := data.Message
			if msg == "" {
				msg = fallbackFailMessage
			}
			return ServiceError{StatusCode: status, Message: msg}
		}
		if data.ShortURL == "" {
			return UnexpectedError{Detail: "response did not include a short URL"}
		}
		return Success{ShortURL: data.ShortURL}

	case http.StatusServiceUnavailable:
		return Overloaded{}

	default:
		msg := fallbackErrorMessage
		var data apiResponse
		if err := json.Unmarshal(body, &data); err == nil && data.Message != "" {
			msg = data.Message
		}
		return ServiceError{StatusCode: status, Message: msg}
	}
}
