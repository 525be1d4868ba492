package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	DefaultEndpoint = "https://graphql.datocms.com"
	DefaultTimeout  = 10 * time.Second
)

type ErrorCode string

const (
	CodeNetwork     ErrorCode = "NETWORK_ERROR"
	CodeAuth        ErrorCode = "AUTH_ERROR"
	CodeRateLimited ErrorCode = "RATE_LIMITED"
	CodeGraphQL     ErrorCode = "GRAPHQL_ERROR"
	CodeUnknown     ErrorCode = "UNKNOWN_ERROR"
)

// Error is a classified content-system failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

type ClientConfig struct {
	Endpoint    string
	Token       string
	Environment string
	Preview     bool
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the content system's GraphQL endpoint.
type Client struct {
	endpoint    string
	token       string
	environment string
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewClient(cfg ClientConfig) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if cfg.Preview {
		endpoint += "/preview"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	env := cfg.Environment
	if env == "" {
		env = "main"
	}

	return &Client{
		endpoint:    endpoint,
		token:       cfg.Token,
		environment: env,
		http:        httpClient,
		breaker: gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
			Name:        "cms",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// Query and auth mistakes are not an outage.
			IsSuccessful: func(err error) bool {
				var cmsErr *Error
				if errors.As(err, &cmsErr) {
					return cmsErr.Code == CodeGraphQL || cmsErr.Code == CodeAuth
				}
				return err == nil
			},
		}),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a GraphQL query and decodes its data object into out.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.do(ctx, query, variables)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &Error{Code: CodeNetwork, Message: "content service circuit open", Err: err}
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Code: CodeUnknown, Message: "failed to decode content response", Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Environment", c.environment)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: "unable to connect to content service", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Code: CodeAuth, Message: "content service authentication failed"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Code: CodeRateLimited, Message: "too many requests to content service"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &Error{Code: CodeNetwork, Message: fmt.Sprintf("content service returned %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: "failed to read content response", Err: err}
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return nil, &Error{Code: CodeUnknown, Message: "invalid content response", Err: err}
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &Error{Code: CodeGraphQL, Message: strings.Join(msgs, ", ")}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{Code: CodeUnknown, Message: fmt.Sprintf("content service returned %d", resp.StatusCode)}
	}
	return gql.Data, nil
}
