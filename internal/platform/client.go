// Package platform implements the client for the learning platform's
// signin and GraphQL endpoints.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	signinPath  = "/api/auth/signin"
	graphqlPath = "/api/graphql-engine/v1/graphql"

	defaultRequestTimeout = 15 * time.Second
)

// Client talks to the learning platform. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL    string
	modulePath string
	http       *http.Client
}

// New constructs a Client for the given platform base URL. modulePath scopes
// XP transactions to one curriculum module.
func New(baseURL, modulePath string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		modulePath: strings.TrimSpace(modulePath),
		http:       &http.Client{Timeout: defaultRequestTimeout},
	}
}

// SignIn exchanges credentials for a bearer token. The signin endpoint takes
// HTTP Basic credentials and no body; the response body is the JSON-encoded
// token string.
func (c *Client) SignIn(ctx context.Context, username, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+signinPath, nil)
	if err != nil {
		return "", newError(KindTransport, 0, "build signin request", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", newError(KindTransport, 0, "signin request failed", err)
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindTransport, resp.StatusCode, "read signin response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		kind := KindUpstream
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindUnauthorized
		}
		return "", newError(kind, resp.StatusCode, rejectionMessage(body), nil)
	}

	var token string
	if errDecode := json.Unmarshal(body, &token); errDecode != nil {
		return "", newError(KindBadResponse, resp.StatusCode, "signin response is not a token string", errDecode)
	}
	if strings.TrimSpace(token) == "" {
		return "", newError(KindBadResponse, resp.StatusCode, "signin returned an empty token", nil)
	}
	return token, nil
}

// graphqlRequest is the query endpoint's JSON body.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the query endpoint's envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query posts a GraphQL document and decodes the data envelope into out.
func (c *Client) query(ctx context.Context, token, document string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: document, Variables: variables})
	if err != nil {
		return newError(KindTransport, 0, "marshal query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+graphqlPath, bytes.NewReader(payload))
	if err != nil {
		return newError(KindTransport, 0, "build query request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return newError(KindTransport, 0, "query request failed", err)
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindTransport, resp.StatusCode, "read query response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		kind := KindUpstream
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindUnauthorized
		}
		return newError(kind, resp.StatusCode, rejectionMessage(body), nil)
	}

	var envelope graphqlResponse
	if errDecode := json.Unmarshal(body, &envelope); errDecode != nil {
		return newError(KindBadResponse, resp.StatusCode, "query response is not a GraphQL envelope", errDecode)
	}
	if len(envelope.Errors) > 0 {
		message := strings.TrimSpace(envelope.Errors[0].Message)
		if message == "" {
			message = "query rejected"
		}
		if isAuthorizationMessage(message) {
			return newError(KindUnauthorized, resp.StatusCode, message, nil)
		}
		return newError(KindUpstream, resp.StatusCode, message, nil)
	}
	if len(envelope.Data) == 0 {
		return newError(KindBadResponse, resp.StatusCode, "query response has no data", nil)
	}
	if errDecode := json.Unmarshal(envelope.Data, out); errDecode != nil {
		return newError(KindBadResponse, resp.StatusCode, "query data has unexpected shape", errDecode)
	}
	return nil
}

// rejectionMessage extracts a human-readable message from an error body.
func rejectionMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if errDecode := json.Unmarshal(body, &parsed); errDecode == nil {
		if message := strings.TrimSpace(parsed.Message); message != "" {
			return message
		}
		if message := strings.TrimSpace(parsed.Error); message != "" {
			return message
		}
	}
	return "request rejected"
}

// isAuthorizationMessage heuristically detects Hasura JWT errors, which
// arrive as GraphQL errors on a 200 response.
func isAuthorizationMessage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "jwt") || strings.Contains(lowered, "authorization") || strings.Contains(lowered, "unauthorized")
}

func closeBody(body io.ReadCloser) {
	if errClose := body.Close(); errClose != nil {
		log.WithError(errClose).Warn("platform: close response body failed")
	}
}

// BaseURL returns the configured platform base URL.
func (c *Client) BaseURL() string { return c.baseURL }
