// Package generate talks to an OpenAI-compatible chat-completion service and
// turns its structured reply into a [Response].
//
// # Request
//
// [Client.Generate] sends one user message made of mode-specific instructions
// followed by the description, and a json_schema response format that allows
// exactly three properties: the code field for the mode (dot_code or
// svg_code), error_message and explanation.
//
// # Reply
//
// The envelope's choices[0].message.content is itself a JSON string and is
// parsed a second time. The result is accepted when it carries a code field
// (primary or legacy key) or an error message; anything else is reported as
// MALFORMED_RESPONSE naming the checked and received keys.
//
// # Single attempt
//
// Chat requests are sent exactly once. The model catalog used by
// [Client.ListModels] is read with a small retry budget and cached for
// [cache.TTLCatalog].
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/matzehuels/aidiagram/pkg/cache"
	"github.com/matzehuels/aidiagram/pkg/config"
	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
	"github.com/matzehuels/aidiagram/pkg/observability"
)

const (
	chatPath   = "/v1/chat/completions"
	modelsPath = "/v1/models"

	// maxErrorBody caps the response body kept in a TransportError.
	maxErrorBody = 2048

	catalogRetries = 2
)

// Client is a generative service client. Its fields are read-only after
// construction and it is safe for concurrent use.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration // Bounds one chat request; zero disables

	HTTP        *retryablehttp.Client // Chat requests, never retried
	CatalogHTTP *retryablehttp.Client // Model catalog requests
	Cache       cache.Cache
	Logger      *log.Logger
}

// NewClient creates a Client from cfg. A nil store disables catalog caching;
// a nil logger discards output.
func NewClient(cfg config.Config, store cache.Cache, logger *log.Logger) *Client {
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout.Std(),
		HTTP:        newHTTPClient(0, logger),
		CatalogHTTP: newHTTPClient(catalogRetries, logger),
		Cache:       store,
		Logger:      logger,
	}
}

func newHTTPClient(retries int, logger *log.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel})
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// newChatRequest builds the request body for description in mode.
func (c *Client) newChatRequest(description string, mode config.Mode) chatRequest {
	return chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(description, mode)}},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   schemaName,
				Strict: true,
				Schema: Schema(mode),
			},
		},
	}
}

// Generate asks the service for a diagram of description in the format
// selected by mode.
//
// A missing credential or an unknown mode fails with CONFIGURATION_ERROR
// before any request is made.
func (c *Client) Generate(ctx context.Context, description string, mode config.Mode) (*Response, error) {
	if c.APIKey == "" {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration,
			"no API key configured (set %s or api_key in the config file)", config.EnvAPIKey)
	}
	if !mode.Valid() {
		return nil, aerrors.New(aerrors.ErrCodeConfiguration, "invalid mode: %q", string(mode))
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(c.newChatRequest(description, mode))
	if err != nil {
		return nil, aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "encode chat request")
	}

	url := c.BaseURL + chatPath
	start := time.Now()
	data, err := c.do(ctx, c.HTTP, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	c.logger().Debug("chat completion received",
		"model", c.Model,
		"bytes", len(data),
		"duration", time.Since(start).Round(time.Millisecond))

	payload, err := parseEnvelope(data)
	if err != nil {
		return nil, err
	}
	resp, err := NewResponse(payload)
	if err != nil {
		return nil, err
	}
	if err := resp.validate(mode); err != nil {
		return nil, err
	}
	return resp, nil
}

// parseEnvelope extracts and decodes the JSON object nested in the first
// choice's message content.
func parseEnvelope(data []byte) (map[string]any, error) {
	var env chatResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, aerrors.Wrap(aerrors.ErrCodeMalformedResponse, err, "decode response envelope")
	}
	if len(env.Choices) == 0 || env.Choices[0].Message == nil || env.Choices[0].Message.Content == nil {
		return nil, aerrors.New(aerrors.ErrCodeMalformedResponse, "response envelope has no message content")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(*env.Choices[0].Message.Content), &payload); err != nil {
		return nil, aerrors.Wrap(aerrors.ErrCodeMalformedResponse, err, "message content is not a JSON object")
	}
	if payload == nil {
		return nil, aerrors.New(aerrors.ErrCodeMalformedResponse, "message content is not a JSON object")
	}
	return payload, nil
}

// do sends one authenticated request and returns the body of a 2xx reply.
func (c *Client) do(ctx context.Context, hc *retryablehttp.Client, method, url string, body []byte) ([]byte, error) {
	var reqBody any
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &aerrors.TransportError{Method: method, URL: url, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := hc.Do(req)
	if resp == nil {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		hooks.OnError(ctx, method, host, path, err)
		return nil, &aerrors.TransportError{Method: method, URL: url, Cause: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &aerrors.TransportError{
			Method: method,
			URL:    url,
			Status: resp.StatusCode,
			Body:   truncate(strings.TrimSpace(string(data)), maxErrorBody),
			Cause:  err,
		}
	}
	if readErr != nil {
		return nil, &aerrors.TransportError{Method: method, URL: url, Cause: readErr}
	}
	return data, nil
}

func (c *Client) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard)
	}
	return c.Logger
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
