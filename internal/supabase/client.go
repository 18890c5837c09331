// Package supabase talks to a hosted Supabase project: PostgREST for the
// contact_submissions table and GoTrue for admin sign-in.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"folio/internal/auth"
	"folio/internal/bus"
	"folio/internal/model"
)

const maxBody = 4 << 20

// Client implements the submission store and the authenticator against one project.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	now     func() time.Time
	events  *bus.Bus[model.AuthEvent]
	log     *zap.Logger
}

func New(baseURL, anonKey string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    httpClient,
		now:     time.Now,
		events:  bus.New[model.AuthEvent](),
		log:     log,
	}
}

// APIError is a non-2xx answer from either service. Message is the
// provider's own text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string, hdr map[string]string) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	c.log.Debug("backend request", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &APIError{Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	return raw, nil
}

// errorMessage pulls the human-readable text out of a PostgREST or GoTrue error body.
func errorMessage(raw []byte, fallback string) string {
	if gjson.ValidBytes(raw) {
		res := gjson.ParseBytes(raw)
		for _, key := range []string{"error_description", "msg", "message", "error"} {
			if v := res.Get(key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fallback
}

func tokenFrom(ctx context.Context) string {
	tok, _ := auth.TokenFromContext(ctx)
	return tok
}
