// Package remote talks to the cloud document store. One collection exists
// per entity type; documents are keyed by entity id and scoped to the
// owning user, so retried writes are idempotent and never duplicate.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/macrolog/macrolog/internal/models"
)

// Delta is one remote change visible to the authenticated user: a
// create/update carrying the document payload, or a tombstone when
// Deleted is set.
type Delta struct {
	EntityType      models.EntityType `json:"entity_type"`
	EntityID        string            `json:"entity_id"`
	Payload         json.RawMessage   `json:"payload,omitempty"`
	RemoteTimestamp time.Time         `json:"remote_timestamp"`
	Deleted         bool              `json:"deleted"`
}

// ChangePage is one page of the change feed plus the cursor to resume from.
type ChangePage struct {
	Deltas     []Delta `json:"deltas"`
	NextCursor string  `json:"next_cursor"`
}

// Document is a stored remote document.
type Document struct {
	EntityID  string          `json:"entity_id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Client wraps the document store HTTP API with rate limiting and
// per-call timeouts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// ClientConfig holds remote store client settings.
type ClientConfig struct {
	BaseURL string
	Token   string

	// RequestsPerMinute bounds outbound calls; zero uses the default.
	RequestsPerMinute int

	// CallTimeout bounds each individual request; zero uses the default.
	CallTimeout time.Duration
}

const (
	defaultRequestsPerMinute = 120
	defaultCallTimeout       = 15 * time.Second
)

// NewClient creates a document store client. An empty token is allowed;
// the server rejects unauthenticated writes and the error surfaces as
// ErrNotAuthenticated.
func NewClient(cfg ClientConfig) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		timeout:    timeout,
	}
}

// PutDocument upserts one document, keyed by entity id. The write is
// idempotent: pushing the same snapshot twice leaves one document.
func (c *Client) PutDocument(ctx context.Context, userID string, t models.EntityType, id string, payload json.RawMessage) error {
	body := struct {
		Payload   json.RawMessage `json:"payload"`
		UpdatedAt time.Time       `json:"updated_at"`
	}{Payload: payload, UpdatedAt: time.Now().UTC()}

	return c.do(ctx, http.MethodPut, c.docURL(userID, t, id), body, nil)
}

// DeleteDocument removes one document. Deleting a document that is
// already gone succeeds.
func (c *Client) DeleteDocument(ctx context.Context, userID string, t models.EntityType, id string) error {
	err := c.do(ctx, http.MethodDelete, c.docURL(userID, t, id), nil, nil)
	if isRemoteStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// ListCollection fetches the full snapshot of one collection.
func (c *Client) ListCollection(ctx context.Context, userID string, t models.EntityType) ([]Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	u := fmt.Sprintf("%s/v1/users/%s/%s", c.baseURL, url.PathEscape(userID), t)
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// Changes fetches the next page of the user's change feed. An empty
// cursor starts from the initial snapshot. The server long-polls when
// there is nothing new, bounded by the per-call timeout.
func (c *Client) Changes(ctx context.Context, userID, cursor string) (*ChangePage, error) {
	u := fmt.Sprintf("%s/v1/users/%s/changes?cursor=%s", c.baseURL, url.PathEscape(userID), url.QueryEscape(cursor))
	var page ChangePage
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) docURL(userID string, t models.EntityType, id string) string {
	return fmt.Sprintf("%s/v1/users/%s/%s/%s", c.baseURL, url.PathEscape(userID), t, url.PathEscape(id))
}

// do performs one rate-limited, timeout-bounded request and decodes the
// JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, u string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classifyTransport maps connection-level unreachability (refused
// connections, DNS failures) to the network sentinel so the
// orchestrator can drop to offline. A per-call timeout is NOT network
// unavailability: the remote side was reachable but one call stalled,
// so it surfaces as a retryable per-operation failure and the push
// pass continues past it.
func classifyTransport(err error) error {
	// Client.Do failures arrive wrapped in *url.Error.
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("remote call timed out: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	return fmt.Errorf("remote request: %w", err)
}

// classifyStatus maps HTTP rejections onto the sync error surface.
func classifyStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, bytes.TrimSpace(raw))
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrNetworkUnavailable, resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
}

// StatusError is a non-network remote rejection (validation failure,
// conflict, server bug). These are retried with backoff per operation
// rather than suspending the whole push loop.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote store: status %d", e.Code)
	}
	return fmt.Sprintf("remote store: status %d: %s", e.Code, e.Body)
}

func isRemoteStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
