package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPConfig contains configuration for the HTTP store binding.
type HTTPConfig struct {
	// BaseURL is the management-plane API base, e.g. "https://mgmt.example.com".
	BaseURL string

	// Token is the bearer token sent with every request.
	Token string

	// Timeout is the per-request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxIdleConns is the connection pool size.
	// Default: 10
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90 seconds
	IdleConnTimeout time.Duration
}

// DefaultHTTPConfig returns the default HTTP configuration for baseURL.
func DefaultHTTPConfig(baseURL, token string) HTTPConfig {
	return HTTPConfig{
		BaseURL:         baseURL,
		Token:           token,
		Timeout:         30 * time.Second,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
}

// HTTPStore is the REST binding of PolicyStore. It maintains a pooled
// HTTP client and translates transport and status failures into
// RemoteCallError / NotFoundError.
type HTTPStore struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPStore creates an HTTPStore with connection pooling.
func NewHTTPStore(cfg HTTPConfig) *HTTPStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPStore{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

type policyPage struct {
	Policies   []remotePolicyJSON `json:"policies"`
	NextCursor string             `json:"next_cursor"`
}

type remotePolicyJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

type nodePage struct {
	Nodes      []hierarchyNodeJSON `json:"nodes"`
	NextCursor string              `json:"next_cursor"`
}

type hierarchyNodeJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type attachmentPage struct {
	TargetIDs  []string `json:"target_ids"`
	NextCursor string   `json:"next_cursor"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CheckSession implements PolicyStore.
func (s *HTTPStore) CheckSession(ctx context.Context) error {
	return s.do(ctx, "CheckSession", http.MethodGet, "/v1/session", nil, nil, nil)
}

// ListPolicies implements PolicyStore.
func (s *HTTPStore) ListPolicies(ctx context.Context, cursor string) ([]RemotePolicy, string, error) {
	query := url.Values{"kind": {PolicyKindResourceControl}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page policyPage
	if err := s.do(ctx, "ListPolicies", http.MethodGet, "/v1/policies", query, nil, &page); err != nil {
		return nil, "", err
	}

	policies := make([]RemotePolicy, 0, len(page.Policies))
	for _, p := range page.Policies {
		policies = append(policies, RemotePolicy(p))
	}
	return policies, page.NextCursor, nil
}

// CreatePolicy implements PolicyStore.
func (s *HTTPStore) CreatePolicy(ctx context.Context, name, description, content string) (string, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
		"content":     content,
		"kind":        PolicyKindResourceControl,
	}

	var resp createResponse
	if err := s.do(ctx, "CreatePolicy", http.MethodPost, "/v1/policies", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdatePolicy implements PolicyStore.
func (s *HTTPStore) UpdatePolicy(ctx context.Context, id, name, description, content string) error {
	body := map[string]string{
		"name":        name,
		"description": description,
		"content":     content,
	}
	return s.do(ctx, "UpdatePolicy", http.MethodPut, "/v1/policies/"+url.PathEscape(id), nil, body, nil)
}

// ListRoots implements PolicyStore.
func (s *HTTPStore) ListRoots(ctx context.Context, cursor string) ([]HierarchyNode, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page nodePage
	if err := s.do(ctx, "ListRoots", http.MethodGet, "/v1/hierarchy/roots", query, nil, &page); err != nil {
		return nil, "", err
	}
	return toNodes(page), page.NextCursor, nil
}

// ListChildren implements PolicyStore.
func (s *HTTPStore) ListChildren(ctx context.Context, parentID, cursor string) ([]HierarchyNode, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/v1/hierarchy/nodes/" + url.PathEscape(parentID) + "/children"
	var page nodePage
	if err := s.do(ctx, "ListChildren", http.MethodGet, path, query, nil, &page); err != nil {
		return nil, "", err
	}
	return toNodes(page), page.NextCursor, nil
}

// ListAttachments implements PolicyStore.
func (s *HTTPStore) ListAttachments(ctx context.Context, policyID, cursor string) ([]string, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/v1/policies/" + url.PathEscape(policyID) + "/attachments"
	var page attachmentPage
	if err := s.do(ctx, "ListAttachments", http.MethodGet, path, query, nil, &page); err != nil {
		return nil, "", err
	}
	return page.TargetIDs, page.NextCursor, nil
}

// Attach implements PolicyStore.
func (s *HTTPStore) Attach(ctx context.Context, policyID, targetID string) error {
	path := "/v1/policies/" + url.PathEscape(policyID) + "/attachments/" + url.PathEscape(targetID)
	return s.do(ctx, "Attach", http.MethodPut, path, nil, nil, nil)
}

// Detach implements PolicyStore.
func (s *HTTPStore) Detach(ctx context.Context, policyID, targetID string) error {
	path := "/v1/policies/" + url.PathEscape(policyID) + "/attachments/" + url.PathEscape(targetID)
	return s.do(ctx, "Detach", http.MethodDelete, path, nil, nil, nil)
}

func toNodes(page nodePage) []HierarchyNode {
	nodes := make([]HierarchyNode, 0, len(page.Nodes))
	for _, n := range page.Nodes {
		nodes = append(nodes, HierarchyNode(n))
	}
	return nodes
}

// do performs one request and decodes the response into out when non-nil.
func (s *HTTPStore) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := s.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &RemoteCallError{Op: op, Cause: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &RemoteCallError{Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &RemoteCallError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Kind: "resource", ID: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteCallError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("%s", bytes.TrimSpace(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteCallError{Op: op, Cause: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
