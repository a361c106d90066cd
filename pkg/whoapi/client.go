package whoapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/clinref/icf-mcp-server/pkg/metrics"
)

const (
	// TokenEndpoint is the WHO access-management token URL.
	TokenEndpoint = "https://icdaccessmanagement.who.int/connect/token"
	// APIBaseURL is the root of the public ICD-API.
	APIBaseURL = "https://id.who.int"

	// Linearization is the ICD-11 linearization this client serves.
	Linearization = "icf"

	DefaultRelease  = "2025-01"
	DefaultLanguage = "en"

	// DefaultMaxSearchResults caps search output when the caller does not.
	DefaultMaxSearchResults = 10

	apiVersion = "v2"
	oauthScope = "icdapi_access"

	browseCategoryResults = 20

	// tokenExpiryMargin retires tokens slightly before upstream expiry so
	// a request never departs with a token about to lapse in flight.
	tokenExpiryMargin = 30 * time.Second
)

// Config holds the WHO ICD-API connection settings.
type Config struct {
	ClientID     string
	ClientSecret string
	Release      string
	Language     string
	Timeout      time.Duration
}

// Client calls the WHO ICD-API ICF linearization. Construct one with
// NewClient and share it; all methods are safe for concurrent use. Tokens
// are fetched lazily on the first request and refreshed in place when the
// expiry margin is reached.
type Client struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	tracer     trace.Tracer

	mu          sync.Mutex
	tokenSource oauth2.TokenSource
}

// NewClient creates a client for the given settings. Missing release,
// language, or timeout values fall back to defaults. Credentials are not
// checked here; calls without them fail with a ConfigError.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Release == "" {
		config.Release = DefaultRelease
	}
	if config.Language == "" {
		config.Language = DefaultLanguage
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Client{
		config:     config,
		logger:     logger.Named("whoapi"),
		httpClient: newHTTPClient(config.Timeout),
		baseURL:    APIBaseURL,
		tokenURL:   TokenEndpoint,
		tracer:     otel.Tracer("whoapi"),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     false,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// SetBaseURL overrides the API base, mainly for tests. Call it before the
// first request.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// SetTokenURL overrides the token endpoint, mainly for tests. Call it
// before the first request; any cached token source is discarded.
func (c *Client) SetTokenURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenURL = u
	c.tokenSource = nil
}

// Release reports the classification release the client is pinned to.
func (c *Client) Release() string {
	return c.config.Release
}

// token returns a valid access token, building the token source on first
// use. The reuse source serializes concurrent refreshes, so N callers
// racing for the first token produce exactly one token request.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	if c.tokenSource == nil {
		cc := &clientcredentials.Config{
			ClientID:     c.config.ClientID,
			ClientSecret: c.config.ClientSecret,
			TokenURL:     c.tokenURL,
			Scopes:       []string{oauthScope},
			// WHO expects client_id and client_secret as form fields.
			AuthStyle: oauth2.AuthStyleInParams,
		}
		// The source outlives any single call, so it carries its own
		// context with our tuned HTTP client instead of the caller's.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.tokenSource = oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(tokenCtx), tokenExpiryMargin)
	}
	ts := c.tokenSource
	c.mu.Unlock()

	tok, err := ts.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			detail := strings.TrimSpace(string(re.Body))
			if detail == "" {
				detail = re.Response.Status
			}
			return nil, &AuthError{StatusCode: re.Response.StatusCode, Detail: detail}
		}
		return nil, &UpstreamError{Detail: "token request failed", Err: err}
	}
	return tok, nil
}

// invalidateToken drops the cached token source so the next call
// authenticates from scratch.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.tokenSource = nil
	c.mu.Unlock()
}

// apiRequest performs one authenticated GET against the API, retrying a
// single time when the token is rejected. A 404 surfaces as NotFoundError
// carrying notFoundKey when one is given; other non-2xx statuses become
// UpstreamError.
func (c *Client) apiRequest(ctx context.Context, path string, params url.Values, notFoundKey string) ([]byte, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return nil, &ConfigError{Reason: "set WHO_ICD_CLIENT_ID and WHO_ICD_CLIENT_SECRET"}
	}

	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "whoapi.request", trace.WithAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.path", path),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	start := time.Now()
	body, status, err := c.roundTrip(ctx, path, params, requestID)
	if err == nil && status == http.StatusUnauthorized {
		// Token revoked or expired upstream. Authenticate again and retry
		// once.
		c.logger.Warn("token rejected, re-authenticating",
			zap.String("request_id", requestID),
			zap.String("path", path))
		c.invalidateToken()
		body, status, err = c.roundTrip(ctx, path, params, requestID)
	}
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		metrics.RecordBackendRequest(metrics.BackendWHOICD, duration, false)
		metrics.RecordBackendError(metrics.BackendWHOICD, backendErrorType(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	success := status >= 200 && status < 300
	metrics.RecordBackendRequest(metrics.BackendWHOICD, duration, success)

	c.logger.Debug("api response",
		zap.String("request_id", requestID),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration))

	switch {
	case success:
		return body, nil
	case status == http.StatusNotFound && notFoundKey != "":
		return nil, &NotFoundError{Code: notFoundKey}
	case status == http.StatusUnauthorized:
		metrics.RecordBackendError(metrics.BackendWHOICD, "auth_error")
		return nil, &AuthError{StatusCode: status, Detail: "access token rejected"}
	default:
		metrics.RecordBackendError(metrics.BackendWHOICD, fmt.Sprintf("http_%d", status))
		return nil, &UpstreamError{StatusCode: status, Detail: bodySnippet(body)}
	}
}

// roundTrip issues a single authenticated request and reads the body. The
// returned error covers config, auth, and transport failures only; HTTP
// status handling is the caller's.
func (c *Client) roundTrip(ctx context.Context, path string, params url.Values, requestID string) ([]byte, int, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &UpstreamError{Detail: "building request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.config.Language)
	req.Header.Set("API-Version", apiVersion)

	c.logger.Debug("api request",
		zap.String("request_id", requestID),
		zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &UpstreamError{Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &UpstreamError{Detail: "reading response", Err: err}
	}
	return body, resp.StatusCode, nil
}

// Lookup fetches the full entity for an ICF code such as "b280". The
// codeinfo endpoint resolves the code to its stem URI, which is then
// fetched and flattened.
func (c *Client) Lookup(ctx context.Context, code string) (*Entity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &NotFoundError{Code: code}
	}

	path := fmt.Sprintf("/icd/release/11/%s/%s/codeinfo/%s", c.config.Release, Linearization, url.PathEscape(code))
	body, err := c.apiRequest(ctx, path, nil, code)
	if err != nil {
		return nil, err
	}

	var info codeInfoPayload
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &UpstreamError{Detail: fmt.Sprintf("decoding codeinfo for %q: %v", code, err)}
	}
	if info.StemID == "" {
		return nil, &NotFoundError{Code: code}
	}

	entity, err := c.EntityByURI(ctx, info.StemID)
	if err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Code: code}
		}
		return nil, err
	}
	return entity, nil
}

// EntityByURI fetches an entity by its canonical URI, as returned in
// stemId, child, and search id fields.
func (c *Client) EntityByURI(ctx context.Context, uri string) (*Entity, error) {
	path, err := c.entityPath(uri)
	if err != nil {
		return nil, err
	}
	body, err := c.apiRequest(ctx, path, nil, uri)
	if err != nil {
		return nil, err
	}

	var payload entityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Detail: fmt.Sprintf("decoding entity %q: %v", uri, err)}
	}
	return payload.toEntity(), nil
}

// entityPath reduces a canonical or test-server URI to a request path on
// the configured base. The API emits stem URIs under http://id.who.int
// regardless of the scheme requests were made with.
func (c *Client) entityPath(uri string) (string, error) {
	for _, prefix := range []string{c.baseURL, APIBaseURL, "http://id.who.int"} {
		if prefix != "" && strings.HasPrefix(uri, prefix) {
			return strings.TrimPrefix(uri, prefix), nil
		}
	}
	if strings.HasPrefix(uri, "/") {
		return uri, nil
	}
	return "", &UpstreamError{Detail: fmt.Sprintf("unrecognized entity uri %q", uri)}
}

// Search queries the linearization with flexible matching and flat
// results. A blank query returns no results without calling the API.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxSearchResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("useFlexisearch", "true")
	params.Set("flatResults", "true")
	params.Set("highlightingEnabled", "false")

	path := fmt.Sprintf("/icd/release/11/%s/%s/search", c.config.Release, Linearization)
	body, err := c.apiRequest(ctx, path, params, "")
	if err != nil {
		return nil, err
	}

	var payload searchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Detail: fmt.Sprintf("decoding search response: %v", err)}
	}

	results := make([]SearchResult, 0, len(payload.DestinationEntities))
	for _, hit := range payload.DestinationEntities {
		results = append(results, SearchResult{
			Code:  hit.TheCode,
			Title: hit.Title,
			Score: hit.Score,
			URI:   hit.ID,
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

// Children resolves the direct children of an ICF code. Children whose
// entities cannot be fetched are skipped with a warning.
func (c *Client) Children(ctx context.Context, code string) ([]Entity, error) {
	parent, err := c.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	children := make([]Entity, 0, len(parent.Children))
	for _, childURI := range parent.Children {
		child, err := c.EntityByURI(ctx, childURI)
		if err != nil {
			c.logger.Warn("skipping unfetchable child",
				zap.String("parent", code),
				zap.String("child_uri", childURI),
				zap.Error(err))
			continue
		}
		children = append(children, *child)
	}
	return children, nil
}

type categoryInfo struct {
	Name        string
	Description string
}

var categories = map[string]categoryInfo{
	"b": {
		Name:        "Body Functions",
		Description: "Body Functions are the physiological functions of body systems (including psychological functions). Codes range from b1 to b8.",
	},
	"s": {
		Name:        "Body Structures",
		Description: "Body Structures are anatomical parts of the body such as organs, limbs and their components. Codes range from s1 to s8.",
	},
	"d": {
		Name:        "Activities and Participation",
		Description: "Activities and Participation covers the execution of tasks and involvement in life situations. Codes range from d1 to d9.",
	},
	"e": {
		Name:        "Environmental Factors",
		Description: "Environmental Factors make up the physical, social and attitudinal environment in which people live. Codes range from e1 to e5.",
	},
}

// BrowseCategory samples entries from one of the four ICF components. The
// category letter is validated before any token or API request happens.
func (c *Client) BrowseCategory(ctx context.Context, category string) (*CategoryView, error) {
	key := strings.ToLower(strings.TrimSpace(category))
	info, ok := categories[key]
	if !ok {
		return nil, fmt.Errorf("invalid category %q: valid categories are b (Body Functions), s (Body Structures), d (Activities and Participation), e (Environmental Factors)", category)
	}

	results, err := c.Search(ctx, info.Name, browseCategoryResults)
	if err != nil {
		return nil, err
	}
	return &CategoryView{
		Category:    key,
		Name:        info.Name,
		Description: info.Description,
		Results:     results,
	}, nil
}

func backendErrorType(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsAuthError(err):
		return "auth_error"
	case IsConfigError(err):
		return "config_error"
	default:
		return "network_error"
	}
}

// bodySnippet keeps error messages bounded when the API answers with HTML
// or a large error payload.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "no response body"
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
