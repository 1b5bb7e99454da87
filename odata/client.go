package odata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-erp-gateway/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// KeyPart is one segment of an entity's composite key.
type KeyPart struct {
	Name  string
	Value any
}

// EntityKey addresses a single entity instance, e.g.
// (PurchaseOrderNumber='PO-1',dataAreaId='USMF').
type EntityKey []KeyPart

func StringKey(name string, value string) KeyPart {
	return KeyPart{Name: name, Value: value}
}

func NumberKey(name string, value int) KeyPart {
	return KeyPart{Name: name, Value: value}
}

func (k EntityKey) String() string {
	parts := make([]string, 0, len(k))
	for _, part := range k {
		switch typed := part.Value.(type) {
		case string:
			parts = append(parts, part.Name+"="+QuoteLiteral(typed))
		case int:
			parts = append(parts, part.Name+"="+strconv.Itoa(typed))
		case int64:
			parts = append(parts, part.Name+"="+strconv.FormatInt(typed, 10))
		case float64:
			parts = append(parts, part.Name+"="+strconv.FormatFloat(typed, 'f', -1, 64))
		default:
			parts = append(parts, part.Name+"="+fmt.Sprint(typed))
		}
	}
	return "(" + strings.Join(parts, ",") + ")"
}

type ClientConfig struct {
	BaseURL              string
	HTTPClient           HTTPDoer
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Logger               core.Logger
}

// Client speaks the ERP's OData surface: entity reads with system
// query options, writes with return=representation, keyed updates and
// deletes, and multipart $batch submission.
type Client struct {
	baseURL        string
	httpClient     HTTPDoer
	maxBodyBytes   int64
	defaultHeaders map[string]string
	logger         core.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, core.ConfigurationError("odata: erp base url is not configured")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultClientTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxBodyBytes := cfg.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		maxBodyBytes: maxBodyBytes,
		defaultHeaders: map[string]string{
			"Accept":           "application/json",
			"OData-Version":    "4.0",
			"OData-MaxVersion": "4.0",
		},
		logger: glog.Ensure(cfg.Logger),
	}, nil
}

// BaseURL returns the normalized ERP base url (always slash-suffixed).
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// EntityURL builds the absolute data-plane url for an entity set.
func (c *Client) EntityURL(entitySet string) string {
	if c == nil {
		return ""
	}
	return c.baseURL + "data/" + strings.TrimSpace(entitySet)
}

// List fetches one page of an entity set.
func (c *Client) List(ctx context.Context, token string, entitySet string, opts QueryOptions, pageReq PageRequest) (Page, error) {
	page, pageSize, skip := pageReq.Normalize()
	opts.Top = pageSize
	opts.Skip = skip
	opts.Count = true

	status, body, err := c.do(ctx, http.MethodGet, "data/"+entitySet, opts.Values(), token, nil, "")
	if err != nil {
		return Page{}, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Page{}, upstreamFailure("odata: list "+entitySet, status, body)
	}
	return ParsePage(body, page, pageSize)
}

// Query fetches an entity set with caller-controlled options and no
// implicit paging.
func (c *Client) Query(ctx context.Context, token string, entitySet string, opts QueryOptions) (Page, error) {
	status, body, err := c.do(ctx, http.MethodGet, "data/"+entitySet, opts.Values(), token, nil, "")
	if err != nil {
		return Page{}, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Page{}, upstreamFailure("odata: query "+entitySet, status, body)
	}
	return ParsePage(body, 1, 0)
}

// Create posts a new entity and returns its representation.
func (c *Client) Create(ctx context.Context, token string, entitySet string, payload map[string]any) (map[string]any, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	status, resBody, err := c.do(ctx, http.MethodPost, "data/"+entitySet, nil, token, body, "application/json")
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, upstreamFailure("odata: create "+entitySet, status, resBody)
	}
	return decodeEntity(resBody)
}

// Update patches an entity by key. A 204 response is treated as
// success with an empty representation.
func (c *Client) Update(ctx context.Context, token string, entitySet string, key EntityKey, payload map[string]any) (map[string]any, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	path := "data/" + entitySet + key.String()
	status, resBody, err := c.do(ctx, http.MethodPatch, path, map[string]string{"cross-company": "true"}, token, body, "application/json")
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, upstreamFailure("odata: update "+entitySet, status, resBody)
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(resBody)) == 0 {
		return map[string]any{}, nil
	}
	return decodeEntity(resBody)
}

// Delete removes an entity by key.
func (c *Client) Delete(ctx context.Context, token string, entitySet string, key EntityKey) error {
	path := "data/" + entitySet + key.String()
	status, resBody, err := c.do(ctx, http.MethodDelete, path, map[string]string{"cross-company": "true"}, token, nil, "")
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return upstreamFailure("odata: delete "+entitySet, status, resBody)
	}
	return nil
}

// SubmitBatch posts an assembled $batch request. The aggregate
// multipart response is returned as opaque text; failures inside an
// accepted batch are not unpacked.
func (c *Client) SubmitBatch(ctx context.Context, token string, batch Batch) (string, error) {
	if len(batch.Body) == 0 {
		return "", core.BadInputError("odata: batch body is empty")
	}
	status, resBody, err := c.do(ctx, http.MethodPost, "data/$batch", nil, token, batch.Body, batch.ContentType())
	if err != nil {
		return "", err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", upstreamFailure("odata: submit batch", status, resBody)
	}
	return string(resBody), nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query map[string]string,
	token string,
	body []byte,
	contentType string,
) (int, []byte, error) {
	if c == nil || c.httpClient == nil {
		return 0, nil, core.ConfigurationError("odata: client requires an http client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	parsedURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, nil, core.BadInputError(fmt.Sprintf("odata: invalid request url: %v", err))
	}
	values := parsedURL.Query()
	for key, value := range query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		values.Set(key, value)
	}
	parsedURL.RawQuery = values.Encode()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), reader)
	if err != nil {
		return 0, nil, core.BadInputError(fmt.Sprintf("odata: create request: %v", err))
	}
	for key, value := range c.defaultHeaders {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if method == http.MethodPost || method == http.MethodPatch {
		httpReq.Header.Set("Prefer", "return=representation")
	}
	if strings.TrimSpace(token) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	startedAt := time.Now().UTC()
	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, core.UpstreamError(fmt.Sprintf("odata: execute %s %s: %v", method, path, err), 0, "")
	}
	defer httpRes.Body.Close()

	resBody, readErr := io.ReadAll(io.LimitReader(httpRes.Body, c.maxBodyBytes+1))
	if readErr != nil {
		return 0, nil, core.UpstreamError(fmt.Sprintf("odata: read response body: %v", readErr), httpRes.StatusCode, "")
	}
	if int64(len(resBody)) > c.maxBodyBytes {
		return 0, nil, core.UpstreamError(
			fmt.Sprintf("odata: response body exceeds limit of %d bytes", c.maxBodyBytes),
			httpRes.StatusCode,
			"",
		)
	}

	c.logger.Debug("erp request",
		"method", method,
		"path", path,
		"status", httpRes.StatusCode,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return httpRes.StatusCode, resBody, nil
}
