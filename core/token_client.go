package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

const maxTokenResponseBytes int64 = 1 << 20 // 1 MiB

const grantTypeClientCredentials = "client_credentials"

type TokenClientConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Resource     string
	Timeout      time.Duration
	HTTPClient   HTTPDoer
}

// TokenClient performs the OAuth2 client-credentials exchange against
// the upstream token endpoint.
type TokenClient struct {
	config TokenClientConfig
}

func NewTokenClient(cfg TokenClientConfig) *TokenClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TokenClient{
		config: TokenClientConfig{
			TokenURL:     strings.TrimSpace(cfg.TokenURL),
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			Resource:     strings.TrimSpace(cfg.Resource),
			Timeout:      timeout,
			HTTPClient:   httpClient,
		},
	}
}

// NewTokenClientFromConfig wires a token client from gateway config.
func NewTokenClientFromConfig(cfg Config, httpClient HTTPDoer) *TokenClient {
	return NewTokenClient(TokenClientConfig{
		TokenURL:     cfg.TokenURL(),
		ClientID:     cfg.Upstream.ClientID,
		ClientSecret: cfg.Upstream.ClientSecret,
		Resource:     cfg.Upstream.Resource,
		Timeout:      cfg.HTTPTimeout(),
		HTTPClient:   httpClient,
	})
}

func (c *TokenClient) FetchToken(ctx context.Context) (UpstreamToken, error) {
	if c == nil {
		return UpstreamToken{}, ConfigurationError("core: token client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.config.TokenURL == "" {
		return UpstreamToken{}, ConfigurationError("core: token endpoint url is not configured")
	}
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return UpstreamToken{}, ConfigurationError("core: upstream client credentials are not configured")
	}
	if c.config.Resource == "" {
		return UpstreamToken{}, ConfigurationError("core: upstream resource is not configured")
	}

	form := url.Values{}
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("resource", c.config.Resource)
	form.Set("grant_type", grantTypeClientCredentials)

	requestCtx := ctx
	cancel := func() {}
	if c.config.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return UpstreamToken{}, UpstreamAuthError(fmt.Sprintf("core: create token request: %v", err), 0, "")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return UpstreamToken{}, UpstreamAuthError(fmt.Sprintf("core: token endpoint request failed: %v", err), 0, "")
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxTokenResponseBytes+1))
	if readErr != nil {
		return UpstreamToken{}, UpstreamAuthError(fmt.Sprintf("core: read token response: %v", readErr), res.StatusCode, "")
	}
	if int64(len(body)) > maxTokenResponseBytes {
		return UpstreamToken{}, UpstreamAuthError("core: token response exceeds size limit", res.StatusCode, "")
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return UpstreamToken{}, UpstreamAuthError(
			fmt.Sprintf("core: token endpoint returned status %d", res.StatusCode),
			res.StatusCode,
			string(body),
		)
	}

	payload, err := decodeTokenPayload(body)
	if err != nil {
		return UpstreamToken{}, UpstreamAuthError(fmt.Sprintf("core: decode token response: %v", err), res.StatusCode, "")
	}

	accessToken := strings.TrimSpace(readTokenString(payload["access_token"]))
	if accessToken == "" {
		return UpstreamToken{}, UpstreamAuthError("core: token response is missing access_token", res.StatusCode, "")
	}
	expiresOn, ok := readEpochSeconds(payload["expires_on"])
	if !ok || expiresOn <= 0 {
		return UpstreamToken{}, UpstreamAuthError("core: token response is missing a valid expires_on", res.StatusCode, "")
	}

	token := UpstreamToken{
		AccessToken: accessToken,
		TokenType:   strings.TrimSpace(readTokenString(payload["token_type"])),
		Resource:    strings.TrimSpace(readTokenString(payload["resource"])),
		ExpiresOn:   expiresOn,
	}
	if token.Resource == "" {
		token.Resource = c.config.Resource
	}
	if expiresIn, ok := readEpochSeconds(payload["expires_in"]); ok && expiresIn > 0 {
		token.ExpiresIn = expiresIn
	} else if extExpiresIn, ok := readEpochSeconds(payload["ext_expires_in"]); ok && extExpiresIn > 0 {
		token.ExpiresIn = extExpiresIn
	}
	return token, nil
}

func decodeTokenPayload(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func readTokenString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}

// readEpochSeconds accepts both numeric and string epoch values; the
// upstream endpoint historically returns expires_on as a string.
func readEpochSeconds(value any) (int64, bool) {
	switch typed := value.(type) {
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case float64:
		return int64(typed), true
	default:
		return 0, false
	}
}

var _ TokenSource = (*TokenClient)(nil)
