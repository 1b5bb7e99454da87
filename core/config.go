package core

import (
	"fmt"
	"strings"
	"time"
)

type UpstreamConfig struct {
	Authority    string `koanf:"authority" mapstructure:"authority"`
	TenantID     string `koanf:"tenant_id" mapstructure:"tenant_id"`
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	Resource     string `koanf:"resource" mapstructure:"resource"`
}

type ERPConfig struct {
	BaseURL        string `koanf:"base_url" mapstructure:"base_url"`
	DefaultCompany string `koanf:"default_company" mapstructure:"default_company"`
}

type Config struct {
	ServiceName          string         `koanf:"service_name" mapstructure:"service_name"`
	Upstream             UpstreamConfig `koanf:"upstream" mapstructure:"upstream"`
	ERP                  ERPConfig      `koanf:"erp" mapstructure:"erp"`
	RefreshBufferSeconds int            `koanf:"refresh_buffer_seconds" mapstructure:"refresh_buffer_seconds"`
	HTTPTimeoutSeconds   int            `koanf:"http_timeout_seconds" mapstructure:"http_timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "erp-gateway",
		Upstream: UpstreamConfig{
			Authority: "https://login.microsoftonline.com",
		},
		ERP: ERPConfig{
			DefaultCompany: "USMF",
		},
		RefreshBufferSeconds: 60,
		HTTPTimeoutSeconds:   30,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.RefreshBufferSeconds < 0 {
		return fmt.Errorf("core: refresh_buffer_seconds must not be negative")
	}
	if c.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("core: http_timeout_seconds must not be negative")
	}
	return nil
}

// TokenURL builds the tenant-scoped token endpoint from the configured
// authority.
func (c Config) TokenURL() string {
	authority := strings.TrimSuffix(strings.TrimSpace(c.Upstream.Authority), "/")
	tenant := strings.TrimSpace(c.Upstream.TenantID)
	if authority == "" || tenant == "" {
		return ""
	}
	return authority + "/" + tenant + "/oauth2/token"
}

func (c Config) RefreshBuffer() time.Duration {
	if c.RefreshBufferSeconds <= 0 {
		return DefaultRefreshBuffer
	}
	return time.Duration(c.RefreshBufferSeconds) * time.Second
}

func (c Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return defaultHTTPTimeout
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
