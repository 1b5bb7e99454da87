package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type brokerBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	storeFactory      StoreFactory
	tokenStore        TokenStore
	tokenSource       TokenSource
	httpClient        HTTPDoer
}

type Option func(*brokerBuilder)

func WithLogger(logger Logger) Option {
	return func(b *brokerBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *brokerBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *brokerBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *brokerBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *brokerBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *brokerBuilder) {
		b.optionsResolver = resolver
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *brokerBuilder) {
		b.persistenceClient = client
	}
}

func WithStoreFactory(factory StoreFactory) Option {
	return func(b *brokerBuilder) {
		b.storeFactory = factory
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *brokerBuilder) {
		b.tokenStore = store
	}
}

func WithTokenSource(source TokenSource) Option {
	return func(b *brokerBuilder) {
		b.tokenSource = source
	}
}

func WithHTTPClient(client HTTPDoer) Option {
	return func(b *brokerBuilder) {
		b.httpClient = client
	}
}

func defaultBrokerBuilder(runtime Config) brokerBuilder {
	loggerProvider, logger := glog.Resolve("erp-gateway", nil, nil)
	return brokerBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return gatewayErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	upstream := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Upstream.Authority) != "" {
		upstream["authority"] = cfg.Upstream.Authority
	}
	if includeZero || strings.TrimSpace(cfg.Upstream.TenantID) != "" {
		upstream["tenant_id"] = cfg.Upstream.TenantID
	}
	if includeZero || strings.TrimSpace(cfg.Upstream.ClientID) != "" {
		upstream["client_id"] = cfg.Upstream.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Upstream.ClientSecret) != "" {
		upstream["client_secret"] = cfg.Upstream.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Upstream.Resource) != "" {
		upstream["resource"] = cfg.Upstream.Resource
	}
	if len(upstream) > 0 {
		layer["upstream"] = upstream
	}

	erp := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ERP.BaseURL) != "" {
		erp["base_url"] = cfg.ERP.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.ERP.DefaultCompany) != "" {
		erp["default_company"] = cfg.ERP.DefaultCompany
	}
	if len(erp) > 0 {
		layer["erp"] = erp
	}

	if includeZero || cfg.RefreshBufferSeconds > 0 {
		layer["refresh_buffer_seconds"] = cfg.RefreshBufferSeconds
	}
	if includeZero || cfg.HTTPTimeoutSeconds > 0 {
		layer["http_timeout_seconds"] = cfg.HTTPTimeoutSeconds
	}
	return layer
}
