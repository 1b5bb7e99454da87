package core

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Broker serves per-owner upstream credentials out of the durable
// store, refreshing through the token source when a record is missing
// or inside the refresh buffer. The read path takes no in-process
// locks: racing refreshes each call upstream at most once and converge
// through the store's atomic upsert.
type Broker struct {
	config         Config
	logger         Logger
	loggerProvider LoggerProvider
	metrics        MetricsRecorder
	errorMapper    ErrorMapper
	store          TokenStore
	source         TokenSource
	refreshBuffer  time.Duration
	now            func() time.Time
}

func NewBroker(cfg Config, options ...Option) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	builder := defaultBrokerBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("erp-gateway", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)

	store := builder.tokenStore
	if store == nil && builder.storeFactory != nil {
		storeProvider, err := builder.storeFactory.BuildStores(builder.persistenceClient)
		if err != nil {
			return nil, err
		}
		if storeProvider != nil {
			store = storeProvider.TokenStore()
		}
	}
	if store == nil {
		return nil, ConfigurationError("core: token store is required")
	}

	source := builder.tokenSource
	if source == nil {
		source = NewTokenClientFromConfig(cfg, builder.httpClient)
	}

	metrics := builder.metricsRecorder
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	mapper := builder.errorMapper
	if mapper == nil {
		mapper = defaultErrorMapper
	}

	return &Broker{
		config:         cfg,
		logger:         logger,
		loggerProvider: provider,
		metrics:        metrics,
		errorMapper:    mapper,
		store:          store,
		source:         source,
		refreshBuffer:  cfg.RefreshBuffer(),
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Setup loads configuration through the config provider, layers it
// under the runtime config, and builds the broker from the result.
func Setup(runtime Config, options ...Option) (*Broker, error) {
	builder := defaultBrokerBuilder(runtime)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	defaults := DefaultConfig()
	loaded := defaults
	if builder.configProvider != nil {
		var err error
		loaded, err = builder.configProvider.Load(context.Background(), defaults)
		if err != nil {
			return nil, err
		}
	}
	resolver := builder.optionsResolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return nil, err
	}
	return NewBroker(resolved, options...)
}

// Token returns a fresh credential for the resolved owner, refreshing
// upstream when the stored record is absent or inside the refresh
// buffer. The returned record always carries a derived ExpiresIn.
func (b *Broker) Token(ctx context.Context, owner OwnerContext) (CredentialRecord, error) {
	if b == nil {
		return CredentialRecord{}, fmt.Errorf("core: broker is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := b.now()
	ref := ResolveOwner(owner)

	record, found, err := b.store.FindByOwner(ctx, ref.ID)
	if err != nil {
		return CredentialRecord{}, b.mapError(PersistenceError(err, "core: look up credential"))
	}

	if !found && ref.IsService() {
		adopted, ok, adoptErr := b.adoptLegacyRecord(ctx, ref)
		if adoptErr != nil {
			return CredentialRecord{}, adoptErr
		}
		if ok {
			record = adopted
			found = true
		}
	}

	if found && record.FreshAt(now, b.refreshBuffer) {
		b.metrics.IncCounter(ctx, "gateway.token.cache_hit", 1, map[string]string{"owner_type": string(ref.Type)})
		return record.WithDerivedExpiry(now), nil
	}

	return b.refreshOwner(ctx, ref, now)
}

// Refresh forces an upstream token fetch for the resolved owner,
// bypassing the freshness check.
func (b *Broker) Refresh(ctx context.Context, owner OwnerContext) (CredentialRecord, error) {
	if b == nil {
		return CredentialRecord{}, fmt.Errorf("core: broker is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return b.refreshOwner(ctx, ResolveOwner(owner), b.now())
}

// RefreshBuffer exposes the configured refresh-ahead window.
func (b *Broker) RefreshBuffer() time.Duration {
	if b == nil {
		return DefaultRefreshBuffer
	}
	return b.refreshBuffer
}

func (b *Broker) Config() Config {
	if b == nil {
		return Config{}
	}
	return b.config
}

func (b *Broker) refreshOwner(ctx context.Context, ref OwnerRef, now time.Time) (CredentialRecord, error) {
	token, err := b.source.FetchToken(ctx)
	if err != nil {
		b.metrics.IncCounter(ctx, "gateway.token.refresh_failed", 1, map[string]string{"owner_type": string(ref.Type)})
		return CredentialRecord{}, b.mapError(err)
	}

	written, err := b.store.UpsertByOwner(ctx, token.toRecord(ref))
	if err != nil {
		return CredentialRecord{}, b.mapError(PersistenceError(err, "core: persist refreshed credential"))
	}

	b.metrics.IncCounter(ctx, "gateway.token.refreshed", 1, map[string]string{"owner_type": string(ref.Type)})
	b.logger.Debug("credential refreshed", "owner_id", ref.ID, "owner_type", string(ref.Type), "expires_on", written.ExpiresOn)
	return written.WithDerivedExpiry(now), nil
}

// adoptLegacyRecord claims a pre-ownership record for the service owner
// on first access so deployments upgraded in place keep their cached
// token.
func (b *Broker) adoptLegacyRecord(ctx context.Context, ref OwnerRef) (CredentialRecord, bool, error) {
	adopted, ok, err := b.store.AdoptLegacy(ctx, ref)
	if err != nil {
		return CredentialRecord{}, false, b.mapError(PersistenceError(err, "core: adopt legacy credential"))
	}
	if !ok {
		return CredentialRecord{}, false, nil
	}
	b.metrics.IncCounter(ctx, "gateway.token.legacy_adopted", 1, nil)
	b.logger.Info("adopted legacy ownerless credential", "owner_id", ref.ID)
	return adopted, true, nil
}

func (b *Broker) mapError(err error) error {
	if err == nil {
		return nil
	}
	if b == nil || b.errorMapper == nil {
		return gatewayErrorMapper(err)
	}
	mapped := b.errorMapper(err)
	if mapped == nil {
		return gatewayErrorMapper(err)
	}
	return mapped
}

// Logger returns the broker's resolved logger for composing packages.
func (b *Broker) Logger() Logger {
	if b == nil {
		return glog.Nop()
	}
	return b.logger
}

func (b *Broker) LoggerProvider() LoggerProvider {
	if b == nil {
		return nil
	}
	return b.loggerProvider
}

var _ interface {
	Token(ctx context.Context, owner OwnerContext) (CredentialRecord, error)
} = (*Broker)(nil)
