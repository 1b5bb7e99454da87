package erpgateway

import "github.com/goliatone/go-erp-gateway/core"

type Config = core.Config

type UpstreamConfig = core.UpstreamConfig
type ERPConfig = core.ERPConfig

type Option = core.Option

type Broker = core.Broker

type OwnerContext = core.OwnerContext
type OwnerRef = core.OwnerRef
type ServiceCall = core.ServiceCall
type LocalUser = core.LocalUser
type FederatedUser = core.FederatedUser
type RequestContext = core.RequestContext
type Claims = core.Claims

type CredentialRecord = core.CredentialRecord
type TokenStore = core.TokenStore
type TokenSource = core.TokenSource
type StoreFactory = core.StoreFactory
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithStoreFactory      = core.WithStoreFactory
	WithTokenStore        = core.WithTokenStore
	WithTokenSource       = core.WithTokenSource
	WithHTTPClient        = core.WithHTTPClient
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewBroker(cfg Config, opts ...Option) (*Broker, error) {
	return core.NewBroker(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Broker, error) {
	return core.Setup(cfg, opts...)
}

// ResolveOwner maps any owner context onto a concrete owner reference.
func ResolveOwner(owner OwnerContext) OwnerRef {
	return core.ResolveOwner(owner)
}
