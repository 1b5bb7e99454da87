package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// HTTPDoer abstracts the HTTP client so transports can be faked in
// tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenStore is the durable credential store. UpsertByOwner must be
// atomic on the unique owner id: concurrent refreshes may each call
// upstream, but the store ends with exactly one row per owner.
type TokenStore interface {
	FindByOwner(ctx context.Context, ownerID string) (CredentialRecord, bool, error)
	UpsertByOwner(ctx context.Context, record CredentialRecord) (CredentialRecord, error)
	FindLegacyOwnerless(ctx context.Context) (CredentialRecord, bool, error)
	AdoptLegacy(ctx context.Context, owner OwnerRef) (CredentialRecord, bool, error)
}

// ExpiringTokenLister reports records whose expiry falls at or before
// the given epoch second. The refresh warmer uses it to enqueue
// ahead-of-expiry refreshes.
type ExpiringTokenLister interface {
	ListExpiring(ctx context.Context, before int64) ([]CredentialRecord, error)
}

// TokenSource acquires a fresh upstream token.
type TokenSource interface {
	FetchToken(ctx context.Context) (UpstreamToken, error)
}

// StoreProvider exposes the stores a repository factory builds.
type StoreProvider interface {
	TokenStore() TokenStore
}

type StoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, delta int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

// JobExecutionMessage mirrors the queue execution contract without
// binding core to a specific queue implementation.
type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
