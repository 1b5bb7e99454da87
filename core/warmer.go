package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TokenRefreshJobID names the queue job for ahead-of-expiry refreshes.
const TokenRefreshJobID = "gateway.token.refresh"

const (
	jobParamOwnerID   = "owner_id"
	jobParamOwnerType = "owner_type"
)

// RefreshWarmer scans the store for records falling inside the refresh
// buffer and enqueues one refresh job per owner. It never blocks the
// broker's request path.
type RefreshWarmer struct {
	lister   ExpiringTokenLister
	enqueuer JobEnqueuer
	buffer   time.Duration
	logger   Logger
	now      func() time.Time
}

type RefreshWarmerConfig struct {
	Lister   ExpiringTokenLister
	Enqueuer JobEnqueuer
	Buffer   time.Duration
	Logger   Logger
	Now      func() time.Time
}

func NewRefreshWarmer(cfg RefreshWarmerConfig) (*RefreshWarmer, error) {
	if cfg.Lister == nil {
		return nil, ConfigurationError("core: refresh warmer requires an expiring-token lister")
	}
	if cfg.Enqueuer == nil {
		return nil, ConfigurationError("core: refresh warmer requires a job enqueuer")
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RefreshWarmer{
		lister:   cfg.Lister,
		enqueuer: cfg.Enqueuer,
		buffer:   buffer,
		logger:   glog.Ensure(cfg.Logger),
		now:      now,
	}, nil
}

// Run enqueues refresh jobs for every owner inside the refresh window
// and returns how many were enqueued.
func (w *RefreshWarmer) Run(ctx context.Context) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("core: refresh warmer is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := w.now().Add(w.buffer).Unix()
	records, err := w.lister.ListExpiring(ctx, cutoff)
	if err != nil {
		return 0, PersistenceError(err, "core: list expiring credentials")
	}

	enqueued := 0
	for _, record := range records {
		ownerID := strings.TrimSpace(record.OwnerID)
		if ownerID == "" {
			continue
		}
		msg := &JobExecutionMessage{
			JobID: TokenRefreshJobID,
			Parameters: map[string]any{
				jobParamOwnerID:   ownerID,
				jobParamOwnerType: string(record.OwnerType),
			},
			IdempotencyKey: TokenRefreshJobID + ":" + ownerID,
		}
		if err := w.enqueuer.Enqueue(ctx, msg); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	if enqueued > 0 {
		w.logger.Debug("refresh jobs enqueued", "count", enqueued)
	}
	return enqueued, nil
}

// RefreshWorker drains refresh jobs and forces a broker refresh for
// each delivered owner.
type RefreshWorker struct {
	broker   *Broker
	dequeuer JobDequeuer
	logger   Logger
}

func NewRefreshWorker(broker *Broker, dequeuer JobDequeuer, logger Logger) (*RefreshWorker, error) {
	if broker == nil {
		return nil, ConfigurationError("core: refresh worker requires a broker")
	}
	if dequeuer == nil {
		return nil, ConfigurationError("core: refresh worker requires a job dequeuer")
	}
	return &RefreshWorker{
		broker:   broker,
		dequeuer: dequeuer,
		logger:   glog.Ensure(logger),
	}, nil
}

// ProcessOne dequeues a single delivery, refreshes the owner it names,
// and acks on success. Failed refreshes are nacked for requeue.
func (w *RefreshWorker) ProcessOne(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("core: refresh worker is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	msg := delivery.Message()
	if msg == nil || msg.JobID != TokenRefreshJobID {
		return delivery.Nack(ctx, JobNackOptions{Reason: "unexpected job", DeadLetter: true})
	}

	ref := ownerRefFromJobParams(msg.Parameters)
	if _, refreshErr := w.broker.Refresh(ctx, ref); refreshErr != nil {
		w.logger.Error("scheduled refresh failed", "owner_id", ref.ID, "error", refreshErr)
		return delivery.Nack(ctx, JobNackOptions{Requeue: true, Reason: refreshErr.Error()})
	}
	return delivery.Ack(ctx)
}

func ownerRefFromJobParams(params map[string]any) OwnerRef {
	ownerID := ""
	ownerType := ""
	if params != nil {
		ownerID = claimString(params[jobParamOwnerID])
		ownerType = claimString(params[jobParamOwnerType])
	}
	if ownerID == "" {
		return ServiceOwner()
	}
	switch OwnerType(ownerType) {
	case OwnerTypeService, OwnerTypeLocal, OwnerTypeFederated:
		return OwnerRef{ID: ownerID, Type: OwnerType(ownerType)}
	default:
		return OwnerRef{ID: ownerID, Type: OwnerTypeLocal}
	}
}
