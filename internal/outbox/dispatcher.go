package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/workerpool"
)

// HandlerFunc delivers one notification. A returned error schedules a retry.
type HandlerFunc func(ctx context.Context, n *models.Notification) error

// Options tune delivery.
type Options struct {
	Workers       int
	MaxAttempts   int
	Backoff       time.Duration
	Lease         time.Duration
	SweepInterval time.Duration
	SweepBatch    int
	JobTimeout    time.Duration
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = 30 * time.Second
	}
	if o.Lease <= 0 {
		o.Lease = 2 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 15 * time.Second
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 100
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
}

// Dispatcher records notifications and delivers them in the background.
type Dispatcher struct {
	repo   repository.NotificationRepository
	driver Driver
	opts   Options

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	now func() time.Time
	log *zap.Logger
}

func NewDispatcher(repo repository.NotificationRepository, driver Driver, opts Options) *Dispatcher {
	opts.applyDefaults()
	return &Dispatcher{
		repo:     repo,
		driver:   driver,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.L().With(zap.String("component", "outbox")),
	}
}

// Handle registers the handler for kind.
func (d *Dispatcher) Handle(kind string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

func (d *Dispatcher) handler(kind string) HandlerFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[kind]
}

// Enqueue stores a pending notification and hands its id to the driver.
// A failed push is logged; the sweeper picks the row up later.
func (d *Dispatcher) Enqueue(ctx context.Context, kind, recipient string, payload map[string]any) error {
	n := &models.Notification{
		Kind:          kind,
		Recipient:     recipient,
		Payload:       datatypes.JSONMap(payload),
		Status:        models.NotificationPending,
		NextAttemptAt: d.now(),
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("outbox: store notification: %w", err)
	}
	if err := d.driver.Push(ctx, []byte(n.ID.String())); err != nil {
		d.log.Warn("push failed, left for sweeper",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
	return nil
}

// Run pops ids and processes them on a bounded pool until ctx is done.
// It also sweeps due rows every SweepInterval.
func (d *Dispatcher) Run(ctx context.Context) error {
	pool := workerpool.New(d.opts.Workers)
	defer pool.Shutdown()

	go d.sweepLoop(ctx)
	d.log.Info("outbox dispatcher started", zap.Int("workers", d.opts.Workers))

	for {
		payload, err := d.driver.Pop(ctx)
		if ctx.Err() != nil {
			d.log.Info("outbox dispatcher stopping")
			return nil
		}
		if errors.Is(err, ErrDriverClosed) {
			return err
		}
		if err != nil {
			d.log.Warn("pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if payload == nil {
			continue
		}

		id, err := uuid.ParseBytes(payload)
		if err != nil {
			d.log.Warn("dropping malformed queue payload", zap.ByteString("payload", payload))
			continue
		}
		jobCtx := context.WithoutCancel(ctx)
		if err := pool.SubmitWait(func() { d.process(jobCtx, id) }); err != nil {
			return nil
		}
	}
}

func (d *Dispatcher) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep re-queues rows whose next attempt is due, including sending rows
// whose lease ran out. It returns how many ids were pushed.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	rows, err := d.repo.ListDue(ctx, d.now(), d.opts.SweepBatch)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, n := range rows {
		if err := d.driver.Push(ctx, []byte(n.ID.String())); err != nil {
			return pushed, err
		}
		pushed++
	}
	if pushed > 0 {
		d.log.Debug("swept due notifications", zap.Int("count", pushed))
	}
	return pushed, nil
}

// Retry returns a failed notification to pending and queues it.
func (d *Dispatcher) Retry(ctx context.Context, id uuid.UUID) error {
	if err := d.repo.Reset(ctx, id, d.now()); err != nil {
		return err
	}
	if err := d.driver.Push(ctx, []byte(id.String())); err != nil {
		d.log.Warn("push failed, left for sweeper", zap.String("notification_id", id.String()), zap.Error(err))
	}
	return nil
}

// process claims the row, runs its handler and records the outcome.
// Duplicate deliveries of the same id lose the claim and return.
func (d *Dispatcher) process(ctx context.Context, id uuid.UUID) {
	start := time.Now()
	now := d.now()

	n, err := d.repo.Claim(ctx, id, now, now.Add(d.opts.Lease))
	if errors.Is(err, repository.ErrStale) {
		return
	}
	if err != nil {
		d.log.Warn("claim failed", zap.String("notification_id", id.String()), zap.Error(err))
		return
	}

	log := d.log.With(
		zap.String("notification_id", id.String()),
		zap.String("kind", n.Kind),
		zap.Int("attempt", n.Attempts))

	h := d.handler(n.Kind)
	if h == nil {
		log.Error("no handler registered")
		_ = d.repo.MarkFailed(ctx, id, "no handler for kind "+n.Kind)
		metrics.RecordOutboxJob(n.Kind, models.NotificationFailed, start)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.opts.JobTimeout)
	err = h(jobCtx, n)
	cancel()

	switch {
	case err == nil:
		if err := d.repo.MarkSent(ctx, id, d.now()); err != nil {
			log.Error("delivered but not marked sent", zap.Error(err))
		}
		metrics.RecordOutboxJob(n.Kind, models.NotificationSent, start)
		log.Debug("notification delivered")

	case n.Attempts >= d.opts.MaxAttempts:
		if err := d.repo.MarkFailed(ctx, id, err.Error()); err != nil {
			log.Error("could not mark failed", zap.Error(err))
		}
		metrics.RecordOutboxJob(n.Kind, models.NotificationFailed, start)
		log.Error("notification failed permanently", zap.Error(err))

	default:
		next := d.now().Add(time.Duration(n.Attempts) * d.opts.Backoff)
		if err := d.repo.MarkRetry(ctx, id, err.Error(), next); err != nil {
			log.Error("could not schedule retry", zap.Error(err))
		}
		metrics.RecordOutboxJob(n.Kind, "retry", start)
		log.Warn("notification failed, will retry", zap.Time("next_attempt_at", next), zap.Error(err))
	}
}

// List exposes rows for the admin API.
func (d *Dispatcher) List(ctx context.Context, status string, page repository.Page) ([]models.Notification, int64, error) {
	return d.repo.List(ctx, status, page)
}
