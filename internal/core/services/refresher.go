package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
)

const (
	// clockStep is how far the logical clock advances per tick.
	clockStep = 10

	// cycleLength is the logical clock's wrap point. The refresh phase
	// fires once per cycle, on the tick where the clock reads exactly
	// clockStep; every other tick is a poll phase.
	cycleLength = 1800

	refresherLockName = "refresher"
)

// Refresher is the recurring background task that keeps stored tokens
// alive. Once per cycle it exchanges every record's refresh token for a
// new pair (rotating the stored refresh token); on all other ticks it
// polls the graph API with each record's current access token.
//
// Each tick's work completes before the next tick is processed. For
// multi-instance deployments, configure a DistributedLock so only one
// instance scans the records per tick.
type Refresher struct {
	tokens    driven.TokenStore
	exchanger driven.TokenExchanger
	graph     driven.GraphClient
	seen      driven.SeenMessageStore
	lock      driven.DistributedLock
	logger    *slog.Logger

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	period  time.Duration
	lockTTL time.Duration
	clock   int
}

// RefresherConfig holds configuration for the refresher.
type RefresherConfig struct {
	TokenStore driven.TokenStore
	Exchanger  driven.TokenExchanger
	Graph      driven.GraphClient
	SeenStore  driven.SeenMessageStore // Optional: enables new-mail detection during polls
	Lock       driven.DistributedLock  // Optional: for multi-instance coordination
	Logger     *slog.Logger
	TickPeriod time.Duration // Wall-clock time per tick (default: 10s)
	LockTTL    time.Duration // TTL for the distributed lock (default: 2x tick period)
}

// NewRefresher creates a new refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	period := cfg.TickPeriod
	if period == 0 {
		period = 10 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * period
	}

	return &Refresher{
		tokens:    cfg.TokenStore,
		exchanger: cfg.Exchanger,
		graph:     cfg.Graph,
		seen:      cfg.SeenStore,
		lock:      cfg.Lock,
		logger:    logger,
		period:    period,
		lockTTL:   lockTTL,
	}
}

// Start begins the refresher loop.
// It runs until Stop is called or context is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("refresher starting", "tick_period", r.period)

	go r.run(ctx)

	return nil
}

// Stop gracefully stops the refresher, waiting for the in-flight tick.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("refresher stopped")
}

// Clock returns the current logical clock value.
func (r *Refresher) Clock() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clock
}

// run is the main refresher loop. Ticks are processed synchronously so a
// slow tick delays the next rather than overlapping with it.
func (r *Refresher) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher context cancelled")
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick advances the logical clock and runs one phase of work. It is
// exported so the loop can be driven without real timers.
func (r *Refresher) Tick(ctx context.Context) {
	r.mu.Lock()
	r.clock = (r.clock + clockStep) % cycleLength
	clock := r.clock
	r.mu.Unlock()

	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, refresherLockName, r.lockTTL)
		if err != nil {
			r.logger.Warn("failed to acquire refresher lock", "error", err)
			return
		}
		if !acquired {
			r.logger.Debug("refresher lock held by another instance, skipping tick")
			return
		}
		defer func() {
			if err := r.lock.Release(ctx, refresherLockName); err != nil {
				r.logger.Warn("failed to release refresher lock", "error", err)
			}
		}()
	}

	if clock == clockStep {
		r.refreshAll(ctx)
	} else {
		r.pollAll(ctx)
	}
}

// refreshAll exchanges every record's refresh token for a new pair and
// rewrites the stored tokens. A failure for one user never blocks the rest.
func (r *Refresher) refreshAll(ctx context.Context) {
	records, err := r.tokens.List(ctx)
	if err != nil {
		r.logger.Error("failed to list token records", "error", err)
		return
	}

	for _, record := range records {
		pair, err := r.exchanger.RefreshToken(ctx, record.Credentials(), record.RefreshToken)
		if err != nil {
			r.logger.Error("token refresh failed",
				"email", record.UserEmail,
				"error", err,
			)
			continue
		}

		// The provider rotated the refresh token; the old one is now
		// invalid and must be overwritten.
		record.AccessToken = pair.AccessToken
		record.RefreshToken = pair.RefreshToken
		record.UpdatedAt = time.Now()

		if err := r.tokens.Upsert(ctx, record); err != nil {
			r.logger.Error("failed to persist refreshed tokens",
				"email", record.UserEmail,
				"error", err,
			)
			continue
		}

		r.logger.Info("tokens refreshed", "email", record.UserEmail)
	}
}

// pollAll issues a keep-alive graph read for every record with its current
// access token. Results and errors are observed, not consumed.
func (r *Refresher) pollAll(ctx context.Context) {
	records, err := r.tokens.List(ctx)
	if err != nil {
		r.logger.Error("failed to list token records", "error", err)
		return
	}

	for _, record := range records {
		if err := r.graph.Ping(ctx, record.AccessToken); err != nil {
			r.logger.Warn("keep-alive poll failed",
				"email", record.UserEmail,
				"error", err,
			)
			continue
		}

		if r.seen != nil {
			r.checkMail(ctx, record)
		}
	}
}

// checkMail scans the newest inbox messages for a record and marks each
// unseen one. Mail errors are logged and never fail the tick.
func (r *Refresher) checkMail(ctx context.Context, record *domain.TokenRecord) {
	messages, err := r.graph.ListRecentMessages(ctx, record.AccessToken)
	if err != nil {
		r.logger.Warn("mail poll failed",
			"email", record.UserEmail,
			"error", err,
		)
		return
	}

	for _, msg := range messages {
		already, err := r.seen.Seen(ctx, msg.ID)
		if err != nil {
			r.logger.Warn("seen lookup failed", "message_id", msg.ID, "error", err)
			continue
		}
		if already {
			continue
		}

		if err := r.seen.MarkSeen(ctx, msg.ID); err != nil {
			r.logger.Warn("failed to mark message seen", "message_id", msg.ID, "error", err)
			continue
		}

		r.logger.Info("new message",
			"email", record.UserEmail,
			"from", msg.From,
			"subject", msg.Subject,
		)
	}
}
