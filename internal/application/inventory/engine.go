package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Unit is one atomic unit of work. It carries the transaction-bound
// repositories, the keys the scope holds, the code sequences minted under and
// the domain events to publish once the unit commits.
type Unit struct {
	repos     TransactionalRepositories
	held      map[string]struct{}
	sequences map[string]*CodeSequence
	events    []shared.DomainEvent
}

func newUnit(repos TransactionalRepositories, keys []string) *Unit {
	held := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return &Unit{
		repos:     repos,
		held:      held,
		sequences: make(map[string]*CodeSequence),
	}
}

// Repos returns the repositories bound to the unit's transaction
func (u *Unit) Repos() TransactionalRepositories {
	return u.repos
}

// Collect queues events for publication after commit
func (u *Unit) Collect(events ...shared.DomainEvent) {
	u.events = append(u.events, events...)
}

// CollectFrom drains the pending events of an aggregate into the unit
func (u *Unit) CollectFrom(agg shared.AggregateRoot) {
	u.events = append(u.events, agg.GetDomainEvents()...)
	agg.ClearDomainEvents()
}

// Events returns everything collected so far
func (u *Unit) Events() []shared.DomainEvent {
	return u.events
}

// UseSequence makes the unit mint under seq instead of a fresh sequence for
// its prefix. Bulk imports share one sequence across their per-row units.
func (u *Unit) UseSequence(seq *CodeSequence) {
	u.sequences[seq.Prefix()] = seq
}

func (u *Unit) sequence(prefix string) *CodeSequence {
	if seq, ok := u.sequences[prefix]; ok {
		return seq
	}
	seq := NewCodeSequence(prefix)
	u.sequences[prefix] = seq
	return seq
}

func (u *Unit) requireKey(key string) error {
	if _, ok := u.held[key]; !ok {
		return fmt.Errorf("unit does not hold lock key %q", key)
	}
	return nil
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock overrides the engine clock
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine bundles the allocator, ledger and minter around a TransactionScope.
// Every mutating service goes through Run.
type Engine struct {
	scope     TransactionScope
	now       func() time.Time
	logger    *zap.Logger
	publisher shared.EventPublisher
	metrics   *telemetry.InventoryMetrics

	Ledger    *Ledger
	Allocator *Allocator
	Minter    *Minter
}

// NewEngine creates an Engine over scope
func NewEngine(scope TransactionScope, opts ...EngineOption) *Engine {
	e := &Engine{
		scope:  scope,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Ledger = NewLedger(e.now)
	e.Allocator = NewAllocator(e.now)
	e.Minter = NewMinter(e.Ledger, e.now)
	return e
}

// SetEventPublisher sets the publisher that receives events after commit
func (e *Engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.publisher = publisher
}

// SetMetrics sets the business metrics sink
func (e *Engine) SetMetrics(metrics *telemetry.InventoryMetrics) {
	e.metrics = metrics
}

// Metrics returns the metrics sink, which may be nil
func (e *Engine) Metrics() *telemetry.InventoryMetrics {
	return e.metrics
}

// Logger returns the engine logger
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Now returns the engine clock reading
func (e *Engine) Now() time.Time {
	return e.now()
}

// Run executes fn as one unit holding keys. Collected events are published
// only when the unit commits.
func (e *Engine) Run(ctx context.Context, operation string, keys []string, fn func(u *Unit) error) error {
	keys = NormalizeKeys(keys)
	start := time.Now()

	var unit *Unit
	err := e.scope.Execute(ctx, keys, func(repos TransactionalRepositories) error {
		unit = newUnit(repos, keys)
		return fn(unit)
	})
	e.metrics.RecordUnitDuration(ctx, operation, time.Since(start), err)
	if err != nil {
		e.logger.Debug("unit rolled back",
			zap.String("operation", operation),
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		return err
	}

	e.publish(ctx, unit.Events())
	return nil
}

func (e *Engine) publish(ctx context.Context, events []shared.DomainEvent) {
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		e.logger.Warn("failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
