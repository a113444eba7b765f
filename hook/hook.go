// Package hook provides lifecycle hooks a caller can register against a
// Book to observe commits, voids, and snapshot refreshes without the core
// depending on any particular metrics or audit-trail backend.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	Name() string
}

// OnJournalCommitted is called after a journal and its transactions have
// been durably committed.
type OnJournalCommitted interface {
	Hook
	OnJournalCommitted(ctx context.Context, j *journal.Journal) error
}

// OnJournalVoided is called after a journal has been voided, with both the
// original and the reversing journal.
type OnJournalVoided interface {
	Hook
	OnJournalVoided(ctx context.Context, original, reversal *journal.Journal) error
}

// OnSnapshotRefreshed receives snapshot-refresh events dispatched through
// Registry.EmitSnapshotRefreshed. ledger.Book does not call
// EmitSnapshotRefreshed, so hooks registered with ledger.WithHook receive
// commit and void events only.
type OnSnapshotRefreshed interface {
	Hook
	OnSnapshotRefreshed(ctx context.Context, book, account string, balance float64, transaction id.TxnID) error
}

// Registry manages registered hooks and dispatches lifecycle events to the
// ones that implement each event's interface, type-cached at registration
// time for O(1) dispatch.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	onJournalCommitted  []OnJournalCommitted
	onJournalVoided     []OnJournalVoided
	onSnapshotRefreshed []OnSnapshotRefreshed
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger used to report hook failures.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook, caching the event interfaces it implements.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	if v, ok := h.(OnJournalCommitted); ok {
		r.onJournalCommitted = append(r.onJournalCommitted, v)
	}
	if v, ok := h.(OnJournalVoided); ok {
		r.onJournalVoided = append(r.onJournalVoided, v)
	}
	if v, ok := h.(OnSnapshotRefreshed); ok {
		r.onSnapshotRefreshed = append(r.onSnapshotRefreshed, v)
	}

	r.logger.Debug("hook registered", "name", h.Name(), "interfaces", implementedInterfaces(h))

	return nil
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// EmitJournalCommitted dispatches OnJournalCommitted to every registered
// hook that implements it. Hook failures are logged, never returned —
// hooks must not be able to fail a commit that already landed in the
// store.
func (r *Registry) EmitJournalCommitted(ctx context.Context, j *journal.Journal) {
	r.mu.RLock()
	hooks := r.onJournalCommitted
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnJournalCommitted(ctx, j)
		}); err != nil {
			r.logger.Warn("hook OnJournalCommitted failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitJournalVoided dispatches OnJournalVoided to every registered hook
// that implements it.
func (r *Registry) EmitJournalVoided(ctx context.Context, original, reversal *journal.Journal) {
	r.mu.RLock()
	hooks := r.onJournalVoided
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnJournalVoided(ctx, original, reversal)
		}); err != nil {
			r.logger.Warn("hook OnJournalVoided failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitSnapshotRefreshed dispatches OnSnapshotRefreshed to every registered
// hook that implements it.
func (r *Registry) EmitSnapshotRefreshed(ctx context.Context, book, account string, balance float64, txn id.TxnID) {
	r.mu.RLock()
	hooks := r.onSnapshotRefreshed
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnSnapshotRefreshed(ctx, book, account, balance, txn)
		}); err != nil {
			r.logger.Warn("hook OnSnapshotRefreshed failed", "hook", h.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a hook function with a timeout; hooks must never
// block a commit indefinitely.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func implementedInterfaces(h Hook) []string {
	var names []string
	t := reflect.TypeOf(h)

	check := func(iface reflect.Type, name string) {
		if t.Implements(iface) {
			names = append(names, name)
		}
	}

	check(reflect.TypeOf((*OnJournalCommitted)(nil)).Elem(), "OnJournalCommitted")
	check(reflect.TypeOf((*OnJournalVoided)(nil)).Elem(), "OnJournalVoided")
	check(reflect.TypeOf((*OnSnapshotRefreshed)(nil)).Elem(), "OnSnapshotRefreshed")

	return names
}
