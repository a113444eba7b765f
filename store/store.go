// Package store defines the storage contract the ledger core depends on:
// journal/transaction persistence, the account write-lock, the balance
// snapshot cache, and the ledger lister's query surface.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ledgerkit/ledger/balance"
	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
)

// transient is implemented by store-level errors that signal a retryable
// write-write conflict (e.g. a MongoDB "TransientTransactionError" label).
// Store implementations that can detect this condition should return an
// error satisfying this interface so the core can surface a
// ledger.TransientTransactionError to the caller without store importing
// the root package.
type transient interface {
	Transient() bool
}

// IsTransient reports whether err (or anything it wraps) signals a
// retryable store-level conflict.
func IsTransient(err error) bool {
	var t transient
	return errors.As(err, &t) && t.Transient()
}

// Store is the unified storage interface for the ledger core. Instead of
// embedding the sub-package interfaces (account.LockStore, balance.Store),
// we explicitly declare every method on one interface to avoid naming
// conflicts and keep the contract in one place.
type Store interface {
	// WithSession runs fn with a store session bound to the returned
	// context, so that every store call fn makes is part of one
	// store-level transaction. Implementations that don't support
	// multi-document transactions (e.g. the in-memory test double) may
	// simply invoke fn(ctx) directly.
	WithSession(ctx context.Context, fn func(sessionCtx context.Context) error) error

	// CommitJournal writes j and its transactions atomically.
	CommitJournal(ctx context.Context, j *journal.Journal, txns []*journal.Transaction) error

	// GetJournal fetches a journal by ID, scoped to book.
	GetJournal(ctx context.Context, book string, journalID id.JournalID) (*journal.Journal, error)

	// GetTransactionsByJournal fetches every transaction belonging to a
	// journal, in no particular order guarantee beyond insertion order.
	GetTransactionsByJournal(ctx context.Context, book string, journalID id.JournalID) ([]*journal.Transaction, error)

	// MarkJournalVoided flips a journal's voided flag and reason in place.
	MarkJournalVoided(ctx context.Context, book string, journalID id.JournalID, reason string) error

	// MarkTransactionsVoided flips voided/void_reason on every transaction
	// belonging to journalID.
	MarkTransactionsVoided(ctx context.Context, book string, journalID id.JournalID, reason string) error

	// UpsertLock implements the account write-lock: an idempotent upsert
	// against the (book, account) unique index that increments a revision
	// counter, used purely to provoke a write-write conflict between
	// concurrent sessions.
	UpsertLock(ctx context.Context, book, account string) error

	// BestSnapshot returns the snapshot for (book, account, meta) with the
	// largest Transaction identifier, or ok=false if none exists.
	BestSnapshot(ctx context.Context, book, account, meta string) (balance.Snapshot, bool, error)

	// AggregateTransactions runs the match/group/sum pipeline over filter,
	// narrowed to transactions with _id greater than after (the zero ID
	// means no narrowing).
	AggregateTransactions(ctx context.Context, filter bson.M, after id.TxnID) (balance.Aggregate, error)

	// PutSnapshot inserts a fresh balance snapshot. Older snapshots for the
	// same key are kept; BestSnapshot picks the one with the largest
	// Transaction.
	PutSnapshot(ctx context.Context, snap balance.Snapshot) error

	// FindTransactions returns transactions matching filter sorted by
	// (datetime desc, timestamp desc), honoring skip/limit (limit <= 0
	// means unlimited).
	FindTransactions(ctx context.Context, filter bson.M, skip, limit int64) ([]*journal.Transaction, error)

	// CountTransactions returns the total number of transactions matching
	// filter, independent of any skip/limit.
	CountTransactions(ctx context.Context, filter bson.M) (int64, error)

	// ListAccounts enumerates every distinct account path and prefix ever
	// posted within book.
	ListAccounts(ctx context.Context, book string) ([]string, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
