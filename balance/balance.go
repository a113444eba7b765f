// Package balance implements the balance engine: aggregating credit−debit
// over a filter using the freshest applicable snapshot, and opportunistic
// snapshot refresh.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/types"
)

// Snapshot is the cached partial sum the engine reads and writes. The key
// (Book, Account, Meta) identifies which (book, account?, meta?) tuple this
// snapshot covers; Account/Meta are empty for the whole-book/no-meta cases.
type Snapshot struct {
	types.Entity
	ID          id.BalanceID `json:"id" bson:"_id"`
	Book        string       `json:"book" bson:"book"`
	Account     string       `json:"account,omitempty" bson:"account,omitempty"`
	Meta        string       `json:"meta,omitempty" bson:"meta,omitempty"`
	Balance     float64      `json:"balance" bson:"balance"`
	Transaction id.TxnID     `json:"transaction" bson:"transaction"`
	Timestamp   time.Time    `json:"timestamp" bson:"timestamp"`
	ExpireAt    time.Time    `json:"expire_at" bson:"expireAt"`
}

// Result is the outcome of a balance query.
type Result struct {
	Balance float64 `json:"balance"`
	Notes   int64   `json:"notes"`
}

// Aggregate is the outcome of the delta aggregation over transactions past
// (or all, if no snapshot applies) a given cursor.
type Aggregate struct {
	Balance           float64
	Count             int64
	LastTransactionID id.TxnID
	LastTimestamp     time.Time
	Seen              bool
}

// Store is the subset of the store interface the balance engine needs.
type Store interface {
	// BestSnapshot returns the snapshot with the same (book, account, meta)
	// key and the largest Transaction identifier, or ok=false if none
	// exists.
	BestSnapshot(ctx context.Context, book, account, meta string) (Snapshot, bool, error)
	// AggregateTransactions runs the match→group pipeline over filter,
	// optionally narrowed to transactions whose ID is strictly greater
	// than after.
	AggregateTransactions(ctx context.Context, filter bson.M, after id.TxnID) (Aggregate, error)
	// PutSnapshot inserts a fresh snapshot for (book, account, meta); older
	// snapshots for the same key are kept.
	PutSnapshot(ctx context.Context, snap Snapshot) error
}

// Options configures a single balance computation.
type Options struct {
	Book               string
	Account            string // canonical comma-joined account key, or "" for whole-book
	Meta               string // canonical meta key, or "" for no-meta
	Precision          int
	BalanceSnapshotSec int // 0 disables snapshotting
	Logger             *slog.Logger
}

// Compute answers "sum of credit − debit over filter" in bounded time,
// consulting and opportunistically refreshing the snapshot cache.
func Compute(ctx context.Context, s Store, filter bson.M, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		snap          Snapshot
		haveSnapshot  bool
		needsRefresh  bool
		cursor        id.TxnID
	)

	if opts.BalanceSnapshotSec > 0 {
		// With no snapshot for this key yet, the first query creates one.
		needsRefresh = true
		found, ok, err := s.BestSnapshot(ctx, opts.Book, opts.Account, opts.Meta)
		if err != nil {
			return Result{}, err
		}
		if ok {
			snap = found
			haveSnapshot = true
			cursor = snap.Transaction
			age := time.Since(snap.Timestamp)
			needsRefresh = age > time.Duration(opts.BalanceSnapshotSec)*time.Second
		}
	}

	agg, err := s.AggregateTransactions(ctx, filter, cursor)
	if err != nil {
		return Result{}, err
	}

	result := Result{Notes: agg.Count}
	if haveSnapshot {
		result.Balance = snap.Balance + types.Round(agg.Balance, opts.Precision)
	} else {
		result.Balance = types.Round(agg.Balance, opts.Precision)
	}

	if needsRefresh && agg.Seen {
		newBalance := result.Balance

		newSnap := Snapshot{
			Entity:      types.NewEntity(),
			ID:          id.NewBalanceID(),
			Book:        opts.Book,
			Account:     opts.Account,
			Meta:        opts.Meta,
			Balance:     newBalance,
			Transaction: agg.LastTransactionID,
			Timestamp:   time.Now().UTC(),
			ExpireAt:    time.Now().UTC().Add(2 * time.Duration(opts.BalanceSnapshotSec) * time.Second),
		}

		if err := s.PutSnapshot(ctx, newSnap); err != nil {
			return Result{}, err
		}

		logger.Debug("balance: snapshot refreshed",
			"book", opts.Book, "account", opts.Account, "meta", opts.Meta,
			"balance", newBalance, "transaction", agg.LastTransactionID.String())
	}

	return result, nil
}

// CanonicalAccountKey joins an ordered slice of account strings into the
// canonical snapshot key form, or "" if accounts is empty.
func CanonicalAccountKey(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	sorted := append([]string(nil), accounts...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// CanonicalMetaKey joins a meta filter map into a deterministic string key
// (sorted by field name), or "" if meta is empty.
func CanonicalMetaKey(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(toKeyString(meta[k]))
	}
	return b.String()
}

func toKeyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
