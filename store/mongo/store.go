// Package mongo implements the ledger store.Store contract directly
// against the official MongoDB driver: collections, indexes (including the
// balance snapshot TTL), aggregation pipelines, and multi-document
// transactions.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ledgerkit/ledger/balance"
	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
	ledgerstore "github.com/ledgerkit/ledger/store"
)

// Collection name constants — part of the store contract (spec.md §6).
const (
	colTransactions = "transactions"
	colJournals     = "journals"
	colLocks        = "locks"
	colBalances     = "balances"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store directly against go.mongodb.org/mongo-driver/v2.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store backed by database dbName on client.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

func (s *Store) transactions() *mongo.Collection { return s.db.Collection(colTransactions) }
func (s *Store) journals() *mongo.Collection     { return s.db.Collection(colJournals) }
func (s *Store) locks() *mongo.Collection        { return s.db.Collection(colLocks) }
func (s *Store) balances() *mongo.Collection     { return s.db.Collection(colBalances) }

// Migrate creates indexes for all ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// WithSession starts a store-level transaction and runs fn with a context
// bound to it, so every store call fn makes is part of the same
// multi-document transaction with snapshot isolation.
func (s *Store) WithSession(ctx context.Context, fn func(sessionCtx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("ledger/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		if isTransientTransactionError(err) {
			return &ledgerTransientError{op: "commit", err: err}
		}
		return fmt.Errorf("ledger/mongo: transaction: %w", err)
	}

	return nil
}

// ==================== Journals / transactions ====================

func (s *Store) CommitJournal(ctx context.Context, j *journal.Journal, txns []*journal.Transaction) error {
	if _, err := s.journals().InsertOne(ctx, j); err != nil {
		return fmt.Errorf("ledger/mongo: insert journal: %w", err)
	}

	if len(txns) == 0 {
		return nil
	}

	docs := make([]any, len(txns))
	for i, t := range txns {
		docs[i] = t
	}
	if _, err := s.transactions().InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("ledger/mongo: insert transactions: %w", err)
	}

	return nil
}

func (s *Store) GetJournal(ctx context.Context, book string, journalID id.JournalID) (*journal.Journal, error) {
	var j journal.Journal
	err := s.journals().FindOne(ctx, bson.M{"_id": journalID.String(), "book": book}).Decode(&j)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil //nolint:nilnil // caller distinguishes not-found via nil, nil
		}
		return nil, fmt.Errorf("ledger/mongo: get journal: %w", err)
	}
	return &j, nil
}

func (s *Store) GetTransactionsByJournal(ctx context.Context, book string, journalID id.JournalID) ([]*journal.Transaction, error) {
	cursor, err := s.transactions().Find(ctx, bson.M{"book": book, "_journal": journalID.String()})
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: find transactions by journal: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*journal.Transaction
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("ledger/mongo: decode transactions by journal: %w", err)
	}
	return result, nil
}

func (s *Store) MarkJournalVoided(ctx context.Context, book string, journalID id.JournalID, reason string) error {
	_, err := s.journals().UpdateOne(ctx,
		bson.M{"_id": journalID.String(), "book": book},
		bson.M{"$set": bson.M{"voided": true, "void_reason": reason, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("ledger/mongo: mark journal voided: %w", err)
	}
	return nil
}

func (s *Store) MarkTransactionsVoided(ctx context.Context, book string, journalID id.JournalID, reason string) error {
	_, err := s.transactions().UpdateMany(ctx,
		bson.M{"book": book, "_journal": journalID.String()},
		bson.M{"$set": bson.M{"voided": true, "void_reason": reason, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("ledger/mongo: mark transactions voided: %w", err)
	}
	return nil
}

// ==================== Account write-lock ====================

func (s *Store) UpsertLock(ctx context.Context, book, account string) error {
	_, err := s.locks().UpdateOne(ctx,
		bson.M{"book": book, "account": account},
		bson.M{
			"$inc": bson.M{"revision": 1},
			"$set": bson.M{"updated_at": now()},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ledger/mongo: upsert lock: %w", err)
	}
	return nil
}

// ==================== Balance snapshots ====================

func (s *Store) BestSnapshot(ctx context.Context, book, account, meta string) (balance.Snapshot, bool, error) {
	filter := bson.M{"book": book, "account": account, "meta": meta}
	// Snapshot's omitempty tags leave an empty account/meta out of the stored
	// document; only a null filter value matches a missing field.
	if account == "" {
		filter["account"] = nil
	}
	if meta == "" {
		filter["meta"] = nil
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "transaction", Value: -1}})

	var snap balance.Snapshot
	err := s.balances().FindOne(ctx, filter, opts).Decode(&snap)
	if err != nil {
		if isNoDocuments(err) {
			return balance.Snapshot{}, false, nil
		}
		return balance.Snapshot{}, false, fmt.Errorf("ledger/mongo: best snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *Store) PutSnapshot(ctx context.Context, snap balance.Snapshot) error {
	if _, err := s.balances().InsertOne(ctx, snap); err != nil {
		return fmt.Errorf("ledger/mongo: put snapshot: %w", err)
	}
	return nil
}

func (s *Store) AggregateTransactions(ctx context.Context, filter bson.M, after id.TxnID) (balance.Aggregate, error) {
	match := bson.M{}
	for k, v := range filter {
		match[k] = v
	}
	if !after.IsNil() {
		match["_id"] = bson.M{"$gt": after.String()}
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{
			"_id":             nil,
			"balance":         bson.M{"$sum": bson.M{"$subtract": bson.A{"$credit", "$debit"}}},
			"count":           bson.M{"$sum": 1},
			"lastTransaction": bson.M{"$last": "$_id"},
			"lastTimestamp":   bson.M{"$last": "$timestamp"},
		}},
	}

	cursor, err := s.transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return balance.Aggregate{}, fmt.Errorf("ledger/mongo: aggregate transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Balance         float64   `bson:"balance"`
		Count           int64     `bson:"count"`
		LastTransaction string    `bson:"lastTransaction"`
		LastTimestamp   time.Time `bson:"lastTimestamp"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return balance.Aggregate{}, fmt.Errorf("ledger/mongo: decode aggregate: %w", err)
	}

	if len(results) == 0 {
		return balance.Aggregate{}, nil
	}

	lastID, err := id.Parse(results[0].LastTransaction)
	if err != nil {
		return balance.Aggregate{}, fmt.Errorf("ledger/mongo: parse last transaction id: %w", err)
	}

	return balance.Aggregate{
		Balance:           results[0].Balance,
		Count:             results[0].Count,
		LastTransactionID: lastID,
		LastTimestamp:     results[0].LastTimestamp,
		Seen:              true,
	}, nil
}

// ==================== Ledger lister ====================

func (s *Store) FindTransactions(ctx context.Context, filter bson.M, skip, limit int64) ([]*journal.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "datetime", Value: -1}, {Key: "timestamp", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*journal.Transaction
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("ledger/mongo: decode transactions: %w", err)
	}
	return result, nil
}

func (s *Store) CountTransactions(ctx context.Context, filter bson.M) (int64, error) {
	count, err := s.transactions().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("ledger/mongo: count transactions: %w", err)
	}
	return count, nil
}

// ==================== Accounts ====================

func (s *Store) ListAccounts(ctx context.Context, book string) ([]string, error) {
	raw, err := s.transactions().Distinct(ctx, "accounts", bson.M{"book": book})
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list accounts: %w", err)
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// isTransientTransactionError reports whether err carries the driver's
// "TransientTransactionError" label, the signal that the caller should
// retry the whole transaction.
func isTransientTransactionError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError")
	}
	var labeled interface{ HasErrorLabel(string) bool }
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// ledgerTransientError signals a retryable write-write conflict to the
// core via store.IsTransient, without this package importing the root
// ledger package (which already depends on store).
type ledgerTransientError struct {
	op  string
	err error
}

func (e *ledgerTransientError) Error() string {
	return fmt.Sprintf("ledger/mongo: transient error during %s: %v", e.op, e.err)
}

func (e *ledgerTransientError) Unwrap() error { return e.err }

// Transient implements the store.transient interface.
func (e *ledgerTransientError) Transient() bool { return true }

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTransactions: {
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "account_path", Value: 1}}},
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "accounts", Value: 1}}},
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "datetime", Value: 1}}},
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "_journal", Value: 1}}},
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colJournals: {
			{Keys: bson.D{{Key: "book", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colLocks: {
			{
				Keys:    bson.D{{Key: "book", Value: 1}, {Key: "account", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colBalances: {
			{
				Keys: bson.D{
					{Key: "book", Value: 1},
					{Key: "account", Value: 1},
					{Key: "meta", Value: 1},
					{Key: "transaction", Value: -1},
				},
			},
			{
				Keys:    bson.D{{Key: "expireAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
	}
}
