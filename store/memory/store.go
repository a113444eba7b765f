// Package memory provides an in-memory store.Store implementation used by
// tests and local experimentation. It evaluates the same bson.M filter
// documents query.Compile produces, against maps guarded by a single mutex,
// without any of the concurrency or durability guarantees Mongo provides.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ledgerkit/ledger/account"
	"github.com/ledgerkit/ledger/balance"
	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
)

// Store is an in-memory, single-process stand-in for a document store.
type Store struct {
	mu sync.RWMutex

	journals     map[string]*journal.Journal
	transactions map[string]*journal.Transaction
	locks        map[string]*account.Lock
	snapshots    []balance.Snapshot
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		journals:     make(map[string]*journal.Journal),
		transactions: make(map[string]*journal.Transaction),
		locks:        make(map[string]*account.Lock),
	}
}

// WithSession has no real transactional isolation in-memory; it simply runs
// fn with the same context, relying on the store's own mutex for atomicity
// of individual calls.
func (s *Store) WithSession(ctx context.Context, fn func(sessionCtx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ==================== Journals / transactions ====================

func (s *Store) CommitJournal(_ context.Context, j *journal.Journal, txns []*journal.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journals[journalKey(j.Book, j.ID)] = j
	for _, t := range txns {
		s.transactions[t.ID.String()] = t
	}
	return nil
}

func (s *Store) GetJournal(_ context.Context, book string, journalID id.JournalID) (*journal.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journals[journalKey(book, journalID)]
	if !ok {
		return nil, nil //nolint:nilnil
	}
	return j, nil
}

func (s *Store) GetTransactionsByJournal(_ context.Context, book string, journalID id.JournalID) ([]*journal.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*journal.Transaction
	for _, t := range s.transactions {
		if t.Book == book && t.Journal == journalID {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) MarkJournalVoided(_ context.Context, book string, journalID id.JournalID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.journals[journalKey(book, journalID)]
	if !ok {
		return fmt.Errorf("ledger/memory: journal %s not found", journalID)
	}
	j.Voided = true
	j.VoidReason = reason
	return nil
}

func (s *Store) MarkTransactionsVoided(_ context.Context, book string, journalID id.JournalID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.Book == book && t.Journal == journalID {
			t.Voided = true
			t.VoidReason = reason
		}
	}
	return nil
}

// ==================== Account write-lock ====================

func (s *Store) UpsertLock(_ context.Context, book, acct string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := book + "\x00" + acct
	l, ok := s.locks[key]
	if !ok {
		s.locks[key] = &account.Lock{Book: book, Account: acct, Revision: 1, UpdatedAt: time.Now().UTC()}
		return nil
	}
	l.Revision++
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// ==================== Balance snapshots ====================

func (s *Store) BestSnapshot(_ context.Context, book, acct, meta string) (balance.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best balance.Snapshot
	found := false
	for _, snap := range s.snapshots {
		if snap.Book != book || snap.Account != acct || snap.Meta != meta {
			continue
		}
		if !found || snap.Transaction.Compare(best.Transaction) > 0 {
			best = snap
			found = true
		}
	}
	return best, found, nil
}

func (s *Store) PutSnapshot(_ context.Context, snap balance.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *Store) AggregateTransactions(_ context.Context, filter bson.M, after id.TxnID) (balance.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*journal.Transaction
	for _, t := range s.transactions {
		if !after.IsNil() && t.ID.Compare(after) <= 0 {
			continue
		}
		if matchTransaction(filter, t) {
			matched = append(matched, t)
		}
	}

	if len(matched) == 0 {
		return balance.Aggregate{}, nil
	}

	sortTransactions(matched)

	var sum float64
	for _, t := range matched {
		sum += t.Credit - t.Debit
	}

	// The snapshot cursor is the largest transaction ID covered, not the
	// last posting in datetime order.
	last := matched[0]
	for _, t := range matched[1:] {
		if t.ID.Compare(last.ID) > 0 {
			last = t
		}
	}

	return balance.Aggregate{
		Balance:           sum,
		Count:             int64(len(matched)),
		LastTransactionID: last.ID,
		LastTimestamp:     last.Timestamp,
		Seen:              true,
	}, nil
}

// ==================== Ledger lister ====================

func (s *Store) FindTransactions(_ context.Context, filter bson.M, skip, limit int64) ([]*journal.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*journal.Transaction
	for _, t := range s.transactions {
		if matchTransaction(filter, t) {
			matched = append(matched, t)
		}
	}
	sortTransactions(matched)

	if skip > 0 {
		if int(skip) >= len(matched) {
			return nil, nil
		}
		matched = matched[skip:]
	}
	if limit > 0 && int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) CountTransactions(_ context.Context, filter bson.M) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, t := range s.transactions {
		if matchTransaction(filter, t) {
			count++
		}
	}
	return count, nil
}

// ==================== Accounts ====================

func (s *Store) ListAccounts(_ context.Context, book string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, t := range s.transactions {
		if t.Book != book {
			continue
		}
		for _, a := range t.Accounts {
			seen[a] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

// ==================== Helpers ====================

func journalKey(book string, journalID id.JournalID) string {
	return book + "\x00" + journalID.String()
}

func sortTransactions(txns []*journal.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Datetime.Equal(txns[j].Datetime) {
			return txns[i].Datetime.After(txns[j].Datetime)
		}
		return txns[i].Timestamp.After(txns[j].Timestamp)
	})
}

// matchTransaction evaluates a compiled query filter against a single
// transaction. It supports the operator subset query.Compile actually
// produces: equality, $in, $gte/$lte (dates), and a nested "meta"
// subdocument matched as a subset (every key present in the filter's meta
// must be equal in the transaction's meta, rather than requiring exact
// whole-document equality as a real $match would) — the closest in-memory
// analogue to the per-key semantics the compiler intends.
func matchTransaction(filter bson.M, t *journal.Transaction) bool {
	for k, v := range filter {
		if !matchField(k, v, t) {
			return false
		}
	}
	return true
}

func matchField(field string, expected any, t *journal.Transaction) bool {
	switch field {
	case "book":
		return t.Book == expected
	case "_id":
		return matchValue(expected, t.ID.String())
	case "_journal":
		return matchValue(expected, t.Journal.String())
	case "_original_journal":
		return matchValue(expected, t.OriginalJournal.String())
	case "account_path":
		return matchValue(expected, t.AccountPath)
	case "accounts":
		return matchAccountsField(expected, t.Accounts)
	case "debit":
		return matchValue(expected, t.Debit)
	case "credit":
		return matchValue(expected, t.Credit)
	case "voided":
		return matchValue(expected, t.Voided)
	case "void_reason":
		return matchValue(expected, t.VoidReason)
	case "datetime":
		return matchDateRange(expected, t.Datetime)
	case "meta":
		return matchMeta(expected, t.Meta)
	default:
		return true
	}
}

func matchValue(expected, actual any) bool {
	if m, ok := expected.(bson.M); ok {
		if in, ok := m["$in"]; ok {
			return contains(in, actual)
		}
		return false
	}
	return expected == actual
}

func matchAccountsField(expected any, accounts []string) bool {
	switch v := expected.(type) {
	case string:
		return containsStr(accounts, v)
	case bson.M:
		if in, ok := v["$in"]; ok {
			values, ok := toStringSlice(in)
			if !ok {
				return false
			}
			for _, want := range values {
				if containsStr(accounts, want) {
					return true
				}
			}
			return false
		}
		return false
	default:
		return false
	}
}

func matchDateRange(expected any, actual time.Time) bool {
	rng, ok := expected.(bson.M)
	if !ok {
		return false
	}
	if gte, ok := rng["$gte"].(time.Time); ok && actual.Before(gte) {
		return false
	}
	if lte, ok := rng["$lte"].(time.Time); ok && actual.After(lte) {
		return false
	}
	return true
}

func matchMeta(expected any, actual map[string]any) bool {
	m, ok := expected.(bson.M)
	if !ok {
		return false
	}
	if actual == nil {
		return len(m) == 0
	}
	for k, v := range m {
		if actual[k] != v {
			return false
		}
	}
	return true
}

func contains(haystack any, needle any) bool {
	switch h := haystack.(type) {
	case []string:
		return containsStr(h, fmt.Sprint(needle))
	case bson.A:
		for _, item := range h {
			if item == needle {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsStr(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func toStringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case bson.A:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
