package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ledgerkit/ledger/account"
	"github.com/ledgerkit/ledger/balance"
	"github.com/ledgerkit/ledger/hook"
	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
	"github.com/ledgerkit/ledger/query"
	"github.com/ledgerkit/ledger/store"
	"github.com/ledgerkit/ledger/types"
)

// Default book configuration, per the data model's documented defaults.
const (
	defaultPrecision          = 8
	defaultMaxAccountPath     = 3
	defaultBalanceSnapshotSec = 86400
)

// Book is a named ledger namespace: every document this Book writes or
// queries is scoped to its name.
type Book struct {
	store store.Store
	hooks *hook.Registry
	log   *slog.Logger

	name               string
	precision          int
	maxAccountPath     int
	balanceSnapshotSec int
}

// BookOption configures a Book at construction time.
type BookOption func(*Book)

// WithPrecision overrides the default number of fractional digits retained
// when rounding aggregated balances.
func WithPrecision(precision int) BookOption {
	return func(b *Book) { b.precision = precision }
}

// WithMaxAccountPath overrides the default maximum number of colon-separated
// segments an account path may have.
func WithMaxAccountPath(n int) BookOption {
	return func(b *Book) { b.maxAccountPath = n }
}

// WithBalanceSnapshotSec overrides the default snapshot staleness window.
// Zero disables snapshotting entirely.
func WithBalanceSnapshotSec(sec int) BookOption {
	return func(b *Book) { b.balanceSnapshotSec = sec }
}

// WithLogger sets the logger used for commit/void/snapshot-refresh events.
func WithLogger(logger *slog.Logger) BookOption {
	return func(b *Book) { b.log = logger }
}

// WithHook registers a lifecycle hook (see package hook).
func WithHook(h hook.Hook) BookOption {
	return func(b *Book) {
		if err := b.hooks.Register(h); err != nil {
			b.log.Warn("hook registration failed", "hook", h.Name(), "error", err)
		}
	}
}

// NewBook opens (and migrates) a named book against s.
func NewBook(ctx context.Context, s store.Store, name string, opts ...BookOption) (*Book, error) {
	if name == "" {
		return nil, ErrBookNameEmpty
	}

	b := &Book{
		store:              s,
		hooks:              hook.NewRegistry(),
		log:                slog.Default(),
		name:               name,
		precision:          defaultPrecision,
		maxAccountPath:     defaultMaxAccountPath,
		balanceSnapshotSec: defaultBalanceSnapshotSec,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.precision < 0 {
		return nil, fmt.Errorf("ledger: %w: precision must be non-negative", ErrInvalidInput)
	}
	if b.maxAccountPath <= 0 {
		return nil, fmt.Errorf("ledger: %w: maxAccountPath must be positive", ErrInvalidInput)
	}
	if b.balanceSnapshotSec < 0 {
		return nil, fmt.Errorf("ledger: %w: balanceSnapshotSec must be non-negative", ErrInvalidInput)
	}

	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}

	return b, nil
}

// Name returns the book's namespace.
func (b *Book) Name() string { return b.name }

// ──────────────────────────────────────────────────
// Entry builder
// ──────────────────────────────────────────────────

// posting is a pending debit or credit awaiting commit.
type posting struct {
	accountPath string
	debit       float64
	credit      float64
	meta        map[string]any
}

// Entry accumulates postings for a single journal under construction.
type Entry struct {
	book            *Book
	memo            string
	datetime        time.Time
	originalJournal id.JournalID
	postings        []posting
	committed       atomic.Bool
	err             error
}

// EntryOption configures an Entry at construction time.
type EntryOption func(*Entry)

// WithDatetime sets the journal's user-supplied datetime (defaults to
// commit-time wall clock).
func WithDatetime(t time.Time) EntryOption {
	return func(e *Entry) { e.datetime = t }
}

// WithOriginalJournal marks this entry as a reversal of originalJournal.
func WithOriginalJournal(j id.JournalID) EntryOption {
	return func(e *Entry) { e.originalJournal = j }
}

// Entry starts building a new journal entry.
func (b *Book) Entry(memo string, opts ...EntryOption) *Entry {
	e := &Entry{book: b, memo: memo}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Debit appends a debit posting. Errors are deferred to Commit so calls can
// be chained fluently.
func (e *Entry) Debit(path string, amount float64, meta map[string]any) *Entry {
	return e.post(path, amount, 0, meta)
}

// Credit appends a credit posting.
func (e *Entry) Credit(path string, amount float64, meta map[string]any) *Entry {
	return e.post(path, 0, amount, meta)
}

func (e *Entry) post(path string, debit, credit float64, meta map[string]any) *Entry {
	if e.err != nil {
		return e
	}

	if debit < 0 || credit < 0 {
		e.err = fmt.Errorf("ledger: %w: %v", ErrNonPositiveAmount, debit+credit)
		return e
	}

	if err := account.Validate(path, e.book.maxAccountPath); err != nil {
		var pathErr *account.PathError
		if errors.As(err, &pathErr) {
			e.err = &InvalidAccountPathError{Path: pathErr.Path, Reason: pathErr.Reason}
			return e
		}
		e.err = err
		return e
	}

	e.postings = append(e.postings, posting{accountPath: path, debit: debit, credit: credit, meta: meta})
	return e
}

// Commit validates balance, acquires write locks on every touched account,
// and writes the journal and its transactions atomically. A given *Entry
// may only be committed once; a second call returns ErrAlreadyCommitted.
func (e *Entry) Commit(ctx context.Context) (*journal.Journal, error) {
	if e.err != nil {
		return nil, e.err
	}
	if !e.committed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyCommitted
	}
	// A failed attempt leaves nothing committed, so it does not count.
	landed := false
	defer func() {
		if !landed {
			e.committed.Store(false)
		}
	}()

	if len(e.postings) == 0 {
		return nil, ErrEmptyEntry
	}

	var debitTotal, creditTotal float64
	for _, p := range e.postings {
		debitTotal += p.debit
		creditTotal += p.credit
	}
	if !types.WithinTolerance(debitTotal, creditTotal, e.book.precision) {
		return nil, &BookUnbalancedTransactionError{
			Book:        e.book.name,
			DebitTotal:  debitTotal,
			CreditTotal: creditTotal,
			Delta:       creditTotal - debitTotal,
		}
	}

	when := e.datetime
	if when.IsZero() {
		when = time.Now().UTC()
	}

	accounts := make([]string, 0, len(e.postings))
	for _, p := range e.postings {
		accounts = append(accounts, p.accountPath)
	}

	j := &journal.Journal{
		Entity:           types.NewEntity(),
		ID:               id.NewJournalID(),
		Book:             e.book.name,
		Datetime:         when,
		Memo:             e.memo,
		OriginalJournal:  e.originalJournal,
		TransactionCount: len(e.postings),
	}

	now := time.Now().UTC()
	txns := make([]*journal.Transaction, 0, len(e.postings))
	for _, p := range e.postings {
		txns = append(txns, &journal.Transaction{
			Entity:          types.NewEntity(),
			ID:              id.NewTxnID(),
			Book:            e.book.name,
			Journal:         j.ID,
			Datetime:        when,
			Timestamp:       now,
			AccountPath:     p.accountPath,
			Accounts:        account.Prefixes(p.accountPath),
			Debit:           p.debit,
			Credit:          p.credit,
			Meta:            p.meta,
			OriginalJournal: e.originalJournal,
		})
	}

	err := e.book.store.WithSession(ctx, func(sessCtx context.Context) error {
		if err := account.Acquire(sessCtx, e.book.store, e.book.name, accounts); err != nil {
			return fmt.Errorf("ledger: acquire write lock: %w", err)
		}
		return e.book.store.CommitJournal(sessCtx, j, txns)
	})
	if err != nil {
		if store.IsTransient(err) {
			return nil, &TransientTransactionError{Op: "commit", Err: err}
		}
		return nil, err
	}
	landed = true

	e.book.log.Debug("journal committed", "book", e.book.name, "journal", j.ID.String(), "postings", len(txns))
	e.book.hooks.EmitJournalCommitted(ctx, j)

	return j, nil
}

// ──────────────────────────────────────────────────
// Balance
// ──────────────────────────────────────────────────

// BalanceResult is the outcome of Book.Balance.
type BalanceResult struct {
	Balance float64
	Notes   int64
}

// Balance computes Σ(credit−debit) over q, using the snapshot cache when
// enabled.
func (b *Book) Balance(ctx context.Context, q query.Query) (BalanceResult, error) {
	filter, err := query.Compile(q, b.name, b.maxAccountPath)
	if err != nil {
		return BalanceResult{}, err
	}

	accountKey := balance.CanonicalAccountKey(queryAccountStrings(q.Account))
	metaKey := balance.CanonicalMetaKey(query.MetaFields(q.Extra))

	res, err := balance.Compute(ctx, b.store, filter, balance.Options{
		Book:               b.name,
		Account:            accountKey,
		Meta:               metaKey,
		Precision:          b.precision,
		BalanceSnapshotSec: b.balanceSnapshotSec,
		Logger:             b.log,
	})
	if err != nil {
		return BalanceResult{}, err
	}

	return BalanceResult{Balance: res.Balance, Notes: res.Notes}, nil
}

func queryAccountStrings(acct any) []string {
	switch v := acct.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ──────────────────────────────────────────────────
// Ledger lister
// ──────────────────────────────────────────────────

// LedgerPage is a paginated slice of transactions matching a query.
type LedgerPage struct {
	Results []*journal.Transaction
	Total   int64
}

// Ledger returns a paginated, sorted listing of transactions matching q.
// Results are always the stored transaction records: populate does not
// expand or restrict any field, and names that are not recognized columns
// are logged at debug level and otherwise ignored.
func (b *Book) Ledger(ctx context.Context, q query.Query, populate []string) (LedgerPage, error) {
	filter, err := query.Compile(q, b.name, b.maxAccountPath)
	if err != nil {
		return LedgerPage{}, err
	}

	for _, field := range populate {
		if !query.RecognizedColumn(field) {
			b.log.Debug("ignoring unrecognized populate field", "field", field)
		}
	}

	var skip, limit int64
	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		skip = int64(page-1) * int64(q.PerPage)
		limit = int64(q.PerPage)
	}

	results, err := b.store.FindTransactions(ctx, filter, skip, limit)
	if err != nil {
		return LedgerPage{}, err
	}

	if q.PerPage == 0 {
		return LedgerPage{Results: results, Total: int64(len(results))}, nil
	}

	total, err := b.store.CountTransactions(ctx, filter)
	if err != nil {
		return LedgerPage{}, err
	}

	return LedgerPage{Results: results, Total: total}, nil
}

// ──────────────────────────────────────────────────
// Void protocol
// ──────────────────────────────────────────────────

// Void reverses journalID: the original is marked voided and a new
// reversing journal (swapped debit/credit, with an OriginalJournal
// back-reference to the original) is committed, all within one store
// transaction. The original journal's VoidedBy field is not set.
func (b *Book) Void(ctx context.Context, journalID id.ID, reason string) (*journal.Journal, error) {
	var original, reversal *journal.Journal

	err := b.store.WithSession(ctx, func(sessCtx context.Context) error {
		var err error
		original, err = b.store.GetJournal(sessCtx, b.name, journalID)
		if err != nil {
			return err
		}
		if original == nil {
			return ErrJournalNotFound
		}
		if original.Voided {
			return ErrJournalAlreadyVoid
		}

		txns, err := b.store.GetTransactionsByJournal(sessCtx, b.name, journalID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		reversal = &journal.Journal{
			Entity:           types.NewEntity(),
			ID:               id.NewJournalID(),
			Book:             b.name,
			Datetime:         now,
			Memo:             "REVERSAL: " + reason + " - " + original.Memo,
			OriginalJournal:  original.ID,
			TransactionCount: len(txns),
		}

		reversed := make([]*journal.Transaction, 0, len(txns))
		for _, t := range txns {
			rt := t.Reverse(original.ID, reversal.Datetime, now)
			rt.Journal = reversal.ID
			reversed = append(reversed, rt)
		}

		if err := b.store.CommitJournal(sessCtx, reversal, reversed); err != nil {
			return err
		}

		if err := b.store.MarkJournalVoided(sessCtx, b.name, original.ID, reason); err != nil {
			return err
		}
		return b.store.MarkTransactionsVoided(sessCtx, b.name, original.ID, reason)
	})
	if err != nil {
		if store.IsTransient(err) {
			return nil, &TransientTransactionError{Op: "void", Err: err}
		}
		return nil, err
	}

	b.log.Info("journal voided", "book", b.name, "journal", journalID.String(), "reversal", reversal.ID.String(), "reason", reason)
	b.hooks.EmitJournalVoided(ctx, original, reversal)

	return reversal, nil
}

// ──────────────────────────────────────────────────
// Accounts / write-lock
// ──────────────────────────────────────────────────

// ListAccounts enumerates every distinct account path and prefix ever
// posted within the book.
func (b *Book) ListAccounts(ctx context.Context) ([]string, error) {
	return b.store.ListAccounts(ctx, b.name)
}

// WritelockAccounts acquires the write-lock on accounts directly, for
// callers that want to serialize against a set of accounts outside the
// normal Entry.Commit path (e.g. multi-entry batch operations sharing one
// session). Returns the same Book for chaining.
func (b *Book) WritelockAccounts(ctx context.Context, accounts []string) (*Book, error) {
	if err := account.Acquire(ctx, b.store, b.name, accounts); err != nil {
		return nil, err
	}
	return b, nil
}
