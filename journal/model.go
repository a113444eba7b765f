// Package journal defines the Journal and Transaction data model: the
// atomic commit unit and its child postings.
package journal

import (
	"time"

	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/types"
)

// Journal is the atomic unit of commit: a memo plus a balanced group of
// transactions (postings).
type Journal struct {
	types.Entity
	ID               id.JournalID `json:"id" bson:"_id"`
	Book             string       `json:"book" bson:"book"`
	Datetime         time.Time    `json:"datetime" bson:"datetime"`
	Memo             string       `json:"memo" bson:"memo"`
	Voided           bool         `json:"voided" bson:"voided"`
	VoidReason       string       `json:"void_reason,omitempty" bson:"void_reason,omitempty"`
	VoidedBy         id.JournalID `json:"voided_by,omitempty" bson:"voided_by,omitempty"`
	OriginalJournal  id.JournalID `json:"_original_journal,omitempty" bson:"_original_journal,omitempty"`
	TransactionCount int          `json:"transaction_count" bson:"transaction_count"`
}

// Transaction is a single posting belonging to a Journal: exactly one of
// Debit/Credit is non-zero.
type Transaction struct {
	types.Entity
	ID               id.TxnID       `json:"id" bson:"_id"`
	Book             string         `json:"book" bson:"book"`
	Journal          id.JournalID   `json:"_journal" bson:"_journal"`
	Datetime         time.Time      `json:"datetime" bson:"datetime"`
	Timestamp        time.Time      `json:"timestamp" bson:"timestamp"`
	AccountPath      string         `json:"account_path" bson:"account_path"`
	Accounts         []string       `json:"accounts" bson:"accounts"`
	Debit            float64        `json:"debit" bson:"debit"`
	Credit           float64        `json:"credit" bson:"credit"`
	Meta             map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
	Voided           bool           `json:"voided" bson:"voided"`
	VoidReason       string         `json:"void_reason,omitempty" bson:"void_reason,omitempty"`
	OriginalJournal  id.JournalID   `json:"_original_journal,omitempty" bson:"_original_journal,omitempty"`
}

// Delta returns credit − debit for this posting, the signed quantity the
// balance engine sums.
func (t *Transaction) Delta() float64 {
	return t.Credit - t.Debit
}

// Reverse returns a new Transaction with Debit and Credit swapped, ready to
// be attached to a reversing journal. The returned posting keeps the same
// account path/accounts/meta, a fresh ID, and an OriginalJournal
// back-reference to origJournal. datetime is the reversing journal's
// datetime and timestamp is the commit wall clock, mirroring the fields a
// forward-committed posting carries — without them the reversal sorts at
// the zero time and is silently excluded from any date-bounded query.
func (t *Transaction) Reverse(origJournal id.JournalID, datetime, timestamp time.Time) *Transaction {
	return &Transaction{
		Entity:          types.NewEntity(),
		ID:              id.NewTxnID(),
		Book:            t.Book,
		Datetime:        datetime,
		Timestamp:       timestamp,
		AccountPath:     t.AccountPath,
		Accounts:        t.Accounts,
		Debit:           t.Credit,
		Credit:          t.Debit,
		Meta:            t.Meta,
		OriginalJournal: origJournal,
	}
}
