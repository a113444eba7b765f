package account

import (
	"context"
	"sort"
	"time"
)

// Lock is the per-(book, account) document the write-lock protocol upserts.
// Its body carries no semantic data beyond an update timestamp and a
// monotonically incremented revision — the upsert itself is what matters,
// since it is what forces the store to detect a write-write conflict
// between two sessions touching the same account.
type Lock struct {
	Book      string    `json:"book" bson:"book"`
	Account   string    `json:"account" bson:"account"`
	Revision  int64     `json:"revision" bson:"revision"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// LockStore is the subset of the store interface the write-lock protocol
// needs: an idempotent upsert against the (book, account) unique index.
type LockStore interface {
	UpsertLock(ctx context.Context, book, account string) error
}

// SortedUnique returns the distinct accounts in accounts, sorted
// lexicographically. Locks are acquired in this order rather than input
// order: the spec permits either as long as the order is stable, and a
// sorted order gives every concurrent writer in the process the same
// global lock order regardless of which accounts they touch or in what
// sequence, eliminating lock-order inversion between them.
func SortedUnique(accounts []string) []string {
	out := Dedup(accounts)
	sort.Strings(out)
	return out
}

// Acquire upserts a lock document for every distinct account in accounts,
// in sorted order, within the caller's session/transaction context. The
// upsert is the contention signal — concurrent sessions upserting the same
// (book, account) document cause the store to abort one of them with a
// transient-conflict error that the caller must retry.
func Acquire(ctx context.Context, s LockStore, book string, accounts []string) error {
	for _, acc := range SortedUnique(accounts) {
		if err := s.UpsertLock(ctx, book, acc); err != nil {
			return err
		}
	}
	return nil
}
