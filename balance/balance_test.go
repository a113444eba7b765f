package balance_test

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ledgerkit/ledger/balance"
	"github.com/ledgerkit/ledger/id"
)

type fakeStore struct {
	snapshot    balance.Snapshot
	hasSnapshot bool
	agg         balance.Aggregate
	aggErr      error
	puts        []balance.Snapshot
}

func (f *fakeStore) BestSnapshot(_ context.Context, _, _, _ string) (balance.Snapshot, bool, error) {
	return f.snapshot, f.hasSnapshot, nil
}

func (f *fakeStore) AggregateTransactions(_ context.Context, _ bson.M, _ id.TxnID) (balance.Aggregate, error) {
	return f.agg, f.aggErr
}

func (f *fakeStore) PutSnapshot(_ context.Context, snap balance.Snapshot) error {
	f.puts = append(f.puts, snap)
	return nil
}

func TestCompute_NoSnapshotNoTransactions(t *testing.T) {
	store := &fakeStore{}

	res, err := balance.Compute(context.Background(), store, bson.M{}, balance.Options{
		Book: "main", Precision: 8, BalanceSnapshotSec: 60,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Balance != 0 || res.Notes != 0 {
		t.Fatalf("result = %+v, want zero", res)
	}
}

func TestCompute_SnapshotNoNewTransactions(t *testing.T) {
	store := &fakeStore{
		hasSnapshot: true,
		snapshot: balance.Snapshot{
			Balance:   100,
			Timestamp: time.Now(),
		},
	}

	res, err := balance.Compute(context.Background(), store, bson.M{}, balance.Options{
		Book: "main", Precision: 8, BalanceSnapshotSec: 60,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Balance != 100 {
		t.Fatalf("Balance = %v, want 100", res.Balance)
	}
	if res.Notes != 0 {
		t.Fatalf("Notes = %v, want 0", res.Notes)
	}
}

func TestCompute_OpenCloseExample(t *testing.T) {
	store := &fakeStore{
		agg: balance.Aggregate{Balance: -100, Count: 1, Seen: true, LastTransactionID: id.NewTxnID()},
	}

	res, err := balance.Compute(context.Background(), store, bson.M{}, balance.Options{
		Book: "main", Precision: 8,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Balance != -100 {
		t.Fatalf("Balance = %v, want -100", res.Balance)
	}
	if res.Notes != 1 {
		t.Fatalf("Notes = %v, want 1", res.Notes)
	}
}

func TestCompute_RefreshesStaleSnapshot(t *testing.T) {
	store := &fakeStore{
		hasSnapshot: true,
		snapshot: balance.Snapshot{
			Balance:   50,
			Timestamp: time.Now().Add(-2 * time.Minute),
		},
		agg: balance.Aggregate{Balance: 25, Count: 1, Seen: true, LastTransactionID: id.NewTxnID()},
	}

	res, err := balance.Compute(context.Background(), store, bson.M{}, balance.Options{
		Book: "main", Precision: 8, BalanceSnapshotSec: 60,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Balance != 75 {
		t.Fatalf("Balance = %v, want 75", res.Balance)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected a snapshot refresh write, got %d", len(store.puts))
	}
	if store.puts[0].Balance != 75 {
		t.Fatalf("refreshed snapshot balance = %v, want 75", store.puts[0].Balance)
	}
}

func TestCompute_FreshSnapshotNotRefreshed(t *testing.T) {
	store := &fakeStore{
		hasSnapshot: true,
		snapshot: balance.Snapshot{
			Balance:   50,
			Timestamp: time.Now(),
		},
		agg: balance.Aggregate{Balance: 25, Count: 1, Seen: true, LastTransactionID: id.NewTxnID()},
	}

	_, err := balance.Compute(context.Background(), store, bson.M{}, balance.Options{
		Book: "main", Precision: 8, BalanceSnapshotSec: 60,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(store.puts) != 0 {
		t.Fatalf("expected no snapshot refresh write, got %d", len(store.puts))
	}
}

func TestCanonicalAccountKey(t *testing.T) {
	if got := balance.CanonicalAccountKey(nil); got != "" {
		t.Fatalf("CanonicalAccountKey(nil) = %q, want empty", got)
	}
	got := balance.CanonicalAccountKey([]string{"Assets:Cash", "Assets"})
	want := "Assets,Assets:Cash"
	if got != want {
		t.Fatalf("CanonicalAccountKey = %q, want %q", got, want)
	}
}

func TestCanonicalMetaKey(t *testing.T) {
	if got := balance.CanonicalMetaKey(nil); got != "" {
		t.Fatalf("CanonicalMetaKey(nil) = %q, want empty", got)
	}
	got := balance.CanonicalMetaKey(map[string]any{"b": "2", "a": "1"})
	want := "a=1,b=2"
	if got != want {
		t.Fatalf("CanonicalMetaKey = %q, want %q", got, want)
	}
}
