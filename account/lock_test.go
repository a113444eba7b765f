package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerkit/ledger/account"
)

type fakeLockStore struct {
	calls []string
	errOn string
}

func (f *fakeLockStore) UpsertLock(_ context.Context, book, acc string) error {
	if acc == f.errOn {
		return errors.New("conflict")
	}
	f.calls = append(f.calls, book+"/"+acc)
	return nil
}

func TestAcquire_SortedOrder(t *testing.T) {
	store := &fakeLockStore{}

	err := account.Acquire(context.Background(), store, "main", []string{"Zebra", "Apple", "Apple", "Mango"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	want := []string{"main/Apple", "main/Mango", "main/Zebra"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Fatalf("calls[%d] = %q, want %q", i, store.calls[i], want[i])
		}
	}
}

func TestAcquire_PropagatesConflict(t *testing.T) {
	store := &fakeLockStore{errOn: "Mango"}

	err := account.Acquire(context.Background(), store, "main", []string{"Apple", "Mango", "Zebra"})
	if err == nil {
		t.Fatal("expected error from conflicting upsert")
	}
	// Apple sorts before Mango, so it should have been locked before the failure.
	if len(store.calls) != 1 || store.calls[0] != "main/Apple" {
		t.Fatalf("calls = %v, want [main/Apple]", store.calls)
	}
}
