package ledger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ledgerkit/ledger"
	"github.com/ledgerkit/ledger/query"
	"github.com/ledgerkit/ledger/store/memory"
)

// TestDocumentationExamples verifies that the examples in doc.go compile
// and behave as documented.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		book, err := ledger.NewBook(ctx, memory.New(), "main", ledger.WithLogger(slog.Default()))
		if err != nil {
			t.Fatal(err)
		}

		j, err := book.Entry("coffee sale").
			Debit("Assets:Cash", 4.50, nil).
			Credit("Income:Sales", 4.50, nil).
			Commit(ctx)
		if err != nil {
			t.Fatal(err)
		}

		result, err := book.Balance(ctx, query.Query{Account: "Assets:Cash"})
		if err != nil {
			t.Fatal(err)
		}
		if result.Balance != -4.50 {
			t.Fatalf("Balance = %v, want -4.50", result.Balance)
		}

		reversal, err := book.Void(ctx, j.ID, "refund")
		if err != nil {
			t.Fatal(err)
		}
		if reversal.OriginalJournal != j.ID {
			t.Fatalf("reversal OriginalJournal = %v, want %v", reversal.OriginalJournal, j.ID)
		}

		afterVoid, err := book.Balance(ctx, query.Query{Account: "Assets:Cash"})
		if err != nil {
			t.Fatal(err)
		}
		if afterVoid.Balance != 0 {
			t.Fatalf("Balance after void = %v, want 0", afterVoid.Balance)
		}
	})

	t.Run("AccountPathHierarchyExample", func(t *testing.T) {
		ctx := context.Background()

		book, err := ledger.NewBook(ctx, memory.New(), "main")
		if err != nil {
			t.Fatal(err)
		}

		_, err = book.Entry("checking deposit").
			Debit("Assets:Cash:Checking", 100, nil).
			Credit("Income:Sales", 100, nil).
			Commit(ctx)
		if err != nil {
			t.Fatal(err)
		}

		for _, account := range []string{"Assets", "Assets:Cash", "Assets:Cash:Checking"} {
			result, err := book.Balance(ctx, query.Query{Account: account})
			if err != nil {
				t.Fatal(err)
			}
			if result.Balance != -100 {
				t.Fatalf("Balance(%q) = %v, want -100", account, result.Balance)
			}
		}
	})
}
