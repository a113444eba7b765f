// Package ledger provides a composable double-entry accounting engine for
// Go applications, persisted in a document database.
//
// Ledger is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Balanced journal entries with an atomic commit protocol
//   - Hierarchical account paths with automatic ancestor visibility
//   - A balance engine with an opportunistically-refreshed snapshot cache
//   - A paginated ledger lister over arbitrary account/date/metadata filters
//   - A void protocol that reverses a journal while preserving auditability
//   - Pluggable lifecycle hooks for commit and void events (the
//     snapshot-refresh hook is not dispatched by Book)
//
// # Quick Start
//
// Open a book against a store:
//
//	import (
//	    "github.com/ledgerkit/ledger"
//	    "github.com/ledgerkit/ledger/store/mongo"
//	)
//
//	client, err := mdriver.Connect(ctx, options.Client().ApplyURI(uri))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	book, err := ledger.NewBook(ctx, mongo.New(client, "accounting"), "main")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Core Concepts
//
// An Entry accumulates debits and credits before committing them atomically
// as a Journal:
//
//	j, err := book.Entry("coffee sale").
//	    Debit("Assets:Cash", 4.50, nil).
//	    Credit("Income:Sales", 4.50, nil).
//	    Commit(ctx)
//
// Balances aggregate credit−debit over any account subtree:
//
//	result, err := book.Balance(ctx, query.Query{Account: "Assets:Cash"})
//
// A journal can be reversed without losing its audit trail:
//
//	reversal, err := book.Void(ctx, j.ID, "refund")
//
// # Account paths
//
// Account paths are colon-delimited hierarchies. Posting to
// "Assets:Cash:Checking" makes the transaction visible under queries for
// "Assets", "Assets:Cash", and "Assets:Cash:Checking" alike.
//
// # TypeID
//
// Every stored entity uses TypeID for globally unique, type-safe, K-sortable
// identifiers:
//
//	jrn_01h2xcejqtf2nbrexx3vqjhp41  // Journal ID
//	txn_01h2xcejqtf2nbrexx3vqjhp41  // Transaction ID
//	bal_01h455vb4pex5vsknk084sn02q  // Balance snapshot ID
package ledger
