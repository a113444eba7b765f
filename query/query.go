// Package query compiles a user-facing filter (account paths, date ranges,
// ad-hoc metadata) into a store-native bson.M predicate, keeping the set of
// recognized transaction columns closed and statically known rather than
// discovered by reflection.
package query

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Query is the caller-facing filter object accepted by Book.Balance and
// Book.Ledger.
type Query struct {
	// Account is a single account path string or an ordered slice of them.
	Account any

	// StartDate/EndDate bound the transaction's datetime field. Accepts a
	// time.Time, a parseable date string, or a numeric epoch in
	// milliseconds.
	StartDate any
	EndDate   any

	// Journal restricts to postings belonging to a single journal
	// (the _journal column).
	Journal string

	// PerPage/Page paginate the ledger lister. Zero PerPage means
	// unpaginated.
	PerPage int
	Page    int

	// Extra carries arbitrary additional key/value pairs. Recognized
	// transaction columns are placed at the top level of the compiled
	// filter; everything else nests under meta.<key>.
	Extra map[string]any
}

// recognizedColumns is the closed, statically known set of transaction
// columns the compiler will place at the top level of a filter instead of
// nesting under meta. Exposed as an enumerated predicate rather than
// discovered via reflection.
var recognizedColumns = map[string]struct{}{
	"book":              {},
	"_id":               {},
	"_journal":          {},
	"datetime":          {},
	"timestamp":         {},
	"account_path":      {},
	"accounts":          {},
	"debit":             {},
	"credit":            {},
	"voided":            {},
	"void_reason":       {},
	"_original_journal": {},
}

// idTypedColumns identifies columns whose semantic type is a document-store
// identifier. IDs are stored as their TypeID string (see id.ID's
// MarshalBSONValue), so a string value for one of these is already in stored
// form and is placed in the filter unchanged.
var idTypedColumns = map[string]struct{}{
	"_id":               {},
	"_journal":          {},
	"_original_journal": {},
}

// denylist guards against prototype-pollution-style keys making it into a
// compiled filter; ported from the source's JS-specific guard, it is
// retained even though Go has no prototype chain, since the contract
// (filter has no such field, and caller's base object is unaffected) is part
// of the spec's tested behavior for the compiler.
var denylist = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Compile turns q into a filter document scoped to book, splitting
// recognized columns from free-form metadata and expanding account paths
// into either an account_path equality or an accounts membership test.
func Compile(q Query, book string, maxAccountPath int) (bson.M, error) {
	filter := bson.M{"book": book}

	if q.Account != nil {
		accountFilter, err := compileAccount(q.Account, maxAccountPath)
		if err != nil {
			return nil, err
		}
		for k, v := range accountFilter {
			filter[k] = v
		}
	}

	if q.StartDate != nil || q.EndDate != nil {
		dateFilter, err := compileDateRange(q.StartDate, q.EndDate)
		if err != nil {
			return nil, err
		}
		filter["datetime"] = dateFilter
	}

	if q.Journal != "" {
		filter["_journal"] = q.Journal
	}

	for k, v := range q.Extra {
		if _, blocked := denylist[k]; blocked {
			continue
		}

		if _, recognized := recognizedColumns[k]; recognized {
			if _, isID := idTypedColumns[k]; isID {
				if s, ok := v.(string); ok {
					filter[k] = s
					continue
				}
			}
			filter[k] = v
			continue
		}

		nested, _ := filter["meta"].(bson.M)
		if nested == nil {
			nested = bson.M{}
		}
		nested[k] = v
		filter["meta"] = nested
	}

	return filter, nil
}

// compileAccount expands the Account field per the account-path rules: a
// disjunction of equality-on-account_path when every path is maximally
// deep, or membership in the accounts prefix array otherwise.
func compileAccount(account any, maxAccountPath int) (bson.M, error) {
	paths, err := accountStrings(account)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return bson.M{}, nil
	}

	allMaxDepth := true
	for _, p := range paths {
		if depth(p) != maxAccountPath {
			allMaxDepth = false
			break
		}
	}

	if allMaxDepth {
		if len(paths) == 1 {
			return bson.M{"account_path": paths[0]}, nil
		}
		return bson.M{"account_path": bson.M{"$in": paths}}, nil
	}

	if len(paths) == 1 {
		return bson.M{"accounts": paths[0]}, nil
	}
	return bson.M{"accounts": bson.M{"$in": paths}}, nil
}

func accountStrings(account any) ([]string, error) {
	switch v := account.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("query: account entry %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("query: unsupported account shape %T", account)
	}
}

func depth(path string) int {
	count := 1
	for _, r := range path {
		if r == ':' {
			count++
		}
	}
	return count
}

// RecognizedColumn reports whether name is one of the statically known
// transaction columns. The ledger lister uses this to silently drop
// populate requests for unknown fields rather than allowing arbitrary
// traversal.
func RecognizedColumn(name string) bool {
	_, ok := recognizedColumns[name]
	return ok
}

// MetaFields returns the subset of extra that Compile nests under "meta":
// recognized columns and denylisted keys are excluded. The balance engine
// uses this (rather than extra as a whole) to derive its snapshot cache
// key, so that a recognized column passed through Extra doesn't produce a
// spuriously distinct key from the equivalent query without it.
func MetaFields(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}

	meta := make(map[string]any, len(extra))
	for k, v := range extra {
		if _, blocked := denylist[k]; blocked {
			continue
		}
		if _, recognized := recognizedColumns[k]; recognized {
			continue
		}
		meta[k] = v
	}

	return meta
}

func compileDateRange(start, end any) (bson.M, error) {
	rng := bson.M{}

	if start != nil {
		t, err := CoerceDate(start)
		if err != nil {
			return nil, err
		}
		rng["$gte"] = t
	}

	if end != nil {
		t, err := CoerceDate(end)
		if err != nil {
			return nil, err
		}
		rng["$lte"] = t
	}

	return rng, nil
}
