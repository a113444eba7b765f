// Package account implements account-path parsing and the account
// write-lock used to serialize concurrent writers within a store session.
package account

import "strings"

// Separator delimits account path segments.
const Separator = ":"

// MaxAllowedSegments is a hard ceiling independent of any book's configured
// maxAccountPath, guarding against pathological input before a book-specific
// limit is even consulted.
const MaxAllowedSegments = 64

// Segments splits a path like "A:B:C" into ["A", "B", "C"]. Empty segments
// (leading/trailing/doubled separators) are preserved as empty strings so
// validation callers can reject them explicitly rather than silently
// collapsing a malformed path.
func Segments(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Validate checks path against the rules in the data model: non-empty,
// no empty segments, and at most maxSegments segments.
func Validate(path string, maxSegments int) error {
	if path == "" {
		return &PathError{Path: path, Reason: "empty"}
	}

	segs := Segments(path)
	if len(segs) > MaxAllowedSegments || len(segs) > maxSegments {
		return &PathError{Path: path, Reason: "too many segments"}
	}

	for _, s := range segs {
		if s == "" {
			return &PathError{Path: path, Reason: "contains an empty segment"}
		}
	}

	return nil
}

// PathError reports why an account path failed validation. The root ledger
// package converts this into its own ledger.InvalidAccountPathError at the
// call site via errors.As, keeping this package free of a dependency on the
// root package.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return "account: invalid path " + e.Path + ": " + e.Reason
}

// Prefixes expands "A:B:C" into ["A", "A:B", "A:B:C"], preserving prefix
// order — the `accounts` array stored alongside every transaction so that a
// query for any ancestor account matches the posting.
func Prefixes(path string) []string {
	segs := Segments(path)
	if len(segs) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(segs))
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(s)
		prefixes = append(prefixes, b.String())
	}

	return prefixes
}

// Depth returns the number of segments in path.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// Dedup returns the distinct accounts in accounts, preserving first-seen
// order. The write-lock protocol additionally sorts the result (see
// SortedUnique), giving every caller a single deterministic global ordering
// regardless of the order accounts were posted in an entry.
func Dedup(accounts []string) []string {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
