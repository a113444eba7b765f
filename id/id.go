// Package id defines TypeID-based identity types for all ledger entities.
//
// Every entity uses a single ID struct with a prefix that identifies the
// entity type. IDs are K-sortable (UUIDv7-based), globally unique, and
// URL-safe in the format "prefix_suffix" — a transaction ID's sort order
// doubles as the balance engine's snapshot cursor (_id > snapshot.transaction).
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all ledger entity types.
const (
	PrefixJournal Prefix = "jrn" // Journal
	PrefixTxn     Prefix = "txn" // Transaction (posting)
	PrefixBalance Prefix = "bal" // Balance snapshot
	PrefixLock    Prefix = "lck" // Account write-lock
)

// ID is the primary identifier type for all ledger entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

var (
	_ bson.ValueMarshaler   = ID{}
	_ bson.ValueUnmarshaler = (*ID)(nil)
)

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "jrn_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// JournalID is a type-safe identifier for journals (prefix: "jrn").
type JournalID = ID

// TxnID is a type-safe identifier for transactions/postings (prefix: "txn").
type TxnID = ID

// BalanceID is a type-safe identifier for balance snapshots (prefix: "bal").
type BalanceID = ID

// LockID is a type-safe identifier for account write-locks (prefix: "lck").
type LockID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewJournalID generates a new unique journal ID.
func NewJournalID() ID { return New(PrefixJournal) }

// NewTxnID generates a new unique transaction ID.
func NewTxnID() ID { return New(PrefixTxn) }

// NewBalanceID generates a new unique balance snapshot ID.
func NewBalanceID() ID { return New(PrefixBalance) }

// NewLockID generates a new unique lock ID.
func NewLockID() ID { return New(PrefixLock) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseJournalID parses a string and validates the "jrn" prefix.
func ParseJournalID(s string) (ID, error) { return ParseWithPrefix(s, PrefixJournal) }

// ParseTxnID parses a string and validates the "txn" prefix.
func ParseTxnID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTxn) }

// ParseBalanceID parses a string and validates the "bal" prefix.
func ParseBalanceID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBalance) }

// ParseLockID parses a string and validates the "lck" prefix.
func ParseLockID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLock) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// Compare reports -1, 0 or 1 depending on whether i sorts before, at, or
// after other. TypeIDs are UUIDv7-based and therefore K-sortable by string
// comparison, which is what lets the balance engine treat transaction ID
// order as commit order.
func (i ID) Compare(other ID) int {
	switch {
	case i.String() < other.String():
		return -1
	case i.String() > other.String():
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

// MarshalBSONValue implements bson.ValueMarshaler, encoding the ID as its
// TypeID string the same way MarshalText/Value already do for JSON/SQL.
// Without this, the driver's default struct codec would serialize the
// unexported inner/valid fields as an empty subdocument instead of the
// "_id" string every query filters against.
func (i ID) MarshalBSONValue() (bson.Type, []byte, error) {
	if !i.valid {
		return bson.MarshalValue(nil)
	}

	return bson.MarshalValue(i.inner.String())
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (i *ID) UnmarshalBSONValue(t bson.Type, data []byte) error {
	if t == bson.TypeNull {
		*i = Nil

		return nil
	}

	var s string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&s); err != nil {
		return fmt.Errorf("id: unmarshal bson value: %w", err)
	}

	if s == "" {
		*i = Nil

		return nil
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}
