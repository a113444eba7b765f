package id_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ledgerkit/ledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix id.Prefix
	}{
		{"journal", id.NewJournalID, id.PrefixJournal},
		{"txn", id.NewTxnID, id.PrefixTxn},
		{"balance", id.NewBalanceID, id.PrefixBalance},
		{"lock", id.NewLockID, id.PrefixLock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn()
			if got.IsNil() {
				t.Fatalf("new %s ID is nil", tt.name)
			}
			if got.Prefix() != tt.prefix {
				t.Fatalf("prefix = %q, want %q", got.Prefix(), tt.prefix)
			}
			if got.String() == "" {
				t.Fatalf("string representation is empty")
			}
		})
	}
}

func TestNew_DistinctValues(t *testing.T) {
	a := id.New(id.PrefixJournal)
	b := id.New(id.PrefixJournal)
	if a.String() == b.String() {
		t.Fatalf("two generated IDs collided: %s", a)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	original := id.NewTxnID()

	parsed, err := id.Parse(original.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.String() != original.String() {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed, original)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatal("expected error parsing empty string")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := id.Parse("not-a-typeid"); err == nil {
		t.Fatal("expected error parsing invalid string")
	}
}

func TestParseWithPrefix(t *testing.T) {
	jrn := id.NewJournalID()

	if _, err := id.ParseJournalID(jrn.String()); err != nil {
		t.Fatalf("ParseJournalID: %v", err)
	}

	if _, err := id.ParseTxnID(jrn.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid ID")
		}
	}()
	id.MustParse("garbage")
}

func TestNil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Fatal("id.Nil should report IsNil() == true")
	}
	if id.Nil.String() != "" {
		t.Fatalf("id.Nil.String() = %q, want empty", id.Nil.String())
	}
	if id.Nil.Prefix() != "" {
		t.Fatalf("id.Nil.Prefix() = %q, want empty", id.Nil.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewBalanceID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got id.ID
	if err := got.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got.String() != original.String() {
		t.Fatalf("got %s, want %s", got, original)
	}
}

func TestUnmarshalText_Empty(t *testing.T) {
	var got id.ID
	if err := got.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil): %v", err)
	}
	if !got.IsNil() {
		t.Fatal("expected nil ID after unmarshaling empty bytes")
	}
}

func TestValueScan_RoundTrip(t *testing.T) {
	original := id.NewLockID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got id.ID
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got.String() != original.String() {
		t.Fatalf("got %s, want %s", got, original)
	}
}

func TestValue_Nil(t *testing.T) {
	v, err := id.Nil.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != nil {
		t.Fatalf("Value() for nil ID = %v, want nil", v)
	}
}

func TestScan_Nil(t *testing.T) {
	var got id.ID
	if err := got.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !got.IsNil() {
		t.Fatal("expected nil ID after scanning nil")
	}
}

func TestMarshalUnmarshalBSONValue_RoundTrip(t *testing.T) {
	original := id.NewJournalID()

	typ, data, err := original.MarshalBSONValue()
	if err != nil {
		t.Fatalf("MarshalBSONValue: %v", err)
	}
	if typ != bson.TypeString {
		t.Fatalf("bson type = %v, want TypeString", typ)
	}

	var got id.ID
	if err := got.UnmarshalBSONValue(typ, data); err != nil {
		t.Fatalf("UnmarshalBSONValue: %v", err)
	}
	if got.String() != original.String() {
		t.Fatalf("got %s, want %s", got, original)
	}
}

func TestMarshalBSONValue_Nil(t *testing.T) {
	typ, _, err := id.Nil.MarshalBSONValue()
	if err != nil {
		t.Fatalf("MarshalBSONValue: %v", err)
	}
	if typ != bson.TypeNull {
		t.Fatalf("bson type = %v, want TypeNull", typ)
	}
}

func TestUnmarshalBSONValue_Null(t *testing.T) {
	var got id.ID
	if err := got.UnmarshalBSONValue(bson.TypeNull, nil); err != nil {
		t.Fatalf("UnmarshalBSONValue: %v", err)
	}
	if !got.IsNil() {
		t.Fatal("expected nil ID after unmarshaling BSON null")
	}
}

func TestStructWithID_MarshalsAsString(t *testing.T) {
	type wrapper struct {
		ID id.ID `bson:"_id"`
	}

	original := wrapper{ID: id.NewTxnID()}

	data, err := bson.Marshal(original)
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}

	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("bson.Unmarshal: %v", err)
	}
	if raw["_id"] != original.ID.String() {
		t.Fatalf("_id = %v, want %q", raw["_id"], original.ID.String())
	}

	var got wrapper
	if err := bson.Unmarshal(data, &got); err != nil {
		t.Fatalf("bson.Unmarshal into wrapper: %v", err)
	}
	if got.ID.String() != original.ID.String() {
		t.Fatalf("got %s, want %s", got.ID, original.ID)
	}
}

func TestCompare_Ordering(t *testing.T) {
	a := id.NewTxnID()
	b := id.NewTxnID()

	if a.Compare(a) != 0 {
		t.Fatal("Compare with self should be 0")
	}

	// b was generated after a, so it should sort after (UUIDv7 is time-ordered).
	if a.Compare(b) > 0 {
		t.Fatalf("expected a <= b in generation order, got Compare = %d", a.Compare(b))
	}
}
