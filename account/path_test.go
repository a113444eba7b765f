package account_test

import (
	"reflect"
	"testing"

	"github.com/ledgerkit/ledger/account"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"A:B:C", []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		got := account.Segments(tt.path)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestPrefixes(t *testing.T) {
	got := account.Prefixes("A:B:C")
	want := []string{"A", "A:B", "A:B:C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Prefixes = %v, want %v", got, want)
	}
}

func TestPrefixes_Single(t *testing.T) {
	got := account.Prefixes("Assets")
	want := []string{"Assets"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Prefixes = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		max     int
		wantErr bool
	}{
		{"valid", "Assets:Cash:Checking", 3, false},
		{"empty", "", 3, true},
		{"too deep", "A:B:C:D", 3, true},
		{"empty segment", "A::C", 3, true},
		{"trailing separator", "A:B:", 3, true},
		{"single segment", "Assets", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := account.Validate(tt.path, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q, %d) error = %v, wantErr %v", tt.path, tt.max, err, tt.wantErr)
			}
		})
	}
}

func TestDepth(t *testing.T) {
	if got := account.Depth("A:B:C"); got != 3 {
		t.Fatalf("Depth = %d, want 3", got)
	}
	if got := account.Depth(""); got != 0 {
		t.Fatalf("Depth(\"\") = %d, want 0", got)
	}
}

func TestDedup(t *testing.T) {
	got := account.Dedup([]string{"A", "B", "A", "C", "B"})
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dedup = %v, want %v", got, want)
	}
}

func TestSortedUnique(t *testing.T) {
	got := account.SortedUnique([]string{"Zebra", "Apple", "Mango", "Apple"})
	want := []string{"Apple", "Mango", "Zebra"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortedUnique = %v, want %v", got, want)
	}
}
