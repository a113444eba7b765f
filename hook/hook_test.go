package hook_test

import (
	"context"
	"testing"

	"github.com/ledgerkit/ledger/hook"
	"github.com/ledgerkit/ledger/id"
	"github.com/ledgerkit/ledger/journal"
)

type recordingHook struct {
	name      string
	committed []*journal.Journal
	voided    [][2]*journal.Journal
}

func (r *recordingHook) Name() string { return r.name }

func (r *recordingHook) OnJournalCommitted(_ context.Context, j *journal.Journal) error {
	r.committed = append(r.committed, j)
	return nil
}

func (r *recordingHook) OnJournalVoided(_ context.Context, original, reversal *journal.Journal) error {
	r.voided = append(r.voided, [2]*journal.Journal{original, reversal})
	return nil
}

func TestRegistry_DispatchesToImplementors(t *testing.T) {
	reg := hook.NewRegistry()
	h := &recordingHook{name: "recorder"}

	if err := reg.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}

	j := &journal.Journal{ID: id.NewJournalID(), Memo: "test"}
	reg.EmitJournalCommitted(context.Background(), j)

	if len(h.committed) != 1 || h.committed[0] != j {
		t.Fatalf("committed = %v, want [%v]", h.committed, j)
	}
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	reg := hook.NewRegistry()
	h1 := &recordingHook{name: "dup"}
	h2 := &recordingHook{name: "dup"}

	if err := reg.Register(h1); err != nil {
		t.Fatalf("Register h1: %v", err)
	}
	if err := reg.Register(h2); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegistry_VoidDispatch(t *testing.T) {
	reg := hook.NewRegistry()
	h := &recordingHook{name: "void-watcher"}
	_ = reg.Register(h)

	original := &journal.Journal{ID: id.NewJournalID()}
	reversal := &journal.Journal{ID: id.NewJournalID()}
	reg.EmitJournalVoided(context.Background(), original, reversal)

	if len(h.voided) != 1 {
		t.Fatalf("voided dispatch count = %d, want 1", len(h.voided))
	}
	if h.voided[0][0] != original || h.voided[0][1] != reversal {
		t.Fatalf("voided payload mismatch: %v", h.voided[0])
	}
}

func TestRegistry_EmitWithNoHooksIsNoop(t *testing.T) {
	reg := hook.NewRegistry()
	reg.EmitJournalCommitted(context.Background(), &journal.Journal{})
	reg.EmitSnapshotRefreshed(context.Background(), "main", "Assets", 100, id.NewTxnID())
}
