package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/store"
)

func TestPersister_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	p, err := Open(ctx, filepath.Join(t.TempDir(), "hms.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	_, ok, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("expected no snapshot in a fresh database")
	}
}

func TestPersister_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hms.db")

	p, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := store.New(store.WithPersister(p))
	err = s.RunInTransaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.Patients().Insert(model.Patient{FirstName: "Ada", LastName: "Obi"}); err != nil {
			return err
		}
		_, err := tx.Medicines().Insert(model.Medicine{Name: "Paracetamol", Stock: 40, Price: 150})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	restored := store.New(store.WithPersister(reopened))
	defer restored.Close()
	ok, err := restored.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	_ = restored.View(ctx, func(v *store.View) error {
		p, found := v.Patients().Get("P-1001")
		if !found || p.LastName != "Obi" {
			t.Errorf("expected restored patient, got %+v", p)
		}
		m, found := v.Medicines().Get("MED-1001")
		if !found || m.Stock != 40 {
			t.Errorf("expected restored medicine, got %+v", m)
		}
		return nil
	})

	var rows int
	if err := reopened.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != len(store.Buckets) {
		t.Errorf("expected %d bucket rows, got %d", len(store.Buckets), rows)
	}
}

func TestPersister_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	p, err := Open(ctx, filepath.Join(t.TempDir(), "hms.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	first := store.Snapshot{Patients: []model.Patient{{ID: "P-1001"}, {ID: "P-1002"}}}
	second := store.Snapshot{Patients: []model.Patient{{ID: "P-1003"}}}
	if err := p.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := p.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, ok, err := p.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Patients) != 1 || got.Patients[0].ID != "P-1003" {
		t.Errorf("expected only the latest snapshot, got %+v", got.Patients)
	}
}
