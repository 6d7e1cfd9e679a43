package store

import (
	"context"
	"testing"

	"github.com/roach88/pastas/internal/testutil"
)

func TestWriteModel_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := testModel(t, "well-1")

	first, err := s.WriteModel(ctx, m.Dump())
	if err != nil {
		t.Fatalf("WriteModel() failed: %v", err)
	}
	second, err := s.WriteModel(ctx, m.Dump())
	if err != nil {
		t.Fatalf("second WriteModel() failed: %v", err)
	}
	if first != second {
		t.Errorf("hash changed on rewrite: %s != %s", first, second)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM models").Scan(&count); err != nil {
		t.Fatalf("count models: %v", err)
	}
	if count != 1 {
		t.Errorf("models count = %d, want 1", count)
	}
}

func TestWriteModel_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	h1, err := s.WriteModel(ctx, testModel(t, "well-1").Dump())
	if err != nil {
		t.Fatalf("WriteModel() failed: %v", err)
	}
	h2, err := s.WriteModel(ctx, testModel(t, "well-2").Dump())
	if err != nil {
		t.Fatalf("WriteModel() failed: %v", err)
	}
	if h1 == h2 {
		t.Fatal("different models got the same hash")
	}

	r1, _ := s.ReadModel(ctx, h1)
	r2, _ := s.ReadModel(ctx, h2)
	if r1.Seq != 1 || r2.Seq != 2 {
		t.Errorf("seq = (%d, %d), want (1, 2)", r1.Seq, r2.Seq)
	}
}

func TestModelHash_IgnoresFileInfo(t *testing.T) {
	m := testModel(t, "well-1")
	a := m.Dump()
	b := m.Dump()
	b.FileInfo.Modified = testutil.Epoch.AddDate(5, 0, 0)
	b.FileInfo.Version = "0.0.0-test"

	ha, err := ModelHash(a)
	if err != nil {
		t.Fatalf("ModelHash() failed: %v", err)
	}
	hb, err := ModelHash(b)
	if err != nil {
		t.Fatalf("ModelHash() failed: %v", err)
	}
	if ha != hb {
		t.Errorf("hash depends on file info: %s != %s", ha, hb)
	}
}

func TestWriteFit_UnknownModel(t *testing.T) {
	s := createTestStore(t)
	m := testModel(t, "well-1")

	err := s.WriteFit(context.Background(), "no-such-hash", testFit(m, "fit-1", testutil.Epoch), m.Registry().Rows())
	if err == nil {
		t.Error("expected foreign key violation for unknown model")
	}
}

func TestWriteFit_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := testModel(t, "well-1")
	hash, err := s.WriteModel(ctx, m.Dump())
	if err != nil {
		t.Fatalf("WriteModel() failed: %v", err)
	}
	fit := testFit(m, "fit-1", testutil.Epoch)

	for i := 0; i < 2; i++ {
		if err := s.WriteFit(ctx, hash, fit, m.Registry().Rows()); err != nil {
			t.Fatalf("WriteFit() #%d failed: %v", i+1, err)
		}
	}

	var fits, params int
	s.db.QueryRow("SELECT COUNT(*) FROM fits").Scan(&fits)
	s.db.QueryRow("SELECT COUNT(*) FROM fit_parameters").Scan(&params)
	if fits != 1 {
		t.Errorf("fits count = %d, want 1", fits)
	}
	if params != len(fit.Names) {
		t.Errorf("fit_parameters count = %d, want %d", params, len(fit.Names))
	}
}

func TestWriteFit_InconsistentColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m := testModel(t, "well-1")
	hash, _ := s.WriteModel(ctx, m.Dump())

	fit := testFit(m, "fit-1", testutil.Epoch)
	fit.Stderr = fit.Stderr[:1]
	if err := s.WriteFit(ctx, hash, fit, nil); err == nil {
		t.Error("expected error for inconsistent parameter columns")
	}
	if err := s.WriteFit(ctx, hash, nil, nil); err == nil {
		t.Error("expected error for nil fit")
	}
}
