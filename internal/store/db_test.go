package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/justyntemme/nexus/internal/host/hosttest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB()
	if err := db.Open(filepath.Join(t.TempDir(), "nested", "nexus.db")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestHandleStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	dir := hosttest.NewDir("photos")
	h := hosttest.NewHost(dir)
	s := NewHandleStore(openTestDB(t), h)

	if err := s.Save(ctx, dir.ID(), dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Get(ctx, dir.ID())
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ID() != dir.ID() {
		t.Errorf("expected %q, got %q", dir.ID(), got.ID())
	}

	rec, ok, err := s.Lookup(ctx, dir.ID())
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if rec.Name != "photos" {
		t.Errorf("expected stored name photos, got %q", rec.Name)
	}

	if err := s.Delete(ctx, dir.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, dir.ID()); ok || err != nil {
		t.Errorf("expected miss after delete, ok=%v err=%v", ok, err)
	}
}

func TestHandleStore_GetMissingIsNotAnError(t *testing.T) {
	s := NewHandleStore(openTestDB(t), hosttest.NewHost())
	h, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing key returned error: %v", err)
	}
	if ok || h != nil {
		t.Error("missing key should report not found")
	}
}

func TestHandleStore_DeleteIsIdempotent(t *testing.T) {
	s := NewHandleStore(openTestDB(t), hosttest.NewHost())
	for i := 0; i < 2; i++ {
		if err := s.Delete(context.Background(), "never-saved"); err != nil {
			t.Fatalf("Delete #%d: %v", i, err)
		}
	}
}

func TestHandleStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	first := hosttest.NewDir("a")
	second := hosttest.NewDir("b")
	s := NewHandleStore(openTestDB(t), hosttest.NewHost(first, second))

	if err := s.Save(ctx, "slot", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "slot", second); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "slot")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Name() != "b" {
		t.Errorf("expected last write to win, got %q", got.Name())
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("expected a single row, got %v", keys)
	}
}

func TestHandleStore_SameNameDifferentKeys(t *testing.T) {
	ctx := context.Background()
	a := hosttest.NewDir("2024")
	a.DirID = "/trips/2024"
	b := hosttest.NewDir("2024")
	b.DirID = "/taxes/2024"
	s := NewHandleStore(openTestDB(t), hosttest.NewHost(a, b))

	if err := s.Save(ctx, a.ID(), a); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, b.ID(), b); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.Get(ctx, a.ID())
	if got == nil || got.ID() != "/trips/2024" {
		t.Errorf("sibling with the same name clobbered the entry: %v", got)
	}
}

func TestHandleStore_UnresolvableTokenIsDeleted(t *testing.T) {
	ctx := context.Background()
	dir := hosttest.NewDir("gone")
	h := hosttest.NewHost(dir)
	s := NewHandleStore(openTestDB(t), h)
	if err := s.Save(ctx, dir.ID(), dir); err != nil {
		t.Fatal(err)
	}
	delete(h.Dirs, dir.ID())

	if _, ok, err := s.Get(ctx, dir.ID()); ok || err != nil {
		t.Errorf("expected quiet miss, ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Lookup(ctx, dir.ID()); ok || err != nil {
		t.Errorf("dead row kept: ok=%v err=%v", ok, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after dead token = %v, want none", keys)
	}

	// the directory coming back does not resurrect the deleted row
	h.Add(dir)
	if _, ok, _ := s.Get(ctx, dir.ID()); ok {
		t.Error("deleted handle resolved again")
	}
}

func TestClosedDBIsUnavailable(t *testing.T) {
	db := openTestDB(t)
	db.Close()
	s := NewHandleStore(db, hosttest.NewHost())
	ctx := context.Background()

	if _, _, err := s.Get(ctx, "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get: expected ErrUnavailable, got %v", err)
	}
	if err := s.Delete(ctx, "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Delete: expected ErrUnavailable, got %v", err)
	}
	if err := db.SetSetting(ctx, "k", "v"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("SetSetting: expected ErrUnavailable, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, ok, err := db.Setting(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing setting: ok=%v err=%v", ok, err)
	}
	if err := db.SetSetting(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting(ctx, "a", "2"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting(ctx, "b", "3"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := db.Setting(ctx, "a"); !ok || v != "2" {
		t.Errorf("expected upserted value 2, got %q ok=%v", v, ok)
	}

	if err := db.DeleteSettings(ctx, "a", "not-there"); err != nil {
		t.Fatal(err)
	}
	all, err := db.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["b"] != "3" {
		t.Errorf("unexpected settings after delete: %v", all)
	}
}
