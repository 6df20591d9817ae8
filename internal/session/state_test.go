package session

import (
	"context"
	"sync"
	"testing"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/host/hosttest"
	"github.com/justyntemme/nexus/internal/lister"
)

func TestParseHelpers(t *testing.T) {
	if _, err := ParseViewMode("grid"); err != nil {
		t.Error(err)
	}
	if _, err := ParseViewMode("table"); err == nil {
		t.Error("expected error for unknown view mode")
	}
	if _, err := ParseItemSize("large"); err != nil {
		t.Error(err)
	}
	if _, err := ParseItemSize("huge"); err == nil {
		t.Error("expected error for unknown item size")
	}
}

func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	settings := newMemSettings()
	want := Preferences{ViewMode: ViewList, ItemSize: SizeSmall, ShowPreview: false}

	if err := SavePreferences(ctx, settings, want); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	if got := LoadPreferences(ctx, settings, DefaultPreferences()); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestPreferences_InvalidFallsBack(t *testing.T) {
	ctx := context.Background()
	settings := newMemSettings()
	settings.values[keyPreferences] = `{"viewMode":"carousel","itemSize":"large"}`

	got := LoadPreferences(ctx, settings, DefaultPreferences())
	if got.ViewMode != ViewGrid || got.ItemSize != SizeLarge {
		t.Errorf("unexpected preferences %+v", got)
	}

	settings.values[keyPreferences] = "not json"
	if got := LoadPreferences(ctx, settings, DefaultPreferences()); got != DefaultPreferences() {
		t.Errorf("corrupt preferences should give defaults, got %+v", got)
	}
}

func TestState_ListingAndSelection(t *testing.T) {
	s := NewState(DefaultPreferences())
	if s.Folder() != nil {
		t.Fatal("new state should have no folder")
	}

	dir := hosttest.NewDir("photos")
	items := []lister.Entry{
		{Name: "a.png", Kind: host.KindFile},
		{Name: "sub", Kind: host.KindDirectory, Handle: hosttest.NewDir("sub")},
	}
	s.SetListing(&Folder{Name: "photos", Key: dir.ID(), Handle: dir}, items, nil, 0)

	if !s.Select("a.png") || s.Selected() != "a.png" {
		t.Error("expected a.png selected")
	}
	if s.Select("missing") {
		t.Error("selecting an unlisted item should fail")
	}
	if s.Selected() != "a.png" {
		t.Error("failed select should keep previous selection")
	}

	s.SetListing(&Folder{Name: "sub"}, nil, nil, 1)
	if s.Selected() != "" {
		t.Error("new listing should clear selection")
	}
	if f := s.Folder(); f == nil || !f.IsPlaceholder() {
		t.Error("folder without handle should be a placeholder")
	}
}

func TestState_SnapshotIsCopy(t *testing.T) {
	s := NewState(DefaultPreferences())
	s.SetListing(&Folder{Name: "x"}, []lister.Entry{{Name: "one"}}, nil, 0)

	snap := s.Snapshot()
	snap.Items[0].Name = "mutated"
	snap.Folder.Name = "mutated"

	if s.Items()[0].Name != "one" || s.Folder().Name != "x" {
		t.Error("snapshot mutation leaked into state")
	}
}

func TestState_ClearAndPreferences(t *testing.T) {
	s := NewState(Preferences{ViewMode: "bogus"})
	if s.Preferences().ViewMode != ViewGrid {
		t.Error("invalid initial view mode should normalize to grid")
	}
	s.SetViewMode(ViewList)
	s.SetItemSize(SizeLarge)
	s.SetShowPreview(false)
	s.SetListing(&Folder{Name: "x"}, []lister.Entry{{Name: "one"}}, nil, 2)

	s.Clear(DefaultPreferences())
	snap := s.Snapshot()
	if snap.Folder != nil || len(snap.Items) != 0 || snap.Depth != 0 {
		t.Errorf("clear left state behind: %+v", snap)
	}
	if snap.Preferences != DefaultPreferences() {
		t.Errorf("expected default preferences, got %+v", snap.Preferences)
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState(DefaultPreferences())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetListing(&Folder{Name: "f"}, []lister.Entry{{Name: "a"}}, nil, 0)
			s.Select("a")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			s.SetShowPreview(true)
		}()
	}
	wg.Wait()
}
