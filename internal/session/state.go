package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
)

// ViewMode selects how entries are laid out.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// ParseViewMode validates a view mode string.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewGrid, ViewList:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("session: unknown view mode %q", s)
}

// ItemSize selects the thumbnail size.
type ItemSize string

const (
	SizeSmall  ItemSize = "small"
	SizeMedium ItemSize = "medium"
	SizeLarge  ItemSize = "large"
)

// ParseItemSize validates an item size string.
func ParseItemSize(s string) (ItemSize, error) {
	switch ItemSize(s) {
	case SizeSmall, SizeMedium, SizeLarge:
		return ItemSize(s), nil
	}
	return "", fmt.Errorf("session: unknown item size %q", s)
}

// Preferences is the persisted part of the session.
type Preferences struct {
	ViewMode    ViewMode `json:"viewMode"`
	ItemSize    ItemSize `json:"itemSize"`
	ShowPreview bool     `json:"showPreview"`
}

// DefaultPreferences returns grid view, medium items, preview pane on.
func DefaultPreferences() Preferences {
	return Preferences{ViewMode: ViewGrid, ItemSize: SizeMedium, ShowPreview: true}
}

// normalized replaces invalid fields with defaults.
func (p Preferences) normalized() Preferences {
	def := DefaultPreferences()
	if _, err := ParseViewMode(string(p.ViewMode)); err != nil {
		p.ViewMode = def.ViewMode
	}
	if _, err := ParseItemSize(string(p.ItemSize)); err != nil {
		p.ItemSize = def.ItemSize
	}
	return p
}

// SavePreferences persists p.
func SavePreferences(ctx context.Context, s Settings, p Preferences) error {
	data, err := json.Marshal(p.normalized())
	if err != nil {
		return err
	}
	return s.SetSetting(ctx, keyPreferences, string(data))
}

// LoadPreferences reads persisted preferences, falling back to def for
// anything missing or unreadable.
func LoadPreferences(ctx context.Context, s Settings, def Preferences) Preferences {
	raw, ok, err := s.Setting(ctx, keyPreferences)
	if err != nil || !ok {
		return def.normalized()
	}
	p := def
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return def.normalized()
	}
	return p.normalized()
}

// Folder is the folder being shown. A nil Handle marks a placeholder: the
// name is known but the directory cannot be read until access is granted
// again.
type Folder struct {
	Name   string
	Key    string
	Handle host.DirectoryHandle
}

// IsPlaceholder reports whether the folder has no usable handle.
func (f *Folder) IsPlaceholder() bool { return f != nil && f.Handle == nil }

// Snapshot is an immutable copy of State.
type Snapshot struct {
	Folder      *Folder
	Items       []lister.Entry
	Files       []*host.File
	Selected    string
	Preferences Preferences
	Depth       int
}

// State is the single owner of the browsing session. All mutation goes
// through its methods.
type State struct {
	mu sync.RWMutex

	folder   *Folder
	items    []lister.Entry
	files    []*host.File
	selected string
	prefs    Preferences
	depth    int
}

// NewState creates an empty state with the given preferences.
func NewState(prefs Preferences) *State {
	return &State{prefs: prefs.normalized()}
}

// Snapshot returns a copy safe to read without locking.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Items:       append([]lister.Entry(nil), s.items...),
		Files:       append([]*host.File(nil), s.files...),
		Selected:    s.selected,
		Preferences: s.prefs,
		Depth:       s.depth,
	}
	if s.folder != nil {
		f := *s.folder
		snap.Folder = &f
	}
	return snap
}

// Folder returns the current folder, nil on the landing screen.
func (s *State) Folder() *Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.folder == nil {
		return nil
	}
	f := *s.folder
	return &f
}

// SetListing replaces the current folder and its contents. The selection is
// cleared.
func (s *State) SetListing(folder *Folder, items []lister.Entry, files []*host.File, depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if folder != nil {
		f := *folder
		s.folder = &f
	} else {
		s.folder = nil
	}
	s.items = items
	s.files = files
	s.selected = ""
	s.depth = depth
}

// Items returns the current entries.
func (s *State) Items() []lister.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]lister.Entry(nil), s.items...)
}

// Files returns the flat media file list of the current folder.
func (s *State) Files() []*host.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*host.File(nil), s.files...)
}

// Select marks name as the selected item. It reports false when no item of
// that name is listed.
func (s *State) Select(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Name == name {
			s.selected = name
			return true
		}
	}
	return false
}

// Selected returns the selected item name, "" if none.
func (s *State) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *State) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *State) SetViewMode(m ViewMode) {
	s.mu.Lock()
	s.prefs.ViewMode = m
	s.mu.Unlock()
}

func (s *State) SetItemSize(size ItemSize) {
	s.mu.Lock()
	s.prefs.ItemSize = size
	s.mu.Unlock()
}

func (s *State) SetShowPreview(show bool) {
	s.mu.Lock()
	s.prefs.ShowPreview = show
	s.mu.Unlock()
}

// Clear drops the folder, listing and selection. Preferences are reset to
// def.
func (s *State) Clear(def Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder = nil
	s.items = nil
	s.files = nil
	s.selected = ""
	s.depth = 0
	s.prefs = def.normalized()
}
