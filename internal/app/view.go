package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/logging"
	"github.com/justyntemme/nexus/internal/preview"
	"github.com/justyntemme/nexus/internal/session"
)

// View is what a front end renders.
type View struct {
	session.Snapshot
	// Previews maps item names to preview URLs. Videos without a
	// thumbnail map to "".
	Previews map[string]preview.URL
	// Trail holds the folder names above the current one, outermost first.
	Trail     []string
	CanGoBack bool
	Landing   bool
}

// View returns a copy of the current session.
func (b *Browser) View() View {
	v := View{Snapshot: b.state.Snapshot()}
	v.Landing = v.Folder == nil

	b.mu.Lock()
	if len(b.previews) > 0 {
		v.Previews = make(map[string]preview.URL, len(b.previews))
		for name, u := range b.previews {
			v.Previews[name] = u
		}
	}
	b.mu.Unlock()

	for _, f := range b.stack.Frames() {
		v.Trail = append(v.Trail, f.Name)
	}
	v.CanGoBack = len(v.Trail) > 0
	return v
}

// Preview returns the preview URL of the named item.
func (b *Browser) Preview(name string) (preview.URL, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.previews[name]
	return u, ok
}

// File returns the materialised media file of the named item.
func (b *Browser) File(name string) (*host.File, bool) {
	for _, f := range b.state.Files() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Select marks the named item as selected.
func (b *Browser) Select(name string) bool {
	return b.state.Select(name)
}

func (b *Browser) SetViewMode(ctx context.Context, m session.ViewMode) error {
	b.state.SetViewMode(m)
	return b.savePreferences(ctx)
}

func (b *Browser) SetItemSize(ctx context.Context, size session.ItemSize) error {
	b.state.SetItemSize(size)
	return b.savePreferences(ctx)
}

func (b *Browser) SetShowPreview(ctx context.Context, show bool) error {
	b.state.SetShowPreview(show)
	return b.savePreferences(ctx)
}

func (b *Browser) savePreferences(ctx context.Context) error {
	err := session.SavePreferences(ctx, b.settings, b.state.Preferences())
	if err != nil {
		logging.Warn("could not save preferences", zap.Error(err))
	}
	return err
}

func (b *Browser) applyPreferences(p session.Preferences) {
	b.state.SetViewMode(p.ViewMode)
	b.state.SetItemSize(p.ItemSize)
	b.state.SetShowPreview(p.ShowPreview)
}
