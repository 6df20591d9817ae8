// Package app wires the store, session cache, gatekeeper, lister, navigation
// stack and previews into the browser controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
	"github.com/justyntemme/nexus/internal/logging"
	"github.com/justyntemme/nexus/internal/metrics"
	"github.com/justyntemme/nexus/internal/nav"
	"github.com/justyntemme/nexus/internal/permission"
	"github.com/justyntemme/nexus/internal/preview"
	"github.com/justyntemme/nexus/internal/session"
)

var (
	// ErrAtRoot is returned by Back when there is nothing to go back to.
	ErrAtRoot = errors.New("app: already at the top folder")
	// ErrNoHandle means the folder cannot be read again without picking it.
	ErrNoHandle = errors.New("app: no usable handle, pick the folder again")
	// ErrNoFolder is returned when an action needs an open folder.
	ErrNoFolder = errors.New("app: no folder open")
	// ErrNotFound is returned when an item name is not in the listing.
	ErrNotFound = errors.New("app: no such item")
	// ErrNotDirectory is returned when descending into a file.
	ErrNotDirectory = errors.New("app: not a directory")
	// ErrSuperseded is returned when a newer navigation replaced this one
	// before it finished. Its results were discarded.
	ErrSuperseded = errors.New("app: superseded by a newer navigation")
)

// FallbackFolderName names the pseudo-folder built from individually picked
// files.
const FallbackFolderName = "Selected Files"

// mediaAccept is what the fallback file picker offers.
var mediaAccept = []string{"image/*", "video/*", "audio/*"}

// HandleStore persists directory handles by key.
type HandleStore interface {
	Save(ctx context.Context, key string, h host.DirectoryHandle) error
	Get(ctx context.Context, key string) (host.DirectoryHandle, bool, error)
	Delete(ctx context.Context, key string) error
}

// Options configures a Browser. Zero values select defaults.
type Options struct {
	TTL      time.Duration
	Defaults session.Preferences
	// Gallery builds per-listing previews. Nil disables previews.
	Gallery *preview.Gallery
	// Watch reloads the current folder when it changes on disk.
	Watch    bool
	Debounce time.Duration
	// Clock overrides the session clock. Used by tests.
	Clock func() time.Time
}

// Browser is the single owner of the browsing session.
type Browser struct {
	host     host.Host
	handles  HandleStore
	settings session.Settings
	cache    *session.Cache
	gate     *permission.Gatekeeper
	lister   *lister.Lister
	stack    *nav.Stack
	state    *session.State
	gallery  *preview.Gallery
	defaults session.Preferences

	// gen is bumped by every navigation action. A listing only becomes
	// visible if its generation is still current when it completes.
	gen      atomic.Int64
	listings atomic.Int64

	mu       sync.Mutex
	shown    int64
	owner    preview.Owner
	previews map[string]preview.URL
	watcher  *DirectoryWatcher
	watched  string
	closed   bool
}

// New creates a browser. The session is empty until Restore or OpenRoot.
func New(h host.Host, handles HandleStore, settings session.Settings, opts Options) *Browser {
	defaults := opts.Defaults
	if defaults == (session.Preferences{}) {
		defaults = session.DefaultPreferences()
	}

	cache := session.NewCache(settings, handles, opts.TTL)
	if opts.Clock != nil {
		cache.SetClock(opts.Clock)
	}

	b := &Browser{
		host:     h,
		handles:  handles,
		settings: settings,
		cache:    cache,
		gate:     permission.New(handles),
		lister:   lister.New(cache),
		stack:    nav.New(),
		state:    session.NewState(defaults),
		gallery:  opts.Gallery,
		defaults: defaults,
	}
	cache.OnPurge(b.clearDerived)

	if opts.Watch {
		w, err := NewDirectoryWatcher(opts.Debounce)
		if err != nil {
			logging.Warn("directory watching disabled", zap.Error(err))
		} else {
			b.watcher = w
			go b.watchLoop(w)
		}
	}
	return b
}

// Restore reopens the folder of the previous session. It reports false when
// there is nothing to restore and the landing screen should be shown. A
// folder whose handle is gone or no longer permitted is shown as a
// placeholder.
func (b *Browser) Restore(ctx context.Context) bool {
	gen := b.begin()

	env, ok := b.cache.Load(ctx)
	if !ok {
		metrics.RecordRestore("none")
		return false
	}
	b.applyPreferences(session.LoadPreferences(ctx, b.settings, b.defaults))

	ref := env.Folder
	key := ref.StoreKey()
	placeholder := session.Folder{Name: ref.Name, Key: key}
	reset := change{nav: b.stack.Reset}

	h, found, err := b.handles.Get(ctx, key)
	if err != nil {
		logging.Warn("stored handle unreadable, showing placeholder", zap.String("folder", ref.Name), zap.Error(err))
	}
	if err != nil || !found {
		metrics.RecordRestore("placeholder")
		b.publish(ctx, gen, placeholder, lister.Result{}, "", nil, reset)
		return true
	}

	d := b.gate.Check(ctx, key, h)
	if !d.Granted() {
		debug.Log(debug.APP, "restore %q: %s", ref.Name, d.State)
		metrics.RecordRestore("placeholder")
		b.publish(ctx, gen, placeholder, lister.Result{}, "", nil, reset)
		return true
	}

	metrics.RecordRestore("restored")
	if err := b.load(ctx, gen, session.Folder{Name: ref.Name, Key: key, Handle: h}, reset); err != nil {
		debug.Log(debug.APP, "restore %q: %v", ref.Name, err)
	}
	return true
}

// OpenRoot asks the user for a folder and makes it the new root. When the
// host cannot pick directories the user picks individual files instead.
// A dismissed picker leaves the session untouched and returns
// host.ErrAborted.
func (b *Browser) OpenRoot(ctx context.Context) error {
	h, err := b.host.PickDirectory(ctx)
	if errors.Is(err, host.ErrUnsupported) {
		return b.openFiles(ctx)
	}
	if err != nil {
		return err
	}

	gen := b.begin()
	folder := session.Folder{Name: h.Name(), Key: h.ID(), Handle: h}
	return b.load(ctx, gen, folder, change{nav: b.stack.Reset, record: true})
}

func (b *Browser) openFiles(ctx context.Context) error {
	files, err := b.host.PickFiles(ctx, mediaAccept)
	if err != nil {
		return err
	}

	gen := b.begin()
	res := lister.Result{}
	for _, f := range files {
		if !lister.IsMedia(f.Type) {
			continue
		}
		res.Entries = append(res.Entries, lister.Entry{Name: f.Name, Kind: host.KindFile, File: f})
		res.Files = append(res.Files, f)
	}
	debug.Log(debug.APP, "fallback: %d of %d picked files are media", len(res.Files), len(files))

	owner, previews := b.buildPreviews(ctx, res)
	if !b.publish(ctx, gen, session.Folder{Name: FallbackFolderName}, res, owner, previews, change{nav: b.stack.Reset}) {
		return ErrSuperseded
	}
	return nil
}

// Descend opens the named child directory of the current folder.
func (b *Browser) Descend(ctx context.Context, name string) error {
	var (
		gen    int64
		parent nav.Frame
		dir    host.DirectoryHandle
		err    error
	)
	b.mu.Lock()
	cur := b.state.Folder()
	entry, found := b.find(name)
	switch {
	case cur == nil:
		err = ErrNoFolder
	case !found:
		err = fmt.Errorf("%w: %q", ErrNotFound, name)
	default:
		var ok bool
		if dir, ok = entry.Directory(); ok {
			gen = b.gen.Add(1)
			parent = nav.Frame{Name: cur.Name, Key: cur.Key, Handle: cur.Handle}
		} else {
			err = fmt.Errorf("%w: %q", ErrNotDirectory, name)
		}
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}

	folder := session.Folder{Name: dir.Name(), Key: dir.ID(), Handle: dir}
	return b.load(ctx, gen, folder, change{
		nav:    func() { b.stack.Descend(&parent) },
		record: true,
	})
}

// Back returns to the parent folder.
func (b *Browser) Back(ctx context.Context) error {
	b.mu.Lock()
	frame, ok := b.stack.Peek()
	var gen int64
	if ok {
		gen = b.gen.Add(1)
	}
	b.mu.Unlock()
	if !ok {
		return ErrAtRoot
	}

	// The frame is still on top when this generation publishes: the stack
	// only changes in publish, under b.mu, for the current generation.
	pop := change{nav: func() { b.stack.Pop() }, record: true}
	folder := session.Folder{Name: frame.Name, Key: frame.Key, Handle: frame.Handle}
	if folder.Handle == nil {
		if !b.publish(ctx, gen, folder, lister.Result{}, "", nil, pop) {
			return ErrSuperseded
		}
		return nil
	}
	return b.load(ctx, gen, folder, pop)
}

// Reload lists the current folder again.
func (b *Browser) Reload(ctx context.Context) error {
	b.mu.Lock()
	cur := b.state.Folder()
	var gen int64
	if cur != nil && cur.Handle != nil {
		gen = b.gen.Add(1)
	}
	b.mu.Unlock()

	if cur == nil {
		return ErrNoFolder
	}
	if cur.Handle == nil {
		return ErrNoHandle
	}
	return b.load(ctx, gen, *cur, change{})
}

// refresh reloads the folder at path after it changed on disk. It never
// takes a generation of its own, so it loses to any navigation that started
// after the current listing was shown.
func (b *Browser) refresh(ctx context.Context, path string) error {
	b.mu.Lock()
	gen := b.gen.Load()
	cur := b.state.Folder()
	stale := b.closed || gen != b.shown || path != b.watched || cur == nil || cur.Handle == nil
	b.mu.Unlock()

	if stale {
		debug.Log(debug.APP, "skipping refresh of %s: navigation in progress", path)
		return ErrSuperseded
	}
	return b.load(ctx, gen, *cur, change{})
}

// Regrant retries access for a placeholder folder using its stored handle.
// ErrNoHandle means the handle is gone and the folder has to be picked
// again.
func (b *Browser) Regrant(ctx context.Context) error {
	cur := b.state.Folder()
	if cur == nil {
		return ErrNoFolder
	}
	if cur.Handle != nil {
		return b.Reload(ctx)
	}
	if cur.Key == "" {
		return ErrNoHandle
	}

	gen := b.begin()
	h, found, err := b.handles.Get(ctx, cur.Key)
	if err != nil {
		logging.Warn("stored handle unreadable", zap.String("key", cur.Key), zap.Error(err))
		return ErrNoHandle
	}
	if !found {
		return ErrNoHandle
	}
	d := b.gate.Check(ctx, cur.Key, h)
	switch d.State {
	case permission.Granted:
	case permission.Invalid:
		return fmt.Errorf("%w: %w", ErrNoHandle, d.Err())
	default:
		return d.Err()
	}

	folder := session.Folder{Name: cur.Name, Key: cur.Key, Handle: h}
	return b.load(ctx, gen, folder, change{record: true})
}

// ReturnToLanding forgets the session: the envelope, the stored handle, the
// navigation stack and every preview.
func (b *Browser) ReturnToLanding(ctx context.Context) error {
	b.begin()
	err := b.cache.Purge(ctx)
	b.stack.Reset()
	b.clearDerived()
	return err
}

// Close stops the watcher and releases every preview.
func (b *Browser) Close() {
	b.mu.Lock()
	b.gen.Add(1)
	b.closed = true
	w := b.watcher
	b.watcher = nil
	b.owner = ""
	b.previews = nil
	b.mu.Unlock()

	if w != nil {
		w.Close()
	}
	if b.gallery != nil {
		b.gallery.Registry().ReleaseAll()
	}
}

// begin starts a navigation action and returns its generation. Taking it
// under b.mu orders it against publish.
func (b *Browser) begin() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen.Add(1)
}

// change is what an action does besides replacing the listing. It is
// applied only if the action's listing is published.
type change struct {
	// nav edits the navigation stack.
	nav func()
	// record makes the shown folder the session folder.
	record bool
}

// remember persists the handle and records the folder as the session
// folder. Storage failures only degrade what can be restored later.
func (b *Browser) remember(ctx context.Context, folder session.Folder) {
	if folder.Handle != nil {
		if err := b.handles.Save(ctx, folder.Key, folder.Handle); err != nil {
			logging.Warn("could not store directory handle", zap.String("folder", folder.Name), zap.Error(err))
		}
	}
	if err := b.cache.Record(ctx, session.FolderRef{Name: folder.Name, Key: folder.Key}); err != nil {
		logging.Warn("could not record session folder", zap.String("folder", folder.Name), zap.Error(err))
	}
}

// load lists folder and publishes the result if gen is still current. A
// listing refused for lack of permission goes through the gatekeeper once;
// if access is not granted the folder becomes a placeholder.
func (b *Browser) load(ctx context.Context, gen int64, folder session.Folder, c change) error {
	res := b.lister.List(ctx, folder.Handle)
	if errors.Is(res.Err, host.ErrPermission) {
		d := b.gate.Check(ctx, folder.Key, folder.Handle)
		if d.Granted() {
			res = b.lister.List(ctx, folder.Handle)
		} else {
			logging.Info("folder access lost", zap.String("folder", folder.Name), zap.Stringer("state", d.State))
			folder.Handle = nil
			res = lister.Result{Err: d.Err()}
		}
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordDiscardedListing()
		return err
	}

	owner, previews := b.buildPreviews(ctx, res)
	if !b.publish(ctx, gen, folder, res, owner, previews, c) {
		return ErrSuperseded
	}
	return res.Err
}

func (b *Browser) buildPreviews(ctx context.Context, res lister.Result) (preview.Owner, map[string]preview.URL) {
	if b.gallery == nil || len(res.Files) == 0 {
		return "", nil
	}
	owner := preview.Owner(fmt.Sprintf("listing-%d", b.listings.Add(1)))
	return owner, b.gallery.Build(ctx, owner, res.Files)
}

// publish makes a listing visible and applies c. It reports false, and
// releases the listing's previews, when gen has been superseded; c is then
// dropped.
func (b *Browser) publish(ctx context.Context, gen int64, folder session.Folder, res lister.Result, owner preview.Owner, previews map[string]preview.URL, c change) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || gen != b.gen.Load() {
		debug.Log(debug.APP, "discarding listing of %q (gen %d, current %d)", folder.Name, gen, b.gen.Load())
		metrics.RecordDiscardedListing()
		if owner != "" {
			b.gallery.Registry().ReleaseOwner(owner)
		}
		return false
	}

	if c.nav != nil {
		c.nav()
	}
	if c.record {
		b.remember(ctx, folder)
	}

	if b.owner != "" && b.owner != owner {
		b.gallery.Registry().ReleaseOwner(b.owner)
	}
	b.owner = owner
	b.previews = previews
	b.shown = gen

	b.state.SetListing(&folder, res.Entries, res.Files, b.stack.Len())
	b.followLocked(folder.Handle)
	debug.Log(debug.APP, "showing %q: %d items (gen %d)", folder.Name, len(res.Entries), gen)
	return true
}

// clearDerived drops everything derived from the current session.
func (b *Browser) clearDerived() {
	b.mu.Lock()
	owner := b.owner
	b.owner = ""
	b.previews = nil
	b.followLocked(nil)
	b.mu.Unlock()

	if owner != "" {
		b.gallery.Registry().ReleaseOwner(owner)
	}
	b.state.Clear(b.defaults)
}

// LivePreviews reports how many preview URLs belong to the shown listing
// and how many are live in total.
func (b *Browser) LivePreviews() (listing, total int) {
	if b.gallery == nil {
		return 0, 0
	}
	b.mu.Lock()
	owner := b.owner
	b.mu.Unlock()
	reg := b.gallery.Registry()
	if owner != "" {
		listing = reg.LiveFor(owner)
	}
	return listing, reg.Live()
}

func (b *Browser) find(name string) (lister.Entry, bool) {
	for _, e := range b.state.Items() {
		if e.Name == name {
			return e, true
		}
	}
	return lister.Entry{}, false
}
