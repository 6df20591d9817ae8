// Package session keeps the "last folder" envelope that lets the browser
// reopen where the user left off, and the in-memory state of the current
// browsing session.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/logging"
)

// DefaultTTL is how long a recorded folder stays restorable.
const DefaultTTL = time.Hour

// Settings keys.
const (
	keyFolder      = "session.folder"
	keyTimestamp   = "session.timestamp"
	keyPreferences = "session.preferences"
)

// Settings is the key/value storage the cache persists to.
type Settings interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSettings(ctx context.Context, keys ...string) error
}

// HandleDeleter removes a stored directory handle.
type HandleDeleter interface {
	Delete(ctx context.Context, key string) error
}

// FolderRef identifies the last opened folder. Key is the handle store key;
// records written before keys existed carry only Name.
type FolderRef struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

// StoreKey returns the handle store key for the folder.
func (r FolderRef) StoreKey() string {
	if r.Key != "" {
		return r.Key
	}
	return r.Name
}

// Envelope is the persisted folder reference plus the time it was last
// refreshed.
type Envelope struct {
	Folder    FolderRef
	Timestamp time.Time
}

// Cache reads and writes the session envelope.
type Cache struct {
	settings Settings
	handles  HandleDeleter
	ttl      time.Duration

	mu      sync.Mutex
	now     func() time.Time
	onPurge []func()
}

// NewCache creates a cache. handles may be nil. A non-positive ttl selects
// DefaultTTL.
func NewCache(settings Settings, handles HandleDeleter, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		settings: settings,
		handles:  handles,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// OnPurge registers fn to run after every purge, so derived state can be
// cleared together with the envelope.
func (c *Cache) OnPurge(fn func()) {
	c.mu.Lock()
	c.onPurge = append(c.onPurge, fn)
	c.mu.Unlock()
}

// TTL returns the configured lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) clock() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

// Record stores ref as the current folder and stamps it with the current
// time.
func (c *Cache) Record(ctx context.Context, ref FolderRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	if err := c.settings.SetSetting(ctx, keyFolder, string(data)); err != nil {
		return err
	}
	debug.Log(debug.SESSION, "recorded folder %q (%s)", ref.Name, ref.StoreKey())
	return c.Touch(ctx)
}

// Touch refreshes the timestamp only.
func (c *Cache) Touch(ctx context.Context) error {
	ms := c.clock().UnixMilli()
	return c.settings.SetSetting(ctx, keyTimestamp, strconv.FormatInt(ms, 10))
}

// Load returns the envelope while it is younger than the TTL. An expired or
// partially written envelope is purged and reported as absent. Storage
// failures are reported as absent too.
func (c *Cache) Load(ctx context.Context) (Envelope, bool) {
	rawFolder, hasFolder, err := c.settings.Setting(ctx, keyFolder)
	if err != nil {
		logging.Warn("session folder unreadable, starting fresh", zap.Error(err))
		return Envelope{}, false
	}
	rawTS, hasTS, err := c.settings.Setting(ctx, keyTimestamp)
	if err != nil {
		logging.Warn("session timestamp unreadable, starting fresh", zap.Error(err))
		return Envelope{}, false
	}

	if !hasFolder && !hasTS {
		return Envelope{}, false
	}

	var ref FolderRef
	folderOK := hasFolder && json.Unmarshal([]byte(rawFolder), &ref) == nil && ref.Name != ""
	ms, tsErr := strconv.ParseInt(rawTS, 10, 64)
	tsOK := hasTS && tsErr == nil

	if !folderOK || !tsOK {
		debug.Log(debug.SESSION, "partial envelope (folder=%v timestamp=%v), purging", folderOK, tsOK)
		c.purge(ctx, ref)
		return Envelope{}, false
	}

	env := Envelope{Folder: ref, Timestamp: time.UnixMilli(ms)}
	age := c.clock().Sub(env.Timestamp)
	if age >= c.ttl {
		debug.Log(debug.SESSION, "envelope for %q expired (age %s), purging", ref.Name, age)
		c.purge(ctx, ref)
		return Envelope{}, false
	}

	debug.Log(debug.SESSION, "restorable folder %q (age %s)", ref.Name, age)
	return env, true
}

// Purge removes the envelope, persisted preferences and the handle recorded
// for the current folder, then runs the purge hooks.
func (c *Cache) Purge(ctx context.Context) error {
	var ref FolderRef
	if raw, ok, err := c.settings.Setting(ctx, keyFolder); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &ref)
	}
	return c.purge(ctx, ref)
}

func (c *Cache) purge(ctx context.Context, ref FolderRef) error {
	err := c.settings.DeleteSettings(ctx, keyFolder, keyTimestamp, keyPreferences)
	if err != nil {
		logging.Warn("could not clear session settings", zap.Error(err))
	}
	if c.handles != nil && ref.StoreKey() != "" {
		if herr := c.handles.Delete(ctx, ref.StoreKey()); herr != nil {
			logging.Warn("could not delete stored handle", zap.String("key", ref.StoreKey()), zap.Error(herr))
			if err == nil {
				err = herr
			}
		}
	}

	c.mu.Lock()
	hooks := append([]func(){}, c.onPurge...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return err
}
