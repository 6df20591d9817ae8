// Package preview manages short-lived preview URLs for media files and the
// thumbnails behind them.
package preview

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/metrics"
)

// URLPrefix starts every preview URL.
const URLPrefix = "blob:nexus/"

// ErrRevoked is returned when opening a URL that was released or never
// existed.
var ErrRevoked = errors.New("preview: url revoked")

// URL addresses one live preview.
type URL string

// Owner groups URLs released together, typically one per listing.
type Owner string

type blob struct {
	owner Owner
	name  string
	ctype string
	file  *host.File
	data  []byte
}

// Registry hands out preview URLs and tracks who owns them. Every URL must
// be released through Revoke, ReleaseOwner or ReleaseAll.
type Registry struct {
	mu    sync.Mutex
	blobs map[URL]*blob
}

func NewRegistry() *Registry {
	return &Registry{blobs: make(map[URL]*blob)}
}

func (r *Registry) add(b *blob) URL {
	u := URL(URLPrefix + uuid.NewString())
	r.mu.Lock()
	r.blobs[u] = b
	r.mu.Unlock()
	metrics.RecordPreviewCreated()
	debug.Log(debug.PREVIEW, "create %s for %q (owner %s)", u, b.name, b.owner)
	return u
}

// CreateFile returns a URL serving the content of f.
func (r *Registry) CreateFile(owner Owner, f *host.File) URL {
	return r.add(&blob{owner: owner, name: f.Name, ctype: f.Type, file: f})
}

// CreateBytes returns a URL serving data.
func (r *Registry) CreateBytes(owner Owner, name, contentType string, data []byte) URL {
	return r.add(&blob{owner: owner, name: name, ctype: contentType, data: data})
}

// Open returns the content behind u and its content type.
func (r *Registry) Open(u URL) (io.ReadCloser, string, error) {
	r.mu.Lock()
	b, ok := r.blobs[u]
	r.mu.Unlock()
	if !ok {
		return nil, "", ErrRevoked
	}
	if b.file != nil {
		rc, err := b.file.Open()
		return rc, b.ctype, err
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.ctype, nil
}

// Revoke releases u. Revoking an unknown URL is a no-op.
func (r *Registry) Revoke(u URL) {
	r.mu.Lock()
	_, ok := r.blobs[u]
	delete(r.blobs, u)
	r.mu.Unlock()
	if ok {
		metrics.RecordPreviewReleased(1)
		debug.Log(debug.PREVIEW, "revoke %s", u)
	}
}

// ReleaseOwner revokes every URL owned by owner and returns how many were
// released.
func (r *Registry) ReleaseOwner(owner Owner) int {
	r.mu.Lock()
	n := 0
	for u, b := range r.blobs {
		if b.owner == owner {
			delete(r.blobs, u)
			n++
		}
	}
	r.mu.Unlock()
	if n > 0 {
		metrics.RecordPreviewReleased(n)
		debug.Log(debug.PREVIEW, "released %d urls of %s", n, owner)
	}
	return n
}

// ReleaseAll revokes every live URL.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	n := len(r.blobs)
	r.blobs = make(map[URL]*blob)
	r.mu.Unlock()
	if n > 0 {
		metrics.RecordPreviewReleased(n)
		debug.Log(debug.PREVIEW, "released all %d urls", n)
	}
	return n
}

// Live returns the number of unreleased URLs.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}

// LiveFor returns the number of unreleased URLs owned by owner.
func (r *Registry) LiveFor(owner Owner) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.blobs {
		if b.owner == owner {
			n++
		}
	}
	return n
}

// IsURL reports whether s looks like a preview URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, URLPrefix)
}
