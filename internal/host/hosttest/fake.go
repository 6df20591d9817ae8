// Package hosttest provides in-memory host handles for tests.
package hosttest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/justyntemme/nexus/internal/host"
)

// Dir is a scriptable in-memory directory handle.
type Dir struct {
	DirName string
	DirID   string

	mu          sync.Mutex
	children    []host.Handle
	EntriesErr  error
	QueryState  host.PermissionState
	QueryErr    error
	RequestFunc func() (host.PermissionState, error)
	Queries     int
	Requests    int
	Listings    int
	// Block, when set, is waited on by Entries before returning.
	Block chan struct{}
}

// NewDir returns a granted directory with the given children.
func NewDir(name string, children ...host.Handle) *Dir {
	return &Dir{
		DirName:    name,
		DirID:      "/" + name,
		children:   children,
		QueryState: host.PermissionGranted,
	}
}

func (d *Dir) Name() string    { return d.DirName }
func (d *Dir) Kind() host.Kind { return host.KindDirectory }
func (d *Dir) ID() string      { return d.DirID }

// SetChildren replaces the directory content.
func (d *Dir) SetChildren(children ...host.Handle) {
	d.mu.Lock()
	d.children = children
	d.mu.Unlock()
}

func (d *Dir) Entries(ctx context.Context) ([]host.Handle, error) {
	d.mu.Lock()
	d.Listings++
	block := d.Block
	d.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.EntriesErr != nil {
		return nil, d.EntriesErr
	}
	out := make([]host.Handle, len(d.children))
	copy(out, d.children)
	return out, nil
}

func (d *Dir) QueryPermission(ctx context.Context, mode host.Mode) (host.PermissionState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Queries++
	return d.QueryState, d.QueryErr
}

func (d *Dir) RequestPermission(ctx context.Context, mode host.Mode) (host.PermissionState, error) {
	d.mu.Lock()
	d.Requests++
	fn := d.RequestFunc
	d.mu.Unlock()
	if fn == nil {
		return host.PermissionDenied, nil
	}
	return fn()
}

// ListingCount returns how many times Entries was called.
func (d *Dir) ListingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Listings
}

// FileEntry is an in-memory file handle.
type FileEntry struct {
	FileName string
	Type     string
	Data     []byte
	Err      error
	ModTime  time.Time
}

// NewFileEntry returns a file handle with the given content type.
func NewFileEntry(name, contentType string) *FileEntry {
	return &FileEntry{FileName: name, Type: contentType, Data: []byte(name)}
}

func (f *FileEntry) Name() string    { return f.FileName }
func (f *FileEntry) Kind() host.Kind { return host.KindFile }

func (f *FileEntry) File(ctx context.Context) (*host.File, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	data := f.Data
	return host.NewFile(f.FileName, f.Type, int64(len(data)), f.ModTime, "", func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}), nil
}

// Host is an in-memory host.Host backed by a set of directories.
type Host struct {
	mu       sync.Mutex
	Dirs     map[string]*Dir
	Picks    []*Dir
	PickErr  error
	Files    []*host.File
	FilesErr error
}

// NewHost registers dirs by ID.
func NewHost(dirs ...*Dir) *Host {
	h := &Host{Dirs: make(map[string]*Dir)}
	for _, d := range dirs {
		h.Dirs[d.DirID] = d
	}
	return h
}

// Add registers a directory so tokens naming it resolve.
func (h *Host) Add(d *Dir) {
	h.mu.Lock()
	h.Dirs[d.DirID] = d
	h.mu.Unlock()
}

// QueuePick makes the next PickDirectory return d.
func (h *Host) QueuePick(d *Dir) {
	h.mu.Lock()
	h.Picks = append(h.Picks, d)
	h.Dirs[d.DirID] = d
	h.mu.Unlock()
}

func (h *Host) PickDirectory(ctx context.Context) (host.DirectoryHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.PickErr != nil {
		return nil, h.PickErr
	}
	if len(h.Picks) == 0 {
		return nil, host.ErrAborted
	}
	d := h.Picks[0]
	h.Picks = h.Picks[1:]
	return d, nil
}

func (h *Host) PickFiles(ctx context.Context, accept []string) ([]*host.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FilesErr != nil {
		return nil, h.FilesErr
	}
	if len(h.Files) == 0 {
		return nil, host.ErrAborted
	}
	return h.Files, nil
}

func (h *Host) Marshal(d host.DirectoryHandle) (string, error) {
	if d == nil {
		return "", errors.New("hosttest: nil handle")
	}
	return d.ID(), nil
}

func (h *Host) Resolve(ctx context.Context, token string) (host.DirectoryHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.Dirs[token]
	if !ok {
		return nil, host.ErrStale
	}
	return d, nil
}
