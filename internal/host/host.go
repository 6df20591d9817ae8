// Package host describes the capability surface the browser needs from its
// environment: picking a directory, enumerating it, materialising file
// content and asking for read permission. Implementations live elsewhere
// (see internal/fs for the local filesystem one).
package host

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrAborted is returned when the user dismissed a picker.
	ErrAborted = errors.New("host: aborted by user")
	// ErrUnsupported is returned when the host cannot pick directories.
	// Callers fall back to PickFiles.
	ErrUnsupported = errors.New("host: directory access not supported")
	// ErrPermission is returned when an operation needs a grant that is not held.
	ErrPermission = errors.New("host: permission not granted")
	// ErrStale is returned when a handle no longer resolves to anything.
	ErrStale = errors.New("host: handle is stale")
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Mode is the access level asked for in a permission query.
type Mode string

const (
	ModeRead      Mode = "read"
	ModeReadWrite Mode = "readwrite"
)

// PermissionState is what a host reports for a permission query or request.
type PermissionState int

const (
	PermissionPrompt PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "prompt"
	}
}

// Handle is any entry handed out by the host.
type Handle interface {
	Name() string
	Kind() Kind
}

// DirectoryHandle is a capability token for a directory. The grant behind it
// can be revoked by the host at any time.
type DirectoryHandle interface {
	Handle
	// ID is a stable identity for the directory, unique within the host.
	// Two directories sharing a Name have different IDs.
	ID() string
	// Entries returns the immediate children. No ordering is guaranteed.
	Entries(ctx context.Context) ([]Handle, error)
	QueryPermission(ctx context.Context, mode Mode) (PermissionState, error)
	RequestPermission(ctx context.Context, mode Mode) (PermissionState, error)
}

// FileHandle is a handle to a single file.
type FileHandle interface {
	Handle
	File(ctx context.Context) (*File, error)
}

// File is materialised file content plus its metadata.
type File struct {
	Name    string
	Type    string // content type without parameters, "" if unknown
	Size    int64
	ModTime time.Time
	// Path is the host-local path backing the content, empty if none.
	Path string

	open func() (io.ReadCloser, error)
}

// NewFile builds a File whose content is produced by open.
func NewFile(name, contentType string, size int64, modTime time.Time, path string, open func() (io.ReadCloser, error)) *File {
	return &File{
		Name:    name,
		Type:    contentType,
		Size:    size,
		ModTime: modTime,
		Path:    path,
		open:    open,
	}
}

// Open returns a reader over the file content.
func (f *File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, ErrStale
	}
	return f.open()
}

// Picker is the user-gesture side of the host.
type Picker interface {
	PickDirectory(ctx context.Context) (DirectoryHandle, error)
	// PickFiles is the one-shot fallback used when directory access is
	// unavailable. accept holds content-type patterns such as "image/*".
	PickFiles(ctx context.Context, accept []string) ([]*File, error)
}

// Resolver turns directory handles into opaque tokens and back, so they can
// be persisted. Resolve does not validate the grant; that happens on the
// next permission query.
type Resolver interface {
	Marshal(h DirectoryHandle) (string, error)
	Resolve(ctx context.Context, token string) (DirectoryHandle, error)
}

// Host is the full capability surface.
type Host interface {
	Picker
	Resolver
}

// Locator is implemented by handles that are backed by a local path.
type Locator interface {
	Path() string
}
