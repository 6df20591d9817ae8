// Package fs is the local filesystem host: directory handles are absolute
// paths, and read grants live in memory for the lifetime of the process.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// Prompter is the user-facing side of the host: choosing paths and
// answering permission prompts.
type Prompter interface {
	PromptDirectory(ctx context.Context) (string, error)
	PromptFiles(ctx context.Context, accept []string) ([]string, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// Option configures a System.
type Option func(*System)

// WithDirectoryAccess enables or disables PickDirectory. Without it the host
// behaves like one that only offers a file picker.
func WithDirectoryAccess(enabled bool) Option {
	return func(s *System) { s.dirAccess = enabled }
}

// System implements host.Host over the local filesystem.
type System struct {
	prompter  Prompter
	dirAccess bool

	mu     sync.RWMutex
	grants map[string]bool
}

var _ host.Host = (*System)(nil)

func NewSystem(p Prompter, opts ...Option) *System {
	s := &System{
		prompter:  p,
		dirAccess: true,
		grants:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant records read permission for path and everything below it.
func (s *System) Grant(path string) {
	s.mu.Lock()
	s.grants[filepath.Clean(path)] = true
	s.mu.Unlock()
	debug.Log(debug.PERM, "grant %s", path)
}

// Revoke drops the grant recorded for exactly path.
func (s *System) Revoke(path string) {
	s.mu.Lock()
	delete(s.grants, filepath.Clean(path))
	s.mu.Unlock()
	debug.Log(debug.PERM, "revoke %s", path)
}

// granted reports whether path or one of its ancestors holds a grant.
func (s *System) granted(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := filepath.Clean(path); ; {
		if s.grants[p] {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

func (s *System) PickDirectory(ctx context.Context) (host.DirectoryHandle, error) {
	if !s.dirAccess {
		return nil, host.ErrUnsupported
	}
	path, err := s.prompter.PromptDirectory(ctx)
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, host.ErrAborted
	}
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return nil, err
	}
	if err := checkDir(abs); err != nil {
		return nil, err
	}
	if !readable(abs) {
		return nil, fmt.Errorf("%w: %s", host.ErrPermission, abs)
	}
	// Picking is the user gesture that grants access.
	s.Grant(abs)
	return s.dir(abs), nil
}

func (s *System) PickFiles(ctx context.Context, accept []string) ([]*host.File, error) {
	paths, err := s.prompter.PromptFiles(ctx, accept)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, host.ErrAborted
	}

	var files []*host.File
	for _, p := range paths {
		abs, err := filepath.Abs(ExpandHome(strings.TrimSpace(p)))
		if err != nil {
			continue
		}
		f, err := (&fileRef{path: abs, name: filepath.Base(abs)}).File(ctx)
		if err != nil {
			debug.Log(debug.FS, "PickFiles: skipping %s: %v", abs, err)
			continue
		}
		if acceptsType(accept, f.Type) {
			files = append(files, f)
		}
	}
	return files, nil
}

// Marshal returns the absolute path of a handle created by this system.
func (s *System) Marshal(h host.DirectoryHandle) (string, error) {
	d, ok := h.(*Dir)
	if !ok || d.sys != s {
		return "", fmt.Errorf("fs: foreign handle %T", h)
	}
	return d.path, nil
}

// Resolve turns a token back into a handle. The handle starts without a
// grant; its first permission query reports a prompt.
func (s *System) Resolve(ctx context.Context, token string) (host.DirectoryHandle, error) {
	if token == "" || !filepath.IsAbs(token) {
		return nil, fmt.Errorf("%w: bad token %q", host.ErrStale, token)
	}
	return s.dir(filepath.Clean(token)), nil
}

// Open returns a handle for path without granting anything.
func (s *System) Open(path string) (*Dir, error) {
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return nil, err
	}
	return s.dir(abs), nil
}

func (s *System) dir(path string) *Dir {
	return &Dir{sys: s, path: path, name: displayName(path)}
}

func displayName(path string) string {
	name := filepath.Base(path)
	if name == string(filepath.Separator) || name == "." || name == "" {
		return path
	}
	return name
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %s no longer exists", host.ErrStale, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrStale, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", host.ErrStale, path)
	}
	return nil
}

// Dir is a directory handle.
type Dir struct {
	sys  *System
	path string
	name string
}

func (d *Dir) Name() string    { return d.name }
func (d *Dir) Kind() host.Kind { return host.KindDirectory }
func (d *Dir) ID() string      { return d.path }
func (d *Dir) Path() string    { return d.path }

func (d *Dir) QueryPermission(ctx context.Context, mode host.Mode) (host.PermissionState, error) {
	if err := checkDir(d.path); err != nil {
		return host.PermissionDenied, err
	}
	if !readable(d.path) {
		return host.PermissionDenied, nil
	}
	if mode == host.ModeRead && d.sys.granted(d.path) {
		return host.PermissionGranted, nil
	}
	return host.PermissionPrompt, nil
}

func (d *Dir) RequestPermission(ctx context.Context, mode host.Mode) (host.PermissionState, error) {
	state, err := d.QueryPermission(ctx, mode)
	if err != nil || state != host.PermissionPrompt {
		return state, err
	}
	if mode != host.ModeRead {
		return host.PermissionDenied, nil
	}

	ok, err := d.sys.prompter.Confirm(ctx, fmt.Sprintf("Allow read access to %s?", d.path))
	if err != nil {
		if ctx.Err() != nil {
			return host.PermissionDenied, ctx.Err()
		}
		debug.Log(debug.PERM, "prompt for %s failed: %v", d.path, err)
		return host.PermissionDenied, nil
	}
	if !ok {
		return host.PermissionDenied, nil
	}
	d.sys.Grant(d.path)
	return host.PermissionGranted, nil
}

// Entries lists the immediate children, sorted by name.
func (d *Dir) Entries(ctx context.Context) ([]host.Handle, error) {
	if !d.sys.granted(d.path) {
		return nil, fmt.Errorf("%w: %s", host.ErrPermission, d.path)
	}
	if err := checkDir(d.path); err != nil {
		return nil, err
	}

	debug.Log(debug.FS, "Entries: reading %q", d.path)

	var result []host.Handle
	var mu sync.Mutex

	conf := &fastwalk.Config{
		Follow: true, // Follow symlinks to get target info
	}
	root := d.path
	rootLen := len(root)

	err := fastwalk.Walk(conf, root, func(fullPath string, de iofs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			debug.Log(debug.FS_ENTRY, "Entries: walk error at %q: %v", fullPath, err)
			return nil
		}
		if fullPath == root {
			return nil
		}

		// Only direct children
		relStart := rootLen
		if relStart < len(fullPath) && os.IsPathSeparator(fullPath[relStart]) {
			relStart++
		}
		if strings.ContainsAny(fullPath[relStart:], `/\`) {
			if de.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, de)
		if err != nil {
			// Broken symlink: fall back to the link itself
			info, err = os.Lstat(fullPath)
			if err != nil {
				debug.Log(debug.FS_ENTRY, "Entries: skipping %q: stat error: %v", de.Name(), err)
				return nil
			}
		}

		var h host.Handle
		if info.IsDir() {
			h = d.sys.dir(fullPath)
		} else {
			h = &fileRef{path: fullPath, name: de.Name(), info: info}
		}
		debug.Log(debug.FS_ENTRY, "Entries: %q dir=%v size=%d", de.Name(), info.IsDir(), info.Size())

		mu.Lock()
		result = append(result, h)
		mu.Unlock()

		if de.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, iofs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", host.ErrPermission, err)
		}
		return nil, err
	}

	// fastwalk visits children concurrently
	slices.SortFunc(result, func(a, b host.Handle) int {
		return strings.Compare(a.Name(), b.Name())
	})
	debug.Log(debug.FS, "Entries: %d children of %q", len(result), d.path)
	return result, nil
}
