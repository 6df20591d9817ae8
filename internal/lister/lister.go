// Package lister turns a directory handle into the ordered set of entries the
// browser shows: every subdirectory plus every image, video and audio file.
package lister

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/logging"
	"github.com/justyntemme/nexus/internal/metrics"
)

// ErrNoHandle is reported when asked to list a placeholder.
var ErrNoHandle = errors.New("lister: no directory handle")

// Toucher refreshes the "last listed" timestamp.
type Toucher interface {
	Touch(ctx context.Context) error
}

// Result is the outcome of one listing. Err is set when the directory could
// not be enumerated at all; Entries is then empty. Per-file failures never
// set Err.
type Result struct {
	Dir     host.DirectoryHandle
	Entries []Entry
	// Files is the flat list of resolved media files, in listing order,
	// used for preview navigation.
	Files []*host.File
	Err   error
	// Skipped counts files left out because their content could not be
	// resolved.
	Skipped int
}

// Lister enumerates directories. Concurrent List calls for the same directory
// share a single enumeration.
type Lister struct {
	toucher Toucher
	group   singleflight.Group
}

// New creates a Lister. toucher may be nil.
func New(toucher Toucher) *Lister {
	return &Lister{toucher: toucher}
}

// List enumerates the immediate children of dir. Entries keep the host's
// enumeration order.
func (l *Lister) List(ctx context.Context, dir host.DirectoryHandle) Result {
	if dir == nil {
		return Result{Err: ErrNoHandle}
	}

	if l.toucher != nil {
		if err := l.toucher.Touch(ctx); err != nil {
			logging.Warn("could not refresh session timestamp", zap.Error(err))
		}
	}

	ch := l.group.DoChan(dir.ID(), func() (interface{}, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// cut the others short.
		return l.list(context.WithoutCancel(ctx), dir), nil
	})

	select {
	case <-ctx.Done():
		return Result{Dir: dir, Err: ctx.Err()}
	case r := <-ch:
		res := r.Val.(Result)
		return res.clone()
	}
}

func (l *Lister) list(ctx context.Context, dir host.DirectoryHandle) Result {
	start := time.Now()
	res := Result{Dir: dir}

	children, err := dir.Entries(ctx)
	if err != nil {
		debug.Log(debug.FS, "list %q: enumeration failed: %v", dir.Name(), err)
		logging.Warn("directory could not be enumerated", zap.String("dir", dir.Name()), zap.Error(err))
		res.Err = fmt.Errorf("lister: enumerate %q: %w", dir.Name(), err)
		metrics.RecordListing("error", time.Since(start))
		return res
	}

	for _, child := range children {
		switch child.Kind() {
		case host.KindFile:
			fh, ok := child.(host.FileHandle)
			if !ok {
				continue
			}
			f, err := fh.File(ctx)
			if err != nil {
				logging.Warn("skipping unreadable file", zap.String("dir", dir.Name()), zap.String("file", child.Name()), zap.Error(err))
				metrics.RecordSkippedFile("unresolvable")
				res.Skipped++
				continue
			}
			if !IsMedia(f.Type) {
				debug.Log(debug.FS_ENTRY, "list %q: filtered %q (%s)", dir.Name(), f.Name, f.Type)
				metrics.RecordSkippedFile("unsupported")
				continue
			}
			res.Entries = append(res.Entries, Entry{Name: f.Name, Kind: host.KindFile, File: f, Handle: child})
			res.Files = append(res.Files, f)

		case host.KindDirectory:
			res.Entries = append(res.Entries, Entry{Name: child.Name(), Kind: host.KindDirectory, Handle: child})
		}
	}

	result := "ok"
	if len(res.Entries) == 0 {
		result = "empty"
	}
	metrics.RecordListing(result, time.Since(start))
	debug.Log(debug.FS, "list %q: %d entries, %d media files, %d skipped", dir.Name(), len(res.Entries), len(res.Files), res.Skipped)
	return res
}

func (r Result) clone() Result {
	out := r
	if r.Entries != nil {
		out.Entries = append([]Entry(nil), r.Entries...)
	}
	if r.Files != nil {
		out.Files = append([]*host.File(nil), r.Files...)
	}
	return out
}
