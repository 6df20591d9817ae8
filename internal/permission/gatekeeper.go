// Package permission decides whether a stored directory handle may still be
// read, asking the user again when the host requires it.
package permission

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/logging"
	"github.com/justyntemme/nexus/internal/metrics"
)

var (
	// ErrPermissionDenied is reported when the user refused the prompt.
	ErrPermissionDenied = errors.New("permission: denied by user")
	// ErrHandleInvalid is reported when the handle no longer works at all.
	ErrHandleInvalid = errors.New("permission: handle invalid")
)

// State is the gatekeeper's position for one handle.
type State int

const (
	Query State = iota
	Prompt
	Granted
	Rejected
	Invalid
)

func (s State) String() string {
	switch s {
	case Query:
		return "query"
	case Prompt:
		return "prompt"
	case Granted:
		return "granted"
	case Rejected:
		return "rejected"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Decision is the terminal state of a check. Cause holds the host error
// behind an Invalid decision.
type Decision struct {
	State State
	Cause error
}

// Err maps the decision to an error, nil when granted.
func (d Decision) Err() error {
	switch d.State {
	case Granted:
		return nil
	case Rejected:
		return ErrPermissionDenied
	case Invalid:
		if d.Cause != nil {
			return errors.Join(ErrHandleInvalid, d.Cause)
		}
		return ErrHandleInvalid
	}
	return ErrHandleInvalid
}

// Granted reports whether the handle may be read.
func (d Decision) Granted() bool { return d.State == Granted }

// Deleter removes handles that turned out to be invalid.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Gatekeeper runs the permission state machine.
type Gatekeeper struct {
	store Deleter
	mode  host.Mode
}

// New creates a gatekeeper asking for read access. store may be nil.
func New(store Deleter) *Gatekeeper {
	return &Gatekeeper{store: store, mode: host.ModeRead}
}

// Check queries the current permission of h and prompts when the host says
// the user has to decide. A handle whose query or request fails is Invalid
// and its stored entry under key is deleted. A Rejected handle stays stored
// so it can be offered again later.
func (g *Gatekeeper) Check(ctx context.Context, key string, h host.DirectoryHandle) Decision {
	if h == nil {
		return g.finish(key, Decision{State: Invalid, Cause: host.ErrStale})
	}

	state := Query
	for {
		debug.Log(debug.PERM, "%s: %s", h.Name(), state)
		switch state {
		case Query:
			ps, err := h.QueryPermission(ctx, g.mode)
			if err != nil {
				return g.invalidate(ctx, key, h, err)
			}
			if ps == host.PermissionGranted {
				return g.finish(key, Decision{State: Granted})
			}
			state = Prompt

		case Prompt:
			ps, err := h.RequestPermission(ctx, g.mode)
			if err != nil {
				return g.invalidate(ctx, key, h, err)
			}
			if ps == host.PermissionGranted {
				return g.finish(key, Decision{State: Granted})
			}
			return g.finish(key, Decision{State: Rejected})
		}
	}
}

func (g *Gatekeeper) invalidate(ctx context.Context, key string, h host.DirectoryHandle, cause error) Decision {
	logging.Warn("directory handle is no longer valid", zap.String("dir", h.Name()), zap.String("key", key), zap.Error(cause))
	if g.store != nil && key != "" {
		if err := g.store.Delete(ctx, key); err != nil {
			logging.Warn("could not delete invalid handle", zap.String("key", key), zap.Error(err))
		}
	}
	return g.finish(key, Decision{State: Invalid, Cause: cause})
}

func (g *Gatekeeper) finish(key string, d Decision) Decision {
	metrics.RecordPermission(d.State.String())
	debug.Log(debug.PERM, "%s: decided %s", key, d.State)
	return d
}
