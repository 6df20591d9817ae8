// Package nav holds the stack of folders the user descended through.
package nav

import (
	"sync"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// Frame is one ancestor folder. Handle is nil for a placeholder folder.
type Frame struct {
	Name   string
	Key    string
	Handle host.DirectoryHandle
}

// Stack is a LIFO of ancestor frames. The current folder is never on the
// stack; it is pushed when the user descends into a child.
type Stack struct {
	mu     sync.Mutex
	frames []Frame
}

func New() *Stack {
	return &Stack{}
}

// Descend pushes current. A nil current (no folder open) pushes nothing.
func (s *Stack) Descend(current *Frame) {
	if current == nil {
		return
	}
	s.mu.Lock()
	s.frames = append(s.frames, *current)
	depth := len(s.frames)
	s.mu.Unlock()
	debug.Log(debug.NAV, "descend from %q, depth %d", current.Name, depth)
}

// Pop removes and returns the most recent frame. ok is false at the root.
func (s *Stack) Pop() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = Frame{}
	s.frames = s.frames[:len(s.frames)-1]
	debug.Log(debug.NAV, "back to %q, depth %d", f.Name, len(s.frames))
	return f, true
}

// Peek returns the most recent frame without removing it.
func (s *Stack) Peek() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Reset empties the stack, as when a new root folder is opened.
func (s *Stack) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
	debug.Log(debug.NAV, "reset")
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Frames returns a copy of the stack, oldest first.
func (s *Stack) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}
