//go:build debug

// Package debug is categorized trace logging for development builds.
// Build with -tags debug to compile it in.
package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled reports whether trace logging is compiled in.
const Enabled = true

// Category groups trace lines by subsystem.
type Category string

const (
	APP     Category = "APP"     // Controller: restore, open, descend, back
	FS      Category = "FS"      // Local host: picking, enumeration, grants
	STORE   Category = "STORE"   // Handle store and settings table
	SESSION Category = "SESSION" // Session cache envelope and TTL purges
	PERM    Category = "PERM"    // Permission gatekeeper transitions
	PREVIEW Category = "PREVIEW" // Preview URLs and thumbnails
	NAV     Category = "NAV"     // Navigation stack

	// Per-entry tracing, off unless asked for
	FS_ENTRY Category = "FS_ENTRY"
)

var (
	categories = map[Category]bool{
		APP:      true,
		FS:       true,
		STORE:    true,
		SESSION:  true,
		PERM:     true,
		PREVIEW:  true,
		NAV:      true,
		FS_ENTRY: false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// NEXUS_DEBUG=all | none | APP,FS,PERM
	env := strings.ToUpper(strings.TrimSpace(os.Getenv("NEXUS_DEBUG")))
	if env == "" {
		return
	}
	categoryMu.Lock()
	defer categoryMu.Unlock()
	switch env {
	case "ALL", "NONE":
		for cat := range categories {
			categories[cat] = env == "ALL"
		}
	default:
		for cat := range categories {
			categories[cat] = false
		}
		for _, cat := range strings.Split(env, ",") {
			categories[Category(strings.TrimSpace(cat))] = true
		}
	}
}

// Log writes a trace line if cat is enabled.
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	on := categories[cat]
	categoryMu.RUnlock()
	if !on {
		return
	}
	logger.Printf("[%s] %s", cat, fmt.Sprintf(format, args...))
}

// IsEnabled reports whether cat is enabled.
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return categories[cat]
}

// EnableAll turns on every category, including the verbose ones.
func EnableAll() {
	categoryMu.Lock()
	for cat := range categories {
		categories[cat] = true
	}
	categoryMu.Unlock()
}
