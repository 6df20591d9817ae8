//go:build !debug

// Package debug is categorized trace logging for development builds.
// Release builds get these no-ops.
package debug

const Enabled = false

type Category string

const (
	APP      Category = "APP"
	FS       Category = "FS"
	STORE    Category = "STORE"
	SESSION  Category = "SESSION"
	PERM     Category = "PERM"
	PREVIEW  Category = "PREVIEW"
	NAV      Category = "NAV"
	FS_ENTRY Category = "FS_ENTRY"
)

func Log(cat Category, format string, args ...interface{}) {}

func IsEnabled(cat Category) bool { return false }

func EnableAll() {}
