// Package search filters, sorts and summarises directory listings.
package search

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/lister"
)

// Directive types
type DirectiveType int

const (
	DirName DirectiveType = iota
	DirKind
	DirExt
	DirSize
	DirModified
)

// Comparison operators for size/date
type Operator int

const (
	OpNone Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
	OpEquals
)

// Kind filters for the kind: directive
const (
	KindAll   = "all"
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
	KindDir   = "dir"
)

// Directive represents a single search directive
type Directive struct {
	Type     DirectiveType
	Value    string
	Operator Operator
	NumValue int64     // Parsed size in bytes
	TimeVal  time.Time // Parsed date
}

// Query holds parsed search directives
type Query struct {
	Directives []Directive
	Raw        string
}

// now is the clock relative dates are resolved against.
var now = time.Now

// Parse parses a search string into directives
// Examples:
//   - "beach" -> name:beach
//   - "kind:video" -> videos (directories still shown)
//   - "ext:jpg" -> files with .jpg extension
//   - "size:>1MB" -> files larger than 1MB
//   - "modified:>2024-01-01" -> files modified after Jan 1, 2024
func Parse(input string) *Query {
	q := &Query{Raw: input}
	input = strings.TrimSpace(input)
	if input == "" {
		return q
	}

	for _, part := range splitRespectingQuotes(input) {
		q.Directives = append(q.Directives, parseDirective(part))
	}
	return q
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseDirective(s string) Directive {
	if idx := strings.Index(s, ":"); idx > 0 {
		directive := strings.ToLower(s[:idx])
		value := strings.Trim(s[idx+1:], "\"'")

		switch directive {
		case "name", "filename", "file":
			return Directive{Type: DirName, Value: value}

		case "kind", "is", "type":
			return Directive{Type: DirKind, Value: normalizeKind(value)}

		case "ext", "extension":
			if !strings.HasPrefix(value, ".") {
				value = "." + value
			}
			return Directive{Type: DirExt, Value: strings.ToLower(value)}

		case "size":
			op, numStr := parseOperator(value)
			return Directive{Type: DirSize, Value: value, Operator: op, NumValue: parseSize(numStr)}

		case "modified", "date", "mtime":
			op, dateStr := parseOperator(value)
			return Directive{Type: DirModified, Value: value, Operator: op, TimeVal: parseDate(dateStr)}
		}
	}

	return Directive{Type: DirName, Value: s}
}

func normalizeKind(v string) string {
	switch strings.ToLower(v) {
	case "image", "images", "photo", "photos":
		return KindImage
	case "video", "videos":
		return KindVideo
	case "audio", "music", "sound":
		return KindAudio
	case "dir", "dirs", "folder", "folders", "directory":
		return KindDir
	}
	return KindAll
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize converts size strings like "1KB", "10MB", "1GB" to bytes
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(multiplier))
}

// parseDate parses date strings like "2024-01-01", "2024-01", "today", "yesterday"
func parseDate(s string) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))
	t := now()

	switch s {
	case "today":
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case "yesterday":
		y, m, d := t.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case "week":
		return t.AddDate(0, 0, -7)
	case "month":
		return t.AddDate(0, -1, 0)
	case "year":
		return t.AddDate(-1, 0, 0)
	}

	formats := []string{
		"2006-01-02",
		"2006-01",
		"2006/01/02",
		"01/02/2006",
	}
	for _, layout := range formats {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Matcher evaluates entries against a query
type Matcher struct {
	query *Query
}

func NewMatcher(q *Query) *Matcher {
	return &Matcher{query: q}
}

// Match checks if an entry matches all directives in the query (AND logic).
// Directories carry no file metadata: they pass media kind filters so the
// user can keep navigating, and fail ext, size and modified filters.
func (m *Matcher) Match(e lister.Entry) bool {
	for _, d := range m.query.Directives {
		if !m.matchDirective(d, e) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchDirective(d Directive, e lister.Entry) bool {
	isDir := e.Kind == host.KindDirectory

	switch d.Type {
	case DirName:
		return MatchGlob(strings.ToLower(e.Name), strings.ToLower(d.Value))

	case DirKind:
		switch d.Value {
		case KindDir:
			return isDir
		case KindAll:
			return true
		}
		if isDir {
			return true
		}
		return e.Media().String() == d.Value

	case DirExt:
		return !isDir && strings.ToLower(path.Ext(e.Name)) == d.Value

	case DirSize:
		if isDir || e.File == nil {
			return false
		}
		return CompareInt(e.File.Size, d.NumValue, d.Operator)

	case DirModified:
		if d.TimeVal.IsZero() {
			return true
		}
		if isDir || e.File == nil {
			return false
		}
		return CompareTime(e.File.ModTime, d.TimeVal, d.Operator)
	}
	return true
}

// Filter returns the entries matching query, in their original order.
func Filter(entries []lister.Entry, query string) []lister.Entry {
	q := Parse(query)
	if q.IsEmpty() {
		return append([]lister.Entry(nil), entries...)
	}
	m := NewMatcher(q)
	out := make([]lister.Entry, 0, len(entries))
	for _, e := range entries {
		if m.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// MatchGlob does simple glob matching with * wildcards
func MatchGlob(name, pattern string) bool {
	// If pattern has no wildcards, do substring match
	if !strings.Contains(pattern, "*") {
		return strings.Contains(name, pattern)
	}

	parts := strings.Split(pattern, "*")

	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(name, last) {
		return false
	}

	// Check middle parts exist in order
	pos := len(parts[0])
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return pos <= len(name)-len(last)
}

func CompareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func CompareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return val.After(target) || val.Equal(target)
	case OpLessEq:
		return val.Before(target) || val.Equal(target)
	default:
		// For equals, compare just the date part
		vy, vm, vd := val.Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}

// IsEmpty returns true if query has no directives
func (q *Query) IsEmpty() bool {
	return len(q.Directives) == 0
}
