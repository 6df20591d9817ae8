package search

import (
	"testing"
	"time"

	"github.com/justyntemme/nexus/internal/host"
	"github.com/justyntemme/nexus/internal/host/hosttest"
	"github.com/justyntemme/nexus/internal/lister"
)

func fileEntry(name, contentType string, size int64, mod time.Time) lister.Entry {
	f := host.NewFile(name, contentType, size, mod, "", nil)
	return lister.Entry{Name: name, Kind: host.KindFile, File: f}
}

func dirEntry(name string) lister.Entry {
	return lister.Entry{Name: name, Kind: host.KindDirectory, Handle: hosttest.NewDir(name)}
}

func entryNames(entries []lister.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func equalNames(got []lister.Entry, want ...string) bool {
	names := entryNames(got)
	if len(names) != len(want) {
		return false
	}
	for i := range want {
		if names[i] != want[i] {
			return false
		}
	}
	return true
}

func TestParse_Empty(t *testing.T) {
	q := Parse("")
	if !q.IsEmpty() {
		t.Errorf("expected empty query, got %d directives", len(q.Directives))
	}
	if q.Raw != "" {
		t.Errorf("expected empty raw, got %q", q.Raw)
	}
}

func TestParse_SimpleName(t *testing.T) {
	q := Parse("beach.jpg")
	if len(q.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(q.Directives))
	}
	d := q.Directives[0]
	if d.Type != DirName || d.Value != "beach.jpg" {
		t.Errorf("expected name directive 'beach.jpg', got %d %q", d.Type, d.Value)
	}
}

func TestParse_KindDirective(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"kind:image", KindImage},
		{"kind:Photos", KindImage},
		{"is:video", KindVideo},
		{"type:music", KindAudio},
		{"kind:folder", KindDir},
		{"kind:whatever", KindAll},
	}

	for _, tc := range testCases {
		q := Parse(tc.input)
		if len(q.Directives) != 1 {
			t.Fatalf("input %q: expected 1 directive, got %d", tc.input, len(q.Directives))
		}
		d := q.Directives[0]
		if d.Type != DirKind || d.Value != tc.expected {
			t.Errorf("input %q: expected kind %q, got %d %q", tc.input, tc.expected, d.Type, d.Value)
		}
	}
}

func TestParse_ExtDirective(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"ext:jpg", ".jpg"},
		{"ext:.PNG", ".png"},
		{"extension:mp4", ".mp4"},
	}

	for _, tc := range testCases {
		d := Parse(tc.input).Directives[0]
		if d.Type != DirExt || d.Value != tc.expected {
			t.Errorf("input %q: expected ext %q, got %d %q", tc.input, tc.expected, d.Type, d.Value)
		}
	}
}

func TestParse_ModifiedRelative(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"modified:today", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"modified:yesterday", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"modified:>week", fixed.AddDate(0, 0, -7)},
		{"modified:>month", fixed.AddDate(0, -1, 0)},
	}

	for _, tc := range testCases {
		d := Parse(tc.input).Directives[0]
		if !d.TimeVal.Equal(tc.expected) {
			t.Errorf("input %q: expected %v, got %v", tc.input, tc.expected, d.TimeVal)
		}
	}
}

func TestParse_MultipleDirectives(t *testing.T) {
	q := Parse("*.jpg kind:image ext:jpg size:>1KB")
	expected := []DirectiveType{DirName, DirKind, DirExt, DirSize}
	if len(q.Directives) != len(expected) {
		t.Fatalf("expected %d directives, got %d", len(expected), len(q.Directives))
	}
	for i, d := range q.Directives {
		if d.Type != expected[i] {
			t.Errorf("directive %d: expected type %d, got %d", i, expected[i], d.Type)
		}
	}
}

func TestParse_QuotedValues(t *testing.T) {
	q := Parse(`name:"summer trip" kind:video`)
	if len(q.Directives) != 2 || q.Directives[0].Value != "summer trip" {
		t.Errorf("unexpected directives %+v", q.Directives)
	}
}

func TestParse_SizeDirective(t *testing.T) {
	testCases := []struct {
		input      string
		expectedOp Operator
		expectedSz int64
	}{
		{"size:>1KB", OpGreater, 1024},
		{"size:<10MB", OpLess, 10 * 1024 * 1024},
		{"size:>=1GB", OpGreaterEq, 1024 * 1024 * 1024},
		{"size:<=500B", OpLessEq, 500},
		{"size:=1024", OpEquals, 1024},
		{"size:2048", OpEquals, 2048}, // No operator means equals
	}

	for _, tc := range testCases {
		q := Parse(tc.input)
		if len(q.Directives) != 1 {
			t.Fatalf("input %q: expected 1 directive, got %d", tc.input, len(q.Directives))
		}
		d := q.Directives[0]
		if d.Type != DirSize {
			t.Errorf("input %q: expected DirSize, got %d", tc.input, d.Type)
		}
		if d.Operator != tc.expectedOp {
			t.Errorf("input %q: expected operator %d, got %d", tc.input, tc.expectedOp, d.Operator)
		}
		if d.NumValue != tc.expectedSz {
			t.Errorf("input %q: expected size %d, got %d", tc.input, tc.expectedSz, d.NumValue)
		}
	}
}

func TestParse_ModifiedDirective(t *testing.T) {
	testCases := []struct {
		input      string
		expectedOp Operator
		checkDate  func(t time.Time) bool
	}{
		{
			"modified:>2024-01-01",
			OpGreater,
			func(t time.Time) bool { return t.Year() == 2024 && t.Month() == 1 && t.Day() == 1 },
		},
		{
			"date:<2023-06-15",
			OpLess,
			func(t time.Time) bool { return t.Year() == 2023 && t.Month() == 6 && t.Day() == 15 },
		},
	}

	for _, tc := range testCases {
		q := Parse(tc.input)
		if len(q.Directives) != 1 {
			t.Fatalf("input %q: expected 1 directive, got %d", tc.input, len(q.Directives))
		}
		d := q.Directives[0]
		if d.Type != DirModified {
			t.Errorf("input %q: expected DirModified, got %d", tc.input, d.Type)
		}
		if d.Operator != tc.expectedOp {
			t.Errorf("input %q: expected operator %d, got %d", tc.input, tc.expectedOp, d.Operator)
		}
		if !tc.checkDate(d.TimeVal) {
			t.Errorf("input %q: date check failed, got %v", tc.input, d.TimeVal)
		}
	}
}

func TestSplitRespectingQuotes(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{"foo bar baz", []string{"foo", "bar", "baz"}},
		{`"foo bar" baz`, []string{"foo bar", "baz"}},
		{`'foo bar' baz`, []string{"foo bar", "baz"}},
		{`foo "bar baz"`, []string{"foo", "bar baz"}},
		{"", []string{}},
		{"single", []string{"single"}},
	}

	for _, tc := range testCases {
		result := splitRespectingQuotes(tc.input)
		if len(result) != len(tc.expected) {
			t.Fatalf("input %q: expected %d parts, got %d: %v", tc.input, len(tc.expected), len(result), result)
		}
		for i, p := range result {
			if p != tc.expected[i] {
				t.Errorf("input %q: part %d: expected %q, got %q", tc.input, i, tc.expected[i], p)
			}
		}
	}
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"1KB", 1024},
		{"1kb", 1024},
		{"10MB", 10 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"500B", 500},
		{"1.5MB", int64(1.5 * 1024 * 1024)},
		{"invalid", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		result := parseSize(tc.input)
		if result != tc.expected {
			t.Errorf("parseSize(%q): expected %d, got %d", tc.input, tc.expected, result)
		}
	}
}

func TestParseOperator(t *testing.T) {
	testCases := []struct {
		input       string
		expectedOp  Operator
		expectedVal string
	}{
		{">100", OpGreater, "100"},
		{"<50", OpLess, "50"},
		{">=200", OpGreaterEq, "200"},
		{"<=300", OpLessEq, "300"},
		{"=400", OpEquals, "400"},
		{"500", OpEquals, "500"},
	}

	for _, tc := range testCases {
		op, val := parseOperator(tc.input)
		if op != tc.expectedOp {
			t.Errorf("parseOperator(%q): expected op %d, got %d", tc.input, tc.expectedOp, op)
		}
		if val != tc.expectedVal {
			t.Errorf("parseOperator(%q): expected val %q, got %q", tc.input, tc.expectedVal, val)
		}
	}
}

func TestMatchGlob(t *testing.T) {
	testCases := []struct {
		name     string
		pattern  string
		expected bool
	}{
		// Substring match (no wildcards)
		{"test.go", "test", true},
		{"test.go", "go", true},
		{"test.go", "txt", false},

		// Wildcard matches
		{"test.go", "*.go", true},
		{"test.go", "test.*", true},
		{"test.go", "*", true},
		{"test.go", "*.txt", false},
		{"main.go", "*.go", true},
		{"hello_world.go", "*_*", true},
		{"helloworld.go", "*_*", false},

		// Prefix/suffix wildcards
		{"prefix_file.txt", "prefix_*", true},
		{"file_suffix.txt", "*_suffix.txt", true},
	}

	for _, tc := range testCases {
		result := MatchGlob(tc.name, tc.pattern)
		if result != tc.expected {
			t.Errorf("MatchGlob(%q, %q): expected %v, got %v", tc.name, tc.pattern, tc.expected, result)
		}
	}
}

func TestCompareInt(t *testing.T) {
	testCases := []struct {
		val      int64
		target   int64
		op       Operator
		expected bool
	}{
		{100, 50, OpGreater, true},
		{50, 100, OpGreater, false},
		{100, 100, OpGreater, false},

		{50, 100, OpLess, true},
		{100, 50, OpLess, false},
		{100, 100, OpLess, false},

		{100, 100, OpGreaterEq, true},
		{101, 100, OpGreaterEq, true},
		{99, 100, OpGreaterEq, false},

		{100, 100, OpLessEq, true},
		{99, 100, OpLessEq, true},
		{101, 100, OpLessEq, false},

		{100, 100, OpEquals, true},
		{99, 100, OpEquals, false},
	}

	for _, tc := range testCases {
		result := CompareInt(tc.val, tc.target, tc.op)
		if result != tc.expected {
			t.Errorf("CompareInt(%d, %d, %d): expected %v, got %v", tc.val, tc.target, tc.op, tc.expected, result)
		}
	}
}

func TestCompareTime(t *testing.T) {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	before := base.Add(-24 * time.Hour)
	after := base.Add(24 * time.Hour)

	testCases := []struct {
		val      time.Time
		target   time.Time
		op       Operator
		expected bool
	}{
		{after, base, OpGreater, true},
		{before, base, OpGreater, false},
		{base, base, OpGreater, false},

		{before, base, OpLess, true},
		{after, base, OpLess, false},
		{base, base, OpLess, false},

		{after, base, OpGreaterEq, true},
		{base, base, OpGreaterEq, true},
		{before, base, OpGreaterEq, false},

		{before, base, OpLessEq, true},
		{base, base, OpLessEq, true},
		{after, base, OpLessEq, false},
	}

	for _, tc := range testCases {
		result := CompareTime(tc.val, tc.target, tc.op)
		if result != tc.expected {
			t.Errorf("CompareTime(%v, %v, %d): expected %v, got %v", tc.val, tc.target, tc.op, tc.expected, result)
		}
	}
}

func TestMatcher_Match(t *testing.T) {
	mod := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	photo := fileEntry("Beach.JPG", "image/jpeg", 2048, mod)
	clip := fileEntry("clip.mp4", "video/mp4", 10*1024*1024, mod)
	song := fileEntry("song.mp3", "audio/mpeg", 100, mod.AddDate(-1, 0, 0))
	folder := dirEntry("beach trip")

	testCases := []struct {
		query    string
		entry    lister.Entry
		expected bool
	}{
		{"beach", photo, true},
		{"beach", folder, true},
		{"*.jpg", photo, true},
		{"*.jpg", clip, false},

		{"kind:image", photo, true},
		{"kind:image", clip, false},
		{"kind:image", folder, true},
		{"kind:dir", folder, true},
		{"kind:dir", photo, false},

		{"ext:jpg", photo, true},
		{"ext:jpg", folder, false},

		{"size:>1KB", photo, true},
		{"size:>1MB", photo, false},
		{"size:>=10MB", clip, true},
		{"size:>0", folder, false},

		{"modified:>2024-01-01", photo, true},
		{"modified:>2024-01-01", song, false},
		{"modified:2024-06-15", photo, true},
		{"modified:>2024-01-01", folder, false},

		{"beach kind:image size:<1MB", photo, true},
		{"beach kind:video", photo, false},
	}

	for _, tc := range testCases {
		m := NewMatcher(Parse(tc.query))
		if got := m.Match(tc.entry); got != tc.expected {
			t.Errorf("Match(%q, %s): expected %v, got %v", tc.query, tc.entry.Name, tc.expected, got)
		}
	}
}

func TestFilter(t *testing.T) {
	entries := []lister.Entry{
		fileEntry("a.png", "image/png", 1, time.Time{}),
		dirEntry("sub"),
		fileEntry("b.mp4", "video/mp4", 1, time.Time{}),
		fileEntry("c.mp3", "audio/mpeg", 1, time.Time{}),
	}

	if got := Filter(entries, ""); !equalNames(got, "a.png", "sub", "b.mp4", "c.mp3") {
		t.Errorf("empty query should keep everything, got %v", entryNames(got))
	}
	if got := Filter(entries, "kind:video"); !equalNames(got, "sub", "b.mp4") {
		t.Errorf("kind:video should keep directories and videos, got %v", entryNames(got))
	}
	if got := Filter(entries, "B"); !equalNames(got, "sub", "b.mp4") {
		t.Errorf("name search should be case-insensitive, got %v", entryNames(got))
	}
}

func TestSort(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []lister.Entry{
		fileEntry("b.png", "image/png", 300, t1.Add(time.Hour)),
		dirEntry("Zeta"),
		fileEntry("a.mp4", "video/mp4", 100, t1),
		fileEntry("C.mp3", "audio/mpeg", 200, t1.Add(2*time.Hour)),
	}

	testCases := []struct {
		by   SortBy
		asc  bool
		want []string
	}{
		{SortByName, true, []string{"a.mp4", "b.png", "C.mp3", "Zeta"}},
		{SortByName, false, []string{"Zeta", "C.mp3", "b.png", "a.mp4"}},
		{SortBySize, true, []string{"Zeta", "a.mp4", "C.mp3", "b.png"}},
		{SortByDate, false, []string{"C.mp3", "b.png", "a.mp4", "Zeta"}},
		{SortByType, true, []string{"C.mp3", "Zeta", "b.png", "a.mp4"}},
	}

	for _, tc := range testCases {
		got := Sort(entries, tc.by, tc.asc)
		if !equalNames(got, tc.want...) {
			t.Errorf("Sort(%s, asc=%v): expected %v, got %v", tc.by, tc.asc, tc.want, entryNames(got))
		}
	}
	if entries[0].Name != "b.png" {
		t.Error("Sort must not reorder its input")
	}
}

func TestSort_StableOnTies(t *testing.T) {
	entries := []lister.Entry{dirEntry("x"), dirEntry("y"), dirEntry("z")}
	if got := Sort(entries, SortBySize, true); !equalNames(got, "x", "y", "z") {
		t.Errorf("equal keys should keep listing order, got %v", entryNames(got))
	}
}

func TestParseSortBy(t *testing.T) {
	if by, err := ParseSortBy("Date"); err != nil || by != SortByDate {
		t.Errorf("expected date, got %q %v", by, err)
	}
	if _, err := ParseSortBy("colour"); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestSummarize(t *testing.T) {
	entries := []lister.Entry{
		fileEntry("a.png", "image/png", 10, time.Time{}),
		fileEntry("b.jpg", "image/jpeg", 20, time.Time{}),
		fileEntry("c.mp4", "video/mp4", 30, time.Time{}),
		fileEntry("d.flac", "audio/flac", 40, time.Time{}),
		dirEntry("sub"),
	}
	want := Stats{Total: 5, Files: 4, Directories: 1, Images: 2, Videos: 1, Audio: 1, Bytes: 100}
	if got := Summarize(entries); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
