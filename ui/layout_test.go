package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/readertest"
)

func TestBuildLayout(t *testing.T) {
	ch := readertest.Chapter("c1", 2, 0, 1)
	idx := reader.NewIndex(ch.Pages)
	l := buildLayout(idx, 60, highlight{active: "p0b1", word: -1})

	wantTops := map[string]int{"p0b0": 2, "p0b1": 5, "p2b0": 14}
	if len(l.blocks) != len(wantTops) {
		t.Fatalf("got %d blocks, want %d", len(l.blocks), len(wantTops))
	}
	for id, top := range wantTops {
		b := l.blocks[l.byID[id]]
		if b.top != top || b.bottom != top+2 {
			t.Errorf("%s spans [%d, %d), want [%d, %d)", id, b.top, b.bottom, top, top+2)
		}
	}
	if got := l.pageTop; len(got) != 3 || got[0] != 0 || got[1] != 8 || got[2] != 12 {
		t.Errorf("page tops = %v", got)
	}

	plain := ansi.Strip(l.content())
	if !strings.Contains(plain, "no bubbles yet") {
		t.Error("empty page not marked")
	}
	if !strings.Contains(plain, "Page 3") {
		t.Error("page header missing")
	}
	if !strings.Contains(ansi.Strip(l.lines[5]), "▌") {
		t.Errorf("active bubble not marked: %q", l.lines[5])
	}
	if strings.Contains(ansi.Strip(l.lines[2]), "▌") {
		t.Errorf("inactive bubble marked: %q", l.lines[2])
	}
}

func TestLayoutBlockAt(t *testing.T) {
	idx := reader.NewIndex(readertest.Chapter("c1", 2).Pages)
	l := buildLayout(idx, 60, highlight{word: -1})

	tests := []struct {
		row  int
		want string
	}{
		{0, ""},
		{2, "p0b0"},
		{3, "p0b0"},
		{4, ""},
		{6, "p0b1"},
		{100, ""},
	}
	for _, tt := range tests {
		b, ok := l.blockAt(tt.row)
		if got := b.id; ok != (tt.want != "") || got != tt.want {
			t.Errorf("blockAt(%d) = %q, %v; want %q", tt.row, got, ok, tt.want)
		}
	}
}

func TestLayoutGeometry(t *testing.T) {
	idx := reader.NewIndex(readertest.Chapter("c1", 2).Pages)
	l := buildLayout(idx, 60, highlight{word: -1})

	g, ok := l.geometry("p0b1", 10)
	if !ok {
		t.Fatal("no geometry for p0b1")
	}
	if g.Box[1] != 5 || g.Box[3] != 7 {
		t.Errorf("box = %v", g.Box)
	}
	if g.ImageHeight != float64(len(l.lines)) || g.ContentHeight != g.ImageHeight || g.Viewport != 10 {
		t.Errorf("geometry = %+v", g)
	}
	if _, ok := l.geometry("nope", 10); ok {
		t.Error("geometry for unknown bubble")
	}
}

func TestLayoutWrapsText(t *testing.T) {
	ch := readertest.Chapter("c1", 1)
	ch.Pages[0].Items[0].Text = strings.Repeat("word ", 40)
	idx := reader.NewIndex(ch.Pages)

	for _, width := range []int{0, 20, 40, 80} {
		l := buildLayout(idx, width, highlight{word: -1})
		limit := max(width, minLayoutWidth)
		for i, ln := range l.lines {
			if w := ansi.StringWidth(ln); w > limit {
				t.Errorf("width %d: line %d is %d cells", width, i, w)
			}
		}
	}
}

func TestPageHeaderFitsWidth(t *testing.T) {
	tests := []struct {
		page     int
		bubbles  int
		width    int
		wantMeta bool
	}{
		{0, 1, minLayoutWidth, false},
		{0, 12, minLayoutWidth, false},
		{99, 12, minLayoutWidth, false},
		{0, 3, 40, true},
		{9, 1, 80, true},
	}
	for _, tt := range tests {
		header := pageHeader(reader.Page{PageIndex: tt.page}, tt.bubbles, tt.width)
		plain := ansi.Strip(header)
		if w := ansi.StringWidth(header); w > tt.width {
			t.Errorf("page %d, width %d: header is %d cells: %q", tt.page, tt.width, w, plain)
		}
		if !strings.Contains(plain, fmt.Sprintf("Page %d", tt.page+1)) {
			t.Errorf("page %d, width %d: title missing: %q", tt.page, tt.width, plain)
		}
		if got := strings.Contains(plain, "bubble"); got != tt.wantMeta {
			t.Errorf("page %d, width %d: bubble count shown = %v, want %v", tt.page, tt.width, got, tt.wantMeta)
		}
	}
}

func TestHighlightWord(t *testing.T) {
	timings := []reader.WordTiming{{Word: "a"}, {Word: "b"}, {Word: "c"}}

	tests := []struct {
		name    string
		text    string
		timings []reader.WordTiming
		word    int
		changed bool
	}{
		{"in range", "a b c", timings, 1, true},
		{"none", "a b c", timings, -1, false},
		{"past end", "a b c", timings, 3, false},
		{"mismatched timings", "a b c d", timings, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := highlightWord(tt.text, tt.timings, tt.word)
			if ansi.Strip(got) != tt.text {
				t.Errorf("text changed: %q", ansi.Strip(got))
			}
			if (got != tt.text) != tt.changed && wordStyle.Render("b") != "b" {
				t.Errorf("highlighted = %v, want %v", got != tt.text, tt.changed)
			}
		})
	}
}

func TestStatusBarWidth(t *testing.T) {
	tests := []struct {
		note    string
		errors  string
		message string
	}{
		{"▶ 1/3 · page 1 · spk", "", ""},
		{strings.Repeat("long note ", 20), "", ""},
		{"", "", "Copied bubble text"},
		{"■ 1/3 · page 1 · spk", "2 errors", strings.Repeat("speech synthesis failed ", 5)},
		{strings.Repeat("long note ", 20), "12 errors", ""},
	}
	for _, tt := range tests {
		bar := statusBar(80, tt.note, tt.errors, "1.0x", tt.message, tt.message != "")
		if w := ansi.StringWidth(bar); w != 80 {
			t.Errorf("status bar for %q is %d cells wide", tt.note, w)
		}
		if tt.errors != "" && !strings.Contains(ansi.Strip(bar), tt.errors) {
			t.Errorf("error count %q hidden: %q", tt.errors, ansi.Strip(bar))
		}
	}
}

func TestSearchBubbles(t *testing.T) {
	ch := readertest.Chapter("c1", 3, 3)
	ch.Pages[1].Items[2].Text = "The ship is sinking"
	idx := reader.NewIndex(ch.Pages)

	if got := searchBubbles(idx, "sinking"); len(got) != 1 || got[0] != "p1b2" {
		t.Errorf("search = %v", got)
	}
	if got := searchBubbles(idx, "  "); got != nil {
		t.Errorf("blank search = %v", got)
	}
	if got := searchBubbles(idx, "Line"); len(got) != maxSearchResults {
		t.Errorf("got %d results, want %d", len(got), maxSearchResults)
	}
	if got := searchBubbles(reader.NewIndex(nil), "x"); got != nil {
		t.Errorf("empty index search = %v", got)
	}
}

func TestProgressBar(t *testing.T) {
	if progressBar(1, 2, 5, fuchsia) != "" {
		t.Error("narrow bar rendered")
	}
	bar := ansi.Strip(progressBar(50, 100, 20, fuchsia))
	if strings.Count(bar, "█") != 10 || strings.Count(bar, "░") != 10 {
		t.Errorf("bar = %q", bar)
	}
}
