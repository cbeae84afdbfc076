package ui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/scroll"
)

const (
	minLayoutWidth = 20
	textIndent     = 4
)

// block is the rows [top, bottom) a bubble occupies in the content.
type block struct {
	id     string
	page   int
	top    int
	bottom int
}

// layout is the chapter rendered as text in reading order.
type layout struct {
	lines   []string
	blocks  []block
	pageTop []int
	byID    map[string]int
}

// highlight selects what is emphasized in the layout.
type highlight struct {
	active string
	word   int // index into the active bubble's words, -1 for none
}

func buildLayout(idx *reader.Index, width int, hl highlight) layout {
	width = max(width, minLayoutWidth)
	l := layout{byID: make(map[string]int)}

	for pi := range idx.Pages() {
		page, _ := idx.Page(pi)
		order := idx.PageOrder(pi)
		l.pageTop = append(l.pageTop, len(l.lines))
		l.lines = append(l.lines, pageHeader(page, len(order), width), "")

		if len(order) == 0 {
			l.lines = append(l.lines, subtleStyle.Render("    no bubbles yet"), "")
			continue
		}
		for _, id := range order {
			item := idx.Bubble(id)
			if item == nil {
				continue
			}
			word := -1
			if id == hl.active {
				word = hl.word
			}
			b := block{id: id, page: pi, top: len(l.lines)}
			l.lines = append(l.lines, bubbleLines(item, id == hl.active, word, width)...)
			b.bottom = len(l.lines)
			l.byID[id] = len(l.blocks)
			l.blocks = append(l.blocks, b)
			l.lines = append(l.lines, "")
		}
	}
	return l
}

func (l layout) content() string {
	return strings.Join(l.lines, "\n")
}

// blockAt returns the bubble drawn on row.
func (l layout) blockAt(row int) (block, bool) {
	for _, b := range l.blocks {
		if row >= b.top && row < b.bottom {
			return b, true
		}
	}
	return block{}, false
}

// geometry places bubble id for the scroll synchronizer. Rows are used as
// both image and content units.
func (l layout) geometry(id string, viewport int) (scroll.Geometry, bool) {
	i, ok := l.byID[id]
	if !ok {
		return scroll.Geometry{}, false
	}
	b := l.blocks[i]
	total := float64(len(l.lines))
	return scroll.Geometry{
		Box:           reader.Box{0, float64(b.top), 1, float64(b.bottom)},
		ImageHeight:   total,
		ContentHeight: total,
		Viewport:      float64(viewport),
	}, true
}

func pageHeader(page reader.Page, bubbles int, width int) string {
	title := fmt.Sprintf(" Page %d ", page.PageIndex+1)
	meta := fmt.Sprintf(" %d bubbles ", bubbles)
	if bubbles == 1 {
		meta = " 1 bubble "
	}
	if len(title)+len(meta)+4 > width {
		meta = ""
	}
	rule := max(0, width-len(title)-len(meta)-4)
	header := pageRuleStyle.Render("──") + pageTitleStyle.Render(title) +
		pageRuleStyle.Render(strings.Repeat("─", rule)) + subtleStyle.Render(meta) + pageRuleStyle.Render("──")
	return truncate.String(header, uint(width)) //nolint:gosec
}

func bubbleLines(item *reader.BubbleItem, active bool, word int, width int) []string {
	marker := "  "
	if active {
		marker = activeBarStyle.Render("▌") + " "
	}

	head := typeGlyph(item.Type) + " " + speakerStyle.Render(item.Speaker())
	if item.AudioURL == "" {
		head += subtleStyle.Render(" (no audio)")
	}
	lines := []string{marker + head}

	text := strings.TrimSpace(item.Text)
	if text == "" {
		text = subtleStyle.Render("(no text)")
	} else if active {
		text = highlightWord(text, item.WordTimes, word)
	}
	pad := strings.Repeat(" ", textIndent-2)
	for _, ln := range strings.Split(wordwrap.String(text, width-textIndent-1), "\n") {
		lines = append(lines, marker+pad+ln)
	}
	return lines
}

// highlightWord emphasizes word i when the timings line up with the words
// of text.
func highlightWord(text string, timings []reader.WordTiming, i int) string {
	words := strings.Fields(text)
	if i < 0 || i >= len(words) || len(words) != len(timings) {
		return text
	}
	words[i] = wordStyle.Render(words[i])
	return strings.Join(words, " ")
}

func typeGlyph(t reader.BubbleType) string {
	switch t {
	case reader.BubbleNarration:
		return narrationStyle.Render("¶")
	case reader.BubbleThought:
		return thoughtStyle.Render("∘")
	case reader.BubbleSFX:
		return sfxStyle.Render("♪")
	default:
		return dialogueStyle.Render("»")
	}
}
