package ui

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/jacixn/inkami/reader"
)

const maxSearchResults = 5

// bubbleSource adapts the reading order to fuzzy.Source.
type bubbleSource struct {
	idx *reader.Index
}

func (s bubbleSource) String(i int) string {
	id, _ := s.idx.At(i)
	item := s.idx.Bubble(id)
	if item == nil {
		return ""
	}
	return item.Speaker() + ": " + item.Text
}

func (s bubbleSource) Len() int { return s.idx.Len() }

// searchBubbles returns the ids of the bubbles best matching term, best
// first.
func searchBubbles(idx *reader.Index, term string) []string {
	term = strings.TrimSpace(term)
	if term == "" || idx.Len() == 0 {
		return nil
	}
	matches := fuzzy.FindFrom(term, bubbleSource{idx})
	ids := make([]string, 0, min(len(matches), maxSearchResults))
	for _, m := range matches {
		if len(ids) == maxSearchResults {
			break
		}
		id, _ := idx.At(m.Index)
		ids = append(ids, id)
	}
	return ids
}

func searchResultLine(idx *reader.Index, id string, width int) string {
	item := idx.Bubble(id)
	if item == nil {
		return ""
	}
	line := strings.Join(strings.Fields(item.Speaker()+": "+item.Text), " ")
	return runewidth.Truncate(line, max(0, width), ellipsis)
}
