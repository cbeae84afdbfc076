package reader

// Location resolves a bubble id to the page holding it.
type Location struct {
	Page   int
	Bubble *BubbleItem
}

// Index holds the lookup tables and the global reading order of a chapter.
// It is immutable once built.
type Index struct {
	pages     []Page
	byID      map[string]Location
	order     []string
	position  map[string]int
	pageOrder [][]string
	dropped   []string
}

// NewIndex builds the index for pages in slice order. Each page contributes
// its reading order, or its item order when no reading order is given. Ids
// that do not name an item on their page are skipped, and an id seen on an
// earlier page keeps its first position.
func NewIndex(pages []Page) *Index {
	idx := &Index{
		pages:     pages,
		byID:      make(map[string]Location),
		position:  make(map[string]int),
		pageOrder: make([][]string, len(pages)),
	}

	for pi := range pages {
		page := &pages[pi]
		items := make(map[string]*BubbleItem, len(page.Items))
		for i := range page.Items {
			it := &page.Items[i]
			if _, ok := items[it.BubbleID]; !ok {
				items[it.BubbleID] = it
			}
		}

		ids := page.ReadingOrder
		if len(ids) == 0 {
			ids = make([]string, 0, len(page.Items))
			for _, it := range page.Items {
				ids = append(ids, it.BubbleID)
			}
		}

		for _, id := range ids {
			it, ok := items[id]
			if !ok {
				idx.dropped = append(idx.dropped, id)
				continue
			}
			if _, seen := idx.byID[id]; seen {
				idx.dropped = append(idx.dropped, id)
				continue
			}
			idx.byID[id] = Location{Page: pi, Bubble: it}
			idx.position[id] = len(idx.order)
			idx.order = append(idx.order, id)
			idx.pageOrder[pi] = append(idx.pageOrder[pi], id)
		}
	}

	return idx
}

// Lookup returns the location of id.
func (x *Index) Lookup(id string) (Location, bool) {
	loc, ok := x.byID[id]
	return loc, ok
}

// Bubble returns the bubble for id, or nil.
func (x *Index) Bubble(id string) *BubbleItem {
	return x.byID[id].Bubble
}

// Order returns the global reading order. The slice must not be modified.
func (x *Index) Order() []string { return x.order }

// Len returns the number of playable bubbles.
func (x *Index) Len() int { return len(x.order) }

// Pages returns the number of pages.
func (x *Index) Pages() int { return len(x.pages) }

// Page returns page i.
func (x *Index) Page(i int) (Page, bool) {
	if i < 0 || i >= len(x.pages) {
		return Page{}, false
	}
	return x.pages[i], true
}

// First returns the first id of the global order.
func (x *Index) First() (string, bool) {
	if len(x.order) == 0 {
		return "", false
	}
	return x.order[0], true
}

// Last returns the last id of the global order.
func (x *Index) Last() (string, bool) {
	if len(x.order) == 0 {
		return "", false
	}
	return x.order[len(x.order)-1], true
}

// Position returns the offset of id in the global order, or -1.
func (x *Index) Position(id string) int {
	if p, ok := x.position[id]; ok {
		return p
	}
	return -1
}

// At returns the id at offset i of the global order.
func (x *Index) At(i int) (string, bool) {
	if i < 0 || i >= len(x.order) {
		return "", false
	}
	return x.order[i], true
}

// PageOrder returns the ids read on page i.
func (x *Index) PageOrder(i int) []string {
	if i < 0 || i >= len(x.pageOrder) {
		return nil
	}
	return x.pageOrder[i]
}

// PageFirst returns the first id read on page i.
func (x *Index) PageFirst(i int) (string, bool) {
	ids := x.PageOrder(i)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// Dropped returns ids from the reading orders that were skipped while
// building the index.
func (x *Index) Dropped() []string { return x.dropped }
