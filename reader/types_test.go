package reader_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jacixn/inkami/reader"
)

func TestWordAt(t *testing.T) {
	timings := []reader.WordTiming{
		{Word: "Hello", Start: 0.0, End: 0.4},
		{Word: "there", Start: 0.5, End: 0.9},
		{Word: "friend", Start: 1.0, End: 1.6},
	}

	tests := []struct {
		pos  time.Duration
		want int
	}{
		{0, 0},
		{300 * time.Millisecond, 0},
		{450 * time.Millisecond, 0},
		{500 * time.Millisecond, 1},
		{1200 * time.Millisecond, 2},
		{2 * time.Second, -1},
	}
	for _, tt := range tests {
		if got := reader.WordAt(timings, tt.pos); got != tt.want {
			t.Errorf("WordAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
	if got := reader.WordAt(nil, time.Second); got != -1 {
		t.Errorf("WordAt(nil) = %d", got)
	}
}

func TestChapterDecode(t *testing.T) {
	const payload = `{
		"chapter_id": "ch_1",
		"title": "Demo",
		"status": "processing",
		"progress": 40,
		"pages": [{
			"page_index": 0,
			"image_url": "/static/p0.png",
			"width": 800,
			"height": 1200,
			"items": [{
				"bubble_id": "b1",
				"type": "narration",
				"speaker_id": "narrator",
				"voice_id": "voice_narrator",
				"text": "It began at night.",
				"audio_url": "",
				"panel_box": [0, 0, 800, 400],
				"bubble_box": [10, 20, 300, 120],
				"word_times": [{"word": "It", "start": 0, "end": 0.2}]
			}],
			"reading_order": ["b1"]
		}]
	}`

	var ch reader.Chapter
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		t.Fatal(err)
	}
	if !ch.Processing() || ch.Progress != 40 {
		t.Errorf("status = %q progress = %d", ch.Status, ch.Progress)
	}
	it := ch.Pages[0].Items[0]
	if it.Type != reader.BubbleNarration || it.BubbleBox.CenterY() != 70 {
		t.Errorf("item = %+v", it)
	}
	if it.Speaker() != "narrator" {
		t.Errorf("Speaker() = %q", it.Speaker())
	}
	if ch.Pages[0].ImageHeight() != 1200 {
		t.Errorf("ImageHeight() = %v", ch.Pages[0].ImageHeight())
	}
}

func TestPageImageHeightEstimate(t *testing.T) {
	p := reader.Page{Items: []reader.BubbleItem{
		{BubbleBox: reader.Box{0, 0, 10, 300}},
		{PanelBox: reader.Box{0, 0, 10, 900}},
	}}
	if got := p.ImageHeight(); got != 900 {
		t.Fatalf("ImageHeight() = %v, want 900", got)
	}
}
