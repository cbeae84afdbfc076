package reader

import "time"

// ChapterStatus is the processing status reported by the chapter API.
type ChapterStatus string

const (
	// ChapterProcessing means pages are still being analysed and narrated.
	ChapterProcessing ChapterStatus = "processing"
	// ChapterReady means every page is final.
	ChapterReady ChapterStatus = "ready"
	// ChapterFailed means processing stopped with an error.
	ChapterFailed ChapterStatus = "failed"
)

// BubbleType classifies a bubble.
type BubbleType string

const (
	BubbleDialogue  BubbleType = "dialogue"
	BubbleNarration BubbleType = "narration"
	BubbleThought   BubbleType = "thought"
	BubbleSFX       BubbleType = "sfx"
)

// Box is an [x0, y0, x1, y1] rectangle in page image pixels.
type Box [4]float64

// Top returns the upper edge.
func (b Box) Top() float64 { return b[1] }

// Bottom returns the lower edge.
func (b Box) Bottom() float64 { return b[3] }

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return (b[1] + b[3]) / 2 }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b[2] <= b[0] || b[3] <= b[1] }

// WordTiming marks when a word is spoken, in seconds from the start of the
// bubble audio.
type WordTiming struct {
	Word  string  `json:"word" yaml:"word"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// BubbleItem is one narratable unit on a page.
type BubbleItem struct {
	BubbleID    string       `json:"bubble_id" yaml:"bubble_id"`
	Type        BubbleType   `json:"type" yaml:"type"`
	SpeakerID   string       `json:"speaker_id" yaml:"speaker_id"`
	SpeakerName string       `json:"speaker_name,omitempty" yaml:"speaker_name,omitempty"`
	VoiceID     string       `json:"voice_id" yaml:"voice_id"`
	Text        string       `json:"text" yaml:"text"`
	AudioURL    string       `json:"audio_url" yaml:"audio_url"`
	PanelBox    Box          `json:"panel_box" yaml:"panel_box"`
	BubbleBox   Box          `json:"bubble_box" yaml:"bubble_box"`
	WordTimes   []WordTiming `json:"word_times" yaml:"word_times"`
}

// Speaker returns the display name, falling back to the speaker id.
func (b BubbleItem) Speaker() string {
	if b.SpeakerName != "" {
		return b.SpeakerName
	}
	return b.SpeakerID
}

// Page is a single chapter page with its bubbles.
type Page struct {
	PageIndex    int          `json:"page_index" yaml:"page_index"`
	ImageURL     string       `json:"image_url" yaml:"image_url"`
	Width        int          `json:"width,omitempty" yaml:"width,omitempty"`
	Height       int          `json:"height,omitempty" yaml:"height,omitempty"`
	Items        []BubbleItem `json:"items" yaml:"items"`
	ReadingOrder []string     `json:"reading_order" yaml:"reading_order"`
}

// ImageHeight returns the page height, estimating it from the bubble boxes
// when the page carries no dimensions.
func (p Page) ImageHeight() float64 {
	if p.Height > 0 {
		return float64(p.Height)
	}
	var h float64
	for _, it := range p.Items {
		h = max(h, it.BubbleBox.Bottom(), it.PanelBox.Bottom())
	}
	return h
}

// Chapter is the unit of playback.
type Chapter struct {
	ChapterID string        `json:"chapter_id" yaml:"chapter_id"`
	Title     string        `json:"title,omitempty" yaml:"title,omitempty"`
	Status    ChapterStatus `json:"status" yaml:"status"`
	Progress  int           `json:"progress" yaml:"progress"`
	Pages     []Page        `json:"pages" yaml:"pages"`
}

// Processing reports whether the chapter is still being produced.
func (c Chapter) Processing() bool {
	return c.Status == ChapterProcessing
}

// JobStatus mirrors the job endpoint of the chapter API.
type JobStatus struct {
	JobID     string        `json:"job_id"`
	Status    ChapterStatus `json:"status"`
	Progress  int           `json:"progress"`
	ChapterID string        `json:"chapter_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// SpeakerUpdate is the body of a speaker patch. Empty fields are left
// unchanged by the server.
type SpeakerUpdate struct {
	DisplayName string `json:"display_name,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`
}

// WordAt returns the index of the word being spoken at pos, or -1.
func WordAt(timings []WordTiming, pos time.Duration) int {
	sec := pos.Seconds()
	for i, w := range timings {
		if sec >= w.Start && sec < w.End {
			return i
		}
		if sec < w.Start {
			// between words keep the previous one lit
			return i - 1
		}
	}
	return -1
}
