package readertest

import (
	"fmt"

	"github.com/jacixn/inkami/reader"
)

// Chapter builds a chapter whose page i holds counts[i] bubbles named
// "p<page>b<n>", each with audio at "/audio/<id>.mp3".
func Chapter(id string, counts ...int) reader.Chapter {
	ch := reader.Chapter{ChapterID: id, Title: "Test " + id, Status: reader.ChapterReady, Progress: 100}
	for pi, n := range counts {
		page := reader.Page{PageIndex: pi, ImageURL: fmt.Sprintf("/pages/%d.png", pi), Width: 800, Height: 1200}
		for b := 0; b < n; b++ {
			bid := fmt.Sprintf("p%db%d", pi, b)
			y := float64(100 + b*200)
			page.Items = append(page.Items, reader.BubbleItem{
				BubbleID:  bid,
				Type:      reader.BubbleDialogue,
				SpeakerID: "spk",
				VoiceID:   "voice_default",
				Text:      "Line " + bid,
				AudioURL:  "/audio/" + bid + ".mp3",
				BubbleBox: reader.Box{100, y, 400, y + 100},
				PanelBox:  reader.Box{0, y - 50, 800, y + 150},
			})
			page.ReadingOrder = append(page.ReadingOrder, bid)
		}
		ch.Pages = append(ch.Pages, page)
	}
	return ch
}
