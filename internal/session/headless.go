package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/jacixn/inkami/reader"
)

// Narrate loads chapterID, prints each bubble to w as it starts playing and
// drives the loop until playback has stopped. It returns the first fatal
// playback error, if any. Playback only starts when the session was built
// with autoplay enabled.
//
// Narrate stops once playback ran and came to rest, when the first bubble
// fails for good, or when a settled chapter has nothing to read.
func (s *Session) Narrate(ctx context.Context, chapterID string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := termenv.NewOutput(w)
	var (
		last    string
		played  bool
		errSeen int
	)
	s.Engine.OnChange(func(st reader.PlaybackState) {
		for _, pe := range st.Errors[min(errSeen, len(st.Errors)):] {
			s.logger.Warn("playback", "kind", pe.Kind, "bubble", pe.BubbleID, "err", pe.Err)
		}
		errSeen = len(st.Errors)

		if st.BubbleID != last && st.Playing {
			if cur := s.Engine.Current(); cur != nil {
				page := out.String(fmt.Sprintf("[%d]", st.Page+1)).Foreground(out.Color("#04B575"))
				fmt.Fprintf(out, "%s %s: %s\n", page, out.String(cur.Speaker()).Bold(), cur.Text)
			}
			last = st.BubbleID
		}
		played = played || st.Playing
		if !st.Playing && !s.Engine.AdvancePending() && (played || lastFatal(st) || s.nothingToRead()) {
			cancel()
		}
	})

	s.Start(ctx, chapterID)
	if err := s.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	for _, pe := range s.Engine.State().Errors {
		if pe.Fatal {
			return fmt.Errorf("playback stopped: %w", pe)
		}
	}
	return nil
}

func lastFatal(st reader.PlaybackState) bool {
	return len(st.Errors) > 0 && st.Errors[len(st.Errors)-1].Fatal
}

// nothingToRead reports a chapter that finished processing without bubbles.
func (s *Session) nothingToRead() bool {
	ch := s.Engine.Chapter()
	return ch.ChapterID != "" && !ch.Processing() && s.Engine.Index().Len() == 0
}
