package source

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jacixn/inkami/reader"
)

// Poller refreshes a chapter at a fixed interval while it is processing.
// Polling follows the last applied response: it stops once that reports a
// settled chapter and resumes if a later-resolving one reports processing.
//
// Every fetch runs on its own goroutine and its result is dispatched onto
// the owner loop, so whichever response resolves last is applied last.
// Fetches are never cancelled when a newer one starts.
type Poller struct {
	src      reader.ChapterSource
	sched    reader.Scheduler
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	// OnChapter receives every fetched chapter on the owner loop.
	OnChapter func(reader.Chapter)
	// OnError receives fetch failures on the owner loop. The next tick is the
	// retry.
	OnError func(error)

	chapterID string
	timer     reader.Timer
	running   bool
	inflight  int
}

// NewPoller creates a poller. interval is clamped to at least one second.
func NewPoller(src reader.ChapterSource, sched reader.Scheduler, interval, timeout time.Duration) *Poller {
	return &Poller{
		src:      src,
		sched:    sched,
		interval: max(interval, time.Second),
		timeout:  timeout,
		logger:   log.Default().WithPrefix("poller"),
	}
}

// Start loads chapterID now and keeps polling while the chapter reports
// processing. Calling Start again switches chapters. Must run on the loop.
func (p *Poller) Start(chapterID string) {
	p.Stop()
	p.chapterID = chapterID
	p.running = true
	p.fetch()
	p.schedule()
}

// Refresh fetches immediately without disturbing the schedule. It works
// after polling stopped, e.g. after a speaker update.
func (p *Poller) Refresh() {
	if p.chapterID == "" {
		return
	}
	p.fetch()
}

// Stop cancels the schedule. In-flight fetches still deliver.
func (p *Poller) Stop() {
	p.running = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Running reports whether polling is scheduled.
func (p *Poller) Running() bool { return p.running }

// Inflight returns the number of unresolved fetches.
func (p *Poller) Inflight() int { return p.inflight }

func (p *Poller) schedule() {
	p.timer = p.sched.AfterFunc(p.interval, p.tick)
}

func (p *Poller) tick() {
	if !p.running {
		return
	}
	p.fetch()
	p.schedule()
}

func (p *Poller) fetch() {
	id := p.chapterID
	p.inflight++
	go func() {
		ctx := context.Background()
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		ch, err := p.src.Fetch(ctx, id)
		p.sched.Dispatch(func() { p.resolve(id, ch, err) })
	}()
}

func (p *Poller) resolve(id string, ch reader.Chapter, err error) {
	p.inflight--
	if id != p.chapterID {
		p.logger.Debug("dropping response for previous chapter", "chapter", id)
		return
	}
	if err != nil {
		p.logger.Warn("chapter fetch failed", "chapter", id, "err", err)
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	switch {
	case !ch.Processing() && p.running:
		p.logger.Debug("chapter settled, polling stopped", "chapter", id, "status", ch.Status)
		p.Stop()
	case ch.Processing() && !p.running:
		// an older response still reports processing, so keep polling until
		// a later one settles it
		p.logger.Debug("chapter processing again, polling resumed", "chapter", id)
		p.running = true
		p.schedule()
	}
	if p.OnChapter != nil {
		p.OnChapter(ch)
	}
}
