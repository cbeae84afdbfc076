// Package ui provides the terminal reader for inkami.
package ui

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"

	"github.com/jacixn/inkami/internal/session"
	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/scroll"
	"github.com/jacixn/inkami/reader/visibility"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied"
	ellipsis             = "…"

	headerHeight    = 1
	statusBarHeight = 1
)

// NewProgram returns a new Tea program reading the chapter of s. The
// program drains the session loop; nothing else may run it concurrently.
func NewProgram(ctx context.Context, cfg Config, s *session.Session) *tea.Program {
	log.Debug(
		"Starting reader",
		"chapter", cfg.ChapterID,
		"focused", cfg.Focused,
		"alt_screen", cfg.AltScreen,
	)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	tty := term.IsTerminal(int(os.Stdout.Fd()))
	return tea.NewProgram(newModel(ctx, cfg, s, tty), opts...)
}

type (
	loopMsg                 struct{}
	tickMsg                 time.Time
	statusMessageTimeoutMsg int
	speakerUpdatedMsg       struct {
		speakerID string
		name      string
		err       error
	}
)

// inputMode is what the keyboard currently drives.
type inputMode int

const (
	modeRead inputMode = iota
	modeSearch
	modeRename
)

type model struct {
	cfg     Config
	ctx     context.Context
	session *session.Session
	engine  *reader.Engine
	keys    keyMap

	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model
	input    textinput.Model

	follow *scroll.Synchronizer
	vis    *visibility.Scheduler
	screen *altScreen

	width, height int
	mode          inputMode
	showHelp      bool

	state      reader.PlaybackState
	layout     layout
	word       int
	errCount   int
	lastUpdate time.Time

	statusMessage string
	statusIsError bool
	statusSeq     int

	results  []string
	selected int
	renameID string

	queued []tea.Cmd
}

func newModel(ctx context.Context, cfg Config, s *session.Session, tty bool) *model {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	view := s.Config().View

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	in := textinput.New()
	in.CharLimit = 120
	in.PromptStyle = promptStyle

	h := help.New()
	h.ShowAll = true

	m := &model{
		cfg:      cfg,
		ctx:      ctx,
		session:  s,
		engine:   s.Engine,
		keys:     newKeyMap(),
		help:     h,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		input:    in,
		screen:   &altScreen{tty: tty, always: cfg.AltScreen},
		word:     -1,
	}
	m.follow = scroll.NewSynchronizer(s.Loop, scroll.Config{
		Settle:   view.ScrollSettle,
		Duration: view.ScrollDuration,
	}, m.applyOffset)
	m.vis = visibility.New(s.Loop, view.HideControlsAfter, m.screen)
	m.vis.OnChange = func(bool) { m.resize() }

	m.state = s.Engine.State()
	s.Engine.OnChange(m.onState)
	s.OnChapter = m.onChapter
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.waitLoop(),
		m.spinner.Tick,
		m.tick(),
		m.start(),
	}
	if m.cfg.Focused {
		m.vis.EnterFocus()
	}
	return tea.Batch(append(cmds, m.flush()...)...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.render()
		m.followActive()

	case loopMsg:
		m.session.Loop.Drain()
		cmds = append(cmds, m.waitLoop())

	case tickMsg:
		m.updateWord()
		cmds = append(cmds, m.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case statusMessageTimeoutMsg:
		if int(msg) == m.statusSeq {
			m.statusMessage = ""
		}

	case speakerUpdatedMsg:
		if msg.err != nil {
			log.Warn("speaker update failed", "speaker", msg.speakerID, "err", msg.err)
			cmds = append(cmds, m.showStatusMessage("Rename failed: "+msg.err.Error(), true))
		} else {
			cmds = append(cmds, m.showStatusMessage(fmt.Sprintf("Renamed %s to %s", msg.speakerID, msg.name), false))
		}

	case tea.MouseMsg:
		m.vis.Activity()
		cmds = append(cmds, m.handleMouse(msg))

	case tea.KeyMsg:
		m.vis.Activity()
		switch m.mode {
		case modeSearch:
			cmds = append(cmds, m.updateSearch(msg))
		case modeRename:
			cmds = append(cmds, m.updateRename(msg))
		default:
			cmds = append(cmds, m.handleKey(msg))
		}
	}

	cmds = append(cmds, m.flush()...)
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	var b strings.Builder
	if m.vis.Visible() {
		b.WriteString(m.headerView() + "\n")
	}
	b.WriteString(m.viewport.View())
	if m.mode != modeRead {
		b.WriteString("\n" + m.promptView())
	}
	if m.vis.Visible() {
		b.WriteString("\n" + m.statusBarView())
		if m.showHelp {
			b.WriteString("\n" + m.helpView())
		}
	}
	return b.String()
}

// LOOP

func (m *model) waitLoop() tea.Cmd {
	loop, ctx := m.session.Loop, m.ctx
	return func() tea.Msg {
		if err := loop.Wait(ctx); err != nil {
			return nil
		}
		return loopMsg{}
	}
}

func (m *model) start() tea.Cmd {
	s, ctx, id := m.session, m.ctx, m.cfg.ChapterID
	return func() tea.Msg {
		s.Start(ctx, id)
		return nil
	}
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// queue adds a command produced inside a loop callback.
func (m *model) queue(cmd tea.Cmd) {
	if cmd != nil {
		m.queued = append(m.queued, cmd)
	}
}

func (m *model) flush() []tea.Cmd {
	cmds := append(m.queued, m.screen.flush()...)
	m.queued = nil
	return cmds
}

// ENGINE CALLBACKS

func (m *model) onState(st reader.PlaybackState) {
	prev := m.state
	m.state = st
	if st.CanPause() {
		m.keys.Toggle.SetHelp("space", "pause")
	} else {
		m.keys.Toggle.SetHelp("space", "play")
	}

	if len(st.Errors) > m.errCount {
		last := st.Errors[len(st.Errors)-1]
		m.queue(m.showStatusMessage(last.Error(), last.Fatal))
	}
	m.errCount = len(st.Errors)

	if st.BubbleID != prev.BubbleID {
		m.word = -1
		m.render()
		m.followActive()
	}
}

func (m *model) onChapter(reader.Chapter) {
	m.lastUpdate = time.Now()
	m.render()
}

func (m *model) applyOffset(offset float64) {
	m.viewport.SetYOffset(int(math.Round(offset)))
}

// INPUT

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.follow.Cancel()
		m.vis.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		return m.report(m.engine.Toggle())
	case key.Matches(msg, m.keys.Next):
		return m.report(m.engine.Next())
	case key.Matches(msg, m.keys.Prev):
		return m.report(m.engine.Prev())
	case key.Matches(msg, m.keys.NextPage):
		return m.report(m.engine.SelectPage(m.state.Page + 1))
	case key.Matches(msg, m.keys.PrevPage):
		return m.report(m.engine.SelectPage(m.state.Page - 1))
	case key.Matches(msg, m.keys.Faster):
		return m.report(m.engine.SetSpeed(reader.NextSpeed(m.engine.Speed())))
	case key.Matches(msg, m.keys.Slower):
		return m.report(m.engine.SetSpeed(reader.PrevSpeed(m.engine.Speed())))
	case key.Matches(msg, m.keys.Restart):
		return m.report(m.engine.Restart())
	case key.Matches(msg, m.keys.Focus):
		m.vis.Toggle()
		if m.vis.Fallback() && m.vis.Focused() {
			return m.showStatusMessage("Focus mode (no fullscreen available)", false)
		}
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.results = nil
		m.selected = 0
		m.input.Prompt = "/ "
		m.input.SetValue("")
		m.resize()
		return m.input.Focus()
	case key.Matches(msg, m.keys.Copy):
		return m.copyBubble()
	case key.Matches(msg, m.keys.Rename):
		return m.beginRename()
	case key.Matches(msg, m.keys.Refresh):
		m.session.Poller.Refresh()
		return m.showStatusMessage("Reloading chapter"+ellipsis, false)
	case key.Matches(msg, m.keys.ClearError):
		m.engine.ClearErrors()
		m.errCount = 0
		m.statusMessage = ""
	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-1)
	case key.Matches(msg, m.keys.Down):
		m.scrollBy(1)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.resize()
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.Y < m.headerRows() {
			return nil
		}
		row := msg.Y - m.headerRows() + m.viewport.YOffset
		if b, ok := m.layout.blockAt(row); ok {
			return m.report(m.engine.SetBubble(b.id))
		}
	case msg.Button == tea.MouseButtonWheelUp:
		m.scrollBy(-3)
	case msg.Button == tea.MouseButtonWheelDown:
		m.scrollBy(3)
	}
	return nil
}

func (m *model) scrollBy(n int) {
	m.viewport.SetYOffset(m.viewport.YOffset + n)
	m.follow.SetOffset(float64(m.viewport.YOffset))
}

func (m *model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.endInput()
		return nil
	case tea.KeyEnter:
		results, sel := m.results, m.selected
		m.endInput()
		if sel < len(results) {
			return m.report(m.engine.SetBubble(results[sel]))
		}
		return nil
	case tea.KeyUp, tea.KeyCtrlP:
		m.selected = max(0, m.selected-1)
		return nil
	case tea.KeyDown, tea.KeyCtrlN:
		m.selected = min(max(0, len(m.results)-1), m.selected+1)
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.results = searchBubbles(m.engine.Index(), m.input.Value())
	m.selected = 0
	m.resize()
	return cmd
}

func (m *model) beginRename() tea.Cmd {
	cur := m.engine.Current()
	switch {
	case cur == nil:
		return m.showStatusMessage("No bubble selected", true)
	case m.session.Fixture():
		return m.showStatusMessage(session.ErrReadOnly.Error(), true)
	case cur.SpeakerID == "":
		return m.showStatusMessage("Bubble has no speaker", true)
	}
	m.mode = modeRename
	m.renameID = cur.SpeakerID
	m.input.Prompt = fmt.Sprintf("Name for %s: ", cur.SpeakerID)
	m.input.SetValue(cur.Speaker())
	m.input.CursorEnd()
	m.resize()
	return m.input.Focus()
}

func (m *model) updateRename(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.endInput()
		return nil
	case tea.KeyEnter:
		id, name := m.renameID, strings.TrimSpace(m.input.Value())
		m.endInput()
		if name == "" {
			return nil
		}
		return tea.Batch(
			m.showStatusMessage("Renaming "+id+ellipsis, false),
			m.updateSpeaker(id, name),
		)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) updateSpeaker(id, name string) tea.Cmd {
	s, ctx, timeout := m.session, m.ctx, m.session.Config().API.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := s.UpdateSpeaker(ctx, id, reader.SpeakerUpdate{DisplayName: name})
		return speakerUpdatedMsg{speakerID: id, name: name, err: err}
	}
}

func (m *model) endInput() {
	m.mode = modeRead
	m.results = nil
	m.renameID = ""
	m.input.Blur()
	m.resize()
}

func (m *model) copyBubble() tea.Cmd {
	cur := m.engine.Current()
	if cur == nil {
		return m.showStatusMessage("No bubble selected", true)
	}
	if err := clipboard.WriteAll(cur.Text); err != nil {
		return m.showStatusMessage("Copy failed: "+err.Error(), true)
	}
	return m.showStatusMessage("Copied bubble text", false)
}

func (m *model) report(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return m.showStatusMessage(err.Error(), true)
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusIsError = isError
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg(seq)
	})
}

// LAYOUT

func (m *model) headerRows() int {
	if m.vis.Visible() {
		return headerHeight
	}
	return 0
}

func (m *model) resize() {
	h := m.height
	if m.vis.Visible() {
		h -= headerHeight + statusBarHeight
		if m.showHelp {
			h -= lipgloss.Height(m.helpView())
		}
	}
	if m.mode != modeRead {
		h -= lipgloss.Height(m.promptView())
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(1, h)
}

func (m *model) render() {
	m.layout = buildLayout(m.engine.Index(), m.viewport.Width, highlight{
		active: m.state.BubbleID,
		word:   m.word,
	})
	m.viewport.SetContent(m.layout.content())
}

func (m *model) followActive() {
	if g, ok := m.layout.geometry(m.state.BubbleID, m.viewport.Height); ok {
		m.follow.Follow(g)
	}
}

func (m *model) updateWord() {
	if !m.cfg.WordHighlight || !m.state.Playing {
		return
	}
	cur := m.engine.Current()
	if cur == nil || len(cur.WordTimes) == 0 {
		return
	}
	pos, ok := m.engine.Position()
	if !ok {
		return
	}
	if w := reader.WordAt(cur.WordTimes, pos); w != m.word {
		m.word = w
		m.render()
	}
}

// VIEWS

func (m *model) headerView() string {
	ch := m.engine.Chapter()
	if ch.ChapterID == "" {
		return m.spinner.View() + " " + headerMetaStyle.Render("Loading chapter "+m.cfg.ChapterID+ellipsis)
	}

	title := ch.Title
	if title == "" {
		title = ch.ChapterID
	}
	var meta string
	switch ch.Status {
	case reader.ChapterProcessing:
		meta = m.spinner.View() + headerMetaStyle.Render(fmt.Sprintf(" processing %d%% ", ch.Progress)) +
			progressBar(ch.Progress, 100, 20, fuchsia)
	case reader.ChapterFailed:
		meta = lipgloss.NewStyle().Foreground(red).Render("processing failed")
	default:
		meta = headerMetaStyle.Render(fmt.Sprintf("%d pages", m.engine.Index().Pages()))
	}
	if !m.lastUpdate.IsZero() {
		meta += headerMetaStyle.Render(" · updated " + humanize.Time(m.lastUpdate))
	}
	return truncate.StringWithTail(headerTitleStyle.Render(title)+meta, uint(max(0, m.width)), ellipsis) //nolint:gosec
}

func (m *model) statusBarView() string {
	icon, _ := stateIcon(m.state)
	note := icon
	idx := m.engine.Index()
	if cur := m.engine.Current(); cur != nil {
		note += fmt.Sprintf(" %d/%d · page %d · %s", idx.Position(cur.BubbleID)+1, idx.Len(), m.state.Page+1, cur.Speaker())
	} else if idx.Len() > 0 {
		note += fmt.Sprintf(" %d bubbles", idx.Len())
	}
	if m.state.Channel == reader.ChannelSpeech {
		note += " · synthesized"
	}
	if m.vis.Focused() {
		note += " · focus"
	}
	var errs string
	if n := len(m.state.Errors); n > 0 {
		errs = humanize.Comma(int64(n)) + " " + plural(n, "error", "errors")
	}
	return statusBar(m.width, note, errs, reader.FormatSpeed(m.state.Speed), m.statusMessage, m.statusIsError)
}

func (m *model) promptView() string {
	lines := []string{m.input.View()}
	idx := m.engine.Index()
	for i, id := range m.results {
		marker := "  "
		if i == m.selected {
			marker = activeBarStyle.Render("▌ ")
		}
		lines = append(lines, marker+searchResultLine(idx, id, m.width-2))
	}
	return strings.Join(lines, "\n")
}

func (m *model) helpView() string {
	s := indent.String("\n"+m.help.View(m.keys)+"\n", 2)
	return helpViewStyle(fillLines(s, m.width))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
