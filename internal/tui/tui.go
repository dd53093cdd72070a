// Package tui is the terminal front end: an animated desk scene driven
// by the timeline engine, for watching a live session or replaying a
// finished one.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/truncate"

	"github.com/vinayprograms/agentcam/internal/bookmark"
	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/reaction"
	"github.com/vinayprograms/agentcam/internal/scene"
	"github.com/vinayprograms/agentcam/internal/timeline"
)

const (
	minSpeed = 0.25
	maxSpeed = 32.0
	jumpSize = 10

	// feedHeight is the event feed strip under the scene.
	feedHeight = 6
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	feedTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	feedTypeStyles = map[event.Type]lipgloss.Style{
		event.TypeError:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		event.TypeComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		event.TypeSpawn:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		event.TypeUser:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}

	feedDefaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

type keyMap struct {
	PlayPause key.Binding
	Back      key.Binding
	Forward   key.Binding
	JumpBack  key.Binding
	JumpFwd   key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Restart   key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	PlayPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Back:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "back")),
	Forward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "forward")),
	JumpBack:  key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("shift+←", "back 10")),
	JumpFwd:   key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift+→", "forward 10")),
	Faster:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	Slower:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
	Restart:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "restart")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// frameMsg carries the animation driver's frame counter into Update.
type frameMsg int64

// fileChangedMsg is sent when the watched transcript changes.
type fileChangedMsg struct{}

// Model is the Bubble Tea model for the scene view.
type Model struct {
	path  string
	title string
	live  bool

	cache     *parser.Cache
	ctl       *timeline.Controller
	rctx      *reaction.Context
	renderer  *scene.Renderer
	palette   map[string]string
	bookmarks *bookmark.Store
	watcher   *fsnotify.Watcher
	log       *logging.Logger

	eventLog *event.Log
	feed     viewport.Model

	seed   int64
	frame  int64
	width  int
	height int
	ready  bool
}

func (m *Model) Init() tea.Cmd {
	if m.live && m.watcher != nil {
		return m.watchFile()
	}
	return nil
}

// watchFile returns a command that waits for transcript changes.
func (m *Model) watchFile() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Debounce: let the writer finish the line.
					time.Sleep(100 * time.Millisecond)
					return fileChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = int64(msg)
		return m, nil

	case fileChangedMsg:
		m.reload()
		if m.watcher != nil {
			return m, m.watchFile()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header, footer, feed rule, and the feed strip.
		m.renderer = scene.New(msg.Width, msg.Height-3-feedHeight, m.palette)
		m.feed = viewport.New(msg.Width, feedHeight-1)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.saveBookmark()
		return m, tea.Quit
	case key.Matches(msg, keys.PlayPause):
		if m.ctl.Playing() {
			m.ctl.Pause()
		} else {
			m.ctl.Play()
		}
	case key.Matches(msg, keys.Back):
		m.ctl.Seek(m.ctl.Position() - 1)
	case key.Matches(msg, keys.Forward):
		m.ctl.Seek(m.ctl.Position() + 1)
	case key.Matches(msg, keys.JumpBack):
		m.ctl.Seek(m.ctl.Position() - jumpSize)
	case key.Matches(msg, keys.JumpFwd):
		m.ctl.Seek(m.ctl.Position() + jumpSize)
	case key.Matches(msg, keys.Faster):
		speed := m.ctl.Speed() * 2
		if speed > maxSpeed {
			speed = maxSpeed
		}
		m.ctl.SetSpeed(speed)
	case key.Matches(msg, keys.Slower):
		speed := m.ctl.Speed() / 2
		if speed < minSpeed {
			speed = minSpeed
		}
		m.ctl.SetSpeed(speed)
	case key.Matches(msg, keys.Restart):
		m.ctl.Seek(0)
	}
	return m, nil
}

// reload reparses the transcript and feeds the controller. New tail
// events are delivered live; a shrunken file means a rewrite, so the
// log is rebuilt.
func (m *Model) reload() {
	session, err := m.cache.Parse(m.path)
	if err != nil {
		m.log.Warn("reparse failed", map[string]interface{}{"path": m.path, "error": err})
		return
	}
	n := m.ctl.Length()
	if len(session.Events) >= n {
		m.ctl.Deliver(session.Events[n:])
	} else {
		m.ctl.Reattach(session.Events)
	}
}

// saveBookmark persists the replay position. Live sessions have no
// position worth keeping.
func (m *Model) saveBookmark() {
	if m.live || m.bookmarks == nil || m.ctl.Mode() != timeline.ModeReplay {
		return
	}
	if err := m.bookmarks.Save(m.path, m.ctl.Position(), m.ctl.Speed()); err != nil {
		m.log.Warn("bookmark save failed", map[string]interface{}{"error": err})
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := titleStyle.Render(m.title)
	rule := strings.Repeat("─", maxInt(0, m.width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, infoStyle.Render(rule))

	snap := m.rctx.Observe(m.frame)
	body := m.renderer.Render(m.seed, m.frame, snap)

	m.feed.SetContent(m.feedLines())
	m.feed.GotoBottom()
	feedRule := infoStyle.Render(strings.Repeat("─", m.width))

	return header + "\n" + body + "\n" + feedRule + "\n" + m.feed.View() + "\n" + m.footer()
}

// feedLines formats the events dispatched so far, newest at the
// bottom, one line each.
func (m *Model) feedLines() string {
	if m.eventLog == nil {
		return ""
	}
	events := m.eventLog.Snapshot()
	end := m.ctl.Position()
	if end > len(events) {
		end = len(events)
	}
	start := end - 100
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, ev := range events[start:end] {
		style, ok := feedTypeStyles[ev.Type]
		if !ok {
			style = feedDefaultStyle
		}
		ts := "        "
		if ev.HasTimestamp() {
			ts = ev.Timestamp.Local().Format("15:04:05")
		}
		content := ev.Content
		if content == "" {
			content = ev.ToolName
		}
		line := fmt.Sprintf("%s %s %s",
			feedTimeStyle.Render(ts),
			style.Render(fmt.Sprintf("%-11s", ev.Type)),
			strings.ReplaceAll(content, "\n", " "))
		b.WriteString(truncate.String(line, uint(maxInt(m.width, 1))))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) footer() string {
	var status string
	switch {
	case m.live:
		status = liveStyle.Render("● LIVE")
	case m.ctl.Playing():
		status = fmt.Sprintf("▶ %d/%d ×%.2g", m.ctl.Position(), m.ctl.Length(), m.ctl.Speed())
	default:
		status = pausedStyle.Render(fmt.Sprintf("⏸ %d/%d ×%.2g", m.ctl.Position(), m.ctl.Length(), m.ctl.Speed()))
	}

	var help string
	if m.live {
		help = " q: quit "
	} else {
		help = " space: play/pause │ ←/→: seek │ +/-: speed │ 0: restart │ q: quit "
	}
	pad := maxInt(0, m.width-lipgloss.Width(status)-lipgloss.Width(help)-2)
	return " " + status + infoStyle.Render(strings.Repeat("─", pad)) + infoStyle.Render(help)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
