package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StatusView ViewState = iota
	DetailView
)

// maxLogLines bounds the activity log under the status table.
const maxLogLines = 6

// Coordinator is the part of [tasks.Coordinator] the watch view drives.
type Coordinator interface {
	Statuses() []tasks.Status
	Refresh(ctx context.Context, t tasks.ResourceType) error
	Subscribe(buffer int) (<-chan tasks.Event, func())
	Table(t tasks.ResourceType) (formatter.Table, error)
}

// Model represents the watch view state.
type Model struct {
	ctx         context.Context
	view        ViewState
	coord       Coordinator
	events      <-chan tasks.Event
	unsubscribe func()
	statuses    []tasks.Status
	cursor      int
	detail      list.Model
	detailType  tasks.ResourceType
	activity    []string
	spinner     spinner.Model
	now         func() time.Time
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a watch view subscribed to coord's events. Call [Model.Close] once the program exits.
func NewModel(ctx context.Context, coord Coordinator) *Model {
	events, unsubscribe := coord.Subscribe(64)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:         ctx,
		view:        StatusView,
		coord:       coord,
		events:      events,
		unsubscribe: unsubscribe,
		statuses:    coord.Statuses(),
		spinner:     s,
		now:         time.Now,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Close unsubscribes from coordinator events.
func (m *Model) Close() { m.unsubscribe() }

// Init starts listening for events and the clock that ages refresh times.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick, tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.detailType != "" {
			m.detail.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case StatusView:
			return m.handleStatusKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == DetailView {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCoordinatorEvent:
		e := msg.data.(tasks.Event)
		m.statuses = m.coord.Statuses()
		if !(e.Silent && e.Kind == tasks.RefreshStarted) && e.Kind != tasks.RefreshSkipped {
			m.record(e)
		}
		if m.view == DetailView && e.Resource == m.detailType && e.Kind == tasks.RefreshSucceeded {
			m.loadDetail(m.detailType)
		}
		if e.Kind == tasks.CollectionsReset && m.view == DetailView {
			m.view = StatusView
		}
		return m, m.waitForEvent()

	case MsgEventsClosed:
		return m, nil

	case MsgRefreshDone:
		m.statuses = m.coord.Statuses()
		return m, nil

	case MsgTick:
		m.statuses = m.coord.Statuses()
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.statuses)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.enter):
		if t, ok := m.selected(); ok {
			m.loadDetail(t)
			m.view = DetailView
		}
	case key.Matches(msg, m.keys.refresh):
		if t, ok := m.selected(); ok {
			return m, m.refresh(t)
		}
	case key.Matches(msg, m.keys.refreshAll):
		cmds := make([]tea.Cmd, 0, len(m.statuses))
		for _, s := range m.statuses {
			cmds = append(cmds, m.refresh(s.Resource))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = StatusView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh(m.detailType)
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) selected() (tasks.ResourceType, bool) {
	if m.cursor < 0 || m.cursor >= len(m.statuses) {
		return "", false
	}
	return m.statuses[m.cursor].Resource, true
}

func (m *Model) loadDetail(t tasks.ResourceType) {
	tbl, err := m.coord.Table(t)
	if err != nil {
		m.activity = appendLog(m.activity, styles.err.Render(err.Error()))
		return
	}

	m.detailType = t
	m.detail = list.New(tableItems(tbl), list.NewDefaultDelegate(), 0, 0)
	m.detail.Title = fmt.Sprintf("%s (%d)", tbl.Title, len(tbl.Rows))
	m.detail.SetSize(max(m.width-4, 20), max(m.height-6, 10))
}

func (m *Model) record(e tasks.Event) {
	line := fmt.Sprintf("%s %s", e.At.Local().Format("15:04:05"), e.Message)
	switch e.Kind {
	case tasks.RefreshFailed:
		line = styles.err.Render(line)
	case tasks.RefreshSucceeded, tasks.SnapshotRestored:
		line = styles.ok.Render(line)
	}
	if e.Silent {
		line += styles.help.Render(" (background)")
	}
	m.activity = appendLog(m.activity, line)
}

func appendLog(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (m *Model) refresh(t tasks.ResourceType) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg(t, m.coord.Refresh(m.ctx, t))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return eventsClosedMsg()
		}
		return eventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DetailView:
		return m.renderDetail()
	default:
		return m.renderStatus()
	}
}

func (m *Model) renderStatus() string {
	title := styles.title.Render("linesync")
	for _, s := range m.statuses {
		if s.IsLoading {
			title = fmt.Sprintf("%s %s", title, m.spinner.View())
			break
		}
	}

	tbl := formatter.Table{Headers: []string{"", "Collection", "Items", "Updated", "State"}}
	now := m.now()
	for i, s := range m.statuses {
		marker := " "
		if i == m.cursor {
			marker = "›"
		}
		tbl.Rows = append(tbl.Rows, []string{
			marker,
			s.Resource.Label(),
			strconv.Itoa(s.Count),
			shared.FormatAge(now, s.LastRefreshedAt),
			stateOf(s),
		})
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(formatter.RenderTable(tbl))
	b.WriteString("\n\n")
	for _, line := range m.activity {
		b.WriteString(line)
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.refresh, m.keys.refreshAll, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderDetail() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.detail.View(), m.help.ShortHelpView(helpKeys))
}

func stateOf(s tasks.Status) string {
	switch {
	case s.IsLoading:
		return "loading"
	case s.LastError != "":
		return styles.err.Render("error: " + s.LastError)
	case s.LastRefreshedAt == nil:
		return styles.help.Render("empty")
	case s.Stale:
		return styles.warn.Render("stale")
	default:
		return styles.ok.Render("fresh")
	}
}
