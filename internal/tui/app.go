// ABOUTME: Interactive journal TUI built on bubbletea.
// ABOUTME: Lists dreams with an emotion filter and theme chart, and routes to compose, detail, and delete screens.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/speech"
	"github.com/2389-research/dreamscribe/internal/storage"
	"github.com/2389-research/dreamscribe/internal/themes"
)

type screen int

const (
	screenList screen = iota
	screenCompose
	screenDetail
	screenConfirmDelete
)

const chartWidth = 24

// changedMsg is delivered when the orchestrator reports a state change.
type changedMsg struct{}

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("124")).Padding(0, 1)
)

// AppModel is the bubbletea model for the journal.
type AppModel struct {
	store  *storage.EntryStore
	orch   *orchestrator.Orchestrator
	speech *speech.Capture
	log    zerolog.Logger

	screen   screen
	filter   models.Emotion
	all      []models.Entry
	entries  []models.Entry
	cursor   int
	selected string
	back     screen

	compose    textarea.Model
	emotionIdx int
	dictation  *dictation

	detail   viewport.Model
	spinner  spinner.Model
	spinning bool
	notice   string
	width    int
	height   int
}

// NewAppModel creates the journal model. capture may be nil when dictation is not configured.
func NewAppModel(store *storage.EntryStore, orch *orchestrator.Orchestrator, capture *speech.Capture, log zerolog.Logger) AppModel {
	ta := textarea.New()
	ta.Placeholder = "Describe your dream..."
	ta.ShowLineNumbers = false
	ta.SetWidth(72)
	ta.SetHeight(8)

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := AppModel{
		store:      store,
		orch:       orch,
		speech:     capture,
		log:        log.With().Str("component", "tui").Logger(),
		compose:    ta,
		emotionIdx: len(models.Emotions) - 1,
		detail:     viewport.New(80, 20),
		spinner:    s,
	}
	return m.refresh()
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.orch.Changes())}
	if m.busy() {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m AppModel) busy() bool {
	return m.orch.Processing() != "" || m.orch.Visualizing() != ""
}

// startSpinner returns a tick command unless the spinner is already running.
func (m *AppModel) startSpinner() tea.Cmd {
	if m.spinning || !m.busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// refresh reloads the collection and keeps the cursor and selection valid.
func (m AppModel) refresh() AppModel {
	m.all = m.store.List()
	m.entries = models.FilterByEmotion(m.all, m.filter)
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	if m.screen == screenDetail || m.screen == screenConfirmDelete {
		entry, ok := m.store.Get(m.selected)
		if !ok {
			m.screen = screenList
			m.selected = ""
			return m
		}
		m.detail.SetContent(m.detailContent(entry))
	}
	return m
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.compose.SetWidth(min(msg.Width-4, 96))
		m.detail.Width = msg.Width
		m.detail.Height = max(msg.Height-8, 5)
		return m.refresh(), nil

	case changedMsg:
		m = m.refresh()
		tick := m.startSpinner()
		return m, tea.Batch(waitForChange(m.orch.Changes()), tick)

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.screen == screenDetail {
			m = m.refresh()
		}
		return m, cmd

	case dictationMsg:
		return m.handleDictation(msg)

	case dictationEndedMsg:
		return m.handleDictationEnded(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.stopDictation()
			return m, tea.Quit
		}
		switch m.screen {
		case screenList:
			return m.updateList(msg)
		case screenCompose:
			return m.updateCompose(msg)
		case screenDetail:
			return m.updateDetail(msg)
		case screenConfirmDelete:
			return m.updateConfirm(msg)
		}
	}
	return m, nil
}

func (m AppModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if entry, ok := m.current(); ok {
			return m.openDetail(entry.ID), nil
		}
	case "n":
		return m.openCompose()
	case "d":
		if entry, ok := m.current(); ok {
			m.selected = entry.ID
			m.back = screenList
			m.screen = screenConfirmDelete
		}
	case "i":
		if entry, ok := m.current(); ok {
			return m.reinterpret(entry.ID)
		}
	case "x":
		m.orch.DismissError()
		m.notice = ""
	case "0", "1", "2", "3", "4", "5", "6":
		idx := int(key[0] - '0')
		if idx == 0 {
			m.filter = ""
		} else {
			m.filter = models.Emotions[idx-1]
		}
		m.cursor = 0
		return m.refresh(), nil
	}
	return m, nil
}

func (m AppModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.orch.Remove(m.selected) {
			m.notice = "Dream deleted."
		}
		m.selected = ""
		m.screen = screenList
		return m.refresh(), nil
	case "n", "N", "esc":
		m.screen = m.back
		return m.refresh(), nil
	}
	return m, nil
}

func (m AppModel) current() (models.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return models.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m AppModel) reinterpret(id string) (tea.Model, tea.Cmd) {
	_, err := m.orch.Reinterpret(context.Background(), id)
	switch {
	case err == nil:
		m.notice = "Interpretation queued."
		tick := m.startSpinner()
		return m, tick
	case errors.Is(err, orchestrator.ErrAlreadyInterpreted):
		m.notice = "This dream is already interpreted."
	case errors.Is(err, orchestrator.ErrAlreadyQueued):
		m.notice = "This dream is already waiting for interpretation."
	default:
		m.notice = err.Error()
	}
	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   DREAMSCRIBE"))
	b.WriteString(titleStyle.Render(" - Dream Journal"))
	b.WriteString("\n\n")

	if err := m.orch.Err(); err != nil {
		b.WriteString(bannerStyle.Render("✗ " + err.Error()))
		b.WriteString(dimStyle.Render("  [x] dismiss"))
		b.WriteString("\n\n")
	}
	if m.notice != "" {
		b.WriteString(promptStyle.Render(m.notice))
		b.WriteString("\n\n")
	}

	switch m.screen {
	case screenList:
		b.WriteString(m.listView())
	case screenCompose:
		b.WriteString(m.composeView())
	case screenDetail:
		b.WriteString(m.detailView())
	case screenConfirmDelete:
		b.WriteString(m.confirmView())
	}
	return b.String()
}

func (m AppModel) listView() string {
	var b strings.Builder

	b.WriteString(m.filterBar())
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		if m.filter == "" {
			b.WriteString(dimStyle.Render("No dreams recorded yet. Press n to record one."))
		} else {
			b.WriteString(dimStyle.Render("No dreams match this filter."))
		}
		b.WriteString("\n")
	}

	processing := m.orch.Processing()
	queued := make(map[string]bool)
	for _, id := range m.orch.Queued() {
		queued[id] = true
	}

	for i, e := range m.entries {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s %s %s", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Emotion.Emoji(), e.Title())
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}

		var status string
		switch {
		case e.ID == processing:
			status = " " + m.spinner.View() + " interpreting"
		case queued[e.ID]:
			status = dimStyle.Render(" (queued)")
		case e.Pending():
			status = dimStyle.Render(" (pending)")
		}
		b.WriteString(marker + line + status + "\n")
	}

	if chart := themeChart(m.all); chart != "" {
		b.WriteString("\n")
		b.WriteString(chart)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[n]ew  [enter] open  [d]elete  [i]nterpret  [0-6] filter  [q]uit"))
	b.WriteString("\n")
	return b.String()
}

func (m AppModel) filterBar() string {
	parts := []string{"0 All"}
	for i, e := range models.Emotions {
		parts = append(parts, fmt.Sprintf("%d %s %s", i+1, e.Emoji(), e.Label()))
	}
	active := 0
	for i, e := range models.Emotions {
		if e == m.filter {
			active = i + 1
		}
	}
	for i := range parts {
		if i == active {
			parts[i] = selectedStyle.Render("[" + parts[i] + "]")
		} else {
			parts[i] = dimStyle.Render(" " + parts[i] + " ")
		}
	}
	return strings.Join(parts, " ")
}

// themeChart renders the recurring themes as a bar chart, or "" when there are none.
func themeChart(entries []models.Entry) string {
	counts := themes.Rank(entries)
	if len(counts) == 0 {
		return ""
	}

	labelWidth := 0
	for _, c := range counts {
		labelWidth = max(labelWidth, len(c.Theme))
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Recurring Themes"))
	b.WriteString("\n")
	for i, width := range themes.Bars(counts, chartWidth) {
		c := counts[i]
		fmt.Fprintf(&b, "  %-*s %s %d\n", labelWidth, c.Theme, barStyle.Render(strings.Repeat("█", width)), c.Count)
	}
	return b.String()
}

func (m AppModel) confirmView() string {
	entry, ok := m.store.Get(m.selected)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone.", entry.Title())))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("[y]es  [n]o"))
	b.WriteString("\n")
	return b.String()
}
