// ABOUTME: Compose screen for recording a new dream with an emotion and optional dictation.
// ABOUTME: Dictation runs the speech capture in the background and appends final fragments to the textarea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/speech"
)

// dictation is one running speech capture session.
type dictation struct {
	cancel    context.CancelFunc
	fragments chan string
	done      chan error
}

type dictationMsg struct {
	session *dictation
	text    string
}

type dictationEndedMsg struct {
	session *dictation
	err     error
}

func startDictation(capture *speech.Capture) *dictation {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dictation{
		cancel:    cancel,
		fragments: make(chan string),
		done:      make(chan error, 1),
	}
	go func() {
		d.done <- capture.Listen(ctx, func(text string) {
			select {
			case d.fragments <- text:
			case <-ctx.Done():
			}
		})
	}()
	return d
}

// next waits for the next fragment or the end of the session.
func (d *dictation) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case text := <-d.fragments:
			return dictationMsg{session: d, text: text}
		case err := <-d.done:
			return dictationEndedMsg{session: d, err: err}
		}
	}
}

func (m AppModel) openCompose() (tea.Model, tea.Cmd) {
	m.screen = screenCompose
	m.notice = ""
	return m, m.compose.Focus()
}

func (m *AppModel) stopDictation() {
	if m.dictation != nil {
		m.dictation.cancel()
		m.dictation = nil
	}
}

func (m AppModel) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopDictation()
		m.compose.Blur()
		m.screen = screenList
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "tab":
		m.emotionIdx = (m.emotionIdx + 1) % len(models.Emotions)
		return m, nil
	case "shift+tab":
		m.emotionIdx = (m.emotionIdx + len(models.Emotions) - 1) % len(models.Emotions)
		return m, nil
	case "ctrl+r":
		if !m.speech.Available() {
			return m, nil
		}
		if m.dictation != nil {
			m.stopDictation()
			return m, nil
		}
		m.dictation = startDictation(m.speech)
		m.notice = ""
		return m, m.dictation.next()
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

func (m AppModel) submit() (tea.Model, tea.Cmd) {
	emotion := models.Emotions[m.emotionIdx]
	entry, _, err := m.orch.Submit(context.Background(), m.compose.Value(), emotion)
	if errors.Is(err, orchestrator.ErrEmptyContent) {
		m.notice = "Write something about your dream first."
		return m, nil
	}
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}

	m.stopDictation()
	m.compose.Reset()
	m.compose.Blur()
	m.screen = screenList
	m.notice = ""
	if m.filter != "" && m.filter != emotion {
		m.filter = ""
	}
	m = m.refresh()
	for i, e := range m.entries {
		if e.ID == entry.ID {
			m.cursor = i
		}
	}
	tick := m.startSpinner()
	return m, tick
}

func (m AppModel) handleDictation(msg dictationMsg) (tea.Model, tea.Cmd) {
	if msg.session != m.dictation {
		return m, nil
	}
	m.compose.SetValue(speech.Append(m.compose.Value(), msg.text))
	return m, m.dictation.next()
}

func (m AppModel) handleDictationEnded(msg dictationEndedMsg) (tea.Model, tea.Cmd) {
	if msg.session != m.dictation {
		return m, nil
	}
	m.dictation = nil
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("dictation failed")
		m.notice = "Dictation unavailable: " + msg.err.Error()
	}
	return m, nil
}

func (m AppModel) composeView() string {
	var b strings.Builder

	b.WriteString(headingStyle.Render("Record a Dream"))
	b.WriteString("\n\n")
	b.WriteString(m.compose.View())
	b.WriteString("\n\n")

	parts := make([]string, len(models.Emotions))
	for i, e := range models.Emotions {
		label := fmt.Sprintf("%s %s", e.Emoji(), e.Label())
		if i == m.emotionIdx {
			parts[i] = selectedStyle.Render("[" + label + "]")
		} else {
			parts[i] = dimStyle.Render(" " + label + " ")
		}
	}
	b.WriteString("Feeling: ")
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n\n")

	help := "[ctrl+s] save  [tab] emotion  [esc] cancel"
	if m.speech.Available() {
		if m.dictation != nil {
			b.WriteString(successStyle.Render("● Listening..."))
			b.WriteString("\n")
			help += "  [ctrl+r] stop dictation"
		} else {
			help += "  [ctrl+r] dictate"
		}
	}
	b.WriteString(dimStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}
