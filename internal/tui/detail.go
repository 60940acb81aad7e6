// ABOUTME: Detail screen showing one dream with its interpretation and visualization.
// ABOUTME: Scrolls through a viewport and triggers visualization and manual re-interpretation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
)

func (m AppModel) openDetail(id string) AppModel {
	m.selected = id
	m.screen = screenDetail
	m.notice = ""
	m = m.refresh()
	m.detail.GotoTop()
	return m
}

func (m AppModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.screen = screenList
		m.selected = ""
		m.notice = ""
		return m.refresh(), nil
	case "v":
		return m.visualize()
	case "i":
		return m.reinterpret(m.selected)
	case "d":
		m.back = screenDetail
		m.screen = screenConfirmDelete
		return m, nil
	case "x":
		m.orch.DismissError()
		m.notice = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m AppModel) visualize() (tea.Model, tea.Cmd) {
	_, err := m.orch.Visualize(context.Background(), m.selected)
	switch {
	case err == nil:
		m.notice = ""
		m = m.refresh()
		tick := m.startSpinner()
		return m, tick
	case errors.Is(err, orchestrator.ErrNotInterpreted):
		m.notice = "Visualization needs an interpretation first."
	case errors.Is(err, orchestrator.ErrAlreadyVisualized):
		m.notice = "This dream is already visualized."
	case errors.Is(err, orchestrator.ErrVisualizationBusy):
		m.notice = "Another visualization is in progress."
	default:
		m.notice = err.Error()
	}
	return m, nil
}

func (m AppModel) detailView() string {
	var b strings.Builder
	b.WriteString(m.detail.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("[v]isualize  [i]nterpret  [d]elete  [esc] back  [↑/↓] scroll"))
	b.WriteString("\n")
	return b.String()
}

// detailContent renders an entry for the detail viewport.
func (m AppModel) detailContent(e models.Entry) string {
	var b strings.Builder

	b.WriteString(headingStyle.Render(e.Title()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s  %s %s", e.CreatedAt.Local().Format("Monday, January 2, 2006 15:04"), e.Emotion.Emoji(), e.Emotion.Label())))
	b.WriteString("\n\n")

	b.WriteString(headingStyle.Render("Dream"))
	b.WriteString("\n")
	b.WriteString(e.Content)
	b.WriteString("\n\n")

	in := e.Interpretation
	switch {
	case in == nil && m.orch.Processing() == e.ID:
		b.WriteString(m.spinner.View() + " Interpreting your dream...\n")
		return b.String()
	case in == nil:
		b.WriteString(dimStyle.Render("Interpretation pending. Press i to try again."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headingStyle.Render("Summary"))
	b.WriteString("\n" + in.Summary + "\n\n")

	b.WriteString(headingStyle.Render("Interpretation"))
	b.WriteString("\n" + in.Narrative + "\n\n")

	b.WriteString(headingStyle.Render("Themes"))
	b.WriteString("\n" + strings.Join(in.Themes, ", ") + "\n\n")

	b.WriteString(headingStyle.Render("Emotional Landscape"))
	b.WriteString("\n")
	for _, ea := range in.Emotions {
		fmt.Fprintf(&b, "  %s: %s\n", selectedStyle.Render(ea.Emotion), ea.Analysis)
	}
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Symbols"))
	b.WriteString("\n")
	for _, s := range in.Symbols {
		fmt.Fprintf(&b, "  %s\n    Meaning: %s\n    Psychology: %s\n", selectedStyle.Render(s.Symbol), s.Meaning, s.Psychology)
	}
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Visualization"))
	b.WriteString("\n")
	switch {
	case m.orch.Visualizing() == e.ID:
		b.WriteString(m.spinner.View() + " Painting your dream...\n")
	case e.Visualization == "":
		b.WriteString(dimStyle.Render("No image yet. Press v to visualize."))
		b.WriteString("\n")
	case strings.HasPrefix(e.Visualization, "data:"):
		b.WriteString("Image stored with the entry. Use 'dreamscribe visualize " + e.ShortID() + " --out <file>' to save it.\n")
	default:
		b.WriteString(e.Visualization + "\n")
	}
	return b.String()
}
