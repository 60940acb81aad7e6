// ABOUTME: Interactive TUI wizard for configuring the AI services.
// ABOUTME: 3-step bubbletea model collecting the chat API key, chat model, and image API key.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Step represents the current wizard step.
type Step int

const (
	StepChatKey Step = iota
	StepChatModel
	StepImageKey
	StepValidating
	StepDone
	StepFailed
)

// SetupValues are the settings the wizard edits.
type SetupValues struct {
	ChatKey      string
	ChatModel    string
	ImageKey     string
	ImageBaseURL string
}

// validationResultMsg carries the result of an async validation attempt.
type validationResultMsg struct {
	err error
}

// ValidateFn is the function signature for image key validation.
type ValidateFn func(ctx context.Context, baseURL, apiKey string) error

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	imageBaseURL  string
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	validationErr error
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(existing SetupValues) SetupModel {
	chatKey := textinput.New()
	chatKey.Placeholder = "your-ark-api-key"
	chatKey.EchoMode = textinput.EchoPassword
	chatKey.Focus()
	chatKey.Width = 50
	if existing.ChatKey != "" {
		chatKey.SetValue(existing.ChatKey)
	}

	chatModel := textinput.New()
	chatModel.Placeholder = "model name or endpoint id"
	chatModel.Width = 50
	if existing.ChatModel != "" {
		chatModel.SetValue(existing.ChatModel)
	}

	imageKey := textinput.New()
	imageKey.Placeholder = "sk-... (optional)"
	imageKey.EchoMode = textinput.EchoPassword
	imageKey.Width = 50
	if existing.ImageKey != "" {
		imageKey.SetValue(existing.ImageKey)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:         StepChatKey,
		inputs:       [3]textinput.Model{chatKey, chatModel, imageKey},
		imageBaseURL: existing.ImageBaseURL,
		spinner:      s,
		validateFn:   ValidateImageKey,
		cancelCtx:    &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepChatKey, StepChatModel, StepImageKey:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)
		m.inputs[idx].SetValue(strings.TrimSpace(m.inputs[idx].Value()))

		// The chat key and model are required; the image key is optional.
		if m.step != StepImageKey && m.inputs[idx].Value() == "" {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepChatKey:
			m.step = StepChatModel
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepChatModel:
			m.step = StepImageKey
			m.inputs[2].Focus()
			return m, textinput.Blink
		case StepImageKey:
			if m.inputs[2].Value() == "" {
				m.step = StepDone
				return m, tea.Quit
			}
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	baseURL := m.imageBaseURL
	apiKey := m.inputs[2].Value()
	fn := m.validateFn
	return func() tea.Msg {
		return validationResultMsg{err: fn(ctx, baseURL, apiKey)}
	}
}

func masked(s string) string {
	return strings.Repeat("*", len(s))
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   DREAMSCRIBE"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Connect the interpretation and image services.\n\n")

	switch m.step {
	case StepChatKey:
		b.WriteString(stepStyle.Render("Step 1 of 3: Chat API Key"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepChatModel:
		b.WriteString(fmt.Sprintf("  Chat API Key: %s\n\n", masked(m.inputs[0].Value())))
		b.WriteString(stepStyle.Render("Step 2 of 3: Chat Model"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepImageKey:
		b.WriteString(fmt.Sprintf("  Chat API Key: %s\n", masked(m.inputs[0].Value())))
		b.WriteString(fmt.Sprintf("  Chat Model: %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Image API Key"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter to skip; visualization stays off)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  Chat Model: %s\n", m.inputs[1].Value()))
		b.WriteString(fmt.Sprintf("  Image API Key: %s\n\n", masked(m.inputs[2].Value())))
		b.WriteString(m.spinner.View())
		b.WriteString(" Validating image key...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Configured!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered values.
func (m SetupModel) Result() SetupValues {
	return SetupValues{
		ChatKey:      m.inputs[0].Value(),
		ChatModel:    m.inputs[1].Value(),
		ImageKey:     m.inputs[2].Value(),
		ImageBaseURL: m.imageBaseURL,
	}
}

// ShouldSave returns true if the wizard completed (via validation success,
// skipping the image key, or "save anyway") and the user did not cancel with
// Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
