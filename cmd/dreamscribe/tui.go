// ABOUTME: Cobra command launching the interactive journal.
// ABOUTME: Runs the bubbletea app in the alternate screen until the user quits.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/dreamscribe/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive journal",
	Long:  "Browse, record, and explore dreams in a full-screen terminal interface.",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	model := tui.NewAppModel(globalStore, globalOrch, globalSpeech, globalLog)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
