// ABOUTME: Cobra command for interactive AI service setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate API credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/dreamscribe/internal/config"
	"github.com/2389-research/dreamscribe/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the interpretation and image services",
	Long:  "Interactive wizard to configure the chat model and image generation credentials.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Environment overrides are not written back to the file.
	cfg, err := config.LoadFile()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(tui.SetupValues{
		ChatKey:      cfg.AI.APIKey,
		ChatModel:    cfg.AI.Model,
		ImageKey:     cfg.AI.ImageAPIKey,
		ImageBaseURL: cfg.AI.ImageBaseURL,
	})

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	values := final.Result()
	cfg.AI.APIKey = values.ChatKey
	cfg.AI.Model = values.ChatModel
	cfg.AI.ImageAPIKey = values.ImageKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
