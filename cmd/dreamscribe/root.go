// ABOUTME: Root Cobra command and global wiring for the dreamscribe CLI.
// ABOUTME: Loads config, opens the journal, and builds the enrichment pipeline before each command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/2389-research/dreamscribe/internal/config"
	"github.com/2389-research/dreamscribe/internal/enrich"
	"github.com/2389-research/dreamscribe/internal/kv"
	"github.com/2389-research/dreamscribe/internal/logging"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/speech"
	"github.com/2389-research/dreamscribe/internal/storage"
)

var version = "dev"

var (
	globalConfig  *config.Config
	globalLog     zerolog.Logger
	globalStore   *storage.EntryStore
	globalOrch    *orchestrator.Orchestrator
	globalSpeech  *speech.Capture
	globalLogFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:     "dreamscribe",
	Short:   "A dream journal with AI interpretation",
	Version: version,
	Long: `
   DREAMSCRIBE

Record your dreams, tag how they felt, and let an AI analyst find the
symbols and themes. Local-first: entries live on this machine.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		teardownGlobals()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return cmd.Help()
		}
		return runTUI(cmd, args)
	},
}

func init() {
	// Assigned here rather than in the literal to break the rootCmd <-> setupGlobals initialization cycle.
	rootCmd.PersistentPreRunE = setupGlobals
}

// usesScreen reports whether the command takes over the terminal, in which
// case logs go to a file instead of stderr.
func usesScreen(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd.Name() == "tui"
}

func setupGlobals(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "setup" || cmd.Name() == "completion" {
		return nil
	}
	if cmd == rootCmd && !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	globalConfig = cfg

	var logOut io.Writer = os.Stderr
	if usesScreen(cmd) {
		logPath, err := cfg.LogPath()
		if err != nil {
			return fmt.Errorf("failed to resolve log path: %w", err)
		}
		f, err := logging.OpenFile(logPath)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		globalLogFile = f
		logOut = f
	}
	globalLog = logging.New(logOut, cfg.LogLevel())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return openJournal(ctx, cfg, globalLog)
}

// openJournal opens the entry store and builds the orchestrator over the configured services.
func openJournal(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	path, err := cfg.StoragePath()
	if err != nil {
		return fmt.Errorf("failed to resolve storage path: %w", err)
	}
	medium, err := kv.Open(cfg.Backend(), path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	store := storage.NewEntryStore(medium, storage.WithLogger(log))
	n := store.Load(ctx)
	log.Debug().Int("entries", n).Str("backend", cfg.Backend()).Str("path", path).Msg("journal loaded")
	globalStore = store

	var chat enrich.ChatModel
	if cfg.HasInterpreter() {
		arkModel, err := enrich.NewArkChatModel(ctx, enrich.ArkConfig{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Region:  cfg.AI.Region,
		})
		if err != nil {
			log.Warn().Err(err).Msg("interpretation service unavailable")
		} else {
			chat = arkModel
		}
	}
	interp := enrich.NewInterpreter(chat, log)
	vis := enrich.NewVisualizer(enrich.VisualizerConfig{
		APIKey:  cfg.AI.ImageAPIKey,
		BaseURL: cfg.AI.ImageBaseURL,
		Model:   cfg.AI.ImageModel,
	}, log)

	globalOrch = orchestrator.New(store, interp, vis, log)
	globalSpeech = speech.New(cfg.Speech.URL, log)
	return nil
}

func teardownGlobals() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			globalLog.Error().Err(err).Msg("failed to close journal")
		}
		globalStore = nil
	}
	if globalLogFile != nil {
		_ = globalLogFile.Close()
		globalLogFile = nil
	}
}
