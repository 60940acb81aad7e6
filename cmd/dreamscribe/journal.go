// ABOUTME: CLI commands for dream journal operations.
// ABOUTME: Provides record, list, show, search, delete, interpret, visualize, themes, and export.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/dreamscribe/internal/enrich"
	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/storage"
	"github.com/2389-research/dreamscribe/internal/themes"
)

var recordCmd = &cobra.Command{
	Use:   "record <dream...>",
	Short: "Record a dream",
	Long:  "Save a dream and interpret it. The entry is kept even if interpretation fails.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecord,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded dreams",
	Long:  "List dreams newest first, optionally filtered by emotion.",
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a dream and its interpretation",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search dreams",
	Long:  "Search dream text, titles, summaries, and themes by substring.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a dream",
	Long:  "Permanently delete a dream. Asks for confirmation unless --yes is given.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var interpretCmd = &cobra.Command{
	Use:   "interpret <id>",
	Short: "Retry interpretation of a pending dream",
	Args:  cobra.ExactArgs(1),
	RunE:  runInterpret,
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize <id>",
	Short: "Generate an image for a dream",
	Long:  "Generate a dreamlike painting from an interpreted dream, optionally saving it to a file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runVisualize,
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Show recurring themes",
	RunE:  runThemes,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export dreams as markdown files",
	RunE:  runExport,
}

// Flags
var (
	recordEmotion string
	recordNoWait  bool
	listEmotion   string
	listLimit     int
	searchLimit   int
	deleteYes     bool
	visualizeOut  string
	exportDir     string
)

func init() {
	rootCmd.AddCommand(recordCmd, listCmd, showCmd, searchCmd, deleteCmd, interpretCmd, visualizeCmd, themesCmd, exportCmd)

	recordCmd.Flags().StringVarP(&recordEmotion, "emotion", "e", string(models.Neutral), "How the dream felt: "+models.EmotionNames())
	recordCmd.Flags().BoolVar(&recordNoWait, "no-wait", false, "Return without waiting for the interpretation")

	listCmd.Flags().StringVarP(&listEmotion, "emotion", "e", "", "Only show dreams with this emotion")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of dreams to show (0 for all)")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")

	visualizeCmd.Flags().StringVarP(&visualizeOut, "out", "o", "", "Write the image to this file")

	exportCmd.Flags().StringVar(&exportDir, "dir", "dreams", "Directory to write markdown files into")
}

func runRecord(cmd *cobra.Command, args []string) error {
	emotion, err := models.ParseEmotion(recordEmotion)
	if err != nil {
		return err
	}

	entry, task, err := globalOrch.Submit(cmd.Context(), strings.Join(args, " "), emotion)
	if err != nil {
		return fmt.Errorf("failed to record dream: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dream recorded: %s\n", entry.ShortID())

	if recordNoWait {
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Interpreting...")
	return reportInterpretation(cmd, entry.ID, task)
}

// reportInterpretation waits for an enrichment attempt and prints the outcome.
// A failed attempt is reported but is not a command error: the entry stays pending.
func reportInterpretation(cmd *cobra.Command, id string, task *orchestrator.Task) error {
	out := cmd.OutOrStdout()
	if err := task.Wait(cmd.Context()); err != nil {
		if errors.Is(err, orchestrator.ErrEntryNotFound) {
			return fmt.Errorf("dream %s was deleted before it was interpreted", shortID(id))
		}
		globalOrch.DismissError()
		fmt.Fprintln(out, err.Error())
		fmt.Fprintf(out, "The dream is saved. Run 'dreamscribe interpret %s' to try again.\n", shortID(id))
		return nil
	}

	entry, ok := globalStore.Get(id)
	if !ok {
		return fmt.Errorf("dream %s was deleted", shortID(id))
	}
	fmt.Fprint(out, storage.RenderBody(entry))
	return nil
}

func shortID(id string) string {
	return models.Entry{ID: id}.ShortID()
}

func runList(cmd *cobra.Command, args []string) error {
	var emotion models.Emotion
	if listEmotion != "" {
		e, err := models.ParseEmotion(listEmotion)
		if err != nil {
			return err
		}
		emotion = e
	}

	entries := models.FilterByEmotion(globalStore.List(), emotion)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No dreams found.")
		return nil
	}
	if listLimit > 0 && len(entries) > listLimit {
		entries = entries[:listLimit]
	}
	printEntryLines(cmd.OutOrStdout(), entries, globalOrch.Processing())
	return nil
}

// printEntryLines writes one summary line per entry.
func printEntryLines(w io.Writer, entries []models.Entry, processing string) {
	for _, e := range entries {
		status := ""
		switch {
		case e.ID == processing:
			status = " [interpreting]"
		case e.Pending():
			status = " [pending]"
		}
		fmt.Fprintf(w, "%s  %s  %s %s%s\n",
			e.ShortID(),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Emotion.Emoji(),
			e.Title(),
			status,
		)
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	entry, err := globalStore.Resolve(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID: %s\nDate: %s\nEmotion: %s %s\n",
		entry.ID,
		entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		entry.Emotion.Emoji(),
		entry.Emotion.Label(),
	)
	fmt.Fprint(out, storage.RenderBody(entry))
	if entry.Visualization != "" {
		fmt.Fprintf(out, "\n## Visualization\n%s\n", describeImage(entry))
	}
	return nil
}

func describeImage(entry models.Entry) string {
	if strings.HasPrefix(entry.Visualization, "data:") {
		return fmt.Sprintf("Stored with the entry. Save it with 'dreamscribe visualize %s --out dream.png'.", entry.ShortID())
	}
	return entry.Visualization
}

func runSearch(cmd *cobra.Command, args []string) error {
	var matches []models.Entry
	for _, e := range globalStore.List() {
		if len(matches) >= searchLimit {
			break
		}
		if e.Matches(args[0]) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching dreams found.")
		return nil
	}
	printEntryLines(cmd.OutOrStdout(), matches, globalOrch.Processing())
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	entry, err := globalStore.Resolve(args[0])
	if err != nil {
		return err
	}

	if !deleteYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %q (%s)? This cannot be undone. [y/N] ", entry.Title(), entry.ShortID()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if !globalOrch.Remove(entry.ID) {
		return fmt.Errorf("dream %s was already deleted", entry.ShortID())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", entry.ShortID())
	return nil
}

// confirm asks a yes/no question and reads one line of input.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func runInterpret(cmd *cobra.Command, args []string) error {
	entry, err := globalStore.Resolve(args[0])
	if err != nil {
		return err
	}
	task, err := globalOrch.Reinterpret(cmd.Context(), entry.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Interpreting...")
	return reportInterpretation(cmd, entry.ID, task)
}

func runVisualize(cmd *cobra.Command, args []string) error {
	entry, err := globalStore.Resolve(args[0])
	if err != nil {
		return err
	}

	if entry.Visualization == "" {
		task, err := globalOrch.Visualize(cmd.Context(), entry.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Painting...")
		if err := task.Wait(cmd.Context()); err != nil {
			globalOrch.DismissError()
			return err
		}
		entry, _ = globalStore.Get(entry.ID)
	}

	if visualizeOut == "" {
		fmt.Fprintln(cmd.OutOrStdout(), describeImage(entry))
		return nil
	}
	if err := saveImage(cmd.Context(), entry.Visualization, visualizeOut); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Image saved to %s\n", visualizeOut)
	return nil
}

// saveImage writes an image reference to path, downloading hosted images.
func saveImage(ctx context.Context, ref, path string) error {
	if _, data, ok := enrich.DecodeDataURL(ref); ok {
		return os.WriteFile(path, data, 0644)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download returned %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runThemes(cmd *cobra.Command, args []string) error {
	ranked := themes.Rank(globalStore.List())
	if len(ranked) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No interpreted dreams yet.")
		return nil
	}

	width := 0
	for _, tc := range ranked {
		width = max(width, len(tc.Theme))
	}
	bars := themes.Bars(ranked, 30)
	for i, tc := range ranked {
		fmt.Fprintf(cmd.OutOrStdout(), "%-*s %s %d\n", width, tc.Theme, strings.Repeat("█", bars[i]), tc.Count)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	entries := globalStore.List()
	paths, err := storage.ExportMarkdown(exportDir, entries)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	abs, err := filepath.Abs(exportDir)
	if err != nil {
		abs = exportDir
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d dreams to %s\n", len(paths), abs)
	return nil
}
