// ABOUTME: Markdown export of dream entries with YAML frontmatter.
// ABOUTME: Writes one file per entry in date-based directories for reading outside the app.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/dreamscribe/internal/models"
)

// entryFrontmatter is the YAML frontmatter for exported entry files.
type entryFrontmatter struct {
	ID            string   `yaml:"id"`
	Date          string   `yaml:"date"`
	Emotion       string   `yaml:"emotion"`
	Title         string   `yaml:"title,omitempty"`
	Themes        []string `yaml:"themes,omitempty"`
	Pending       bool     `yaml:"pending,omitempty"`
	Visualization string   `yaml:"visualization,omitempty"`
}

// ExportMarkdown writes each entry to dir/<date>/<time>-<shortid>.md and returns the written paths.
func ExportMarkdown(dir string, entries []models.Entry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := MarkdownPath(dir, entry)
		content, err := RenderMarkdown(entry)
		if err != nil {
			return paths, fmt.Errorf("failed to render %s: %w", entry.ShortID(), err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return paths, fmt.Errorf("failed to create export directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// MarkdownPath returns the export location for entry under dir.
func MarkdownPath(dir string, entry models.Entry) string {
	local := entry.CreatedAt.Local()
	dateDir := local.Format("2006-01-02")
	filename := local.Format("15-04-05-000000") + "-" + entry.ShortID() + ".md"
	return filepath.Join(dir, dateDir, filename)
}

// RenderMarkdown renders an entry as frontmatter plus markdown sections.
func RenderMarkdown(entry models.Entry) (string, error) {
	fm := entryFrontmatter{
		ID:            entry.ID,
		Date:          entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		Emotion:       string(entry.Emotion),
		Pending:       entry.Pending(),
		Visualization: visualizationRef(entry.Visualization),
	}
	if in := entry.Interpretation; in != nil {
		fm.Title = in.Title
		fm.Themes = in.Themes
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n")
	sb.WriteString(RenderBody(entry))
	return sb.String(), nil
}

// visualizationRef keeps URLs but elides inline image data, which is too large for frontmatter.
func visualizationRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "inline image"
	}
	return ref
}

// RenderBody renders the markdown sections of an entry without frontmatter.
func RenderBody(entry models.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n# %s\n", entry.Title())
	fmt.Fprintf(&sb, "\n## Dream\n%s\n", strings.TrimSpace(entry.Content))

	in := entry.Interpretation
	if in == nil {
		sb.WriteString("\n_Interpretation pending._\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n## Summary\n%s\n", in.Summary)
	fmt.Fprintf(&sb, "\n## Interpretation\n%s\n", in.Narrative)

	sb.WriteString("\n## Themes\n")
	for _, theme := range in.Themes {
		fmt.Fprintf(&sb, "- %s\n", theme)
	}

	sb.WriteString("\n## Emotional Landscape\n")
	for _, e := range in.Emotions {
		fmt.Fprintf(&sb, "- **%s**: %s\n", e.Emotion, e.Analysis)
	}

	sb.WriteString("\n## Symbols\n")
	for _, s := range in.Symbols {
		fmt.Fprintf(&sb, "\n### %s\n- Meaning: %s\n- Psychology: %s\n", s.Symbol, s.Meaning, s.Psychology)
	}
	return sb.String()
}
