// ABOUTME: MCP tool implementations for dream journal operations.
// ABOUTME: Registers record, list, search, read, delete, interpret, visualize, and theme tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/dreamscribe/internal/enrich"
	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/storage"
	"github.com/2389-research/dreamscribe/internal/themes"
)

func (s *Server) registerDreamTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "record_dream",
		Description: "Record a dream in the journal and interpret it. The entry is saved immediately; interpretation runs afterwards and is included in the result when wait is true.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {"type": "string", "description": "The dream as the dreamer remembers it"},
				"emotion": {"type": "string", "enum": ["joy", "sadness", "fear", "anger", "surprise", "neutral"], "description": "How the dream felt (default: neutral)"},
				"wait": {"type": "boolean", "description": "Wait for the interpretation (default: true)"}
			},
			"required": ["content"]
		}`),
	}, s.handleRecordDream)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_dreams",
		Description: "List journal entries, newest first.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"emotion": {"type": "string", "enum": ["joy", "sadness", "fear", "anger", "surprise", "neutral"], "description": "Only list entries with this emotion"},
				"limit": {"type": "number", "description": "Maximum number of entries (default 20)"}
			}
		}`),
	}, s.handleListDreams)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_dreams",
		Description: "Search dream content, titles, summaries, and themes.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search text"},
				"limit": {"type": "number", "description": "Maximum number of results (default 10)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchDreams)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_dream",
		Description: "Read a dream entry with its full interpretation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique id prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleReadDream)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "delete_dream",
		Description: "Permanently delete a dream entry. This cannot be undone; confirm must be true.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique id prefix"},
				"confirm": {"type": "boolean", "description": "Must be true to delete"}
			},
			"required": ["id", "confirm"]
		}`),
	}, s.handleDeleteDream)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "interpret_dream",
		Description: "Retry interpretation for an entry whose earlier attempt failed.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique id prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleInterpretDream)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "visualize_dream",
		Description: "Generate a dreamlike painting for an interpreted entry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique id prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleVisualizeDream)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "dream_themes",
		Description: "Show the most frequent interpretation themes across the journal.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleDreamThemes)
}

func (s *Server) handleRecordDream(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	args := struct {
		Content string `json:"content"`
		Emotion string `json:"emotion"`
		Wait    *bool  `json:"wait"`
	}{}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	emotion := models.Neutral
	if args.Emotion != "" {
		parsed, err := models.ParseEmotion(args.Emotion)
		if err != nil {
			return toolError("%v", err), nil
		}
		emotion = parsed
	}

	entry, task, err := s.orch.Submit(ctx, args.Content, emotion)
	if err != nil {
		return toolError("failed to record dream: %v", err), nil
	}
	s.log.Info().Str("entry_id", entry.ID).Msg("dream recorded via mcp")

	if args.Wait != nil && !*args.Wait {
		return toolText("Dream recorded: %s\nInterpretation is in progress; use read_dream to see it.", entry.ID), nil
	}

	if err := task.Wait(ctx); err != nil {
		if errors.Is(err, orchestrator.ErrEntryNotFound) {
			return toolError("entry %s was deleted before its interpretation finished", entry.ShortID()), nil
		}
		s.orch.DismissError()
		return toolText("Dream recorded: %s\nInterpretation failed: %v\nThe entry is kept as pending; use interpret_dream to try again.", entry.ID, err), nil
	}

	updated, ok := s.store.Get(entry.ID)
	if !ok {
		return toolError("entry %s was deleted before its interpretation finished", entry.ShortID()), nil
	}
	return s.renderEntry(updated)
}

func (s *Server) handleListDreams(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Emotion string `json:"emotion"`
		Limit   int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}

	entries := s.store.List()
	if args.Emotion != "" {
		emotion, err := models.ParseEmotion(args.Emotion)
		if err != nil {
			return toolError("%v", err), nil
		}
		entries = models.FilterByEmotion(entries, emotion)
	}

	if len(entries) == 0 {
		return toolText("No dreams recorded yet."), nil
	}
	if len(entries) > args.Limit {
		entries = entries[:args.Limit]
	}
	return toolText("%s", s.summaryLines(entries)), nil
}

func (s *Server) handleSearchDreams(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return toolError("query is required"), nil
	}
	if args.Limit <= 0 {
		args.Limit = 10
	}

	var results []models.Entry
	for _, entry := range s.store.List() {
		if len(results) >= args.Limit {
			break
		}
		if entry.Matches(args.Query) {
			results = append(results, entry)
		}
	}

	if len(results) == 0 {
		return toolText("No matching dreams found."), nil
	}
	return toolText("%s", s.summaryLines(results)), nil
}

func (s *Server) handleReadDream(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, errResult := s.resolveArg(req)
	if errResult != nil {
		return errResult, nil
	}
	return s.renderEntry(entry)
}

func (s *Server) handleDeleteDream(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID      string `json:"id"`
		Confirm bool   `json:"confirm"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if !args.Confirm {
		return toolError("deletion is permanent; call again with confirm: true"), nil
	}

	entry, err := s.store.Resolve(args.ID)
	if err != nil {
		return toolError("%v", err), nil
	}
	if !s.orch.Remove(entry.ID) {
		return toolError("entry %s no longer exists", entry.ShortID()), nil
	}
	return toolText("Deleted dream %s (%s).", entry.ShortID(), entry.Title()), nil
}

func (s *Server) handleInterpretDream(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, errResult := s.resolveArg(req)
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.orch.Reinterpret(ctx, entry.ID)
	if err != nil {
		return toolError("cannot interpret %s: %v", entry.ShortID(), err), nil
	}
	if err := task.Wait(ctx); err != nil {
		s.orch.DismissError()
		return toolError("interpretation failed: %v", err), nil
	}

	updated, ok := s.store.Get(entry.ID)
	if !ok {
		return toolError("entry %s was deleted", entry.ShortID()), nil
	}
	return s.renderEntry(updated)
}

func (s *Server) handleVisualizeDream(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, errResult := s.resolveArg(req)
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.orch.Visualize(ctx, entry.ID)
	if err != nil {
		return toolError("cannot visualize %s: %v", entry.ShortID(), err), nil
	}
	if err := task.Wait(ctx); err != nil {
		s.orch.DismissError()
		return toolError("visualization failed: %v", err), nil
	}

	updated, ok := s.store.Get(entry.ID)
	if !ok {
		return toolError("entry %s was deleted", entry.ShortID()), nil
	}

	result := toolText("Visualized %s (%s).", updated.ShortID(), updated.Title())
	if img, ok := decodeDataURL(updated.Visualization); ok {
		result.Content = append(result.Content, img)
	} else {
		result.Content = append(result.Content, &gomcp.TextContent{Text: "Image: " + updated.Visualization})
	}
	return result, nil
}

func (s *Server) handleDreamThemes(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	ranked := themes.Rank(s.store.List())
	if len(ranked) == 0 {
		return toolText("No interpreted dreams yet."), nil
	}

	var sb strings.Builder
	for i, tc := range ranked {
		fmt.Fprintf(&sb, "%d. %s (%d)\n", i+1, tc.Theme, tc.Count)
	}
	return toolText("%s", sb.String()), nil
}

// resolveArg reads an {"id": ...} argument and resolves it to an entry.
func (s *Server) resolveArg(req *gomcp.CallToolRequest) (models.Entry, *gomcp.CallToolResult) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return models.Entry{}, toolError("invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.ID) == "" {
		return models.Entry{}, toolError("id is required")
	}
	entry, err := s.store.Resolve(args.ID)
	if err != nil {
		return models.Entry{}, toolError("%v", err)
	}
	return entry, nil
}

func (s *Server) renderEntry(entry models.Entry) (*gomcp.CallToolResult, error) {
	text, err := storage.RenderMarkdown(entry)
	if err != nil {
		return toolError("failed to render entry: %v", err), nil
	}
	if entry.ID == s.orch.Processing() {
		text += "\n_Interpretation in progress._\n"
	}
	return toolText("%s", text), nil
}

func (s *Server) summaryLines(entries []models.Entry) string {
	processing := s.orch.Processing()
	var sb strings.Builder
	for _, entry := range entries {
		status := ""
		switch {
		case entry.ID == processing:
			status = " [interpreting]"
		case entry.Pending():
			status = " [pending]"
		}
		fmt.Fprintf(&sb, "- %s %s %s %s%s\n",
			entry.ShortID(),
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.Emotion.Emoji(),
			entry.Title(),
			status,
		)
	}
	return sb.String()
}

// decodeDataURL turns an inline base64 image reference into image content.
func decodeDataURL(ref string) (*gomcp.ImageContent, bool) {
	mime, data, ok := enrich.DecodeDataURL(ref)
	if !ok {
		return nil, false
	}
	return &gomcp.ImageContent{Data: data, MIMEType: mime}, true
}

func toolText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
