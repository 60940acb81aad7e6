// ABOUTME: Tests for the journal TUI model.
// ABOUTME: Drives the model with synthetic key messages against a real store and a stubbed enrichment backend.
package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/kv"
	"github.com/2389-research/dreamscribe/internal/models"
	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/speech"
	"github.com/2389-research/dreamscribe/internal/storage"
)

type stubInterpreter struct {
	mu   sync.Mutex
	gate chan struct{}
	fail error
}

func (s *stubInterpreter) Interpret(ctx context.Context, text string) (*models.Interpretation, error) {
	s.mu.Lock()
	gate, fail := s.gate, s.fail
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return nil, fail
	}
	return &models.Interpretation{
		Title:     "Dream of " + text,
		Summary:   "A summary.",
		Themes:    []string{"Water", "Flight"},
		Symbols:   []models.Symbol{{Symbol: "bird", Meaning: "freedom", Psychology: "aspiration"}},
		Emotions:  []models.EmotionAnalysis{{Emotion: "joy", Analysis: "lightness"}},
		Narrative: "A narrative.",
	}, nil
}

type stubVisualizer struct {
	ref string
	err error
}

func (s *stubVisualizer) Visualize(ctx context.Context, prompt string) (string, error) {
	return s.ref, s.err
}

type appEnv struct {
	store  *storage.EntryStore
	orch   *orchestrator.Orchestrator
	interp *stubInterpreter
	vis    *stubVisualizer
}

func newAppEnv(t *testing.T) *appEnv {
	t.Helper()
	medium, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	store := storage.NewEntryStore(medium)
	t.Cleanup(func() { _ = store.Close() })

	interp := &stubInterpreter{}
	vis := &stubVisualizer{ref: "https://img.example/dream.png"}
	return &appEnv{
		store:  store,
		orch:   orchestrator.New(store, interp, vis, zerolog.Nop()),
		interp: interp,
		vis:    vis,
	}
}

func (env *appEnv) app(capture *speech.Capture) AppModel {
	m := NewAppModel(env.store, env.orch, capture, zerolog.Nop())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 80})
	return updated.(AppModel)
}

// record submits a dream and waits for its enrichment attempt to resolve.
func (env *appEnv) record(t *testing.T, content string, emotion models.Emotion) models.Entry {
	t.Helper()
	entry, task, err := env.orch.Submit(context.Background(), content, emotion)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = task.Wait(ctx)
	return entry
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m AppModel, keys ...tea.KeyMsg) AppModel {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(AppModel)
	}
	return m
}

func changed(m AppModel) AppModel {
	updated, _ := m.Update(changedMsg{})
	return updated.(AppModel)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_EmptyJournal(t *testing.T) {
	env := newAppEnv(t)
	view := env.app(nil).View()
	if !strings.Contains(view, "No dreams recorded yet") {
		t.Error("expected empty-state message")
	}
	if strings.Contains(view, "Recurring Themes") {
		t.Error("expected theme chart hidden without interpreted entries")
	}
}

func TestApp_ListShowsEntriesAndThemes(t *testing.T) {
	env := newAppEnv(t)
	env.record(t, "the sea", models.Joy)

	view := env.app(nil).View()
	if !strings.Contains(view, "Dream of the sea") {
		t.Error("expected interpreted title in the list")
	}
	if !strings.Contains(view, "Recurring Themes") {
		t.Error("expected theme chart once entries are interpreted")
	}
	if !strings.Contains(view, "water") {
		t.Error("expected normalized theme in the chart")
	}
}

func TestApp_EmotionFilter(t *testing.T) {
	env := newAppEnv(t)
	env.record(t, "happy", models.Joy)
	env.record(t, "sad", models.Sadness)

	m := env.app(nil)
	if len(m.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.entries))
	}

	m = press(t, m, runes("2"))
	if len(m.entries) != 1 || m.entries[0].Emotion != models.Sadness {
		t.Errorf("expected only the sad entry, got %+v", m.entries)
	}

	m = press(t, m, runes("1"))
	if len(m.entries) != 1 || m.entries[0].Emotion != models.Joy {
		t.Errorf("expected only the joyful entry, got %+v", m.entries)
	}

	m = press(t, m, runes("4"))
	if len(m.entries) != 0 {
		t.Errorf("expected no angry entries, got %d", len(m.entries))
	}
	if !strings.Contains(m.View(), "No dreams match this filter") {
		t.Error("expected filtered empty-state message")
	}

	m = press(t, m, runes("0"))
	if len(m.entries) != 2 {
		t.Errorf("expected all entries after clearing filter, got %d", len(m.entries))
	}
	if env.store.Len() != 2 {
		t.Error("filtering must not change the collection")
	}
}

func TestApp_ComposeAndSubmit(t *testing.T) {
	env := newAppEnv(t)
	m := env.app(nil)

	m = press(t, m, runes("n"))
	if m.screen != screenCompose {
		t.Fatalf("expected compose screen, got %d", m.screen)
	}
	m = press(t, m, runes("I was flying"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyCtrlS})

	if m.screen != screenList {
		t.Errorf("expected list screen after submit, got %d", m.screen)
	}
	entries := env.store.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Content != "I was flying" {
		t.Errorf("expected typed content, got %q", entries[0].Content)
	}
	if entries[0].Emotion != models.Joy {
		t.Errorf("expected tab to move from neutral to joy, got %q", entries[0].Emotion)
	}
	if m.compose.Value() != "" {
		t.Error("expected compose buffer cleared")
	}
}

func TestApp_SubmitEmptyIsRejected(t *testing.T) {
	env := newAppEnv(t)
	m := press(t, env.app(nil), runes("n"), runes("   "), tea.KeyMsg{Type: tea.KeyCtrlS})

	if m.screen != screenCompose {
		t.Errorf("expected to stay on compose, got %d", m.screen)
	}
	if !strings.Contains(m.notice, "Write something") {
		t.Errorf("expected notice about empty content, got %q", m.notice)
	}
	if env.store.Len() != 0 {
		t.Error("expected no entry for blank content")
	}
}

func TestApp_BusyIndicatorOnProcessingEntryOnly(t *testing.T) {
	env := newAppEnv(t)
	gate := make(chan struct{})
	env.interp.gate = gate
	t.Cleanup(func() { close(gate) })

	first, _, err := env.orch.Submit(context.Background(), "first", models.Fear)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.orch.Submit(context.Background(), "second", models.Fear); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return env.orch.Processing() == first.ID })

	view := env.app(nil).View()
	if n := strings.Count(view, "interpreting"); n != 1 {
		t.Errorf("expected exactly one busy indicator, got %d", n)
	}
	if !strings.Contains(view, "(queued)") {
		t.Error("expected the second entry marked as queued")
	}
}

func TestApp_ErrorBannerDismiss(t *testing.T) {
	env := newAppEnv(t)
	env.interp.fail = errors.New("interpretation service down")
	env.record(t, "lost", models.Fear)

	m := changed(env.app(nil))
	view := m.View()
	if !strings.Contains(view, "interpretation service down") {
		t.Error("expected error banner")
	}
	if !strings.Contains(view, "(pending)") {
		t.Error("expected failed entry to stay pending")
	}

	m = press(t, m, runes("x"))
	if env.orch.Err() != nil {
		t.Error("expected error dismissed")
	}
	if strings.Contains(m.View(), "interpretation service down") {
		t.Error("expected banner gone after dismiss")
	}
	if env.store.Len() != 1 {
		t.Error("dismissing must not touch entries")
	}
}

func TestApp_ReinterpretPending(t *testing.T) {
	env := newAppEnv(t)
	env.interp.fail = errors.New("down")
	entry := env.record(t, "retry me", models.Neutral)

	env.interp.mu.Lock()
	env.interp.fail = nil
	env.interp.mu.Unlock()

	m := press(t, env.app(nil), runes("i"))
	if m.notice != "Interpretation queued." {
		t.Errorf("unexpected notice %q", m.notice)
	}
	waitFor(t, func() bool {
		e, _ := env.store.Get(entry.ID)
		return !e.Pending()
	})

	m = press(t, changed(m), runes("i"))
	if !strings.Contains(m.notice, "already interpreted") {
		t.Errorf("expected already-interpreted notice, got %q", m.notice)
	}
}

func TestApp_DetailAndVisualize(t *testing.T) {
	env := newAppEnv(t)
	entry := env.record(t, "the forest", models.Surprise)

	m := press(t, env.app(nil), tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenDetail || m.selected != entry.ID {
		t.Fatalf("expected detail of %s, got screen %d selected %q", entry.ID, m.screen, m.selected)
	}
	view := m.View()
	for _, want := range []string{"Dream of the forest", "Symbols", "bird", "Emotional Landscape", "Press v to visualize"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected detail view to contain %q", want)
		}
	}

	m = press(t, m, runes("v"))
	waitFor(t, func() bool {
		e, _ := env.store.Get(entry.ID)
		return e.Visualization != ""
	})
	waitFor(t, func() bool { return env.orch.Visualizing() == "" })
	m = changed(m)
	if !strings.Contains(m.View(), "https://img.example/dream.png") {
		t.Error("expected visualization reference in detail view")
	}

	m = press(t, m, runes("v"))
	if !strings.Contains(m.notice, "already visualized") {
		t.Errorf("expected already-visualized notice, got %q", m.notice)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.screen != screenList {
		t.Errorf("expected list after esc, got %d", m.screen)
	}
}

func TestApp_VisualizePendingEntry(t *testing.T) {
	env := newAppEnv(t)
	env.interp.fail = errors.New("down")
	env.record(t, "unclear", models.Neutral)

	m := press(t, env.app(nil), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "Interpretation pending") {
		t.Error("expected pending placeholder in detail view")
	}
	m = press(t, m, runes("v"))
	if !strings.Contains(m.notice, "needs an interpretation") {
		t.Errorf("expected not-interpreted notice, got %q", m.notice)
	}
}

func TestApp_DeleteRequiresConfirmation(t *testing.T) {
	env := newAppEnv(t)
	env.record(t, "keep me", models.Joy)

	m := press(t, env.app(nil), runes("d"))
	if m.screen != screenConfirmDelete {
		t.Fatalf("expected confirmation screen, got %d", m.screen)
	}
	if !strings.Contains(m.View(), "cannot be undone") {
		t.Error("expected irreversible warning")
	}

	m = press(t, m, runes("n"))
	if m.screen != screenList || env.store.Len() != 1 {
		t.Error("expected cancel to keep the entry")
	}

	m = press(t, m, runes("d"), runes("y"))
	if env.store.Len() != 0 {
		t.Error("expected entry deleted after confirmation")
	}
	if m.notice != "Dream deleted." {
		t.Errorf("unexpected notice %q", m.notice)
	}
}

func TestApp_DeleteFromDetailReturnsToDetailOnCancel(t *testing.T) {
	env := newAppEnv(t)
	env.record(t, "stay", models.Joy)

	m := press(t, env.app(nil), tea.KeyMsg{Type: tea.KeyEnter}, runes("d"), tea.KeyMsg{Type: tea.KeyEscape})
	if m.screen != screenDetail {
		t.Errorf("expected detail after cancelling delete, got %d", m.screen)
	}
}

func TestApp_DetailClosesWhenEntryDeletedElsewhere(t *testing.T) {
	env := newAppEnv(t)
	entry := env.record(t, "vanishing", models.Fear)

	m := press(t, env.app(nil), tea.KeyMsg{Type: tea.KeyEnter})
	env.orch.Remove(entry.ID)
	m = changed(m)
	if m.screen != screenList {
		t.Errorf("expected list once the viewed entry is gone, got %d", m.screen)
	}
}

func TestApp_Quit(t *testing.T) {
	env := newAppEnv(t)
	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := env.app(nil).Update(key)
		if cmd == nil {
			t.Fatalf("expected quit cmd for %q", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected QuitMsg for %q", key.String())
		}
	}
}

func TestApp_DictationHiddenWhenUnavailable(t *testing.T) {
	env := newAppEnv(t)
	m := press(t, env.app(speech.New("", zerolog.Nop())), runes("n"))
	if strings.Contains(m.View(), "dictate") {
		t.Error("expected dictation hint hidden without a transcription endpoint")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.dictation != nil {
		t.Error("expected no dictation session")
	}
}

func TestApp_DictationAppendsFinalFragments(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(speech.Transcript{Text: "I was", Final: false})
		_ = conn.WriteJSON(speech.Transcript{Text: "I was flying", Final: true})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	env := newAppEnv(t)
	capture := speech.New("ws"+strings.TrimPrefix(server.URL, "http"), zerolog.Nop())
	m := press(t, env.app(capture), runes("n"), runes("Last night"))
	if !strings.Contains(m.View(), "[ctrl+r] dictate") {
		t.Error("expected dictation hint when available")
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(AppModel)
	if m.dictation == nil || cmd == nil {
		t.Fatal("expected dictation to start")
	}
	if !strings.Contains(m.View(), "Listening") {
		t.Error("expected listening indicator")
	}

	updated, _ = m.Update(cmd())
	m = updated.(AppModel)
	if got := m.compose.Value(); got != "Last night I was flying" {
		t.Errorf("expected appended transcript, got %q", got)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.dictation != nil {
		t.Error("expected dictation stopped")
	}
}

func TestApp_DictationFailureShowsNotice(t *testing.T) {
	env := newAppEnv(t)
	m := env.app(speech.New("ws://127.0.0.1:1", zerolog.Nop()))
	session := &dictation{cancel: func() {}}
	m.dictation = session

	updated, _ := m.Update(dictationEndedMsg{session: session, err: &speech.CaptureFailure{Err: errors.New("refused")}})
	m = updated.(AppModel)
	if m.dictation != nil {
		t.Error("expected session cleared")
	}
	if !strings.Contains(m.notice, "Dictation unavailable") {
		t.Errorf("expected capability-unavailable notice, got %q", m.notice)
	}
}

func TestApp_StaleDictationMessagesIgnored(t *testing.T) {
	env := newAppEnv(t)
	m := press(t, env.app(nil), runes("n"))
	updated, _ := m.Update(dictationMsg{session: &dictation{}, text: "ghost"})
	m = updated.(AppModel)
	if m.compose.Value() != "" {
		t.Errorf("expected stale fragment ignored, got %q", m.compose.Value())
	}
}
