// ABOUTME: Core data models for dream entries, emotions, and AI interpretations.
// ABOUTME: Provides emotion parsing, interpretation validation, and field-level entry patches.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Emotion is the feeling a user tags an entry with when recording it.
type Emotion string

const (
	Joy      Emotion = "joy"
	Sadness  Emotion = "sadness"
	Fear     Emotion = "fear"
	Anger    Emotion = "anger"
	Surprise Emotion = "surprise"
	Neutral  Emotion = "neutral"
)

// Emotions lists the allowed emotions in display order.
var Emotions = []Emotion{Joy, Sadness, Fear, Anger, Surprise, Neutral}

var emotionDisplay = map[Emotion]struct {
	label string
	emoji string
}{
	Joy:      {"Joyful", "😊"},
	Sadness:  {"Sad", "😢"},
	Fear:     {"Fearful", "😨"},
	Anger:    {"Angry", "😠"},
	Surprise: {"Surprising", "😮"},
	Neutral:  {"Neutral", "😐"},
}

// IsValid returns true if e is one of the enumerated emotions.
func (e Emotion) IsValid() bool {
	_, ok := emotionDisplay[e]
	return ok
}

// Label returns the human-readable label. Unknown emotions render as neutral.
func (e Emotion) Label() string {
	if d, ok := emotionDisplay[e]; ok {
		return d.label
	}
	return emotionDisplay[Neutral].label
}

// Emoji returns the emoji used for e. Unknown emotions render as neutral.
func (e Emotion) Emoji() string {
	if d, ok := emotionDisplay[e]; ok {
		return d.emoji
	}
	return emotionDisplay[Neutral].emoji
}

// ParseEmotion converts user input into an Emotion, case-insensitively.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("invalid emotion %q (valid: %s)", s, EmotionNames())
	}
	return e, nil
}

// EmotionNames returns the allowed emotions as a comma-separated list.
func EmotionNames() string {
	names := make([]string, len(Emotions))
	for i, e := range Emotions {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// Symbol is one dream symbol with its contextual meaning and psychological reading.
type Symbol struct {
	Symbol     string `json:"symbol"`
	Meaning    string `json:"meaning"`
	Psychology string `json:"psychology"`
}

// EmotionAnalysis describes how an emotion shows up in a dream.
type EmotionAnalysis struct {
	Emotion  string `json:"emotion"`
	Analysis string `json:"analysis"`
}

// Interpretation is the structured result of enriching an entry.
type Interpretation struct {
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Themes    []string          `json:"themes"`
	Symbols   []Symbol          `json:"symbols"`
	Emotions  []EmotionAnalysis `json:"emotions"`
	Narrative string            `json:"interpretation"`
}

const (
	MinThemes = 2
	MaxThemes = 4
)

// Validate checks the interpretation against the enrichment response schema.
// Every field is required and every string must be non-blank.
func (in *Interpretation) Validate() error {
	if in == nil {
		return fmt.Errorf("interpretation is missing")
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if strings.TrimSpace(in.Narrative) == "" {
		return fmt.Errorf("interpretation narrative is required")
	}
	if n := len(in.Themes); n < MinThemes || n > MaxThemes {
		return fmt.Errorf("expected %d-%d themes, got %d", MinThemes, MaxThemes, n)
	}
	for i, theme := range in.Themes {
		if strings.TrimSpace(theme) == "" {
			return fmt.Errorf("theme %d is empty", i)
		}
	}
	if len(in.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for i, s := range in.Symbols {
		if strings.TrimSpace(s.Symbol) == "" || strings.TrimSpace(s.Meaning) == "" || strings.TrimSpace(s.Psychology) == "" {
			return fmt.Errorf("symbol %d is incomplete", i)
		}
	}
	if len(in.Emotions) == 0 {
		return fmt.Errorf("at least one emotion analysis is required")
	}
	for i, e := range in.Emotions {
		if strings.TrimSpace(e.Emotion) == "" || strings.TrimSpace(e.Analysis) == "" {
			return fmt.Errorf("emotion analysis %d is incomplete", i)
		}
	}
	return nil
}

// Entry is one journaled dream. A nil Interpretation means enrichment is pending.
type Entry struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"date"`
	Content        string          `json:"content"`
	Emotion        Emotion         `json:"emotion"`
	Interpretation *Interpretation `json:"interpretation"`
	Visualization  string          `json:"imageUrl,omitempty"`
}

// Pending returns true while the entry has no interpretation.
func (e Entry) Pending() bool {
	return e.Interpretation == nil
}

// Title returns the interpretation title, or a placeholder for pending entries.
func (e Entry) Title() string {
	if e.Interpretation != nil && e.Interpretation.Title != "" {
		return e.Interpretation.Title
	}
	return "A New Dream"
}

// ShortID returns the first eight characters of the entry ID.
func (e Entry) ShortID() string {
	if len(e.ID) <= 8 {
		return e.ID
	}
	return e.ID[:8]
}

// EntryPatch carries the mutable fields of an entry. Nil fields are left untouched.
type EntryPatch struct {
	Interpretation *Interpretation
	Visualization  *string
}

// Apply merges the non-nil patch fields into e.
func (p EntryPatch) Apply(e *Entry) {
	if p.Interpretation != nil {
		e.Interpretation = p.Interpretation
	}
	if p.Visualization != nil {
		e.Visualization = *p.Visualization
	}
}

// Matches reports whether query appears, case-insensitively, in the entry's
// content or in its interpretation's title, summary, or themes.
func (e Entry) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{e.Content}
	if in := e.Interpretation; in != nil {
		fields = append(fields, in.Title, in.Summary)
		fields = append(fields, in.Themes...)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// FilterByEmotion returns the entries tagged with emotion, keeping order.
// An empty emotion returns all entries.
func FilterByEmotion(entries []Entry, emotion Emotion) []Entry {
	if emotion == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.Emotion == emotion {
			out = append(out, e)
		}
	}
	return out
}
