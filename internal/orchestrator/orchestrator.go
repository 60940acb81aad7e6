// ABOUTME: Coordinates the create, enrich, and update lifecycle of dream entries.
// ABOUTME: Serializes enrichment through one in-flight slot and runs one visualization at a time.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/enrich"
	"github.com/2389-research/dreamscribe/internal/models"
)

var (
	ErrEntryNotFound      = errors.New("entry not found")
	ErrEmptyContent       = errors.New("dream content is empty")
	ErrInvalidEmotion     = errors.New("invalid emotion")
	ErrNotInterpreted     = errors.New("entry has no interpretation yet")
	ErrAlreadyInterpreted = errors.New("entry is already interpreted")
	ErrAlreadyQueued      = errors.New("entry is already waiting for interpretation")
	ErrAlreadyVisualized  = errors.New("entry already has a visualization")
	ErrVisualizationBusy  = errors.New("another visualization is in progress")
)

// Store is the entry collection the orchestrator drives.
type Store interface {
	Create(content string, emotion models.Emotion) models.Entry
	Get(id string) (models.Entry, bool)
	Update(id string, patch models.EntryPatch) bool
	Remove(id string) bool
}

// Interpreter produces structured interpretations.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*models.Interpretation, error)
}

// Visualizer produces an image reference for a prompt.
type Visualizer interface {
	Visualize(ctx context.Context, prompt string) (string, error)
}

type job struct {
	id   string
	task *Task
}

// Orchestrator owns the processing state. The entry data itself stays in Store.
type Orchestrator struct {
	store  Store
	interp Interpreter
	vis    Visualizer
	log    zerolog.Logger

	mu          sync.Mutex
	queue       []job
	draining    bool
	processing  string
	visualizing string
	lastErr     error

	changes chan struct{}
}

// New creates an orchestrator.
func New(store Store, interp Interpreter, vis Visualizer, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		interp:  interp,
		vis:     vis,
		log:     log.With().Str("component", "orchestrator").Logger(),
		changes: make(chan struct{}, 1),
	}
}

// Submit creates a pending entry and queues it for enrichment. The entry is in
// the store when Submit returns; the task completes when its enrichment attempt
// resolves.
func (o *Orchestrator) Submit(ctx context.Context, content string, emotion models.Emotion) (models.Entry, *Task, error) {
	if strings.TrimSpace(content) == "" {
		return models.Entry{}, nil, ErrEmptyContent
	}
	if !emotion.IsValid() {
		return models.Entry{}, nil, ErrInvalidEmotion
	}

	entry := o.store.Create(strings.TrimSpace(content), emotion)
	o.log.Info().Str("entry_id", entry.ID).Str("emotion", string(emotion)).Msg("entry created")
	return entry, o.enqueue(ctx, entry.ID), nil
}

// Reinterpret queues another enrichment attempt for a pending entry.
func (o *Orchestrator) Reinterpret(ctx context.Context, id string) (*Task, error) {
	entry, ok := o.store.Get(id)
	if !ok {
		return nil, ErrEntryNotFound
	}
	if !entry.Pending() {
		return nil, ErrAlreadyInterpreted
	}

	o.mu.Lock()
	waiting := o.processing == id
	for _, j := range o.queue {
		if j.id == id {
			waiting = true
		}
	}
	o.mu.Unlock()
	if waiting {
		return nil, ErrAlreadyQueued
	}
	return o.enqueue(ctx, id), nil
}

func (o *Orchestrator) enqueue(ctx context.Context, id string) *Task {
	task := newTask()

	o.mu.Lock()
	o.queue = append(o.queue, job{id: id, task: task})
	start := !o.draining
	o.draining = true
	o.mu.Unlock()

	o.notify()
	if start {
		go o.drain(context.WithoutCancel(ctx))
	}
	return task
}

// drain runs queued enrichments one at a time until the queue is empty.
func (o *Orchestrator) drain(ctx context.Context) {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.draining = false
			o.mu.Unlock()
			return
		}
		j := o.queue[0]
		o.queue = o.queue[1:]

		entry, ok := o.store.Get(j.id)
		if !ok {
			o.mu.Unlock()
			o.log.Debug().Str("entry_id", j.id).Msg("skipping enrichment for deleted entry")
			j.task.finish(ErrEntryNotFound)
			continue
		}
		o.processing = j.id
		o.mu.Unlock()
		o.notify()

		err := o.enrich(ctx, entry)

		o.mu.Lock()
		o.processing = ""
		o.mu.Unlock()
		o.notify()
		j.task.finish(err)
	}
}

func (o *Orchestrator) enrich(ctx context.Context, entry models.Entry) error {
	interp, err := o.interp.Interpret(ctx, entry.Content)
	if err != nil {
		o.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("enrichment failed")
		o.setError(err)
		return err
	}

	if !o.store.Update(entry.ID, models.EntryPatch{Interpretation: interp}) {
		o.log.Debug().Str("entry_id", entry.ID).Msg("entry deleted during enrichment, dropping result")
		return ErrEntryNotFound
	}
	o.log.Info().Str("entry_id", entry.ID).Str("title", interp.Title).Msg("entry interpreted")
	return nil
}

// Visualize generates an image for an interpreted entry that has none. Only one
// visualization runs at a time.
func (o *Orchestrator) Visualize(ctx context.Context, id string) (*Task, error) {
	entry, ok := o.store.Get(id)
	switch {
	case !ok:
		return nil, ErrEntryNotFound
	case entry.Pending():
		return nil, ErrNotInterpreted
	case entry.Visualization != "":
		return nil, ErrAlreadyVisualized
	}

	o.mu.Lock()
	if o.visualizing != "" {
		o.mu.Unlock()
		return nil, ErrVisualizationBusy
	}
	o.visualizing = id
	o.mu.Unlock()
	o.notify()

	task := newTask()
	go func() {
		err := o.visualize(context.WithoutCancel(ctx), entry)

		o.mu.Lock()
		o.visualizing = ""
		o.mu.Unlock()
		o.notify()
		task.finish(err)
	}()
	return task, nil
}

func (o *Orchestrator) visualize(ctx context.Context, entry models.Entry) error {
	ref, err := o.vis.Visualize(ctx, enrich.VisualizationPrompt(entry.Interpretation))
	if err != nil {
		o.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("visualization failed")
		o.setError(err)
		return err
	}

	if !o.store.Update(entry.ID, models.EntryPatch{Visualization: &ref}) {
		o.log.Debug().Str("entry_id", entry.ID).Msg("entry deleted during visualization, dropping result")
		return ErrEntryNotFound
	}
	o.log.Info().Str("entry_id", entry.ID).Msg("entry visualized")
	return nil
}

// Remove deletes an entry. Work in flight for it resolves as a no-op.
func (o *Orchestrator) Remove(id string) bool {
	if !o.store.Remove(id) {
		return false
	}

	o.mu.Lock()
	var dropped []job
	kept := o.queue[:0]
	for _, j := range o.queue {
		if j.id == id {
			dropped = append(dropped, j)
			continue
		}
		kept = append(kept, j)
	}
	o.queue = kept
	o.mu.Unlock()
	for _, j := range dropped {
		j.task.finish(ErrEntryNotFound)
	}

	o.log.Info().Str("entry_id", id).Msg("entry deleted")
	o.notify()
	return true
}

// Processing returns the id of the entry being enriched, or "".
func (o *Orchestrator) Processing() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// Queued returns the ids waiting for enrichment, in order.
func (o *Orchestrator) Queued() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, len(o.queue))
	for i, j := range o.queue {
		ids[i] = j.id
	}
	return ids
}

// Visualizing returns the id of the entry being visualized, or "".
func (o *Orchestrator) Visualizing() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visualizing
}

// Err returns the most recent failure that has not been dismissed.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// DismissError clears the current failure. Entry data is not touched.
func (o *Orchestrator) DismissError() {
	o.mu.Lock()
	cleared := o.lastErr != nil
	o.lastErr = nil
	o.mu.Unlock()
	if cleared {
		o.notify()
	}
}

// Changes signals after any change to processing state, errors, or entries made
// through the orchestrator. Signals coalesce.
func (o *Orchestrator) Changes() <-chan struct{} {
	return o.changes
}

func (o *Orchestrator) setError(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}

func (o *Orchestrator) notify() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}
