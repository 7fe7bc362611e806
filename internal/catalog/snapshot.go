package catalog

import (
	"sort"
	"sync/atomic"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/workflow"
)

// Kind selects which artifact family Snapshot.List enumerates.
type Kind int

const (
	KindPrompt Kind = iota
	KindWorkflow
)

// Snapshot is an immutable view of the catalog at a point in time. Readers
// obtain one with Store.Load and may hold it for the lifetime of a run;
// subsequent reloads never mutate a snapshot already handed out.
type Snapshot struct {
	Prompts     map[string]*Prompt
	Workflows   map[string]*workflow.Workflow
	Generation  uint64
	Diagnostics []Diagnostic
}

// Prompt looks up a prompt by name in this snapshot.
func (s *Snapshot) Prompt(name string) (*Prompt, bool) {
	p, ok := s.Prompts[name]
	return p, ok
}

// Workflow looks up a workflow by name in this snapshot.
func (s *Snapshot) Workflow(name string) (*workflow.Workflow, bool) {
	w, ok := s.Workflows[name]
	return w, ok
}

// List returns every artifact name of the given kind, sorted, so that
// list_prompts/list_workflows (and the CLI equivalents) have deterministic
// output instead of Go's randomized map iteration order.
func (s *Snapshot) List(kind Kind) []string {
	switch kind {
	case KindPrompt:
		names := make([]string, 0, len(s.Prompts))
		for name := range s.Prompts {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	case KindWorkflow:
		names := make([]string, 0, len(s.Workflows))
		for name := range s.Workflows {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	default:
		return nil
	}
}

// ListPrompts returns every prompt in this snapshot, sorted by name.
func (s *Snapshot) ListPrompts() []*Prompt {
	names := s.List(KindPrompt)
	out := make([]*Prompt, len(names))
	for i, name := range names {
		out[i] = s.Prompts[name]
	}
	return out
}

// ListWorkflows returns every workflow in this snapshot, sorted by name.
func (s *Snapshot) ListWorkflows() []*workflow.Workflow {
	names := s.List(KindWorkflow)
	out := make([]*workflow.Workflow, len(names))
	for i, name := range names {
		out[i] = s.Workflows[name]
	}
	return out
}

// Store publishes Snapshots with a single-writer/many-reader discipline: one
// goroutine calls Publish (the loader, driven directly or by the file
// watcher); any number of goroutines call Load without blocking each other
// or the writer.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store holding an empty, generation-0 snapshot so Load
// never returns nil before the first real load completes.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		Prompts:   map[string]*Prompt{},
		Workflows: map[string]*workflow.Workflow{},
	})
	return s
}

// Load returns the current snapshot. The returned pointer is stable: later
// calls to Publish never mutate the Snapshot value this points to.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Publish atomically swaps in a new snapshot. The generation counter is
// assigned here so callers building a Snapshot don't need to coordinate it.
func (s *Store) Publish(snap *Snapshot) {
	prev := s.current.Load()
	if prev != nil {
		snap.Generation = prev.Generation + 1
	} else {
		snap.Generation = 1
	}
	s.current.Store(snap)
}
