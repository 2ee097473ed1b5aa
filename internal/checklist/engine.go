package checklist

import (
	"sync/atomic"

	"github.com/kazz187/labtrack/pkg/date"
)

// PrunePolicy decides what happens to automatic items of a previous order
// type when a task's order type changes.
type PrunePolicy int

const (
	// PruneNone keeps every existing item.
	PruneNone PrunePolicy = iota
	// PruneStale drops unchecked items that were automatic for the previous
	// order type and are not expected by the new one. Checked items stay.
	PruneStale
)

func (p PrunePolicy) String() string {
	if p == PruneStale {
		return "prune_stale"
	}
	return "none"
}

// State is the derived portion of a task.
type State struct {
	Checklist   []Item
	Status      Status
	Progress    int
	CompletedOn date.Date
}

type Engine struct {
	catalog atomic.Pointer[Catalog]
	matcher Matcher
	clock   Clock
	policy  PrunePolicy
}

type Option func(*Engine)

func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithPrunePolicy(p PrunePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(catalog *Catalog, opts ...Option) *Engine {
	e := &Engine{
		matcher: KeywordMatcher{},
		clock:   SystemClock{},
		policy:  PruneNone,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetCatalog(catalog)
	return e
}

func (e *Engine) Catalog() *Catalog { return e.catalog.Load() }

// SetCatalog swaps the catalog used for new automatic items. Existing
// checklists are not touched.
func (e *Engine) SetCatalog(c *Catalog) {
	if c == nil {
		c = &Catalog{labels: map[string][]string{}}
	}
	e.catalog.Store(c)
}

func (e *Engine) Clock() Clock { return e.clock }

func (e *Engine) Policy() PrunePolicy { return e.policy }

func (e *Engine) Disconnected(items []Item) bool {
	return Disconnected(e.matcher, items)
}

func (e *Engine) Derive(items []Item) (Status, int) {
	return Derive(e.matcher, items)
}

// ApplyAutomatic appends an unchecked, annotated item for every catalog label
// of orderType that no existing item matches. Custom items are never touched.
// prevOrderType only matters under PruneStale.
func (e *Engine) ApplyAutomatic(prevOrderType, orderType string, items []Item) []Item {
	catalog := e.Catalog()
	labels := catalog.Labels(orderType)
	expected := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		expected[Normalize(l)] = struct{}{}
	}

	out := make([]Item, 0, len(items)+len(labels))
	if e.policy == PruneStale && prevOrderType != "" && prevOrderType != orderType {
		stale := make(map[string]struct{})
		for _, l := range catalog.Labels(prevOrderType) {
			if _, ok := expected[Normalize(l)]; !ok {
				stale[Normalize(l)] = struct{}{}
			}
		}
		for _, it := range items {
			if _, ok := stale[Normalize(it.Text)]; ok && !it.Completed {
				continue
			}
			out = append(out, it)
		}
	} else {
		out = append(out, items...)
	}

	present := make(map[string]struct{}, len(out))
	for _, it := range out {
		present[Normalize(it.Text)] = struct{}{}
	}
	now := e.clock.Now()
	for _, l := range labels {
		key := Normalize(l)
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		out = append(out, Item{Text: Annotate(l, now), CreatedAt: now})
	}
	return out
}

// Recompute replaces the checklist of prev and re-derives everything from it.
// CompletedOn keeps its first value while the task stays Completed and is
// cleared otherwise.
func (e *Engine) Recompute(prev State, items []Item) State {
	status, progress := e.Derive(items)
	next := State{
		Checklist:   items,
		Status:      status,
		Progress:    progress,
		CompletedOn: prev.CompletedOn,
	}
	if status != StatusCompleted {
		next.CompletedOn = date.Date{}
	} else if next.CompletedOn.IsZero() {
		next.CompletedOn = Today(e.clock)
	}
	return next
}

// View re-derives status and progress for a stored task without assigning a
// new CompletedOn. It is what every read path returns.
func (e *Engine) View(stored State) State {
	status, progress := e.Derive(stored.Checklist)
	view := State{
		Checklist:   stored.Checklist,
		Status:      status,
		Progress:    progress,
		CompletedOn: stored.CompletedOn,
	}
	if status != StatusCompleted {
		view.CompletedOn = date.Date{}
	}
	return view
}
