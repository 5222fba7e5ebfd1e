package watch

import (
	"maps"
	"sync"
	"time"

	"github.com/sanspareilsmyn/mongolens/internal/stats"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

const (
	recentEventIDs = 4096

	hourLayout  = "2006-01-02T15"
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Totals counts accumulated change events per operation.
type Totals struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Replaced   int `json:"replaced"`
	Deleted    int `json:"deleted"`
	Ignored    int `json:"ignored"`
	Duplicates int `json:"duplicates"`
}

// Snapshot is a point-in-time copy of an Accumulator.
type Snapshot struct {
	StartedAt time.Time      `json:"startedAt"`
	Totals    Totals         `json:"totals"`
	Hourly    map[string]int `json:"hourly"`
	Daily     map[string]int `json:"daily"`
	Monthly   map[string]int `json:"monthly"`

	// Lifetimes describes, in seconds, documents inserted and deleted while
	// the accumulator was running.
	Lifetimes         stats.Report `json:"lifetimes"`
	TrackedDocuments  int          `json:"trackedDocuments"`
	CreationPerMinute float64      `json:"creationPerMinute"`
	DeletionPerMinute float64      `json:"deletionPerMinute"`
}

// Accumulator folds change events into session statistics. Record is safe
// for concurrent use and ignores an event id it has already seen.
type Accumulator struct {
	clock func() time.Time

	mu        sync.Mutex
	startedAt time.Time
	totals    Totals
	hourly    map[string]int
	daily     map[string]int
	monthly   map[string]int
	inserted  map[string]time.Time
	lifetimes []float64

	seen   map[string]struct{}
	recent []string
	next   int
}

// NewAccumulator creates an empty Accumulator. A nil clock means time.Now.
func NewAccumulator(clock func() time.Time) *Accumulator {
	if clock == nil {
		clock = time.Now
	}
	return &Accumulator{
		clock:     clock,
		startedAt: clock(),
		hourly:    make(map[string]int),
		daily:     make(map[string]int),
		monthly:   make(map[string]int),
		inserted:  make(map[string]time.Time),
		seen:      make(map[string]struct{}, recentEventIDs),
		recent:    make([]string, recentEventIDs),
	}
}

// Record folds ev into the accumulator. It reports whether the event changed
// the totals; duplicates and unknown operation types return false.
func (a *Accumulator) Record(ev store.ChangeEvent) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.ID != "" {
		if _, dup := a.seen[ev.ID]; dup {
			a.totals.Duplicates++
			changeDuplicates.Inc()
			return false
		}
		a.remember(ev.ID)
	}

	at := ev.ClusterTime
	if at.IsZero() {
		at = a.clock()
	}
	at = at.UTC()

	switch ev.OperationType {
	case store.OpInsert:
		a.totals.Created++
		if ev.DocumentKey != "" {
			a.inserted[ev.DocumentKey] = at
		}
	case store.OpUpdate:
		a.totals.Updated++
	case store.OpReplace:
		a.totals.Replaced++
	case store.OpDelete:
		a.totals.Deleted++
		if born, ok := a.inserted[ev.DocumentKey]; ok {
			lifetime := at.Sub(born).Seconds()
			a.lifetimes = append(a.lifetimes, lifetime)
			documentLifetime.Observe(lifetime)
			delete(a.inserted, ev.DocumentKey)
		}
	default:
		a.totals.Ignored++
		changeEvents.WithLabelValues("ignored").Inc()
		return false
	}

	a.hourly[at.Format(hourLayout)]++
	a.daily[at.Format(dayLayout)]++
	a.monthly[at.Format(monthLayout)]++
	changeEvents.WithLabelValues(ev.OperationType).Inc()
	return true
}

// remember adds id to the bounded set of recent ids, evicting the oldest.
func (a *Accumulator) remember(id string) {
	if old := a.recent[a.next]; old != "" {
		delete(a.seen, old)
	}
	a.recent[a.next] = id
	a.seen[id] = struct{}{}
	a.next = (a.next + 1) % len(a.recent)
}

// Snapshot copies the current state and derives rates since the start.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		StartedAt:        a.startedAt,
		Totals:           a.totals,
		Hourly:           maps.Clone(a.hourly),
		Daily:            maps.Clone(a.daily),
		Monthly:          maps.Clone(a.monthly),
		Lifetimes:        stats.Describe(a.lifetimes),
		TrackedDocuments: len(a.inserted),
	}

	if minutes := a.clock().Sub(a.startedAt).Minutes(); minutes > 0 {
		snap.CreationPerMinute = float64(a.totals.Created) / minutes
		snap.DeletionPerMinute = float64(a.totals.Deleted) / minutes
	}
	return snap
}
