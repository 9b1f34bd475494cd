package bridge

import (
	"fmt"
	"sync"
	"time"
)

// DefaultQuiescenceWindow is how long an album may stay silent before it is
// considered complete. Telegram delivers album items as separate updates
// with no "last item" marker, so inactivity is the only completion signal.
const DefaultQuiescenceWindow = 1 * time.Second

type pendingGroup struct {
	events       []Event
	lastActivity time.Time
	timer        *time.Timer
}

// Aggregator buffers inbound messages that share a media-group ID and hands
// each completed group to the flush callback exactly once, preserving
// arrival order. A new member resets the group's quiescence timer; the
// window restarts rather than extends, so only continuous arrivals faster
// than the window can delay a flush.
type Aggregator struct {
	mu     sync.Mutex
	window time.Duration
	groups map[string]*pendingGroup
	flush  func([]Event)
}

// NewAggregator creates an aggregator flushing completed groups to fn.
// A non-positive window falls back to DefaultQuiescenceWindow.
func NewAggregator(window time.Duration, fn func([]Event)) *Aggregator {
	if window <= 0 {
		window = DefaultQuiescenceWindow
	}
	return &Aggregator{
		window: window,
		groups: make(map[string]*pendingGroup),
		flush:  fn,
	}
}

// groupKey scopes album tokens by source so two sources reusing the same
// media-group ID can never be merged.
func groupKey(ev Event) string {
	return fmt.Sprintf("%d:%s", ev.SourceID, ev.GroupID)
}

// Add ingests one album member. The first member of a group arms the
// quiescence timer; each subsequent member appends and re-arms it.
func (a *Aggregator) Add(ev Event) {
	key := groupKey(ev)

	a.mu.Lock()
	defer a.mu.Unlock()

	if g, ok := a.groups[key]; ok {
		g.events = append(g.events, ev)
		g.lastActivity = time.Now()
		g.timer.Reset(a.window)
		return
	}

	g := &pendingGroup{
		events:       []Event{ev},
		lastActivity: time.Now(),
	}
	g.timer = time.AfterFunc(a.window, func() { a.complete(key) })
	a.groups[key] = g
}

// complete runs when a group's timer fires. A member that arrived after the
// fire was scheduled but before we took the lock refreshed lastActivity, in
// which case the timer is re-armed for the remaining window instead of
// flushing early.
func (a *Aggregator) complete(key string) {
	a.mu.Lock()
	g, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	if remaining := a.window - time.Since(g.lastActivity); remaining > 0 {
		g.timer.Reset(remaining)
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	events := g.events
	a.mu.Unlock()

	a.flush(events)
}

// Pending returns the number of groups currently buffered.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Stop cancels all pending timers and discards buffered groups. In-flight
// albums are abandoned; shutdown offers no drain guarantee.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, g := range a.groups {
		g.timer.Stop()
		delete(a.groups, key)
	}
}
