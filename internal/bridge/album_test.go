package bridge

import (
	"sync"
	"testing"
	"time"
)

// collector records flushed groups for assertions.
type collector struct {
	mu     sync.Mutex
	groups [][]Event
}

func (c *collector) flush(events []Event) {
	c.mu.Lock()
	c.groups = append(c.groups, events)
	c.mu.Unlock()
}

func (c *collector) snapshot() [][]Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Event, len(c.groups))
	copy(out, c.groups)
	return out
}

func groupEvent(sourceID int64, msgID int, groupID string) Event {
	return Event{
		Kind:      EventNewMessage,
		SourceID:  sourceID,
		MessageID: msgID,
		GroupID:   groupID,
	}
}

// TestAggregatorFlushesOnceAfterQuiet verifies a group with several members
// flushes exactly once, with members in arrival order.
func TestAggregatorFlushesOnceAfterQuiet(t *testing.T) {
	c := &collector{}
	a := NewAggregator(30*time.Millisecond, c.flush)

	a.Add(groupEvent(1, 100, "alb"))
	a.Add(groupEvent(1, 101, "alb"))
	a.Add(groupEvent(1, 102, "alb"))

	time.Sleep(120 * time.Millisecond)

	groups := c.snapshot()
	if len(groups) != 1 {
		t.Fatalf("flushed %d times; want 1", len(groups))
	}
	got := groups[0]
	if len(got) != 3 {
		t.Fatalf("flushed group has %d members; want 3", len(got))
	}
	for i, want := range []int{100, 101, 102} {
		if got[i].MessageID != want {
			t.Errorf("member %d = %d; want %d", i, got[i].MessageID, want)
		}
	}
	if a.Pending() != 0 {
		t.Fatalf("Pending() = %d after flush; want 0", a.Pending())
	}
}

// TestAggregatorResetsOnNewMember verifies members arriving within the
// window keep the group open instead of splitting it.
func TestAggregatorResetsOnNewMember(t *testing.T) {
	c := &collector{}
	a := NewAggregator(50*time.Millisecond, c.flush)

	a.Add(groupEvent(1, 1, "alb"))
	time.Sleep(30 * time.Millisecond)
	a.Add(groupEvent(1, 2, "alb"))
	time.Sleep(30 * time.Millisecond)
	a.Add(groupEvent(1, 3, "alb"))

	// 60ms have passed since the first member but the timer was reset twice,
	// so nothing may have flushed yet.
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("flushed %d groups before quiescence; want 0", len(got))
	}

	time.Sleep(150 * time.Millisecond)
	groups := c.snapshot()
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Fatalf("got %d flushes; want one flush of 3 members", len(groups))
	}
}

// TestAggregatorGapSplitsGroup verifies a member arriving after the window
// elapsed starts a fresh group rather than joining the flushed one.
func TestAggregatorGapSplitsGroup(t *testing.T) {
	c := &collector{}
	a := NewAggregator(30*time.Millisecond, c.flush)

	a.Add(groupEvent(1, 1, "alb"))
	time.Sleep(120 * time.Millisecond)
	a.Add(groupEvent(1, 2, "alb"))
	time.Sleep(120 * time.Millisecond)

	groups := c.snapshot()
	if len(groups) != 2 {
		t.Fatalf("flushed %d groups; want 2", len(groups))
	}
	if groups[0][0].MessageID != 1 || groups[1][0].MessageID != 2 {
		t.Fatalf("unexpected split: %v then %v", groups[0], groups[1])
	}
}

// TestAggregatorGroupsAreIndependent verifies concurrent groups, including
// the same token on different sources, buffer and flush separately.
func TestAggregatorGroupsAreIndependent(t *testing.T) {
	c := &collector{}
	a := NewAggregator(30*time.Millisecond, c.flush)

	a.Add(groupEvent(1, 1, "alb"))
	a.Add(groupEvent(2, 9, "alb"))
	a.Add(groupEvent(1, 2, "other"))

	if a.Pending() != 3 {
		t.Fatalf("Pending() = %d; want 3", a.Pending())
	}

	time.Sleep(120 * time.Millisecond)
	if got := len(c.snapshot()); got != 3 {
		t.Fatalf("flushed %d groups; want 3", got)
	}
}

// TestAggregatorStopDiscardsPending verifies shutdown abandons buffered
// groups without flushing them.
func TestAggregatorStopDiscardsPending(t *testing.T) {
	c := &collector{}
	a := NewAggregator(50*time.Millisecond, c.flush)

	a.Add(groupEvent(1, 1, "alb"))
	a.Stop()

	time.Sleep(120 * time.Millisecond)
	if got := len(c.snapshot()); got != 0 {
		t.Fatalf("flushed %d groups after Stop; want 0", got)
	}
	if a.Pending() != 0 {
		t.Fatalf("Pending() = %d after Stop; want 0", a.Pending())
	}
}
