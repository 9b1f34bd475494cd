package telegram

import (
	"testing"
	"time"
)

// TestDoneSignalsPollExit verifies Done stays open while polling is alive
// and fires once the polling goroutine exits.
func TestDoneSignalsPollExit(t *testing.T) {
	c := &Client{pollDone: make(chan struct{})}

	select {
	case <-c.Done():
		t.Fatal("Done fired before the polling goroutine exited")
	default:
	}

	close(c.pollDone)
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done did not fire after poll exit")
	}
}

// TestStopWithoutStart verifies Stop on a never-started client returns
// immediately instead of waiting on a poll goroutine that does not exist.
func TestStopWithoutStart(t *testing.T) {
	c := &Client{pollDone: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a started poller")
	}
}
