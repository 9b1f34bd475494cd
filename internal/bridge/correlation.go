package bridge

import "sync"

// correlationKey scopes a message ID by its source chat. Telegram message
// IDs are only unique per chat, so two sources may emit the same ID.
type correlationKey struct {
	sourceID  int64
	messageID int
}

// CorrelationStore maps source messages to the destination message IDs they
// produced. It backs reply-target resolution and edit application. Entries
// are never evicted; unbounded growth is an accepted tradeoff of the
// in-memory design. A missing entry is a soft miss, not an error.
type CorrelationStore struct {
	mu      sync.RWMutex
	entries map[correlationKey]int
}

// NewCorrelationStore creates an empty store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{entries: make(map[correlationKey]int)}
}

// Record stores a source→destination mapping. Recording the same source
// message again overwrites the previous value (most recent write wins).
func (s *CorrelationStore) Record(sourceID int64, sourceMsgID, destMsgID int) {
	s.mu.Lock()
	s.entries[correlationKey{sourceID, sourceMsgID}] = destMsgID
	s.mu.Unlock()
}

// Lookup returns the destination message ID for a source message.
func (s *CorrelationStore) Lookup(sourceID int64, sourceMsgID int) (int, bool) {
	s.mu.RLock()
	dest, ok := s.entries[correlationKey{sourceID, sourceMsgID}]
	s.mu.RUnlock()
	return dest, ok
}

// Len returns the number of recorded mappings.
func (s *CorrelationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
