package domain

// DefaultHistoryCapacity is how many analyses are retained across all clients.
const DefaultHistoryCapacity = 50

// HistoryBuffer is a fixed-capacity, insertion-ordered sequence of analysis
// entries. Appending past capacity drops the oldest entries first.
type HistoryBuffer struct {
	capacity int
	entries  []AnalysisHistoryEntry
}

// NewHistoryBuffer seeds a buffer with existing entries, keeping only the newest
// capacity of them. A non-positive capacity uses DefaultHistoryCapacity.
func NewHistoryBuffer(capacity int, entries []AnalysisHistoryEntry) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	b := &HistoryBuffer{capacity: capacity, entries: make([]AnalysisHistoryEntry, 0, capacity)}
	for _, e := range entries {
		b.Append(e)
	}
	return b
}

// Append adds e as the newest entry and returns how many entries were evicted.
func (b *HistoryBuffer) Append(e AnalysisHistoryEntry) int {
	b.entries = append(b.entries, e)
	evicted := 0
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append(b.entries[:0:0], b.entries[over:]...)
		evicted = over
	}
	return evicted
}

func (b *HistoryBuffer) Len() int { return len(b.entries) }

func (b *HistoryBuffer) Cap() int { return b.capacity }

// Entries returns a copy, oldest first.
func (b *HistoryBuffer) Entries() []AnalysisHistoryEntry {
	out := make([]AnalysisHistoryEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// ForClient returns the client's entries in stored order.
func ForClient(history []AnalysisHistoryEntry, clientID string) []AnalysisHistoryEntry {
	var out []AnalysisHistoryEntry
	for _, h := range history {
		if h.ClientID == clientID {
			out = append(out, h)
		}
	}
	return out
}

// WithoutClient drops every entry owned by clientID.
func WithoutClient(history []AnalysisHistoryEntry, clientID string) []AnalysisHistoryEntry {
	out := make([]AnalysisHistoryEntry, 0, len(history))
	for _, h := range history {
		if h.ClientID != clientID {
			out = append(out, h)
		}
	}
	return out
}
