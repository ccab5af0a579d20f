package session

import (
	"sync"

	"github.com/voxprep/interviewclient/internal/protocol"
)

// Entry is one finalized transcript line.
type Entry struct {
	Role     protocol.Role `json:"role"`
	Text     string        `json:"text"`
	Sequence int           `json:"sequence"`
}

// TranscriptConfig configures transcript retention.
type TranscriptConfig struct {
	// MaxEntries is the maximum number of finalized entries to retain
	// (default: 200).
	MaxEntries int
}

// DefaultTranscriptConfig returns sensible defaults.
func DefaultTranscriptConfig() TranscriptConfig {
	return TranscriptConfig{MaxEntries: 200}
}

type streamEntry struct {
	text     string
	sequence int
}

// Transcript accumulates the interview transcript from streamed deltas and
// batch entries. Deltas carry a per-role monotonically increasing sequence
// number; a delta older than the last applied one for its role is dropped so
// retries and duplicate delivery cannot corrupt the accumulated text. A
// batch transcript message supersedes the streaming entry for its role.
type Transcript struct {
	mu        sync.RWMutex
	config    TranscriptConfig
	entries   []Entry
	streaming map[protocol.Role]*streamEntry
	lastSeq   map[protocol.Role]int
}

// NewTranscript creates an empty transcript accumulator.
func NewTranscript(config TranscriptConfig) *Transcript {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 200
	}
	return &Transcript{
		config:    config,
		entries:   make([]Entry, 0, 32),
		streaming: make(map[protocol.Role]*streamEntry),
		lastSeq:   make(map[protocol.Role]int),
	}
}

// ApplyDelta applies one streamed fragment. Returns false when the delta is
// stale (sequence below the last applied for its role) and was dropped.
// A final delta closes out the streaming entry; the batch transcript that
// follows replaces it via Commit.
func (t *Transcript) ApplyDelta(role protocol.Role, delta string, isFinal bool, sequence int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSeq[role]; ok && sequence < last {
		return false
	}
	t.lastSeq[role] = sequence

	entry := t.streaming[role]
	if entry == nil {
		entry = &streamEntry{}
		t.streaming[role] = entry
	}
	entry.text += delta
	entry.sequence = sequence

	if isFinal {
		t.appendLocked(Entry{Role: role, Text: entry.text, Sequence: sequence})
		delete(t.streaming, role)
	}
	return true
}

// Commit records a complete transcript entry. It replaces any in-progress
// streaming entry for the same role: the batch text is authoritative.
func (t *Transcript) Commit(role protocol.Role, text string, sequence int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.streaming, role)
	if sequence > t.lastSeq[role] {
		t.lastSeq[role] = sequence
	}

	// A final delta may already have appended this entry; the batch wins.
	if n := len(t.entries); n > 0 {
		last := &t.entries[n-1]
		if last.Role == role && last.Sequence == sequence {
			last.Text = text
			return
		}
	}
	t.appendLocked(Entry{Role: role, Text: text, Sequence: sequence})
}

func (t *Transcript) appendLocked(entry Entry) {
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.config.MaxEntries {
		t.entries = t.entries[len(t.entries)-t.config.MaxEntries:]
	}
}

// Pending returns the accumulated but not yet finalized text for a role.
func (t *Transcript) Pending(role protocol.Role) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if entry := t.streaming[role]; entry != nil {
		return entry.text
	}
	return ""
}

// LastSequence returns the last applied delta sequence for a role.
func (t *Transcript) LastSequence(role protocol.Role) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeq[role]
}

// Entries returns a copy of the finalized transcript.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]Entry, len(t.entries))
	copy(result, t.entries)
	return result
}

// Len returns the number of finalized entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset clears all accumulated state for a fresh session.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = t.entries[:0]
	t.streaming = make(map[protocol.Role]*streamEntry)
	t.lastSeq = make(map[protocol.Role]int)
}
