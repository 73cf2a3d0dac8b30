package gamelog

import "time"

// Sink receives every appended entry. Implementations must not block the
// caller; wrap slow sinks with NewAsync.
type Sink interface {
	Write(Entry)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Entry)

// Write implements Sink.
func (f SinkFunc) Write(e Entry) { f(e) }

// Log is the append-only record of a game. It is owned by a single goroutine
// and performs no locking.
type Log struct {
	entries []Entry
	sinks   []Sink
	now     func() time.Time
}

// New creates an empty log that forwards each entry to sinks.
func New(sinks ...Sink) *Log {
	return &Log{sinks: sinks, now: time.Now}
}

// Append stamps e with the next sequence number and the current time, stores
// it and hands it to every sink. The stored entry is returned.
func (l *Log) Append(e Entry) Entry {
	e.Seq = len(l.entries)
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	l.entries = append(l.entries, e)
	for _, s := range l.sinks {
		s.Write(e)
	}
	return e
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Public returns the entries that may be shown to everyone.
func (l *Log) Public() []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Public {
			out = append(out, e)
		}
	}
	return out
}

// OfType returns all entries of the given kind.
func (l *Log) OfType(t EventType) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// LastActor returns the actor of the most recent entry, or "" when the log is
// empty or the last entry was narration. This is the only source of truth for
// who spoke last.
func (l *Log) LastActor() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Actor
}
