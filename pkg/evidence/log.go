package evidence

import (
	"sync"
	"time"
)

// Log is the ordered capture of one scenario.
type Log struct {
	ScenarioID string
	Name       string
	Started    time.Time

	mu      sync.Mutex
	step    int
	entries []Entry
	closed  bool
}

func newLog(id, name string, now time.Time) *Log {
	return &Log{ScenarioID: id, Name: name, Started: now}
}

// appendStep assigns the next step index. It returns false once the log is
// closed.
func (l *Log) appendStep(e Entry) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Entry{}, false
	}
	l.step++
	e.Step = l.step
	e.Kind = KindStep
	l.entries = append(l.entries, e)
	return e, true
}

// close appends the summary entry and seals the log. It returns false when
// the log was already closed.
func (l *Log) close(summary Entry) (Entry, []Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Entry{}, nil, false
	}
	summary.Kind = KindSummary
	summary.Step = l.step
	l.entries = append(l.entries, summary)
	l.closed = true
	return summary, l.snapshotLocked(), true
}

// Steps returns how many step entries were recorded.
func (l *Log) Steps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step
}

// Closed reports whether the log was stopped.
func (l *Log) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Entries returns a copy of the recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Log) snapshotLocked() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
