package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/harness/pkg/logging"
	"github.com/entrhq/harness/pkg/scenario"
	"github.com/entrhq/harness/pkg/telemetry"
)

const textMime = "text/plain"

// Recorder keeps one Log per running scenario, forwards every entry to the
// sink as it happens and writes the log to disk when the scenario stops.
// Captures are looked up by the scenario key carried in the context.
type Recorder struct {
	dir     string
	sink    Sink
	logger  logging.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	mu   sync.Mutex
	logs map[string]*Log
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSink sets the report sink.
func WithSink(s Sink) Option {
	return func(r *Recorder) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Recorder) { r.logger = logging.OrDiscard(l) }
}

// WithMetrics enables evidence metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder that writes evidence files under dir.
func NewRecorder(dir string, opts ...Option) *Recorder {
	r := &Recorder{
		dir:    dir,
		sink:   NopSink(),
		logger: logging.Discard(),
		now:    time.Now,
		logs:   make(map[string]*Log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the evidence directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Start opens a fresh capture for the scenario in ctx, replacing any stale
// one. The step counter starts at zero.
func (r *Recorder) Start(ctx context.Context, name string) error {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, stale := r.logs[key]; stale {
		r.logger.Warnf("Replacing stale capture for scenario %q", name)
	}
	r.logs[key] = newLog(key, name, r.now())
	r.mu.Unlock()

	r.logger.Infof("Started log capture for scenario: %s", name)
	return nil
}

// Active reports whether the scenario in ctx has an open capture.
func (r *Recorder) Active(ctx context.Context) bool {
	l := r.lookup(ctx)
	return l != nil && !l.Closed()
}

// Entries returns a snapshot of the scenario's entries, or nil.
func (r *Recorder) Entries(ctx context.Context) []Entry {
	l := r.lookup(ctx)
	if l == nil {
		return nil
	}
	return l.Entries()
}

// Record appends a step and forwards it to the sink.
func (r *Recorder) Record(ctx context.Context, label, message string) {
	r.append(ctx, Entry{Label: label, Message: message})
}

// Recordf is Record with a format string.
func (r *Recorder) Recordf(ctx context.Context, label, format string, args ...interface{}) {
	r.Record(ctx, label, fmt.Sprintf(format, args...))
}

// RecordMany groups several observations under a single step index.
func (r *Recorder) RecordMany(ctx context.Context, label string, messages ...string) {
	if len(messages) == 0 {
		return
	}
	lines := make([]string, len(messages))
	copy(lines, messages)
	r.append(ctx, Entry{Label: label, Lines: lines})
}

// Attach forwards a binary artifact to the sink and records that it did. A
// sink failure becomes an error entry instead of an error return.
func (r *Recorder) Attach(ctx context.Context, data []byte, mimeType, name string) {
	l := r.lookup(ctx)
	if l == nil || l.Closed() {
		r.logger.Debugf("Dropping attachment %q: no open capture", name)
		return
	}

	if err := forward(ctx, r.sink, data, mimeType, name); err != nil {
		r.metrics.CaptureFailed(OpAttach)
		r.logger.Errorf("Failed to attach %q: %v", name, err)
		r.Recordf(ctx, "Attachment Error", "Failed to attach '%s': %v", name, err)
		return
	}

	r.append(ctx, Entry{
		Label:      "Attachment",
		Message:    fmt.Sprintf("'%s' attached to report (%s, %d bytes)", name, mimeType, len(data)),
		Attachment: &Attachment{MimeType: mimeType, Name: name, Size: len(data), SHA256: digest(data)},
	})
}

// Stop closes the capture with a summary entry, writes the evidence file and
// forgets the scenario. It returns the written path, or "" when there was no
// open capture or the write failed. Stop never fails the caller.
func (r *Recorder) Stop(ctx context.Context, outcome scenario.Outcome) string {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return ""
	}

	r.mu.Lock()
	l := r.logs[key]
	delete(r.logs, key)
	r.mu.Unlock()

	if l == nil {
		return ""
	}

	now := r.now()
	summary, entries, ok := l.close(Entry{
		Time:    now,
		Label:   l.Name,
		Message: fmt.Sprintf("%s (%d steps)", outcome, l.Steps()),
	})
	if !ok {
		return ""
	}
	r.metrics.EntryRecorded(string(KindSummary))
	r.emit(ctx, summary)

	path, err := writeFile(r.dir, FileName(l.Name, now), Render(l.Name, entries, now))
	if err != nil {
		r.metrics.CaptureFailed(OpWrite)
		r.logger.Errorf("Failed to save logs for scenario %q: %v", l.Name, &CaptureError{Op: OpWrite, Name: l.Name, Err: err})
		return ""
	}

	r.metrics.EvidenceFileWritten()
	r.logger.Infof("Saved %d log entries for scenario %q to %s", len(entries), l.Name, path)
	return path
}

func (r *Recorder) lookup(ctx context.Context) *Log {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[key]
}

func (r *Recorder) append(ctx context.Context, e Entry) {
	l := r.lookup(ctx)
	if l == nil {
		r.logger.Debugf("Dropping entry %q: no open capture", e.Label)
		return
	}

	e.Time = r.now()
	stored, ok := l.appendStep(e)
	if !ok {
		r.logger.Debugf("Dropping entry %q: capture closed", e.Label)
		return
	}
	r.metrics.EntryRecorded(string(KindStep))
	r.emit(ctx, stored)
}

// emit forwards a formatted entry to the sink.
func (r *Recorder) emit(ctx context.Context, e Entry) {
	if err := forward(ctx, r.sink, []byte(e.Format()), textMime, e.Title()); err != nil {
		r.metrics.CaptureFailed(OpSink)
		r.logger.Warnf("Report sink rejected %q: %v", e.Title(), err)
		return
	}
	r.logger.Debugf("Attached step log: %s - %s", e.Label, e.Message)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
