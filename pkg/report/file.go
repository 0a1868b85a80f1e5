package report

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/entrhq/harness/pkg/evidence"
	"github.com/entrhq/harness/pkg/scenario"
)

// IndexFile is the name of the JSONL index inside the report directory.
const IndexFile = "index.jsonl"

const unscoped = "unscoped"

// IndexRecord describes one stored payload.
type IndexRecord struct {
	Time         time.Time `json:"time"`
	ScenarioID   string    `json:"scenario_id"`
	ScenarioName string    `json:"scenario_name,omitempty"`
	Seq          int       `json:"seq"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int       `json:"size"`
	SHA256       string    `json:"sha256"`
	Path         string    `json:"path"`
}

// FileSink stores every payload as its own file under
// <dir>/<scenario-id>/<seq>-<name>.<ext> and indexes it in <dir>/index.jsonl.
type FileSink struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq map[string]int
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now, seq: make(map[string]int)}
}

// Dir returns the report directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// IndexPath returns the location of the JSONL index.
func (s *FileSink) IndexPath() string {
	return filepath.Join(s.dir, IndexFile)
}

// Attach implements evidence.Sink.
func (s *FileSink) Attach(ctx context.Context, data []byte, mimeType, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := unscoped
	var scenarioName string
	if sc, ok := scenario.FromContext(ctx); ok && sc.ID != "" {
		key, scenarioName = sc.ID, sc.Name
	}

	// The index append shares the lock so records land in sequence order.
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[key]++
	seq := s.seq[key]

	dir, err := confine(s.dir, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%04d-%s.%s", seq, evidence.SanitizeFileName(name), extensionFor(mimeType)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report payload: %w", err)
	}

	rec := IndexRecord{
		Time:         s.now(),
		ScenarioID:   key,
		ScenarioName: scenarioName,
		Seq:          seq,
		Name:         name,
		MimeType:     mimeType,
		Size:         len(data),
		SHA256:       fmt.Sprintf("%x", sha256.Sum256(data)),
		Path:         path,
	}
	if err := appendJSONL(s.IndexPath(), rec); err != nil {
		return fmt.Errorf("append report index: %w", err)
	}
	return nil
}

func appendJSONL(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(buf.Bytes())
	return err
}

// ReadIndex loads every record of a JSONL index file.
func ReadIndex(path string) ([]IndexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []IndexRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var rec IndexRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "text/plain":
		return "txt"
	case "text/html":
		return "html"
	case "application/json":
		return "json"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	default:
		return "bin"
	}
}
