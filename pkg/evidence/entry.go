package evidence

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TimeFormat stamps each entry line.
	TimeFormat = "15:04:05.000"
	// FileTimeFormat is the timestamp part of an evidence file name.
	FileTimeFormat = "2006-01-02_15-04-05"
	// HeaderTimeFormat is the Generated timestamp in the file header.
	HeaderTimeFormat = "2006-01-02T15:04:05"
)

// Kind distinguishes ordinary steps from the closing summary.
type Kind string

const (
	KindStep    Kind = "step"
	KindSummary Kind = "summary"
)

// Attachment describes a binary artifact forwarded to the sink. The bytes
// themselves are not retained.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	SHA256   string `json:"sha256"`
}

// Entry is one line (or bullet block) of an evidence log.
type Entry struct {
	Time       time.Time   `json:"time"`
	Step       int         `json:"step"`
	Kind       Kind        `json:"kind"`
	Label      string      `json:"label"`
	Message    string      `json:"message,omitempty"`
	Lines      []string    `json:"lines,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Title is the name an entry is forwarded to the sink under.
func (e Entry) Title() string {
	if e.Kind == KindSummary {
		return fmt.Sprintf("Summary - %s", e.Label)
	}
	return fmt.Sprintf("Step %d - %s", e.Step, e.Label)
}

// Format renders the entry the way it appears in the persisted file.
func (e Entry) Format() string {
	ts := e.Time.Format(TimeFormat)
	if len(e.Lines) == 0 {
		return fmt.Sprintf("[%s] %s: %s", ts, e.Title(), e.Message)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s:", ts, e.Title())
	for _, line := range e.Lines {
		b.WriteString("\n  • ")
		b.WriteString(line)
	}
	return b.String()
}
