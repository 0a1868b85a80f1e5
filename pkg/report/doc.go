// Package report provides evidence.Sink implementations: a file-backed sink
// that keeps every forwarded payload with a JSONL index, an in-memory sink,
// and a fan-out sink.
package report
