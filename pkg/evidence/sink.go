package evidence

import (
	"context"
	"fmt"
)

// Sink receives every entry and attachment as soon as it is recorded.
type Sink interface {
	Attach(ctx context.Context, data []byte, mimeType, name string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, data []byte, mimeType, name string) error

// Attach implements Sink.
func (f SinkFunc) Attach(ctx context.Context, data []byte, mimeType, name string) error {
	return f(ctx, data, mimeType, name)
}

type nopSink struct{}

func (nopSink) Attach(context.Context, []byte, string, string) error { return nil }

// NopSink discards everything.
func NopSink() Sink { return nopSink{} }

// forward calls the sink synchronously. Errors and panics are returned as a
// *CaptureError and never escape.
func forward(ctx context.Context, sink Sink, data []byte, mimeType, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CaptureError{Op: OpSink, Name: name, Err: fmt.Errorf("sink panicked: %v", r)}
		}
	}()
	if err := sink.Attach(ctx, data, mimeType, name); err != nil {
		return &CaptureError{Op: OpSink, Name: name, Err: err}
	}
	return nil
}
