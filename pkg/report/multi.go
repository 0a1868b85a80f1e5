package report

import (
	"context"

	"github.com/entrhq/harness/pkg/evidence"
)

// MultiSink forwards each payload to every sink in order.
type MultiSink []evidence.Sink

// Attach implements evidence.Sink. All sinks are called; the first error
// is returned.
func (m MultiSink) Attach(ctx context.Context, data []byte, mimeType, name string) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Attach(ctx, data, mimeType, name); err != nil && first == nil {
			first = err
		}
	}
	return first
}
