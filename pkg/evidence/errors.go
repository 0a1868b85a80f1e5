package evidence

import "fmt"

// Capture operations that can fail.
const (
	OpSink       = "sink"
	OpAttach     = "attach"
	OpScreenshot = "screenshot"
	OpWrite      = "write"
)

// CaptureError reports a failed evidence operation. It is always non-fatal:
// the recorder logs it and turns it into an entry where it can.
type CaptureError struct {
	Op   string
	Name string
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("evidence %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("evidence %s %q failed: %v", e.Op, e.Name, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
