package evidence

import "context"

// LogError records a failed operation.
func (r *Recorder) LogError(ctx context.Context, operation string, err error) {
	r.Recordf(ctx, "Error - "+operation, "%v", err)
}

// LogTestStep records a plain test step.
func (r *Recorder) LogTestStep(ctx context.Context, description string) {
	r.Record(ctx, "Test Step", description)
}

// LogTestStepDetails records a test step with several detail lines.
func (r *Recorder) LogTestStepDetails(ctx context.Context, description string, details ...string) {
	r.RecordMany(ctx, "Test Step - "+description, details...)
}
