package pool

// Recorder receives pool and resolver activity. metrics.Collector is the
// production implementation.
type Recorder interface {
	Acquired(scope, prototype string, reused bool)
	AcquireFailed(scope, prototype, result string)
	Released(scope, prototype, result string)
	Created(scope, prototype string, n int)
	Discarded(scope, prototype string, n int)
	PoolSize(scope, prototype string, available, checkedOut int)
	Resolved(stage string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Acquired(string, string, bool) {}
func (NopRecorder) AcquireFailed(string, string, string) {}
func (NopRecorder) Released(string, string, string) {}
func (NopRecorder) Created(string, string, int) {}
func (NopRecorder) Discarded(string, string, int) {}
func (NopRecorder) PoolSize(string, string, int, int) {}
func (NopRecorder) Resolved(string) {}
