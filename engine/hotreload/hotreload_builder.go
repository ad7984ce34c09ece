package hotreload

import "time"

// ReloaderBuilderOption is a function that modifies the reloader before its
// watch goroutine starts.
type ReloaderBuilderOption func(*reloader)

// WithPollInterval overrides the modification-time poll interval.
// The default is 500ms. Non-positive values are ignored.
//
// Parameters:
//   - interval: the time between stat calls on the watched file
//
// Returns:
//   - ReloaderBuilderOption: the option to pass to NewReloader
func WithPollInterval(interval time.Duration) ReloaderBuilderOption {
	return func(r *reloader) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithCompileWorkers overrides the compile pool size. The default of 1 keeps
// recompiles serialized; effects sharing a reloader across many sources can
// raise it.
//
// Parameters:
//   - workers: the maximum concurrent compiles
//
// Returns:
//   - ReloaderBuilderOption: the option to pass to NewReloader
func WithCompileWorkers(workers int) ReloaderBuilderOption {
	return func(r *reloader) {
		if workers > 0 {
			r.workers = workers
		}
	}
}
