package engine

import (
	"time"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/effect"
	"github.com/Carmen-Shannon/flux-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithCompute sets a pre-built device frontend rather than letting the engine
// derive one from its window. Useful for headless runs and tests.
//
// Parameters:
//   - c: a pre-configured Compute instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompute(c compute.Compute) EngineBuilderOption {
	return func(e *engine) {
		e.comp = c
	}
}

// WithEffect registers an effect at the given z-index key during engine construction.
// Effects are updated in ascending key order; the highest active key is presented.
//
// Parameters:
//   - key: the z-index determining update order and presentation
//   - ef: the Effect to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEffect(key int, ef effect.Effect) EngineBuilderOption {
	return func(e *engine) {
		e.effects[key] = ef
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
