package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/effect"
	"github.com/Carmen-Shannon/flux-go/engine/profiler"
	"github.com/Carmen-Shannon/flux-go/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	comp   compute.Compute

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	effects map[int]effect.Effect

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point. It owns the window, the compute device,
// and the registered effects, and drives the tick and render loops.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, nil when running headless
	Window() window.Window

	// Compute returns the device frontend shared by every registered effect.
	//
	// Returns:
	//   - compute.Compute: the device frontend
	Compute() compute.Compute

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for input processing and parameter updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame after
	// the effects have executed.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddEffect registers an effect at the given z-index key.
	// Effects are updated in ascending key order; the highest active key is
	// the one presented to the window.
	//
	// Parameters:
	//   - key: the z-index determining update order and presentation
	//   - ef: the Effect to register
	AddEffect(key int, ef effect.Effect)

	// RemoveEffect removes the effect at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the effect to remove
	RemoveEffect(key int)

	// Effect retrieves the effect registered at the given z-index key.
	// Returns nil if no effect exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the effect to retrieve
	//
	// Returns:
	//   - effect.Effect: the effect at the key, or nil if not found
	Effect(key int) effect.Effect

	// Effects returns a copy of all registered effects keyed by z-index.
	//
	// Returns:
	//   - map[int]effect.Effect: a copy of the effects map
	Effects() map[int]effect.Effect

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder
// pattern. When a window is provided, resize and mouse events are forwarded
// to the compute surface and every registered effect.
//
// Parameters:
//   - options: functional options for engine configuration (window, compute, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		effects:          make(map[int]effect.Effect),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.comp == nil {
		// No explicit compute: a window implies the GPU backend, no window
		// implies headless.
		if e.window != nil {
			e.comp = compute.NewCompute(compute.BackendTypeWGPU, e.window)
		} else {
			e.comp = compute.NewCompute(compute.BackendTypeHeadless, nil)
		}
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.comp.Resize(width, height)
			for _, ef := range e.effects {
				if err := ef.Resize(uint32(width), uint32(height)); err != nil {
					log.Printf("resize of effect %s failed: %v", ef.Label(), err)
				}
			}
		})
		e.window.SetMouseMoveCallback(func(x, y int32) {
			for _, ef := range e.effects {
				ef.SetMousePosition(float32(x), float32(y))
			}
		})
		e.window.SetMouseDownCallback(func(x, y int32) {
			for _, ef := range e.effects {
				ef.SetMouseClick(float32(x), float32(y))
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Compute() compute.Compute {
	return e.comp
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. Updates active effects in ascending z-index order, then presents
// the topmost active effect's output. Recovers from panics to avoid crashing
// the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			// Update all active effects in ascending z-index order. Each
			// effect batches its stage dispatches into its own submission;
			// the topmost active effect is the one shown.
			keys := make([]int, 0, len(e.effects))
			for k := range e.effects {
				keys = append(keys, k)
			}
			sort.Ints(keys)

			var top effect.Effect
			for _, k := range keys {
				ef := e.effects[k]
				if !ef.Active() {
					continue
				}
				if err := ef.Update(dt); err != nil {
					log.Printf("update of effect %s failed: %v", ef.Label(), err)
					continue
				}
				top = ef
			}

			if top != nil {
				if tex, samp := top.Output(); tex != nil {
					if err := e.comp.Present(tex, samp); err != nil {
						log.Printf("present of effect %s failed: %v", top.Label(), err)
					}
				}
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddEffect(key int, ef effect.Effect) {
	e.effects[key] = ef
}

func (e *engine) RemoveEffect(key int) {
	delete(e.effects, key)
}

func (e *engine) Effect(key int) effect.Effect {
	return e.effects[key]
}

func (e *engine) Effects() map[int]effect.Effect {
	cp := make(map[int]effect.Effect, len(e.effects))
	for k, v := range e.effects {
		cp[k] = v
	}
	return cp
}
