package effect

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/globals"
	"github.com/Carmen-Shannon/flux-go/engine/hotreload"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/passes"
	"github.com/Carmen-Shannon/flux-go/engine/pipeline"
	"github.com/Carmen-Shannon/flux-go/engine/shader"
)

// eff is the implementation of the Effect interface.
type eff struct {
	mu *sync.Mutex

	cfg  config.Config
	l    layout.ResourceLayout
	comp compute.Compute

	width  uint32
	height uint32
	active bool

	// Construction inputs staged by builder options.
	shaderSource string
	shaderPath   string
	hotReload    bool
	reloadOpts   []hotreload.ReloaderBuilderOption
	mediaTexture compute.Texture
	mediaSampler compute.Sampler
	fontTexture  compute.Texture
	fontSampler  compute.Sampler

	glob     globals.Globals
	graph    passes.PassGraph
	pipes    pipeline.PipelineSet
	reloader hotreload.Reloader

	elapsed float32
}

// Effect is one complete compute effect: a configuration, the layout
// synthesized from it, the pass graph owning its buffer slots, the compiled
// pipeline set, the shared globals, and optionally a hot reloader watching
// the shader source on disk. Effects are driven by Update once per frame and
// composited by the engine in z-order.
type Effect interface {
	// Label returns the effect's debug label, taken from its configuration.
	Label() string

	// Config returns the effect's configuration.
	Config() config.Config

	// Layout returns the layout synthesized from the configuration.
	Layout() layout.ResourceLayout

	// Active reports whether the engine updates and composites this effect.
	Active() bool

	// SetActive toggles whether the engine updates and composites this effect.
	//
	// Parameters:
	//   - active: true to include the effect in the frame
	SetActive(active bool)

	// Frame returns the effect's frame counter.
	Frame() uint64

	// Update advances the effect one frame: writes the time uniform, flushes
	// staged mouse state, swaps in a hot-reloaded pipeline set if one is
	// ready, and executes every stage.
	//
	// Parameters:
	//   - delta: seconds since the previous update
	//
	// Returns:
	//   - error: an error if stage execution fails
	Update(delta float32) error

	// Output returns the final stage's most recent output and its sampler.
	//
	// Returns:
	//   - compute.Texture: the display texture
	//   - compute.Sampler: the sampler to blit it with
	Output() (compute.Texture, compute.Sampler)

	// ReadOutput synchronously reads back the final stage's output pixels.
	//
	// Returns:
	//   - []byte: the tightly packed pixel data
	//   - error: an error if the read fails
	ReadOutput() ([]byte, error)

	// Resize recreates the effect's slots and resolution-sized buffers at a
	// new output size. The layout and compiled kernels are unchanged.
	//
	// Parameters:
	//   - width: the new output width in pixels
	//   - height: the new output height in pixels
	//
	// Returns:
	//   - error: an error if resource recreation fails
	Resize(width, height uint32) error

	// WriteParams writes the custom parameter uniform.
	//
	// Parameters:
	//   - data: the uniform contents
	//
	// Returns:
	//   - error: an error if no custom uniform was configured
	WriteParams(data []byte) error

	// WriteStorage writes into a named user storage buffer.
	//
	// Parameters:
	//   - name: the buffer name from the configuration
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if no buffer of that name exists
	WriteStorage(name string, offset uint64, data []byte) error

	// ReadStorage synchronously reads a named user storage buffer.
	//
	// Parameters:
	//   - name: the buffer name from the configuration
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an error if no buffer of that name exists or the read fails
	ReadStorage(name string) ([]byte, error)

	// WriteAudio writes samples into the audio buffer at a float offset.
	//
	// Parameters:
	//   - offset: the float index to write at
	//   - samples: the sample values
	//
	// Returns:
	//   - error: an error if audio was not configured or the write is out of range
	WriteAudio(offset uint64, samples []float32) error

	// ReadAudio synchronously reads the full audio sample buffer.
	//
	// Returns:
	//   - []float32: the sample values
	//   - error: an error if audio was not configured or the read fails
	ReadAudio() ([]float32, error)

	// WriteSpectrum writes the spectrum band magnitudes.
	//
	// Parameters:
	//   - bands: the band magnitudes
	//
	// Returns:
	//   - error: an error if the spectrum was not configured
	WriteSpectrum(bands []float32) error

	// ReadCounter synchronously reads the shared atomic counter.
	//
	// Returns:
	//   - uint32: the counter value
	//   - error: an error if the counter was not configured or the read fails
	ReadCounter() (uint32, error)

	// ResetCounter zeroes the shared atomic counter.
	//
	// Returns:
	//   - error: an error if the counter was not configured
	ResetCounter() error

	// SetMousePosition stages the cursor position for the next frame.
	//
	// Parameters:
	//   - x: cursor x in pixels
	//   - y: cursor y in pixels
	SetMousePosition(x, y float32)

	// SetMouseClick stages the last click position for the next frame.
	//
	// Parameters:
	//   - x: click x in pixels
	//   - y: click y in pixels
	SetMouseClick(x, y float32)

	// ForceReload queues a shader recompile regardless of file modification
	// time. A no-op when hot reload is not enabled.
	ForceReload()

	// ReloadGeneration returns the number of successful hot reloads, 0 when
	// hot reload is not enabled.
	ReloadGeneration() uint64

	// ClearAll zeroes every buffer slot and resets the frame counter,
	// restarting feedback loops and re-arming run-once stages.
	ClearAll()

	// Release stops the reloader and releases every GPU resource the effect
	// owns.
	Release()
}

var _ Effect = &eff{}

// NewEffect builds a complete effect from a configuration: layout synthesis,
// globals, pass graph, shader pre-processing, and kernel compilation. Shader
// source comes from WithShaderSource or WithShaderFile; hot reload requires
// the latter.
//
// Parameters:
//   - cfg: the effect configuration
//   - comp: the device frontend
//   - options: a variadic list of options configuring the effect
//
// Returns:
//   - Effect: the built effect
//   - error: an error if any construction step fails
func NewEffect(cfg config.Config, comp compute.Compute, options ...EffectBuilderOption) (Effect, error) {
	e := &eff{
		mu:     &sync.Mutex{},
		cfg:    cfg,
		comp:   comp,
		width:  800,
		height: 600,
		active: true,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.shaderSource == "" && e.shaderPath == "" {
		return nil, fmt.Errorf("effect %s has no shader source", cfg.Label())
	}
	if e.hotReload && e.shaderPath == "" {
		return nil, fmt.Errorf("effect %s enables hot reload without a shader file", cfg.Label())
	}

	e.l = layout.NewResourceLayout(cfg)

	var globalOpts []globals.GlobalsBuilderOption
	if e.fontTexture != nil {
		globalOpts = append(globalOpts, globals.WithFontAtlas(e.fontTexture, e.fontSampler))
	}
	glob, err := globals.NewGlobals(cfg.Label(), e.l, comp, globalOpts...)
	if err != nil {
		return nil, err
	}
	e.glob = glob

	var graphOpts []passes.PassGraphOption
	if e.mediaTexture != nil {
		graphOpts = append(graphOpts, passes.WithInputMedia(e.mediaTexture, e.mediaSampler))
	}
	graph, err := passes.NewPassGraph(cfg, e.l, comp, e.width, e.height, graphOpts...)
	if err != nil {
		e.glob.Release()
		return nil, err
	}
	e.graph = graph

	sh, err := e.loadShader()
	if err != nil {
		e.Release()
		return nil, err
	}
	pipes, err := pipeline.BuildPipelineSet(cfg, e.l, sh, comp)
	if err != nil {
		e.Release()
		return nil, err
	}
	e.pipes = pipes

	if e.hotReload {
		reloader, err := hotreload.NewReloader(cfg, e.l, comp, e.shaderPath, e.reloadOpts...)
		if err != nil {
			e.Release()
			return nil, err
		}
		e.reloader = reloader
	}

	return e, nil
}

func (e *eff) loadShader() (shader.Shader, error) {
	if e.shaderPath != "" {
		return shader.NewShaderFromFile(e.cfg.Label(), e.shaderPath)
	}
	return shader.NewShader(e.cfg.Label(), shader.WithSource(e.shaderSource)), nil
}

func (e *eff) Label() string {
	return e.cfg.Label()
}

func (e *eff) Config() config.Config {
	return e.cfg
}

func (e *eff) Layout() layout.ResourceLayout {
	return e.l
}

func (e *eff) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *eff) SetActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = active
}

func (e *eff) Frame() uint64 {
	return e.graph.Frame()
}

func (e *eff) Update(delta float32) error {
	e.elapsed += delta
	e.glob.WriteTime(e.elapsed, delta, uint32(e.graph.Frame()))
	e.glob.FlushMouse()

	// Swap in a hot-reloaded set before dispatching; the old set's kernels
	// are not in flight between frames, so releasing here is safe.
	if e.reloader != nil {
		if set, ok := e.reloader.Poll(); ok {
			e.pipes.Release()
			e.pipes = set
		}
	}

	return e.graph.Execute(e.pipes, e.glob.TimeSet(), e.glob.GlobalsSet())
}

func (e *eff) Output() (compute.Texture, compute.Sampler) {
	return e.graph.Output()
}

func (e *eff) ReadOutput() ([]byte, error) {
	tex, _ := e.graph.Output()
	if tex == nil {
		return nil, fmt.Errorf("effect %s has no output texture", e.cfg.Label())
	}
	return e.comp.ReadTexture(tex)
}

func (e *eff) Resize(width, height uint32) error {
	e.width = max(width, 1)
	e.height = max(height, 1)
	return e.graph.Resize(width, height)
}

func (e *eff) WriteParams(data []byte) error {
	return e.graph.WriteParams(data)
}

func (e *eff) WriteStorage(name string, offset uint64, data []byte) error {
	return e.graph.WriteStorage(name, offset, data)
}

func (e *eff) ReadStorage(name string) ([]byte, error) {
	return e.graph.ReadStorage(name)
}

func (e *eff) WriteAudio(offset uint64, samples []float32) error {
	return e.glob.WriteAudio(offset, samples)
}

func (e *eff) ReadAudio() ([]float32, error) {
	return e.glob.ReadAudio()
}

func (e *eff) WriteSpectrum(bands []float32) error {
	return e.glob.WriteSpectrum(bands)
}

func (e *eff) ReadCounter() (uint32, error) {
	return e.glob.ReadCounter()
}

func (e *eff) ResetCounter() error {
	return e.glob.ResetCounter()
}

func (e *eff) SetMousePosition(x, y float32) {
	e.glob.SetMousePosition(x, y)
}

func (e *eff) SetMouseClick(x, y float32) {
	e.glob.SetMouseClick(x, y)
}

func (e *eff) ForceReload() {
	if e.reloader != nil {
		e.reloader.ForceReload()
	}
}

func (e *eff) ReloadGeneration() uint64 {
	if e.reloader == nil {
		return 0
	}
	return e.reloader.Generation()
}

func (e *eff) ClearAll() {
	e.graph.ClearAll()
	e.elapsed = 0
}

func (e *eff) Release() {
	if e.reloader != nil {
		e.reloader.Stop()
		e.reloader = nil
	}
	if e.pipes != nil {
		e.pipes.Release()
		e.pipes = nil
	}
	if e.graph != nil {
		e.graph.Release()
		e.graph = nil
	}
	if e.glob != nil {
		e.glob.Release()
		e.glob = nil
	}
}
