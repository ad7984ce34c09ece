package globals

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/flux-go/common"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
)

// timeUniform mirrors the group-0 TimeUniform struct in WGSL:
// elapsed f32, delta f32, frame u32, one u32 of padding.
type timeUniform struct {
	Elapsed float32
	Delta   float32
	Frame   uint32
	_       uint32
}

// mouseUniform mirrors the group-2 MouseUniform struct in WGSL:
// current position vec2f and last click position vec2f, in pixels.
type mouseUniform struct {
	X      float32
	Y      float32
	ClickX float32
	ClickY float32
}

// globalsImpl is the implementation of the Globals interface.
type globalsImpl struct {
	mu *sync.Mutex

	l    layout.ResourceLayout
	comp compute.Compute

	// timeSet holds the group-0 time uniform; globalsSet the group-2
	// resources, nil when no globals were requested.
	timeSet    compute.ResourceSet
	globalsSet compute.ResourceSet

	mouse      mouseUniform
	mouseDirty bool

	fontTexture compute.Texture
	fontSampler compute.Sampler
}

// Globals owns the frame-shared resource sets: the group-0 time uniform and
// the group-2 engine resources (mouse uniform, font atlas, audio sample and
// spectrum buffers, atomic counter). One Globals serves one effect; writes are
// staged from input callbacks and flushed at the start of each frame.
type Globals interface {
	// TimeSet returns the group-0 resource set.
	TimeSet() compute.ResourceSet

	// GlobalsSet returns the group-2 resource set, or nil when the layout
	// assigned no group-2 bindings.
	GlobalsSet() compute.ResourceSet

	// WriteTime writes the time uniform for the coming frame.
	//
	// Parameters:
	//   - elapsed: seconds since the effect started
	//   - delta: seconds since the previous frame
	//   - frame: the frame counter value
	WriteTime(elapsed, delta float32, frame uint32)

	// SetMousePosition stages the current cursor position in pixels. The write
	// reaches the GPU on the next FlushMouse.
	//
	// Parameters:
	//   - x: cursor x in pixels
	//   - y: cursor y in pixels
	SetMousePosition(x, y float32)

	// SetMouseClick stages the last click position in pixels.
	//
	// Parameters:
	//   - x: click x in pixels
	//   - y: click y in pixels
	SetMouseClick(x, y float32)

	// FlushMouse writes the staged mouse state if it changed since the last
	// flush. A no-op when the layout has no mouse uniform.
	FlushMouse()

	// WriteAudio writes samples into the audio storage buffer at a float
	// offset. Writes past the configured length fail.
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

	// WriteSpectrum writes the spectrum band magnitudes from offset 0.
	//
	// Parameters:
	//   - bands: the band magnitudes
	//
	// Returns:
	//   - error: an error if the spectrum was not configured or the write is out of range
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

	// Release releases both resource sets and the font atlas resources.
	Release()
}

var _ Globals = &globalsImpl{}

// NewGlobals builds the group-0 and group-2 resource sets for a layout.
// A layout requesting the font atlas requires WithFontAtlas.
//
// Parameters:
//   - label: a debug label, usually the configuration's label
//   - l: the layout synthesized from the effect's configuration
//   - comp: the device frontend
//   - options: a variadic list of options to configure the globals
//
// Returns:
//   - Globals: the built globals
//   - error: an error if resource creation fails
func NewGlobals(label string, l layout.ResourceLayout, comp compute.Compute, options ...GlobalsBuilderOption) (Globals, error) {
	g := &globalsImpl{
		mu:   &sync.Mutex{},
		l:    l,
		comp: comp,
	}
	for _, opt := range options {
		opt(g)
	}

	descriptors := l.Descriptors()

	g.timeSet = compute.NewResourceSet(label + " Time")
	if err := comp.InitResourceSet(g.timeSet, descriptors[layout.GroupTime], nil); err != nil {
		return nil, err
	}

	if len(l.GroupBindings(layout.GroupGlobals)) > 0 {
		set := compute.NewResourceSet(label + " Globals")
		if tex, ok := l.Lookup(layout.NameFontTexture); ok {
			if g.fontTexture == nil || g.fontSampler == nil {
				g.Release()
				return nil, fmt.Errorf("%s requests the font atlas but none was provided", label)
			}
			set.SetTexture(tex.Index, g.fontTexture, true)
			samp, _ := l.Lookup(layout.NameFontSampler)
			set.SetSampler(samp.Index, g.fontSampler)
		}
		if err := comp.InitResourceSet(set, descriptors[layout.GroupGlobals], nil); err != nil {
			set.Release()
			g.Release()
			return nil, err
		}
		g.globalsSet = set
	}

	return g, nil
}

func (g *globalsImpl) TimeSet() compute.ResourceSet {
	return g.timeSet
}

func (g *globalsImpl) GlobalsSet() compute.ResourceSet {
	return g.globalsSet
}

func (g *globalsImpl) WriteTime(elapsed, delta float32, frame uint32) {
	t := timeUniform{Elapsed: elapsed, Delta: delta, Frame: frame}
	b, _ := g.l.Lookup(layout.NameTime)
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.timeSet, Binding: b.Index, Data: common.StructToBytes(&t)},
	})
}

func (g *globalsImpl) SetMousePosition(x, y float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mouse.X = x
	g.mouse.Y = y
	g.mouseDirty = true
}

func (g *globalsImpl) SetMouseClick(x, y float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mouse.ClickX = x
	g.mouse.ClickY = y
	g.mouseDirty = true
}

func (g *globalsImpl) FlushMouse() {
	g.mu.Lock()
	if !g.mouseDirty {
		g.mu.Unlock()
		return
	}
	m := g.mouse
	g.mouseDirty = false
	g.mu.Unlock()

	b, ok := g.l.Lookup(layout.NameMouse)
	if !ok || g.globalsSet == nil {
		return
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.globalsSet, Binding: b.Index, Data: common.StructToBytes(&m)},
	})
}

func (g *globalsImpl) WriteAudio(offset uint64, samples []float32) error {
	b, ok := g.l.Lookup(layout.NameAudio)
	if !ok || g.globalsSet == nil {
		return fmt.Errorf("audio buffer not configured")
	}
	if (offset+uint64(len(samples)))*4 > b.Size {
		return fmt.Errorf("audio write of %d floats at offset %d exceeds buffer length %d", len(samples), offset, b.Size/4)
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.globalsSet, Binding: b.Index, Offset: offset * 4, Data: common.SliceToBytes(samples)},
	})
	return nil
}

func (g *globalsImpl) ReadAudio() ([]float32, error) {
	b, ok := g.l.Lookup(layout.NameAudio)
	if !ok || g.globalsSet == nil {
		return nil, fmt.Errorf("audio buffer not configured")
	}
	buf := g.globalsSet.Buffer(b.Index)
	data, err := g.comp.ReadBuffer(buf, 0, buf.Size())
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(data)/4)
	copy(common.SliceToBytes(samples), data)
	return samples, nil
}

func (g *globalsImpl) WriteSpectrum(bands []float32) error {
	b, ok := g.l.Lookup(layout.NameSpectrum)
	if !ok || g.globalsSet == nil {
		return fmt.Errorf("audio spectrum not configured")
	}
	if uint64(len(bands))*4 > b.Size {
		return fmt.Errorf("spectrum write of %d bands exceeds configured band count %d", len(bands), b.Size/4)
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.globalsSet, Binding: b.Index, Data: common.SliceToBytes(bands)},
	})
	return nil
}

func (g *globalsImpl) ReadCounter() (uint32, error) {
	b, ok := g.l.Lookup(layout.NameAtomicCounter)
	if !ok || g.globalsSet == nil {
		return 0, fmt.Errorf("atomic counter not configured")
	}
	data, err := g.comp.ReadBuffer(g.globalsSet.Buffer(b.Index), 0, layout.AtomicCounterSize)
	if err != nil {
		return 0, err
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24, nil
}

func (g *globalsImpl) ResetCounter() error {
	b, ok := g.l.Lookup(layout.NameAtomicCounter)
	if !ok || g.globalsSet == nil {
		return fmt.Errorf("atomic counter not configured")
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.globalsSet, Binding: b.Index, Data: make([]byte, layout.AtomicCounterSize)},
	})
	return nil
}

func (g *globalsImpl) Release() {
	if g.timeSet != nil {
		g.timeSet.Release()
		g.timeSet = nil
	}
	if g.globalsSet != nil {
		g.globalsSet.Release()
		g.globalsSet = nil
	}
	g.fontTexture = nil
	g.fontSampler = nil
}
