package passes

import (
	"fmt"

	"github.com/Carmen-Shannon/flux-go/common"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferSlot is one named ping-pong buffer: a logical name backed by exactly
// two physical textures. On frame N the slot is written through texture
// N mod 2 and self-feedback reads come from the other texture, so a stage
// reading its own slot always sees the previous frame's result.
type BufferSlot interface {
	// Name returns the slot's logical name.
	Name() string

	// Textures returns both physical textures.
	Textures() [2]compute.Texture

	// WriteTexture returns the texture written on the given frame.
	//
	// Parameters:
	//   - frame: the frame counter value
	//
	// Returns:
	//   - compute.Texture: the write target for that frame
	WriteTexture(frame uint64) compute.Texture

	// ReadTexture returns the texture a self-feedback read resolves to on the
	// given frame — the one not being written.
	//
	// Parameters:
	//   - frame: the frame counter value
	//
	// Returns:
	//   - compute.Texture: the read source for that frame
	ReadTexture(frame uint64) compute.Texture
}

// bufferSlot is the implementation of BufferSlot.
type bufferSlot struct {
	name     string
	textures [2]compute.Texture
}

var _ BufferSlot = &bufferSlot{}

func (s *bufferSlot) Name() string {
	return s.name
}

func (s *bufferSlot) Textures() [2]compute.Texture {
	return s.textures
}

func (s *bufferSlot) WriteTexture(frame uint64) compute.Texture {
	return s.textures[frame%2]
}

func (s *bufferSlot) ReadTexture(frame uint64) compute.Texture {
	return s.textures[1-frame%2]
}

// passGraph is the implementation of the PassGraph interface.
type passGraph struct {
	cfg  config.Config
	l    layout.ResourceLayout
	comp compute.Compute

	width  uint32
	height uint32
	frame  uint64

	slots     map[string]*bufferSlot
	slotOrder []string

	passSampler compute.Sampler

	// Optional external media assigned via WithInputMedia.
	inputTexture compute.Texture
	inputSampler compute.Sampler

	// userSet owns the user storage buffers; stage input sets share them.
	userSet compute.ResourceSet

	// customSet/customBinding locate the shared custom parameter uniform,
	// owned by the first stage set that created it.
	customSet     compute.ResourceSet
	customBinding int

	// stageSets holds each stage's group-1 set per parity; inputSets holds
	// each stage's group-3 set per parity, nil when the stage declares no
	// inputs and the plain user set is bound instead.
	stageSets map[string]*[2]compute.ResourceSet
	inputSets map[string]*[2]compute.ResourceSet

	lastOutput compute.Texture
}

// PassGraph owns the named ping-pong buffer slots and schedules the
// configured stages every frame, strictly in declaration order. Input
// references are resolved at build time per parity: a stage reading its own
// slot gets the other physical texture, a stage reading an earlier slot gets
// the texture that slot writes this frame. At the end of every executed frame
// the frame counter increments, flipping every slot exactly once.
type PassGraph interface {
	// Frame returns the current frame counter.
	Frame() uint64

	// Slot returns the buffer slot for a logical name.
	//
	// Parameters:
	//   - name: the slot name
	//
	// Returns:
	//   - BufferSlot: the slot, nil if not found
	//   - bool: true if found
	Slot(name string) (BufferSlot, bool)

	// Execute runs one frame: dispatches every stage in declaration order
	// within one batched submission, then increments the frame counter. When
	// the configuration is run-once, frames after 0 dispatch nothing but the
	// counter still advances.
	//
	// Parameters:
	//   - pipes: the pipeline set holding one kernel per stage
	//   - timeSet: the group-0 resource set
	//   - globalsSet: the group-2 resource set, nil when no globals are configured
	//
	// Returns:
	//   - error: an error if a stage's kernel is missing from the set
	Execute(pipes pipeline.PipelineSet, timeSet, globalsSet compute.ResourceSet) error

	// Output returns the final stage's most recently written texture and the
	// sampler to blit it with.
	//
	// Returns:
	//   - compute.Texture: the display texture
	//   - compute.Sampler: the blit sampler
	Output() (compute.Texture, compute.Sampler)

	// WriteParams writes the custom parameter uniform.
	//
	// Parameters:
	//   - data: the uniform contents
	//
	// Returns:
	//   - error: an error if no custom uniform was configured
	WriteParams(data []byte) error

	// WriteStorage writes into a user storage buffer at a byte offset.
	//
	// Parameters:
	//   - name: the buffer name from the configuration
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if no buffer of that name exists
	WriteStorage(name string, offset uint64, data []byte) error

	// ReadStorage synchronously reads a user storage buffer's full contents.
	//
	// Parameters:
	//   - name: the buffer name from the configuration
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an error if no buffer of that name exists or the read fails
	ReadStorage(name string) ([]byte, error)

	// ClearAll zeroes every slot's physical textures and resets the frame
	// counter to 0, restarting feedback loops and re-arming run-once stages.
	ClearAll()

	// Resize recreates every slot and stage set at a new output size and
	// resets the frame counter. Dimensions of 0 clamp to 1. The layout never
	// changes — only buffer and texture sizes do.
	//
	// Parameters:
	//   - width: the new output width in pixels
	//   - height: the new output height in pixels
	//
	// Returns:
	//   - error: an error if recreation fails
	Resize(width, height uint32) error

	// Release releases every slot texture, stage set, user buffer, and the
	// pass sampler.
	Release()
}

var _ PassGraph = &passGraph{}

// NewPassGraph builds the slots and per-stage resource sets for a
// configuration at the given output size. Dimensions of 0 clamp to 1.
//
// Parameters:
//   - cfg: the effect configuration
//   - l: the layout synthesized from cfg
//   - comp: the device frontend
//   - width: the output width in pixels
//   - height: the output height in pixels
//   - options: a variadic list of options to configure the graph
//
// Returns:
//   - PassGraph: the built graph
//   - error: an error if resource creation fails
func NewPassGraph(cfg config.Config, l layout.ResourceLayout, comp compute.Compute, width, height uint32, options ...PassGraphOption) (PassGraph, error) {
	g := &passGraph{
		cfg:    cfg,
		l:      l,
		comp:   comp,
		width:  max(width, 1),
		height: max(height, 1),
	}
	for _, opt := range options {
		opt(g)
	}

	if err := g.build(); err != nil {
		g.Release()
		return nil, err
	}
	return g, nil
}

// build creates the slots, the user storage set, and the per-stage per-parity
// resource sets for the current size.
func (g *passGraph) build() error {
	g.slots = make(map[string]*bufferSlot)
	g.slotOrder = nil
	g.stageSets = make(map[string]*[2]compute.ResourceSet)
	g.inputSets = make(map[string]*[2]compute.ResourceSet)

	// One slot per name referenced by any stage descriptor: the stage names
	// in declaration order, then any input-only names.
	for _, stage := range g.cfg.Stages() {
		if err := g.ensureSlot(stage.Name); err != nil {
			return err
		}
	}
	for _, stage := range g.cfg.Stages() {
		for _, input := range stage.Inputs {
			if err := g.ensureSlot(input); err != nil {
				return err
			}
		}
	}

	samp, err := g.comp.CreateSampler(g.cfg.Label() + " Pass Sampler")
	if err != nil {
		return err
	}
	g.passSampler = samp

	if err := g.buildUserSet(); err != nil {
		return err
	}

	descriptors := g.l.Descriptors()
	for _, stage := range g.cfg.Stages() {
		if err := g.buildStageSets(stage, descriptors[layout.GroupStage]); err != nil {
			return err
		}
		if err := g.buildInputSets(stage); err != nil {
			return err
		}
	}

	return nil
}

func (g *passGraph) ensureSlot(name string) error {
	if _, ok := g.slots[name]; ok {
		return nil
	}
	slot := &bufferSlot{name: name}
	for i := 0; i < 2; i++ {
		tex, err := g.comp.CreateStorageTexture(
			fmt.Sprintf("%s %s Slot %d", g.cfg.Label(), name, i),
			g.width, g.height, g.cfg.OutputFormat(),
		)
		if err != nil {
			return err
		}
		slot.textures[i] = tex
	}
	g.slots[name] = slot
	g.slotOrder = append(g.slotOrder, name)
	return nil
}

// buildUserSet creates the user storage buffers, resolving resolution-sized
// buffers against the current dimensions.
func (g *passGraph) buildUserSet() error {
	g.userSet = compute.NewResourceSet(g.cfg.Label() + " User Storage")
	sizes := make(map[int]uint64)
	for _, b := range g.l.GroupBindings(layout.GroupUser) {
		sizes[b.Index] = b.StorageSize.BytesFor(g.width, g.height)
	}
	return g.comp.InitResourceSet(g.userSet, g.l.Descriptors()[layout.GroupUser], sizes)
}

// buildStageSets creates a stage's group-1 set for each parity: the parity's
// write texture, the optional external media pair, and the shared custom
// parameter uniform.
func (g *passGraph) buildStageSets(stage config.StageDescriptor, descriptor wgpu.BindGroupLayoutDescriptor) error {
	slot := g.slots[stage.Name]
	output, _ := g.l.Lookup(layout.NameOutput)

	var sets [2]compute.ResourceSet
	for parity := 0; parity < 2; parity++ {
		set := compute.NewResourceSet(fmt.Sprintf("%s %s Stage %d", g.cfg.Label(), stage.Name, parity))
		set.SetTexture(output.Index, slot.textures[parity], false)

		if tex, ok := g.l.Lookup(layout.NameInputTexture); ok {
			if g.inputTexture == nil || g.inputSampler == nil {
				return fmt.Errorf("configuration %s requests an input texture but none was provided", g.cfg.Label())
			}
			set.SetTexture(tex.Index, g.inputTexture, false)
			samp, _ := g.l.Lookup(layout.NameInputSampler)
			set.SetSampler(samp.Index, g.inputSampler)
		}

		custom, hasCustom := g.l.Lookup(layout.NameCustomUniform)
		if hasCustom && g.customSet != nil {
			set.SetBuffer(custom.Index, g.customSet.Buffer(custom.Index), false)
		}

		if err := g.comp.InitResourceSet(set, descriptor, nil); err != nil {
			set.Release()
			return err
		}

		// The first set to initialize creates the custom uniform; every later
		// set shares that buffer so one write reaches all stages.
		if hasCustom && g.customSet == nil {
			g.customSet = set
			g.customBinding = custom.Index
		}
		sets[parity] = set
	}
	g.stageSets[stage.Name] = &sets
	return nil
}

// buildInputSets creates a stage's group-3 set for each parity when the stage
// declares inputs: the shared user storage buffers, the pass sampler, and the
// resolved dependency textures. Stages with no inputs bind the plain user set.
func (g *passGraph) buildInputSets(stage config.StageDescriptor) error {
	if len(stage.Inputs) == 0 {
		g.inputSets[stage.Name] = nil
		return nil
	}

	user := g.l.GroupBindings(layout.GroupUser)
	base := len(user)
	descriptor := g.l.StageInputDescriptor(len(stage.Inputs))

	var sets [2]compute.ResourceSet
	for parity := 0; parity < 2; parity++ {
		set := compute.NewResourceSet(fmt.Sprintf("%s %s Inputs %d", g.cfg.Label(), stage.Name, parity))
		for _, b := range user {
			set.SetBuffer(b.Index, g.userSet.Buffer(b.Index), false)
		}
		set.SetSampler(base, g.passSampler)
		for i, input := range stage.Inputs {
			set.SetTexture(base+1+i, g.resolveInput(stage, input, uint64(parity)), false)
		}
		if err := g.comp.InitResourceSet(set, descriptor, nil); err != nil {
			set.Release()
			return err
		}
		sets[parity] = set
	}
	g.inputSets[stage.Name] = &sets
	return nil
}

// resolveInput maps one declared input to a physical texture for a parity.
// A stage reading its own slot gets the texture it is not writing; a stage
// reading another slot gets the texture that slot writes this frame, which
// for earlier stages is the most recently written one.
func (g *passGraph) resolveInput(stage config.StageDescriptor, input string, parity uint64) compute.Texture {
	slot := g.slots[input]
	if input == stage.Name {
		return slot.ReadTexture(parity)
	}
	return slot.WriteTexture(parity)
}

func (g *passGraph) Frame() uint64 {
	return g.frame
}

func (g *passGraph) Slot(name string) (BufferSlot, bool) {
	slot, ok := g.slots[name]
	if !ok {
		return nil, false
	}
	return slot, true
}

func (g *passGraph) Execute(pipes pipeline.PipelineSet, timeSet, globalsSet compute.ResourceSet) error {
	parity := int(g.frame % 2)
	runStages := !(g.cfg.DispatchOnce() && g.frame > 0)

	if err := g.comp.BeginFrame(); err != nil {
		return err
	}

	if runStages {
		stages := g.cfg.Stages()
		for _, stage := range stages {
			k, err := pipes.Get(stage.Name)
			if err != nil {
				g.comp.EndFrame()
				return err
			}

			group3 := g.userSet
			if sets := g.inputSets[stage.Name]; sets != nil {
				group3 = sets[parity]
			}
			groups := [layout.GroupCount]compute.ResourceSet{
				layout.GroupTime:    timeSet,
				layout.GroupStage:   g.stageSets[stage.Name][parity],
				layout.GroupGlobals: globalsSet,
				layout.GroupUser:    group3,
			}
			g.comp.DispatchKernel(k, groups, g.workgroups(stage))
		}
		if len(stages) > 0 {
			g.lastOutput = g.slots[stages[len(stages)-1].Name].textures[parity]
		}
	}

	g.comp.EndFrame()
	g.frame++
	return nil
}

// workgroups derives a stage's dispatch grid: an explicit fixed count when
// declared, otherwise the output dimensions ceiling-divided by the workgroup
// size with a depth of 1.
func (g *passGraph) workgroups(stage config.StageDescriptor) [3]uint32 {
	if stage.WorkgroupCount != nil {
		return *stage.WorkgroupCount
	}
	ws := g.cfg.WorkgroupSize()
	return [3]uint32{
		common.CeilDiv(g.width, max(ws[0], 1)),
		common.CeilDiv(g.height, max(ws[1], 1)),
		1,
	}
}

func (g *passGraph) Output() (compute.Texture, compute.Sampler) {
	if g.lastOutput != nil {
		return g.lastOutput, g.passSampler
	}
	stages := g.cfg.Stages()
	if len(stages) == 0 {
		return nil, g.passSampler
	}
	return g.slots[stages[len(stages)-1].Name].textures[0], g.passSampler
}

func (g *passGraph) WriteParams(data []byte) error {
	if g.customSet == nil {
		return fmt.Errorf("configuration %s has no custom uniform", g.cfg.Label())
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.customSet, Binding: g.customBinding, Data: data},
	})
	return nil
}

func (g *passGraph) WriteStorage(name string, offset uint64, data []byte) error {
	b, ok := g.l.Lookup(name)
	if !ok || b.Group != layout.GroupUser {
		return fmt.Errorf("unknown storage buffer %q", name)
	}
	g.comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.userSet, Binding: b.Index, Offset: offset, Data: data},
	})
	return nil
}

func (g *passGraph) ReadStorage(name string) ([]byte, error) {
	b, ok := g.l.Lookup(name)
	if !ok || b.Group != layout.GroupUser {
		return nil, fmt.Errorf("unknown storage buffer %q", name)
	}
	buf := g.userSet.Buffer(b.Index)
	return g.comp.ReadBuffer(buf, 0, buf.Size())
}

func (g *passGraph) ClearAll() {
	for _, name := range g.slotOrder {
		slot := g.slots[name]
		g.comp.ClearTexture(slot.textures[0])
		g.comp.ClearTexture(slot.textures[1])
	}
	g.frame = 0
	g.lastOutput = nil
}

func (g *passGraph) Resize(width, height uint32) error {
	g.releaseResources()
	g.width = max(width, 1)
	g.height = max(height, 1)
	g.frame = 0
	g.lastOutput = nil
	return g.build()
}

func (g *passGraph) Release() {
	g.releaseResources()
}

func (g *passGraph) releaseResources() {
	for name, sets := range g.stageSets {
		if sets != nil {
			sets[0].Release()
			sets[1].Release()
		}
		delete(g.stageSets, name)
	}
	g.customSet = nil
	for name, sets := range g.inputSets {
		if sets != nil {
			sets[0].Release()
			sets[1].Release()
		}
		delete(g.inputSets, name)
	}
	if g.userSet != nil {
		g.userSet.Release()
		g.userSet = nil
	}
	if g.passSampler != nil {
		g.passSampler.Release()
		g.passSampler = nil
	}
	for name, slot := range g.slots {
		for _, tex := range slot.textures {
			if tex != nil {
				tex.Release()
			}
		}
		delete(g.slots, name)
	}
	g.slotOrder = nil
	g.lastOutput = nil
}
