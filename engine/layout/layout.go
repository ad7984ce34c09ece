package layout

import (
	"fmt"

	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resource group indices. The four-group convention is fixed and never
// renegotiated: group 0 carries only the per-frame time uniform, group 1 the
// active stage's own resources, group 2 the shared engine resources, and
// group 3 the user-declared storage buffers.
const (
	// GroupTime holds the per-frame time uniform and nothing else.
	GroupTime = 0

	// GroupStage holds the active stage's output storage texture, the optional
	// input texture and sampler pair, and the optional custom parameter uniform.
	GroupStage = 1

	// GroupGlobals holds the requested subset of engine-wide resources:
	// mouse, fonts, audio, audio spectrum, and the atomic counter.
	GroupGlobals = 2

	// GroupUser holds the user-declared storage buffers in declaration order.
	GroupUser = 3

	// GroupCount is the fixed number of resource groups.
	GroupCount = 4
)

// TimeUniformSize is the byte size of the group-0 time uniform:
// elapsed f32, delta f32, frame u32, and one u32 of padding.
const TimeUniformSize = 16

// MouseUniformSize is the byte size of the mouse state uniform:
// position vec2f and click position vec2f.
const MouseUniformSize = 16

// AtomicCounterSize is the byte size of the shared atomic counter buffer.
const AtomicCounterSize = 4

// BindingKind identifies what kind of GPU resource a Binding describes.
type BindingKind int

const (
	// KindUniformBuffer is a uniform buffer binding with a fixed byte size.
	KindUniformBuffer BindingKind = iota

	// KindStorageBuffer is a storage buffer binding, possibly resolution-sized.
	KindStorageBuffer

	// KindStorageTexture is a write-access storage texture binding.
	KindStorageTexture

	// KindInputTexture is a sampled texture binding.
	KindInputTexture

	// KindSampler is a filtering sampler binding.
	KindSampler
)

// Binding maps one declared resource need to a concrete (group, binding) pair.
// Binding indices within a group are assigned in declaration order starting at
// 0 with no gaps and no reuse.
type Binding struct {
	// Group is the resource group index, 0..3.
	Group int

	// Index is the binding index within the group.
	Index int

	// Name identifies the resource for lookups ("time", "mouse", user buffer names, ...).
	Name string

	// Kind is the resource kind.
	Kind BindingKind

	// Size is the byte size for uniform buffers and fixed-size storage buffers.
	// Resolution-dependent storage buffers resolve their size via StorageSize instead.
	Size uint64

	// StorageSize carries the sizing rule for user storage buffers.
	StorageSize config.StorageSize

	// ReadOnly marks read-only storage buffer bindings.
	ReadOnly bool

	// Format is the texture format for storage texture bindings.
	Format wgpu.TextureFormat
}

// ResourceLayout is the deterministic translation of a Config's declared needs
// into concrete bindings and per-group bind group layout descriptors. Two
// syntheses from the same Config always produce an identical layout; this is
// required for hot-reload pipeline compatibility. Resize never changes a
// layout — only buffer sizes are recomputed.
type ResourceLayout interface {
	// Bindings returns all assigned bindings across every group, ordered by
	// group then binding index.
	Bindings() []Binding

	// GroupBindings returns the bindings assigned within one group, ordered by
	// binding index.
	//
	// Parameters:
	//   - group: the group index, 0..3
	GroupBindings(group int) []Binding

	// Lookup finds a binding by resource name.
	//
	// Parameters:
	//   - name: the resource name assigned at synthesis
	//
	// Returns:
	//   - Binding: the binding, zero value if not found
	//   - bool: true if found
	Lookup(name string) (Binding, bool)

	// Descriptors returns one bind group layout descriptor per group. Groups
	// with no bindings produce a descriptor with no entries.
	Descriptors() [GroupCount]wgpu.BindGroupLayoutDescriptor

	// StageInputDescriptor returns the group-3 descriptor for a stage that
	// reads inputCount dependency buffers: the user storage buffer entries,
	// then one sampler entry, then inputCount sampled texture entries. The
	// sampler precedes the textures so every stage's descriptor is a prefix
	// of the largest one and a single set of module-scope declarations
	// serves all stages. With inputCount 0 it is identical to the plain
	// group-3 descriptor.
	//
	// Parameters:
	//   - inputCount: the number of buffer slot names the stage reads
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the stage's group-3 descriptor
	StageInputDescriptor(inputCount int) wgpu.BindGroupLayoutDescriptor
}

// resourceLayout is the implementation of ResourceLayout.
type resourceLayout struct {
	groups    [GroupCount][]Binding
	byName    map[string]Binding
	finalized bool
}

var _ ResourceLayout = &resourceLayout{}

// Canonical names for the engine-assigned bindings.
const (
	NameTime          = "time"
	NameOutput        = "output"
	NameInputTexture  = "input_texture"
	NameInputSampler  = "input_sampler"
	NameCustomUniform = "custom"
	NameMouse         = "mouse"
	NameFontTexture   = "font_texture"
	NameFontSampler   = "font_sampler"
	NameAudio         = "audio"
	NameSpectrum      = "audio_spectrum"
	NameAtomicCounter = "atomic_counter"
)

// NewResourceLayout synthesizes the layout for a Config. Declarations are
// processed in a fixed canonical order — time uniform first, then the stage
// group in the order {output, input texture + sampler, custom uniform}, then
// the globals group in the order {mouse, fonts, audio, spectrum, atomic
// counter} filtered to what was requested, then user storage buffers in
// declaration order. Each binding index is 1 + the max already assigned in its
// group (0 if none), which keeps indices contiguous from 0.
//
// Parameters:
//   - cfg: the configuration to synthesize from
//
// Returns:
//   - ResourceLayout: the finalized layout
func NewResourceLayout(cfg config.Config) ResourceLayout {
	l := &resourceLayout{
		byName: make(map[string]Binding),
	}

	l.add(Binding{Group: GroupTime, Name: NameTime, Kind: KindUniformBuffer, Size: TimeUniformSize})

	l.add(Binding{Group: GroupStage, Name: NameOutput, Kind: KindStorageTexture, Format: cfg.OutputFormat()})
	if cfg.NeedsInputTexture() {
		l.add(Binding{Group: GroupStage, Name: NameInputTexture, Kind: KindInputTexture})
		l.add(Binding{Group: GroupStage, Name: NameInputSampler, Kind: KindSampler})
	}
	if size := cfg.CustomUniformSize(); size > 0 {
		l.add(Binding{Group: GroupStage, Name: NameCustomUniform, Kind: KindUniformBuffer, Size: uint64(size)})
	}

	if cfg.NeedsMouse() {
		l.add(Binding{Group: GroupGlobals, Name: NameMouse, Kind: KindUniformBuffer, Size: MouseUniformSize})
	}
	if cfg.NeedsFonts() {
		l.add(Binding{Group: GroupGlobals, Name: NameFontTexture, Kind: KindInputTexture})
		l.add(Binding{Group: GroupGlobals, Name: NameFontSampler, Kind: KindSampler})
	}
	if n := cfg.AudioLen(); n > 0 {
		l.add(Binding{Group: GroupGlobals, Name: NameAudio, Kind: KindStorageBuffer, Size: uint64(n) * 4})
	}
	if n := cfg.SpectrumBands(); n > 0 {
		l.add(Binding{Group: GroupGlobals, Name: NameSpectrum, Kind: KindStorageBuffer, Size: uint64(n) * 4})
	}
	if cfg.NeedsAtomicCounter() {
		l.add(Binding{Group: GroupGlobals, Name: NameAtomicCounter, Kind: KindStorageBuffer, Size: AtomicCounterSize})
	}

	for _, spec := range cfg.StorageBuffers() {
		l.add(Binding{
			Group:       GroupUser,
			Name:        spec.Name,
			Kind:        KindStorageBuffer,
			Size:        spec.Size.BytesFor(0, 0),
			StorageSize: spec.Size,
			ReadOnly:    spec.ReadOnly,
		})
	}

	l.finalized = true
	return l
}

// add assigns the next binding index in the binding's group and records it.
// Adding to a finalized layout is a programming error and panics.
func (l *resourceLayout) add(b Binding) {
	if l.finalized {
		panic(fmt.Sprintf("layout: cannot add %q to a finalized layout", b.Name))
	}
	if b.Group < 0 || b.Group >= GroupCount {
		panic(fmt.Sprintf("layout: group %d out of range for %q", b.Group, b.Name))
	}
	b.Index = len(l.groups[b.Group])
	l.groups[b.Group] = append(l.groups[b.Group], b)
	l.byName[b.Name] = b
}

func (l *resourceLayout) Bindings() []Binding {
	var all []Binding
	for g := 0; g < GroupCount; g++ {
		all = append(all, l.groups[g]...)
	}
	return all
}

func (l *resourceLayout) GroupBindings(group int) []Binding {
	if group < 0 || group >= GroupCount {
		return nil
	}
	return l.groups[group]
}

func (l *resourceLayout) Lookup(name string) (Binding, bool) {
	b, ok := l.byName[name]
	return b, ok
}

func (l *resourceLayout) Descriptors() [GroupCount]wgpu.BindGroupLayoutDescriptor {
	var result [GroupCount]wgpu.BindGroupLayoutDescriptor
	for g := 0; g < GroupCount; g++ {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(l.groups[g]))
		for _, b := range l.groups[g] {
			entries = append(entries, layoutEntry(b))
		}
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result
}

func (l *resourceLayout) StageInputDescriptor(inputCount int) wgpu.BindGroupLayoutDescriptor {
	user := l.groups[GroupUser]
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(user)+inputCount+1)
	for _, b := range user {
		entries = append(entries, layoutEntry(b))
	}
	if inputCount > 0 {
		base := len(user)
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(base),
			Visibility: wgpu.ShaderStageCompute,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		})
		for i := 0; i < inputCount; i++ {
			entries = append(entries, wgpu.BindGroupLayoutEntry{
				Binding:    uint32(base + 1 + i),
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			})
		}
	}
	return wgpu.BindGroupLayoutDescriptor{Entries: entries}
}

// layoutEntry converts one Binding into its wgpu bind group layout entry.
// All entries are compute-visible.
func layoutEntry(b Binding) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Index),
		Visibility: wgpu.ShaderStageCompute,
	}
	switch b.Kind {
	case KindUniformBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: b.Size,
		}
	case KindStorageBuffer:
		bindingType := wgpu.BufferBindingTypeStorage
		if b.ReadOnly {
			bindingType = wgpu.BufferBindingTypeReadOnlyStorage
		}
		// Resolution-sized buffers leave MinBindingSize at 0; the concrete
		// size is resolved per-resolution when the buffer is created.
		minSize := b.Size
		if b.StorageSize.Mode != config.StorageSizeFixed {
			minSize = 0
		}
		entry.Buffer = wgpu.BufferBindingLayout{
			Type:           bindingType,
			MinBindingSize: minSize,
		}
	case KindStorageTexture:
		entry.StorageTexture = wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        b.Format,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case KindInputTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case KindSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		}
	}
	return entry
}
