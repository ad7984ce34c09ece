package compute

// resourceSet is the unexported implementation of ResourceSet.
type resourceSet struct {
	// label is a debug label added for convenience.
	label string

	// bindGroup is the bind group created for this set, or nil if not initialized with a Backend.
	bindGroup BindGroup
	// buffers holds the buffers created for this set, keyed by binding index.
	buffers map[int]Buffer
	// textures holds the textures assigned to this set, keyed by binding index.
	textures map[int]Texture
	// samplers holds the samplers assigned to this set, keyed by binding index.
	samplers map[int]Sampler
	// ownedTextures marks texture bindings whose textures this set releases.
	// Textures shared with other owners (buffer slot textures, the font atlas)
	// are assigned unowned and survive the set's Release.
	ownedTextures map[int]bool
	// ownedBuffers marks buffer bindings whose buffers this set releases.
	// Buffers shared across sets (user storage buffers, the custom uniform)
	// are owned by exactly one set.
	ownedBuffers map[int]bool
}

// ResourceSet holds the resources bound to one resource group: buffers,
// textures, and samplers keyed by binding index, plus the bind group built
// from them. Buffers are created by Backend.InitResourceSet from the group's
// layout descriptor; textures and samplers are assigned by the caller before
// initialization.
//
// Usage pattern:
//  1. Caller creates a ResourceSet and assigns any texture/sampler bindings
//  2. Backend.InitResourceSet creates the missing buffers and the bind group
//  3. Per-frame writes target buffers by binding via Backend.WriteBuffers
//  4. The bind group is set on dispatches at the set's group index
type ResourceSet interface {
	// Label returns the debug label for this set.
	Label() string

	// BindGroup returns the built bind group, or nil before initialization.
	BindGroup() BindGroup

	// Buffer returns the buffer at a binding index, or nil if not present.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Buffer: the buffer or nil
	Buffer(binding int) Buffer

	// Texture returns the texture at a binding index, or nil if not present.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Texture: the texture or nil
	Texture(binding int) Texture

	// Sampler returns the sampler at a binding index, or nil if not present.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Sampler: the sampler or nil
	Sampler(binding int) Sampler

	// SetBindGroup stores the built bind group. Called by Backend.InitResourceSet.
	//
	// Parameters:
	//   - bg: the built bind group
	SetBindGroup(bg BindGroup)

	// SetBuffer stores a buffer at a binding index. Backend.InitResourceSet
	// stores the buffers it creates as owned; callers sharing a buffer that
	// another set created assign it unowned.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to store
	//   - owned: whether this set releases the buffer
	SetBuffer(binding int, buf Buffer, owned bool)

	// SetTexture assigns a texture at a binding index. Shared textures are
	// assigned unowned so the set's Release leaves them alive.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture to assign
	//   - owned: whether this set releases the texture
	SetTexture(binding int, tex Texture, owned bool)

	// SetSampler assigns a sampler at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - samp: the sampler to assign
	SetSampler(binding int, samp Sampler)

	// Release releases the bind group, the set's buffers, and any owned
	// textures. Unowned textures and samplers are left to their owners.
	Release()
}

var _ ResourceSet = &resourceSet{}

// NewResourceSet creates an empty ResourceSet with the given debug label.
//
// Parameters:
//   - label: a debug label for this set
//
// Returns:
//   - ResourceSet: the empty set
func NewResourceSet(label string) ResourceSet {
	return &resourceSet{
		label:         label,
		buffers:       make(map[int]Buffer),
		textures:      make(map[int]Texture),
		samplers:      make(map[int]Sampler),
		ownedTextures: make(map[int]bool),
		ownedBuffers:  make(map[int]bool),
	}
}

func (s *resourceSet) Label() string {
	return s.label
}

func (s *resourceSet) BindGroup() BindGroup {
	return s.bindGroup
}

func (s *resourceSet) Buffer(binding int) Buffer {
	return s.buffers[binding]
}

func (s *resourceSet) Texture(binding int) Texture {
	return s.textures[binding]
}

func (s *resourceSet) Sampler(binding int) Sampler {
	return s.samplers[binding]
}

func (s *resourceSet) SetBindGroup(bg BindGroup) {
	s.bindGroup = bg
}

func (s *resourceSet) SetBuffer(binding int, buf Buffer, owned bool) {
	s.buffers[binding] = buf
	s.ownedBuffers[binding] = owned
}

func (s *resourceSet) SetTexture(binding int, tex Texture, owned bool) {
	s.textures[binding] = tex
	s.ownedTextures[binding] = owned
}

func (s *resourceSet) SetSampler(binding int, samp Sampler) {
	s.samplers[binding] = samp
}

func (s *resourceSet) Release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	for i, buf := range s.buffers {
		if buf != nil && s.ownedBuffers[i] {
			buf.Release()
		}
		delete(s.buffers, i)
		delete(s.ownedBuffers, i)
	}
	for i, tex := range s.textures {
		if tex != nil && s.ownedTextures[i] {
			tex.Release()
		}
		delete(s.textures, i)
		delete(s.ownedTextures, i)
	}
	for i := range s.samplers {
		delete(s.samplers, i)
	}
}

// BufferWrite stages one buffer write targeting a ResourceSet's buffer at a
// binding index and byte offset.
type BufferWrite struct {
	Set     ResourceSet
	Binding int
	Offset  uint64
	Data    []byte
}
