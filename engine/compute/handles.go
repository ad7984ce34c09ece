package compute

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferKind identifies how a buffer is bound to kernels.
type BufferKind int

const (
	// BufferKindUniform is a uniform buffer.
	BufferKindUniform BufferKind = iota

	// BufferKindStorage is a read/write storage buffer.
	BufferKindStorage

	// BufferKindReadOnlyStorage is a read-only storage buffer.
	BufferKindReadOnlyStorage
)

// Buffer is one backend-owned GPU buffer, or a host-memory stand-in under the
// headless backend. Handles are created by a Backend and must be released when
// no longer needed.
type Buffer interface {
	// Label returns the debug label for this buffer.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Raw returns the underlying wgpu buffer, or nil under the headless backend.
	Raw() *wgpu.Buffer

	// Release releases the underlying GPU resource.
	Release()
}

// Texture is one backend-owned 2D storage texture with its view, or a
// host-memory stand-in under the headless backend.
type Texture interface {
	// Label returns the debug label for this texture.
	Label() string

	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture format.
	Format() wgpu.TextureFormat

	// Raw returns the underlying wgpu texture, or nil under the headless backend.
	Raw() *wgpu.Texture

	// View returns the texture view for binding, or nil under the headless backend.
	View() *wgpu.TextureView

	// Release releases the underlying GPU resources.
	Release()
}

// Sampler is one backend-owned sampler.
type Sampler interface {
	// Label returns the debug label for this sampler.
	Label() string

	// Raw returns the underlying wgpu sampler, or nil under the headless backend.
	Raw() *wgpu.Sampler

	// Release releases the underlying GPU resource.
	Release()
}

// BindGroupEntry assigns one resource handle to a binding index when creating
// a bind group. Exactly one of Buffer, Texture, or Sampler is set.
type BindGroupEntry struct {
	Binding int
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// BindGroup is one backend-owned bind group. The entries it was created from
// remain inspectable, which the headless backend relies on for verification.
type BindGroup interface {
	// Label returns the debug label for this bind group.
	Label() string

	// Raw returns the underlying wgpu bind group, or nil under the headless backend.
	Raw() *wgpu.BindGroup

	// Entries returns the entries this bind group was created from.
	Entries() []BindGroupEntry

	// Release releases the underlying GPU resource.
	Release()
}

// Kernel is one compiled compute kernel handle.
type Kernel interface {
	// Label returns the debug label for this kernel, which is the stage's
	// entry point name.
	Label() string

	// Raw returns the underlying wgpu compute pipeline, or nil under the
	// headless backend.
	Raw() *wgpu.ComputePipeline

	// Release releases the underlying GPU resource.
	Release()
}

// bytesPerPixel returns the per-texel byte size of the storage texture formats
// the engine supports as stage output formats.
func bytesPerPixel(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Snorm,
		wgpu.TextureFormatRGBA8Uint, wgpu.TextureFormatRGBA8Sint,
		wgpu.TextureFormatBGRA8Unorm,
		wgpu.TextureFormatR32Float, wgpu.TextureFormatR32Uint, wgpu.TextureFormatR32Sint:
		return 4
	case wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Uint, wgpu.TextureFormatRGBA16Sint,
		wgpu.TextureFormatRG32Float, wgpu.TextureFormatRG32Uint, wgpu.TextureFormatRG32Sint:
		return 8
	case wgpu.TextureFormatRGBA32Float, wgpu.TextureFormatRGBA32Uint, wgpu.TextureFormatRGBA32Sint:
		return 16
	default:
		return 4
	}
}
