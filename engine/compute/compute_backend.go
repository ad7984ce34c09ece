package compute

import (
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// BackendType selects which Backend implementation a Compute is built on.
type BackendType int

const (
	// BackendTypeWGPU is the GPU-backed implementation.
	BackendTypeWGPU BackendType = iota

	// BackendTypeHeadless is the host-memory implementation used by tests and
	// machines with no GPU. Kernels are compile-validated but not executed;
	// dispatches are recorded.
	BackendTypeHeadless
)

// PresentMode controls how completed frames are delivered to the display.
type PresentMode int

const (
	// PresentModeUncapped presents frames as fast as they are produced.
	PresentModeUncapped PresentMode = iota

	// PresentModeVSync synchronizes presentation with the display refresh.
	PresentModeVSync
)

// KernelEntry names one kernel to build and carries its four bind group layout
// descriptors. Groups 0..2 are shared across an effect's kernels; group 3 may
// differ per stage when stages read different numbers of dependency buffers.
type KernelEntry struct {
	Name        string
	Descriptors [layout.GroupCount]wgpu.BindGroupLayoutDescriptor
}

// Backend is the device abstraction the compute frontend delegates to. All
// command recording and submission happens on the frame-loop goroutine;
// background goroutines never call into a Backend directly.
type Backend interface {
	// ConfigureSurface (re)configures the presentation surface for a new size.
	// A no-op on backends with no surface.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display. Takes
	// effect at the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// CreateStorageTexture creates a 2D texture usable as a kernel's write
	// target, a sampled input, a copy source for readback, and a copy
	// destination for clears.
	//
	// Parameters:
	//   - label: a debug label for the texture
	//   - width: texture width in pixels
	//   - height: texture height in pixels
	//   - format: the texture format
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if creation fails
	CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (Texture, error)

	// CreateDataTexture creates a 2D RGBA8 sampled texture initialized with
	// the given pixel data. Used for input media and the font atlas.
	//
	// Parameters:
	//   - label: a debug label for the texture
	//   - width: texture width in pixels
	//   - height: texture height in pixels
	//   - pixels: width*height*4 bytes of RGBA pixel data
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if creation fails
	CreateDataTexture(label string, width, height uint32, pixels []byte) (Texture, error)

	// CreateSampler creates a linear-filtering sampler.
	//
	// Parameters:
	//   - label: a debug label for the sampler
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	CreateSampler(label string) (Sampler, error)

	// InitResourceSet creates the buffers a group's layout descriptor calls
	// for, validates that texture and sampler bindings were assigned by the
	// caller, and builds the set's bind group. Buffer sizes come from the
	// descriptor's MinBindingSize unless overridden, which resolution-sized
	// storage buffers rely on.
	//
	// Parameters:
	//   - set: the ResourceSet describing and storing the group's resources
	//   - descriptor: the group's bind group layout descriptor
	//   - bufferSizeOverrides: buffer sizes by binding index, overriding the descriptor
	//
	// Returns:
	//   - error: an error if any resource or the bind group could not be created
	InitResourceSet(set ResourceSet, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers writes all staged buffer writes to the device queue.
	//
	// Parameters:
	//   - writes: the staged writes
	WriteBuffers(writes []BufferWrite)

	// ReadBuffer synchronously reads size bytes at offset from a buffer.
	// Blocks until the device has finished outstanding work on the buffer.
	//
	// Parameters:
	//   - buf: the buffer to read
	//   - offset: the byte offset to read from
	//   - size: the number of bytes to read
	//
	// Returns:
	//   - []byte: the bytes read
	//   - error: an error if the read fails or is out of range
	ReadBuffer(buf Buffer, offset, size uint64) ([]byte, error)

	// ReadTexture synchronously reads a texture's full contents as tightly
	// packed rows.
	//
	// Parameters:
	//   - tex: the texture to read
	//
	// Returns:
	//   - []byte: width*height*bytesPerPixel bytes
	//   - error: an error if the read fails
	ReadTexture(tex Texture) ([]byte, error)

	// ClearTexture zeroes a texture's contents.
	//
	// Parameters:
	//   - tex: the texture to clear
	ClearTexture(tex Texture)

	// BuildKernels compiles one kernel per entry from a single WGSL source.
	// Either every kernel builds or none do.
	//
	// Parameters:
	//   - label: a debug label for the kernel set
	//   - source: the complete WGSL source
	//   - entries: the kernels to build with their group layout descriptors
	//
	// Returns:
	//   - map[string]Kernel: the built kernels keyed by entry name
	//   - error: a compile or validation error
	BuildKernels(label, source string, entries []KernelEntry) (map[string]Kernel, error)

	// BeginFrame creates a command encoder for batching all of a frame's
	// dispatches into one submission. Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginFrame() error

	// DispatchKernel encodes one compute pass within the current frame,
	// binding the four resource groups in order. BeginFrame must have been
	// called.
	//
	// Parameters:
	//   - k: the kernel to dispatch
	//   - groups: the four resource groups; nil entries bind nothing
	//   - workgroups: the workgroup grid in x, y, and z
	DispatchKernel(k Kernel, groups [layout.GroupCount]ResourceSet, workgroups [3]uint32)

	// EndFrame finishes the frame's command encoder and submits it.
	EndFrame()

	// Present blits a texture to the surface and presents it. A no-op on
	// backends with no surface.
	//
	// Parameters:
	//   - tex: the texture to present
	//   - samp: the sampler to blit with
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	Present(tex Texture, samp Sampler) error

	// Release releases the backend's own resources. Handles created through
	// the backend are released by their owners.
	Release()
}
