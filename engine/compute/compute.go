package compute

import (
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// comp is the implementation of the Compute interface.
type comp struct {
	backendType BackendType
	backend     Backend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	headlessWidth        int
	headlessHeight       int
}

// Compute is the device frontend the engine's modules create resources and
// submit work through. It delegates to a Backend so the same orchestration
// code runs against the GPU and against the host-memory headless backend.
type Compute interface {
	// BackendType returns which backend implementation this Compute runs on.
	BackendType() BackendType

	// Backend returns the underlying backend. Tests use this to reach the
	// headless backend's dispatch records.
	Backend() Backend

	// Resize reconfigures the presentation surface for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateStorageTexture creates a 2D texture usable as a kernel write
	// target, sampled input, readback source, and clear destination.
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
	// pixel data.
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
	// for and builds the set's bind group. Texture and sampler bindings must
	// be assigned on the set first.
	//
	// Parameters:
	//   - set: the ResourceSet describing and storing the group's resources
	//   - descriptor: the group's bind group layout descriptor
	//   - bufferSizeOverrides: buffer sizes by binding index overriding the descriptor (nil safe)
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

	// BeginFrame starts batching the frame's dispatches into one submission.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginFrame() error

	// DispatchKernel encodes one compute pass within the current frame.
	//
	// Parameters:
	//   - k: the kernel to dispatch
	//   - groups: the four resource groups; nil entries bind nothing
	//   - workgroups: the workgroup grid in x, y, and z
	DispatchKernel(k Kernel, groups [layout.GroupCount]ResourceSet, workgroups [3]uint32)

	// EndFrame finishes the frame's batched commands and submits them.
	EndFrame()

	// Present blits a texture to the surface and presents it.
	//
	// Parameters:
	//   - tex: the texture to present
	//   - samp: the sampler to blit with
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	Present(tex Texture, samp Sampler) error

	// Release releases the underlying backend.
	Release()
}

var _ Compute = &comp{}

// NewCompute creates a Compute on the requested backend.
//
// The wgpu backend requires a window for its surface; the headless backend
// ignores the window and uses the configured headless size.
//
// Parameters:
//   - backendType: which backend implementation to build
//   - win: the window supplying the surface descriptor, nil for headless
//   - options: a variadic list of options to configure the Compute
//
// Returns:
//   - Compute: the configured Compute
func NewCompute(backendType BackendType, win window.Window, options ...ComputeBuilderOption) Compute {
	c := &comp{
		backendType:    backendType,
		headlessWidth:  800,
		headlessHeight: 600,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(c)
	}

	switch backendType {
	case BackendTypeHeadless:
		c.backend = newHeadlessComputeBackend(c.headlessWidth, c.headlessHeight)
	case BackendTypeWGPU:
		fallthrough
	default:
		var descriptor *wgpu.SurfaceDescriptor
		if win != nil {
			descriptor = win.SurfaceDescriptor()
		}
		c.backend = newWGPUComputeBackend(descriptor, c.forceFallbackAdapter)
	}

	if c.pendingPresentMode != nil {
		c.backend.SetPresentMode(*c.pendingPresentMode)
	}

	if win != nil {
		c.backend.ConfigureSurface(win.Width(), win.Height())
	}
	return c
}

func (c *comp) BackendType() BackendType {
	return c.backendType
}

func (c *comp) Backend() Backend {
	return c.backend
}

func (c *comp) Resize(width, height int) {
	c.backend.ConfigureSurface(width, height)
}

func (c *comp) SetPresentMode(mode PresentMode) {
	c.backend.SetPresentMode(mode)
}

func (c *comp) CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (Texture, error) {
	return c.backend.CreateStorageTexture(label, width, height, format)
}

func (c *comp) CreateDataTexture(label string, width, height uint32, pixels []byte) (Texture, error) {
	return c.backend.CreateDataTexture(label, width, height, pixels)
}

func (c *comp) CreateSampler(label string) (Sampler, error) {
	return c.backend.CreateSampler(label)
}

func (c *comp) InitResourceSet(set ResourceSet, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	return c.backend.InitResourceSet(set, descriptor, bufferSizeOverrides)
}

func (c *comp) WriteBuffers(writes []BufferWrite) {
	c.backend.WriteBuffers(writes)
}

func (c *comp) ReadBuffer(buf Buffer, offset, size uint64) ([]byte, error) {
	return c.backend.ReadBuffer(buf, offset, size)
}

func (c *comp) ReadTexture(tex Texture) ([]byte, error) {
	return c.backend.ReadTexture(tex)
}

func (c *comp) ClearTexture(tex Texture) {
	c.backend.ClearTexture(tex)
}

func (c *comp) BuildKernels(label, source string, entries []KernelEntry) (map[string]Kernel, error) {
	return c.backend.BuildKernels(label, source, entries)
}

func (c *comp) BeginFrame() error {
	return c.backend.BeginFrame()
}

func (c *comp) DispatchKernel(k Kernel, groups [layout.GroupCount]ResourceSet, workgroups [3]uint32) {
	c.backend.DispatchKernel(k, groups, workgroups)
}

func (c *comp) EndFrame() {
	c.backend.EndFrame()
}

func (c *comp) Present(tex Texture, samp Sampler) error {
	return c.backend.Present(tex, samp)
}

func (c *comp) Release() {
	c.backend.Release()
}
