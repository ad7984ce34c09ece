package config

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// StorageSizeMode selects how a storage buffer's byte size is derived from the
// current output resolution.
type StorageSizeMode int

const (
	// StorageSizeFixed is a constant byte size independent of resolution.
	StorageSizeFixed StorageSizeMode = iota

	// StorageSizeLinear scales linearly with width*height: size = width * height * Multiplier.
	StorageSizeLinear

	// StorageSizeQuadratic scales with the square of the larger output dimension:
	// size = max(width, height)^2 * Multiplier.
	StorageSizeQuadratic
)

// StorageSize describes a storage buffer's byte size, either as a fixed constant
// or as a function of the current output resolution. Resolution-dependent sizes
// are recomputed on resize; a size change requires buffer recreation but never
// a layout change.
type StorageSize struct {
	// Mode selects the sizing formula.
	Mode StorageSizeMode

	// Bytes is the constant size for StorageSizeFixed; ignored otherwise.
	Bytes uint64

	// Multiplier is the per-element byte multiplier for the resolution-dependent modes.
	Multiplier uint64
}

// FixedSize returns a StorageSize with a constant byte size.
//
// Parameters:
//   - bytes: the constant buffer size in bytes
//
// Returns:
//   - StorageSize: a fixed-mode size
func FixedSize(bytes uint64) StorageSize {
	return StorageSize{Mode: StorageSizeFixed, Bytes: bytes}
}

// LinearSize returns a StorageSize that scales with width*height.
//
// Parameters:
//   - multiplier: bytes per output pixel
//
// Returns:
//   - StorageSize: a linear-mode size
func LinearSize(multiplier uint64) StorageSize {
	return StorageSize{Mode: StorageSizeLinear, Multiplier: multiplier}
}

// QuadraticSize returns a StorageSize that scales with max(width, height) squared.
//
// Parameters:
//   - multiplier: bytes per squared-max-dimension element
//
// Returns:
//   - StorageSize: a quadratic-mode size
func QuadraticSize(multiplier uint64) StorageSize {
	return StorageSize{Mode: StorageSizeQuadratic, Multiplier: multiplier}
}

// BytesFor resolves the concrete byte size of this StorageSize at the given
// output resolution.
//
// Parameters:
//   - width: current output width in pixels
//   - height: current output height in pixels
//
// Returns:
//   - uint64: the buffer size in bytes at this resolution
func (s StorageSize) BytesFor(width, height uint32) uint64 {
	switch s.Mode {
	case StorageSizeLinear:
		return uint64(width) * uint64(height) * s.Multiplier
	case StorageSizeQuadratic:
		m := uint64(width)
		if uint64(height) > m {
			m = uint64(height)
		}
		return m * m * s.Multiplier
	default:
		return s.Bytes
	}
}

// StorageBufferSpec declares one user storage buffer bound in group 3.
type StorageBufferSpec struct {
	// Name is the unique identifier used for WriteStorage/ReadStorage lookups.
	Name string

	// Size describes the buffer's byte size, possibly resolution-dependent.
	Size StorageSize

	// ReadOnly marks the buffer as read-only storage from the kernel's perspective.
	ReadOnly bool
}

// StageDescriptor declares one compute pass: its entry point name, the named
// buffers it reads, and an optional fixed workgroup count for stages that do
// not operate over the output pixel grid (e.g. 1-D particle splats).
type StageDescriptor struct {
	// Name is the stage's kernel entry point and its output buffer slot name.
	Name string

	// Inputs are the buffer slot names this stage reads. At most one may be the
	// stage's own name (self-feedback); all others must be declared earlier.
	Inputs []string

	// WorkgroupCount, when non-nil, overrides the pixel-grid workgroup count
	// with a fixed dispatch size.
	WorkgroupCount *[3]uint32
}

// cfg is the implementation of the Config interface.
// All fields are populated by builder options at construction and never mutated after.
type cfg struct {
	label string

	stages []StageDescriptor

	customUniformSize uint32

	inputTexture  bool
	mouse         bool
	fonts         bool
	audioLen      uint32
	spectrumBands uint32
	atomicCounter bool

	storageBuffers []StorageBufferSpec

	workgroupSize [3]uint32
	dispatchOnce  bool

	outputFormat wgpu.TextureFormat
}

// Config is the immutable description of an effect's GPU resource needs: its
// ordered stage list, capability flags, user storage buffers, workgroup size,
// and output format. A Config is constructed once by NewConfig and is never
// mutated; ResourceLayout and PipelineSet are derived from it wholesale.
//
// Semantic consistency (e.g. that a custom uniform size matches the shader's
// struct) is not validated here — mismatches surface later at compile time.
type Config interface {
	// Label returns the debug label for this configuration.
	Label() string

	// Stages returns the declared stage list in execution order.
	// The slice must not be modified by the caller.
	Stages() []StageDescriptor

	// StageNames returns the stage entry point names in execution order.
	StageNames() []string

	// CustomUniformSize returns the byte size of the custom parameter uniform,
	// or 0 if none was requested.
	CustomUniformSize() uint32

	// NeedsInputTexture reports whether an input texture and sampler pair was requested.
	NeedsInputTexture() bool

	// NeedsMouse reports whether the mouse uniform was requested.
	NeedsMouse() bool

	// NeedsFonts reports whether the font atlas texture and sampler were requested.
	NeedsFonts() bool

	// AudioLen returns the requested audio sample buffer length in floats,
	// or 0 if audio was not requested.
	AudioLen() uint32

	// SpectrumBands returns the requested audio spectrum band count,
	// or 0 if the spectrum was not requested.
	SpectrumBands() uint32

	// NeedsAtomicCounter reports whether the shared atomic counter buffer was requested.
	NeedsAtomicCounter() bool

	// StorageBuffers returns the declared user storage buffers in declaration order.
	// The slice must not be modified by the caller.
	StorageBuffers() []StorageBufferSpec

	// WorkgroupSize returns the [x, y, z] workgroup size used to derive the
	// per-stage dispatch grid from the output resolution.
	WorkgroupSize() [3]uint32

	// DispatchOnce reports whether stages run only on frame 0.
	DispatchOnce() bool

	// OutputFormat returns the storage texture format for stage outputs.
	OutputFormat() wgpu.TextureFormat
}

var _ Config = &cfg{}

// NewConfig creates an immutable Config with the provided options applied.
// With no options the configuration has a single stage named "main_image",
// a 16x16x1 workgroup size, and RGBA16Float output.
//
// Parameters:
//   - label: a debug label for this configuration
//   - options: a variadic list of options declaring the effect's resource needs
//
// Returns:
//   - Config: the immutable configuration
func NewConfig(label string, options ...ConfigBuilderOption) Config {
	c := &cfg{
		label:         label,
		stages:        []StageDescriptor{{Name: "main_image"}},
		workgroupSize: [3]uint32{16, 16, 1},
		outputFormat:  wgpu.TextureFormatRGBA16Float,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cfg) Label() string {
	return c.label
}

func (c *cfg) Stages() []StageDescriptor {
	return c.stages
}

func (c *cfg) StageNames() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}

func (c *cfg) CustomUniformSize() uint32 {
	return c.customUniformSize
}

func (c *cfg) NeedsInputTexture() bool {
	return c.inputTexture
}

func (c *cfg) NeedsMouse() bool {
	return c.mouse
}

func (c *cfg) NeedsFonts() bool {
	return c.fonts
}

func (c *cfg) AudioLen() uint32 {
	return c.audioLen
}

func (c *cfg) SpectrumBands() uint32 {
	return c.spectrumBands
}

func (c *cfg) NeedsAtomicCounter() bool {
	return c.atomicCounter
}

func (c *cfg) StorageBuffers() []StorageBufferSpec {
	return c.storageBuffers
}

func (c *cfg) WorkgroupSize() [3]uint32 {
	return c.workgroupSize
}

func (c *cfg) DispatchOnce() bool {
	return c.dispatchOnce
}

func (c *cfg) OutputFormat() wgpu.TextureFormat {
	return c.outputFormat
}
