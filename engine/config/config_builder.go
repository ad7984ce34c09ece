package config

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ConfigBuilderOption is a functional option used to declare an effect's
// resource needs during Config construction. All options are pure builder
// steps — no validation beyond type constraints happens here.
type ConfigBuilderOption func(*cfg)

// WithEntryPoint replaces the stage list with a single stage of the given name.
// This is the single-stage shortcut; use WithMultiPass for dependent stages.
//
// Parameters:
//   - name: the kernel entry point name for the single stage
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithEntryPoint(name string) ConfigBuilderOption {
	return func(c *cfg) {
		c.stages = []StageDescriptor{{Name: name}}
	}
}

// WithMultiPass sets the stage list to the given descriptors, in the given
// order. This order is the execution order — the scheduler trusts it to
// already be a valid dependency order and performs no reordering or cycle
// detection. Declaring a stage before the buffers it reads are written is a
// caller contract violation, not a detected error.
//
// Parameters:
//   - stages: the stage descriptors in execution order
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithMultiPass(stages ...StageDescriptor) ConfigBuilderOption {
	return func(c *cfg) {
		c.stages = stages
	}
}

// WithCustomUniform requests a custom parameter uniform of the given byte size,
// bound in the per-stage group. The size must match the shader's expectation;
// mismatches fail at pipeline compile time.
//
// Parameters:
//   - byteSize: the uniform's size in bytes
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithCustomUniform(byteSize uint32) ConfigBuilderOption {
	return func(c *cfg) {
		c.customUniformSize = byteSize
	}
}

// WithInputTexture requests an input texture and sampler pair in the per-stage
// group, used for effects that process external media.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithInputTexture() ConfigBuilderOption {
	return func(c *cfg) {
		c.inputTexture = true
	}
}

// WithMouse requests the shared mouse state uniform in the engine resource group.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithMouse() ConfigBuilderOption {
	return func(c *cfg) {
		c.mouse = true
	}
}

// WithFonts requests the shared font atlas texture and sampler in the engine
// resource group.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithFonts() ConfigBuilderOption {
	return func(c *cfg) {
		c.fonts = true
	}
}

// WithAudio requests a shared audio sample storage buffer of the given length
// in the engine resource group. Collaborators write samples into it via the
// effect's storage write API; stages read it.
//
// Parameters:
//   - bufferLen: the number of float32 samples in the buffer
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithAudio(bufferLen uint32) ConfigBuilderOption {
	return func(c *cfg) {
		c.audioLen = bufferLen
	}
}

// WithAudioSpectrum requests a shared audio spectrum storage buffer with the
// given band count in the engine resource group.
//
// Parameters:
//   - bandCount: the number of float32 spectrum bands
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithAudioSpectrum(bandCount uint32) ConfigBuilderOption {
	return func(c *cfg) {
		c.spectrumBands = bandCount
	}
}

// WithAtomicCounter requests the shared atomic counter buffer in the engine
// resource group, read/write across all stages.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithAtomicCounter() ConfigBuilderOption {
	return func(c *cfg) {
		c.atomicCounter = true
	}
}

// WithStorageBuffer declares one user storage buffer bound in the user group.
// Buffers are bound in declaration order.
//
// Parameters:
//   - spec: the storage buffer declaration
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithStorageBuffer(spec StorageBufferSpec) ConfigBuilderOption {
	return func(c *cfg) {
		c.storageBuffers = append(c.storageBuffers, spec)
	}
}

// WithStorageBuffers declares multiple user storage buffers at once, preserving
// the given order.
//
// Parameters:
//   - specs: the storage buffer declarations in binding order
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithStorageBuffers(specs ...StorageBufferSpec) ConfigBuilderOption {
	return func(c *cfg) {
		c.storageBuffers = append(c.storageBuffers, specs...)
	}
}

// WithWorkgroupSize sets the [x, y, z] workgroup size used to derive each
// stage's dispatch grid from the output resolution.
//
// Parameters:
//   - size: the workgroup size as [x, y, z]
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithWorkgroupSize(size [3]uint32) ConfigBuilderOption {
	return func(c *cfg) {
		c.workgroupSize = size
	}
}

// WithDispatchOnce marks all stages to dispatch only on frame 0. Later frames
// skip them as a no-op. Used for one-shot initialization kernels.
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithDispatchOnce() ConfigBuilderOption {
	return func(c *cfg) {
		c.dispatchOnce = true
	}
}

// WithOutputFormat sets the storage texture format for stage outputs.
//
// Parameters:
//   - format: the texture format (e.g., wgpu.TextureFormatRGBA16Float)
//
// Returns:
//   - ConfigBuilderOption: option function to apply
func WithOutputFormat(format wgpu.TextureFormat) ConfigBuilderOption {
	return func(c *cfg) {
		c.outputFormat = format
	}
}
