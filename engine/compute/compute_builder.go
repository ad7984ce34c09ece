package compute

// ComputeBuilderOption is a functional option applied to a Compute during construction via NewCompute.
type ComputeBuilderOption func(*comp)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - ComputeBuilderOption: a function that applies the present mode option to a Compute
func WithPresentMode(mode PresentMode) ComputeBuilderOption {
	return func(c *comp) {
		c.pendingPresentMode = &mode
	}
}

// WithForceSoftwareAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - ComputeBuilderOption: a function that applies the force software adapter option to a Compute
func WithForceSoftwareAdapter(force bool) ComputeBuilderOption {
	return func(c *comp) {
		c.forceFallbackAdapter = force
	}
}

// WithHeadlessSize sets the logical surface size for the headless backend,
// which has no window to take a size from.
//
// Parameters:
//   - width: the logical surface width in pixels
//   - height: the logical surface height in pixels
//
// Returns:
//   - ComputeBuilderOption: a function that applies the headless size option to a Compute
func WithHeadlessSize(width, height int) ComputeBuilderOption {
	return func(c *comp) {
		c.headlessWidth = width
		c.headlessHeight = height
	}
}
