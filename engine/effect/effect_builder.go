package effect

import (
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/hotreload"
)

// EffectBuilderOption is a function that modifies the effect before its
// resources are built.
type EffectBuilderOption func(*eff)

// WithShaderSource provides the WGSL source directly. Mutually exclusive with
// hot reload, which needs a file to watch.
//
// Parameters:
//   - source: the raw WGSL source containing every stage's entry point
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithShaderSource(source string) EffectBuilderOption {
	return func(e *eff) {
		e.shaderSource = source
	}
}

// WithShaderFile reads the WGSL source from a file on disk.
//
// Parameters:
//   - path: the path to the WGSL source file
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithShaderFile(path string) EffectBuilderOption {
	return func(e *eff) {
		e.shaderPath = path
	}
}

// WithHotReload enables background recompilation when the shader file
// changes on disk. Requires WithShaderFile.
//
// Parameters:
//   - options: a variadic list of options forwarded to the reloader
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithHotReload(options ...hotreload.ReloaderBuilderOption) EffectBuilderOption {
	return func(e *eff) {
		e.hotReload = true
		e.reloadOpts = options
	}
}

// WithSize sets the initial output size in pixels. The default is 800x600;
// the engine resizes effects to the window's framebuffer on startup.
//
// Parameters:
//   - width: the output width in pixels
//   - height: the output height in pixels
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithSize(width, height uint32) EffectBuilderOption {
	return func(e *eff) {
		e.width = max(width, 1)
		e.height = max(height, 1)
	}
}

// WithInputMedia provides the external media texture and sampler bound in
// the stage group. Required when the configuration requests an input texture.
//
// Parameters:
//   - tex: the media texture, created via Compute.CreateDataTexture
//   - samp: the sampler used to read it
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithInputMedia(tex compute.Texture, samp compute.Sampler) EffectBuilderOption {
	return func(e *eff) {
		e.mediaTexture = tex
		e.mediaSampler = samp
	}
}

// WithFontAtlas provides the font atlas texture and sampler bound in the
// globals group. Required when the configuration requests fonts.
//
// Parameters:
//   - tex: the atlas texture, created via Compute.CreateDataTexture
//   - samp: the sampler used to read it
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithFontAtlas(tex compute.Texture, samp compute.Sampler) EffectBuilderOption {
	return func(e *eff) {
		e.fontTexture = tex
		e.fontSampler = samp
	}
}

// WithInactive creates the effect deactivated; the engine skips it until
// SetActive(true).
//
// Returns:
//   - EffectBuilderOption: the option to pass to NewEffect
func WithInactive() EffectBuilderOption {
	return func(e *eff) {
		e.active = false
	}
}
