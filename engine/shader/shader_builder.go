package shader

// ShaderBuilderOption is a functional option applied to a Shader during construction via NewShader.
type ShaderBuilderOption func(*shd)

// WithSource sets the raw WGSL source text for the shader.
//
// Parameters:
//   - source: the raw WGSL source code
//
// Returns:
//   - ShaderBuilderOption: a function that applies the source option to a shader
func WithSource(source string) ShaderBuilderOption {
	return func(s *shd) {
		s.source = source
	}
}
