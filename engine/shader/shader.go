package shader

import (
	"fmt"
	"os"
)

// shd is the implementation of the Shader interface.
type shd struct {
	key       string
	source    string
	processed string
}

// Shader holds one WGSL compute source through its lifecycle: raw authored
// text with //flux: annotations, then the processed text the backend
// compiles. All of an effect's kernels live in a single Shader.
type Shader interface {
	// Key returns the unique identifier for this shader.
	Key() string

	// Source returns the raw, unprocessed WGSL source.
	Source() string

	// Processed returns the pre-processed WGSL source, or the empty string
	// before Process has been called.
	Processed() string

	// Process runs the pre-processor over the raw source and stores the result.
	//
	// Parameters:
	//   - pre: the pre-processor bound to the effect's configuration and layout
	//
	// Returns:
	//   - error: an error if an annotation is malformed or references an unknown resource
	Process(pre PreProcessor) error

	// EntryPoints returns the @compute entry point names in source order,
	// parsed from the processed source when available, the raw source otherwise.
	EntryPoints() []string

	// WorkgroupSize returns the first @workgroup_size annotation's dimensions,
	// [1, 1, 1] if none is present.
	WorkgroupSize() [3]uint32

	// HasEntryPoint reports whether the named @compute entry point exists.
	//
	// Parameters:
	//   - name: the entry point name to look for
	//
	// Returns:
	//   - bool: true if the entry point exists
	HasEntryPoint(name string) bool
}

var _ Shader = &shd{}

// NewShader creates a Shader with the provided options applied.
//
// Parameters:
//   - key: the unique identifier for this shader
//   - options: a variadic list of options to configure the shader
//
// Returns:
//   - Shader: the configured shader
func NewShader(key string, options ...ShaderBuilderOption) Shader {
	s := &shd{key: key}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewShaderFromFile creates a Shader whose source is read from a file on disk.
//
// Parameters:
//   - key: the unique identifier for this shader
//   - path: the path to the WGSL source file
//
// Returns:
//   - Shader: the configured shader
//   - error: an error if the file could not be read
func NewShaderFromFile(key, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader source %s: %w", path, err)
	}
	return NewShader(key, WithSource(string(data))), nil
}

func (s *shd) Key() string {
	return s.key
}

func (s *shd) Source() string {
	return s.source
}

func (s *shd) Processed() string {
	return s.processed
}

func (s *shd) Process(pre PreProcessor) error {
	processed, err := pre.Process(s.source)
	if err != nil {
		return err
	}
	s.processed = processed
	return nil
}

func (s *shd) EntryPoints() []string {
	return ParseComputeEntryPoints(s.effectiveSource())
}

func (s *shd) WorkgroupSize() [3]uint32 {
	return ParseWorkgroupSize(s.effectiveSource())
}

func (s *shd) HasEntryPoint(name string) bool {
	return hasEntryPoint(s.effectiveSource(), name)
}

func (s *shd) effectiveSource() string {
	if s.processed != "" {
		return s.processed
	}
	return s.source
}
