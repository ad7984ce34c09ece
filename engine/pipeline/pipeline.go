package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/shader"
)

// pipelineSet is the implementation of the PipelineSet interface.
type pipelineSet struct {
	label   string
	source  string
	kernels map[string]compute.Kernel
}

// PipelineSet holds one compiled kernel per configured stage, all built from
// a single shader source against the layouts synthesized from the effect's
// configuration. A set is immutable once built; hot reload replaces the whole
// set in one assignment rather than mutating it.
type PipelineSet interface {
	// Label returns the debug label for this set.
	Label() string

	// Source returns the processed WGSL source this set was compiled from.
	Source() string

	// Get returns the kernel for a stage name.
	//
	// Parameters:
	//   - stageName: the stage's entry point name
	//
	// Returns:
	//   - compute.Kernel: the compiled kernel
	//   - error: an error if the stage is not part of this set
	Get(stageName string) (compute.Kernel, error)

	// Kernels returns every kernel in the set keyed by stage name.
	// The map must not be modified by the caller.
	Kernels() map[string]compute.Kernel

	// Release releases every kernel in the set.
	Release()
}

var _ PipelineSet = &pipelineSet{}

// BuildPipelineSet pre-processes a shader against the effect's layout and
// compiles one kernel per configured stage. Every stage compiles or none do;
// on error the caller keeps whatever set it already had.
//
// Parameters:
//   - cfg: the effect configuration naming the stages
//   - l: the layout synthesized from cfg
//   - sh: the shader holding the WGSL source for all stages
//   - comp: the device frontend to compile with
//
// Returns:
//   - PipelineSet: the compiled set
//   - error: a pre-process, validation, or compile error
func BuildPipelineSet(cfg config.Config, l layout.ResourceLayout, sh shader.Shader, comp compute.Compute) (PipelineSet, error) {
	pre := shader.NewPreProcessor(cfg, l)
	if err := sh.Process(pre); err != nil {
		return nil, fmt.Errorf("pre-process of %s failed: %w", sh.Key(), err)
	}

	for _, name := range cfg.StageNames() {
		if !sh.HasEntryPoint(name) {
			return nil, fmt.Errorf("entry point %q not found in shader %s", name, sh.Key())
		}
	}

	descriptors := l.Descriptors()
	entries := make([]compute.KernelEntry, 0, len(cfg.Stages()))
	for _, stage := range cfg.Stages() {
		// Groups 0-2 are shared; group 3 depends on the stage's input count.
		stageDescriptors := descriptors
		stageDescriptors[layout.GroupUser] = l.StageInputDescriptor(len(stage.Inputs))
		entries = append(entries, compute.KernelEntry{
			Name:        stage.Name,
			Descriptors: stageDescriptors,
		})
	}

	kernels, err := comp.BuildKernels(cfg.Label(), sh.Processed(), entries)
	if err != nil {
		return nil, err
	}

	return &pipelineSet{
		label:   cfg.Label(),
		source:  sh.Processed(),
		kernels: kernels,
	}, nil
}

func (s *pipelineSet) Label() string {
	return s.label
}

func (s *pipelineSet) Source() string {
	return s.source
}

func (s *pipelineSet) Get(stageName string) (compute.Kernel, error) {
	k, ok := s.kernels[stageName]
	if !ok {
		return nil, fmt.Errorf("stage %q not found in pipeline set %s", stageName, s.label)
	}
	return k, nil
}

func (s *pipelineSet) Kernels() map[string]compute.Kernel {
	return s.kernels
}

func (s *pipelineSet) Release() {
	for name, k := range s.kernels {
		if k != nil {
			k.Release()
		}
		delete(s.kernels, name)
	}
}
