package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/shader"
)

const twoStageSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn buffer_a(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    let previous = textureSampleLevel(input_0, pass_sampler, uv, 0.0);
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), previous * 0.99);
}

@compute @workgroup_size(16, 16)
fn main_image(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    let field = textureSampleLevel(input_0, pass_sampler, uv, 0.0);
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), field);
}
`

func twoStageConfig() config.Config {
	return config.NewConfig("TwoStage",
		config.WithMultiPass(
			config.StageDescriptor{Name: "buffer_a", Inputs: []string{"buffer_a"}},
			config.StageDescriptor{Name: "main_image", Inputs: []string{"buffer_a"}},
		),
	)
}

// TestBuildPipelineSet verifies one kernel per stage from a single source.
func TestBuildPipelineSet(t *testing.T) {
	cfg := twoStageConfig()
	l := layout.NewResourceLayout(cfg)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	sh := shader.NewShader(cfg.Label(), shader.WithSource(twoStageSource))

	set, err := BuildPipelineSet(cfg, l, sh, comp)
	if err != nil {
		t.Fatalf("BuildPipelineSet failed: %v", err)
	}
	defer set.Release()

	if got := len(set.Kernels()); got != 2 {
		t.Fatalf("got %d kernels, want 2", got)
	}
	for _, name := range cfg.StageNames() {
		k, err := set.Get(name)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
		if k.Label() != name {
			t.Errorf("kernel label = %q, want %q", k.Label(), name)
		}
	}
	if _, err := set.Get("ghost"); err == nil {
		t.Error("Get of unknown stage succeeded")
	}
	if set.Source() == "" {
		t.Error("processed source not retained")
	}
}

// TestBuildPipelineSetMissingEntryPoint verifies a configured stage without a
// matching entry point fails before any kernel is built.
func TestBuildPipelineSetMissingEntryPoint(t *testing.T) {
	cfg := twoStageConfig()
	l := layout.NewResourceLayout(cfg)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	sh := shader.NewShader(cfg.Label(), shader.WithSource(
		"//flux:bindings\n@compute @workgroup_size(1) fn buffer_a() {}"))

	if _, err := BuildPipelineSet(cfg, l, sh, comp); err == nil {
		t.Error("BuildPipelineSet succeeded without main_image entry point")
	}
}

// TestBuildPipelineSetInvalidSource verifies compile failures propagate and
// nothing is returned.
func TestBuildPipelineSetInvalidSource(t *testing.T) {
	cfg := config.NewConfig("Invalid")
	l := layout.NewResourceLayout(cfg)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	sh := shader.NewShader(cfg.Label(), shader.WithSource(
		"@compute @workgroup_size(1) fn main_image() { nonsense }"))

	if _, err := BuildPipelineSet(cfg, l, sh, comp); err == nil {
		t.Error("BuildPipelineSet succeeded on invalid source")
	}
}
