package effect

import (
	"testing"

	"github.com/Carmen-Shannon/flux-go/common"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
)

const effectSource = `//flux:bindings
//flux:storage(trail, array<f32>)

struct Params {
    gain: f32,
    bias: f32,
    _pad0: f32,
    _pad1: f32,
}

@compute @workgroup_size(16, 16)
fn main_image(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let v = custom.gain * time.elapsed + custom.bias;
    trail[0] = v;
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), vec4<f32>(v, 0.0, 0.0, 1.0));
}
`

func newTestEffect(t *testing.T, options ...EffectBuilderOption) Effect {
	t.Helper()

	cfg := config.NewConfig("Test",
		config.WithCustomUniform(16),
		config.WithStorageBuffer(config.StorageBufferSpec{Name: "trail", Size: config.FixedSize(64)}),
	)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)

	opts := append([]EffectBuilderOption{
		WithShaderSource(effectSource),
		WithSize(32, 24),
	}, options...)
	e, err := NewEffect(cfg, comp, opts...)
	if err != nil {
		t.Fatalf("NewEffect failed: %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

// TestEffectLifecycle verifies construction, frame advance, and readback.
func TestEffectLifecycle(t *testing.T) {
	e := newTestEffect(t)

	if e.Label() != "Test" {
		t.Errorf("label = %q", e.Label())
	}
	if !e.Active() {
		t.Error("effect not active by default")
	}
	if e.Frame() != 0 {
		t.Errorf("frame = %d before any update", e.Frame())
	}

	for i := 0; i < 3; i++ {
		if err := e.Update(0.016); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	if e.Frame() != 3 {
		t.Errorf("frame = %d, want 3", e.Frame())
	}

	data, err := e.ReadOutput()
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	// 32x24 rgba16float.
	if len(data) != 32*24*8 {
		t.Errorf("output = %d bytes, want %d", len(data), 32*24*8)
	}

	e.ClearAll()
	if e.Frame() != 0 {
		t.Errorf("frame = %d after ClearAll", e.Frame())
	}
}

// TestEffectStorageAndParams verifies the named-resource passthroughs.
func TestEffectStorageAndParams(t *testing.T) {
	e := newTestEffect(t)

	if err := e.WriteParams(common.SliceToBytes([]float32{2, 1, 0, 0})); err != nil {
		t.Fatalf("WriteParams failed: %v", err)
	}
	if err := e.WriteStorage("trail", 0, common.SliceToBytes([]float32{5})); err != nil {
		t.Fatalf("WriteStorage failed: %v", err)
	}
	data, err := e.ReadStorage("trail")
	if err != nil {
		t.Fatalf("ReadStorage failed: %v", err)
	}
	if len(data) != 64 {
		t.Errorf("trail = %d bytes, want 64", len(data))
	}
	if err := e.WriteStorage("ghost", 0, []byte{1}); err == nil {
		t.Error("write to unknown storage succeeded")
	}

	// Unconfigured globals fail cleanly through the effect surface.
	if err := e.WriteAudio(0, []float32{1}); err == nil {
		t.Error("WriteAudio succeeded without audio")
	}
	if _, err := e.ReadCounter(); err == nil {
		t.Error("ReadCounter succeeded without a counter")
	}
}

// TestEffectResize verifies output readback follows the new dimensions.
func TestEffectResize(t *testing.T) {
	e := newTestEffect(t)

	if err := e.Resize(10, 5); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if err := e.Update(0.016); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	data, err := e.ReadOutput()
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if len(data) != 10*5*8 {
		t.Errorf("output = %d bytes, want %d", len(data), 10*5*8)
	}
}

// TestEffectConstructionErrors covers the invalid option combinations.
func TestEffectConstructionErrors(t *testing.T) {
	cfg := config.NewConfig("Bad")
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)

	if _, err := NewEffect(cfg, comp); err == nil {
		t.Error("NewEffect succeeded without shader source")
	}
	if _, err := NewEffect(cfg, comp, WithShaderSource("x"), WithHotReload()); err == nil {
		t.Error("NewEffect succeeded with hot reload but no file")
	}

	media := config.NewConfig("Media", config.WithInputTexture())
	if _, err := NewEffect(media, comp, WithShaderSource(effectSource)); err == nil {
		t.Error("NewEffect succeeded without required input media")
	}
}

// TestEffectReloadGeneration verifies the no-reloader default.
func TestEffectReloadGeneration(t *testing.T) {
	e := newTestEffect(t)
	if got := e.ReloadGeneration(); got != 0 {
		t.Errorf("generation = %d without hot reload", got)
	}
	e.ForceReload()
}
