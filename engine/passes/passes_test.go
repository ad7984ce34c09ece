package passes

import (
	"bytes"
	"testing"

	"github.com/Carmen-Shannon/flux-go/common"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/pipeline"
	"github.com/Carmen-Shannon/flux-go/engine/shader"
)

const feedbackSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn buffer_a(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    let previous = textureSampleLevel(input_0, pass_sampler, uv, 0.0);
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), previous * 0.5 + vec4<f32>(0.1, 0.0, 0.0, 1.0));
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

const singleSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn main_image(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), vec4<f32>(1.0, 0.0, 0.0, 1.0));
}
`

func feedbackConfig() config.Config {
	return config.NewConfig("Feedback",
		config.WithMultiPass(
			config.StageDescriptor{Name: "buffer_a", Inputs: []string{"buffer_a"}},
			config.StageDescriptor{Name: "main_image", Inputs: []string{"buffer_a"}},
		),
	)
}

// buildFixture assembles the headless compute, layout, graph, and pipeline set
// for a configuration and source.
func buildFixture(t *testing.T, cfg config.Config, source string, width, height uint32) (compute.Compute, PassGraph, pipeline.PipelineSet, compute.ResourceSet) {
	t.Helper()

	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	l := layout.NewResourceLayout(cfg)

	graph, err := NewPassGraph(cfg, l, comp, width, height)
	if err != nil {
		t.Fatalf("NewPassGraph failed: %v", err)
	}

	sh := shader.NewShader(cfg.Label(), shader.WithSource(source))
	pipes, err := pipeline.BuildPipelineSet(cfg, l, sh, comp)
	if err != nil {
		t.Fatalf("BuildPipelineSet failed: %v", err)
	}

	timeSet := compute.NewResourceSet("time")
	if err := comp.InitResourceSet(timeSet, l.Descriptors()[layout.GroupTime], nil); err != nil {
		t.Fatalf("time set init failed: %v", err)
	}
	return comp, graph, pipes, timeSet
}

// TestSlotPingPong verifies the write/read parity of a buffer slot.
func TestSlotPingPong(t *testing.T) {
	cfg := feedbackConfig()
	_, graph, pipes, _ := buildFixture(t, cfg, feedbackSource, 32, 32)
	defer graph.Release()
	defer pipes.Release()

	slot, ok := graph.Slot("buffer_a")
	if !ok {
		t.Fatal("buffer_a slot missing")
	}
	textures := slot.Textures()
	if textures[0] == nil || textures[1] == nil {
		t.Fatal("slot missing physical textures")
	}

	for frame := uint64(0); frame < 4; frame++ {
		write := slot.WriteTexture(frame)
		read := slot.ReadTexture(frame)
		if write != textures[frame%2] {
			t.Errorf("frame %d writes wrong texture", frame)
		}
		if read != textures[1-frame%2] {
			t.Errorf("frame %d reads wrong texture", frame)
		}
		if write == read {
			t.Errorf("frame %d reads its own write target", frame)
		}
	}

	if _, ok := graph.Slot("ghost"); ok {
		t.Error("unknown slot found")
	}
}

// TestExecuteOrderAndParity verifies stages dispatch in declaration order with
// per-parity bind groups, and the frame counter flips every slot once.
func TestExecuteOrderAndParity(t *testing.T) {
	cfg := feedbackConfig()
	comp, graph, pipes, timeSet := buildFixture(t, cfg, feedbackSource, 64, 48)
	defer graph.Release()
	defer pipes.Release()

	recorder := comp.Backend().(compute.DispatchRecorder)

	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if graph.Frame() != 2 {
		t.Fatalf("frame = %d, want 2", graph.Frame())
	}

	records := recorder.DispatchRecords()
	if len(records) != 4 {
		t.Fatalf("got %d dispatches, want 4", len(records))
	}
	wantOrder := []string{"buffer_a", "main_image", "buffer_a", "main_image"}
	for i, r := range records {
		if r.Kernel != wantOrder[i] {
			t.Errorf("dispatch %d = %q, want %q", i, r.Kernel, wantOrder[i])
		}
		// 64x48 at 16x16 workgroups.
		if r.Workgroups != [3]uint32{4, 3, 1} {
			t.Errorf("dispatch %d workgroups = %v", i, r.Workgroups)
		}
	}

	// The same stage must bind different groups on consecutive frames: the
	// parity flip swaps both its output texture and its read source.
	if records[0].Groups[layout.GroupStage] == records[2].Groups[layout.GroupStage] {
		t.Error("buffer_a stage group identical across parities")
	}
	if records[0].Groups[layout.GroupUser] == records[2].Groups[layout.GroupUser] {
		t.Error("buffer_a input group identical across parities")
	}
}

// TestWorkgroupCountOverride verifies a fixed dispatch grid bypasses the
// pixel-grid derivation.
func TestWorkgroupCountOverride(t *testing.T) {
	groups := [3]uint32{7, 1, 1}
	cfg := config.NewConfig("Override",
		config.WithMultiPass(
			config.StageDescriptor{Name: "main_image", WorkgroupCount: &groups},
		),
	)
	comp, graph, pipes, timeSet := buildFixture(t, cfg, singleSource, 640, 480)
	defer graph.Release()
	defer pipes.Release()

	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	records := comp.Backend().(compute.DispatchRecorder).DispatchRecords()
	if len(records) != 1 || records[0].Workgroups != groups {
		t.Fatalf("records = %+v, want one dispatch at %v", records, groups)
	}
}

// TestDispatchOnce verifies run-once configurations dispatch only on frame 0
// and are re-armed by ClearAll.
func TestDispatchOnce(t *testing.T) {
	cfg := config.NewConfig("Once", config.WithDispatchOnce())
	comp, graph, pipes, timeSet := buildFixture(t, cfg, singleSource, 32, 32)
	defer graph.Release()
	defer pipes.Release()

	recorder := comp.Backend().(compute.DispatchRecorder)

	for i := 0; i < 3; i++ {
		if err := graph.Execute(pipes, timeSet, nil); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}
	if got := len(recorder.DispatchRecords()); got != 1 {
		t.Fatalf("got %d dispatches across 3 frames, want 1", got)
	}
	if graph.Frame() != 3 {
		t.Errorf("frame = %d, want 3 (counter advances on skipped frames)", graph.Frame())
	}

	graph.ClearAll()
	if graph.Frame() != 0 {
		t.Fatalf("frame = %d after ClearAll, want 0", graph.Frame())
	}
	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := len(recorder.DispatchRecords()); got != 2 {
		t.Errorf("got %d dispatches after re-arm, want 2", got)
	}
}

// TestClearAllZeroesSlots verifies every physical texture is zeroed.
func TestClearAllZeroesSlots(t *testing.T) {
	cfg := feedbackConfig()
	comp, graph, pipes, _ := buildFixture(t, cfg, feedbackSource, 8, 8)
	defer graph.Release()
	defer pipes.Release()

	slot, _ := graph.Slot("buffer_a")
	graph.ClearAll()
	for i, tex := range slot.Textures() {
		data, err := comp.ReadTexture(tex)
		if err != nil {
			t.Fatalf("ReadTexture failed: %v", err)
		}
		if !bytes.Equal(data, make([]byte, len(data))) {
			t.Errorf("texture %d not zeroed", i)
		}
	}
}

// TestStorageRoundTrip verifies named storage buffer writes and reads, and
// that unknown names fail.
func TestStorageRoundTrip(t *testing.T) {
	cfg := config.NewConfig("Storage",
		config.WithStorageBuffer(config.StorageBufferSpec{Name: "particles", Size: config.FixedSize(64)}),
	)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	l := layout.NewResourceLayout(cfg)
	graph, err := NewPassGraph(cfg, l, comp, 16, 16)
	if err != nil {
		t.Fatalf("NewPassGraph failed: %v", err)
	}
	defer graph.Release()

	payload := []byte{9, 8, 7, 6}
	if err := graph.WriteStorage("particles", 4, payload); err != nil {
		t.Fatalf("WriteStorage failed: %v", err)
	}
	data, err := graph.ReadStorage("particles")
	if err != nil {
		t.Fatalf("ReadStorage failed: %v", err)
	}
	if len(data) != 64 {
		t.Fatalf("storage length = %d, want 64", len(data))
	}
	if !bytes.Equal(data[4:8], payload) {
		t.Errorf("storage contents = %v", data[:12])
	}

	if err := graph.WriteStorage("ghost", 0, payload); err == nil {
		t.Error("write to unknown buffer succeeded")
	}
	if _, err := graph.ReadStorage("ghost"); err == nil {
		t.Error("read of unknown buffer succeeded")
	}
}

// TestResizeRecomputesLinearStorage verifies resolution-sized buffers grow
// through resize while fixed ones keep their size, and the counter resets.
func TestResizeRecomputesLinearStorage(t *testing.T) {
	cfg := config.NewConfig("Resize",
		config.WithStorageBuffers(
			config.StorageBufferSpec{Name: "per_pixel", Size: config.LinearSize(4)},
			config.StorageBufferSpec{Name: "fixed", Size: config.FixedSize(128)},
		),
	)
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	l := layout.NewResourceLayout(cfg)
	graph, err := NewPassGraph(cfg, l, comp, 10, 10)
	if err != nil {
		t.Fatalf("NewPassGraph failed: %v", err)
	}
	defer graph.Release()

	data, _ := graph.ReadStorage("per_pixel")
	if len(data) != 10*10*4 {
		t.Fatalf("per_pixel = %d bytes, want %d", len(data), 10*10*4)
	}

	if err := graph.Resize(20, 5); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if graph.Frame() != 0 {
		t.Errorf("frame = %d after resize, want 0", graph.Frame())
	}
	data, _ = graph.ReadStorage("per_pixel")
	if len(data) != 20*5*4 {
		t.Errorf("per_pixel after resize = %d bytes, want %d", len(data), 20*5*4)
	}
	data, _ = graph.ReadStorage("fixed")
	if len(data) != 128 {
		t.Errorf("fixed after resize = %d bytes, want 128", len(data))
	}

	// Zero dimensions clamp to 1.
	if err := graph.Resize(0, 0); err != nil {
		t.Fatalf("Resize(0, 0) failed: %v", err)
	}
	data, _ = graph.ReadStorage("per_pixel")
	if len(data) != 4 {
		t.Errorf("per_pixel at 1x1 = %d bytes, want 4", len(data))
	}
}

// TestWriteParams verifies the shared custom uniform reaches one buffer that
// every stage set binds.
func TestWriteParams(t *testing.T) {
	cfg := config.NewConfig("Params", config.WithCustomUniform(16))
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	l := layout.NewResourceLayout(cfg)
	graph, err := NewPassGraph(cfg, l, comp, 16, 16)
	if err != nil {
		t.Fatalf("NewPassGraph failed: %v", err)
	}
	defer graph.Release()

	params := []float32{1, 2, 3, 4}
	if err := graph.WriteParams(common.SliceToBytes(params)); err != nil {
		t.Fatalf("WriteParams failed: %v", err)
	}

	// Without a custom uniform the write must fail.
	plain, err := NewPassGraph(config.NewConfig("Plain"), layout.NewResourceLayout(config.NewConfig("Plain")), comp, 16, 16)
	if err != nil {
		t.Fatalf("NewPassGraph failed: %v", err)
	}
	defer plain.Release()
	if err := plain.WriteParams(common.SliceToBytes(params)); err == nil {
		t.Error("WriteParams succeeded without a custom uniform")
	}
}

const chainSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn buffer_a(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), vec4<f32>(0.2, 0.0, 0.0, 1.0));
}

@compute @workgroup_size(16, 16)
fn buffer_b(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), textureSampleLevel(input_0, pass_sampler, uv, 0.0));
}

@compute @workgroup_size(16, 16)
fn buffer_c(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    let previous = textureSampleLevel(input_0, pass_sampler, uv, 0.0);
    let fresh = textureSampleLevel(input_1, pass_sampler, uv, 0.0);
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), previous * 0.9 + fresh * 0.1);
}

@compute @workgroup_size(16, 16)
fn main_image(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = textureDimensions(output);
    if (id.x >= dims.x || id.y >= dims.y) {
        return;
    }
    let uv = vec2<f32>(f32(id.x), f32(id.y)) / vec2<f32>(f32(dims.x), f32(dims.y));
    textureStore(output, vec2<i32>(i32(id.x), i32(id.y)), textureSampleLevel(input_0, pass_sampler, uv, 0.0));
}
`

// TestChainResolution verifies input resolution for a mixed chain: a stage
// with both a self-feedback input and a forward dependency reads the previous
// frame's half of its own slot and the freshly written half of the earlier
// stage's slot, and the next frame's self-read targets exactly the texture
// just written.
func TestChainResolution(t *testing.T) {
	cfg := config.NewConfig("Chain",
		config.WithMultiPass(
			config.StageDescriptor{Name: "buffer_a"},
			config.StageDescriptor{Name: "buffer_b", Inputs: []string{"buffer_a"}},
			config.StageDescriptor{Name: "buffer_c", Inputs: []string{"buffer_c", "buffer_b"}},
			config.StageDescriptor{Name: "main_image", Inputs: []string{"buffer_c"}},
		),
	)
	comp, graph, pipes, timeSet := buildFixture(t, cfg, chainSource, 32, 32)
	defer graph.Release()
	defer pipes.Release()

	g := graph.(*passGraph)
	stages := cfg.Stages()
	slotB, _ := graph.Slot("buffer_b")
	slotC, _ := graph.Slot("buffer_c")

	for parity := uint64(0); parity < 2; parity++ {
		// buffer_c input 0 is itself: the half it is not writing.
		if got := g.resolveInput(stages[2], "buffer_c", parity); got != slotC.ReadTexture(parity) {
			t.Errorf("parity %d: self input is not the previous-frame half", parity)
		}
		// buffer_c input 1 is buffer_b: the half buffer_b writes this frame.
		if got := g.resolveInput(stages[2], "buffer_b", parity); got != slotB.WriteTexture(parity) {
			t.Errorf("parity %d: forward input is not the freshly written half", parity)
		}
		// main_image reads what buffer_c just wrote.
		if got := g.resolveInput(stages[3], "buffer_c", parity); got != slotC.WriteTexture(parity) {
			t.Errorf("parity %d: downstream input is not the freshly written half", parity)
		}
		// After the flip, the next frame's self-read targets exactly that
		// just-written texture.
		if slotC.ReadTexture(parity+1) != slotC.WriteTexture(parity) {
			t.Errorf("parity %d: next frame's self-read misses the written half", parity)
		}
	}

	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	records := comp.Backend().(compute.DispatchRecorder).DispatchRecords()
	wantOrder := []string{"buffer_a", "buffer_b", "buffer_c", "main_image"}
	if len(records) != len(wantOrder) {
		t.Fatalf("got %d dispatches, want %d", len(records), len(wantOrder))
	}
	for i, r := range records {
		if r.Kernel != wantOrder[i] {
			t.Errorf("dispatch %d = %q, want %q", i, r.Kernel, wantOrder[i])
		}
	}
}

// TestOutputTracksFinalStage verifies Output follows the most recently
// written texture of the last stage.
func TestOutputTracksFinalStage(t *testing.T) {
	cfg := feedbackConfig()
	_, graph, pipes, timeSet := buildFixture(t, cfg, feedbackSource, 16, 16)
	defer graph.Release()
	defer pipes.Release()

	slot, _ := graph.Slot("main_image")
	tex, samp := graph.Output()
	if tex == nil || samp == nil {
		t.Fatal("no output before first frame")
	}

	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	tex, _ = graph.Output()
	if tex != slot.Textures()[0] {
		t.Error("frame 0 output is not the parity-0 texture")
	}

	if err := graph.Execute(pipes, timeSet, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	tex, _ = graph.Output()
	if tex != slot.Textures()[1] {
		t.Error("frame 1 output is not the parity-1 texture")
	}
}
