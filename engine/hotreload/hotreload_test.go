package hotreload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/Carmen-Shannon/flux-go/engine/pipeline"
)

const validSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn main_image(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(output, vec2<i32>(0, 0), vec4<f32>(0.0, 0.0, 0.0, 1.0));
}
`

const brokenSource = `//flux:bindings

@compute @workgroup_size(16, 16)
fn main_image() { this is not wgsl }
`

func writeShader(t *testing.T, path, source string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write shader: %v", err)
	}
}

func newFixture(t *testing.T, options ...ReloaderBuilderOption) (Reloader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "effect.wgsl")
	writeShader(t, path, validSource)

	cfg := config.NewConfig("Reload")
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	r, err := NewReloader(cfg, layout.NewResourceLayout(cfg), comp, path, options...)
	if err != nil {
		t.Fatalf("NewReloader failed: %v", err)
	}
	t.Cleanup(r.Stop)
	return r, path
}

// waitForSwap polls until a set is ready or the deadline passes.
func waitForSwap(t *testing.T, r Reloader, deadline time.Duration) pipeline.PipelineSet {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if set, ok := r.Poll(); ok {
			return set
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no pipeline set ready before deadline")
	return nil
}

// TestNoSwapWithoutChange verifies the baseline state yields nothing.
func TestNoSwapWithoutChange(t *testing.T) {
	r, _ := newFixture(t)

	if set, ok := r.Poll(); ok {
		set.Release()
		t.Fatal("set ready without any change")
	}
	if r.Generation() != 0 {
		t.Errorf("generation = %d, want 0", r.Generation())
	}
}

// TestForceReloadProducesSet verifies an explicit reload compiles and swaps.
func TestForceReloadProducesSet(t *testing.T) {
	r, _ := newFixture(t)

	r.ForceReload()
	set := waitForSwap(t, r, 10*time.Second)
	defer set.Release()

	if _, err := set.Get("main_image"); err != nil {
		t.Errorf("recompiled set missing main_image: %v", err)
	}
	if r.Generation() != 1 {
		t.Errorf("generation = %d, want 1", r.Generation())
	}
}

// TestFileChangeTriggersReload verifies the modification-time watcher.
func TestFileChangeTriggersReload(t *testing.T) {
	r, path := newFixture(t, WithPollInterval(10*time.Millisecond))

	writeShader(t, path, validSource+"\n// touched\n")
	// Guarantee the mtime moves forward even on coarse-grained filesystems.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	set := waitForSwap(t, r, 10*time.Second)
	set.Release()
}

// TestFailedCompileKeepsQuiet verifies a broken save never produces a swap and
// the reloader recovers on the next good save.
func TestFailedCompileKeepsQuiet(t *testing.T) {
	r, path := newFixture(t)

	writeShader(t, path, brokenSource)
	r.ForceReload()

	// The failed compile must settle without producing a set. Generation only
	// moves on success, so recovery below proves the failure completed.
	time.Sleep(200 * time.Millisecond)
	if set, ok := r.Poll(); ok {
		set.Release()
		t.Fatal("broken source produced a pipeline set")
	}
	if r.Generation() != 0 {
		t.Errorf("generation = %d after failed compile, want 0", r.Generation())
	}

	writeShader(t, path, validSource)
	// Re-request until the reload lands; a request that arrives while the
	// failed compile is still settling is absorbed by it.
	end := time.Now().Add(10 * time.Second)
	for r.Generation() == 0 && time.Now().Before(end) {
		r.ForceReload()
		time.Sleep(20 * time.Millisecond)
	}
	set := waitForSwap(t, r, 10*time.Second)
	set.Release()
	if r.Generation() == 0 {
		t.Error("generation still 0 after recovery")
	}
}

// TestMissingFileFails verifies construction requires an existing file.
func TestMissingFileFails(t *testing.T) {
	cfg := config.NewConfig("Missing")
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	if _, err := NewReloader(cfg, layout.NewResourceLayout(cfg), comp, filepath.Join(t.TempDir(), "ghost.wgsl")); err == nil {
		t.Error("NewReloader succeeded on a missing file")
	}
}
