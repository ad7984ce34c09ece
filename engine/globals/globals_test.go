package globals

import (
	"bytes"
	"math"
	"testing"

	"github.com/Carmen-Shannon/flux-go/common"
	"github.com/Carmen-Shannon/flux-go/engine/compute"
	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
)

func newFixture(t *testing.T, cfg config.Config, options ...GlobalsBuilderOption) (compute.Compute, Globals) {
	t.Helper()
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	g, err := NewGlobals(cfg.Label(), layout.NewResourceLayout(cfg), comp, options...)
	if err != nil {
		t.Fatalf("NewGlobals failed: %v", err)
	}
	return comp, g
}

// TestTimeUniformWrite verifies the packed 16-byte time uniform layout.
func TestTimeUniformWrite(t *testing.T) {
	cfg := config.NewConfig("Time")
	comp, g := newFixture(t, cfg)
	defer g.Release()

	g.WriteTime(1.5, 0.016, 42)

	data, err := comp.ReadBuffer(g.TimeSet().Buffer(0), 0, layout.TimeUniformSize)
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if got := math.Float32frombits(le32(data[0:])); got != 1.5 {
		t.Errorf("elapsed = %v, want 1.5", got)
	}
	if got := math.Float32frombits(le32(data[4:])); got != 0.016 {
		t.Errorf("delta = %v, want 0.016", got)
	}
	if got := le32(data[8:]); got != 42 {
		t.Errorf("frame = %d, want 42", got)
	}
}

// TestGlobalsSetOnlyWhenRequested verifies the group-2 set exists exactly when
// the configuration requests a global resource.
func TestGlobalsSetOnlyWhenRequested(t *testing.T) {
	_, plain := newFixture(t, config.NewConfig("Plain"))
	defer plain.Release()
	if plain.GlobalsSet() != nil {
		t.Error("globals set present without requested globals")
	}

	_, withMouse := newFixture(t, config.NewConfig("Mouse", config.WithMouse()))
	defer withMouse.Release()
	if withMouse.GlobalsSet() == nil {
		t.Error("globals set missing with mouse requested")
	}
}

// TestMouseStagingAndFlush verifies staged state reaches the uniform only on
// flush, and clean flushes write nothing.
func TestMouseStagingAndFlush(t *testing.T) {
	cfg := config.NewConfig("Mouse", config.WithMouse())
	comp, g := newFixture(t, cfg)
	defer g.Release()

	g.SetMousePosition(100, 200)
	g.SetMouseClick(30, 40)

	buf := g.GlobalsSet().Buffer(0)
	data, _ := comp.ReadBuffer(buf, 0, layout.MouseUniformSize)
	if !bytes.Equal(data, make([]byte, layout.MouseUniformSize)) {
		t.Fatal("mouse uniform written before flush")
	}

	g.FlushMouse()
	data, _ = comp.ReadBuffer(buf, 0, layout.MouseUniformSize)
	want := []float32{100, 200, 30, 40}
	for i, w := range want {
		if got := math.Float32frombits(le32(data[i*4:])); got != w {
			t.Errorf("mouse field %d = %v, want %v", i, got, w)
		}
	}

	// Overwrite the buffer, then flush with no staged changes: it must not
	// write again.
	comp.WriteBuffers([]compute.BufferWrite{{Set: g.GlobalsSet(), Binding: 0, Data: make([]byte, layout.MouseUniformSize)}})
	g.FlushMouse()
	data, _ = comp.ReadBuffer(buf, 0, layout.MouseUniformSize)
	if !bytes.Equal(data, make([]byte, layout.MouseUniformSize)) {
		t.Error("clean flush rewrote the uniform")
	}
}

// TestAudioRoundTrip verifies offset writes, full reads, and range checks.
func TestAudioRoundTrip(t *testing.T) {
	cfg := config.NewConfig("Audio", config.WithAudio(8))
	_, g := newFixture(t, cfg)
	defer g.Release()

	if err := g.WriteAudio(2, []float32{0.25, -0.5}); err != nil {
		t.Fatalf("WriteAudio failed: %v", err)
	}
	samples, err := g.ReadAudio()
	if err != nil {
		t.Fatalf("ReadAudio failed: %v", err)
	}
	if len(samples) != 8 {
		t.Fatalf("got %d samples, want 8", len(samples))
	}
	if samples[2] != 0.25 || samples[3] != -0.5 {
		t.Errorf("samples = %v", samples)
	}
	if samples[0] != 0 || samples[4] != 0 {
		t.Errorf("untouched samples modified: %v", samples)
	}

	if err := g.WriteAudio(7, []float32{1, 2}); err == nil {
		t.Error("out-of-range audio write succeeded")
	}
}

// TestAudioUnconfigured verifies audio operations fail cleanly when absent.
func TestAudioUnconfigured(t *testing.T) {
	_, g := newFixture(t, config.NewConfig("NoAudio"))
	defer g.Release()

	if err := g.WriteAudio(0, []float32{1}); err == nil {
		t.Error("WriteAudio succeeded without audio")
	}
	if _, err := g.ReadAudio(); err == nil {
		t.Error("ReadAudio succeeded without audio")
	}
	if err := g.WriteSpectrum([]float32{1}); err == nil {
		t.Error("WriteSpectrum succeeded without spectrum")
	}
}

// TestSpectrumWrite verifies band writes and the band count bound.
func TestSpectrumWrite(t *testing.T) {
	cfg := config.NewConfig("Spectrum", config.WithAudioSpectrum(4))
	comp, g := newFixture(t, cfg)
	defer g.Release()

	if err := g.WriteSpectrum([]float32{0.1, 0.2, 0.3, 0.4}); err != nil {
		t.Fatalf("WriteSpectrum failed: %v", err)
	}
	b, _ := layout.NewResourceLayout(cfg).Lookup(layout.NameSpectrum)
	data, _ := comp.ReadBuffer(g.GlobalsSet().Buffer(b.Index), 0, 16)
	if got := math.Float32frombits(le32(data[12:])); got != float32(0.4) {
		t.Errorf("band 3 = %v, want 0.4", got)
	}

	if err := g.WriteSpectrum(make([]float32, 5)); err == nil {
		t.Error("oversized spectrum write succeeded")
	}
}

// TestCounterReadReset verifies counter reads and the zeroing reset.
func TestCounterReadReset(t *testing.T) {
	cfg := config.NewConfig("Counter", config.WithAtomicCounter())
	comp, g := newFixture(t, cfg)
	defer g.Release()

	n, err := g.ReadCounter()
	if err != nil {
		t.Fatalf("ReadCounter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh counter = %d", n)
	}

	// Simulate kernel increments by writing the buffer directly.
	b, _ := layout.NewResourceLayout(cfg).Lookup(layout.NameAtomicCounter)
	comp.WriteBuffers([]compute.BufferWrite{
		{Set: g.GlobalsSet(), Binding: b.Index, Data: common.SliceToBytes([]uint32{7})},
	})
	if n, _ = g.ReadCounter(); n != 7 {
		t.Errorf("counter = %d, want 7", n)
	}

	if err := g.ResetCounter(); err != nil {
		t.Fatalf("ResetCounter failed: %v", err)
	}
	if n, _ = g.ReadCounter(); n != 0 {
		t.Errorf("counter = %d after reset", n)
	}

	_, plain := newFixture(t, config.NewConfig("NoCounter"))
	defer plain.Release()
	if _, err := plain.ReadCounter(); err == nil {
		t.Error("ReadCounter succeeded without a counter")
	}
}

// TestFontAtlasRequired verifies construction fails when fonts are requested
// without an atlas, and succeeds with one.
func TestFontAtlasRequired(t *testing.T) {
	cfg := config.NewConfig("Fonts", config.WithFonts())
	comp := compute.NewCompute(compute.BackendTypeHeadless, nil)
	l := layout.NewResourceLayout(cfg)

	if _, err := NewGlobals(cfg.Label(), l, comp); err == nil {
		t.Fatal("NewGlobals succeeded without a font atlas")
	}

	tex, err := comp.CreateDataTexture("atlas", 2, 2, make([]byte, 16))
	if err != nil {
		t.Fatalf("CreateDataTexture failed: %v", err)
	}
	samp, err := comp.CreateSampler("atlas sampler")
	if err != nil {
		t.Fatalf("CreateSampler failed: %v", err)
	}
	g, err := NewGlobals(cfg.Label(), l, comp, WithFontAtlas(tex, samp))
	if err != nil {
		t.Fatalf("NewGlobals failed with atlas: %v", err)
	}
	defer g.Release()
	if g.GlobalsSet() == nil {
		t.Error("globals set missing")
	}
}

// le32 reads a little-endian uint32.
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
