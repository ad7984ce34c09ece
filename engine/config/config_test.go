package config

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// TestConfigDefaults verifies the zero-option configuration.
func TestConfigDefaults(t *testing.T) {
	c := NewConfig("Defaults")

	if got := c.StageNames(); len(got) != 1 || got[0] != "main_image" {
		t.Errorf("default stages = %v, want [main_image]", got)
	}
	if got := c.WorkgroupSize(); got != [3]uint32{16, 16, 1} {
		t.Errorf("default workgroup size = %v", got)
	}
	if got := c.OutputFormat(); got != wgpu.TextureFormatRGBA16Float {
		t.Errorf("default output format = %v", got)
	}
	if c.NeedsMouse() || c.NeedsFonts() || c.NeedsInputTexture() || c.NeedsAtomicCounter() {
		t.Error("capability flags set without being requested")
	}
	if c.CustomUniformSize() != 0 || c.AudioLen() != 0 || c.SpectrumBands() != 0 {
		t.Error("sized resources present without being requested")
	}
	if c.DispatchOnce() {
		t.Error("dispatch-once set by default")
	}
}

// TestConfigOptions verifies options land on the right accessors.
func TestConfigOptions(t *testing.T) {
	groups := [3]uint32{8, 1, 1}
	c := NewConfig("Options",
		WithMultiPass(
			StageDescriptor{Name: "buffer_a", Inputs: []string{"buffer_a"}},
			StageDescriptor{Name: "main_image", Inputs: []string{"buffer_a"}, WorkgroupCount: &groups},
		),
		WithCustomUniform(48),
		WithMouse(),
		WithAudio(1024),
		WithAudioSpectrum(64),
		WithWorkgroupSize([3]uint32{8, 8, 1}),
		WithOutputFormat(wgpu.TextureFormatRGBA8Unorm),
	)

	if got := c.StageNames(); len(got) != 2 || got[0] != "buffer_a" || got[1] != "main_image" {
		t.Errorf("stages = %v", got)
	}
	if got := c.Stages()[1].WorkgroupCount; got == nil || *got != groups {
		t.Errorf("workgroup count override = %v", got)
	}
	if c.CustomUniformSize() != 48 {
		t.Errorf("custom uniform size = %d", c.CustomUniformSize())
	}
	if !c.NeedsMouse() {
		t.Error("mouse not requested")
	}
	if c.AudioLen() != 1024 || c.SpectrumBands() != 64 {
		t.Errorf("audio = %d, spectrum = %d", c.AudioLen(), c.SpectrumBands())
	}
	if got := c.WorkgroupSize(); got != [3]uint32{8, 8, 1} {
		t.Errorf("workgroup size = %v", got)
	}
	if c.OutputFormat() != wgpu.TextureFormatRGBA8Unorm {
		t.Errorf("output format = %v", c.OutputFormat())
	}
}

// TestStorageSizeBytesFor verifies the three sizing formulas.
func TestStorageSizeBytesFor(t *testing.T) {
	tests := []struct {
		name   string
		size   StorageSize
		width  uint32
		height uint32
		want   uint64
	}{
		{"fixed ignores resolution", FixedSize(4096), 1920, 1080, 4096},
		{"linear scales with pixels", LinearSize(4), 100, 50, 100 * 50 * 4},
		{"linear at 1x1", LinearSize(16), 1, 1, 16},
		{"quadratic uses larger dimension", QuadraticSize(2), 100, 300, 300 * 300 * 2},
		{"quadratic square", QuadraticSize(1), 64, 64, 64 * 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.size.BytesFor(tt.width, tt.height); got != tt.want {
				t.Errorf("BytesFor(%d, %d) = %d, want %d", tt.width, tt.height, got, tt.want)
			}
		})
	}
}
