package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// DispatchRecord captures one recorded dispatch on the headless backend:
// which kernel ran, with which bind groups, at what grid size.
type DispatchRecord struct {
	Kernel     string
	Groups     [layout.GroupCount]BindGroup
	Workgroups [3]uint32
}

// DispatchRecorder is implemented by the headless backend. Tests type-assert a
// Backend to it to inspect the dispatches a frame produced.
type DispatchRecorder interface {
	// DispatchRecords returns every dispatch recorded since the last reset,
	// in submission order.
	DispatchRecords() []DispatchRecord

	// ResetDispatchRecords discards the recorded dispatches.
	ResetDispatchRecords()
}

// headlessComputeBackendImpl is a host-memory Backend. Buffers and textures
// are byte slices, kernels are compile-validated with naga but never executed,
// and dispatches are recorded for inspection. It serves tests and machines
// with no GPU.
type headlessComputeBackendImpl struct {
	mu *sync.Mutex

	surfaceWidth  int
	surfaceHeight int

	inFrame bool
	records []DispatchRecord
}

var _ Backend = &headlessComputeBackendImpl{}
var _ DispatchRecorder = &headlessComputeBackendImpl{}

func newHeadlessComputeBackend(width, height int) Backend {
	return &headlessComputeBackendImpl{
		mu:            &sync.Mutex{},
		surfaceWidth:  width,
		surfaceHeight: height,
	}
}

func (b *headlessComputeBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.surfaceWidth = width
	b.surfaceHeight = height
}

func (b *headlessComputeBackendImpl) SetPresentMode(mode PresentMode) {}

func (b *headlessComputeBackendImpl) CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (Texture, error) {
	return &headlessTexture{
		label:  label,
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, uint64(width)*uint64(height)*uint64(bytesPerPixel(format))),
	}, nil
}

func (b *headlessComputeBackendImpl) CreateDataTexture(label string, width, height uint32, pixels []byte) (Texture, error) {
	expected := uint64(width) * uint64(height) * 4
	if uint64(len(pixels)) < expected {
		return nil, fmt.Errorf("texture %q needs %d pixel bytes, got %d", label, expected, len(pixels))
	}
	data := make([]byte, expected)
	copy(data, pixels)
	return &headlessTexture{
		label:  label,
		width:  width,
		height: height,
		format: wgpu.TextureFormatRGBA8Unorm,
		data:   data,
	}, nil
}

func (b *headlessComputeBackendImpl) CreateSampler(label string) (Sampler, error) {
	return &headlessSampler{label: label}, nil
}

func (b *headlessComputeBackendImpl) InitResourceSet(set ResourceSet, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]BindGroupEntry, 0, len(descriptor.Entries))
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isStorageTexture := entry.StorageTexture.Format != wgpu.TextureFormatUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture || isStorageTexture:
			tex := set.Texture(binding)
			if tex == nil {
				return fmt.Errorf("texture binding %d has no texture — assign it before InitResourceSet", binding)
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Texture: tex})
		case isSampler:
			samp := set.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler — assign it before InitResourceSet", binding)
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Sampler: samp})
		default:
			buf := set.Buffer(binding)
			if buf == nil {
				size := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					size = overrideSize
				}
				buf = &headlessBuffer{
					label: set.Label() + " Buffer",
					data:  make([]byte, size),
				}
				set.SetBuffer(binding, buf, true)
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Buffer: buf})
		}
	}

	set.SetBindGroup(&headlessBindGroup{label: set.Label(), entries: entries})
	return nil
}

func (b *headlessComputeBackendImpl) WriteBuffers(writes []BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf, ok := w.Set.Buffer(w.Binding).(*headlessBuffer)
		if !ok || buf == nil {
			continue
		}
		if w.Offset+uint64(len(w.Data)) > uint64(len(buf.data)) {
			continue
		}
		copy(buf.data[w.Offset:], w.Data)
	}
}

func (b *headlessComputeBackendImpl) ReadBuffer(buf Buffer, offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb, ok := buf.(*headlessBuffer)
	if !ok {
		return nil, errors.New("buffer was not created by this backend")
	}
	if offset+size > uint64(len(hb.data)) {
		return nil, fmt.Errorf("read of %d bytes at offset %d exceeds buffer size %d", size, offset, len(hb.data))
	}
	data := make([]byte, size)
	copy(data, hb.data[offset:offset+size])
	return data, nil
}

func (b *headlessComputeBackendImpl) ReadTexture(tex Texture) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ht, ok := tex.(*headlessTexture)
	if !ok {
		return nil, errors.New("texture was not created by this backend")
	}
	data := make([]byte, len(ht.data))
	copy(data, ht.data)
	return data, nil
}

func (b *headlessComputeBackendImpl) ClearTexture(tex Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ht, ok := tex.(*headlessTexture)
	if !ok {
		return
	}
	for i := range ht.data {
		ht.data[i] = 0
	}
}

func (b *headlessComputeBackendImpl) BuildKernels(label, source string, entries []KernelEntry) (map[string]Kernel, error) {
	if len(entries) == 0 {
		return nil, errors.New("no kernel entries to build")
	}

	// naga is the authoritative compile here; an invalid source fails every
	// kernel, matching the all-or-nothing contract.
	if _, err := naga.Compile(source); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	kernels := make(map[string]Kernel, len(entries))
	for _, entry := range entries {
		kernels[entry.Name] = &headlessKernel{label: entry.Name}
	}
	return kernels, nil
}

func (b *headlessComputeBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFrame = true
	return nil
}

func (b *headlessComputeBackendImpl) DispatchKernel(k Kernel, groups [layout.GroupCount]ResourceSet, workgroups [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return
	}

	record := DispatchRecord{Kernel: k.Label(), Workgroups: workgroups}
	for g, set := range groups {
		if set != nil {
			record.Groups[g] = set.BindGroup()
		}
	}
	b.records = append(b.records, record)
}

func (b *headlessComputeBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFrame = false
}

func (b *headlessComputeBackendImpl) Present(tex Texture, samp Sampler) error {
	return nil
}

func (b *headlessComputeBackendImpl) Release() {}

func (b *headlessComputeBackendImpl) DispatchRecords() []DispatchRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]DispatchRecord, len(b.records))
	copy(records, b.records)
	return records
}

func (b *headlessComputeBackendImpl) ResetDispatchRecords() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = nil
}

// Host-memory handle implementations.

type headlessBuffer struct {
	label string
	data  []byte
}

var _ Buffer = &headlessBuffer{}

func (b *headlessBuffer) Label() string     { return b.label }
func (b *headlessBuffer) Size() uint64      { return uint64(len(b.data)) }
func (b *headlessBuffer) Raw() *wgpu.Buffer { return nil }
func (b *headlessBuffer) Release()          {}

type headlessTexture struct {
	label  string
	width  uint32
	height uint32
	format wgpu.TextureFormat
	data   []byte
}

var _ Texture = &headlessTexture{}

func (t *headlessTexture) Label() string              { return t.label }
func (t *headlessTexture) Width() uint32              { return t.width }
func (t *headlessTexture) Height() uint32             { return t.height }
func (t *headlessTexture) Format() wgpu.TextureFormat { return t.format }
func (t *headlessTexture) Raw() *wgpu.Texture         { return nil }
func (t *headlessTexture) View() *wgpu.TextureView    { return nil }
func (t *headlessTexture) Release()                   {}

type headlessSampler struct {
	label string
}

var _ Sampler = &headlessSampler{}

func (s *headlessSampler) Label() string      { return s.label }
func (s *headlessSampler) Raw() *wgpu.Sampler { return nil }
func (s *headlessSampler) Release()           {}

type headlessBindGroup struct {
	label   string
	entries []BindGroupEntry
}

var _ BindGroup = &headlessBindGroup{}

func (g *headlessBindGroup) Label() string             { return g.label }
func (g *headlessBindGroup) Raw() *wgpu.BindGroup      { return nil }
func (g *headlessBindGroup) Entries() []BindGroupEntry { return g.entries }
func (g *headlessBindGroup) Release()                  {}

type headlessKernel struct {
	label string
}

var _ Kernel = &headlessKernel{}

func (k *headlessKernel) Label() string              { return k.label }
func (k *headlessKernel) Raw() *wgpu.ComputePipeline { return nil }
func (k *headlessKernel) Release()                   {}
