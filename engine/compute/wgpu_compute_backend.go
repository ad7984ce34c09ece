package compute

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/flux-go/engine/layout"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuComputeBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state for batching all dispatches into a single GPU submission
	frameEncoder *wgpu.CommandEncoder

	// Blit state for presenting the final output texture to the surface.
	// Rebuilt when the surface format changes.
	blitPipeline *wgpu.RenderPipeline
	blitLayout   *wgpu.BindGroupLayout
}

var _ Backend = &wgpuComputeBackendImpl{}

// blitWGSL draws one fullscreen triangle sampling the output texture.
const blitWGSL = `
@group(0) @binding(0) var blit_texture: texture_2d<f32>;
@group(0) @binding(1) var blit_sampler: sampler;

struct BlitOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> BlitOut {
    var out: BlitOut;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(uv.x, 1.0 - uv.y);
    return out;
}

@fragment
fn fs_main(in: BlitOut) -> @location(0) vec4<f32> {
    return textureSample(blit_texture, blit_sampler, in.uv);
}
`

func newWGPUComputeBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) Backend {
	runtime.LockOSThread()
	b := &wgpuComputeBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b
}

func (b *wgpuComputeBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	previousFormat := b.surfaceFormat
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	// The blit pipeline targets the surface format, so a format change
	// invalidates it.
	if previousFormat == nil || *previousFormat != *b.surfaceFormat {
		if b.blitPipeline != nil {
			b.blitPipeline.Release()
			b.blitPipeline = nil
		}
	}
}

func (b *wgpuComputeBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuComputeBackendImpl) CreateStorageTexture(label string, width, height uint32, format wgpu.TextureFormat) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage: wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{label: label, width: width, height: height, format: format, texture: tex, view: view}, nil
}

func (b *wgpuComputeBackendImpl) CreateDataTexture(label string, width, height uint32, pixels []byte) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := wgpu.TextureFormatRGBA8Unorm
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{label: label, width: width, height: height, format: format, texture: tex, view: view}, nil
}

func (b *wgpuComputeBackendImpl) CreateSampler(label string) (Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{label: label, sampler: samp}, nil
}

func (b *wgpuComputeBackendImpl) InitResourceSet(set ResourceSet, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bgl, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return err
	}
	defer bgl.Release()

	entries := make([]BindGroupEntry, 0, len(descriptor.Entries))
	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
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
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tex.View(),
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Texture: tex})
		case isSampler:
			samp := set.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler — assign it before InitResourceSet", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp.Raw(),
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Sampler: samp})
		default:
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
			}

			buf := set.Buffer(binding)
			if buf == nil {
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				raw, bufErr := b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: set.Label() + " Buffer",
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return bufErr
				}
				buf = &wgpuBuffer{label: set.Label() + " Buffer", size: bufSize, buffer: raw}
				set.SetBuffer(binding, buf, true)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf.Raw(),
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Buffer: buf})
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   set.Label() + " Bind Group",
		Layout:  bgl,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	set.SetBindGroup(&wgpuBindGroup{label: set.Label(), bindGroup: bindGroup, entries: entries})

	return nil
}

func (b *wgpuComputeBackendImpl) WriteBuffers(writes []BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Set.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf.Raw(), w.Offset, w.Data)
	}
}

func (b *wgpuComputeBackendImpl) ReadBuffer(buf Buffer, offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset+size > buf.Size() {
		return nil, fmt.Errorf("read of %d bytes at offset %d exceeds buffer size %d", size, offset, buf.Size())
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.Label() + " Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(buf.Raw(), offset, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var mapErr error
	done := make(chan struct{})
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("buffer map failed with status %v", status)
		}
		close(done)
	})
	b.device.Poll(true, nil)
	<-done
	if mapErr != nil {
		return nil, mapErr
	}

	mapped := staging.GetMappedRange(0, uint(size))
	data := make([]byte, size)
	copy(data, mapped)
	staging.Unmap()

	return data, nil
}

func (b *wgpuComputeBackendImpl) ReadTexture(tex Texture) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bpp := bytesPerPixel(tex.Format())
	rowBytes := tex.Width() * bpp
	// Texture-to-buffer copies require 256-byte row alignment.
	paddedRowBytes := (rowBytes + 255) &^ 255
	size := uint64(paddedRowBytes) * uint64(tex.Height())

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: tex.Label() + " Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex.Raw(),
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  paddedRowBytes,
				RowsPerImage: tex.Height(),
			},
		},
		&wgpu.Extent3D{
			Width:              tex.Width(),
			Height:             tex.Height(),
			DepthOrArrayLayers: 1,
		},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var mapErr error
	done := make(chan struct{})
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("texture map failed with status %v", status)
		}
		close(done)
	})
	b.device.Poll(true, nil)
	<-done
	if mapErr != nil {
		return nil, mapErr
	}

	mapped := staging.GetMappedRange(0, uint(size))
	data := make([]byte, uint64(rowBytes)*uint64(tex.Height()))
	for row := uint32(0); row < tex.Height(); row++ {
		copy(data[row*rowBytes:(row+1)*rowBytes], mapped[row*paddedRowBytes:row*paddedRowBytes+rowBytes])
	}
	staging.Unmap()

	return data, nil
}

func (b *wgpuComputeBackendImpl) ClearTexture(tex Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bpp := bytesPerPixel(tex.Format())
	zeros := make([]byte, uint64(tex.Width())*uint64(tex.Height())*uint64(bpp))
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.Raw(),
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		zeros,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  tex.Width() * bpp,
			RowsPerImage: tex.Height(),
		},
		&wgpu.Extent3D{
			Width:              tex.Width(),
			Height:             tex.Height(),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuComputeBackendImpl) BuildKernels(label, source string, entries []KernelEntry) (map[string]Kernel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(entries) == 0 {
		return nil, errors.New("no kernel entries to build")
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}

	kernels := make(map[string]Kernel, len(entries))
	for _, entry := range entries {
		bindGroupLayouts := make([]*wgpu.BindGroupLayout, layout.GroupCount)
		buildErr := func() error {
			for g := range entry.Descriptors {
				bgl, bglErr := b.device.CreateBindGroupLayout(&entry.Descriptors[g])
				if bglErr != nil {
					return fmt.Errorf("failed to create bind group layout for group %d: %w", g, bglErr)
				}
				bindGroupLayouts[g] = bgl
			}

			pipelineLayout, plErr := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
				Label:            label + " " + entry.Name,
				BindGroupLayouts: bindGroupLayouts,
			})
			if plErr != nil {
				return plErr
			}
			defer pipelineLayout.Release()

			created, cpErr := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
				Label:  label + " " + entry.Name + " Compute Pipeline",
				Layout: pipelineLayout,
				Compute: wgpu.ProgrammableStageDescriptor{
					Module:     module,
					EntryPoint: entry.Name,
				},
			})
			if cpErr != nil {
				return cpErr
			}
			kernels[entry.Name] = &wgpuKernel{label: entry.Name, pipeline: created}
			return nil
		}()
		for _, bgl := range bindGroupLayouts {
			if bgl != nil {
				bgl.Release()
			}
		}
		if buildErr != nil {
			for _, k := range kernels {
				k.Release()
			}
			return nil, fmt.Errorf("kernel %q: %w", entry.Name, buildErr)
		}
	}

	return kernels, nil
}

func (b *wgpuComputeBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuComputeBackendImpl) DispatchKernel(k Kernel, groups [layout.GroupCount]ResourceSet, workgroups [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}

	pass := b.frameEncoder.BeginComputePass(nil)
	pass.SetPipeline(k.Raw())
	for g, set := range groups {
		if set == nil || set.BindGroup() == nil {
			continue
		}
		pass.SetBindGroup(uint32(g), set.BindGroup().Raw(), nil)
	}
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()
}

func (b *wgpuComputeBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
}

func (b *wgpuComputeBackendImpl) Present(tex Texture, samp Sampler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil
	}

	if err := b.ensureBlitPipeline(); err != nil {
		return err
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit Bind Group",
		Layout: b.blitLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.View()},
			{Binding: 1, Sampler: samp.Raw()},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(b.blitPipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

// ensureBlitPipeline lazily builds the render pipeline that copies the final
// output texture to the surface. Caller holds the mutex.
func (b *wgpuComputeBackendImpl) ensureBlitPipeline() error {
	if b.blitPipeline != nil {
		return nil
	}
	if b.surfaceFormat == nil {
		return errors.New("surface not configured")
	}

	if b.blitLayout == nil {
		bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: "Blit Bind Group Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageFragment,
					Texture: wgpu.TextureBindingLayout{
						SampleType:    wgpu.TextureSampleTypeFloat,
						ViewDimension: wgpu.TextureViewDimension2D,
					},
				},
				{
					Binding:    1,
					Visibility: wgpu.ShaderStageFragment,
					Sampler: wgpu.SamplerBindingLayout{
						Type: wgpu.SamplerBindingTypeFiltering,
					},
				},
			},
		})
		if err != nil {
			return err
		}
		b.blitLayout = bgl
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Blit Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: blitWGSL,
		},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Blit Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.blitLayout},
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Blit Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	b.blitPipeline = created
	return nil
}

func (b *wgpuComputeBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blitPipeline != nil {
		b.blitPipeline.Release()
		b.blitPipeline = nil
	}
	if b.blitLayout != nil {
		b.blitLayout.Release()
		b.blitLayout = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// wgpuBuffer, wgpuTexture, wgpuSampler, wgpuBindGroup, and wgpuKernel are the
// GPU-backed handle implementations.

type wgpuBuffer struct {
	label  string
	size   uint64
	buffer *wgpu.Buffer
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string     { return b.label }
func (b *wgpuBuffer) Size() uint64      { return b.size }
func (b *wgpuBuffer) Raw() *wgpu.Buffer { return b.buffer }
func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type wgpuTexture struct {
	label   string
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ Texture = &wgpuTexture{}

func (t *wgpuTexture) Label() string              { return t.label }
func (t *wgpuTexture) Width() uint32              { return t.width }
func (t *wgpuTexture) Height() uint32             { return t.height }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }
func (t *wgpuTexture) Raw() *wgpu.Texture         { return t.texture }
func (t *wgpuTexture) View() *wgpu.TextureView    { return t.view }
func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type wgpuSampler struct {
	label   string
	sampler *wgpu.Sampler
}

var _ Sampler = &wgpuSampler{}

func (s *wgpuSampler) Label() string      { return s.label }
func (s *wgpuSampler) Raw() *wgpu.Sampler { return s.sampler }
func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

type wgpuBindGroup struct {
	label     string
	bindGroup *wgpu.BindGroup
	entries   []BindGroupEntry
}

var _ BindGroup = &wgpuBindGroup{}

func (g *wgpuBindGroup) Label() string             { return g.label }
func (g *wgpuBindGroup) Raw() *wgpu.BindGroup      { return g.bindGroup }
func (g *wgpuBindGroup) Entries() []BindGroupEntry { return g.entries }
func (g *wgpuBindGroup) Release() {
	if g.bindGroup != nil {
		g.bindGroup.Release()
		g.bindGroup = nil
	}
}

type wgpuKernel struct {
	label    string
	pipeline *wgpu.ComputePipeline
}

var _ Kernel = &wgpuKernel{}

func (k *wgpuKernel) Label() string              { return k.label }
func (k *wgpuKernel) Raw() *wgpu.ComputePipeline { return k.pipeline }
func (k *wgpuKernel) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
}
