// pre_processor.go implements the flux WGSL pre-processor. It scans shader
// source for //flux: annotations and replaces them with generated WGSL
// declarations derived from the synthesized resource layout, so user kernels
// reference declared resources by name without hand-writing group or binding
// indices.
package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/flux-go/engine/config"
	"github.com/Carmen-Shannon/flux-go/engine/layout"
)

// annotationRegex captures the annotation name and optional argument list
// from lines like //flux:bindings or //flux:storage(particles, array<Particle>).
var annotationRegex = regexp.MustCompile(`^//flux:(\w+)(?:\((.*)\))?\s*$`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	cfg config.Config
	l   layout.ResourceLayout

	// maxInputs is the largest declared input count across the configured
	// stages; it fixes the number of generated group-3 input declarations.
	maxInputs int
}

// PreProcessor processes raw WGSL source containing //flux: annotations,
// replacing them with generated declarations bound to the synthesized layout.
//
// Supported annotations:
//
//	//flux:bindings
//	    Replaced with the declarations for groups 0-2 (time, stage resources,
//	    engine globals) and the group-3 pass sampler and input textures. The
//	    custom parameter uniform, when configured, is declared with type
//	    Params — the shader must define that struct.
//
//	//flux:storage(name, type)
//	    Replaced with the group-3 declaration for the user storage buffer of
//	    that name, with the given WGSL store type. The binding index and
//	    access mode come from the layout.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and replaces every //flux:
	// annotation with its generated WGSL output.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if any annotation is malformed or references an unknown resource
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor bound to a configuration and its
// synthesized layout.
//
// Parameters:
//   - cfg: the effect configuration
//   - l: the layout synthesized from cfg
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(cfg config.Config, l layout.ResourceLayout) PreProcessor {
	maxInputs := 0
	for _, stage := range cfg.Stages() {
		if len(stage.Inputs) > maxInputs {
			maxInputs = len(stage.Inputs)
		}
	}
	return &preProcessor{cfg: cfg, l: l, maxInputs: maxInputs}
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := splitLines(source)
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		match := annotationRegex.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			out = append(out, line)
			continue
		}

		switch match[1] {
		case "bindings":
			out = append(out, p.bindingsBlock())
		case "storage":
			decl, err := p.storageDeclaration(match[2])
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, decl)
		default:
			return "", fmt.Errorf("line %d: unknown annotation //flux:%s", i+1, match[1])
		}
	}
	return strings.Join(out, "\n"), nil
}

// bindingsBlock generates the declarations for groups 0-2 plus the group-3
// pass sampler and input textures.
func (p *preProcessor) bindingsBlock() string {
	var b strings.Builder

	b.WriteString("struct TimeUniform {\n")
	b.WriteString("    elapsed: f32,\n")
	b.WriteString("    delta: f32,\n")
	b.WriteString("    frame: u32,\n")
	b.WriteString("    pad: u32,\n")
	b.WriteString("}\n")
	timeBinding, _ := p.l.Lookup(layout.NameTime)
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> time: TimeUniform;\n", timeBinding.Index)

	output, _ := p.l.Lookup(layout.NameOutput)
	fmt.Fprintf(&b, "@group(1) @binding(%d) var output: texture_storage_2d<%s, write>;\n",
		output.Index, texelFormatName(output.Format))
	if tex, ok := p.l.Lookup(layout.NameInputTexture); ok {
		fmt.Fprintf(&b, "@group(1) @binding(%d) var input_texture: texture_2d<f32>;\n", tex.Index)
	}
	if samp, ok := p.l.Lookup(layout.NameInputSampler); ok {
		fmt.Fprintf(&b, "@group(1) @binding(%d) var input_sampler: sampler;\n", samp.Index)
	}
	if custom, ok := p.l.Lookup(layout.NameCustomUniform); ok {
		fmt.Fprintf(&b, "@group(1) @binding(%d) var<uniform> custom: Params;\n", custom.Index)
	}

	if mouse, ok := p.l.Lookup(layout.NameMouse); ok {
		b.WriteString("struct MouseUniform {\n")
		b.WriteString("    position: vec2<f32>,\n")
		b.WriteString("    click: vec2<f32>,\n")
		b.WriteString("}\n")
		fmt.Fprintf(&b, "@group(2) @binding(%d) var<uniform> mouse: MouseUniform;\n", mouse.Index)
	}
	if fontTex, ok := p.l.Lookup(layout.NameFontTexture); ok {
		fmt.Fprintf(&b, "@group(2) @binding(%d) var font_texture: texture_2d<f32>;\n", fontTex.Index)
	}
	if fontSamp, ok := p.l.Lookup(layout.NameFontSampler); ok {
		fmt.Fprintf(&b, "@group(2) @binding(%d) var font_sampler: sampler;\n", fontSamp.Index)
	}
	if audio, ok := p.l.Lookup(layout.NameAudio); ok {
		fmt.Fprintf(&b, "@group(2) @binding(%d) var<storage, read_write> audio: array<f32>;\n", audio.Index)
	}
	if spectrum, ok := p.l.Lookup(layout.NameSpectrum); ok {
		fmt.Fprintf(&b, "@group(2) @binding(%d) var<storage, read_write> audio_spectrum: array<f32>;\n", spectrum.Index)
	}
	if counter, ok := p.l.Lookup(layout.NameAtomicCounter); ok {
		b.WriteString("struct AtomicCounter {\n")
		b.WriteString("    value: atomic<u32>,\n")
		b.WriteString("}\n")
		fmt.Fprintf(&b, "@group(2) @binding(%d) var<storage, read_write> atomic_counter: AtomicCounter;\n", counter.Index)
	}

	if p.maxInputs > 0 {
		base := len(p.l.GroupBindings(layout.GroupUser))
		fmt.Fprintf(&b, "@group(3) @binding(%d) var pass_sampler: sampler;\n", base)
		for i := 0; i < p.maxInputs; i++ {
			fmt.Fprintf(&b, "@group(3) @binding(%d) var input_%d: texture_2d<f32>;\n", base+1+i, i)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// storageDeclaration generates the group-3 declaration for one user storage
// buffer. The argument list is "name, type" where the type may itself contain
// commas.
func (p *preProcessor) storageDeclaration(args string) (string, error) {
	name, typeName, found := strings.Cut(args, ",")
	if !found {
		return "", fmt.Errorf("storage annotation needs (name, type), got %q", args)
	}
	name = strings.TrimSpace(name)
	typeName = strings.TrimSpace(typeName)

	binding, ok := p.l.Lookup(name)
	if !ok || binding.Group != layout.GroupUser {
		return "", fmt.Errorf("unknown storage buffer %q", name)
	}

	access := "read_write"
	if binding.ReadOnly {
		access = "read"
	}
	return fmt.Sprintf("@group(%d) @binding(%d) var<storage, %s> %s: %s;",
		binding.Group, binding.Index, access, name, typeName), nil
}
