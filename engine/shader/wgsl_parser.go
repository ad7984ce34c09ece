package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`@compute\b[^{]*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// blockCommentRegex matches /* ... */ block comments (non-nested)
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// lineCommentRegex matches // comments to end of line
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)
)

// wgslTexelFormatNames maps wgpu texture formats to their WGSL texel format
// keywords, for generated storage texture declarations. These are the formats
// valid for storage textures per the WGSL specification.
var wgslTexelFormatNames = map[wgpu.TextureFormat]string{
	wgpu.TextureFormatRGBA8Unorm:  "rgba8unorm",
	wgpu.TextureFormatRGBA8Snorm:  "rgba8snorm",
	wgpu.TextureFormatRGBA8Uint:   "rgba8uint",
	wgpu.TextureFormatRGBA8Sint:   "rgba8sint",
	wgpu.TextureFormatRGBA16Uint:  "rgba16uint",
	wgpu.TextureFormatRGBA16Sint:  "rgba16sint",
	wgpu.TextureFormatRGBA16Float: "rgba16float",
	wgpu.TextureFormatR32Uint:     "r32uint",
	wgpu.TextureFormatR32Sint:     "r32sint",
	wgpu.TextureFormatR32Float:    "r32float",
	wgpu.TextureFormatRG32Uint:    "rg32uint",
	wgpu.TextureFormatRG32Sint:    "rg32sint",
	wgpu.TextureFormatRG32Float:   "rg32float",
	wgpu.TextureFormatRGBA32Uint:  "rgba32uint",
	wgpu.TextureFormatRGBA32Sint:  "rgba32sint",
	wgpu.TextureFormatRGBA32Float: "rgba32float",
	wgpu.TextureFormatBGRA8Unorm:  "bgra8unorm",
}

// stripComments removes block and line comments from WGSL source.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - string: the source with comments removed
func stripComments(source string) string {
	cleaned := blockCommentRegex.ReplaceAllString(source, "")
	return lineCommentRegex.ReplaceAllString(cleaned, "")
}

// ParseComputeEntryPoints extracts every @compute entry point function name
// from WGSL source, in source order.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []string: the entry point names in source order
func ParseComputeEntryPoints(source string) []string {
	cleaned := stripComments(source)
	matches := computeEntryRegex.FindAllStringSubmatch(cleaned, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

// ParseWorkgroupSize extracts the first @workgroup_size(x, y, z) annotation
// from WGSL source. Omitted dimensions default to 1 per the WGSL
// specification. Returns [1, 1, 1] if no annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func ParseWorkgroupSize(source string) [3]uint32 {
	cleaned := stripComments(source)
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}

	if match[1] != "" {
		if v, err := strconv.ParseUint(match[1], 10, 32); err == nil {
			result[0] = uint32(v)
		}
	}
	if match[2] != "" {
		if v, err := strconv.ParseUint(match[2], 10, 32); err == nil {
			result[1] = uint32(v)
		}
	}
	if match[3] != "" {
		if v, err := strconv.ParseUint(match[3], 10, 32); err == nil {
			result[2] = uint32(v)
		}
	}

	return result
}

// texelFormatName returns the WGSL texel format keyword for a texture format,
// falling back to rgba16float for formats with no storage texture keyword.
func texelFormatName(format wgpu.TextureFormat) string {
	if name, ok := wgslTexelFormatNames[format]; ok {
		return name
	}
	return "rgba16float"
}

// hasEntryPoint reports whether the given entry point name appears as a
// @compute function in the source.
func hasEntryPoint(source, name string) bool {
	for _, entry := range ParseComputeEntryPoints(source) {
		if entry == name {
			return true
		}
	}
	return false
}

// splitLines splits source into lines preserving no trailing newline handling
// surprises across platforms.
func splitLines(source string) []string {
	return strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
}
