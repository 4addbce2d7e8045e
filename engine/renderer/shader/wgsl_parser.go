package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(14) var<storage, read> light_grid: array<LightGridEntry>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindings extracts all @group(N) @binding(M) buffer declarations from WGSL source,
// sorted by group then binding. Handle types (textures, samplers) are skipped since
// kernels only bind buffers.
//
// Parameters:
//   - source: the processed WGSL source code
//
// Returns:
//   - []Binding: the buffer bindings declared by the source
func parseBindings(source string) []Binding {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	var result []Binding
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		space := classifyAddressSpace(strings.TrimSpace(match[3]))
		if space == "" {
			continue
		}
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		b := Binding{
			Group:        uint32(group),
			Binding:      uint32(binding),
			Name:         strings.TrimSpace(match[4]),
			Type:         strings.TrimSpace(match[5]),
			AddressSpace: space,
		}
		if layout, ok := resolveTypeLayout(b.Type, structSizes); ok {
			b.MinSize = layout.size
		}
		result = append(result, b)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Binding < result[j].Binding
	})
	return result
}

// buildBindGroupLayouts converts parsed bindings into wgpu layout descriptors keyed by group.
//
// Parameters:
//   - bindings: the parsed bindings, sorted by group and binding
//   - label: the label prefix for the descriptors
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
func buildBindGroupLayouts(bindings []Binding, label string) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		entry := classifyResource(b.Binding, wgpu.ShaderStageCompute, b.AddressSpace)
		entry.Buffer.MinBindingSize = b.MinSize
		groups[int(b.Group)] = append(groups[int(b.Group)], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   label + " Group " + strconv.Itoa(g),
			Entries: entries,
		}
	}
	return result
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from WGSL source.
// Omitted dimensions default to 1 per the WGSL specification.
// Returns [1, 1, 1] if no @workgroup_size attribute is found.
//
// Parameters:
//   - source: the processed WGSL source code
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(stripComments(source))
	if match == nil {
		return result
	}
	for i := range 3 {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseEntryPoint extracts the @compute entry point function name.
// Returns an empty string if the source declares none.
func parseEntryPoint(source string) string {
	if match := computeEntryRegex.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

// parseStructLayouts resolves the memory layout of every struct declared in the source.
// Structs whose members cannot be resolved are omitted.
//
// Parameters:
//   - source: the processed WGSL source code
//
// Returns:
//   - map[string]StructLayout: layouts keyed by struct name
func parseStructLayouts(source string) map[string]StructLayout {
	structs := parseStructBlocks(stripComments(source))
	sizes := computeStructSizes(structs)

	result := make(map[string]StructLayout, len(structs))
	for _, ps := range structs {
		layout, ok := sizes[ps.name]
		if !ok {
			continue
		}
		sl := StructLayout{Name: ps.name, Size: layout.size, Align: layout.align}
		offset := uint64(0)
		for _, f := range ps.fields {
			if f.isBuiltin {
				continue
			}
			fl, ok := resolveTypeLayout(f.typeName, sizes)
			if !ok {
				break
			}
			offset = roundUpAlign(fl.align, offset)
			sl.Fields = append(sl.Fields, FieldLayout{Name: f.name, Type: f.typeName, Offset: offset, Size: fl.size})
			offset += fl.size
		}
		result[ps.name] = sl
	}
	return result
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		fields = append(fields, parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			isBuiltin: builtinRegex.MatchString(line),
		})
	}
	return fields
}
