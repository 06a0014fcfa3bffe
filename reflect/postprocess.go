package reflect

import "fmt"

// PostProcessOptions gates the two opt-in rewrites component H can
// apply to an already-assembled EntryPoint. Both default to off: the
// raw reflection always reflects exactly what the module declares.
type PostProcessOptions struct {
	// CombineImageSamplers merges a separately-declared SampledImage
	// and Sampler descriptor that share the same (set, binding) into a
	// single DescriptorCombinedImageSampler entry, the way a GLSL-style
	// "combined sampler" would have reflected if the shader had used
	// one instead of SPIR-V's split image/sampler opcodes.
	CombineImageSamplers bool
	// GenerateUniqueNames synthesizes a name for every descriptor,
	// I/O variable, and push constant that declared none (or whose
	// declared name collides with another at the same scope), as
	// "_<n>" or "_<n>_<index>" on collision. n is set*100000+binding
	// for a descriptor, the Location (or, without one, the type id)
	// for an I/O variable, and the type id for a push constant; the
	// variable's own id is not used.
	GenerateUniqueNames bool
}

// PostProcess applies opts to every entry point in place.
func PostProcess(entryPoints []*EntryPoint, opts PostProcessOptions) {
	for _, ep := range entryPoints {
		if opts.CombineImageSamplers {
			combineImageSamplers(ep)
		}
		if opts.GenerateUniqueNames {
			generateUniqueNames(ep)
		}
	}
}

// combineImageSamplers merges a DescriptorSampledImage and a
// DescriptorSampler at the same (set, binding) into one
// DescriptorCombinedImageSampler entry. A binding with no matching
// counterpart is left untouched — this never invents a pairing that
// the module didn't declare at the same slot.
func combineImageSamplers(ep *EntryPoint) {
	type key struct{ set, binding uint32 }
	images := make(map[key]int)
	samplers := make(map[key]int)

	for i, d := range ep.Descriptors {
		switch d.Kind {
		case DescriptorSampledImage:
			images[key{d.Set, d.Binding}] = i
		case DescriptorSampler:
			samplers[key{d.Set, d.Binding}] = i
		}
	}

	var merged []Descriptor
	consumed := make(map[int]bool)
	for k, imgIdx := range images {
		samplerIdx, ok := samplers[k]
		if !ok {
			continue
		}
		img := ep.Descriptors[imgIdx]
		img.Kind = DescriptorCombinedImageSampler
		merged = append(merged, img)
		consumed[imgIdx] = true
		consumed[samplerIdx] = true
	}

	var rest []Descriptor
	for i, d := range ep.Descriptors {
		if !consumed[i] {
			rest = append(rest, d)
		}
	}
	ep.Descriptors = append(rest, merged...)
	sortEntryPoint(ep)
}

// generateUniqueNames fills in a synthetic name for every descriptor,
// I/O variable, and push constant with an empty or colliding Name, as
// "_<n>" (n as described on PostProcessOptions.GenerateUniqueNames), or
// "_<n>_<index>" if that still collides within the same list, as it
// does when a split image and sampler share one set and binding.
func generateUniqueNames(ep *EntryPoint) {
	seen := make(map[string]bool)
	for i := range ep.Descriptors {
		d := &ep.Descriptors[i]
		if d.Name != "" && !seen[d.Name] {
			seen[d.Name] = true
			continue
		}
		d.Name = uniqueName(seen, d.Set*100000+d.Binding, i)
	}

	assignIOnames(ep.Inputs)
	assignIOnames(ep.Outputs)

	pcSeen := make(map[string]bool)
	for i := range ep.PushConstants {
		pc := &ep.PushConstants[i]
		if pc.Name != "" && !pcSeen[pc.Name] {
			pcSeen[pc.Name] = true
			continue
		}
		pc.Name = uniqueName(pcSeen, pc.Type, i)
	}
}

func assignIOnames(vars []IOVariable) {
	seen := make(map[string]bool)
	for i := range vars {
		v := &vars[i]
		if v.Name != "" && !seen[v.Name] {
			seen[v.Name] = true
			continue
		}
		id := v.Type
		if v.Location != nil {
			id = *v.Location
		}
		v.Name = uniqueName(seen, id, i)
	}
}

func uniqueName(seen map[string]bool, id uint32, index int) string {
	candidate := fmt.Sprintf("_%d", id)
	if !seen[candidate] {
		seen[candidate] = true
		return candidate
	}
	candidate = fmt.Sprintf("_%d_%d", id, index)
	seen[candidate] = true
	return candidate
}
