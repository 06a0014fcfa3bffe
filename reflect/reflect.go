// Package reflect recovers a structured description of a SPIR-V
// module's entry points — their inputs, outputs, descriptor bindings,
// push constants, and specialization constants — without executing or
// recompiling the shader. It is the library surface: Config in,
// []EntryPoint or an Error out.
package reflect

import (
	"errors"

	"github.com/gogpu/spirq/spirv"
)

// Config is the library's single entry point's worth of configuration,
// passed by the caller with no file/env/flag sourcing anywhere behind
// it.
type Config struct {
	// SPIRV is the raw module word buffer. Required.
	SPIRV []uint32

	// ReferenceAllResources short-circuits the per-entry-point access
	// closure (4.F) and reports every module-scope variable against
	// every entry point, ignoring the call graph. Default false.
	ReferenceAllResources bool

	// CombineImageSamplers merges SampledImage/Sampler pairs sharing a
	// (set, binding) into one CombinedImageSampler descriptor (4.H).
	// Default false.
	CombineImageSamplers bool

	// GenerateUniqueNames synthesizes names for unnamed or
	// name-colliding variables (4.H). Default false.
	GenerateUniqueNames bool

	// Specializations maps a SpecId to its caller-supplied
	// little-endian literal bytes (4.D). Default empty.
	Specializations Specializations
}

// Reflect runs the full pipeline — decode, decoration scan, type and
// constant registries, specialization folding, variable inventory,
// access analysis, entry-point assembly, and post-processing — over
// cfg.SPIRV and returns every entry point the module declares.
func Reflect(cfg Config) ([]*EntryPoint, error) {
	if cfg.SPIRV == nil {
		return nil, newError(ArgumentNull, "Config.SPIRV is nil")
	}
	if len(cfg.SPIRV) < 5 {
		return nil, newError(ArgumentOutOfRange, "Config.SPIRV has %d words, need at least 5", len(cfg.SPIRV))
	}

	data := wordsToBytes(cfg.SPIRV)

	stream, err := spirv.Decode(data)
	if err != nil {
		if errors.Is(err, spirv.ErrZeroLengthInstruction) {
			return nil, newError(UnsupportedSpirv, "%v", err)
		}
		return nil, newError(CorruptedSpirv, "%v", err)
	}

	decos, err := BuildDecorationTable(stream.Instructions)
	if err != nil {
		return nil, err
	}

	types, err := BuildTypeRegistry(stream.Instructions, decos)
	if err != nil {
		return nil, err
	}

	consts, err := BuildConstantRegistry(stream.Instructions, types, decos)
	if err != nil {
		return nil, err
	}

	if err := FoldSpecializations(consts, types, cfg.Specializations); err != nil {
		return nil, err
	}
	// A second pass: an OpTypeArray whose length names an
	// OpSpecConstantOp only resolves to a concrete count after folding
	// replaces that expression with a plain ScalarValue.
	resolveArrayCounts(types, consts)

	vars, err := BuildVariableInventory(stream.Instructions, types, decos)
	if err != nil {
		return nil, err
	}

	access := BuildAccessAnalysis(stream.Instructions, vars)

	entryPoints, err := AssembleEntryPoints(stream.Instructions, decos, types, vars, consts, access, cfg.ReferenceAllResources)
	if err != nil {
		return nil, err
	}

	PostProcess(entryPoints, PostProcessOptions{
		CombineImageSamplers: cfg.CombineImageSamplers,
		GenerateUniqueNames:  cfg.GenerateUniqueNames,
	})

	return entryPoints, nil
}

// wordsToBytes packs a []uint32 word buffer into the little-endian
// byte stream spirv.Decode expects; Decode detects and corrects for a
// big-endian module on its own.
func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		out[i*4+0] = byte(w)
		out[i*4+1] = byte(w >> 8)
		out[i*4+2] = byte(w >> 16)
		out[i*4+3] = byte(w >> 24)
	}
	return out
}
