package reflect

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spirq/spirv"
)

// buildModule assembles a complete module binary with ModuleBuilder and
// returns it as the []uint32 word buffer Reflect's Config expects — the
// same round trip a real caller takes from a compiled .spv file read
// into memory.
func buildModule(t *testing.T, build func(b *spirv.ModuleBuilder)) []uint32 {
	t.Helper()
	b := spirv.NewModuleBuilder(spirv.Version1_3)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	build(b)
	data := b.Build()
	require.Zero(t, len(data)%4, "module binary must be word-aligned")
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return words
}

// TestReflect_UniformBufferScenario reflects one UniformBuffer at
// (set=0, binding=0) whose struct has a nested struct member with a
// padded vec4 array, three vec4 inputs at locations 0/1/2, and one
// vec4 output at location 0.
func TestReflect_UniformBufferScenario(t *testing.T) {
	var (
		uboVar, in0, in1, in2, outVar uint32
		mainFunc                     uint32
	)
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		floatID := b.AddTypeFloat(32)
		vec4ID := b.AddTypeVector(floatID, 4)
		uintID := b.AddTypeInt(32, false)
		intID := b.AddTypeInt(32, true)
		arrLenID := b.AddConstant(uintID, 5)
		vec4ArrID := b.AddTypeArray(vec4ID, arrLenID)
		b.AddDecorate(vec4ArrID, spirv.DecorationArrayStride, 16)

		nestedID := b.AddTypeStruct(uintID, vec4ArrID, intID)
		b.AddMemberDecorate(nestedID, 0, spirv.DecorationOffset, 0)
		b.AddMemberDecorate(nestedID, 1, spirv.DecorationOffset, 16)
		b.AddMemberDecorate(nestedID, 2, spirv.DecorationOffset, 96)
		b.AddMemberName(nestedID, 0, "flags")
		b.AddMemberName(nestedID, 1, "samples")
		b.AddMemberName(nestedID, 2, "count")

		outerID := b.AddTypeStruct(nestedID, uintID)
		b.AddMemberDecorate(outerID, 0, spirv.DecorationOffset, 0)
		b.AddMemberDecorate(outerID, 1, spirv.DecorationOffset, 112)
		b.AddMemberName(outerID, 0, "nested")
		b.AddMemberName(outerID, 1, "extra")
		b.AddDecorate(outerID, spirv.DecorationBlock)

		uboPtr := b.AddTypePointer(spirv.StorageClassUniform, outerID)
		uboVar = b.AddVariable(uboPtr, spirv.StorageClassUniform)
		b.AddName(uboVar, "ubo")
		b.AddDecorate(uboVar, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(uboVar, spirv.DecorationBinding, 0)

		inPtr := b.AddTypePointer(spirv.StorageClassInput, vec4ID)
		in0 = b.AddVariable(inPtr, spirv.StorageClassInput)
		b.AddName(in0, "inColor")
		b.AddDecorate(in0, spirv.DecorationLocation, 0)
		in1 = b.AddVariable(inPtr, spirv.StorageClassInput)
		b.AddName(in1, "inNormal")
		b.AddDecorate(in1, spirv.DecorationLocation, 1)
		in2 = b.AddVariable(inPtr, spirv.StorageClassInput)
		b.AddName(in2, "inUV")
		b.AddDecorate(in2, spirv.DecorationLocation, 2)

		outPtr := b.AddTypePointer(spirv.StorageClassOutput, vec4ID)
		outVar = b.AddVariable(outPtr, spirv.StorageClassOutput)
		b.AddName(outVar, "outColor")
		b.AddDecorate(outVar, spirv.DecorationLocation, 0)

		fnType := b.AddTypeFunction(voidID)
		mainFunc = b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		loaded := b.AddLoad(vec4ID, in0)
		b.AddStore(outVar, loaded)
		ubo := b.AddLoad(outerID, uboVar)
		_ = ubo
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelFragment, mainFunc, "main", []uint32{in0, in1, in2, outVar})
		b.AddExecutionMode(mainFunc, spirv.ExecutionModeOriginUpperLeft)
	})

	eps, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, eps, 1)

	ep := eps[0]
	assert.Equal(t, "main", ep.Name)
	assert.Equal(t, spirv.ExecutionModelFragment, ep.ExecutionModel)
	assert.Contains(t, ep.ExecutionModes, spirv.ExecutionModeOriginUpperLeft)

	require.Len(t, ep.Outputs, 1)
	assert.Equal(t, "outColor", ep.Outputs[0].Name)
	require.NotNil(t, ep.Outputs[0].Location)
	assert.Equal(t, uint32(0), *ep.Outputs[0].Location)

	// Only in0 is ever loaded; in1/in2 are declared and listed in the
	// OpEntryPoint interface but never touched by the function body, so
	// without reference_all_resources they are absent from Inputs.
	require.Len(t, ep.Inputs, 1)
	assert.Equal(t, "inColor", ep.Inputs[0].Name)

	require.Len(t, ep.Descriptors, 1)
	d := ep.Descriptors[0]
	assert.Equal(t, uint32(0), d.Set)
	assert.Equal(t, uint32(0), d.Binding)
	assert.Equal(t, DescriptorUniformBuffer, d.Kind)
	assert.Equal(t, AccessRead, d.Access&AccessRead)
}

// TestReflect_ReferenceAllResources checks that with
// reference_all_resources=true the descriptor/IO list is a superset of
// the false case, and with false every listed variable was actually
// reachable from the entry point's call graph.
func TestReflect_ReferenceAllResources(t *testing.T) {
	var touchedVar, untouchedVar, mainFunc uint32
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		uintID := b.AddTypeInt(32, false)
		structID := b.AddTypeStruct(uintID)
		b.AddMemberDecorate(structID, 0, spirv.DecorationOffset, 0)
		b.AddDecorate(structID, spirv.DecorationBlock)
		ptr := b.AddTypePointer(spirv.StorageClassUniform, structID)

		touchedVar = b.AddVariable(ptr, spirv.StorageClassUniform)
		b.AddName(touchedVar, "touched")
		b.AddDecorate(touchedVar, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(touchedVar, spirv.DecorationBinding, 0)

		untouchedVar = b.AddVariable(ptr, spirv.StorageClassUniform)
		b.AddName(untouchedVar, "untouched")
		b.AddDecorate(untouchedVar, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(untouchedVar, spirv.DecorationBinding, 1)

		fnType := b.AddTypeFunction(voidID)
		mainFunc = b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddLoad(structID, touchedVar)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelGLCompute, mainFunc, "main", nil)
		b.AddExecutionMode(mainFunc, spirv.ExecutionModeLocalSize, 1, 1, 1)
	})

	epsDefault, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, epsDefault, 1)
	require.Len(t, epsDefault[0].Descriptors, 1, "only the referenced variable is listed by default")
	assert.Equal(t, "touched", epsDefault[0].Descriptors[0].Name)

	epsAll, err := Reflect(Config{SPIRV: words, ReferenceAllResources: true})
	require.NoError(t, err)
	require.Len(t, epsAll, 1)
	assert.Len(t, epsAll[0].Descriptors, 2, "reference_all_resources reports every module-scope variable")

	names := map[string]bool{}
	for _, d := range epsAll[0].Descriptors {
		names[d.Name] = true
	}
	assert.True(t, names["touched"])
	assert.True(t, names["untouched"])
}

// TestReflect_SpecializationFolding declares a spec constant with
// SpecId=233 and default 1, folded with and without a caller override.
func TestReflect_SpecializationFolding(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		intID := b.AddTypeInt(32, true)
		specID := b.AddSpecConstant(intID, 233, 1)
		b.AddName(specID, "w")

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
		b.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	})

	epsDefault, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, epsDefault[0].SpecConstants, 1)
	sv, ok := epsDefault[0].SpecConstants[0].Folded.(ScalarValue)
	require.True(t, ok)
	assert.Equal(t, uint64(1), sv.Bits)

	overrideBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(overrideBytes, 4)
	epsOverride, err := Reflect(Config{SPIRV: words, Specializations: Specializations{233: overrideBytes}})
	require.NoError(t, err)
	sv, ok = epsOverride[0].SpecConstants[0].Folded.(ScalarValue)
	require.True(t, ok)
	assert.Equal(t, uint64(4), sv.Bits, "specialization override replaces the module default")
}

// TestReflect_SpecializationByteWidthMismatch checks that a
// caller-supplied override whose byte width disagrees with the target
// scalar is rejected rather than silently truncated or zero-extended.
func TestReflect_SpecializationByteWidthMismatch(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		intID := b.AddTypeInt(32, true)
		b.AddSpecConstant(intID, 7, 1)
		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddReturn()
		b.AddFunctionEnd()
		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
	})

	_, err := Reflect(Config{SPIRV: words, Specializations: Specializations{7: []byte{1, 2}}})
	require.Error(t, err)
	reflectErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, InvalidSpecialization, reflectErr.Kind)
}

// TestReflect_AtomicsAccess verifies an SSBO touched only by
// OpAtomicIAdd (never OpLoad/OpStore) reports ReadWrite|Atomic access:
// an atomic read-modify-write implies both a read and a write even
// though no plain OpLoad/OpStore is ever emitted for it.
func TestReflect_AtomicsAccess(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		uintID := b.AddTypeInt(32, false)
		structID := b.AddTypeStruct(uintID)
		b.AddMemberDecorate(structID, 0, spirv.DecorationOffset, 0)
		b.AddDecorate(structID, spirv.DecorationBufferBlock)
		b.AddMemberName(structID, 0, "x")
		b.AddName(structID, "atomics")

		ptr := b.AddTypePointer(spirv.StorageClassUniform, structID)
		ssbo := b.AddVariable(ptr, spirv.StorageClassUniform)
		b.AddName(ssbo, "atomicsBuf")
		b.AddDecorate(ssbo, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(ssbo, spirv.DecorationBinding, 0)

		memberPtrType := b.AddTypePointer(spirv.StorageClassUniform, uintID)
		zero := b.AddConstant(uintID, 0)
		one := b.AddConstant(uintID, 1)

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		memberPtr := b.AddAccessChain(memberPtrType, ssbo, zero)
		b.AddAtomicOp(spirv.OpAtomicIAdd, uintID, memberPtr, spirv.ScopeDevice, spirv.MemorySemanticsNone, one)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
		b.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	})

	eps, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, eps[0].Descriptors, 1)
	d := eps[0].Descriptors[0]
	assert.Equal(t, DescriptorStorageBuffer, d.Kind, "BufferBlock on a Uniform-class struct is the legacy storage buffer spelling")
	assert.True(t, d.Access.ReadWrite())
	assert.True(t, d.Access.HasAtomic())
}

// TestReflect_CombinedImageSamplers exercises the HLSL-style split
// texture/sampler pattern: separate SampledImage and Sampler
// descriptors sharing a (set, binding) collapse into one
// CombinedImageSampler only when combine_image_samplers is set.
// Pairing requires an actual shared (set, binding); see DESIGN.md's
// Open Question decisions for why a mismatched-binding pair is not
// combined.
func TestReflect_CombinedImageSamplers(t *testing.T) {
	var imgVar, samplerVar, fn uint32
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		floatID := b.AddTypeFloat(32)
		imageTypeID := b.AddTypeImage(floatID, spirv.Dim2D, 0, 0, 0, 1, spirv.ImageFormatUnknown)
		imagePtr := b.AddTypePointer(spirv.StorageClassUniformConstant, imageTypeID)
		imgVar = b.AddVariable(imagePtr, spirv.StorageClassUniformConstant)
		b.AddName(imgVar, "hahano1")
		b.AddDecorate(imgVar, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(imgVar, spirv.DecorationBinding, 50)

		samplerTypeID := b.AddTypeSampler()
		samplerPtr := b.AddTypePointer(spirv.StorageClassUniformConstant, samplerTypeID)
		samplerVar = b.AddVariable(samplerPtr, spirv.StorageClassUniformConstant)
		b.AddName(samplerVar, "hahano")
		b.AddDecorate(samplerVar, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(samplerVar, spirv.DecorationBinding, 50)

		fnType := b.AddTypeFunction(voidID)
		fn = b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddLoad(imageTypeID, imgVar)
		b.AddLoad(samplerTypeID, samplerVar)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "main", []uint32{imgVar, samplerVar})
		b.AddExecutionMode(fn, spirv.ExecutionModeOriginUpperLeft)
	})

	epsSplit, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, epsSplit[0].Descriptors, 2, "without combine_image_samplers the two bindings stay separate")

	epsCombined, err := Reflect(Config{SPIRV: words, CombineImageSamplers: true})
	require.NoError(t, err)
	require.Len(t, epsCombined[0].Descriptors, 1, "with combine_image_samplers set they collapse into one")
	assert.Equal(t, DescriptorCombinedImageSampler, epsCombined[0].Descriptors[0].Kind)
	assert.Equal(t, uint32(50), epsCombined[0].Descriptors[0].Binding)
}

// TestReflect_DescriptorArray covers a SPV_EXT_descriptor_indexing-style
// fixed-size descriptor array: a sampler2D[4], reporting Count=4.
func TestReflect_DescriptorArray(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		floatID := b.AddTypeFloat(32)
		imageTypeID := b.AddTypeImage(floatID, spirv.Dim2D, 0, 0, 0, 1, spirv.ImageFormatUnknown)
		sampledImgID := b.AddTypeSampledImage(imageTypeID)
		uintID := b.AddTypeInt(32, false)
		lenID := b.AddConstant(uintID, 4)
		arrID := b.AddTypeArray(sampledImgID, lenID)
		ptr := b.AddTypePointer(spirv.StorageClassUniformConstant, arrID)
		v := b.AddVariable(ptr, spirv.StorageClassUniformConstant)
		b.AddName(v, "textures")
		b.AddDecorate(v, spirv.DecorationDescriptorSet, 1)
		b.AddDecorate(v, spirv.DecorationBinding, 2)

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddLoad(arrID, v)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "main", []uint32{v})
		b.AddExecutionMode(fn, spirv.ExecutionModeOriginUpperLeft)
	})

	eps, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, eps[0].Descriptors, 1)
	d := eps[0].Descriptors[0]
	assert.Equal(t, DescriptorCombinedImageSampler, d.Kind)
	require.NotNil(t, d.Count)
	assert.Equal(t, uint64(4), *d.Count)
}

// TestReflect_RuntimeDescriptorArray checks a runtime-sized descriptor
// array (SPV_EXT_descriptor_indexing's unbounded form) reports Count=nil.
func TestReflect_RuntimeDescriptorArray(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		samplerTypeID := b.AddTypeSampler()
		arrID := b.AddTypeRuntimeArray(samplerTypeID)
		ptr := b.AddTypePointer(spirv.StorageClassUniformConstant, arrID)
		v := b.AddVariable(ptr, spirv.StorageClassUniformConstant)
		b.AddName(v, "samplers")
		b.AddDecorate(v, spirv.DecorationDescriptorSet, 2)
		b.AddDecorate(v, spirv.DecorationBinding, 0)

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddLoad(arrID, v)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "main", []uint32{v})
	})

	eps, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, eps[0].Descriptors, 1)
	assert.Nil(t, eps[0].Descriptors[0].Count)
	assert.Equal(t, DescriptorSampler, eps[0].Descriptors[0].Kind)
}

// TestReflect_Determinism checks that reflecting the same (bytes,
// config) twice produces structurally identical output, list orderings
// included.
func TestReflect_Determinism(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		floatID := b.AddTypeFloat(32)
		vec4ID := b.AddTypeVector(floatID, 4)
		outPtr := b.AddTypePointer(spirv.StorageClassOutput, vec4ID)
		// Declare locations out of order so sortEntryPoint's ordering
		// is actually exercised.
		out2 := b.AddVariable(outPtr, spirv.StorageClassOutput)
		b.AddName(out2, "out2")
		b.AddDecorate(out2, spirv.DecorationLocation, 2)
		out0 := b.AddVariable(outPtr, spirv.StorageClassOutput)
		b.AddName(out0, "out0")
		b.AddDecorate(out0, spirv.DecorationLocation, 0)
		out1 := b.AddVariable(outPtr, spirv.StorageClassOutput)
		b.AddName(out1, "out1")
		b.AddDecorate(out1, spirv.DecorationLocation, 1)

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddReturn()
		b.AddFunctionEnd()
		b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "main", []uint32{out0, out1, out2})
	})

	cfg := Config{SPIRV: words, ReferenceAllResources: true}
	first, err := Reflect(cfg)
	require.NoError(t, err)
	second, err := Reflect(cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first[0].Outputs, 3)
	assert.Equal(t, "out0", first[0].Outputs[0].Name)
	assert.Equal(t, "out1", first[0].Outputs[1].Name)
	assert.Equal(t, "out2", first[0].Outputs[2].Name)
}

// TestReflect_EndiannessRoundTrip checks endianness independence at the
// spirv.Decode boundary Reflect sits on top of: the same logical module,
// encoded once little-endian and once big-endian, decodes to identical
// instructions, so every downstream reflect pass — fed the same
// instruction slice either way — necessarily produces the same output.
func TestReflect_EndiannessRoundTrip(t *testing.T) {
	b := spirv.NewModuleBuilder(spirv.Version1_3)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	voidID := b.AddTypeVoid()
	fnType := b.AddTypeFunction(voidID)
	fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
	b.AddLabel()
	b.AddReturn()
	b.AddFunctionEnd()
	b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
	b.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	little := b.Build()

	big := make([]byte, len(little))
	for i := 0; i < len(little); i += 4 {
		w := binary.LittleEndian.Uint32(little[i : i+4])
		binary.BigEndian.PutUint32(big[i:i+4], w)
	}

	littleStream, err := spirv.Decode(little)
	require.NoError(t, err)
	bigStream, err := spirv.Decode(big)
	require.NoError(t, err)
	assert.Equal(t, littleStream.Instructions, bigStream.Instructions)

	littleEPs, err := reflectInstructions(littleStream.Instructions)
	require.NoError(t, err)
	bigEPs, err := reflectInstructions(bigStream.Instructions)
	require.NoError(t, err)
	assert.Equal(t, littleEPs, bigEPs)
}

// reflectInstructions runs components B-G directly over an
// already-decoded instruction slice, letting tests exercise the
// pipeline without re-deriving a byte buffer for component A.
func reflectInstructions(instructions []spirv.Instruction) ([]*EntryPoint, error) {
	decos, err := BuildDecorationTable(instructions)
	if err != nil {
		return nil, err
	}
	types, err := BuildTypeRegistry(instructions, decos)
	if err != nil {
		return nil, err
	}
	consts, err := BuildConstantRegistry(instructions, types, decos)
	if err != nil {
		return nil, err
	}
	if err := FoldSpecializations(consts, types, nil); err != nil {
		return nil, err
	}
	resolveArrayCounts(types, consts)
	vars, err := BuildVariableInventory(instructions, types, decos)
	if err != nil {
		return nil, err
	}
	access := BuildAccessAnalysis(instructions, vars)
	return AssembleEntryPoints(instructions, decos, types, vars, consts, access, false)
}

// TestReflect_ArgumentValidation exercises the ArgumentNull/
// ArgumentOutOfRange caller-misuse error kinds.
func TestReflect_ArgumentValidation(t *testing.T) {
	_, err := Reflect(Config{SPIRV: nil})
	require.Error(t, err)
	assert.Equal(t, ArgumentNull, err.(*Error).Kind)

	_, err = Reflect(Config{SPIRV: []uint32{1, 2, 3}})
	require.Error(t, err)
	assert.Equal(t, ArgumentOutOfRange, err.(*Error).Kind)
}

// TestReflect_LayoutCompleteness builds a UniformBuffer whose struct
// has every member decorated with Offset and checks every reported
// member offset is non-nil; a second struct with one member missing
// its Offset decoration checks that member, and only that member,
// comes back with a nil offset rather than a guessed value.
func TestReflect_LayoutCompleteness(t *testing.T) {
	var fullID, partialID uint32
	instructions := buildInstructions(t, func(b *spirv.ModuleBuilder) {
		uintID := b.AddTypeInt(32, false)
		floatID := b.AddTypeFloat(32)

		fullID = b.AddTypeStruct(uintID, floatID)
		b.AddMemberDecorate(fullID, 0, spirv.DecorationOffset, 0)
		b.AddMemberDecorate(fullID, 1, spirv.DecorationOffset, 4)

		partialID = b.AddTypeStruct(uintID, floatID)
		b.AddMemberDecorate(partialID, 0, spirv.DecorationOffset, 0)
		// Member 1 deliberately left undecorated.
	})

	decos, err := BuildDecorationTable(instructions)
	require.NoError(t, err)
	types, err := BuildTypeRegistry(instructions, decos)
	require.NoError(t, err)

	full, ok := types.Lookup(fullID).Inner.(StructType)
	require.True(t, ok)
	for i, m := range full.Members {
		assert.NotNilf(t, m.Offset, "member %d of the fully-decorated struct should have a known offset", i)
	}

	partial, ok := types.Lookup(partialID).Inner.(StructType)
	require.True(t, ok)
	require.NotNil(t, partial.Members[0].Offset)
	assert.Nil(t, partial.Members[1].Offset, "a member with no Offset decoration reports an unknown offset rather than a guess")
}

// TestReflect_AccessMonotonicity checks that adding a caller
// specialization override never removes a descriptor's access mode:
// reflecting the same module with and without a specialization
// override yields the same access mode for every descriptor that
// appears in both results.
func TestReflect_AccessMonotonicity(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		uintID := b.AddTypeInt(32, false)
		intID := b.AddTypeInt(32, true)
		specID := b.AddSpecConstant(intID, 9, 1)
		b.AddName(specID, "unused")

		structID := b.AddTypeStruct(uintID)
		b.AddMemberDecorate(structID, 0, spirv.DecorationOffset, 0)
		b.AddDecorate(structID, spirv.DecorationBlock)
		ptr := b.AddTypePointer(spirv.StorageClassUniform, structID)
		ubo := b.AddVariable(ptr, spirv.StorageClassUniform)
		b.AddName(ubo, "ubo")
		b.AddDecorate(ubo, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(ubo, spirv.DecorationBinding, 0)

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddLoad(structID, ubo)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
		b.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	})

	without, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	overrideBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(overrideBytes, 7)
	with, err := Reflect(Config{SPIRV: words, Specializations: Specializations{9: overrideBytes}})
	require.NoError(t, err)

	require.Len(t, without[0].Descriptors, 1)
	require.Len(t, with[0].Descriptors, 1)
	assert.Equal(t, without[0].Descriptors[0].Access, with[0].Descriptors[0].Access,
		"a specialization override unrelated to resource usage must not change a descriptor's access mode")
}

// TestReflect_SpecConstIdempotence checks that folding specializations
// twice against the same inputs produces the same folded values as
// folding once.
func TestReflect_SpecConstIdempotence(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		intID := b.AddTypeInt(32, true)
		specID := b.AddSpecConstant(intID, 42, 3)
		b.AddName(specID, "count")

		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
		b.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 1, 1, 1)
	})

	overrideBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(overrideBytes, 11)
	cfg := Config{SPIRV: words, Specializations: Specializations{42: overrideBytes}}

	first, err := Reflect(cfg)
	require.NoError(t, err)
	second, err := Reflect(cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sv, ok := first[0].SpecConstants[0].Folded.(ScalarValue)
	require.True(t, ok)
	assert.Equal(t, uint64(11), sv.Bits)
}

// TestReflect_NonReadableNonWritableClampAccess checks that
// NonReadable/NonWritable decorations clamp the computed access mode
// rather than merely being recorded: a storage image decorated
// NonWritable that the function body both reads and (incorrectly)
// writes reports ReadOnly, and one decorated NonReadable under the same
// body shape reports WriteOnly.
func TestReflect_NonReadableNonWritableClampAccess(t *testing.T) {
	var readOnlyImg, writeOnlyImg, fn uint32
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		floatID := b.AddTypeFloat(32)
		intID := b.AddTypeInt(32, true)
		imageTypeID := b.AddTypeImage(floatID, spirv.Dim2D, 0, 0, 0, 2, spirv.ImageFormatRgba8)
		imagePtr := b.AddTypePointer(spirv.StorageClassUniformConstant, imageTypeID)
		vec2ID := b.AddTypeVector(intID, 2)

		readOnlyImg = b.AddVariable(imagePtr, spirv.StorageClassUniformConstant)
		b.AddName(readOnlyImg, "readOnlyImg")
		b.AddDecorate(readOnlyImg, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(readOnlyImg, spirv.DecorationBinding, 0)
		b.AddDecorate(readOnlyImg, spirv.DecorationNonWritable)

		writeOnlyImg = b.AddVariable(imagePtr, spirv.StorageClassUniformConstant)
		b.AddName(writeOnlyImg, "writeOnlyImg")
		b.AddDecorate(writeOnlyImg, spirv.DecorationDescriptorSet, 0)
		b.AddDecorate(writeOnlyImg, spirv.DecorationBinding, 1)
		b.AddDecorate(writeOnlyImg, spirv.DecorationNonReadable)

		zeroInt := b.AddConstant(intID, 0)
		coord := b.AddConstantComposite(vec2ID, zeroInt, zeroInt)
		zeroFloat := b.AddConstantFloat32(floatID, 0)
		vec4ID := b.AddTypeVector(floatID, 4)
		texel := b.AddConstantComposite(vec4ID, zeroFloat, zeroFloat, zeroFloat, zeroFloat)

		fnType := b.AddTypeFunction(voidID)
		fn = b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddImageRead(vec4ID, readOnlyImg, coord)
		b.AddImageWrite(readOnlyImg, coord, texel)
		b.AddImageRead(vec4ID, writeOnlyImg, coord)
		b.AddImageWrite(writeOnlyImg, coord, texel)
		b.AddReturn()
		b.AddFunctionEnd()

		b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "main", nil)
		b.AddExecutionMode(fn, spirv.ExecutionModeOriginUpperLeft)
	})

	eps, err := Reflect(Config{SPIRV: words})
	require.NoError(t, err)
	require.Len(t, eps[0].Descriptors, 2)

	byName := map[string]Descriptor{}
	for _, d := range eps[0].Descriptors {
		byName[d.Name] = d
	}

	ro := byName["readOnlyImg"]
	assert.Equal(t, AccessRead, ro.Access, "NonWritable clamps a body that also writes down to ReadOnly")

	wo := byName["writeOnlyImg"]
	assert.Equal(t, AccessWrite, wo.Access, "NonReadable clamps a body that also reads down to WriteOnly")
}

// TestReflect_ZeroLengthInstructionIsUnsupported checks that a
// zero-length instruction header — a shape no valid SPIR-V producer can
// emit, since an instruction's word count always includes its own
// opcode word — is reported as UnsupportedSpirv rather than the
// CorruptedSpirv a merely truncated or overrunning stream gets.
func TestReflect_ZeroLengthInstructionIsUnsupported(t *testing.T) {
	words := buildModule(t, func(b *spirv.ModuleBuilder) {
		voidID := b.AddTypeVoid()
		fnType := b.AddTypeFunction(voidID)
		fn := b.AddFunction(fnType, voidID, spirv.FunctionControlNone)
		b.AddLabel()
		b.AddReturn()
		b.AddFunctionEnd()
		b.AddEntryPoint(spirv.ExecutionModelGLCompute, fn, "main", nil)
	})

	// The first word past the 5-word header is the opcode/length word of
	// the module's first instruction; clearing its high 16 bits forges a
	// zero-length instruction there.
	const headerWordCount = 5
	require.Greater(t, len(words), headerWordCount)
	words[headerWordCount] &= 0x0000ffff

	_, err := Reflect(Config{SPIRV: words})
	require.Error(t, err)
	reflectErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnsupportedSpirv, reflectErr.Kind)
}
