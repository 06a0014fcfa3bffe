// Package spirv holds the SPIR-V wire format: opcode, decoration, and
// enumerant tables, a low-level word-stream decoder (Decode), and a
// ModuleBuilder used to assemble binaries.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # Decoding
//
// Decode turns a raw SPIR-V binary into a Stream of Instructions,
// validating the header and normalizing endianness along the way:
//
//	stream, err := spirv.Decode(binary)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, inst := range stream.Instructions {
//		// inst.Opcode, inst.Words
//	}
//
// Decode never interprets what an instruction means — it only recovers
// instruction boundaries and opcode/operand words. Giving meaning to
// those words (types, decorations, entry points) is the job of the
// sibling reflect package.
//
// # Binary Writer
//
// ModuleBuilder assembles a well-formed SPIR-V binary from the opposite
// direction, ordering sections the way the SPIR-V spec requires:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//
//	binary := builder.Build()
//
// Within this module, ModuleBuilder's main consumer is the reflect
// package's test suite: building a synthetic module with a known layout
// and then reflecting over it is a cheaper and more precise way to
// exercise the reflector than shipping prebuilt binary fixtures.
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types and constants
//   - Global variables
//   - Functions (code)
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
