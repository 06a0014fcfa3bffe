package reflect

import "github.com/gogpu/spirq/spirv"

// AccessMode is the {None, ReadOnly, WriteOnly, ReadWrite} x HasAtomic
// lattice from the data model, implemented as a small bitset so the
// join across every instruction touching a variable is one OR.
type AccessMode uint8

const (
	AccessNone  AccessMode = 0
	AccessRead  AccessMode = 1 << 0
	AccessWrite AccessMode = 1 << 1
	AccessAtomic AccessMode = 1 << 2
)

// ReadWrite reports whether both the read and write bits are set.
func (a AccessMode) ReadWrite() bool {
	return a&AccessRead != 0 && a&AccessWrite != 0
}

// HasAtomic reports whether the atomic bit is set.
func (a AccessMode) HasAtomic() bool {
	return a&AccessAtomic != 0
}

// functionInfo is the per-function result of one pass over a function
// body: which global variables it (transitively through its own
// expressions, not through calls) loads/stores/atomically-touches, and
// which functions it calls.
type functionInfo struct {
	id    uint32
	uses  map[uint32]AccessMode
	calls []uint32
}

// AccessAnalysis holds the per-function use/call tables built by
// BuildAccessAnalysis, ready for per-entry-point closure.
type AccessAnalysis struct {
	functions map[uint32]*functionInfo
}

// BuildAccessAnalysis walks every function body in the module
// (component F), attributing loads, stores, and atomic operations back
// to the global variable each instruction's pointer operand ultimately
// traces to, and recording the call graph.
//
// Pointer provenance is propagated through OpAccessChain,
// OpInBoundsAccessChain, OpPtrAccessChain, and OpCopyObject: the result
// id of any of these is recorded as an alias of its base pointer's
// origin, so a later OpLoad/OpStore on the result id is attributed to
// the same originating OpVariable.
func BuildAccessAnalysis(instructions []spirv.Instruction, vars *VariableInventory) *AccessAnalysis {
	analysis := &AccessAnalysis{functions: make(map[uint32]*functionInfo)}

	// origin maps any SSA id produced by a pointer-propagating
	// instruction (or an OpVariable itself) back to the global
	// variable id it ultimately points into. It is module-global
	// because SPIR-V ids are module-scoped. Pointers passed as
	// OpFunctionCall arguments are not traced into the callee: an
	// access through an OpFunctionParameter is attributed to no
	// variable.
	origin := make(map[uint32]uint32)
	for _, id := range vars.IDs() {
		origin[id] = id
	}

	var current *functionInfo

	for _, inst := range instructions {
		switch inst.Opcode {
		case spirv.OpFunction:
			if len(inst.Words) < 2 {
				continue
			}
			id := inst.Words[1]
			current = &functionInfo{id: id, uses: make(map[uint32]AccessMode)}
			analysis.functions[id] = current

		case spirv.OpFunctionEnd:
			current = nil

		case spirv.OpAccessChain, spirv.OpInBoundsAccessChain, spirv.OpPtrAccessChain, spirv.OpInBoundsPtrAccessChain, spirv.OpCopyObject:
			if len(inst.Words) < 3 {
				continue
			}
			result := inst.Words[1]
			base := inst.Words[2]
			if o, ok := origin[base]; ok {
				origin[result] = o
			}

		case spirv.OpLoad:
			if len(inst.Words) < 3 || current == nil {
				continue
			}
			pointer := inst.Words[2]
			if o, ok := origin[pointer]; ok {
				current.uses[o] |= AccessRead
			}

		case spirv.OpStore:
			if len(inst.Words) < 2 || current == nil {
				continue
			}
			pointer := inst.Words[0]
			if o, ok := origin[pointer]; ok {
				current.uses[o] |= AccessWrite
			}

		case spirv.OpImageRead, spirv.OpImageSampleImplicitLod, spirv.OpImageSampleExplicitLod, spirv.OpImageFetch, spirv.OpImageGather, spirv.OpImageDrefGather, spirv.OpImageQuerySize, spirv.OpImageQuerySizeLod:
			if len(inst.Words) < 3 || current == nil {
				continue
			}
			image := inst.Words[2]
			if o, ok := origin[image]; ok {
				current.uses[o] |= AccessRead
			}

		case spirv.OpImageWrite:
			if len(inst.Words) < 1 || current == nil {
				continue
			}
			image := inst.Words[0]
			if o, ok := origin[image]; ok {
				current.uses[o] |= AccessWrite
			}

		case spirv.OpAtomicStore:
			if len(inst.Words) < 1 || current == nil {
				continue
			}
			pointer := inst.Words[0]
			if o, ok := origin[pointer]; ok {
				current.uses[o] |= AccessRead | AccessWrite | AccessAtomic
			}

		case spirv.OpFunctionCall:
			if len(inst.Words) < 3 || current == nil {
				continue
			}
			callee := inst.Words[2]
			current.calls = append(current.calls, callee)

		default:
			if isAtomicOpcode(inst.Opcode) {
				if len(inst.Words) < 3 || current == nil {
					continue
				}
				pointer := inst.Words[2]
				if o, ok := origin[pointer]; ok {
					// Every atomic opcode is attributed read+write+atomic,
					// even nominally load-only ones like OpAtomicLoad —
					// intentional, preserved from the source's v0.4.18 fix.
					current.uses[o] |= AccessRead | AccessWrite | AccessAtomic
				}
			}
		}
	}

	return analysis
}

func isAtomicOpcode(op spirv.OpCode) bool {
	switch op {
	case spirv.OpAtomicLoad, spirv.OpAtomicExchange, spirv.OpAtomicCompareExch,
		spirv.OpAtomicIIncrement, spirv.OpAtomicIDecrement, spirv.OpAtomicIAdd, spirv.OpAtomicISub,
		spirv.OpAtomicSMin, spirv.OpAtomicUMin, spirv.OpAtomicSMax, spirv.OpAtomicUMax,
		spirv.OpAtomicAnd, spirv.OpAtomicOr, spirv.OpAtomicXor:
		return true
	}
	return false
}

// ReferencedFrom transitively closes the call graph starting at
// entryFunc and unions every function's variable uses, yielding the
// set of variables actually reachable from that entry point. If
// referenceAll is true the closure is skipped: every variable in
// allVars is listed, and each one's access mode is the union of its
// uses across every function in the module, including functions not
// reachable from entryFunc.
func (a *AccessAnalysis) ReferencedFrom(entryFunc uint32, allVars []uint32, referenceAll bool) map[uint32]AccessMode {
	result := make(map[uint32]AccessMode)
	if referenceAll {
		for _, id := range allVars {
			result[id] = AccessNone
		}
		// Still union real access info from every function in the
		// module so a reference-all reflection reports true access
		// modes where known.
		for _, fn := range a.functions {
			for v, mode := range fn.uses {
				result[v] |= mode
			}
		}
		return result
	}

	visited := make(map[uint32]bool)
	var visit func(funcID uint32)
	visit = func(funcID uint32) {
		if visited[funcID] {
			return
		}
		visited[funcID] = true
		fn := a.functions[funcID]
		if fn == nil {
			return
		}
		for v, mode := range fn.uses {
			result[v] |= mode
		}
		for _, callee := range fn.calls {
			visit(callee)
		}
	}
	visit(entryFunc)
	return result
}
