package reflect

import "github.com/gogpu/spirq/spirv"

// ScalarKind distinguishes the scalar families SPIR-V's OpType* family
// can declare.
type ScalarKind uint8

const (
	ScalarVoid ScalarKind = iota
	ScalarBool
	ScalarInt
	ScalarFloat
)

// ScalarType is the leaf of the type tree: a void, bool, or a sized,
// signed-or-not integer/float.
type ScalarType struct {
	Kind   ScalarKind
	Bits   uint8
	Signed bool // meaningful only when Kind == ScalarInt
}

// MatrixMajor records whether a matrix's OpTypeMatrix columns are laid
// out row-major or column-major, per its ColMajor/RowMajor decoration.
type MatrixMajor uint8

const (
	MajorColumn MatrixMajor = iota
	MajorRow
)

// Type is the public, tagged-variant description of a SPIR-V OpType*
// declaration. Consumers dispatch on the concrete Inner type and ignore
// variants they don't handle.
type Type struct {
	ID    uint32
	Name  string // from the decoration table; empty if undecorated
	Inner TypeInner
}

// TypeInner is implemented by every concrete type shape. The marker
// method keeps the variant set closed to this package.
type TypeInner interface {
	typeInner()
}

func (ScalarType) typeInner() {}

// VectorType is a fixed 2-, 3-, or 4-component vector of a scalar.
type VectorType struct {
	Elem ScalarType
	N    uint8
}

func (VectorType) typeInner() {}

// MatrixType is Cols columns of Col vectors. The type registry always
// leaves Stride nil and Major MajorColumn: SPIR-V decorates the struct
// member holding a matrix, not the matrix type, so a matrix's layout is
// recorded on StructMember.MatrixStride/MatrixMajor instead.
type MatrixType struct {
	Col    VectorType
	Cols   uint8
	Stride *uint32
	Major  MatrixMajor
}

func (MatrixType) typeInner() {}

// ArrayType is Elem repeated Count times (Count == nil for a
// runtime-sized array, i.e. OpTypeRuntimeArray). Stride is nil when no
// ArrayStride decoration was present.
type ArrayType struct {
	Elem   uint32 // type id
	Count  *uint64
	Stride *uint32
}

func (ArrayType) typeInner() {}

// StructMember is one field of a StructType. MatrixStride/MatrixMajor
// are only meaningful when Type names a matrix (or an array of
// matrices): SPIR-V decorates the member holding the matrix, not the
// matrix type itself, so this is where that layout information lives.
// Location/Component/BuiltIn are only meaningful when the owning
// struct is a block-structured Input/Output interface variable's
// pointee: a member's own Location decoration is what promotes it to
// an individual interface slot.
type StructMember struct {
	Name         string
	Offset       *uint32 // nil when Offset decoration is missing (tolerant mode)
	Type         uint32  // type id
	MatrixStride *uint32
	MatrixMajor  MatrixMajor
	Location     *uint32
	Component    *uint32
	BuiltIn      *spirv.BuiltIn
}

// StructType holds its members in declaration order.
type StructType struct {
	Members []StructMember
}

func (StructType) typeInner() {}

// ImageType mirrors OpTypeImage's operands.
type ImageType struct {
	SampledType uint32 // type id of the sampled component type
	Dim         spirv.Dim
	Depth       uint32 // 0 = not depth, 1 = depth, 2 = unknown
	Arrayed     bool
	MS          bool
	Sampled     uint32 // 0 = runtime-known, 1 = sampled, 2 = storage
	Format      spirv.ImageFormat
}

func (ImageType) typeInner() {}

// SamplerType is OpTypeSampler; SPIR-V carries no operands for it.
type SamplerType struct{}

func (SamplerType) typeInner() {}

// SampledImageType combines a separately-declared image type, per
// OpTypeSampledImage.
type SampledImageType struct {
	Image uint32 // type id of the underlying ImageType
}

func (SampledImageType) typeInner() {}

// PointerType is OpTypePointer: a storage class plus the type it points
// to. Pointee cycles through structs are represented as ids, never
// embedded values, so resolution is a map lookup and cycles are safe.
type PointerType struct {
	StorageClass spirv.StorageClass
	Pointee      uint32 // type id
}

func (PointerType) typeInner() {}

// AccelerationStructureType is OpTypeAccelerationStructureKHR.
type AccelerationStructureType struct{}

func (AccelerationStructureType) typeInner() {}

// RayQueryType is OpTypeRayQueryKHR.
type RayQueryType struct{}

func (RayQueryType) typeInner() {}

// TypeRegistry maps every OpType* result id to its Type, in the order
// types were declared. References to earlier ids resolve immediately
// since the registry is write-append, read-any-prior.
type TypeRegistry struct {
	byID  map[uint32]*Type
	order []uint32

	pendingArrayLength []pendingArrayLength
}

// Lookup returns the Type for id, or nil if id never named a type.
func (r *TypeRegistry) Lookup(id uint32) *Type {
	return r.byID[id]
}

// IDs returns every registered type id in declaration order.
func (r *TypeRegistry) IDs() []uint32 {
	return r.order
}

func newTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byID: make(map[uint32]*Type)}
}

func (r *TypeRegistry) add(t *Type) {
	r.byID[t.ID] = t
	r.order = append(r.order, t.ID)
}

// BuildTypeRegistry processes OpType* instructions in declaration
// order (component C's type half; constants are built separately by
// BuildConstantRegistry so that constant expressions can reference
// already-resolved types).
func BuildTypeRegistry(instructions []spirv.Instruction, decos *DecorationTable) (*TypeRegistry, error) {
	reg := newTypeRegistry()

	for i, inst := range instructions {
		var id uint32
		var inner TypeInner

		switch inst.Opcode {
		case spirv.OpTypeVoid:
			id = inst.Words[0]
			inner = ScalarType{Kind: ScalarVoid}

		case spirv.OpTypeBool:
			id = inst.Words[0]
			inner = ScalarType{Kind: ScalarBool, Bits: 1}

		case spirv.OpTypeInt:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeInt missing operands")
			}
			id = inst.Words[0]
			inner = ScalarType{Kind: ScalarInt, Bits: uint8(inst.Words[1]), Signed: inst.Words[2] != 0}

		case spirv.OpTypeFloat:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeFloat missing operands")
			}
			id = inst.Words[0]
			inner = ScalarType{Kind: ScalarFloat, Bits: uint8(inst.Words[1])}

		case spirv.OpTypeVector:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeVector missing operands")
			}
			id = inst.Words[0]
			compType := reg.Lookup(inst.Words[1])
			var elem ScalarType
			if compType != nil {
				if s, ok := compType.Inner.(ScalarType); ok {
					elem = s
				}
			}
			inner = VectorType{Elem: elem, N: uint8(inst.Words[2])}

		case spirv.OpTypeMatrix:
			// MatrixStride and RowMajor/ColMajor decorate the struct
			// *member* that holds the matrix, not the OpTypeMatrix
			// result id itself — SPIR-V has no way to decorate a bare
			// matrix type. Those fields are therefore left unset here
			// and filled in per struct member in the OpTypeStruct case
			// below (matrixLayoutOf).
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeMatrix missing operands")
			}
			id = inst.Words[0]
			colType := reg.Lookup(inst.Words[1])
			var col VectorType
			if colType != nil {
				if v, ok := colType.Inner.(VectorType); ok {
					col = v
				}
			}
			inner = MatrixType{Col: col, Cols: uint8(inst.Words[2]), Major: MajorColumn}

		case spirv.OpTypeArray:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeArray missing operands")
			}
			id = inst.Words[0]
			// The length operand is itself a constant id; the caller
			// resolves it to a concrete count via the constant
			// registry in a second pass (resolveArrayCounts), since
			// OpTypeArray may reference a constant declared later in
			// pathological-but-tolerated modules.
			inner = ArrayType{Elem: inst.Words[1], Count: nil, Stride: arrayStrideOf(decos, id)}
			reg.add(&Type{ID: id, Name: decos.Names[id], Inner: inner})
			reg.pendingArrayLength = append(reg.pendingArrayLength, pendingArrayLength{typeID: id, lengthID: inst.Words[2]})
			continue

		case spirv.OpTypeRuntimeArray:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeRuntimeArray missing operands")
			}
			id = inst.Words[0]
			inner = ArrayType{Elem: inst.Words[1], Count: nil, Stride: arrayStrideOf(decos, id)}

		case spirv.OpTypeStruct:
			id = inst.Words[0]
			members := make([]StructMember, 0, len(inst.Words)-1)
			for idx, memberType := range inst.Words[1:] {
				m := StructMember{Type: memberType}
				if name, ok := decos.MemberNames[id][uint32(idx)]; ok {
					m.Name = name
				}
				if ops, ok := decos.MemberGet(id, uint32(idx), spirv.DecorationOffset); ok && len(ops) > 0 {
					off := ops[0]
					m.Offset = &off
				}
				if ops, ok := decos.MemberGet(id, uint32(idx), spirv.DecorationLocation); ok && len(ops) > 0 {
					loc := ops[0]
					m.Location = &loc
				}
				if ops, ok := decos.MemberGet(id, uint32(idx), spirv.DecorationComponent); ok && len(ops) > 0 {
					comp := ops[0]
					m.Component = &comp
				}
				if ops, ok := decos.MemberGet(id, uint32(idx), spirv.DecorationBuiltIn); ok && len(ops) > 0 {
					b := spirv.BuiltIn(ops[0])
					m.BuiltIn = &b
				}
				m.MatrixStride, m.MatrixMajor = matrixLayoutOf(decos, id, uint32(idx))
				members = append(members, m)
			}
			inner = StructType{Members: members}

		case spirv.OpTypePointer:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypePointer missing operands")
			}
			id = inst.Words[0]
			inner = PointerType{StorageClass: spirv.StorageClass(inst.Words[1]), Pointee: inst.Words[2]}

		case spirv.OpTypeImage:
			if len(inst.Words) < 8 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeImage missing operands")
			}
			id = inst.Words[0]
			inner = ImageType{
				SampledType: inst.Words[1],
				Dim:         spirv.Dim(inst.Words[2]),
				Depth:       inst.Words[3],
				Arrayed:     inst.Words[4] != 0,
				MS:          inst.Words[5] != 0,
				Sampled:     inst.Words[6],
				Format:      spirv.ImageFormat(inst.Words[7]),
			}

		case spirv.OpTypeSampler:
			id = inst.Words[0]
			inner = SamplerType{}

		case spirv.OpTypeSampledImage:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpTypeSampledImage missing operands")
			}
			id = inst.Words[0]
			inner = SampledImageType{Image: inst.Words[1]}

		case spirv.OpTypeAccelerationStructureKHR:
			id = inst.Words[0]
			inner = AccelerationStructureType{}

		case spirv.OpTypeRayQueryKHR:
			id = inst.Words[0]
			inner = RayQueryType{}

		default:
			continue
		}

		reg.add(&Type{ID: id, Name: decos.Names[id], Inner: inner})
	}

	return reg, nil
}

type pendingArrayLength struct {
	typeID   uint32
	lengthID uint32
}

func matrixLayoutOf(decos *DecorationTable, structID, member uint32) (*uint32, MatrixMajor) {
	major := MajorColumn
	if decos.MemberHas(structID, member, spirv.DecorationRowMajor) {
		major = MajorRow
	}
	var stride *uint32
	if ops, ok := decos.MemberGet(structID, member, spirv.DecorationMatrixStride); ok && len(ops) > 0 {
		s := ops[0]
		stride = &s
	}
	return stride, major
}

func arrayStrideOf(decos *DecorationTable, id uint32) *uint32 {
	if ops, ok := decos.Get(id, spirv.DecorationArrayStride); ok && len(ops) > 0 {
		s := ops[0]
		return &s
	}
	return nil
}

// resolveArrayCounts fills in ArrayType.Count for every OpTypeArray
// whose length operand names a constant, using the already-built
// constant registry. Arrays whose length constant is missing or
// non-scalar keep Count == nil (tolerant mode), matching a
// runtime-sized array's representation — downstream consumers that
// need to distinguish "unknown fixed length" from "genuinely runtime
// sized" should treat both as unbounded.
func resolveArrayCounts(types *TypeRegistry, consts *ConstantRegistry) {
	for _, pending := range types.pendingArrayLength {
		t := types.byID[pending.typeID]
		arr, ok := t.Inner.(ArrayType)
		if !ok {
			continue
		}
		c := consts.Lookup(pending.lengthID)
		if c == nil {
			continue
		}
		if scalar, ok := c.Value.(ScalarValue); ok {
			count := scalar.Bits
			arr.Count = &count
			t.Inner = arr
		}
	}
}
