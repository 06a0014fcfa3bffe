package reflect

import "github.com/gogpu/spirq/spirv"

// ConstantValue is implemented by every concrete constant value shape.
type ConstantValue interface {
	constantValue()
}

// ScalarValue holds a scalar constant's raw bit pattern. Bits is
// zero-extended into a uint64 container regardless of
// the declared width; consumers must consult the owning Constant's
// Type to interpret signedness and float encoding, and must never
// widen/narrow without checking that width.
type ScalarValue struct {
	Bits uint64
	Kind ScalarKind
}

func (ScalarValue) constantValue() {}

// CompositeValue holds the constituent constant ids of a
// OpConstantComposite / OpSpecConstantComposite value.
type CompositeValue struct {
	Components []uint32
}

func (CompositeValue) constantValue() {}

// SpecValue is a specialization constant: it carries both its
// module-declared Default and, once BuildConstantRegistry's caller
// runs the specialization folder, its Folded effective value.
type SpecValue struct {
	SpecID  uint32
	Default ConstantValue
	Folded  ConstantValue // nil until folded
}

func (SpecValue) constantValue() {}

// Constant is a single OpConstant*/OpSpecConstant* declaration.
type Constant struct {
	ID    uint32
	Name  string
	Type  uint32 // type id
	Value ConstantValue
	// IsSpec is true for any OpSpecConstant* declaration, distinguishing
	// specialization constants (which may still be folded) from
	// ordinary module constants.
	IsSpec bool
}

// ConstantRegistry maps every OpConstant*/OpSpecConstant* result id to
// its Constant, built in declaration order.
type ConstantRegistry struct {
	byID  map[uint32]*Constant
	order []uint32
}

func newConstantRegistry() *ConstantRegistry {
	return &ConstantRegistry{byID: make(map[uint32]*Constant)}
}

// Lookup returns the Constant for id, or nil if id never named one.
func (r *ConstantRegistry) Lookup(id uint32) *Constant {
	return r.byID[id]
}

// IDs returns every registered constant id in declaration order.
func (r *ConstantRegistry) IDs() []uint32 {
	return r.order
}

func (r *ConstantRegistry) add(c *Constant) {
	r.byID[c.ID] = c
	r.order = append(r.order, c.ID)
}

func scalarKindOf(types *TypeRegistry, typeID uint32) ScalarKind {
	t := types.Lookup(typeID)
	if t == nil {
		return ScalarInt
	}
	if s, ok := t.Inner.(ScalarType); ok {
		return s.Kind
	}
	return ScalarInt
}

// BuildConstantRegistry processes OpConstant*/OpSpecConstant*
// instructions in declaration order (the second half of component C).
// It must run after BuildTypeRegistry so each constant's scalar kind
// can be taken from its declared type; literal widths are not checked.
func BuildConstantRegistry(instructions []spirv.Instruction, types *TypeRegistry, decos *DecorationTable) (*ConstantRegistry, error) {
	reg := newConstantRegistry()

	for i, inst := range instructions {
		var c Constant

		switch inst.Opcode {
		case spirv.OpConstantTrue, spirv.OpConstantFalse:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpConstantTrue/False missing operands")
			}
			bits := uint64(0)
			if inst.Opcode == spirv.OpConstantTrue {
				bits = 1
			}
			c = Constant{ID: inst.Words[1], Type: inst.Words[0], Value: ScalarValue{Bits: bits, Kind: ScalarBool}}

		case spirv.OpConstant:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpConstant missing operands")
			}
			bits := packLiteral(inst.Words[2:])
			c = Constant{ID: inst.Words[1], Type: inst.Words[0], Value: ScalarValue{Bits: bits, Kind: scalarKindOf(types, inst.Words[0])}}

		case spirv.OpConstantComposite:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpConstantComposite missing operands")
			}
			components := append([]uint32{}, inst.Words[2:]...)
			c = Constant{ID: inst.Words[1], Type: inst.Words[0], Value: CompositeValue{Components: components}}

		case spirv.OpConstantNull:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpConstantNull missing operands")
			}
			c = Constant{ID: inst.Words[1], Type: inst.Words[0], Value: ScalarValue{Bits: 0, Kind: scalarKindOf(types, inst.Words[0])}}

		case spirv.OpSpecConstantTrue, spirv.OpSpecConstantFalse:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpSpecConstantTrue/False missing operands")
			}
			bits := uint64(0)
			if inst.Opcode == spirv.OpSpecConstantTrue {
				bits = 1
			}
			id := inst.Words[1]
			specID := specIDOf(decos, id)
			c = Constant{ID: id, Type: inst.Words[0], IsSpec: true, Value: SpecValue{
				SpecID:  specID,
				Default: ScalarValue{Bits: bits, Kind: ScalarBool},
			}}

		case spirv.OpSpecConstant:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpSpecConstant missing operands")
			}
			id := inst.Words[1]
			bits := packLiteral(inst.Words[2:])
			specID := specIDOf(decos, id)
			c = Constant{ID: id, Type: inst.Words[0], IsSpec: true, Value: SpecValue{
				SpecID:  specID,
				Default: ScalarValue{Bits: bits, Kind: scalarKindOf(types, inst.Words[0])},
			}}

		case spirv.OpSpecConstantComposite:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpSpecConstantComposite missing operands")
			}
			id := inst.Words[1]
			components := append([]uint32{}, inst.Words[2:]...)
			c = Constant{ID: id, Type: inst.Words[0], IsSpec: true, Value: SpecValue{
				SpecID:  specIDOf(decos, id),
				Default: CompositeValue{Components: components},
			}}

		case spirv.OpSpecConstantOp:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpSpecConstantOp missing operands")
			}
			id := inst.Words[1]
			embeddedOp := spirv.OpCode(inst.Words[2])
			operands := append([]uint32{}, inst.Words[3:]...)
			c = Constant{ID: id, Type: inst.Words[0], IsSpec: true, Value: specConstantOpValue{
				Opcode:   embeddedOp,
				Operands: operands,
			}}

		default:
			continue
		}

		if name, ok := decos.Names[c.ID]; ok {
			c.Name = name
		}
		reg.add(&c)
	}

	resolveArrayCounts(types, reg)
	return reg, nil
}

// specConstantOpValue is an unfolded OpSpecConstantOp expression: the
// embedded opcode plus its operand ids (which may themselves name
// other, possibly-unfolded spec constants). The specialization folder
// (specialize.go) evaluates this into a concrete ScalarValue.
type specConstantOpValue struct {
	Opcode   spirv.OpCode
	Operands []uint32
}

func (specConstantOpValue) constantValue() {}

func specIDOf(decos *DecorationTable, id uint32) uint32 {
	if ops, ok := decos.Get(id, spirv.DecorationSpecId); ok && len(ops) > 0 {
		return ops[0]
	}
	return 0
}

// packLiteral reassembles a (possibly multi-word, for 64-bit types)
// literal operand into a single uint64, low word first, matching the
// SPIR-V literal encoding.
func packLiteral(words []uint32) uint64 {
	var v uint64
	for i, w := range words {
		if i > 1 {
			break
		}
		v |= uint64(w) << (32 * i)
	}
	return v
}
