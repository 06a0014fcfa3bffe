package reflect

import "github.com/gogpu/spirq/spirv"

// Specializations is the caller-supplied `{spec_id -> bytes}` map from
// the library Config. Values are raw little-endian literal bytes whose
// length must match the target scalar's width exactly.
type Specializations map[uint32][]byte

// FoldSpecializations evaluates every OpSpecConstant*/OpSpecConstantOp
// value in the registry against the caller-supplied map (component D).
// Folding proceeds in declaration order so a dependent OpSpecConstantOp
// sees its operands already folded. It returns InvalidSpecialization
// only when a caller-supplied value's byte size disagrees with the
// target scalar's width; every other irregularity resolves to an
// "unknown" folded value rather than failing the whole reflection.
func FoldSpecializations(consts *ConstantRegistry, types *TypeRegistry, overrides Specializations) error {
	for _, id := range consts.IDs() {
		c := consts.byID[id]
		switch v := c.Value.(type) {
		case SpecValue:
			folded, err := foldSpecValue(c, v, consts, types, overrides)
			if err != nil {
				return err
			}
			v.Folded = folded
			c.Value = v

		case specConstantOpValue:
			// OpSpecConstantOp carries no SpecId of its own — it is
			// never directly overridden, only evaluated over operands
			// that may themselves be specialization constants. The
			// fold result replaces the unevaluated expression in
			// place so later passes (array-length resolution, the
			// entry-point assembler) see a plain ScalarValue.
			if folded, ok := evalSpecConstantOp(v, consts); ok {
				c.Value = folded
			}
		}
	}
	return nil
}

func foldSpecValue(c *Constant, spec SpecValue, consts *ConstantRegistry, types *TypeRegistry, overrides Specializations) (ConstantValue, error) {
	switch def := spec.Default.(type) {
	case ScalarValue:
		if raw, ok := overrides[spec.SpecID]; ok {
			width := widthBytes(def.Kind, scalarBitsOf(types, c.Type))
			if len(raw) != width {
				return nil, newErrorAt(InvalidSpecialization, c.ID, -1,
					"specialization %d: byte width %d disagrees with target scalar width %d", spec.SpecID, len(raw), width)
			}
			return ScalarValue{Bits: littleEndianBits(raw), Kind: def.Kind}, nil
		}
		return def, nil

	case CompositeValue:
		folded := make([]uint32, len(def.Components))
		copy(folded, def.Components)
		return CompositeValue{Components: folded}, nil

	default:
		// Unsupported default shapes fold to "unknown" rather than
		// failing reflection outright.
		return nil, nil
	}
}

// evalSpecConstantOp evaluates a single embedded-opcode expression over
// already-folded operand constants. Unsupported opcodes (floats, quad
// arithmetic) evaluate to nil ("unknown") without failing reflection.
func evalSpecConstantOp(op specConstantOpValue, consts *ConstantRegistry) (ConstantValue, bool) {
	operand := func(i int) (ScalarValue, bool) {
		if i >= len(op.Operands) {
			return ScalarValue{}, false
		}
		c := consts.Lookup(op.Operands[i])
		if c == nil {
			return ScalarValue{}, false
		}
		if spec, ok := c.Value.(SpecValue); ok {
			if s, ok := spec.Folded.(ScalarValue); ok {
				return s, true
			}
			if s, ok := spec.Default.(ScalarValue); ok {
				return s, true
			}
			return ScalarValue{}, false
		}
		s, ok := c.Value.(ScalarValue)
		return s, ok
	}

	a, aok := operand(0)
	b, bok := operand(1)

	switch op.Opcode {
	case spirv.OpIAdd:
		if aok && bok {
			return ScalarValue{Bits: a.Bits + b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpISub:
		if aok && bok {
			return ScalarValue{Bits: a.Bits - b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpIMul:
		if aok && bok {
			return ScalarValue{Bits: a.Bits * b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpSDiv, spirv.OpUDiv:
		if aok && bok && b.Bits != 0 {
			return ScalarValue{Bits: a.Bits / b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpSMod, spirv.OpUMod, spirv.OpSRem:
		if aok && bok && b.Bits != 0 {
			return ScalarValue{Bits: a.Bits % b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpShiftLeftLogical:
		if aok && bok {
			return ScalarValue{Bits: a.Bits << b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpShiftRightLogical, spirv.OpShiftRightArithmetic:
		if aok && bok {
			return ScalarValue{Bits: a.Bits >> b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpCompositeExtract:
		if len(op.Operands) >= 2 {
			return compositeExtract(consts, op.Operands[0], op.Operands[1:])
		}
	case spirv.OpCompositeInsert:
		if len(op.Operands) >= 3 {
			return compositeInsert(consts, op.Operands[0], op.Operands[1], op.Operands[2:])
		}
	case spirv.OpBitwiseAnd:
		if aok && bok {
			return ScalarValue{Bits: a.Bits & b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpBitwiseOr:
		if aok && bok {
			return ScalarValue{Bits: a.Bits | b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpBitwiseXor:
		if aok && bok {
			return ScalarValue{Bits: a.Bits ^ b.Bits, Kind: a.Kind}, true
		}
	case spirv.OpNot:
		if aok {
			return ScalarValue{Bits: ^a.Bits, Kind: a.Kind}, true
		}
	case spirv.OpLogicalNot:
		if aok {
			return ScalarValue{Bits: boolBit(a.Bits == 0), Kind: ScalarBool}, true
		}
	case spirv.OpLogicalAnd:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits != 0 && b.Bits != 0), Kind: ScalarBool}, true
		}
	case spirv.OpLogicalOr:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits != 0 || b.Bits != 0), Kind: ScalarBool}, true
		}
	case spirv.OpIEqual:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits == b.Bits), Kind: ScalarBool}, true
		}
	case spirv.OpINotEqual:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits != b.Bits), Kind: ScalarBool}, true
		}
	case spirv.OpSLessThan, spirv.OpULessThan:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits < b.Bits), Kind: ScalarBool}, true
		}
	case spirv.OpSGreaterThan, spirv.OpUGreaterThan:
		if aok && bok {
			return ScalarValue{Bits: boolBit(a.Bits > b.Bits), Kind: ScalarBool}, true
		}
	case spirv.OpSelect:
		cond, condOK := operand(0)
		t, tOK := operand(1)
		f, fOK := operand(2)
		if condOK && tOK && fOK {
			if cond.Bits != 0 {
				return t, true
			}
			return f, true
		}
	}
	return nil, false
}

// resolvedValue unwraps a constant's folded (or, absent that, default)
// value, collapsing the SpecValue indirection so callers walking a
// composite never have to special-case a spec constant operand.
func resolvedValue(c *Constant) ConstantValue {
	if spec, ok := c.Value.(SpecValue); ok {
		if spec.Folded != nil {
			return spec.Folded
		}
		return spec.Default
	}
	return c.Value
}

// compositeExtract walks indexes into the composite named by rootID,
// descending one constituent id per index, mirroring OpCompositeExtract.
func compositeExtract(consts *ConstantRegistry, rootID uint32, indexes []uint32) (ConstantValue, bool) {
	c := consts.Lookup(rootID)
	if c == nil {
		return nil, false
	}
	value := resolvedValue(c)
	for _, idx := range indexes {
		comp, ok := value.(CompositeValue)
		if !ok || int(idx) >= len(comp.Components) {
			return nil, false
		}
		elem := consts.Lookup(comp.Components[idx])
		if elem == nil {
			return nil, false
		}
		value = resolvedValue(elem)
	}
	return value, true
}

// compositeInsert replaces the constituent at a single index into the
// composite named by compositeID with objectID, mirroring
// OpCompositeInsert. Nested (multi-index) insertion is not folded —
// it evaluates to "unknown" rather than guessing.
func compositeInsert(consts *ConstantRegistry, objectID, compositeID uint32, indexes []uint32) (ConstantValue, bool) {
	if len(indexes) != 1 {
		return nil, false
	}
	c := consts.Lookup(compositeID)
	if c == nil {
		return nil, false
	}
	comp, ok := resolvedValue(c).(CompositeValue)
	if !ok || int(indexes[0]) >= len(comp.Components) {
		return nil, false
	}
	updated := make([]uint32, len(comp.Components))
	copy(updated, comp.Components)
	updated[indexes[0]] = objectID
	return CompositeValue{Components: updated}, true
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func scalarBitsOf(types *TypeRegistry, typeID uint32) uint8 {
	t := types.Lookup(typeID)
	if t == nil {
		return 32
	}
	if s, ok := t.Inner.(ScalarType); ok {
		return s.Bits
	}
	return 32
}

func widthBytes(kind ScalarKind, bits uint8) int {
	if kind == ScalarBool {
		return 4 // SPIR-V encodes bool spec constants as a 32-bit literal
	}
	return int(bits) / 8
}

func littleEndianBits(raw []byte) uint64 {
	var v uint64
	for i, b := range raw {
		if i >= 8 {
			break
		}
		v |= uint64(b) << (8 * i)
	}
	return v
}
