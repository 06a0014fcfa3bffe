package reflect

import "github.com/gogpu/spirq/spirv"

// DescriptorKind classifies a UniformConstant/Uniform/StorageBuffer/
// PushConstant variable into a concrete Vulkan descriptor kind, per the
// (storage_class, pointee type, decorations) table in the data model.
type DescriptorKind uint8

const (
	DescriptorNone DescriptorKind = iota
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorInputAttachment
	DescriptorSampler
	DescriptorAccelerationStructure
	DescriptorPushConstant
)

// Variable is one OpVariable: its storage class, pointee type, and the
// decorations attached to it, plus the descriptor classification
// derived from those three inputs.
type Variable struct {
	ID           uint32
	Name         string
	StorageClass spirv.StorageClass
	Type         uint32 // pointee type id (the OpVariable's own type is a pointer to this)
	Descriptor   DescriptorKind

	Set                  *uint32
	Binding              *uint32
	InputAttachmentIndex *uint32
	Location             *uint32
	Component            *uint32
	BuiltIn              *spirv.BuiltIn
	NonReadable          bool
	NonWritable          bool

	// Count is the descriptor array length when the pointee is an
	// OpTypeArray of the classified resource (nil for a scalar binding
	// or an OpTypeRuntimeArray — SPV_EXT_descriptor_indexing).
	Count *uint64
	// ElemType is the element type id when Count/the array wrapper is
	// present; equal to Type otherwise.
	ElemType uint32
}

// VariableInventory holds every module-scope OpVariable, keyed by id.
type VariableInventory struct {
	byID  map[uint32]*Variable
	order []uint32
}

// Lookup returns the Variable for id, or nil.
func (v *VariableInventory) Lookup(id uint32) *Variable {
	return v.byID[id]
}

// IDs returns every variable id in declaration order.
func (v *VariableInventory) IDs() []uint32 {
	return v.order
}

// BuildVariableInventory processes every module-scope OpVariable
// (component E): storage class, pointee type, decorations, and a
// tentative descriptor classification.
func BuildVariableInventory(instructions []spirv.Instruction, types *TypeRegistry, decos *DecorationTable) (*VariableInventory, error) {
	inv := &VariableInventory{byID: make(map[uint32]*Variable)}

	for i, inst := range instructions {
		if inst.Opcode != spirv.OpVariable {
			continue
		}
		if len(inst.Words) < 3 {
			return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpVariable missing operands")
		}
		ptrTypeID := inst.Words[0]
		id := inst.Words[1]
		sc := spirv.StorageClass(inst.Words[2])

		// Function-scope variables (SPIR-V allows OpVariable inside a
		// function body too, always with StorageClassFunction) are not
		// part of the module-scope inventory the reflector cares
		// about; a global OpVariable never uses that storage class.
		if sc == spirv.StorageClassFunction {
			continue
		}

		var pointee uint32
		if ptrType := types.Lookup(ptrTypeID); ptrType != nil {
			if p, ok := ptrType.Inner.(PointerType); ok {
				pointee = p.Pointee
			}
		}

		v := &Variable{ID: id, StorageClass: sc, Type: pointee}
		if name, ok := decos.Names[id]; ok {
			v.Name = name
		}
		if ops, ok := decos.Get(id, spirv.DecorationDescriptorSet); ok && len(ops) > 0 {
			s := ops[0]
			v.Set = &s
		}
		if ops, ok := decos.Get(id, spirv.DecorationBinding); ok && len(ops) > 0 {
			b := ops[0]
			v.Binding = &b
		}
		if ops, ok := decos.Get(id, spirv.DecorationInputAttachmentIndex); ok && len(ops) > 0 {
			a := ops[0]
			v.InputAttachmentIndex = &a
		}
		if ops, ok := decos.Get(id, spirv.DecorationLocation); ok && len(ops) > 0 {
			l := ops[0]
			v.Location = &l
		}
		if ops, ok := decos.Get(id, spirv.DecorationComponent); ok && len(ops) > 0 {
			c := ops[0]
			v.Component = &c
		}
		if ops, ok := decos.Get(id, spirv.DecorationBuiltIn); ok && len(ops) > 0 {
			b := spirv.BuiltIn(ops[0])
			v.BuiltIn = &b
		}
		v.NonReadable = decos.Has(id, spirv.DecorationNonReadable)
		v.NonWritable = decos.Has(id, spirv.DecorationNonWritable)

		// Descriptor arrays (SPV_EXT_descriptor_indexing): a
		// UniformConstant variable's pointee may be an OpTypeArray or
		// OpTypeRuntimeArray of the actual resource type. Unwrap it
		// before classification so e.g. `sampler2D tex[4]` still
		// resolves to CombinedImageSampler, and surface the array length (or
		// nil for a runtime array) as the descriptor's count.
		v.ElemType = v.Type
		if v.StorageClass == spirv.StorageClassUniformConstant {
			if arrTy := types.Lookup(v.Type); arrTy != nil {
				if arr, ok := arrTy.Inner.(ArrayType); ok {
					v.ElemType = arr.Elem
					v.Count = arr.Count
				}
			}
		}

		v.Descriptor = classifyDescriptor(v, types, decos)

		inv.byID[id] = v
		inv.order = append(inv.order, id)
	}

	return inv, nil
}

// ClampAccess masks a raw computed access mode against what v's
// NonReadable/NonWritable decorations permit: a NonWritable variable
// never reports a write (so readonly-qualified storage images/buffers
// report ReadOnly regardless of what the function body happens to do),
// and likewise NonReadable clears the read bit. The atomic bit is left
// alone — it records atomicity, not direction.
func (v *Variable) ClampAccess(mode AccessMode) AccessMode {
	if v.NonReadable {
		mode &^= AccessRead
	}
	if v.NonWritable {
		mode &^= AccessWrite
	}
	return mode
}

// classifyDescriptor derives a DescriptorKind from a variable's storage
// class, pointee type, and decorations, per the data model's
// (storage_class, pointee, decoration) table.
func classifyDescriptor(v *Variable, types *TypeRegistry, decos *DecorationTable) DescriptorKind {
	pointee := types.Lookup(v.Type)
	if v.StorageClass == spirv.StorageClassUniformConstant {
		pointee = types.Lookup(v.ElemType)
	}

	switch v.StorageClass {
	case spirv.StorageClassPushConstant:
		return DescriptorPushConstant

	case spirv.StorageClassUniform:
		if pointee != nil {
			if _, ok := pointee.Inner.(StructType); ok {
				// A Uniform-class struct decorated BufferBlock (rather
				// than Block) is the legacy pre-SPIR-V-1.3 spelling of
				// a storage buffer.
				if decos.Has(pointee.ID, spirv.DecorationBufferBlock) {
					return DescriptorStorageBuffer
				}
				return DescriptorUniformBuffer
			}
		}
		return DescriptorNone

	case spirv.StorageClassStorageBuffer:
		if pointee != nil {
			if _, ok := pointee.Inner.(StructType); ok {
				return DescriptorStorageBuffer
			}
		}
		return DescriptorNone

	case spirv.StorageClassUniformConstant:
		if pointee == nil {
			return DescriptorNone
		}
		switch t := pointee.Inner.(type) {
		case SampledImageType:
			return DescriptorCombinedImageSampler
		case ImageType:
			if t.Dim == spirv.DimSubpassData {
				return DescriptorInputAttachment
			}
			if t.Sampled == 2 {
				return DescriptorStorageImage
			}
			return DescriptorSampledImage
		case SamplerType:
			return DescriptorSampler
		case AccelerationStructureType:
			return DescriptorAccelerationStructure
		}
	}
	return DescriptorNone
}
