package reflect

import (
	"sort"

	"github.com/gogpu/spirq/spirv"
)

// Descriptor is one binding-table slot: a variable classified into a
// concrete descriptor kind, annotated with the access mode observed for
// it from a specific entry point.
type Descriptor struct {
	Set     uint32
	Binding uint32
	Name    string
	Kind    DescriptorKind
	Type    uint32 // pointee type id
	Access  AccessMode
	// Count is the array length when the variable's pointee is an
	// array of this descriptor kind (e.g. an array of samplers), nil
	// for a scalar binding or a runtime-sized array.
	Count *uint64
}

// IOVariable is one Input/Output interface variable: a stage-boundary
// value carrying a Location/Component pair or a BuiltIn identity.
type IOVariable struct {
	Name      string
	Type      uint32
	Location  *uint32
	Component *uint32
	BuiltIn   *spirv.BuiltIn
}

// PushConstant describes a single push-constant block variable.
type PushConstant struct {
	Name string
	Type uint32
}

// SpecConstant surfaces one specialization constant as seen from the
// entry-point assembler: its declared id, its SpecId decoration, and
// its folded value if FoldSpecializations has run.
type SpecConstant struct {
	ID      uint32
	Name    string
	SpecID  uint32
	Type    uint32
	Default ConstantValue
	Folded  ConstantValue
}

// EntryPoint is the fully assembled reflection record for one
// OpEntryPoint: its execution model and modes, its interface variables
// split into inputs/outputs, its descriptor bindings, push constants,
// and specialization constants — everything components D through F
// produced, combined and deterministically ordered (component G).
type EntryPoint struct {
	Name           string
	FunctionID     uint32
	ExecutionModel spirv.ExecutionModel
	ExecutionModes map[spirv.ExecutionMode][]uint32

	Inputs        []IOVariable
	Outputs       []IOVariable
	Descriptors   []Descriptor
	PushConstants []PushConstant
	SpecConstants []SpecConstant
}

// AssembleEntryPoints builds one EntryPoint per OpEntryPoint
// instruction (component G), combining the variable inventory (E), the
// constant registry (C/D), and the access analysis (F). referenceAll
// short-circuits F's transitive closure and reports every module-scope
// variable as referenced by every entry point — this is the boolean
// the data model's design note says belongs here, not threaded through
// the analyzer itself.
func AssembleEntryPoints(instructions []spirv.Instruction, decos *DecorationTable, types *TypeRegistry, vars *VariableInventory, consts *ConstantRegistry, access *AccessAnalysis, referenceAll bool) ([]*EntryPoint, error) {
	var entryPoints []*EntryPoint

	for i, inst := range instructions {
		switch inst.Opcode {
		case spirv.OpEntryPoint:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpEntryPoint missing operands")
			}
			model := spirv.ExecutionModel(inst.Words[0])
			funcID := inst.Words[1]
			name, consumed, err := spirv.ReadString(inst.Words[2:])
			if err != nil {
				return nil, newErrorAt(CorruptedSpirv, funcID, i, "OpEntryPoint: %v", err)
			}
			interfaceWords := inst.Words[2+consumed:]

			ep := &EntryPoint{
				Name:           name,
				FunctionID:     funcID,
				ExecutionModel: model,
				ExecutionModes: make(map[spirv.ExecutionMode][]uint32),
			}

			referenced := access.ReferencedFrom(funcID, vars.IDs(), referenceAll)

			// The interface list (SPIR-V 1.4+ includes every global
			// variable the entry point touches, pre-1.4 only I/O
			// variables) is a superset hint; access analysis is what
			// actually decides what gets attributed where, so iterate
			// the full variable inventory rather than relying on the
			// interface words being exhaustive or even present.
			_ = interfaceWords

			for _, id := range vars.IDs() {
				v := vars.Lookup(id)
				mode, touched := referenced[id]
				if !touched && !referenceAll {
					continue
				}

				switch v.StorageClass {
				case spirv.StorageClassInput:
					ep.Inputs = append(ep.Inputs, ioVariablesFor(v, types)...)
				case spirv.StorageClassOutput:
					ep.Outputs = append(ep.Outputs, ioVariablesFor(v, types)...)
				case spirv.StorageClassPushConstant:
					ep.PushConstants = append(ep.PushConstants, PushConstant{Name: v.Name, Type: v.Type})
				default:
					if v.Descriptor == DescriptorNone || v.Set == nil || v.Binding == nil {
						continue
					}
					ep.Descriptors = append(ep.Descriptors, Descriptor{
						Set: *v.Set, Binding: *v.Binding, Name: v.Name,
						Kind: v.Descriptor, Type: v.ElemType, Access: v.ClampAccess(mode),
						Count: v.Count,
					})
				}
			}

			for _, id := range consts.IDs() {
				c := consts.Lookup(id)
				if !c.IsSpec {
					continue
				}
				spec, ok := c.Value.(SpecValue)
				if !ok {
					continue
				}
				ep.SpecConstants = append(ep.SpecConstants, SpecConstant{
					ID: c.ID, Name: c.Name, SpecID: spec.SpecID, Type: c.Type,
					Default: spec.Default, Folded: spec.Folded,
				})
			}

			sortEntryPoint(ep)
			entryPoints = append(entryPoints, ep)

		case spirv.OpExecutionMode, spirv.OpExecutionModeId:
			if len(inst.Words) < 2 {
				continue
			}
			target := inst.Words[0]
			mode := spirv.ExecutionMode(inst.Words[1])
			for _, ep := range entryPoints {
				if ep.FunctionID == target {
					ep.ExecutionModes[mode] = append([]uint32{}, inst.Words[2:]...)
				}
			}
		}
	}

	return entryPoints, nil
}

// ioVariablesFor expands one Input/Output OpVariable into its
// reportable interface slots. A block-structured I/O variable (its
// pointee is a Struct) promotes each member carrying its own Location
// decoration to an individual IOVariable rather than reporting the
// block itself as one opaque slot; a plain scalar/vector/matrix
// variable reports itself unchanged.
func ioVariablesFor(v *Variable, types *TypeRegistry) []IOVariable {
	pointee := types.Lookup(v.Type)
	if pointee != nil {
		if st, ok := pointee.Inner.(StructType); ok {
			var vars []IOVariable
			for _, m := range st.Members {
				if m.Location == nil && m.BuiltIn == nil {
					continue
				}
				name := m.Name
				if v.Name != "" {
					name = v.Name + "." + m.Name
				}
				vars = append(vars, IOVariable{
					Name: name, Type: m.Type, Location: m.Location,
					Component: m.Component, BuiltIn: m.BuiltIn,
				})
			}
			return vars
		}
	}
	return []IOVariable{{
		Name: v.Name, Type: v.Type, Location: v.Location,
		Component: v.Component, BuiltIn: v.BuiltIn,
	}}
}

// sortEntryPoint imposes the deterministic ordering the data model
// requires: descriptors by (set, binding), I/O variables by
// (location, component) with unlocated variables (pure BuiltIns)
// trailing in declaration order.
func sortEntryPoint(ep *EntryPoint) {
	sort.SliceStable(ep.Descriptors, func(i, j int) bool {
		a, b := ep.Descriptors[i], ep.Descriptors[j]
		if a.Set != b.Set {
			return a.Set < b.Set
		}
		return a.Binding < b.Binding
	})
	sort.SliceStable(ep.Inputs, ioLess(ep.Inputs))
	sort.SliceStable(ep.Outputs, ioLess(ep.Outputs))
}

func ioLess(vars []IOVariable) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := vars[i], vars[j]
		if a.Location == nil && b.Location == nil {
			return false
		}
		if a.Location == nil {
			return false
		}
		if b.Location == nil {
			return true
		}
		if *a.Location != *b.Location {
			return *a.Location < *b.Location
		}
		ac, bc := uint32(0), uint32(0)
		if a.Component != nil {
			ac = *a.Component
		}
		if b.Component != nil {
			bc = *b.Component
		}
		return ac < bc
	}
}
