package reflect

import "github.com/gogpu/spirq/spirv"

// DecorationTable is the queryable side table built by one forward scan
// over the instruction stream (component B). Later passes never re-scan
// the stream for decorations; they query this table by id.
type DecorationTable struct {
	Names       map[uint32]string
	MemberNames map[uint32]map[uint32]string

	Decorations       map[uint32]map[spirv.Decoration][]uint32
	MemberDecorations map[uint32]map[uint32]map[spirv.Decoration][]uint32

	// groups maps a DecorationGroup id to the decorations it carries,
	// collected so OpGroupDecorate/OpGroupMemberDecorate can expand
	// them onto their targets at scan time.
	groups map[uint32]map[spirv.Decoration][]uint32
}

func newDecorationTable() *DecorationTable {
	return &DecorationTable{
		Names:             make(map[uint32]string),
		MemberNames:       make(map[uint32]map[uint32]string),
		Decorations:       make(map[uint32]map[spirv.Decoration][]uint32),
		MemberDecorations: make(map[uint32]map[uint32]map[spirv.Decoration][]uint32),
		groups:            make(map[uint32]map[spirv.Decoration][]uint32),
	}
}

// BuildDecorationTable performs the single forward scan component B
// requires, collecting names, member names, decorations, member
// decorations, and expanding decoration groups onto their targets.
func BuildDecorationTable(instructions []spirv.Instruction) (*DecorationTable, error) {
	table := newDecorationTable()

	// Pass 1: collect direct decorations and groups. OpGroupDecorate
	// can reference a group declared earlier or later relative to the
	// group's own OpDecorate instructions are always declared on the
	// group id before it is used, per the SPIR-V layout rules, but
	// OpGroupDecorate/OpGroupMemberDecorate may appear in either order
	// relative to each other, so expansion is a second pass.
	type groupUse struct {
		group   uint32
		targets []uint32
	}
	type groupMemberUse struct {
		group   uint32
		targets []struct {
			id     uint32
			member uint32
		}
	}
	var groupUses []groupUse
	var groupMemberUses []groupMemberUse
	groupIDs := make(map[uint32]bool)

	for i, inst := range instructions {
		switch inst.Opcode {
		case spirv.OpName:
			if len(inst.Words) < 1 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpName missing target operand")
			}
			name, _, err := spirv.ReadString(inst.Words[1:])
			if err != nil {
				return nil, newErrorAt(CorruptedSpirv, inst.Words[0], i, "OpName: %v", err)
			}
			table.Names[inst.Words[0]] = name

		case spirv.OpMemberName:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpMemberName missing operands")
			}
			id, member := inst.Words[0], inst.Words[1]
			name, _, err := spirv.ReadString(inst.Words[2:])
			if err != nil {
				return nil, newErrorAt(CorruptedSpirv, id, i, "OpMemberName: %v", err)
			}
			if table.MemberNames[id] == nil {
				table.MemberNames[id] = make(map[uint32]string)
			}
			table.MemberNames[id][member] = name

		case spirv.OpDecorate, spirv.OpDecorateId:
			if len(inst.Words) < 2 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpDecorate missing operands")
			}
			target := inst.Words[0]
			deco := spirv.Decoration(inst.Words[1])
			operands := append([]uint32{}, inst.Words[2:]...)
			addDecoration(table.Decorations, target, deco, operands)

		case spirv.OpMemberDecorate:
			if len(inst.Words) < 3 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpMemberDecorate missing operands")
			}
			target, member := inst.Words[0], inst.Words[1]
			deco := spirv.Decoration(inst.Words[2])
			operands := append([]uint32{}, inst.Words[3:]...)
			if table.MemberDecorations[target] == nil {
				table.MemberDecorations[target] = make(map[uint32]map[spirv.Decoration][]uint32)
			}
			if table.MemberDecorations[target][member] == nil {
				table.MemberDecorations[target][member] = make(map[spirv.Decoration][]uint32)
			}
			table.MemberDecorations[target][member][deco] = operands

		case spirv.OpDecorationGroup:
			if len(inst.Words) < 1 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpDecorationGroup missing result id")
			}
			groupIDs[inst.Words[0]] = true
			if table.groups[inst.Words[0]] == nil {
				table.groups[inst.Words[0]] = make(map[spirv.Decoration][]uint32)
			}

		case spirv.OpGroupDecorate:
			if len(inst.Words) < 1 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpGroupDecorate missing group operand")
			}
			group := inst.Words[0]
			targets := append([]uint32{}, inst.Words[1:]...)
			groupUses = append(groupUses, groupUse{group: group, targets: targets})

		case spirv.OpGroupMemberDecorate:
			if len(inst.Words) < 1 {
				return nil, newErrorAt(UnsupportedSpirv, 0, i, "OpGroupMemberDecorate missing group operand")
			}
			group := inst.Words[0]
			rest := inst.Words[1:]
			var use groupMemberUse
			use.group = group
			for j := 0; j+1 < len(rest); j += 2 {
				use.targets = append(use.targets, struct {
					id     uint32
					member uint32
				}{id: rest[j], member: rest[j+1]})
			}
			groupMemberUses = append(groupMemberUses, use)
		}
	}

	// Decorations applied directly to a group id (via OpDecorate
	// targeting the group) become the group's contents.
	for target, decos := range table.Decorations {
		if groupIDs[target] {
			for deco, operands := range decos {
				table.groups[target][deco] = operands
			}
		}
	}

	// Pass 2: expand group decorations onto their targets.
	for _, use := range groupUses {
		contents := table.groups[use.group]
		for _, target := range use.targets {
			for deco, operands := range contents {
				addDecoration(table.Decorations, target, deco, operands)
			}
		}
	}
	for _, use := range groupMemberUses {
		contents := table.groups[use.group]
		for _, target := range use.targets {
			if table.MemberDecorations[target.id] == nil {
				table.MemberDecorations[target.id] = make(map[uint32]map[spirv.Decoration][]uint32)
			}
			if table.MemberDecorations[target.id][target.member] == nil {
				table.MemberDecorations[target.id][target.member] = make(map[spirv.Decoration][]uint32)
			}
			for deco, operands := range contents {
				table.MemberDecorations[target.id][target.member][deco] = operands
			}
		}
	}

	return table, nil
}

func addDecoration(into map[uint32]map[spirv.Decoration][]uint32, target uint32, deco spirv.Decoration, operands []uint32) {
	if into[target] == nil {
		into[target] = make(map[spirv.Decoration][]uint32)
	}
	into[target][deco] = operands
}

// Has reports whether id carries the given decoration.
func (t *DecorationTable) Has(id uint32, deco spirv.Decoration) bool {
	_, ok := t.Decorations[id][deco]
	return ok
}

// Get returns the operands of a decoration on id, if present.
func (t *DecorationTable) Get(id uint32, deco spirv.Decoration) ([]uint32, bool) {
	operands, ok := t.Decorations[id][deco]
	return operands, ok
}

// MemberHas reports whether member of struct id carries the given
// decoration.
func (t *DecorationTable) MemberHas(id, member uint32, deco spirv.Decoration) bool {
	_, ok := t.MemberDecorations[id][member][deco]
	return ok
}

// MemberGet returns the operands of a member decoration, if present.
func (t *DecorationTable) MemberGet(id, member uint32, deco spirv.Decoration) ([]uint32, bool) {
	operands, ok := t.MemberDecorations[id][member][deco]
	return operands, ok
}
