package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// ErrZeroLengthInstruction is wrapped into the error decodeInstructions
// returns for a word-count-0 instruction header: a structurally
// impossible shape (every SPIR-V instruction's length field includes
// the opcode word itself, so it can never be zero), not merely a
// truncated or otherwise corrupted one. Callers can errors.Is against
// it to distinguish the two.
var ErrZeroLengthInstruction = errors.New("spirv: zero-length instruction")

// Header holds the five fixed words at the start of every SPIR-V module.
type Header struct {
	Version   Version
	Generator uint32
	Bound     uint32 // one past the highest ID used in the module
	Schema    uint32
}

// Stream is the decoded form of a SPIR-V binary: a header plus the
// ordered sequence of instructions that followed it. Decode does not
// interpret what any instruction means; it only recovers instruction
// boundaries from the packed word stream.
type Stream struct {
	Header       Header
	Instructions []Instruction
}

const headerWordCount = 5

// Decode parses a raw SPIR-V binary into a Stream. It detects and
// corrects for byte-swapped input (the magic number read backwards),
// validates the header, and walks the instruction stream, returning an
// error the moment an instruction's word count is structurally
// inconsistent. Opcode values are not checked.
// It does not validate the SPIR-V module semantically — that is the
// reflect package's job.
func Decode(data []byte) (*Stream, error) {
	if len(data) < headerWordCount*4 {
		return nil, fmt.Errorf("spirv: binary too short for header: %d bytes", len(data))
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("spirv: binary length %d is not a multiple of 4", len(data))
	}

	order, err := detectByteOrder(data)
	if err != nil {
		return nil, err
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4 : i*4+4])
	}

	header := Header{
		Version:   wordToVersion(words[1]),
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}

	instructions, err := decodeInstructions(words[headerWordCount:])
	if err != nil {
		return nil, err
	}

	return &Stream{Header: header, Instructions: instructions}, nil
}

// detectByteOrder reads the magic number and returns the binary.ByteOrder
// that makes it equal MagicNumber, swapping if the file was produced on
// a machine of the opposite endianness.
func detectByteOrder(data []byte) (binary.ByteOrder, error) {
	le := binary.LittleEndian.Uint32(data[0:4])
	if le == MagicNumber {
		return binary.LittleEndian, nil
	}
	if bits.ReverseBytes32(le) == MagicNumber {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("spirv: invalid magic number 0x%08x", le)
}

func wordToVersion(word uint32) Version {
	return Version{
		Major: uint8(word >> 16),
		Minor: uint8(word >> 8),
	}
}

// decodeInstructions walks the word stream following the header,
// slicing out one Instruction per iteration based on the length
// encoded in the opcode word's high 16 bits.
func decodeInstructions(words []uint32) ([]Instruction, error) {
	var instructions []Instruction
	offset := 0
	for offset < len(words) {
		opWord := words[offset]
		wordCount := int(opWord >> 16)
		opcode := OpCode(opWord & 0xffff)
		if wordCount == 0 {
			return nil, fmt.Errorf("%w at word %d", ErrZeroLengthInstruction, offset+headerWordCount)
		}
		if offset+wordCount > len(words) {
			return nil, fmt.Errorf("spirv: instruction at word %d (opcode %d) overruns stream: needs %d words, %d remain",
				offset+headerWordCount, opcode, wordCount, len(words)-offset)
		}
		operands := make([]uint32, wordCount-1)
		copy(operands, words[offset+1:offset+wordCount])
		instructions = append(instructions, Instruction{Opcode: opcode, Words: operands})
		offset += wordCount
	}
	return instructions, nil
}

// ReadString decodes a NUL-terminated, 4-byte-packed UTF-8 string from
// the start of words, returning the string and the number of words it
// consumed. This is the mirror image of InstructionBuilder.AddString.
func ReadString(words []uint32) (string, int, error) {
	var raw []byte
	for i, word := range words {
		b := [4]byte{
			byte(word),
			byte(word >> 8),
			byte(word >> 16),
			byte(word >> 24),
		}
		terminated := false
		for _, c := range b {
			if c == 0 {
				terminated = true
				break
			}
			raw = append(raw, c)
		}
		if terminated {
			return string(raw), i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("spirv: unterminated string literal in %d operand words", len(words))
}
