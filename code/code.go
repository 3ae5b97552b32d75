// Package code defines Smile's bytecode instruction set: the opcode
// enumeration, instruction encoding/decoding, and the linear
// [ByteCodeSegment] the compiler's linearization pass produces.
//
// Every instruction is (opcode, operand-union, source-location-index).
// Operands are untagged — which union arm is live is determined entirely
// by the opcode, the same convention the teacher's bytecode format uses,
// just with Smile's much larger opcode set. The source-location index is not
// encoded in the instruction bytes; [ByteCodeSegment] keeps it alongside, in
// SourceLocations.
package code

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a slice of bytes representing a sequence of instructions.
type Instructions []byte

// Opcode identifies one bytecode operation.
type Opcode byte

//nolint:revive
const (
	Nop Opcode = iota
	Dup1
	Dup2
	Pop1
	Pop2

	LdNull
	LdBool
	LdStr // operand: string-pool index (2 bytes)
	LdObj // operand: constant-object-pool index (2 bytes)
	Ld8
	Ld16
	Ld32
	Ld64

	LdLoc  // operand: index (2 bytes)
	LdLoc0 // no operand — short form of LdLoc for local index 0 (LdLoc1..3 likewise)
	LdLoc1
	LdLoc2
	LdLoc3
	LdArg // operand: index (2 bytes)
	LdArg0
	LdArg1
	LdArg2
	LdArg3
	LdX // deep load: operands scope-depth (1 byte), index (2 bytes)
	StX // deep store: operands scope-depth (1 byte), index (2 bytes)

	StLoc
	StArg
	StGlobal  // operand: symbol id (2 bytes, via a symbol constant slot)
	LdGlobal  // operand: string-pool index of the name (2 bytes), not a symbol id
	LdProp    // operand: string-pool index of the name (2 bytes), not a symbol id
	StProp    // operand: string-pool index of the name (2 bytes), not a symbol id
	StpProp   // operand: string-pool index of the name (2 bytes), not a symbol id; no-result store
	LdMember
	StMember
	StpMember

	LdA
	LdD
	LdStart
	LdEnd
	LdCount
	LdLength

	Met0 // operand: string-pool index of the method name (2 bytes), not a symbol id
	Met1
	MetN // operands: string-pool index of the method name (2 bytes), arg count (1 byte)

	Call  // operand: arg count (1 byte)
	TCall // tail call; operand: arg count (1 byte)
	Ret
	Ret0

	Jmp   // operand: absolute pc (2 bytes)
	Bt
	Bf
	BtJmp
	BfJmp
	Label // pseudo-opcode: erased at linearization, never appears in a finished segment

	Not
	Is
	TypeOf
	SuperEq
	SuperNe

	NewTill   // operand: till-continuation-info index (2 bytes)
	TillEsc   // operands: till-info index (2 bytes), flag offset (1 byte)
	NewObject
	NewFn     // operand: user-function-info index (2 bytes)
	NullLoc0  // operand: local index (2 bytes); initializes a $scope var to Null
)

// Definition names an Opcode and the byte width of each of its operands, in
// encoding order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	Nop:  {"Nop", nil},
	Dup1: {"Dup1", nil},
	Dup2: {"Dup2", nil},
	Pop1: {"Pop1", nil},
	Pop2: {"Pop2", nil},

	LdNull: {"LdNull", nil},
	LdBool: {"LdBool", []int{1}},
	LdStr:  {"LdStr", []int{2}},
	LdObj:  {"LdObj", []int{2}},
	Ld8:    {"Ld8", []int{1}},
	Ld16:   {"Ld16", []int{2}},
	Ld32:   {"Ld32", []int{4}},
	Ld64:   {"Ld64", []int{8}},

	LdLoc:  {"LdLoc", []int{2}},
	LdLoc0: {"LdLoc0", nil},
	LdLoc1: {"LdLoc1", nil},
	LdLoc2: {"LdLoc2", nil},
	LdLoc3: {"LdLoc3", nil},
	LdArg:  {"LdArg", []int{2}},
	LdArg0: {"LdArg0", nil},
	LdArg1: {"LdArg1", nil},
	LdArg2: {"LdArg2", nil},
	LdArg3: {"LdArg3", nil},
	LdX:    {"LdX", []int{1, 2}},
	StX:    {"StX", []int{1, 2}},

	StLoc:     {"StLoc", []int{2}},
	StArg:     {"StArg", []int{2}},
	StGlobal:  {"StGlobal", []int{2}},
	LdGlobal:  {"LdGlobal", []int{2}},
	LdProp:    {"LdProp", []int{2}},
	StProp:    {"StProp", []int{2}},
	StpProp:   {"StpProp", []int{2}},
	LdMember:  {"LdMember", nil},
	StMember:  {"StMember", nil},
	StpMember: {"StpMember", nil},

	LdA:      {"LdA", nil},
	LdD:      {"LdD", nil},
	LdStart:  {"LdStart", nil},
	LdEnd:    {"LdEnd", nil},
	LdCount:  {"LdCount", nil},
	LdLength: {"LdLength", nil},

	Met0: {"Met0", []int{2}},
	Met1: {"Met1", []int{2}},
	MetN: {"MetN", []int{2, 1}},

	Call:  {"Call", []int{1}},
	TCall: {"TCall", []int{1}},
	Ret:   {"Ret", nil},
	Ret0:  {"Ret0", nil},

	Jmp:   {"Jmp", []int{2}},
	Bt:    {"Bt", []int{2}},
	Bf:    {"Bf", []int{2}},
	BtJmp: {"BtJmp", []int{2}},
	BfJmp: {"BfJmp", []int{2}},
	Label: {"Label", nil},

	Not:     {"Not", nil},
	Is:      {"Is", nil},
	TypeOf:  {"TypeOf", nil},
	SuperEq: {"SuperEq", nil},
	SuperNe: {"SuperNe", nil},

	NewTill:   {"NewTill", []int{2}},
	TillEsc:   {"TillEsc", []int{2, 1}},
	NewObject: {"NewObject", nil},
	NewFn:     {"NewFn", []int{2}},
	NullLoc0:  {"NullLoc0", []int{2}},
}

// Lookup returns the Definition for op.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("code: opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes one instruction (opcode plus operands) into bytes.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}
	instruction := make([]byte, length)
	instruction[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(operand))
		case 8:
			binary.BigEndian.PutUint64(instruction[offset:], uint64(operand))
		}
		offset += width
	}
	return instruction
}

// ReadOperands decodes the operands of one instruction (not including its
// leading opcode byte) per def, returning the operand values and the
// number of bytes consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 4:
			operands[i] = int(binary.BigEndian.Uint32(ins[offset:]))
		case 8:
			operands[i] = int(binary.BigEndian.Uint64(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}

// ReadUint16 decodes the first two bytes of ins as a big-endian uint16.
func ReadUint16(ins Instructions) uint16 { return binary.BigEndian.Uint16(ins) }

// ReadUint8 returns the first byte of ins.
func ReadUint8(ins Instructions) uint8 { return ins[0] }

// String renders ins as a human-readable disassembly listing, one
// instruction per line prefixed with its byte offset.
func (ins Instructions) String() string {
	var out strings.Builder
	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			_, _ = fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		_, _ = fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += read + 1
	}
	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	default:
		return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
	}
}

// ByteCodeSegment is the compiler's final linearized output for one
// function: its instruction bytes, plus one source-location-pool index per
// instruction, indexed in parallel to where each instruction begins.
type ByteCodeSegment struct {
	Instructions Instructions

	// SourceLocations maps each instruction's starting byte offset within
	// Instructions to its index into the owning CompiledTables'
	// source-location pool. Every offset that begins an instruction has an
	// entry — spec.md §8's "source-location coverage" invariant.
	SourceLocations map[int]int32
}

// NewByteCodeSegment creates an empty segment ready for Append.
func NewByteCodeSegment() *ByteCodeSegment {
	return &ByteCodeSegment{SourceLocations: make(map[int]int32)}
}

// Append appends one already-encoded instruction, recording its
// source-location index, and returns the byte offset it was written at.
func (seg *ByteCodeSegment) Append(instr []byte, sourceLocation int32) int {
	offset := len(seg.Instructions)
	seg.Instructions = append(seg.Instructions, instr...)
	seg.SourceLocations[offset] = sourceLocation
	return offset
}

// Len returns the segment's current length in bytes.
func (seg *ByteCodeSegment) Len() int { return len(seg.Instructions) }
