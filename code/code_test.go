package code

import "testing"

func TestMakeEncodesOperandWidths(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{LdStr, []int{65534}, []byte{byte(LdStr), 255, 254}},
		{Call, []int{3}, []byte{byte(Call), 3}},
		{LdNull, nil, []byte{byte(LdNull)}},
	}
	for _, tt := range tests {
		got := Make(tt.op, tt.operands...)
		if len(got) != len(tt.expected) {
			t.Fatalf("instruction has wrong length, want %d got %d", len(tt.expected), len(got))
		}
		for i, b := range tt.expected {
			if got[i] != b {
				t.Fatalf("byte %d: want %d, got %d", i, b, got[i])
			}
		}
	}
}

func TestReadOperandsRoundTrip(t *testing.T) {
	instr := Make(LdX, 2, 513)
	def, err := Lookup(byte(LdX))
	if err != nil {
		t.Fatal(err)
	}
	operands, n := ReadOperands(def, instr[1:])
	if n != 3 {
		t.Fatalf("expected 3 bytes read, got %d", n)
	}
	if operands[0] != 2 || operands[1] != 513 {
		t.Fatalf("expected [2 513], got %v", operands)
	}
}

func TestInstructionsString(t *testing.T) {
	ins := Instructions{}
	ins = append(ins, Make(Ld32, 1)...)
	ins = append(ins, Make(Ld32, 2)...)
	ins = append(ins, Make(Met1, 3)...)
	ins = append(ins, Make(Ret)...)

	out := ins.String()
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}

func TestByteCodeSegmentSourceLocationCoverage(t *testing.T) {
	seg := NewByteCodeSegment()
	off1 := seg.Append(Make(Ld32, 1), 0)
	off2 := seg.Append(Make(Ret), 1)

	if _, ok := seg.SourceLocations[off1]; !ok {
		t.Fatal("first instruction missing a source-location entry")
	}
	if _, ok := seg.SourceLocations[off2]; !ok {
		t.Fatal("second instruction missing a source-location entry")
	}
}
