package process

import "testing"

func TestParseProgram(t *testing.T) {
	src := `DECLARE x 5; ADD x x y; WRITE 0x100 42; READ y 0x100; PRINT x; SUBTRACT x x y`
	program, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	wantOps := []Opcode{OpDeclare, OpAdd, OpWrite, OpRead, OpPrint, OpSubtract}
	if len(program) != len(wantOps) {
		t.Fatalf("got %d instructions, want %d", len(program), len(wantOps))
	}
	for i, op := range wantOps {
		if program[i].Op != op {
			t.Errorf("instruction %d: op = %v, want %v", i, program[i].Op, op)
		}
	}

	write := program[2]
	if write.Args[0].Kind != ValueAddress || write.Args[0].Address != 0x100 {
		t.Errorf("WRITE address arg = %+v, want address 0x100", write.Args[0])
	}
	if write.Args[1].Kind != ValueLiteral || write.Args[1].Literal != 42 {
		t.Errorf("WRITE value arg = %+v, want literal 42", write.Args[1])
	}
}

func TestParseProgramRejections(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty program", "  ;  ; "},
		{"unknown mnemonic", "NOOP"},
		{"sleep not a user mnemonic", "SLEEP 5"},
		{"declare missing value", "DECLARE x"},
		{"declare target literal", "DECLARE 5 5"},
		{"add wrong arity", "ADD x y"},
		{"read needs hex address", "READ x 256"},
		{"write needs hex address", "WRITE x 5"},
		{"literal overflow", "DECLARE x 70000"},
		{"bad hex", "WRITE 0xZZ 5"},
		{"bad symbol", "DECLARE a-b 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProgram(tt.src); err == nil {
				t.Errorf("ParseProgram(%q) accepted a bad program", tt.src)
			}
		})
	}
}

func TestParseValueForms(t *testing.T) {
	program, err := ParseProgram("PRINT result 0x20 7")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	args := program[0].Args
	if args[0].Kind != ValueSymbol || args[0].Symbol != "result" {
		t.Errorf("arg 0 = %+v, want symbol result", args[0])
	}
	if args[1].Kind != ValueAddress || args[1].Address != 0x20 {
		t.Errorf("arg 1 = %+v, want address 0x20", args[1])
	}
	if args[2].Kind != ValueLiteral || args[2].Literal != 7 {
		t.Errorf("arg 2 = %+v, want literal 7", args[2])
	}
}
