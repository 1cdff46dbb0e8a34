package process

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseProgram turns a user-supplied program string into instructions.
// Statements are separated by ';'. Arguments are bareword symbols, decimal
// 16-bit literals, or 0xNNNN raw virtual addresses. Bad programs are rejected
// here, at the shell boundary, and never reach the core.
func ParseProgram(src string) ([]Instruction, error) {
	var program []Instruction
	for i, stmt := range strings.Split(src, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		instr, err := parseStatement(stmt)
		if err != nil {
			return nil, fmt.Errorf("statement %d (%q): %w", i+1, stmt, err)
		}
		program = append(program, instr)
	}
	if len(program) == 0 {
		return nil, fmt.Errorf("program is empty")
	}
	return program, nil
}

func parseStatement(stmt string) (Instruction, error) {
	fields := strings.Fields(stmt)
	mnemonic := strings.ToUpper(fields[0])

	args := make([]Value, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		v, err := parseValue(tok)
		if err != nil {
			return Instruction{}, err
		}
		args = append(args, v)
	}

	switch mnemonic {
	case "PRINT":
		return Instruction{Op: OpPrint, Args: args}, nil

	case "DECLARE":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("DECLARE takes a variable and a value, got %d args", len(args))
		}
		if args[0].Kind != ValueSymbol {
			return Instruction{}, fmt.Errorf("DECLARE target must be a variable name")
		}
		return Instruction{Op: OpDeclare, Args: args}, nil

	case "ADD", "SUBTRACT":
		if len(args) != 3 {
			return Instruction{}, fmt.Errorf("%s takes a destination and two operands, got %d args", mnemonic, len(args))
		}
		if args[0].Kind != ValueSymbol {
			return Instruction{}, fmt.Errorf("%s destination must be a variable name", mnemonic)
		}
		op := OpAdd
		if mnemonic == "SUBTRACT" {
			op = OpSubtract
		}
		return Instruction{Op: op, Args: args}, nil

	case "READ":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("READ takes a variable and an address, got %d args", len(args))
		}
		if args[0].Kind != ValueSymbol {
			return Instruction{}, fmt.Errorf("READ target must be a variable name")
		}
		if args[1].Kind != ValueAddress {
			return Instruction{}, fmt.Errorf("READ source must be a hex address (0xNNNN)")
		}
		return Instruction{Op: OpRead, Args: args}, nil

	case "WRITE":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("WRITE takes an address and a value, got %d args", len(args))
		}
		if args[0].Kind != ValueAddress {
			return Instruction{}, fmt.Errorf("WRITE target must be a hex address (0xNNNN)")
		}
		return Instruction{Op: OpWrite, Args: args}, nil
	}

	return Instruction{}, fmt.Errorf("unknown mnemonic %q", fields[0])
}

func parseValue(tok string) (Value, error) {
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		addr, err := strconv.ParseInt(tok[2:], 16, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid hex address %q", tok)
		}
		return AddressValue(int32(addr)), nil
	}
	if tok[0] >= '0' && tok[0] <= '9' {
		n, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("invalid 16-bit literal %q", tok)
		}
		return LiteralValue(uint16(n)), nil
	}
	for _, r := range tok {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return Value{}, fmt.Errorf("invalid symbol name %q", tok)
		}
	}
	return SymbolValue(tok), nil
}
