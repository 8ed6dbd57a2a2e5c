// Package disasm renders CHIP-8 instruction words as assembler mnemonics for
// trace logging. Words are matched against the retrogolib opcode table; a
// word outside the instruction set renders as a raw data word.
package disasm

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Mnemonic returns the assembler form of an instruction word, like
// "jp $228" or "add V2, V3". Unrecognized words come back as ".dw $XXXX".
func Mnemonic(word uint16) string {
	op, ok := lookup(word)
	if !ok {
		return fmt.Sprintf(".dw $%04X", word)
	}

	name := op.Instruction.Name
	if params := formatParams(name, word); params != "" {
		return name + " " + params
	}

	return name
}

// lookup scans the opcode bucket for the word's first nibble and returns the
// entry whose mask and value match.
func lookup(word uint16) (chip8.Opcode, bool) {
	firstNibble := (word & 0xF000) >> 12
	for _, op := range chip8.Opcodes[int(firstNibble)] {
		if op.Info.Mask&word == op.Info.Value {
			if op.Instruction == nil {
				return chip8.Opcode{}, false
			}
			return op, true
		}
	}

	return chip8.Opcode{}, false
}

// formatParams renders the operand list for an instruction word. Several
// mnemonics cover multiple encodings (ld spans 6XNN, 8XY0, ANNN and the FX
// loads), so the encoding picks the operand shape.
func formatParams(name string, word uint16) string {
	x := (word & 0x0F00) >> 8
	y := (word & 0x00F0) >> 4

	switch name {
	case chip8.JpName:
		if word&0xF000 == 0xB000 {
			return fmt.Sprintf("V0, $%03X", word&0x0FFF)
		}
		return fmt.Sprintf("$%03X", word&0x0FFF)

	case chip8.CallName:
		return fmt.Sprintf("$%03X", word&0x0FFF)

	case chip8.SeName, chip8.SneName:
		if word&0xF000 == 0x5000 || word&0xF000 == 0x9000 {
			return fmt.Sprintf("V%X, V%X", x, y)
		}
		return fmt.Sprintf("V%X, $%02X", x, word&0x00FF)

	case chip8.LdName:
		return formatLoad(word, x, y)

	case chip8.AddName:
		switch word & 0xF000 {
		case 0x7000:
			return fmt.Sprintf("V%X, $%02X", x, word&0x00FF)
		case 0x8000:
			return fmt.Sprintf("V%X, V%X", x, y)
		}
		return fmt.Sprintf("I, V%X", x)

	case chip8.OrName, chip8.AndName, chip8.XorName, chip8.SubName, chip8.SubnName:
		return fmt.Sprintf("V%X, V%X", x, y)

	case chip8.ShrName, chip8.ShlName, chip8.SkpName, chip8.SknpName:
		return fmt.Sprintf("V%X", x)

	case chip8.RndName:
		return fmt.Sprintf("V%X, $%02X", x, word&0x00FF)

	case chip8.DrwName:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, word&0x000F)
	}

	return ""
}

func formatLoad(word, x, y uint16) string {
	switch word & 0xF000 {
	case 0x6000:
		return fmt.Sprintf("V%X, $%02X", x, word&0x00FF)
	case 0x8000:
		return fmt.Sprintf("V%X, V%X", x, y)
	case 0xA000:
		return fmt.Sprintf("I, $%03X", word&0x0FFF)
	}

	switch word & 0xF0FF {
	case 0xF007:
		return fmt.Sprintf("V%X, DT", x)
	case 0xF00A:
		return fmt.Sprintf("V%X, K", x)
	case 0xF015:
		return fmt.Sprintf("DT, V%X", x)
	case 0xF018:
		return fmt.Sprintf("ST, V%X", x)
	case 0xF029:
		return fmt.Sprintf("F, V%X", x)
	case 0xF033:
		return fmt.Sprintf("B, V%X", x)
	case 0xF055:
		return fmt.Sprintf("[I], V%X", x)
	case 0xF065:
		return fmt.Sprintf("V%X, [I]", x)
	}

	return ""
}
