package vm

import "fmt"

// operation is a decoded instruction: a dispatch kind plus whichever of the
// X/Y/NN/NNN operand fields its encoding carries. Unused fields stay zero.
type operation struct {
	kind kind
	x    uint8
	y    uint8
	nn   uint8
	nnn  uint16
}

type kind uint8

const (
	opNop     kind = iota // 0000 - no-op
	opCls                 // 00E0 - clear screen
	opRts                 // 00EE - return from subroutine
	opJmp                 // 1NNN - jump to NNN
	opJsr                 // 2NNN - call subroutine at NNN
	opSkeqImm             // 3XNN - skip if VX equals NN
	opSkneImm             // 4XNN - skip if VX does not equal NN
	opSkeqReg             // 5XY0 - skip if VX equals VY
	opMovImm              // 6XNN - set VX to NN
	opAddImm              // 7XNN - add NN to VX, no carry
	opMovReg              // 8XY0 - set VX to VY
	opOr                  // 8XY1 - set VX to VX OR VY
	opAnd                 // 8XY2 - set VX to VX AND VY
	opXor                 // 8XY3 - set VX to VX XOR VY
	opAddReg              // 8XY4 - add VY to VX, carry in VF
)

// decode maps an instruction word to an operation. Exact words are matched
// before nibble families, so 00E0 and 00EE can never be swallowed by a wider
// pattern. Anything outside the implemented set fails with ErrUnknownOpcode,
// including 0x0NNN machine-code calls and encodings whose fixed nibbles do
// not match, like 5XY1.
func decode(opcode uint16) (operation, error) {
	op := operation{
		x:   uint8((opcode & 0x0F00) >> 8),
		y:   uint8((opcode & 0x00F0) >> 4),
		nn:  uint8(opcode & 0x00FF),
		nnn: opcode & 0x0FFF,
	}

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x0000:
			// 0000 - No operation
			op.kind = opNop
			return op, nil

		case 0x00E0:
			// 00E0 - Clear screen
			op.kind = opCls
			return op, nil

		case 0x00EE:
			// 00EE - Return from subroutine
			op.kind = opRts
			return op, nil
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		op.kind = opJmp
		return op, nil

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		op.kind = opJsr
		return op, nil

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		op.kind = opSkeqImm
		return op, nil

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		op.kind = opSkneImm
		return op, nil

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if opcode&0x000F == 0 {
			op.kind = opSkeqReg
			return op, nil
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		op.kind = opMovImm
		return op, nil

	case 0x7000:
		// 7XNN - Adds NN to VX without touching the carry flag
		op.kind = opAddImm
		return op, nil

	case 0x8000:
		// 8XY_
		switch opcode & 0x000F {
		case 0x0000:
			// 8XY0 - Sets VX to the value of VY
			op.kind = opMovReg
			return op, nil

		case 0x0001:
			// 8XY1 - Sets VX to (VX OR VY)
			op.kind = opOr
			return op, nil

		case 0x0002:
			// 8XY2 - Sets VX to (VX AND VY)
			op.kind = opAnd
			return op, nil

		case 0x0003:
			// 8XY3 - Sets VX to (VX XOR VY)
			op.kind = opXor
			return op, nil

		case 0x0004:
			// 8XY4 - Adds VY to VX, VF reports the carry
			op.kind = opAddReg
			return op, nil
		}
	}

	return operation{}, fmt.Errorf("%w 0x%04X", ErrUnknownOpcode, opcode)
}

// execute applies one decoded operation to the machine state. The program
// counter already points past the instruction; skips advance it by one more
// instruction, jump, call and return replace it outright.
func (m *Machine) execute(op operation) error {
	switch op.kind {
	case opNop:
		// Fetch already advanced past it.

	case opCls:
		m.gfx = [ScreenWidth * ScreenHeight]bool{}
		m.drawFlag = true

	case opRts:
		if m.sp == 0 {
			return fmt.Errorf("%w: return with empty stack", ErrStackUnderflow)
		}
		m.sp--
		m.pc = m.stack[m.sp]

	case opJmp:
		m.pc = op.nnn

	case opJsr:
		if m.sp == StackSize {
			return fmt.Errorf("%w: call to 0x%03x", ErrStackOverflow, op.nnn)
		}
		m.stack[m.sp] = m.pc
		m.sp++
		m.pc = op.nnn

	case opSkeqImm:
		if m.registers[op.x] == op.nn {
			m.pc += InstructionSize
		}

	case opSkneImm:
		if m.registers[op.x] != op.nn {
			m.pc += InstructionSize
		}

	case opSkeqReg:
		if m.registers[op.x] == m.registers[op.y] {
			m.pc += InstructionSize
		}

	case opMovImm:
		m.registers[op.x] = op.nn

	case opAddImm:
		m.registers[op.x] += op.nn // Wraps modulo 256

	case opMovReg:
		m.registers[op.x] = m.registers[op.y]

	case opOr:
		m.registers[op.x] |= m.registers[op.y]

	case opAnd:
		m.registers[op.x] &= m.registers[op.y]

	case opXor:
		m.registers[op.x] ^= m.registers[op.y]

	case opAddReg:
		// Carry comes from the pre-add values; when X is F the flag wins
		// over the sum.
		sum := uint16(m.registers[op.x]) + uint16(m.registers[op.y])
		m.registers[op.x] = uint8(sum)
		if sum > 0xFF {
			m.registers[0x0F] = 1
		} else {
			m.registers[0x0F] = 0
		}
	}

	return nil
}
