// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import (
	"fmt"

	"github.com/lassandro/golc3vm/pkg/encoding"
)

// Instruction is a decoded instruction word. The concrete type identifies
// the opcode; offsets are stored already sign-extended.
type Instruction interface {
	Opcode() uint16
	String() string
}

// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Add struct {
	Dest, Src1, Src2 uint16
	Immediate        bool
	Imm              uint16
}

// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type And struct {
	Dest, Src1, Src2 uint16
	Immediate        bool
	Imm              uint16
}

// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Not struct {
	Dest, Src uint16
}

// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Branch struct {
	Flags  uint16
	Offset uint16
}

// JMP  |1100    |000  |BaseR|000000      | Jump
// RET  |1100    |000  |111  |000000      | Return
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Jump struct {
	Base uint16
}

// JSR  |0100    |1|PCoffset11            | Jump to subroutine
// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type JumpSubroutine struct {
	Relative bool
	Offset   uint16
	Base     uint16
}

// LD   |0010    |DR   |PCoffset9         | Load
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Load struct {
	Dest, Offset uint16
}

// LDI  |1010    |DR   |PCoffset9         | Load indirect
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type LoadIndirect struct {
	Dest, Offset uint16
}

// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type LoadBase struct {
	Dest, Base, Offset uint16
}

// LEA  |1110    |DR   |PCoffset9         | Load effective address
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type LoadEffective struct {
	Dest, Offset uint16
}

// ST   |0011    |SR   |PCoffset9         | Store
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Store struct {
	Src, Offset uint16
}

// STI  |1011    |SR   |PCoffset9         | Store indirect
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type StoreIndirect struct {
	Src, Offset uint16
}

// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type StoreBase struct {
	Src, Base, Offset uint16
}

// TRAP |1111    |0000   |trapvect8       | System call
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
type Trap struct {
	Vector uint16
}

// Decode splits an instruction word into its fields. RTI and the reserved
// opcode have no meaning on this machine and fail with an *OpcodeError whose
// Addr is left for the caller to fill in.
func Decode(instruction uint16) (Instruction, error) {
	dest := (instruction >> 9) & 0x7
	src := (instruction >> 6) & 0x7
	offset9 := encoding.SignExtend(instruction&0x1FF, 9)
	offset6 := encoding.SignExtend(instruction&0x3F, 6)

	switch instruction >> 12 {
	case OP_ADD:
		in := Add{Dest: dest, Src1: src}
		in.Immediate, in.Src2, in.Imm = operand2(instruction)
		return in, nil

	case OP_AND:
		in := And{Dest: dest, Src1: src}
		in.Immediate, in.Src2, in.Imm = operand2(instruction)
		return in, nil

	case OP_NOT:
		return Not{Dest: dest, Src: src}, nil

	case OP_BR:
		return Branch{Flags: dest, Offset: offset9}, nil

	case OP_JMP:
		return Jump{Base: src}, nil

	case OP_JSR:
		if (instruction>>11)&0x1 == 1 {
			return JumpSubroutine{
				Relative: true,
				Offset:   encoding.SignExtend(instruction&0x7FF, 11),
			}, nil
		}
		return JumpSubroutine{Base: src}, nil

	case OP_LD:
		return Load{Dest: dest, Offset: offset9}, nil

	case OP_LDI:
		return LoadIndirect{Dest: dest, Offset: offset9}, nil

	case OP_LDR:
		return LoadBase{Dest: dest, Base: src, Offset: offset6}, nil

	case OP_LEA:
		return LoadEffective{Dest: dest, Offset: offset9}, nil

	case OP_ST:
		return Store{Src: dest, Offset: offset9}, nil

	case OP_STI:
		return StoreIndirect{Src: dest, Offset: offset9}, nil

	case OP_STR:
		return StoreBase{Src: dest, Base: src, Offset: offset6}, nil

	case OP_TRAP:
		return Trap{Vector: instruction & 0xFF}, nil
	}

	// OP_RTI, OP_RES
	return nil, &OpcodeError{Word: instruction}
}

// Bit 5 selects between SR2 and a sign-extended imm5
func operand2(instruction uint16) (immediate bool, src2 uint16, imm uint16) {
	if (instruction>>5)&0x1 == 1 {
		return true, 0, encoding.SignExtend(instruction&0x1F, 5)
	}
	return false, instruction & 0x7, 0
}

func (Add) Opcode() uint16 { return OP_ADD }
func (And) Opcode() uint16 { return OP_AND }
func (Not) Opcode() uint16 { return OP_NOT }
func (Branch) Opcode() uint16 { return OP_BR }
func (Jump) Opcode() uint16 { return OP_JMP }
func (JumpSubroutine) Opcode() uint16 { return OP_JSR }
func (Load) Opcode() uint16 { return OP_LD }
func (LoadIndirect) Opcode() uint16 { return OP_LDI }
func (LoadBase) Opcode() uint16 { return OP_LDR }
func (LoadEffective) Opcode() uint16 { return OP_LEA }
func (Store) Opcode() uint16 { return OP_ST }
func (StoreIndirect) Opcode() uint16 { return OP_STI }
func (StoreBase) Opcode() uint16 { return OP_STR }
func (Trap) Opcode() uint16 { return OP_TRAP }

func signed(value uint16) string {
	return fmt.Sprintf("#%d", int16(value))
}

func (in Add) String() string {
	if in.Immediate {
		return fmt.Sprintf("ADD R%d, R%d, %s", in.Dest, in.Src1, signed(in.Imm))
	}
	return fmt.Sprintf("ADD R%d, R%d, R%d", in.Dest, in.Src1, in.Src2)
}

func (in And) String() string {
	if in.Immediate {
		return fmt.Sprintf("AND R%d, R%d, %s", in.Dest, in.Src1, signed(in.Imm))
	}
	return fmt.Sprintf("AND R%d, R%d, R%d", in.Dest, in.Src1, in.Src2)
}

func (in Not) String() string {
	return fmt.Sprintf("NOT R%d, R%d", in.Dest, in.Src)
}

func (in Branch) String() string {
	if in.Flags == 0 {
		return "NOP"
	}

	name := "BR"
	if in.Flags&FLAG_NEG != 0 {
		name += "n"
	}
	if in.Flags&FLAG_ZERO != 0 {
		name += "z"
	}
	if in.Flags&FLAG_POS != 0 {
		name += "p"
	}

	return name + " " + signed(in.Offset)
}

func (in Jump) String() string {
	if in.Base == REG_LINK {
		return "RET"
	}
	return fmt.Sprintf("JMP R%d", in.Base)
}

func (in JumpSubroutine) String() string {
	if in.Relative {
		return "JSR " + signed(in.Offset)
	}
	return fmt.Sprintf("JSRR R%d", in.Base)
}

func (in Load) String() string {
	return fmt.Sprintf("LD R%d, %s", in.Dest, signed(in.Offset))
}

func (in LoadIndirect) String() string {
	return fmt.Sprintf("LDI R%d, %s", in.Dest, signed(in.Offset))
}

func (in LoadBase) String() string {
	return fmt.Sprintf("LDR R%d, R%d, %s", in.Dest, in.Base, signed(in.Offset))
}

func (in LoadEffective) String() string {
	return fmt.Sprintf("LEA R%d, %s", in.Dest, signed(in.Offset))
}

func (in Store) String() string {
	return fmt.Sprintf("ST R%d, %s", in.Src, signed(in.Offset))
}

func (in StoreIndirect) String() string {
	return fmt.Sprintf("STI R%d, %s", in.Src, signed(in.Offset))
}

func (in StoreBase) String() string {
	return fmt.Sprintf("STR R%d, R%d, %s", in.Src, in.Base, signed(in.Offset))
}

var trapNames = map[uint16]string{
	TRAP_GETC:  "GETC",
	TRAP_OUT:   "OUT",
	TRAP_PUTS:  "PUTS",
	TRAP_IN:    "IN",
	TRAP_PUTSP: "PUTSP",
	TRAP_HALT:  "HALT",
}

func (in Trap) String() string {
	if name, ok := trapNames[in.Vector]; ok {
		return name
	}
	return fmt.Sprintf("TRAP x%02X", in.Vector)
}

// Disassemble renders an instruction word, falling back to a .FILL
// directive for words that do not decode.
func Disassemble(instruction uint16) string {
	in, err := Decode(instruction)
	if err != nil {
		return fmt.Sprintf(".FILL x%04X", instruction)
	}
	return in.String()
}
