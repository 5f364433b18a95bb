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
	"encoding/binary"
	"fmt"
	"io"
)

func (mc *MachineState) Reset() {
	for i := range mc.Registers {
		mc.Registers[i] = 0x0000
	}

	for i := range mc.Memory {
		mc.Memory[i] = 0x0000
	}

	mc.Program = MEMSPACE_USER
	mc.Condition = FLAG_ZERO
	mc.Halted = false
}

// LoadImage resets the machine and copies an object image into memory. The
// image is a big-endian origin word followed by big-endian words placed
// contiguously from origin. Words past 0xFFFF are dropped, as is a trailing
// odd byte.
func (mc *Machine) LoadImage(reader io.Reader) error {
	mc.State.Reset()

	scratch := make([]byte, 2)

	if _, err := io.ReadFull(reader, scratch); err == io.EOF ||
		err == io.ErrUnexpectedEOF {
		return ErrImageShort
	} else if err != nil {
		return fmt.Errorf("reading origin: %w", err)
	}

	origin := binary.BigEndian.Uint16(scratch)

	for index := int(origin); index < 1<<16; index++ {
		_, err := io.ReadFull(reader, scratch)

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading word %#04x: %w", index, err)
		}

		mc.State.Memory[index] = binary.BigEndian.Uint16(scratch)
	}

	return nil
}

func (mc *Machine) read(addr uint16) uint16 {
	if addr == DEV_KBSR {
		mc.pollKeyboard()
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

// Reading KBSR samples the keyboard; a pending keystroke sets the ready bit
// and latches the character into KBDR.
func (mc *Machine) pollKeyboard() {
	if mc.Devices == nil || mc.Devices.Keyboard == nil {
		mc.State.Memory[DEV_KBSR] = 0
		return
	}

	kb := mc.Devices.Keyboard

	if kb.Poll(PollTimeout) {
		if key, err := kb.ReadByte(); err == nil {
			mc.State.Memory[DEV_KBSR] = 1 << 15
			mc.State.Memory[DEV_KBDR] = uint16(key)
			return
		}
	}

	mc.State.Memory[DEV_KBSR] = 0
}

func (mc *Machine) write(addr uint16, value uint16) {
	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *MachineState) setFlags(value uint16) {
	if value == 0 {
		mc.Condition = FLAG_ZERO
	} else if value>>15 == 1 {
		mc.Condition = FLAG_NEG
	} else {
		mc.Condition = FLAG_POS
	}
}

// Run steps the machine until it halts or an instruction fails.
func (mc *Machine) Run() error {
	for !mc.State.Halted {
		if err := mc.Step(); err != nil {
			return err
		}
	}

	return nil
}

// Step executes a single instruction. Decode failures leave the registers
// and memory as they were after the fetch.
func (mc *Machine) Step() error {
	addr := mc.State.Program
	instruction := mc.read(addr)

	mc.State.Program++

	in, err := Decode(instruction)

	if err != nil {
		if opErr, ok := err.(*OpcodeError); ok {
			opErr.Addr = addr
		}
		return err
	}

	if mc.Trace != nil {
		mc.Trace.Printf("[%#04x] %#04x %s", addr, instruction, in)
	}

	if err := mc.execute(in); err != nil {
		return err
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return nil
}

func (mc *Machine) execute(in Instruction) error {
	regs := &mc.State.Registers
	pc := mc.State.Program

	switch in := in.(type) {
	case Add:
		if in.Immediate {
			regs[in.Dest] = regs[in.Src1] + in.Imm
		} else {
			regs[in.Dest] = regs[in.Src1] + regs[in.Src2]
		}

		mc.State.setFlags(regs[in.Dest])

	case And:
		if in.Immediate {
			regs[in.Dest] = regs[in.Src1] & in.Imm
		} else {
			regs[in.Dest] = regs[in.Src1] & regs[in.Src2]
		}

		mc.State.setFlags(regs[in.Dest])

	case Not:
		regs[in.Dest] = ^regs[in.Src]

		mc.State.setFlags(regs[in.Dest])

	case Branch:
		if in.Flags&mc.State.Condition != 0 {
			mc.State.Program = pc + in.Offset
		}

	case Jump:
		mc.State.Program = regs[in.Base]

	case JumpSubroutine:
		regs[REG_LINK] = pc

		if in.Relative {
			mc.State.Program = pc + in.Offset
		} else {
			mc.State.Program = regs[in.Base]
		}

	case Load:
		regs[in.Dest] = mc.read(pc + in.Offset)

		mc.State.setFlags(regs[in.Dest])

	case LoadIndirect:
		regs[in.Dest] = mc.read(mc.read(pc + in.Offset))

		mc.State.setFlags(regs[in.Dest])

	case LoadBase:
		regs[in.Dest] = mc.read(regs[in.Base] + in.Offset)

		mc.State.setFlags(regs[in.Dest])

	case LoadEffective:
		regs[in.Dest] = pc + in.Offset

		mc.State.setFlags(regs[in.Dest])

	case Store:
		mc.write(pc+in.Offset, regs[in.Src])

	case StoreIndirect:
		mc.write(mc.read(pc+in.Offset), regs[in.Src])

	case StoreBase:
		mc.write(regs[in.Base]+in.Offset, regs[in.Src])

	case Trap:
		regs[REG_LINK] = pc

		return mc.trap(in.Vector)

	default:
		panic(fmt.Sprintf("unhandled instruction %T", in))
	}

	return nil
}
