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
	"bufio"
)

func (mc *Machine) trap(vector uint16) error {
	addr := mc.State.Program - 1

	var err error

	switch vector {
	case TRAP_GETC:
		err = mc.trapGetc()
	case TRAP_OUT:
		err = mc.trapOut()
	case TRAP_PUTS:
		err = mc.trapPuts()
	case TRAP_IN:
		err = mc.trapIn()
	case TRAP_PUTSP:
		err = mc.trapPutsp()
	case TRAP_HALT:
		err = mc.trapHalt()
	default:
		return &TrapError{Addr: addr, Vector: vector}
	}

	if err != nil {
		return &DeviceError{Addr: addr, Err: err}
	}

	return nil
}

func (mc *Machine) keyboard() (Keyboard, error) {
	if mc.Devices == nil || mc.Devices.Keyboard == nil {
		return nil, ErrNoDevice
	}
	return mc.Devices.Keyboard, nil
}

func (mc *Machine) display() (*bufio.Writer, error) {
	if mc.Devices == nil || mc.Devices.Display == nil {
		return nil, ErrNoDevice
	}
	return mc.Devices.Display, nil
}

func (mc *Machine) trapGetc() error {
	kb, err := mc.keyboard()
	if err != nil {
		return err
	}

	key, err := kb.ReadByte()
	if err != nil {
		return err
	}

	mc.State.Registers[0] = uint16(key)
	mc.State.setFlags(mc.State.Registers[0])

	return nil
}

func (mc *Machine) trapOut() error {
	display, err := mc.display()
	if err != nil {
		return err
	}

	if err := display.WriteByte(byte(mc.State.Registers[0] & 0xFF)); err != nil {
		return err
	}

	return display.Flush()
}

// Calls emit with each word of the zero-terminated string starting at R0.
// Addresses wrap past 0xFFFF and a string with no terminator stops after one
// pass over memory. Memory is read directly so the walk never samples the
// keyboard.
func (mc *Machine) eachWord(emit func(word uint16) error) error {
	addr := mc.State.Registers[0]

	for n := 0; n < len(mc.State.Memory); n++ {
		word := mc.State.Memory[addr]

		if word == 0 {
			break
		}

		if err := emit(word); err != nil {
			return err
		}

		addr++
	}

	return nil
}

func (mc *Machine) trapPuts() error {
	display, err := mc.display()
	if err != nil {
		return err
	}

	err = mc.eachWord(func(word uint16) error {
		return display.WriteByte(byte(word & 0xFF))
	})

	if err != nil {
		return err
	}

	return display.Flush()
}

func (mc *Machine) trapIn() error {
	display, err := mc.display()
	if err != nil {
		return err
	}

	if _, err := display.WriteString(promptIn); err != nil {
		return err
	}

	if err := display.Flush(); err != nil {
		return err
	}

	if err := mc.trapGetc(); err != nil {
		return err
	}

	if err := display.WriteByte(byte(mc.State.Registers[0])); err != nil {
		return err
	}

	return display.Flush()
}

func (mc *Machine) trapPutsp() error {
	display, err := mc.display()
	if err != nil {
		return err
	}

	err = mc.eachWord(func(word uint16) error {
		if err := display.WriteByte(byte(word & 0xFF)); err != nil {
			return err
		}

		if high := byte(word >> 8); high != 0 {
			return display.WriteByte(high)
		}

		return nil
	})

	if err != nil {
		return err
	}

	return display.Flush()
}

func (mc *Machine) trapHalt() error {
	mc.State.Halted = true

	if display, err := mc.display(); err == nil {
		if _, err := display.WriteString(haltMsg); err != nil {
			return err
		}

		return display.Flush()
	}

	return nil
}
