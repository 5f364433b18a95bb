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
	"errors"
	"fmt"
)

var (
	// Matched by every fatal decode failure
	ErrDecode = errors.New("decode error")

	ErrImageShort = errors.New("image too short, missing origin")

	// Raised by console traps when no keyboard or display is attached
	ErrNoDevice = errors.New("no device attached")
)

// OpcodeError reports an instruction word with an unusable opcode.
type OpcodeError struct {
	Addr uint16
	Word uint16
}

func (err *OpcodeError) Error() string {
	return fmt.Sprintf(
		"bad opcode %#04b in instruction %#04x at %#04x",
		err.Word>>12, err.Word, err.Addr,
	)
}

func (err *OpcodeError) Is(target error) bool {
	return target == ErrDecode
}

// TrapError reports a TRAP with an unknown vector.
type TrapError struct {
	Addr   uint16
	Vector uint16
}

func (err *TrapError) Error() string {
	return fmt.Sprintf("bad trap vector %#02x at %#04x", err.Vector, err.Addr)
}

func (err *TrapError) Is(target error) bool {
	return target == ErrDecode
}

// DeviceError wraps a console failure raised while servicing an
// instruction.
type DeviceError struct {
	Addr uint16
	Err  error
}

func (err *DeviceError) Error() string {
	return fmt.Sprintf("device error at %#04x: %v", err.Addr, err.Err)
}

func (err *DeviceError) Unwrap() error {
	return err.Err
}
