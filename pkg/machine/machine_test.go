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

package machine_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/lassandro/golc3vm/pkg/console"
	"github.com/lassandro/golc3vm/pkg/machine"
)

type testMachineState struct {
	Registers [8]uint16
	Program   uint16
	Condition uint16
	Halted    bool
	Memory    map[uint16]uint16
}

type testCase struct {
	Name     string
	Steps    uint
	Keyboard string
	Display  string
	Input    testMachineState
	Output   testMachineState
}

func newTestMachine(test *testCase) (*machine.Machine, *bytes.Buffer) {
	var mc machine.Machine
	var devices machine.DeviceHandler
	var displayBuf bytes.Buffer

	if len(test.Keyboard) > 0 {
		devices.Keyboard = console.NewStream(
			bytes.NewReader([]byte(test.Keyboard)),
		)
	}

	devices.Display = bufio.NewWriter(&displayBuf)
	mc.Devices = &devices

	mc.State.Reset()
	mc.State.Registers = test.Input.Registers
	mc.State.Program = test.Input.Program
	mc.State.Condition = test.Input.Condition

	if mc.State.Condition == 0 {
		mc.State.Condition = machine.FLAG_ZERO
	}

	for addr, value := range test.Input.Memory {
		mc.State.Memory[addr] = value
	}

	return &mc, &displayBuf
}

func testMachineSuccess(t *testing.T, test *testCase) {
	if test.Input.Memory == nil && test.Output.Memory == nil {
		panic("No memory maps provided")
	}

	if test.Output.Condition == 0 {
		test.Output.Condition = machine.FLAG_ZERO
	}

	mc, displayBuf := newTestMachine(test)

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		if err := mc.Step(); err != nil {
			t.Fatalf("Unexpected error on step %d\nhave:%v", i, err)
		}
	}

	for i := 0; i < 8; i++ {
		want := test.Output.Registers[i]
		have := mc.State.Registers[i]
		if have != want {
			t.Errorf(
				"Register mismatch"+
					"\nwant:%#04x (test.Output.Registers[%d])\nhave:%#04x",
				want,
				i,
				have,
			)
		}
	}

	if mc.State.Program != test.Output.Program {
		t.Errorf(
			"Program register mismatch"+
				"\nwant:%#04x (test.Output.Program)\nhave:%#04x",
			test.Output.Program,
			mc.State.Program,
		)
	}

	if have := mc.State.Condition; have != test.Output.Condition {
		t.Errorf(
			"Condition flag mismatch"+
				"\nwant:%#03b (test.Output.Condition)\nhave:%#03b",
			test.Output.Condition,
			have,
		)
	}

	if have := mc.State.Halted; have != test.Output.Halted {
		t.Errorf(
			"Halted mismatch\nwant:%v (test.Output.Halted)\nhave:%v",
			test.Output.Halted,
			have,
		)
	}

	for i, value := range mc.State.Memory {
		input, expectingInput := test.Input.Memory[uint16(i)]
		output, expectingOutput := test.Output.Memory[uint16(i)]

		if expectingOutput {
			// Value was supposed to change
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Output.Memory[%#04x])\nhave:%#02x",
					output,
					i,
					value,
				)
			}
		} else if expectingInput {
			// Value was supposed to remain
			if value != input {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Input.Memory[%#04x])\nhave:%#02x",
					input,
					i,
					value,
				)
			}
		} else if value != 0 {
			// Value was expected to remain unitialized
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:0x00 (test.Output.Memory[%#04x])\nhave:%#02x",
				i,
				value,
			)
		}
	}

	if have := displayBuf.String(); have != test.Display {
		t.Errorf(
			"Display output mismatch"+
				"\nwant:%q (test.Display)\nhave:%q",
			test.Display,
			have,
		)
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			test := test
			t.Run(test.Name, func(t *testing.T) {
				testMachineSuccess(t, &test)
			})
		}
	})
}

// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAdd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "ADD SR2 Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0x0001, // SR1
					2: 0x8001, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_000_010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0x8002, // DR
					1: 0x0001, // SR1
					2: 0x8001, // SR2
				},
			},
		},
		{
			Name: "ADD Overflow SR2 Zero",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0xFFFF, // SR1
					2: 0x0001, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_000_010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000, // DR
					1: 0xFFFF, // SR1
					2: 0x0001, // SR2
				},
			},
		},
		{
			Name: "ADD imm5 Positive",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0x0000, // DR
					1: 0x0005, // SR1
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_1_00011,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x0008, // DR
					1: 0x0005, // SR1
				},
			},
		},
		{
			Name: "ADD imm5 Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_000_001_1_10000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xFFF0, // DR
				},
			},
		},
		{
			Name: "ADD Same Register",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					3: 0x4000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0001_011_011_000_011,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					3: 0x8000,
				},
			},
		},
	})
}

// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAnd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "AND SR2 Positive",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE, // DR
					1: 0xFF0F, // SR1
					2: 0x0FF0, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0101_000_001_000_010,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x0F00, // DR
					1: 0xFF0F, // SR1
					2: 0x0FF0, // SR2
				},
			},
		},
		{
			Name: "AND SR2 R7",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x0FFF, // SR1
					7: 0x00F0, // SR2
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0101_000_001_000_111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x00F0, // DR
					1: 0x0FFF, // SR1
					7: 0x00F0, // SR2
				},
			},
		},
		{
			Name: "AND imm5 Zero",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x1234, // DR
					1: 0xCAFE, // SR1
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0101_000_001_1_00000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000, // DR
					1: 0xCAFE, // SR1
				},
			},
		},
		{
			Name: "AND imm5 Negative",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x8001, // SR1
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0101_000_001_1_11111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0x8001, // DR
					1: 0x8001, // SR1
				},
			},
		},
	})
}

// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestNot(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "NOT Negative",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1001_000_001_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xFFFF,
				},
			},
		},
		{
			Name: "NOT Zero",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					0: 0xCAFE,
					1: 0xFFFF,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1001_000_001_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000,
					1: 0xFFFF,
				},
			},
		},
		{
			Name: "NOT Positive",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					2: 0x8000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1001_010_010_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					2: 0x7FFF,
				},
			},
		},
	})
}

// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestBranch(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "BRz Taken",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_010_000000101,
				},
			},
			Output: testMachineState{
				Program:   0x3006,
				Condition: machine.FLAG_ZERO,
			},
		},
		{
			Name: "BRn Not Taken",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_100_000000101,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
			},
		},
		{
			Name: "BRnzp Backwards",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_NEG,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_111_111111110,
				},
			},
			Output: testMachineState{
				Program:   0x2FFF,
				Condition: machine.FLAG_NEG,
			},
		},
		{
			Name: "BRp Taken",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_001_011111111,
				},
			},
			Output: testMachineState{
				Program:   0x3100,
				Condition: machine.FLAG_POS,
			},
		},
		{
			Name: "BR Empty Mask",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					0x3000: 0b0000_000_000010000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
			},
		},
	})
}

// JMP  |1100    |000  |BaseR|000000      | Jump
// RET  |1100    |000  |111  |000000      | Return
// JSR  |0100    |1|PCoffset11            | Jump to subroutine
// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestJump(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "JMP",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					3: 0x4000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1100_000_011_000000,
				},
			},
			Output: testMachineState{
				Program: 0x4000,
				Registers: [8]uint16{
					3: 0x4000,
				},
			},
		},
		{
			Name: "RET",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					7: 0x3050,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1100_000_111_000000,
				},
			},
			Output: testMachineState{
				Program:   0x3050,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					7: 0x3050,
				},
			},
		},
		{
			Name: "JSR Forward",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0100_1_00000010000,
				},
			},
			Output: testMachineState{
				Program: 0x3011,
				Registers: [8]uint16{
					7: 0x3001,
				},
			},
		},
		{
			Name: "JSR Backward",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0100_1_11111111111,
				},
			},
			Output: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					7: 0x3001,
				},
			},
		},
		{
			Name: "JSRR",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					2: 0x5000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0100_0_00_010_000000,
				},
			},
			Output: testMachineState{
				Program: 0x5000,
				Registers: [8]uint16{
					2: 0x5000,
					7: 0x3001,
				},
			},
		},
	})
}

// LD   |0010    |DR   |PCoffset9         | Load
// LDI  |1010    |DR   |PCoffset9         | Load indirect
// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
// LEA  |1110    |DR   |PCoffset9         | Load effective address
// ST   |0011    |SR   |PCoffset9         | Store
// STI  |1011    |SR   |PCoffset9         | Store indirect
// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestLoadStore(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "LD Negative",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b0010_000_000000010,
					0x3003: 0x8000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0x8000,
				},
			},
		},
		{
			Name: "LDI",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1010_000_000000001,
					0x3002: 0x4000,
					0x4000: 0x1234,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x1234,
				},
			},
		},
		{
			Name: "LDR Zero",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0xCAFE,
					1: 0x4000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0110_000_001_111111,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Registers: [8]uint16{
					0: 0x0000,
					1: 0x4000,
				},
			},
		},
		{
			Name: "LDR Positive",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					1: 0x4000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0110_101_001_011111,
					0x401F: 0x0042,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					1: 0x4000,
					5: 0x0042,
				},
			},
		},
		{
			Name: "LEA",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1110_000_000000100,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x3005,
				},
			},
		},
		{
			Name: "ST",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					2: 0xBEEF,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0011_010_000000011,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					2: 0xBEEF,
				},
				Memory: map[uint16]uint16{
					0x3004: 0xBEEF,
				},
			},
		},
		{
			Name: "STI",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					3: 0x0042,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b1011_011_000000001,
					0x3002: 0x5000,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					3: 0x0042,
				},
				Memory: map[uint16]uint16{
					0x5000: 0x0042,
				},
			},
		},
		{
			Name: "STR",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					4: 0x1111,
					5: 0x6000,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0111_100_101_000101,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					4: 0x1111,
					5: 0x6000,
				},
				Memory: map[uint16]uint16{
					0x6005: 0x1111,
				},
			},
		},
		{
			Name: "STR Address Wrap",
			Input: testMachineState{
				Program: 0x3000,
				Registers: [8]uint16{
					4: 0x00AA,
					5: 0xFFFF,
				},
				Memory: map[uint16]uint16{
					0x3000: 0b0111_100_101_000010,
				},
			},
			Output: testMachineState{
				Program: 0x3001,
				Registers: [8]uint16{
					4: 0x00AA,
					5: 0xFFFF,
				},
				Memory: map[uint16]uint16{
					0x0001: 0x00AA,
				},
			},
		},
	})
}

// KBSR reads sample the keyboard and latch the key into KBDR
func TestKeyboard(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:     "KBSR Ready",
			Keyboard: "k",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1010_000_000000001,
					0x3002: machine.DEV_KBSR,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_NEG,
				Registers: [8]uint16{
					0: 0x8000,
				},
				Memory: map[uint16]uint16{
					machine.DEV_KBSR: 0x8000,
					machine.DEV_KBDR: 'k',
				},
			},
		},
		{
			Name: "KBSR Idle",
			Input: testMachineState{
				Program:   0x3000,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0xCAFE,
				},
				Memory: map[uint16]uint16{
					0x3000:           0b1010_000_000000001,
					0x3002:           machine.DEV_KBSR,
					machine.DEV_KBSR: 0x8000,
				},
			},
			Output: testMachineState{
				Program:   0x3001,
				Condition: machine.FLAG_ZERO,
				Memory: map[uint16]uint16{
					machine.DEV_KBSR: 0x0000,
				},
			},
		},
		{
			Name:     "KBSR Then KBDR",
			Steps:    2,
			Keyboard: "k",
			Input: testMachineState{
				Program: 0x3000,
				Memory: map[uint16]uint16{
					0x3000: 0b1010_000_000000010,
					0x3001: 0b1010_001_000000010,
					0x3003: machine.DEV_KBSR,
					0x3004: machine.DEV_KBDR,
				},
			},
			Output: testMachineState{
				Program:   0x3002,
				Condition: machine.FLAG_POS,
				Registers: [8]uint16{
					0: 0x8000,
					1: 'k',
				},
				Memory: map[uint16]uint16{
					machine.DEV_KBSR: 0x8000,
					machine.DEV_KBDR: 'k',
				},
			},
		},
	})
}
