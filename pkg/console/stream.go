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

// Package console provides the keyboard side of the machine's console: a
// plain buffered stream for pipes and tests, and a raw-mode terminal for
// interactive use.
package console

import (
	"bufio"
	"io"
	"time"
)

// Stream reads keystrokes from any reader. Poll never waits for new data
// beyond what a single underlying Read returns, so on a blocking reader it
// blocks until input or EOF arrives.
type Stream struct {
	reader *bufio.Reader
}

func NewStream(r io.Reader) *Stream {
	return &Stream{reader: bufio.NewReader(r)}
}

func (s *Stream) ReadByte() (byte, error) {
	return s.reader.ReadByte()
}

func (s *Stream) Poll(timeout time.Duration) bool {
	if s.reader.Buffered() > 0 {
		return true
	}

	_, err := s.reader.Peek(1)
	return err == nil
}
