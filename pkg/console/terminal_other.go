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

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package console

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

var ErrUnsupported = errors.New("raw terminal mode unsupported on this platform")

// Terminal falls back to buffered line input where termios is unavailable.
type Terminal struct {
	file   *os.File
	reader *bufio.Reader
}

func NewTerminal(file *os.File) *Terminal {
	return &Terminal{file: file, reader: bufio.NewReader(file)}
}

func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(int(t.file.Fd()))
}

func (t *Terminal) EnableRawMode() error {
	return ErrUnsupported
}

func (t *Terminal) Restore() error {
	return nil
}

func (t *Terminal) ReadByte() (byte, error) {
	return t.reader.ReadByte()
}

// ReadLine reads up to and excluding the next newline. It shares the
// keystroke buffer, so it is safe to interleave with ReadByte.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) Poll(timeout time.Duration) bool {
	return t.reader.Buffered() > 0
}
