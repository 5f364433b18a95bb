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

//go:build linux || darwin || freebsd || netbsd || openbsd

package console

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal reads keystrokes from a file descriptor, normally stdin. It can
// switch a tty into non-canonical, non-echoing mode so single keystrokes
// reach the machine as they are typed.
type Terminal struct {
	file    *os.File
	reader  *bufio.Reader
	restore *unix.Termios
}

func NewTerminal(file *os.File) *Terminal {
	return &Terminal{file: file, reader: bufio.NewReader(file)}
}

func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(int(t.file.Fd()))
}

func (t *Terminal) EnableRawMode() error {
	var state unix.Termios

	if err := termios.Tcgetattr(t.file.Fd(), &state); err != nil {
		return err
	}

	saved := state
	t.restore = &saved

	state.Lflag &^= unix.ICANON | unix.ECHO
	state.Cc[unix.VMIN] = 1
	state.Cc[unix.VTIME] = 0

	return termios.Tcsetattr(t.file.Fd(), termios.TCSANOW, &state)
}

// Restore puts back the mode saved by EnableRawMode. It is a no-op when raw
// mode was never enabled.
func (t *Terminal) Restore() error {
	if t.restore == nil {
		return nil
	}

	return termios.Tcsetattr(t.file.Fd(), termios.TCSANOW, t.restore)
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
	if t.reader.Buffered() > 0 {
		return true
	}

	fds := []unix.PollFd{{Fd: int32(t.file.Fd()), Events: unix.POLLIN}}

	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil || n == 0 {
		return false
	}

	return fds[0].Revents&unix.POLLIN != 0
}
