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

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/lassandro/golc3vm/pkg/console"
	"github.com/lassandro/golc3vm/pkg/debugger"
	"github.com/lassandro/golc3vm/pkg/machine"
)

var helpvar bool
var debugvar bool
var tracevar bool
var shouldexit bool

const usage = "golc3vm [-debug] [-trace] filename"

const (
	exitOK        = 0
	exitUsage     = 1
	exitImage     = 2
	exitDecode    = 3
	exitDevice    = 4
	exitInterrupt = -2
)

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(
		&tracevar, "trace", false,
		"Logs every executed instruction to stderr",
	)
	flag.Parse()
}

func golc3vm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return exitOK
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return exitUsage
	}

	file, err := os.Open(args[0])

	if err != nil {
		log.Println(err)
		return exitImage
	}

	defer file.Close()

	term := console.NewTerminal(os.Stdin)

	var mc machine.Machine
	var dh machine.DeviceHandler
	dh.Keyboard = term
	dh.Display = bufio.NewWriter(os.Stdout)
	mc.Devices = &dh

	if tracevar {
		mc.Trace = log.New(os.Stderr, "trace: ", 0)
	}

	if err := mc.LoadImage(file); err != nil {
		log.Printf("%s: %v", args[0], err)
		return exitImage
	}

	var dbg *debugger.Debugger

	if debugvar {
		dbg = &debugger.Debugger{
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}
		mc.Debugger = dbg
		repl = &debugSession{term: term, image: file}
	}

	enterRawTerm(term)
	defer exitRawTerm(term)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	go func() {
		for range c {
			if dbg != nil {
				fmt.Println()
				dbg.Break = true
				continue
			}

			exitRawTerm(term)
			fmt.Fprintln(os.Stderr, "Interrupt received, closing vm")
			os.Exit(exitInterrupt)
		}
	}()

	if dbg != nil {
		debugREPL(dbg, &mc)
	}

	for !shouldexit && !mc.State.Halted {
		if err := mc.Step(); err != nil {
			log.Println(err)

			if errors.Is(err, machine.ErrDecode) {
				return exitDecode
			}
			return exitDevice
		}
	}

	return exitOK
}

func main() {
	os.Exit(golc3vm())
}
