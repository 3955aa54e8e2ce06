// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command edk2termd drives a real tty as a terminal console core: it
// decodes inbound escape sequences into key events and lets an operator
// send outbound text through the same terminal-type-specific sequencer,
// from a local liner-driven supervisor prompt.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/thinkgos/edk2term/external"
	"github.com/thinkgos/edk2term/terminal"
)

var typeNames = map[string]terminal.Type{
	"pc-ansi": terminal.PCANSI,
	"vt100":   terminal.VT100,
	"vt100+":  terminal.VT100Plus,
	"vt-utf8": terminal.VTUTF8,
	"tty":     terminal.TTYTerm,
	"linux":   terminal.Linux,
	"xtermr6": terminal.XtermR6,
	"vt400":   terminal.VT400,
	"sco":     terminal.SCO,
}

func main() {
	optDevice := getopt.StringLong("device", 'd', "/dev/ttyS0", "serial device path")
	optType := getopt.StringLong("type", 't', "vt100", "terminal type: pc-ansi|vt100|vt100+|vt-utf8|tty|linux|xtermr6|vt400|sco")
	optBaud := getopt.StringLong("baud", 'b', "9600", "baud rate")
	optPollMS := getopt.StringLong("poll", 'p', "0", "poll period override in milliseconds (0 = default 20ms)")
	optHelp := getopt.BoolLong("help", 'h', "show usage")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	typ, ok := typeNames[strings.ToLower(*optType)]
	if !ok {
		fmt.Fprintf(os.Stderr, "edk2termd: unknown terminal type %q\n", *optType)
		os.Exit(1)
	}
	baud, err := strconv.ParseUint(*optBaud, 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edk2termd: invalid --baud %q\n", *optBaud)
		os.Exit(1)
	}
	pollMS, err := strconv.Atoi(*optPollMS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edk2termd: invalid --poll %q\n", *optPollMS)
		os.Exit(1)
	}

	serial, status := external.OpenLinuxSerial(*optDevice, external.Attributes{
		BaudRate: uint32(baud),
		DataBits: 8,
		StopBits: 1,
	})
	if status != external.OK {
		fmt.Fprintf(os.Stderr, "edk2termd: open %s: %s\n", *optDevice, status)
		os.Exit(1)
	}
	defer serial.Close()

	cfg := terminal.DefaultConfig(typ)
	if pollMS > 0 {
		cfg.PollPeriod = time.Duration(pollMS) * time.Millisecond
	}
	if err := cfg.Valid(); err != nil {
		fmt.Fprintf(os.Stderr, "edk2termd: %v\n", err)
		os.Exit(1)
	}

	seq := terminal.NewSequencer(typ, serial, 80, 24)
	inst, err := terminal.New(cfg, serial, seq)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edk2termd: %v\n", err)
		os.Exit(1)
	}
	inst.OnWarmReset(func() {
		fmt.Println("\nedk2termd: warm reset requested by remote terminal")
	})

	timer := external.NewSoftwareTimer()
	if err := inst.Bind(timer); err != nil {
		fmt.Fprintf(os.Stderr, "edk2termd: bind: %v\n", err)
		os.Exit(1)
	}
	defer inst.Unbind()
	inst.SetSerialMode(terminal.SerialMode{BaudRate: uint32(baud), DataBits: 8, StopBits: 1})

	done := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() { closeOnce.Do(func() { close(done) }) }

	go pollKeys(inst, done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
	}()

	runConsole(seq, done, shutdown)
}

// pollKeys drains resolved key events and prints them until done closes.
func pollKeys(inst *terminal.Instance, done <-chan struct{}) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for {
				k, ok := inst.PopKey()
				if !ok {
					break
				}
				if k.ScanCode == terminal.ScanNull {
					fmt.Printf("\r\nedk2termd: key char=%q\r\n", k.Char)
				} else {
					fmt.Printf("\r\nedk2termd: key scan=%d\r\n", k.ScanCode)
				}
			}
		}
	}
}

// runConsole drives the local operator prompt: "send <text>" writes
// text through the outbound sequencer, "quit" shuts down.
func runConsole(seq *terminal.Sequencer, done <-chan struct{}, shutdown func()) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		select {
		case <-done:
			return
		default:
		}

		command, err := line.Prompt("edk2termd> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				shutdown()
				return
			}
			fmt.Fprintf(os.Stderr, "edk2termd: %v\n", err)
			shutdown()
			return
		}
		line.AppendHistory(command)

		switch {
		case command == "quit" || command == "exit":
			shutdown()
			return
		case strings.HasPrefix(command, "send "):
			text := strings.TrimPrefix(command, "send ")
			u16 := make([]uint16, 0, len(text))
			for _, r := range text {
				u16 = append(u16, uint16(r))
			}
			if status := seq.WriteString(u16); status != external.OK && status != external.WarnUnknownGlyph {
				fmt.Fprintf(os.Stderr, "edk2termd: write: %s\n", status)
			}
		case command == "":
		default:
			fmt.Println(`commands: "send <text>", "quit"`)
		}
	}
}
