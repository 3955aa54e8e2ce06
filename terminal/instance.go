// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package terminal implements the bidirectional translator between a
// byte-oriented serial transport and the firmware's logical key/glyph
// console abstraction, for the nine supported terminal type tags.
package terminal

import (
	"errors"

	"github.com/thinkgos/edk2term/clog"
	"github.com/thinkgos/edk2term/external"
	"github.com/thinkgos/edk2term/fifo"
)

// ErrNotBound is returned by operations that require a running poll
// driver before Bind has been called.
var ErrNotBound = errors.New("terminal: instance not bound")

// KeyNotify is a registered callback fired when a key matching Match
// reaches the Key FIFO.
type KeyNotify struct {
	Match    Key
	Callback func(Key)
}

// Instance is one terminal console core: the three FIFOs, the escape
// recognizer, cursor/attribute state and the ordered key-notify
// registrations. Created on bind-start, destroyed on bind-stop.
type Instance struct {
	clog.Clog

	cfg Config

	raw     fifo.Raw
	unicode fifo.Unicode
	keys    fifo.KeyQueue

	fsm fsm

	seq *Sequencer

	serial external.Serial
	timer  external.Timer

	periodicCancel func()
	oneShot        external.OneShot

	notify []KeyNotify

	lastTimeoutMicros uint32
	pendingMode       *SerialMode

	warmResetCb func()
}

// New constructs an Instance for cfg.Type, writing outbound sequences
// through serial via seq (screen geometry supplied by the caller when
// building seq with NewSequencer).
func New(cfg Config, serial external.Serial, seq *Sequencer) (*Instance, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &Instance{
		cfg:    cfg,
		serial: serial,
		seq:    seq,
	}, nil
}

// Type reports the terminal type tag this instance was built for.
func (sf *Instance) Type() Type { return sf.cfg.Type }

// RegisterKeyNotify appends a key-notify registration; registrations are
// consulted in registration order.
func (sf *Instance) RegisterKeyNotify(match Key, cb func(Key)) {
	sf.notify = append(sf.notify, KeyNotify{Match: match, Callback: cb})
}

// OnWarmReset installs the callback fired when the ESC R ESC r ESC R
// reset triple completes.
func (sf *Instance) OnWarmReset(cb func()) { sf.warmResetCb = cb }

// Bind starts the periodic poll driver via timer. It is idempotent only
// in the sense that calling it twice replaces the previous periodic
// registration - callers own not double-binding.
func (sf *Instance) Bind(timer external.Timer) error {
	if sf.oneShot != nil {
		sf.oneShot.Cancel()
	}
	if sf.periodicCancel != nil {
		sf.periodicCancel()
	}
	sf.timer = timer
	status, cancel := timer.CreatePeriodic(uint64(sf.cfg.PollPeriod.Nanoseconds()/100), func() {
		sf.tick()
	})
	if status != external.OK {
		return status
	}
	sf.periodicCancel = cancel

	status, oneShot := timer.CreateOneShot(func() {
		sf.handleEscapeTimeout()
	})
	if status != external.OK {
		cancel()
		return status
	}
	sf.oneShot = oneShot
	return nil
}

// Unbind releases the timer resources acquired by Bind, LIFO.
func (sf *Instance) Unbind() {
	if sf.oneShot != nil {
		sf.oneShot.Cancel()
	}
	if sf.periodicCancel != nil {
		sf.periodicCancel()
	}
	if sf.timer != nil {
		sf.timer.Close()
	}
}

// PopKey removes and returns the oldest resolved key event.
func (sf *Instance) PopKey() (Key, bool) {
	k, ok := sf.keys.Pop()
	if !ok {
		return Key{}, false
	}
	return Key{ScanCode: ScanCode(k.ScanCode), Char: k.Char}, true
}

func (sf *Instance) pushKey(k Key) {
	if !sf.keys.Push(fifo.Key{ScanCode: uint16(k.ScanCode), Char: k.Char}) {
		sf.Warn("terminal: key FIFO full, dropping %+v", k)
		return
	}
	for _, n := range sf.notify {
		if n.Match == k {
			n.Callback(k)
		}
	}
}
