// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import "github.com/thinkgos/edk2term/external"

// SerialMode is the subset of the serial line parameters the poll driver
// needs to recompute the read timeout from.
type SerialMode struct {
	BaudRate uint32
	DataBits uint8
	StopBits uint8
}

// SetSerialMode records the active serial mode; the next tick notices
// the drift and reapplies the recomputed timeout.
func (sf *Instance) SetSerialMode(mode SerialMode) {
	sf.pendingMode = &mode
}

// tick is the 20ms periodic callback: recompute the timeout if the mode
// drifted, drain the serial port into the raw FIFO, then drive the
// codec and the escape FSM.
func (sf *Instance) tick() {
	if sf.pendingMode != nil {
		sf.applySerialTimeout(*sf.pendingMode)
		sf.pendingMode = nil
	}

	flags, status := sf.serial.GetControl()
	if status == external.OK && flags&external.InputBufferEmpty == 0 || status != external.OK {
		sf.fillRaw()
	}

	sf.drainCodec()
	sf.driveFSM()
}

// applySerialTimeout recomputes (1 + data_bits + stop_bits) * 2 * 1e6 /
// baud_rate microseconds and reapplies it to the serial collaborator.
func (sf *Instance) applySerialTimeout(mode SerialMode) {
	if mode.BaudRate == 0 {
		return
	}
	micros := uint32((1 + uint64(mode.DataBits) + uint64(mode.StopBits)) * 2 * 1_000_000 / uint64(mode.BaudRate))
	if micros == sf.lastTimeoutMicros {
		return
	}
	sf.lastTimeoutMicros = micros
	sf.serial.SetAttributes(external.Attributes{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		StopBits: mode.StopBits,
		Timeout:  micros,
	})
}

func (sf *Instance) fillRaw() {
	var buf [1]byte
	for !sf.raw.Full() {
		n, status := sf.serial.Read(buf[:])
		if n == 0 || status == external.NotReady {
			return
		}
		sf.raw.Push(buf[0])
	}
}

func (sf *Instance) drainCodec() {
	if sf.cfg.Type.isUTF8() {
		drainUTF8(&sf.raw, &sf.unicode)
		return
	}
	drainANSI(&sf.raw, &sf.unicode)
}

func (sf *Instance) driveFSM() {
	armedBefore := sf.fsm.armed()
	for {
		u, ok := sf.unicode.Pop()
		if !ok {
			break
		}
		for _, k := range sf.fsm.feed(sf.cfg.Type, rune(u)) {
			sf.pushKey(k)
		}
		if sf.fsm.warmReset {
			sf.fsm.warmReset = false
			if sf.warmResetCb != nil {
				sf.warmResetCb()
			}
		}
	}
	switch {
	case sf.fsm.armed() && !armedBefore:
		if sf.oneShot != nil {
			sf.oneShot.Arm(uint64(sf.cfg.EscapeTimeout.Nanoseconds() / 100))
		}
	case !sf.fsm.armed() && armedBefore:
		if sf.oneShot != nil {
			sf.oneShot.Cancel()
		}
	}
}

// handleEscapeTimeout is the one-shot escape-timer callback: it flushes
// any in-progress sequence as literal keys and returns the FSM to its
// default, unarmed state.
func (sf *Instance) handleEscapeTimeout() {
	for _, k := range sf.fsm.timedOut() {
		sf.pushKey(k)
	}
}
