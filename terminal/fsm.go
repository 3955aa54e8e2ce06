// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

// fsmState is the escape-sequence recognizer's current phase. It is
// composed from the DEFAULT/ESC/CSI/LBRACKET/O/digit-1/digit-2/
// LBRACKET_2ND/LBRACKET_TTY state bits, collapsed into the reachable
// combinations this recognizer actually visits.
type fsmState uint8

const (
	fsmDefault fsmState = iota
	fsmESC              // saw ESC
	fsmCSI              // ESC [
	fsmO                // ESC O
	fsmCSIDigit1        // ESC [ 1
	fsmCSIDigit2        // ESC [ 2
	fsmCSILBracket2nd   // ESC [ [        (Linux F1-F5)
	fsmCSITTYDigits     // ESC [ <digits> (TTY VT220-style)
)

// resetState tracks progress through the ESC R ESC r ESC R reset triple.
type resetState uint8

const (
	resetNone resetState = iota
	resetSawR
	resetSawRr
)

// fsm is the per-instance escape-sequence recognizer state.
type fsm struct {
	state      fsmState
	reset      resetState
	pending    []rune // codepoints consumed since leaving fsmDefault
	digits     []rune // accumulated digits for fsmCSITTYDigits
	warmReset  bool   // latched by the reset triple, drained by the owner
	escapeArmed bool
}

// feed consumes one inbound codepoint and returns any key events it
// resolves into. timedOut must be called by the poll driver whenever the
// escape timer (armed by a transition out of fsmDefault) fires before
// the sequence resolves.
func (sf *fsm) feed(t Type, c rune) []Key {
	switch sf.state {
	case fsmDefault:
		return sf.feedDefault(t, c)
	case fsmESC:
		return sf.feedESC(t, c)
	case fsmCSI:
		return sf.feedCSI(t, c)
	case fsmO:
		return sf.feedO(t, c)
	case fsmCSIDigit1:
		return sf.feedTable(t, c, csi1Table, 2)
	case fsmCSIDigit2:
		return sf.feedTable(t, c, csi2Table, 2)
	case fsmCSILBracket2nd:
		return sf.feedTable(t, c, linuxBracketTable, 3)
	case fsmCSITTYDigits:
		return sf.feedTTYDigits(c)
	default:
		sf.reset = resetNone
		sf.state = fsmDefault
		return nil
	}
}

func (sf *fsm) feedDefault(t Type, c rune) []Key {
	if c == CharEsc {
		sf.state = fsmESC
		sf.pending = append(sf.pending[:0], c)
		sf.escapeArmed = true
		return nil
	}
	return []Key{decodeLiteral(t, c)}
}

func (sf *fsm) feedESC(t Type, c rune) []Key {
	sf.pending = append(sf.pending, c)

	switch {
	case c == 'R' && sf.reset == resetNone:
		sf.reset = resetSawR
		return sf.resolveDefault(nil)
	case c == 'r' && sf.reset == resetSawR:
		sf.reset = resetSawRr
		return sf.resolveDefault(nil)
	case c == 'R' && sf.reset == resetSawRr:
		sf.warmReset = true
		sf.reset = resetNone
		return sf.resolveDefault(nil)
	}
	sf.reset = resetNone

	switch c {
	case '[':
		sf.state = fsmCSI
		return nil
	case 'O':
		sf.state = fsmO
		return nil
	default:
		return sf.resolveDefault([]Key{Function(ScanEscape), Literal(c)})
	}
}

func (sf *fsm) feedCSI(t Type, c rune) []Key {
	sf.pending = append(sf.pending, c)
	switch {
	case c >= '0' && c <= '9' && t.isTTY():
		sf.state = fsmCSITTYDigits
		sf.digits = append(sf.digits[:0], c)
		return nil
	case c == '1' && !t.isTTY():
		sf.state = fsmCSIDigit1
		return nil
	case c == '2' && !t.isTTY():
		sf.state = fsmCSIDigit2
		return nil
	case c == '[' && t == Linux:
		sf.state = fsmCSILBracket2nd
		return nil
	}
	if sc, ok := csiTable[t][c]; ok {
		return sf.resolveDefault([]Key{Function(sc)})
	}
	return sf.flushLiteral()
}

func (sf *fsm) feedO(t Type, c rune) []Key {
	sf.pending = append(sf.pending, c)
	if tbl, ok := oTable[t]; ok {
		if sc, ok := tbl[c]; ok {
			return sf.resolveDefault([]Key{Function(sc)})
		}
	}
	return sf.flushLiteral()
}

func (sf *fsm) feedTable(t Type, c rune, tbl map[rune]ScanCode, _ int) []Key {
	sf.pending = append(sf.pending, c)
	if sc, ok := tbl[c]; ok {
		return sf.resolveDefault([]Key{Function(sc)})
	}
	return sf.flushLiteral()
}

func (sf *fsm) feedTTYDigits(c rune) []Key {
	if c >= '0' && c <= '9' && len(sf.digits) < 2 {
		sf.pending = append(sf.pending, c)
		sf.digits = append(sf.digits, c)
		return nil
	}
	if c == '~' {
		sf.pending = append(sf.pending, c)
		n := 0
		for _, d := range sf.digits {
			n = n*10 + int(d-'0')
		}
		if sc, ok := ttyDigitTable[n]; ok {
			return sf.resolveDefault([]Key{Function(sc)})
		}
		return sf.flushLiteral()
	}
	sf.pending = append(sf.pending, c)
	return sf.flushLiteral()
}

// flushLiteral abandons the in-progress sequence, emitting every
// consumed codepoint as a literal key in the order it was consumed -
// the ESC byte itself becomes a ScanEscape function key, matching the
// timeout-flush behavior.
func (sf *fsm) flushLiteral() []Key {
	keys := make([]Key, 0, len(sf.pending))
	for i, r := range sf.pending {
		if i == 0 && r == CharEsc {
			keys = append(keys, Function(ScanEscape))
			continue
		}
		keys = append(keys, Literal(r))
	}
	return sf.resolveDefault(keys)
}

// resolveDefault clears transient state, returns to fsmDefault and
// returns keys as-is (keys may be nil).
func (sf *fsm) resolveDefault(keys []Key) []Key {
	sf.state = fsmDefault
	sf.pending = sf.pending[:0]
	sf.digits = sf.digits[:0]
	sf.escapeArmed = false
	return keys
}

// timedOut is invoked by the poll driver when the 2-second escape timer
// fires before the sequence resolved. It flushes every consumed
// codepoint as a literal key, in order, and returns to fsmDefault.
func (sf *fsm) timedOut() []Key {
	if sf.state == fsmDefault {
		return nil
	}
	keys := sf.flushLiteral()
	sf.reset = resetNone
	return keys
}

// armed reports whether the FSM has left fsmDefault and therefore has an
// escape timer that should be running.
func (sf *fsm) armed() bool { return sf.escapeArmed }

// decodeLiteral applies the DEL policy: TTY maps 0x7F to CHAR_BACKSPACE,
// every other terminal maps it to ScanDelete.
func decodeLiteral(t Type, c rune) Key {
	if c == CharDelete {
		if t.isTTY() {
			return Literal(CharBackspace)
		}
		return Function(ScanDelete)
	}
	return Literal(c)
}
