// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import (
	"fmt"

	"github.com/thinkgos/edk2term/external"
)

// boxDrawASCII approximates the common box-drawing glyphs (Unicode page
// 0x2500) as plain ASCII for terminals that cannot render them.
var boxDrawASCII = map[rune]byte{
	0x2500: '-', // horizontal line
	0x2502: '|', // vertical line
	0x250C: '+', // down and right
	0x2510: '+', // down and left
	0x2514: '+', // up and right
	0x2518: '+', // up and left
	0x251C: '+', // vertical and right
	0x2524: '+', // vertical and left
	0x252C: '+', // down and horizontal
	0x2534: '+', // up and horizontal
	0x253C: '+', // cross
	0x2191: '^', // upwards arrow
	0x2193: 'v', // downwards arrow
	0x2190: '<', // leftwards arrow
	0x2192: '>', // rightwards arrow
	0x25A0: '*', // black square
}

// boxDrawPCANSI approximates the same glyphs as the CP437 high-bit byte
// PC-ANSI terminals natively render.
var boxDrawPCANSI = map[rune]byte{
	0x2500: 0xC4,
	0x2502: 0xB3,
	0x250C: 0xDA,
	0x2510: 0xBF,
	0x2514: 0xC0,
	0x2518: 0xD9,
	0x251C: 0xC3,
	0x2524: 0xB4,
	0x252C: 0xC2,
	0x2534: 0xC1,
	0x253C: 0xC5,
	0x2191: 0x18,
	0x2193: 0x19,
	0x2190: 0x1B,
	0x2192: 0x1A,
	0x25A0: 0xFE,
}

func isDrawingGlyph(c rune) bool {
	return (c >= 0x2500 && c <= 0x25FF) || (c >= 0x2100 && c <= 0x21FF)
}

func isPrintableASCII(c rune) bool { return c >= 0x20 && c <= 0x7E }

func isControlChar(c rune) bool {
	switch c {
	case 0, CharBackspace, CharLF, CharCR, CharTab:
		return true
	default:
		return false
	}
}

// validGlyph reports whether c may be emitted to t, per the outbound
// validation rule: ASCII printable, one of the five permitted control
// characters (NUL, BS, TAB, LF, CR), a supported drawing glyph, or (for
// VT-UTF8) anything.
func validGlyph(t Type, c rune) bool {
	if t.isUTF8() {
		return true
	}
	return isPrintableASCII(c) || isControlChar(c) || isDrawingGlyph(c)
}

// Cursor tracks the outbound sequencer's view of cursor position and the
// last attribute written, used for wrap handling and write suppression.
type Cursor struct {
	Col, Row       int
	MaxCol, MaxRow int
	Attribute      uint8
	attributeSet   bool
}

// Sequencer converts a UCS-2 string plus attribute/cursor operations
// into the control sequences the active terminal type expects, and
// tracks cursor position as it writes.
type Sequencer struct {
	typ                 Type
	serial              external.Serial
	cursor              Cursor
	outputEscapeAllowed bool
}

// NewSequencer builds a Sequencer for t, writing through serial.
func NewSequencer(t Type, serial external.Serial, maxCol, maxRow int) *Sequencer {
	return &Sequencer{
		typ:    t,
		serial: serial,
		cursor: Cursor{MaxCol: maxCol, MaxRow: maxRow},
	}
}

// SetOutputEscapeAllowed toggles the TTY auto-wrap workaround: when
// false, a wrap the driver's own tracking detects (but the physical
// terminal may not) is corrected with an explicit CRLF.
func (sf *Sequencer) SetOutputEscapeAllowed(allowed bool) { sf.outputEscapeAllowed = allowed }

// WriteString emits s, validating and translating each codepoint and
// updating cursor state. It returns WarnUnknownGlyph (continuing with a
// substitution marker) if any codepoint failed validation.
func (sf *Sequencer) WriteString(s []uint16) external.Status {
	warned := false
	for _, u := range s {
		c := rune(u)
		if !validGlyph(sf.typ, c) {
			c = '?'
			warned = true
		}
		sf.writeOne(c)
	}
	if warned {
		return external.WarnUnknownGlyph
	}
	return external.OK
}

func (sf *Sequencer) writeOne(c rune) {
	out := sf.translate(c)
	sf.serial.Write(out)
	sf.advanceCursor(c)
}

func (sf *Sequencer) translate(c rune) []byte {
	if sf.typ.isUTF8() {
		return encodeUTF8(c)
	}
	if isDrawingGlyph(c) {
		if sf.typ == PCANSI {
			if b, ok := boxDrawPCANSI[c]; ok {
				return []byte{b}
			}
		}
		if b, ok := boxDrawASCII[c]; ok {
			return []byte{b}
		}
		return []byte{'?'}
	}
	return []byte{byte(c)}
}

func (sf *Sequencer) advanceCursor(c rune) {
	switch c {
	case CharBackspace:
		if sf.cursor.Col > 0 {
			sf.cursor.Col--
		}
	case CharLF:
		if sf.cursor.Row < sf.cursor.MaxRow-1 {
			sf.cursor.Row++
		}
	case CharCR:
		sf.cursor.Col = 0
	default:
		sf.cursor.Col++
		if sf.cursor.Col >= sf.cursor.MaxCol {
			sf.cursor.Col = 0
			if sf.cursor.Row < sf.cursor.MaxRow-1 {
				sf.cursor.Row++
			}
			if sf.typ.isTTY() && !sf.outputEscapeAllowed {
				sf.serial.Write([]byte("\r\n"))
			}
		}
	}
}

// SetAttribute emits ESC [ 0 ; <fg> ; <bg> m, suppressing re-emission of
// the attribute already in effect.
func (sf *Sequencer) SetAttribute(attr uint8) external.Status {
	if sf.cursor.attributeSet && sf.cursor.Attribute == attr {
		return external.OK
	}
	fg := 30 + int(attr&0x07)
	bright := ";1"
	if attr&0x08 == 0 {
		bright = ""
	}
	bg := 40 + int((attr>>4)&0x07)
	sf.serial.Write([]byte(fmt.Sprintf("\x1b[0;%d%s;%dm", fg, bright, bg)))
	sf.cursor.Attribute = attr
	sf.cursor.attributeSet = true
	return external.OK
}

// ClearScreen emits ESC [ 2 J and resets the tracked cursor to (0,0).
func (sf *Sequencer) ClearScreen() external.Status {
	sf.serial.Write([]byte("\x1b[2J"))
	sf.cursor.Col, sf.cursor.Row = 0, 0
	return external.OK
}

// SetCursor emits a 1-based cursor-positioning sequence; TTY terminals
// moving within the same row get the relative ESC [ n C / ESC [ n D
// forms instead.
func (sf *Sequencer) SetCursor(col, row int) external.Status {
	if col < 0 || col >= sf.cursor.MaxCol || row < 0 || row >= sf.cursor.MaxRow {
		return external.InvalidParameter
	}
	if sf.typ.isTTY() && row == sf.cursor.Row {
		delta := col - sf.cursor.Col
		switch {
		case delta > 0:
			sf.serial.Write([]byte(fmt.Sprintf("\x1b[%dC", delta)))
		case delta < 0:
			sf.serial.Write([]byte(fmt.Sprintf("\x1b[%dD", -delta)))
		}
	} else {
		sf.serial.Write([]byte(fmt.Sprintf("\x1b[%d;%dH", row+1, col+1)))
	}
	sf.cursor.Col, sf.cursor.Row = col, row
	return external.OK
}

// Cursor returns the sequencer's tracked cursor state.
func (sf *Sequencer) Cursor() Cursor { return sf.cursor }
