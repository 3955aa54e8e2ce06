// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

// ScanCode enumerates the logical function keys the escape FSM can
// produce. ScanNull paired with a non-zero Char is a literal character.
type ScanCode uint16

// The function-key scan codes named in the FSM translation tables.
const (
	ScanNull ScanCode = iota
	ScanUp
	ScanDown
	ScanRight
	ScanLeft
	ScanHome
	ScanEnd
	ScanInsert
	ScanDelete
	ScanPageUp
	ScanPageDown
	ScanFunction1
	ScanFunction2
	ScanFunction3
	ScanFunction4
	ScanFunction5
	ScanFunction6
	ScanFunction7
	ScanFunction8
	ScanFunction9
	ScanFunction10
	ScanFunction11
	ScanFunction12
	ScanEscape
)

// The control characters the FSM and outbound sequencer treat
// specially.
const (
	CharBackspace rune = 0x08
	CharTab       rune = 0x09
	CharLF        rune = 0x0A
	CharCR        rune = 0x0D
	CharEsc       rune = 0x1B
	CharDelete    rune = 0x7F
)

// Key is a single logical key event: a function-key scan code, or a
// literal character when ScanCode is ScanNull.
type Key struct {
	ScanCode ScanCode
	Char     rune
}

// Literal builds a literal-character key event.
func Literal(c rune) Key { return Key{ScanCode: ScanNull, Char: c} }

// Function builds a function-key event.
func Function(sc ScanCode) Key { return Key{ScanCode: sc} }
