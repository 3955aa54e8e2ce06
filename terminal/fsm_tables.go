// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

// The dense per-terminal-type translation tables consulted by the
// escape-sequence FSM. Each table is keyed by the trailing codepoint(s)
// following the named escape prefix. A codepoint absent from the active
// terminal's table is a literal and flushes the in-progress sequence.

// csiTable maps the ESC [ <letter> family: cursor movement and the
// common HOME/END pair.
var csiTable = map[Type]map[rune]ScanCode{
	PCANSI:    ansiCSI,
	VT100:     ansiCSI,
	VT100Plus: ansiCSI,
	TTYTerm:   ansiCSI,
	Linux:     ansiCSI,
	XtermR6:   ansiCSI,
	VT400:     ansiCSI,
	SCO:       ansiCSI,
}

var ansiCSI = map[rune]ScanCode{
	'A': ScanUp,
	'B': ScanDown,
	'C': ScanRight,
	'D': ScanLeft,
	'H': ScanHome,
	'F': ScanEnd,
	'L': ScanInsert,
}

// csi1Table maps ESC [ 1 <letter> (F1-F8 on several terminal families and
// a second HOME spelling, ESC [ 1 ~).
var csi1Table = map[rune]ScanCode{
	'~': ScanHome,
	'A': ScanFunction1,
	'B': ScanFunction2,
	'C': ScanFunction3,
	'D': ScanFunction4,
	'E': ScanFunction5,
	'F': ScanFunction6,
	'G': ScanFunction7,
	'H': ScanFunction8,
}

// csi2Table maps ESC [ 2 <letter> (F9-F12 plus INSERT on some families).
var csi2Table = map[rune]ScanCode{
	'~': ScanInsert,
	'A': ScanFunction9,
	'B': ScanFunction10,
	'C': ScanFunction11,
	'D': ScanFunction12,
}

// linuxBracketTable maps ESC [ [ <letter>, the Linux console's own
// F1-F5 spelling.
var linuxBracketTable = map[rune]ScanCode{
	'A': ScanFunction1,
	'B': ScanFunction2,
	'C': ScanFunction3,
	'D': ScanFunction4,
	'E': ScanFunction5,
}

// oTable maps ESC O <letter>, the VT100 application-keypad/cursor mode.
var oTable = map[Type]map[rune]ScanCode{
	VT100:     vt100O,
	VT100Plus: vt100O,
	XtermR6:   vt100O,
	VT400:     vt100O,
}

var vt100O = map[rune]ScanCode{
	'A': ScanUp,
	'B': ScanDown,
	'C': ScanRight,
	'D': ScanLeft,
	'H': ScanHome,
	'P': ScanFunction1,
	'Q': ScanFunction2,
	'R': ScanFunction3,
	'S': ScanFunction4,
}

// ttyDigitTable maps the VT220-style ESC [ <digits> ~ sequence TTY alone
// recognizes, digits accumulated up to two decimal characters.
var ttyDigitTable = map[int]ScanCode{
	2:  ScanInsert,
	3:  ScanDelete,
	5:  ScanPageUp,
	6:  ScanPageDown,
	11: ScanFunction1,
	12: ScanFunction2,
	13: ScanFunction3,
	14: ScanFunction4,
	15: ScanFunction5,
	17: ScanFunction6,
	18: ScanFunction7,
	19: ScanFunction8,
	20: ScanFunction9,
	21: ScanFunction10,
	23: ScanFunction11,
	24: ScanFunction12,
}
