// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import "github.com/thinkgos/edk2term/fifo"

// drainANSI moves every byte waiting in raw into unicode verbatim, one
// codepoint per byte, control bytes included - the FSM consumes those.
func drainANSI(raw *fifo.Raw, unicode *fifo.Unicode) {
	for !raw.Empty() && !unicode.Full() {
		b, _ := raw.Pop()
		if !unicode.Push(uint16(b)) {
			// Full was just checked, but Pop before re-check keeps this
			// defensive against a racing consumer; drop rather than
			// silently lose ordering.
			return
		}
	}
}

// drainUTF8 assembles 1-3 byte UTF-8 sequences from raw into codepoints
// in unicode. It pops eagerly: on an illegal continuation byte the
// partial sequence is dropped and decoding restarts at the next byte,
// which can consume (and lose) the first byte of the following valid
// sequence if that byte happened to double as a valid lead byte. This
// mirrors the legacy VT-UTF8 decoder and is intentionally not "fixed" by
// re-offering bytes after a failed continuation.
func drainUTF8(raw *fifo.Raw, unicode *fifo.Unicode) {
	for !unicode.Full() {
		lead, ok := raw.Pop()
		if !ok {
			return
		}

		var need int
		var c rune
		switch {
		case lead&0x80 == 0x00:
			unicode.Push(uint16(lead))
			continue
		case lead&0xE0 == 0xC0:
			need, c = 1, rune(lead&0x1F)
		case lead&0xF0 == 0xE0:
			need, c = 2, rune(lead&0x0F)
		default:
			// Not a valid lead byte for a 1-3 byte sequence; drop it.
			continue
		}

		ok = true
		for i := 0; i < need; i++ {
			b, popped := raw.Pop()
			if !popped {
				// Ran out of bytes mid-sequence: the eager-pop legacy
				// behavior resets here rather than re-buffering.
				ok = false
				break
			}
			if b&0xC0 != 0x80 {
				ok = false
				break
			}
			c = c<<6 | rune(b&0x3F)
		}
		if !ok {
			continue
		}
		unicode.Push(uint16(c))
	}
}

// encodeUTF8 mirrors the VT-UTF8 outbound path: 1, 2 or 3 bytes per the
// standard UTF-8 prefix bits, for codepoints below 0x10000.
func encodeUTF8(c rune) []byte {
	switch {
	case c < 0x80:
		return []byte{byte(c)}
	case c < 0x800:
		return []byte{
			0xC0 | byte(c>>6),
			0x80 | byte(c&0x3F),
		}
	default:
		return []byte{
			0xE0 | byte(c>>12),
			0x80 | byte((c>>6)&0x3F),
			0x80 | byte(c&0x3F),
		}
	}
}
