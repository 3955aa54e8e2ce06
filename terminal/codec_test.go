// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import (
	"testing"

	"github.com/thinkgos/edk2term/fifo"
)

func TestDrainUTF8Snowman(t *testing.T) {
	var raw fifo.Raw
	var uni fifo.Unicode

	for _, b := range []byte{0xE2, 0x98, 0x83} {
		raw.Push(b)
	}
	drainUTF8(&raw, &uni)

	c, ok := uni.Pop()
	if !ok || rune(c) != 0x2603 {
		t.Fatalf("got (%x,%v), want (2603,true)", c, ok)
	}
	if !uni.Empty() {
		t.Fatal("unicode FIFO should be drained to exactly one codepoint")
	}
}

func TestDrainANSIPassesBytesThrough(t *testing.T) {
	var raw fifo.Raw
	var uni fifo.Unicode

	raw.Push('A')
	raw.Push(0x1B)
	drainANSI(&raw, &uni)

	c1, _ := uni.Pop()
	c2, _ := uni.Pop()
	if c1 != 'A' || c2 != 0x1B {
		t.Fatalf("got %x %x", c1, c2)
	}
}

func TestEncodeUTF8BoundaryLengths(t *testing.T) {
	cases := []struct {
		c    rune
		want int
	}{
		{0x7F, 1},
		{0x7FF, 2},
		{0x800, 3},
		{0xFFFF, 3},
	}
	for _, tc := range cases {
		got := encodeUTF8(tc.c)
		if len(got) != tc.want {
			t.Fatalf("encodeUTF8(%x) len=%d, want %d", tc.c, len(got), tc.want)
		}
		for _, b := range got[1:] {
			if b&0xC0 != 0x80 {
				t.Fatalf("encodeUTF8(%x): continuation byte %x malformed", tc.c, b)
			}
		}
	}
}

func TestEncodeUTF8KnownBoundaries(t *testing.T) {
	if got := encodeUTF8(0x7FF); len(got) != 2 || got[0] != 0xDF || got[1] != 0xBF {
		t.Fatalf("encodeUTF8(0x7FF) = % x, want DF BF", got)
	}
	if got := encodeUTF8(0x800); len(got) != 3 || got[0] != 0xE0 || got[1] != 0xA0 || got[2] != 0x80 {
		t.Fatalf("encodeUTF8(0x800) = % x, want E0 A0 80", got)
	}
}
