// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import (
	"bytes"
	"testing"

	"github.com/thinkgos/edk2term/external"
)

// fakeSerial is an external.Serial that only records writes; nothing in
// this package's outbound tests needs inbound bytes or attribute changes.
type fakeSerial struct {
	written bytes.Buffer
}

func (f *fakeSerial) Read([]byte) (int, external.Status)        { return 0, external.NotReady }
func (f *fakeSerial) Write(buf []byte) external.Status          { f.written.Write(buf); return external.OK }
func (f *fakeSerial) SetAttributes(external.Attributes) external.Status { return external.OK }
func (f *fakeSerial) GetControl() (uint32, external.Status)     { return external.InputBufferEmpty, external.OK }

func TestSetAttributeRoundTrip(t *testing.T) {
	seq := NewSequencer(VT100, &fakeSerial{}, 80, 24)
	seq.SetAttribute(0x13)
	if got := seq.Cursor().Attribute; got != 0x13 {
		t.Fatalf("got attribute %#x, want 0x13", got)
	}
}

func TestSetAttributeSuppressesRepeat(t *testing.T) {
	fs := &fakeSerial{}
	seq := NewSequencer(VT100, fs, 80, 24)
	seq.SetAttribute(0x07)
	n := fs.written.Len()
	seq.SetAttribute(0x07)
	if fs.written.Len() != n {
		t.Fatalf("re-emitting the same attribute should be suppressed, wrote %d more bytes", fs.written.Len()-n)
	}
}

func TestSetCursorRoundTrip(t *testing.T) {
	seq := NewSequencer(VT100, &fakeSerial{}, 80, 24)
	if status := seq.SetCursor(10, 5); status != external.OK {
		t.Fatalf("SetCursor: %v", status)
	}
	if c := seq.Cursor(); c.Col != 10 || c.Row != 5 {
		t.Fatalf("got cursor (%d,%d), want (10,5)", c.Col, c.Row)
	}
}

func TestSetCursorRejectsOutOfBounds(t *testing.T) {
	seq := NewSequencer(VT100, &fakeSerial{}, 80, 24)
	if status := seq.SetCursor(80, 0); status != external.InvalidParameter {
		t.Fatalf("got %v, want InvalidParameter", status)
	}
	if status := seq.SetCursor(0, 24); status != external.InvalidParameter {
		t.Fatalf("got %v, want InvalidParameter", status)
	}
}

func TestWriteStringCursorAdvance(t *testing.T) {
	seq := NewSequencer(VT100, &fakeSerial{}, 80, 24)
	seq.WriteString([]uint16{'a', 'b', 'c'})
	if c := seq.Cursor(); c.Col != 3 {
		t.Fatalf("got col %d, want 3", c.Col)
	}
	seq.WriteString([]uint16{uint16(CharCR)})
	if c := seq.Cursor(); c.Col != 0 {
		t.Fatalf("CR should zero column, got %d", c.Col)
	}
	seq.WriteString([]uint16{uint16(CharLF)})
	if c := seq.Cursor(); c.Row != 1 {
		t.Fatalf("LF should advance row, got %d", c.Row)
	}
}

func TestWriteStringUnsupportedGlyphWarns(t *testing.T) {
	seq := NewSequencer(VT100, &fakeSerial{}, 80, 24)
	status := seq.WriteString([]uint16{0x4E2D}) // CJK, not ASCII/drawing
	if status != external.WarnUnknownGlyph {
		t.Fatalf("got %v, want WarnUnknownGlyph", status)
	}
}

func TestTTYAutoWrapEmitsCRLF(t *testing.T) {
	fs := &fakeSerial{}
	seq := NewSequencer(TTYTerm, fs, 4, 24)
	seq.SetOutputEscapeAllowed(false)
	seq.WriteString([]uint16{'a', 'b', 'c', 'd'})
	if !bytes.Contains(fs.written.Bytes(), []byte("\r\n")) {
		t.Fatal("expected TTY auto-wrap workaround to emit CRLF")
	}
}

func TestVTUTF8AllowsAnyCodepoint(t *testing.T) {
	seq := NewSequencer(VTUTF8, &fakeSerial{}, 80, 24)
	status := seq.WriteString([]uint16{0x2603}) // U+2603 SNOWMAN
	if status != external.OK {
		t.Fatalf("got %v, want OK", status)
	}
}
