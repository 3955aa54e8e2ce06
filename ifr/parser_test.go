// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"encoding/binary"
	"testing"

	"github.com/thinkgos/edk2term/external"
)

func record(op Opcode, scopeOpen bool, payload []byte) []byte {
	length := byte(len(payload) + 2)
	if scopeOpen {
		length |= scopeOpenBit
	}
	out := append([]byte{byte(op), length}, payload...)
	return out
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildStream assembles a FORM_SET { FORM { NUMERIC(q=1,min=0,max=10,
// step=1) { DEFAULT(u8=3) } } } opcode stream, matching the
// question-with-one-default walk described for the parser.
func buildStream(guid GUID) []byte {
	var data []byte

	formSetPayload := append([]byte{}, guid[:]...)
	formSetPayload = append(formSetPayload, le16(0x10)...) // titleID
	formSetPayload = append(formSetPayload, le16(0x11)...) // helpID
	formSetPayload = append(formSetPayload, 0)              // numClasses
	data = append(data, record(FormSet, true, formSetPayload)...)

	formPayload := append([]byte{}, le16(1)...) // formID
	formPayload = append(formPayload, le16(0x20)...) // titleID
	formPayload = append(formPayload, 0) // flags
	formPayload = append(formPayload, le16(0)...) // refresh
	data = append(data, record(Form, true, formPayload)...)

	numericPayload := append([]byte{}, le16(1)...) // questionID
	numericPayload = append(numericPayload, le16(0)...) // varStoreID
	numericPayload = append(numericPayload, le16(0)...) // offset
	numericPayload = append(numericPayload, le16(1)...) // width
	numericPayload = append(numericPayload, 0)           // flags
	numericPayload = append(numericPayload, le64(0)...)  // min
	numericPayload = append(numericPayload, le64(10)...) // max
	numericPayload = append(numericPayload, le64(1)...)  // step
	data = append(data, record(Numeric, true, numericPayload)...)

	defaultPayload := append([]byte{}, le16(0)...) // defaultID
	defaultPayload = append(defaultPayload, byte(external.ValueUint))
	defaultPayload = append(defaultPayload, le64(3)...)
	data = append(data, record(Default, false, defaultPayload)...)

	data = append(data, record(End, false, nil)...) // close Numeric
	data = append(data, record(End, false, nil)...) // close Form
	data = append(data, record(End, false, nil)...) // close FormSet

	return data
}

func TestParseFormWithDefaultedNumeric(t *testing.T) {
	var guid GUID
	copy(guid[:], []byte("0123456789ABCDEF"))
	data := buildStream(guid)

	p := NewParser(Config{})
	fs, err := p.Parse(data, guid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fs.Forms) != 1 {
		t.Fatalf("want 1 form, got %d", len(fs.Forms))
	}
	f := fs.Forms[0]
	if f.FormID != 1 {
		t.Fatalf("want formID 1, got %d", f.FormID)
	}
	if len(f.Statements) != 1 {
		t.Fatalf("want 1 statement, got %d", len(f.Statements))
	}
	st := f.Statements[0]
	if st.QuestionID != 1 {
		t.Fatalf("want questionID 1, got %d", st.QuestionID)
	}
	if st.Min != 0 || st.Max != 10 || st.Step != 1 {
		t.Fatalf("want min=0 max=10 step=1, got min=%d max=%d step=%d", st.Min, st.Max, st.Step)
	}
	if len(st.Defaults) != 1 {
		t.Fatalf("want 1 default, got %d", len(st.Defaults))
	}
	if st.Defaults[0].Value.Uint != 3 {
		t.Fatalf("want default value 3, got %d", st.Defaults[0].Value.Uint)
	}
	if st2, ok := fs.StatementByQuestionID(1); !ok || st2 != st {
		t.Fatalf("StatementByQuestionID(1) lookup failed")
	}
}

func TestParseRejectsGUIDMismatch(t *testing.T) {
	var guid, other GUID
	copy(guid[:], []byte("0123456789ABCDEF"))
	copy(other[:], []byte("FEDCBA9876543210"))
	data := buildStream(guid)

	p := NewParser(Config{})
	if _, err := p.Parse(data, other); err == nil {
		t.Fatal("want error on GUID mismatch, got nil")
	}
}

func TestParseUnclosedScopeErrors(t *testing.T) {
	var guid GUID
	copy(guid[:], []byte("0123456789ABCDEF"))
	data := buildStream(guid)
	data = data[:len(data)-2] // drop the final END closing FORM_SET

	p := NewParser(Config{})
	if _, err := p.Parse(data, guid); err == nil {
		t.Fatal("want error on unclosed scope, got nil")
	}
}
