// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import "testing"

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// buildBufferStorageStream assembles FORM_SET { VARSTORE { } FORM {
// NUMERIC(q=1, varStoreID=1, offset=0, width=1) } }, exercising the
// parse-time configuration-request fragment registration for a
// buffer-typed storage (§4.6).
func buildBufferStorageStream(guid GUID) []byte {
	var data []byte

	formSetPayload := append([]byte{}, guid[:]...)
	formSetPayload = append(formSetPayload, le16(0x10)...)
	formSetPayload = append(formSetPayload, le16(0x11)...)
	formSetPayload = append(formSetPayload, 0)
	data = append(data, record(FormSet, true, formSetPayload)...)

	var storeGUID GUID
	varStorePayload := append([]byte{}, storeGUID[:]...)
	varStorePayload = append(varStorePayload, le16(2)...) // size
	varStorePayload = append(varStorePayload, 0)           // nameLen
	varStorePayload = append(varStorePayload, le32(0)...)  // hii
	data = append(data, record(VarStore, false, varStorePayload)...)

	formPayload := append([]byte{}, le16(1)...)
	formPayload = append(formPayload, le16(0x20)...)
	formPayload = append(formPayload, 0)
	formPayload = append(formPayload, le16(0)...)
	data = append(data, record(Form, true, formPayload)...)

	numericPayload := append([]byte{}, le16(1)...) // questionID
	numericPayload = append(numericPayload, le16(1)...) // varStoreID
	numericPayload = append(numericPayload, le16(0)...)  // offset
	numericPayload = append(numericPayload, le16(1)...)  // width
	numericPayload = append(numericPayload, 0)            // flags
	numericPayload = append(numericPayload, le64(0)...)
	numericPayload = append(numericPayload, le64(10)...)
	numericPayload = append(numericPayload, le64(1)...)
	data = append(data, record(Numeric, true, numericPayload)...)

	data = append(data, record(End, false, nil)...) // close Numeric
	data = append(data, record(End, false, nil)...) // close Form
	data = append(data, record(End, false, nil)...) // close FormSet

	return data
}

func TestParseRegistersBufferConfigRequest(t *testing.T) {
	var guid GUID
	copy(guid[:], []byte("0123456789ABCDEF"))
	data := buildBufferStorageStream(guid)

	p := NewParser(Config{})
	fs, err := p.Parse(data, guid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fs.Storages) != 1 {
		t.Fatalf("want 1 storage, got %d", len(fs.Storages))
	}
	const want = "&OFFSET=0000&WIDTH=0001"
	if got := fs.Storages[0].ConfigRequest; got != want {
		t.Fatalf("storage ConfigRequest = %q, want %q", got, want)
	}
	f := fs.Forms[0]
	if len(f.ConfigRequest) != 1 || f.ConfigRequest[0] != want {
		t.Fatalf("form ConfigRequest = %v, want [%q]", f.ConfigRequest, want)
	}
	st := f.Statements[0]
	if st.VarStore.Storage == nil {
		t.Fatal("statement should be bound to the storage")
	}
}

// buildNameValueStorageStream assembles FORM_SET { VARSTORE_NAME_VALUE { }
// FORM { NUMERIC(q=2, varStoreID=1, offset=7 as NameID) } }, exercising
// the name-id binding path for name/value storages.
func buildNameValueStorageStream(guid GUID) []byte {
	var data []byte

	formSetPayload := append([]byte{}, guid[:]...)
	formSetPayload = append(formSetPayload, le16(0x10)...)
	formSetPayload = append(formSetPayload, le16(0x11)...)
	formSetPayload = append(formSetPayload, 0)
	data = append(data, record(FormSet, true, formSetPayload)...)

	var storeGUID GUID
	varStorePayload := append([]byte{}, storeGUID[:]...)
	varStorePayload = append(varStorePayload, le32(0)...) // hii
	data = append(data, record(VarStoreNameValue, false, varStorePayload)...)

	formPayload := append([]byte{}, le16(1)...)
	formPayload = append(formPayload, le16(0x20)...)
	formPayload = append(formPayload, 0)
	formPayload = append(formPayload, le16(0)...)
	data = append(data, record(Form, true, formPayload)...)

	numericPayload := append([]byte{}, le16(2)...) // questionID
	numericPayload = append(numericPayload, le16(1)...) // varStoreID
	numericPayload = append(numericPayload, le16(7)...)  // offset carries NameID
	numericPayload = append(numericPayload, le16(0)...)  // width (unused for name/value)
	numericPayload = append(numericPayload, 0)
	numericPayload = append(numericPayload, le64(0)...)
	numericPayload = append(numericPayload, le64(10)...)
	numericPayload = append(numericPayload, le64(1)...)
	data = append(data, record(Numeric, true, numericPayload)...)

	data = append(data, record(End, false, nil)...)
	data = append(data, record(End, false, nil)...)
	data = append(data, record(End, false, nil)...)

	return data
}

func TestParseBindsNameValueNameID(t *testing.T) {
	var guid GUID
	copy(guid[:], []byte("0123456789ABCDEF"))
	data := buildNameValueStorageStream(guid)

	p := NewParser(Config{})
	fs, err := p.Parse(data, guid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st, ok := fs.StatementByQuestionID(2)
	if !ok {
		t.Fatal("question 2 not found")
	}
	if st.VarStore.NameID != "7" {
		t.Fatalf("NameID = %q, want %q", st.VarStore.NameID, "7")
	}
	const want = "&7"
	if got := fs.Storages[0].ConfigRequest; got != want {
		t.Fatalf("storage ConfigRequest = %q, want %q", got, want)
	}
	if len(fs.Forms[0].ConfigRequest) != 1 || fs.Forms[0].ConfigRequest[0] != want {
		t.Fatalf("form ConfigRequest = %v, want [%q]", fs.Forms[0].ConfigRequest, want)
	}
}
