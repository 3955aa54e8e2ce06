// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"testing"

	"github.com/thinkgos/edk2term/external"
)

func TestParseRefTargetInFormSet(t *testing.T) {
	rt := parseRefTarget("||5|9")
	if rt.DevicePath != "" || rt.HasFormSet {
		t.Fatalf("got %+v, want bare in-form-set target", rt)
	}
	if rt.FormID != 5 || rt.QuestionID != 9 {
		t.Fatalf("got form=%d q=%d, want form=5 q=9", rt.FormID, rt.QuestionID)
	}
}

func TestParseRefTargetCrossFormSet(t *testing.T) {
	rt := parseRefTarget("|abcd|3|1")
	if rt.DevicePath != "" || !rt.HasFormSet {
		t.Fatalf("got %+v, want cross-form-set target without device path", rt)
	}
}

func TestParseRefTargetDevicePath(t *testing.T) {
	rt := parseRefTarget("PciRoot(0)|abcd|2|1")
	if rt.DevicePath != "PciRoot(0)" {
		t.Fatalf("got device path %q", rt.DevicePath)
	}
}

type fakeResolver struct {
	status external.Status
}

func (f *fakeResolver) Resolve(string, [16]byte) (uint32, external.Status) { return 1, f.status }

func TestGotoInFormSet(t *testing.T) {
	dest := &Form{FormID: 5}
	fs := &FormSet{Forms: []*Form{dest}}
	st := &Statement{Opcode: Ref, Value: external.Value{Kind: external.ValueString, String: "||5|9"}}
	loop := NewLoop(fs, nil, nil)

	status, got := loop.Goto(&Form{}, st, &fakeResolver{})
	if status != external.OK {
		t.Fatalf("Goto: %v", status)
	}
	if got != dest {
		t.Fatalf("got form %+v, want dest", got)
	}
	if got.HighlightedQuestion != 9 {
		t.Fatalf("got highlighted question %d, want 9", got.HighlightedQuestion)
	}
}

func TestGotoUnknownFormIsNotFound(t *testing.T) {
	fs := &FormSet{}
	st := &Statement{Opcode: Ref, Value: external.Value{Kind: external.ValueString, String: "||99|0"}}
	loop := NewLoop(fs, nil, nil)

	status, got := loop.Goto(&Form{}, st, &fakeResolver{})
	if status != external.NotFound || got != nil {
		t.Fatalf("got (%v,%+v), want (NotFound,nil)", status, got)
	}
}

func TestGotoCrossFormSetGUIDMismatch(t *testing.T) {
	fs := &FormSet{GUID: GUID{1}}
	st := &Statement{Opcode: Ref, Value: external.Value{Kind: external.ValueString, String: "|abcd|5|9"}}
	loop := NewLoop(fs, nil, nil)

	status, got := loop.Goto(&Form{}, st, &fakeResolver{})
	if status != external.NotFound || got != nil {
		t.Fatalf("got (%v,%+v), want (NotFound,nil) for mismatched form-set GUID", status, got)
	}
}

func TestDiscardPendingReportsUnsavedEdits(t *testing.T) {
	st := &Statement{ValueChanged: true}
	f := &Form{Statements: []*Statement{st}}
	loop := NewLoop(&FormSet{}, nil, nil)

	if !loop.DiscardPending(f) {
		t.Fatal("expected DiscardPending to report the unsaved edit")
	}
	st.ValueChanged = false
	if loop.DiscardPending(f) {
		t.Fatal("expected DiscardPending to report false once committed")
	}
}
