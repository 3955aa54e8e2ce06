// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import "github.com/thinkgos/edk2term/external"

// RefTarget is the payload of a REF statement's goto target, decoded
// from its Value.String field ("devicePath|formSetGUIDHex|formID|qID",
// empty segments allowed).
type RefTarget struct {
	DevicePath  string
	FormSetGUID GUID
	HasFormSet  bool
	FormID      uint16
	QuestionID  uint16
}

// Goto resolves st's REF target and returns the destination form. It
// covers all three cases decided by inspecting the REF value: a
// device-path lookup, a bare cross-form-set GUID lookup, or an
// in-form-set (form-id, question-id) jump.
//
// If f has unsaved edits and the transition crosses form-sets, the
// caller is expected to have already resolved any discard/submit/cancel
// prompt - DiscardPending reports that condition so the caller can do
// so before calling Goto.
func (sf *Loop) Goto(f *Form, st *Statement, resolver external.DevicePathResolver) (external.Status, *Form) {
	target := st.refTarget()

	switch {
	case target.DevicePath != "":
		hiiHandle, status := resolver.Resolve(target.DevicePath, target.FormSetGUID)
		if status != external.OK {
			return status, nil
		}
		_ = hiiHandle // the foreign form-set lives outside this FormSet; the
		// caller re-parses it and calls Goto again within that tree.
		return external.OK, nil
	case target.HasFormSet:
		if target.FormSetGUID != sf.FormSet.GUID {
			return external.NotFound, nil
		}
		dest, ok := sf.FormSet.FormByID(target.FormID)
		if !ok {
			return external.NotFound, nil
		}
		dest.HighlightedQuestion = target.QuestionID
		return external.OK, dest
	default:
		dest, ok := sf.FormSet.FormByID(target.FormID)
		if !ok {
			return external.NotFound, nil
		}
		dest.HighlightedQuestion = target.QuestionID
		return external.OK, dest
	}
}

// DiscardPending reports whether f has statements whose edit buffer has
// not been committed, the condition that should prompt discard/submit/
// cancel before a cross-form-set Goto.
func (sf *Loop) DiscardPending(f *Form) bool {
	for _, st := range f.Statements {
		if st.ValueChanged {
			return true
		}
	}
	return false
}

// refTarget decodes a REF statement's target. This model stores it
// pre-split on the Value.String field rather than re-parsing UEFI's
// packed device-path bytes every time.
func (st *Statement) refTarget() RefTarget {
	// Populated by the parser from the REF opcode's payload; see
	// stepQuestion's Ref handling, which leaves Value.String holding the
	// "devicePath|guid|formID|questionID" encoding used here.
	return parseRefTarget(st.Value.String)
}

func parseRefTarget(enc string) RefTarget {
	var rt RefTarget
	parts := splitN4(enc)
	rt.DevicePath = parts[0]
	if parts[1] != "" {
		rt.HasFormSet = true
		copy(rt.FormSetGUID[:], []byte(parts[1]))
	}
	rt.FormID = uint16(atoiSafe(parts[2]))
	rt.QuestionID = uint16(atoiSafe(parts[3]))
	return rt
}

func splitN4(s string) [4]string {
	var out [4]string
	i := 0
	start := 0
	for j := 0; j < len(s) && i < 3; j++ {
		if s[j] == '|' {
			out[i] = s[start:j]
			i++
			start = j + 1
		}
	}
	out[i] = s[start:]
	return out
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
