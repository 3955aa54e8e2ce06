// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"context"

	"github.com/thinkgos/edk2term/clog"
	"github.com/thinkgos/edk2term/external"
)

// DisplayStatement is the filtered, display-ready view of one statement:
// suppressed statements are dropped before the renderer ever sees them,
// grayed-out ones are kept with GrayedOut set.
type DisplayStatement struct {
	*Statement
	GrayedOut bool
}

// DisplayForm is the renderer-facing projection of a Form after
// per-form expressions are evaluated.
type DisplayForm struct {
	*Form
	Statements []DisplayStatement
}

// Callbacks maps a question id to its driver Callback collaborator.
type Callbacks map[uint16]external.Callback

// Loop is the selection + callback loop driving one form-set.
type Loop struct {
	clog.Clog

	FormSet *FormSet
	Routing external.ConfigRouting
	Hooks   Callbacks

	resetRequired     bool
	reconnectRequired bool
}

// NewLoop builds a Loop over fs.
func NewLoop(fs *FormSet, routing external.ConfigRouting, hooks Callbacks) *Loop {
	return &Loop{FormSet: fs, Routing: routing, Hooks: hooks}
}

// Assemble evaluates per-form expressions and returns the filtered
// display form: suppressed statements are dropped, grayed ones are kept
// but flagged.
func (sf *Loop) Assemble(f *Form) DisplayForm {
	df := DisplayForm{Form: f}
	for _, st := range f.Statements {
		ctx := EvalContext{FormSet: sf.FormSet, Form: f, Question: st}
		if EvaluatePredicate(ctx, st.Suppress) == PredicateTrue {
			continue
		}
		gray := EvaluatePredicate(ctx, st.GrayOut) == PredicateTrue
		df.Statements = append(df.Statements, DisplayStatement{Statement: st, GrayedOut: gray})
	}
	return df
}

// Confirm routes a confirm action on st within form f, dispatching the
// REF goto protocol, an ACTION's CHANGING callback, or a RESET_BUTTON's
// default re-extraction as appropriate.
func (sf *Loop) Confirm(f *Form, st *Statement, resolver external.DevicePathResolver) (external.Status, *Form) {
	switch st.Opcode {
	case Ref:
		return sf.Goto(f, st, resolver)
	case Action:
		return sf.invokeAction(st), nil
	case ResetButton:
		sf.applyDefault(f, uint16(st.Value.Uint))
		return external.OK, nil
	default:
		return external.Unsupported, nil
	}
}

func (sf *Loop) invokeAction(st *Statement) external.Status {
	cb, ok := sf.Hooks[st.QuestionID]
	if !ok {
		return external.NotFound
	}
	status, action := cb.Invoke(external.OpChanging, st.QuestionID, st.Value.Kind, st.Value)
	if status != external.OK {
		return status
	}
	if action&external.ActionSubmit != 0 && sf.Routing != nil {
		_, _ = sf.Routing.RouteConfig(context.Background(), "")
	}
	return external.OK
}

// Edit writes v into st's edit buffer (never the active buffer) - both
// the Value union and, for a buffer-bound question, the storage's edit
// byte range at [offset, offset+width) - runs validate expressions,
// fires CHANGING then CHANGED, and marks the value-changed flag on
// success.
func (sf *Loop) Edit(f *Form, st *Statement, v external.Value) external.Status {
	prev := st.Edit
	prevBytes := snapshotEditRange(st)
	st.Edit = v
	writeEditRange(st, v)

	ctx := EvalContext{FormSet: sf.FormSet, Form: f, Question: st}
	for _, e := range st.Inconsistent {
		if truthyExpr(ctx, e) {
			st.Edit = prev
			restoreEditRange(st, prevBytes)
			return external.InvalidParameter
		}
	}

	if cb, ok := sf.Hooks[st.QuestionID]; ok {
		status, action := cb.Invoke(external.OpChanging, st.QuestionID, v.Kind, v)
		if status != external.OK {
			st.Edit = prev // restore pre-edit value on CHANGING failure
			restoreEditRange(st, prevBytes)
			return status
		}
		sf.applyAction(f, st, action)
		status, action = cb.Invoke(external.OpChanged, st.QuestionID, v.Kind, v)
		sf.applyAction(f, st, action)
		if status != external.OK {
			return status
		}
	}
	st.ValueChanged = true
	return external.OK
}

// writeEditRange serializes v into st's bound storage edit buffer at the
// question's offset/width, mirroring eval.go's writeStorage. Name/value
// storages have no byte-offset concept and are left untouched.
func writeEditRange(st *Statement, v external.Value) {
	s := st.VarStore.Storage
	if s == nil || s.Type == StorageNameValue {
		return
	}
	off, w := int(st.VarStore.Offset), int(st.VarStore.Width)
	if off+w > len(s.Edit) {
		return
	}
	if v.Kind == external.ValueBuffer {
		copy(s.Edit[off:off+w], v.Buffer)
		return
	}
	bytesFromUint(s.Edit[off:off+w], v.Uint)
}

// snapshotEditRange captures st's current storage edit bytes so a failed
// Edit can restore them alongside st.Edit.
func snapshotEditRange(st *Statement) []byte {
	s := st.VarStore.Storage
	if s == nil || s.Type == StorageNameValue {
		return nil
	}
	off, w := int(st.VarStore.Offset), int(st.VarStore.Width)
	if off+w > len(s.Edit) {
		return nil
	}
	snap := make([]byte, w)
	copy(snap, s.Edit[off:off+w])
	return snap
}

// restoreEditRange reverts st's storage edit bytes to a prior
// snapshotEditRange capture.
func restoreEditRange(st *Statement, snap []byte) {
	if snap == nil {
		return
	}
	s := st.VarStore.Storage
	off, w := int(st.VarStore.Offset), int(st.VarStore.Width)
	if off+w > len(s.Edit) || len(snap) != w {
		return
	}
	copy(s.Edit[off:off+w], snap)
}

func truthyExpr(ctx EvalContext, e Expression) bool {
	v := Evaluate(ctx, e.Nodes)
	return v.Kind == external.ValueBool && v.Bool
}

// applyAction composes the callback action-bitmask matrix: each bit's
// effect is independent and several may fire from one callback return.
func (sf *Loop) applyAction(f *Form, st *Statement, action external.CallbackAction) {
	if action&external.ActionDiscard != 0 {
		sf.discard(st)
	}
	if action&external.ActionDefault != 0 {
		sf.applyDefault(f, 0)
	}
	if action&external.ActionSubmit != 0 {
		sf.submit(st)
	}
	if action&external.ActionReset != 0 {
		sf.resetRequired = true
	}
	if action&external.ActionReconnect != 0 {
		sf.reconnectRequired = true
	}
}

// Submit commits every changed statement's edit buffer into its storage
// at the documented [offset, offset+width) range, per form f.
func (sf *Loop) Submit(f *Form) external.Status {
	for _, st := range f.Statements {
		if !st.ValueChanged {
			continue
		}
		sf.submit(st)
	}
	if sf.Routing != nil {
		for _, req := range f.ConfigRequest {
			if status, _, _ := sf.Routing.ExtractConfig(context.Background(), req); status != external.OK {
				return status
			}
		}
	}
	return external.OK
}

func (sf *Loop) submit(st *Statement) {
	st.Value = st.Edit
	if s := st.VarStore.Storage; s != nil {
		copyRange(s.Active, s.Edit, int(st.VarStore.Offset), int(st.VarStore.Width))
	}
}

// Discard reverts every changed statement's edit buffer from its active
// buffer, per form f.
func (sf *Loop) Discard(f *Form) {
	for _, st := range f.Statements {
		sf.discard(st)
	}
}

func (sf *Loop) discard(st *Statement) {
	st.Edit = st.Value
	if s := st.VarStore.Storage; s != nil {
		copyRange(s.Edit, s.Active, int(st.VarStore.Offset), int(st.VarStore.Width))
	}
	st.ValueChanged = false
}

func copyRange(dst, src []byte, offset, width int) {
	if offset+width > len(dst) || offset+width > len(src) {
		return
	}
	copy(dst[offset:offset+width], src[offset:offset+width])
}

// applyDefault re-extracts defaults matching defaultID (0 = the
// form-set's primary "standard" default store) across every statement
// in f.
func (sf *Loop) applyDefault(f *Form, defaultID uint16) {
	for _, st := range f.Statements {
		for _, d := range st.Defaults {
			if d.DefaultID == defaultID {
				st.Edit = d.Value
				break
			}
		}
	}
}

// ResetRequired reports whether a callback has latched a system-reset
// request.
func (sf *Loop) ResetRequired() bool { return sf.resetRequired }

// ReconnectRequired reports whether a callback has latched a
// driver-reconnect request.
func (sf *Loop) ReconnectRequired() bool { return sf.reconnectRequired }
