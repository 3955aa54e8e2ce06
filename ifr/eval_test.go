// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"testing"

	"github.com/thinkgos/edk2term/external"
)

func uintNode(op Opcode, v uint64) ExprNode {
	return ExprNode{Op: op, Literal: external.Value{Kind: external.ValueUint, Uint: v}}
}

func formSetWithStorage() *FormSet {
	storage := &Storage{
		Type:   StorageBuffer,
		Name:   "Setup",
		Active: []byte{7, 0},
		Edit:   []byte{7, 0},
	}
	st1 := &Statement{QuestionID: 1, HasQID: true, VarStore: VarStoreRef{Storage: storage, Offset: 0, Width: 1}}
	st2 := &Statement{QuestionID: 2, HasQID: true, VarStore: VarStoreRef{Storage: storage, Offset: 0, Width: 1}}
	form := &Form{FormID: 1, Statements: []*Statement{st1, st2}}
	return &FormSet{Forms: []*Form{form}}
}

func TestEvaluateArithmeticAndCompare(t *testing.T) {
	nodes := []ExprNode{
		uintNode(ExprUint8, 3),
		uintNode(ExprUint8, 4),
		{Op: ExprAdd},
		uintNode(ExprUint8, 7),
		{Op: ExprEqual},
	}
	v := Evaluate(EvalContext{}, nodes)
	if v.Kind != external.ValueBool || !v.Bool {
		t.Fatalf("want true, got %+v", v)
	}
}

func TestEvaluateEqIdVal(t *testing.T) {
	fs := formSetWithStorage()
	nodes := []ExprNode{
		{Op: ExprEqIdVal, QuestionID: 1, HasQRef: true, Literal: external.Value{Kind: external.ValueUint, Uint: 7}},
	}
	v := Evaluate(EvalContext{FormSet: fs, Form: fs.Forms[0]}, nodes)
	if v.Kind != external.ValueBool || !v.Bool {
		t.Fatalf("want true (question 1's stored value is 7), got %+v", v)
	}
}

func TestEvaluateEqIdId(t *testing.T) {
	fs := formSetWithStorage()
	nodes := []ExprNode{
		{Op: ExprEqIdId, QuestionID: 1, QuestionID2: 2, HasQRef: true},
	}
	v := Evaluate(EvalContext{FormSet: fs, Form: fs.Forms[0]}, nodes)
	if v.Kind != external.ValueBool || !v.Bool {
		t.Fatalf("want true (both questions share the same storage slot), got %+v", v)
	}
}

func TestEvaluateEqIdValListMatch(t *testing.T) {
	fs := formSetWithStorage()
	nodes := []ExprNode{
		{Op: ExprEqIdValList, QuestionID: 1, HasQRef: true, ValueList: []uint64{5, 6, 7}},
	}
	v := Evaluate(EvalContext{FormSet: fs, Form: fs.Forms[0]}, nodes)
	if v.Kind != external.ValueBool || !v.Bool {
		t.Fatalf("want true (7 is in the list), got %+v", v)
	}
}

func TestEvaluateEqIdValListNoMatch(t *testing.T) {
	fs := formSetWithStorage()
	nodes := []ExprNode{
		{Op: ExprEqIdValList, QuestionID: 1, HasQRef: true, ValueList: []uint64{1, 2, 3}},
	}
	v := Evaluate(EvalContext{FormSet: fs, Form: fs.Forms[0]}, nodes)
	if v.Kind != external.ValueBool || v.Bool {
		t.Fatalf("want false (7 is not in the list), got %+v", v)
	}
}

func TestEvaluateMid(t *testing.T) {
	nodes := []ExprNode{
		{Op: ExprString, Literal: external.Value{Kind: external.ValueString, String: "edk2term"}},
		uintNode(ExprUint8, 4),
		{Op: ExprMid},
	}
	v := Evaluate(EvalContext{}, nodes)
	if v.Kind != external.ValueString || v.String != "term" {
		t.Fatalf("want \"term\", got %+v", v)
	}
}

func TestEvaluateStringRefEquality(t *testing.T) {
	nodes := []ExprNode{
		{Op: ExprStringRef1, Literal: external.Value{Kind: external.ValueUint, Uint: 42}},
		uintNode(ExprUint16, 42),
		{Op: ExprStringRef2},
	}
	v := Evaluate(EvalContext{}, nodes)
	if v.Kind != external.ValueBool || !v.Bool {
		t.Fatalf("want true, got %+v", v)
	}
}

func TestEvaluateTokenIsDelegated(t *testing.T) {
	nodes := []ExprNode{{Op: ExprToken}}
	v := Evaluate(EvalContext{}, nodes)
	if v.Kind != external.ValueUndefined {
		t.Fatalf("want undefined (TOKEN is delegated), got %+v", v)
	}
}

func TestEvaluatePredicateSuppressIf(t *testing.T) {
	exprs := []Expression{
		{Flavor: FlavorSuppressIf, Nodes: []ExprNode{{Op: ExprTrue}}},
	}
	if got := EvaluatePredicate(EvalContext{}, exprs); got != PredicateTrue {
		t.Fatalf("want PredicateTrue, got %v", got)
	}
}
