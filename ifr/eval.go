// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/thinkgos/edk2term/external"
)

// EvalSpecVersion is returned by the VERSION expression opcode.
const EvalSpecVersion = uint64(0x00010000)

// EvalContext is the (form-set, current-form, current-question) context
// an expression is evaluated against.
type EvalContext struct {
	FormSet  *FormSet
	Form     *Form
	Question *Statement
}

// undefined is the distinguished value evaluation failure propagates as.
var undefined = external.Value{Kind: external.ValueUndefined}

// Evaluate runs nodes as an iterative postfix evaluation over a small
// value stack and returns the resulting tagged value. MAP is the one
// opcode that recurses: it evaluates its chosen sub-expression list with
// a nested call to Evaluate. A malformed or incomplete stream yields
// undefined rather than panicking.
func Evaluate(ctx EvalContext, nodes []ExprNode) external.Value {
	var stack []external.Value
	push := func(v external.Value) { stack = append(stack, v) }
	pop := func() (external.Value, bool) {
		if len(stack) == 0 {
			return undefined, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, n := range nodes {
		switch n.Op {
		case ExprTrue:
			push(external.Value{Kind: external.ValueBool, Bool: true})
		case ExprFalse:
			push(external.Value{Kind: external.ValueBool, Bool: false})
		case ExprOne:
			push(external.Value{Kind: external.ValueUint, Uint: 1})
		case ExprZero:
			push(external.Value{Kind: external.ValueUint, Uint: 0})
		case ExprUint8, ExprUint16, ExprUint32, ExprUint64:
			push(n.Literal)
		case ExprString:
			push(n.Literal)
		case ExprVersion:
			push(external.Value{Kind: external.ValueUint, Uint: EvalSpecVersion})
		case ExprThis:
			if ctx.Question == nil {
				return undefined
			}
			push(ctx.Question.Value)
		case ExprQuestionRef1:
			st, ok := ctx.FormSet.StatementByQuestionID(n.QuestionID)
			if !ok {
				return undefined
			}
			push(st.Value)
		case ExprGet:
			push(readStorage(ctx, n.QuestionID))
		case ExprSet:
			v, ok := pop()
			if !ok {
				return undefined
			}
			writeStorage(ctx, n.QuestionID, v)
			push(v)
		case ExprNot:
			a, ok := pop()
			if !ok {
				return undefined
			}
			push(boolValue(!truthy(a)))
		case ExprAnd:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(boolValue(truthy(a) && truthy(b)))
		case ExprOr:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(boolValue(truthy(a) || truthy(b)))
		case ExprAdd, ExprSubtract, ExprMultiply, ExprDivide, ExprModulo, ExprShiftLeft, ExprShiftRight:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			v, ok := arith(n.Op, a, b)
			if !ok {
				return undefined
			}
			push(v)
		case ExprEqual, ExprNotEqual, ExprLessThan, ExprLessEqual, ExprGreaterThan, ExprGreaterEqual:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(boolValue(compare(n.Op, a, b)))
		case ExprLength:
			a, ok := pop()
			if !ok {
				return undefined
			}
			push(external.Value{Kind: external.ValueUint, Uint: uint64(len(a.String))})
		case ExprCat:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(external.Value{Kind: external.ValueString, String: a.String + b.String})
		case ExprToUpper:
			a, ok := pop()
			if !ok {
				return undefined
			}
			push(external.Value{Kind: external.ValueString, String: strings.ToUpper(a.String)})
		case ExprToLower:
			a, ok := pop()
			if !ok {
				return undefined
			}
			push(external.Value{Kind: external.ValueString, String: strings.ToLower(a.String)})
		case ExprToString:
			a, ok := pop()
			if !ok {
				return undefined
			}
			push(external.Value{Kind: external.ValueString, String: fmt.Sprintf("%d", a.Uint)})
		case ExprFind, ExprSubstr:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(stringOp(n.Op, a, b))
		case ExprMid:
			start, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			from := int(start.Uint)
			if from > len(a.String) {
				from = len(a.String)
			}
			push(external.Value{Kind: external.ValueString, String: a.String[from:]})
		case ExprMatch, ExprMatch2, ExprSpan, ExprToken:
			// Delegated to the driver; unresolved here.
			return undefined
		case ExprStringRef1:
			push(n.Literal)
		case ExprStringRef2:
			b, ok1 := pop()
			a, ok2 := pop()
			if !ok1 || !ok2 {
				return undefined
			}
			push(boolValue(a.Uint == b.Uint))
		case ExprEqIdVal:
			v := readStorage(ctx, n.QuestionID)
			push(boolValue(v.Uint == n.Literal.Uint))
		case ExprEqIdId:
			a := readStorage(ctx, n.QuestionID)
			b := readStorage(ctx, n.QuestionID2)
			push(boolValue(a.Uint == b.Uint))
		case ExprEqIdValList:
			v := readStorage(ctx, n.QuestionID)
			match := false
			for _, want := range n.ValueList {
				if v.Uint == want {
					match = true
					break
				}
			}
			push(boolValue(match))
		case ExprMap:
			if ctx.Question == nil || len(n.Subs) == 0 {
				return undefined
			}
			idx := int(ctx.Question.Value.Uint)
			if idx < 0 || idx >= len(n.Subs) {
				idx = 0
			}
			push(Evaluate(ctx, n.Subs[idx]))
		case ExprRuleRef:
			return undefined
		default:
			return undefined
		}
	}

	v, ok := pop()
	if !ok {
		return undefined
	}
	return v
}

func truthy(v external.Value) bool {
	switch v.Kind {
	case external.ValueBool:
		return v.Bool
	case external.ValueUint:
		return v.Uint != 0
	default:
		return false
	}
}

func boolValue(b bool) external.Value { return external.Value{Kind: external.ValueBool, Bool: b} }

func arith(op Opcode, a, b external.Value) (external.Value, bool) {
	switch op {
	case ExprAdd:
		return external.Value{Kind: external.ValueUint, Uint: a.Uint + b.Uint}, true
	case ExprSubtract:
		return external.Value{Kind: external.ValueUint, Uint: a.Uint - b.Uint}, true
	case ExprMultiply:
		return external.Value{Kind: external.ValueUint, Uint: a.Uint * b.Uint}, true
	case ExprDivide:
		if b.Uint == 0 {
			return undefined, false
		}
		return external.Value{Kind: external.ValueUint, Uint: a.Uint / b.Uint}, true
	case ExprModulo:
		if b.Uint == 0 {
			return undefined, false
		}
		return external.Value{Kind: external.ValueUint, Uint: a.Uint % b.Uint}, true
	case ExprShiftLeft:
		return external.Value{Kind: external.ValueUint, Uint: a.Uint << b.Uint}, true
	case ExprShiftRight:
		return external.Value{Kind: external.ValueUint, Uint: a.Uint >> b.Uint}, true
	default:
		return undefined, false
	}
}

func compare(op Opcode, a, b external.Value) bool {
	switch op {
	case ExprEqual:
		return a.Uint == b.Uint && a.String == b.String
	case ExprNotEqual:
		return a.Uint != b.Uint || a.String != b.String
	case ExprLessThan:
		return a.Uint < b.Uint
	case ExprLessEqual:
		return a.Uint <= b.Uint
	case ExprGreaterThan:
		return a.Uint > b.Uint
	case ExprGreaterEqual:
		return a.Uint >= b.Uint
	default:
		return false
	}
}

func stringOp(op Opcode, a, b external.Value) external.Value {
	switch op {
	case ExprFind:
		return external.Value{Kind: external.ValueUint, Uint: uint64(strings.Index(a.String, b.String) + 1)}
	case ExprSubstr:
		n := int(b.Uint)
		if n > len(a.String) {
			n = len(a.String)
		}
		return external.Value{Kind: external.ValueString, String: a.String[:n]}
	default:
		return undefined
	}
}

func readStorage(ctx EvalContext, questionID uint16) external.Value {
	st, ok := ctx.FormSet.StatementByQuestionID(questionID)
	if !ok || st.VarStore.Storage == nil {
		return undefined
	}
	s := st.VarStore.Storage
	off, w := int(st.VarStore.Offset), int(st.VarStore.Width)
	if off+w > len(s.Active) {
		return undefined
	}
	return external.Value{Kind: external.ValueUint, Uint: uintFromBytes(s.Active[off : off+w])}
}

func writeStorage(ctx EvalContext, questionID uint16, v external.Value) {
	st, ok := ctx.FormSet.StatementByQuestionID(questionID)
	if !ok || st.VarStore.Storage == nil {
		return
	}
	s := st.VarStore.Storage
	off, w := int(st.VarStore.Offset), int(st.VarStore.Width)
	if off+w > len(s.Edit) {
		return
	}
	bytesFromUint(s.Edit[off:off+w], v.Uint)
}

func uintFromBytes(b []byte) uint64 {
	var padded [8]byte
	copy(padded[:], b)
	return binary.LittleEndian.Uint64(padded[:])
}

func bytesFromUint(dst []byte, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(dst, buf[:len(dst)])
}

// EvaluatePredicate runs exprs (a suppress/grayout list) and reports
// PredicateTrue if any evaluates truthy, else PredicateFalse. DISABLED
// is never produced here - DISABLE_IF is resolved at parse time and the
// statement it guards simply does not exist in the tree.
func EvaluatePredicate(ctx EvalContext, exprs []Expression) Predicate {
	for _, e := range exprs {
		if truthy(Evaluate(ctx, e.Nodes)) {
			return PredicateTrue
		}
	}
	return PredicateFalse
}
