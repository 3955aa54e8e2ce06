// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

// Opcode is the first byte of every IFR record: (opcode u8, length u8
// with bit 7 = scope-open, payload...).
type Opcode uint8

// The recognized IFR opcodes. Structural and question opcodes open a
// scope (closed by END); expression opcodes appear inside an
// expression's postfix sequence.
const (
	_ Opcode = iota
	FormSet
	Form
	FormMap
	Subtitle
	Text
	Image
	OneOf
	OneOfOption
	OrderedList
	Checkbox
	Numeric
	Password
	String
	Date
	Time
	Ref
	Action
	ResetButton
	Locked
	ModalTag
	RefreshID
	Rule
	RuleRef
	Security
	VarStore
	VarStoreNameValue
	VarStoreEFI
	DefaultStore
	Default
	Guid
	End

	SuppressIf
	GrayOutIf
	DisableIf
	InconsistentIf
	NoSubmitIf
	WarningIf

	// Expression-node opcodes (postfix stream content).
	ExprTrue
	ExprFalse
	ExprOne
	ExprZero
	ExprUint8
	ExprUint16
	ExprUint32
	ExprUint64
	ExprString
	ExprQuestionRef1
	ExprThis
	ExprAdd
	ExprSubtract
	ExprMultiply
	ExprDivide
	ExprModulo
	ExprShiftLeft
	ExprShiftRight
	ExprAnd
	ExprOr
	ExprNot
	ExprEqual
	ExprNotEqual
	ExprLessThan
	ExprLessEqual
	ExprGreaterThan
	ExprGreaterEqual
	ExprLength
	ExprCat
	ExprSubstr
	ExprFind
	ExprToUpper
	ExprToLower
	ExprToString
	ExprMatch
	ExprMatch2
	ExprSpan
	ExprVersion
	ExprMap
	ExprGet
	ExprSet
	ExprRuleRef
	ExprMid
	ExprToken
	ExprStringRef1
	ExprStringRef2
	ExprEqIdVal
	ExprEqIdId
	ExprEqIdValList

	// Unknown is never produced by the scanner; it is the sentinel
	// classification used by classify() for opcode bytes the parser
	// does not recognize.
	Unknown
)

// scopeKind classifies an opcode for the two-pass counting walk and the
// scope-stack discipline.
type scopeKind uint8

const (
	kindStructural scopeKind = iota
	kindQuestion
	kindExpression
	kindConditional
	kindOther
)

var opcodeKind = map[Opcode]scopeKind{
	FormSet:           kindStructural,
	Form:              kindStructural,
	FormMap:           kindStructural,
	OneOfOption:       kindOther,
	VarStore:          kindOther,
	VarStoreNameValue: kindOther,
	VarStoreEFI:       kindOther,
	DefaultStore:      kindOther,
	Default:           kindOther,
	Guid:              kindOther,
	Rule:              kindOther,
	RuleRef:           kindExpression,

	OneOf:       kindQuestion,
	OrderedList: kindQuestion,
	Checkbox:    kindQuestion,
	Numeric:     kindQuestion,
	Password:    kindQuestion,
	String:      kindQuestion,
	Date:        kindQuestion,
	Time:        kindQuestion,
	Ref:         kindQuestion,
	Action:      kindQuestion,
	ResetButton: kindQuestion,

	SuppressIf:      kindConditional,
	GrayOutIf:       kindConditional,
	DisableIf:       kindConditional,
	InconsistentIf:  kindConditional,
	NoSubmitIf:      kindConditional,
	WarningIf:       kindConditional,
}

// isExpressionOpcode reports whether op is valid inside a postfix
// expression's opcode-node stream.
func isExpressionOpcode(op Opcode) bool {
	return op >= ExprTrue && op <= ExprEqIdValList
}

// opensScope reports whether the two-pass parser should push op onto the
// scope stack when its length byte's high bit is set.
func opensScope(op Opcode) bool {
	switch op {
	case FormSet, Form, FormMap, OneOf, OrderedList, Checkbox, Numeric,
		Password, String, Date, Time, Ref, Action, ResetButton,
		SuppressIf, GrayOutIf, DisableIf, InconsistentIf, NoSubmitIf,
		WarningIf, Guid, Rule, Security:
		return true
	default:
		return false
	}
}

const (
	scopeOpenBit byte = 0x80
	lengthMask   byte = 0x7F
)
