// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package ifr parses the tagged binary "Internal Forms Representation"
// opcode stream into a form-set tree, evaluates its expressions and
// drives a selection/callback loop over the resulting forms.
package ifr

import "github.com/thinkgos/edk2term/external"

// GUID is a 16-byte form-set/class/storage identifier.
type GUID [16]byte

// StorageType is the storage-type tag in §3's Storage sum type.
type StorageType uint8

const (
	StorageBuffer StorageType = iota
	StorageVariable
	StorageVariableBuffer
	StorageNameValue
)

// Storage is a named or GUID-keyed region backing one or more
// questions. Storages are uniqued process-wide by the registry in
// internal/cfg per the rule documented on Key.
type Storage struct {
	Type       StorageType
	GUID       GUID
	Name       string // UCS-2 in the source format, kept as Go string here
	Size       uint16
	Attributes uint32
	HIIHandle  uint32

	Active []byte
	Edit   []byte

	NameValue map[string]string

	Initialized bool
}

// Key is the uniquing tuple a Storage is registered under. Name-value
// storages match on (GUID, HIIHandle) only; variable storages match on
// (GUID, Name) only; buffer storages match on (GUID, Name, HIIHandle).
type Key struct {
	Type      StorageType
	GUID      GUID
	Name      string
	HIIHandle uint32
}

// StorageKey builds the uniquing key for s per the per-type matching
// rule.
func StorageKey(s *Storage) Key {
	switch s.Type {
	case StorageNameValue:
		return Key{Type: StorageNameValue, GUID: s.GUID, HIIHandle: s.HIIHandle}
	case StorageVariable, StorageVariableBuffer:
		return Key{Type: s.Type, GUID: s.GUID, Name: s.Name}
	default: // StorageBuffer
		return Key{Type: StorageBuffer, GUID: s.GUID, Name: s.Name, HIIHandle: s.HIIHandle}
	}
}

// ExprFlavor classifies an Expression's role.
type ExprFlavor uint8

const (
	FlavorSuppressIf ExprFlavor = iota
	FlavorGrayOutIf
	FlavorDisableIf
	FlavorInconsistentIf
	FlavorNoSubmitIf
	FlavorWarningIf
	FlavorValue
	FlavorRead
	FlavorWrite
	FlavorRule
)

// ExprNode is one opcode node in a postfix expression.
type ExprNode struct {
	Op         Opcode
	Literal    external.Value
	QuestionID uint16
	HasQRef    bool
	Subs       [][]ExprNode // MAP sub-expression lists, owned inline

	// QuestionID2 carries EQ_ID_ID's second question operand.
	QuestionID2 uint16
	// ValueList carries EQ_ID_VAL_LIST's comparison values.
	ValueList []uint64
}

// Expression is a postfix sequence of opcode nodes classified by Flavor.
type Expression struct {
	Flavor ExprFlavor
	Nodes  []ExprNode
	// ErrorStringID is carried by INCONSISTENT_IF/NO_SUBMIT_IF/WARNING_IF
	// for the modal shown when the expression fires.
	ErrorStringID uint16
	WarningTimeout uint16
}

// Predicate is the three-state flavor used for suppress/grayout/disable
// evaluation.
type Predicate uint8

const (
	PredicateFalse Predicate = iota
	PredicateTrue
	PredicateDisabled
)

// Default is one entry in a question's default list.
type Default struct {
	DefaultID uint16
	Value     external.Value
}

// Option is one ONE_OF_OPTION/checkbox option attached to a question.
type Option struct {
	Value           external.Value
	StringID        uint16
	Flags           uint8
	Suppress        []Expression
	IsDefault       bool
	IsManufacturing bool
}

const (
	OptionFlagDefault       uint8 = 1 << 0
	OptionFlagManufacturing uint8 = 1 << 1
)

// VarStoreRef is where a question's value lives in its bound storage:
// either a byte offset+width, or a name-id for name/value storages.
type VarStoreRef struct {
	Storage   *Storage
	Offset    uint16
	Width     uint16
	NameID    string
	BitOffset uint16
	BitWidth  uint16
	IsBitField bool
}

// Statement is a single IFR statement/question.
type Statement struct {
	Opcode     Opcode
	PromptID   uint16
	HelpID     uint16
	QuestionID uint16
	HasQID     bool

	VarStore VarStoreRef

	Flags uint8

	Value external.Value
	Edit  external.Value

	Min, Max, Step int64

	Defaults []Default
	Options  []Option

	Inconsistent []Expression
	NoSubmit     []Expression
	Warning      []Expression
	ValueExpr    *Expression
	ReadExpr     *Expression
	WriteExpr    *Expression

	Suppress []Expression
	GrayOut  []Expression
	Disabled bool // not set by Parse: a constant-true DISABLE_IF drops the statements it guards instead

	Parent *Statement

	ValueChanged bool
}

// Form is one form within a form-set.
type Form struct {
	FormID   uint16
	TitleID  uint16
	Modal    bool
	Locked   bool
	RefreshInterval uint16
	RefreshGUID     GUID

	Statements []*Statement
	Expressions []Expression

	// ConfigRequest is one entry per storage this form touches,
	// built incrementally during parse (§4.6 "Configuration-request
	// construction").
	ConfigRequest []string

	// HighlightedQuestion is the cached highlighted question id on this
	// form's menu-history record.
	HighlightedQuestion uint16

	Suppress []Expression // snapshotted form-conditional stack, if any
}

// DefaultStoreEntry orders the form-set's default-store list.
type DefaultStoreEntry struct {
	DefaultID uint16
	Name      string
}

// LocalStorage is a form-set's local descriptor pointing at a shared,
// registry-owned Storage.
type LocalStorage struct {
	VarStoreID    uint16
	ConfigRequest string
	Storage       *Storage
}

// FormSet is the root of one IFR parse tree.
type FormSet struct {
	GUID       GUID
	ClassGUIDs [3]GUID
	NumClasses int
	TitleID    uint16
	HelpID     uint16

	Storages      []*LocalStorage
	DefaultStores []DefaultStoreEntry
	Forms         []*Form
	Expressions   []Expression

	// statement/expression arenas sized from the pass-1 count; Forms'
	// Statements slices are a view into statementArena in the teacher's
	// preallocate-then-fill style. expressionArena holds one entry per
	// conditional expression actually built in pass 2 (SUPPRESS_IF,
	// GRAY_OUT_IF, ...; a DISABLE_IF never builds one), so its length
	// is the pass-2 counterpart to counts.expressions from pass 1.
	statementArena  []Statement
	expressionArena []Expression
}

// FormByID looks up a form by id.
func (fs *FormSet) FormByID(id uint16) (*Form, bool) {
	for _, f := range fs.Forms {
		if f.FormID == id {
			return f, true
		}
	}
	return nil, false
}

// StatementByQuestionID looks up a statement with a question id across
// every form in the set.
func (fs *FormSet) StatementByQuestionID(id uint16) (*Statement, bool) {
	for _, f := range fs.Forms {
		for _, st := range f.Statements {
			if st.HasQID && st.QuestionID == id {
				return st, true
			}
		}
	}
	return nil, false
}
