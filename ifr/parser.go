// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package ifr

import (
	"fmt"
	"strconv"

	"github.com/thinkgos/edk2term/clog"
	"github.com/thinkgos/edk2term/external"
)

// record is one decoded (opcode, scope-open, payload) triple from the
// linear opcode stream.
type record struct {
	op      Opcode
	scope   bool
	payload []byte
}

// scanRecords walks data once, splitting it into records. Both parser
// passes reuse this same scan so pass 1's counts and pass 2's tree are
// built from an identical record sequence.
func scanRecords(data []byte) ([]record, error) {
	var recs []record
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, ErrTruncated
		}
		op := Opcode(data[0])
		length := data[1]
		total := int(length & lengthMask)
		if total < 2 || total > len(data) {
			return nil, ErrTruncated
		}
		recs = append(recs, record{
			op:      op,
			scope:   length&scopeOpenBit != 0,
			payload: data[2:total],
		})
		data = data[total:]
	}
	return recs, nil
}

// counts is the pass-1 tally used to size the statement and expression
// arenas before pass 2 builds the tree.
type counts struct {
	statements  int
	expressions int
}

func countRecords(recs []record) counts {
	var c counts
	for _, r := range recs {
		switch opcodeKind[r.op] {
		case kindQuestion:
			c.statements++
		case kindConditional:
			c.expressions++
		}
	}
	return c
}

// StorageRegistry uniques Storage instances by Key; internal/cfg's
// Registry satisfies it.
type StorageRegistry interface {
	Acquire(s *Storage) *Storage
}

// Config configures Parse.
type Config struct {
	// Registry uniques Storage instances across form-sets. A nil
	// Registry is replaced by a private per-call one, which disables
	// cross-form-set sharing.
	Registry StorageRegistry
}

// localRegistry is the private registry NewParser falls back to.
type localRegistry map[Key]*Storage

func (sf localRegistry) Acquire(s *Storage) *Storage {
	if shared, ok := sf[StorageKey(s)]; ok {
		return shared
	}
	sf[StorageKey(s)] = s
	return s
}

// Parser runs the two-pass build over one opcode stream for a single
// expected form-set GUID.
type Parser struct {
	clog.Clog
	cfg Config
}

// NewParser builds a Parser using cfg (zero value is valid: it gets a
// private registry).
func NewParser(c Config) *Parser {
	if c.Registry == nil {
		c.Registry = make(localRegistry)
	}
	return &Parser{cfg: c}
}

// frameKind distinguishes the two reasons an expression-builder frame is
// on the stack.
type frameKind uint8

const (
	frameConditional frameKind = iota
	frameMap
)

type builderFrame struct {
	kind   frameKind
	flavor ExprFlavor
	errID  uint16
	warnTO uint16
	nodes  []ExprNode
}

// parseState is the mutable state pass 2 threads through scanRecords'
// output.
type parseState struct {
	fs *FormSet

	scopeStack []Opcode
	exprStack  []builderFrame

	suppressDepth int
	unknownDepth  int

	currentForm      *Form
	currentStatement *Statement
	currentOption    *Option
	bitVarstoreNext  bool

	spareLen int

	// buildCfg governs the growth increment of every requestBuilder
	// opened below (§4.6 "Maintain a spare-length counter...").
	buildCfg BuildConfig

	// fsStorageBuilders accumulates one configuration-request fragment
	// string per storage touched anywhere in the form-set, flushed into
	// each LocalStorage.ConfigRequest (iterated in fs.Storages order) at
	// the end of Parse.
	fsStorageBuilders map[*Storage]*requestBuilder

	// formStorageOrder/formStorageBuilders accumulate the same, scoped
	// to the form currently being built; reset on FORM/FORM_MAP entry
	// and flushed into Form.ConfigRequest when its END closes the form.
	formStorageOrder    []*Storage
	formStorageBuilders map[*Storage]*requestBuilder
}

// Parse runs pass 1 (count) then pass 2 (build) over data, validating
// that the FORM_SET opcode's GUID matches want.
func (sf *Parser) Parse(data []byte, want GUID) (*FormSet, error) {
	recs, err := scanRecords(data)
	if err != nil {
		return nil, err
	}
	c := countRecords(recs)

	fs := &FormSet{
		statementArena:  make([]Statement, 0, c.statements),
		expressionArena: make([]Expression, 0, c.expressions),
	}
	st := &parseState{
		fs:                  fs,
		buildCfg:            DefaultBuildConfig(),
		fsStorageBuilders:   make(map[*Storage]*requestBuilder),
		formStorageBuilders: make(map[*Storage]*requestBuilder),
	}

	for i, r := range recs {
		if err := sf.step(st, r); err != nil {
			return nil, fmt.Errorf("ifr: opcode %d at record %d: %w", r.op, i, err)
		}
	}
	if len(st.scopeStack) != 0 {
		return nil, fmt.Errorf("ifr: %d unclosed scope(s) at end of stream", len(st.scopeStack))
	}
	if fs.GUID != want {
		return nil, external.InvalidParameter
	}
	for _, ls := range fs.Storages {
		if b, ok := st.fsStorageBuilders[ls.Storage]; ok {
			ls.ConfigRequest = b.String()
		}
	}
	return fs, nil
}

// registerConfigFragment appends stmt's &OFFSET=&WIDTH= (or &<name>)
// fragment to both the form-set-level builder for its storage (flushed
// into LocalStorage.ConfigRequest once parsing finishes) and the
// current form's builder for that storage (flushed into
// Form.ConfigRequest when the form's END closes it), per §4.6.
func (sf *Parser) registerConfigFragment(st *parseState, stmt *Statement) {
	s := stmt.VarStore.Storage
	if s == nil {
		return
	}
	appendFragment := func(b *requestBuilder) {
		if s.Type == StorageNameValue {
			b.appendName(stmt.VarStore.NameID)
		} else {
			b.appendOffsetWidth(stmt.VarStore.Offset, stmt.VarStore.Width)
		}
	}

	if b, ok := st.fsStorageBuilders[s]; ok {
		appendFragment(b)
	} else {
		b := newRequestBuilder(st.buildCfg)
		appendFragment(b)
		st.fsStorageBuilders[s] = b
	}

	if st.currentForm == nil {
		return
	}
	if b, ok := st.formStorageBuilders[s]; ok {
		appendFragment(b)
	} else {
		b := newRequestBuilder(st.buildCfg)
		appendFragment(b)
		st.formStorageBuilders[s] = b
		st.formStorageOrder = append(st.formStorageOrder, s)
	}
}

func (sf *Parser) step(st *parseState, r record) error {
	// Unknown-opcode scope skip (checked before suppressed-scope so an
	// unrecognized DISABLE_IF payload still degrades gracefully).
	if st.unknownDepth > 0 {
		if r.scope {
			st.unknownDepth++
		}
		if r.op == End {
			st.unknownDepth--
		}
		return nil
	}
	if st.suppressDepth > 0 {
		if r.scope {
			st.suppressDepth++
		}
		if r.op == End {
			st.suppressDepth--
		}
		return nil
	}

	if isExpressionOpcode(r.op) {
		return sf.stepExpressionNode(st, r)
	}

	switch r.op {
	case FormSet:
		return sf.stepFormSet(st, r)
	case Form, FormMap:
		return sf.stepForm(st, r)
	case Subtitle, Text, Image, Locked, ModalTag, RefreshID:
		return nil // presentation-only, no tree effect in this model
	case Security:
		// Permission-gated scope: no tree effect beyond tracking the
		// scope so a nested END is consumed correctly.
		if r.scope {
			st.scopeStack = append(st.scopeStack, r.op)
		}
		return nil
	case OneOf, OrderedList, Checkbox, Numeric, Password, String, Date, Time, Ref, Action, ResetButton:
		return sf.stepQuestion(st, r)
	case OneOfOption:
		return sf.stepOption(st, r)
	case VarStore, VarStoreNameValue, VarStoreEFI:
		return sf.stepVarStore(st, r)
	case DefaultStore:
		return sf.stepDefaultStore(st, r)
	case Default:
		return sf.stepDefault(st, r)
	case Guid:
		return sf.stepGUIDMarker(st, r)
	case Rule, RuleRef:
		return nil
	case SuppressIf, GrayOutIf, DisableIf, InconsistentIf, NoSubmitIf, WarningIf:
		return sf.stepConditionalOpen(st, r)
	case End:
		return sf.stepEnd(st)
	default:
		if r.scope {
			st.unknownDepth = 1
		}
		sf.Warn("ifr: unknown opcode %d", r.op)
		return nil
	}
}

func (sf *Parser) stepFormSet(st *parseState, r record) error {
	c := &cursor{buf: r.payload}
	guid, err := c.guid()
	if err != nil {
		return err
	}
	titleID, err := c.u16()
	if err != nil {
		return err
	}
	helpID, err := c.u16()
	if err != nil {
		return err
	}
	numClasses, err := c.u8()
	if err != nil {
		return err
	}
	st.fs.GUID = guid
	st.fs.TitleID = titleID
	st.fs.HelpID = helpID
	st.fs.NumClasses = int(numClasses)
	for i := 0; i < int(numClasses) && i < 3; i++ {
		g, err := c.guid()
		if err != nil {
			return err
		}
		st.fs.ClassGUIDs[i] = g
	}
	st.scopeStack = append(st.scopeStack, FormSet)
	return nil
}

func (sf *Parser) stepForm(st *parseState, r record) error {
	c := &cursor{buf: r.payload}
	formID, err := c.u16()
	if err != nil {
		return err
	}
	titleID, err := c.u16()
	if err != nil {
		return err
	}
	flags, err := c.u8()
	if err != nil {
		return err
	}
	refresh, err := c.u16()
	if err != nil {
		return err
	}
	refreshGUID, _ := c.guid() // optional trailing field, zero value if absent

	f := &Form{
		FormID:          formID,
		TitleID:         titleID,
		Modal:           flags&0x01 != 0,
		Locked:          flags&0x02 != 0,
		RefreshInterval: refresh,
		RefreshGUID:     refreshGUID,
	}
	st.fs.Forms = append(st.fs.Forms, f)
	st.currentForm = f
	st.formStorageOrder = nil
	st.formStorageBuilders = make(map[*Storage]*requestBuilder)
	st.scopeStack = append(st.scopeStack, r.op)
	return nil
}

func (sf *Parser) stepQuestion(st *parseState, r record) error {
	if st.currentForm == nil {
		return fmt.Errorf("question opcode outside a form")
	}
	c := &cursor{buf: r.payload}
	qid, _ := c.u16()
	varStoreID, _ := c.u16()
	offset, _ := c.u16()
	width, _ := c.u16()
	flags, _ := c.u8()

	st.fs.statementArena = append(st.fs.statementArena, Statement{})
	stmt := &st.fs.statementArena[len(st.fs.statementArena)-1]
	stmt.Opcode = r.op
	stmt.QuestionID = qid
	stmt.HasQID = qid != 0
	stmt.Flags = flags
	stmt.VarStore.Offset = offset
	stmt.VarStore.Width = width
	stmt.VarStore.IsBitField = st.bitVarstoreNext
	st.bitVarstoreNext = false

	for _, ls := range st.fs.Storages {
		if ls.VarStoreID == varStoreID {
			stmt.VarStore.Storage = ls.Storage
			break
		}
	}
	// For a NAME_VALUE storage, the wire offset field carries the
	// question's VarName string id rather than a byte offset.
	if stmt.VarStore.Storage != nil && stmt.VarStore.Storage.Type == StorageNameValue {
		stmt.VarStore.NameID = strconv.FormatUint(uint64(offset), 10)
	}

	switch r.op {
	case Numeric:
		minV, _ := c.u64()
		maxV, _ := c.u64()
		stepV, _ := c.u64()
		stmt.Min, stmt.Max, stmt.Step = int64(minV), int64(maxV), int64(stepV)
	case String, Password:
		maxLen, _ := c.u16()
		stmt.Max = int64(maxLen)
	case Ref:
		stmt.Value = external.Value{Kind: external.ValueString, String: decodeRefPayload(c)}
	}

	if st.currentForm != nil {
		st.currentForm.Statements = append(st.currentForm.Statements, stmt)
	}
	sf.registerConfigFragment(st, stmt)
	st.currentStatement = stmt
	if r.scope {
		st.scopeStack = append(st.scopeStack, r.op)
	}
	return nil
}

// decodeRefPayload reads a REF statement's goto target out of c and
// re-encodes it as the "devicePath|guid|formID|questionID" string Value
// parseRefTarget expects, so the wire format only needs touching here.
func decodeRefPayload(c *cursor) string {
	pathLen, _ := c.u8()
	path, _ := c.bytes(int(pathLen))
	hasGUID, _ := c.u8()
	var guidStr string
	if hasGUID != 0 {
		g, _ := c.guid()
		guidStr = string(g[:])
	}
	formID, _ := c.u16()
	qID, _ := c.u16()
	return fmt.Sprintf("%s|%s|%d|%d", path, guidStr, formID, qID)
}

func (sf *Parser) stepOption(st *parseState, r record) error {
	if st.currentStatement == nil {
		return fmt.Errorf("ONE_OF_OPTION outside a question")
	}
	c := &cursor{buf: r.payload}
	kind, _ := c.u8()
	val, _ := c.u64()
	stringID, _ := c.u16()
	flags, _ := c.u8()

	opt := Option{
		Value:    external.Value{Kind: external.ValueKind(kind), Uint: val},
		StringID: stringID,
		Flags:    flags,
		IsDefault: flags&OptionFlagDefault != 0,
		IsManufacturing: flags&OptionFlagManufacturing != 0,
	}
	st.currentStatement.Options = append(st.currentStatement.Options, opt)
	st.currentOption = &st.currentStatement.Options[len(st.currentStatement.Options)-1]

	if st.currentStatement.Opcode == OrderedList && (opt.IsDefault || opt.IsManufacturing) {
		st.currentStatement.Defaults = append(st.currentStatement.Defaults, Default{Value: opt.Value})
	}
	return nil
}

func (sf *Parser) stepVarStore(st *parseState, r record) error {
	c := &cursor{buf: r.payload}
	guid, _ := c.guid()

	s := &Storage{GUID: guid, Initialized: true}
	switch r.op {
	case VarStore:
		size, _ := c.u16()
		nameLen, _ := c.u8()
		name, _ := c.bytes(int(nameLen))
		hii, _ := c.u32()
		s.Type = StorageBuffer
		s.Size = size
		s.Name = string(name)
		s.HIIHandle = hii
		s.Active = make([]byte, size)
		s.Edit = make([]byte, size)
	case VarStoreEFI:
		nameLen, _ := c.u8()
		name, _ := c.bytes(int(nameLen))
		attrs, _ := c.u32()
		size, _ := c.u16()
		hii, _ := c.u32()
		s.Type = StorageVariableBuffer
		s.Name = string(name)
		s.Attributes = attrs
		s.Size = size
		s.HIIHandle = hii
		s.Active = make([]byte, size)
		s.Edit = make([]byte, size)
	case VarStoreNameValue:
		hii, _ := c.u32()
		s.Type = StorageNameValue
		s.HIIHandle = hii
		s.NameValue = make(map[string]string)
	}

	shared := sf.cfg.Registry.Acquire(s)
	varStoreID := uint16(len(st.fs.Storages) + 1)
	st.fs.Storages = append(st.fs.Storages, &LocalStorage{VarStoreID: varStoreID, Storage: shared})
	return nil
}

func (sf *Parser) stepDefaultStore(st *parseState, r record) error {
	c := &cursor{buf: r.payload}
	id, _ := c.u16()
	nameLen, _ := c.u8()
	name, _ := c.bytes(int(nameLen))

	entry := DefaultStoreEntry{DefaultID: id, Name: string(name)}
	idx := 0
	for idx < len(st.fs.DefaultStores) && st.fs.DefaultStores[idx].DefaultID < id {
		idx++
	}
	st.fs.DefaultStores = append(st.fs.DefaultStores, DefaultStoreEntry{})
	copy(st.fs.DefaultStores[idx+1:], st.fs.DefaultStores[idx:])
	st.fs.DefaultStores[idx] = entry
	return nil
}

func (sf *Parser) stepDefault(st *parseState, r record) error {
	if st.currentStatement == nil {
		return fmt.Errorf("DEFAULT outside a question")
	}
	c := &cursor{buf: r.payload}
	id, _ := c.u16()
	kind, _ := c.u8()
	v := external.Value{Kind: external.ValueKind(kind)}
	switch v.Kind {
	case external.ValueBuffer:
		n, _ := c.u16()
		buf, _ := c.bytes(int(n))
		v.Buffer = append([]byte(nil), buf...)
	default:
		u, _ := c.u64()
		v.Uint = u
	}
	st.currentStatement.Defaults = append(st.currentStatement.Defaults, Default{DefaultID: id, Value: v})
	return nil
}

func (sf *Parser) stepGUIDMarker(st *parseState, r record) error {
	c := &cursor{buf: r.payload}
	if _, err := c.guid(); err != nil {
		return err
	}
	marker, _ := c.u8()
	if marker == 1 {
		st.bitVarstoreNext = true
	}
	return nil
}

func flavorForOpcode(op Opcode) ExprFlavor {
	switch op {
	case SuppressIf:
		return FlavorSuppressIf
	case GrayOutIf:
		return FlavorGrayOutIf
	case DisableIf:
		return FlavorDisableIf
	case InconsistentIf:
		return FlavorInconsistentIf
	case NoSubmitIf:
		return FlavorNoSubmitIf
	case WarningIf:
		return FlavorWarningIf
	default:
		return FlavorValue
	}
}

func (sf *Parser) stepConditionalOpen(st *parseState, r record) error {
	flavor := flavorForOpcode(r.op)

	if r.op == DisableIf {
		// Simplified wire form: DISABLE_IF carries its already-reduced
		// constant result instead of a nested expression-opcode stream,
		// since its expression must be evaluated immediately and can
		// only ever be constant (§4.6).
		c := &cursor{buf: r.payload}
		constant, _ := c.u8()
		if constant != 0 {
			st.suppressDepth = 1
			return nil
		}
		st.scopeStack = append(st.scopeStack, r.op)
		return nil
	}

	c := &cursor{buf: r.payload}
	errID, _ := c.u16()
	warnTO, _ := c.u16()

	st.exprStack = append(st.exprStack, builderFrame{
		kind:   frameConditional,
		flavor: flavor,
		errID:  errID,
		warnTO: warnTO,
	})
	st.scopeStack = append(st.scopeStack, r.op)
	return nil
}

func (sf *Parser) stepExpressionNode(st *parseState, r record) error {
	if len(st.exprStack) == 0 {
		return fmt.Errorf("expression opcode outside a conditional")
	}
	top := &st.exprStack[len(st.exprStack)-1]

	node := ExprNode{Op: r.op}
	c := &cursor{buf: r.payload}
	switch r.op {
	case ExprUint8:
		v, _ := c.u8()
		node.Literal = external.Value{Kind: external.ValueUint, Uint: uint64(v)}
	case ExprUint16:
		v, _ := c.u16()
		node.Literal = external.Value{Kind: external.ValueUint, Uint: uint64(v)}
	case ExprUint32:
		v, _ := c.u32()
		node.Literal = external.Value{Kind: external.ValueUint, Uint: uint64(v)}
	case ExprUint64:
		v, _ := c.u64()
		node.Literal = external.Value{Kind: external.ValueUint, Uint: v}
	case ExprTrue:
		node.Literal = external.Value{Kind: external.ValueBool, Bool: true}
	case ExprFalse:
		node.Literal = external.Value{Kind: external.ValueBool, Bool: false}
	case ExprQuestionRef1, ExprGet, ExprSet:
		qid, _ := c.u16()
		node.QuestionID = qid
		node.HasQRef = true
	case ExprStringRef1:
		v, _ := c.u16()
		node.Literal = external.Value{Kind: external.ValueUint, Uint: uint64(v)}
	case ExprEqIdVal:
		qid, _ := c.u16()
		v, _ := c.u16()
		node.QuestionID = qid
		node.HasQRef = true
		node.Literal = external.Value{Kind: external.ValueUint, Uint: uint64(v)}
	case ExprEqIdId:
		qid, _ := c.u16()
		qid2, _ := c.u16()
		node.QuestionID = qid
		node.QuestionID2 = qid2
		node.HasQRef = true
	case ExprEqIdValList:
		qid, _ := c.u16()
		count, _ := c.u16()
		node.QuestionID = qid
		node.HasQRef = true
		for i := uint16(0); i < count; i++ {
			v, _ := c.u16()
			node.ValueList = append(node.ValueList, uint64(v))
		}
	case ExprMap:
		top.nodes = append(top.nodes, node)
		st.exprStack = append(st.exprStack, builderFrame{kind: frameMap})
		return nil
	}

	top.nodes = append(top.nodes, node)
	return nil
}

func (sf *Parser) stepEnd(st *parseState) error {
	if len(st.exprStack) > 0 {
		top := st.exprStack[len(st.exprStack)-1]
		st.exprStack = st.exprStack[:len(st.exprStack)-1]

		if top.kind == frameMap {
			owner := &st.exprStack[len(st.exprStack)-1]
			owner.nodes[len(owner.nodes)-1].Subs = append(owner.nodes[len(owner.nodes)-1].Subs, top.nodes)
			return nil
		}

		st.fs.expressionArena = append(st.fs.expressionArena,
			Expression{Flavor: top.flavor, Nodes: top.nodes, ErrorStringID: top.errID, WarningTimeout: top.warnTO})
		expr := st.fs.expressionArena[len(st.fs.expressionArena)-1]
		sf.attachExpression(st, expr)
	}

	if len(st.scopeStack) == 0 {
		return fmt.Errorf("END with empty scope stack")
	}
	closed := st.scopeStack[len(st.scopeStack)-1]
	st.scopeStack = st.scopeStack[:len(st.scopeStack)-1]

	switch closed {
	case FormSet:
	case Form, FormMap:
		if st.currentForm != nil {
			st.currentForm.ConfigRequest = make([]string, 0, len(st.formStorageOrder))
			for _, s := range st.formStorageOrder {
				st.currentForm.ConfigRequest = append(st.currentForm.ConfigRequest, st.formStorageBuilders[s].String())
			}
		}
		st.currentForm = nil
	case OneOf, OrderedList, Checkbox, Numeric, Password, String, Date, Time, Ref, Action, ResetButton:
		st.currentStatement = nil
		st.currentOption = nil
	}
	return nil
}

// attachExpression routes a just-closed conditional expression to the
// list its enclosing context dictates: option, then question, then form.
func (sf *Parser) attachExpression(st *parseState, e Expression) {
	switch {
	case st.currentOption != nil && e.Flavor == FlavorSuppressIf:
		st.currentOption.Suppress = append(st.currentOption.Suppress, e)
	case st.currentStatement != nil:
		switch e.Flavor {
		case FlavorSuppressIf:
			st.currentStatement.Suppress = append(st.currentStatement.Suppress, e)
		case FlavorGrayOutIf:
			st.currentStatement.GrayOut = append(st.currentStatement.GrayOut, e)
		case FlavorInconsistentIf:
			st.currentStatement.Inconsistent = append(st.currentStatement.Inconsistent, e)
		case FlavorNoSubmitIf:
			st.currentStatement.NoSubmit = append(st.currentStatement.NoSubmit, e)
		case FlavorWarningIf:
			st.currentStatement.Warning = append(st.currentStatement.Warning, e)
		default:
			st.fs.Expressions = append(st.fs.Expressions, e)
		}
	case st.currentForm != nil:
		st.currentForm.Expressions = append(st.currentForm.Expressions, e)
	default:
		st.fs.Expressions = append(st.fs.Expressions, e)
	}
}
