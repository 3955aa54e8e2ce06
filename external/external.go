// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package external declares the contracts the terminal and ifr packages
// consume but never implement themselves: serial transport, the screen,
// a scheduler, the configuration-routing service and per-question
// callbacks. Everything in this package is a collaborator boundary, not
// a core algorithm.
package external

import "context"

// Status is the error-kind enumeration shared by every collaborator
// boundary.
type Status uint8

// The error kinds at contract boundaries.
const (
	OK Status = iota
	InvalidParameter
	NotFound
	NotReady
	DeviceError
	OutOfResources
	Unsupported
	AlreadyStarted
	WarnUnknownGlyph
	AccessDenied
	Timeout
)

var _statusName = [...]string{
	OK:               "OK",
	InvalidParameter: "INVALID_PARAMETER",
	NotFound:         "NOT_FOUND",
	NotReady:         "NOT_READY",
	DeviceError:      "DEVICE_ERROR",
	OutOfResources:   "OUT_OF_RESOURCES",
	Unsupported:      "UNSUPPORTED",
	AlreadyStarted:   "ALREADY_STARTED",
	WarnUnknownGlyph: "WARN_UNKNOWN_GLYPH",
	AccessDenied:     "ACCESS_DENIED",
	Timeout:          "TIMEOUT",
}

// String implements fmt.Stringer.
func (sf Status) String() string {
	if int(sf) < len(_statusName) && _statusName[sf] != "" {
		return _statusName[sf]
	}
	return "STATUS_UNKNOWN"
}

// Error lets Status satisfy the error interface for non-OK values so
// callers can return it directly from a func() error.
func (sf Status) Error() string { return sf.String() }

// Parity mirrors the serial-port parity setting named in set_attributes.
type Parity uint8

// Parity settings.
const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// Attributes carries the serial-line parameters a Serial collaborator is
// asked to apply.
type Attributes struct {
	BaudRate  uint32
	Parity    Parity
	DataBits  uint8
	StopBits  uint8
	FIFODepth uint16
	Timeout   uint32 // microseconds
}

// Control bits returned by Serial.GetControl.
const (
	InputBufferEmpty uint32 = 1 << iota
	OutputBufferEmpty
)

// Serial is the raw byte transport collaborator. Read never blocks past
// the attributes' configured Timeout; a short read with NotReady is the
// normal quiescent case.
type Serial interface {
	Read(buf []byte) (n int, status Status)
	Write(buf []byte) (status Status)
	SetAttributes(attrs Attributes) Status
	GetControl() (flags uint32, status Status)
}

// Screen is the drawing-primitive collaborator; columns and rows are
// zero-based.
type Screen interface {
	PutStringAt(col, row int, ucs2 []uint16) Status
	SetAttribute(attr uint8) Status
	EnableCursor(enable bool) Status
	GetMode() (cols, rows int, attr uint8, cursorCol, cursorRow int, cursorVisible bool)
}

// TimerCallback is invoked from whatever goroutine backs the Timer
// implementation; it must not block.
type TimerCallback func()

// Timer is the scheduler collaborator backing the 20ms poll and the
// 2-second escape timeout (see the terminal package). Implementations
// are expected to deliver callbacks serialized with respect to each
// other for a given Timer instance.
type Timer interface {
	CreatePeriodic(period uint64, cb TimerCallback) (Status, func())
	CreateOneShot(cb TimerCallback) (Status, OneShot)
	Close() Status
}

// OneShot is a single-fire timer handle returned by CreateOneShot.
type OneShot interface {
	Arm(relative uint64)
	Cancel()
}

// ConfigRouting is the IFR storage-routing collaborator: it accepts
// built configuration-response strings and answers configuration
// requests against the live variable/buffer storage outside this
// module's control.
type ConfigRouting interface {
	RouteConfig(ctx context.Context, configResp string) (Status, string)
	ExtractConfig(ctx context.Context, configRequest string) (Status, string, string)
}

// CallbackAction is the action the question's driver callback may
// request alongside its status.
type CallbackAction uint16

// Callback action bits, composable.
const (
	ActionDiscard CallbackAction = 1 << iota
	ActionDefault
	ActionSubmit
	ActionReset
	ActionExit
	ActionReconnect
	ActionFormOpen
	ActionFormClose
	ActionRetrieve
)

// CallbackOp is the action argument passed to Callback.
type CallbackOp uint8

// Callback operations.
const (
	OpFormOpen CallbackOp = iota
	OpFormClose
	OpRetrieve
	OpChanging
	OpChanged
	OpSubmitted
	OpDefaultStandard
	OpDefaultManufacturing
)

// Value is the tagged value union threaded between storages, statements,
// expressions and callbacks.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Uint   uint64
	String string
	Buffer []byte
}

// ValueKind tags Value's active field.
type ValueKind uint8

const (
	ValueUndefined ValueKind = iota
	ValueBool
	ValueUint
	ValueString
	ValueBuffer
)

// Callback is the per-question driver collaborator.
type Callback interface {
	Invoke(op CallbackOp, questionID uint16, kind ValueKind, value Value) (Status, CallbackAction)
}

// DevicePathResolver resolves a device-path string plus a form-set GUID
// to a foreign HII handle for the cross-form-set goto case; it is the
// only device-path machinery this module needs.
type DevicePathResolver interface {
	Resolve(devicePath string, formSetGUID [16]byte) (hiiHandle uint32, status Status)
}

// VariableStore is the pluggable NVRAM surface the terminal type uses to
// register/unregister its ConInDev/ConOutDev/ErrOutDev variants; no
// concrete writer is implemented, only this seam.
type VariableStore interface {
	AppendVariant(name string, variant []byte) Status
	RemoveVariant(name string, variant []byte) Status
}
