// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package external

import (
	"time"

	"github.com/daedaluz/goserial"
)

// LinuxSerial implements Serial over a real tty device using termios
// ioctls. It is the one concrete collaborator this module ships; every
// other collaborator is left as an interface for the embedding firmware
// to supply.
type LinuxSerial struct {
	port *goserial.Port
}

// OpenLinuxSerial opens name (e.g. "/dev/ttyS0") in raw, 8N1-ish mode and
// applies attrs. The read timeout tracks attrs.Timeout (microseconds).
func OpenLinuxSerial(name string, attrs Attributes) (*LinuxSerial, Status) {
	opts := goserial.NewOptions().SetReadTimeout(timeoutFromMicros(attrs.Timeout))
	port, err := goserial.Open(name, opts)
	if err != nil {
		return nil, DeviceError
	}
	sf := &LinuxSerial{port: port}
	if status := sf.SetAttributes(attrs); status != OK {
		port.Close()
		return nil, status
	}
	return sf, OK
}

func timeoutFromMicros(us uint32) time.Duration {
	if us == 0 {
		return -1
	}
	return time.Duration(us) * time.Microsecond
}

// Read implements Serial. A read that fails without delivering any byte
// is reported as NotReady, the quiescent case the poll driver stops
// reading on; a failed read that did deliver bytes is reported as OK.
func (sf *LinuxSerial) Read(buf []byte) (int, Status) {
	n, err := sf.port.Read(buf)
	if err != nil {
		if n > 0 {
			return n, OK
		}
		return 0, NotReady
	}
	return n, OK
}

// Write implements Serial.
func (sf *LinuxSerial) Write(buf []byte) Status {
	n, err := sf.port.Write(buf)
	if err != nil || n != len(buf) {
		return DeviceError
	}
	return OK
}

// SetAttributes implements Serial, translating the baud/parity/data/stop
// bit request into termios control flags.
func (sf *LinuxSerial) SetAttributes(attrs Attributes) Status {
	t, err := sf.port.GetAttr()
	if err != nil {
		return DeviceError
	}

	baud, ok := baudToCFlag(attrs.BaudRate)
	if !ok {
		return Unsupported
	}
	t.SetSpeed(baud)

	t.Cflag &^= goserial.CSIZE | goserial.PARENB | goserial.PARODD | goserial.CSTOPB
	switch attrs.DataBits {
	case 0, 8:
		t.Cflag |= goserial.CS8
	case 7:
		t.Cflag |= goserial.CS7
	case 6:
		t.Cflag |= goserial.CS6
	case 5:
		t.Cflag |= goserial.CS5
	default:
		return InvalidParameter
	}
	if attrs.StopBits == 2 {
		t.Cflag |= goserial.CSTOPB
	}
	switch attrs.Parity {
	case ParityOdd:
		t.Cflag |= goserial.PARENB | goserial.PARODD
	case ParityEven:
		t.Cflag |= goserial.PARENB
	}
	t.Cflag |= goserial.CREAD

	if err := sf.port.SetAttr(goserial.TCSANOW, t); err != nil {
		return DeviceError
	}
	sf.port.SetReadTimeout(timeoutFromMicros(attrs.Timeout))
	return OK
}

// GetControl implements Serial; only InputBufferEmpty is meaningful over
// a plain tty - there is no portable ioctl for "bytes queued" so this
// degrades to "unknown, assume not empty" on read error.
func (sf *LinuxSerial) GetControl() (uint32, Status) {
	var probe [1]byte
	n, err := sf.port.ReadTimeout(probe[:], 0)
	if err != nil {
		return 0, OK
	}
	if n == 0 {
		return InputBufferEmpty, OK
	}
	return 0, OK
}

// Close releases the underlying file descriptor.
func (sf *LinuxSerial) Close() Status {
	if err := sf.port.Close(); err != nil {
		return DeviceError
	}
	return OK
}

func baudToCFlag(baud uint32) (goserial.CFlag, bool) {
	switch baud {
	case 50:
		return goserial.B50, true
	case 75:
		return goserial.B75, true
	case 110:
		return goserial.B110, true
	case 134:
		return goserial.B134, true
	case 150:
		return goserial.B150, true
	case 200:
		return goserial.B200, true
	case 300:
		return goserial.B300, true
	case 600:
		return goserial.B600, true
	case 1200:
		return goserial.B1200, true
	case 1800:
		return goserial.B1800, true
	case 2400:
		return goserial.B2400, true
	case 4800:
		return goserial.B4800, true
	case 9600, 0:
		return goserial.B9600, true
	case 19200:
		return goserial.B19200, true
	case 38400:
		return goserial.B38400, true
	default:
		return 0, false
	}
}
