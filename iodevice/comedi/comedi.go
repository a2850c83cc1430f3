//go:build comedi

// Package comedi talks to the lab I/O card through comedilib.
package comedi

/*
#cgo LDFLAGS: -lcomedi -lm
#include <stdlib.h>
#include <comedilib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"elevatorhw/iodevice"
)

type Device struct {
	once sync.Once
	it   *C.comedi_t
}

func Open(name string) (iodevice.Device, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	it := C.comedi_open(cname)
	if it == nil {
		return nil, errors.Wrapf(lastError(), "comedi_open %s", name)
	}
	return &Device{it: it}, nil
}

func lastError() error {
	return errors.New(C.GoString(C.comedi_strerror(C.comedi_errno())))
}

func ioError(op iodevice.Op, subdevice, channel uint) error {
	return &iodevice.DeviceIoError{Op: op, Subdevice: subdevice, Channel: channel, Err: lastError()}
}

func (d *Device) DigitalWrite(subdevice, channel uint, bit bool) error {
	var v C.uint
	if bit {
		v = 1
	}
	if C.comedi_dio_write(d.it, C.uint(subdevice), C.uint(channel), v) < 0 {
		return ioError(iodevice.OpDigitalWrite, subdevice, channel)
	}
	return nil
}

func (d *Device) DigitalRead(subdevice, channel uint) (bool, error) {
	var v C.uint
	if C.comedi_dio_read(d.it, C.uint(subdevice), C.uint(channel), &v) < 0 {
		return false, ioError(iodevice.OpDigitalRead, subdevice, channel)
	}
	return v != 0, nil
}

func (d *Device) DataWrite(subdevice, channel, rng, aref uint, value uint) error {
	if C.comedi_data_write(d.it, C.uint(subdevice), C.uint(channel), C.uint(rng), C.uint(aref), C.lsampl_t(value)) < 0 {
		return ioError(iodevice.OpDataWrite, subdevice, channel)
	}
	return nil
}

func (d *Device) DataRead(subdevice, channel, rng, aref uint) (uint, error) {
	var v C.lsampl_t
	if C.comedi_data_read(d.it, C.uint(subdevice), C.uint(channel), C.uint(rng), C.uint(aref), &v) < 0 {
		return 0, ioError(iodevice.OpDataRead, subdevice, channel)
	}
	return uint(v), nil
}

func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		if C.comedi_close(d.it) < 0 {
			err = errors.Wrap(lastError(), "comedi_close")
		}
		d.it = nil
	})
	return err
}
