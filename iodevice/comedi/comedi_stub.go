//go:build !comedi

package comedi

import (
	"github.com/pkg/errors"

	"elevatorhw/iodevice"
)

var ErrNotBuilt = errors.New("comedi support not built in (build with -tags comedi)")

func Open(name string) (iodevice.Device, error) {
	return nil, errors.Wrapf(ErrNotBuilt, "comedi_open %s", name)
}
