// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// Scalar is an alpha/beta multiplier or an SpVV result location.
// It is a closed union: *HostValue or *DeviceValue.
type Scalar interface {
	DataType() dtype.DataType
	Location() device.Residency

	// load and store run on the stream worker.
	load() (complex128, error)
	store(v complex128) error
}

// HostValue is a host-resident scalar.
//
// A write issued by an operation is in flight until the stream executes it;
// Value returns ErrUnsynchronized until then, so a result is never read
// before the queue has reached it.
type HostValue struct {
	mu      sync.Mutex
	typ     dtype.DataType
	v       complex128
	pending chan struct{}
	err     error
}

// NewHostValue returns a host scalar holding v narrowed to t.
func NewHostValue(t dtype.DataType, v complex128) *HostValue {
	return &HostValue{typ: t, v: dtype.Round(t, v)}
}

// DataType returns the storage type.
func (h *HostValue) DataType() dtype.DataType { return h.typ }

// Location returns device.Host.
func (h *HostValue) Location() device.Residency { return device.Host }

// Value returns the stored value, or ErrUnsynchronized while a write is in
// flight. A write whose kernel failed reports that failure.
func (h *HostValue) Value() (complex128, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		select {
		case <-h.pending:
		default:
			return 0, ErrUnsynchronized
		}
	}
	if h.err != nil {
		return 0, h.err
	}

	return h.v, nil
}

// Set replaces the value (narrowed to the storage type).
func (h *HostValue) Set(v complex128) {
	h.mu.Lock()
	h.v, h.err = dtype.Round(h.typ, v), nil
	h.mu.Unlock()
}

// begin marks a write as in flight. finish must be called exactly once.
// Only the latest write owns err; an older one finishing late leaves it.
func (h *HostValue) begin() (finish func(err error)) {
	done := make(chan struct{})
	h.mu.Lock()
	h.pending, h.err = done, nil
	h.mu.Unlock()

	return func(err error) {
		h.mu.Lock()
		if h.pending == done {
			h.err = err
		}
		h.mu.Unlock()
		close(done)
	}
}

func (h *HostValue) load() (complex128, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.v, nil
}

func (h *HostValue) store(v complex128) error {
	h.mu.Lock()
	h.v = dtype.Round(h.typ, v)
	h.mu.Unlock()

	return nil
}

// DeviceValue is a scalar living inside a Device-resident buffer.
// Reading it on the host goes through Read, which is stream-ordered.
type DeviceValue struct {
	buf *device.Buffer
	off int
	typ dtype.DataType
}

// NewDeviceValue binds a scalar of type t at byte offset off of buf.
func NewDeviceValue(buf *device.Buffer, off int, t dtype.DataType) (*DeviceValue, error) {
	if err := buf.Check(); err != nil {
		return nil, fmt.Errorf("NewDeviceValue: %w: %w", ErrNilDescriptor, err)
	}
	if buf.Residency() != device.Device {
		return nil, fmt.Errorf("NewDeviceValue(%s): %w", buf.Label(), ErrWrongResidency)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("NewDeviceValue(type=%v): %w", t, ErrBadLayout)
	}
	if off < 0 || off+t.Size() > buf.Len() {
		return nil, fmt.Errorf("NewDeviceValue: offset %d: %w", off, ErrArrayTooSmall)
	}

	return &DeviceValue{buf: buf, off: off, typ: t}, nil
}

// DataType returns the storage type.
func (d *DeviceValue) DataType() dtype.DataType { return d.typ }

// Location returns device.Device.
func (d *DeviceValue) Location() device.Residency { return device.Device }

// Buffer returns the backing buffer.
func (d *DeviceValue) Buffer() *device.Buffer { return d.buf }

// Read copies the value to the host after all previously issued work.
func (d *DeviceValue) Read(dc *device.Context) (complex128, error) {
	if dc == nil {
		return 0, sparseErrorf("DeviceValue.Read", ErrNilHandle)
	}
	raw := make([]byte, d.typ.Size())
	if err := dc.CopyToHost(raw, d.buf, d.off); err != nil {
		return 0, sparseErrorf("DeviceValue.Read", err)
	}

	return dtype.Load(d.typ, raw, 0), nil
}

func (d *DeviceValue) load() (complex128, error) {
	if err := d.buf.Check(); err != nil {
		return 0, err
	}

	return dtype.Load(d.typ, d.buf.Bytes()[d.off:], 0), nil
}

func (d *DeviceValue) store(v complex128) error {
	if err := d.buf.Check(); err != nil {
		return err
	}
	dtype.Store(d.typ, d.buf.Bytes()[d.off:], 0, v)

	return nil
}
