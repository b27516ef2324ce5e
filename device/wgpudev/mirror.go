// SPDX-License-Identifier: MIT

// Package wgpudev mirrors device.Buffer contents onto a WebGPU adapter.
//
// The default device.Context keeps "device" memory in the host address space.
// A Mirror pushes such a buffer into a GPU storage buffer and pulls it back
// through a mapped staging buffer, so transfer costs can be measured on real
// hardware. Both directions are ordered after all work already issued on the
// context's stream.
package wgpudev

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/katalvlaran/lvsparse/device"
)

// Sentinel errors.
var (
	// ErrNoAdapter is returned by Open when no WebGPU adapter or device
	// could be acquired; callers typically fall back to host-only execution.
	ErrNoAdapter = errors.New("wgpudev: no WebGPU adapter")

	// ErrClosed is returned by operations on a closed Mirror.
	ErrClosed = errors.New("wgpudev: mirror closed")

	// ErrTimeout is returned when a staging map does not complete in time.
	ErrTimeout = errors.New("wgpudev: map timed out")

	// ErrSizeMismatch is returned by Pull when dst and the resident differ in length.
	ErrSizeMismatch = errors.New("wgpudev: size mismatch")
)

// DefaultMapTimeout bounds the wait for a staging buffer map.
const DefaultMapTimeout = 2 * time.Second

// copyAlign is the WebGPU buffer copy granularity in bytes.
const copyAlign = 4

// Option configures Open.
type Option func(*options)

type options struct {
	log     *slog.Logger
	timeout time.Duration
	prefer  string
}

// WithLogger routes adapter selection and transfer diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMapTimeout sets the staging map timeout. Panics when d <= 0.
func WithMapTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("wgpudev: WithMapTimeout: timeout must be > 0")
	}

	return func(o *options) { o.timeout = d }
}

// WithPreferredAdapter selects the first enumerated adapter whose name or
// vendor contains s (case-insensitive), before the power-preference fallbacks.
func WithPreferredAdapter(s string) Option {
	return func(o *options) { o.prefer = strings.ToLower(s) }
}

// Mirror owns one WebGPU device and its queue.
type Mirror struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	name     string
	log      *slog.Logger
	timeout  time.Duration
	closed   bool
}

// Open acquires an adapter (preferred name, then high performance, then low
// power, then default) and a device on it.
func Open(opts ...Option) (*Mirror, error) {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil)), timeout: DefaultMapTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, fmt.Errorf("%w: instance creation failed", ErrNoAdapter)
	}
	adapter, err := selectAdapter(instance, o)
	if err != nil {
		instance.Release()
		return nil, err
	}
	info := adapter.GetInfo()
	dev, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device on %s: %w", ErrNoAdapter, info.Name, err)
	}
	o.log.Info("webgpu adapter", "name", info.Name, "vendor", info.VendorName)

	return &Mirror{
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    dev.GetQueue(),
		name:     info.Name,
		log:      o.log.With("adapter", info.Name),
		timeout:  o.timeout,
	}, nil
}

func selectAdapter(instance *wgpu.Instance, o options) (*wgpu.Adapter, error) {
	if o.prefer != "" {
		for _, a := range instance.EnumerateAdapters(nil) {
			info := a.GetInfo()
			if strings.Contains(strings.ToLower(info.Name), o.prefer) ||
				strings.Contains(strings.ToLower(info.VendorName), o.prefer) {
				return a, nil
			}
		}
		o.log.Debug("preferred adapter not found", "prefer", o.prefer)
	}

	var errs []error
	for _, req := range []*wgpu.RequestAdapterOptions{
		{PowerPreference: wgpu.PowerPreferenceHighPerformance},
		{PowerPreference: wgpu.PowerPreferenceLowPower},
		nil,
	} {
		a, err := instance.RequestAdapter(req)
		if err == nil && a != nil {
			return a, nil
		}
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("%w: %w", ErrNoAdapter, errors.Join(errs...))
}

// Adapter returns the name of the selected adapter.
func (m *Mirror) Adapter() string { return m.name }

// Resident is a GPU storage buffer holding a copy of a device.Buffer.
type Resident struct {
	buf   *wgpu.Buffer
	n     int    // logical length in bytes
	size  uint64 // allocated length, padded to the copy granularity
	label string
}

// Len returns the logical length in bytes.
func (r *Resident) Len() int { return r.n }

// Release frees the GPU buffer. Safe to call more than once.
func (r *Resident) Release() {
	if r.buf != nil {
		r.buf.Release()
		r.buf = nil
	}
}

// Push copies src into a new GPU storage buffer. The host copy is taken
// after all work issued on dc so far.
func (m *Mirror) Push(dc *device.Context, src *device.Buffer) (*Resident, error) {
	if err := src.Check(); err != nil {
		return nil, fmt.Errorf("wgpudev: Push: %w", err)
	}
	raw := make([]byte, padded(src.Len()))
	if err := dc.CopyToHost(raw[:src.Len()], src, 0); err != nil {
		return nil, fmt.Errorf("wgpudev: Push(%s): %w", src.Label(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	buf, err := m.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.Label(),
		Size:  uint64(len(raw)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: Push(%s): create buffer: %w", src.Label(), err)
	}
	if len(raw) > 0 {
		m.queue.WriteBuffer(buf, 0, raw)
	}
	m.log.Debug("push", "label", src.Label(), "bytes", src.Len())

	return &Resident{buf: buf, n: src.Len(), size: uint64(len(raw)), label: src.Label()}, nil
}

// Pull copies r back into dst through a mapped staging buffer. The write
// into dst is ordered on dc's stream.
func (m *Mirror) Pull(dc *device.Context, r *Resident, dst *device.Buffer) error {
	if err := dst.Check(); err != nil {
		return fmt.Errorf("wgpudev: Pull: %w", err)
	}
	if r == nil || r.buf == nil || dst.Len() != r.n {
		return fmt.Errorf("wgpudev: Pull(%s): %w", dst.Label(), ErrSizeMismatch)
	}
	if r.n == 0 {
		return nil
	}
	raw, err := m.read(r)
	if err != nil {
		return fmt.Errorf("wgpudev: Pull(%s): %w", r.label, err)
	}
	if err = dc.CopyToDevice(dst, 0, raw[:r.n]); err != nil {
		return fmt.Errorf("wgpudev: Pull(%s): %w", r.label, err)
	}
	m.log.Debug("pull", "label", r.label, "bytes", r.n)

	return nil
}

// read maps a staging copy of r and returns its bytes.
func (m *Mirror) read(r *Resident) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	staging, err := m.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: r.label + ".staging",
		Size:  r.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging: %w", err)
	}
	defer staging.Destroy()

	encoder, err := m.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(r.buf, 0, staging, 0, r.size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	m.queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, r.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map status %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}

	timeout := time.After(m.timeout)
	for waiting := true; waiting; {
		m.device.Poll(false, nil)
		select {
		case <-done:
			waiting = false
		case <-timeout:
			return nil, fmt.Errorf("%w after %v", ErrTimeout, m.timeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	mapped := staging.GetMappedRange(0, uint(r.size))
	if mapped == nil {
		return nil, errors.New("mapped range unavailable")
	}
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()

	return out, nil
}

// Close releases the device, adapter and instance. Residents must be
// released before Close.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.queue.Release()
	m.device.Release()
	m.adapter.Release()
	m.instance.Release()

	return nil
}

// padded rounds n up to the copy granularity.
func padded(n int) int {
	return (n + copyAlign - 1) / copyAlign * copyAlign
}
