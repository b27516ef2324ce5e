// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"fmt"
	"log/slog"
)

// Context is the compute context: one ordered stream, an allocator and a
// logger bound to a device ordinal.
type Context struct {
	ordinal int
	stream  *Stream
	alloc   Allocator
	log     *slog.Logger
}

// NewContext creates a context and starts its stream worker.
func NewContext(opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = discardLogger()
	}
	if o.alloc == nil {
		o.alloc = NewHostArena(0)
	}
	log := o.log.With("device", o.ordinal)

	return &Context{
		ordinal: o.ordinal,
		stream:  NewStream(o.capacity, log),
		alloc:   o.alloc,
		log:     log,
	}
}

// Ordinal returns the device ordinal.
func (c *Context) Ordinal() int { return c.ordinal }

// Stream returns the ordered stream of this context.
func (c *Context) Stream() *Stream { return c.stream }

// Allocator returns the allocator of this context.
func (c *Context) Allocator() Allocator { return c.alloc }

// Logger returns the context logger (never nil).
func (c *Context) Logger() *slog.Logger { return c.log }

// Alloc allocates a zero-filled Device-resident buffer.
func (c *Context) Alloc(n int, label string) (*Buffer, error) {
	return c.alloc.Alloc(n, Device, label)
}

// AllocHost allocates a zero-filled Host-resident buffer.
func (c *Context) AllocHost(n int, label string) (*Buffer, error) {
	return c.alloc.Alloc(n, Host, label)
}

// Free releases b through the context allocator. Nil buffers are ignored.
func (c *Context) Free(b *Buffer) error {
	if b == nil {
		return nil
	}

	return c.alloc.Free(b)
}

// Submit issues fn on the context stream.
func (c *Context) Submit(name string, fn Task) (*Token, error) {
	return c.stream.Submit(name, fn)
}

// SubmitOrSkip issues fn on the context stream; onSkip runs instead when
// the task is skipped after an earlier fault.
func (c *Context) SubmitOrSkip(name string, fn Task, onSkip func(error)) (*Token, error) {
	return c.stream.SubmitOrSkip(name, fn, onSkip)
}

// Synchronize waits for all issued work and reports the first fault.
func (c *Context) Synchronize(ctx context.Context) error {
	return c.stream.Synchronize(ctx)
}

// Close drains and stops the stream. Buffers stay owned by their allocator.
func (c *Context) Close() error {
	return c.stream.Close()
}

// MemcpyAsync issues an ordered copy of n bytes from src[srcOff:] to dst[dstOff:].
func (c *Context) MemcpyAsync(dst *Buffer, dstOff int, src *Buffer, srcOff, n int) (*Token, error) {
	if err := dst.Check(); err != nil {
		return nil, fmt.Errorf("MemcpyAsync: dst: %w", err)
	}
	if err := src.Check(); err != nil {
		return nil, fmt.Errorf("MemcpyAsync: src: %w", err)
	}
	if err := checkRange(dst.Len(), dstOff, n); err != nil {
		return nil, fmt.Errorf("MemcpyAsync: dst: %w", err)
	}
	if err := checkRange(src.Len(), srcOff, n); err != nil {
		return nil, fmt.Errorf("MemcpyAsync: src: %w", err)
	}

	return c.stream.Submit("memcpy", func() error {
		copy(dst.data[dstOff:dstOff+n], src.data[srcOff:srcOff+n])
		return nil
	})
}

// CopyToDevice copies host bytes into dst at dstOff and waits for the copy,
// which is ordered after all previously issued work.
func (c *Context) CopyToDevice(dst *Buffer, dstOff int, src []byte) error {
	if err := dst.Check(); err != nil {
		return fmt.Errorf("CopyToDevice: %w", err)
	}
	if err := checkRange(dst.Len(), dstOff, len(src)); err != nil {
		return fmt.Errorf("CopyToDevice(%q): %w", dst.label, err)
	}
	staged := make([]byte, len(src))
	copy(staged, src)
	tok, err := c.stream.Submit("copy-to-device", func() error {
		copy(dst.data[dstOff:], staged)
		return nil
	})
	if err != nil {
		return err
	}

	return tok.Wait(context.Background())
}

// CopyToHost copies len(dst) bytes of src starting at srcOff into dst and waits
// for the copy, which is ordered after all previously issued work.
func (c *Context) CopyToHost(dst []byte, src *Buffer, srcOff int) error {
	if err := src.Check(); err != nil {
		return fmt.Errorf("CopyToHost: %w", err)
	}
	if err := checkRange(src.Len(), srcOff, len(dst)); err != nil {
		return fmt.Errorf("CopyToHost(%q): %w", src.label, err)
	}
	tok, err := c.stream.Submit("copy-to-host", func() error {
		copy(dst, src.data[srcOff:srcOff+len(dst)])
		return nil
	})
	if err != nil {
		return err
	}

	return tok.Wait(context.Background())
}

// checkRange validates [off, off+n) against a length.
func checkRange(length, off, n int) error {
	if off < 0 || n < 0 || off+n > length {
		return fmt.Errorf("range [%d,%d) of %d bytes: %w", off, off+n, length, ErrBadSize)
	}

	return nil
}
