// Package secbuf provides a heap buffer for holding sensitive byte material
// (private keys, token bytes) with a best-effort zeroization on explicit
// clear. It is not a security boundary against a privileged attacker; it
// only reduces the window during which secret bytes sit in an addressable,
// un-zeroed heap allocation.
package secbuf

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
)

// ErrCleared is returned by any operation attempted on a buffer after Clear
// has been called.
var ErrCleared = errors.New("secbuf: buffer has been cleared")

// Buffer holds sensitive bytes behind a mutex. The zero value is not usable;
// construct with New, FromString, or FromBase64.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	cleared bool
}

// New copies b into a new Buffer. The caller's slice is not retained.
func New(b []byte) *Buffer {
	buf := &Buffer{data: make([]byte, len(b))}
	copy(buf.data, b)
	return buf
}

// FromString copies the UTF-8 bytes of s into a new Buffer.
func FromString(s string) *Buffer {
	return New([]byte(s))
}

// FromBase64 decodes standard base64 and stores the result. It rejects
// invalid input rather than storing a zero-length buffer.
func FromBase64(s string) (*Buffer, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return New(decoded), nil
}

// Len returns the number of bytes held, or 0 after Clear.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// IsCleared reports whether Clear has been called.
func (b *Buffer) IsCleared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleared
}

// WithBytes invokes fn with a read-only view of the held bytes. The slice
// passed to fn is only valid for the duration of the call; fn must copy
// anything it needs to keep. Returns ErrCleared if the buffer was cleared.
func (b *Buffer) WithBytes(fn func([]byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cleared {
		return ErrCleared
	}
	fn(b.data)
	return nil
}

// WithUTF8 invokes fn with the held bytes interpreted as a UTF-8 string.
// The string passed to fn is a copy of the held bytes made for this call;
// Clear does not zero that copy.
func (b *Buffer) WithUTF8(fn func(string)) error {
	return b.WithBytes(func(raw []byte) {
		fn(string(raw))
	})
}

// Clear overwrites the storage with zeros and marks the buffer cleared.
// Idempotent: calling Clear more than once is a no-op after the first call.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cleared {
		return
	}
	zero(b.data)
	b.data = nil
	b.cleared = true
}

// zero overwrites buf with zero bytes using a pattern the compiler cannot
// prove is dead, resisting dead-store elimination of the final write.
//
//go:noinline
func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// String implements fmt.Stringer without ever exposing the held bytes.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cleared {
		return "[cleared]"
	}
	return fmt.Sprintf("[%d bytes]", len(b.data))
}

// GoString implements fmt.GoStringer for the same reason as String: %#v on
// a Buffer must never leak secret material.
func (b *Buffer) GoString() string {
	return b.String()
}
