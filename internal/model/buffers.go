package model

import (
	"errors"
	"sync"
)

// ErrSealed is returned when appending to a buffer set that is being flushed.
var ErrSealed = errors.New("buffers sealed")

// Buffers is the per-channel record store of one logging session.
// Each channel is append-only until Seal is called; after that it is read-only.
type Buffers struct {
	mu       sync.Mutex
	channels [][]Value
	sealed   bool
}

// NewBuffers allocates one empty buffer per channel.
func NewBuffers(channels int) *Buffers {
	if channels < 0 {
		channels = 0
	}
	b := &Buffers{channels: make([][]Value, channels)}
	for i := range b.channels {
		b.channels[i] = []Value{}
	}
	return b
}

// Len returns the number of channels.
func (b *Buffers) Len() int {
	return len(b.channels)
}

// AppendRow appends values[i] to channel i for one tick, all under a single lock.
// Values beyond the channel count are dropped.
func (b *Buffers) AppendRow(values ...Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}

	n := len(values)
	if n > len(b.channels) {
		n = len(b.channels)
	}
	for i := 0; i < n; i++ {
		b.channels[i] = append(b.channels[i], values[i])
	}
	return nil
}

// Seal freezes the buffer set.
func (b *Buffers) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Sealed reports whether Seal has been called.
func (b *Buffers) Sealed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sealed
}

// Count returns the number of records in channel i.
func (b *Buffers) Count(i int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.channels) {
		return 0
	}
	return len(b.channels[i])
}

// Snapshot returns a copy of every channel in append order.
func (b *Buffers) Snapshot() [][]Value {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]Value, len(b.channels))
	for i, ch := range b.channels {
		out[i] = make([]Value, len(ch))
		copy(out[i], ch)
	}
	return out
}
