package supervisor

import "sync"

// DefaultCapacity is the number of output lines kept for replay
const DefaultCapacity = 5000

// LineBuffer is a fixed-size circular buffer of output lines with offset
// tracking. Offsets increase monotonically for the lifetime of the buffer,
// across Reset, so a reader can ask for "everything since offset N" after
// reconnecting. The oldest lines are overwritten when the buffer is full.
//
// Readers wait for new data on the channel returned by Changed, which is
// closed by the next Append or Wake.
//
// All methods are safe for concurrent use.
type LineBuffer struct {
	mutex    sync.Mutex
	lines    []string
	capacity int
	// writePosition is the next slot to write (0 to capacity-1)
	writePosition int
	// stored is the number of retained lines, at most capacity
	stored int
	// totalWritten is the offset one past the newest line
	totalWritten uint64
	changed      chan struct{}
}

func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &LineBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Append adds a line, evicting the oldest one when full, and wakes readers
func (b *LineBuffer) Append(line string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.lines[b.writePosition] = line
	b.writePosition = (b.writePosition + 1) % b.capacity
	if b.stored < b.capacity {
		b.stored++
	}
	b.totalWritten++
	b.broadcast()
}

// ReadFrom returns the lines from offset up to the newest line, and the
// offset to pass next time. An offset older than the oldest retained line,
// or one ahead of the buffer (from an earlier server lifetime), reads from
// the oldest retained line.
func (b *LineBuffer) ReadFrom(offset uint64) ([]string, uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	oldest := b.totalWritten - uint64(b.stored)
	if offset < oldest || offset > b.totalWritten {
		offset = oldest
	}
	count := int(b.totalWritten - offset)
	if count == 0 {
		return nil, b.totalWritten
	}

	result := make([]string, count)
	start := (b.writePosition - count + b.capacity) % b.capacity
	for i := 0; i < count; i++ {
		result[i] = b.lines[(start+i)%b.capacity]
	}
	return result, b.totalWritten
}

// Lines returns every retained line, oldest first
func (b *LineBuffer) Lines() []string {
	lines, _ := b.ReadFrom(0)
	return lines
}

// CurrentOffset returns the offset one past the newest line
func (b *LineBuffer) CurrentOffset() uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.totalWritten
}

// Len returns the number of retained lines
func (b *LineBuffer) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.stored
}

// Reset drops every retained line. Offsets keep counting from where they were.
func (b *LineBuffer) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i := range b.lines {
		b.lines[i] = ""
	}
	b.writePosition = 0
	b.stored = 0
	b.broadcast()
}

// Changed returns a channel closed by the next Append, Reset or Wake
func (b *LineBuffer) Changed() <-chan struct{} {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.changed
}

// Wake releases waiting readers without adding a line
func (b *LineBuffer) Wake() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.broadcast()
}

func (b *LineBuffer) broadcast() {
	close(b.changed)
	b.changed = make(chan struct{})
}
