package notify

import (
	"sync"
)

// Backlog is a fixed-size ring of notifications.
// When full, the oldest notification is overwritten.
type Backlog struct {
	buf  []Notification
	size int
	head int // write position
	tail int // read position
	full bool
	mu   sync.RWMutex
}

// NewBacklog creates a backlog holding at most size notifications.
func NewBacklog(size int) *Backlog {
	if size <= 0 {
		size = 50
	}
	return &Backlog{
		buf:  make([]Notification, size),
		size: size,
	}
}

// Push appends n, dropping the oldest entry when full.
func (b *Backlog) Push(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.full {
		b.tail = (b.tail + 1) % b.size
	}
	b.buf[b.head] = n
	b.head = (b.head + 1) % b.size
	if b.head == b.tail {
		b.full = true
	}
}

// Items returns the notifications from oldest to newest.
func (b *Backlog) Items() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.lenLocked()
	out := make([]Notification, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.buf[(b.tail+i)%b.size])
	}
	return out
}

// Since returns the notifications with a sequence number above seq, from
// oldest to newest.
func (b *Backlog) Since(seq uint64) []Notification {
	items := b.Items()
	for i, n := range items {
		if n.Seq > seq {
			return items[i:]
		}
	}
	return nil
}

func (b *Backlog) lenLocked() int {
	switch {
	case b.full:
		return b.size
	case b.head >= b.tail:
		return b.head - b.tail
	default:
		return b.size - b.tail + b.head
	}
}
