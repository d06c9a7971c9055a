package channel

import "sync"

// Inbox is the application-facing inbound queue. The reader pump is its only
// producer and closes Messages when it stops. One Inbox serves one Channel.
type Inbox struct {
	ch chan string

	gone        chan struct{}
	discardOnce sync.Once
	closeOnce   sync.Once
}

func NewInbox(capacity int) *Inbox {
	if capacity < 0 {
		capacity = 0
	}
	return &Inbox{
		ch:   make(chan string, capacity),
		gone: make(chan struct{}),
	}
}

// Messages is closed once the reader pump has stopped.
func (in *Inbox) Messages() <-chan string {
	return in.ch
}

// Discard signals that nobody will receive any more messages. The reader pump
// stops at its next delivery.
func (in *Inbox) Discard() {
	in.discardOnce.Do(func() {
		close(in.gone)
	})
}

func (in *Inbox) discarded() bool {
	select {
	case <-in.gone:
		return true
	default:
		return false
	}
}

// deliver blocks while the inbox is full. It aborts with ErrInboxDiscarded
// or, once halt is closed, with ErrChannelClosed.
func (in *Inbox) deliver(msg string, halt <-chan struct{}) error {
	if in.discarded() {
		return ErrInboxDiscarded
	}
	select {
	case in.ch <- msg:
		return nil
	case <-in.gone:
		return ErrInboxDiscarded
	case <-halt:
		return ErrChannelClosed
	}
}

func (in *Inbox) close() {
	in.closeOnce.Do(func() {
		close(in.ch)
	})
}
