// Package bus provides the process-wide status mailbox shared by every stage.
//
// Stages publish human readable status lines tagged with their name; a downstream notifier
// drains them once, in publication order.
package bus

import "sync"

// Message is one status line published by a stage.
type Message struct {
	Producer string
	Text     string
}

// Bus is a FIFO of messages safe for concurrent publishers.
type Bus struct {
	mu   sync.Mutex
	msgs []Message
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Publish appends a message.
func (b *Bus) Publish(producer, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Producer: producer, Text: text})
}

// Drain removes and returns every queued message, oldest first.
func (b *Bus) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.msgs
	b.msgs = nil
	if out == nil {
		return []Message{}
	}

	return out
}

// Len returns the number of queued messages.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.msgs)
}
