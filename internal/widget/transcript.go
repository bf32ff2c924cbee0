package widget

import "sync"

// Transcript is the append-only message log of one widget.
type Transcript struct {
	mu   sync.Mutex
	msgs []ChatMessage
}

func (t *Transcript) Append(m ChatMessage) {
	t.mu.Lock()
	t.msgs = append(t.msgs, m)
	t.mu.Unlock()
}

// Messages returns a copy in append order.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// Last returns the newest message, if any.
func (t *Transcript) Last() (ChatMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.msgs) == 0 {
		return ChatMessage{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}
