package widget

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
)

// Sender delivers one message and returns the reply.
type Sender interface {
	Send(ctx context.Context, message string) (string, error)
}

// Widget drives the send/receive cycle against a View. One exchange is
// in flight at a time: Idle -> Sending -> Success|Failed -> Idle.
type Widget struct {
	view     *View
	sender   Sender
	mount    sync.Once
	inFlight atomic.Bool
	now      func() time.Time
}

func New(view *View, sender Sender) *Widget {
	return &Widget{view: view, sender: sender, now: time.Now}
}

func (w *Widget) View() *View { return w.view }

// Mount activates the hints and starts the alert timers. Only the first call
// has an effect.
func (w *Widget) Mount() {
	w.mount.Do(func() {
		w.view.mount(w.now())
		log.Debug("widget.mount")
	})
}

// Toggle shows or hides the panel.
func (w *Widget) Toggle() { w.view.toggle() }

// Sending reports whether an exchange is outstanding.
func (w *Widget) Sending() bool { return w.inFlight.Load() }

// Begin starts an exchange with the current input. It renders the user
// message and the pending indicator and returns the text to post.
// An empty input returns ErrEmptyMessage and changes nothing.
func (w *Widget) Begin() (string, error) {
	text := w.view.Input()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return "", ErrSendInFlight
	}

	w.view.Transcript().Append(ChatMessage{Role: RoleUser, Text: text})
	w.view.setPending(true)
	w.view.scrollToBottom()
	return text, nil
}

// Complete finishes the outstanding exchange. The pending indicator goes
// before the outcome is appended. The input is only cleared on success.
func (w *Widget) Complete(reply string, err error) {
	w.view.setPending(false)
	if err != nil {
		log.WithError(err).Warn("widget.send.failed")
		w.view.Transcript().Append(ChatMessage{Role: RoleError, Text: FailureNotice})
	} else {
		w.view.Transcript().Append(ChatMessage{Role: RoleBot, Text: reply})
		w.view.clearInput()
	}
	w.view.scrollToBottom()
	w.inFlight.Store(false)
}

// SendMessage runs one full exchange synchronously.
func (w *Widget) SendMessage(ctx context.Context) error {
	text, err := w.Begin()
	if err != nil {
		return err
	}
	reply, err := w.sender.Send(ctx, text)
	w.Complete(reply, err)
	return err
}
