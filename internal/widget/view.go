package widget

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
)

// AlertDelay is how long an alert stays up once the view is mounted.
const AlertDelay = 5 * time.Second

type Alert struct {
	Text string
	// zero until the view is mounted
	DismissAt time.Time
}

// Hints are the key bindings shown as inline help. They stay disabled until
// the view is mounted.
type Hints struct {
	Send   key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

func newHints() Hints {
	return Hints{
		Send:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send"), key.WithDisabled()),
		Toggle: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "show/hide chat"), key.WithDisabled()),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit"), key.WithDisabled()),
	}
}

func (h Hints) ShortHelp() []key.Binding { return []key.Binding{h.Send, h.Toggle, h.Quit} }

func (h Hints) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

func (h *Hints) activate() {
	h.Send.SetEnabled(true)
	h.Toggle.SetEnabled(true)
	h.Quit.SetEnabled(true)
}

// View holds the interactive regions of the chat panel.
type View struct {
	mu         sync.Mutex
	open       bool
	input      string
	pending    bool
	scrolls    int
	alerts     []Alert
	hints      Hints
	mounted    bool
	transcript *Transcript
}

// NewView returns a view with the panel shown and the given alerts queued.
func NewView(alerts ...string) *View {
	v := &View{open: true, hints: newHints(), transcript: &Transcript{}}
	for _, a := range alerts {
		v.alerts = append(v.alerts, Alert{Text: a})
	}
	return v
}

func (v *View) Transcript() *Transcript { return v.transcript }

func (v *View) Open() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

func (v *View) toggle() {
	v.mu.Lock()
	v.open = !v.open
	v.mu.Unlock()
}

func (v *View) Input() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *View) SetInput(s string) {
	v.mu.Lock()
	v.input = s
	v.mu.Unlock()
}

func (v *View) clearInput() { v.SetInput("") }

func (v *View) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending
}

func (v *View) setPending(on bool) {
	v.mu.Lock()
	v.pending = on
	v.mu.Unlock()
}

// Scrolls counts scroll-to-bottom requests; renderers follow it.
func (v *View) Scrolls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrolls
}

func (v *View) scrollToBottom() {
	v.mu.Lock()
	v.scrolls++
	v.mu.Unlock()
}

func (v *View) Hints() Hints {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hints
}

func (v *View) Alerts() []Alert {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Alert, len(v.alerts))
	copy(out, v.alerts)
	return out
}

// AddAlert queues an alert. Once mounted it is dismissed after AlertDelay.
func (v *View) AddAlert(text string, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a := Alert{Text: text}
	if v.mounted {
		a.DismissAt = now.Add(AlertDelay)
	}
	v.alerts = append(v.alerts, a)
}

// DismissExpired drops alerts whose delay has passed and reports how many went.
func (v *View) DismissExpired(now time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.alerts[:0]
	for _, a := range v.alerts {
		if a.DismissAt.IsZero() || now.Before(a.DismissAt) {
			kept = append(kept, a)
		}
	}
	n := len(v.alerts) - len(kept)
	v.alerts = kept
	return n
}

func (v *View) mount(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hints.activate()
	for i := range v.alerts {
		v.alerts[i].DismissAt = now.Add(AlertDelay)
	}
	v.mounted = true
}
