package workflowsync

import (
	"time"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
	"github.com/felixgeelhaar/approvals/internal/metrics"
)

// Level separates confirmations from failures.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a transient, user-visible message.
type Notification struct {
	Level   Level
	Kind    clierrors.Kind
	Code    clierrors.ErrorCode
	Message string
	At      time.Time
}

// Notifier receives notifications. Notify must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// ChannelNotifier buffers notifications in a bounded channel. When the
// buffer is full new notifications are dropped.
type ChannelNotifier struct {
	ch      chan Notification
	metrics *metrics.Metrics
}

// NewChannelNotifier returns a notifier holding up to size notifications.
// m may be nil.
func NewChannelNotifier(size int, m *metrics.Metrics) *ChannelNotifier {
	if size < 1 {
		size = 1
	}
	return &ChannelNotifier{ch: make(chan Notification, size), metrics: m}
}

func (n *ChannelNotifier) Notify(note Notification) {
	delivered := true
	select {
	case n.ch <- note:
	default:
		delivered = false
	}
	if n.metrics != nil {
		n.metrics.RecordNotification(string(note.Level), delivered)
	}
}

// C returns the receive side of the buffer.
func (n *ChannelNotifier) C() <-chan Notification {
	return n.ch
}

// Drain returns every buffered notification without waiting.
func (n *ChannelNotifier) Drain() []Notification {
	var out []Notification
	for {
		select {
		case note := <-n.ch:
			out = append(out, note)
		default:
			return out
		}
	}
}
