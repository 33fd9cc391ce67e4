package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"imgseek/internal/controller"
)

// Bridge forwards controller events into the BubbleTea loop. The controller
// publishes from whichever goroutine changed state; the bridge queues those
// events on an inbox that ListenCmd drains one message at a time.
type Bridge struct {
	inbox       chan tea.Msg
	done        chan struct{}
	unsubscribe func()
	logger      *log.Logger
	once        sync.Once
}

// NewBridge subscribes to w and starts queuing its events.
func NewBridge(w Workflow, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	b := &Bridge{
		inbox:  make(chan tea.Msg, 256),
		done:   make(chan struct{}),
		logger: logger.WithPrefix("tui"),
	}
	b.unsubscribe = w.Subscribe(func(ev controller.Event) {
		b.send(ViewMsg{Event: ev})
	})
	return b
}

// ListenCmd returns a tea.Cmd that blocks until the next event arrives on the inbox.
func (b *Bridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.inbox:
			return msg
		case <-b.done:
			return BridgeClosedMsg{}
		}
	}
}

// Close stops forwarding events. It is safe to call more than once.
func (b *Bridge) Close() {
	b.once.Do(func() {
		b.unsubscribe()
		close(b.done)
	})
}

// send enqueues an event into the inbox channel (non-blocking, drops if full)
func (b *Bridge) send(msg ViewMsg) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.inbox <- msg:
	default:
		b.logger.Warn("inbox full, dropping event", "version", msg.View.Version, "alert", msg.Alert)
	}
}
