package rigflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/RigFlow/internal/domain"
)

// ErrChannelLedgerClosed is returned when a channel ledger is written to after being closed.
var ErrChannelLedgerClosed = errors.New("rigflow: channel ledger closed")

// RunEventHandler is invoked with the events of one run phase.
type RunEventHandler func([]RunEvent) error

// NewCallbackLedger adapts a RunEventHandler into a Ledger so callers can
// plug arbitrary functions without defining structs.
func NewCallbackLedger(name string, fn RunEventHandler) Ledger {
	if name == "" {
		name = "callback"
	}
	return &callbackLedger{name: name, fn: fn}
}

// NewChannelLedger exposes run events via a channel; it returns the ledger,
// the read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelLedger(name string, buffer int) (Ledger, <-chan []RunEvent, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []RunEvent, buffer)
	l := &channelLedger{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return l, ch, func() { l.close() }
}

type callbackLedger struct {
	name string
	fn   RunEventHandler
}

func (l *callbackLedger) WriteBatch(events []*domain.RunEvent) error {
	if l.fn == nil {
		return fmt.Errorf("callback ledger %q: nil handler", l.name)
	}
	if len(events) == 0 {
		return nil
	}
	return l.fn(copyEvents(events))
}

func (l *callbackLedger) Name() string { return l.name }

// channelLedger closes ch only once no WriteBatch holds sendMu, so a send
// never races the close.
type channelLedger struct {
	name   string
	ch     chan []RunEvent
	closed chan struct{}
	once   sync.Once
	sendMu sync.RWMutex
}

func (l *channelLedger) WriteBatch(events []*domain.RunEvent) error {
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()

	select {
	case <-l.closed:
		return ErrChannelLedgerClosed
	default:
	}

	if len(events) == 0 {
		return nil
	}

	batch := copyEvents(events)

	select {
	case <-l.closed:
		return ErrChannelLedgerClosed
	case l.ch <- batch:
		return nil
	}
}

func (l *channelLedger) Name() string { return l.name }

func (l *channelLedger) close() {
	l.once.Do(func() {
		close(l.closed)
		l.sendMu.Lock()
		close(l.ch)
		l.sendMu.Unlock()
	})
}

// copyEvents detaches the batch from the pipeline's pointers.
func copyEvents(events []*domain.RunEvent) []RunEvent {
	out := make([]RunEvent, 0, len(events))
	for _, e := range events {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}
