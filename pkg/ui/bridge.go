package ui

import (
	"sync"

	"lawchat/pkg/chat"
	"lawchat/pkg/controller"
	"lawchat/pkg/store"

	tea "charm.land/bubbletea/v2"
)

// Bridge carries store transitions and notifications from controller
// goroutines into the Bubble Tea loop. Producers never block: the bridge
// keeps the latest state and queues notifications until the program reads
// them.
type Bridge struct {
	mu     sync.Mutex
	state  *chat.State
	notes  []controller.Notification
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Attach subscribes the bridge to st.
func (b *Bridge) Attach(st *store.Store) {
	st.Observe(func(s chat.State) {
		b.mu.Lock()
		b.state = &s
		b.mu.Unlock()
		b.wake()
	})
}

// Notify implements controller.Notifier.
func (b *Bridge) Notify(n controller.Notification) {
	b.mu.Lock()
	b.notes = append(b.notes, n)
	b.mu.Unlock()
	b.wake()
}

// Close stops pending Listen commands.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// Listen waits for the next batch of events.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.signal:
		case <-b.done:
			return nil
		}
		return b.drain()
	}
}

func (b *Bridge) drain() bridgeMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := bridgeMsg{state: b.state, notes: b.notes}
	b.state = nil
	b.notes = nil
	return msg
}

func (b *Bridge) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

type bridgeMsg struct {
	state *chat.State
	notes []controller.Notification
}
