package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

const eventBuffer = 256

// roomMsg carries one room message into the UI loop.
type roomMsg struct {
	env *encoding.Envelope
}

// stateMsg carries one connection state transition into the UI loop.
type stateMsg struct {
	event core.StateEvent
}

// eventQueue bridges client callbacks into bubbletea messages. Callbacks
// never block: when the UI falls behind, events are dropped.
type eventQueue struct {
	ch chan tea.Msg
}

func newEventQueue() *eventQueue {
	return &eventQueue{ch: make(chan tea.Msg, eventBuffer)}
}

// OnMessage implements client.MessageListener.
func (q *eventQueue) OnMessage(env *encoding.Envelope) {
	q.push(roomMsg{env: env})
}

// stateChanged is installed as client.Config.OnStateChange.
func (q *eventQueue) stateChanged(e core.StateEvent) {
	q.push(stateMsg{event: e})
}

func (q *eventQueue) push(msg tea.Msg) {
	select {
	case q.ch <- msg:
	default:
	}
}

// wait returns a command that delivers the next queued event.
func (q *eventQueue) wait() tea.Cmd {
	return func() tea.Msg {
		return <-q.ch
	}
}
