package progress

import "sync/atomic"

// Subscriber receives progress events. Implementations must be safe for
// concurrent use and must not block the caller for long — Bus.Publish
// fans out synchronously, so a slow subscriber delays every other
// subscriber on that publish call.
type Subscriber interface {
	Notify(e Event)
}

// Bus is a single-writer, multi-subscriber fan-out: the agent loop is the
// sole publisher, and any number of subscribers (a WebSocket hub, an HTTP
// poster) register to observe every event.
type Bus struct {
	subs atomic.Value // []Subscriber
}

// NewBus creates an empty progress bus.
func NewBus() *Bus {
	b := &Bus{}
	b.subs.Store([]Subscriber{})
	return b
}

// Subscribe registers s to receive all future published events.
func (b *Bus) Subscribe(s Subscriber) {
	current := b.subs.Load().([]Subscriber)
	next := make([]Subscriber, len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	b.subs.Store(next)
}

// Publish fans e out to every subscriber synchronously. A subscriber that
// panics is recovered so one bad subscriber cannot take down the agent
// loop; delivery to the remaining subscribers continues.
func (b *Bus) Publish(e Event) {
	for _, s := range b.subs.Load().([]Subscriber) {
		notifySafely(s, e)
	}
}

func notifySafely(s Subscriber, e Event) {
	defer func() { _ = recover() }()
	s.Notify(e)
}

// ChanSubscriber forwards events onto a buffered channel, dropping the
// event rather than blocking the publisher when the channel is full.
type ChanSubscriber struct {
	ch chan<- Event
}

// NewChanSubscriber wraps a channel as a Subscriber. The channel should be
// buffered; an unbuffered channel drops every event since Notify never
// blocks.
func NewChanSubscriber(ch chan<- Event) *ChanSubscriber {
	return &ChanSubscriber{ch: ch}
}

func (s *ChanSubscriber) Notify(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// CallbackSubscriber wraps a function as a Subscriber for inline handling,
// e.g. an HTTP-poster adapter that buffers internally before flushing.
type CallbackSubscriber struct {
	fn func(Event)
}

// NewCallbackSubscriber wraps fn as a Subscriber.
func NewCallbackSubscriber(fn func(Event)) *CallbackSubscriber {
	return &CallbackSubscriber{fn: fn}
}

func (s *CallbackSubscriber) Notify(e Event) {
	if s.fn != nil {
		s.fn(e)
	}
}
