package checkout

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/rs/xid"
)

const (
	TopicOutcome = "checkout:outcome"
	TopicState   = "checkout:state"
)

type Kind int

const (
	Succeeded Kind = iota + 1
	RequiresAction
	FailedOutcome
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case RequiresAction:
		return "requires_action"
	case FailedOutcome:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Reason string

const (
	ReasonLibraryLoad    Reason = "library_load"
	ReasonIntentCreation Reason = "intent_creation"
	ReasonForm           Reason = "form"
	ReasonConfirmation   Reason = "confirmation"
)

// Outcome is the single message a checkout attempt reports to its host.
type Outcome struct {
	Kind      Kind   `json:"kind"`
	Status    string `json:"status,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Subscription identifies one handler registered on Events.
type Subscription struct {
	topic string
	id    string
	fn    interface{}
}

// Events fans controller notifications out to subscribers.
//
// Handlers run synchronously, but never while another handler holds the bus: a
// notification or unsubscription raised from inside a handler is queued and
// delivered once that handler returns. Handlers may call back into the controller
// and the widget.
type Events struct {
	bus EventBus.Bus

	mu       sync.Mutex
	subs     map[string][]Subscription
	queue    []func()
	draining bool
}

func NewEvents() *Events {
	return &Events{bus: EventBus.New(), subs: make(map[string][]Subscription)}
}

func (e *Events) OnOutcome(fn func(Outcome)) Subscription {
	return e.subscribe(TopicOutcome, fn)
}

func (e *Events) OnState(fn func(State)) Subscription {
	return e.subscribe(TopicState, fn)
}

// Unsubscribe removes the handler; notifications already queued for it are dropped.
func (e *Events) Unsubscribe(s Subscription) {
	e.mu.Lock()
	list := e.subs[s.topic]
	for i := range list {
		if list[i].id == s.id {
			e.subs[s.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	e.do(func() {
		// each subscription owns its bus topic, so this cannot drop another handler
		_ = e.bus.Unsubscribe(s.busTopic(), s.fn)
	})
}

func (e *Events) subscribe(topic string, fn interface{}) Subscription {
	s := Subscription{topic: topic, id: xid.New().String(), fn: fn}
	e.mu.Lock()
	e.subs[topic] = append(e.subs[topic], s)
	e.mu.Unlock()
	e.do(func() {
		_ = e.bus.Subscribe(s.busTopic(), fn)
	})
	return s
}

func (s Subscription) busTopic() string { return s.topic + "#" + s.id }

func (e *Events) outcome(o Outcome) {
	e.publish(TopicOutcome, o)
}

func (e *Events) state(s State) {
	e.publish(TopicState, s)
}

func (e *Events) publish(topic string, arg interface{}) {
	e.do(func() {
		e.mu.Lock()
		subs := append([]Subscription(nil), e.subs[topic]...)
		e.mu.Unlock()
		for _, s := range subs {
			if e.live(s) {
				e.bus.Publish(s.busTopic(), arg)
			}
		}
	})
}

func (e *Events) live(s Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, x := range e.subs[s.topic] {
		if x.id == s.id {
			return true
		}
	}
	return false
}

// do runs op on the bus in FIFO order. The goroutine that finds the queue idle
// drains it, including work queued by the handlers it runs.
func (e *Events) do(op func()) {
	e.mu.Lock()
	e.queue = append(e.queue, op)
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	idle := false
	defer func() {
		if !idle {
			// a handler panicked; let the next caller resume draining
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
		}
	}()
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining, idle = false, true
			e.mu.Unlock()
			return
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		next()
	}
}
