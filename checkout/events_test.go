package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	events := NewEvents()
	first, second := &recorder{}, &recorder{}
	sub := events.OnOutcome(first.onOutcome)
	events.OnOutcome(second.onOutcome)

	events.outcome(Outcome{Kind: Succeeded})
	events.Unsubscribe(sub)
	events.outcome(Outcome{Kind: Cancelled})

	got, _ := first.all()
	assert.Equal(t, []Outcome{{Kind: Succeeded}}, got)
	got, _ = second.all()
	assert.Equal(t, []Outcome{{Kind: Succeeded}, {Kind: Cancelled}}, got)
}

func TestHandlersMayPublishAndUnsubscribe(t *testing.T) {
	events := NewEvents()
	rec := &recorder{}
	events.OnState(rec.onState)

	var sub Subscription
	sub = events.OnOutcome(func(o Outcome) {
		events.state(Idle)
		events.Unsubscribe(sub)
	})
	waitFor(t, "publish", func() {
		events.outcome(Outcome{Kind: Cancelled})
		events.outcome(Outcome{Kind: Cancelled})
	})

	_, states := rec.all()
	assert.Equal(t, []State{Idle}, states)
}
