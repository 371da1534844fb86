package widget

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/fabriqs/paywidget/payment"
)

// PaymentContext holds the payment being shown and keeps the bound labels in step with it.
type PaymentContext struct {
	mu      sync.RWMutex
	info    payment.Info
	set     bool
	title   *Label
	amount  *Label
	changed []func(context.Context, payment.Info) error
}

func NewPaymentContext(title, amount *Label) *PaymentContext {
	return &PaymentContext{title: title, amount: amount}
}

// OnChange registers fn to run after every Set, once the labels are updated.
func (p *PaymentContext) OnChange(fn func(context.Context, payment.Info) error) {
	p.mu.Lock()
	p.changed = append(p.changed, fn)
	p.mu.Unlock()
}

// Set stores a copy of info, updates the labels and then runs the change handlers in
// registration order. The first handler error is returned.
func (p *PaymentContext) Set(ctx context.Context, info payment.Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	var stored payment.Info
	if err := copier.Copy(&stored, &info); err != nil {
		return err
	}

	p.mu.Lock()
	p.info, p.set = stored, true
	if p.title != nil {
		p.title.SetCaption(stored.Title)
	}
	if p.amount != nil {
		p.amount.SetCaption(stored.DisplayAmount())
	}
	handlers := append([]func(context.Context, payment.Info) error(nil), p.changed...)
	p.mu.Unlock()

	for _, fn := range handlers {
		if err := fn(ctx, stored); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current payment; ok is false until Set succeeded once.
func (p *PaymentContext) Get() (info payment.Info, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info, p.set
}
