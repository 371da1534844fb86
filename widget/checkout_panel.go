package widget

import (
	"context"
	"sync"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/payment"
)

// CheckoutPanel is the card payment view: the payment summary, the hosted form
// and the Back/Checkout buttons.
type CheckoutPanel struct {
	Payment *PaymentContext

	Title       *Label
	AmountLabel *Label
	Amount      *Label
	Message     *Label
	BackBtn     *Button
	CheckoutBtn *Button
	RetryBtn    *Button

	ctrl     *checkout.Controller
	captions Captions
	subs     []checkout.Subscription

	mu   sync.Mutex
	last *checkout.Outcome
}

func NewCheckoutPanel(ctrl *checkout.Controller, captions Captions) (*CheckoutPanel, error) {
	p := &CheckoutPanel{
		Title:       NewLabel(""),
		AmountLabel: NewLabel(captions.T("AmountToPay")),
		Amount:      NewLabel(""),
		Message:     NewLabel(""),
		BackBtn:     NewButton(captions.T("Back"), true, true),
		CheckoutBtn: NewButton(captions.T("Checkout"), false, true),
		RetryBtn:    NewButton(captions.T("Retry"), true, false),
		ctrl:        ctrl,
		captions:    captions,
	}
	p.Message.SetVisible(false)
	p.Payment = NewPaymentContext(p.Title, p.Amount)
	p.Payment.OnChange(p.assign)

	events := ctrl.Events()
	p.subs = append(p.subs, events.OnState(p.onState), events.OnOutcome(p.onOutcome))
	return p, nil
}

func (p *CheckoutPanel) assign(ctx context.Context, info payment.Info) error {
	return p.ctrl.Assign(ctx, info)
}

func (p *CheckoutPanel) onState(s checkout.State) {
	p.CheckoutBtn.SetEnabled(p.ctrl.CheckoutEnabled())
	switch s {
	case checkout.Failed:
		p.RetryBtn.SetVisible(true)
	case checkout.LibraryLoading, checkout.FormInitializing, checkout.FormReady:
		p.RetryBtn.SetVisible(false)
		p.Message.SetCaption("")
		p.Message.SetVisible(false)
	}
}

func (p *CheckoutPanel) onOutcome(o checkout.Outcome) {
	p.mu.Lock()
	p.last = &o
	p.mu.Unlock()

	switch o.Kind {
	case checkout.FailedOutcome:
		p.Message.SetCaption(p.captions.Failure(o.Reason))
		p.Message.SetVisible(true)
	case checkout.RequiresAction:
		p.Message.SetCaption(p.captions.Status(o.Status))
		p.Message.SetVisible(true)
	}
}

// Checkout submits the form. See checkout.Controller.Submit.
func (p *CheckoutPanel) Checkout(ctx context.Context) (checkout.Outcome, error) {
	return p.ctrl.Submit(ctx)
}

func (p *CheckoutPanel) Back() checkout.Outcome {
	return p.ctrl.Back()
}

func (p *CheckoutPanel) Retry(ctx context.Context) error {
	return p.ctrl.Retry(ctx)
}

func (p *CheckoutPanel) State() checkout.State { return p.ctrl.State() }

// LastOutcome returns the most recent outcome reported by the controller.
func (p *CheckoutPanel) LastOutcome() (checkout.Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return checkout.Outcome{}, false
	}
	return *p.last, true
}

// Close tears the checkout down and detaches the panel from the controller's events.
func (p *CheckoutPanel) Close() {
	p.ctrl.Close()
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	for _, s := range subs {
		p.ctrl.Events().Unsubscribe(s)
	}
}
