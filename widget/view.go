package widget

import (
	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/payment"
)

// View is a point-in-time copy of everything a host needs to draw the widget.
type View struct {
	Mode        Mode          `json:"mode"`
	Payment     *payment.Info `json:"payment,omitempty"`
	PayButton   ButtonView    `json:"payButton"`
	StatusPanel StatusView    `json:"statusPanel"`
	Checkout    CheckoutView  `json:"checkout"`
}

type StatusView struct {
	Visible   bool   `json:"visible"`
	Caption   string `json:"caption"`
	IntentID  string `json:"intentId,omitempty"`
	Status    string `json:"status,omitempty"`
	TrackLink string `json:"trackLink,omitempty"`
}

type CheckoutView struct {
	State       checkout.State    `json:"state"`
	Title       string            `json:"title"`
	AmountLabel string            `json:"amountLabel"`
	Amount      string            `json:"amount"`
	Message     string            `json:"message,omitempty"`
	Back        ButtonView        `json:"back"`
	Checkout    ButtonView        `json:"checkout"`
	Retry       ButtonView        `json:"retry"`
	LastOutcome *checkout.Outcome `json:"lastOutcome,omitempty"`
}

func (w *Widget) View() View {
	v := View{
		Mode:      w.Mode(),
		PayButton: w.PayBtn.View(),
		StatusPanel: StatusView{
			Visible: w.StatusPanel.Visible(),
			Caption: w.Status.Caption(),
		},
	}
	if info, ok := w.Payment(); ok {
		v.Payment = &info
	}
	if w.TrackLink.Visible() {
		v.StatusPanel.TrackLink = w.TrackLink.Caption()
	}
	w.mu.RLock()
	t := w.tracker
	w.mu.RUnlock()
	if t != nil {
		v.StatusPanel.IntentID, v.StatusPanel.Status = t.Status()
	}

	p := w.Checkout
	v.Checkout = CheckoutView{
		State:       p.State(),
		Title:       p.Title.Caption(),
		AmountLabel: p.AmountLabel.Caption(),
		Amount:      p.Amount.Caption(),
		Back:        p.BackBtn.View(),
		Checkout:    p.CheckoutBtn.View(),
		Retry:       p.RetryBtn.View(),
	}
	if p.Message.Visible() {
		v.Checkout.Message = p.Message.Caption()
	}
	if o, ok := p.LastOutcome(); ok {
		v.Checkout.LastOutcome = &o
	}
	return v
}
