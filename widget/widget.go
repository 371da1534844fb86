// Package widget is the payment widget shell: the pay button, the checkout panel,
// the status panel and the wiring to the external wallet module.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/thoas/go-funk"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/payment"
)

type Mode string

const (
	ModePayment Mode = "payment"
	ModeStatus  Mode = "status"
)

var ErrNoPayment = errors.New("widget: no payment set")

type Wallet struct {
	Name        string `json:"name" toml:"name" validate:"required"`
	PackageName string `json:"packageName,omitempty" toml:"package_name"`
}

type Network struct {
	ChainID int    `json:"chainId" toml:"chain_id" validate:"gt=0"`
	Name    string `json:"name,omitempty" toml:"name"`
}

type Token struct {
	Symbol   string `json:"symbol" toml:"symbol" validate:"required"`
	Name     string `json:"name,omitempty" toml:"name"`
	Address  string `json:"address,omitempty" toml:"address"`
	Decimals int    `json:"decimals" toml:"decimals"`
	ChainID  int    `json:"chainId" toml:"chain_id" validate:"gt=0"`
}

// Config carries the widget attributes. Unset fields fall back to defaults:
// Mode is "payment", PayButtonCaption is "Pay" in the widget language, and
// Wallets, Networks and Tokens come from the static Defaults.
type Config struct {
	Payment           *payment.Info `validate:"-"`
	PayButtonCaption  string
	Mode              Mode `validate:"omitempty,oneof=payment status"`
	ShowButtonPay     bool
	BaseStripeAPI     string    `validate:"omitempty,url"`
	URLStripeTracking string    `validate:"omitempty,url"`
	Wallets           []Wallet  `validate:"dive"`
	Networks          []Network `validate:"dive"`
	Tokens            []Token   `validate:"dive"`
	LazyLoad          bool
	Language          string
	OnOutcome         func(checkout.Outcome)
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("widget: invalid config: %w", err)
	}
	if c.Payment != nil {
		return c.Payment.Validate()
	}
	return nil
}

// ModuleConfig is what the wallet module receives before it opens.
type ModuleConfig struct {
	Wallets           []Wallet
	Networks          []Network
	Tokens            []Token
	BaseStripeAPI     string
	URLStripeTracking string
}

type ModalOptions struct {
	Title    string
	Width    int
	MaxWidth string
}

// Module is the external wallet/payment-method modal.
type Module interface {
	Configure(cfg ModuleConfig)
	OpenModal(opts ModalOptions) error
	Show(info payment.Info) error
}

// Defaults supplies the static wallet, network and token lists.
type Defaults struct {
	Wallets  []Wallet
	Networks []Network
	Tokens   []Token
}

type Widget struct {
	PayBtn      *Button
	StatusPanel *Panel
	Status      *Label
	TrackLink   *Label
	Checkout    *CheckoutPanel

	module   Module
	relay    checkout.Subscription
	provider payment.Provider
	tracker  *Tracker
	defaults Defaults
	captions Captions
	log      logrus.FieldLogger

	mu                sync.RWMutex
	cfg               Config
	payment           *payment.Info
	mode              Mode
	showButtonPay     bool
	payButtonCaption  string
	baseStripeAPI     string
	urlStripeTracking string
	wallets           []Wallet
	networks          []Network
	tokens            []Token
	onOutcome         func(checkout.Outcome)
}

// New builds a widget around a checkout controller. Call Init to apply the attributes.
func New(cfg Config, ctrl *checkout.Controller, module Module, provider payment.Provider, defaults Defaults, log logrus.FieldLogger) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	captions := NewCaptions(cfg.Language)
	panel, err := NewCheckoutPanel(ctrl, captions)
	if err != nil {
		return nil, err
	}
	w := &Widget{
		PayBtn:      NewButton(captions.T("Pay"), false, false),
		StatusPanel: &Panel{},
		Status:      NewLabel(captions.Status("")),
		TrackLink:   NewLabel(""),
		Checkout:    panel,
		module:      module,
		provider:    provider,
		defaults:    defaults,
		captions:    captions,
		log:         log.WithField("component", "widget"),
		cfg:         cfg,
		mode:        ModePayment,
	}
	w.TrackLink.SetVisible(false)
	if provider != nil {
		w.tracker = NewTracker(provider, 0, log, w.onTrackedStatus)
	}
	w.relay = ctrl.Events().OnOutcome(w.relayOutcome)
	return w, nil
}

// SetTrackInterval changes how often the status panel polls the tracked intent.
// It stops any tracking in progress.
func (w *Widget) SetTrackInterval(d time.Duration) {
	w.mu.Lock()
	old := w.tracker
	if w.provider != nil {
		w.tracker = NewTracker(w.provider, d, w.log, w.onTrackedStatus)
	}
	w.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// Init applies the configured attributes unless LazyLoad is set, in which case the
// host is expected to use the setters.
func (w *Widget) Init(ctx context.Context) error {
	w.mu.Lock()
	cfg := w.cfg
	w.onOutcome = cfg.OnOutcome
	w.mu.Unlock()

	if !cfg.LazyLoad {
		if err := w.SetMode(orMode(cfg.Mode, ModePayment)); err != nil {
			return err
		}
		w.SetBaseStripeAPI(cfg.BaseStripeAPI)
		w.SetURLStripeTracking(cfg.URLStripeTracking)
		w.SetShowButtonPay(cfg.ShowButtonPay)
		w.SetPayButtonCaption(cfg.PayButtonCaption)
		w.SetNetworks(orDefault(cfg.Networks, w.defaults.Networks))
		w.SetTokens(orDefault(cfg.Tokens, w.defaults.Tokens))
		w.SetWallets(orDefault(cfg.Wallets, w.defaults.Wallets))
		if cfg.Payment != nil {
			if err := w.SetPayment(*cfg.Payment); err != nil {
				return err
			}
		}
	}
	w.refresh()
	w.log.WithFields(logrus.Fields{"mode": w.Mode(), "lazy": cfg.LazyLoad}).Debug("widget initialized")
	return nil
}

func orMode(m, def Mode) Mode {
	if m == "" {
		return def
	}
	return m
}

func orDefault[T any](v, def []T) []T {
	if len(v) == 0 {
		return def
	}
	return v
}

func (w *Widget) SetPayment(info payment.Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	w.payment = &info
	w.mu.Unlock()
	w.refresh()
	return nil
}

func (w *Widget) Payment() (payment.Info, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.payment == nil {
		return payment.Info{}, false
	}
	return *w.payment, true
}

func (w *Widget) SetMode(m Mode) error {
	if m != ModePayment && m != ModeStatus {
		return fmt.Errorf("widget: unknown mode %q", m)
	}
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
	w.refresh()
	return nil
}

func (w *Widget) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

func (w *Widget) SetShowButtonPay(v bool) {
	w.mu.Lock()
	w.showButtonPay = v
	w.mu.Unlock()
	w.refresh()
}

func (w *Widget) SetPayButtonCaption(s string) {
	w.mu.Lock()
	w.payButtonCaption = s
	w.mu.Unlock()
	w.refresh()
}

// PayButtonCaption returns the caption, "Pay" in the widget language when unset.
func (w *Widget) PayButtonCaption() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.payButtonCaption == "" {
		return w.captions.T("Pay")
	}
	return w.payButtonCaption
}

func (w *Widget) SetBaseStripeAPI(s string) {
	w.mu.Lock()
	w.baseStripeAPI = s
	w.mu.Unlock()
}

func (w *Widget) SetURLStripeTracking(s string) {
	w.mu.Lock()
	w.urlStripeTracking = s
	w.mu.Unlock()
	w.TrackLink.SetCaption(s)
	w.TrackLink.SetVisible(s != "")
}

func (w *Widget) SetWallets(v []Wallet) {
	w.mu.Lock()
	w.wallets = v
	w.mu.Unlock()
}

func (w *Widget) SetNetworks(v []Network) {
	w.mu.Lock()
	w.networks = v
	w.mu.Unlock()
}

func (w *Widget) SetTokens(v []Token) {
	w.mu.Lock()
	w.tokens = v
	w.mu.Unlock()
}

// Wallets returns the configured wallets, or the static defaults when none were set.
func (w *Widget) Wallets() []Wallet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return orDefault(w.wallets, w.defaults.Wallets)
}

func (w *Widget) Networks() []Network {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return orDefault(w.networks, w.defaults.Networks)
}

// Tokens returns the configured tokens that live on one of the configured networks.
func (w *Widget) Tokens() []Token {
	w.mu.RLock()
	tokens := orDefault(w.tokens, w.defaults.Tokens)
	networks := orDefault(w.networks, w.defaults.Networks)
	w.mu.RUnlock()

	if len(networks) == 0 {
		return tokens
	}
	chains := funk.Map(networks, func(n Network) int { return n.ChainID }).([]int)
	return funk.Filter(tokens, func(t Token) bool { return funk.ContainsInt(chains, t.ChainID) }).([]Token)
}

func (w *Widget) OnOutcome(fn func(checkout.Outcome)) {
	w.mu.Lock()
	w.onOutcome = fn
	w.mu.Unlock()
}

func (w *Widget) refresh() {
	w.mu.RLock()
	mode, show, hasPayment := w.mode, w.showButtonPay, w.payment != nil
	caption := w.payButtonCaption
	w.mu.RUnlock()
	if caption == "" {
		caption = w.captions.T("Pay")
	}

	w.PayBtn.SetCaption(caption)
	w.PayBtn.SetEnabled(hasPayment)
	w.PayBtn.SetVisible(mode == ModePayment && show)
	w.StatusPanel.SetVisible(mode == ModeStatus)
}

// Pay opens the payment modal for the current payment and prepares the card form.
func (w *Widget) Pay(ctx context.Context) error {
	info, ok := w.Payment()
	if !ok {
		return ErrNoPayment
	}
	return w.StartPayment(ctx, info)
}

// StartPayment replaces the current payment with info and opens the payment modal.
func (w *Widget) StartPayment(ctx context.Context, info payment.Info) error {
	if err := w.SetPayment(info); err != nil {
		return err
	}
	if w.module != nil {
		w.mu.RLock()
		base, tracking := w.baseStripeAPI, w.urlStripeTracking
		w.mu.RUnlock()
		w.module.Configure(ModuleConfig{
			Wallets:           w.Wallets(),
			Networks:          w.Networks(),
			Tokens:            w.Tokens(),
			BaseStripeAPI:     base,
			URLStripeTracking: tracking,
		})
		if err := w.module.OpenModal(ModalOptions{Title: w.captions.T("PaymentTitle"), Width: 480, MaxWidth: "100%"}); err != nil {
			return fmt.Errorf("widget: open payment modal: %w", err)
		}
		if err := w.module.Show(info); err != nil {
			return fmt.Errorf("widget: show payment: %w", err)
		}
	}
	return w.Checkout.Payment.Set(ctx, info)
}

// TrackPayment shows the status of an intent in the status panel.
func (w *Widget) TrackPayment(intentID string) error {
	w.mu.RLock()
	t := w.tracker
	w.mu.RUnlock()
	if t == nil {
		return fmt.Errorf("widget: no status source configured")
	}
	w.Status.SetCaption(w.captions.Status(""))
	return t.Track(intentID)
}

func (w *Widget) onTrackedStatus(intentID, status string) {
	w.Status.SetCaption(w.captions.Status(status))
	w.log.WithFields(logrus.Fields{"intent": intentID, "status": status}).Info("payment status changed")
}

func (w *Widget) relayOutcome(o checkout.Outcome) {
	w.mu.RLock()
	fn := w.onOutcome
	w.mu.RUnlock()
	if fn != nil {
		fn(o)
	}
}

// Close tears the checkout down and stops status tracking.
func (w *Widget) Close() {
	w.Checkout.Close()
	w.Checkout.ctrl.Events().Unsubscribe(w.relay)
	w.mu.RLock()
	t := w.tracker
	w.mu.RUnlock()
	if t != nil {
		t.Stop()
	}
}
