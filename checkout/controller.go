// Package checkout drives a payment from intent creation to confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fabriqs/paywidget/payment"
	"github.com/fabriqs/paywidget/paylib"
)

const (
	DefaultLoadTimeout    = 20 * time.Second
	DefaultIntentTimeout  = 15 * time.Second
	DefaultConfirmTimeout = 60 * time.Second
)

type Options struct {
	PublishableKey string
	Container      string
	ReturnURL      string
	Billing        paylib.BillingDetails
	LoadTimeout    time.Duration
	IntentTimeout  time.Duration
	ConfirmTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Container == "" {
		o.Container = paylib.DefaultFormElement
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.IntentTimeout <= 0 {
		o.IntentTimeout = DefaultIntentTimeout
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = DefaultConfirmTimeout
	}
}

// Controller owns one checkout session and the payment form mounted for it.
//
// Assign and Submit run one at a time; an assignment that arrives mid-flight waits
// for the running step. Back never waits.
type Controller struct {
	opts     Options
	provider payment.Provider
	lib      *paylib.Guard
	events   *Events
	reporter Reporter
	log      logrus.FieldLogger

	flight singleflight.Group
	run    sync.Mutex

	mu       sync.Mutex
	state    State
	session  *Session
	client   paylib.Client
	elements paylib.Elements
	form     paylib.Element
	held     []Outcome // raised under the run lock, published by flush
}

func NewController(opts Options, provider payment.Provider, lib *paylib.Guard, events *Events, reporter Reporter, log logrus.FieldLogger) *Controller {
	opts.defaults()
	if events == nil {
		events = NewEvents()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		opts:     opts,
		provider: provider,
		lib:      lib,
		events:   events,
		reporter: reporter,
		log:      log.WithField("component", "checkout"),
	}
}

func (c *Controller) Events() *Events { return c.events }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the live session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out Session
	if c.session == nil {
		return out, false
	}
	if err := copier.Copy(&out, c.session); err != nil {
		out = *c.session
	}
	return out, true
}

// CheckoutEnabled reports whether Submit would be accepted now.
func (c *Controller) CheckoutEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == FormReady && c.session != nil && c.session.secretCurrent()
}

// Assign prepares a payment form for info. Reassigning the payment that is already
// prepared does nothing.
func (c *Controller) Assign(ctx context.Context, info payment.Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	_, err, _ := c.flight.Do(info.Key(), func() (interface{}, error) {
		c.run.Lock()
		defer c.run.Unlock()
		return nil, c.initialize(ctx, info)
	})
	c.flush()
	return err
}

// Retry runs the initialization again for the current payment after a failure.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return ErrNotReady
	}
	return c.Assign(ctx, sess.Info)
}

func (c *Controller) initialize(ctx context.Context, info payment.Info) error {
	c.mu.Lock()
	if cur := c.session; cur != nil && !cur.Cancelled && cur.Info.Key() == info.Key() && c.state.settled() {
		c.mu.Unlock()
		c.log.WithField("session", cur.ID).Debug("payment unchanged, keeping form")
		return nil
	}
	var stale paylib.Element
	if c.state == Confirmed {
		stale = c.form
		c.elements, c.form = nil, nil
	}
	sess := newSession(info)
	if prev := c.session; prev != nil && prev.secretCurrent() && prev.Info.Same(info) && c.state != Confirmed {
		// same amount and currency: only the title changed, the intent still fits
		sess.Secret, sess.IntentID, sess.SecretKey = prev.Secret, prev.IntentID, info.Key()
	}
	c.session = sess
	c.mu.Unlock()

	if stale != nil {
		if err := stale.Unmount(); err != nil {
			c.log.WithError(err).Warn("unmount previous payment form")
		}
	}

	log := c.log.WithFields(logrus.Fields{"session": sess.ID, "currency": info.FormCurrency(), "amount": info.Amount})

	if !c.lib.Loaded() {
		c.transition(sess, LibraryLoading)
		lctx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
		_, err := c.lib.Ensure(lctx)
		cancel()
		if err != nil {
			return c.fail(sess, ReasonLibraryLoad, "", fmt.Errorf("%w: %v", ErrLibraryLoad, err))
		}
	}
	if c.cancelled(sess) {
		return ErrCancelled
	}

	c.transition(sess, FormInitializing)
	if sess.Secret == "" {
		ictx, cancel := context.WithTimeout(ctx, c.opts.IntentTimeout)
		resp, err := c.provider.CreateIntent(ictx, &payment.IntentRequest{
			Amount:      info.Amount,
			Currency:    info.FormCurrency(),
			Description: info.Title,
		})
		cancel()
		if c.cancelled(sess) {
			log.Debug("session cancelled while creating intent")
			return ErrCancelled
		}
		if err != nil {
			if !errors.Is(err, payment.ErrNoSecret) {
				err = fmt.Errorf("%w: %v", payment.ErrNoSecret, err)
			}
			return c.fail(sess, ReasonIntentCreation, "", err)
		}
		c.mu.Lock()
		sess.Secret, sess.IntentID, sess.SecretKey = resp.ClientSecret, resp.Id, info.Key()
		c.mu.Unlock()
	}

	opts := paylib.ElementsOptions{Mode: paylib.ModePayment, Currency: info.FormCurrency(), Amount: info.Amount}
	updated, err := c.mountOrUpdate(opts)
	if err != nil {
		return c.fail(sess, ReasonForm, "", fmt.Errorf("%w: %v", ErrForm, err))
	}
	if updated {
		log.Debug("payment form updated in place")
	} else {
		log.Info("payment form mounted")
	}
	c.transition(sess, FormReady)
	return nil
}

func (c *Controller) mountOrUpdate(opts paylib.ElementsOptions) (bool, error) {
	c.mu.Lock()
	els, client := c.elements, c.client
	c.mu.Unlock()

	if els != nil {
		return true, els.Update(paylib.ElementsOptions{Currency: opts.Currency, Amount: opts.Amount})
	}
	if client == nil {
		var err error
		if client, err = c.lib.New(c.opts.PublishableKey); err != nil {
			return false, err
		}
	}
	els, err := client.Elements(opts)
	if err != nil {
		return false, err
	}
	form, err := els.Create(paylib.ElementPayment)
	if err != nil {
		return false, err
	}
	if err := form.Mount(c.opts.Container); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.client, c.elements, c.form = client, els, form
	c.mu.Unlock()
	return false, nil
}

// Submit collects the form and confirms the payment with the session's secret.
// Declines and library errors come back as a failed Outcome; the error is only
// set when the checkout was not in a state to submit.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	out, err := c.submit(ctx)
	c.flush()
	return out, err
}

func (c *Controller) submit(ctx context.Context) (Outcome, error) {
	c.run.Lock()
	defer c.run.Unlock()

	c.mu.Lock()
	sess := c.session
	if sess == nil || c.state != FormReady {
		st := c.state
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: state %s", ErrNotReady, st)
	}
	if !sess.secretCurrent() {
		c.mu.Unlock()
		return Outcome{}, ErrStaleSecret
	}
	els, client, secret := c.elements, c.client, sess.Secret
	c.mu.Unlock()

	c.transition(sess, Submitting)
	cctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	if err := els.Submit(cctx); err != nil {
		return c.failOutcome(sess, "", fmt.Errorf("%w: submit: %v", ErrConfirmation, err)), nil
	}
	res, err := client.ConfirmPayment(cctx, paylib.ConfirmParams{
		Elements:       els,
		ReturnURL:      c.opts.ReturnURL,
		BillingDetails: c.opts.Billing,
		ClientSecret:   secret.String(),
	})
	if err != nil {
		return c.failOutcome(sess, "", fmt.Errorf("%w: %v", ErrConfirmation, err)), nil
	}
	if res == nil {
		return c.failOutcome(sess, "", fmt.Errorf("%w: empty result", ErrConfirmation)), nil
	}
	if res.Error != nil {
		return c.failOutcome(sess, res.Status, fmt.Errorf("%w: %v", ErrConfirmation, res.Error)), nil
	}

	switch payment.Classify(res.Status) {
	case payment.ClassSucceeded:
		c.transition(sess, Confirmed)
		return c.hold(Outcome{Kind: Succeeded, Status: res.Status, SessionID: sess.ID}), nil
	case payment.ClassRequiresAction:
		c.transition(sess, FormReady)
		return c.hold(Outcome{Kind: RequiresAction, Status: res.Status, SessionID: sess.ID}), nil
	default:
		return c.failOutcome(sess, res.Status, fmt.Errorf("%w: status %q", ErrConfirmation, res.Status)), nil
	}
}

// Back reports a cancellation to the host. It leaves the provider and library alone
// and does not interrupt calls already in flight. An initialization still running
// for the session is abandoned once its current call returns.
func (c *Controller) Back() Outcome {
	c.mu.Lock()
	var id string
	abandoned := false
	if sess := c.session; sess != nil {
		id = sess.ID
		if c.state == LibraryLoading || c.state == FormInitializing {
			sess.Cancelled = true
			c.state = Idle
			abandoned = true
			// a later Assign of the same payment starts over instead of joining the abandoned run
			c.flight.Forget(sess.Info.Key())
		}
	}
	c.mu.Unlock()

	if abandoned {
		c.events.state(Idle)
	}
	c.log.WithFields(logrus.Fields{"session": id, "abandoned": abandoned}).Info("checkout cancelled")
	return c.emit(Outcome{Kind: Cancelled, SessionID: id})
}

// Close tears down the form and forgets the session, as when the hosting widget closes.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.session != nil {
		c.session.Cancelled = true
		c.flight.Forget(c.session.Info.Key())
	}
	form := c.form
	c.session, c.elements, c.form = nil, nil, nil
	c.state = Idle
	c.mu.Unlock()

	if form != nil {
		if err := form.Unmount(); err != nil {
			c.log.WithError(err).Warn("unmount payment form")
		}
	}
	c.events.state(Idle)
}

func (c *Controller) cancelled(sess *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sess.Cancelled || c.session != sess
}

// transition moves the state machine while sess is still the live session.
func (c *Controller) transition(sess *Session, to State) {
	c.mu.Lock()
	if c.session != sess || sess.Cancelled {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()
	c.events.state(to)
}

func (c *Controller) fail(sess *Session, reason Reason, status string, err error) error {
	c.mu.Lock()
	live := c.session == sess && !sess.Cancelled
	if live {
		c.state = Failed
	}
	c.mu.Unlock()
	if !live {
		return ErrCancelled
	}

	c.log.WithError(err).WithFields(logrus.Fields{"session": sess.ID, "reason": reason}).Warn("checkout failed")
	c.reporter.Report(err, map[string]string{"reason": string(reason), "session": sess.ID})
	c.events.state(Failed)
	c.hold(Outcome{Kind: FailedOutcome, Reason: reason, Status: status, Message: err.Error(), SessionID: sess.ID})
	return err
}

func (c *Controller) failOutcome(sess *Session, status string, err error) Outcome {
	c.mu.Lock()
	if c.session == sess {
		c.state = Failed
	}
	c.mu.Unlock()

	c.log.WithError(err).WithFields(logrus.Fields{"session": sess.ID, "status": status}).Warn("payment confirmation failed")
	c.reporter.Report(err, map[string]string{"reason": string(ReasonConfirmation), "session": sess.ID})
	c.events.state(Failed)
	return c.hold(Outcome{Kind: FailedOutcome, Reason: ReasonConfirmation, Status: status, Message: err.Error(), SessionID: sess.ID})
}

func (c *Controller) emit(o Outcome) Outcome {
	c.events.outcome(o)
	return o
}

// hold queues o until the running step releases the run lock, so handlers can
// start the next step from inside their callback.
func (c *Controller) hold(o Outcome) Outcome {
	c.mu.Lock()
	c.held = append(c.held, o)
	c.mu.Unlock()
	return o
}

func (c *Controller) flush() {
	c.mu.Lock()
	held := c.held
	c.held = nil
	c.mu.Unlock()
	for _, o := range held {
		c.events.outcome(o)
	}
}
