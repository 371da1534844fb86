// Package paylib describes the external payment library the checkout drives.
//
// The library itself lives outside this module (a script loaded into the host page);
// a host binds it by implementing Loader. Nothing here knows about browsers.
package paylib

import (
	"context"
	"fmt"
)

const (
	// DefaultScriptURL is where the hosted payment library is fetched from.
	DefaultScriptURL = "https://js.stripe.com/v3/"

	ModePayment        = "payment"
	ElementPayment     = "payment"
	DefaultFormElement = "#pnlStripePaymentForm"
)

// Loader makes the library available and constructs clients from it.
type Loader interface {
	// Loaded reports whether the library is already present in the environment.
	Loaded() bool
	// Load fetches the library script and returns once it signalled readiness.
	Load(ctx context.Context, scriptURL string) error
	// New constructs a client for a publishable key.
	New(publishableKey string) (Client, error)
}

type Client interface {
	Elements(opts ElementsOptions) (Elements, error)
	ConfirmPayment(ctx context.Context, params ConfirmParams) (*ConfirmResult, error)
}

// Elements is the context a payment form is created from.
type Elements interface {
	Create(kind string) (Element, error)
	Update(opts ElementsOptions) error
	// Submit validates and collects the form's local field state.
	Submit(ctx context.Context) error
}

type Element interface {
	Mount(container string) error
	Unmount() error
}

type ElementsOptions struct {
	Mode     string  `json:"mode,omitempty"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

type BillingDetails struct {
	Name  string `json:"name,omitempty" toml:"name"`
	Email string `json:"email,omitempty" toml:"email"`
}

type ConfirmParams struct {
	Elements       Elements
	ReturnURL      string
	BillingDetails BillingDetails
	ClientSecret   string
}

// ConfirmResult is what the library resolves a confirmation with.
// Error is set when the library reports a declined or invalid payment.
type ConfirmResult struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
}

type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
