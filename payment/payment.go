package payment

import (
	"context"
	"errors"
	"strings"
)

var (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusRequiresCapture       = "requires_capture"
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusCanceled              = "canceled"
)

// ErrNoSecret is returned by a Provider whenever no client secret could be obtained.
var ErrNoSecret = errors.New("payment: no client secret obtained")

type IntentRequest struct {
	Amount      float64 `json:"amount,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Description string  `json:"description,omitempty"`
}

type IntentResponse struct {
	Id           string
	ClientSecret Secret
	Status       string
}

type Provider interface {
	CreateIntent(ctx context.Context, request *IntentRequest) (*IntentResponse, error)
	GetIntent(ctx context.Context, ID string) (*IntentResponse, error)
}

// Secret is the opaque client secret of exactly one payment intent.
type Secret string

func (s Secret) String() string { return string(s) }

// IntentID returns the "pi_..." part of a secret shaped like "pi_123_secret_abc".
func (s Secret) IntentID() string {
	i := strings.Index(string(s), "_secret_")
	if i <= 0 {
		return ""
	}
	return string(s[:i])
}

type Class int

const (
	ClassFailed Class = iota
	ClassSucceeded
	ClassRequiresAction
)

func (c Class) String() string {
	switch c {
	case ClassSucceeded:
		return "succeeded"
	case ClassRequiresAction:
		return "requires_action"
	default:
		return "failed"
	}
}

// Classify maps an intent status to the outcome a checkout reports for it.
// Unknown statuses are treated as failures.
func Classify(status string) Class {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusSucceeded, StatusProcessing, StatusRequiresCapture:
		return ClassSucceeded
	case StatusRequiresAction, StatusRequiresConfirmation:
		return ClassRequiresAction
	default:
		return ClassFailed
	}
}

// Terminal reports whether an intent in this status will not change without user input.
func Terminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusCanceled, StatusRequiresPaymentMethod:
		return true
	}
	return false
}
