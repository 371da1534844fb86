package checkout

import (
	"errors"
	"time"

	"github.com/rs/xid"

	"github.com/fabriqs/paywidget/payment"
)

type State int

const (
	Idle State = iota
	LibraryLoading
	FormInitializing
	FormReady
	Submitting
	Confirmed
	Failed
)

var stateNames = [...]string{
	Idle:             "Idle",
	LibraryLoading:   "LibraryLoading",
	FormInitializing: "FormInitializing",
	FormReady:        "FormReady",
	Submitting:       "Submitting",
	Confirmed:        "Confirmed",
	Failed:           "Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition happens without a new assignment.
func (s State) Terminal() bool { return s == Confirmed || s == Failed }

// settled states need no further initialization for the same payment.
func (s State) settled() bool { return s == FormReady || s == Submitting || s == Confirmed }

var (
	ErrLibraryLoad  = errors.New("checkout: payment library unavailable")
	ErrForm         = errors.New("checkout: payment form unavailable")
	ErrConfirmation = errors.New("checkout: payment confirmation failed")
	ErrNotReady     = errors.New("checkout: payment form is not ready")
	ErrStaleSecret  = errors.New("checkout: client secret does not match the displayed payment")
	ErrCancelled    = errors.New("checkout: cancelled")
)

// Session ties one payment to at most one live client secret.
// A new Session replaces the old one whenever the payment identity changes.
type Session struct {
	ID        string
	Info      payment.Info
	Secret    payment.Secret
	SecretKey string
	IntentID  string
	Cancelled bool
	CreatedAt time.Time
}

func newSession(info payment.Info) *Session {
	return &Session{ID: xid.New().String(), Info: info, CreatedAt: time.Now()}
}

// secretCurrent reports whether the stored secret was issued for the payment the session shows.
func (s *Session) secretCurrent() bool {
	return s.Secret != "" && s.SecretKey == s.Info.Key()
}
