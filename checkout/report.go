package checkout

import (
	"github.com/getsentry/sentry-go"
)

// Reporter receives checkout failures for out-of-band tracking.
type Reporter interface {
	Report(err error, tags map[string]string)
}

type nopReporter struct{}

func (nopReporter) Report(error, map[string]string) {}

// SentryReporter sends failures to sentry. A nil hub uses the current hub.
type SentryReporter struct {
	Hub *sentry.Hub
}

func (r SentryReporter) Report(err error, tags map[string]string) {
	hub := r.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
