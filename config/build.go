package config

import (
	"fmt"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/intent"
	"github.com/fabriqs/paywidget/paylib"
	"github.com/fabriqs/paywidget/widget"
)

func NewLogger(c Log) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	log.SetLevel(level)
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// NewReporter initialises sentry when a DSN is configured. Without one it returns nil,
// which the checkout treats as "do not report".
func NewReporter(c Sentry) (checkout.Reporter, error) {
	if c.DSN == "" {
		return nil, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.DSN,
		Environment: c.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("config: sentry: %w", err)
	}
	return checkout.SentryReporter{}, nil
}

// Build assembles a widget from the configuration. The host supplies the payment
// library binding and the wallet module.
func (c Config) Build(loader paylib.Loader, module widget.Module, log logrus.FieldLogger) (*widget.Widget, error) {
	if log == nil {
		l, err := NewLogger(c.Log)
		if err != nil {
			return nil, err
		}
		log = l
	}
	reporter, err := NewReporter(c.Sentry)
	if err != nil {
		return nil, err
	}

	provider := intent.NewClient(c.Widget.BaseStripeAPI, c.Timeouts.Intent.Std(), log)
	guard := paylib.NewGuard(loader, c.Stripe.ScriptURL, log)
	ctrl := checkout.NewController(c.CheckoutOptions(), provider, guard, checkout.NewEvents(), reporter, log)

	w, err := widget.New(c.WidgetConfig(), ctrl, module, provider, c.Defaults(), log)
	if err != nil {
		return nil, err
	}
	w.SetTrackInterval(c.Timeouts.TrackInterval.Std())
	return w, nil
}
