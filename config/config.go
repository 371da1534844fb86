// Package config loads the widget configuration from a TOML file, an optional .env
// file and PAYWIDGET_* environment variables, in that order of precedence (last wins).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/intent"
	"github.com/fabriqs/paywidget/payment"
	"github.com/fabriqs/paywidget/paylib"
	"github.com/fabriqs/paywidget/widget"
)

const EnvPrefix = "PAYWIDGET"

//go:embed defaults.toml
var defaultData []byte

type Config struct {
	Widget   Widget   `toml:"widget" envconfig:"WIDGET"`
	Stripe   Stripe   `toml:"stripe" envconfig:"STRIPE"`
	Timeouts Timeouts `toml:"timeouts" envconfig:"TIMEOUT"`
	Log      Log      `toml:"log" envconfig:"LOG"`
	Sentry   Sentry   `toml:"sentry" envconfig:"SENTRY"`
	Data     Data     `toml:"data" ignored:"true"`
}

type Widget struct {
	Mode              string        `toml:"mode" envconfig:"MODE" validate:"oneof=payment status"`
	PayButtonCaption  string        `toml:"pay_button_caption" envconfig:"PAY_BUTTON_CAPTION"`
	ShowButtonPay     bool          `toml:"show_button_pay" envconfig:"SHOW_BUTTON_PAY"`
	LazyLoad          bool          `toml:"lazy_load" envconfig:"LAZY_LOAD"`
	Language          string        `toml:"language" envconfig:"LANGUAGE"`
	BaseStripeAPI     string        `toml:"base_stripe_api" envconfig:"BASE_STRIPE_API" validate:"required,url"`
	URLStripeTracking string        `toml:"url_stripe_tracking" envconfig:"URL_STRIPE_TRACKING" validate:"omitempty,url"`
	Payment           *payment.Info `toml:"payment" ignored:"true"`
}

type Stripe struct {
	PublishableKey string                `toml:"publishable_key" envconfig:"PUBLISHABLE_KEY" validate:"omitempty,startswith=pk_"`
	ScriptURL      string                `toml:"script_url" envconfig:"SCRIPT_URL" validate:"required,url"`
	ReturnURL      string                `toml:"return_url" envconfig:"RETURN_URL" validate:"required,url"`
	FormContainer  string                `toml:"form_container" envconfig:"FORM_CONTAINER" validate:"required"`
	Billing        paylib.BillingDetails `toml:"billing" envconfig:"BILLING"`
}

type Timeouts struct {
	Load          Duration `toml:"load" envconfig:"LOAD"`
	Intent        Duration `toml:"intent" envconfig:"INTENT"`
	Confirm       Duration `toml:"confirm" envconfig:"CONFIRM"`
	TrackInterval Duration `toml:"track_interval" envconfig:"TRACK_INTERVAL"`
}

type Log struct {
	Level  string `toml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn warning error"`
	Format string `toml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

type Sentry struct {
	DSN         string `toml:"dsn" envconfig:"DSN" validate:"omitempty,url"`
	Environment string `toml:"environment" envconfig:"ENVIRONMENT"`
}

// Data is the static wallet, network and token data.
type Data struct {
	Wallets  []widget.Wallet  `toml:"wallets" validate:"dive"`
	Networks []widget.Network `toml:"networks" validate:"dive"`
	Tokens   []widget.Token   `toml:"tokens" validate:"dive"`
}

// Duration reads values like "15s" from TOML and the environment.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	cfg := Config{
		Widget: Widget{
			Mode:          string(widget.ModePayment),
			BaseStripeAPI: intent.DefaultBaseURL,
		},
		Stripe: Stripe{
			ScriptURL:     paylib.DefaultScriptURL,
			ReturnURL:     "https://example.com",
			FormContainer: paylib.DefaultFormElement,
		},
		Timeouts: Timeouts{
			Load:          Duration(checkout.DefaultLoadTimeout),
			Intent:        Duration(checkout.DefaultIntentTimeout),
			Confirm:       Duration(checkout.DefaultConfirmTimeout),
			TrackInterval: Duration(widget.DefaultTrackInterval),
		},
		Log: Log{Level: "info", Format: "text"},
	}
	if err := toml.Unmarshal(defaultData, &cfg.Data); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

var validate = validator.New()

// Load builds a Config from defaults, the TOML file at path (skipped when empty),
// the given .env files (missing ones are ignored) and the environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// WidgetConfig maps the configuration onto widget attributes.
func (c Config) WidgetConfig() widget.Config {
	return widget.Config{
		Payment:           c.Widget.Payment,
		PayButtonCaption:  c.Widget.PayButtonCaption,
		Mode:              widget.Mode(c.Widget.Mode),
		ShowButtonPay:     c.Widget.ShowButtonPay,
		BaseStripeAPI:     c.Widget.BaseStripeAPI,
		URLStripeTracking: c.Widget.URLStripeTracking,
		LazyLoad:          c.Widget.LazyLoad,
		Language:          c.Widget.Language,
	}
}

func (c Config) Defaults() widget.Defaults {
	return widget.Defaults{Wallets: c.Data.Wallets, Networks: c.Data.Networks, Tokens: c.Data.Tokens}
}

func (c Config) CheckoutOptions() checkout.Options {
	return checkout.Options{
		PublishableKey: c.Stripe.PublishableKey,
		Container:      c.Stripe.FormContainer,
		ReturnURL:      c.Stripe.ReturnURL,
		Billing:        c.Stripe.Billing,
		LoadTimeout:    c.Timeouts.Load.Std(),
		IntentTimeout:  c.Timeouts.Intent.Std(),
		ConfirmTimeout: c.Timeouts.Confirm.Std(),
	}
}
