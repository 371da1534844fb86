package widget

import (
	"embed"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/payment"
)

//go:embed locales/*.toml
var locales embed.FS

var bundle = newBundle()

func newBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	entries, err := locales.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(locales, path.Join("locales", e.Name())); err != nil {
			panic(err)
		}
	}
	return b
}

// Captions translates the widget's fixed texts.
type Captions struct {
	loc *i18n.Localizer
}

func NewCaptions(langs ...string) Captions {
	return Captions{loc: i18n.NewLocalizer(bundle, langs...)}
}

func (c Captions) T(id string) string {
	s, err := c.loc.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return s
}

func (c Captions) Status(status string) string {
	if status == "" {
		return c.T("StatusUnknown")
	}
	switch payment.Classify(status) {
	case payment.ClassSucceeded:
		if status == payment.StatusProcessing {
			return c.T("StatusProcessing")
		}
		return c.T("StatusSucceeded")
	case payment.ClassRequiresAction:
		return c.T("StatusRequiresAction")
	}
	return c.T("StatusFailed")
}

func (c Captions) Failure(reason checkout.Reason) string {
	switch reason {
	case checkout.ReasonLibraryLoad:
		return c.T("LibraryLoadFailed")
	case checkout.ReasonIntentCreation:
		return c.T("IntentCreationFailed")
	case checkout.ReasonForm:
		return c.T("FormFailed")
	}
	return c.T("ConfirmationFailed")
}
