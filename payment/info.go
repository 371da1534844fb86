package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ErrInvalidInfo = errors.New("payment: invalid payment info")

// DefaultCurrency is used for the hosted form when a currency is not supported by it.
const DefaultCurrency = "usd"

// Currencies accepted by the hosted payment form.
var Currencies = []string{
	"usd", "aed", "afn", "all", "amd", "ang", "aoa", "ars", "aud", "awg", "azn", "bam", "bbd",
	"bdt", "bgn", "bif", "bmd", "bnd", "bob", "brl", "bsd", "bwp", "byn", "bzd", "cad", "cdf",
	"chf", "clp", "cny", "cop", "crc", "cve", "czk", "djf", "dkk", "dop", "dzd", "egp", "etb",
	"eur", "fjd", "fkp", "gbp", "gel", "gip", "gmd", "gnf", "gtq", "gyd", "hkd", "hnl", "htg",
	"huf", "idr", "ils", "inr", "isk", "jmd", "jpy", "kes", "kgs", "khr", "kmf", "krw", "kyd",
	"kzt", "lak", "lbp", "lkr", "lrd", "lsl", "mad", "mdl", "mga", "mkd", "mmk", "mnt", "mop",
	"mur", "mvr", "mwk", "mxn", "myr", "mzn", "nad", "ngn", "nio", "nok", "npr", "nzd", "pab",
	"pen", "pgk", "php", "pkr", "pln", "pyg", "qar", "ron", "rsd", "rub", "rwf", "sar", "sbd",
	"scr", "sek", "sgd", "shp", "sle", "sos", "srd", "std", "szl", "thb", "tjs", "top", "try",
	"ttd", "twd", "tzs", "uah", "ugx", "uyu", "uzs", "vnd", "vuv", "wst", "xaf", "xcd", "xof",
	"xpf", "yer", "zar", "zmw",
}

var validate = validator.New()

// Info is the payment request shown to the user and handed to checkout.
type Info struct {
	Title    string  `json:"title" toml:"title"`
	Amount   float64 `json:"amount" toml:"amount" validate:"gt=0"`
	Currency string  `json:"currency" toml:"currency" validate:"required,len=3,alpha"`
}

func (i Info) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInfo, err)
	}
	return nil
}

// Key identifies the payment for deduplication and secret scoping.
func (i Info) Key() string {
	return strconv.FormatFloat(i.Amount, 'f', -1, 64) + "|" + strings.ToLower(i.Currency) + "|" + i.Title
}

// Same reports whether both values describe the same amount and currency.
func (i Info) Same(o Info) bool {
	return i.Amount == o.Amount && strings.EqualFold(i.Currency, o.Currency)
}

// FormCurrency returns the lower-case currency the hosted form accepts.
func (i Info) FormCurrency() string {
	c := strings.ToLower(strings.TrimSpace(i.Currency))
	if funk.ContainsString(Currencies, c) {
		return c
	}
	return DefaultCurrency
}

// DisplayAmount renders the amount the way the widget labels show it, e.g. "1,999.00 USD".
func (i Info) DisplayAmount() string {
	return FormatAmount(i.Amount) + " " + strings.ToUpper(i.Currency)
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders a number with thousands separators and exactly two decimals.
func FormatAmount(amount float64) string {
	return printer.Sprint(number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
