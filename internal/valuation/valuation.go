// Package valuation converts a USD estimate into the visitor's currency and
// renders the market and discounted figures for display.
package valuation

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xovato/agency-backend/pkg/model"
)

// DiscountFactor is the share of the market price quoted to the client.
var DiscountFactor = decimal.RequireFromString("0.75")

// Valuation is the displayable pair of figures for one estimate.
type Valuation struct {
	Currency          string          `json:"currency"`
	MarketDisplay     string          `json:"marketDisplay"`
	DiscountedDisplay string          `json:"discountedDisplay"`
	MarketAmount      decimal.Decimal `json:"marketAmount"`
	DiscountedAmount  decimal.Decimal `json:"discountedAmount"`
}

// Format converts estimateUSD with cfg and renders both figures with zero fraction
// digits, the locale's grouping and the currency symbol. Negative estimates are treated as 0.
func Format(estimateUSD float64, cfg model.CurrencyConfig) Valuation {
	if estimateUSD < 0 {
		estimateUSD = 0
	}
	rate := decimal.NewFromFloat(cfg.Rate)
	if cfg.Rate <= 0 {
		cfg = model.DefaultCurrency
		rate = decimal.NewFromInt(1)
	}

	market := decimal.NewFromFloat(estimateUSD).Mul(rate)
	discounted := market.Mul(DiscountFactor)

	tag, unit := parseConfig(cfg)
	p := message.NewPrinter(tag)
	lay := layoutFor(tag)
	return Valuation{
		Currency:          cfg.Code,
		MarketDisplay:     lay.render(p, unit, market),
		DiscountedDisplay: lay.render(p, unit, discounted),
		MarketAmount:      market,
		DiscountedAmount:  discounted,
	}
}

func parseConfig(cfg model.CurrencyConfig) (language.Tag, currency.Unit) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	unit, err := currency.ParseISO(cfg.Code)
	if err != nil {
		unit = currency.USD
	}
	return tag, unit
}

// layout is where a locale puts the currency symbol relative to the digits.
// x/text supplies the symbol and the grouped digits but not the CLDR currency pattern.
type layout struct {
	suffix bool
	sep    string
}

const nbsp = "\u00a0"

var layouts = map[string]layout{
	"de": {suffix: true, sep: nbsp},
	"fr": {suffix: true, sep: nbsp},
	"es": {suffix: true, sep: nbsp},
	"it": {suffix: true, sep: nbsp},
	"nl": {suffix: true, sep: nbsp},
	"ar": {suffix: true, sep: nbsp},
	"ur": {sep: nbsp},
}

func layoutFor(tag language.Tag) layout {
	base, _ := tag.Base()
	return layouts[base.String()]
}

func (l layout) render(p *message.Printer, unit currency.Unit, amount decimal.Decimal) string {
	whole := amount.Round(0).IntPart()
	symbol := strings.TrimSpace(p.Sprint(currency.Symbol(unit)))
	digits := p.Sprint(number.Decimal(whole, number.MaxFractionDigits(0)))
	if l.suffix {
		return digits + l.sep + symbol
	}
	return symbol + l.sep + digits
}
