package model

// CurrencyConfig describes how USD amounts are shown to a visitor.
// Rate is units of local currency per 1 USD.
type CurrencyConfig struct {
	Code   string  `json:"code"`
	Rate   float64 `json:"rate"`
	Locale string  `json:"locale"`
}

// DefaultCurrency is used whenever the visitor's region is unknown.
var DefaultCurrency = CurrencyConfig{Code: "USD", Rate: 1, Locale: "en-US"}
