// Package currencypkg provides common currency related functionality for apps.
package currencypkg

import "github.com/go-playground/validator/v10"

// BaseCurrency is the settlement currency every buy and sell is quoted
// against.
const BaseCurrency = "TTD"

// Constants for all supported currencies.
const (
	TTD = "TTD"
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	CAD = "CAD"
)

// SupportedCurrencies holds all the supported currencies.
var SupportedCurrencies = []string{
	TTD,
	USD,
	EUR,
	GBP,
	CAD,
}

// IsSupportedCurrency returns true if the currncy is supported.
func IsSupportedCurrency(currency string) bool {
	for _, c := range SupportedCurrencies {
		if c == currency {
			return true
		}
	}

	return false
}

// ValidCurrency validates the currency field of incoming requests.
var ValidCurrency validator.Func = func(fieldLevel validator.FieldLevel) bool {
	if currency, ok := fieldLevel.Field().Interface().(string); ok {
		return IsSupportedCurrency(currency)
	}

	return false
}
