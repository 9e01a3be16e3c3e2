package market

import (
	"context"
	"fmt"
	"strings"
)

// Currencies splits a six letter FX-style symbol (EURUSD or EUR_USD) into
// its base and quote currencies.
func Currencies(instrument string) (base, quote string, ok bool) {
	sym := strings.ToUpper(strings.ReplaceAll(instrument, "_", ""))
	if len(sym) != 6 {
		return "", "", false
	}
	return sym[:3], sym[3:], true
}

// QuoteToAccountRate converts one unit of the instrument's quote currency
// into the account currency, asking prices only when it has to.
func QuoteToAccountRate(ctx context.Context, instrument, accountCurrency string, prices PriceSource) (float64, error) {
	base, quote, ok := Currencies(instrument)
	if !ok {
		return 0, fmt.Errorf("unknown currencies for instrument %s", instrument)
	}
	ccy := strings.ToUpper(accountCurrency)

	// EURUSD in a USD account
	if quote == ccy {
		return 1.0, nil
	}

	// USDJPY in a USD account: the price is JPY per USD
	if base == ccy {
		px, err := prices.GetPrice(ctx, instrument)
		if err != nil {
			return 0, err
		}
		if px <= 0 {
			return 0, fmt.Errorf("invalid price %v for %s", px, instrument)
		}
		return 1.0 / px, nil
	}

	return 0, fmt.Errorf("cross conversion not implemented for %s → %s", quote, ccy)
}
