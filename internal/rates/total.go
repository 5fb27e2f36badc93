package rates

import (
	"investtrack/internal/utils"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Total is the capital of a set of investments in the base currency.
type Total struct {
	Currency    string                     `json:"currency"`
	Amount      decimal.Decimal            `json:"amount"`
	Display     string                     `json:"display"`
	ByCurrency  map[string]decimal.Decimal `json:"by_currency"`
	Unconverted []string                   `json:"unconverted,omitempty"`
	Fallback    bool                       `json:"fallback_rates"`
}

// TotalCapital sums every investment converted with r. Investments in a
// currency missing from r are left out of Amount and listed in Unconverted.
func TotalCapital(investments []utils.Investment, r *ExchangeRates) Total {
	t := Total{
		Currency:   r.Base,
		Amount:     decimal.Zero,
		ByCurrency: make(map[string]decimal.Decimal),
		Fallback:   r.Fallback,
	}
	for _, inv := range investments {
		code := strings.ToUpper(inv.Currency)
		t.ByCurrency[code] = t.ByCurrency[code].Add(inv.Amount)

		v, err := r.Convert(inv.Amount, code)
		if err != nil {
			t.Unconverted = append(t.Unconverted, inv.ID)
			continue
		}
		t.Amount = t.Amount.Add(v)
	}
	t.Amount = t.Amount.Round(2)
	t.Display = Format(t.Amount, t.Currency)
	return t
}

// Format renders amount with the currency's symbol and separators.
func Format(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + strings.ToUpper(currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
