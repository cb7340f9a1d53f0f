package domain

type Currency string

const (
	CurrencyUnknown Currency = "UNKNOWN"
	CurrencyGBP     Currency = "GBP"
	CurrencyUSD     Currency = "USD"
)

// Money is an amount in integer minor units (pence, cents).
type Money struct {
	Currency         Currency `json:"currency" bson:"currency"`
	AmountMinorUnits int64    `json:"amountMinorUnits" bson:"amount_minor_units"`
}

func NewMoney(currency Currency, amount int64) Money {
	return Money{Currency: currency, AmountMinorUnits: amount}
}

// Mul returns the amount multiplied by quantity, keeping the currency.
func (m Money) Mul(quantity int64) Money {
	return Money{Currency: m.Currency, AmountMinorUnits: m.AmountMinorUnits * quantity}
}

func (m Money) Add(other Money) Money {
	currency := m.Currency
	if currency == "" || currency == CurrencyUnknown {
		currency = other.Currency
	}
	return Money{Currency: currency, AmountMinorUnits: m.AmountMinorUnits + other.AmountMinorUnits}
}
