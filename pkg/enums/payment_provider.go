package enums

import "fmt"

// PaymentProvider identifies the rail a payment is collected through.
type PaymentProvider string

const (
	PaymentProviderMpesa        PaymentProvider = "mpesa"
	PaymentProviderAirtelMoney  PaymentProvider = "airtel_money"
	PaymentProviderCard         PaymentProvider = "card"
	PaymentProviderBankTransfer PaymentProvider = "bank_transfer"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderMpesa,
	PaymentProviderAirtelMoney,
	PaymentProviderCard,
	PaymentProviderBankTransfer,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}

// IsMobileMoney reports whether the provider collects through a phone wallet.
func (p PaymentProvider) IsMobileMoney() bool {
	return p == PaymentProviderMpesa || p == PaymentProviderAirtelMoney
}
