package enums

import "fmt"

// PaymentMethod identifies how a customer pays through the gateway.
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodEWallet        PaymentMethod = "ewallet"
	PaymentMethodQRIS           PaymentMethod = "qris"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodBankTransfer,
	PaymentMethodEWallet,
	PaymentMethodQRIS,
	PaymentMethodVirtualAccount,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// GatewayTypes maps the method onto the payment_method_types the gateway accepts.
func (m PaymentMethod) GatewayTypes() []string {
	switch m {
	case PaymentMethodCreditCard:
		return []string{"CREDIT_CARD"}
	case PaymentMethodEWallet:
		return []string{"EWALLET"}
	case PaymentMethodQRIS:
		return []string{"QRIS"}
	case PaymentMethodBankTransfer, PaymentMethodVirtualAccount:
		return []string{"VIRTUAL_ACCOUNT"}
	default:
		return []string{"VIRTUAL_ACCOUNT"}
	}
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
