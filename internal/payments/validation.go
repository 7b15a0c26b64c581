package payments

import (
	"regexp"
	"strings"

	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

var (
	e164Pattern    = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)
	accountPattern = regexp.MustCompile(`^[0-9A-Za-z-]{4,34}$`)
)

// buildCommand validates req against its provider and normalizes it.
func buildCommand(req PaymentRequest, defaultCurrency enums.Currency) (InitiateCommand, error) {
	cmd := InitiateCommand{
		Amount:        req.Amount,
		Currency:      req.Currency,
		Provider:      req.Provider,
		Reference:     strings.TrimSpace(req.Reference),
		Description:   strings.TrimSpace(req.Description),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Metadata:      req.Metadata.Clone(),
	}

	if !req.Amount.IsPositive() {
		return cmd, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return cmd, pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places")
	}
	if cmd.Currency == "" {
		cmd.Currency = defaultCurrency
	}
	if !cmd.Currency.IsValid() {
		return cmd, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported currency %q", cmd.Currency)
	}
	if !req.Provider.IsValid() {
		return cmd, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment provider %q", req.Provider)
	}

	switch {
	case req.Provider.IsMobileMoney():
		phone, ok := NormalizePhone(req.PhoneNumber)
		if !ok {
			return cmd, pkgerrors.New(pkgerrors.CodeValidation, "a valid phone number is required for mobile money").
				WithDetails(map[string]any{"field": "phone_number"})
		}
		cmd.PhoneNumber = phone
	case req.Provider == enums.PaymentProviderCard:
		token := strings.TrimSpace(req.CardToken)
		if token == "" {
			return cmd, pkgerrors.New(pkgerrors.CodeValidation, "card token is required for card payments").
				WithDetails(map[string]any{"field": "card_token"})
		}
		cmd.CardToken = token
	case req.Provider == enums.PaymentProviderBankTransfer:
		account := strings.TrimSpace(req.AccountNumber)
		if !accountPattern.MatchString(account) {
			return cmd, pkgerrors.New(pkgerrors.CodeValidation, "a valid account number is required for bank transfers").
				WithDetails(map[string]any{"field": "account_number"})
		}
		cmd.AccountNumber = account
		cmd.BankCode = strings.TrimSpace(req.BankCode)
	}
	return cmd, nil
}

// NormalizePhone converts local Kenyan formats (07.., 01.., 254..) to E.164.
func NormalizePhone(raw string) (string, bool) {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	switch {
	case phone == "":
		return "", false
	case strings.HasPrefix(phone, "+"):
	case strings.HasPrefix(phone, "254"):
		phone = "+" + phone
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = "+254" + phone[1:]
	default:
		phone = "+" + phone
	}
	if !e164Pattern.MatchString(phone) {
		return "", false
	}
	return phone, true
}
