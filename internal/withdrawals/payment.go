package withdrawals

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

// PaymentDetails are the payout coordinates for the chosen rail. They are
// sealed before they reach the database.
type PaymentDetails map[string]string

// Sealer encrypts payment details at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

var requiredDetails = map[enums.PaymentMethod][]string{
	enums.PaymentMethodBankTransfer: {"account_name", "account_number", "bank_name"},
	enums.PaymentMethodPayPal:       {"email"},
	enums.PaymentMethodMobileMoney:  {"phone_number", "provider"},
}

// detailRules are validator tags for fields whose shape is checkable.
var detailRules = map[string]string{
	"email": "email",
}

var detailValidator = validator.New()

// sensitiveDetails are shown with only their last four characters.
var sensitiveDetails = map[string]bool{
	"account_number": true,
	"iban":           true,
	"phone_number":   true,
	"routing_number": true,
	"swift_code":     true,
}

func (d PaymentDetails) normalize() PaymentDetails {
	out := make(PaymentDetails, len(d))
	for k, v := range d {
		key := strings.ToLower(strings.TrimSpace(k))
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func (d PaymentDetails) validate(method enums.PaymentMethod) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": string(method)})
	}
	var missing []string
	for _, key := range requiredDetails[method] {
		if d[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment details are incomplete").
			WithDetails(map[string]any{"payment_method": string(method), "missing": missing})
	}
	for key, rule := range detailRules {
		value, ok := d[key]
		if !ok {
			continue
		}
		if err := detailValidator.Var(value, rule); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment details are invalid").
				WithDetails(map[string]any{"payment_method": string(method), "field": key})
		}
	}
	return nil
}

// Masked returns a copy safe to show in API responses.
func (d PaymentDetails) Masked() map[string]string {
	out := make(map[string]string, len(d))
	for key, value := range d {
		switch {
		case sensitiveDetails[key]:
			out[key] = maskTail(value)
		case key == "email":
			out[key] = maskEmail(value)
		default:
			out[key] = value
		}
	}
	return out
}

func (d PaymentDetails) keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sealDetails(sealer Sealer, details PaymentDetails) ([]byte, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return sealer.Seal(raw)
}

func openDetails(sealer Sealer, sealed []byte) (PaymentDetails, error) {
	if len(sealed) == 0 {
		return PaymentDetails{}, nil
	}
	raw, err := sealer.Open(sealed)
	if err != nil {
		return nil, err
	}
	var details PaymentDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func maskTail(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return maskTail(value)
	}
	local := []rune(value[:at])
	return string(local[0]) + strings.Repeat("*", len(local)-1) + value[at:]
}
