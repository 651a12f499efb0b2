package withdrawals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/security"
)

func testSealer(t *testing.T) *security.Sealer {
	t.Helper()
	sealer, err := security.NewSealer(config.SealingConfig{
		Secret:           "withdrawal-secret",
		Salt:             "test-salt",
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
	})
	require.NoError(t, err)
	return sealer
}

func TestPaymentDetailsValidate(t *testing.T) {
	cases := []struct {
		name    string
		method  enums.PaymentMethod
		details PaymentDetails
		wantErr bool
	}{
		{"bank complete", enums.PaymentMethodBankTransfer, PaymentDetails{"account_name": "Ada", "account_number": "0012345678", "bank_name": "First"}, false},
		{"bank missing number", enums.PaymentMethodBankTransfer, PaymentDetails{"account_name": "Ada", "bank_name": "First"}, true},
		{"paypal", enums.PaymentMethodPayPal, PaymentDetails{"email": "ada@example.com"}, false},
		{"paypal bad email", enums.PaymentMethodPayPal, PaymentDetails{"email": "nope"}, true},
		{"paypal bare at sign", enums.PaymentMethodPayPal, PaymentDetails{"email": "@"}, true},
		{"paypal email with spaces", enums.PaymentMethodPayPal, PaymentDetails{"email": "not an email @ all"}, true},
		{"bank with malformed email", enums.PaymentMethodBankTransfer, PaymentDetails{"account_name": "Ada", "account_number": "0012345678", "bank_name": "First", "email": "ada@"}, true},
		{"mobile money", enums.PaymentMethodMobileMoney, PaymentDetails{"phone_number": "+254700000001", "provider": "mpesa"}, false},
		{"unknown method", enums.PaymentMethod("cheque"), PaymentDetails{"email": "ada@example.com"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.details.normalize().validate(tc.method)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestPaymentDetailsNormalizeDropsBlanks(t *testing.T) {
	got := PaymentDetails{" Email ": " ada@example.com ", "note": "   ", "": "x"}.normalize()
	assert.Equal(t, PaymentDetails{"email": "ada@example.com"}, got)
}

func TestPaymentDetailsMasked(t *testing.T) {
	masked := PaymentDetails{
		"account_name":   "Ada Lovelace",
		"account_number": "0012345678",
		"email":          "ada@example.com",
		"phone_number":   "123",
	}.Masked()

	assert.Equal(t, "Ada Lovelace", masked["account_name"])
	assert.Equal(t, "******5678", masked["account_number"])
	assert.Equal(t, "a**@example.com", masked["email"])
	assert.Equal(t, "***", masked["phone_number"])
}

func TestSealedDetailsRoundTrip(t *testing.T) {
	sealer := testSealer(t)
	details := PaymentDetails{"email": "ada@example.com"}

	sealed, err := sealDetails(sealer, details)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "ada@example.com")

	opened, err := openDetails(sealer, sealed)
	require.NoError(t, err)
	assert.Equal(t, details, opened)

	empty, err := openDetails(sealer, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
