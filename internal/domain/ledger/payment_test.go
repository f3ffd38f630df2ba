package ledger

import (
	"regexp"
	"testing"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentMethod
	}{
		{"CASH", PaymentMethodCash},
		{"cash", PaymentMethodCash},
		{"mobile-wallet", PaymentMethodMobileWallet},
		{" Online ", PaymentMethodOnline},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParsePaymentMethod("cheque")
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestNewReceiptNumber(t *testing.T) {
	id := uuid.MustParse("3f2a9c10-0000-4000-8000-000000000000")
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "RCT-20240305-3F2A9C10", NewReceiptNumber("", at, id))
	assert.Equal(t, "SCH-20240305-3F2A9C10", NewReceiptNumber("SCH", at, id))
}

func TestPaymentTransaction_Lines(t *testing.T) {
	tenantID, studentID := uuid.New(), uuid.New()
	receipt := NewPaymentTransaction(tenantID, studentID, "clerk", "RCT", time.Now())
	assert.Regexp(t, regexp.MustCompile(`^RCT-\d{8}-[0-9A-F]{8}$`), receipt.ReceiptNumber)

	receipt.AddLine(StudentPayment{Amount: valueobject.MustMoney("300"), Method: PaymentMethodCash})
	receipt.AddLine(StudentPayment{Amount: valueobject.MustMoney("200"), Method: PaymentMethodBank})

	assert.Equal(t, "500.00", receipt.TotalAmount.String())
	assert.True(t, receipt.TotalAmount.Equals(receipt.LinesTotal()))
	for _, l := range receipt.Lines {
		assert.Equal(t, receipt.ID, l.PaymentTransactionID)
	}

	receipt.RecordPrint()
	receipt.RecordPrint()
	assert.Equal(t, 2, receipt.PrintCount)
}
