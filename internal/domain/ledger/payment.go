package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentMethod is how money was handed over. Closed set.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBank         PaymentMethod = "BANK"
	PaymentMethodMobileWallet PaymentMethod = "MOBILE_WALLET"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBank, PaymentMethodMobileWallet, PaymentMethodOnline, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentMethods lists every known method in display order
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodBank,
		PaymentMethodMobileWallet,
		PaymentMethodOnline,
		PaymentMethodOther,
	}
}

// ParsePaymentMethod normalizes free-form input ("mobile-wallet", "Cash")
// into a known method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !m.IsValid() {
		return "", shared.ValidationFailed("unknown payment method %q", s)
	}
	return m, nil
}

// PaymentTransaction is the receipt for one payment event.
// TotalAmount always equals the sum of its lines.
type PaymentTransaction struct {
	shared.TenantAggregateRoot
	ReceiptNumber   string
	StudentID       uuid.UUID
	TotalAmount     valueobject.Money
	CollectedBy     string
	TransactionDate time.Time
	PrintCount      int
	Lines           []StudentPayment
}

// NewPaymentTransaction opens an empty receipt
func NewPaymentTransaction(tenantID, studentID uuid.UUID, collectedBy, receiptPrefix string, at time.Time) *PaymentTransaction {
	root := shared.NewTenantAggregateRoot(tenantID)
	return &PaymentTransaction{
		TenantAggregateRoot: root,
		ReceiptNumber:       NewReceiptNumber(receiptPrefix, at, root.ID),
		StudentID:           studentID,
		TotalAmount:         valueobject.Zero(),
		CollectedBy:         collectedBy,
		TransactionDate:     at.UTC(),
	}
}

// NewReceiptNumber formats PREFIX-YYYYMMDD-XXXXXXXX from the receipt id
func NewReceiptNumber(prefix string, at time.Time, id uuid.UUID) string {
	if prefix == "" {
		prefix = "RCT"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// AddLine attaches a payment line and keeps TotalAmount in step
func (p *PaymentTransaction) AddLine(line StudentPayment) {
	line.PaymentTransactionID = p.ID
	p.Lines = append(p.Lines, line)
	p.TotalAmount = p.TotalAmount.Add(line.Amount)
}

// LinesTotal sums the attached lines
func (p *PaymentTransaction) LinesTotal() valueobject.Money {
	total := valueobject.Zero()
	for _, l := range p.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// RecordPrint counts one more printout of the receipt
func (p *PaymentTransaction) RecordPrint() {
	p.PrintCount++
	p.Touch(time.Now().UTC())
}

// StudentPayment is one line of a receipt, paying one due item
type StudentPayment struct {
	shared.TenantEntity
	PaymentTransactionID uuid.UUID
	StudentID            uuid.UUID
	DueItemID            uuid.UUID
	AccountID            uuid.UUID
	Amount               valueobject.Money
	Method               PaymentMethod
	Period               BillingPeriod
	Note                 string
}
