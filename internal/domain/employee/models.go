package employee

import (
	"github.com/shopspring/decimal"

	"backoffice/internal/domain/payroll"
)

// PayProfileInput replaces an employee's payment configuration. Nil
// schedule fields keep the stored values.
type PayProfileInput struct {
	PaymentType          payroll.PaymentType
	Amount               decimal.Decimal
	WorkingDaysPerPeriod *int
	WorkingHoursPerDay   *decimal.Decimal
	OvertimeMultiplier   *decimal.Decimal
}

type Cipher interface {
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}
