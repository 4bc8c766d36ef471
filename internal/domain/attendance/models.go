package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarkInput sets one employee day. Hours on an absent day are stored as 0.
type MarkInput struct {
	EmployeeID  string
	Date        time.Time
	IsPresent   bool
	HoursWorked decimal.Decimal
}

var maxHoursPerDay = decimal.NewFromInt(24)
