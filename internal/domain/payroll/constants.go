package payroll

import "github.com/shopspring/decimal"

type PaymentType string

const (
	PaymentTypeFixed  PaymentType = "fixed"
	PaymentTypeHourly PaymentType = "hourly"
)

type Category string

const (
	CategorySalary  Category = "salary"
	CategoryAdvance Category = "advance"
)

type Status string

const (
	StatusComputed Status = "computed"
	StatusPaid     Status = "paid"
)

type NetState string

const (
	NetDue     NetState = "due"
	NetSettled NetState = "settled"
	NetExcess  NetState = "excess"
)

const (
	PaymentModeCash = "cash"
	PaymentModeBank = "bank"

	DefaultWorkingDaysPerPeriod = 26

	// moneyPlaces is the minor-unit precision of the single payroll currency.
	moneyPlaces = 2
)

var (
	DefaultWorkingHoursPerDay = decimal.NewFromInt(8)
	DefaultOvertimeMultiplier = decimal.RequireFromString("1.5")
)
