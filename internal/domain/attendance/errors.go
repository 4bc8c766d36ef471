package attendance

import "errors"

var (
	ErrPeriodLocked = errors.New("attendance period already paid out")
	ErrInvalidHours = errors.New("hours worked must be between 0 and 24")
	ErrInvalidDate  = errors.New("attendance date is required")
)
