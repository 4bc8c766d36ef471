package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/querier"
)

// Store reads and writes employee pay profiles. Salary and rate columns are
// encrypted with the configured cipher.
type Store struct {
	DB     querier.Querier
	cipher Cipher
}

func NewStore(db querier.Querier, cipher Cipher) *Store {
	return &Store{DB: db, cipher: cipher}
}

func (s *Store) Get(ctx context.Context, tenantID, employeeID string) (payroll.EmployeeProfile, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return payroll.EmployeeProfile{}, payroll.ErrEmployeeNotFound
	}

	var profile payroll.EmployeeProfile
	var paymentType string
	var basicEnc, rateEnc []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, tenant_id::text, name, COALESCE(payment_type, ''),
           basic_salary_enc, hourly_rate_enc,
           working_days_per_period, working_hours_per_day, overtime_multiplier
    FROM employees
    WHERE tenant_id = $1 AND id = $2 AND status = 'active'
  `, tenantID, employeeID).Scan(
		&profile.ID, &profile.TenantID, &profile.Name, &paymentType,
		&basicEnc, &rateEnc,
		&profile.WorkingDaysPerPeriod, &profile.WorkingHoursPerDay, &profile.OvertimeMultiplier,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.EmployeeProfile{}, payroll.ErrEmployeeNotFound
	}
	if err != nil {
		return payroll.EmployeeProfile{}, err
	}

	pay, err := s.decodePay(payroll.PaymentType(paymentType), basicEnc, rateEnc)
	if err != nil {
		return payroll.EmployeeProfile{}, fmt.Errorf("employee %s: %w", employeeID, err)
	}
	profile.Pay = pay
	return profile, nil
}

// decodePay builds the payment configuration from the stored columns. A
// missing authoritative column yields a config with a nil amount, which the
// calculator reports as an invalid configuration.
func (s *Store) decodePay(paymentType payroll.PaymentType, basicEnc, rateEnc []byte) (payroll.PaymentConfig, error) {
	switch paymentType {
	case payroll.PaymentTypeFixed:
		basic, err := s.decryptAmount(basicEnc)
		if err != nil {
			return nil, err
		}
		return payroll.FixedPay{BasicSalary: basic}, nil
	case payroll.PaymentTypeHourly:
		rate, err := s.decryptAmount(rateEnc)
		if err != nil {
			return nil, err
		}
		return payroll.HourlyPay{HourlyRate: rate}, nil
	default:
		return nil, nil
	}
}

func (s *Store) decryptAmount(value []byte) (*decimal.Decimal, error) {
	if len(value) == 0 {
		return nil, nil
	}
	plain := string(value)
	if s.cipher != nil {
		decrypted, err := s.cipher.DecryptString(value)
		if err != nil {
			return nil, err
		}
		plain = decrypted
	}
	amount, err := decimal.NewFromString(plain)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func (s *Store) encryptAmount(amount decimal.Decimal) ([]byte, error) {
	if s.cipher == nil {
		return []byte(amount.String()), nil
	}
	return s.cipher.EncryptString(amount.String())
}

func (s *Store) ListActiveIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text
    FROM employees
    WHERE tenant_id = $1 AND status = 'active'
    ORDER BY name, id
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Create(ctx context.Context, tenantID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, name)
    VALUES ($1,$2)
    RETURNING id::text
  `, tenantID, name).Scan(&id)
	return id, err
}

// ValidatePayProfile checks the input against the profile invariants.
func ValidatePayProfile(input PayProfileInput) error {
	switch input.PaymentType {
	case payroll.PaymentTypeFixed, payroll.PaymentTypeHourly:
	default:
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidProfile, input.PaymentType)
	}
	if input.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidProfile)
	}
	if input.WorkingDaysPerPeriod != nil && *input.WorkingDaysPerPeriod < 1 {
		return fmt.Errorf("%w: working days per period must be at least 1", ErrInvalidProfile)
	}
	if input.WorkingHoursPerDay != nil && !input.WorkingHoursPerDay.IsPositive() {
		return fmt.Errorf("%w: working hours per day must be positive", ErrInvalidProfile)
	}
	if input.OvertimeMultiplier != nil && input.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: overtime multiplier must be at least 1", ErrInvalidProfile)
	}
	return nil
}

// SavePayProfile stores the payment configuration. Only the column that is
// authoritative for the payment type keeps a value.
func (s *Store) SavePayProfile(ctx context.Context, tenantID, employeeID string, input PayProfileInput) (payroll.EmployeeProfile, error) {
	if err := ValidatePayProfile(input); err != nil {
		return payroll.EmployeeProfile{}, err
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return payroll.EmployeeProfile{}, payroll.ErrEmployeeNotFound
	}

	sealed, err := s.encryptAmount(input.Amount)
	if err != nil {
		return payroll.EmployeeProfile{}, err
	}
	var basicEnc, rateEnc []byte
	if input.PaymentType == payroll.PaymentTypeFixed {
		basicEnc = sealed
	} else {
		rateEnc = sealed
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET payment_type = $3,
        basic_salary_enc = $4,
        hourly_rate_enc = $5,
        working_days_per_period = COALESCE($6, working_days_per_period),
        working_hours_per_day = COALESCE($7, working_hours_per_day),
        overtime_multiplier = COALESCE($8, overtime_multiplier),
        updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND status = 'active'
  `, tenantID, employeeID, string(input.PaymentType), basicEnc, rateEnc,
		input.WorkingDaysPerPeriod, nullableDecimal(input.WorkingHoursPerDay), nullableDecimal(input.OvertimeMultiplier))
	if err != nil {
		return payroll.EmployeeProfile{}, err
	}
	if tag.RowsAffected() == 0 {
		return payroll.EmployeeProfile{}, payroll.ErrEmployeeNotFound
	}
	return s.Get(ctx, tenantID, employeeID)
}

func nullableDecimal(value *decimal.Decimal) any {
	if value == nil {
		return nil
	}
	return *value
}
