package employee

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/crypto"
	"backoffice/internal/platform/db/dbtest"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newCipher(t *testing.T) *crypto.Service {
	t.Helper()
	svc, err := crypto.New(testKey)
	require.NoError(t, err)
	return svc
}

func TestDecodePay(t *testing.T) {
	store := NewStore(nil, newCipher(t))
	sealed, err := store.encryptAmount(decimal.RequireFromString("26000.50"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "26000")

	pay, err := store.decodePay(payroll.PaymentTypeFixed, sealed, nil)
	require.NoError(t, err)
	fixed, ok := pay.(payroll.FixedPay)
	require.True(t, ok)
	require.NotNil(t, fixed.BasicSalary)
	assert.Equal(t, "26000.5", fixed.BasicSalary.String())

	pay, err = store.decodePay(payroll.PaymentTypeHourly, sealed, nil)
	require.NoError(t, err)
	assert.Nil(t, pay.(payroll.HourlyPay).HourlyRate, "the hourly column is authoritative for hourly pay")

	pay, err = store.decodePay("", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, pay)

	_, err = store.decodePay(payroll.PaymentTypeFixed, []byte("garbage"), nil)
	assert.Error(t, err)
}

func TestDecodePayWithoutCipher(t *testing.T) {
	store := NewStore(nil, nil)
	sealed, err := store.encryptAmount(decimal.NewFromInt(100))
	require.NoError(t, err)

	pay, err := store.decodePay(payroll.PaymentTypeHourly, nil, sealed)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(*pay.(payroll.HourlyPay).HourlyRate))
}

func TestValidatePayProfile(t *testing.T) {
	days := 0
	hours := decimal.Zero
	low := decimal.RequireFromString("0.9")

	cases := []struct {
		name  string
		input PayProfileInput
		ok    bool
	}{
		{name: "fixed", input: PayProfileInput{PaymentType: payroll.PaymentTypeFixed, Amount: decimal.NewFromInt(1000)}, ok: true},
		{name: "hourly", input: PayProfileInput{PaymentType: payroll.PaymentTypeHourly, Amount: decimal.NewFromInt(10)}, ok: true},
		{name: "unknown type", input: PayProfileInput{PaymentType: "weekly", Amount: decimal.NewFromInt(10)}},
		{name: "negative amount", input: PayProfileInput{PaymentType: payroll.PaymentTypeHourly, Amount: decimal.NewFromInt(-1)}},
		{name: "zero days", input: PayProfileInput{PaymentType: payroll.PaymentTypeFixed, Amount: decimal.NewFromInt(1), WorkingDaysPerPeriod: &days}},
		{name: "zero hours", input: PayProfileInput{PaymentType: payroll.PaymentTypeFixed, Amount: decimal.NewFromInt(1), WorkingHoursPerDay: &hours}},
		{name: "low multiplier", input: PayProfileInput{PaymentType: payroll.PaymentTypeFixed, Amount: decimal.NewFromInt(1), OvertimeMultiplier: &low}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayProfile(tc.input)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestStoreIntegration(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	tenantID := dbtest.Tenant(t, pool)
	store := NewStore(pool, newCipher(t))

	id, err := store.Create(ctx, tenantID, "Katherine Johnson")
	require.NoError(t, err)

	profile, err := store.Get(ctx, tenantID, id)
	require.NoError(t, err)
	assert.Nil(t, profile.Pay)
	assert.Equal(t, payroll.DefaultWorkingDaysPerPeriod, profile.WorkingDaysPerPeriod)
	assert.True(t, payroll.DefaultOvertimeMultiplier.Equal(profile.OvertimeMultiplier))

	days := 22
	profile, err = store.SavePayProfile(ctx, tenantID, id, PayProfileInput{
		PaymentType:          payroll.PaymentTypeFixed,
		Amount:               decimal.NewFromInt(22000),
		WorkingDaysPerPeriod: &days,
	})
	require.NoError(t, err)
	fixed, ok := profile.Pay.(payroll.FixedPay)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(22000).Equal(*fixed.BasicSalary))
	assert.Equal(t, 22, profile.WorkingDaysPerPeriod)

	var raw []byte
	require.NoError(t, pool.QueryRow(ctx, "SELECT basic_salary_enc FROM employees WHERE id = $1", id).Scan(&raw))
	assert.NotContains(t, string(raw), "22000")

	profile, err = store.SavePayProfile(ctx, tenantID, id, PayProfileInput{PaymentType: payroll.PaymentTypeHourly, Amount: decimal.NewFromInt(95)})
	require.NoError(t, err)
	_, ok = profile.Pay.(payroll.HourlyPay)
	assert.True(t, ok)
	assert.Equal(t, 22, profile.WorkingDaysPerPeriod, "omitted schedule keeps stored value")

	ids, err := store.ListActiveIDs(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	_, err = store.Get(ctx, tenantID, uuid.NewString())
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	_, err = store.Get(ctx, tenantID, "not-a-uuid")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	_, err = store.Get(ctx, dbtest.Tenant(t, pool), id)
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}
