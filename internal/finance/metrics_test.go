package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Regression(t *testing.T) {
	// $300k purchase, $2k/mo rent, 20% down, 6.5% over 30 years. The
	// payment figure is the textbook amortization result for a $240k loan.
	m, err := Evaluate(300000, Assumptions{
		MonthlyRent:        2000,
		DownPaymentRate:    0.20,
		AnnualInterestRate: 0.065,
		LoanTermYears:      30,
	})
	require.NoError(t, err)

	assert.Equal(t, 60000.0, m.DownPayment)
	assert.Equal(t, 240000.0, m.LoanAmount)
	assert.InDelta(t, 1516.96, m.MonthlyPayment, 0.01)
	assert.Equal(t, 300.0, m.MonthlyExpenses) // 1.2%/yr of 300k, monthly
	assert.InDelta(t, 183.04, m.MonthlyCashFlow, 0.01)
	assert.InDelta(t, 8.0, m.CapRate, 1e-9)
	assert.InDelta(t, 3.66, m.CashOnCash, 0.01)
	assert.InDelta(t, 90.85, m.BreakEvenRatio, 0.01)
}

func TestEvaluate_ZeroInterest(t *testing.T) {
	m, err := Evaluate(120000, Assumptions{
		MonthlyRent:        1000,
		DownPaymentRate:    0.5,
		AnnualInterestRate: 0,
		LoanTermYears:      10,
	})
	require.NoError(t, err)

	// Straight-line repayment: 60000 over 120 months.
	assert.Equal(t, 500.0, m.MonthlyPayment)
}

func TestEvaluate_FullCashPurchase(t *testing.T) {
	m, err := Evaluate(200000, Assumptions{
		MonthlyRent:        1500,
		DownPaymentRate:    1.0,
		AnnualInterestRate: 0.065,
		LoanTermYears:      30,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.MonthlyPayment)
	assert.Equal(t, 0.0, m.LoanAmount)
	assert.InDelta(t, 1500.0-200.0, m.MonthlyCashFlow, 1e-9)
}

func TestEvaluate_InvalidInputs(t *testing.T) {
	valid := Assumptions{
		MonthlyRent:        2000,
		DownPaymentRate:    0.2,
		AnnualInterestRate: 0.065,
		LoanTermYears:      30,
	}

	_, err := Evaluate(0, valid)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Evaluate(-100, valid)
	assert.ErrorIs(t, err, ErrInvalidInput)

	broken := valid
	broken.MonthlyRent = 0
	_, err = Evaluate(300000, broken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	broken = valid
	broken.DownPaymentRate = 0
	_, err = Evaluate(300000, broken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	broken = valid
	broken.DownPaymentRate = 1.5
	_, err = Evaluate(300000, broken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	broken = valid
	broken.LoanTermYears = 0
	_, err = Evaluate(300000, broken)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMonthlyPayment(t *testing.T) {
	// Zero loan (all-cash) pays nothing.
	assert.Equal(t, 0.0, MonthlyPayment(0, 0.065, 30))

	// Higher rates cost more per month on the same loan.
	low := MonthlyPayment(240000, 0.03, 30)
	high := MonthlyPayment(240000, 0.08, 30)
	assert.Less(t, low, high)
}
