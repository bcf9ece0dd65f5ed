// Package finance computes deterministic investment metrics for a single
// property given a rent estimate and financing assumptions. All functions
// are pure; the only state is the policy constants below.
package finance

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput flags non-positive rent or price, or financing
// assumptions outside their valid ranges.
var ErrInvalidInput = errors.New("invalid input")

// AnnualExpenseRate approximates taxes, insurance and maintenance as a
// flat 1.2% of the purchase price per year. This is a stated policy
// constant standing in for real operating-cost data, kept for result
// compatibility.
const AnnualExpenseRate = 0.012

const monthsPerYear = 12

// Assumptions are the financing inputs for an investment evaluation.
type Assumptions struct {
	MonthlyRent        float64 `json:"monthly_rent"`
	DownPaymentRate    float64 `json:"down_payment_rate"`    // fraction of price, (0,1]
	AnnualInterestRate float64 `json:"annual_interest_rate"` // e.g. 0.065 for 6.5%
	LoanTermYears      int     `json:"loan_term_years"`
}

// Metrics is the full evaluation result. Percentages are expressed as
// percent values (8.0 means 8%), matching the formulas in the field.
type Metrics struct {
	DownPayment     float64 `json:"down_payment"`
	LoanAmount      float64 `json:"loan_amount"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	MonthlyCashFlow float64 `json:"monthly_cash_flow"`
	CapRate         float64 `json:"cap_rate"`
	CashOnCash      float64 `json:"cash_on_cash"`
	BreakEvenRatio  float64 `json:"break_even_ratio"`
}

// Evaluate computes investment metrics for a property price under the
// given assumptions.
func Evaluate(price float64, a Assumptions) (Metrics, error) {
	if price <= 0 {
		return Metrics{}, fmt.Errorf("price %v: %w", price, ErrInvalidInput)
	}
	if a.MonthlyRent <= 0 {
		return Metrics{}, fmt.Errorf("rent %v: %w", a.MonthlyRent, ErrInvalidInput)
	}
	if a.DownPaymentRate <= 0 || a.DownPaymentRate > 1 {
		return Metrics{}, fmt.Errorf("down payment rate %v: %w", a.DownPaymentRate, ErrInvalidInput)
	}
	if a.LoanTermYears <= 0 {
		return Metrics{}, fmt.Errorf("loan term %d years: %w", a.LoanTermYears, ErrInvalidInput)
	}
	if a.AnnualInterestRate < 0 {
		return Metrics{}, fmt.Errorf("interest rate %v: %w", a.AnnualInterestRate, ErrInvalidInput)
	}

	downPayment := price * a.DownPaymentRate
	loan := price - downPayment
	payment := MonthlyPayment(loan, a.AnnualInterestRate, a.LoanTermYears)

	monthlyExpenses := price * AnnualExpenseRate / monthsPerYear
	annualRent := a.MonthlyRent * monthsPerYear

	m := Metrics{
		DownPayment:     downPayment,
		LoanAmount:      loan,
		MonthlyPayment:  payment,
		MonthlyExpenses: monthlyExpenses,
		MonthlyCashFlow: a.MonthlyRent - payment - monthlyExpenses,
		CapRate:         annualRent / price * 100,
		BreakEvenRatio:  (payment + monthlyExpenses) / a.MonthlyRent * 100,
	}
	if downPayment > 0 {
		annualExpenses := monthlyExpenses * monthsPerYear
		m.CashOnCash = (annualRent - payment*monthsPerYear - annualExpenses) / downPayment * 100
	}
	return m, nil
}

// MonthlyPayment is the standard fixed-rate amortization formula. A zero
// interest rate degenerates to straight-line repayment.
func MonthlyPayment(loan, annualRate float64, termYears int) float64 {
	n := float64(termYears * monthsPerYear)
	if loan <= 0 || n <= 0 {
		return 0
	}
	if annualRate == 0 {
		return loan / n
	}
	r := annualRate / monthsPerYear
	return loan * r * math.Pow(1+r, n) / (math.Pow(1+r, n) - 1)
}
