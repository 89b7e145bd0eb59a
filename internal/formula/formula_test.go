package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCashbook1Totals(t *testing.T) {
	total := Cashbook1Total(d("500"), d("300"), d("50"))
	assert.True(t, total.Equal(d("850")), "collection total = %s", total)

	cbTotal1 := Cashbook1CBTotal(d("1000"), d("500"), d("300"), d("50"), d("0"), d("0"))
	assert.True(t, cbTotal1.Equal(d("1850")), "cb total 1 = %s", cbTotal1)
}

func TestCashbook1CBTotalIncludesHeadOfficeInflows(t *testing.T) {
	cbTotal1 := Cashbook1CBTotal(d("100"), d("10"), d("20"), d("5"), d("1000"), d("250"))
	assert.True(t, cbTotal1.Equal(d("1385")))
}

func TestCashbook2CBTotal(t *testing.T) {
	cbTotal2 := Cashbook2CBTotal(d("400"), d("100"), d("200"), d("50"))
	assert.True(t, cbTotal2.Equal(d("750")))
}

func TestOnlineCIH(t *testing.T) {
	assert.True(t, OnlineCIH(d("1850"), d("750")).Equal(d("1100")))

	// Deficit days are negative, never clamped.
	assert.True(t, OnlineCIH(d("100"), d("250")).Equal(d("-150")))
}

func TestBankStatementTotalsAndTransfer(t *testing.T) {
	bs1 := BankStatement1Total(d("0"), d("0"), d("0"), d("200"), d("50"))
	assert.True(t, bs1.Equal(d("250")))

	bs2 := BankStatement2Total(d("0"), d("0"), d("100"))
	assert.True(t, bs2.Equal(d("100")))

	assert.True(t, TransferToSenateOffice(bs1, bs2).Equal(d("150")))
	assert.True(t, TransferToSenateOffice(d("100"), d("400")).Equal(d("-300")))
}

func TestRegisterRollForwards(t *testing.T) {
	assert.True(t, DisbursementRoll(d("10000"), d("400")).Equal(d("10400")))
	assert.True(t, CurrentSavings(d("5000"), d("500"), d("100")).Equal(d("5400")))
	assert.True(t, CurrentLoanBalance(d("20000"), d("450"), d("300")).Equal(d("20150")))
}

func TestComplianceOwingLedger(t *testing.T) {
	owing := ComplianceOwing(d("1000"), d("300"), d("200"))
	assert.True(t, owing.Equal(d("1100")))

	// Rollover: yesterday's owing feeds tomorrow's previous.
	next := ComplianceOwing(owing, d("0"), d("1100"))
	assert.True(t, next.Equal(d("0")))
}

func TestAveragePerClientGuardsZeroCount(t *testing.T) {
	assert.True(t, AveragePerClient(d("5000"), 0).Equal(decimal.Zero))
	assert.True(t, AveragePerClient(d("5000"), -3).Equal(decimal.Zero))
	assert.True(t, AveragePerClient(d("5000"), 4).Equal(d("1250")))
}

func TestSummationOrderInsensitive(t *testing.T) {
	a := Cashbook1CBTotal(d("0.1"), d("0.2"), d("0.3"), d("0.4"), d("0.5"), d("0.6"))
	b := Cashbook1CBTotal(d("0.6"), d("0.5"), d("0.4"), d("0.3"), d("0.2"), d("0.1"))
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(d("2.1")))
}
