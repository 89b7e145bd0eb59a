// Package formula holds the arithmetic behind every derived figure in the
// daily operations chain. All functions are pure: they take the named inputs
// of one derivation and return the result, with no I/O and no rounding.
// Callers are responsible for validating inputs before invoking; negative
// results are meaningful here (a negative Online CIH or Transfer-to-Senate
// signals a deficit) and are never clamped.
package formula

import "github.com/shopspring/decimal"

// Cashbook1Total is the branch collection total: savings + loan collection + charges.
func Cashbook1Total(savings, loanCollection, charges decimal.Decimal) decimal.Decimal {
	return savings.Add(loanCollection).Add(charges)
}

// Cashbook1CBTotal is CB Total 1: the collection total plus the carried-forward
// previous cash-in-hand and the Head Office inflows.
func Cashbook1CBTotal(pcih, savings, loanCollection, charges, frmHO, frmBR decimal.Decimal) decimal.Decimal {
	return pcih.Add(savings).Add(loanCollection).Add(charges).Add(frmHO).Add(frmBR)
}

// Cashbook2CBTotal is CB Total 2: disbursement + savings withdrawal + domi bank + POS transfer.
func Cashbook2CBTotal(disAmt, savWith, domiBank, posT decimal.Decimal) decimal.Decimal {
	return disAmt.Add(savWith).Add(domiBank).Add(posT)
}

// OnlineCIH is Online Cash-in-Hand: CB Total 1 minus CB Total 2.
func OnlineCIH(cbTotal1, cbTotal2 decimal.Decimal) decimal.Decimal {
	return cbTotal1.Sub(cbTotal2)
}

// BankStatement1Total aggregates the inflow side of the bank statement.
func BankStatement1Total(opening, recHO, recBO, domi, pa decimal.Decimal) decimal.Decimal {
	return opening.Add(recHO).Add(recBO).Add(domi).Add(pa)
}

// BankStatement2Total aggregates the outflow side of the bank statement.
func BankStatement2Total(withd, tbo, exAmt decimal.Decimal) decimal.Decimal {
	return withd.Add(tbo).Add(exAmt)
}

// TransferToSenateOffice is BS1 total minus BS2 total.
func TransferToSenateOffice(bs1Total, bs2Total decimal.Decimal) decimal.Decimal {
	return bs1Total.Sub(bs2Total)
}

// DisbursementRoll rolls the period disbursement forward by today's figure.
func DisbursementRoll(previous, daily decimal.Decimal) decimal.Decimal {
	return previous.Add(daily)
}

// CurrentSavings rolls the savings register forward: previous + new savings - withdrawal.
func CurrentSavings(previousTotal, newSavings, withdrawal decimal.Decimal) decimal.Decimal {
	return previousTotal.Add(newSavings).Sub(withdrawal)
}

// CurrentLoanBalance rolls the loan register forward:
// previous + disbursement with interest - collection.
func CurrentLoanBalance(previousTotal, disbursementWithInterest, collection decimal.Decimal) decimal.Decimal {
	return previousTotal.Add(disbursementWithInterest).Sub(collection)
}

// ComplianceOwing is the running EFCC/DSA ledger balance:
// (previous owing + today's remittance) - amount remitting now.
func ComplianceOwing(previousOwing, todayRemittance, amtRemittingNow decimal.Decimal) decimal.Decimal {
	return previousOwing.Add(todayRemittance).Sub(amtRemittingNow)
}

// AveragePerClient divides the predicted amount by the predicted client count.
// A zero or negative count yields zero rather than a division error.
func AveragePerClient(predictionAmount decimal.Decimal, predictionNo int) decimal.Decimal {
	if predictionNo <= 0 {
		return decimal.Zero
	}
	return predictionAmount.Div(decimal.NewFromInt(int64(predictionNo)))
}
