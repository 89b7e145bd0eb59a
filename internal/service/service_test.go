package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dominionseedstars/backend/internal/cache"
	"dominionseedstars/backend/internal/domain"
	"dominionseedstars/backend/internal/store"
	"dominionseedstars/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopSummaryCache{}, 5*time.Second, "NGN", nil)
}

func branchCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "garki-teller",
		Role:     domain.RoleBranch,
		BranchID: "garki",
	})
}

func hoCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "headoffice",
		Role:     domain.RoleHeadOffice,
	})
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestSubmitCashbook1RequiresActor(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook1(context.Background(), domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("500"),
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden without actor, got %v", err)
	}
}

func TestSubmitCashbook1BranchCannotWriteOtherBranch(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook1(branchCtx(), domain.Cashbook1SubmitRequest{
		BranchID: "wuse",
		Date:     "2026-08-27",
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for cross-branch write, got %v", err)
	}
}

func TestSubmitCashbook1DerivesTotals(t *testing.T) {
	svc := newTestService()

	rec, err := svc.SubmitCashbook1(branchCtx(), domain.Cashbook1SubmitRequest{
		Date:           "2026-08-27",
		Savings:        dec("500"),
		LoanCollection: dec("300"),
		Charges:        dec("50"),
	})
	if err != nil {
		t.Fatalf("submit cashbook1 failed: %v", err)
	}
	if rec.Cashbook1 == nil {
		t.Fatalf("expected cashbook1 sub-document")
	}
	if !rec.Cashbook1.Total.Equal(dec("850")) {
		t.Fatalf("expected total 850, got %s", rec.Cashbook1.Total)
	}
	// No prior day, so PCIH opens at zero and CB Total 1 equals the collections.
	if !rec.Cashbook1.PCIH.Equal(decimal.Zero) {
		t.Fatalf("expected zero PCIH on first day, got %s", rec.Cashbook1.PCIH)
	}
	if !rec.Cashbook1.CBTotal1.Equal(dec("850")) {
		t.Fatalf("expected cb total 1 850, got %s", rec.Cashbook1.CBTotal1)
	}
}

func TestSubmitCashbook1CarriesForwardPreviousOnlineCIH(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:           "2026-08-26",
		Savings:        dec("1000"),
		LoanCollection: dec("500"),
		Charges:        dec("350"),
	})
	if err != nil {
		t.Fatalf("day one cashbook1 failed: %v", err)
	}
	_, err = svc.SubmitCashbook2(ctx, domain.Cashbook2SubmitRequest{
		Date:               "2026-08-26",
		DisbursementNo:     2,
		DisbursementAmount: dec("400"),
		SavingsWithdrawal:  dec("100"),
		DomiBank:           dec("200"),
		POSTransfer:        dec("50"),
	})
	if err != nil {
		t.Fatalf("day one cashbook2 failed: %v", err)
	}

	// Day one: CB1 = 1850, CB2 = 750, Online CIH = 1100.
	rec, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date: "2026-08-27",
		// Client-sent PCIH must be ignored.
		PCIH:    dec("999999"),
		Savings: dec("10"),
	})
	if err != nil {
		t.Fatalf("day two cashbook1 failed: %v", err)
	}
	if !rec.Cashbook1.PCIH.Equal(dec("1100")) {
		t.Fatalf("expected PCIH 1100 carried from prior day, got %s", rec.Cashbook1.PCIH)
	}
}

func TestSubmitCashbook1RoleFieldGroupsArePreserved(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook1(branchCtx(), domain.Cashbook1SubmitRequest{
		Date:           "2026-08-27",
		Savings:        dec("500"),
		LoanCollection: dec("300"),
		Charges:        dec("50"),
	})
	if err != nil {
		t.Fatalf("branch submit failed: %v", err)
	}

	rec, err := svc.SubmitCashbook1(hoCtx(), domain.Cashbook1SubmitRequest{
		BranchID: "garki",
		Date:     "2026-08-27",
		FromHO:   dec("2000"),
		// HO cannot overwrite the branch collections.
		Savings: dec("1"),
	})
	if err != nil {
		t.Fatalf("ho submit failed: %v", err)
	}
	if !rec.Cashbook1.Savings.Equal(dec("500")) {
		t.Fatalf("expected branch savings preserved at 500, got %s", rec.Cashbook1.Savings)
	}
	if !rec.Cashbook1.FromHO.Equal(dec("2000")) {
		t.Fatalf("expected frm_ho 2000, got %s", rec.Cashbook1.FromHO)
	}
	if !rec.Cashbook1.CBTotal1.Equal(dec("2850")) {
		t.Fatalf("expected cb total 1 2850, got %s", rec.Cashbook1.CBTotal1)
	}
}

func TestSubmitCashbook2RejectsHeadOffice(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook2(hoCtx(), domain.Cashbook2SubmitRequest{
		BranchID: "garki",
		Date:     "2026-08-27",
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for head office cashbook2, got %v", err)
	}
}

func TestSubmitCashbook2RequiresExistingRecord(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook2(branchCtx(), domain.Cashbook2SubmitRequest{
		Date:               "2026-08-27",
		DisbursementAmount: dec("100"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found before cashbook1, got %v", err)
	}
}

func TestBankStatementSnapshotAndStaleness(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(hoCtx(), domain.Cashbook1SubmitRequest{
		BranchID:   "garki",
		Date:       "2026-08-27",
		FromHO:     dec("1000"),
		FromBranch: dec("250"),
	})
	if err != nil {
		t.Fatalf("ho cashbook1 failed: %v", err)
	}
	_, err = svc.SubmitCashbook2(ctx, domain.Cashbook2SubmitRequest{
		Date:        "2026-08-27",
		DomiBank:    dec("200"),
		POSTransfer: dec("50"),
	})
	if err != nil {
		t.Fatalf("cashbook2 failed: %v", err)
	}

	rec, err := svc.SubmitBankStatement1(ctx, domain.BankStatement1SubmitRequest{
		Date:    "2026-08-27",
		Opening: dec("100"),
	})
	if err != nil {
		t.Fatalf("bank statement1 failed: %v", err)
	}
	bs := rec.BankStatement1
	if !bs.ReceivedHO.Equal(dec("1000")) || !bs.ReceivedBranchOffice.Equal(dec("250")) {
		t.Fatalf("expected snapshot of cashbook1 inflows, got %s/%s", bs.ReceivedHO, bs.ReceivedBranchOffice)
	}
	if !bs.BS1Total.Equal(dec("1600")) {
		t.Fatalf("expected bs1 total 1600, got %s", bs.BS1Total)
	}

	summary, err := svc.GetDailySummary(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.BankStatement1Stale {
		t.Fatalf("statement should be fresh right after snapshot")
	}

	// A cashbook edit after the snapshot makes the statement stale.
	_, err = svc.SubmitCashbook2(ctx, domain.Cashbook2SubmitRequest{
		Date:     "2026-08-27",
		DomiBank: dec("999"),
	})
	if err != nil {
		t.Fatalf("cashbook2 edit failed: %v", err)
	}
	summary, err = svc.GetDailySummary(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("summary after edit failed: %v", err)
	}
	if !summary.BankStatement1Stale {
		t.Fatalf("expected stale flag after cashbook edit")
	}
}

func TestBankStatement2RoleFieldGroups(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(hoCtx(), domain.Cashbook1SubmitRequest{
		BranchID: "garki",
		Date:     "2026-08-27",
		FromHO:   dec("500"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}

	_, err = svc.SubmitBankStatement2(ctx, domain.BankStatement2SubmitRequest{
		Date:           "2026-08-27",
		ExpenseAmount:  dec("120"),
		ExpensePurpose: "generator fuel",
		// Branch cannot set the transfer fields.
		TBO: dec("9999"),
	})
	if err != nil {
		t.Fatalf("branch bs2 failed: %v", err)
	}

	rec, err := svc.SubmitBankStatement2(hoCtx(), domain.BankStatement2SubmitRequest{
		BranchID:    "garki",
		Date:        "2026-08-27",
		TBO:         dec("300"),
		TBOToBranch: "wuse",
	})
	if err != nil {
		t.Fatalf("ho bs2 failed: %v", err)
	}
	bs := rec.BankStatement2
	if !bs.ExpenseAmount.Equal(dec("120")) || bs.ExpensePurpose != "generator fuel" {
		t.Fatalf("expected branch expense fields preserved, got %s/%q", bs.ExpenseAmount, bs.ExpensePurpose)
	}
	if !bs.TBO.Equal(dec("300")) || bs.TBOToBranch != "wuse" {
		t.Fatalf("expected ho transfer fields, got %s/%q", bs.TBO, bs.TBOToBranch)
	}
	// Withdrawal snapshots cashbook1 frm_ho: 500 + 300 + 120.
	if !bs.BS2Total.Equal(dec("920")) {
		t.Fatalf("expected bs2 total 920, got %s", bs.BS2Total)
	}
}

func TestCompletedDayRejectsFurtherWrites(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("100"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}
	if _, err := svc.MarkDayCompleted(ctx, "", "2026-08-27"); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	_, err = svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("200"),
	})
	if !errors.Is(err, store.ErrImmutable) {
		t.Fatalf("expected immutable after completion, got %v", err)
	}
	_, err = svc.MarkDayCompleted(ctx, "", "2026-08-27")
	if !errors.Is(err, store.ErrImmutable) {
		t.Fatalf("expected immutable on double completion, got %v", err)
	}
}

func TestRegistersRollBaselinesForward(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	for _, req := range []domain.RegisterBaselineRequest{
		{BranchID: "garki", Type: domain.RegisterLoan, Period: "2026-08", Amount: dec("20000")},
		{BranchID: "garki", Type: domain.RegisterSavings, Period: "2026-08", Amount: dec("5000")},
		{BranchID: "garki", Type: domain.RegisterDisbursement, Period: "2026-08", Amount: dec("10000")},
	} {
		if err := svc.SetRegisterBaseline(hoCtx(), req); err != nil {
			t.Fatalf("set baseline %s failed: %v", req.Type, err)
		}
	}

	_, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:           "2026-08-27",
		Savings:        dec("500"),
		LoanCollection: dec("300"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}
	_, err = svc.SubmitCashbook2(ctx, domain.Cashbook2SubmitRequest{
		Date:                     "2026-08-27",
		DisbursementAmount:       dec("400"),
		DisbursementWithInterest: dec("450"),
		SavingsWithdrawal:        dec("100"),
	})
	if err != nil {
		t.Fatalf("cashbook2 failed: %v", err)
	}

	registers, err := svc.GetRegisters(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("registers failed: %v", err)
	}
	if !registers.LoanRegister.CurrentLoanBalance.Equal(dec("20150")) {
		t.Fatalf("expected loan balance 20150, got %s", registers.LoanRegister.CurrentLoanBalance)
	}
	if !registers.SavingsRegister.CurrentSavings.Equal(dec("5400")) {
		t.Fatalf("expected savings 5400, got %s", registers.SavingsRegister.CurrentSavings)
	}
	if !registers.DisbursementRoll.Total.Equal(dec("10400")) {
		t.Fatalf("expected disbursement roll 10400, got %s", registers.DisbursementRoll.Total)
	}
}

func TestSetRegisterBaselineBranchForbidden(t *testing.T) {
	svc := newTestService()

	err := svc.SetRegisterBaseline(branchCtx(), domain.RegisterBaselineRequest{
		BranchID: "garki",
		Type:     domain.RegisterLoan,
		Period:   "2026-08",
		Amount:   dec("100"),
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for branch baseline, got %v", err)
	}
}

func TestRemittanceChainAndImmutability(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	first, err := svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:               "2026-08-26",
		TodayRemittance:    dec("300"),
		AmountRemittingNow: dec("200"),
	})
	if err != nil {
		t.Fatalf("create remittance failed: %v", err)
	}
	if !first.CurrentAmountOwing.Equal(dec("100")) {
		t.Fatalf("expected owing 100, got %s", first.CurrentAmountOwing)
	}
	if first.Status != domain.RemittanceStatusDraft {
		t.Fatalf("expected draft status, got %s", first.Status)
	}

	if _, err := svc.SubmitRemittance(ctx, "", "2026-08-26"); err != nil {
		t.Fatalf("submit remittance failed: %v", err)
	}

	_, err = svc.UpdateRemittance(ctx, "", "2026-08-26", domain.RemittanceUpdateRequest{
		TodayRemittance: decPtr("999"),
	})
	if !errors.Is(err, store.ErrImmutable) {
		t.Fatalf("expected immutable after submit, got %v", err)
	}

	// The next record rolls the closing balance forward and rejects an
	// explicit previous owing that breaks the chain.
	_, err = svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:                "2026-08-27",
		PreviousAmountOwing: decPtr("55"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation for chain-breaking previous owing, got %v", err)
	}

	second, err := svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:               "2026-08-27",
		TodayRemittance:    dec("50"),
		AmountRemittingNow: dec("150"),
	})
	if err != nil {
		t.Fatalf("second remittance failed: %v", err)
	}
	if !second.PreviousAmountOwing.Equal(dec("100")) {
		t.Fatalf("expected rolled-forward previous owing 100, got %s", second.PreviousAmountOwing)
	}
	if !second.CurrentAmountOwing.Equal(dec("0")) {
		t.Fatalf("expected owing 0, got %s", second.CurrentAmountOwing)
	}
}

func TestPredictionIsBranchOnlyAndServerDated(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitPrediction(hoCtx(), domain.PredictionSubmitRequest{
		BranchID:     "garki",
		PredictionNo: 10,
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for head office prediction, got %v", err)
	}

	saved, err := svc.SubmitPrediction(branchCtx(), domain.PredictionSubmitRequest{
		PredictionNo:     4,
		PredictionAmount: dec("5000"),
	})
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(domain.DateLayout)
	if saved.Date != tomorrow {
		t.Fatalf("expected server-set date %s, got %s", tomorrow, saved.Date)
	}

	view, err := svc.GetPrediction(branchCtx(), "", tomorrow)
	if err != nil {
		t.Fatalf("get prediction failed: %v", err)
	}
	if !view.AvgPerClient.Equal(dec("1250")) {
		t.Fatalf("expected avg per client 1250, got %s", view.AvgPerClient)
	}
}

func TestDashboardRequiresHeadOffice(t *testing.T) {
	svc := newTestService()

	_, err := svc.Dashboard(branchCtx(), "2026-08-27")
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for branch dashboard, got %v", err)
	}

	_, err = svc.SubmitCashbook1(branchCtx(), domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("100"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}

	dashboard, err := svc.Dashboard(hoCtx(), "2026-08-27")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if len(dashboard.Summaries) != 1 {
		t.Fatalf("expected one branch summary, got %d", len(dashboard.Summaries))
	}
	if dashboard.Summaries[0].BranchID != "garki" {
		t.Fatalf("expected garki summary, got %s", dashboard.Summaries[0].BranchID)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	svc := newTestService()

	_, err := svc.SubmitCashbook1(branchCtx(), domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("-5"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation for negative savings, got %v", err)
	}
}

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// mapSummaryCache is a real (non-noop) cache so tests can observe what a
// cache hit serves.
type mapSummaryCache struct {
	entries map[string]*domain.DailySummary
	hits    int
}

func newMapSummaryCache() *mapSummaryCache {
	return &mapSummaryCache{entries: make(map[string]*domain.DailySummary)}
}

func (c *mapSummaryCache) Get(_ context.Context, key string) (*domain.DailySummary, bool, error) {
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	copied := *entry
	return &copied, true, nil
}

func (c *mapSummaryCache) Set(_ context.Context, key string, value *domain.DailySummary, _ time.Duration) error {
	copied := *value
	c.entries[key] = &copied
	return nil
}

func TestSummaryCacheHitServesFreshSideChainFigures(t *testing.T) {
	summaryCache := newMapSummaryCache()
	svc := New(memory.NewSeeded(), summaryCache, 5*time.Second, "NGN", nil)
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("500"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}
	_, err = svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:               "2026-08-27",
		TodayRemittance:    dec("300"),
		AmountRemittingNow: dec("200"),
	})
	if err != nil {
		t.Fatalf("create remittance failed: %v", err)
	}

	summary, err := svc.GetDailySummary(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("first summary failed: %v", err)
	}
	if !summary.RemittanceOwing.Equal(dec("100")) {
		t.Fatalf("expected owing 100, got %s", summary.RemittanceOwing)
	}

	// The remittance update does not touch the daily record, so the next
	// summary read hits the cache; the owing must still reflect the update.
	_, err = svc.UpdateRemittance(ctx, "", "2026-08-27", domain.RemittanceUpdateRequest{
		TodayRemittance: decPtr("500"),
	})
	if err != nil {
		t.Fatalf("update remittance failed: %v", err)
	}
	if err := svc.SetRegisterBaseline(hoCtx(), domain.RegisterBaselineRequest{
		BranchID: "garki",
		Type:     domain.RegisterSavings,
		Period:   "2026-08",
		Amount:   dec("9000"),
	}); err != nil {
		t.Fatalf("set baseline failed: %v", err)
	}

	summary, err = svc.GetDailySummary(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("second summary failed: %v", err)
	}
	if summaryCache.hits == 0 {
		t.Fatalf("expected the second read to hit the cache")
	}
	if !summary.RemittanceOwing.Equal(dec("300")) {
		t.Fatalf("expected owing 300 after remittance update, got %s", summary.RemittanceOwing)
	}
	if !summary.Registers.SavingsRegister.CurrentSavings.Equal(dec("9500")) {
		t.Fatalf("expected savings 9500 after baseline change, got %s", summary.Registers.SavingsRegister.CurrentSavings)
	}
}

func TestSummaryCarriesCurrency(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.SubmitCashbook1(ctx, domain.Cashbook1SubmitRequest{
		Date:    "2026-08-27",
		Savings: dec("100"),
	})
	if err != nil {
		t.Fatalf("cashbook1 failed: %v", err)
	}

	summary, err := svc.GetDailySummary(ctx, "", "2026-08-27")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Currency != "NGN" {
		t.Fatalf("expected currency NGN, got %q", summary.Currency)
	}
}

func TestRemittanceMutationsAreBranchOnly(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateRemittance(hoCtx(), domain.RemittanceCreateRequest{
		BranchID:        "garki",
		Date:            "2026-08-27",
		TodayRemittance: dec("100"),
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for head office create, got %v", err)
	}

	_, err = svc.CreateRemittance(branchCtx(), domain.RemittanceCreateRequest{
		Date:            "2026-08-27",
		TodayRemittance: dec("100"),
	})
	if err != nil {
		t.Fatalf("branch create failed: %v", err)
	}

	_, err = svc.UpdateRemittance(hoCtx(), "garki", "2026-08-27", domain.RemittanceUpdateRequest{
		TodayRemittance: decPtr("50"),
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for head office update, got %v", err)
	}

	_, err = svc.SubmitRemittance(hoCtx(), "garki", "2026-08-27")
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for head office submit, got %v", err)
	}
}

func TestRemittanceLedgerIsAppendOnly(t *testing.T) {
	svc := newTestService()
	ctx := branchCtx()

	_, err := svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:               "2026-08-27",
		TodayRemittance:    dec("300"),
		AmountRemittingNow: dec("200"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Backdated records would detach the successor's previous owing.
	_, err = svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:            "2026-08-26",
		TodayRemittance: dec("50"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation for backdated remittance, got %v", err)
	}

	_, err = svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:            "2026-08-27",
		TodayRemittance: dec("50"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation for same-day duplicate, got %v", err)
	}

	later, err := svc.CreateRemittance(ctx, domain.RemittanceCreateRequest{
		Date:            "2026-08-28",
		TodayRemittance: dec("20"),
	})
	if err != nil {
		t.Fatalf("later create failed: %v", err)
	}
	if !later.PreviousAmountOwing.Equal(dec("100")) {
		t.Fatalf("expected rolled-forward previous owing 100, got %s", later.PreviousAmountOwing)
	}
}
