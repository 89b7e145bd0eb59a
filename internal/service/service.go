package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"dominionseedstars/backend/internal/cache"
	"dominionseedstars/backend/internal/domain"
	"dominionseedstars/backend/internal/formula"
	"dominionseedstars/backend/internal/store"
	"dominionseedstars/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	summaries  cache.SummaryCache
	summaryTTL time.Duration
	currency   string
	log        *logrus.Logger
}

func New(repo store.Repository, summaries cache.SummaryCache, summaryTTL time.Duration, currency string, log *logrus.Logger) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL < time.Second {
		summaryTTL = 30 * time.Second
	}
	if currency == "" {
		currency = "NGN"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		repo:       repo,
		summaries:  summaries,
		summaryTTL: summaryTTL,
		currency:   currency,
		log:        log,
	}
}

// resolveBranchID maps the caller onto a branch. Branch actors are pinned to
// their own branch; head office must name one explicitly.
func resolveBranchID(actor domain.Actor, requested string) (string, error) {
	if actor.Role == domain.RoleBranch {
		if requested != "" && requested != actor.BranchID {
			return "", store.ErrForbidden
		}
		if actor.BranchID == "" {
			return "", store.ErrForbidden
		}
		return actor.BranchID, nil
	}
	if requested == "" {
		return "", store.ErrValidation
	}
	return requested, nil
}

func normalizeDate(raw string) (string, error) {
	parsed, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return "", store.ErrValidation
	}
	return parsed.Format(domain.DateLayout), nil
}

func nonNegative(values ...decimal.Decimal) bool {
	for _, v := range values {
		if v.IsNegative() {
			return false
		}
	}
	return true
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, store.ErrForbidden
	}
	return actor, nil
}

// SubmitCashbook1 writes the role-owned field group of the first cashbook.
// Branch callers submit collections and never the head-office inflows; head
// office submits inflows and never the collections. The previous cash in hand
// is always carried forward from the prior day's Online CIH, regardless of
// what the caller sent.
func (s *Service) SubmitCashbook1(ctx context.Context, req domain.Cashbook1SubmitRequest) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetDailyRecord(ctx, branchID, date)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	cb := domain.Cashbook1{}
	if existing != nil && existing.Cashbook1 != nil {
		cb = *existing.Cashbook1
	}

	switch actor.Role {
	case domain.RoleBranch:
		if !nonNegative(req.Savings, req.LoanCollection, req.Charges) {
			return nil, store.ErrValidation
		}
		cb.Savings = req.Savings
		cb.LoanCollection = req.LoanCollection
		cb.Charges = req.Charges
		pcih, err := s.carryForwardCIH(ctx, branchID, date)
		if err != nil {
			return nil, err
		}
		cb.PCIH = pcih
	case domain.RoleHeadOffice:
		if !nonNegative(req.FromHO, req.FromBranch) {
			return nil, store.ErrValidation
		}
		cb.FromHO = req.FromHO
		cb.FromBranch = req.FromBranch
		if existing == nil || existing.Cashbook1 == nil {
			pcih, err := s.carryForwardCIH(ctx, branchID, date)
			if err != nil {
				return nil, err
			}
			cb.PCIH = pcih
		}
	default:
		return nil, store.ErrForbidden
	}

	cb.Total = formula.Cashbook1Total(cb.Savings, cb.LoanCollection, cb.Charges)
	cb.CBTotal1 = formula.Cashbook1CBTotal(cb.PCIH, cb.Savings, cb.LoanCollection, cb.Charges, cb.FromHO, cb.FromBranch)

	saved, err := s.repo.UpsertCashbook1(ctx, branchID, date, cb)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "cashbook1_submit", "daily_record", date, fmt.Sprintf("cb_total_1=%s", cb.CBTotal1))
	return saved, nil
}

// carryForwardCIH derives the opening cash position from the most recent
// prior record's Online CIH. A branch with no history opens at zero.
func (s *Service) carryForwardCIH(ctx context.Context, branchID string, date string) (decimal.Decimal, error) {
	prev, err := s.repo.GetPreviousDailyRecord(ctx, branchID, date)
	if err == store.ErrNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return onlineCIHOf(prev), nil
}

func onlineCIHOf(rec *domain.DailyRecord) decimal.Decimal {
	cbTotal1 := decimal.Zero
	if rec.Cashbook1 != nil {
		cbTotal1 = rec.Cashbook1.CBTotal1
	}
	cbTotal2 := decimal.Zero
	if rec.Cashbook2 != nil {
		cbTotal2 = rec.Cashbook2.CBTotal2
	}
	return formula.OnlineCIH(cbTotal1, cbTotal2)
}

// SubmitCashbook2 records the branch outflow side. Head office does not own
// any field here.
func (s *Service) SubmitCashbook2(ctx context.Context, req domain.Cashbook2SubmitRequest) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}

	if req.DisbursementNo < 0 {
		return nil, store.ErrValidation
	}
	if !nonNegative(req.DisbursementAmount, req.DisbursementWithInterest, req.SavingsWithdrawal, req.DomiBank, req.POSTransfer) {
		return nil, store.ErrValidation
	}

	cb := domain.Cashbook2{
		DisbursementNo:           req.DisbursementNo,
		DisbursementAmount:       req.DisbursementAmount,
		DisbursementWithInterest: req.DisbursementWithInterest,
		SavingsWithdrawal:        req.SavingsWithdrawal,
		DomiBank:                 req.DomiBank,
		POSTransfer:              req.POSTransfer,
	}
	cb.CBTotal2 = formula.Cashbook2CBTotal(cb.DisbursementAmount, cb.SavingsWithdrawal, cb.DomiBank, cb.POSTransfer)

	saved, err := s.repo.UpsertCashbook2(ctx, branchID, date, cb)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "cashbook2_submit", "daily_record", date, fmt.Sprintf("cb_total_2=%s", cb.CBTotal2))
	return saved, nil
}

// SubmitBankStatement1 takes the inflow snapshot. Everything except Opening
// is copied out of the cashbooks as they stand right now, and the copy is
// pinned to the cashbook revision it was read at.
func (s *Service) SubmitBankStatement1(ctx context.Context, req domain.BankStatement1SubmitRequest) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.Opening.IsNegative() {
		return nil, store.ErrValidation
	}

	rec, err := s.repo.GetDailyRecord(ctx, branchID, date)
	if err != nil {
		return nil, err
	}

	bs := domain.BankStatement1{
		Opening:        req.Opening,
		SourceRevision: rec.CashbookRevision,
		SnapshotAt:     time.Now().UTC(),
	}
	if rec.Cashbook1 != nil {
		bs.ReceivedHO = rec.Cashbook1.FromHO
		bs.ReceivedBranchOffice = rec.Cashbook1.FromBranch
	}
	if rec.Cashbook2 != nil {
		bs.Domi = rec.Cashbook2.DomiBank
		bs.PA = rec.Cashbook2.POSTransfer
	}
	bs.BS1Total = formula.BankStatement1Total(bs.Opening, bs.ReceivedHO, bs.ReceivedBranchOffice, bs.Domi, bs.PA)

	saved, err := s.repo.UpsertBankStatement1(ctx, branchID, date, bs)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "bank_statement1_submit", "daily_record", date, fmt.Sprintf("bs1_total=%s,source_rev=%d", bs.BS1Total, bs.SourceRevision))
	return saved, nil
}

// SubmitBankStatement2 is split by role like the first cashbook: branches
// own the expense fields, head office owns the transfer-back-office fields.
// Withdrawal always snapshots the head-office inflow from Cashbook1.
func (s *Service) SubmitBankStatement2(ctx context.Context, req domain.BankStatement2SubmitRequest) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetDailyRecord(ctx, branchID, date)
	if err != nil {
		return nil, err
	}

	bs := domain.BankStatement2{}
	if rec.BankStatement2 != nil {
		bs = *rec.BankStatement2
	}

	switch actor.Role {
	case domain.RoleBranch:
		if req.ExpenseAmount.IsNegative() {
			return nil, store.ErrValidation
		}
		bs.ExpenseAmount = req.ExpenseAmount
		bs.ExpensePurpose = req.ExpensePurpose
	case domain.RoleHeadOffice:
		if req.TBO.IsNegative() {
			return nil, store.ErrValidation
		}
		bs.TBO = req.TBO
		bs.TBOToBranch = req.TBOToBranch
	default:
		return nil, store.ErrForbidden
	}

	if rec.Cashbook1 != nil {
		bs.Withdrawal = rec.Cashbook1.FromHO
	} else {
		bs.Withdrawal = decimal.Zero
	}
	bs.SourceRevision = rec.CashbookRevision
	bs.SnapshotAt = time.Now().UTC()
	bs.BS2Total = formula.BankStatement2Total(bs.Withdrawal, bs.TBO, bs.ExpenseAmount)

	saved, err := s.repo.UpsertBankStatement2(ctx, branchID, date, bs)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "bank_statement2_submit", "daily_record", date, fmt.Sprintf("bs2_total=%s,source_rev=%d", bs.BS2Total, bs.SourceRevision))
	return saved, nil
}

func (s *Service) GetDailyRecord(ctx context.Context, branchID string, date string) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.repo.GetDailyRecord(ctx, branchID, date)
}

// GetDailySummary computes the full derived chain for one branch and day.
// Only the record-derived figures are cached, keyed by record revision, so a
// cache hit can never serve figures older than the record it describes. The
// register and remittance figures depend on baselines and remittance records
// that change without bumping the record revision, so they are recomputed on
// every read and never cached.
func (s *Service) GetDailySummary(ctx context.Context, branchID string, date string) (*domain.DailySummary, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetDailyRecord(ctx, branchID, date)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("summary:%s:%s:%d", branchID, date, rec.Revision)
	summary, ok, err := s.summaries.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Warn("summary cache read failed")
		ok = false
	}
	if !ok {
		summary = s.recordSummary(rec)
		if err := s.summaries.Set(ctx, key, summary, s.summaryTTL); err != nil {
			s.log.WithError(err).Warn("summary cache write failed")
		}
	}

	out := *summary
	registers, err := s.computeRegisters(ctx, branchID, date, rec)
	if err != nil {
		return nil, err
	}
	out.Registers = registers

	owing, err := s.remittanceOwingAsOf(ctx, branchID, date)
	if err != nil {
		return nil, err
	}
	out.RemittanceOwing = owing

	return &out, nil
}

// recordSummary derives the figures that depend only on the daily record
// itself. This is the cacheable part of a summary.
func (s *Service) recordSummary(rec *domain.DailyRecord) *domain.DailySummary {
	summary := &domain.DailySummary{
		BranchID:    rec.BranchID,
		Date:        rec.Date,
		Revision:    rec.Revision,
		IsCompleted: rec.IsCompleted,
		Currency:    s.currency,
	}

	if rec.Cashbook1 != nil {
		summary.CBTotal1 = rec.Cashbook1.CBTotal1
	}
	if rec.Cashbook2 != nil {
		summary.CBTotal2 = rec.Cashbook2.CBTotal2
	}
	summary.OnlineCIH = formula.OnlineCIH(summary.CBTotal1, summary.CBTotal2)

	if rec.BankStatement1 != nil {
		summary.BS1Total = rec.BankStatement1.BS1Total
		summary.BankStatement1Stale = rec.BankStatement1.SourceRevision != rec.CashbookRevision
	}
	if rec.BankStatement2 != nil {
		summary.BS2Total = rec.BankStatement2.BS2Total
		summary.BankStatement2Stale = rec.BankStatement2.SourceRevision != rec.CashbookRevision
	}
	summary.TransferToSenateOffice = formula.TransferToSenateOffice(summary.BS1Total, summary.BS2Total)

	return summary
}

// remittanceOwingAsOf returns the compliance balance visible on the given
// day: today's record if one exists, otherwise the latest prior record.
func (s *Service) remittanceOwingAsOf(ctx context.Context, branchID string, date string) (decimal.Decimal, error) {
	rem, err := s.repo.GetRemittance(ctx, branchID, date)
	if err == nil {
		return rem.CurrentAmountOwing, nil
	}
	if err != store.ErrNotFound {
		return decimal.Zero, err
	}

	prev, err := s.repo.GetLatestRemittanceBefore(ctx, branchID, date)
	if err == store.ErrNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return prev.CurrentAmountOwing, nil
}

// MarkDayCompleted finalizes a day. After this, every stage write on the
// record is rejected.
func (s *Service) MarkDayCompleted(ctx context.Context, branchID string, date string) (*domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.MarkCompleted(ctx, branchID, date, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "day_complete", "daily_record", date, "")
	return rec, nil
}

// SetRegisterBaseline lets head office pin the monthly opening figure for a
// register. Branches cannot set baselines.
func (s *Service) SetRegisterBaseline(ctx context.Context, req domain.RegisterBaselineRequest) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleHeadOffice {
		return store.ErrForbidden
	}
	if req.Amount.IsNegative() {
		return store.ErrValidation
	}
	if _, err := time.Parse(domain.PeriodLayout, req.Period); err != nil {
		return store.ErrValidation
	}
	switch req.Type {
	case domain.RegisterLoan, domain.RegisterSavings, domain.RegisterDisbursement:
	default:
		return store.ErrValidation
	}
	if _, err := s.repo.GetBranch(ctx, req.BranchID); err != nil {
		return err
	}

	err = s.repo.SetRegisterBaseline(ctx, domain.RegisterBaseline{
		BranchID: req.BranchID,
		Type:     req.Type,
		Period:   req.Period,
		Amount:   req.Amount,
		SetBy:    actor.Username,
		SetAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, req.BranchID, "register_baseline_set", "register_baseline", req.Type+":"+req.Period, req.Amount.String())
	return nil
}

// GetRegisters returns the three register views for one branch and day.
func (s *Service) GetRegisters(ctx context.Context, branchID string, date string) (*domain.RegistersResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetDailyRecord(ctx, branchID, date)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}
	return s.computeRegisters(ctx, branchID, date, rec)
}

// computeRegisters rolls the monthly baselines forward through every prior
// day in the period, then applies today's figures on top. A missing baseline
// means the register opens the month at zero.
func (s *Service) computeRegisters(ctx context.Context, branchID string, date string, rec *domain.DailyRecord) (*domain.RegistersResponse, error) {
	period := date[:len(domain.PeriodLayout)]

	prevLoan, err := s.baselineAmount(ctx, branchID, domain.RegisterLoan, period)
	if err != nil {
		return nil, err
	}
	prevSavings, err := s.baselineAmount(ctx, branchID, domain.RegisterSavings, period)
	if err != nil {
		return nil, err
	}
	prevDisbursement, err := s.baselineAmount(ctx, branchID, domain.RegisterDisbursement, period)
	if err != nil {
		return nil, err
	}

	periodStart := period + "-01"
	prior, err := s.repo.ListDailyRecords(ctx, branchID, periodStart, date, 400)
	if err != nil {
		return nil, err
	}
	sort.Slice(prior, func(i, j int) bool { return prior[i].Date < prior[j].Date })

	for _, day := range prior {
		if day.Date >= date {
			continue
		}
		if day.Cashbook1 != nil {
			prevSavings = formula.CurrentSavings(prevSavings, day.Cashbook1.Savings, decimal.Zero)
			prevLoan = prevLoan.Sub(day.Cashbook1.LoanCollection)
		}
		if day.Cashbook2 != nil {
			prevSavings = prevSavings.Sub(day.Cashbook2.SavingsWithdrawal)
			prevLoan = prevLoan.Add(day.Cashbook2.DisbursementWithInterest)
			prevDisbursement = formula.DisbursementRoll(prevDisbursement, day.Cashbook2.DisbursementAmount)
		}
	}

	savings := decimal.Zero
	loanCollection := decimal.Zero
	savingsWithdrawal := decimal.Zero
	disbursementAmount := decimal.Zero
	disbursementWithInterest := decimal.Zero
	if rec != nil {
		if rec.Cashbook1 != nil {
			savings = rec.Cashbook1.Savings
			loanCollection = rec.Cashbook1.LoanCollection
		}
		if rec.Cashbook2 != nil {
			savingsWithdrawal = rec.Cashbook2.SavingsWithdrawal
			disbursementAmount = rec.Cashbook2.DisbursementAmount
			disbursementWithInterest = rec.Cashbook2.DisbursementWithInterest
		}
	}

	return &domain.RegistersResponse{
		BranchID: branchID,
		Date:     date,
		Period:   period,
		LoanRegister: domain.LoanRegisterView{
			PreviousLoanTotal:        prevLoan,
			DisbursementWithInterest: disbursementWithInterest,
			LoanCollection:           loanCollection,
			CurrentLoanBalance:       formula.CurrentLoanBalance(prevLoan, disbursementWithInterest, loanCollection),
		},
		SavingsRegister: domain.SavingsRegisterView{
			PreviousSavingsTotal: prevSavings,
			Savings:              savings,
			SavingsWithdrawal:    savingsWithdrawal,
			CurrentSavings:       formula.CurrentSavings(prevSavings, savings, savingsWithdrawal),
		},
		DisbursementRoll: domain.DisbursementRollView{
			PreviousDisbursement: prevDisbursement,
			DailyDisbursement:    disbursementAmount,
			Total:                formula.DisbursementRoll(prevDisbursement, disbursementAmount),
		},
	}, nil
}

func (s *Service) baselineAmount(ctx context.Context, branchID string, registerType string, period string) (decimal.Decimal, error) {
	baseline, err := s.repo.GetRegisterBaseline(ctx, branchID, registerType, period)
	if err == store.ErrNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return baseline.Amount, nil
}

// CreateRemittance opens a draft compliance record. The ledger is
// append-only: a new record must be dated after the branch's latest one, its
// previous owing defaults to that record's closing balance, and an explicit
// value is only honored when no prior record exists.
func (s *Service) CreateRemittance(ctx context.Context, req domain.RemittanceCreateRequest) (*domain.Remittance, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	if !nonNegative(req.TodayRemittance, req.AmountRemittingNow) {
		return nil, store.ErrValidation
	}
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}

	previousOwing := decimal.Zero
	prior, err := s.repo.GetLatestRemittanceBefore(ctx, branchID, "")
	switch {
	case err == nil:
		if prior.Date >= date {
			return nil, store.ErrValidation
		}
		if req.PreviousAmountOwing != nil && !req.PreviousAmountOwing.Equal(prior.CurrentAmountOwing) {
			return nil, store.ErrValidation
		}
		previousOwing = prior.CurrentAmountOwing
	case err == store.ErrNotFound:
		if req.PreviousAmountOwing != nil {
			if req.PreviousAmountOwing.IsNegative() {
				return nil, store.ErrValidation
			}
			previousOwing = *req.PreviousAmountOwing
		}
	default:
		return nil, err
	}

	now := time.Now().UTC()
	rem := domain.Remittance{
		ID:                  xid.New("rem"),
		BranchID:            branchID,
		Date:                date,
		PreviousAmountOwing: previousOwing,
		TodayRemittance:     req.TodayRemittance,
		AmountRemittingNow:  req.AmountRemittingNow,
		Status:              domain.RemittanceStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	rem.CurrentAmountOwing = formula.ComplianceOwing(rem.PreviousAmountOwing, rem.TodayRemittance, rem.AmountRemittingNow)

	created, err := s.repo.CreateRemittance(ctx, rem)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "remittance_create", "remittance", created.ID, fmt.Sprintf("date=%s,owing=%s", date, created.CurrentAmountOwing))
	return created, nil
}

func (s *Service) GetRemittance(ctx context.Context, branchID string, date string) (*domain.Remittance, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRemittance(ctx, branchID, date)
}

func (s *Service) UpdateRemittance(ctx context.Context, branchID string, date string, req domain.RemittanceUpdateRequest) (*domain.Remittance, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRemittance(ctx, branchID, date)
	if err != nil {
		return nil, err
	}
	if existing.IsSubmitted {
		return nil, store.ErrImmutable
	}

	updated := *existing
	if req.TodayRemittance != nil {
		if req.TodayRemittance.IsNegative() {
			return nil, store.ErrValidation
		}
		updated.TodayRemittance = *req.TodayRemittance
	}
	if req.AmountRemittingNow != nil {
		if req.AmountRemittingNow.IsNegative() {
			return nil, store.ErrValidation
		}
		updated.AmountRemittingNow = *req.AmountRemittingNow
	}
	if req.PreviousAmountOwing != nil {
		_, err := s.repo.GetLatestRemittanceBefore(ctx, branchID, date)
		if err == nil {
			return nil, store.ErrValidation
		}
		if err != store.ErrNotFound {
			return nil, err
		}
		if req.PreviousAmountOwing.IsNegative() {
			return nil, store.ErrValidation
		}
		updated.PreviousAmountOwing = *req.PreviousAmountOwing
	}
	updated.CurrentAmountOwing = formula.ComplianceOwing(updated.PreviousAmountOwing, updated.TodayRemittance, updated.AmountRemittingNow)

	saved, err := s.repo.UpdateRemittance(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "remittance_update", "remittance", saved.ID, fmt.Sprintf("owing=%s", saved.CurrentAmountOwing))
	return saved, nil
}

// SubmitRemittance moves a draft to submitted. Submitted records reject
// every later write.
func (s *Service) SubmitRemittance(ctx context.Context, branchID string, date string) (*domain.Remittance, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	submitted, err := s.repo.SubmitRemittance(ctx, branchID, date, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "remittance_submit", "remittance", submitted.ID, fmt.Sprintf("owing=%s", submitted.CurrentAmountOwing))
	return submitted, nil
}

// SubmitPrediction files tomorrow's client forecast. The target date is
// always server-derived; branches cannot backdate or forward-date, and head
// office does not file predictions at all.
func (s *Service) SubmitPrediction(ctx context.Context, req domain.PredictionSubmitRequest) (*domain.Prediction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleBranch {
		return nil, store.ErrForbidden
	}

	branchID, err := resolveBranchID(actor, req.BranchID)
	if err != nil {
		return nil, err
	}
	if req.PredictionNo < 0 || req.PredictionAmount.IsNegative() {
		return nil, store.ErrValidation
	}

	date := time.Now().UTC().AddDate(0, 0, 1).Format(domain.DateLayout)
	saved, err := s.repo.UpsertPrediction(ctx, domain.Prediction{
		BranchID:         branchID,
		Date:             date,
		PredictionNo:     req.PredictionNo,
		PredictionAmount: req.PredictionAmount,
		SubmittedBy:      actor.Username,
		UpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, branchID, "prediction_submit", "prediction", date, fmt.Sprintf("no=%d,amount=%s", saved.PredictionNo, saved.PredictionAmount))
	return saved, nil
}

func (s *Service) GetPrediction(ctx context.Context, branchID string, date string) (*domain.PredictionView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	prediction, err := s.repo.GetPrediction(ctx, branchID, date)
	if err != nil {
		return nil, err
	}

	return &domain.PredictionView{
		Prediction:   *prediction,
		AvgPerClient: formula.AveragePerClient(prediction.PredictionAmount, prediction.PredictionNo),
	}, nil
}

// History lists a branch's daily records over a date range, newest first.
func (s *Service) History(ctx context.Context, branchID string, from string, to string, limit int) ([]domain.DailyRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branchID, err = resolveBranchID(actor, branchID)
	if err != nil {
		return nil, err
	}
	if from != "" {
		if from, err = normalizeDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if to, err = normalizeDate(to); err != nil {
			return nil, err
		}
	}
	if limit < 1 || limit > 200 {
		limit = 60
	}
	return s.repo.ListDailyRecords(ctx, branchID, from, to, limit)
}

// Dashboard is the head-office cross-branch view for one day.
func (s *Service) Dashboard(ctx context.Context, date string) (*domain.DashboardResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleHeadOffice {
		return nil, store.ErrForbidden
	}
	date, err = normalizeDate(date)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListDailyRecordsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.DailySummary, 0, len(records))
	for i := range records {
		summary := s.recordSummary(&records[i])
		owing, err := s.remittanceOwingAsOf(ctx, summary.BranchID, summary.Date)
		if err != nil {
			return nil, err
		}
		summary.RemittanceOwing = owing
		summaries = append(summaries, *summary)
	}

	return &domain.DashboardResponse{Date: date, Summaries: summaries}, nil
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (*domain.Branch, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleHeadOffice {
		return nil, store.ErrForbidden
	}
	if req.Name == "" {
		return nil, store.ErrValidation
	}

	id := req.ID
	if id == "" {
		id = xid.New("br")
	}

	created, err := s.repo.CreateBranch(ctx, domain.Branch{
		ID:        id,
		Name:      req.Name,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, created.ID, "branch_create", "branch", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListBranches(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleHeadOffice {
		return nil, store.ErrForbidden
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	return s.repo.ListAuditLogs(ctx, branchID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, branchID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BranchID:      branchID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}
