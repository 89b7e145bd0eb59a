package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleHeadOffice = "ho"
	RoleBranch     = "branch"
)

const (
	RegisterLoan         = "loan"
	RegisterSavings      = "savings"
	RegisterDisbursement = "disbursement"
)

const (
	RemittanceStatusDraft     = "draft"
	RemittanceStatusSubmitted = "submitted"
)

// DateLayout is the day-granularity key format for all daily records.
const DateLayout = "2006-01-02"

// PeriodLayout is the monthly accounting period format for register baselines.
const PeriodLayout = "2006-01"

type Actor struct {
	Username string
	Role     string
	BranchID string
}

type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Cashbook1 captures branch daily collections plus the Head Office inflows.
// Total and CBTotal1 are derived and never client-supplied.
type Cashbook1 struct {
	PCIH           decimal.Decimal `json:"pcih"`
	Savings        decimal.Decimal `json:"savings"`
	LoanCollection decimal.Decimal `json:"loan_collection"`
	Charges        decimal.Decimal `json:"charges"`
	FromHO         decimal.Decimal `json:"frm_ho"`
	FromBranch     decimal.Decimal `json:"frm_br"`
	Total          decimal.Decimal `json:"total"`
	CBTotal1       decimal.Decimal `json:"cb_total_1"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Cashbook2 struct {
	DisbursementNo           int             `json:"dis_no"`
	DisbursementAmount       decimal.Decimal `json:"dis_amt"`
	DisbursementWithInterest decimal.Decimal `json:"dis_with_int"`
	SavingsWithdrawal        decimal.Decimal `json:"sav_with"`
	DomiBank                 decimal.Decimal `json:"domi_bank"`
	POSTransfer              decimal.Decimal `json:"pos_t"`
	CBTotal2                 decimal.Decimal `json:"cb_total_2"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// BankStatement1 aggregates the inflow side. Everything except Opening is a
// snapshot copy of the cashbooks taken at submission time; SourceRevision
// records the cashbook revision the copy was read at so staleness is
// detectable instead of silent.
type BankStatement1 struct {
	Opening              decimal.Decimal `json:"opening"`
	ReceivedHO           decimal.Decimal `json:"rec_ho"`
	ReceivedBranchOffice decimal.Decimal `json:"rec_bo"`
	Domi                 decimal.Decimal `json:"domi"`
	PA                   decimal.Decimal `json:"pa"`
	BS1Total             decimal.Decimal `json:"bs1_total"`
	SourceRevision       int64           `json:"source_revision"`
	SnapshotAt           time.Time       `json:"snapshot_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// BankStatement2 aggregates the outflow side. Withdrawal is snapshotted from
// Cashbook1.FromHO; TBO fields are HO-entered, expense fields branch-entered.
type BankStatement2 struct {
	Withdrawal     decimal.Decimal `json:"withd"`
	TBO            decimal.Decimal `json:"tbo"`
	TBOToBranch    string          `json:"tbo_to_branch"`
	ExpenseAmount  decimal.Decimal `json:"ex_amt"`
	ExpensePurpose string          `json:"ex_purpose"`
	BS2Total       decimal.Decimal `json:"bs2_total"`
	SourceRevision int64           `json:"source_revision"`
	SnapshotAt     time.Time       `json:"snapshot_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DailyRecord is the single operations record for one branch and one day.
// Revision bumps on every sub-document mutation; CashbookRevision bumps only
// when a cashbook changes, and is what bank-statement snapshots are pinned to.
type DailyRecord struct {
	BranchID         string          `json:"branch_id"`
	Date             string          `json:"date"`
	Revision         int64           `json:"revision"`
	CashbookRevision int64           `json:"cashbook_revision"`
	IsCompleted      bool            `json:"is_completed"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Cashbook1        *Cashbook1      `json:"cashbook1,omitempty"`
	Cashbook2        *Cashbook2      `json:"cashbook2,omitempty"`
	BankStatement1   *BankStatement1 `json:"bank_statement1,omitempty"`
	BankStatement2   *BankStatement2 `json:"bank_statement2,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RegisterBaseline is the HO-set carry-forward for one register type and one
// monthly accounting period.
type RegisterBaseline struct {
	BranchID string          `json:"branch_id"`
	Type     string          `json:"type"`
	Period   string          `json:"period"`
	Amount   decimal.Decimal `json:"amount"`
	SetBy    string          `json:"set_by"`
	SetAt    time.Time       `json:"set_at"`
}

// Remittance is one EFCC/DSA compliance ledger record. Once submitted it is
// immutable; the next record's previous owing defaults to CurrentAmountOwing.
type Remittance struct {
	ID                  string          `json:"id"`
	BranchID            string          `json:"branch_id"`
	Date                string          `json:"date"`
	PreviousAmountOwing decimal.Decimal `json:"previous_amount_owing"`
	TodayRemittance     decimal.Decimal `json:"today_remittance"`
	AmountRemittingNow  decimal.Decimal `json:"amt_remitting_now"`
	CurrentAmountOwing  decimal.Decimal `json:"current_amount_owing"`
	Status              string          `json:"status"`
	IsSubmitted         bool            `json:"is_submitted"`
	SubmittedAt         *time.Time      `json:"submitted_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type Prediction struct {
	BranchID         string          `json:"branch_id"`
	Date             string          `json:"date"`
	PredictionNo     int             `json:"prediction_no"`
	PredictionAmount decimal.Decimal `json:"prediction_amount"`
	SubmittedBy      string          `json:"submitted_by"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PredictionView adds the guarded per-client average to a stored prediction.
type PredictionView struct {
	Prediction
	AvgPerClient decimal.Decimal `json:"avg_per_client"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	BranchID  string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BranchID    string `json:"branch_id"`
	ExpiresAt   string `json:"expires_at"`
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=4"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=ho branch"`
	BranchID string `json:"branch_id"`
}

type UserView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type BranchCreateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

// Cashbook1SubmitRequest carries both field groups; the service applies only
// the group the caller's role owns. PCIH is accepted on the wire but always
// replaced by the prior day's Online CIH for branch callers.
type Cashbook1SubmitRequest struct {
	BranchID       string          `json:"branch_id"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	PCIH           decimal.Decimal `json:"pcih"`
	Savings        decimal.Decimal `json:"savings"`
	LoanCollection decimal.Decimal `json:"loan_collection"`
	Charges        decimal.Decimal `json:"charges"`
	FromHO         decimal.Decimal `json:"frm_ho"`
	FromBranch     decimal.Decimal `json:"frm_br"`
}

type Cashbook2SubmitRequest struct {
	BranchID                 string          `json:"branch_id"`
	Date                     string          `json:"date" validate:"required,datetime=2006-01-02"`
	DisbursementNo           int             `json:"dis_no" validate:"gte=0"`
	DisbursementAmount       decimal.Decimal `json:"dis_amt"`
	DisbursementWithInterest decimal.Decimal `json:"dis_with_int"`
	SavingsWithdrawal        decimal.Decimal `json:"sav_with"`
	DomiBank                 decimal.Decimal `json:"domi_bank"`
	POSTransfer              decimal.Decimal `json:"pos_t"`
}

type BankStatement1SubmitRequest struct {
	BranchID string          `json:"branch_id"`
	Date     string          `json:"date" validate:"required,datetime=2006-01-02"`
	Opening  decimal.Decimal `json:"opening"`
}

type BankStatement2SubmitRequest struct {
	BranchID       string          `json:"branch_id"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	TBO            decimal.Decimal `json:"tbo"`
	TBOToBranch    string          `json:"tbo_to_branch"`
	ExpenseAmount  decimal.Decimal `json:"ex_amt"`
	ExpensePurpose string          `json:"ex_purpose"`
}

type RegisterBaselineRequest struct {
	BranchID string          `json:"branch_id" validate:"required"`
	Type     string          `json:"type" validate:"required,oneof=loan savings disbursement"`
	Period   string          `json:"period" validate:"required,datetime=2006-01"`
	Amount   decimal.Decimal `json:"amount"`
}

type RemittanceCreateRequest struct {
	BranchID            string           `json:"branch_id"`
	Date                string           `json:"date" validate:"required,datetime=2006-01-02"`
	PreviousAmountOwing *decimal.Decimal `json:"previous_amount_owing,omitempty"`
	TodayRemittance     decimal.Decimal  `json:"today_remittance"`
	AmountRemittingNow  decimal.Decimal  `json:"amt_remitting_now"`
}

type RemittanceUpdateRequest struct {
	TodayRemittance     *decimal.Decimal `json:"today_remittance,omitempty"`
	AmountRemittingNow  *decimal.Decimal `json:"amt_remitting_now,omitempty"`
	PreviousAmountOwing *decimal.Decimal `json:"previous_amount_owing,omitempty"`
}

type PredictionSubmitRequest struct {
	BranchID         string          `json:"branch_id"`
	PredictionNo     int             `json:"prediction_no" validate:"gte=0"`
	PredictionAmount decimal.Decimal `json:"prediction_amount"`
}

type LoanRegisterView struct {
	PreviousLoanTotal        decimal.Decimal `json:"previous_loan_total"`
	DisbursementWithInterest decimal.Decimal `json:"loan_disbursement_with_interest"`
	LoanCollection           decimal.Decimal `json:"loan_collection"`
	CurrentLoanBalance       decimal.Decimal `json:"current_loan_balance"`
}

type SavingsRegisterView struct {
	PreviousSavingsTotal decimal.Decimal `json:"previous_savings_total"`
	Savings              decimal.Decimal `json:"savings"`
	SavingsWithdrawal    decimal.Decimal `json:"savings_withdrawal"`
	CurrentSavings       decimal.Decimal `json:"current_savings"`
}

type DisbursementRollView struct {
	PreviousDisbursement decimal.Decimal `json:"previous_disbursement"`
	DailyDisbursement    decimal.Decimal `json:"daily_disbursement"`
	Total                decimal.Decimal `json:"total"`
}

type RegistersResponse struct {
	BranchID         string               `json:"branch_id"`
	Date             string               `json:"date"`
	Period           string               `json:"period"`
	LoanRegister     LoanRegisterView     `json:"loan_register"`
	SavingsRegister  SavingsRegisterView  `json:"savings_register"`
	DisbursementRoll DisbursementRollView `json:"disbursement_roll"`
}

// DailySummary is the derived per-branch/day view: the figure chain computed
// on read from the latest sub-documents, never stored.
type DailySummary struct {
	BranchID               string             `json:"branch_id"`
	Date                   string             `json:"date"`
	Revision               int64              `json:"revision"`
	IsCompleted            bool               `json:"is_completed"`
	Currency               string             `json:"currency"`
	CBTotal1               decimal.Decimal    `json:"cb_total_1"`
	CBTotal2               decimal.Decimal    `json:"cb_total_2"`
	OnlineCIH              decimal.Decimal    `json:"online_cih"`
	BS1Total               decimal.Decimal    `json:"bs1_total"`
	BS2Total               decimal.Decimal    `json:"bs2_total"`
	TransferToSenateOffice decimal.Decimal    `json:"transfer_to_senate_office"`
	BankStatement1Stale    bool               `json:"bank_statement1_stale"`
	BankStatement2Stale    bool               `json:"bank_statement2_stale"`
	Registers              *RegistersResponse `json:"registers,omitempty"`
	RemittanceOwing        decimal.Decimal    `json:"remittance_owing"`
}

type DashboardResponse struct {
	Date      string         `json:"date"`
	Summaries []DailySummary `json:"summaries"`
}
