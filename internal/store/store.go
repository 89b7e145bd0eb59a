package store

import (
	"context"
	"errors"
	"time"

	"dominionseedstars/backend/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrImmutable  = errors.New("record is immutable")
)

// Repository persists daily operations records and their side-chain ledgers.
// Each Upsert touches exactly one embedded sub-document and bumps the record
// revision; no call ever partially writes another stage's sub-document.
type Repository interface {
	GetDailyRecord(ctx context.Context, branchID string, date string) (*domain.DailyRecord, error)
	// GetPreviousDailyRecord returns the most recent record strictly before
	// the given date, used for the PCIH carry-forward.
	GetPreviousDailyRecord(ctx context.Context, branchID string, before string) (*domain.DailyRecord, error)
	// UpsertCashbook1 creates the daily record on first submission.
	UpsertCashbook1(ctx context.Context, branchID string, date string, cb domain.Cashbook1) (*domain.DailyRecord, error)
	UpsertCashbook2(ctx context.Context, branchID string, date string, cb domain.Cashbook2) (*domain.DailyRecord, error)
	UpsertBankStatement1(ctx context.Context, branchID string, date string, bs domain.BankStatement1) (*domain.DailyRecord, error)
	UpsertBankStatement2(ctx context.Context, branchID string, date string, bs domain.BankStatement2) (*domain.DailyRecord, error)
	MarkCompleted(ctx context.Context, branchID string, date string, at time.Time) (*domain.DailyRecord, error)
	ListDailyRecords(ctx context.Context, branchID string, from string, to string, limit int) ([]domain.DailyRecord, error)
	ListDailyRecordsByDate(ctx context.Context, date string) ([]domain.DailyRecord, error)

	SetRegisterBaseline(ctx context.Context, baseline domain.RegisterBaseline) error
	GetRegisterBaseline(ctx context.Context, branchID string, registerType string, period string) (*domain.RegisterBaseline, error)

	CreateRemittance(ctx context.Context, rem domain.Remittance) (*domain.Remittance, error)
	GetRemittance(ctx context.Context, branchID string, date string) (*domain.Remittance, error)
	// GetLatestRemittanceBefore returns the branch's most recent remittance
	// record strictly before the given date, for the rolling-ledger default.
	GetLatestRemittanceBefore(ctx context.Context, branchID string, before string) (*domain.Remittance, error)
	UpdateRemittance(ctx context.Context, rem domain.Remittance) (*domain.Remittance, error)
	SubmitRemittance(ctx context.Context, branchID string, date string, at time.Time) (*domain.Remittance, error)

	UpsertPrediction(ctx context.Context, prediction domain.Prediction) (*domain.Prediction, error)
	GetPrediction(ctx context.Context, branchID string, date string) (*domain.Prediction, error)

	CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error)
	GetBranch(ctx context.Context, branchID string) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
