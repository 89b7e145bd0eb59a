package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dominionseedstars/backend/internal/domain"
	"dominionseedstars/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const recordColumns = `
	branch_id, to_char(date, 'YYYY-MM-DD'), revision, cashbook_revision,
	is_completed, completed_at, cashbook1, cashbook2,
	bank_statement1, bank_statement2, created_at, updated_at
`

func (s *Store) GetDailyRecord(ctx context.Context, branchID string, date string) (*domain.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM daily_records
		WHERE branch_id = $1 AND date = $2
	`, branchID, date)
	return scanRecord(row)
}

func (s *Store) GetPreviousDailyRecord(ctx context.Context, branchID string, before string) (*domain.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM daily_records
		WHERE branch_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`, branchID, before)
	return scanRecord(row)
}

func (s *Store) UpsertCashbook1(ctx context.Context, branchID string, date string, cb domain.Cashbook1) (*domain.DailyRecord, error) {
	if branchID == "" || date == "" {
		return nil, store.ErrValidation
	}

	cb.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cb)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_records (branch_id, date, revision, cashbook_revision, is_completed, cashbook1, created_at, updated_at)
		VALUES ($1, $2, 1, 1, false, $3, now(), now())
		ON CONFLICT (branch_id, date) DO UPDATE
		SET cashbook1 = EXCLUDED.cashbook1,
		    revision = daily_records.revision + 1,
		    cashbook_revision = daily_records.cashbook_revision + 1,
		    updated_at = now()
		WHERE daily_records.is_completed = false
		RETURNING `+recordColumns, branchID, date, payload)

	rec, err := scanRecord(row)
	if errors.Is(err, store.ErrNotFound) {
		// The conflict branch matched a completed record.
		return nil, store.ErrImmutable
	}
	return rec, err
}

func (s *Store) UpsertCashbook2(ctx context.Context, branchID string, date string, cb domain.Cashbook2) (*domain.DailyRecord, error) {
	cb.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cb)
	if err != nil {
		return nil, err
	}
	return s.updateSubDocument(ctx, branchID, date, "cashbook2", payload, true)
}

func (s *Store) UpsertBankStatement1(ctx context.Context, branchID string, date string, bs domain.BankStatement1) (*domain.DailyRecord, error) {
	bs.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(bs)
	if err != nil {
		return nil, err
	}
	return s.updateSubDocument(ctx, branchID, date, "bank_statement1", payload, false)
}

func (s *Store) UpsertBankStatement2(ctx context.Context, branchID string, date string, bs domain.BankStatement2) (*domain.DailyRecord, error) {
	bs.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(bs)
	if err != nil {
		return nil, err
	}
	return s.updateSubDocument(ctx, branchID, date, "bank_statement2", payload, false)
}

// updateSubDocument writes a single embedded sub-document on an existing
// record. The column name is always one of the fixed stage columns, never
// caller input.
func (s *Store) updateSubDocument(ctx context.Context, branchID string, date string, column string, payload []byte, bumpCashbook bool) (*domain.DailyRecord, error) {
	cashbookBump := ""
	if bumpCashbook {
		cashbookBump = ", cashbook_revision = daily_records.cashbook_revision + 1"
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE daily_records
		SET `+column+` = $3,
		    revision = daily_records.revision + 1,
		    updated_at = now()`+cashbookBump+`
		WHERE branch_id = $1 AND date = $2 AND is_completed = false
		RETURNING `+recordColumns, branchID, date, payload)

	rec, err := scanRecord(row)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.classifyMissingRecord(ctx, branchID, date)
	}
	return rec, err
}

// classifyMissingRecord distinguishes "no record yet" from "record is
// completed" after a guarded UPDATE matched no rows.
func (s *Store) classifyMissingRecord(ctx context.Context, branchID string, date string) error {
	var isCompleted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_completed FROM daily_records WHERE branch_id = $1 AND date = $2
	`, branchID, date).Scan(&isCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if isCompleted {
		return store.ErrImmutable
	}
	return store.ErrNotFound
}

func (s *Store) MarkCompleted(ctx context.Context, branchID string, date string, at time.Time) (*domain.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE daily_records
		SET is_completed = true,
		    completed_at = $3,
		    revision = daily_records.revision + 1,
		    updated_at = $3
		WHERE branch_id = $1 AND date = $2 AND is_completed = false
		RETURNING `+recordColumns, branchID, date, at)

	rec, err := scanRecord(row)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.classifyMissingRecord(ctx, branchID, date)
	}
	return rec, err
}

func (s *Store) ListDailyRecords(ctx context.Context, branchID string, from string, to string, limit int) ([]domain.DailyRecord, error) {
	if limit < 1 {
		limit = 100
	}
	if from == "" {
		from = "0001-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM daily_records
		WHERE branch_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date DESC
		LIMIT $4
	`, branchID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *Store) ListDailyRecordsByDate(ctx context.Context, date string) ([]domain.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM daily_records
		WHERE date = $1
		ORDER BY branch_id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *Store) SetRegisterBaseline(ctx context.Context, baseline domain.RegisterBaseline) error {
	if baseline.BranchID == "" || baseline.Type == "" || baseline.Period == "" {
		return store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO register_baselines (branch_id, register_type, period, amount, set_by, set_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (branch_id, register_type, period) DO UPDATE
		SET amount = EXCLUDED.amount, set_by = EXCLUDED.set_by, set_at = EXCLUDED.set_at
	`, baseline.BranchID, baseline.Type, baseline.Period, baseline.Amount, baseline.SetBy, baseline.SetAt)
	return err
}

func (s *Store) GetRegisterBaseline(ctx context.Context, branchID string, registerType string, period string) (*domain.RegisterBaseline, error) {
	var baseline domain.RegisterBaseline
	err := s.db.QueryRowContext(ctx, `
		SELECT branch_id, register_type, period, amount, set_by, set_at
		FROM register_baselines
		WHERE branch_id = $1 AND register_type = $2 AND period = $3
	`, branchID, registerType, period).Scan(
		&baseline.BranchID, &baseline.Type, &baseline.Period,
		&baseline.Amount, &baseline.SetBy, &baseline.SetAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	baseline.SetAt = baseline.SetAt.UTC()
	return &baseline, nil
}

const remittanceColumns = `
	id, branch_id, to_char(date, 'YYYY-MM-DD'), previous_amount_owing,
	today_remittance, amt_remitting_now, current_amount_owing,
	status, is_submitted, submitted_at, created_at, updated_at
`

func (s *Store) CreateRemittance(ctx context.Context, rem domain.Remittance) (*domain.Remittance, error) {
	if rem.BranchID == "" || rem.Date == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO remittances (id, branch_id, date, previous_amount_owing, today_remittance,
			amt_remitting_now, current_amount_owing, status, is_submitted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $9)
	`, rem.ID, rem.BranchID, rem.Date, rem.PreviousAmountOwing, rem.TodayRemittance,
		rem.AmountRemittingNow, rem.CurrentAmountOwing, rem.Status, rem.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := rem
	return &created, nil
}

func (s *Store) GetRemittance(ctx context.Context, branchID string, date string) (*domain.Remittance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+remittanceColumns+`
		FROM remittances
		WHERE branch_id = $1 AND date = $2
	`, branchID, date)
	return scanRemittance(row)
}

func (s *Store) GetLatestRemittanceBefore(ctx context.Context, branchID string, before string) (*domain.Remittance, error) {
	if before == "" {
		before = "9999-12-31"
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+remittanceColumns+`
		FROM remittances
		WHERE branch_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`, branchID, before)
	return scanRemittance(row)
}

func (s *Store) UpdateRemittance(ctx context.Context, rem domain.Remittance) (*domain.Remittance, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE remittances
		SET previous_amount_owing = $3,
		    today_remittance = $4,
		    amt_remitting_now = $5,
		    current_amount_owing = $6,
		    updated_at = now()
		WHERE branch_id = $1 AND date = $2 AND is_submitted = false
		RETURNING `+remittanceColumns,
		rem.BranchID, rem.Date, rem.PreviousAmountOwing, rem.TodayRemittance,
		rem.AmountRemittingNow, rem.CurrentAmountOwing)

	updated, err := scanRemittance(row)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.classifyMissingRemittance(ctx, rem.BranchID, rem.Date)
	}
	return updated, err
}

func (s *Store) SubmitRemittance(ctx context.Context, branchID string, date string, at time.Time) (*domain.Remittance, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE remittances
		SET is_submitted = true,
		    status = $4,
		    submitted_at = $3,
		    updated_at = $3
		WHERE branch_id = $1 AND date = $2 AND is_submitted = false
		RETURNING `+remittanceColumns, branchID, date, at, domain.RemittanceStatusSubmitted)

	submitted, err := scanRemittance(row)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.classifyMissingRemittance(ctx, branchID, date)
	}
	return submitted, err
}

func (s *Store) classifyMissingRemittance(ctx context.Context, branchID string, date string) error {
	var isSubmitted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_submitted FROM remittances WHERE branch_id = $1 AND date = $2
	`, branchID, date).Scan(&isSubmitted)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if isSubmitted {
		return store.ErrImmutable
	}
	return store.ErrNotFound
}

func (s *Store) UpsertPrediction(ctx context.Context, prediction domain.Prediction) (*domain.Prediction, error) {
	if prediction.BranchID == "" || prediction.Date == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (branch_id, date, prediction_no, prediction_amount, submitted_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (branch_id, date) DO UPDATE
		SET prediction_no = EXCLUDED.prediction_no,
		    prediction_amount = EXCLUDED.prediction_amount,
		    submitted_by = EXCLUDED.submitted_by,
		    updated_at = EXCLUDED.updated_at
	`, prediction.BranchID, prediction.Date, prediction.PredictionNo,
		prediction.PredictionAmount, prediction.SubmittedBy, prediction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	saved := prediction
	return &saved, nil
}

func (s *Store) GetPrediction(ctx context.Context, branchID string, date string) (*domain.Prediction, error) {
	var prediction domain.Prediction
	err := s.db.QueryRowContext(ctx, `
		SELECT branch_id, to_char(date, 'YYYY-MM-DD'), prediction_no, prediction_amount, submitted_by, updated_at
		FROM predictions
		WHERE branch_id = $1 AND date = $2
	`, branchID, date).Scan(
		&prediction.BranchID, &prediction.Date, &prediction.PredictionNo,
		&prediction.PredictionAmount, &prediction.SubmittedBy, &prediction.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	prediction.UpdatedAt = prediction.UpdatedAt.UTC()
	return &prediction, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	if branch.ID == "" || branch.Name == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, name, active, created_at)
		VALUES ($1, $2, $3, $4)
	`, branch.ID, branch.Name, branch.Active, branch.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := branch
	return &created, nil
}

func (s *Store) GetBranch(ctx context.Context, branchID string) (*domain.Branch, error) {
	var branch domain.Branch
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, created_at FROM branches WHERE id = $1
	`, branchID).Scan(&branch.ID, &branch.Name, &branch.Active, &branch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active, created_at FROM branches ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]domain.Branch, 0, 16)
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Active, &branch.CreatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.BranchID, entry.ActorUsername, entry.ActorRole,
		entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR branch_id = $1) AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, branchID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BranchID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" {
		return store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, branch_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.Username, user.Password, user.Role, user.BranchID, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrValidation
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, branch_id, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 32)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.BranchID, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.DailyRecord, error) {
	var rec domain.DailyRecord
	var completedAt sql.NullTime
	var cb1, cb2, bs1, bs2 []byte

	err := row.Scan(&rec.BranchID, &rec.Date, &rec.Revision, &rec.CashbookRevision,
		&rec.IsCompleted, &completedAt, &cb1, &cb2, &bs1, &bs2,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if completedAt.Valid {
		at := completedAt.Time.UTC()
		rec.CompletedAt = &at
	}
	if len(cb1) > 0 {
		rec.Cashbook1 = &domain.Cashbook1{}
		if err := json.Unmarshal(cb1, rec.Cashbook1); err != nil {
			return nil, err
		}
	}
	if len(cb2) > 0 {
		rec.Cashbook2 = &domain.Cashbook2{}
		if err := json.Unmarshal(cb2, rec.Cashbook2); err != nil {
			return nil, err
		}
	}
	if len(bs1) > 0 {
		rec.BankStatement1 = &domain.BankStatement1{}
		if err := json.Unmarshal(bs1, rec.BankStatement1); err != nil {
			return nil, err
		}
	}
	if len(bs2) > 0 {
		rec.BankStatement2 = &domain.BankStatement2{}
		if err := json.Unmarshal(bs2, rec.BankStatement2); err != nil {
			return nil, err
		}
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]domain.DailyRecord, error) {
	records := make([]domain.DailyRecord, 0, 32)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRemittance(row rowScanner) (*domain.Remittance, error) {
	var rem domain.Remittance
	var submittedAt sql.NullTime

	err := row.Scan(&rem.ID, &rem.BranchID, &rem.Date, &rem.PreviousAmountOwing,
		&rem.TodayRemittance, &rem.AmountRemittingNow, &rem.CurrentAmountOwing,
		&rem.Status, &rem.IsSubmitted, &submittedAt, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if submittedAt.Valid {
		at := submittedAt.Time.UTC()
		rem.SubmittedAt = &at
	}
	rem.CreatedAt = rem.CreatedAt.UTC()
	rem.UpdatedAt = rem.UpdatedAt.UTC()
	return &rem, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
