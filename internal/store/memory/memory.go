package memory

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"dominionseedstars/backend/internal/domain"
	"dominionseedstars/backend/internal/store"
)

// Store is an in-memory Repository used for dev mode and tests.
type Store struct {
	mu              sync.RWMutex
	records         map[string]*domain.DailyRecord
	baselines       map[string]domain.RegisterBaseline
	remittances     map[string]*domain.Remittance
	predictions     map[string]domain.Prediction
	branchesByID    map[string]domain.Branch
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		records:         make(map[string]*domain.DailyRecord),
		baselines:       make(map[string]domain.RegisterBaseline),
		remittances:     make(map[string]*domain.Remittance),
		predictions:     make(map[string]domain.Prediction),
		branchesByID:    make(map[string]domain.Branch),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with demo branches and user accounts
// for dev mode. Credentials come from SEED_HO_PASSWORD and SEED_BRANCH_PASSWORD;
// hardcoded dev defaults are used with a warning when unset.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, b := range []domain.Branch{
		{ID: "senate-annex", Name: "Senate Annex Branch", Active: true, CreatedAt: now},
		{ID: "garki", Name: "Garki Branch", Active: true, CreatedAt: now},
		{ID: "wuse", Name: "Wuse Branch", Active: true, CreatedAt: now},
	} {
		s.branchesByID[b.ID] = b
	}

	hoPwd := envOr("SEED_HO_PASSWORD", "headoffice123")
	branchPwd := envOr("SEED_BRANCH_PASSWORD", "branch123")
	if os.Getenv("SEED_HO_PASSWORD") == "" || os.Getenv("SEED_BRANCH_PASSWORD") == "" {
		logrus.Warn("memory store: using default dev credentials, set SEED_HO_PASSWORD and SEED_BRANCH_PASSWORD to override")
	}

	for _, u := range []struct {
		username string
		password string
		role     string
		branchID string
	}{
		{"headoffice", hoPwd, domain.RoleHeadOffice, ""},
		{"garki-teller", branchPwd, domain.RoleBranch, "garki"},
		{"wuse-teller", branchPwd, domain.RoleBranch, "wuse"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Fatalf("memory store: failed to hash seed password for %s", u.username)
		}
		s.usersByUsername[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			BranchID:  u.branchID,
			Active:    true,
			CreatedAt: now,
		}
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func recordKey(branchID, date string) string {
	return branchID + "|" + date
}

func baselineKey(branchID, registerType, period string) string {
	return branchID + "|" + registerType + "|" + period
}

func (s *Store) GetDailyRecord(_ context.Context, branchID string, date string) (*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) GetPreviousDailyRecord(_ context.Context, branchID string, before string) (*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.DailyRecord
	for _, rec := range s.records {
		if rec.BranchID != branchID || rec.Date >= before {
			continue
		}
		if best == nil || rec.Date > best.Date {
			best = rec
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return copyRecord(best), nil
}

func (s *Store) UpsertCashbook1(_ context.Context, branchID string, date string, cb domain.Cashbook1) (*domain.DailyRecord, error) {
	if branchID == "" || date == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := recordKey(branchID, date)
	rec, ok := s.records[key]
	if !ok {
		rec = &domain.DailyRecord{BranchID: branchID, Date: date, CreatedAt: now}
		s.records[key] = rec
	}
	if rec.IsCompleted {
		return nil, store.ErrImmutable
	}

	cb.UpdatedAt = now
	rec.Cashbook1 = &cb
	rec.Revision++
	rec.CashbookRevision++
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

func (s *Store) UpsertCashbook2(_ context.Context, branchID string, date string, cb domain.Cashbook2) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.IsCompleted {
		return nil, store.ErrImmutable
	}

	now := time.Now().UTC()
	cb.UpdatedAt = now
	rec.Cashbook2 = &cb
	rec.Revision++
	rec.CashbookRevision++
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

func (s *Store) UpsertBankStatement1(_ context.Context, branchID string, date string, bs domain.BankStatement1) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.IsCompleted {
		return nil, store.ErrImmutable
	}

	now := time.Now().UTC()
	bs.UpdatedAt = now
	rec.BankStatement1 = &bs
	rec.Revision++
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

func (s *Store) UpsertBankStatement2(_ context.Context, branchID string, date string, bs domain.BankStatement2) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.IsCompleted {
		return nil, store.ErrImmutable
	}

	now := time.Now().UTC()
	bs.UpdatedAt = now
	rec.BankStatement2 = &bs
	rec.Revision++
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

func (s *Store) MarkCompleted(_ context.Context, branchID string, date string, at time.Time) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.IsCompleted {
		return nil, store.ErrImmutable
	}

	rec.IsCompleted = true
	rec.CompletedAt = &at
	rec.Revision++
	rec.UpdatedAt = at
	return copyRecord(rec), nil
}

func (s *Store) ListDailyRecords(_ context.Context, branchID string, from string, to string, limit int) ([]domain.DailyRecord, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DailyRecord, 0, 32)
	for _, rec := range s.records {
		if rec.BranchID != branchID {
			continue
		}
		if from != "" && rec.Date < from {
			continue
		}
		if to != "" && rec.Date > to {
			continue
		}
		result = append(result, *copyRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListDailyRecordsByDate(_ context.Context, date string) ([]domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DailyRecord, 0, len(s.branchesByID))
	for _, rec := range s.records {
		if rec.Date != date {
			continue
		}
		result = append(result, *copyRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BranchID < result[j].BranchID })
	return result, nil
}

func (s *Store) SetRegisterBaseline(_ context.Context, baseline domain.RegisterBaseline) error {
	if baseline.BranchID == "" || baseline.Type == "" || baseline.Period == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baselines[baselineKey(baseline.BranchID, baseline.Type, baseline.Period)] = baseline
	return nil
}

func (s *Store) GetRegisterBaseline(_ context.Context, branchID string, registerType string, period string) (*domain.RegisterBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baseline, ok := s.baselines[baselineKey(branchID, registerType, period)]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := baseline
	return &result, nil
}

func (s *Store) CreateRemittance(_ context.Context, rem domain.Remittance) (*domain.Remittance, error) {
	if rem.BranchID == "" || rem.Date == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rem.BranchID, rem.Date)
	if _, exists := s.remittances[key]; exists {
		return nil, store.ErrValidation
	}

	stored := rem
	s.remittances[key] = &stored
	created := stored
	return &created, nil
}

func (s *Store) GetRemittance(_ context.Context, branchID string, date string) (*domain.Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rem, ok := s.remittances[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := *rem
	return &result, nil
}

func (s *Store) GetLatestRemittanceBefore(_ context.Context, branchID string, before string) (*domain.Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Remittance
	for _, rem := range s.remittances {
		if rem.BranchID != branchID {
			continue
		}
		if before != "" && rem.Date >= before {
			continue
		}
		if best == nil || rem.Date > best.Date {
			best = rem
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	result := *best
	return &result, nil
}

func (s *Store) UpdateRemittance(_ context.Context, rem domain.Remittance) (*domain.Remittance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.remittances[recordKey(rem.BranchID, rem.Date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if existing.IsSubmitted {
		return nil, store.ErrImmutable
	}

	rem.ID = existing.ID
	rem.CreatedAt = existing.CreatedAt
	stored := rem
	s.remittances[recordKey(rem.BranchID, rem.Date)] = &stored
	result := stored
	return &result, nil
}

func (s *Store) SubmitRemittance(_ context.Context, branchID string, date string, at time.Time) (*domain.Remittance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.remittances[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rem.IsSubmitted {
		return nil, store.ErrImmutable
	}

	rem.IsSubmitted = true
	rem.Status = domain.RemittanceStatusSubmitted
	rem.SubmittedAt = &at
	rem.UpdatedAt = at
	result := *rem
	return &result, nil
}

func (s *Store) UpsertPrediction(_ context.Context, prediction domain.Prediction) (*domain.Prediction, error) {
	if prediction.BranchID == "" || prediction.Date == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictions[recordKey(prediction.BranchID, prediction.Date)] = prediction
	result := prediction
	return &result, nil
}

func (s *Store) GetPrediction(_ context.Context, branchID string, date string) (*domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prediction, ok := s.predictions[recordKey(branchID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := prediction
	return &result, nil
}

func (s *Store) CreateBranch(_ context.Context, branch domain.Branch) (*domain.Branch, error) {
	if branch.ID == "" || branch.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.branchesByID[branch.ID]; exists {
		return nil, store.ErrValidation
	}
	s.branchesByID[branch.ID] = branch
	created := branch
	return &created, nil
}

func (s *Store) GetBranch(_ context.Context, branchID string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branch, ok := s.branchesByID[branchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := branch
	return &result, nil
}

func (s *Store) ListBranches(_ context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]domain.Branch, 0, len(s.branchesByID))
	for _, b := range s.branchesByID {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].ID < branches[j].ID })
	return branches, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.auditLogs[i]
		if branchID != "" && entry.BranchID != branchID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrValidation
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func copyRecord(rec *domain.DailyRecord) *domain.DailyRecord {
	out := *rec
	if rec.Cashbook1 != nil {
		cb := *rec.Cashbook1
		out.Cashbook1 = &cb
	}
	if rec.Cashbook2 != nil {
		cb := *rec.Cashbook2
		out.Cashbook2 = &cb
	}
	if rec.BankStatement1 != nil {
		bs := *rec.BankStatement1
		out.BankStatement1 = &bs
	}
	if rec.BankStatement2 != nil {
		bs := *rec.BankStatement2
		out.BankStatement2 = &bs
	}
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
