package contribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MockPaymentRepository is a mock implementation of contribution.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*contribution.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByMember(ctx context.Context, memberID uuid.UUID, filter shared.Filter) ([]contribution.Payment, error) {
	args := m.Called(ctx, memberID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contribution.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *contribution.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockAllocationRepository is a mock implementation of contribution.AllocationRepository
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) SaveAll(ctx context.Context, allocations []*contribution.ContributionAllocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *MockAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]contribution.ContributionAllocation, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contribution.ContributionAllocation), args.Error(1)
}

func (m *MockAllocationRepository) SumByMemberPeriod(ctx context.Context, memberID uuid.UUID, period contribution.Period) (decimal.Decimal, error) {
	args := m.Called(ctx, memberID, period)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAllocationRepository) SumsByMember(ctx context.Context, memberID uuid.UUID) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// MockPenaltyRepository is a mock implementation of contribution.PenaltyRepository
type MockPenaltyRepository struct {
	mock.Mock
}

func (m *MockPenaltyRepository) FindByID(ctx context.Context, id uuid.UUID) (*contribution.Penalty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) FindByMemberPeriod(ctx context.Context, memberID uuid.UUID, period contribution.Period) (*contribution.Penalty, error) {
	args := m.Called(ctx, memberID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) FindAll(ctx context.Context, filter contribution.PenaltyFilter) ([]contribution.Penalty, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contribution.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) FindUnpaid(ctx context.Context) ([]contribution.Penalty, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contribution.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) Create(ctx context.Context, penalty *contribution.Penalty) error {
	args := m.Called(ctx, penalty)
	return args.Error(0)
}

func (m *MockPenaltyRepository) Update(ctx context.Context, penalty *contribution.Penalty) error {
	args := m.Called(ctx, penalty)
	return args.Error(0)
}

// MockMemberDirectory is a mock implementation of contribution.MemberDirectory
type MockMemberDirectory struct {
	mock.Mock
}

func (m *MockMemberDirectory) GetMember(ctx context.Context, id uuid.UUID) (*contribution.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contribution.Member), args.Error(1)
}

func (m *MockMemberDirectory) ListActiveMembers(ctx context.Context) ([]contribution.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contribution.Member), args.Error(1)
}

// stubSettingsStore serves a fixed configuration snapshot
type stubSettingsStore struct {
	cfg contribution.Settings
}

func (s stubSettingsStore) Get(ctx context.Context, key, def string) (string, error) {
	return def, nil
}

func (s stubSettingsStore) Set(ctx context.Context, key, value, description string) error {
	return nil
}

func (s stubSettingsStore) Snapshot(ctx context.Context) (contribution.Settings, error) {
	return s.cfg, nil
}

// passthroughUnitOfWork runs the function directly, without a transaction
type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryEntryRepo is an in-memory ledger.JournalEntryRepository backing the
// real journal service in engine tests, so posted entries and reversals can
// be inspected after the fact.
type memoryEntryRepo struct {
	entries map[uuid.UUID]*ledger.JournalEntry
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{entries: make(map[uuid.UUID]*ledger.JournalEntry)}
}

func (r *memoryEntryRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

func (r *memoryEntryRepo) FindByNumber(ctx context.Context, entryNumber string) (*ledger.JournalEntry, error) {
	for _, entry := range r.entries {
		if entry.EntryNumber == entryNumber {
			return entry, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryEntryRepo) FindAll(ctx context.Context, filter ledger.EntryFilter) ([]ledger.JournalEntry, error) {
	result := make([]ledger.JournalEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	return result, nil
}

func (r *memoryEntryRepo) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryEntryRepo) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	delete(r.entries, id)
	return nil
}

func (r *memoryEntryRepo) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	return int64(len(r.entries)), nil
}

// byStatus returns the entries currently in the given status
func (r *memoryEntryRepo) byStatus(status ledger.EntryStatus) []*ledger.JournalEntry {
	var result []*ledger.JournalEntry
	for _, entry := range r.entries {
		if entry.Status == status {
			result = append(result, entry)
		}
	}
	return result
}

// memoryAccountRepo is an in-memory ledger.AccountRepository holding the
// fixture chart of accounts
type memoryAccountRepo struct {
	byCode map[string]*ledger.Account
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{byCode: make(map[string]*ledger.Account)}
}

func (r *memoryAccountRepo) add(t *testing.T, code, name string, accountType ledger.AccountType) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(code, name, accountType, "", decimal.Zero)
	require.NoError(t, err)
	r.byCode[code] = account
	return account
}

func (r *memoryAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	for _, account := range r.byCode {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAccountRepo) FindByCode(ctx context.Context, code string) (*ledger.Account, error) {
	account, ok := r.byCode[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return account, nil
}

func (r *memoryAccountRepo) FindByCodes(ctx context.Context, codes []string) (map[string]*ledger.Account, error) {
	result := make(map[string]*ledger.Account, len(codes))
	for _, code := range codes {
		if account, ok := r.byCode[code]; ok {
			result[code] = account
		}
	}
	return result, nil
}

func (r *memoryAccountRepo) FindAll(ctx context.Context, filter ledger.AccountFilter) ([]ledger.Account, error) {
	result := make([]ledger.Account, 0, len(r.byCode))
	for _, account := range r.byCode {
		result = append(result, *account)
	}
	return result, nil
}

func (r *memoryAccountRepo) Count(ctx context.Context, filter ledger.AccountFilter) (int64, error) {
	return int64(len(r.byCode)), nil
}

func (r *memoryAccountRepo) FindChildren(ctx context.Context, parentID uuid.UUID) ([]ledger.Account, error) {
	return nil, nil
}

func (r *memoryAccountRepo) Save(ctx context.Context, account *ledger.Account) error {
	r.byCode[account.Code] = account
	return nil
}

func (r *memoryAccountRepo) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	account, err := r.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	account.CurrentBalance = account.CurrentBalance.Add(delta)
	return nil
}

func (r *memoryAccountRepo) HasPostedLines(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memoryAccountRepo) SumPostedLines(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// ledgerFixture is a real journal service over in-memory stores, seeded with
// the system chart of accounts the engines post against
type ledgerFixture struct {
	journal  *ledgerapp.JournalService
	entries  *memoryEntryRepo
	accounts *memoryAccountRepo
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	entries := newMemoryEntryRepo()
	accounts := newMemoryAccountRepo()
	accounts.add(t, "1000", "Cash", ledger.AccountTypeAsset)
	accounts.add(t, "4000", "Contribution Revenue", ledger.AccountTypeRevenue)
	accounts.add(t, "1100", "Penalty Receivable", ledger.AccountTypeAsset)
	accounts.add(t, "4100", "Penalty Income", ledger.AccountTypeRevenue)

	journal := ledgerapp.NewJournalService(entries, accounts, passthroughUnitOfWork{}, shared.NopAuditSink{}, zap.NewNop())
	return &ledgerFixture{journal: journal, entries: entries, accounts: accounts}
}

func (f *ledgerFixture) balance(code string) decimal.Decimal {
	return f.accounts.byCode[code].CurrentBalance
}
