package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zenith.dev/telegram-bot/internal/common"
	"zenith.dev/telegram-bot/internal/features/users"
	"zenith.dev/telegram-bot/internal/render"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetBalance(ctx context.Context, userID int64, bucket Bucket) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, bucket)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockStore) Balances(ctx context.Context, userID int64) (Balances, error) {
	args := m.Called(ctx, userID)
	b, _ := args.Get(0).(Balances)
	return b, args.Error(1)
}

func (m *mockStore) Deposit(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, bucket, amount, description)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockStore) Withdraw(ctx context.Context, userID int64, bucket Bucket, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, bucket, amount, description)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockStore) Transfer(ctx context.Context, req TransferRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockStore) History(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	args := m.Called(ctx, userID, limit)
	list, _ := args.Get(0).([]*Transaction)
	return list, args.Error(1)
}

// directory — справочник пользователей в памяти.
type directory map[int64]*users.User

func (d directory) GetByUserID(_ context.Context, userID int64) (*users.User, error) {
	if u, ok := d[userID]; ok {
		return u, nil
	}
	return nil, common.ErrUserNotFound
}

func (d directory) Resolve(ctx context.Context, ref string) (*users.User, error) {
	for _, u := range d {
		if "@"+u.Username == ref {
			return u, nil
		}
	}
	return nil, common.ErrUserNotFound
}

type fakePresenter struct {
	mu      sync.Mutex
	screens []render.Screen
}

func (p *fakePresenter) Present(_ context.Context, _, _ int64, s render.Screen) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screens = append(p.screens, s)
	return nil
}

func (p *fakePresenter) Clear(int64) {}

type staticAdmins map[int64]bool

func (a staticAdmins) IsAdmin(userID int64) bool { return a[userID] }

var people = directory{
	1: {UserID: 1, FirstName: "Ann", Username: "ann"},
	2: {UserID: 2, FirstName: "Bob", Username: "bob"},
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    int64
		to      int64
		amount  string
		wantErr error
	}{
		{name: "self transfer", from: 1, to: 1, amount: "10", wantErr: common.ErrSelfTransfer},
		{name: "zero amount", from: 1, to: 2, amount: "0", wantErr: common.ErrInvalidAmount},
		{name: "negative amount", from: 1, to: 2, amount: "-5", wantErr: common.ErrInvalidAmount},
		{name: "three decimals", from: 1, to: 2, amount: "1.005", wantErr: common.ErrInvalidAmount},
		{name: "unknown recipient", from: 1, to: 77, amount: "1", wantErr: common.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			svc := NewService(store, people, 10)

			err := svc.Transfer(ctx, tt.from, tt.to, BucketBonus, decimal.RequireFromString(tt.amount), "")
			assert.ErrorIs(t, err, tt.wantErr)
			store.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
		})
	}
}

func TestTransferDescriptions(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	amount := decimal.NewFromInt(30)

	store.On("Transfer", ctx, TransferRequest{
		From:            1,
		To:              2,
		Bucket:          BucketRubles,
		Amount:          amount,
		FromDescription: "Перевод пользователю 2: за обед",
		ToDescription:   "Перевод от пользователя 1: за обед",
	}).Return(nil)

	require.NoError(t, NewService(store, people, 10).Transfer(ctx, 1, 2, BucketRubles, amount, "за обед"))
	store.AssertExpectations(t)
}

func TestWithdrawPropagatesInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	amount := decimal.NewFromInt(150)

	store.On("Withdraw", ctx, int64(1), BucketBonus, amount, "").
		Return(decimal.Zero, common.ErrInsufficientFunds)

	_, err := NewService(store, people, 10).Withdraw(ctx, 1, BucketBonus, amount, "")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	_, ok := common.UserMessage(err)
	assert.True(t, ok)
}

// lockedStore моделирует блокировку строки: списание проверяет и меняет
// остаток под одним мьютексом, как SELECT ... FOR UPDATE в транзакции.
type lockedStore struct {
	mockStore
	mu       sync.Mutex
	balances Balances
}

func (s *lockedStore) Withdraw(_ context.Context, userID int64, bucket Bucket, amount decimal.Decimal, _ string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.balances.Get(bucket)
	if current.LessThan(amount) {
		return decimal.Zero, common.ErrInsufficientFunds
	}
	s.balances[bucket] = current.Sub(amount)
	return s.balances[bucket], nil
}

func TestConcurrentWithdrawNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	store := &lockedStore{balances: Balances{BucketBonus: decimal.NewFromInt(100)}}
	service := NewService(store, people, 10)
	amount := decimal.NewFromInt(10)

	const attempts = 50
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balance, err := service.Withdraw(ctx, 1, BucketBonus, amount, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				assert.False(t, balance.IsNegative())
				succeeded++
			case errors.Is(err, common.ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, attempts-10, insufficient)
	assert.True(t, store.balances.Get(BucketBonus).IsZero())
}

func TestHistoryUsesLimit(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	store.On("History", ctx, int64(1), 7).Return([]*Transaction{}, nil)

	_, err := NewService(store, people, 7).History(ctx, 1)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestParseBucketAndAmount(t *testing.T) {
	b, err := ParseBucket("Рубли")
	require.NoError(t, err)
	assert.Equal(t, BucketRubles, b)

	_, err = ParseBucket("euro")
	assert.ErrorIs(t, err, common.ErrUnknownBucket)

	a, err := ParseAmount("10,5")
	require.NoError(t, err)
	assert.Equal(t, "10.50", a.StringFixed(2))

	for _, bad := range []string{"abc", "0", "-1", "0.001", "1000000000000"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, common.ErrInvalidAmount, bad)
	}
}

func TestHandlerTransferRendersResult(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	store.On("Transfer", ctx, mock.AnythingOfType("ledger.TransferRequest")).Return(nil)
	store.On("GetBalance", ctx, int64(1), BucketBonus).Return(decimal.NewFromInt(70), nil)

	p := &fakePresenter{}
	h := NewHandler(NewService(store, people, 10), people, p, staticAdmins{})

	require.NoError(t, h.Transfer(ctx, 1, 1, []string{"@bob", "бонусы", "30"}))
	require.Len(t, p.screens, 1)
	assert.Contains(t, p.screens[0].Text, "Получатель: @bob")
	assert.Contains(t, p.screens[0].Text, "Остаток: 70.00")
}

func TestHandlerTransferBadArguments(t *testing.T) {
	h := NewHandler(NewService(new(mockStore), people, 10), people, &fakePresenter{}, staticAdmins{})
	err := h.Transfer(context.Background(), 1, 1, []string{"@bob"})
	assert.ErrorIs(t, err, common.ErrBadArguments)
}

func TestAdminDepositRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	p := &fakePresenter{}
	h := NewHandler(NewService(store, people, 10), people, p, staticAdmins{1: true})

	err := h.AdminDeposit(ctx, 2, 2, []string{"2", "bonus", "100"})
	assert.ErrorIs(t, err, common.ErrNotAdmin)
	assert.Empty(t, p.screens)
	store.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	hundred := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(100)) })
	store.On("Deposit", ctx, int64(2), BucketBonus, hundred, "Операция администратора 1").
		Return(decimal.NewFromInt(100), nil)
	require.NoError(t, h.AdminDeposit(ctx, 1, 1, []string{"2", "bonus", "100"}))
	assert.Contains(t, p.screens[0].Text, "Новый остаток: 100.00")
}

func TestHistoryText(t *testing.T) {
	assert.Contains(t, HistoryText(nil), "Операций пока нет")

	text := HistoryText([]*Transaction{{
		Bucket: BucketBonus, Amount: decimal.NewFromInt(-5), Kind: KindTransfer,
		Description: "Перевод пользователю 2", CreatedAt: time.Now(),
	}})
	assert.Contains(t, text, "-5.00 💎 Бонусные баллы (перевод)")
	assert.Contains(t, text, "Перевод пользователю 2")
}

func TestBalanceText(t *testing.T) {
	text := BalanceText(Balances{BucketRubles: decimal.RequireFromString("3.5")})
	assert.Contains(t, text, "💎 Бонусные баллы: 0.00")
	assert.Contains(t, text, "💵 Рубли: 3.50")
}
