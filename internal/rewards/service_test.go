package rewards

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// fakeTransactionStore mimics the Postgres store's atomicity: the balance
// check and the insert happen under one lock.
type fakeTransactionStore struct {
	mu           sync.Mutex
	nextID       int64
	transactions []models.Transaction
	lastFilter   storage.TransactionFilter
}

func (f *fakeTransactionStore) CreateTransaction(ctx context.Context, t models.Transaction, enforceSenderBalance bool) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if enforceSenderBalance && f.balanceLocked(t.FromID) < t.Value {
		return models.Transaction{}, storage.ErrInsufficientBalance
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeTransactionStore) Balance(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceLocked(userID), nil
}

func (f *fakeTransactionStore) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]storage.TransactionRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return nil, 0, nil
}

func (f *fakeTransactionStore) balanceLocked(userID int64) int64 {
	var balance int64
	for _, t := range f.transactions {
		if t.UserID == userID {
			balance += t.Value
		}
		if t.FromID == userID {
			balance -= t.Value
		}
	}
	return balance
}

var (
	manager  = models.User{ID: 1, Username: "michael-scott", Dept: models.DeptManagement}
	employee = models.User{ID: 2, Username: "jim-halpert", Dept: "sales"}
	coworker = models.User{ID: 3, Username: "dwight-schrute", Dept: "sales"}
)

func TestBalance_NoTransactionsIsZero(t *testing.T) {
	svc := NewService(&fakeTransactionStore{})

	balance, err := svc.Balance(context.Background(), employee)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestPost_MovesValueBetweenUsers(t *testing.T) {
	svc := NewService(&fakeTransactionStore{})
	ctx := context.Background()

	_, err := svc.Post(ctx, employee, manager, 100)
	require.NoError(t, err)

	created, err := svc.Post(ctx, coworker, employee, 30)
	require.NoError(t, err)
	assert.Equal(t, employee.ID, created.FromID)
	assert.Equal(t, coworker.ID, created.UserID)
	assert.Equal(t, int64(30), created.Value)

	senderBalance, err := svc.Balance(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(70), senderBalance)

	recipientBalance, err := svc.Balance(ctx, coworker)
	require.NoError(t, err)
	assert.Equal(t, int64(30), recipientBalance)
}

func TestPost_RejectsNonPositiveValues(t *testing.T) {
	store := &fakeTransactionStore{}
	svc := NewService(store)
	ctx := context.Background()

	for _, value := range []int64{0, -5} {
		_, err := svc.Post(ctx, employee, manager, value)
		assert.ErrorIs(t, err, ErrInvalidAmount, "value %d", value)
	}
	assert.Empty(t, store.transactions, "no record may be created on rejection")
}

func TestPost_InsufficientBalanceLeavesNoPartialEffect(t *testing.T) {
	svc := NewService(&fakeTransactionStore{})
	ctx := context.Background()

	_, err := svc.Post(ctx, employee, manager, 10)
	require.NoError(t, err)

	_, err = svc.Post(ctx, coworker, employee, 15)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	balance, err := svc.Balance(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestPost_SuperuserIsExemptFromBalanceCheck(t *testing.T) {
	svc := NewService(&fakeTransactionStore{})
	ctx := context.Background()

	_, err := svc.Post(ctx, employee, manager, 1000)
	require.NoError(t, err)

	recipientBalance, err := svc.Balance(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), recipientBalance)

	senderBalance, err := svc.Balance(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), senderBalance)
}

func TestPost_ConcurrentSpendsCannotBothSucceed(t *testing.T) {
	svc := NewService(&fakeTransactionStore{})
	ctx := context.Background()

	// Budget covers exactly one of the two racing posts.
	_, err := svc.Post(ctx, employee, manager, 50)
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Post(ctx, coworker, employee, 50)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, storage.ErrInsufficientBalance)
			rejections++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)

	balance, err := svc.Balance(ctx, employee)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestList_RestrictsNonSuperusersToOwnTransactions(t *testing.T) {
	store := &fakeTransactionStore{}
	svc := NewService(store)
	ctx := context.Background()

	_, _, err := svc.List(ctx, employee, storage.TransactionFilter{})
	require.NoError(t, err)
	require.NotNil(t, store.lastFilter.PartyID)
	assert.Equal(t, employee.ID, *store.lastFilter.PartyID)

	_, _, err = svc.List(ctx, manager, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Nil(t, store.lastFilter.PartyID)
}
