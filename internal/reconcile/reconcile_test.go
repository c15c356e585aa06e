package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-deposits-go/internal/database"
	"storefront-deposits-go/internal/fees"
	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/processor"
	"storefront-deposits-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	getCapture   func(ctx context.Context, id string) (*models.Capture, error)
	getOrder     func(ctx context.Context, id string) (*models.Order, error)
	captureCalls int32
}

func (m *mockProvider) GetCapture(ctx context.Context, id string) (*models.Capture, error) {
	atomic.AddInt32(&m.captureCalls, 1)
	if m.getCapture == nil {
		return nil, store.ErrProviderNotFound
	}
	return m.getCapture(ctx, id)
}

func (m *mockProvider) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if m.getOrder == nil {
		return nil, store.ErrProviderNotFound
	}
	return m.getOrder(ctx, id)
}

type recordingMirror struct {
	mu      sync.Mutex
	entries []store.MirrorEntry
}

func (m *recordingMirror) Mirror(_ context.Context, entry store.MirrorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

type fixture struct {
	db     *database.Service
	proc   *processor.Processor
	mirror *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:          "sqlite3",
		Path:            filepath.Join(t.TempDir(), "reconcile.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return &fixture{
		db:     db,
		proc:   processor.New(db, idempotency.NewGuard(db, nil), nil, processor.Options{}),
		mirror: &recordingMirror{},
	}
}

func (f *fixture) reconciler(provider Provider, opts Options) *Reconciler {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return New(f.db, f.proc, provider, f.mirror, opts)
}

func (f *fixture) profile(t *testing.T, userId string) {
	t.Helper()
	_, err := f.db.CreateProfile(context.Background(), userId, userId+"@example.com")
	require.NoError(t, err)
}

func (f *fixture) deposit(t *testing.T, userId string, gross int64) *models.Deposit {
	t.Helper()
	amount := decimal.NewFromInt(gross)
	d, err := f.db.CreateDeposit(context.Background(), store.CreateDepositParams{
		UserId:    userId,
		Amount:    amount,
		NetAmount: fees.Default().NetAmount(amount),
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) pendingWithTx(t *testing.T, d *models.Deposit, txId string) {
	t.Helper()
	_, err := f.db.UpdateDepositProcessing(context.Background(), store.UpdateDepositParams{
		DepositId:     d.Id,
		Status:        models.DepositStatusPending,
		TransactionId: txId,
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userId string) decimal.Decimal {
	t.Helper()
	b, err := f.db.GetUserBalance(context.Background(), userId)
	require.NoError(t, err)
	require.NotNil(t, b)
	return *b
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "expected %s, got %s", want, got.String())
}

func TestProcessAllPendingDeposits_Empty(t *testing.T) {
	f := newFixture(t)
	result, err := f.reconciler(nil, Options{}).ProcessAllPendingDeposits(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Count)
}

func TestProcessAllPendingDeposits_ReplaysBacklog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	f.profile(t, "u2")

	pending := f.deposit(t, "u1", 100)
	f.pendingWithTx(t, pending, "TX-PENDING")

	uncredited := f.deposit(t, "u2", 50)
	require.NoError(t, f.db.AttachTransactionId(ctx, uncredited.Id, "TX-UNCREDITED"))

	credited := f.deposit(t, "u2", 10)
	require.NoError(t, f.db.AttachTransactionId(ctx, credited.Id, "TX-CREDITED"))
	_, err := f.proc.ProcessDepositBalance(ctx, credited.Id)
	require.NoError(t, err)

	untouched := f.deposit(t, "u1", 20)

	result, err := f.reconciler(nil, Options{BatchConcurrency: 2}).ProcessAllPendingDeposits(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	assertDecimal(t, "95.80", f.balance(t, "u1"))
	assertDecimal(t, "57.06", f.balance(t, "u2"))

	d, err := f.db.FindDepositById(ctx, untouched.Id)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusPending, d.Status)
}

func TestProcessAllPendingDeposits_CountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")

	ok := f.deposit(t, "u1", 100)
	f.pendingWithTx(t, ok, "TX-OK")
	orphan := f.deposit(t, "nobody", 100)
	f.pendingWithTx(t, orphan, "TX-ORPHAN")

	result, err := f.reconciler(nil, Options{}).ProcessAllPendingDeposits(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assertDecimal(t, "95.80", f.balance(t, "u1"))
}

func TestProcessAllPendingDeposits_SkipsOldCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)
	require.NoError(t, f.db.AttachTransactionId(ctx, d.Id, "TX-OLD"))

	r := f.reconciler(nil, Options{})
	r.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	result, err := r.ProcessAllPendingDeposits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assertDecimal(t, "0", f.balance(t, "u1"))
}

func TestReconcileUserBalance_AppliesDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)
	require.NoError(t, f.db.AttachTransactionId(ctx, d.Id, "TX-DRIFT"))
	_, err := f.proc.ProcessDepositBalance(ctx, d.Id)
	require.NoError(t, err)

	// Drift the stored balance away from the ledger.
	require.NoError(t, f.db.AddBalance(ctx, "u1", decimal.RequireFromString("5.00")))

	result, err := f.reconciler(nil, Options{}).ReconcileUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assertDecimal(t, "100.80", result.OldBalance)
	assertDecimal(t, "95.80", result.CalculatedBalance)
	assertDecimal(t, "95.80", result.NewBalance)
	assertDecimal(t, "-5", result.Difference)
	assertDecimal(t, "95.80", f.balance(t, "u1"))

	require.Len(t, f.mirror.entries, 1)
	assert.Equal(t, "adjustment", f.mirror.entries[0].Kind)
	assertDecimal(t, "-5", f.mirror.entries[0].Amount)

	history, err := f.db.GetTransactionHistory(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "adjustments do not add ledger rows")
}

func TestReconcileUserBalance_WithinTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	require.NoError(t, f.db.AddBalance(ctx, "u1", decimal.RequireFromString("0.01")))

	result, err := f.reconciler(nil, Options{}).ReconcileUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, result.Adjusted)
	assertDecimal(t, "0.01", f.balance(t, "u1"))
	assert.Empty(t, f.mirror.entries)
}

func TestReconcileUserBalance_Errors(t *testing.T) {
	f := newFixture(t)
	r := f.reconciler(nil, Options{})

	_, err := r.ReconcileUserBalance(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrProfileNotFound))

	_, err = r.ReconcileUserBalance(context.Background(), "")
	assert.True(t, errors.Is(err, store.ErrValidation))
}

func TestReconcileAllUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	f.profile(t, "u2")
	require.NoError(t, f.db.AddBalance(ctx, "u2", decimal.NewFromInt(3)))

	results, err := f.reconciler(nil, Options{}).ReconcileAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assertDecimal(t, "0", f.balance(t, "u2"))
}

func TestProcessSpecificTransaction_ProviderCapture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)

	provider := &mockProvider{
		getCapture: func(_ context.Context, id string) (*models.Capture, error) {
			return &models.Capture{Id: id, Status: "COMPLETED", CustomId: d.Id}, nil
		},
	}
	result, err := f.reconciler(provider, Options{ManualRetries: 2}).ProcessSpecificTransaction(ctx, "CAP-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCredited, result.Outcome)
	assertDecimal(t, "95.80", f.balance(t, "u1"))

	stored, err := f.db.FindDepositById(ctx, d.Id)
	require.NoError(t, err)
	assert.Equal(t, "paypal-CAP-1-PAYMENT.CAPTURE.COMPLETED", stored.IdempotencyKey.String)

	again, err := f.reconciler(provider, Options{}).ProcessSpecificTransaction(ctx, "CAP-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyProcessed, again.Outcome)
	assertDecimal(t, "95.80", f.balance(t, "u1"))
}

func TestProcessSpecificTransaction_ProviderOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 50)

	provider := &mockProvider{
		getOrder: func(_ context.Context, id string) (*models.Order, error) {
			return &models.Order{
				Id:     id,
				Status: "COMPLETED",
				Payer:  &models.Payer{EmailAddress: "p@example.com"},
				PurchaseUnits: []models.PurchaseUnit{{
					CustomId: d.Id,
					Payments: &models.Payments{Captures: []models.Capture{{Id: "CAP-9", Status: "COMPLETED"}}},
				}},
			}, nil
		},
	}
	result, err := f.reconciler(provider, Options{}).ProcessSpecificTransaction(ctx, "ORDER-9")
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, err := f.db.FindDepositById(ctx, d.Id)
	require.NoError(t, err)
	assert.Equal(t, "CAP-9", stored.TransactionId.String)
	assert.Equal(t, "p@example.com", stored.PayerEmail.String)
	assertDecimal(t, "47.75", f.balance(t, "u1"))
}

func TestProcessSpecificTransaction_RetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)

	var calls int32
	provider := &mockProvider{
		getCapture: func(_ context.Context, id string) (*models.Capture, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, store.ErrProviderUnavailable
			}
			return &models.Capture{Id: id, Status: "COMPLETED", CustomId: d.Id}, nil
		},
	}
	result, err := f.reconciler(provider, Options{ManualRetries: 2}).ProcessSpecificTransaction(ctx, "CAP-R")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCredited, result.Outcome)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProcessSpecificTransaction_FallsBackToDirectCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)
	f.pendingWithTx(t, d, "TX-DOWN")

	provider := &mockProvider{
		getCapture: func(context.Context, string) (*models.Capture, error) {
			return nil, store.ErrProviderUnavailable
		},
	}
	result, err := f.reconciler(provider, Options{ManualRetries: 2}).ProcessSpecificTransaction(ctx, "TX-DOWN")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&provider.captureCalls))
	assertDecimal(t, "95.80", f.balance(t, "u1"))
}

func TestProcessSpecificTransaction_NothingMatches(t *testing.T) {
	f := newFixture(t)
	provider := &mockProvider{}

	result, err := f.reconciler(provider, Options{}).ProcessSpecificTransaction(context.Background(), "TX-NOWHERE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrProviderNotFound))
	assert.False(t, result.Success)
	assert.Equal(t, "transaction not found at provider", result.Message)
}

func TestProcessSpecificTransaction_UnknownAtProviderIsNotCredited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)

	result, err := f.reconciler(&mockProvider{}, Options{ManualRetries: 2}).ProcessSpecificTransaction(ctx, d.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrProviderNotFound))
	assert.False(t, result.Success)
	assertDecimal(t, "0", f.balance(t, "u1"))

	stored, err := f.db.FindDepositById(ctx, d.Id)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusPending, stored.Status)
	assert.False(t, stored.IsProcessed)
}

func TestProcessSpecificTransaction_FallbackRefusesUnpaidDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)

	provider := &mockProvider{
		getCapture: func(context.Context, string) (*models.Capture, error) {
			return nil, store.ErrProviderUnavailable
		},
	}
	result, err := f.reconciler(provider, Options{ManualRetries: 1}).ProcessSpecificTransaction(ctx, d.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrValidation))
	assert.False(t, result.Success)
	assertDecimal(t, "0", f.balance(t, "u1"))
}

func TestProcessSpecificTransaction_WithoutProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "u1")
	d := f.deposit(t, "u1", 100)
	r := f.reconciler(nil, Options{})

	// Nothing attached yet: local records cannot prove payment.
	result, err := r.ProcessSpecificTransaction(ctx, d.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrValidation))
	assert.False(t, result.Success)
	assertDecimal(t, "0", f.balance(t, "u1"))

	require.NoError(t, f.db.AttachTransactionId(ctx, d.Id, "TX-LOCAL"))
	result, err = r.ProcessSpecificTransaction(ctx, "TX-LOCAL")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assertDecimal(t, "95.80", f.balance(t, "u1"))

	_, err = r.ProcessSpecificTransaction(ctx, "")
	assert.True(t, errors.Is(err, store.ErrValidation))
}
