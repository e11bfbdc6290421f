package reconciliation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"turapay/internal/gateway/gatewaytest"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/transfer"
	"turapay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []models.ReconciliationEntry
}

func (a *alertRecorder) TransferReviewed(context.Context, *models.User, *models.Transaction) error {
	return nil
}

func (a *alertRecorder) ReconciliationExhausted(_ context.Context, e *models.ReconciliationEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, *e)
	return nil
}

type flakyTransfers struct{ err error }

func (f flakyTransfers) Advance(context.Context, string, models.TransactionStatus, map[string]interface{}) (*models.Transaction, bool, error) {
	return nil, false, f.err
}

type fixedRates struct{}

func (fixedRates) Convert(context.Context, string, string) (float64, error) { return 27.5, nil }

type fixture struct {
	db      *gorm.DB
	entries repositories.ReconciliationRepository
	txRepo  repositories.TransactionRepository
	gw      *gatewaytest.MockClient
	alerts  *alertRecorder
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	gw := new(gatewaytest.MockClient)
	gw.On("Configured").Return(true).Maybe()
	return &fixture{
		db:      db,
		entries: repositories.NewReconciliationRepository(db),
		txRepo:  repositories.NewTransactionRepository(db),
		gw:      gw,
		alerts:  &alertRecorder{},
		clock:   time.Now(),
	}
}

func (f *fixture) worker(transfers TransferService, maxAttempts int) *Worker {
	w := NewWorker(f.entries, f.txRepo, transfers, f.gw, f.alerts, Options{MaxAttempts: maxAttempts})
	w.now = func() time.Time { return f.clock }
	return w
}

func (f *fixture) transfers() TransferService {
	return transfer.NewService(f.db, f.txRepo, repositories.NewUserRepository(f.db),
		repositories.NewSettingRepository(f.db), fixedRates{}, "ZMW")
}

func TestRun_RetriesStatusWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "r@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-1", sender.ID, models.StatusProcessing)
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-1", TargetStatus: models.StatusCompleted, MaxAttempts: 10,
	}))

	f.clock = time.Now().Add(time.Second)
	require.NoError(t, f.worker(f.transfers(), 10).Run(ctx))

	tx, err := f.txRepo.FindByID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.PaymentDate)

	resolved, _, err := f.entries.List(ctx, models.ReconcileResolved, 10, 0)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, 1, resolved[0].Attempts)
	assert.Empty(t, f.alerts.alerts)
}

func TestRun_StopsAfterMaxAttemptsAndAlertsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-down", TargetStatus: models.StatusCompleted, MaxAttempts: 3,
	}))

	w := f.worker(flakyTransfers{err: errors.New("connection refused")}, 3)
	for i := 0; i < 6; i++ {
		f.clock = f.clock.Add(time.Hour)
		require.NoError(t, w.Run(ctx))
	}

	exhausted, _, err := f.entries.List(ctx, models.ReconcileExhausted, 10, 0)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, 3, exhausted[0].Attempts)
	assert.Equal(t, "connection refused", exhausted[0].LastError)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestRun_BacksOffBetweenAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-wait", TargetStatus: models.StatusCompleted, MaxAttempts: 5,
	}))

	w := f.worker(flakyTransfers{err: errors.New("timeout")}, 5)
	f.clock = f.clock.Add(time.Second)
	require.NoError(t, w.Run(ctx))
	// Not due again yet.
	require.NoError(t, w.Run(ctx))

	open, _, err := f.entries.List(ctx, models.ReconcileOpen, 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 1, open[0].Attempts)
}

func TestRun_PollsGatewayForStuckPayouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "p@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-stuck", sender.ID, models.StatusProcessing)
	testutil.CreateTransaction(t, f.db, "tx-noref", sender.ID, models.StatusProcessing)
	require.NoError(t, f.txRepo.UpdateFields(ctx, "tx-stuck", map[string]interface{}{"payment_reference": "ref-stuck"}))

	f.gw.On("DisbursementStatus", mock.Anything, "ref-stuck").
		Return(models.JSON{"status": "Pending"}, nil).Once()
	f.gw.On("DisbursementStatus", mock.Anything, "ref-stuck").
		Return(models.JSON{"status": "Successful"}, nil).Once()

	w := f.worker(f.transfers(), 10)
	f.clock = time.Now().Add(10 * time.Minute)
	require.NoError(t, w.Run(ctx))

	tx, err := f.txRepo.FindByID(ctx, "tx-stuck")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, tx.Status)

	f.clock = f.clock.Add(time.Hour)
	require.NoError(t, w.Run(ctx))

	tx, err = f.txRepo.FindByID(ctx, "tx-stuck")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)

	all, total, err := f.entries.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "one poll entry, none for the payout without a reference")
	assert.Equal(t, models.ReconcileResolved, all[0].State)
	f.gw.AssertExpectations(t)
}

func TestRun_IllegalTargetExhaustsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "x@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-rejected", sender.ID, models.StatusRejected)
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-rejected", TargetStatus: models.StatusCompleted, MaxAttempts: 10,
	}))

	f.clock = time.Now().Add(time.Second)
	require.NoError(t, f.worker(f.transfers(), 10).Run(ctx))

	exhausted, _, err := f.entries.List(ctx, models.ReconcileExhausted, 10, 0)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, 1, exhausted[0].Attempts)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, backoff(1))
	assert.Equal(t, 5*time.Minute, backoff(5))
	assert.Equal(t, maxBackoff, backoff(100))
}

func TestRun_ExhaustedPollIsNotReopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "s@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-silent", sender.ID, models.StatusProcessing)
	require.NoError(t, f.txRepo.UpdateFields(ctx, "tx-silent", map[string]interface{}{"payment_reference": "ref"}))

	f.gw.On("DisbursementStatus", mock.Anything, "ref").Return(models.JSON{"status": "Pending"}, nil)

	w := f.worker(f.transfers(), 2)
	f.clock = time.Now().Add(10 * time.Minute)
	for i := 0; i < 20; i++ {
		f.clock = f.clock.Add(time.Hour)
		require.NoError(t, w.Run(ctx))
	}

	all, total, err := f.entries.List(ctx, "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.ReconcileExhausted, all[0].State)
	assert.Equal(t, 2, all[0].Attempts)
	assert.Len(t, f.alerts.alerts, 1)
	f.gw.AssertNumberOfCalls(t, "DisbursementStatus", 2)
}

func TestRun_StuckPayoutsDoNotStarveNewerOnes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "n@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-old", sender.ID, models.StatusProcessing)
	require.NoError(t, f.txRepo.UpdateFields(ctx, "tx-old", map[string]interface{}{"payment_reference": "ref-old"}))

	f.gw.On("DisbursementStatus", mock.Anything, "ref-old").Return(models.JSON{"status": "Pending"}, nil)
	f.gw.On("DisbursementStatus", mock.Anything, "ref-new").Return(models.JSON{"status": "Successful"}, nil)

	w := NewWorker(f.entries, f.txRepo, f.transfers(), f.gw, f.alerts, Options{MaxAttempts: 1, BatchSize: 1})
	f.clock = time.Now().Add(10 * time.Minute)
	w.now = func() time.Time { return f.clock }
	require.NoError(t, w.Run(ctx))

	testutil.CreateTransaction(t, f.db, "tx-new", sender.ID, models.StatusProcessing)
	require.NoError(t, f.txRepo.UpdateFields(ctx, "tx-new", map[string]interface{}{"payment_reference": "ref-new"}))
	f.clock = f.clock.Add(time.Hour)
	require.NoError(t, w.Run(ctx))

	tx, err := f.txRepo.FindByID(ctx, "tx-new")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
}

func TestRun_LinksQueuedPayoutReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "l@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-link", sender.ID, models.StatusPending)
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-link", ReferenceID: "ref-link",
		TargetStatus: models.StatusProcessing, MaxAttempts: 10,
	}))

	f.clock = time.Now().Add(time.Second)
	require.NoError(t, f.worker(f.transfers(), 10).Run(ctx))

	tx, err := f.txRepo.FindByID(ctx, "tx-link")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, tx.Status)
	assert.Equal(t, "ref-link", tx.PaymentReference)
}

func TestRun_UnlinkablePayoutAlertsWithReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "d@turapay.test", true)
	testutil.CreateTransaction(t, f.db, "tx-dep", sender.ID, models.StatusDeposited)
	require.NoError(t, f.entries.Create(ctx, &models.ReconciliationEntry{
		Kind: models.ReconcileStatusWrite, TransactionID: "tx-dep", ReferenceID: "ref-orphan",
		TargetStatus: models.StatusProcessing, MaxAttempts: 10,
	}))

	f.clock = time.Now().Add(time.Second)
	require.NoError(t, f.worker(f.transfers(), 10).Run(ctx))

	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, "ref-orphan", f.alerts.alerts[0].ReferenceID)
	assert.Equal(t, models.ReconcileExhausted, f.alerts.alerts[0].State)
}
