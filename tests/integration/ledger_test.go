package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	financeapp "github.com/erp/tradecore/internal/application/finance"
	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/erp/tradecore/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LedgerTestSetup is a purchase order with a 30/70 schedule stored in PostgreSQL
type LedgerTestSetup struct {
	DB       *TestDB
	Service  *financeapp.LedgerService
	Payments *persistence.GormPaymentRepository
	TenantID uuid.UUID
	Order    *finance.PayableDocument
	Deposit  finance.ScheduleItem
	Balance  finance.ScheduleItem
}

func NewLedgerTestSetup(t *testing.T) *LedgerTestSetup {
	t.Helper()
	tdb := NewTestDB(t)
	ctx := context.Background()

	documents := persistence.NewGormPayableDocumentRepository(tdb.DB)
	schedule := persistence.NewGormScheduleRepository(tdb.DB)
	payments := persistence.NewGormPaymentRepository(tdb.DB)

	tenantID := uuid.New()
	order, err := finance.NewPayableDocument(tenantID, finance.DocumentPurchaseOrder, "PO-00001", stamp())
	require.NoError(t, err)
	require.NoError(t, documents.Save(ctx, order))

	deposit, err := finance.NewScheduleItem(order.Ref(), "30% deposit", 1, valueobject.AmountFromMajor(3000))
	require.NoError(t, err)
	balance, err := finance.NewScheduleItem(order.Ref(), "70% balance", 2, valueobject.AmountFromMajor(7000))
	require.NoError(t, err)
	require.NoError(t, schedule.SaveItems(ctx, tenantID, []finance.ScheduleItem{*deposit, *balance}))

	svc := financeapp.NewLedgerService(financeapp.Repositories{
		Documents: documents,
		Statuses:  documents,
		Schedule:  schedule,
		Payments:  payments,
		Costs:     persistence.NewGormCostRepository(tdb.DB),
	}, finance.DefaultRuleTable(), financeapp.WithTransactionRunner(persistence.NewTransactionManager(tdb.DB)))

	return &LedgerTestSetup{
		DB:       tdb,
		Service:  svc,
		Payments: payments,
		TenantID: tenantID,
		Order:    order,
		Deposit:  *deposit,
		Balance:  *balance,
	}
}

func (s *LedgerTestSetup) newPayment(t *testing.T, number string, major int64) *finance.Payment {
	t.Helper()
	payment, err := finance.NewPayment(s.TenantID, number, valueobject.AmountFromMajor(major), stamp())
	require.NoError(t, err)
	require.NoError(t, s.Payments.Save(context.Background(), payment))
	return payment
}

func stamp() shared.Stamp {
	return shared.NewStamp(uuid.New(), time.Now().UTC())
}

func TestLedger_StagedPaymentsUnblockTransitions(t *testing.T) {
	s := NewLedgerTestSetup(t)
	ctx := context.Background()
	ref := s.Order.Ref()

	_, err := s.Service.ChangeStatus(ctx, s.TenantID, ref, finance.StatusConfirmed, stamp())
	require.NoError(t, err)

	// production waits for the deposit
	_, err = s.Service.ChangeStatus(ctx, s.TenantID, ref, finance.StatusInProduction, stamp())
	var blocked *finance.TransitionBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, []string{"30% deposit"}, blocked.Labels())

	payment := s.newPayment(t, "PAY-000001", 3000)
	_, err = s.Service.AllocatePayment(ctx, s.TenantID, payment.ID, s.Deposit.ID, valueobject.AmountFromMajor(3000), stamp())
	require.NoError(t, err)

	// pending payments do not count yet
	check, err := s.Service.CheckTransition(ctx, s.TenantID, ref, finance.StatusInProduction)
	require.NoError(t, err)
	assert.False(t, check.Allowed)

	require.NoError(t, s.Service.ApprovePayment(ctx, s.TenantID, payment.ID, stamp()))

	doc, err := s.Service.ChangeStatus(ctx, s.TenantID, ref, finance.StatusInProduction, stamp())
	require.NoError(t, err)
	assert.Equal(t, "IN_PRODUCTION", doc.Status)
	assert.Equal(t, 3, doc.Version)

	// shipment still waits for the balance
	check, err = s.Service.CheckTransition(ctx, s.TenantID, ref, finance.StatusShipped)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	require.Len(t, check.Blockers, 1)
	assert.Equal(t, "70% balance", check.Blockers[0].Label)
	assert.True(t, check.Blockers[0].Remaining.Equal(decimal.NewFromInt(7000)))

	summary, err := s.Service.Summary(ctx, s.TenantID, ref)
	require.NoError(t, err)
	assert.True(t, summary.ScheduleTotal.Equal(decimal.NewFromInt(10000)))
	assert.True(t, summary.PaidTotal.Equal(decimal.NewFromInt(3000)))
	assert.True(t, summary.Remaining.Equal(decimal.NewFromInt(7000)))
	assert.True(t, summary.ProgressPercent.Equal(decimal.NewFromInt(30)))
	assert.False(t, summary.Settled)
}

func TestLedger_ConcurrentAllocationsNeverExceedPayment(t *testing.T) {
	s := NewLedgerTestSetup(t)
	ctx := context.Background()
	payment := s.newPayment(t, "PAY-000002", 1000)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Service.AllocatePayment(ctx, s.TenantID, payment.ID, s.Balance.ID, valueobject.AmountFromMajor(300), stamp())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrOverAllocation):
				rejected++
			default:
				t.Errorf("unexpected allocation error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)

	stored, err := s.Payments.FindByIDForTenant(ctx, s.TenantID, payment.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Allocations, 3)
	assert.True(t, stored.UnallocatedAmount().Major().Equal(decimal.NewFromInt(100)))
}

func TestLedger_TenantsAreIsolated(t *testing.T) {
	s := NewLedgerTestSetup(t)
	ctx := context.Background()

	other := uuid.New()

	// another tenant sees no schedule for the same document id
	summary, err := s.Service.Summary(ctx, other, s.Order.Ref())
	require.NoError(t, err)
	assert.True(t, summary.ScheduleTotal.IsZero())
	assert.Empty(t, summary.Items)

	_, err = s.Service.ChangeStatus(ctx, other, s.Order.Ref(), finance.StatusConfirmed, stamp())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	payment := s.newPayment(t, "PAY-000003", 500)
	err = s.Service.ApprovePayment(ctx, other, payment.ID, stamp())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.Service.AllocatePayment(ctx, other, payment.ID, s.Deposit.ID, valueobject.AmountFromMajor(100), stamp())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
