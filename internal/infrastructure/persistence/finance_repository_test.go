package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type financeFixture struct {
	docs     *GormPayableDocumentRepository
	schedule *GormScheduleRepository
	payments *GormPaymentRepository
	costs    *GormCostRepository
	tenantID uuid.UUID
	doc      *finance.PayableDocument
}

func newFinanceFixture(t *testing.T) *financeFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &financeFixture{
		docs:     NewGormPayableDocumentRepository(db),
		schedule: NewGormScheduleRepository(db),
		payments: NewGormPaymentRepository(db),
		costs:    NewGormCostRepository(db),
		tenantID: uuid.New(),
	}
	doc, err := finance.NewPayableDocument(f.tenantID, finance.DocumentPurchaseOrder, "PO-00001", testStamp())
	require.NoError(t, err)
	require.NoError(t, f.docs.Save(context.Background(), doc))
	f.doc = doc
	return f
}

func (f *financeFixture) addItem(t *testing.T, label string, sortOrder int, major int64) finance.ScheduleItem {
	t.Helper()
	item, err := finance.NewScheduleItem(f.doc.Ref(), label, sortOrder, valueobject.AmountFromMajor(major))
	require.NoError(t, err)
	require.NoError(t, f.schedule.SaveItems(context.Background(), f.tenantID, []finance.ScheduleItem{*item}))
	return *item
}

func (f *financeFixture) pay(t *testing.T, number string, item finance.ScheduleItem, major int64, approve bool) *finance.Payment {
	t.Helper()
	stamp := testStamp()
	payment, err := finance.NewPayment(f.tenantID, number, valueobject.AmountFromMajor(major), stamp)
	require.NoError(t, err)
	_, err = payment.Allocate(item, valueobject.AmountFromMajor(major), stamp)
	require.NoError(t, err)
	if approve {
		require.NoError(t, payment.Approve(stamp))
	}
	require.NoError(t, f.payments.Save(context.Background(), payment))
	return payment
}

func TestGormPayableDocumentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("finds by ref and number within the tenant", func(t *testing.T) {
		f := newFinanceFixture(t)

		byRef, err := f.docs.FindByRef(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		assert.Equal(t, "PO-00001", byRef.Number)
		assert.Equal(t, finance.StatusDraft, byRef.Status)
		assert.Equal(t, 1, byRef.Version)

		_, err = f.docs.FindByNumber(ctx, uuid.New(), finance.DocumentPurchaseOrder, "PO-00001")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = f.docs.FindByRef(ctx, f.tenantID, finance.DocumentRef{Kind: finance.DocumentShipment, ID: f.doc.ID})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("saves status with optimistic locking", func(t *testing.T) {
		f := newFinanceFixture(t)
		stamp := testStamp()

		doc, err := f.docs.FindByRef(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		require.NoError(t, doc.TransitionTo(finance.StatusConfirmed, stamp))
		require.NoError(t, f.docs.SaveStatus(ctx, doc))

		stored, err := f.docs.FindByRef(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		assert.Equal(t, finance.StatusConfirmed, stored.Status)
		assert.Equal(t, 2, stored.Version)
		require.NotNil(t, stored.StatusChangedBy)
		assert.Equal(t, stamp.ActorID, *stored.StatusChangedBy)

		// a stale copy loses
		stale := *f.doc
		require.NoError(t, stale.TransitionTo(finance.StatusCancelled, stamp))
		err = f.docs.SaveStatus(ctx, &stale)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "modified by another transaction")
	})
}

func TestGormScheduleRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("returns items in sort order", func(t *testing.T) {
		f := newFinanceFixture(t)
		balance := f.addItem(t, "70% balance", 2, 7000)
		deposit := f.addItem(t, "30% deposit", 1, 3000)

		items, err := f.schedule.ScheduleItems(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, deposit.ID, items[0].ID)
		assert.Equal(t, balance.ID, items[1].ID)
		assert.Equal(t, valueobject.AmountFromMajor(3000), items[0].Amount)

		found, err := f.schedule.FindItem(ctx, f.tenantID, balance.ID)
		require.NoError(t, err)
		assert.Equal(t, "70% balance", found.Label)

		_, err = f.schedule.FindItem(ctx, uuid.New(), balance.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("updates existing items in place", func(t *testing.T) {
		f := newFinanceFixture(t)
		item := f.addItem(t, "deposit", 1, 1000)
		item.Label = "deposit (revised)"
		item = item.WithDueStage(0)
		require.NoError(t, f.schedule.SaveItems(ctx, f.tenantID, []finance.ScheduleItem{item}))

		items, err := f.schedule.ScheduleItems(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "deposit (revised)", items[0].Label)
		require.NotNil(t, items[0].DueStage)
		assert.Equal(t, 0, *items[0].DueStage)
	})

	t.Run("allocations carry their payment status", func(t *testing.T) {
		f := newFinanceFixture(t)
		deposit := f.addItem(t, "30% deposit", 1, 3000)
		balance := f.addItem(t, "70% balance", 2, 7000)
		f.pay(t, "PAY-000001", deposit, 3000, true)
		f.pay(t, "PAY-000002", balance, 7000, false)

		allocations, err := f.schedule.Allocations(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		require.Len(t, allocations, 2)

		statuses := map[uuid.UUID]finance.PaymentStatus{}
		for _, a := range allocations {
			statuses[a.ScheduleItemID] = a.PaymentStatus
		}
		assert.Equal(t, finance.PaymentStatusApproved, statuses[deposit.ID])
		assert.Equal(t, finance.PaymentStatusPending, statuses[balance.ID])

		items, err := f.schedule.ScheduleItems(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		summary := finance.ComputeLedger(items, allocations)
		assert.Equal(t, "30", summary.ProgressPercent.String())
		assert.Equal(t, valueobject.AmountFromMajor(7000), summary.Remaining)
	})

	t.Run("ledger service reads through the repository", func(t *testing.T) {
		f := newFinanceFixture(t)
		deposit := f.addItem(t, "deposit", 1, 500)
		f.pay(t, "PAY-000001", deposit, 500, true)

		summary, err := finance.NewPaymentLedger(f.schedule).Compute(ctx, f.tenantID, f.doc.Ref())
		require.NoError(t, err)
		assert.True(t, summary.IsSettled())
	})
}

func TestGormPaymentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a payment with allocations", func(t *testing.T) {
		f := newFinanceFixture(t)
		item := f.addItem(t, "deposit", 1, 3000)
		payment := f.pay(t, "PAY-000001", item, 3000, false)

		loaded, err := f.payments.FindByIDForTenant(ctx, f.tenantID, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusPending, loaded.Status)
		require.Len(t, loaded.Allocations, 1)
		assert.Equal(t, valueobject.AmountFromMajor(3000), loaded.Allocations[0].Amount)
		assert.Equal(t, finance.PaymentStatusPending, loaded.Allocations[0].PaymentStatus)

		require.NoError(t, loaded.Approve(testStamp()))
		require.NoError(t, f.payments.Save(ctx, loaded))

		approved, err := f.payments.FindByIDForTenant(ctx, f.tenantID, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusApproved, approved.Status)
		assert.Len(t, approved.Allocations, 1)
		assert.NotNil(t, approved.ReviewedBy)
	})

	t.Run("other tenants cannot see the payment", func(t *testing.T) {
		f := newFinanceFixture(t)
		item := f.addItem(t, "deposit", 1, 100)
		payment := f.pay(t, "PAY-000001", item, 100, false)

		_, err := f.payments.FindByIDForTenant(ctx, uuid.New(), payment.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCostRepository(t *testing.T) {
	ctx := context.Background()
	f := newFinanceFixture(t)
	stamp := testStamp()

	freight, err := finance.NewAdditionalCost(f.doc.Ref(), "Ocean freight", valueobject.AmountFromMajor(1200), finance.BillableToClient, stamp)
	require.NoError(t, err)
	inspection, err := finance.NewAdditionalCost(f.doc.Ref(), "Inspection", valueobject.AmountFromMajor(300), finance.BillableToCompany, stamp)
	require.NoError(t, err)
	require.NoError(t, f.costs.SaveCost(ctx, f.tenantID, freight))
	require.NoError(t, f.costs.SaveCost(ctx, f.tenantID, inspection))

	costs, err := f.costs.Costs(ctx, f.tenantID, f.doc.Ref())
	require.NoError(t, err)
	require.Len(t, costs, 2)

	summary := finance.AggregateCosts(costs)
	assert.Equal(t, valueobject.AmountFromMajor(1500), summary.Total)
	assert.Equal(t, valueobject.AmountFromMajor(1200), summary.ClientBillableTotal)
	assert.Equal(t, valueobject.AmountFromMajor(300), summary.CompanyTotal)

	none, err := f.costs.Costs(ctx, uuid.New(), f.doc.Ref())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormCostRepository_ForeignCurrency(t *testing.T) {
	ctx := context.Background()
	f := newFinanceFixture(t)

	invoiced, err := valueobject.NewMoneyFromString("2000.00", valueobject.CNY)
	require.NoError(t, err)
	cost, err := finance.NewForeignAdditionalCost(f.doc.Ref(), "Factory inspection", invoiced, valueobject.USD,
		decimal.RequireFromString("0.1385"), finance.BillableToSupplier, testStamp())
	require.NoError(t, err)
	require.NoError(t, f.costs.SaveCost(ctx, f.tenantID, cost))

	costs, err := f.costs.Costs(ctx, f.tenantID, f.doc.Ref())
	require.NoError(t, err)
	require.Len(t, costs, 1)

	stored := costs[0]
	assert.Equal(t, valueobject.AmountFromMajor(277), stored.Amount)
	require.NotNil(t, stored.Original)
	assert.True(t, invoiced.Equals(*stored.Original))
	assert.True(t, decimal.RequireFromString("0.1385").Equal(stored.ExchangeRate))
}

func TestGormPayableDocumentRepository_SaveStatusSQL(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	repo := NewGormPayableDocumentRepository(db)

	doc, err := finance.NewPayableDocument(uuid.New(), finance.DocumentShipment, "SH-00001", testStamp())
	require.NoError(t, err)
	require.NoError(t, doc.TransitionTo(finance.StatusBooked, testStamp()))

	mock.ExpectExec(`UPDATE "payable_documents" SET .* WHERE .*version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SaveStatus(context.Background(), doc)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "OPTIMISTIC_LOCK_ERROR", domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx(t *testing.T) {
	ctx := context.Background()
	f := newFinanceFixture(t)
	tm := NewTransactionManager(f.docs.db)
	boom := errors.New("boom")

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := finance.NewPayableDocument(f.tenantID, finance.DocumentQuotation, "QT-2026-0001", testStamp())
		require.NoError(t, err)
		require.NoError(t, f.docs.Save(txCtx, doc))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = f.docs.FindByNumber(ctx, f.tenantID, finance.DocumentQuotation, "QT-2026-0001")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPaymentRepository_FindForUpdateSQL(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	repo := NewGormPaymentRepository(db)

	tenantID, paymentID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE id = \$1 AND tenant_id = \$2.* FOR UPDATE`).
		WithArgs(paymentID, tenantID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "number", "status", "amount", "version"}).
			AddRow(paymentID, tenantID, "PAY-000001", "PENDING", int64(1000000), 1))
	mock.ExpectQuery(`SELECT \* FROM "payment_allocations" WHERE "payment_allocations"."payment_id" = \$1`).
		WithArgs(paymentID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id"}))

	payment, err := repo.FindForUpdate(context.Background(), tenantID, paymentID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-000001", payment.Number)
	assert.Equal(t, valueobject.Amount(1000000), payment.Amount)
	assert.Empty(t, payment.Allocations)
	assert.NoError(t, mock.ExpectationsWereMet())
}
