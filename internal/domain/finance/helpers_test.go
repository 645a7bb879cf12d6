package finance

import (
	"testing"
	"time"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Test helpers
func testStamp() shared.Stamp {
	return shared.NewStamp(uuid.New(), time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
}

func testDoc(kind DocumentKind) DocumentRef {
	return DocumentRef{Kind: kind, ID: uuid.New()}
}

func createTestItem(t *testing.T, doc DocumentRef, label string, sortOrder int, amount valueobject.Amount) ScheduleItem {
	t.Helper()
	item, err := NewScheduleItem(doc, label, sortOrder, amount)
	require.NoError(t, err)
	return *item
}

func approvedAllocation(item ScheduleItem, amount valueobject.Amount) Allocation {
	return Allocation{
		ID:             uuid.New(),
		PaymentID:      uuid.New(),
		ScheduleItemID: item.ID,
		Amount:         amount,
		PaymentStatus:  PaymentStatusApproved,
	}
}

func allocationWithStatus(item ScheduleItem, amount valueobject.Amount, status PaymentStatus) Allocation {
	a := approvedAllocation(item, amount)
	a.PaymentStatus = status
	return a
}
