package finance

import (
	"cmp"
	"slices"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ScheduleItem is one staged obligation of a payable document, e.g. "30% deposit"
type ScheduleItem struct {
	ID        uuid.UUID
	Document  DocumentRef
	Label     string
	SortOrder int
	Amount    valueobject.Amount
	// DueStage overrides the stage derived from SortOrder when set
	DueStage *int
}

// NewScheduleItem creates a validated schedule item
func NewScheduleItem(doc DocumentRef, label string, sortOrder int, amount valueobject.Amount) (*ScheduleItem, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if label == "" {
		return nil, shared.NewDomainError("INVALID_LABEL", "Schedule item label cannot be empty")
	}
	if len(label) > 200 {
		return nil, shared.NewDomainError("INVALID_LABEL", "Schedule item label cannot exceed 200 characters")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Schedule item amount cannot be negative")
	}
	return &ScheduleItem{
		ID:        uuid.New(),
		Document:  doc,
		Label:     label,
		SortOrder: sortOrder,
		Amount:    amount,
	}, nil
}

// WithDueStage pins the item to an explicit stage index
func (i ScheduleItem) WithDueStage(stage int) ScheduleItem {
	i.DueStage = &stage
	return i
}

// SortedItems returns a copy of items ordered by SortOrder, ties kept in input order
func SortedItems(items []ScheduleItem) []ScheduleItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b ScheduleItem) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return sorted
}

// StagedItem is a schedule item together with the stage it settles
type StagedItem struct {
	ScheduleItem
	Stage int
}

// Stages assigns every item its stage: the 0-based position after sorting by
// SortOrder, unless the item carries an explicit DueStage.
func Stages(items []ScheduleItem) []StagedItem {
	sorted := SortedItems(items)
	staged := make([]StagedItem, len(sorted))
	for idx, item := range sorted {
		stage := idx
		if item.DueStage != nil {
			stage = *item.DueStage
		}
		staged[idx] = StagedItem{ScheduleItem: item, Stage: stage}
	}
	return staged
}
