package finance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
)

// BlockingRules tells which target statuses a schedule stage blocks until it is paid.
// The mapping is owned by the surrounding configuration; the guard only consumes it.
type BlockingRules interface {
	BlockedStatuses(kind DocumentKind, stage int) []Status
}

// RuleTable is the map form of BlockingRules: kind -> stage index -> blocked statuses
type RuleTable map[DocumentKind]map[int][]Status

// BlockedStatuses implements BlockingRules
func (t RuleTable) BlockedStatuses(kind DocumentKind, stage int) []Status {
	return t[kind][stage]
}

// Blocks reports whether the stage of kind blocks target
func (t RuleTable) Blocks(kind DocumentKind, stage int, target Status) bool {
	return slices.Contains(t.BlockedStatuses(kind, stage), target)
}

// Validate checks that every configured status belongs to its document kind
func (t RuleTable) Validate() error {
	for kind, stages := range t {
		if !kind.IsValid() {
			return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Unknown document kind %q in transition rules", kind))
		}
		for stage, statuses := range stages {
			if stage < 0 {
				return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Negative stage %d in %s transition rules", stage, kind))
			}
			for _, s := range statuses {
				if !kind.Allows(s) {
					return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Status %s is not valid for %s", s, kind))
				}
			}
		}
	}
	return nil
}

// DefaultRuleTable returns the stock staging: a proforma deposit must clear before
// confirmation, a purchase order deposit before production and its balance before
// shipment, and shipment freight before delivery.
func DefaultRuleTable() RuleTable {
	return RuleTable{
		DocumentProformaInvoice: {
			0: {StatusConfirmed, StatusPaid},
		},
		DocumentPurchaseOrder: {
			0: {StatusInProduction, StatusReady, StatusShipped, StatusCompleted},
			1: {StatusShipped, StatusCompleted},
		},
		DocumentShipment: {
			0: {StatusDelivered},
		},
	}
}

// Blocker is a schedule item that still has money outstanding for a stage the target status requires
type Blocker struct {
	Item      ScheduleItem
	Stage     int
	Remaining valueobject.Amount
}

// Label returns the human label of the blocking item
func (b Blocker) Label() string {
	return b.Item.Label
}

// TransitionGuard decides which unpaid schedule items block a status change.
// It never fails; callers decide what to do with the blockers.
type TransitionGuard struct {
	rules BlockingRules
}

// NewTransitionGuard creates a guard using rules, or the default table when rules is nil
func NewTransitionGuard(rules BlockingRules) *TransitionGuard {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	return &TransitionGuard{rules: rules}
}

// BlockersFor returns the items whose stage blocks target and that are not fully paid,
// in stage order. An empty result means the transition may proceed.
func (g *TransitionGuard) BlockersFor(doc DocumentRef, items []ScheduleItem, allocations []Allocation, target Status) []Blocker {
	blockers := make([]Blocker, 0)
	for _, balance := range ItemBalances(items, allocations) {
		if balance.IsSettled() {
			continue
		}
		if !slices.Contains(g.rules.BlockedStatuses(doc.Kind, balance.Stage), target) {
			continue
		}
		blockers = append(blockers, Blocker{
			Item:      balance.Item,
			Stage:     balance.Stage,
			Remaining: balance.Remaining,
		})
	}
	return blockers
}

// HasUnresolvedBlockingPayments reports whether any blocker exists
func (g *TransitionGuard) HasUnresolvedBlockingPayments(doc DocumentRef, items []ScheduleItem, allocations []Allocation, target Status) bool {
	return len(g.BlockersFor(doc, items, allocations, target)) > 0
}

// BlockingLabels returns the labels of the blockers, for rejection messages
func (g *TransitionGuard) BlockingLabels(doc DocumentRef, items []ScheduleItem, allocations []Allocation, target Status) []string {
	return Labels(g.BlockersFor(doc, items, allocations, target))
}

// Labels maps blockers to their labels
func Labels(blockers []Blocker) []string {
	labels := make([]string, len(blockers))
	for i, b := range blockers {
		labels[i] = b.Label()
	}
	return labels
}

// TransitionBlockedError is returned by callers that refuse a status change because of blockers
type TransitionBlockedError struct {
	Document DocumentRef
	Target   Status
	Blockers []Blocker
}

// NewTransitionBlockedError creates a TransitionBlockedError
func NewTransitionBlockedError(doc DocumentRef, target Status, blockers []Blocker) *TransitionBlockedError {
	return &TransitionBlockedError{Document: doc, Target: target, Blockers: blockers}
}

// Labels returns the labels of the unpaid stages
func (e *TransitionBlockedError) Labels() []string {
	return Labels(e.Blockers)
}

// Error implements the error interface
func (e *TransitionBlockedError) Error() string {
	return fmt.Sprintf("cannot move %s to %s, unpaid payment stages: %s",
		e.Document.Kind, e.Target, strings.Join(e.Labels(), ", "))
}

// Is matches shared.ErrTransitionBlocked
func (e *TransitionBlockedError) Is(target error) bool {
	return target == shared.ErrTransitionBlocked
}
