package sequence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/google/uuid"
)

// Kind names a family of identifiers (SKUs, quotation references, ...)
type Kind string

const (
	KindProductSKU      Kind = "PRODUCT_SKU"
	KindQuotation       Kind = "QUOTATION"
	KindProformaInvoice Kind = "PROFORMA_INVOICE"
	KindPurchaseOrder   Kind = "PURCHASE_ORDER"
	KindShipment        Kind = "SHIPMENT"
	KindPayment         Kind = "PAYMENT"
)

// IsValid checks if the kind is a known Kind
func (k Kind) IsValid() bool {
	switch k {
	case KindProductSKU, KindQuotation, KindProformaInvoice,
		KindPurchaseOrder, KindShipment, KindPayment:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// DefaultWidth returns the zero-padding width used for the kind.
// Year-scoped quotation references carry 4 digits, payments 6, everything else 5.
func (k Kind) DefaultWidth() int {
	switch k {
	case KindPayment:
		return 6
	case KindQuotation:
		return 4
	default:
		return 5
	}
}

// DefaultPrefixes are the global fallback prefixes used when a scope has no prefix configured
var DefaultPrefixes = map[Kind]string{
	KindProductSKU:      "PRD",
	KindQuotation:       "QT",
	KindProformaInvoice: "PI",
	KindPurchaseOrder:   "PO",
	KindShipment:        "SH",
	KindPayment:         "PAY",
}

const (
	separator = "-"
	maxWidth  = 18
)

// Scope identifies a numbering domain: identifiers of one kind sharing one prefix.
// Within a scope identifiers are strictly increasing and unique.
type Scope struct {
	TenantID uuid.UUID
	Kind     Kind
	Prefix   string
	Width    int
	// Default marks a scope whose prefix was not configured and fell back to the
	// kind's global prefix. Such scopes also count every identifier of the kind,
	// archived ones included, so a number is never handed out twice.
	Default bool
}

// NewScope creates a scope with the kind's default width.
// A trailing separator on the prefix is dropped, so "QT-2026-" and "QT-2026" are the same scope.
func NewScope(tenantID uuid.UUID, kind Kind, prefix string) Scope {
	return Scope{
		TenantID: tenantID,
		Kind:     kind,
		Prefix:   normalizePrefix(prefix),
		Width:    kind.DefaultWidth(),
	}
}

// WithWidth returns a copy of the scope using the given padding width
func (s Scope) WithWidth(width int) Scope {
	s.Width = width
	return s
}

// Resolve fills a missing prefix from the given fallbacks and marks the scope as default.
// Scopes that already carry a prefix are returned unchanged.
func (s Scope) Resolve(fallbacks map[Kind]string) Scope {
	s.Prefix = normalizePrefix(s.Prefix)
	if s.Prefix != "" {
		return s
	}
	prefix, ok := fallbacks[s.Kind]
	if !ok {
		prefix = DefaultPrefixes[s.Kind]
	}
	s.Prefix = normalizePrefix(prefix)
	s.Default = true
	if s.Width == 0 {
		s.Width = s.Kind.DefaultWidth()
	}
	return s
}

// Validate checks that the scope can produce identifiers
func (s Scope) Validate() error {
	if !s.Kind.IsValid() {
		return shared.NewDomainError("INVALID_SCOPE", fmt.Sprintf("Unknown sequence kind %q", s.Kind))
	}
	if s.Prefix == "" {
		return shared.NewDomainError("INVALID_SCOPE", "Sequence prefix cannot be empty")
	}
	if strings.ContainsAny(s.Prefix, " \t\n") {
		return shared.NewDomainError("INVALID_SCOPE", fmt.Sprintf("Sequence prefix %q contains invalid characters", s.Prefix))
	}
	if s.Width < 1 || s.Width > maxWidth {
		return shared.NewDomainError("INVALID_SCOPE", fmt.Sprintf("Sequence width must be between 1 and %d", maxWidth))
	}
	return nil
}

// Format renders the n-th identifier of the scope, e.g. PRD-00001
func (s Scope) Format(n int64) string {
	return fmt.Sprintf("%s%s%0*d", s.Prefix, separator, s.Width, n)
}

// ParseSuffix extracts the numeric suffix of an identifier that belongs to this scope
func (s Scope) ParseSuffix(identifier string) (int64, bool) {
	rest, ok := strings.CutPrefix(identifier, s.Prefix+separator)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Key uniquely names the scope, used for locks and caches
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%s:%s", s.TenantID, s.Kind, s.Prefix)
}

// String returns a readable form of the scope
func (s Scope) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Prefix)
}

func normalizePrefix(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), separator)
}
