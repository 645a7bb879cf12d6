package dto

// SequenceQuery selects the identifier to preview
type SequenceQuery struct {
	Kind   string `form:"kind" binding:"required,oneof=PRODUCT_SKU QUOTATION PROFORMA_INVOICE PURCHASE_ORDER SHIPMENT PAYMENT"`
	Prefix string `form:"prefix" binding:"omitempty,max=20,alphanum"`
	// Date dates quotation references, YYYY-MM-DD. Defaults to today.
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// AllocateSequenceRequest asks for the next identifier of a kind
type AllocateSequenceRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=PRODUCT_SKU QUOTATION PROFORMA_INVOICE PURCHASE_ORDER SHIPMENT PAYMENT"`
	Prefix string `json:"prefix" binding:"omitempty,max=20,alphanum"`
	Date   string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// DocumentURI addresses a payable document
type DocumentURI struct {
	Kind string `uri:"kind" binding:"required"`
	ID   string `uri:"id" binding:"required,uuid"`
}

// TransitionURI addresses a status change of a payable document
type TransitionURI struct {
	DocumentURI
	Status string `uri:"status" binding:"required"`
}

// ChangeStatusRequest moves a document to a new status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AllocatePaymentRequest applies part of a payment to a schedule item
type AllocatePaymentRequest struct {
	ScheduleItemID string `json:"schedule_item_id" binding:"required,uuid"`
	// Amount is a decimal string in major units, e.g. "1250.50"
	Amount string `json:"amount" binding:"required"`
}

// PaymentURI addresses a payment
type PaymentURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}
