package transport

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SubmitOrderRequest struct {
	Items       []OrderItemRequest `json:"items"`
	SubmittedBy string             `json:"submittedBy"`
}

type LockRequest struct {
	AuditorName string `json:"auditorName"`
}

type AdjustItemRequest struct {
	AuditorName      string  `json:"auditorName"`
	QuantityApproved *int    `json:"quantityApproved"`
	Remark           *string `json:"remark"`
}

type ApproveRequest struct {
	AuditorName string `json:"auditorName"`
}

type RejectRequest struct {
	AuditorName string `json:"auditorName"`
	Reason      string `json:"reason"`
}

// LockStatus answers who currently holds an order.
type LockStatus struct {
	OrderID string `json:"orderId"`
	Locked  bool   `json:"locked"`
	Holder  string `json:"holder,omitempty"`
}

// Page describes list pagination in the envelope meta.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
