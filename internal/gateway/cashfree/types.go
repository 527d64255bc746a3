package cashfree

type customerDetails struct {
	CustomerId    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnUrl string `json:"return_url"`
}

type createOrderRequest struct {
	OrderId         string          `json:"order_id"`
	OrderAmount     string          `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

type orderResponse struct {
	CfOrderId        string `json:"cf_order_id"`
	OrderId          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionId string `json:"payment_session_id"`
	PaymentLink      string `json:"payment_link"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

type refundRequest struct {
	RefundAmount string `json:"refund_amount"`
	RefundId     string `json:"refund_id"`
	RefundNote   string `json:"refund_note,omitempty"`
}

type refundResponse struct {
	CfRefundId   string `json:"cf_refund_id"`
	RefundId     string `json:"refund_id"`
	RefundStatus string `json:"refund_status"`
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderId string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}
