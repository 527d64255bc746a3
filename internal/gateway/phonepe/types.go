package phonepe

type payRequest struct {
	MerchantId            string `json:"merchantId"`
	MerchantTransactionId string `json:"merchantTransactionId"`
	MerchantUserId        string `json:"merchantUserId"`
	Amount                int64  `json:"amount"`
	RedirectUrl           string `json:"redirectUrl"`
	RedirectMode          string `json:"redirectMode"`
	CallbackUrl           string `json:"callbackUrl"`
	MobileNumber          string `json:"mobileNumber,omitempty"`
	PaymentInstrument     struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
}

type envelope struct {
	Request string `json:"request"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantId            string `json:"merchantId"`
		MerchantTransactionId string `json:"merchantTransactionId"`
		State                 string `json:"state"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				Url    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

type refundRequest struct {
	MerchantId            string `json:"merchantId"`
	MerchantTransactionId string `json:"merchantTransactionId"`
	OriginalTransactionId string `json:"originalTransactionId"`
	Amount                int64  `json:"amount"`
}

type refundResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionId string `json:"merchantTransactionId"`
		TransactionId         string `json:"transactionId"`
		State                 string `json:"state"`
	} `json:"data"`
}

// callbackBody is the webhook envelope: a base64 payload signed with the
// same checksum scheme as outbound requests.
type callbackBody struct {
	Response string `json:"response"`
}

type callbackPayload struct {
	Code string `json:"code"`
	Data struct {
		MerchantTransactionId string `json:"merchantTransactionId"`
		State                 string `json:"state"`
	} `json:"data"`
}
