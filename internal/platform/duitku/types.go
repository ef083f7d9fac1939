package duitku

// Result codes shared by callbacks and invoice responses.
const (
	ResultCodeSuccess = "00"
	ResultCodePending = "01"
	ResultCodeFailed  = "02"
)

const (
	SandboxBaseURL    = "https://sandbox.duitku.com/webapi/api"
	ProductionBaseURL = "https://passport.duitku.com/webapi/api"
)

type ItemDetail struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CustomerDetail struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// createInvoiceRequest is the wire request for merchant/createinvoice.
// Field names are the provider contract, not open to redesign.
type createInvoiceRequest struct {
	MerchantCode    string          `json:"merchantCode"`
	PaymentAmount   int64           `json:"paymentAmount"`
	MerchantOrderID string          `json:"merchantOrderId"`
	ProductDetails  string          `json:"productDetails"`
	CustomerVaName  string          `json:"customerVaName"`
	Email           string          `json:"email"`
	PhoneNumber     string          `json:"phoneNumber"`
	ItemDetails     []ItemDetail    `json:"itemDetails"`
	CustomerDetail  *CustomerDetail `json:"customerDetail,omitempty"`
	CallbackURL     string          `json:"callbackUrl"`
	ReturnURL       string          `json:"returnUrl"`
	Signature       string          `json:"signature"`
	ExpiryPeriod    int             `json:"expiryPeriod"`
}

type createInvoiceResponse struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Reference       string `json:"reference"`
	PaymentURL      string `json:"paymentUrl"`
	VaNumber        string `json:"vaNumber"`
	Amount          string `json:"amount"`
	StatusCode      string `json:"statusCode"`
	StatusMessage   string `json:"statusMessage"`
}

type statusRequest struct {
	MerchantCode    string `json:"merchantCode"`
	MerchantOrderID string `json:"merchantOrderId"`
	Signature       string `json:"signature"`
}

// TransactionStatus is the provider's view of one order; the caller decides
// how to interpret StatusCode.
type TransactionStatus struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Reference       string `json:"reference"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
	StatusCode      string `json:"statusCode"`
	StatusMessage   string `json:"statusMessage"`
}

type paymentMethodRequest struct {
	MerchantCode string `json:"merchantcode"`
	Amount       int64  `json:"amount"`
	Signature    string `json:"signature"`
}

type PaymentMethod struct {
	PaymentMethod string `json:"paymentMethod"`
	PaymentName   string `json:"paymentName"`
	PaymentImage  string `json:"paymentImage"`
	TotalFee      string `json:"totalFee"`
}

type paymentMethodResponse struct {
	PaymentFee      []PaymentMethod `json:"paymentFee"`
	ResponseCode    string          `json:"responseCode"`
	ResponseMessage string          `json:"responseMessage"`
}

// CallbackParams are the fields the gateway POSTs to the callback URL
// (x-www-form-urlencoded; some integrations send JSON, both are accepted).
type CallbackParams struct {
	MerchantCode     string `form:"merchantCode" json:"merchantCode"`
	Amount           string `form:"amount" json:"amount"`
	MerchantOrderID  string `form:"merchantOrderId" json:"merchantOrderId"`
	ProductDetail    string `form:"productDetail" json:"productDetail"`
	AdditionalParam  string `form:"additionalParam" json:"additionalParam"`
	PaymentCode      string `form:"paymentCode" json:"paymentCode"`
	ResultCode       string `form:"resultCode" json:"resultCode"`
	MerchantUserID   string `form:"merchantUserId" json:"merchantUserId"`
	Reference        string `form:"reference" json:"reference"`
	Signature        string `form:"signature" json:"signature"`
	PublisherOrderID string `form:"publisherOrderId" json:"publisherOrderId"`
	SpUserHash       string `form:"spUserHash" json:"spUserHash"`
	SettlementDate   string `form:"settlementDate" json:"settlementDate"`
	IssuerCode       string `form:"issuerCode" json:"issuerCode"`
}
