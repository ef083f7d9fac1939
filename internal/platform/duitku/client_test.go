package duitku

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		MerchantCode: "D1234",
		APIKey:       "secret",
		BaseURL:      srv.URL,
		CallbackURL:  "https://example.com/api/payment/callback",
		ReturnURL:    "https://example.com/done",
	}, 5*time.Second, zap.NewNop().Sugar())
}

func TestCreateInvoice_Success(t *testing.T) {
	var got createInvoiceRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/createinvoice", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(createInvoiceResponse{
			MerchantOrderID: got.MerchantOrderID,
			Reference:       "DK-REF-1",
			PaymentURL:      "https://pay.example.com/x",
			VaNumber:        "8888001",
			StatusCode:      "00",
			StatusMessage:   "SUCCESS",
		})
	})

	inv, err := c.CreateInvoice(context.Background(), InvoiceParams{
		OrderID:        "ORDER-1",
		Amount:         150000,
		ProductDetails: "Pro package",
		CustomerName:   "Budi Santoso",
		Email:          "budi@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "ORDER-1", inv.OrderID)
	require.Equal(t, "DK-REF-1", inv.Reference)
	require.Equal(t, "https://pay.example.com/x", inv.PaymentURL)
	require.Equal(t, "8888001", inv.VaNumber)

	// wire request carries the request-direction signature and split name
	require.Equal(t, Sign("D1234", "ORDER-1", 150000, "secret"), got.Signature)
	require.Equal(t, int64(150000), got.PaymentAmount)
	require.Equal(t, "Budi", got.CustomerDetail.FirstName)
	require.Equal(t, "Santoso", got.CustomerDetail.LastName)
	require.Equal(t, "https://example.com/api/payment/callback", got.CallbackURL)
}

func TestCreateInvoice_BusinessRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createInvoiceResponse{StatusCode: "02", StatusMessage: "amount below minimum"})
	})

	_, err := c.CreateInvoice(context.Background(), InvoiceParams{OrderID: "ORDER-1", Amount: 1})
	require.ErrorIs(t, err, ErrPaymentRejected)
	require.NotErrorIs(t, err, ErrGatewayUnavailable)
	require.Contains(t, err.Error(), "amount below minimum")
}

func TestCreateInvoice_GatewayUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.CreateInvoice(context.Background(), InvoiceParams{OrderID: "ORDER-1", Amount: 150000})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreateInvoice_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused
	c := NewClient(Options{MerchantCode: "D1234", APIKey: "secret", BaseURL: srv.URL}, time.Second, zap.NewNop().Sugar())

	_, err := c.CreateInvoice(context.Background(), InvoiceParams{OrderID: "ORDER-1", Amount: 150000})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestTransactionStatus_SignsRequest(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/transactionStatus", r.URL.Path)
		var req statusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, StatusSignature("D1234", "ORDER-1", "secret"), req.Signature)
		json.NewEncoder(w).Encode(TransactionStatus{
			MerchantOrderID: "ORDER-1",
			StatusCode:      "01",
			StatusMessage:   "PROCESS",
		})
	})

	st, err := c.TransactionStatus(context.Background(), "ORDER-1")
	require.NoError(t, err)
	require.Equal(t, "01", st.StatusCode)
}

func TestPaymentMethods(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/paymentmethod/getpaymentmethod", r.URL.Path)
		json.NewEncoder(w).Encode(paymentMethodResponse{
			ResponseCode: "00",
			PaymentFee: []PaymentMethod{
				{PaymentMethod: "VC", PaymentName: "Credit Card", TotalFee: "2500"},
				{PaymentMethod: "BT", PaymentName: "Bank Transfer", TotalFee: "4000"},
			},
		})
	})

	methods, err := c.PaymentMethods(context.Background(), 150000)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	require.Equal(t, "VC", methods[0].PaymentMethod)
}

func TestClientVerifyCallback(t *testing.T) {
	c := testClient(t, nil)

	p := &CallbackParams{
		MerchantCode:    "D1234",
		Amount:          "150000",
		MerchantOrderID: "ORDER-1",
		ResultCode:      "00",
	}
	p.Signature = CallbackSignature("D1234", "150000", "ORDER-1", "secret")
	require.True(t, c.VerifyCallback(p))

	p.Amount = "150001"
	require.False(t, c.VerifyCallback(p))
	require.False(t, c.VerifyCallback(nil))
}
