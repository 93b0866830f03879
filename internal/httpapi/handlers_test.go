package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/lifecycle"
)

type mockService struct {
	order *domain.Order
	proof *domain.PaymentProof
	err   error

	checkoutReq  *lifecycle.CheckoutRequest
	webhookEvent *lifecycle.WebhookEvent
	cancelReason string
	tracking     string
	approve      *bool
	voucherCode  string
}

func (m *mockService) Checkout(_ context.Context, req lifecycle.CheckoutRequest) (*domain.Order, error) {
	m.checkoutReq = &req
	return m.order, m.err
}

func (m *mockService) GetOrder(context.Context, string, string, bool) (*domain.Order, error) {
	return m.order, m.err
}

func (m *mockService) ListOrders(context.Context, string) ([]*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.order == nil {
		return nil, nil
	}
	return []*domain.Order{m.order}, nil
}

func (m *mockService) UploadPaymentProof(_ context.Context, _, _ string, _ []byte, _ string) (*domain.PaymentProof, error) {
	return m.proof, m.err
}

func (m *mockService) ApplyVoucher(_ context.Context, _, _, code string) (*domain.Order, error) {
	m.voucherCode = code
	return m.order, m.err
}

func (m *mockService) ConfirmOrder(context.Context, string, string) error { return m.err }

func (m *mockService) CancelOrder(_ context.Context, _, _, reason string) error {
	m.cancelReason = reason
	return m.err
}

func (m *mockService) VerifyPayment(_ context.Context, _, _ string, approve bool) error {
	m.approve = &approve
	return m.err
}

func (m *mockService) ShipOrder(_ context.Context, _, _, tracking string) error {
	m.tracking = tracking
	return m.err
}

func (m *mockService) AdminCancelOrder(_ context.Context, _, _, reason string) error {
	m.cancelReason = reason
	return m.err
}

func (m *mockService) HandleGatewayWebhook(_ context.Context, event lifecycle.WebhookEvent) error {
	m.webhookEvent = &event
	return m.err
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-20260110120000-0001",
		UserID:      "user-1",
		StoreID:     10,
		Status:      domain.StatusWaitingPayment,
		Subtotal:    50000,
		Total:       65000,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Jasmine Rice 5kg", Quantity: 2, UnitPrice: 12500, Subtotal: 25000},
		},
		CreatedAt: time.Now(),
	}
}

func serve(svc OrderService, req *http.Request) *httptest.ResponseRecorder {
	router := NewRouter(NewOrderHandler(svc), 30*time.Second)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	return req
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set("X-User-Role", "admin")
	return req
}

func TestCheckout_Created(t *testing.T) {
	svc := &mockService{order: sampleOrder()}
	req := jsonRequest(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{
		AddressID:        "addr-1",
		ShippingMethodID: 2,
		PaymentMethod:    "MANUAL_TRANSFER",
	})

	rec := serve(svc, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got OrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ORD-20260110120000-0001", got.OrderNumber)
	assert.Equal(t, "WAITING_PAYMENT", got.Status)

	require.NotNil(t, svc.checkoutReq)
	assert.Equal(t, "user-1", svc.checkoutReq.UserID)
	assert.Equal(t, domain.PaymentManualTransfer, svc.checkoutReq.PaymentMethod)
}

func TestCheckout_MissingAuth(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{
		AddressID:        "addr-1",
		ShippingMethodID: 2,
		PaymentMethod:    "GATEWAY",
	})
	req.Header.Del("X-User-ID")

	rec := serve(&mockService{}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_ValidationFailure(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{
		ShippingMethodID: 2,
		PaymentMethod:    "COD",
	})

	rec := serve(&mockService{}, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Code)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	svc := &mockService{err: &domain.InsufficientStockError{
		StoreID: 10,
		Missing: []domain.MissingItem{{ProductID: 1, ProductName: "Jasmine Rice 5kg", Requested: 5, Available: 2}},
	}}
	req := jsonRequest(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{
		AddressID:        "addr-1",
		ShippingMethodID: 2,
		PaymentMethod:    "GATEWAY",
	})

	rec := serve(svc, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.NotNil(t, resp.Details)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &mockService{err: domain.ErrOrderNotFound}
	req := jsonRequest(t, http.MethodGet, "/api/v1/orders/ORD-missing", nil)

	rec := serve(svc, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_Forbidden(t *testing.T) {
	svc := &mockService{err: domain.ErrForbidden}
	req := jsonRequest(t, http.MethodGet, "/api/v1/orders/ORD-20260110120000-0001", nil)

	rec := serve(svc, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListOrders_OK(t *testing.T) {
	svc := &mockService{order: sampleOrder()}
	req := jsonRequest(t, http.MethodGet, "/api/v1/orders/", nil)

	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []OrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 1)
}

func TestUploadProof_Created(t *testing.T) {
	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "transfer.png")
	require.NoError(t, err)
	_, err = part.Write(imgBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-20260110120000-0001/proof", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-User-ID", "user-1")

	svc := &mockService{proof: &domain.PaymentProof{ID: 7, Status: domain.ProofPending}}
	rec := serve(svc, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"proof_id":7`)
}

func TestUploadProof_MissingFile(t *testing.T) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("note", "no file here"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-x/proof", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-User-ID", "user-1")

	rec := serve(&mockService{}, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyVoucher_Conflict(t *testing.T) {
	svc := &mockService{err: domain.ErrVoucherApplied}
	req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1/vouchers", ApplyVoucherRequestDTO{Code: "WELCOME10"})

	rec := serve(svc, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "WELCOME10", svc.voucherCode)
}

func TestCancelOrder_PassesReason(t *testing.T) {
	svc := &mockService{}
	req := jsonRequest(t, http.MethodPost, "/api/v1/orders/ORD-1/cancel", CancelRequestDTO{Reason: "changed my mind"})

	rec := serve(svc, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "changed my mind", svc.cancelReason)
}

func TestAdminShip_RequiresAdminRole(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/ship", ShipRequestDTO{TrackingNumber: "JNE123"})

	rec := serve(&mockService{}, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminShip_OK(t *testing.T) {
	svc := &mockService{}
	req := asAdmin(jsonRequest(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/ship", ShipRequestDTO{TrackingNumber: "JNE123"}))

	rec := serve(svc, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JNE123", svc.tracking)
}

func TestAdminVerify_Reject(t *testing.T) {
	svc := &mockService{}
	req := asAdmin(jsonRequest(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/verify", VerifyRequestDTO{Approve: false}))

	rec := serve(svc, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.approve)
	assert.False(t, *svc.approve)
}

func TestAdminCancel_RequiresReason(t *testing.T) {
	req := asAdmin(jsonRequest(t, http.MethodPost, "/api/v1/admin/orders/ORD-1/cancel", AdminCancelRequestDTO{}))

	rec := serve(&mockService{}, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGatewayWebhook_NoAuthRequired(t *testing.T) {
	svc := &mockService{}
	req := jsonRequest(t, http.MethodPost, "/webhooks/payment", WebhookRequestDTO{
		OrderNumber:   "ORD-1",
		TransactionID: "TXN-9",
		Status:        "failed",
	})
	req.Header.Del("X-User-ID")

	rec := serve(svc, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.webhookEvent)
	assert.False(t, svc.webhookEvent.Success)
	assert.Equal(t, "TXN-9", svc.webhookEvent.TransactionID)
}

func TestGatewayWebhook_UnknownOrder(t *testing.T) {
	svc := &mockService{err: domain.ErrOrderNotFound}
	req := jsonRequest(t, http.MethodPost, "/webhooks/payment", WebhookRequestDTO{
		OrderNumber:   "ORD-missing",
		TransactionID: "TXN-9",
		Status:        "success",
	})
	req.Header.Del("X-User-ID")

	rec := serve(svc, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := serve(&mockService{}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
