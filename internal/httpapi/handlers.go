// Package httpapi exposes the fulfillment engine over REST. Handlers bind
// and validate input, call the lifecycle service and translate domain
// errors onto HTTP statuses; no business rules live here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/lifecycle"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/storage"
)

// OrderService is the lifecycle surface the handlers call. *lifecycle.Service
// satisfies it; tests substitute a mock.
type OrderService interface {
	Checkout(ctx context.Context, req lifecycle.CheckoutRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, actor, orderNumber string, admin bool) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	UploadPaymentProof(ctx context.Context, userID, orderNumber string, file []byte, originalName string) (*domain.PaymentProof, error)
	ApplyVoucher(ctx context.Context, userID, orderNumber, code string) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, userID, orderNumber string) error
	CancelOrder(ctx context.Context, userID, orderNumber, reason string) error
	VerifyPayment(ctx context.Context, admin, orderNumber string, approve bool) error
	ShipOrder(ctx context.Context, admin, orderNumber, trackingNumber string) error
	AdminCancelOrder(ctx context.Context, admin, orderNumber, reason string) error
	HandleGatewayWebhook(ctx context.Context, event lifecycle.WebhookEvent) error
}

type OrderHandler struct {
	service  OrderService
	validate *validatorv10.Validate
}

func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validatorv10.New(),
	}
}

// bind decodes the JSON body into out and validates it, writing the 400
// itself on failure.
func (h *OrderHandler) bind(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		var ve validatorv10.ValidationErrors
		if errors.As(err, &ve) {
			details := map[string]string{}
			for _, fe := range ve {
				details[fe.Field()] = fe.Tag()
			}
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation failed",
				Code:    "invalid_request",
				Details: details,
			})
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	order, err := h.service.Checkout(r.Context(), lifecycle.CheckoutRequest{
		UserID:           getUserID(r.Context()),
		AddressID:        req.AddressID,
		ShippingMethodID: req.ShippingMethodID,
		PaymentMethod:    domain.PaymentMethod(req.PaymentMethod),
		VoucherCodes:     req.VoucherCodes,
		Notes:            req.Notes,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), getUserRole(r.Context()) == "admin")
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), getUserID(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, convertOrder(order))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// UploadProof accepts a multipart form with one "file" field holding the
// transfer receipt image.
func (h *OrderHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(storage.MaxProofSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxProofSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read uploaded file")
		return
	}

	proof, err := h.service.UploadPaymentProof(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), data, header.Filename)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"proof_id": proof.ID,
		"status":   string(proof.Status),
	})
}

func (h *OrderHandler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	var req ApplyVoucherRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	order, err := h.service.ApplyVoucher(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), req.Code)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

func (h *OrderHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	err := h.service.ConfirmOrder(r.Context(), getUserID(r.Context()), chi.URLParam(r, "orderNumber"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusConfirmed)})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	err := h.service.CancelOrder(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	err := h.service.VerifyPayment(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), req.Approve)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"approved": req.Approve})
}

func (h *OrderHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	var req ShipRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	err := h.service.ShipOrder(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), req.TrackingNumber)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusShipped)})
}

func (h *OrderHandler) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req AdminCancelRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	err := h.service.AdminCancelOrder(r.Context(),
		getUserID(r.Context()), chi.URLParam(r, "orderNumber"), req.Reason)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

// GatewayWebhook receives the provider's payment result. The provider
// retries until it sees 200, so every outcome the service treats as settled
// (including duplicates) answers with 200.
func (h *OrderHandler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequestDTO
	if !h.bind(w, r, &req) {
		return
	}

	err := h.service.HandleGatewayWebhook(r.Context(), lifecycle.WebhookEvent{
		OrderNumber:   req.OrderNumber,
		TransactionID: req.TransactionID,
		Success:       req.Status == "success",
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *OrderHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
