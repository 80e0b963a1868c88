package payment

import (
	"io"
	"log/slog"
	"net/http"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

const (
	SignatureHeader     = "X-Razorpay-Signature"
	maxWebhookBodyBytes = 1 << 20
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		PaymentService: svc,
	}
}

// CreateOrder handles POST /payments/create-order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.HandleError(w, errors.ErrAuthRequired)
		return
	}

	var dto CreateOrderDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	order, err := h.PaymentService.CreateOrder(r.Context(), user.ID, user.Email, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, order)
}

// Verify handles POST /payments/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.HandleError(w, errors.ErrAuthRequired)
		return
	}

	var dto VerifyDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	p, err := h.PaymentService.Verify(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// Webhook handles POST /payments/webhook. The signature covers the
// raw body so it is read before any decoding.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody).WithCause(err))
		return
	}

	if err := h.PaymentService.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// AdminList handles GET /admin/payments
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	skip, limit, appErr := h.Pagination(r)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	payments, err := h.PaymentService.ListAll(r.Context(), skip, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, payments)
}
