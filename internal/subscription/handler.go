package subscription

import (
	"log/slog"
	"net/http"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())

	sub, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())

	var dto MonthsDTO
	if r.ContentLength != 0 {
		if appErr := h.DecodeJSON(r, &dto); appErr != nil {
			h.HandleError(w, appErr)
			return
		}
	}
	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	sub, err := h.Service.Renew(r.Context(), userID, dto.Months)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) CancelMine(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())

	if err := h.Service.Cancel(r.Context(), userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, messageResponse{Message: "Subscription cancelled successfully"})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	skip, limit, appErr := h.Pagination(r)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	subs, err := h.Service.ListAll(r.Context(), skip, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) AdminActivate(w http.ResponseWriter, r *http.Request) {
	var dto ActivateDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	sub, err := h.Service.Activate(r.Context(), dto.UserID, dto.Months)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) AdminExtend(w http.ResponseWriter, r *http.Request) {
	userID, appErr := h.ParseIDParam(r, "user_id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var dto MonthsDTO
	if r.ContentLength != 0 {
		if appErr := h.DecodeJSON(r, &dto); appErr != nil {
			h.HandleError(w, appErr)
			return
		}
	}
	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	sub, err := h.Service.Extend(r.Context(), userID, dto.Months)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	userID, appErr := h.ParseIDParam(r, "user_id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if err := h.Service.Cancel(r.Context(), userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, messageResponse{Message: "Subscription cancelled successfully"})
}
