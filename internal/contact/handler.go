package contact

import (
	"log/slog"
	"net/http"

	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
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

// Submit handles POST /contact. Authentication is optional.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var dto CreateDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var userID *int64
	if u, ok := auth.UserFromContext(r.Context()); ok && u != nil {
		id := u.ID
		userID = &id
	}

	c, err := h.Service.Submit(r.Context(), userID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	skip, limit, appErr := h.Pagination(r)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	contacts, err := h.Service.List(r.Context(), r.URL.Query().Get("status"), skip, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, contacts)
}

func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var dto StatusDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	c, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, messageResponse{Message: "Contact deleted successfully"})
}
