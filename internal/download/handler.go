package download

import (
	"log/slog"
	"mime"
	"net/http"
	"os"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service  *Service
	FileName string
}

func NewHandler(svc *Service, fileName string) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		FileName:    fileName,
	}
}

// File handles GET /download/file
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())

	path, err := h.Service.Authorize(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.HandleError(w, errors.NewInternalError("Download file not available", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.HandleError(w, errors.NewInternalError("Download file not available", err))
		return
	}

	h.Logger.Info("download started", "user_id", userID, "size", info.Size())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.FileName}))
	http.ServeContent(w, r, h.FileName, info.ModTime(), f)
}
