package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	contactDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/contact"
	paymentDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/payment"
	subscriptionDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/subscription"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

// Stats is the admin overview. Revenue is in minor units.
type Stats struct {
	TotalUsers          int64     `json:"total_users" db:"total_users"`
	ActiveSubscriptions int64     `json:"active_subscriptions" db:"active_subscriptions"`
	CompletedPayments   int64     `json:"completed_payments" db:"completed_payments"`
	RevenueMinor        int64     `json:"revenue_minor" db:"revenue_minor"`
	PendingPayments     int64     `json:"pending_payments" db:"pending_payments"`
	NewContacts         int64     `json:"new_contacts" db:"new_contacts"`
	GeneratedAt         time.Time `json:"generated_at" db:"-"`
}

const statsQuery = `
SELECT
	(SELECT COUNT(*) FROM users) AS total_users,
	(SELECT COUNT(*) FROM subscriptions WHERE status = ? AND end_date > ?) AS active_subscriptions,
	(SELECT COUNT(*) FROM payments WHERE status = ?) AS completed_payments,
	(SELECT COALESCE(SUM(amount_minor), 0) FROM payments WHERE status = ?) AS revenue_minor,
	(SELECT COUNT(*) FROM payments WHERE status = ?) AS pending_payments,
	(SELECT COUNT(*) FROM contacts WHERE status = ?) AS new_contacts`

// Repository runs the reporting queries directly on the shared pool.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	var stats Stats
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(statsQuery),
		subscriptionDatamodel.StatusActive, now,
		paymentDatamodel.StatusCompleted,
		paymentDatamodel.StatusCompleted,
		paymentDatamodel.StatusPending,
		contactDatamodel.StatusNew,
	)
	if err != nil {
		return nil, err
	}
	stats.GeneratedAt = now
	return &stats, nil
}

type StatsReader interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type Handler struct {
	*transport.BaseHandler
	repo StatsReader
	now  func() time.Time
}

func NewHandler(repo StatsReader) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		repo:        repo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context(), h.now())
	if err != nil {
		h.HandleServiceError(w, errors.NewInternalError("failed to load stats", err))
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}
