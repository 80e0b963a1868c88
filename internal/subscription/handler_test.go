package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		router *chi.Mux
		repo   *mockRepository
		now    time.Time
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMockRepository()
		service := NewService(repo, nil, logger)
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		service.now = func() time.Time { return now }

		h := NewHandler(service)
		router = chi.NewRouter()
		router.Get("/subscriptions/me", h.GetMine)
		router.Post("/subscriptions/renew", h.Renew)
		router.Post("/subscriptions/cancel", h.CancelMine)
		router.Post("/admin/subscriptions/activate", h.AdminActivate)
		router.Post("/admin/subscriptions/{user_id}/extend", h.AdminExtend)
		router.Get("/admin/subscriptions", h.AdminList)
	})

	do := func(method, path string, userID int64, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if userID != 0 {
			req = req.WithContext(errors.ContextWithUserID(context.Background(), userID))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) Subscription {
		var sub Subscription
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &sub)).To(gomega.Succeed())
		return sub
	}

	ginkgo.It("answers 404 before the first subscription", func() {
		rec := do(http.MethodGet, "/subscriptions/me", 1, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(string(errors.ErrCodeSubscriptionNotFound)))
	})

	ginkgo.It("renews one month by default with 201", func() {
		rec := do(http.MethodPost, "/subscriptions/renew", 1, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		sub := decode(rec)
		gomega.Expect(sub.Status).To(gomega.Equal("active"))
		gomega.Expect(sub.EndDate.Sub(sub.StartDate)).To(gomega.Equal(30 * 24 * time.Hour))

		rec = do(http.MethodGet, "/subscriptions/me", 1, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(decode(rec).ID).To(gomega.Equal(sub.ID))
	})

	ginkgo.It("rejects an out of range month count", func() {
		rec := do(http.MethodPost, "/subscriptions/renew", 1, `{"months":100}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("answers 404 when cancelling without an active subscription", func() {
		rec := do(http.MethodPost, "/subscriptions/cancel", 1, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("lets an admin activate and extend a subscription", func() {
		rec := do(http.MethodPost, "/admin/subscriptions/activate", 99, `{"user_id":2,"months":2}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
		activated := decode(rec)
		gomega.Expect(activated.UserID).To(gomega.Equal(int64(2)))

		rec = do(http.MethodPost, "/admin/subscriptions/2/extend", 99, `{"months":1}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(decode(rec).EndDate).To(gomega.BeTemporally("==", activated.EndDate.Add(30*24*time.Hour)))

		rec = do(http.MethodGet, "/admin/subscriptions?skip=0&limit=10", 99, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var subs []Subscription
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &subs)).To(gomega.Succeed())
		gomega.Expect(subs).To(gomega.HaveLen(1))
	})

	ginkgo.It("rejects a malformed user id", func() {
		rec := do(http.MethodPost, "/admin/subscriptions/abc/extend", 99, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})
})
