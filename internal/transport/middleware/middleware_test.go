package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	coreuser "github.com/jarvis4everyone/jarvis-backend/internal/core/user"
)

func TestMiddleware(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Middleware Suite")
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
})

var _ = ginkgo.Describe("RequireAdmin", func() {
	serve := func(u *coreuser.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		if u != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(testLogger)(okHandler).ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("rejects anonymous requests with 401", func() {
		gomega.Expect(serve(nil).Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("rejects regular users with 403", func() {
		gomega.Expect(serve(&coreuser.User{ID: 1}).Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("lets administrators through", func() {
		gomega.Expect(serve(&coreuser.User{ID: 2, IsAdmin: true}).Code).To(gomega.Equal(http.StatusOK))
	})
})

var _ = ginkgo.Describe("RecoveryMiddleware", func() {
	ginkgo.It("answers a panic with a 500 JSON error", func() {
		panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		rec := httptest.NewRecorder()

		RecoveryMiddleware(testLogger)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(rec.Header().Get("Content-Type")).To(gomega.Equal("application/json"))
		gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("boom"))
	})
})

var _ = ginkgo.Describe("RequestID", func() {
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chiMiddleware.GetReqID(r.Context())
	})

	ginkgo.It("keeps a caller supplied id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()

		RequestID(capture).ServeHTTP(rec, req)

		gomega.Expect(seen).To(gomega.Equal("req-123"))
		gomega.Expect(rec.Header().Get(RequestIDHeader)).To(gomega.Equal("req-123"))
	})

	ginkgo.It("generates one when missing", func() {
		rec := httptest.NewRecorder()

		RequestID(capture).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		gomega.Expect(seen).ToNot(gomega.BeEmpty())
		gomega.Expect(rec.Header().Get(RequestIDHeader)).To(gomega.Equal(seen))
	})
})

var _ = ginkgo.Describe("CORS", func() {
	var router *chi.Mux

	ginkgo.BeforeEach(func() {
		router = chi.NewRouter()
		router.Use(CORS([]string{"https://app.example.com", "http://localhost:5173"}))
		router.Get("/health", okHandler)
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/health", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("echoes an allowed origin exactly", func() {
		rec := preflight("https://app.example.com")

		gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.Equal("https://app.example.com"))
		gomega.Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(gomega.Equal("true"))
		gomega.Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(gomega.Equal(http.MethodGet))
	})

	ginkgo.It("does not allow unknown origins", func() {
		rec := preflight("https://evil.example.com")

		gomega.Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("LoggingMiddleware", func() {
	ginkgo.It("masks secrets in request bodies and headers", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"a@example.com","password":"hunter22"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer abc.def")

		var body []byte
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ = io.ReadAll(r.Body)
			okHandler(w, r)
		})
		LoggingMiddleware(logger)(echo).ServeHTTP(httptest.NewRecorder(), req)

		gomega.Expect(string(body)).To(gomega.ContainSubstring("hunter22"))
		gomega.Expect(buf.String()).ToNot(gomega.ContainSubstring("hunter22"))
		gomega.Expect(buf.String()).ToNot(gomega.ContainSubstring("abc.def"))
		gomega.Expect(buf.String()).To(gomega.ContainSubstring("a@example.com"))
	})

	ginkgo.It("filters nested JSON keys", func() {
		out := filterSensitiveBody([]byte(`{"payload":{"razorpay_signature":"s1","order_id":"o1"},"items":[{"api_key":"k"}]}`))

		gomega.Expect(out).ToNot(gomega.ContainSubstring("s1"))
		gomega.Expect(out).ToNot(gomega.ContainSubstring(`"k"`))
		gomega.Expect(out).To(gomega.ContainSubstring("o1"))
	})
})
