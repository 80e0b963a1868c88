package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

const testSecret = "test-secret-that-is-long-enough-0123456789"

// Mock UserRepository for testing
type mockUserRepository struct {
	byID   map[int64]*userDatamodel.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	return &mockUserRepository{
		byID: map[int64]*userDatamodel.User{
			1: {ID: 1, Name: "User", Email: "user@example.com", PasswordHash: string(hash)},
			2: {ID: 2, Name: "Admin", Email: "admin@example.com", PasswordHash: string(hash), IsAdmin: true},
		},
		nextID: 3,
	}
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*userDatamodel.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*userDatamodel.User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) Create(_ context.Context, u *userDatamodel.User) error {
	u.ID = m.nextID
	m.nextID++
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if u, ok := m.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type mockTokenRepository struct {
	tokens map[string]*userDatamodel.RefreshToken
}

func newMockTokenRepository() *mockTokenRepository {
	return &mockTokenRepository{tokens: map[string]*userDatamodel.RefreshToken{}}
}

func (m *mockTokenRepository) Store(_ context.Context, t *userDatamodel.RefreshToken) error {
	m.tokens[t.Token] = t
	return nil
}

func (m *mockTokenRepository) Get(_ context.Context, token string) (*userDatamodel.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, ErrRefreshTokenNotFound
}

func (m *mockTokenRepository) Delete(_ context.Context, token string) error {
	if _, ok := m.tokens[token]; !ok {
		return ErrRefreshTokenNotFound
	}
	delete(m.tokens, token)
	return nil
}

func (m *mockTokenRepository) DeleteForUser(_ context.Context, userID int64) error {
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *mockTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range m.tokens {
		if !t.ExpiresAt.After(now) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

type mockExpirer struct {
	calls []int64
}

func (m *mockExpirer) ExpireIfDue(_ context.Context, userID int64) error {
	m.calls = append(m.calls, userID)
	return nil
}

func appErrOf(err error) *errors.AppError {
	appErr, ok := errors.IsAppError(err)
	gomega.Expect(ok).To(gomega.BeTrue(), "expected an AppError, got %v", err)
	return appErr
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		users    *mockUserRepository
		tokens   *mockTokenRepository
		expirer  *mockExpirer
		tokenGen *JWTTokenGenerator
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		var err error
		users = newMockUserRepository()
		tokens = newMockTokenRepository()
		expirer = &mockExpirer{}
		tokenGen, err = NewJWTTokenGenerator(testSecret, "HS256", 15*time.Minute, 7*24*time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = NewService(users, tokens, tokenGen, expirer, bcrypt.MinCost, logger)
		ctx = context.Background()
	})

	ginkgo.Describe("NewJWTTokenGenerator", func() {
		ginkgo.It("accepts the HMAC algorithms and rejects others", func() {
			for _, alg := range []string{"HS256", "hs384", "HS512"} {
				_, err := NewJWTTokenGenerator(testSecret, alg, time.Minute, time.Hour)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}
			_, err := NewJWTTokenGenerator(testSecret, "RS256", time.Minute, time.Hour)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("creates a user with a hashed password", func() {
			// Given
			dto := RegisterDTO{Name: "Ravi", Email: " Ravi@Example.com ", ContactNumber: "9999999999", Password: "supersecret"}

			// When
			u, err := service.Register(ctx, dto)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.Email).To(gomega.Equal("ravi@example.com"))
			stored := users.byID[u.ID]
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret"))).To(gomega.Succeed())
		})

		ginkgo.It("rejects a duplicate email", func() {
			_, err := service.Register(ctx, RegisterDTO{Name: "Dup", Email: "user@example.com", ContactNumber: "1", Password: "supersecret"})

			appErr := appErrOf(err)
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(appErr.Message).To(gomega.Equal("Email already registered"))
		})

		ginkgo.It("rejects short passwords", func() {
			_, err := service.Register(ctx, RegisterDTO{Name: "Short", Email: "s@example.com", ContactNumber: "1", Password: "short"})

			gomega.Expect(appErrOf(err).StatusCode).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Login", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("returns a bearer access token and stores the refresh token", func() {
				// When
				result, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.TokenType).To(gomega.Equal("bearer"))
				gomega.Expect(result.AccessToken.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.tokens).To(gomega.HaveKey(result.RefreshToken))
				gomega.Expect(users.byID[1].LastLogin).ToNot(gomega.BeNil())
				gomega.Expect(expirer.calls).To(gomega.Equal([]int64{1}))
			})

			ginkgo.It("issues distinct refresh tokens for back to back logins", func() {
				first, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				second, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				gomega.Expect(first.RefreshToken).ToNot(gomega.Equal(second.RefreshToken))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("returns 401 for a wrong password", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "wrong"})

				gomega.Expect(err).To(gomega.Equal(errors.ErrInvalidCredentials))
			})

			ginkgo.It("returns 401 for an unknown email", func() {
				_, err := service.Login(ctx, LoginDTO{Email: "ghost@example.com", Password: "correct_password"})

				gomega.Expect(appErrOf(err).StatusCode).To(gomega.Equal(http.StatusUnauthorized))
			})
		})
	})

	ginkgo.Describe("Refresh", func() {
		ginkgo.It("issues a new access token for a stored refresh token", func() {
			result, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			access, err := service.Refresh(ctx, result.RefreshToken)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			claims, err := tokenGen.ValidateToken(access.AccessToken, TokenTypeAccess)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("reports a missing token", func() {
			_, err := service.Refresh(ctx, "")

			gomega.Expect(appErrOf(err).Message).To(gomega.Equal("Refresh token not found"))
		})

		ginkgo.It("rejects an access token used as refresh token", func() {
			access, err := tokenGen.GenerateAccessToken(1, "user@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Refresh(ctx, access)

			gomega.Expect(appErrOf(err).Message).To(gomega.Equal("Invalid or expired refresh token"))
		})

		ginkgo.It("rejects a refresh token that was logged out", func() {
			result, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(service.Logout(ctx, result.RefreshToken)).To(gomega.Succeed())

			_, err = service.Refresh(ctx, result.RefreshToken)

			gomega.Expect(appErrOf(err).StatusCode).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("resolves a valid access token to its user", func() {
			access, err := tokenGen.GenerateAccessToken(2, "admin@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			u, err := service.Authenticate(ctx, access)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.IsAdmin).To(gomega.BeTrue())
		})

		ginkgo.It("rejects tokens signed with another algorithm", func() {
			other, err := NewJWTTokenGenerator(testSecret, "HS512", time.Minute, time.Hour)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			access, err := other.GenerateAccessToken(1, "user@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Authenticate(ctx, access)

			gomega.Expect(err).To(gomega.Equal(errors.ErrInvalidToken))
		})

		ginkgo.It("reports expired tokens", func() {
			claims := &Claims{
				UserID: 1,
				Type:   TokenTypeAccess,
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Authenticate(ctx, expired)

			gomega.Expect(err).To(gomega.Equal(errors.ErrTokenExpired))
		})
	})

	ginkgo.Describe("RevokeAllForUser", func() {
		ginkgo.It("drops every refresh token of the user", func() {
			_, err := service.Login(ctx, LoginDTO{Email: "user@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.RevokeAllForUser(ctx, 1)).To(gomega.Succeed())

			gomega.Expect(tokens.tokens).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("PurgeExpiredTokens", func() {
		ginkgo.It("removes only lapsed tokens", func() {
			now := time.Now().UTC()
			tokens.tokens["old"] = &userDatamodel.RefreshToken{Token: "old", UserID: 1, ExpiresAt: now.Add(-time.Hour)}
			tokens.tokens["live"] = &userDatamodel.RefreshToken{Token: "live", UserID: 1, ExpiresAt: now.Add(time.Hour)}

			n, err := service.PurgeExpiredTokens(ctx)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(n).To(gomega.Equal(int64(1)))
			gomega.Expect(tokens.tokens).To(gomega.HaveKey("live"))
		})
	})
})

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler  *Handler
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		var err error
		tokenGen, err = NewJWTTokenGenerator(testSecret, "HS256", 15*time.Minute, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(newMockUserRepository(), newMockTokenRepository(), tokenGen, nil, bcrypt.MinCost, logger)
		handler = NewHandler(svc, CookieConfig{Secure: true, MaxAge: time.Hour})
	})

	ginkgo.It("sets the refresh cookie on login and accepts it on refresh", func() {
		// Given
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@example.com","password":"correct_password"}`))
		rec := httptest.NewRecorder()

		// When
		handler.Login(rec, req)

		// Then
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"token_type":"bearer"`))
		gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("refresh"))
		cookies := rec.Result().Cookies()
		gomega.Expect(cookies).To(gomega.HaveLen(1))
		cookie := cookies[0]
		gomega.Expect(cookie.Name).To(gomega.Equal(RefreshTokenCookie))
		gomega.Expect(cookie.HttpOnly).To(gomega.BeTrue())
		gomega.Expect(cookie.Secure).To(gomega.BeTrue())
		gomega.Expect(cookie.SameSite).To(gomega.Equal(http.SameSiteLaxMode))
		gomega.Expect(cookie.MaxAge).To(gomega.Equal(3600))

		refreshReq := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		refreshReq.AddCookie(cookie)
		refreshRec := httptest.NewRecorder()
		handler.Refresh(refreshRec, refreshReq)
		gomega.Expect(refreshRec.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("accepts the refresh token in the body when no cookie is sent", func() {
		loginRec := httptest.NewRecorder()
		handler.Login(loginRec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@example.com","password":"correct_password"}`)))
		token := loginRec.Result().Cookies()[0].Value

		rec := httptest.NewRecorder()
		handler.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"`+token+`"}`)))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("returns 401 when refresh has no token at all", func() {
		rec := httptest.NewRecorder()
		handler.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("Refresh token not found"))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var next http.Handler

		ginkgo.BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, ok := UserFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(errors.UserIDFromContext(r.Context())).To(gomega.Equal(u.ID))
				w.WriteHeader(http.StatusTeapot)
			})
		})

		ginkgo.It("rejects requests without a bearer token", func() {
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/me", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("passes authenticated requests through with the user in context", func() {
			access, err := tokenGen.GenerateAccessToken(1, "user@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
			req.Header.Set("Authorization", "Bearer "+access)
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTeapot))
		})

		ginkgo.It("lets anonymous requests through the optional middleware", func() {
			rec := httptest.NewRecorder()
			anon := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, ok := UserFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeFalse())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodPost, "/contact", nil)
			req.Header.Set("Authorization", "Bearer garbage")
			handler.OptionalAuthMiddleware(anon).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		})
	})
})
