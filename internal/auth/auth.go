package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
	coreuser "github.com/jarvis4everyone/jarvis-backend/internal/core/user"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	RefreshTokenCookie = "refresh_token"
)

// ServiceAPI is what the HTTP layer needs from the auth service.
type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*coreuser.User, error)
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*coreuser.User, error)
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type RefreshTokenRepository interface {
	Store(ctx context.Context, t *userDatamodel.RefreshToken) error
	Get(ctx context.Context, token string) (*userDatamodel.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionExpirer flips a user's lapsed subscription to expired.
type SubscriptionExpirer interface {
	ExpireIfDue(ctx context.Context, userID int64) error
}

type TokenGenerator interface {
	GenerateAccessToken(userID int64, email string) (string, error)
	GenerateRefreshToken(userID int64) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString, tokenType string) (*Claims, error)
}

// Claims represents JWT token claims
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret          []byte
	Method          jwt.SigningMethod
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type LoginResult struct {
	AccessToken
	RefreshToken     string         `json:"-"`
	RefreshExpiresAt time.Time      `json:"-"`
	User             *coreuser.User `json:"-"`
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
)

type ctxKey string

const ContextUserKey ctxKey = "authUser"

func ContextWithUser(ctx context.Context, u *coreuser.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func UserFromContext(ctx context.Context) (*coreuser.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*coreuser.User)
	return u, ok && u != nil
}
