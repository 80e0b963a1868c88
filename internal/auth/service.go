package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	userDatamodel "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/user"
	coreuser "github.com/jarvis4everyone/jarvis-backend/internal/core/user"
)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenRepo      RefreshTokenRepository
	tokenGenerator TokenGenerator
	expirer        SubscriptionExpirer
	bcryptCost     int
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a new auth service. expirer may be nil.
func NewService(userRepo UserRepository, tokenRepo RefreshTokenRepository, tokenGen TokenGenerator, expirer SubscriptionExpirer, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		tokenGenerator: tokenGen,
		expirer:        expirer,
		bcryptCost:     bcryptCost,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// NewJWTTokenGenerator creates a JWT token generator for the configured HMAC algorithm.
func NewJWTTokenGenerator(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*JWTTokenGenerator, error) {
	method := jwt.GetSigningMethod(strings.ToUpper(algorithm))
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &JWTTokenGenerator{
		Secret:          []byte(secret),
		Method:          method,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}, nil
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*coreuser.User, error) {
	dto.Email = NormalizeEmail(dto.Email)
	dto.Name = strings.TrimSpace(dto.Name)
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	if _, err := s.userRepo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, errors.NewValidationError("Email already registered", errors.ErrCodeEmailExists)
	} else if !stdErrors.Is(err, ErrUserNotFound) {
		return nil, errors.NewInternalError("failed to look up user", err)
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	u := &userDatamodel.User{
		Name:          dto.Name,
		Email:         dto.Email,
		ContactNumber: strings.TrimSpace(dto.ContactNumber),
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)
	return coreuser.FromDataModel(u), nil
}

// Login validates credentials, stores a fresh refresh token and returns both tokens.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	dto.Email = NormalizeEmail(dto.Email)
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	u, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.NewInternalError("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed", "email", dto.Email)
		return nil, errors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Error("failed to update last login", "user_id", u.ID, "error", err)
	}
	u.LastLogin = &now

	if s.expirer != nil {
		if err := s.expirer.ExpireIfDue(ctx, u.ID); err != nil {
			s.logger.Error("failed to expire lapsed subscription", "user_id", u.ID, "error", err)
		}
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue access token", err)
	}

	refreshToken, expiresAt, err := s.tokenGenerator.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue refresh token", err)
	}

	if err := s.tokenRepo.Store(ctx, &userDatamodel.RefreshToken{
		UserID:    u.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return nil, errors.NewInternalError("failed to store refresh token", err)
	}

	s.logger.Info("login successful", "user_id", u.ID, "is_admin", u.IsAdmin)

	return &LoginResult{
		AccessToken:      AccessToken{AccessToken: accessToken, TokenType: "bearer"},
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
		User:             coreuser.FromDataModel(u),
	}, nil
}

// Refresh issues a new access token for a stored, unexpired refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AccessToken, error) {
	invalid := errors.NewUnauthorizedError("Invalid or expired refresh token", errors.ErrCodeInvalidToken)
	if refreshToken == "" {
		return nil, errors.NewUnauthorizedError("Refresh token not found", errors.ErrCodeInvalidToken)
	}

	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, invalid
	}

	stored, err := s.tokenRepo.Get(ctx, refreshToken)
	if err != nil {
		if stdErrors.Is(err, ErrRefreshTokenNotFound) {
			return nil, invalid
		}
		return nil, errors.NewInternalError("failed to load refresh token", err)
	}
	if stored.UserID != claims.UserID {
		return nil, invalid
	}
	if !stored.ExpiresAt.After(s.now()) {
		if err := s.tokenRepo.Delete(ctx, refreshToken); err != nil {
			s.logger.Error("failed to delete expired refresh token", "user_id", stored.UserID, "error", err)
		}
		return nil, invalid
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return nil, invalid
		}
		return nil, errors.NewInternalError("failed to look up user", err)
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, errors.NewInternalError("failed to issue access token", err)
	}
	return &AccessToken{AccessToken: accessToken, TokenType: "bearer"}, nil
}

// Logout forgets the refresh token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.Delete(ctx, refreshToken); err != nil && !stdErrors.Is(err, ErrRefreshTokenNotFound) {
		return errors.NewInternalError("failed to revoke refresh token", err)
	}
	return nil
}

// Authenticate resolves an access token to the current user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*coreuser.User, error) {
	claims, err := s.tokenGenerator.ValidateToken(accessToken, TokenTypeAccess)
	if err != nil {
		if stdErrors.Is(err, ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, ErrUserNotFound) {
			return nil, errors.NewUnauthorizedError("User not found", errors.ErrCodeInvalidToken)
		}
		return nil, errors.NewInternalError("failed to look up user", err)
	}
	return coreuser.FromDataModel(u), nil
}

// RevokeAllForUser drops every refresh token held by the user.
func (s *Service) RevokeAllForUser(ctx context.Context, userID int64) error {
	return s.tokenRepo.DeleteForUser(ctx, userID)
}

// PurgeExpiredTokens removes refresh tokens past their expiry.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens purged", "count", n)
	}
	return n, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	return jwt.NewWithClaims(j.Method, claims).SignedString(j.Secret)
}

// GenerateRefreshToken creates a new refresh token. Each token carries a
// unique jti so two logins in the same second never collide.
func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.RefreshTokenTTL)
	claims := &Claims{
		UserID: userID,
		Type:   TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token, err := jwt.NewWithClaims(j.Method, claims).SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt.UTC(), nil
}

// ValidateToken validates a JWT token of the given type and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, jwt.WithValidMethods([]string{j.Method.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		if stdErrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != tokenType || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
