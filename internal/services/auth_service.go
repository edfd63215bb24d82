package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"precinctwatch/internal/caching"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "precinctwatch"

	loginAttemptLimit  = 10
	loginAttemptWindow = time.Minute
)

// SessionClaims are the JWT claims of a login session. Subject carries the user id
// and ID the session id recorded in redis.
type SessionClaims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, username, clientKey string) (*models.SessionResponse, error)
	Logout(ctx context.Context, sessionID string) error
	// ValidateSession checks the token's session has not been revoked and returns
	// the user id it belongs to.
	ValidateSession(ctx context.Context, claims *SessionClaims) (uuid.UUID, error)
	ParseToken(token string) (*SessionClaims, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type authService struct {
	userRepo   repositories.UserRepository
	cache      caching.CacheService
	jwtSecret  []byte
	sessionTTL time.Duration
	log        logger.Logger
	now        func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, cache caching.CacheService, jwtSecret string, sessionTTL time.Duration, log logger.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		cache:      cache,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		log:        log,
		now:        time.Now,
	}
}

func (s *authService) Login(ctx context.Context, username, clientKey string) (*models.SessionResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, invalid("username", "username is required")
	}

	limited, err := s.cache.IsRateLimited(ctx, "login:"+clientKey, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		s.log.Warn("Login rate limit check failed", map[string]interface{}{"error": err.Error()})
	} else if limited {
		return nil, ErrRateLimited
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return nil, ErrUnauthorized
	}

	now := s.now()
	expiresAt := now.Add(s.sessionTTL)
	sessionID := uuid.NewString()
	claims := SessionClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.cache.SetSession(ctx, sessionID, user.ID.String(), s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	s.log.Info("User logged in", map[string]interface{}{"user_id": user.ID.String(), "role": string(user.Role)})
	return &models.SessionResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.sessionTTL.Seconds()),
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrUnauthorized
	}
	if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *authService) ValidateSession(ctx context.Context, claims *SessionClaims) (uuid.UUID, error) {
	if claims == nil || claims.ID == "" {
		return uuid.Nil, ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	owner, err := s.cache.GetSession(ctx, claims.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read session: %w", err)
	}
	if owner != userID.String() {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

func (s *authService) ParseToken(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	if !user.Active {
		return nil, ErrUnauthorized
	}
	return user, nil
}
