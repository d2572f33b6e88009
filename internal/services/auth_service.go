package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/auth"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/mkarpov/adboard-backend/internal/repository"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const refreshTokenTTL = 30 * 24 * time.Hour

// TokenPair is an access JWT plus the opaque refresh token kept in redis.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*TokenPair, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	users       repository.UserRepository
	redisClient redis.RedisClient
	jwtSecret   string
}

func NewAuthService(users repository.UserRepository, redisClient redis.RedisClient, jwtSecret string) *authService {
	return &authService{users: users, redisClient: redisClient, jwtSecret: jwtSecret}
}

func (s *authService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if email == "" || password == "" {
		span.SetStatus(codes.Error, "empty email or password")
		return nil, pkgerrors.ErrInvalidInput
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already exists")
		slog.Warn("email already exists", "email", email, "existing_id", existing.ID)
		return nil, pkgerrors.ErrEmailExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user in DB", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	slog.Info("user registered", "user_id", user.ID, "email", email)
	return s.issueTokens(ctx, user.ID, user.Role)
}

// EnsureAdmin seeds the admin account on startup. An existing account with
// the email is left untouched.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return pkgerrors.ErrInvalidInput
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	slog.Info("admin account seeded", "user_id", admin.ID, "email", email)
	return nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to login", "email", email, "error", err)
		return nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Error("invalid password", "email", email)
		return nil, pkgerrors.ErrInvalidCredentials
	}

	slog.Info("user logged in", "email", email, "user_id", user.ID)
	return s.issueTokens(ctx, user.ID, user.Role)
}

// Refresh rotates the refresh token: the presented one is consumed and a
// fresh pair issued.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	refreshKey := redis.RefreshTokenKey(refreshToken)
	userIDStr, err := s.redisClient.Get(ctx, refreshKey)
	if err != nil {
		span.SetStatus(codes.Error, "refresh token not found")
		return nil, pkgerrors.ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		slog.Error("malformed user id in refresh token entry", "value", userIDStr)
		return nil, pkgerrors.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.ErrInvalidToken
	}

	if err := s.redisClient.Del(ctx, refreshKey); err != nil {
		slog.Error("failed to consume refresh token", "user_id", userID, "error", err)
	}

	return s.issueTokens(ctx, userID, user.Role)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	refreshKey := redis.RefreshTokenKey(refreshToken)
	userIDStr, err := s.redisClient.Get(ctx, refreshKey)
	if err == nil {
		// Revoke the cached access token as well.
		if err := s.redisClient.Del(ctx, redis.UserTokenKey(userIDStr)); err != nil {
			slog.Error("failed to revoke access token", "user_id", userIDStr, "error", err)
		}
	}
	if err := s.redisClient.Del(ctx, refreshKey); err != nil {
		slog.Error("failed to delete refresh token", "error", err)
		return err
	}
	return nil
}

func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID, role string) (*TokenPair, error) {
	accessToken, err := auth.GenerateAccessToken(userID, role, s.jwtSecret)
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, redis.UserTokenKey(userID.String()), accessToken, auth.AccessTokenTTL); err != nil {
		slog.Error("failed to cache JWT", "user_id", userID, "error", err)
	}

	refreshToken := uuid.NewString()
	if err := s.redisClient.Set(ctx, redis.RefreshTokenKey(refreshToken), userID.String(), refreshTokenTTL); err != nil {
		slog.Error("failed to store refresh token", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
