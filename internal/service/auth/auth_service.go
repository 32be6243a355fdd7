package auth

import (
	"context"
	"fmt"
	"time"

	"fieldserve-service/internal/domain/auth"
	xerrors "fieldserve-service/internal/pkg/errors"
	"fieldserve-service/internal/pkg/jwt"
	"fieldserve-service/internal/pkg/session"
	"fieldserve-service/internal/repository/postgres"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

type AuthService struct {
	authRepo    *postgres.AuthRepository
	jwtManager  *jwt.Manager
	sessions    *session.Manager
	rateLimiter *session.RateLimiter
	logger      *zap.Logger
}

func NewAuthService(
	authRepo *postgres.AuthRepository,
	jwtManager *jwt.Manager,
	sessions *session.Manager,
	rateLimiter *session.RateLimiter,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		authRepo:    authRepo,
		jwtManager:  jwtManager,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// Login verifies credentials and opens a redis-backed session keyed by
// the token's jti. Attempts are rate limited per email.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	allowed, err := s.rateLimiter.Allow(ctx, "login:"+req.Email, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		s.logger.Warn("login rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	user, err := s.authRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		// Same error for unknown email and bad password.
		return nil, xerrors.ErrUnauthorized
	}
	if !user.Active {
		return nil, xerrors.ErrForbidden
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	token, jti, err := s.jwtManager.Generate(user.ID, user.CompanyID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	if err := s.sessions.Create(ctx, &session.Data{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		JTI:       jti,
		Role:      string(user.Role),
		Email:     user.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.jwtManager.TTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.authRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.Int64("company_id", user.CompanyID),
		zap.String("role", string(user.Role)),
	)

	return &auth.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtManager.TTL.Seconds()),
		User:      user,
	}, nil
}

// ValidateToken checks the signature and that the session behind the
// jti is still live, so revocation takes effect immediately.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verify(token)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, err.Error())
	}

	if _, err := s.sessions.Get(ctx, claims.UserID, claims.ID); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64, jti string) error {
	return s.sessions.Delete(ctx, userID, jti)
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	return s.authRepo.FindByID(ctx, id)
}

// Register creates a new dashboard user inside the caller's company.
// Only admins reach this through the router.
func (s *AuthService) Register(ctx context.Context, companyID int64, req *auth.RegisterRequest) (*auth.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		CompanyID:    companyID,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}

	if err := s.authRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("company_id", companyID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}
