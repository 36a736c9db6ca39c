package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memorial-service/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAdminExists        = errors.New("admin already exists")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service interface {
	Setup(ctx context.Context, req SetupRequest) (*Admin, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Authenticate(ctx context.Context, token string) (*Admin, error)
	ChangePassword(ctx context.Context, admin *Admin, req ChangePasswordRequest) (*TokenResponse, error)
}

type service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoker Revoker
	metrics *metrics.Metrics
}

func NewService(repo Repository, tokens *TokenIssuer, revoker Revoker, m *metrics.Metrics) Service {
	return &service{
		repo:    repo,
		tokens:  tokens,
		revoker: revoker,
		metrics: m,
	}
}

// Setup creates the first admin. It fails once any admin exists.
func (s *service) Setup(ctx context.Context, req SetupRequest) (*Admin, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &Admin{Username: username, PasswordHash: string(hash)}
	if err := s.repo.CreateFirst(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	admin, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			s.metrics.Content.RecordLogin(ctx, false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.Content.RecordLogin(ctx, false)
		return nil, ErrInvalidCredentials
	}

	s.metrics.Content.RecordLogin(ctx, true)
	return s.issue(admin)
}

// Authenticate resolves a bearer token to its admin. Tokens issued before the
// admin's last password change are rejected.
func (s *service) Authenticate(ctx context.Context, token string) (*Admin, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	admin, err := s.repo.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return nil, fmt.Errorf("%w: admin %d no longer exists", ErrUnauthorized, claims.AdminID)
		}
		return nil, err
	}

	cutoff, err := s.revoker.RevokedBefore(ctx, admin.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read token cutoff: %w", err)
	}
	if !cutoff.IsZero() && claims.IssuedAt.Time.Before(cutoff) {
		return nil, fmt.Errorf("%w: token issued before password change", ErrUnauthorized)
	}
	return admin, nil
}

// ChangePassword replaces the password, invalidates earlier tokens and
// returns a fresh one.
func (s *service) ChangePassword(ctx context.Context, admin *Admin, req ChangePasswordRequest) (*TokenResponse, error) {
	if req.NewPassword == "" {
		return nil, fmt.Errorf("%w: newPassword is required", ErrInvalidInput)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, string(hash)); err != nil {
		return nil, err
	}
	admin.PasswordHash = string(hash)

	// JWT timestamps have second precision.
	cutoff := s.tokens.now().Truncate(time.Second)
	if err := s.revoker.RevokeBefore(ctx, admin.ID, cutoff); err != nil {
		return nil, fmt.Errorf("failed to revoke tokens: %w", err)
	}

	return s.issue(admin)
}

func (s *service) issue(admin *Admin) (*TokenResponse, error) {
	token, err := s.tokens.Issue(admin.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResponse{Token: token, Admin: admin.View()}, nil
}
