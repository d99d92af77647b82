package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/roundupgames/audit-backend/internal/auth"
	"github.com/roundupgames/audit-backend/internal/models"
	repo "github.com/roundupgames/audit-backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	users repo.Users
	tm    *auth.TokenManager
	audit *AuditService
}

func NewUserService(u repo.Users, tm *auth.TokenManager, a *AuditService) *UserService {
	return &UserService{users: u, tm: tm, audit: a}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email)}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	created, err := s.users.Create(ctx, u.Username, u.Email, hash)
	if err != nil {
		return models.User{}, err
	}

	s.audit.RecordAsync(models.AuditEntryInput{
		Action:         "auth.user_registered",
		ActionCategory: models.CategoryAuth,
		ActorUserID:    &created.ID,
		TargetType:     ptr("user"),
		TargetID:       &created.ID,
	})
	return created, nil
}

type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		s.audit.RecordAsync(models.AuditEntryInput{
			Action:         "security.login_failed",
			ActionCategory: models.CategorySecurity,
			TargetType:     ptr("user"),
			TargetID:       &user.ID,
		})
		return TokenPair{}, ErrInvalidCredentials
	}

	access, refresh, exp, err := s.tm.GeneratePair(user.ID, user.IsGlobalAdmin)
	if err != nil {
		return TokenPair{}, err
	}

	s.audit.RecordAsync(models.AuditEntryInput{
		Action:         "auth.login",
		ActionCategory: models.CategoryAuth,
		ActorUserID:    &user.ID,
		TargetType:     ptr("user"),
		TargetID:       &user.ID,
	})
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    time.Until(exp).Truncate(time.Second),
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.Parse(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, ErrInvalidCredentials
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.GlobalAdmin)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    time.Until(exp).Truncate(time.Second),
	}, nil
}

func ptr(s string) *string { return &s }
