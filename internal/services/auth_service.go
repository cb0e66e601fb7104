// Package services – AuthService
//
// This file implements AuthService, which owns account registration and
// login. It validates registration input, hashes passwords with bcrypt,
// rejects duplicate emails/usernames before hitting the unique indexes, and
// issues bearer tokens on successful login.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/avramid/go-medcab-backend/internal/auth"
	"github.com/avramid/go-medcab-backend/internal/clock"
	"github.com/avramid/go-medcab-backend/internal/domain"
)

// UserRepo defines the repository contract required by AuthService.
type UserRepo interface {
	// CreateUser inserts a new account row.
	CreateUser(ctx context.Context, db *gorm.DB, email, username, passwordHash string) (*domain.User, error)

	// GetUserByEmail fetches an account by email (case-insensitive).
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// GetUser fetches an account by ID.
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// EmailExists / UsernameExists report uniqueness pre-checks.
	EmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error)
	UsernameExists(ctx context.Context, db *gorm.DB, username string) (bool, error)
}

// AuthService provides registration, login, and profile lookup.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Tokens signs and verifies bearer tokens.
	Tokens *auth.Manager
	// Clock supplies "now" for token issuance.
	Clock clock.Clock

	// BcryptCost overrides the hashing cost; zero means bcrypt.DefaultCost.
	BcryptCost int
}

// Register creates a new account. Email is normalized to lowercase; the
// password is stored only as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if !strings.Contains(email, "@") || len(email) > 255 {
		return nil, ErrInvalidEmail
	}
	if username == "" || utf8.RuneCountInString(username) > 64 {
		return nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < 8 {
		return nil, ErrWeakPassword
	}

	if taken, err := s.Repo.EmailExists(ctx, s.DB, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.Repo.UsernameExists(ctx, s.DB, username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	return s.Repo.CreateUser(ctx, s.DB, email, username, string(hash))
}

// Login verifies credentials and returns a signed bearer token plus the
// account. Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.Repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Email, s.Clock.Now())
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Profile returns the account for an authenticated user id.
func (s *AuthService) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
